package main

import (
	"fmt"
	"reflect"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/parser"
)

func (a *app) astCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ast [file]",
		Short: "Print the syntax tree of a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.astHandler,
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("json", false, "print the tree as JSON")
	return cmd
}

func (a *app) astHandler(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	module, err := parser.Parse(cmd.Context(), source, parser.WithFilename(filename))
	if err != nil {
		return a.reportError(cmd, err)
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := marshalJSON(nodeToJSON(module))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), module.String())
	return nil
}

// astNode represents a node in the JSON AST output.
type astNode struct {
	Type     string     `json:"type"`
	Line     int        `json:"line,omitempty"`
	Text     string     `json:"text,omitempty"`
	Children []*astNode `json:"children,omitempty"`
}

func nodeToJSON(node ast.Node) *astNode {
	result := &astNode{Type: reflect.TypeOf(node).Elem().Name()}
	if pos := node.Pos(); pos.IsValid() {
		result.Line = pos.LineNumber()
	}
	if _, ok := node.(ast.Expr); ok {
		result.Text = node.String()
	}
	for _, child := range ast.Children(node) {
		result.Children = append(result.Children, nodeToJSON(child))
	}
	return result
}
