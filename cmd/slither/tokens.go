package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/slither/internal/lexer"
	"github.com/deepnoodle-ai/slither/internal/table"
)

func (a *app) tokensCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tokens [file]",
		Short: "Print the tokens of a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.tokensHandler,
	}
	addSourceFlags(cmd)
	return cmd
}

func (a *app) tokensHandler(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	tokens, err := lexer.New(source, lexer.WithFilename(filename)).Tokenize()
	if err != nil {
		return a.reportError(cmd, err)
	}
	rows := make([][]string, 0, len(tokens))
	for _, tok := range tokens {
		pos := tok.StartPosition
		rows = append(rows, []string{
			fmt.Sprintf("%d:%d", pos.LineNumber(), pos.ColumnNumber()),
			string(tok.Type),
			strconv.Quote(tok.Literal),
		})
	}
	table.NewTable(cmd.OutOrStdout()).
		WithHeader([]string{"POSITION", "TYPE", "LITERAL"}).
		WithColumnAlignment([]table.Alignment{table.AlignRight, table.AlignLeft, table.AlignLeft}).
		WithRows(rows).
		Render()
	return nil
}
