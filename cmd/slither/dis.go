package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/slither"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/dis"
)

func (a *app) disCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a program",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.disHandler,
	}
	addSourceFlags(cmd)
	cmd.Flags().String("func", "", "disassemble only the code object with this qualified name")
	cmd.Flags().Bool("json", false, "print the disassembly as JSON")
	return cmd
}

func (a *app) disHandler(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	code, err := slither.Compile(source, slither.WithFilename(filename), slither.WithLogger(a.logger))
	if err != nil {
		return a.reportError(cmd, err)
	}
	if name, _ := cmd.Flags().GetString("func"); name != "" {
		if code, err = findCode(code, name); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		listing, err := dis.NewListing(code)
		if err != nil {
			return err
		}
		data, err := marshalJSON(listing)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}
	return dis.PrintAll(code, out)
}

func findCode(root *bytecode.Code, qualName string) (*bytecode.Code, error) {
	for _, c := range root.Flatten() {
		if c.QualName() == qualName {
			return c, nil
		}
	}
	return nil, fmt.Errorf("function %q not found", qualName)
}
