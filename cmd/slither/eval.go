package main

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/slither"
	"github.com/deepnoodle-ai/slither/object"
)

func (a *app) evalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression and print its repr",
		Args:  cobra.ExactArgs(1),
		RunE:  a.evalHandler,
	}
	cmd.Flags().Bool("json", false, "print the value as JSON")
	return cmd
}

func (a *app) evalHandler(cmd *cobra.Command, args []string) error {
	result, err := slither.Eval(cmd.Context(), args[0],
		slither.WithLogger(a.logger),
		slither.WithOutput(cmd.OutOrStdout()),
		slither.WithImportPaths(a.importPaths("")...),
		slither.WithFilename("<eval>"))
	if err != nil {
		return a.reportError(cmd, err)
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		data, err := marshalJSON(map[string]any{
			"type":  object.TypeName(result),
			"value": jsonValue(result),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Inspect())
	return nil
}

// jsonValue returns a JSON-friendly form of value: its Go equivalent when
// that marshals, otherwise its repr.
func jsonValue(value object.Object) any {
	v := value.Interface()
	if _, err := json.Marshal(v); err != nil {
		return value.Inspect()
	}
	return v
}

func marshalJSON(v any) ([]byte, error) {
	if color.NoColor {
		return json.MarshalIndent(v, "", "  ")
	}
	return prettyjson.Marshal(v)
}
