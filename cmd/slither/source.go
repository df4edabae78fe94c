package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// readSource determines the code a command works on. There are three
// possibilities: --code <code>, --stdin, or a path as args[0].
func readSource(cmd *cobra.Command, args []string) (source, filename string, err error) {
	codeSet := cmd.Flags().Changed("code")
	stdinSet, _ := cmd.Flags().GetBool("stdin")
	pathSupplied := len(args) > 0

	count := 0
	for _, set := range []bool{codeSet, stdinSet, pathSupplied} {
		if set {
			count++
		}
	}
	if count > 1 {
		return "", "", errors.New("multiple input sources specified")
	}
	switch {
	case stdinSet:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return string(data), "<stdin>", nil
	case pathSupplied:
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", err
		}
		return string(data), args[0], nil
	case codeSet:
		code, _ := cmd.Flags().GetString("code")
		return code, "<string>", nil
	}
	return "", "", errors.New("no input provided")
}

func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("code", "c", "", "code to use instead of a file")
	cmd.Flags().Bool("stdin", false, "read code from stdin")
}

func usageError(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
