package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/slither"
	errz "github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/exception"
)

func (a *app) runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Run a program",
		Long:  "Run a program. Without a file, the entry point of the project manifest is run.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  a.runHandler,
	}
	addSourceFlags(cmd)
	cmd.Flags().Bool("timing", false, "show execution time")
	return cmd
}

func (a *app) runHandler(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && !cmd.Flags().Changed("code") && !cmd.Flags().Changed("stdin") {
		if a.manifest == nil || a.manifest.EntryPath() == "" {
			return usageError("no file given and no manifest entry point found")
		}
		args = []string{a.manifest.EntryPath()}
	}
	source, filename, err := readSource(cmd, args)
	if err != nil {
		return err
	}
	store, closeCache, err := a.openCache(cmd)
	if err != nil {
		return err
	}
	defer closeCache()

	start := time.Now()
	_, err = slither.Exec(cmd.Context(), source, a.options(cmd, filename, store)...)
	if err != nil {
		return a.reportError(cmd, err)
	}
	if timing, _ := cmd.Flags().GetBool("timing"); timing {
		fmt.Fprintf(cmd.ErrOrStderr(), "%v\n", time.Since(start))
	}
	return nil
}

// reportError writes a compile error or an uncaught exception to stderr
// and returns an exitError. Other errors are returned unchanged.
func (a *app) reportError(cmd *cobra.Command, err error) error {
	var exc *exception.Exception
	if errors.As(err, &exc) {
		fmt.Fprint(cmd.ErrOrStderr(), exc.Format())
		return &exitError{code: 1}
	}
	var fe errz.FormattableError
	if errors.As(err, &fe) {
		fmt.Fprintln(cmd.ErrOrStderr(), errz.NewFormatter(!color.NoColor).FormatError(fe))
		return &exitError{code: 1}
	}
	return err
}
