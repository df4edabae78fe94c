package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/deepnoodle-ai/slither"
	errz "github.com/deepnoodle-ai/slither/errors"
)

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <files...>",
		Short: "Compile files and report every error",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.checkHandler,
	}
}

func (a *app) checkHandler(cmd *cobra.Command, args []string) error {
	store, closeCache, err := a.openCache(cmd)
	if err != nil {
		return err
	}
	defer closeCache()

	opts := []slither.Option{slither.WithLogger(a.logger)}
	if store != nil {
		opts = append(opts, slither.WithCache(store))
	}
	if a.manifest != nil {
		opts = append(opts, slither.WithOptimize(a.manifest.Compile.Optimize))
	}
	_, err = slither.CompileFiles(cmd.Context(), args, opts...)
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s ok\n", len(args), plural(len(args), "file", "files"))
		return nil
	}
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		return err
	}
	formatter := errz.NewFormatter(!color.NoColor)
	for _, e := range merr.Errors {
		var fe errz.FormattableError
		if errors.As(e, &fe) {
			fmt.Fprintln(cmd.ErrOrStderr(), formatter.FormatError(fe))
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), formatter.FormatError(e))
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d %s failed\n", len(merr.Errors), len(args), plural(len(args), "file", "files"))
	return &exitError{code: 1}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
