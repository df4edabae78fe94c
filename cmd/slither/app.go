package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepnoodle-ai/slither"
	"github.com/deepnoodle-ai/slither/cache"
	"github.com/deepnoodle-ai/slither/manifest"
)

const (
	defaultConfigFile = "~/.slither.yaml"
	defaultCacheDir   = "~/.cache/slither"
)

// app holds the configuration shared by every command.
type app struct {
	v        *viper.Viper
	logger   zerolog.Logger
	manifest *manifest.Manifest
}

func newApp() *app {
	return &app{v: viper.New(), logger: zerolog.Nop()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "slither",
		Short:         "Compile, run and inspect Python-compatible programs",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default "+defaultConfigFile+")")
	flags.Bool("no-color", false, "disable colored output")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("cache", cache.BackendNone, "code cache backend (none, file, sqlite)")
	flags.String("cache-dir", defaultCacheDir, "code cache directory")
	flags.StringSlice("path", nil, "directories searched by import statements")
	root.RegisterFlagCompletionFunc("cache", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{cache.BackendNone, cache.BackendFile, cache.BackendSQLite}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(
		a.runCmd(),
		a.evalCmd(),
		a.disCmd(),
		a.checkCmd(),
		a.tokensCmd(),
		a.astCmd(),
	)
	return root
}

// configure loads .env, the config file and the project manifest, then
// sets up colors and logging.
func (a *app) configure(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	a.v.SetEnvPrefix("slither")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	configFile := a.v.GetString("config")
	explicit := configFile != ""
	if !explicit {
		configFile = defaultConfigFile
	}
	path, err := homedir.Expand(configFile)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil || explicit {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	if a.v.GetBool("no-color") || !isTerminal(os.Stdout) {
		color.NoColor = true
	}

	level, err := zerolog.ParseLevel(a.v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("invalid log level %q", a.v.GetString("log-level"))
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr(), NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if a.manifest, err = manifest.FindAndLoad(wd); err != nil {
		return err
	}
	if a.manifest != nil {
		a.logger.Debug().Str("dir", a.manifest.Dir).Str("project", a.manifest.Project.Name).Msg("manifest loaded")
	}
	return nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// importPaths returns the configured import roots: --path entries, the
// manifest source paths, then the directory of the file being run.
func (a *app) importPaths(filename string) []string {
	paths := a.v.GetStringSlice("path")
	if a.manifest != nil {
		paths = append(paths, a.manifest.SourcePaths()...)
	}
	if filename != "" {
		paths = append(paths, filepath.Dir(filename))
	}
	return paths
}

// openCache opens the configured code cache. The manifest supplies the
// backend and directory unless they are set by flag, environment or
// config file.
func (a *app) openCache(cmd *cobra.Command) (cache.Store, func(), error) {
	backend := a.v.GetString("cache")
	dir := a.v.GetString("cache-dir")
	if a.manifest != nil {
		if !a.explicit(cmd, "cache") {
			backend = a.manifest.CacheBackend()
		}
		if !a.explicit(cmd, "cache-dir") {
			dir = a.manifest.CacheDir()
		}
	}
	dir, err := homedir.Expand(dir)
	if err != nil {
		return nil, nil, err
	}
	return cache.Open(backend, dir, cache.WithLogger(a.logger))
}

// explicit reports whether a setting was given on the command line, in the
// environment or in the config file.
func (a *app) explicit(cmd *cobra.Command, name string) bool {
	if cmd.Flags().Changed(name) || a.v.InConfig(name) {
		return true
	}
	_, ok := os.LookupEnv("SLITHER_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")))
	return ok
}

// options returns the slither options for compiling and running filename.
func (a *app) options(cmd *cobra.Command, filename string, store cache.Store) []slither.Option {
	opts := []slither.Option{
		slither.WithLogger(a.logger),
		slither.WithOutput(cmd.OutOrStdout()),
		slither.WithImportPaths(a.importPaths(filename)...),
	}
	if filename != "" {
		opts = append(opts, slither.WithFilename(filename))
	}
	if store != nil {
		opts = append(opts, slither.WithCache(store))
	}
	if a.manifest != nil {
		opts = append(opts, slither.WithOptimize(a.manifest.Compile.Optimize))
	}
	return opts
}
