// Package slither compiles and runs Python-compatible source code. It ties
// together the compiler, the virtual machine, the importer and the code
// cache behind a few functions.
package slither

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/cache"
	"github.com/deepnoodle-ai/slither/compiler"
	"github.com/deepnoodle-ai/slither/importer"
	"github.com/deepnoodle-ai/slither/modules/math"
	"github.com/deepnoodle-ai/slither/object"
	"github.com/deepnoodle-ai/slither/vm"
)

// Option configures a compilation or execution.
type Option func(*options)

type options struct {
	globals     map[string]any
	filename    string
	observer    vm.Observer
	importer    importer.Importer
	importPaths []string
	cache       cache.Store
	logger      zerolog.Logger
	output      io.Writer
	optimize    int
	maxDepth    int
	concurrency int
	modules     map[string]*object.Module
}

func collectOptions(opts ...Option) *options {
	o := &options{
		globals: map[string]any{},
		logger:  zerolog.Nop(),
		modules: map[string]*object.Module{},
	}
	for _, m := range DefaultModules() {
		o.modules[m.Name()] = m
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) compilerOpts() []compiler.Option {
	opts := []compiler.Option{compiler.WithLogger(o.logger), compiler.WithOptimize(o.optimize)}
	if o.filename != "" {
		opts = append(opts, compiler.WithFilename(o.filename))
	}
	return opts
}

func (o *options) vmOpts() []vm.Option {
	opts := []vm.Option{vm.WithLogger(o.logger)}
	if len(o.globals) > 0 {
		opts = append(opts, vm.WithGlobals(o.globals))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if imp := o.resolveImporter(); imp != nil {
		opts = append(opts, vm.WithImporter(imp))
	}
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.maxDepth > 0 {
		opts = append(opts, vm.WithMaxFrameDepth(o.maxDepth))
	}
	for _, m := range o.modules {
		opts = append(opts, vm.WithModule(m))
	}
	return opts
}

func (o *options) resolveImporter() importer.Importer {
	if o.importer != nil {
		return o.importer
	}
	if len(o.importPaths) == 0 {
		return nil
	}
	opts := []importer.Option{
		importer.WithRoots(o.importPaths...),
		importer.WithLogger(o.logger),
		importer.WithCompilerOptions(compiler.WithOptimize(o.optimize)),
	}
	if o.cache != nil {
		opts = append(opts, importer.WithCache(o.cache))
	}
	return importer.NewLocal(opts...)
}

// WithGlobals provides global variables that are made available to
// programs. This option is additive; if the same key is supplied multiple
// times, the last value wins. Values are converted with object.FromGo.
func WithGlobals(globals map[string]any) Option {
	return func(o *options) {
		maps.Copy(o.globals, globals)
	}
}

// WithFilename sets the filename used in tracebacks and error messages.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithImporter supplies the Importer used by import statements. It takes
// precedence over WithImportPaths.
func WithImporter(i importer.Importer) Option {
	return func(o *options) {
		o.importer = i
	}
}

// WithImportPaths enables importing modules from the given directories.
func WithImportPaths(paths ...string) Option {
	return func(o *options) {
		o.importPaths = append(o.importPaths, paths...)
	}
}

// WithCache sets the store used to cache compiled code.
func WithCache(store cache.Store) Option {
	return func(o *options) {
		o.cache = store
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithOutput sets where print writes. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithOptimize sets the compiler optimization level.
func WithOptimize(level int) Option {
	return func(o *options) {
		o.optimize = level
	}
}

// WithMaxFrameDepth limits the depth of nested calls.
func WithMaxFrameDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// DefaultModules returns new instances of the host modules available to
// every program unless removed with WithoutModule.
func DefaultModules() []*object.Module {
	return []*object.Module{math.Module()}
}

// WithModule makes a host module importable by name. It replaces any
// default module with the same name.
func WithModule(module *object.Module) Option {
	return func(o *options) {
		o.modules[module.Name()] = module
	}
}

// WithoutModule removes a host module by name.
func WithoutModule(name string) Option {
	return func(o *options) {
		delete(o.modules, name)
	}
}

// WithConcurrency limits the number of files CompileFiles compiles at once.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// CompileModuleSource compiles a module with default options.
func CompileModuleSource(source string) (*bytecode.Code, error) {
	return compiler.CompileModuleSource(source)
}

// Compile parses and compiles module source into bytecode. The returned
// Code is immutable and safe for concurrent use.
func Compile(source string, opts ...Option) (*bytecode.Code, error) {
	o := collectOptions(opts...)
	return compileCached(context.Background(), o, o.filename, source)
}

func compileCached(ctx context.Context, o *options, filename, source string) (*bytecode.Code, error) {
	var key string
	if o.cache != nil {
		key = cache.Key(filename, source)
		code, ok, err := o.cache.Get(ctx, key)
		if err != nil {
			o.logger.Warn().Err(err).Str("file", filename).Msg("cache read failed")
		} else if ok {
			return code, nil
		}
	}
	copts := o.compilerOpts()
	if filename != "" {
		copts = append(copts, compiler.WithFilename(filename))
	}
	code, err := compiler.CompileModuleSource(source, copts...)
	if err != nil {
		return nil, err
	}
	if o.cache != nil {
		if err := o.cache.Put(ctx, key, code); err != nil {
			o.logger.Warn().Err(err).Str("file", filename).Msg("cache write failed")
		}
	}
	return code, nil
}

// Run executes compiled module code as __main__ and returns the virtual
// machine, whose globals remain available. An uncaught exception is
// returned as an *exception.Exception alongside the machine.
func Run(ctx context.Context, code *bytecode.Code, opts ...Option) (*vm.VirtualMachine, error) {
	o := collectOptions(opts...)
	machine, err := vm.New(code, o.vmOpts()...)
	if err != nil {
		return nil, err
	}
	return machine, machine.Run(ctx)
}

// Exec compiles and runs module source.
func Exec(ctx context.Context, source string, opts ...Option) (*vm.VirtualMachine, error) {
	code, err := Compile(source, opts...)
	if err != nil {
		return nil, err
	}
	return Run(ctx, code, opts...)
}

// Eval compiles a single expression and returns its value.
func Eval(ctx context.Context, expression string, opts ...Option) (object.Object, error) {
	o := collectOptions(opts...)
	code, err := compiler.CompileExpressionSource(expression, o.compilerOpts()...)
	if err != nil {
		return nil, err
	}
	machine, err := vm.New(code, o.vmOpts()...)
	if err != nil {
		return nil, err
	}
	return machine.RunCode(ctx, code)
}

// CompileFiles compiles the given files concurrently. Every failure is
// reported in the returned error, which aggregates them in path order;
// files that compiled are returned even when others failed.
func CompileFiles(ctx context.Context, paths []string, opts ...Option) (map[string]*bytecode.Code, error) {
	o := collectOptions(opts...)
	limit := o.concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	var (
		mutex   sync.Mutex
		results = make(map[string]*bytecode.Code, len(paths))
		failed  = map[string]error{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err == nil {
				var code *bytecode.Code
				code, err = compileCached(gctx, o, path, string(data))
				if err == nil {
					mutex.Lock()
					results[path] = code
					mutex.Unlock()
					return nil
				}
			}
			mutex.Lock()
			failed[path] = err
			mutex.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	if len(failed) == 0 {
		return results, nil
	}
	sorted := make([]string, 0, len(failed))
	for path := range failed {
		sorted = append(sorted, path)
	}
	sort.Strings(sorted)
	var merr *multierror.Error
	for _, path := range sorted {
		merr = multierror.Append(merr, fmt.Errorf("%s: %w", path, failed[path]))
	}
	o.logger.Debug().Int("files", len(paths)).Int("failed", len(failed)).Msg("compiled files")
	return results, merr.ErrorOrNil()
}
