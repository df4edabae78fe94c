// Package importer resolves import specifiers to modules. Module bodies are
// compiled here and executed by an Executor supplied by the virtual machine
// through the context.
package importer

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/cache"
	"github.com/deepnoodle-ai/slither/compiler"
	errz "github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/object"
)

// Importer loads modules by name.
type Importer interface {
	// ResolveAndLoad returns the module named by specifier. Leading dots
	// make the specifier relative to the requesting module.
	ResolveAndLoad(ctx context.Context, specifier string, requester string) (*object.Module, error)
}

// Executor runs a compiled module body with module as its namespace.
type Executor func(ctx context.Context, code *bytecode.Code, module *object.Module) error

type contextKey string

const executorKey = contextKey("slither:executor")

// WithExecutor adds an Executor to the context.
func WithExecutor(ctx context.Context, exec Executor) context.Context {
	return context.WithValue(ctx, executorKey, exec)
}

// GetExecutor returns the Executor from the context, if it exists.
func GetExecutor(ctx context.Context) (Executor, bool) {
	exec, ok := ctx.Value(executorKey).(Executor)
	return exec, ok && exec != nil
}

// source locates module files.
type source interface {
	// find returns the path and text of the named module.
	find(name string) (path, text string, isPackage bool, err error)
}

// Option configures an importer.
type Option func(*loader)

// WithRoots sets the directories searched for modules.
func WithRoots(roots ...string) Option {
	return func(l *loader) {
		l.roots = append(l.roots, roots...)
	}
}

// WithCache sets the store consulted before compiling a module.
func WithCache(store cache.Store) Option {
	return func(l *loader) {
		l.cache = store
	}
}

// WithLogger sets the logger used for import events.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithCompilerOptions sets options passed to the compiler for each module.
func WithCompilerOptions(opts ...compiler.Option) Option {
	return func(l *loader) {
		l.compilerOpts = append(l.compilerOpts, opts...)
	}
}

type loader struct {
	roots        []string
	cache        cache.Store
	logger       zerolog.Logger
	compilerOpts []compiler.Option
	src          source

	mutex    sync.Mutex
	modules  map[string]*object.Module
	packages map[string]bool
}

func newLoader(opts []Option) *loader {
	l := &loader{
		logger:   zerolog.Nop(),
		modules:  map[string]*object.Module{},
		packages: map[string]bool{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Local imports modules from the filesystem. A module "a.b" is found at
// <root>/a/b.py or <root>/a/b/__init__.py.
type Local struct {
	*loader
}

// NewLocal returns an importer searching the configured roots.
func NewLocal(opts ...Option) *Local {
	l := newLoader(opts)
	l.src = fileSource{roots: l.roots}
	return &Local{loader: l}
}

// Memory imports modules from in-memory sources keyed by dotted module
// name. A key "pkg" that is a prefix of another key "pkg.mod" is a package.
type Memory struct {
	*loader
}

// NewMemory returns an importer serving the given sources.
func NewMemory(sources map[string]string, opts ...Option) *Memory {
	l := newLoader(opts)
	l.src = memorySource(sources)
	return &Memory{loader: l}
}

// ResolveAndLoad resolves the specifier, loading parent packages first,
// and memoizes every module it loads.
func (l *loader) ResolveAndLoad(ctx context.Context, specifier string, requester string) (*object.Module, error) {
	name, err := l.resolveName(specifier, requester)
	if err != nil {
		return nil, err
	}
	return l.load(ctx, name)
}

// Loaded returns the names of the modules loaded so far.
func (l *loader) Loaded() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	names := make([]string, 0, len(l.modules))
	for name := range l.modules {
		names = append(names, name)
	}
	return names
}

func (l *loader) resolveName(specifier, requester string) (string, error) {
	rest := strings.TrimLeft(specifier, ".")
	level := len(specifier) - len(rest)
	if level == 0 {
		return specifier, nil
	}
	if requester == "" || requester == "__main__" {
		return "", object.Errorf("ImportError", "attempted relative import with no known parent package")
	}
	l.mutex.Lock()
	base := requester
	if !l.packages[requester] {
		base = parentName(requester)
	}
	l.mutex.Unlock()
	for i := 1; i < level; i++ {
		if base == "" {
			break
		}
		base = parentName(base)
	}
	if base == "" {
		return "", object.Errorf("ImportError", "attempted relative import beyond top-level package")
	}
	if rest == "" {
		return base, nil
	}
	return base + "." + rest, nil
}

func parentName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}

func (l *loader) load(ctx context.Context, name string) (*object.Module, error) {
	l.mutex.Lock()
	module, ok := l.modules[name]
	l.mutex.Unlock()
	if ok {
		return module, nil
	}
	var parent *object.Module
	if p := parentName(name); p != "" {
		var err error
		if parent, err = l.load(ctx, p); err != nil {
			return nil, err
		}
		// Loading the parent may have imported this module already
		l.mutex.Lock()
		module, ok = l.modules[name]
		l.mutex.Unlock()
		if ok {
			return module, nil
		}
	}
	path, text, isPackage, err := l.src.find(name)
	if err != nil {
		return nil, err
	}
	code, err := l.compile(ctx, path, text)
	if err != nil {
		return nil, err
	}
	exec, ok := GetExecutor(ctx)
	if !ok {
		return nil, object.Errorf("ImportError", "no executor is available to load module '%s'", name)
	}
	module = object.NewModule(name, path)
	pkg := parentName(name)
	if isPackage {
		pkg = name
		module.SetGlobal("__path__", object.NewList([]object.Object{object.NewStr(filepath.Dir(path))}))
	}
	module.SetGlobal("__package__", object.NewStr(pkg))

	// Register before executing so that circular imports see the
	// partially initialized module.
	l.mutex.Lock()
	l.modules[name] = module
	l.packages[name] = isPackage
	l.mutex.Unlock()

	l.logger.Debug().Str("module", name).Str("path", path).Msg("loading module")
	if err := exec(ctx, code, module); err != nil {
		l.mutex.Lock()
		delete(l.modules, name)
		delete(l.packages, name)
		l.mutex.Unlock()
		return nil, err
	}
	if parent != nil {
		parent.SetGlobal(name[strings.LastIndexByte(name, '.')+1:], module)
	}
	return module, nil
}

func (l *loader) compile(ctx context.Context, path, text string) (*bytecode.Code, error) {
	key := cache.Key(path, text)
	if l.cache != nil {
		code, ok, err := l.cache.Get(ctx, key)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("cache read failed")
		} else if ok {
			l.logger.Debug().Str("path", path).Msg("cache hit")
			return code, nil
		}
	}
	opts := append([]compiler.Option{compiler.WithFilename(path), compiler.WithLogger(l.logger)}, l.compilerOpts...)
	code, err := compiler.CompileModuleSource(text, opts...)
	if err != nil {
		return nil, syntaxException(err)
	}
	if l.cache != nil {
		if err := l.cache.Put(ctx, key, code); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("cache write failed")
		}
	}
	return code, nil
}

// syntaxException converts a compile-time error into a SyntaxError that
// the importing code can catch.
func syntaxException(err error) error {
	var fe errz.FormattableError
	if !stderrors.As(err, &fe) {
		return err
	}
	f := fe.ToFormatted()
	exc := object.Errorf("SyntaxError", "%s", f.Message)
	frame := exception.Frame{Function: "<module>", File: f.Filename, Line: f.Line}
	for _, line := range f.SourceLines {
		if line.IsMain {
			frame.Source = strings.TrimSpace(line.Text)
		}
	}
	exc.Push(frame)
	return exc
}

func notFound(name string) error {
	exc := object.Errorf("ModuleNotFoundError", "No module named '%s'", name)
	return exc
}

type fileSource struct {
	roots []string
}

func (s fileSource) find(name string) (string, string, bool, error) {
	rel := filepath.FromSlash(strings.ReplaceAll(name, ".", "/"))
	for _, root := range s.roots {
		candidates := []struct {
			path      string
			isPackage bool
		}{
			{filepath.Join(root, rel+".py"), false},
			{filepath.Join(root, rel, "__init__.py"), true},
		}
		for _, c := range candidates {
			data, err := os.ReadFile(c.path)
			if err == nil {
				return c.path, string(data), c.isPackage, nil
			}
			if !os.IsNotExist(err) {
				return "", "", false, object.Errorf("ImportError", "%s", fmt.Errorf("reading %s: %w", c.path, err).Error())
			}
		}
	}
	return "", "", false, notFound(name)
}

type memorySource map[string]string

func (s memorySource) find(name string) (string, string, bool, error) {
	text, ok := s[name]
	if !ok {
		return "", "", false, notFound(name)
	}
	isPackage := false
	for key := range s {
		if strings.HasPrefix(key, name+".") {
			isPackage = true
			break
		}
	}
	path := "<" + name + ">"
	return path, text, isPackage, nil
}
