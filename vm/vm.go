// Package vm provides a VirtualMachine that executes compiled Slither code.
//
// Each call runs in its own frame with a private value stack and block
// stack. Frames are evaluated recursively, so a call from a builtin back
// into bytecode (a sort key, a dunder method) uses the same path as a call
// instruction.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/slither/builtins"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/importer"
	"github.com/deepnoodle-ai/slither/object"
)

const (
	// DefaultMaxFrameDepth is the call depth at which RecursionError is
	// raised.
	DefaultMaxFrameDepth = 1000

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000

	// MainModule is the default name of the module run by Run.
	MainModule = "__main__"
)

var (
	// ErrGlobalNotFound is returned by Get for an unknown global.
	ErrGlobalNotFound = errors.New("global not found")

	// ErrHalted is returned when an observer stops execution.
	ErrHalted = errors.New("execution halted by observer")

	errRunning = errors.New("vm is already running")
)

// VirtualMachine executes code objects against a main module.
type VirtualMachine struct {
	main         *bytecode.Code
	module       *object.Module
	moduleName   string
	builtins     map[string]object.Object
	classes      *object.ClassTable
	importer     importer.Importer
	modules      map[string]*object.Module
	inputGlobals map[string]any
	loadedCode   map[*bytecode.Code]*code
	logger       zerolog.Logger
	output       io.Writer
	observer     Observer
	observerCfg  ObserverConfig
	stepper      *stepper

	contextCheckInterval int
	instructionCount     int
	maxFrameDepth        int
	depth                int

	// active is the exception currently being handled, if any
	active *exception.Exception

	runID    uuid.UUID
	running  bool
	runMutex sync.Mutex
}

// New creates a Virtual Machine that runs main. main may be nil when the VM
// is only used through RunCode or Call.
func New(main *bytecode.Code, options ...Option) (*VirtualMachine, error) {
	vm := &VirtualMachine{
		main:                 main,
		moduleName:           MainModule,
		modules:              map[string]*object.Module{},
		inputGlobals:         map[string]any{},
		loadedCode:           map[*bytecode.Code]*code{},
		logger:               zerolog.Nop(),
		contextCheckInterval: DefaultContextCheckInterval,
		maxFrameDepth:        DefaultMaxFrameDepth,
		classes:              object.NewClassTable(),
	}
	for _, opt := range options {
		opt(vm)
	}
	path := "<string>"
	if main != nil && main.Filename() != "" {
		path = main.Filename()
	}
	vm.module = object.NewModule(vm.moduleName, path)
	for name, value := range vm.inputGlobals {
		obj, err := object.FromGo(value)
		if err != nil {
			return nil, fmt.Errorf("invalid global %q: %w", name, err)
		}
		vm.module.SetGlobal(name, obj)
		// Modules given as globals are also importable
		if module, ok := obj.(*object.Module); ok {
			vm.modules[name] = module
		}
	}
	vm.builtins = builtins.Builtins()
	vm.builtins["__build_class__"] = object.NewBuiltin("__build_class__", vm.buildClass)
	if vm.observer != nil {
		vm.observerCfg = NormalizeConfig(vm.observer.Config())
		vm.stepper = &stepper{cfg: vm.observerCfg}
	}
	return vm, nil
}

// Module returns the main module, whose dictionary holds the globals.
func (vm *VirtualMachine) Module() *object.Module {
	return vm.module
}

// Classes returns the class table of this VM.
func (vm *VirtualMachine) Classes() *object.ClassTable {
	return vm.classes
}

// RunID returns the identifier of the most recent run.
func (vm *VirtualMachine) RunID() string {
	return vm.runID.String()
}

// Run executes the main code. An uncaught exception is returned as an
// *exception.Exception.
func (vm *VirtualMachine) Run(ctx context.Context) error {
	if vm.main == nil {
		return fmt.Errorf("no main code available")
	}
	_, err := vm.RunCode(ctx, vm.main)
	return err
}

// RunCode executes c in the main module and returns the value it returns.
// Module code returns None; code compiled from an expression returns the
// value of the expression. Globals persist across calls.
func (vm *VirtualMachine) RunCode(ctx context.Context, c *bytecode.Code) (result object.Object, err error) {
	if err := vm.start(); err != nil {
		return nil, err
	}
	defer vm.stop(&err)
	log := vm.logger.With().Str("run_id", vm.runID.String()).Logger()
	log.Debug().Str("code", c.Name()).Str("file", c.Filename()).Msg("run started")

	ctx = vm.initContext(ctx)
	f := newFrame(vm.loadCode(c), vm.module, vm.module.Dict(), 0)
	result, err = vm.eval(ctx, f)
	if err != nil {
		var exc *exception.Exception
		if errors.As(err, &exc) {
			log.Debug().Str("type", exc.TypeName).Str("message", exc.Message).Msg("uncaught exception")
		} else {
			log.Debug().Err(err).Msg("run aborted")
		}
		return nil, err
	}
	log.Debug().Msg("run finished")
	return result, nil
}

// Call calls a callable object, typically a function read with Get, from
// the host.
func (vm *VirtualMachine) Call(ctx context.Context, fn object.Object, args ...object.Object) (result object.Object, err error) {
	if err := vm.start(); err != nil {
		return nil, err
	}
	defer vm.stop(&err)
	return object.Call(vm.initContext(ctx), fn, args, nil)
}

// Get returns a global variable of the main module.
func (vm *VirtualMachine) Get(name string) (object.Object, error) {
	if value, ok := vm.module.Global(name); ok {
		return value, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrGlobalNotFound, name)
}

// GlobalNames returns the names of the main module's globals in definition
// order.
func (vm *VirtualMachine) GlobalNames() []string {
	return vm.module.Dict().StrKeys()
}

func (vm *VirtualMachine) start() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return errRunning
	}
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("generating run id: %w", err)
	}
	vm.running = true
	vm.runID = id
	vm.depth = 0
	vm.active = nil
	vm.instructionCount = 0
	return nil
}

// stop clears the running flag and turns a panic into a SystemError.
func (vm *VirtualMachine) stop(err *error) {
	if r := recover(); r != nil {
		vm.logger.Error().Interface("panic", r).Str("run_id", vm.runID.String()).Msg("vm panic")
		*err = exception.Newf("SystemError", "internal error: %v", r)
	}
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// initContext installs the hooks that let builtins and the importer call
// back into this VM.
func (vm *VirtualMachine) initContext(ctx context.Context) context.Context {
	ctx = object.WithCallFunc(ctx, vm.callFunction)
	ctx = object.WithClassTable(ctx, vm.classes)
	if vm.output != nil {
		ctx = object.WithOutput(ctx, vm.output)
	}
	return importer.WithExecutor(ctx, vm.execModule)
}

// execModule runs a module body with the module's dictionary as its
// namespace. It is the Executor handed to the importer.
func (vm *VirtualMachine) execModule(ctx context.Context, c *bytecode.Code, module *object.Module) error {
	if vm.depth >= vm.maxFrameDepth {
		return object.Errorf("RecursionError", "maximum recursion depth exceeded while importing")
	}
	vm.depth++
	defer func() { vm.depth-- }()
	f := newFrame(vm.loadCode(c), module, module.Dict(), vm.depth)
	_, err := vm.eval(ctx, f)
	return err
}

// isFatal reports whether err stops execution without being visible to
// exception handlers.
func isFatal(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrHalted)
}
