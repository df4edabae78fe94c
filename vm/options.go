package vm

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/slither/importer"
	"github.com/deepnoodle-ai/slither/object"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithGlobals provides global variables with the given names. Values are
// converted with object.FromGo when the VM is created.
func WithGlobals(globals map[string]any) Option {
	return func(vm *VirtualMachine) {
		for name, value := range globals {
			vm.inputGlobals[name] = value
		}
	}
}

// WithLogger sets the logger used for run, import and exception events.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithImporter sets the importer used by import statements.
func WithImporter(imp importer.Importer) Option {
	return func(vm *VirtualMachine) {
		vm.importer = imp
	}
}

// WithModule makes a host module importable by name. Host modules take
// precedence over the importer.
func WithModule(module *object.Module) Option {
	return func(vm *VirtualMachine) {
		vm.modules[module.Name()] = module
	}
}

// WithModuleName sets the __name__ of the main module. The default is
// "__main__".
func WithModuleName(name string) Option {
	return func(vm *VirtualMachine) {
		vm.moduleName = name
	}
}

// WithOutput sets the writer used by print.
func WithOutput(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.output = w
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of
// 0 disables the check. The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithMaxFrameDepth sets the call depth at which RecursionError is raised.
func WithMaxFrameDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		vm.maxFrameDepth = depth
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps, function calls,
// and function returns. Returning false from any observer method halts
// execution with ErrHalted.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}
