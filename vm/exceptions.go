package vm

import (
	"context"
	"errors"
	"strings"

	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/object"
)

// reraised marks an exception propagated by a bare raise or by the end of a
// finally or with handler. It gains no traceback entry.
type reraised struct {
	exc *exception.Exception
}

func (r *reraised) Error() string { return r.exc.Error() }
func (r *reraised) Unwrap() error { return r.exc }

// prepareException converts err to an exception and records the current
// frame in its traceback. The raising frame appends the first entry; each
// frame the exception unwinds into prepends its call site.
func (vm *VirtualMachine) prepareException(f *frame, err error) *exception.Exception {
	var r *reraised
	if errors.As(err, &r) {
		return r.exc
	}
	exc := object.AsException(err)
	if exc.Context == nil && vm.active != nil && vm.active != exc {
		exc.WithContext(vm.active)
	}
	entry := f.tracebackEntry()
	if len(exc.Traceback) == 0 {
		exc.Push(entry)
	} else {
		exc.PushFront(entry)
	}
	return exc
}

// handleException unwinds the block stack to the innermost handler and
// enters it with the exception on the value stack. It reports false when
// the frame has no handler left.
func (vm *VirtualMachine) handleException(f *frame, exc *exception.Exception) bool {
	for {
		b, ok := f.popBlock()
		if !ok {
			return false
		}
		if b.kind == exceptHandler {
			vm.active = b.prev
			continue
		}
		f.truncate(b.level)
		f.pushBlock(block{kind: exceptHandler, prev: vm.active})
		vm.active = exc
		f.push(object.ExceptionValue(exc))
		f.ip = b.handler
		return true
	}
}

// raise implements the raise statement. argc is 0 for a bare raise, 1 for
// "raise X" and 2 for "raise X from Y".
func (vm *VirtualMachine) raise(ctx context.Context, f *frame, argc int) error {
	if argc == 0 {
		if vm.active == nil {
			return object.RuntimeErrorf("No active exception to reraise")
		}
		return &reraised{exc: vm.active}
	}
	var cause object.Object
	if argc == 2 {
		cause = f.pop()
	}
	exc, err := exceptionFrom(ctx, f.pop())
	if err != nil {
		return err
	}
	if argc == 2 {
		if cause == object.None {
			exc.SuppressContextOnly()
		} else {
			c, err := exceptionFrom(ctx, cause)
			if err != nil {
				return object.TypeErrorf("exception causes must derive from BaseException")
			}
			exc.WithCause(c)
		}
	}
	return exc
}

func (vm *VirtualMachine) reraise(value object.Object) error {
	if inst, ok := value.(*object.Instance); ok && inst.Exception() != nil {
		return &reraised{exc: inst.Exception()}
	}
	return object.Errorf("SystemError", "reraise of a non-exception '%s'", object.TypeName(value))
}

// exceptionFrom returns the exception carried by an exception instance, or
// raised by instantiating an exception class without arguments.
func exceptionFrom(ctx context.Context, value object.Object) (*exception.Exception, error) {
	switch v := value.(type) {
	case *object.Class:
		if v.IsSubclass(object.BaseExceptionClass) {
			inst, err := object.Construct(ctx, v, nil, nil)
			if err != nil {
				return nil, err
			}
			if inst, ok := inst.(*object.Instance); ok && inst.Exception() != nil {
				return inst.Exception(), nil
			}
		}
	case *object.Instance:
		if exc := v.Exception(); exc != nil {
			return exc, nil
		}
	}
	return nil, object.TypeErrorf("exceptions must derive from BaseException")
}

// exceptionMatches implements the test of an except clause.
func exceptionMatches(value, typ object.Object) (bool, error) {
	switch t := typ.(type) {
	case *object.Class:
		if !t.IsSubclass(object.BaseExceptionClass) {
			break
		}
		return object.IsInstance(value, t), nil
	case *object.Tuple:
		for _, item := range t.Items() {
			match, err := exceptionMatches(value, item)
			if err != nil || match {
				return match, err
			}
		}
		return false, nil
	}
	return false, object.TypeErrorf("catching classes that do not inherit from BaseException is not allowed")
}

// setupWith calls __enter__ on the context manager and protects the block
// with its bound __exit__, which stays on the stack below the block.
func (vm *VirtualMachine) setupWith(ctx context.Context, f *frame, handler int) error {
	mgr := f.pop()
	enter, err := contextMethod(ctx, mgr, "__enter__")
	if err != nil {
		return err
	}
	exit, err := contextMethod(ctx, mgr, "__exit__")
	if err != nil {
		return err
	}
	result, err := object.Call(ctx, enter, nil, nil)
	if err != nil {
		return err
	}
	f.push(exit)
	f.pushBlock(block{kind: setupWith, handler: handler, level: len(f.stack)})
	f.push(result)
	return nil
}

func contextMethod(ctx context.Context, mgr object.Object, name string) (object.Object, error) {
	method, err := object.GetAttribute(ctx, mgr, name)
	if err == nil {
		return method, nil
	}
	if object.AsException(err).IsInstance("AttributeError") {
		return nil, object.TypeErrorf("'%s' object does not support the context manager protocol", object.TypeName(mgr))
	}
	return nil, err
}

// withExceptStart calls __exit__ with the exception being handled. The
// stack holds the exit method and the exception; the result is pushed.
func (vm *VirtualMachine) withExceptStart(ctx context.Context, f *frame) error {
	n := len(f.stack)
	value := f.stack[n-1]
	exit := f.stack[n-2]
	inst, ok := value.(*object.Instance)
	if !ok || inst.Exception() == nil {
		return object.Errorf("SystemError", "with handler entered without an exception")
	}
	tb := object.Traceback(inst.Exception())
	result, err := object.Call(ctx, exit, []object.Object{inst.Class(), inst, tb}, nil)
	if err != nil {
		return err
	}
	f.push(result)
	return nil
}

func trimSource(line string) string {
	return strings.TrimSpace(line)
}
