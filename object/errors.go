package object

import (
	"context"
	"errors"
	"slices"

	"github.com/deepnoodle-ai/slither/exception"
)

// Errorf returns an exception of the named builtin type.
func Errorf(typeName, format string, args ...any) *exception.Exception {
	return exception.Newf(typeName, format, args...)
}

func TypeErrorf(format string, args ...any) *exception.Exception {
	return Errorf("TypeError", format, args...)
}

func ValueErrorf(format string, args ...any) *exception.Exception {
	return Errorf("ValueError", format, args...)
}

func AttributeErrorf(format string, args ...any) *exception.Exception {
	return Errorf("AttributeError", format, args...)
}

func IndexErrorf(format string, args ...any) *exception.Exception {
	return Errorf("IndexError", format, args...)
}

func NameErrorf(format string, args ...any) *exception.Exception {
	return Errorf("NameError", format, args...)
}

func RuntimeErrorf(format string, args ...any) *exception.Exception {
	return Errorf("RuntimeError", format, args...)
}

func OverflowErrorf(format string, args ...any) *exception.Exception {
	return Errorf("OverflowError", format, args...)
}

func ZeroDivisionErrorf(format string, args ...any) *exception.Exception {
	return Errorf("ZeroDivisionError", format, args...)
}

// KeyError returns a KeyError whose message is the repr of key.
func KeyError(key Object) *exception.Exception {
	exc := exception.New("KeyError", key.Inspect())
	exc.Value = newExceptionInstance(exceptionClass("KeyError"), exc, []Object{key})
	return exc
}

// StopIteration returns a StopIteration exception.
func StopIteration() *exception.Exception {
	return exception.New("StopIteration", "")
}

// IsStopIteration reports whether err is a StopIteration exception.
func IsStopIteration(err error) bool {
	var exc *exception.Exception
	return errors.As(err, &exc) && exc.IsInstance("StopIteration")
}

// AsException returns the exception carried by err. Go errors that are not
// exceptions are reported as SystemError.
func AsException(err error) *exception.Exception {
	var exc *exception.Exception
	if errors.As(err, &exc) {
		return exc
	}
	return exception.New("SystemError", err.Error())
}

// ExceptionValue returns the instance carrying exc, creating one for
// exceptions raised by host code.
func ExceptionValue(exc *exception.Exception) *Instance {
	if inst, ok := exc.Value.(*Instance); ok {
		return inst
	}
	var args []Object
	if exc.Message != "" {
		args = []Object{NewStr(exc.Message)}
	}
	return newExceptionInstance(exceptionClass(exc.TypeName), exc, args)
}

// NewException creates an instance of an exception class with args and
// returns the exception it carries.
func NewException(class *Class, args ...Object) (*exception.Exception, error) {
	if !class.IsSubclass(BaseExceptionClass) {
		return nil, TypeErrorf("exceptions must derive from BaseException")
	}
	exc := &exception.Exception{TypeName: class.Name()}
	newExceptionInstance(class, exc, args)
	return exc, nil
}

func newExceptionInstance(class *Class, exc *exception.Exception, args []Object) *Instance {
	inst := NewInstance(class)
	inst.exc = exc
	exc.Value = inst
	if !exception.IsBuiltin(class.Name()) {
		exc.Ancestors = class.MRONames()
	}
	message := exc.Message
	inst.setArgs(args)
	if message != "" {
		exc.Message = message
	}
	return inst
}

// setArgs stores the exception arguments and derives the message from them.
func (i *Instance) setArgs(args []Object) {
	i.args = NewTuple(args)
	i.exc.Message = messageFromArgs(i.args)
	if len(args) == 1 && i.class.IsSubclass(exceptionClass("KeyError")) {
		i.exc.Message = args[0].Inspect()
	}
}

func messageFromArgs(args *Tuple) string {
	switch args.Len() {
	case 0:
		return ""
	case 1:
		if s, ok := args.items[0].(*Str); ok {
			return s.value
		}
		return args.items[0].Inspect()
	default:
		return args.Inspect()
	}
}

// Traceback renders the frames of exc as a tuple of (file, line, function)
// tuples, or None when there are none.
func Traceback(exc *exception.Exception) Object {
	if len(exc.Traceback) == 0 {
		return None
	}
	frames := make([]Object, len(exc.Traceback))
	for i, f := range exc.Traceback {
		frames[i] = NewTuple([]Object{NewStr(f.File), NewInt(int64(f.Line)), NewStr(f.Function)})
	}
	return NewTuple(frames)
}

func exceptionAttr(inst *Instance, name string) (Object, bool) {
	exc := inst.exc
	switch name {
	case "args":
		return inst.args, true
	case "__cause__":
		if exc.Cause != nil {
			return ExceptionValue(exc.Cause), true
		}
		return None, true
	case "__context__":
		if exc.Context != nil {
			return ExceptionValue(exc.Context), true
		}
		return None, true
	case "__suppress_context__":
		return NewBool(exc.SuppressContext), true
	case "__traceback__":
		return Traceback(exc), true
	case "__notes__":
		if len(exc.Notes) == 0 {
			return nil, false
		}
		notes := make([]Object, len(exc.Notes))
		for i, n := range exc.Notes {
			notes[i] = NewStr(n)
		}
		return NewList(notes), true
	case "add_note":
		return NewBuiltin("add_note", func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
			if len(args) != 1 {
				return nil, TypeErrorf("add_note() takes exactly one argument (%d given)", len(args))
			}
			note, ok := args[0].(*Str)
			if !ok {
				return nil, TypeErrorf("note must be a str, not '%s'", TypeName(args[0]))
			}
			exc.AddNote(note.value)
			return None, nil
		}), true
	case "with_traceback":
		return NewBuiltin("with_traceback", func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
			return inst, nil
		}), true
	}
	return nil, false
}

func setExceptionAttr(inst *Instance, name string, value Object) (bool, error) {
	exc := inst.exc
	switch name {
	case "args":
		items, err := collect(value)
		if err != nil {
			return true, err
		}
		inst.setArgs(slices.Clone(items))
	case "__cause__":
		if value == None {
			exc.Cause = nil
			return true, nil
		}
		cause, ok := value.(*Instance)
		if !ok || cause.exc == nil {
			return true, TypeErrorf("exception cause must be None or derive from BaseException")
		}
		exc.WithCause(cause.exc)
	case "__context__":
		if value == None {
			exc.Context = nil
			return true, nil
		}
		ctxInst, ok := value.(*Instance)
		if !ok || ctxInst.exc == nil {
			return true, TypeErrorf("exception context must be None or derive from BaseException")
		}
		exc.WithContext(ctxInst.exc)
	case "__suppress_context__":
		exc.SuppressContext = value.IsTruthy()
	default:
		return false, nil
	}
	return true, nil
}

// collect returns the items of a list or tuple without running user code.
func collect(obj Object) ([]Object, error) {
	switch obj := obj.(type) {
	case *List:
		return obj.items, nil
	case *Tuple:
		return obj.items, nil
	}
	return nil, TypeErrorf("expected a list or tuple, got '%s'", TypeName(obj))
}

func errWrongArgs(name string, want, got int) error {
	plural := "s"
	if want == 1 {
		plural = ""
	}
	return TypeErrorf("%s() takes exactly %d argument%s (%d given)", name, want, plural, got)
}
