package object

import (
	"context"
	"io"
	"os"
)

type contextKey string

// CallFunc calls a bytecode function. The VM installs one in the context so
// that builtins and dunder dispatch can run user code.
type CallFunc func(ctx context.Context, fn *Function, args []Object, kwargs *Dict) (Object, error)

const (
	callFuncKey = contextKey("slither:call")
	outputKey   = contextKey("slither:output")
	classesKey  = contextKey("slither:classes")
)

// WithCallFunc adds a CallFunc to the context.
func WithCallFunc(ctx context.Context, fn CallFunc) context.Context {
	return context.WithValue(ctx, callFuncKey, fn)
}

// GetCallFunc returns the CallFunc from the context, if it exists.
func GetCallFunc(ctx context.Context) (CallFunc, bool) {
	if fn, ok := ctx.Value(callFuncKey).(CallFunc); ok {
		if fn != nil {
			return fn, ok
		}
	}
	return nil, false
}

// WithOutput sets the writer used by print.
func WithOutput(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, outputKey, w)
}

// GetOutput returns the writer used by print, defaulting to stdout.
func GetOutput(ctx context.Context) io.Writer {
	if w, ok := ctx.Value(outputKey).(io.Writer); ok && w != nil {
		return w
	}
	return os.Stdout
}

// WithClassTable adds the class table of the running VM to the context.
func WithClassTable(ctx context.Context, table *ClassTable) context.Context {
	return context.WithValue(ctx, classesKey, table)
}

// GetClassTable returns the class table from the context, if it exists.
func GetClassTable(ctx context.Context) (*ClassTable, bool) {
	table, ok := ctx.Value(classesKey).(*ClassTable)
	return table, ok && table != nil
}
