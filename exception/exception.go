// Package exception models runtime exceptions: their type, message,
// traceback, explicit cause, implicit context and notes.
//
// Exceptions are shared by pointer. An exception may be the Context of
// several later exceptions, so code must never mutate an exception reached
// through Cause or Context.
package exception

import (
	"fmt"
	"slices"
)

// Frame is one entry in a traceback.
type Frame struct {
	Function string
	File     string
	Line     int
	Source   string
}

// String renders the frame the way a traceback shows it.
func (f Frame) String() string {
	s := fmt.Sprintf("  File %q, line %d, in %s\n", f.File, f.Line, f.Function)
	if f.Source != "" {
		s += "    " + f.Source + "\n"
	}
	return s
}

// Exception is a raised runtime exception.
type Exception struct {
	TypeName string
	Message  string
	// Traceback is ordered outermost call first; the last frame is where
	// the exception was raised.
	Traceback []Frame
	// Cause is set by "raise X from Y".
	Cause *Exception
	// Context is the exception that was being handled when this one was
	// raised.
	Context         *Exception
	SuppressContext bool
	Notes           []string
	// Ancestors holds the MRO names of a user-defined exception class,
	// starting with TypeName. It is empty for builtin types, which use the
	// static hierarchy.
	Ancestors []string
	// Value is the runtime object that carries this exception, if any.
	Value any
}

// New returns an exception of the given type.
func New(typeName, message string) *Exception {
	return &Exception{TypeName: typeName, Message: message}
}

// Newf returns an exception with a formatted message.
func Newf(typeName, format string, args ...any) *Exception {
	return New(typeName, fmt.Sprintf(format, args...))
}

// Error implements the error interface.
func (e *Exception) Error() string {
	if e.Message == "" {
		return e.TypeName
	}
	return e.TypeName + ": " + e.Message
}

// Unwrap returns the explicit cause, if any.
func (e *Exception) Unwrap() error {
	if e.Cause == nil {
		return nil
	}
	return e.Cause
}

// WithCause sets the explicit cause and suppresses the implicit context.
func (e *Exception) WithCause(cause *Exception) *Exception {
	e.Cause = cause
	e.SuppressContext = true
	return e
}

// WithContext sets the implicit context. An exception is never its own
// context.
func (e *Exception) WithContext(context *Exception) *Exception {
	if context != e {
		e.Context = context
	}
	return e
}

// SuppressContextOnly implements "raise X from None".
func (e *Exception) SuppressContextOnly() *Exception {
	e.Cause = nil
	e.SuppressContext = true
	return e
}

// AddNote appends a note shown after the message.
func (e *Exception) AddNote(note string) {
	e.Notes = append(e.Notes, note)
}

// Push appends a frame after the existing traceback entries.
func (e *Exception) Push(frame Frame) {
	e.Traceback = append(e.Traceback, frame)
}

// PushFront inserts a frame before the existing traceback entries.
func (e *Exception) PushFront(frame Frame) {
	e.Traceback = slices.Insert(e.Traceback, 0, frame)
}

// IsInstance reports whether the exception is of the named type or one of
// its subtypes.
func (e *Exception) IsInstance(typeName string) bool {
	if len(e.Ancestors) > 0 {
		return slices.Contains(e.Ancestors, typeName)
	}
	return IsSubtype(e.TypeName, typeName)
}
