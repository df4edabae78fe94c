package errors

import (
	"fmt"
)

// CompileError indicates a well-formed program that cannot be compiled, such
// as a class hierarchy without a consistent method resolution order.
type CompileError struct {
	SourceError
	Suggestions []Suggestion
}

// NewCompileError returns a CompileError.
func NewCompileError(code ErrorCode, loc SourceLocation, format string, args ...any) *CompileError {
	return &CompileError{SourceError: SourceError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Filename:   loc.Filename,
		Line:       loc.Line,
		Column:     loc.Column,
		SourceLine: loc.Source,
	}}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return e.describe("compile error")
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *CompileError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *CompileError) ToFormatted() *FormattedError {
	fe := e.toFormatted("compile error")
	if len(e.Suggestions) > 0 {
		fe.Hint = FormatSuggestions(e.Suggestions)
	}
	return fe
}
