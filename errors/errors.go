// Package errors defines the error types produced while lexing, parsing and
// compiling source code, along with a formatter that renders them with
// source context.
package errors

import (
	"fmt"
	"strings"
)

// SourceLocation represents a position in source code.
type SourceLocation struct {
	Filename string
	Line     int    // 1-based line number
	Column   int    // 1-based column number
	Source   string // The line of source code
}

// String returns a formatted string representation of the source location.
func (s SourceLocation) String() string {
	if s.Filename != "" {
		return fmt.Sprintf("%s:%d:%d", s.Filename, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsZero returns true if the location has not been set.
func (s SourceLocation) IsZero() bool {
	return s.Line == 0 && s.Column == 0
}

// FriendlyError is an interface for errors that have a human friendly message
// in addition to a the lower level default error message.
type FriendlyError interface {
	Error() string
	FriendlyErrorMessage() string
}

// FormattableError is an interface for errors that can be formatted with
// the enhanced error formatter (with colors, source context, etc).
type FormattableError interface {
	Error() string
	ToFormatted() *FormattedError
}

// SourceError holds the fields shared by lex, syntax and compile errors.
type SourceError struct {
	Code       ErrorCode
	Message    string
	Filename   string
	Line       int // 1-based
	Column     int // 1-based
	EndColumn  int
	SourceLine string
	Hint       string
	Note       string
}

// Location returns the error location.
func (e *SourceError) Location() SourceLocation {
	return SourceLocation{
		Filename: e.Filename,
		Line:     e.Line,
		Column:   e.Column,
		Source:   e.SourceLine,
	}
}

func (e *SourceError) describe(kind string) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Filename != "" || e.Line > 0 {
		b.WriteString(" (")
		b.WriteString(e.Location().String())
		b.WriteString(")")
	}
	return b.String()
}

func (e *SourceError) toFormatted(kind string) *FormattedError {
	fe := &FormattedError{
		Code:      e.Code,
		Kind:      kind,
		Message:   e.Message,
		Filename:  e.Filename,
		Line:      e.Line,
		Column:    e.Column,
		EndColumn: e.EndColumn,
		Hint:      e.Hint,
		Note:      e.Note,
	}
	if e.SourceLine != "" {
		fe.SourceLines = []SourceLineEntry{
			{Number: e.Line, Text: e.SourceLine, IsMain: true},
		}
	}
	return fe
}

// LexError indicates the tokenizer could not produce the next token, for
// example because of inconsistent indentation or an unterminated string.
type LexError struct {
	SourceError
}

// NewLexError returns a LexError.
func NewLexError(code ErrorCode, loc SourceLocation, format string, args ...any) *LexError {
	return &LexError{SourceError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Filename:   loc.Filename,
		Line:       loc.Line,
		Column:     loc.Column,
		SourceLine: loc.Source,
	}}
}

func (e *LexError) Error() string {
	return e.describe("lex error")
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *LexError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *LexError) ToFormatted() *FormattedError {
	return e.toFormatted("lex error")
}

// SyntaxError indicates the parser found an unexpected token or structure.
type SyntaxError struct {
	SourceError
}

// NewSyntaxError returns a SyntaxError.
func NewSyntaxError(code ErrorCode, loc SourceLocation, format string, args ...any) *SyntaxError {
	return &SyntaxError{SourceError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		Filename:   loc.Filename,
		Line:       loc.Line,
		Column:     loc.Column,
		SourceLine: loc.Source,
	}}
}

func (e *SyntaxError) Error() string {
	return e.describe("syntax error")
}

// FriendlyErrorMessage returns a human-friendly error message.
func (e *SyntaxError) FriendlyErrorMessage() string {
	return NewFormatter(false).Format(e.ToFormatted())
}

// ToFormatted converts to the FormattedError type for display.
func (e *SyntaxError) ToFormatted() *FormattedError {
	return e.toFormatted("syntax error")
}
