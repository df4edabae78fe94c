package errors

// ErrorCode represents a unique identifier for error types.
// Codes are organized by category:
//   - E1xxx: Lex and syntax errors
//   - E2xxx: Compile errors
//   - E3xxx: Runtime errors
type ErrorCode string

const (
	// Lex and syntax errors (E1xxx)
	E1001 ErrorCode = "E1001" // Unexpected token
	E1002 ErrorCode = "E1002" // Unterminated string literal
	E1003 ErrorCode = "E1003" // Invalid syntax
	E1004 ErrorCode = "E1004" // Missing expression
	E1005 ErrorCode = "E1005" // Invalid assignment target
	E1006 ErrorCode = "E1006" // Expected identifier
	E1007 ErrorCode = "E1007" // Unclosed delimiter
	E1008 ErrorCode = "E1008" // Invalid number literal
	E1009 ErrorCode = "E1009" // Maximum nesting depth exceeded
	E1010 ErrorCode = "E1010" // Invalid escape sequence
	E1011 ErrorCode = "E1011" // Inconsistent indentation
	E1012 ErrorCode = "E1012" // Invalid character

	// Compile errors (E2xxx)
	E2003 ErrorCode = "E2003" // Invalid break statement
	E2004 ErrorCode = "E2004" // Invalid continue statement
	E2005 ErrorCode = "E2005" // Invalid return statement
	E2006 ErrorCode = "E2006" // Duplicate parameter name
	E2007 ErrorCode = "E2007" // Too many local variables
	E2008 ErrorCode = "E2008" // Too many constants
	E2009 ErrorCode = "E2009" // Too many names
	E2010 ErrorCode = "E2010" // Invalid assignment target
	E2011 ErrorCode = "E2011" // Inconsistent method resolution order
	E2012 ErrorCode = "E2012" // Unsupported feature
	E2013 ErrorCode = "E2013" // Invalid scope declaration

	// Runtime errors (E3xxx)
	E3001 ErrorCode = "E3001" // Uncaught exception
)

// codeDescriptions maps error codes to their short descriptions.
var codeDescriptions = map[ErrorCode]string{
	E1001: "unexpected token",
	E1002: "unterminated string literal",
	E1003: "invalid syntax",
	E1004: "missing expression",
	E1005: "invalid assignment target",
	E1006: "expected identifier",
	E1007: "unclosed delimiter",
	E1008: "invalid number literal",
	E1009: "maximum nesting depth exceeded",
	E1010: "invalid escape sequence",
	E1011: "inconsistent indentation",
	E1012: "invalid character",

	E2003: "invalid break statement",
	E2004: "invalid continue statement",
	E2005: "invalid return statement",
	E2006: "duplicate parameter name",
	E2007: "too many local variables",
	E2008: "too many constants",
	E2009: "too many names",
	E2010: "invalid assignment target",
	E2011: "inconsistent method resolution order",
	E2012: "unsupported feature",
	E2013: "invalid scope declaration",

	E3001: "uncaught exception",
}

// Description returns the short description for an error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}

// String returns the error code as a string.
func (c ErrorCode) String() string {
	return string(c)
}

// Category returns the error category based on the code prefix.
func (c ErrorCode) Category() string {
	if len(c) < 2 {
		return "unknown"
	}
	switch c[1] {
	case '1':
		return "syntax"
	case '2':
		return "compile"
	case '3':
		return "runtime"
	default:
		return "unknown"
	}
}
