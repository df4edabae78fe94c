// Package token defines language keywords and tokens used when lexing source code.
package token

// Type describes the type of a token as a string.
type Type string

// Position points to a particular location in an input string.
type Position struct {
	Char      int    // byte offset within the file
	LineStart int    // byte offset of the start of the current line
	Line      int    // 0-indexed line number
	Column    int    // 0-indexed column number
	File      string // filename
}

// LineNumber returns the 1-indexed line number for this position in the input.
func (p Position) LineNumber() int {
	return p.Line + 1
}

// ColumnNumber returns the 1-indexed column number for this position in the input.
func (p Position) ColumnNumber() int {
	return p.Column + 1
}

// Advance returns a new Position advanced by n bytes.
// Note: This assumes the advance does not cross line boundaries.
func (p Position) Advance(n int) Position {
	return Position{
		Char:      p.Char + n,
		LineStart: p.LineStart,
		Line:      p.Line,
		Column:    p.Column + n,
		File:      p.File,
	}
}

// IsValid returns true if this position has been set.
func (p Position) IsValid() bool {
	return p.File != "" || p.Line > 0 || p.Column > 0 || p.Char > 0
}

// NoPos is the zero value Position, representing an invalid/unset position.
var NoPos = Position{}

// Token represents one token lexed from the input source code.
type Token struct {
	Type          Type
	Literal       string
	StartPosition Position
	EndPosition   Position
}

// Token types
const (
	ILLEGAL Type = "ILLEGAL"
	EOF     Type = "EOF"
	NEWLINE Type = "NEWLINE"
	INDENT  Type = "INDENT"
	DEDENT  Type = "DEDENT"

	NAME    Type = "NAME"
	INT     Type = "INT"
	FLOAT   Type = "FLOAT"
	STRING  Type = "STRING"
	BYTES   Type = "BYTES"
	FSTRING Type = "FSTRING"

	// Operators
	PLUS              Type = "+"
	MINUS             Type = "-"
	ASTERISK          Type = "*"
	SLASH             Type = "/"
	DOUBLE_SLASH      Type = "//"
	PERCENT           Type = "%"
	POW               Type = "**"
	AT                Type = "@"
	AMPERSAND         Type = "&"
	PIPE              Type = "|"
	CARET             Type = "^"
	TILDE             Type = "~"
	LT_LT             Type = "<<"
	GT_GT             Type = ">>"
	LT                Type = "<"
	GT                Type = ">"
	LT_EQUALS         Type = "<="
	GT_EQUALS         Type = ">="
	EQ                Type = "=="
	NOT_EQ            Type = "!="
	ASSIGN            Type = "="
	WALRUS            Type = ":="
	ARROW             Type = "->"
	PLUS_EQUALS       Type = "+="
	MINUS_EQUALS      Type = "-="
	ASTERISK_EQUALS   Type = "*="
	SLASH_EQUALS      Type = "/="
	DOUBLE_SLASH_EQ   Type = "//="
	PERCENT_EQUALS    Type = "%="
	POW_EQUALS        Type = "**="
	AT_EQUALS         Type = "@="
	AMPERSAND_EQUALS  Type = "&="
	PIPE_EQUALS       Type = "|="
	CARET_EQUALS      Type = "^="
	LT_LT_EQUALS      Type = "<<="
	GT_GT_EQUALS      Type = ">>="
	LPAREN            Type = "("
	RPAREN            Type = ")"
	LBRACKET          Type = "["
	RBRACKET          Type = "]"
	LBRACE            Type = "{"
	RBRACE            Type = "}"
	COMMA             Type = ","
	COLON             Type = ":"
	SEMICOLON         Type = ";"
	PERIOD            Type = "."
	ELLIPSIS          Type = "..."

	// Keywords
	FALSE    Type = "False"
	NONE     Type = "None"
	TRUE     Type = "True"
	AND      Type = "and"
	AS       Type = "as"
	ASSERT   Type = "assert"
	ASYNC    Type = "async"
	AWAIT    Type = "await"
	BREAK    Type = "break"
	CLASS    Type = "class"
	CONTINUE Type = "continue"
	DEF      Type = "def"
	DEL      Type = "del"
	ELIF     Type = "elif"
	ELSE     Type = "else"
	EXCEPT   Type = "except"
	FINALLY  Type = "finally"
	FOR      Type = "for"
	FROM     Type = "from"
	GLOBAL   Type = "global"
	IF       Type = "if"
	IMPORT   Type = "import"
	IN       Type = "in"
	IS       Type = "is"
	LAMBDA   Type = "lambda"
	NONLOCAL Type = "nonlocal"
	NOT      Type = "not"
	OR       Type = "or"
	PASS     Type = "pass"
	RAISE    Type = "raise"
	RETURN   Type = "return"
	TRY      Type = "try"
	WHILE    Type = "while"
	WITH     Type = "with"
	YIELD    Type = "yield"
)

// Reserved keywords
var keywords = map[string]Type{
	"False":    FALSE,
	"None":     NONE,
	"True":     TRUE,
	"and":      AND,
	"as":       AS,
	"assert":   ASSERT,
	"async":    ASYNC,
	"await":    AWAIT,
	"break":    BREAK,
	"class":    CLASS,
	"continue": CONTINUE,
	"def":      DEF,
	"del":      DEL,
	"elif":     ELIF,
	"else":     ELSE,
	"except":   EXCEPT,
	"finally":  FINALLY,
	"for":      FOR,
	"from":     FROM,
	"global":   GLOBAL,
	"if":       IF,
	"import":   IMPORT,
	"in":       IN,
	"is":       IS,
	"lambda":   LAMBDA,
	"nonlocal": NONLOCAL,
	"not":      NOT,
	"or":       OR,
	"pass":     PASS,
	"raise":    RAISE,
	"return":   RETURN,
	"try":      TRY,
	"while":    WHILE,
	"with":     WITH,
	"yield":    YIELD,
}

// LookupIdentifier returns the keyword type for the identifier, or NAME if the
// identifier is not a keyword.
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return NAME
}

// IsKeyword returns true if the given name is a reserved keyword.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}

// Keywords returns the reserved keywords in no particular order.
func Keywords() []string {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	return names
}

// operators lists every operator spelling, grouped by length so the lexer
// can perform longest-match scanning.
var operators = [3]map[string]Type{
	{
		"+": PLUS, "-": MINUS, "*": ASTERISK, "/": SLASH, "%": PERCENT,
		"@": AT, "&": AMPERSAND, "|": PIPE, "^": CARET, "~": TILDE,
		"<": LT, ">": GT, "=": ASSIGN, "(": LPAREN, ")": RPAREN,
		"[": LBRACKET, "]": RBRACKET, "{": LBRACE, "}": RBRACE,
		",": COMMA, ":": COLON, ";": SEMICOLON, ".": PERIOD,
	},
	{
		"//": DOUBLE_SLASH, "**": POW, "<<": LT_LT, ">>": GT_GT,
		"<=": LT_EQUALS, ">=": GT_EQUALS, "==": EQ, "!=": NOT_EQ,
		":=": WALRUS, "->": ARROW, "+=": PLUS_EQUALS, "-=": MINUS_EQUALS,
		"*=": ASTERISK_EQUALS, "/=": SLASH_EQUALS, "%=": PERCENT_EQUALS,
		"@=": AT_EQUALS, "&=": AMPERSAND_EQUALS, "|=": PIPE_EQUALS,
		"^=": CARET_EQUALS,
	},
	{
		"//=": DOUBLE_SLASH_EQ, "**=": POW_EQUALS, "<<=": LT_LT_EQUALS,
		">>=": GT_GT_EQUALS, "...": ELLIPSIS,
	},
}

// LookupOperator returns the operator type for the given spelling. The
// spelling must be 1 to 3 bytes long.
func LookupOperator(s string) (Type, bool) {
	if len(s) < 1 || len(s) > 3 {
		return "", false
	}
	t, ok := operators[len(s)-1][s]
	return t, ok
}

// AugmentedBase maps an augmented assignment operator to its binary operator.
var AugmentedBase = map[Type]Type{
	PLUS_EQUALS:      PLUS,
	MINUS_EQUALS:     MINUS,
	ASTERISK_EQUALS:  ASTERISK,
	SLASH_EQUALS:     SLASH,
	DOUBLE_SLASH_EQ:  DOUBLE_SLASH,
	PERCENT_EQUALS:   PERCENT,
	POW_EQUALS:       POW,
	AT_EQUALS:        AT,
	AMPERSAND_EQUALS: AMPERSAND,
	PIPE_EQUALS:      PIPE,
	CARET_EQUALS:     CARET,
	LT_LT_EQUALS:     LT_LT,
	GT_GT_EQUALS:     GT_GT,
}
