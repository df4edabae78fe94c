// Package parser is used to generate the abstract syntax tree (AST) for a
// module.
//
// A parser is created by calling New() with a lexer as input. The parser
// should then be used only once, by calling Parse() to produce the AST.
// Parsing is all-or-nothing: the first lex or syntax error aborts the parse
// and no AST is returned.
package parser

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/lexer"
	"github.com/deepnoodle-ai/slither/internal/token"
)

type (
	prefixParseFn func() ast.Expr
	infixParseFn  func(ast.Expr) ast.Expr
)

// Parse the provided input as source code and return the module AST. This is
// shorthand way to create a Lexer and Parser and then call Parse on that.
func Parse(ctx context.Context, input string, options ...Option) (*ast.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := New(newLexer(input, options), options...)
	return p.Parse()
}

// ParseExpression parses input as a single expression, optionally followed
// by newlines. It is used for eval-mode compilation.
func ParseExpression(ctx context.Context, input string, options ...Option) (ast.Expr, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := New(newLexer(input, options), options...)
	return p.ParseExpression()
}

func newLexer(input string, options []Option) *lexer.Lexer {
	// Apply options to a probe so lexer errors in the first tokens carry
	// the filename.
	var probe Parser
	for _, opt := range options {
		opt(&probe)
	}
	return lexer.New(input, lexer.WithFilename(probe.filename))
}

// Option is a configuration function for a Parser.
type Option func(*Parser)

// WithFilename sets the file name reported in errors.
func WithFilename(filename string) Option {
	return func(p *Parser) {
		p.filename = filename
	}
}

// WithMaxDepth sets the maximum nesting depth for the parser.
// This prevents stack overflow on deeply nested input.
// The default is 500.
func WithMaxDepth(depth int) Option {
	return func(p *Parser) {
		p.maxDepth = depth
	}
}

// DefaultMaxDepth is the default maximum nesting depth for parsing.
const DefaultMaxDepth = 500

// Parser object
type Parser struct {
	// l is our lexer
	l *lexer.Lexer

	// prevToken holds the previous token, which we already processed.
	prevToken token.Token

	// curToken holds the current, not yet consumed, token.
	curToken token.Token

	// peekToken holds the token after curToken.
	peekToken token.Token

	// err holds the first error encountered. Once set, the token stream is
	// pinned at EOF so every parsing loop unwinds.
	err error

	// prefixParseFns holds a map of parsing methods for prefix-based syntax.
	prefixParseFns map[token.Type]prefixParseFn

	// infixParseFns holds a map of parsing methods for infix-based syntax.
	infixParseFns map[token.Type]infixParseFn

	// The filename of the input
	filename string

	// Current recursion depth
	depth int

	// Maximum allowed recursion depth
	maxDepth int
}

// New returns a Parser for the module provided by the given Lexer.
func New(l *lexer.Lexer, options ...Option) *Parser {
	p := &Parser{
		l:              l,
		prefixParseFns: map[token.Type]prefixParseFn{},
		infixParseFns:  map[token.Type]infixParseFn{},
		maxDepth:       DefaultMaxDepth,
	}
	for _, opt := range options {
		opt(p)
	}
	if p.filename != "" {
		l.SetFilename(p.filename)
	}

	// Prime the token pump
	p.nextToken()
	p.nextToken()

	// Register prefix functions
	p.registerPrefix(token.NAME, p.parseName)
	p.registerPrefix(token.INT, p.parseInt)
	p.registerPrefix(token.FLOAT, p.parseFloat)
	p.registerPrefix(token.STRING, p.parseStrings)
	p.registerPrefix(token.FSTRING, p.parseStrings)
	p.registerPrefix(token.BYTES, p.parseBytes)
	p.registerPrefix(token.NONE, p.parseKeywordConstant)
	p.registerPrefix(token.TRUE, p.parseKeywordConstant)
	p.registerPrefix(token.FALSE, p.parseKeywordConstant)
	p.registerPrefix(token.ELLIPSIS, p.parseKeywordConstant)
	p.registerPrefix(token.LPAREN, p.parseParen)
	p.registerPrefix(token.LBRACKET, p.parseListDisplay)
	p.registerPrefix(token.LBRACE, p.parseBraceDisplay)
	p.registerPrefix(token.MINUS, p.parseUnary)
	p.registerPrefix(token.PLUS, p.parseUnary)
	p.registerPrefix(token.TILDE, p.parseUnary)
	p.registerPrefix(token.NOT, p.parseNot)
	p.registerPrefix(token.LAMBDA, p.parseLambda)
	p.registerPrefix(token.AWAIT, p.unsupported)
	p.registerPrefix(token.YIELD, p.unsupported)

	// Register infix functions
	for _, typ := range []token.Type{
		token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.DOUBLE_SLASH,
		token.PERCENT, token.AT, token.PIPE, token.CARET, token.AMPERSAND,
		token.LT_LT, token.GT_GT,
	} {
		p.registerInfix(typ, p.parseBinOp)
	}
	p.registerInfix(token.POW, p.parsePower)
	p.registerInfix(token.AND, p.parseBoolOp)
	p.registerInfix(token.OR, p.parseBoolOp)
	for _, typ := range []token.Type{
		token.EQ, token.NOT_EQ, token.LT, token.LT_EQUALS, token.GT,
		token.GT_EQUALS, token.IN, token.NOT, token.IS,
	} {
		p.registerInfix(typ, p.parseCompare)
	}
	p.registerInfix(token.IF, p.parseIfExp)
	p.registerInfix(token.LPAREN, p.parseCall)
	p.registerInfix(token.LBRACKET, p.parseSubscript)
	p.registerInfix(token.PERIOD, p.parseAttribute)
	return p
}

// registerPrefix registers a function for handling a prefix-based expression.
func (p *Parser) registerPrefix(tokenType token.Type, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

// registerInfix registers a function for handling an infix-based expression.
func (p *Parser) registerInfix(tokenType token.Type, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

// Parse the module that is provided via the lexer.
func (p *Parser) Parse() (*ast.Module, error) {
	module := &ast.Module{}
	for p.err == nil && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(token.INDENT) {
			p.fail(p.curToken, errors.E1003, "unexpected indent")
			break
		}
		module.Body = append(module.Body, p.parseStatement()...)
	}
	if p.err != nil {
		return nil, p.err
	}
	return module, nil
}

// ParseExpression parses a single expression list followed by end of input.
func (p *Parser) ParseExpression() (ast.Expr, error) {
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	expr := p.parseTestList(false)
	for p.curTokenIs(token.NEWLINE) {
		p.nextToken()
	}
	if p.err == nil && !p.curTokenIs(token.EOF) {
		p.unexpected(p.curToken, "expression")
	}
	if p.err != nil {
		return nil, p.err
	}
	return expr, nil
}

// nextToken consumes curToken. Lexer errors become the parse error.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	if p.err != nil {
		return
	}
	tok, err := p.l.Next()
	if err != nil {
		p.err = err
		p.pinEOF()
		return
	}
	p.peekToken = tok
}

// pinEOF replaces the remaining token stream with EOF.
func (p *Parser) pinEOF() {
	eof := token.Token{Type: token.EOF, StartPosition: p.curToken.StartPosition}
	p.curToken = eof
	p.peekToken = eof
}

// fail records the first syntax error and stops the parse.
func (p *Parser) fail(tok token.Token, code errors.ErrorCode, format string, args ...any) {
	if p.err != nil {
		return
	}
	p.err = errors.NewSyntaxError(code, errors.SourceLocation{
		Filename: p.l.Filename(),
		Line:     tok.StartPosition.LineNumber(),
		Column:   tok.StartPosition.ColumnNumber(),
		Source:   p.l.GetLineText(tok),
	}, format, args...)
	p.pinEOF()
}

// failAt records an error at the start of a node.
func (p *Parser) failAt(pos token.Position, code errors.ErrorCode, format string, args ...any) {
	p.fail(token.Token{StartPosition: pos}, code, format, args...)
}

func (p *Parser) unexpected(tok token.Token, context string) {
	switch tok.Type {
	case token.EOF:
		p.fail(tok, errors.E1007, "unexpected end of input while parsing %s", context)
	case token.INDENT:
		p.fail(tok, errors.E1003, "unexpected indent")
	case token.DEDENT:
		p.fail(tok, errors.E1003, "unexpected unindent")
	case token.NEWLINE:
		p.fail(tok, errors.E1001, "unexpected end of line while parsing %s", context)
	default:
		p.fail(tok, errors.E1001, "invalid syntax: unexpected %s while parsing %s", describeToken(tok), context)
	}
}

// expect consumes curToken if it has the given type and reports an error
// otherwise.
func (p *Parser) expect(t token.Type, context string) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	if p.err == nil {
		if p.curToken.Type == token.NEWLINE || p.curToken.Type == token.EOF {
			p.fail(p.curToken, errors.E1001, "expected '%s' while parsing %s", t, context)
		} else {
			p.fail(p.curToken, errors.E1001, "expected '%s' while parsing %s, got %s", t, context, describeToken(p.curToken))
		}
	}
	return false
}

// expectName consumes a NAME token and returns its text.
func (p *Parser) expectName(context string) (string, token.Position, bool) {
	tok := p.curToken
	if tok.Type != token.NAME {
		if p.err == nil {
			if token.IsKeyword(tok.Literal) {
				p.fail(tok, errors.E1006, "invalid syntax: '%s' is a keyword and cannot be used as a name", tok.Literal)
			} else {
				p.fail(tok, errors.E1006, "expected a name while parsing %s, got %s", context, describeToken(tok))
			}
		}
		return "", tok.StartPosition, false
	}
	p.nextToken()
	return tok.Literal, tok.StartPosition, true
}

// enter tracks recursion depth. The returned func must be deferred.
func (p *Parser) enter() (func(), bool) {
	p.depth++
	if p.depth > p.maxDepth {
		p.fail(p.curToken, errors.E1009, "maximum nesting depth exceeded")
		return func() { p.depth-- }, false
	}
	return func() { p.depth-- }, true
}

// curTokenIs returns true if the current token has the given type.
func (p *Parser) curTokenIs(t token.Type) bool {
	return p.curToken.Type == t
}

// peekTokenIs returns true if the next token has the given type.
func (p *Parser) peekTokenIs(t token.Type) bool {
	return p.peekToken.Type == t
}

func describeToken(tok token.Token) string {
	switch tok.Type {
	case token.NAME:
		return fmt.Sprintf("name '%s'", tok.Literal)
	case token.INT, token.FLOAT:
		return fmt.Sprintf("number '%s'", tok.Literal)
	case token.STRING, token.FSTRING, token.BYTES:
		return "string literal"
	case token.NEWLINE:
		return "end of line"
	case token.EOF:
		return "end of input"
	case token.INDENT:
		return "indent"
	case token.DEDENT:
		return "unindent"
	}
	if token.IsKeyword(string(tok.Type)) {
		return fmt.Sprintf("keyword '%s'", tok.Type)
	}
	return fmt.Sprintf("'%s'", tok.Type)
}
