// Package lexer converts source code into a stream of tokens, synthesizing
// INDENT and DEDENT tokens from leading whitespace.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
)

// tabSize is the column multiple a tab advances indentation to.
const tabSize = 8

// Lexer is used to tokenize source code. Call Next() repeatedly to read
// tokens until EOF is returned.
type Lexer struct {
	input    string
	filename string

	pos       int // byte offset of the next unread character
	line      int // 0-indexed line of pos
	lineStart int // byte offset where the current line starts

	// indents is the stack of open indentation widths; it always holds 0
	// at the bottom.
	indents []int

	// pending holds synthesized tokens (DEDENTs) not yet returned.
	pending []token.Token

	// parenDepth counts unmatched ( [ and { seen so far.
	parenDepth int

	// atLineStart is set when the next token begins a logical line.
	atLineStart bool

	// lineHasTokens is set once a token has been emitted on the current
	// logical line, so that EOF can terminate it with a NEWLINE.
	lineHasTokens bool

	finished bool
}

// Option is a configuration function for a Lexer.
type Option func(*Lexer)

// WithFilename sets the file name reported in token positions and errors.
func WithFilename(filename string) Option {
	return func(l *Lexer) {
		l.filename = filename
	}
}

// New returns a Lexer for the given input.
func New(input string, opts ...Option) *Lexer {
	l := &Lexer{
		input:       input,
		indents:     []int{0},
		atLineStart: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Filename returns the name of the file being lexed.
func (l *Lexer) Filename() string {
	return l.filename
}

// SetFilename sets the name of the file being lexed.
func (l *Lexer) SetFilename(filename string) {
	l.filename = filename
}

// Tokenize reads all tokens up to and including EOF.
func (l *Lexer) Tokenize() ([]token.Token, error) {
	var tokens []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens, nil
		}
	}
}

// Next returns the next token. Queued INDENT/DEDENT tokens are drained
// before more input is read.
func (l *Lexer) Next() (token.Token, error) {
	if len(l.pending) > 0 {
		return l.popPending(), nil
	}
	for {
		if l.atLineStart && l.parenDepth == 0 {
			tok, ok, err := l.readIndentation()
			if err != nil {
				return token.Token{}, err
			}
			if ok {
				return tok, nil
			}
			if l.atLineStart {
				// Blank or comment-only line
				continue
			}
		}
		l.skipWhitespace()
		if l.pos >= len(l.input) {
			return l.endOfInput(), nil
		}
		ch := l.input[l.pos]
		switch {
		case ch == '\\':
			if err := l.readContinuation(); err != nil {
				return token.Token{}, err
			}
			continue
		case ch == '\n' || ch == '\r':
			start := l.position()
			l.consumeNewline()
			if l.parenDepth > 0 {
				continue
			}
			l.atLineStart = true
			l.lineHasTokens = false
			return token.Token{Type: token.NEWLINE, Literal: "\n", StartPosition: start, EndPosition: start}, nil
		}
		tok, err := l.readToken()
		if err != nil {
			return token.Token{}, err
		}
		l.lineHasTokens = true
		return tok, nil
	}
}

func (l *Lexer) popPending() token.Token {
	tok := l.pending[0]
	l.pending = l.pending[1:]
	return tok
}

// readIndentation measures the leading whitespace of a logical line and
// emits INDENT or DEDENT tokens as needed. It reports ok=false when no token
// is produced; in that case atLineStart remains set if the line was blank.
func (l *Lexer) readIndentation() (token.Token, bool, error) {
	width := 0
scan:
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ':
			width++
		case '\t':
			width = (width/tabSize + 1) * tabSize
		case '\f':
			width = 0
		default:
			break scan
		}
		l.pos++
	}
	if l.pos >= len(l.input) {
		l.atLineStart = false
		return token.Token{}, false, nil
	}
	switch l.input[l.pos] {
	case '#':
		l.skipComment()
		if l.pos < len(l.input) {
			l.consumeNewline()
		}
		return token.Token{}, false, nil
	case '\n', '\r':
		l.consumeNewline()
		return token.Token{}, false, nil
	case '\\':
		// An explicit continuation on an otherwise empty line joins the
		// next physical line; indentation is measured there.
		if err := l.readContinuation(); err != nil {
			return token.Token{}, false, err
		}
		return token.Token{}, false, nil
	}
	l.atLineStart = false
	pos := l.position()
	top := l.indents[len(l.indents)-1]
	switch {
	case width > top:
		l.indents = append(l.indents, width)
		return token.Token{Type: token.INDENT, StartPosition: pos, EndPosition: pos}, true, nil
	case width < top:
		for len(l.indents) > 1 && l.indents[len(l.indents)-1] > width {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, token.Token{Type: token.DEDENT, StartPosition: pos, EndPosition: pos})
		}
		if l.indents[len(l.indents)-1] != width {
			l.pending = nil
			return token.Token{}, false, l.errorAt(pos, errors.E1011,
				"unindent does not match any outer indentation level")
		}
		return l.popPending(), true, nil
	}
	return token.Token{}, false, nil
}

func (l *Lexer) endOfInput() token.Token {
	pos := l.position()
	if l.lineHasTokens {
		l.lineHasTokens = false
		return token.Token{Type: token.NEWLINE, StartPosition: pos, EndPosition: pos}
	}
	if !l.finished {
		l.finished = true
		for len(l.indents) > 1 {
			l.indents = l.indents[:len(l.indents)-1]
			l.pending = append(l.pending, token.Token{Type: token.DEDENT, StartPosition: pos, EndPosition: pos})
		}
		if len(l.pending) > 0 {
			return l.popPending()
		}
	}
	return token.Token{Type: token.EOF, StartPosition: pos, EndPosition: pos}
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		switch l.input[l.pos] {
		case ' ', '\t', '\f':
			l.pos++
		case '#':
			l.skipComment()
		default:
			return
		}
	}
}

func (l *Lexer) skipComment() {
	for l.pos < len(l.input) && l.input[l.pos] != '\n' && l.input[l.pos] != '\r' {
		l.pos++
	}
}

// readContinuation consumes a backslash that must be followed by a newline.
func (l *Lexer) readContinuation() error {
	pos := l.position()
	l.pos++
	if l.pos < len(l.input) && (l.input[l.pos] == '\n' || l.input[l.pos] == '\r') {
		l.consumeNewline()
		return nil
	}
	if l.pos >= len(l.input) {
		return l.errorAt(pos, errors.E1003, "unexpected EOF after line continuation character")
	}
	return l.errorAt(pos, errors.E1003, "unexpected character after line continuation character")
}

func (l *Lexer) consumeNewline() {
	if l.input[l.pos] == '\r' && l.pos+1 < len(l.input) && l.input[l.pos+1] == '\n' {
		l.pos++
	}
	l.pos++
	l.line++
	l.lineStart = l.pos
}

func (l *Lexer) position() token.Position {
	return token.Position{
		Char:      l.pos,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    l.pos - l.lineStart,
		File:      l.filename,
	}
}

func (l *Lexer) readToken() (token.Token, error) {
	start := l.position()
	ch := l.input[l.pos]
	switch {
	case isIdentStart(l.peekRune()):
		ident := l.readIdentifier()
		if l.pos < len(l.input) && (l.input[l.pos] == '\'' || l.input[l.pos] == '"') && isStringPrefix(ident) {
			return l.readString(start, strings.ToLower(ident))
		}
		return l.makeToken(token.LookupIdentifier(ident), ident, start), nil
	case isDigit(ch) || (ch == '.' && l.pos+1 < len(l.input) && isDigit(l.input[l.pos+1])):
		return l.readNumber(start)
	case ch == '\'' || ch == '"':
		return l.readString(start, "")
	}
	for n := 3; n >= 1; n-- {
		if l.pos+n > len(l.input) {
			continue
		}
		lit := l.input[l.pos : l.pos+n]
		if typ, ok := token.LookupOperator(lit); ok {
			l.pos += n
			switch typ {
			case token.LPAREN, token.LBRACKET, token.LBRACE:
				l.parenDepth++
			case token.RPAREN, token.RBRACKET, token.RBRACE:
				if l.parenDepth > 0 {
					l.parenDepth--
				}
			}
			return l.makeToken(typ, lit, start), nil
		}
	}
	r := l.peekRune()
	return token.Token{}, l.errorAt(start, errors.E1012, "invalid character '%c' (U+%04X)", r, r)
}

func (l *Lexer) makeToken(typ token.Type, literal string, start token.Position) token.Token {
	end := l.position()
	if end.Char > start.Char {
		end = end.Advance(-1)
	}
	return token.Token{Type: typ, Literal: literal, StartPosition: start, EndPosition: end}
}

func (l *Lexer) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !isIdentPart(r) {
			break
		}
		l.pos += size
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber(start token.Position) (token.Token, error) {
	begin := l.pos
	if l.input[l.pos] == '0' && l.pos+1 < len(l.input) {
		switch l.input[l.pos+1] {
		case 'x', 'X':
			return l.readBasedInt(start, 16, "hex")
		case 'o', 'O':
			return l.readBasedInt(start, 8, "octal")
		case 'b', 'B':
			return l.readBasedInt(start, 2, "binary")
		}
	}
	isFloat := false
	l.readDigits()
	if l.pos < len(l.input) && l.input[l.pos] == '.' {
		isFloat = true
		l.pos++
		l.readDigits()
	}
	if l.pos < len(l.input) && (l.input[l.pos] == 'e' || l.input[l.pos] == 'E') {
		isFloat = true
		l.pos++
		if l.pos < len(l.input) && (l.input[l.pos] == '+' || l.input[l.pos] == '-') {
			l.pos++
		}
		l.readDigits()
	}
	// Trailing identifier characters make the whole literal invalid
	trailing := false
	for l.pos < len(l.input) && isIdentPart(l.peekRune()) {
		trailing = true
		l.pos += utf8.RuneLen(l.peekRune())
	}
	text := l.input[begin:l.pos]
	clean := strings.ReplaceAll(text, "_", "")
	if isFloat {
		_, err := strconv.ParseFloat(clean, 64)
		if trailing || err != nil || !validUnderscores(text, isDigit) {
			if numErr, ok := err.(*strconv.NumError); !trailing && ok && numErr.Err == strconv.ErrRange {
				return l.makeToken(token.FLOAT, clean, start), nil
			}
			return token.Token{}, l.errorAt(start, errors.E1008, "invalid float literal: %s", text)
		}
		return l.makeToken(token.FLOAT, clean, start), nil
	}
	if trailing || clean == "" || !validUnderscores(text, isDigit) || !allDigits(clean) ||
		(len(clean) > 1 && clean[0] == '0' && strings.Trim(clean, "0") != "") {
		return token.Token{}, l.errorAt(start, errors.E1008, "invalid integer literal: %s", text)
	}
	return l.makeToken(token.INT, clean, start), nil
}

func (l *Lexer) readBasedInt(start token.Position, base int, name string) (token.Token, error) {
	begin := l.pos
	l.pos += 2
	for l.pos < len(l.input) && isIdentPart(l.peekRune()) {
		l.pos += utf8.RuneLen(l.peekRune())
	}
	text := l.input[begin:l.pos]
	digits := text[2:]
	valid := func(c byte) bool { return digitValue(c) < base }
	clean := strings.ReplaceAll(digits, "_", "")
	ok := clean != "" && (len(digits) == 0 || digits[len(digits)-1] != '_') &&
		!strings.Contains(digits, "__")
	for i := 0; ok && i < len(clean); i++ {
		ok = valid(clean[i])
	}
	if !ok {
		return token.Token{}, l.errorAt(start, errors.E1008, "invalid %s literal: %s", name, text)
	}
	return l.makeToken(token.INT, text[:2]+clean, start), nil
}

func (l *Lexer) readDigits() {
	for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || l.input[l.pos] == '_') {
		l.pos++
	}
}

// validUnderscores reports whether every underscore in text sits between
// two digits.
func validUnderscores(text string, digit func(byte) bool) bool {
	for i := 0; i < len(text); i++ {
		if text[i] != '_' {
			continue
		}
		if i == 0 || i == len(text)-1 || !digit(text[i-1]) || !digit(text[i+1]) {
			return false
		}
	}
	return true
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// readString reads a string literal starting at the opening quote. The
// prefix is the lowercased string prefix, if any.
func (l *Lexer) readString(start token.Position, prefix string) (token.Token, error) {
	raw := strings.Contains(prefix, "r")
	isBytes := strings.Contains(prefix, "b")
	isFormat := strings.Contains(prefix, "f")

	quote := l.input[l.pos]
	triple := strings.HasPrefix(l.input[l.pos:], strings.Repeat(string(quote), 3))
	if triple {
		l.pos += 3
	} else {
		l.pos++
	}

	var out strings.Builder
	for {
		if l.pos >= len(l.input) {
			return token.Token{}, l.errorAt(start, errors.E1002, "unterminated string literal")
		}
		ch := l.input[l.pos]
		switch {
		case ch == quote:
			if !triple {
				l.pos++
				return l.finishString(start, out.String(), isBytes, isFormat), nil
			}
			if strings.HasPrefix(l.input[l.pos:], strings.Repeat(string(quote), 3)) {
				l.pos += 3
				return l.finishString(start, out.String(), isBytes, isFormat), nil
			}
			out.WriteByte(ch)
			l.pos++
		case ch == '\n' || ch == '\r':
			if !triple {
				return token.Token{}, l.errorAt(start, errors.E1002, "EOL while scanning string literal")
			}
			l.consumeNewline()
			out.WriteByte('\n')
		case ch == '\\':
			if err := l.readEscape(&out, raw, isBytes); err != nil {
				return token.Token{}, err
			}
		default:
			r, size := utf8.DecodeRuneInString(l.input[l.pos:])
			out.WriteRune(r)
			l.pos += size
		}
	}
}

func (l *Lexer) finishString(start token.Position, value string, isBytes, isFormat bool) token.Token {
	typ := token.STRING
	if isBytes {
		typ = token.BYTES
	} else if isFormat {
		typ = token.FSTRING
	}
	return l.makeToken(typ, value, start)
}

// readEscape handles a backslash inside a string literal.
func (l *Lexer) readEscape(out *strings.Builder, raw, isBytes bool) error {
	l.pos++ // backslash
	if l.pos >= len(l.input) {
		out.WriteByte('\\')
		return nil
	}
	ch := l.input[l.pos]
	if ch == '\n' || ch == '\r' {
		if raw {
			out.WriteByte('\\')
			out.WriteByte('\n')
		}
		l.consumeNewline()
		return nil
	}
	if raw {
		// The escaped character is kept, and never terminates the string.
		out.WriteByte('\\')
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		out.WriteRune(r)
		l.pos += size
		return nil
	}
	l.pos++
	switch ch {
	case 'n':
		out.WriteByte('\n')
	case 't':
		out.WriteByte('\t')
	case 'r':
		out.WriteByte('\r')
	case '\\':
		out.WriteByte('\\')
	case '\'':
		out.WriteByte('\'')
	case '"':
		out.WriteByte('"')
	case 'a':
		out.WriteByte('\a')
	case 'b':
		out.WriteByte('\b')
	case 'f':
		out.WriteByte('\f')
	case 'v':
		out.WriteByte('\v')
	case '0', '1', '2', '3', '4', '5', '6', '7':
		value := int(ch - '0')
		for i := 0; i < 2 && l.pos < len(l.input) && l.input[l.pos] >= '0' && l.input[l.pos] <= '7'; i++ {
			value = value*8 + int(l.input[l.pos]-'0')
			l.pos++
		}
		writeCodepoint(out, rune(value), isBytes)
	case 'x':
		return l.readHexEscape(out, 2, isBytes)
	case 'u', 'U':
		if isBytes {
			out.WriteByte('\\')
			out.WriteByte(ch)
			return nil
		}
		n := 4
		if ch == 'U' {
			n = 8
		}
		return l.readHexEscape(out, n, false)
	default:
		out.WriteByte('\\')
		r, size := utf8.DecodeRuneInString(l.input[l.pos-1:])
		out.WriteRune(r)
		l.pos += size - 1
	}
	return nil
}

func (l *Lexer) readHexEscape(out *strings.Builder, n int, isBytes bool) error {
	pos := l.position()
	if l.pos+n > len(l.input) {
		return l.errorAt(pos, errors.E1010, "truncated escape sequence")
	}
	value, err := strconv.ParseUint(l.input[l.pos:l.pos+n], 16, 32)
	if err != nil || value > unicode.MaxRune {
		return l.errorAt(pos, errors.E1010, "invalid escape sequence")
	}
	l.pos += n
	writeCodepoint(out, rune(value), isBytes)
	return nil
}

func writeCodepoint(out *strings.Builder, r rune, isBytes bool) {
	if isBytes || r < utf8.RuneSelf {
		out.WriteByte(byte(r))
		return
	}
	out.WriteRune(r)
}

// GetLineText returns the text of the source line the token starts on.
func (l *Lexer) GetLineText(tok token.Token) string {
	return l.lineText(tok.StartPosition.LineStart)
}

func (l *Lexer) lineText(lineStart int) string {
	if lineStart > len(l.input) {
		return ""
	}
	rest := l.input[lineStart:]
	if idx := strings.IndexAny(rest, "\r\n"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

func (l *Lexer) errorAt(pos token.Position, code errors.ErrorCode, format string, args ...any) *errors.LexError {
	return errors.NewLexError(code, errors.SourceLocation{
		Filename: l.filename,
		Line:     pos.LineNumber(),
		Column:   pos.ColumnNumber(),
		Source:   l.lineText(pos.LineStart),
	}, format, args...)
}

func isStringPrefix(s string) bool {
	switch strings.ToLower(s) {
	case "r", "u", "b", "f", "br", "rb", "fr", "rf":
		return true
	}
	return false
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigit(ch byte) bool {
	return '0' <= ch && ch <= '9'
}

func digitValue(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return 99
}
