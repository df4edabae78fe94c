package parser

import (
	stderrors "errors"
	"math/big"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/lexer"
	"github.com/deepnoodle-ai/slither/internal/token"
)

func (p *Parser) parseInt() ast.Expr {
	tok := p.curToken
	p.nextToken()
	value, ok := p.intValue(tok, "")
	if !ok {
		return nil
	}
	return &ast.Constant{ValuePos: tok.StartPosition, ValueEnd: tok.EndPosition.Advance(1), Value: value}
}

// intValue converts an INT token, with an optional sign prefix, to an
// int64, or a *big.Int when it does not fit.
func (p *Parser) intValue(tok token.Token, sign string) (any, bool) {
	value, err := strconv.ParseInt(sign+tok.Literal, 0, 64)
	if err == nil {
		return value, true
	}
	if stderrors.Is(err, strconv.ErrRange) {
		if n, ok := new(big.Int).SetString(sign+tok.Literal, 0); ok {
			return n, true
		}
	}
	p.fail(tok, errors.E1008, "invalid integer literal: %s", tok.Literal)
	return nil, false
}

func (p *Parser) parseFloat() ast.Expr {
	tok := p.curToken
	p.nextToken()
	value, err := strconv.ParseFloat(tok.Literal, 64)
	if err != nil && !stderrors.Is(err, strconv.ErrRange) {
		p.fail(tok, errors.E1008, "invalid float literal: %s", tok.Literal)
		return nil
	}
	return &ast.Constant{ValuePos: tok.StartPosition, ValueEnd: tok.EndPosition.Advance(1), Value: value}
}

func (p *Parser) parseBytes() ast.Expr {
	start := p.curToken
	var out strings.Builder
	end := start.EndPosition
	for {
		switch p.curToken.Type {
		case token.BYTES:
			out.WriteString(p.curToken.Literal)
			end = p.curToken.EndPosition
			p.nextToken()
			continue
		case token.STRING, token.FSTRING:
			p.fail(p.curToken, errors.E1003, "cannot mix bytes and nonbytes literals")
			return nil
		}
		break
	}
	return &ast.Constant{ValuePos: start.StartPosition, ValueEnd: end.Advance(1), Value: ast.Bytes(out.String())}
}

// parseStrings parses one or more adjacent string literals, which are
// implicitly concatenated. Any f-string in the run makes the result a
// JoinedStr.
func (p *Parser) parseStrings() ast.Expr {
	start := p.curToken
	end := start.EndPosition
	var parts []ast.Expr
	formatted := false
	for p.curTokenIs(token.STRING) || p.curTokenIs(token.FSTRING) || p.curTokenIs(token.BYTES) {
		tok := p.curToken
		switch tok.Type {
		case token.BYTES:
			p.fail(tok, errors.E1003, "cannot mix bytes and nonbytes literals")
			return nil
		case token.STRING:
			parts = appendText(parts, tok.Literal, tok.StartPosition)
		case token.FSTRING:
			formatted = true
			fparts, ok := p.parseFString(tok)
			if !ok {
				return nil
			}
			for _, part := range fparts {
				if c, ok := part.(*ast.Constant); ok {
					parts = appendText(parts, c.Value.(string), c.ValuePos)
				} else {
					parts = append(parts, part)
				}
			}
		}
		end = tok.EndPosition
		p.nextToken()
	}
	if !formatted {
		text := ""
		if len(parts) > 0 {
			text = parts[0].(*ast.Constant).Value.(string)
		}
		return &ast.Constant{ValuePos: start.StartPosition, ValueEnd: end.Advance(1), Value: text}
	}
	return &ast.JoinedStr{StrPos: start.StartPosition, StrEnd: end.Advance(1), Values: parts}
}

// appendText appends literal text, merging it into a trailing constant.
func appendText(parts []ast.Expr, text string, pos token.Position) []ast.Expr {
	if n := len(parts); n > 0 {
		if c, ok := parts[n-1].(*ast.Constant); ok {
			c.Value = c.Value.(string) + text
			return parts
		}
	}
	return append(parts, &ast.Constant{ValuePos: pos, ValueEnd: pos, Value: text})
}

// parseFString splits the body of an f-string into literal text and
// replacement fields.
func (p *Parser) parseFString(tok token.Token) ([]ast.Expr, bool) {
	parts, _, ok := p.fstringParts(tok, tok.Literal, 0, false)
	return parts, ok
}

// fstringParts scans s from i. When nested is true it scans a format spec
// and stops at the closing brace, returning its index.
func (p *Parser) fstringParts(tok token.Token, s string, i int, nested bool) ([]ast.Expr, int, bool) {
	var parts []ast.Expr
	var text strings.Builder
	flush := func() {
		if text.Len() > 0 {
			parts = append(parts, &ast.Constant{ValuePos: tok.StartPosition, ValueEnd: tok.StartPosition, Value: text.String()})
			text.Reset()
		}
	}
	for i < len(s) {
		c := s[i]
		switch {
		case c == '{' && !nested && i+1 < len(s) && s[i+1] == '{':
			text.WriteByte('{')
			i += 2
		case c == '{':
			flush()
			field, next, ok := p.replacementField(tok, s, i+1)
			if !ok {
				return nil, 0, false
			}
			parts = append(parts, field...)
			i = next
		case c == '}' && nested:
			flush()
			return parts, i, true
		case c == '}':
			if i+1 < len(s) && s[i+1] == '}' {
				text.WriteByte('}')
				i += 2
				continue
			}
			p.fail(tok, errors.E1003, "f-string: single '}' is not allowed")
			return nil, 0, false
		default:
			text.WriteByte(c)
			i++
		}
	}
	if nested {
		p.fail(tok, errors.E1003, "f-string: expecting '}'")
		return nil, 0, false
	}
	flush()
	return parts, i, true
}

// replacementField parses "expr[=][!conv][:spec]}" starting after the
// opening brace. It returns the parsed parts and the index after the
// closing brace.
func (p *Parser) replacementField(tok token.Token, s string, start int) ([]ast.Expr, int, bool) {
	end, ok := scanFieldExpression(s, start)
	if !ok {
		p.fail(tok, errors.E1003, "f-string: expecting '}'")
		return nil, 0, false
	}
	exprText := s[start:end]
	var parts []ast.Expr
	conversion := rune(0)
	trimmed := strings.TrimRight(exprText, " ")
	if strings.HasSuffix(trimmed, "=") && !strings.HasSuffix(trimmed, "==") &&
		!strings.HasSuffix(trimmed, "!=") && !strings.HasSuffix(trimmed, "<=") &&
		!strings.HasSuffix(trimmed, ">=") {
		// Self-documenting "{expr=}" renders the source text then the repr.
		parts = append(parts, &ast.Constant{ValuePos: tok.StartPosition, ValueEnd: tok.StartPosition, Value: exprText})
		exprText = trimmed[:len(trimmed)-1]
		conversion = 'r'
	}
	if strings.TrimSpace(exprText) == "" {
		p.fail(tok, errors.E1003, "f-string: empty expression not allowed")
		return nil, 0, false
	}
	value, ok := p.subExpression(tok, exprText)
	if !ok {
		return nil, 0, false
	}
	i := end
	if i < len(s) && s[i] == '!' {
		if i+1 >= len(s) || !strings.ContainsRune("sra", rune(s[i+1])) {
			p.fail(tok, errors.E1003, "f-string: invalid conversion character: expected 's', 'r', or 'a'")
			return nil, 0, false
		}
		conversion = rune(s[i+1])
		i += 2
	}
	field := &ast.FormattedValue{Value: value, Conversion: conversion}
	if i < len(s) && s[i] == ':' {
		specParts, next, ok := p.fstringParts(tok, s, i+1, true)
		if !ok {
			return nil, 0, false
		}
		field.FormatSpec = &ast.JoinedStr{StrPos: tok.StartPosition, StrEnd: tok.StartPosition, Values: specParts}
		if field.Conversion == 'r' && len(parts) > 0 {
			// "{x=:spec}" formats the value rather than its repr.
			field.Conversion = 0
		}
		i = next
	}
	if i >= len(s) || s[i] != '}' {
		p.fail(tok, errors.E1003, "f-string: expecting '}'")
		return nil, 0, false
	}
	return append(parts, field), i + 1, true
}

// scanFieldExpression finds the end of the expression in a replacement
// field: the first '!', ':' or '}' outside brackets and string literals.
func scanFieldExpression(s string, i int) (int, bool) {
	depth := 0
	var quote byte
	for ; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return i, true
			}
			depth--
		case '!':
			if depth == 0 && (i+1 >= len(s) || s[i+1] != '=') {
				return i, true
			}
		case ':':
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// subExpression parses the text of a replacement field. The text is padded
// so that positions inside it line up with the enclosing line.
func (p *Parser) subExpression(tok token.Token, text string) (ast.Expr, bool) {
	pos := tok.StartPosition
	input := "(" + strings.Repeat("\n", pos.Line) + strings.Repeat(" ", pos.Column) + text + ")"
	sub := New(lexer.New(input, lexer.WithFilename(p.l.Filename())), WithMaxDepth(p.maxDepth-p.depth))
	expr, err := sub.ParseExpression()
	if err != nil {
		msg := err.Error()
		var se *errors.SyntaxError
		var le *errors.LexError
		switch {
		case stderrors.As(err, &se):
			msg = se.Message
		case stderrors.As(err, &le):
			msg = le.Message
		}
		p.fail(tok, errors.E1003, "f-string: %s", msg)
		return nil, false
	}
	return expr, true
}
