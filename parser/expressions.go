package parser

import (
	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
)

// parseExpr is the Pratt loop. It parses a prefix expression and then folds
// in infix operators that bind tighter than precedence.
func (p *Parser) parseExpr(precedence int) ast.Expr {
	leave, ok := p.enter()
	defer leave()
	if !ok {
		return nil
	}
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.unexpected(p.curToken, "expression")
		return nil
	}
	left := prefix()
	for left != nil && p.err == nil && precedence < p.curPrecedence() {
		infix := p.infixParseFns[p.curToken.Type]
		left = infix(left)
	}
	if p.err != nil {
		return nil
	}
	return left
}

// curPrecedence returns the binding power of curToken as an infix operator.
func (p *Parser) curPrecedence() int {
	if p.curTokenIs(token.NOT) {
		if p.peekTokenIs(token.IN) {
			return COMPARE
		}
		return 0
	}
	return precedences[p.curToken.Type]
}

// parseTest parses a full expression including lambdas and conditional
// expressions.
func (p *Parser) parseTest() ast.Expr {
	return p.parseExpr(LOWEST)
}

// parseOrTest parses an expression that stops before a trailing "if", as
// used for comprehension iterables and conditions.
func (p *Parser) parseOrTest() ast.Expr {
	return p.parseExpr(TERNARY)
}

// parseNamedExpr parses an expression that may be an assignment expression.
func (p *Parser) parseNamedExpr() ast.Expr {
	if p.curTokenIs(token.NAME) && p.peekTokenIs(token.WALRUS) {
		target := &ast.Name{NamePos: p.curToken.StartPosition, Id: p.curToken.Literal}
		p.nextToken()
		p.nextToken()
		value := p.parseTest()
		if value == nil {
			return nil
		}
		return &ast.NamedExpr{Target: target, Value: value}
	}
	return p.parseTest()
}

// parseStarOrNamed parses a display element, which may be starred.
func (p *Parser) parseStarOrNamed() ast.Expr {
	if p.curTokenIs(token.ASTERISK) {
		return p.parseStarred()
	}
	return p.parseNamedExpr()
}

// parseStarOrTest parses an element of an unparenthesized expression
// list. Assignment expressions are not allowed there.
func (p *Parser) parseStarOrTest() ast.Expr {
	if p.curTokenIs(token.ASTERISK) {
		return p.parseStarred()
	}
	return p.parseTest()
}

func (p *Parser) parseStarred() ast.Expr {
	pos := p.curToken.StartPosition
	p.nextToken()
	x := p.parseExpr(BITOR - 1)
	if x == nil {
		return nil
	}
	return &ast.Starred{StarPos: pos, X: x}
}

// canStartExpr reports whether tok may begin an expression.
func (p *Parser) canStartExpr(tok token.Token) bool {
	if tok.Type == token.ASTERISK {
		return true
	}
	_, ok := p.prefixParseFns[tok.Type]
	return ok
}

// parseTestList parses "a, b, *c" and returns a Tuple when at least one
// comma is present.
func (p *Parser) parseTestList(allowStar bool) ast.Expr {
	parse := p.parseTest
	if allowStar {
		parse = p.parseStarOrTest
	}
	first := parse()
	if first == nil || !p.curTokenIs(token.COMMA) {
		return first
	}
	elts := []ast.Expr{first}
	end := p.curToken.EndPosition
	for p.curTokenIs(token.COMMA) {
		end = p.curToken.StartPosition.Advance(1)
		p.nextToken()
		if !p.canStartExpr(p.curToken) {
			break
		}
		e := parse()
		if e == nil {
			return nil
		}
		elts = append(elts, e)
		end = e.End()
	}
	return &ast.Tuple{TuplePos: first.Pos(), Elts: elts, TupleEnd: end}
}

// parseTargetList parses the target of a for loop or comprehension clause.
// Elements bind tighter than comparisons so "in" terminates the list.
func (p *Parser) parseTargetList() ast.Expr {
	parseOne := func() ast.Expr {
		if p.curTokenIs(token.ASTERISK) {
			pos := p.curToken.StartPosition
			p.nextToken()
			x := p.parseExpr(COMPARE)
			if x == nil {
				return nil
			}
			return &ast.Starred{StarPos: pos, X: x}
		}
		return p.parseExpr(COMPARE)
	}
	first := parseOne()
	if first == nil || !p.curTokenIs(token.COMMA) {
		return first
	}
	elts := []ast.Expr{first}
	end := first.End()
	for p.curTokenIs(token.COMMA) {
		end = p.curToken.StartPosition.Advance(1)
		p.nextToken()
		if p.curTokenIs(token.IN) || !p.canStartExpr(p.curToken) {
			break
		}
		e := parseOne()
		if e == nil {
			return nil
		}
		elts = append(elts, e)
		end = e.End()
	}
	return &ast.Tuple{TuplePos: first.Pos(), Elts: elts, TupleEnd: end}
}

func (p *Parser) parseName() ast.Expr {
	tok := p.curToken
	p.nextToken()
	return &ast.Name{NamePos: tok.StartPosition, Id: tok.Literal}
}

func (p *Parser) parseKeywordConstant() ast.Expr {
	tok := p.curToken
	p.nextToken()
	var value any
	switch tok.Type {
	case token.TRUE:
		value = true
	case token.FALSE:
		value = false
	case token.ELLIPSIS:
		value = ast.EllipsisValue{}
	}
	return &ast.Constant{ValuePos: tok.StartPosition, ValueEnd: tok.EndPosition.Advance(1), Value: value}
}

func (p *Parser) unsupported() ast.Expr {
	p.fail(p.curToken, errors.E1003, "'%s' is not supported", p.curToken.Literal)
	return nil
}

func (p *Parser) parseUnary() ast.Expr {
	tok := p.curToken
	p.nextToken()
	// Fold the negative literal so the most negative int64 is representable.
	if tok.Type == token.MINUS && p.curTokenIs(token.INT) && precedences[p.peekToken.Type] < POWER {
		lit := p.curToken
		p.nextToken()
		value, ok := p.intValue(lit, "-")
		if !ok {
			return nil
		}
		return &ast.Constant{ValuePos: tok.StartPosition, ValueEnd: lit.EndPosition.Advance(1), Value: value}
	}
	operand := p.parseExpr(UNARY)
	if operand == nil {
		return nil
	}
	return &ast.UnaryOp{OpPos: tok.StartPosition, Op: tok.Type, X: operand}
}

func (p *Parser) parseNot() ast.Expr {
	tok := p.curToken
	p.nextToken()
	operand := p.parseExpr(NOT)
	if operand == nil {
		return nil
	}
	return &ast.UnaryOp{OpPos: tok.StartPosition, Op: token.NOT, X: operand}
}

func (p *Parser) parseBinOp(left ast.Expr) ast.Expr {
	tok := p.curToken
	precedence := precedences[tok.Type]
	p.nextToken()
	right := p.parseExpr(precedence)
	if right == nil {
		return nil
	}
	return &ast.BinOp{Left: left, OpPos: tok.StartPosition, Op: tok.Type, Right: right}
}

// parsePower handles "**", which is right associative and accepts a unary
// expression on its right.
func (p *Parser) parsePower(left ast.Expr) ast.Expr {
	tok := p.curToken
	p.nextToken()
	right := p.parseExpr(PRODUCT)
	if right == nil {
		return nil
	}
	return &ast.BinOp{Left: left, OpPos: tok.StartPosition, Op: token.POW, Right: right}
}

func (p *Parser) parseBoolOp(left ast.Expr) ast.Expr {
	op := p.curToken.Type
	precedence := precedences[op]
	values := []ast.Expr{left}
	for p.curTokenIs(op) {
		p.nextToken()
		v := p.parseExpr(precedence)
		if v == nil {
			return nil
		}
		values = append(values, v)
	}
	return &ast.BoolOp{Op: op, Values: values}
}

// comparisonOp consumes a comparison operator, including the two token
// forms "not in" and "is not".
func (p *Parser) comparisonOp() (ast.CmpOp, bool) {
	switch {
	case p.curTokenIs(token.NOT) && p.peekTokenIs(token.IN):
		p.nextToken()
		p.nextToken()
		return ast.NotIn, true
	case p.curTokenIs(token.IS):
		p.nextToken()
		if p.curTokenIs(token.NOT) {
			p.nextToken()
			return ast.IsNot, true
		}
		return ast.Is, true
	}
	if op, ok := comparisonOps[p.curToken.Type]; ok {
		p.nextToken()
		return op, true
	}
	return "", false
}

func (p *Parser) parseCompare(left ast.Expr) ast.Expr {
	cmp := &ast.Compare{Left: left}
	for p.curPrecedence() == COMPARE {
		op, ok := p.comparisonOp()
		if !ok {
			break
		}
		right := p.parseExpr(COMPARE)
		if right == nil {
			return nil
		}
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, right)
	}
	return cmp
}

func (p *Parser) parseIfExp(body ast.Expr) ast.Expr {
	p.nextToken() // if
	test := p.parseOrTest()
	if test == nil {
		return nil
	}
	if !p.expect(token.ELSE, "conditional expression") {
		return nil
	}
	orelse := p.parseTest()
	if orelse == nil {
		return nil
	}
	return &ast.IfExp{Test: test, Body: body, OrElse: orelse}
}

func (p *Parser) parseLambda() ast.Expr {
	pos := p.curToken.StartPosition
	p.nextToken()
	args := p.parseParameters(token.COLON, false)
	if args == nil || !p.expect(token.COLON, "lambda") {
		return nil
	}
	body := p.parseTest()
	if body == nil {
		return nil
	}
	return &ast.Lambda{LambdaPos: pos, Args: args, Body: body}
}

func (p *Parser) parseAttribute(x ast.Expr) ast.Expr {
	p.nextToken() // .
	name, pos, ok := p.expectName("attribute access")
	if !ok {
		return nil
	}
	return &ast.Attribute{X: x, AttrPos: pos, Attr: name}
}

func (p *Parser) parseCall(fn ast.Expr) ast.Expr {
	lparen := p.curToken.StartPosition
	p.nextToken()
	args, keywords, rparen, ok := p.parseArguments()
	if !ok {
		return nil
	}
	return &ast.Call{Func: fn, Lparen: lparen, Args: args, Keywords: keywords, Rparen: rparen}
}

// parseArguments parses a call argument list after the opening parenthesis
// and consumes the closing one.
func (p *Parser) parseArguments() ([]ast.Expr, []*ast.Keyword, token.Position, bool) {
	var args []ast.Expr
	var keywords []*ast.Keyword
	seen := map[string]bool{}
	sawKeyword, sawKwUnpack := false, false
	for !p.curTokenIs(token.RPAREN) && p.err == nil {
		tok := p.curToken
		switch {
		case tok.Type == token.ASTERISK:
			if sawKwUnpack {
				p.fail(tok, errors.E1003, "iterable argument unpacking follows keyword argument unpacking")
				return nil, nil, tok.StartPosition, false
			}
			p.nextToken()
			x := p.parseTest()
			if x == nil {
				return nil, nil, tok.StartPosition, false
			}
			args = append(args, &ast.Starred{StarPos: tok.StartPosition, X: x})
		case tok.Type == token.POW:
			p.nextToken()
			x := p.parseTest()
			if x == nil {
				return nil, nil, tok.StartPosition, false
			}
			keywords = append(keywords, &ast.Keyword{ArgPos: tok.StartPosition, Value: x})
			sawKwUnpack = true
		case tok.Type == token.NAME && p.peekTokenIs(token.ASSIGN):
			if seen[tok.Literal] {
				p.fail(tok, errors.E1003, "keyword argument repeated: %s", tok.Literal)
				return nil, nil, tok.StartPosition, false
			}
			seen[tok.Literal] = true
			p.nextToken()
			p.nextToken()
			x := p.parseTest()
			if x == nil {
				return nil, nil, tok.StartPosition, false
			}
			keywords = append(keywords, &ast.Keyword{ArgPos: tok.StartPosition, Arg: tok.Literal, Value: x})
			sawKeyword = true
		default:
			if sawKwUnpack {
				p.fail(tok, errors.E1003, "positional argument follows keyword argument unpacking")
				return nil, nil, tok.StartPosition, false
			}
			if sawKeyword {
				p.fail(tok, errors.E1003, "positional argument follows keyword argument")
				return nil, nil, tok.StartPosition, false
			}
			x := p.parseNamedExpr()
			if x == nil {
				return nil, nil, tok.StartPosition, false
			}
			if p.curTokenIs(token.FOR) {
				gens := p.parseComprehensionClauses()
				if gens == nil {
					return nil, nil, tok.StartPosition, false
				}
				x = &ast.GeneratorExp{Lparen: x.Pos(), Elt: x, Generators: gens}
				if len(args) > 0 || len(keywords) > 0 || !p.curTokenIs(token.RPAREN) {
					p.failAt(x.Pos(), errors.E1003, "generator expression must be parenthesized")
					return nil, nil, tok.StartPosition, false
				}
			}
			args = append(args, x)
		}
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	rparen := p.curToken.StartPosition
	if !p.expect(token.RPAREN, "call arguments") {
		return nil, nil, rparen, false
	}
	return args, keywords, rparen, true
}

func (p *Parser) parseSubscript(x ast.Expr) ast.Expr {
	lbrack := p.curToken.StartPosition
	p.nextToken()
	first := p.parseSubscriptItem()
	if first == nil {
		return nil
	}
	index := first
	if p.curTokenIs(token.COMMA) {
		elts := []ast.Expr{first}
		for p.curTokenIs(token.COMMA) {
			p.nextToken()
			if p.curTokenIs(token.RBRACKET) {
				break
			}
			item := p.parseSubscriptItem()
			if item == nil {
				return nil
			}
			elts = append(elts, item)
		}
		index = &ast.Tuple{TuplePos: first.Pos(), Elts: elts, TupleEnd: p.curToken.StartPosition}
	}
	rbrack := p.curToken.StartPosition
	if !p.expect(token.RBRACKET, "subscript") {
		return nil
	}
	return &ast.Subscript{X: x, Lbrack: lbrack, Index: index, Rbrack: rbrack}
}

// parseSubscriptItem parses an index expression or a "lower:upper:step"
// slice.
func (p *Parser) parseSubscriptItem() ast.Expr {
	var lower ast.Expr
	if !p.curTokenIs(token.COLON) {
		lower = p.parseNamedExpr()
		if lower == nil {
			return nil
		}
		if !p.curTokenIs(token.COLON) {
			return lower
		}
	}
	slice := &ast.Slice{ColonPos: p.curToken.StartPosition, Lower: lower}
	p.nextToken() // :
	endOfPart := func() bool {
		switch p.curToken.Type {
		case token.COLON, token.COMMA, token.RBRACKET:
			return true
		}
		return false
	}
	if !endOfPart() {
		if slice.Upper = p.parseTest(); slice.Upper == nil {
			return nil
		}
	}
	if p.curTokenIs(token.COLON) {
		p.nextToken()
		if !endOfPart() {
			if slice.Step = p.parseTest(); slice.Step == nil {
				return nil
			}
		}
	}
	return slice
}

// parseParen parses a parenthesized expression, a tuple or a generator
// expression.
func (p *Parser) parseParen() ast.Expr {
	lparen := p.curToken.StartPosition
	p.nextToken()
	if p.curTokenIs(token.RPAREN) {
		end := p.curToken.StartPosition.Advance(1)
		p.nextToken()
		return &ast.Tuple{TuplePos: lparen, TupleEnd: end}
	}
	first := p.parseStarOrNamed()
	if first == nil {
		return nil
	}
	if p.curTokenIs(token.FOR) {
		gens := p.parseComprehensionClauses()
		if gens == nil || !p.expect(token.RPAREN, "generator expression") {
			return nil
		}
		return &ast.GeneratorExp{Lparen: lparen, Elt: first, Generators: gens}
	}
	if !p.curTokenIs(token.COMMA) {
		if _, ok := first.(*ast.Starred); ok {
			p.failAt(first.Pos(), errors.E1003, "cannot use starred expression here")
			return nil
		}
		if !p.expect(token.RPAREN, "parenthesized expression") {
			return nil
		}
		return first
	}
	elts := []ast.Expr{first}
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		if p.curTokenIs(token.RPAREN) {
			break
		}
		e := p.parseStarOrNamed()
		if e == nil {
			return nil
		}
		elts = append(elts, e)
	}
	end := p.curToken.StartPosition.Advance(1)
	if !p.expect(token.RPAREN, "tuple") {
		return nil
	}
	return &ast.Tuple{TuplePos: lparen, Elts: elts, TupleEnd: end}
}

func (p *Parser) parseListDisplay() ast.Expr {
	lbrack := p.curToken.StartPosition
	p.nextToken()
	if p.curTokenIs(token.RBRACKET) {
		rbrack := p.curToken.StartPosition
		p.nextToken()
		return &ast.List{Lbrack: lbrack, Rbrack: rbrack}
	}
	first := p.parseStarOrNamed()
	if first == nil {
		return nil
	}
	if p.curTokenIs(token.FOR) {
		gens := p.parseComprehensionClauses()
		if gens == nil || !p.expect(token.RBRACKET, "list comprehension") {
			return nil
		}
		return &ast.ListComp{Lbrack: lbrack, Elt: first, Generators: gens}
	}
	elts := p.parseDisplayTail(first, token.RBRACKET)
	if elts == nil {
		return nil
	}
	rbrack := p.curToken.StartPosition
	if !p.expect(token.RBRACKET, "list") {
		return nil
	}
	return &ast.List{Lbrack: lbrack, Elts: elts, Rbrack: rbrack}
}

// parseDisplayTail collects the remaining comma separated elements of a
// list or set display. The closing token is left unconsumed.
func (p *Parser) parseDisplayTail(first ast.Expr, closer token.Type) []ast.Expr {
	elts := []ast.Expr{first}
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		if p.curTokenIs(closer) {
			break
		}
		e := p.parseStarOrNamed()
		if e == nil {
			return nil
		}
		elts = append(elts, e)
	}
	return elts
}

// parseBraceDisplay parses a dict or set display or comprehension.
func (p *Parser) parseBraceDisplay() ast.Expr {
	lbrace := p.curToken.StartPosition
	p.nextToken()
	if p.curTokenIs(token.RBRACE) {
		rbrace := p.curToken.StartPosition
		p.nextToken()
		return &ast.Dict{Lbrace: lbrace, Rbrace: rbrace}
	}
	if p.curTokenIs(token.POW) {
		return p.parseDictTail(lbrace, nil, nil)
	}
	first := p.parseStarOrNamed()
	if first == nil {
		return nil
	}
	if p.curTokenIs(token.COLON) {
		p.nextToken()
		value := p.parseTest()
		if value == nil {
			return nil
		}
		if p.curTokenIs(token.FOR) {
			gens := p.parseComprehensionClauses()
			if gens == nil || !p.expect(token.RBRACE, "dict comprehension") {
				return nil
			}
			return &ast.DictComp{Lbrace: lbrace, Key: first, Value: value, Generators: gens}
		}
		return p.parseDictTail(lbrace, first, value)
	}
	if p.curTokenIs(token.FOR) {
		gens := p.parseComprehensionClauses()
		if gens == nil || !p.expect(token.RBRACE, "set comprehension") {
			return nil
		}
		return &ast.SetComp{Lbrace: lbrace, Elt: first, Generators: gens}
	}
	elts := p.parseDisplayTail(first, token.RBRACE)
	if elts == nil {
		return nil
	}
	rbrace := p.curToken.StartPosition
	if !p.expect(token.RBRACE, "set") {
		return nil
	}
	return &ast.Set{Lbrace: lbrace, Elts: elts, Rbrace: rbrace}
}

// parseDictTail parses the remaining entries of a dict display. A nil key
// denotes a "**mapping" entry.
func (p *Parser) parseDictTail(lbrace token.Position, key, value ast.Expr) ast.Expr {
	dict := &ast.Dict{Lbrace: lbrace}
	parseEntry := func() bool {
		if p.curTokenIs(token.POW) {
			p.nextToken()
			v := p.parseExpr(BITOR - 1)
			if v == nil {
				return false
			}
			dict.Keys = append(dict.Keys, nil)
			dict.Values = append(dict.Values, v)
			return true
		}
		k := p.parseTest()
		if k == nil || !p.expect(token.COLON, "dict entry") {
			return false
		}
		v := p.parseTest()
		if v == nil {
			return false
		}
		dict.Keys = append(dict.Keys, k)
		dict.Values = append(dict.Values, v)
		return true
	}
	if value != nil {
		dict.Keys = append(dict.Keys, key)
		dict.Values = append(dict.Values, value)
	} else if !parseEntry() {
		return nil
	}
	for p.curTokenIs(token.COMMA) {
		p.nextToken()
		if p.curTokenIs(token.RBRACE) {
			break
		}
		if !parseEntry() {
			return nil
		}
	}
	dict.Rbrace = p.curToken.StartPosition
	if !p.expect(token.RBRACE, "dict") {
		return nil
	}
	return dict
}

// parseComprehensionClauses parses one or more "for ... in ... [if ...]"
// clauses.
func (p *Parser) parseComprehensionClauses() []*ast.Comprehension {
	var gens []*ast.Comprehension
	for p.curTokenIs(token.FOR) {
		forPos := p.curToken.StartPosition
		p.nextToken()
		target := p.parseTargetList()
		if target == nil || !p.checkTarget(target, "assign to") {
			return nil
		}
		if !p.expect(token.IN, "comprehension") {
			return nil
		}
		iter := p.parseOrTest()
		if iter == nil {
			return nil
		}
		gen := &ast.Comprehension{ForPos: forPos, Target: target, Iter: iter}
		for p.curTokenIs(token.IF) {
			p.nextToken()
			cond := p.parseOrTest()
			if cond == nil {
				return nil
			}
			gen.Ifs = append(gen.Ifs, cond)
		}
		gens = append(gens, gen)
	}
	if p.curTokenIs(token.ASYNC) {
		p.fail(p.curToken, errors.E1003, "'async' is not supported")
		return nil
	}
	return gens
}
