package parser

import (
	"strings"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
)

// parseStatement parses one compound statement or one line of simple
// statements.
func (p *Parser) parseStatement() []ast.Stmt {
	leave, ok := p.enter()
	defer leave()
	if !ok {
		return nil
	}
	var stmt ast.Stmt
	switch p.curToken.Type {
	case token.IF:
		stmt = p.parseIf()
	case token.WHILE:
		stmt = p.parseWhile()
	case token.FOR:
		stmt = p.parseFor()
	case token.TRY:
		stmt = p.parseTry()
	case token.WITH:
		stmt = p.parseWith()
	case token.DEF:
		stmt = p.parseFunctionDef(nil)
	case token.CLASS:
		stmt = p.parseClassDef(nil)
	case token.AT:
		stmt = p.parseDecorated()
	case token.ASYNC:
		p.fail(p.curToken, errors.E1003, "'async' is not supported")
	default:
		return p.parseSimpleStatements()
	}
	if stmt == nil {
		return nil
	}
	return []ast.Stmt{stmt}
}

// parseSimpleStatements parses ";"-separated simple statements up to and
// including the end of the line.
func (p *Parser) parseSimpleStatements() []ast.Stmt {
	var stmts []ast.Stmt
	for p.err == nil {
		stmt := p.parseSmallStatement()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		if !p.curTokenIs(token.SEMICOLON) {
			break
		}
		p.nextToken()
		if p.curTokenIs(token.NEWLINE) || p.curTokenIs(token.EOF) {
			break
		}
	}
	switch p.curToken.Type {
	case token.NEWLINE:
		p.nextToken()
	case token.EOF:
	default:
		p.unexpected(p.curToken, "statement")
		return nil
	}
	return stmts
}

// parseBlock parses ":" followed by an indented suite or a single line of
// simple statements.
func (p *Parser) parseBlock(context string) []ast.Stmt {
	if !p.expect(token.COLON, context) {
		return nil
	}
	if !p.curTokenIs(token.NEWLINE) {
		return p.parseSimpleStatements()
	}
	p.nextToken()
	if !p.curTokenIs(token.INDENT) {
		p.fail(p.curToken, errors.E1003, "expected an indented block after %s", context)
		return nil
	}
	p.nextToken()
	var body []ast.Stmt
	for p.err == nil && !p.curTokenIs(token.DEDENT) && !p.curTokenIs(token.EOF) {
		if p.curTokenIs(token.NEWLINE) {
			p.nextToken()
			continue
		}
		if p.curTokenIs(token.INDENT) {
			p.fail(p.curToken, errors.E1003, "unexpected indent")
			return nil
		}
		body = append(body, p.parseStatement()...)
	}
	if p.curTokenIs(token.DEDENT) {
		p.nextToken()
	}
	if p.err != nil {
		return nil
	}
	return body
}

func (p *Parser) parseSmallStatement() ast.Stmt {
	tok := p.curToken
	switch tok.Type {
	case token.PASS:
		p.nextToken()
		return &ast.Pass{PassPos: tok.StartPosition}
	case token.BREAK:
		p.nextToken()
		return &ast.Break{BreakPos: tok.StartPosition}
	case token.CONTINUE:
		p.nextToken()
		return &ast.Continue{ContinuePos: tok.StartPosition}
	case token.RETURN:
		return p.parseReturn()
	case token.DEL:
		return p.parseDelete()
	case token.GLOBAL, token.NONLOCAL:
		return p.parseScopeDeclaration()
	case token.ASSERT:
		return p.parseAssert()
	case token.RAISE:
		return p.parseRaise()
	case token.IMPORT:
		return p.parseImport()
	case token.FROM:
		return p.parseImportFrom()
	case token.YIELD, token.AWAIT:
		p.fail(tok, errors.E1003, "'%s' is not supported", tok.Literal)
		return nil
	}
	return p.parseExprStatement()
}

func (p *Parser) parseReturn() ast.Stmt {
	stmt := &ast.Return{ReturnPos: p.curToken.StartPosition}
	p.nextToken()
	if p.canStartExpr(p.curToken) {
		if stmt.Value = p.parseTestList(true); stmt.Value == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseDelete() ast.Stmt {
	stmt := &ast.Delete{DelPos: p.curToken.StartPosition}
	p.nextToken()
	for {
		target := p.parseExpr(COMPARE)
		if target == nil || !p.checkTarget(target, "delete") {
			return nil
		}
		stmt.Targets = append(stmt.Targets, target)
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if !p.canStartExpr(p.curToken) {
			break
		}
	}
	return stmt
}

func (p *Parser) parseScopeDeclaration() ast.Stmt {
	tok := p.curToken
	p.nextToken()
	var names []string
	end := tok.EndPosition
	for {
		name, pos, ok := p.expectName(tok.Literal + " statement")
		if !ok {
			return nil
		}
		names = append(names, name)
		end = pos.Advance(len(name))
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if tok.Type == token.GLOBAL {
		return &ast.Global{GlobalPos: tok.StartPosition, Names: names, NamesEnd: end}
	}
	return &ast.Nonlocal{NonlocalPos: tok.StartPosition, Names: names, NamesEnd: end}
}

func (p *Parser) parseAssert() ast.Stmt {
	stmt := &ast.Assert{AssertPos: p.curToken.StartPosition}
	p.nextToken()
	if stmt.Test = p.parseTest(); stmt.Test == nil {
		return nil
	}
	if p.curTokenIs(token.COMMA) {
		p.nextToken()
		if stmt.Msg = p.parseTest(); stmt.Msg == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseRaise() ast.Stmt {
	stmt := &ast.Raise{RaisePos: p.curToken.StartPosition}
	p.nextToken()
	if !p.canStartExpr(p.curToken) {
		return stmt
	}
	if stmt.Exc = p.parseTest(); stmt.Exc == nil {
		return nil
	}
	if p.curTokenIs(token.FROM) {
		p.nextToken()
		if stmt.Cause = p.parseTest(); stmt.Cause == nil {
			return nil
		}
	}
	return stmt
}

// parseDottedName parses "a.b.c".
func (p *Parser) parseDottedName(context string) (string, token.Position, bool) {
	name, pos, ok := p.expectName(context)
	if !ok {
		return "", pos, false
	}
	parts := []string{name}
	end := pos.Advance(len(name))
	for p.curTokenIs(token.PERIOD) {
		p.nextToken()
		part, partPos, ok := p.expectName(context)
		if !ok {
			return "", pos, false
		}
		parts = append(parts, part)
		end = partPos.Advance(len(part))
	}
	return strings.Join(parts, "."), end, true
}

func (p *Parser) parseImport() ast.Stmt {
	stmt := &ast.Import{ImportPos: p.curToken.StartPosition}
	p.nextToken()
	for {
		name, end, ok := p.parseDottedName("import statement")
		if !ok {
			return nil
		}
		alias := &ast.Alias{Name: name}
		if p.curTokenIs(token.AS) {
			p.nextToken()
			asName, pos, ok := p.expectName("import statement")
			if !ok {
				return nil
			}
			alias.AsName = asName
			end = pos.Advance(len(asName))
		}
		stmt.Names = append(stmt.Names, alias)
		stmt.NamesEnd = end
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	return stmt
}

func (p *Parser) parseImportFrom() ast.Stmt {
	fromTok := p.curToken
	stmt := &ast.ImportFrom{FromPos: fromTok.StartPosition}
	p.nextToken()
	for p.curTokenIs(token.PERIOD) || p.curTokenIs(token.ELLIPSIS) {
		if p.curTokenIs(token.ELLIPSIS) {
			stmt.Level += 3
		} else {
			stmt.Level++
		}
		p.nextToken()
	}
	if p.curTokenIs(token.NAME) {
		module, _, ok := p.parseDottedName("import statement")
		if !ok {
			return nil
		}
		stmt.Module = module
	} else if stmt.Level == 0 {
		p.unexpected(p.curToken, "import statement")
		return nil
	}
	if !p.expect(token.IMPORT, "import statement") {
		return nil
	}
	if p.curTokenIs(token.ASTERISK) {
		stmt.NamesEnd = p.curToken.StartPosition.Advance(1)
		p.nextToken()
		stmt.Names = []*ast.Alias{{Name: "*"}}
		return stmt
	}
	parenthesized := p.curTokenIs(token.LPAREN)
	if parenthesized {
		p.nextToken()
	}
	for {
		name, pos, ok := p.expectName("import statement")
		if !ok {
			return nil
		}
		alias := &ast.Alias{Name: name}
		stmt.NamesEnd = pos.Advance(len(name))
		if p.curTokenIs(token.AS) {
			p.nextToken()
			asName, asPos, ok := p.expectName("import statement")
			if !ok {
				return nil
			}
			alias.AsName = asName
			stmt.NamesEnd = asPos.Advance(len(asName))
		}
		stmt.Names = append(stmt.Names, alias)
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
		if parenthesized && p.curTokenIs(token.RPAREN) {
			break
		}
	}
	if parenthesized && !p.expect(token.RPAREN, "import statement") {
		return nil
	}
	return stmt
}

// parseExprStatement parses expression statements and every assignment
// form.
func (p *Parser) parseExprStatement() ast.Stmt {
	first := p.parseTestList(true)
	if first == nil {
		return nil
	}
	tok := p.curToken
	switch {
	case tok.Type == token.ASSIGN:
		exprs := []ast.Expr{first}
		for p.curTokenIs(token.ASSIGN) {
			p.nextToken()
			e := p.parseTestList(true)
			if e == nil {
				return nil
			}
			exprs = append(exprs, e)
		}
		targets := exprs[:len(exprs)-1]
		for _, target := range targets {
			if !p.checkTarget(target, "assign to") {
				return nil
			}
		}
		return &ast.Assign{Targets: targets, Value: exprs[len(exprs)-1]}
	case token.AugmentedBase[tok.Type] != "":
		switch first.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		default:
			p.failAt(first.Pos(), errors.E1005, "'%s' is an illegal expression for augmented assignment", describeExpr(first))
			return nil
		}
		p.nextToken()
		value := p.parseTestList(false)
		if value == nil {
			return nil
		}
		return &ast.AugAssign{Target: first, OpPos: tok.StartPosition, Op: token.AugmentedBase[tok.Type], Value: value}
	case tok.Type == token.COLON:
		switch first.(type) {
		case *ast.Name, *ast.Attribute, *ast.Subscript:
		case *ast.Tuple:
			p.failAt(first.Pos(), errors.E1005, "only single target (not tuple) can be annotated")
			return nil
		default:
			p.failAt(first.Pos(), errors.E1005, "illegal target for annotation")
			return nil
		}
		p.nextToken()
		stmt := &ast.AnnAssign{Target: first}
		if stmt.Annotation = p.parseTest(); stmt.Annotation == nil {
			return nil
		}
		if p.curTokenIs(token.ASSIGN) {
			p.nextToken()
			if stmt.Value = p.parseTestList(true); stmt.Value == nil {
				return nil
			}
		}
		return stmt
	}
	if _, ok := first.(*ast.Starred); ok {
		p.failAt(first.Pos(), errors.E1003, "cannot use starred expression here")
		return nil
	}
	return &ast.ExprStmt{X: first}
}

// checkTarget validates an assignment or deletion target.
func (p *Parser) checkTarget(target ast.Expr, action string) bool {
	switch t := target.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		return true
	case *ast.Tuple:
		return p.checkTargetElts(t.Elts, action)
	case *ast.List:
		return p.checkTargetElts(t.Elts, action)
	case *ast.Starred:
		if action == "delete" {
			p.failAt(t.Pos(), errors.E1005, "cannot delete starred")
		} else {
			p.failAt(t.Pos(), errors.E1005, "starred assignment target must be in a list or tuple")
		}
		return false
	}
	p.failAt(target.Pos(), errors.E1005, "cannot %s %s", action, describeExpr(target))
	return false
}

func (p *Parser) checkTargetElts(elts []ast.Expr, action string) bool {
	starred := 0
	for _, elt := range elts {
		if s, ok := elt.(*ast.Starred); ok && action != "delete" {
			starred++
			if starred > 1 {
				p.failAt(s.Pos(), errors.E1005, "multiple starred expressions in assignment")
				return false
			}
			if !p.checkTarget(s.X, action) {
				return false
			}
			continue
		}
		if !p.checkTarget(elt, action) {
			return false
		}
	}
	return true
}

// describeExpr names an expression kind for error messages.
func describeExpr(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Call:
		return "function call"
	case *ast.Constant:
		switch e.Value {
		case nil:
			return "None"
		case true:
			return "True"
		case false:
			return "False"
		}
		return "literal"
	case *ast.JoinedStr:
		return "f-string expression"
	case *ast.Compare:
		return "comparison"
	case *ast.Lambda:
		return "lambda"
	case *ast.IfExp:
		return "conditional expression"
	case *ast.NamedExpr:
		return "named expression"
	case *ast.ListComp:
		return "list comprehension"
	case *ast.SetComp:
		return "set comprehension"
	case *ast.DictComp:
		return "dict comprehension"
	case *ast.GeneratorExp:
		return "generator expression"
	case *ast.Dict:
		return "dict literal"
	case *ast.Set:
		return "set display"
	case *ast.Tuple:
		return "tuple"
	case *ast.List:
		return "list"
	case *ast.Starred:
		return "starred"
	case *ast.Name:
		return "name"
	case *ast.Attribute:
		return "attribute"
	case *ast.Subscript:
		return "subscript"
	}
	return "expression"
}

func (p *Parser) parseIf() ast.Stmt {
	stmt := &ast.If{IfPos: p.curToken.StartPosition}
	p.nextToken() // if or elif
	if stmt.Test = p.parseNamedExpr(); stmt.Test == nil {
		return nil
	}
	if stmt.Body = p.parseBlock("'if' statement"); stmt.Body == nil {
		return nil
	}
	switch p.curToken.Type {
	case token.ELIF:
		elif := p.parseIf()
		if elif == nil {
			return nil
		}
		stmt.OrElse = []ast.Stmt{elif}
	case token.ELSE:
		p.nextToken()
		if stmt.OrElse = p.parseBlock("'else' statement"); stmt.OrElse == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseWhile() ast.Stmt {
	stmt := &ast.While{WhilePos: p.curToken.StartPosition}
	p.nextToken()
	if stmt.Test = p.parseNamedExpr(); stmt.Test == nil {
		return nil
	}
	if stmt.Body = p.parseBlock("'while' statement"); stmt.Body == nil {
		return nil
	}
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		if stmt.OrElse = p.parseBlock("'else' statement"); stmt.OrElse == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseFor() ast.Stmt {
	stmt := &ast.For{ForPos: p.curToken.StartPosition}
	p.nextToken()
	if stmt.Target = p.parseTargetList(); stmt.Target == nil {
		return nil
	}
	if !p.checkTarget(stmt.Target, "assign to") {
		return nil
	}
	if !p.expect(token.IN, "'for' statement") {
		return nil
	}
	if stmt.Iter = p.parseTestList(true); stmt.Iter == nil {
		return nil
	}
	if stmt.Body = p.parseBlock("'for' statement"); stmt.Body == nil {
		return nil
	}
	if p.curTokenIs(token.ELSE) {
		p.nextToken()
		if stmt.OrElse = p.parseBlock("'else' statement"); stmt.OrElse == nil {
			return nil
		}
	}
	return stmt
}

func (p *Parser) parseTry() ast.Stmt {
	stmt := &ast.Try{TryPos: p.curToken.StartPosition}
	p.nextToken()
	if stmt.Body = p.parseBlock("'try' statement"); stmt.Body == nil {
		return nil
	}
	sawBare := false
	for p.curTokenIs(token.EXCEPT) {
		tok := p.curToken
		if sawBare {
			p.fail(tok, errors.E1003, "default 'except:' must be last")
			return nil
		}
		handler := &ast.ExceptHandler{ExceptPos: tok.StartPosition}
		p.nextToken()
		if p.curTokenIs(token.ASTERISK) {
			p.fail(p.curToken, errors.E1003, "'except*' is not supported")
			return nil
		}
		if p.curTokenIs(token.COLON) {
			sawBare = true
		} else {
			if handler.Type = p.parseTest(); handler.Type == nil {
				return nil
			}
			if p.curTokenIs(token.COMMA) {
				p.fail(p.curToken, errors.E1003, "multiple exception types must be parenthesized")
				return nil
			}
			if p.curTokenIs(token.AS) {
				p.nextToken()
				name, _, ok := p.expectName("'except' clause")
				if !ok {
					return nil
				}
				handler.Name = name
			}
		}
		if handler.Body = p.parseBlock("'except' statement"); handler.Body == nil {
			return nil
		}
		stmt.Handlers = append(stmt.Handlers, handler)
	}
	if p.curTokenIs(token.ELSE) {
		if len(stmt.Handlers) == 0 {
			p.fail(p.curToken, errors.E1003, "expected 'except' or 'finally' block")
			return nil
		}
		p.nextToken()
		if stmt.OrElse = p.parseBlock("'else' statement"); stmt.OrElse == nil {
			return nil
		}
	}
	if p.curTokenIs(token.FINALLY) {
		p.nextToken()
		if stmt.Finalbody = p.parseBlock("'finally' statement"); stmt.Finalbody == nil {
			return nil
		}
	}
	if len(stmt.Handlers) == 0 && len(stmt.Finalbody) == 0 {
		p.fail(p.curToken, errors.E1003, "expected 'except' or 'finally' block")
		return nil
	}
	return stmt
}

func (p *Parser) parseWith() ast.Stmt {
	stmt := &ast.With{WithPos: p.curToken.StartPosition}
	p.nextToken()
	for {
		item := &ast.WithItem{}
		if item.ContextExpr = p.parseTest(); item.ContextExpr == nil {
			return nil
		}
		if p.curTokenIs(token.AS) {
			p.nextToken()
			if item.OptionalVars = p.parseExpr(COMPARE); item.OptionalVars == nil {
				return nil
			}
			if !p.checkTarget(item.OptionalVars, "assign to") {
				return nil
			}
		}
		stmt.Items = append(stmt.Items, item)
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if stmt.Body = p.parseBlock("'with' statement"); stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseDecorated parses "@decorator" lines followed by a def or class.
func (p *Parser) parseDecorated() ast.Stmt {
	var decorators []ast.Expr
	for p.curTokenIs(token.AT) {
		p.nextToken()
		d := p.parseNamedExpr()
		if d == nil || !p.expect(token.NEWLINE, "decorator") {
			return nil
		}
		decorators = append(decorators, d)
	}
	switch p.curToken.Type {
	case token.DEF:
		return p.parseFunctionDef(decorators)
	case token.CLASS:
		return p.parseClassDef(decorators)
	}
	p.fail(p.curToken, errors.E1003, "expected 'def' or 'class' after decorator")
	return nil
}

func (p *Parser) parseFunctionDef(decorators []ast.Expr) ast.Stmt {
	stmt := &ast.FunctionDef{DefPos: p.curToken.StartPosition, DecoratorList: decorators}
	p.nextToken()
	name, _, ok := p.expectName("function definition")
	if !ok {
		return nil
	}
	stmt.Name = name
	if !p.expect(token.LPAREN, "function definition") {
		return nil
	}
	if stmt.Args = p.parseParameters(token.RPAREN, true); stmt.Args == nil {
		return nil
	}
	if !p.expect(token.RPAREN, "function definition") {
		return nil
	}
	if p.curTokenIs(token.ARROW) {
		p.nextToken()
		if stmt.Returns = p.parseTest(); stmt.Returns == nil {
			return nil
		}
	}
	if stmt.Body = p.parseBlock("function definition"); stmt.Body == nil {
		return nil
	}
	return stmt
}

// parseParameters parses a parameter list up to, but not including, the
// closer token.
func (p *Parser) parseParameters(closer token.Type, annotations bool) *ast.Arguments {
	args := &ast.Arguments{}
	starSeen, defaultSeen := false, false
	parseParam := func() *ast.Arg {
		name, pos, ok := p.expectName("parameters")
		if !ok {
			return nil
		}
		arg := &ast.Arg{ArgPos: pos, Name: name}
		if annotations && p.curTokenIs(token.COLON) {
			p.nextToken()
			if arg.Annotation = p.parseTest(); arg.Annotation == nil {
				return nil
			}
		}
		return arg
	}
	for !p.curTokenIs(closer) && p.err == nil {
		tok := p.curToken
		if args.Kwarg != nil {
			p.fail(tok, errors.E1003, "arguments cannot follow var-keyword argument")
			return nil
		}
		switch tok.Type {
		case token.ASTERISK:
			if starSeen {
				p.fail(tok, errors.E1003, "* argument may appear only once")
				return nil
			}
			starSeen = true
			p.nextToken()
			if p.curTokenIs(token.NAME) {
				if args.Vararg = parseParam(); args.Vararg == nil {
					return nil
				}
			} else if !p.curTokenIs(token.COMMA) {
				p.fail(tok, errors.E1003, "named arguments must follow bare *")
				return nil
			}
		case token.POW:
			p.nextToken()
			if args.Kwarg = parseParam(); args.Kwarg == nil {
				return nil
			}
		case token.SLASH:
			// Positional-only marker; parameters before it bind the same way.
			if starSeen {
				p.fail(tok, errors.E1003, "/ must be ahead of *")
				return nil
			}
			p.nextToken()
		default:
			arg := parseParam()
			if arg == nil {
				return nil
			}
			var def ast.Expr
			if p.curTokenIs(token.ASSIGN) {
				p.nextToken()
				if def = p.parseTest(); def == nil {
					return nil
				}
			}
			switch {
			case starSeen:
				args.KwOnlyArgs = append(args.KwOnlyArgs, arg)
				args.KwDefaults = append(args.KwDefaults, def)
			case def != nil:
				defaultSeen = true
				args.Args = append(args.Args, arg)
				args.Defaults = append(args.Defaults, def)
			case defaultSeen:
				p.failAt(arg.ArgPos, errors.E1003, "non-default argument follows default argument")
				return nil
			default:
				args.Args = append(args.Args, arg)
			}
		}
		if !p.curTokenIs(token.COMMA) {
			break
		}
		p.nextToken()
	}
	if p.err != nil {
		return nil
	}
	if starSeen && args.Vararg == nil && len(args.KwOnlyArgs) == 0 {
		p.fail(p.curToken, errors.E1003, "named arguments must follow bare *")
		return nil
	}
	return args
}

func (p *Parser) parseClassDef(decorators []ast.Expr) ast.Stmt {
	stmt := &ast.ClassDef{ClassPos: p.curToken.StartPosition, DecoratorList: decorators}
	p.nextToken()
	name, _, ok := p.expectName("class definition")
	if !ok {
		return nil
	}
	stmt.Name = name
	if p.curTokenIs(token.LPAREN) {
		p.nextToken()
		bases, keywords, _, ok := p.parseArguments()
		if !ok {
			return nil
		}
		stmt.Bases = bases
		stmt.Keywords = keywords
	}
	if stmt.Body = p.parseBlock("class definition"); stmt.Body == nil {
		return nil
	}
	return stmt
}
