package compiler

import (
	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
	"github.com/deepnoodle-ai/slither/op"
)

func (c *Compiler) compileExpr(expr ast.Expr) error {
	c.setPos(expr.Pos())
	switch e := expr.(type) {
	case *ast.Constant:
		c.loadConst(constantValue(e.Value))
	case *ast.Name:
		c.nameOp(e.Id, loadName)
	case *ast.BinOp:
		return c.compileBinOp(e)
	case *ast.UnaryOp:
		return c.compileUnaryOp(e)
	case *ast.BoolOp:
		return c.compileBoolOp(e)
	case *ast.Compare:
		return c.compileCompare(e)
	case *ast.Call:
		return c.compileCall(e)
	case *ast.Attribute:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		c.setPos(e.AttrPos)
		c.emit(op.LoadAttr, c.cur.addName(e.Attr))
	case *ast.Subscript:
		if err := c.compileExpr(e.X); err != nil {
			return err
		}
		if err := c.compileExpr(e.Index); err != nil {
			return err
		}
		c.setPos(e.Lbrack)
		c.emit(op.BinarySubscr)
	case *ast.Slice:
		return c.compileSlice(e)
	case *ast.IfExp:
		return c.compileIfExp(e)
	case *ast.Lambda:
		return c.compileLambda(e)
	case *ast.NamedExpr:
		if err := c.compileExpr(e.Value); err != nil {
			return err
		}
		c.emit(op.DupTop)
		return c.compileStore(e.Target)
	case *ast.Starred:
		return c.errorAt(e.StarPos, errors.E2010, "can't use starred expression here")
	case *ast.List:
		return c.compileSequence(e.Elts, op.BuildList)
	case *ast.Tuple:
		if tuple, ok := constantTuple(e.Elts); ok {
			c.loadConst(tuple)
			return nil
		}
		return c.compileSequence(e.Elts, op.BuildTuple)
	case *ast.Set:
		return c.compileSequence(e.Elts, op.BuildSet)
	case *ast.Dict:
		return c.compileDict(e)
	case *ast.JoinedStr:
		return c.compileJoinedStr(e)
	case *ast.FormattedValue:
		return c.compileFormattedValue(e)
	case *ast.ListComp:
		return c.compileComprehension(op.BuildList, e.Generators, e.Elt)
	case *ast.GeneratorExp:
		return c.compileComprehension(op.BuildList, e.Generators, e.Elt)
	case *ast.SetComp:
		return c.compileComprehension(op.BuildSet, e.Generators, e.Elt)
	case *ast.DictComp:
		return c.compileComprehension(op.BuildDict, e.Generators, e.Key, e.Value)
	default:
		return c.errorAt(expr.Pos(), errors.E2012, "unsupported expression %s", describe(expr))
	}
	return nil
}

// constantValue converts a literal value into its code object constant.
func constantValue(value any) any {
	switch v := value.(type) {
	case ast.Bytes:
		return bytecode.Bytes(v)
	case ast.EllipsisValue:
		return bytecode.Ellipsis{}
	default:
		return value
	}
}

// constantTuple folds a tuple display of literals into a single constant.
func constantTuple(elts []ast.Expr) (bytecode.Tuple, bool) {
	if len(elts) == 0 {
		return bytecode.Tuple{}, true
	}
	tuple := make(bytecode.Tuple, 0, len(elts))
	for _, elt := range elts {
		switch e := elt.(type) {
		case *ast.Constant:
			tuple = append(tuple, constantValue(e.Value))
		case *ast.Tuple:
			inner, ok := constantTuple(e.Elts)
			if !ok {
				return nil, false
			}
			tuple = append(tuple, inner)
		default:
			return nil, false
		}
	}
	return tuple, true
}

func (c *Compiler) compileBinOp(e *ast.BinOp) error {
	opcode, ok := binaryOps[e.Op]
	if !ok {
		return c.errorAt(e.OpPos, errors.E2012, "unsupported binary operator %s", e.Op)
	}
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if err := c.compileExpr(e.Right); err != nil {
		return err
	}
	c.setPos(e.OpPos)
	c.emit(opcode)
	return nil
}

var unaryOps = map[token.Type]op.Code{
	token.MINUS: op.UnaryNegative,
	token.PLUS:  op.UnaryPositive,
	token.TILDE: op.UnaryInvert,
	token.NOT:   op.UnaryNot,
}

func (c *Compiler) compileUnaryOp(e *ast.UnaryOp) error {
	opcode, ok := unaryOps[e.Op]
	if !ok {
		return c.errorAt(e.OpPos, errors.E2012, "unsupported unary operator %s", e.Op)
	}
	if err := c.compileExpr(e.X); err != nil {
		return err
	}
	c.setPos(e.OpPos)
	c.emit(opcode)
	return nil
}

func (c *Compiler) compileBoolOp(e *ast.BoolOp) error {
	jumpOp := op.JumpIfFalseOrPop
	if e.Op == token.OR {
		jumpOp = op.JumpIfTrueOrPop
	}
	var jumps []int
	for i, value := range e.Values {
		if err := c.compileExpr(value); err != nil {
			return err
		}
		if i < len(e.Values)-1 {
			jumps = append(jumps, c.emitJump(jumpOp, int(Placeholder)))
		}
	}
	for _, pos := range jumps {
		c.patchJump(pos)
	}
	return nil
}

var compareOps = map[ast.CmpOp]op.CompareOpType{
	ast.Lt:    op.LessThan,
	ast.LtE:   op.LessThanOrEqual,
	ast.Eq:    op.Equal,
	ast.NotEq: op.NotEqual,
	ast.Gt:    op.GreaterThan,
	ast.GtE:   op.GreaterThanOrEqual,
}

func (c *Compiler) emitCompare(cmp ast.CmpOp) {
	switch cmp {
	case ast.In:
		c.emit(op.ContainsOp, 0)
	case ast.NotIn:
		c.emit(op.ContainsOp, 1)
	case ast.Is:
		c.emit(op.IsOp, 0)
	case ast.IsNot:
		c.emit(op.IsOp, 1)
	default:
		c.emit(op.CompareOp, uint16(compareOps[cmp]))
	}
}

// compileCompare compiles a comparison. A chain a < b < c evaluates b once
// and stops at the first false comparison.
func (c *Compiler) compileCompare(e *ast.Compare) error {
	if err := c.compileExpr(e.Left); err != nil {
		return err
	}
	if len(e.Ops) == 1 {
		if err := c.compileExpr(e.Comparators[0]); err != nil {
			return err
		}
		c.emitCompare(e.Ops[0])
		return nil
	}
	var cleanups []int
	last := len(e.Ops) - 1
	for i := 0; i < last; i++ {
		if err := c.compileExpr(e.Comparators[i]); err != nil {
			return err
		}
		c.emit(op.DupTop)
		c.emit(op.RotThree)
		c.emitCompare(e.Ops[i])
		cleanups = append(cleanups, c.emitJump(op.JumpIfFalseOrPop, int(Placeholder)))
	}
	if err := c.compileExpr(e.Comparators[last]); err != nil {
		return err
	}
	c.emitCompare(e.Ops[last])
	jumpEnd := c.emitJump(op.Jump, int(Placeholder))
	for _, pos := range cleanups {
		c.patchJump(pos)
	}
	c.emit(op.RotTwo)
	c.emit(op.PopTop)
	c.patchJump(jumpEnd)
	return nil
}

func (c *Compiler) compileCall(e *ast.Call) error {
	if err := c.compileExpr(e.Func); err != nil {
		return err
	}
	dynamic := false
	for _, arg := range e.Args {
		if _, ok := arg.(*ast.Starred); ok {
			dynamic = true
		}
	}
	for _, kw := range e.Keywords {
		if kw.Arg == "" {
			dynamic = true
		}
	}
	if dynamic {
		return c.compileCallEx(e)
	}
	for _, arg := range e.Args {
		if err := c.compileExpr(arg); err != nil {
			return err
		}
	}
	if len(e.Keywords) == 0 {
		c.setPos(e.Lparen)
		c.emit(op.Call, uint16(len(e.Args)))
		return nil
	}
	names := make(bytecode.Tuple, 0, len(e.Keywords))
	for _, kw := range e.Keywords {
		if err := c.compileExpr(kw.Value); err != nil {
			return err
		}
		names = append(names, kw.Arg)
	}
	c.loadConst(names)
	c.setPos(e.Lparen)
	c.emit(op.CallKw, uint16(len(e.Args)+len(e.Keywords)))
	return nil
}

// compileCallEx compiles a call with *args or **kwargs. The positional
// arguments are collected into a tuple and the keywords into a dict.
func (c *Compiler) compileCallEx(e *ast.Call) error {
	c.emit(op.BuildList, 0)
	for _, arg := range e.Args {
		if s, ok := arg.(*ast.Starred); ok {
			if err := c.compileExpr(s.X); err != nil {
				return err
			}
			c.emit(op.ListExtend, 1)
			continue
		}
		if err := c.compileExpr(arg); err != nil {
			return err
		}
		c.emit(op.ListAppend, 1)
	}
	c.emit(op.ListToTuple)
	flags := uint16(0)
	if len(e.Keywords) > 0 {
		flags = 1
		c.emit(op.BuildDict, 0)
		for _, kw := range e.Keywords {
			if kw.Arg == "" {
				if err := c.compileExpr(kw.Value); err != nil {
					return err
				}
				c.emit(op.DictMerge, 1)
				continue
			}
			c.loadConst(kw.Arg)
			if err := c.compileExpr(kw.Value); err != nil {
				return err
			}
			c.emit(op.MapAdd, 1)
		}
	}
	c.setPos(e.Lparen)
	c.emit(op.CallEx, flags)
	return nil
}

func (c *Compiler) compileSlice(e *ast.Slice) error {
	for _, part := range []ast.Expr{e.Lower, e.Upper} {
		if part == nil {
			c.loadConst(nil)
			continue
		}
		if err := c.compileExpr(part); err != nil {
			return err
		}
	}
	if e.Step == nil {
		c.emit(op.BuildSlice, 2)
		return nil
	}
	if err := c.compileExpr(e.Step); err != nil {
		return err
	}
	c.emit(op.BuildSlice, 3)
	return nil
}

func (c *Compiler) compileIfExp(e *ast.IfExp) error {
	if err := c.compileExpr(e.Test); err != nil {
		return err
	}
	jumpElse := c.emitJump(op.PopJumpIfFalse, int(Placeholder))
	if err := c.compileExpr(e.Body); err != nil {
		return err
	}
	jumpEnd := c.emitJump(op.Jump, int(Placeholder))
	c.patchJump(jumpElse)
	if err := c.compileExpr(e.OrElse); err != nil {
		return err
	}
	c.patchJump(jumpEnd)
	return nil
}

// compileSequence compiles a list, tuple or set display. Displays with
// starred elements are built incrementally.
func (c *Compiler) compileSequence(elts []ast.Expr, build op.Code) error {
	starred := false
	for _, elt := range elts {
		if _, ok := elt.(*ast.Starred); ok {
			starred = true
		}
	}
	if !starred {
		for _, elt := range elts {
			if err := c.compileExpr(elt); err != nil {
				return err
			}
		}
		c.emit(build, uint16(len(elts)))
		return nil
	}
	container, add, extend := op.BuildList, op.ListAppend, op.ListExtend
	if build == op.BuildSet {
		container, add, extend = op.BuildSet, op.SetAdd, op.SetUpdate
	}
	c.emit(container, 0)
	for _, elt := range elts {
		if s, ok := elt.(*ast.Starred); ok {
			if err := c.compileExpr(s.X); err != nil {
				return err
			}
			c.emit(extend, 1)
			continue
		}
		if err := c.compileExpr(elt); err != nil {
			return err
		}
		c.emit(add, 1)
	}
	if build == op.BuildTuple {
		c.emit(op.ListToTuple)
	}
	return nil
}

func (c *Compiler) compileDict(e *ast.Dict) error {
	unpacking := false
	for _, key := range e.Keys {
		if key == nil {
			unpacking = true
		}
	}
	if !unpacking {
		for i := range e.Keys {
			if err := c.compileExpr(e.Keys[i]); err != nil {
				return err
			}
			if err := c.compileExpr(e.Values[i]); err != nil {
				return err
			}
		}
		c.emit(op.BuildDict, uint16(len(e.Keys)))
		return nil
	}
	c.emit(op.BuildDict, 0)
	for i, key := range e.Keys {
		if key == nil {
			if err := c.compileExpr(e.Values[i]); err != nil {
				return err
			}
			c.emit(op.DictUpdate, 1)
			continue
		}
		if err := c.compileExpr(key); err != nil {
			return err
		}
		if err := c.compileExpr(e.Values[i]); err != nil {
			return err
		}
		c.emit(op.MapAdd, 1)
	}
	return nil
}

func (c *Compiler) compileJoinedStr(e *ast.JoinedStr) error {
	if len(e.Values) == 0 {
		c.loadConst("")
		return nil
	}
	for _, value := range e.Values {
		if err := c.compileExpr(value); err != nil {
			return err
		}
	}
	if len(e.Values) > 1 {
		c.emit(op.BuildString, uint16(len(e.Values)))
	}
	return nil
}

func (c *Compiler) compileFormattedValue(e *ast.FormattedValue) error {
	if err := c.compileExpr(e.Value); err != nil {
		return err
	}
	var flags uint16
	switch e.Conversion {
	case 's':
		flags = op.FormatStr
	case 'r':
		flags = op.FormatRepr
	case 'a':
		flags = op.FormatASCII
	}
	if e.FormatSpec != nil {
		if err := c.compileExpr(e.FormatSpec); err != nil {
			return err
		}
		flags |= op.FormatWithSpec
	}
	c.emit(op.FormatValue, flags)
	return nil
}

// compileComprehension compiles a comprehension inline. The container is
// built first, then one GetIter/ForIter loop per for clause. The element is
// added to the container, which sits below one iterator per clause.
func (c *Compiler) compileComprehension(build op.Code, gens []*ast.Comprehension, elts ...ast.Expr) error {
	c.emit(build, 0)
	type level struct {
		start int
		exit  int
	}
	levels := make([]level, 0, len(gens))
	for _, gen := range gens {
		if err := c.compileExpr(gen.Iter); err != nil {
			return err
		}
		c.setPos(gen.ForPos)
		c.emit(op.GetIter)
		start := c.currentPosition()
		exit := c.emitJump(op.ForIter, int(Placeholder))
		if err := c.compileStore(gen.Target); err != nil {
			return err
		}
		for _, cond := range gen.Ifs {
			if err := c.compileExpr(cond); err != nil {
				return err
			}
			c.emitJump(op.PopJumpIfFalse, start)
		}
		levels = append(levels, level{start: start, exit: exit})
	}
	for _, elt := range elts {
		if err := c.compileExpr(elt); err != nil {
			return err
		}
	}
	depth := uint16(len(gens) + 1)
	switch build {
	case op.BuildList:
		c.emit(op.ListAppend, depth)
	case op.BuildSet:
		c.emit(op.SetAdd, depth)
	case op.BuildDict:
		c.emit(op.MapAdd, depth)
	}
	for i := len(levels) - 1; i >= 0; i-- {
		c.emitJump(op.Jump, levels[i].start)
		c.patchJump(levels[i].exit)
	}
	return nil
}
