package compiler

import (
	"strings"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
	"github.com/deepnoodle-ai/slither/op"
)

func (c *Compiler) compileStmts(stmts []ast.Stmt) error {
	for _, stmt := range stmts {
		if err := c.compileStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) error {
	c.setPos(stmt.Pos())
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		// Constant statements, including docstrings, have no effect
		if _, ok := s.X.(*ast.Constant); ok {
			return nil
		}
		if err := c.compileExpr(s.X); err != nil {
			return err
		}
		c.emit(op.PopTop)
	case *ast.Assign:
		return c.compileAssign(s)
	case *ast.AugAssign:
		return c.compileAugAssign(s)
	case *ast.AnnAssign:
		return c.compileAnnAssign(s)
	case *ast.Delete:
		for _, target := range s.Targets {
			if err := c.compileDelete(target); err != nil {
				return err
			}
		}
	case *ast.Pass, *ast.Global, *ast.Nonlocal:
	case *ast.Return:
		return c.compileReturn(s)
	case *ast.Break:
		return c.compileBreak(s)
	case *ast.Continue:
		return c.compileContinue(s)
	case *ast.Raise:
		return c.compileRaise(s)
	case *ast.Assert:
		return c.compileAssert(s)
	case *ast.If:
		return c.compileIf(s)
	case *ast.While:
		return c.compileWhile(s)
	case *ast.For:
		return c.compileFor(s)
	case *ast.Try:
		return c.compileTry(s)
	case *ast.With:
		return c.compileWith(s, 0)
	case *ast.FunctionDef:
		return c.compileFunctionDef(s)
	case *ast.ClassDef:
		return c.compileClassDef(s)
	case *ast.Import:
		return c.compileImport(s)
	case *ast.ImportFrom:
		return c.compileImportFrom(s)
	default:
		return c.errorf(errors.E2012, "unsupported statement %T", stmt)
	}
	return nil
}

func (c *Compiler) compileAssign(s *ast.Assign) error {
	if err := c.compileExpr(s.Value); err != nil {
		return err
	}
	for i, target := range s.Targets {
		if i < len(s.Targets)-1 {
			c.emit(op.DupTop)
		}
		if err := c.compileStore(target); err != nil {
			return err
		}
	}
	return nil
}

var binaryOps = map[token.Type]op.Code{
	token.PLUS:         op.BinaryAdd,
	token.MINUS:        op.BinarySubtract,
	token.ASTERISK:     op.BinaryMultiply,
	token.SLASH:        op.BinaryTrueDivide,
	token.DOUBLE_SLASH: op.BinaryFloorDivide,
	token.PERCENT:      op.BinaryMod,
	token.POW:          op.BinaryPower,
	token.LT_LT:        op.BinaryLShift,
	token.GT_GT:        op.BinaryRShift,
	token.AMPERSAND:    op.BinaryAnd,
	token.PIPE:         op.BinaryOr,
	token.CARET:        op.BinaryXor,
	token.AT:           op.BinaryMatMul,
}

var augmentedOps = map[token.Type]op.Code{
	token.PLUS_EQUALS:      op.BinaryAdd,
	token.MINUS_EQUALS:     op.BinarySubtract,
	token.ASTERISK_EQUALS:  op.BinaryMultiply,
	token.SLASH_EQUALS:     op.BinaryTrueDivide,
	token.DOUBLE_SLASH_EQ:  op.BinaryFloorDivide,
	token.PERCENT_EQUALS:   op.BinaryMod,
	token.POW_EQUALS:       op.BinaryPower,
	token.LT_LT_EQUALS:     op.BinaryLShift,
	token.GT_GT_EQUALS:     op.BinaryRShift,
	token.AMPERSAND_EQUALS: op.BinaryAnd,
	token.PIPE_EQUALS:      op.BinaryOr,
	token.CARET_EQUALS:     op.BinaryXor,
	token.AT_EQUALS:        op.BinaryMatMul,
}

func (c *Compiler) compileAugAssign(s *ast.AugAssign) error {
	opcode, ok := augmentedOps[s.Op]
	if !ok {
		opcode, ok = binaryOps[s.Op]
	}
	if !ok {
		return c.errorAt(s.OpPos, errors.E2012, "unsupported augmented operator %s", s.Op)
	}
	switch target := s.Target.(type) {
	case *ast.Name:
		c.nameOp(target.Id, loadName)
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(op.InplaceOp, uint16(opcode))
		c.setPos(target.Pos())
		c.nameOp(target.Id, storeName)
	case *ast.Attribute:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		c.emit(op.DupTop)
		c.emit(op.LoadAttr, c.cur.addName(target.Attr))
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(op.InplaceOp, uint16(opcode))
		c.emit(op.RotTwo)
		c.emit(op.StoreAttr, c.cur.addName(target.Attr))
	case *ast.Subscript:
		if err := c.compileExpr(target.X); err != nil {
			return err
		}
		if err := c.compileExpr(target.Index); err != nil {
			return err
		}
		c.emit(op.DupTopTwo)
		c.emit(op.BinarySubscr)
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		c.emit(op.InplaceOp, uint16(opcode))
		c.emit(op.RotThree)
		c.emit(op.StoreSubscr)
	default:
		return c.errorAt(s.Target.Pos(), errors.E2010,
			"'%s' is an illegal expression for augmented assignment", describe(s.Target))
	}
	return nil
}

// compileAnnAssign compiles an annotated assignment. Outside functions the
// annotation is evaluated and discarded.
func (c *Compiler) compileAnnAssign(s *ast.AnnAssign) error {
	if err := c.checkTarget(s.Target); err != nil {
		return err
	}
	if s.Value != nil {
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
		if err := c.compileStore(s.Target); err != nil {
			return err
		}
	}
	if c.cur.scope.kind != functionScope {
		if err := c.compileExpr(s.Annotation); err != nil {
			return err
		}
		c.emit(op.PopTop)
	}
	return nil
}

// checkTarget validates an assignment target without emitting code.
func (c *Compiler) checkTarget(target ast.Expr) error {
	switch target.(type) {
	case *ast.Name, *ast.Attribute, *ast.Subscript:
		return nil
	}
	return c.errorAt(target.Pos(), errors.E2010, "illegal target for annotation")
}

// compileStore stores the value on top of the stack into target.
func (c *Compiler) compileStore(target ast.Expr) error {
	c.setPos(target.Pos())
	switch t := target.(type) {
	case *ast.Name:
		c.nameOp(t.Id, storeName)
	case *ast.Attribute:
		if err := c.compileExpr(t.X); err != nil {
			return err
		}
		c.setPos(t.AttrPos)
		c.emit(op.StoreAttr, c.cur.addName(t.Attr))
	case *ast.Subscript:
		if err := c.compileExpr(t.X); err != nil {
			return err
		}
		if err := c.compileExpr(t.Index); err != nil {
			return err
		}
		c.emit(op.StoreSubscr)
	case *ast.Tuple:
		return c.compileUnpack(t.Elts)
	case *ast.List:
		return c.compileUnpack(t.Elts)
	case *ast.Starred:
		return c.errorAt(t.StarPos, errors.E2010, "starred assignment target must be in a list or tuple")
	default:
		return c.errorAt(target.Pos(), errors.E2010, "cannot assign to %s", describe(target))
	}
	return nil
}

func (c *Compiler) compileUnpack(elts []ast.Expr) error {
	starred := -1
	for i, elt := range elts {
		if _, ok := elt.(*ast.Starred); ok {
			if starred >= 0 {
				return c.errorAt(elt.Pos(), errors.E2010, "multiple starred expressions in assignment")
			}
			starred = i
		}
	}
	if starred >= 0 {
		before, after := starred, len(elts)-starred-1
		if before > 0xff || after > 0xff {
			return c.errorf(errors.E2010, "too many expressions in star-unpacking assignment")
		}
		c.emit(op.UnpackEx, uint16(before|after<<8))
	} else {
		c.emit(op.UnpackSequence, uint16(len(elts)))
	}
	for _, elt := range elts {
		if s, ok := elt.(*ast.Starred); ok {
			elt = s.X
		}
		if err := c.compileStore(elt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileDelete(target ast.Expr) error {
	c.setPos(target.Pos())
	switch t := target.(type) {
	case *ast.Name:
		c.nameOp(t.Id, deleteName)
	case *ast.Attribute:
		if err := c.compileExpr(t.X); err != nil {
			return err
		}
		c.emit(op.DeleteAttr, c.cur.addName(t.Attr))
	case *ast.Subscript:
		if err := c.compileExpr(t.X); err != nil {
			return err
		}
		if err := c.compileExpr(t.Index); err != nil {
			return err
		}
		c.emit(op.DeleteSubscr)
	case *ast.Tuple:
		for _, elt := range t.Elts {
			if err := c.compileDelete(elt); err != nil {
				return err
			}
		}
	case *ast.List:
		for _, elt := range t.Elts {
			if err := c.compileDelete(elt); err != nil {
				return err
			}
		}
	default:
		return c.errorAt(target.Pos(), errors.E2010, "cannot delete %s", describe(target))
	}
	return nil
}

func (c *Compiler) compileReturn(s *ast.Return) error {
	if c.cur.scope.kind != functionScope {
		return c.errorAt(s.ReturnPos, errors.E2005, "'return' outside function")
	}
	if s.Value != nil {
		if err := c.compileExpr(s.Value); err != nil {
			return err
		}
	} else {
		c.loadConst(nil)
	}
	if err := c.unwindAll(true); err != nil {
		return err
	}
	c.setPos(s.ReturnPos)
	c.emit(op.Return)
	return nil
}

func (c *Compiler) compileRaise(s *ast.Raise) error {
	argc := uint16(0)
	if s.Exc != nil {
		if err := c.compileExpr(s.Exc); err != nil {
			return err
		}
		argc++
		if s.Cause != nil {
			if err := c.compileExpr(s.Cause); err != nil {
				return err
			}
			argc++
		}
	}
	c.setPos(s.RaisePos)
	c.emit(op.Raise, argc)
	return nil
}

func (c *Compiler) compileAssert(s *ast.Assert) error {
	if c.optimize >= 1 {
		return nil
	}
	if err := c.compileExpr(s.Test); err != nil {
		return err
	}
	jump := c.emitJump(op.PopJumpIfTrue, int(Placeholder))
	c.setPos(s.AssertPos)
	c.emit(op.LoadGlobal, c.cur.addName("AssertionError"))
	if s.Msg != nil {
		if err := c.compileExpr(s.Msg); err != nil {
			return err
		}
		c.emit(op.Call, 1)
	}
	c.emit(op.Raise, 1)
	c.patchJump(jump)
	return nil
}

func (c *Compiler) compileIf(s *ast.If) error {
	if err := c.compileExpr(s.Test); err != nil {
		return err
	}
	jumpElse := c.emitJump(op.PopJumpIfFalse, int(Placeholder))
	if err := c.compileStmts(s.Body); err != nil {
		return err
	}
	if len(s.OrElse) == 0 {
		c.patchJump(jumpElse)
		return nil
	}
	jumpEnd := c.emitJump(op.Jump, int(Placeholder))
	c.patchJump(jumpElse)
	if err := c.compileStmts(s.OrElse); err != nil {
		return err
	}
	c.patchJump(jumpEnd)
	return nil
}

func (c *Compiler) compileWhile(s *ast.While) error {
	start := c.currentPosition()
	if err := c.compileExpr(s.Test); err != nil {
		return err
	}
	jumpElse := c.emitJump(op.PopJumpIfFalse, int(Placeholder))
	loop := c.pushBlock(&fblock{kind: whileLoop, start: start})
	if err := c.compileStmts(s.Body); err != nil {
		return err
	}
	c.popBlock()
	c.emitJump(op.Jump, start)
	c.patchJump(jumpElse)
	if err := c.compileStmts(s.OrElse); err != nil {
		return err
	}
	loop.patchBreaks(c)
	return nil
}

func (c *Compiler) compileFor(s *ast.For) error {
	if err := c.compileExpr(s.Iter); err != nil {
		return err
	}
	c.setPos(s.ForPos)
	c.emit(op.GetIter)
	start := c.currentPosition()
	jumpElse := c.emitJump(op.ForIter, int(Placeholder))
	if err := c.compileStore(s.Target); err != nil {
		return err
	}
	loop := c.pushBlock(&fblock{kind: forLoop, start: start})
	if err := c.compileStmts(s.Body); err != nil {
		return err
	}
	c.popBlock()
	c.emitJump(op.Jump, start)
	c.patchJump(jumpElse)
	if err := c.compileStmts(s.OrElse); err != nil {
		return err
	}
	loop.patchBreaks(c)
	return nil
}

func (c *Compiler) compileBreak(s *ast.Break) error {
	loop, err := c.unwindToLoop()
	if err != nil {
		return err
	}
	if loop == nil {
		return c.errorAt(s.BreakPos, errors.E2003, "'break' outside loop")
	}
	if loop.kind == forLoop {
		c.emit(op.PopTop)
	}
	loop.breaks = append(loop.breaks, c.emitJump(op.Jump, int(Placeholder)))
	return nil
}

func (c *Compiler) compileContinue(s *ast.Continue) error {
	loop, err := c.unwindToLoop()
	if err != nil {
		return err
	}
	if loop == nil {
		return c.errorAt(s.ContinuePos, errors.E2004, "'continue' not properly in loop")
	}
	c.emitJump(op.Jump, loop.start)
	return nil
}

func (c *Compiler) compileImport(s *ast.Import) error {
	for _, alias := range s.Names {
		c.loadConst(int64(0))
		c.loadConst(nil)
		c.emit(op.ImportName, c.cur.addName(alias.Name))
		if alias.AsName == "" {
			top, _, _ := strings.Cut(alias.Name, ".")
			c.nameOp(top, storeName)
			continue
		}
		// Walk from the top-level package down to the leaf module
		parts := strings.Split(alias.Name, ".")
		for _, part := range parts[1:] {
			c.emit(op.ImportFrom, c.cur.addName(part))
			c.emit(op.RotTwo)
			c.emit(op.PopTop)
		}
		c.nameOp(alias.AsName, storeName)
	}
	return nil
}

func (c *Compiler) compileImportFrom(s *ast.ImportFrom) error {
	fromList := make(bytecode.Tuple, 0, len(s.Names))
	for _, alias := range s.Names {
		fromList = append(fromList, alias.Name)
	}
	c.loadConst(int64(s.Level))
	c.loadConst(fromList)
	c.emit(op.ImportName, c.cur.addName(s.Module))
	if len(s.Names) == 1 && s.Names[0].Name == "*" {
		c.emit(op.ImportStar)
		return nil
	}
	for _, alias := range s.Names {
		c.emit(op.ImportFrom, c.cur.addName(alias.Name))
		name := alias.AsName
		if name == "" {
			name = alias.Name
		}
		c.nameOp(name, storeName)
	}
	c.emit(op.PopTop)
	return nil
}
