package compiler

import (
	"slices"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/op"
)

type fblockKind int

const (
	whileLoop fblockKind = iota
	forLoop
	tryExcept
	finallyTry
	finallyEnd
	handlerCleanup
	withBlock
)

// fblock is a frame block: a region of code that needs cleanup when
// control leaves it through return, break or continue.
type fblock struct {
	kind fblockKind

	// Loops: the continue target and the break jumps to patch
	start  int
	breaks []int

	// finallyTry: the finally body to inline on early exit
	finalbody []ast.Stmt

	// handlerCleanup: the name bound by "except E as name"
	name string
}

func (b *fblock) isLoop() bool {
	return b.kind == whileLoop || b.kind == forLoop
}

func (b *fblock) patchBreaks(c *Compiler) {
	for _, pos := range b.breaks {
		c.patchJump(pos)
	}
}

func (c *Compiler) pushBlock(b *fblock) *fblock {
	c.cur.fblocks = append(c.cur.fblocks, b)
	return b
}

func (c *Compiler) popBlock() *fblock {
	blocks := c.cur.fblocks
	b := blocks[len(blocks)-1]
	c.cur.fblocks = blocks[:len(blocks)-1]
	return b
}

// unwindBlock emits the cleanup for leaving b early. With preserveTOS the
// value on top of the stack (a return value) is kept above the cleanup.
func (c *Compiler) unwindBlock(b *fblock, preserveTOS bool) error {
	switch b.kind {
	case whileLoop:
	case forLoop:
		if preserveTOS {
			c.emit(op.RotTwo)
		}
		c.emit(op.PopTop)
	case tryExcept:
		c.emit(op.PopBlock)
	case finallyTry:
		c.emit(op.PopBlock)
		// The finally body runs outside its own protected region
		c.popBlock()
		err := c.compileStmts(b.finalbody)
		c.pushBlock(b)
		return err
	case finallyEnd:
		if preserveTOS {
			c.emit(op.RotTwo)
		}
		c.emit(op.PopTop)
		c.emit(op.PopExcept)
	case handlerCleanup:
		c.emit(op.PopExcept)
		if b.name != "" {
			c.clearHandlerName(b.name)
		}
	case withBlock:
		c.emit(op.PopBlock)
		if preserveTOS {
			c.emit(op.RotTwo)
		}
		c.callExitWithNone()
	}
	return nil
}

// unwindAll unwinds every frame block of the current unit, innermost first.
func (c *Compiler) unwindAll(preserveTOS bool) error {
	blocks := c.cur.fblocks
	for i := len(blocks) - 1; i >= 0; i-- {
		// Unwinding may inline finally bodies, so the stack is trimmed to
		// the blocks still enclosing the one being unwound.
		saved := c.cur.fblocks
		c.cur.fblocks = slices.Clone(blocks[:i+1])
		err := c.unwindBlock(blocks[i], preserveTOS)
		c.cur.fblocks = saved
		if err != nil {
			return err
		}
	}
	return nil
}

// unwindToLoop unwinds the frame blocks inside the innermost loop and
// returns that loop, or nil when there is no enclosing loop.
func (c *Compiler) unwindToLoop() (*fblock, error) {
	blocks := c.cur.fblocks
	loop := -1
	for i := len(blocks) - 1; i >= 0; i-- {
		if blocks[i].isLoop() {
			loop = i
			break
		}
	}
	if loop < 0 {
		return nil, nil
	}
	for i := len(blocks) - 1; i > loop; i-- {
		saved := c.cur.fblocks
		c.cur.fblocks = slices.Clone(blocks[:i+1])
		err := c.unwindBlock(blocks[i], false)
		c.cur.fblocks = saved
		if err != nil {
			return nil, err
		}
	}
	return blocks[loop], nil
}

func (c *Compiler) callExitWithNone() {
	c.loadConst(nil)
	c.emit(op.DupTop)
	c.emit(op.DupTop)
	c.emit(op.Call, 3)
	c.emit(op.PopTop)
}

func (c *Compiler) clearHandlerName(name string) {
	c.loadConst(nil)
	c.nameOp(name, storeName)
	c.nameOp(name, deleteName)
}

func (c *Compiler) compileTry(s *ast.Try) error {
	if len(s.Finalbody) == 0 {
		return c.compileTryExcept(s)
	}
	setup := c.emitJump(op.SetupFinally, int(Placeholder))
	c.pushBlock(&fblock{kind: finallyTry, finalbody: s.Finalbody})
	var err error
	if len(s.Handlers) > 0 {
		err = c.compileTryExcept(s)
	} else {
		err = c.compileStmts(s.Body)
	}
	if err != nil {
		return err
	}
	c.popBlock()
	c.emit(op.PopBlock)
	if err := c.compileStmts(s.Finalbody); err != nil {
		return err
	}
	jumpEnd := c.emitJump(op.Jump, int(Placeholder))

	// Exceptional path: the exception is on top of the stack
	c.patchJump(setup)
	c.pushBlock(&fblock{kind: finallyEnd})
	if err := c.compileStmts(s.Finalbody); err != nil {
		return err
	}
	c.popBlock()
	c.emit(op.Reraise)
	c.patchJump(jumpEnd)
	return nil
}

func (c *Compiler) compileTryExcept(s *ast.Try) error {
	c.setPos(s.TryPos)
	setup := c.emitJump(op.SetupExcept, int(Placeholder))
	c.pushBlock(&fblock{kind: tryExcept})
	if err := c.compileStmts(s.Body); err != nil {
		return err
	}
	c.popBlock()
	c.emit(op.PopBlock)
	if err := c.compileStmts(s.OrElse); err != nil {
		return err
	}
	var exits []int
	exits = append(exits, c.emitJump(op.Jump, int(Placeholder)))

	// Handlers: the exception is on top of the stack
	c.patchJump(setup)
	for _, h := range s.Handlers {
		c.setPos(h.ExceptPos)
		next := -1
		if h.Type != nil {
			if err := c.compileExpr(h.Type); err != nil {
				return err
			}
			c.emit(op.CheckExcMatch)
			next = c.emitJump(op.PopJumpIfFalse, int(Placeholder))
		}
		if h.Name != "" {
			c.nameOp(h.Name, storeName)
		} else {
			c.emit(op.PopTop)
		}
		c.pushBlock(&fblock{kind: handlerCleanup, name: h.Name})
		if err := c.compileStmts(h.Body); err != nil {
			return err
		}
		c.popBlock()
		c.emit(op.PopExcept)
		if h.Name != "" {
			c.clearHandlerName(h.Name)
		}
		exits = append(exits, c.emitJump(op.Jump, int(Placeholder)))
		if next >= 0 {
			c.patchJump(next)
		}
	}
	// No handler matched
	c.emit(op.Reraise)
	for _, pos := range exits {
		c.patchJump(pos)
	}
	return nil
}

// compileWith compiles the with statement items starting at index i. Each
// item nests the remaining ones inside its own block.
func (c *Compiler) compileWith(s *ast.With, i int) error {
	item := s.Items[i]
	if err := c.compileExpr(item.ContextExpr); err != nil {
		return err
	}
	c.setPos(s.WithPos)
	setup := c.emitJump(op.SetupWith, int(Placeholder))
	if item.OptionalVars != nil {
		if err := c.compileStore(item.OptionalVars); err != nil {
			return err
		}
	} else {
		c.emit(op.PopTop)
	}
	c.pushBlock(&fblock{kind: withBlock})
	var err error
	if i+1 < len(s.Items) {
		err = c.compileWith(s, i+1)
	} else {
		err = c.compileStmts(s.Body)
	}
	if err != nil {
		return err
	}
	c.popBlock()
	c.setPos(s.WithPos)
	c.emit(op.PopBlock)
	c.callExitWithNone()
	jumpEnd := c.emitJump(op.Jump, int(Placeholder))

	// Exit handler: the exception is on top of the stack, __exit__ below it
	c.patchJump(setup)
	c.emit(op.WithExceptStart)
	suppress := c.emitJump(op.PopJumpIfTrue, int(Placeholder))
	c.emit(op.Reraise)
	c.patchJump(suppress)
	c.emit(op.PopTop)
	c.emit(op.PopExcept)
	c.emit(op.PopTop)
	c.patchJump(jumpEnd)
	return nil
}
