package vm

import (
	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/object"
)

type blockKind uint8

const (
	setupExcept blockKind = iota
	setupFinally
	setupWith
	exceptHandler
)

// block is an entry on a frame's block stack. Setup blocks record where to
// jump when an exception is raised and how deep the value stack was. An
// exceptHandler block is pushed on handler entry and remembers the
// exception that was active before it.
type block struct {
	kind    blockKind
	handler int
	level   int
	prev    *exception.Exception
}

// frame is the activation record of one code object.
type frame struct {
	code    *code
	fn      *object.Function // nil for module and class bodies
	globals *object.Module
	locals  *object.Dict // name ops; nil in optimized functions
	fast    []object.Object
	cells   []*object.Cell
	stack   []object.Object
	blocks  []block
	ip      int
	lastIP  int
	depth   int
}

func newFrame(c *code, globals *object.Module, locals *object.Dict, depth int) *frame {
	f := &frame{
		code:    c,
		globals: globals,
		locals:  locals,
		fast:    make([]object.Object, len(c.varNames)),
		stack:   make([]object.Object, 0, 16),
		depth:   depth,
	}
	ncells := len(c.cellVars)
	f.cells = make([]*object.Cell, ncells+len(c.freeVars))
	for i := 0; i < ncells; i++ {
		f.cells[i] = object.NewCell(nil)
	}
	return f
}

// bindClosure installs the free variable cells of fn.
func (f *frame) bindClosure(closure []*object.Cell) {
	copy(f.cells[len(f.code.cellVars):], closure)
}

// initCells copies parameters that are captured by inner scopes into their
// cells.
func (f *frame) initCells() {
	for i, slot := range f.code.cellArgs {
		if slot >= 0 && f.fast[slot] != nil {
			f.cells[i].Set(f.fast[slot])
		}
	}
}

func (f *frame) fetch() int {
	arg := int(f.code.instructions[f.ip])
	f.ip++
	return arg
}

func (f *frame) push(obj object.Object) {
	f.stack = append(f.stack, obj)
}

func (f *frame) pop() object.Object {
	n := len(f.stack) - 1
	obj := f.stack[n]
	f.stack[n] = nil
	f.stack = f.stack[:n]
	return obj
}

func (f *frame) top() object.Object {
	return f.stack[len(f.stack)-1]
}

// popN removes the top n values and returns them in push order.
func (f *frame) popN(n int) []object.Object {
	start := len(f.stack) - n
	items := make([]object.Object, n)
	copy(items, f.stack[start:])
	clear(f.stack[start:])
	f.stack = f.stack[:start]
	return items
}

func (f *frame) truncate(level int) {
	if level < len(f.stack) {
		clear(f.stack[level:])
		f.stack = f.stack[:level]
	}
}

func (f *frame) pushBlock(b block) {
	f.blocks = append(f.blocks, b)
}

func (f *frame) popBlock() (block, bool) {
	if len(f.blocks) == 0 {
		return block{}, false
	}
	b := f.blocks[len(f.blocks)-1]
	f.blocks = f.blocks[:len(f.blocks)-1]
	return b, true
}

// tracebackEntry describes the instruction the frame is executing.
func (f *frame) tracebackEntry() exception.Frame {
	loc := f.code.LocationAt(f.lastIP)
	entry := exception.Frame{
		Function: f.code.Name(),
		File:     f.code.Filename(),
		Line:     loc.Line,
	}
	if loc.Line > 0 {
		entry.Source = trimSource(f.code.GetSourceLine(loc.Line))
	}
	return entry
}
