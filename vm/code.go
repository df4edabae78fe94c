package vm

import (
	"slices"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/object"
	"github.com/deepnoodle-ai/slither/op"
)

// code wraps a compiled code object with the runtime values the VM needs on
// every instruction: decoded constants and copies of the name tables.
type code struct {
	*bytecode.Code
	instructions []op.Code
	constants    []object.Object
	names        []string
	varNames     []string
	cellVars     []string
	freeVars     []string

	// cellArgs maps a cell index to the parameter slot it is initialized
	// from, or -1.
	cellArgs []int
}

func loadCode(c *bytecode.Code) *code {
	instructions := make([]op.Code, c.InstructionCount())
	for i := range instructions {
		instructions[i] = c.InstructionAt(i)
	}
	constants := make([]object.Object, c.ConstantCount())
	for i := range constants {
		constants[i] = object.FromConstant(c.ConstantAt(i))
	}
	lc := &code{
		Code:         c,
		instructions: instructions,
		constants:    constants,
		names:        c.Names(),
		varNames:     c.VarNames(),
		cellVars:     c.CellVars(),
		freeVars:     c.FreeVars(),
	}
	nparams := lc.paramCount()
	lc.cellArgs = make([]int, len(lc.cellVars))
	for i, name := range lc.cellVars {
		lc.cellArgs[i] = -1
		if idx := slices.Index(lc.varNames, name); idx >= 0 && idx < nparams {
			lc.cellArgs[i] = idx
		}
	}
	return lc
}

// paramCount returns the number of parameter slots, including *args and
// **kwargs.
func (c *code) paramCount() int {
	n := c.ArgCount() + c.KwOnlyArgCount()
	if c.HasFlag(bytecode.FlagVarArgs) {
		n++
	}
	if c.HasFlag(bytecode.FlagVarKeywords) {
		n++
	}
	return n
}

func (c *code) derefName(idx int) string {
	if idx < len(c.cellVars) {
		return c.cellVars[idx]
	}
	return c.freeVars[idx-len(c.cellVars)]
}

// loadCode returns the runtime wrapper for c, caching it for later calls.
func (vm *VirtualMachine) loadCode(c *bytecode.Code) *code {
	if lc, ok := vm.loadedCode[c]; ok {
		return lc
	}
	lc := loadCode(c)
	vm.loadedCode[c] = lc
	return lc
}
