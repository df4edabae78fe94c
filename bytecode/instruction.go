package bytecode

import (
	"fmt"
	"iter"
	"strings"

	"github.com/deepnoodle-ai/slither/op"
)

// Instruction is one decoded opcode with its operands.
type Instruction struct {
	Offset   int
	Op       op.Code
	Operands []uint16
}

// String renders the instruction as "OFFSET NAME operands".
func (i Instruction) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s", i.Offset, i.Op)
	for _, operand := range i.Operands {
		fmt.Fprintf(&sb, " %d", operand)
	}
	return sb.String()
}

// Arg returns the first operand, or 0 if there is none.
func (i Instruction) Arg() int {
	if len(i.Operands) == 0 {
		return 0
	}
	return int(i.Operands[0])
}

// All iterates over the decoded instructions in order. Decoding stops at an
// unknown opcode or a truncated operand list.
func (c *Code) All() iter.Seq[Instruction] {
	return func(yield func(Instruction) bool) {
		for offset := 0; offset < len(c.instructions); {
			opcode := c.instructions[offset]
			info := op.GetInfo(opcode)
			if info.Name == "" || offset+1+info.OperandCount > len(c.instructions) {
				return
			}
			operands := make([]uint16, info.OperandCount)
			for j := range operands {
				operands[j] = uint16(c.instructions[offset+1+j])
			}
			if !yield(Instruction{Offset: offset, Op: opcode, Operands: operands}) {
				return
			}
			offset += 1 + info.OperandCount
		}
	}
}

// Instructions returns the decoded instruction stream.
func (c *Code) Instructions() []Instruction {
	var out []Instruction
	for instr := range c.All() {
		out = append(out, instr)
	}
	return out
}

// CountOp returns how many times opcode appears in this code block.
func (c *Code) CountOp(opcode op.Code) int {
	count := 0
	for instr := range c.All() {
		if instr.Op == opcode {
			count++
		}
	}
	return count
}

// Validate checks that the instruction stream decodes cleanly and that every
// operand referring to a pool or jump target is in range.
func (c *Code) Validate() error {
	offset := 0
	targets := map[int]bool{}
	starts := map[int]bool{}
	for instr := range c.All() {
		starts[instr.Offset] = true
		info := op.GetInfo(instr.Op)
		arg := instr.Arg()
		switch {
		case info.Jump:
			targets[arg] = true
		case instr.Op == op.LoadConst && arg >= len(c.constants):
			return fmt.Errorf("offset %d: constant index %d out of range", instr.Offset, arg)
		case isNameOp(instr.Op) && arg >= len(c.names):
			return fmt.Errorf("offset %d: name index %d out of range", instr.Offset, arg)
		case isFastOp(instr.Op) && arg >= len(c.varNames):
			return fmt.Errorf("offset %d: local index %d out of range", instr.Offset, arg)
		case isDerefOp(instr.Op) && arg >= c.DerefCount():
			return fmt.Errorf("offset %d: cell index %d out of range", instr.Offset, arg)
		}
		offset = instr.Offset + 1 + len(instr.Operands)
	}
	if offset != len(c.instructions) {
		return fmt.Errorf("offset %d: invalid or truncated instruction", offset)
	}
	for target := range targets {
		if target != len(c.instructions) && !starts[target] {
			return fmt.Errorf("jump target %d is not an instruction boundary", target)
		}
	}
	for _, child := range c.Children() {
		if err := child.Validate(); err != nil {
			return fmt.Errorf("%s: %w", child.QualName(), err)
		}
	}
	return nil
}

func isNameOp(code op.Code) bool {
	switch code {
	case op.LoadGlobal, op.StoreGlobal, op.DeleteGlobal, op.LoadName, op.StoreName,
		op.DeleteName, op.LoadAttr, op.StoreAttr, op.DeleteAttr, op.ImportName, op.ImportFrom:
		return true
	}
	return false
}

func isFastOp(code op.Code) bool {
	return code == op.LoadFast || code == op.StoreFast || code == op.DeleteFast
}

func isDerefOp(code op.Code) bool {
	switch code {
	case op.LoadDeref, op.StoreDeref, op.DeleteDeref, op.LoadClosure:
		return true
	}
	return false
}
