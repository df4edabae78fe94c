// Package dis supports analysis of bytecode by disassembling it. It works
// with the opcodes defined in the op package and the instruction decoder of
// the bytecode package.
package dis

import (
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/fatih/color"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/internal/table"
	"github.com/deepnoodle-ai/slither/op"
)

// Instruction represents a single bytecode instruction and its operands.
type Instruction struct {
	Offset     int      `json:"offset"`
	Name       string   `json:"opcode"`
	Opcode     op.Code  `json:"-"`
	Operands   []uint16 `json:"operands,omitempty"`
	Annotation string   `json:"info,omitempty"`
	Line       int      `json:"line"`
	// Constant is the pool value loaded by LOAD_CONST.
	Constant any `json:"-"`
}

// Disassemble returns a parsed representation of the given bytecode.
func Disassemble(code *bytecode.Code) ([]Instruction, error) {
	var instructions []Instruction
	for instr := range code.All() {
		info := op.GetInfo(instr.Op)
		annotation, constant, err := annotate(code, instr, info)
		if err != nil {
			return nil, fmt.Errorf("%s offset %d: %w", code.QualName(), instr.Offset, err)
		}
		instructions = append(instructions, Instruction{
			Offset:     instr.Offset,
			Name:       info.Name,
			Opcode:     instr.Op,
			Operands:   instr.Operands,
			Annotation: annotation,
			Line:       code.LocationAt(instr.Offset).Line,
			Constant:   constant,
		})
	}
	return instructions, nil
}

func annotate(code *bytecode.Code, instr bytecode.Instruction, info op.Info) (string, any, error) {
	arg := instr.Arg()
	if info.Jump {
		return fmt.Sprintf("to %d", arg), nil, nil
	}
	switch instr.Op {
	case op.LoadFast, op.StoreFast, op.DeleteFast:
		if arg >= code.NLocals() {
			return "", nil, fmt.Errorf("local variable index out of range: %d", arg)
		}
		return code.VarNameAt(arg), nil, nil
	case op.LoadDeref, op.StoreDeref, op.DeleteDeref, op.LoadClosure:
		if arg >= code.DerefCount() {
			return "", nil, fmt.Errorf("cell index out of range: %d", arg)
		}
		return code.DerefNameAt(arg), nil, nil
	case op.LoadGlobal, op.StoreGlobal, op.DeleteGlobal, op.LoadName, op.StoreName, op.DeleteName,
		op.LoadAttr, op.StoreAttr, op.DeleteAttr, op.ImportName, op.ImportFrom:
		if arg >= code.NameCount() {
			return "", nil, fmt.Errorf("name index out of range: %d", arg)
		}
		return code.NameAt(arg), nil, nil
	case op.LoadConst:
		if arg >= code.ConstantCount() {
			return "", nil, fmt.Errorf("constant index out of range: %d", arg)
		}
		value := code.ConstantAt(arg)
		return bytecode.FormatConstant(value), value, nil
	case op.CompareOp:
		return op.CompareOpType(arg).String(), nil, nil
	case op.InplaceOp:
		return op.BinarySymbol(op.Code(arg)) + "=", nil, nil
	case op.IsOp:
		if arg == 1 {
			return "is not", nil, nil
		}
		return "is", nil, nil
	case op.ContainsOp:
		if arg == 1 {
			return "not in", nil, nil
		}
		return "in", nil, nil
	case op.MakeFunction:
		return makeFunctionFlags(arg), nil, nil
	case op.FormatValue:
		return formatValueFlags(arg), nil, nil
	case op.UnpackEx:
		return fmt.Sprintf("%d before, %d after", arg&0xff, arg>>8), nil, nil
	}
	if op.IsBinary(instr.Op) {
		return op.BinarySymbol(instr.Op), nil, nil
	}
	return "", nil, nil
}

func makeFunctionFlags(flags int) string {
	var parts []string
	if flags&op.FuncDefaults != 0 {
		parts = append(parts, "defaults")
	}
	if flags&op.FuncKwDefaults != 0 {
		parts = append(parts, "kwdefaults")
	}
	if flags&op.FuncClosure != 0 {
		parts = append(parts, "closure")
	}
	return strings.Join(parts, ", ")
}

func formatValueFlags(flags int) string {
	var parts []string
	switch flags & 0x03 {
	case op.FormatStr:
		parts = append(parts, "!s")
	case op.FormatRepr:
		parts = append(parts, "!r")
	case op.FormatASCII:
		parts = append(parts, "!a")
	}
	if flags&op.FormatWithSpec != 0 {
		parts = append(parts, "with spec")
	}
	return strings.Join(parts, ", ")
}

var (
	opcodeColor   = color.New(color.Bold)
	numberColor   = color.New(color.FgYellow)
	stringColor   = color.New(color.FgGreen)
	codeColor     = color.New(color.FgMagenta)
	nameColor     = color.New(color.FgHiCyan)
	nameItalic    = color.New(color.Italic)
	maxStringSize = 80
)

// Print a table of the given instructions to the given writer. Colors
// follow color.NoColor.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for _, instr := range instructions {
		values := []string{
			fmt.Sprintf("%d", instr.Offset),
			opcodeColor.Sprint(instr.Name),
			formatOperands(instr.Operands),
			infoColumn(instr),
		}
		lines = append(lines, values)
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

func infoColumn(instr Instruction) string {
	if instr.Opcode != op.LoadConst {
		if instr.Annotation == "" {
			return ""
		}
		return nameColor.Sprint(instr.Annotation)
	}
	switch c := instr.Constant.(type) {
	case int64, float64, *big.Int:
		return numberColor.Sprint(instr.Annotation)
	case string:
		if len(instr.Annotation) > maxStringSize {
			return stringColor.Sprint(instr.Annotation[:maxStringSize-3] + "...")
		}
		return stringColor.Sprint(instr.Annotation)
	case *bytecode.Code:
		name := c.QualName()
		if name == "" {
			name = nameItalic.Sprint("<anonymous>")
		}
		return codeColor.Sprintf("code:%s", name)
	default:
		return opcodeColor.Sprint(instr.Annotation)
	}
}

func formatOperands(operands []uint16) string {
	var sb strings.Builder
	for i, operand := range operands {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", operand)
	}
	return sb.String()
}

// Listing is the disassembly of a code object and its nested code objects,
// shaped for JSON output.
type Listing struct {
	Name         string        `json:"name"`
	QualName     string        `json:"qualname"`
	Filename     string        `json:"filename,omitempty"`
	FirstLine    int           `json:"first_line"`
	ArgCount     int           `json:"argcount"`
	NLocals      int           `json:"nlocals"`
	VarNames     []string      `json:"varnames"`
	CellVars     []string      `json:"cellvars"`
	FreeVars     []string      `json:"freevars"`
	Names        []string      `json:"names"`
	Constants    []string      `json:"constants"`
	Instructions []Instruction `json:"instructions"`
	Children     []*Listing    `json:"children,omitempty"`
}

// NewListing disassembles code and all of its nested code objects.
func NewListing(code *bytecode.Code) (*Listing, error) {
	instructions, err := Disassemble(code)
	if err != nil {
		return nil, err
	}
	constants := make([]string, code.ConstantCount())
	for i := range constants {
		constants[i] = bytecode.FormatConstant(code.ConstantAt(i))
	}
	listing := &Listing{
		Name:         code.Name(),
		QualName:     code.QualName(),
		Filename:     code.Filename(),
		FirstLine:    code.FirstLineNo(),
		ArgCount:     code.ArgCount(),
		NLocals:      code.NLocals(),
		VarNames:     nonNil(code.VarNames()),
		CellVars:     nonNil(code.CellVars()),
		FreeVars:     nonNil(code.FreeVars()),
		Names:        nonNil(code.Names()),
		Constants:    constants,
		Instructions: instructions,
	}
	for _, child := range code.Children() {
		childListing, err := NewListing(child)
		if err != nil {
			return nil, err
		}
		listing.Children = append(listing.Children, childListing)
	}
	return listing, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// PrintAll writes a table for code and for each nested code object, each
// preceded by a heading naming the code object.
func PrintAll(code *bytecode.Code, writer io.Writer) error {
	for i, c := range code.Flatten() {
		instructions, err := Disassemble(c)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(writer)
		}
		fmt.Fprintf(writer, "Disassembly of %s:\n", c.QualName())
		Print(instructions, writer)
	}
	return nil
}
