package bytecode

import (
	"encoding/binary"
	"strings"

	"github.com/deepnoodle-ai/slither/op"
)

// Code flags.
const (
	FlagOptimized    = 0x01 // locals live in fast slots
	FlagNewLocals    = 0x02
	FlagVarArgs      = 0x04
	FlagVarKeywords  = 0x08
	FlagNested       = 0x10
	FlagClassBody    = 0x100
	FlagUsesSuperRef = 0x200 // a __class__ cell is present
)

// Code represents a compiled code block (module, function body, class body,
// lambda). It is immutable after creation and safe for concurrent use.
type Code struct {
	id          string
	name        string
	qualName    string
	filename    string
	source      string
	firstLineNo int

	argCount       int
	kwOnlyArgCount int
	flags          uint32

	instructions []op.Code
	constants    []any
	names        []string
	varNames     []string
	cellVars     []string
	freeVars     []string

	// Source map: one location per instruction word
	locations []SourceLocation
}

// CodeParams contains parameters for creating a new Code.
type CodeParams struct {
	ID             string
	Name           string
	QualName       string
	Filename       string
	Source         string
	FirstLineNo    int
	ArgCount       int
	KwOnlyArgCount int
	Flags          uint32
	Instructions   []op.Code
	Constants      []any
	Names          []string
	VarNames       []string
	CellVars       []string
	FreeVars       []string
	Locations      []SourceLocation
}

// NewCode creates a new immutable Code from the given parameters.
// Input slices are copied to ensure immutability. Nested *Code constants are
// already immutable and are shared.
func NewCode(params CodeParams) *Code {
	code := &Code{
		id:             params.ID,
		name:           params.Name,
		qualName:       params.QualName,
		filename:       params.Filename,
		source:         params.Source,
		firstLineNo:    params.FirstLineNo,
		argCount:       params.ArgCount,
		kwOnlyArgCount: params.KwOnlyArgCount,
		flags:          params.Flags,
		instructions:   copySlice(params.Instructions),
		constants:      copyConstants(params.Constants),
		names:          copySlice(params.Names),
		varNames:       copySlice(params.VarNames),
		cellVars:       copySlice(params.CellVars),
		freeVars:       copySlice(params.FreeVars),
		locations:      copySlice(params.Locations),
	}
	if code.qualName == "" {
		code.qualName = code.name
	}
	return code
}

// ID returns the unique identifier for this code block.
func (c *Code) ID() string {
	return c.id
}

// Name returns the name of this code block.
func (c *Code) Name() string {
	return c.name
}

// QualName returns the dotted qualified name, e.g. "Point.__init__".
func (c *Code) QualName() string {
	return c.qualName
}

// Filename returns the source filename.
func (c *Code) Filename() string {
	return c.filename
}

// Source returns the source of the module this block was compiled from.
func (c *Code) Source() string {
	return c.source
}

// FirstLineNo returns the 1-based line where this block starts.
func (c *Code) FirstLineNo() int {
	return c.firstLineNo
}

// ArgCount returns the number of positional parameters, including an
// explicit receiver.
func (c *Code) ArgCount() int {
	return c.argCount
}

// KwOnlyArgCount returns the number of keyword-only parameters.
func (c *Code) KwOnlyArgCount() int {
	return c.kwOnlyArgCount
}

// NLocals returns the number of local variable slots.
func (c *Code) NLocals() int {
	return len(c.varNames)
}

// Flags returns the code flags.
func (c *Code) Flags() uint32 {
	return c.flags
}

// HasFlag reports whether all bits of flag are set.
func (c *Code) HasFlag(flag uint32) bool {
	return c.flags&flag == flag
}

// InstructionCount returns the number of instruction words.
func (c *Code) InstructionCount() int {
	return len(c.instructions)
}

// InstructionAt returns the instruction word at the given index.
func (c *Code) InstructionAt(index int) op.Code {
	return c.instructions[index]
}

// InstructionBytes returns the instruction stream as little-endian bytes,
// two per word.
func (c *Code) InstructionBytes() []byte {
	out := make([]byte, 2*len(c.instructions))
	for i, word := range c.instructions {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(word))
	}
	return out
}

// ConstantCount returns the number of constants.
func (c *Code) ConstantCount() int {
	return len(c.constants)
}

// ConstantAt returns the constant at the given index.
func (c *Code) ConstantAt(index int) any {
	return c.constants[index]
}

// NameCount returns the number of names.
func (c *Code) NameCount() int {
	return len(c.names)
}

// NameAt returns the name at the given index.
func (c *Code) NameAt(index int) string {
	return c.names[index]
}

// Names returns a copy of the names table.
func (c *Code) Names() []string {
	return copySlice(c.names)
}

// VarNames returns a copy of the local variable names, parameters first.
func (c *Code) VarNames() []string {
	return copySlice(c.varNames)
}

// CellVars returns a copy of the names of locals captured by inner scopes.
func (c *Code) CellVars() []string {
	return copySlice(c.cellVars)
}

// FreeVars returns a copy of the names captured from enclosing scopes.
func (c *Code) FreeVars() []string {
	return copySlice(c.freeVars)
}

// VarNameAt returns the local variable name at the given index, or an empty
// string if the index is out of range.
func (c *Code) VarNameAt(index int) string {
	if index < 0 || index >= len(c.varNames) {
		return ""
	}
	return c.varNames[index]
}

// DerefNameAt returns the name of a cell or free variable slot. Cells come
// first, then free variables.
func (c *Code) DerefNameAt(index int) string {
	if index < 0 {
		return ""
	}
	if index < len(c.cellVars) {
		return c.cellVars[index]
	}
	index -= len(c.cellVars)
	if index < len(c.freeVars) {
		return c.freeVars[index]
	}
	return ""
}

// DerefCount returns the number of cell and free variable slots.
func (c *Code) DerefCount() int {
	return len(c.cellVars) + len(c.freeVars)
}

// Children returns the nested Code constants in constant pool order.
func (c *Code) Children() []*Code {
	var children []*Code
	for _, constant := range c.constants {
		if child, ok := constant.(*Code); ok {
			children = append(children, child)
		}
	}
	return children
}

// LocationAt returns the source location for the instruction at the given index.
func (c *Code) LocationAt(ip int) SourceLocation {
	if ip < 0 || ip >= len(c.locations) {
		return SourceLocation{}
	}
	return c.locations[ip]
}

// LocationCount returns the number of recorded source locations.
func (c *Code) LocationCount() int {
	return len(c.locations)
}

// Flatten returns this code and all descendants in a flat slice, depth first.
func (c *Code) Flatten() []*Code {
	codes := []*Code{c}
	for _, child := range c.Children() {
		codes = append(codes, child.Flatten()...)
	}
	return codes
}

// GetSourceLine returns the source code line at the given 1-based line number.
func (c *Code) GetSourceLine(lineNum int) string {
	if lineNum < 1 {
		return ""
	}
	source := c.source
	if source == "" {
		return ""
	}
	lines := strings.Split(source, "\n")
	if lineNum > len(lines) {
		return ""
	}
	return lines[lineNum-1]
}

// Stats returns statistics about this code block and its descendants.
func (c *Code) Stats() Stats {
	stats := Stats{SourceBytes: len(c.source)}
	for _, code := range c.Flatten() {
		stats.InstructionCount += code.InstructionCount()
		stats.ConstantCount += code.ConstantCount()
		if code != c {
			stats.CodeCount++
		}
	}
	return stats
}
