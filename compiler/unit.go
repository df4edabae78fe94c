package compiler

import (
	"fmt"
	"math"
	"math/big"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/op"
)

// unit is the mutable code object under construction for one module,
// function, lambda or class body. It is converted to an immutable
// *bytecode.Code once compiled.
type unit struct {
	id          string
	name        string
	qualName    string
	firstLineNo int
	parent      *unit
	scope       *symbolScope
	children    int

	argCount       int
	kwOnlyArgCount int
	flags          uint32

	instructions []op.Code
	locations    []bytecode.SourceLocation

	constants  []any
	constIndex map[constKey]uint16

	names     []string
	nameIndex map[string]uint16

	varNames []string
	varIndex map[string]uint16
	cellVars []string
	freeVars []string

	fblocks []*fblock

	// Methods compiled directly in a class body, by name
	methods map[string]*bytecode.Code
}

// constKey identifies a scalar constant for deduplication. The kind keeps
// 1, 1.0 and True apart.
type constKey struct {
	kind  string
	value any
}

func (c *Compiler) newUnit(scope *symbolScope, name, qualName string, firstLine int) *unit {
	u := &unit{
		name:        name,
		qualName:    qualName,
		firstLineNo: firstLine,
		parent:      c.cur,
		scope:       scope,
		constIndex:  map[constKey]uint16{},
		nameIndex:   map[string]uint16{},
		varIndex:    map[string]uint16{},
		methods:     map[string]*bytecode.Code{},
	}
	if u.parent == nil {
		u.id = "0"
	} else {
		u.id = fmt.Sprintf("%s.%d", u.parent.id, u.parent.children)
		u.parent.children++
	}
	if scope.kind == functionScope {
		u.varNames = scope.varNames()
		for i, name := range u.varNames {
			u.varIndex[name] = uint16(i)
		}
	}
	u.cellVars = scope.cellVars()
	u.freeVars = scope.freeVars()
	return u
}

func (u *unit) addConstant(value any) uint16 {
	var key constKey
	dedupe := true
	switch v := value.(type) {
	case nil:
		key = constKey{kind: "none"}
	case bool:
		key = constKey{kind: "bool", value: v}
	case int64:
		key = constKey{kind: "int", value: v}
	case *big.Int:
		key = constKey{kind: "bigint", value: v.String()}
	case float64:
		key = constKey{kind: "float", value: math.Float64bits(v)}
	case string:
		key = constKey{kind: "str", value: v}
	case bytecode.Bytes:
		key = constKey{kind: "bytes", value: v}
	case bytecode.Ellipsis:
		key = constKey{kind: "ellipsis"}
	default:
		dedupe = false
	}
	if dedupe {
		if idx, ok := u.constIndex[key]; ok {
			return idx
		}
	}
	idx := uint16(min(len(u.constants), MaxIndex))
	u.constants = append(u.constants, value)
	if dedupe {
		u.constIndex[key] = idx
	}
	return idx
}

func (u *unit) addName(name string) uint16 {
	if idx, ok := u.nameIndex[name]; ok {
		return idx
	}
	idx := uint16(min(len(u.names), MaxIndex))
	u.names = append(u.names, name)
	u.nameIndex[name] = idx
	return idx
}

// derefIndex returns the index of a cell or free variable. Cells come
// first, followed by free variables.
func (u *unit) derefIndex(name string) uint16 {
	for i, cell := range u.cellVars {
		if cell == name {
			return uint16(i)
		}
	}
	for i, free := range u.freeVars {
		if free == name {
			return uint16(len(u.cellVars) + i)
		}
	}
	return 0
}

func (u *unit) checkLimits(c *Compiler) error {
	switch {
	case len(u.varNames) > MaxIndex:
		return c.errorf(errors.E2007, "too many local variables in %s (%d)", u.qualName, len(u.varNames))
	case len(u.constants) > MaxIndex:
		return c.errorf(errors.E2008, "too many constants in %s (%d)", u.qualName, len(u.constants))
	case len(u.names) > MaxIndex:
		return c.errorf(errors.E2009, "too many names in %s (%d)", u.qualName, len(u.names))
	case len(u.instructions) > MaxIndex:
		return c.errorf(errors.E2012, "code object %s is too large", u.qualName)
	}
	return nil
}

func (u *unit) toCode(c *Compiler) *bytecode.Code {
	params := bytecode.CodeParams{
		ID:             u.id,
		Name:           u.name,
		QualName:       u.qualName,
		Filename:       c.filename,
		FirstLineNo:    u.firstLineNo,
		ArgCount:       u.argCount,
		KwOnlyArgCount: u.kwOnlyArgCount,
		Flags:          u.flags,
		Instructions:   u.instructions,
		Constants:      u.constants,
		Names:          u.names,
		VarNames:       u.varNames,
		CellVars:       u.cellVars,
		FreeVars:       u.freeVars,
		Locations:      u.locations,
		Source:         c.source,
	}
	return bytecode.NewCode(params)
}
