// Package mro resolves method resolution orders for class hierarchies.
//
// Classes live in a flat arena (a Table) and refer to their bases by index,
// so diamond-shaped hierarchies never produce pointer cycles. The order for
// a class is computed once, with C3 linearization, when the class is
// defined:
//
//	L[C] = C + merge(L[B1], ..., L[Bn], [B1, ..., Bn])
//
// Index 0 of every table is the universal root class "object".
package mro

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/slither/bytecode"
)

// Object is the index of the root class in every Table.
const Object = 0

// Record is a class in the arena.
type Record struct {
	Name string
	// Bases are the declared base classes, in order.
	Bases []int
	// MRO is the linearization, starting with the class itself and ending
	// with Object.
	MRO []int
	// Methods maps method names to compiled bodies.
	Methods map[string]*bytecode.Code
	// External marks classes defined outside the compiled unit.
	External bool
}

// Error reports a class hierarchy without a consistent linearization.
type Error struct {
	Class string
	Bases []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("Cannot create a consistent method resolution order (MRO) for bases %s",
		strings.Join(e.Bases, ", "))
}

// Table is an arena of class records.
type Table struct {
	records []*Record
	byName  map[string]int
}

// NewTable returns a table holding only the root class.
func NewTable() *Table {
	return &Table{
		records: []*Record{{Name: "object", MRO: []int{Object}, Methods: map[string]*bytecode.Code{}}},
		byName:  map[string]int{"object": Object},
	}
}

// Len returns the number of records, including the root.
func (t *Table) Len() int {
	return len(t.records)
}

// Define adds a class with the given bases and computes its MRO. A class
// with no bases derives from Object.
func (t *Table) Define(name string, bases []int) (int, error) {
	if len(bases) == 0 {
		bases = []int{Object}
	}
	seen := make(map[int]bool, len(bases))
	heads := make([][]int, 0, len(bases))
	for _, base := range bases {
		if base < 0 || base >= len(t.records) {
			return -1, fmt.Errorf("invalid base class index %d", base)
		}
		if seen[base] {
			return -1, fmt.Errorf("duplicate base class %s", t.records[base].Name)
		}
		seen[base] = true
		heads = append(heads, t.records[base].MRO)
	}
	idx := len(t.records)
	merged, ok := Linearize(heads, bases)
	if !ok {
		names := make([]string, len(bases))
		for i, base := range bases {
			names[i] = t.records[base].Name
		}
		return -1, &Error{Class: name, Bases: names}
	}
	record := &Record{
		Name:    name,
		Bases:   append([]int(nil), bases...),
		MRO:     append([]int{idx}, merged...),
		Methods: map[string]*bytecode.Code{},
	}
	t.records = append(t.records, record)
	t.byName[name] = idx
	return idx, nil
}

// DefineExternal registers a class defined elsewhere, such as a builtin.
// Its MRO is the class followed by Object. Defining the same external name
// twice returns the existing index.
func (t *Table) DefineExternal(name string) int {
	if idx, ok := t.byName[name]; ok && t.records[idx].External {
		return idx
	}
	if name == "object" {
		return Object
	}
	idx := len(t.records)
	t.records = append(t.records, &Record{
		Name:     name,
		Bases:    []int{Object},
		MRO:      []int{idx, Object},
		Methods:  map[string]*bytecode.Code{},
		External: true,
	})
	t.byName[name] = idx
	return idx
}

// Lookup returns the index of the most recently defined class with the
// given name.
func (t *Table) Lookup(name string) (int, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// Get returns the record at idx, or nil if idx is out of range.
func (t *Table) Get(idx int) *Record {
	if idx < 0 || idx >= len(t.records) {
		return nil
	}
	return t.records[idx]
}

// MRO returns a copy of the linearization of the class at idx.
func (t *Table) MRO(idx int) []int {
	record := t.Get(idx)
	if record == nil {
		return nil
	}
	return append([]int(nil), record.MRO...)
}

// MRONames returns the class names along the MRO of idx.
func (t *Table) MRONames(idx int) []string {
	record := t.Get(idx)
	if record == nil {
		return nil
	}
	names := make([]string, len(record.MRO))
	for i, c := range record.MRO {
		names[i] = t.records[c].Name
	}
	return names
}

// AddMethod attaches a compiled method body to the class at idx.
func (t *Table) AddMethod(idx int, name string, code *bytecode.Code) {
	if record := t.Get(idx); record != nil {
		record.Methods[name] = code
	}
}

// Resolve returns the index of the first class along the MRO of idx that
// defines attr.
func (t *Table) Resolve(idx int, attr string) (int, bool) {
	record := t.Get(idx)
	if record == nil {
		return -1, false
	}
	for _, c := range record.MRO {
		if _, ok := t.records[c].Methods[attr]; ok {
			return c, true
		}
	}
	return -1, false
}

// IsSubclass reports whether parent appears in the MRO of child.
func (t *Table) IsSubclass(child, parent int) bool {
	record := t.Get(child)
	if record == nil {
		return false
	}
	for _, c := range record.MRO {
		if c == parent {
			return true
		}
	}
	return false
}

// Linearize merges the given linearizations and the list of direct bases
// using the C3 rule. It reports false if no consistent order exists. The
// inputs are not modified.
func Linearize(heads [][]int, bases []int) ([]int, bool) {
	seqs := make([][]int, 0, len(heads)+1)
	for _, h := range heads {
		if len(h) > 0 {
			seqs = append(seqs, h)
		}
	}
	if len(bases) > 0 {
		seqs = append(seqs, bases)
	}
	var result []int
	for {
		remaining := seqs[:0]
		for _, s := range seqs {
			if len(s) > 0 {
				remaining = append(remaining, s)
			}
		}
		seqs = remaining
		if len(seqs) == 0 {
			return result, true
		}
		candidate, found := -1, false
		for _, s := range seqs {
			if !inTail(seqs, s[0]) {
				candidate, found = s[0], true
				break
			}
		}
		if !found {
			return nil, false
		}
		result = append(result, candidate)
		for i, s := range seqs {
			if s[0] == candidate {
				seqs[i] = s[1:]
			}
		}
	}
}

func inTail(seqs [][]int, c int) bool {
	for _, s := range seqs {
		for _, x := range s[1:] {
			if x == c {
				return true
			}
		}
	}
	return false
}
