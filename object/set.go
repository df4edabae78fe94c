package object

import (
	"context"
	"slices"
)

// Set is a mutable set of hashable values. Iteration follows insertion
// order.
type Set struct {
	base
	items *Dict
}

func NewSet() *Set {
	return &Set{items: NewDict()}
}

// NewSetFrom returns a set holding items.
func NewSetFrom(items []Object) (*Set, error) {
	s := NewSet()
	for _, item := range items {
		if err := s.Add(item); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Set) Add(item Object) error {
	return s.items.Set(item, None)
}

func (s *Set) Contains(item Object) (bool, error) {
	_, found, err := s.items.Get(item)
	return found, err
}

func (s *Set) Items() []Object { return s.items.Keys() }
func (s *Set) Len() int        { return s.items.Len() }
func (s *Set) Type() *Class    { return SetClass }
func (s *Set) IsTruthy() bool  { return s.Len() > 0 }

func (s *Set) Copy() *Set {
	return &Set{items: s.items.Copy()}
}

func (s *Set) Inspect() string {
	if s.Len() == 0 {
		return "set()"
	}
	return "{" + joinInspect(s.items.keys) + "}"
}

func (s *Set) Interface() any {
	out := make([]any, 0, s.Len())
	for _, item := range s.items.keys {
		out = append(out, item.Interface())
	}
	return out
}

func (s *Set) Equals(other Object) bool {
	o, ok := other.(*Set)
	if !ok || o.Len() != s.Len() {
		return false
	}
	return s.isSubset(o)
}

func (s *Set) isSubset(other *Set) bool {
	for _, item := range s.items.keys {
		if found, _ := other.Contains(item); !found {
			return false
		}
	}
	return true
}

func (s *Set) SetAttr(name string, value Object) error { return setAttrError(s, name) }

// Union returns the items in either set.
func (s *Set) Union(other *Set) *Set {
	out := s.Copy()
	out.items.Update(other.items)
	return out
}

// Intersection returns the items in both sets.
func (s *Set) Intersection(other *Set) *Set {
	out := NewSet()
	for _, item := range s.items.keys {
		if found, _ := other.Contains(item); found {
			_ = out.Add(item)
		}
	}
	return out
}

// Difference returns the items of s that are not in other.
func (s *Set) Difference(other *Set) *Set {
	out := NewSet()
	for _, item := range s.items.keys {
		if found, _ := other.Contains(item); !found {
			_ = out.Add(item)
		}
	}
	return out
}

// SymmetricDifference returns the items in exactly one of the sets.
func (s *Set) SymmetricDifference(other *Set) *Set {
	out := s.Difference(other)
	out.items.Update(other.Difference(s).items)
	return out
}

func (s *Set) method(name string, minArgs, maxArgs int, fn func(ctx context.Context, args []Object) (Object, error)) *Builtin {
	return boundMethod("set", name, minArgs, maxArgs, fn)
}

// operand converts an iterable argument of a set method to a set.
func (s *Set) operand(ctx context.Context, obj Object) (*Set, error) {
	if o, ok := obj.(*Set); ok {
		return o, nil
	}
	items, err := ToSlice(ctx, obj)
	if err != nil {
		return nil, err
	}
	return NewSetFrom(items)
}

func (s *Set) GetAttr(name string) (Object, bool) {
	switch name {
	case "add":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			return None, s.Add(args[0])
		}), true
	case "remove", "discard":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			found, err := s.items.Delete(args[0])
			if err != nil {
				return nil, err
			}
			if !found && name == "remove" {
				return nil, KeyError(args[0])
			}
			return None, nil
		}), true
	case "pop":
		return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			if s.Len() == 0 {
				return nil, Errorf("KeyError", "'pop from an empty set'")
			}
			item := s.items.keys[0]
			_, _ = s.items.Delete(item)
			return item, nil
		}), true
	case "clear":
		return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			s.items.Clear()
			return None, nil
		}), true
	case "copy":
		return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return s.Copy(), nil
		}), true
	case "update":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			other, err := s.operand(ctx, args[0])
			if err != nil {
				return nil, err
			}
			s.items.Update(other.items)
			return None, nil
		}), true
	case "union", "intersection", "difference", "symmetric_difference":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			other, err := s.operand(ctx, args[0])
			if err != nil {
				return nil, err
			}
			switch name {
			case "union":
				return s.Union(other), nil
			case "intersection":
				return s.Intersection(other), nil
			case "difference":
				return s.Difference(other), nil
			}
			return s.SymmetricDifference(other), nil
		}), true
	case "issubset", "issuperset", "isdisjoint":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			other, err := s.operand(ctx, args[0])
			if err != nil {
				return nil, err
			}
			switch name {
			case "issubset":
				return NewBool(s.isSubset(other)), nil
			case "issuperset":
				return NewBool(other.isSubset(s)), nil
			}
			return NewBool(s.Intersection(other).Len() == 0), nil
		}), true
	}
	return nil, false
}

// Range is an immutable arithmetic progression.
type Range struct {
	base
	start, stop, step int64
}

func NewRange(start, stop, step int64) (*Range, error) {
	if step == 0 {
		return nil, ValueErrorf("range() arg 3 must not be zero")
	}
	return &Range{start: start, stop: stop, step: step}, nil
}

func (r *Range) Len() int {
	if r.step > 0 && r.start < r.stop {
		return int((r.stop - r.start + r.step - 1) / r.step)
	}
	if r.step < 0 && r.start > r.stop {
		return int((r.start - r.stop - r.step - 1) / -r.step)
	}
	return 0
}

// At returns the i-th element; i must be in range.
func (r *Range) At(i int) int64 { return r.start + int64(i)*r.step }

func (r *Range) Type() *Class   { return RangeClass }
func (r *Range) IsTruthy() bool { return r.Len() > 0 }

func (r *Range) Inspect() string {
	if r.step == 1 {
		return "range(" + NewInt(r.start).Inspect() + ", " + NewInt(r.stop).Inspect() + ")"
	}
	return "range(" + NewInt(r.start).Inspect() + ", " + NewInt(r.stop).Inspect() + ", " + NewInt(r.step).Inspect() + ")"
}

func (r *Range) Interface() any {
	out := make([]int64, r.Len())
	for i := range out {
		out[i] = r.At(i)
	}
	return out
}

func (r *Range) Equals(other Object) bool {
	o, ok := other.(*Range)
	if !ok || o.Len() != r.Len() {
		return false
	}
	return r.Len() == 0 || (r.start == o.start && (r.Len() == 1 || r.step == o.step))
}

func (r *Range) SetAttr(name string, value Object) error { return setAttrError(r, name) }

func (r *Range) GetAttr(name string) (Object, bool) {
	switch name {
	case "start":
		return NewInt(r.start), true
	case "stop":
		return NewInt(r.stop), true
	case "step":
		return NewInt(r.step), true
	}
	return nil, false
}

// Slice is the value of a slice expression such as a[1:2].
type Slice struct {
	base
	Start, Stop, Step Object
}

func NewSlice(start, stop, step Object) *Slice {
	return &Slice{Start: start, Stop: stop, Step: step}
}

func (s *Slice) Type() *Class   { return SliceClass }
func (s *Slice) Interface() any { return nil }

func (s *Slice) Inspect() string {
	return "slice(" + s.Start.Inspect() + ", " + s.Stop.Inspect() + ", " + s.Step.Inspect() + ")"
}

func (s *Slice) Equals(other Object) bool {
	o, ok := other.(*Slice)
	return ok && itemsEqual([]Object{s.Start, s.Stop, s.Step}, []Object{o.Start, o.Stop, o.Step})
}

func (s *Slice) SetAttr(name string, value Object) error { return setAttrError(s, name) }

// Indices resolves the slice against a sequence of length n, returning
// start, stop and step with the clamping rules of sequence slicing.
func (s *Slice) Indices(n int) (start, stop, step int, err error) {
	step = 1
	if s.Step != None {
		v, err := AsInt(s.Step)
		if err != nil {
			return 0, 0, 0, TypeErrorf("slice indices must be integers or None")
		}
		if v == 0 {
			return 0, 0, 0, ValueErrorf("slice step cannot be zero")
		}
		step = int(v)
	}
	lower, upper := 0, n
	if step < 0 {
		lower, upper = -1, n-1
	}
	resolve := func(obj Object, def int) (int, error) {
		if obj == None {
			return def, nil
		}
		v, err := AsInt(obj)
		if err != nil {
			return 0, TypeErrorf("slice indices must be integers or None")
		}
		i := int(v)
		if i < 0 {
			i += n
			if i < lower {
				i = lower
			}
		} else if i > upper {
			i = upper
		}
		return i, nil
	}
	startDef, stopDef := lower, upper
	if step < 0 {
		startDef, stopDef = upper, lower
	}
	if start, err = resolve(s.Start, startDef); err != nil {
		return 0, 0, 0, err
	}
	if stop, err = resolve(s.Stop, stopDef); err != nil {
		return 0, 0, 0, err
	}
	return start, stop, step, nil
}

// sliceItems applies a slice to items.
func sliceItems(items []Object, s *Slice) ([]Object, error) {
	start, stop, step, err := s.Indices(len(items))
	if err != nil {
		return nil, err
	}
	if step == 1 {
		if start >= stop {
			return nil, nil
		}
		return slices.Clone(items[start:stop]), nil
	}
	var out []Object
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		out = append(out, items[i])
	}
	return out, nil
}
