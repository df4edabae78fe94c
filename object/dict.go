package object

import (
	"context"
	"slices"
	"strings"
)

// Dict is an insertion-ordered hash map. It also backs module, class and
// instance namespaces, which use string keys.
type Dict struct {
	keys   []Object
	values []Object
	index  map[HashKey]int
}

func NewDict() *Dict {
	return &Dict{index: map[HashKey]int{}}
}

// NewDictFromMap returns a dict with the entries of m in sorted key order.
func NewDictFromMap(m map[string]Object) *Dict {
	d := NewDict()
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		d.SetStr(name, m[name])
	}
	return d
}

func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Get returns the value stored under key.
func (d *Dict) Get(key Object) (Object, bool, error) {
	if d == nil {
		return nil, false, nil
	}
	k, err := Hash(key)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[k]
	if !ok {
		return nil, false, nil
	}
	return d.values[i], true, nil
}

// Set stores value under key, keeping the position of an existing key.
func (d *Dict) Set(key, value Object) error {
	k, err := Hash(key)
	if err != nil {
		return err
	}
	d.set(k, key, value)
	return nil
}

func (d *Dict) set(k HashKey, key, value Object) {
	if i, ok := d.index[k]; ok {
		d.values[i] = value
		return
	}
	d.index[k] = len(d.keys)
	d.keys = append(d.keys, key)
	d.values = append(d.values, value)
}

// Delete removes key and reports whether it was present.
func (d *Dict) Delete(key Object) (bool, error) {
	k, err := Hash(key)
	if err != nil {
		return false, err
	}
	return d.delete(k), nil
}

func (d *Dict) delete(k HashKey) bool {
	i, ok := d.index[k]
	if !ok {
		return false
	}
	delete(d.index, k)
	d.keys = slices.Delete(d.keys, i, i+1)
	d.values = slices.Delete(d.values, i, i+1)
	for key, j := range d.index {
		if j > i {
			d.index[key] = j - 1
		}
	}
	return true
}

func (d *Dict) GetStr(name string) (Object, bool) {
	if d == nil {
		return nil, false
	}
	i, ok := d.index[strKey(name)]
	if !ok {
		return nil, false
	}
	return d.values[i], true
}

func (d *Dict) SetStr(name string, value Object) {
	d.set(strKey(name), NewStr(name), value)
}

func (d *Dict) DelStr(name string) bool {
	return d.delete(strKey(name))
}

// Keys returns a copy of the keys in insertion order.
func (d *Dict) Keys() []Object {
	if d == nil {
		return nil
	}
	return slices.Clone(d.keys)
}

// Values returns a copy of the values in insertion order.
func (d *Dict) Values() []Object {
	if d == nil {
		return nil
	}
	return slices.Clone(d.values)
}

// StrKeys returns the string keys in insertion order.
func (d *Dict) StrKeys() []string {
	var names []string
	for _, key := range d.Keys() {
		if s, ok := key.(*Str); ok {
			names = append(names, s.value)
		}
	}
	return names
}

// Range calls fn for each entry in insertion order until fn returns false.
func (d *Dict) Range(fn func(key, value Object) bool) {
	if d == nil {
		return
	}
	for i := range d.keys {
		if !fn(d.keys[i], d.values[i]) {
			return
		}
	}
}

func (d *Dict) Copy() *Dict {
	out := NewDict()
	if d == nil {
		return out
	}
	out.keys = slices.Clone(d.keys)
	out.values = slices.Clone(d.values)
	for k, v := range d.index {
		out.index[k] = v
	}
	return out
}

// Update copies every entry of other into d.
func (d *Dict) Update(other *Dict) {
	other.Range(func(key, value Object) bool {
		k, _ := Hash(key)
		d.set(k, key, value)
		return true
	})
}

func (d *Dict) Clear() {
	d.keys = nil
	d.values = nil
	d.index = map[HashKey]int{}
}

func (d *Dict) Type() *Class { return DictClass }

func (d *Dict) Inspect() string {
	parts := make([]string, len(d.keys))
	for i := range d.keys {
		parts[i] = d.keys[i].Inspect() + ": " + d.values[i].Inspect()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d *Dict) Interface() any {
	m := make(map[string]any, len(d.keys))
	for i, key := range d.keys {
		var name string
		if s, ok := key.(*Str); ok {
			name = s.value
		} else {
			name = key.Inspect()
		}
		m[name] = d.values[i].Interface()
	}
	return m
}

func (d *Dict) Equals(other Object) bool {
	o, ok := other.(*Dict)
	if !ok || o.Len() != d.Len() {
		return false
	}
	for i, key := range d.keys {
		value, found, err := o.Get(key)
		if err != nil || !found || !d.values[i].Equals(value) {
			return false
		}
	}
	return true
}

func (d *Dict) IsTruthy() bool { return d.Len() > 0 }

func (d *Dict) SetAttr(name string, value Object) error { return setAttrError(d, name) }

func (d *Dict) GetAttr(name string) (Object, bool) {
	switch name {
	case "keys":
		return d.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return NewList(d.Keys()), nil
		}), true
	case "values":
		return d.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return NewList(d.Values()), nil
		}), true
	case "items":
		return d.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			items := make([]Object, len(d.keys))
			for i := range d.keys {
				items[i] = NewTuple([]Object{d.keys[i], d.values[i]})
			}
			return NewList(items), nil
		}), true
	case "get":
		return d.method(name, 1, 2, func(ctx context.Context, args []Object) (Object, error) {
			value, found, err := d.Get(args[0])
			if err != nil {
				return nil, err
			}
			if found {
				return value, nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return None, nil
		}), true
	case "pop":
		return d.method(name, 1, 2, func(ctx context.Context, args []Object) (Object, error) {
			value, found, err := d.Get(args[0])
			if err != nil {
				return nil, err
			}
			if !found {
				if len(args) == 2 {
					return args[1], nil
				}
				return nil, KeyError(args[0])
			}
			_, _ = d.Delete(args[0])
			return value, nil
		}), true
	case "popitem":
		return d.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			if d.Len() == 0 {
				return nil, Errorf("KeyError", "'popitem(): dictionary is empty'")
			}
			last := len(d.keys) - 1
			item := NewTuple([]Object{d.keys[last], d.values[last]})
			_, _ = d.Delete(d.keys[last])
			return item, nil
		}), true
	case "setdefault":
		return d.method(name, 1, 2, func(ctx context.Context, args []Object) (Object, error) {
			value, found, err := d.Get(args[0])
			if err != nil {
				return nil, err
			}
			if found {
				return value, nil
			}
			value = None
			if len(args) == 2 {
				value = args[1]
			}
			return value, d.Set(args[0], value)
		}), true
	case "update":
		return NewBuiltin(name, func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
			if len(args) > 1 {
				return nil, TypeErrorf("update expected at most 1 argument, got %d", len(args))
			}
			if len(args) == 1 {
				if err := d.Merge(ctx, args[0]); err != nil {
					return nil, err
				}
			}
			d.Update(kwargs)
			return None, nil
		}), true
	case "clear":
		return d.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			d.Clear()
			return None, nil
		}), true
	case "copy":
		return d.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return d.Copy(), nil
		}), true
	}
	return nil, false
}

// Merge adds the entries of a mapping or an iterable of pairs.
func (d *Dict) Merge(ctx context.Context, src Object) error {
	if other, ok := src.(*Dict); ok {
		d.Update(other)
		return nil
	}
	items, err := ToSlice(ctx, src)
	if err != nil {
		return err
	}
	for i, item := range items {
		pair, err := ToSlice(ctx, item)
		if err != nil {
			return err
		}
		if len(pair) != 2 {
			return ValueErrorf("dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := d.Set(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

// method returns a builtin bound to d that checks its positional argument
// count.
func (d *Dict) method(name string, minArgs, maxArgs int, fn func(ctx context.Context, args []Object) (Object, error)) *Builtin {
	return boundMethod("dict", name, minArgs, maxArgs, fn)
}
