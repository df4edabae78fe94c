package object

import (
	"context"
	"slices"
	"strings"
)

// List is a mutable sequence.
type List struct {
	base
	items []Object
}

func NewList(items []Object) *List {
	return &List{items: items}
}

func (l *List) Items() []Object { return l.items }
func (l *List) Len() int        { return len(l.items) }
func (l *List) Type() *Class    { return ListClass }
func (l *List) IsTruthy() bool  { return len(l.items) > 0 }

// Append adds an item to the end of the list.
func (l *List) Append(item Object) {
	l.items = append(l.items, item)
}

func (l *List) Inspect() string {
	return "[" + joinInspect(l.items) + "]"
}

func (l *List) Interface() any {
	out := make([]any, len(l.items))
	for i, item := range l.items {
		out[i] = item.Interface()
	}
	return out
}

func (l *List) Equals(other Object) bool {
	o, ok := other.(*List)
	return ok && itemsEqual(l.items, o.items)
}

func (l *List) SetAttr(name string, value Object) error { return setAttrError(l, name) }

func (l *List) method(name string, minArgs, maxArgs int, fn func(ctx context.Context, args []Object) (Object, error)) *Builtin {
	return boundMethod("list", name, minArgs, maxArgs, fn)
}

func (l *List) GetAttr(name string) (Object, bool) {
	switch name {
	case "append":
		return l.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			l.items = append(l.items, args[0])
			return None, nil
		}), true
	case "extend":
		return l.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			items, err := ToSlice(ctx, args[0])
			if err != nil {
				return nil, err
			}
			l.items = append(l.items, items...)
			return None, nil
		}), true
	case "insert":
		return l.method(name, 2, 2, func(ctx context.Context, args []Object) (Object, error) {
			idx, err := AsInt(args[0])
			if err != nil {
				return nil, err
			}
			n := int64(len(l.items))
			if idx < 0 {
				idx = max(idx+n, 0)
			}
			idx = min(idx, n)
			l.items = slices.Insert(l.items, int(idx), args[1])
			return None, nil
		}), true
	case "pop":
		return l.method(name, 0, 1, func(ctx context.Context, args []Object) (Object, error) {
			if len(l.items) == 0 {
				return nil, IndexErrorf("pop from empty list")
			}
			idx := int64(len(l.items) - 1)
			if len(args) == 1 {
				n, err := AsInt(args[0])
				if err != nil {
					return nil, err
				}
				idx = n
			}
			i, ok := normalizeIndex(idx, len(l.items))
			if !ok {
				return nil, IndexErrorf("pop index out of range")
			}
			item := l.items[i]
			l.items = slices.Delete(l.items, i, i+1)
			return item, nil
		}), true
	case "remove":
		return l.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			i, err := indexOf(ctx, l.items, args[0])
			if err != nil {
				return nil, err
			}
			if i < 0 {
				return nil, ValueErrorf("list.remove(x): x not in list")
			}
			l.items = slices.Delete(l.items, i, i+1)
			return None, nil
		}), true
	case "index":
		return l.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			i, err := indexOf(ctx, l.items, args[0])
			if err != nil {
				return nil, err
			}
			if i < 0 {
				return nil, ValueErrorf("%s is not in list", args[0].Inspect())
			}
			return NewInt(int64(i)), nil
		}), true
	case "count":
		return l.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			return countOf(ctx, l.items, args[0])
		}), true
	case "clear":
		return l.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			l.items = nil
			return None, nil
		}), true
	case "copy":
		return l.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return NewList(slices.Clone(l.items)), nil
		}), true
	case "reverse":
		return l.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			slices.Reverse(l.items)
			return None, nil
		}), true
	case "sort":
		return NewBuiltin(name, func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
			if len(args) > 0 {
				return nil, TypeErrorf("sort() takes no positional arguments")
			}
			params, err := ParseArgs("sort", nil, kwargs, "key?", "reverse?")
			if err != nil {
				return nil, err
			}
			reverse := params[1] != nil && params[1].IsTruthy()
			return None, Sort(ctx, l.items, params[0], reverse)
		}), true
	}
	return nil, false
}

// Tuple is an immutable sequence.
type Tuple struct {
	base
	items []Object
}

func NewTuple(items []Object) *Tuple {
	return &Tuple{items: items}
}

func (t *Tuple) Items() []Object { return t.items }
func (t *Tuple) Len() int        { return len(t.items) }
func (t *Tuple) Type() *Class    { return TupleClass }
func (t *Tuple) IsTruthy() bool  { return len(t.items) > 0 }

func (t *Tuple) Inspect() string {
	if len(t.items) == 1 {
		return "(" + t.items[0].Inspect() + ",)"
	}
	return "(" + joinInspect(t.items) + ")"
}

func (t *Tuple) Interface() any {
	out := make([]any, len(t.items))
	for i, item := range t.items {
		out[i] = item.Interface()
	}
	return out
}

func (t *Tuple) Equals(other Object) bool {
	o, ok := other.(*Tuple)
	return ok && itemsEqual(t.items, o.items)
}

func (t *Tuple) SetAttr(name string, value Object) error { return setAttrError(t, name) }

func (t *Tuple) GetAttr(name string) (Object, bool) {
	switch name {
	case "index":
		return boundMethod("tuple", name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			i, err := indexOf(ctx, t.items, args[0])
			if err != nil {
				return nil, err
			}
			if i < 0 {
				return nil, ValueErrorf("tuple.index(x): x not in tuple")
			}
			return NewInt(int64(i)), nil
		}), true
	case "count":
		return boundMethod("tuple", name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			return countOf(ctx, t.items, args[0])
		}), true
	}
	return nil, false
}

func joinInspect(items []Object) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = item.Inspect()
	}
	return strings.Join(parts, ", ")
}

func itemsEqual(a, b []Object) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !a[i].Equals(b[i]) {
			return false
		}
	}
	return true
}

func indexOf(ctx context.Context, items []Object, value Object) (int, error) {
	for i, item := range items {
		eq, err := Equal(ctx, item, value)
		if err != nil {
			return -1, err
		}
		if eq {
			return i, nil
		}
	}
	return -1, nil
}

func countOf(ctx context.Context, items []Object, value Object) (Object, error) {
	n := 0
	for _, item := range items {
		eq, err := Equal(ctx, item, value)
		if err != nil {
			return nil, err
		}
		if eq {
			n++
		}
	}
	return NewInt(int64(n)), nil
}

// normalizeIndex resolves a possibly negative index against length n.
func normalizeIndex(idx int64, n int) (int, bool) {
	if idx < 0 {
		idx += int64(n)
	}
	if idx < 0 || idx >= int64(n) {
		return 0, false
	}
	return int(idx), true
}
