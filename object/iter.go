package object

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf8"
)

// NextFunc produces the next item of an iteration. ok is false once the
// iteration is exhausted.
type NextFunc func(ctx context.Context) (item Object, ok bool, err error)

// Iter is an iterator over a builtin container or a user iterator.
type Iter struct {
	base
	name string
	next NextFunc
	done bool
}

func NewIter(name string, next NextFunc) *Iter {
	return &Iter{name: name, next: next}
}

// Next advances the iterator. Once exhausted it stays exhausted.
func (it *Iter) Next(ctx context.Context) (Object, bool, error) {
	if it.done {
		return nil, false, nil
	}
	item, ok, err := it.next(ctx)
	if err != nil || !ok {
		it.done = true
	}
	return item, ok, err
}

func (it *Iter) Type() *Class             { return IteratorClass }
func (it *Iter) Interface() any           { return it }
func (it *Iter) Inspect() string          { return fmt.Sprintf("<%s object at %p>", it.name, it) }
func (it *Iter) Equals(other Object) bool { return it == other }

func (it *Iter) SetAttr(name string, value Object) error { return setAttrError(it, name) }

func (it *Iter) GetAttr(name string) (Object, bool) {
	switch name {
	case "__iter__":
		return boundMethod(it.name, name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return it, nil
		}), true
	case "__next__":
		return boundMethod(it.name, name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			item, ok, err := it.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, StopIteration()
			}
			return item, nil
		}), true
	}
	return nil, false
}

func sliceIter(name string, items []Object) *Iter {
	i := 0
	return NewIter(name, func(ctx context.Context) (Object, bool, error) {
		if i >= len(items) {
			return nil, false, nil
		}
		item := items[i]
		i++
		return item, true, nil
	})
}

// Iterate returns an iterator over obj.
func Iterate(ctx context.Context, obj Object) (*Iter, error) {
	switch obj := obj.(type) {
	case *Iter:
		return obj, nil
	case *List:
		i := 0
		return NewIter("list_iterator", func(ctx context.Context) (Object, bool, error) {
			if i >= len(obj.items) {
				return nil, false, nil
			}
			item := obj.items[i]
			i++
			return item, true, nil
		}), nil
	case *Tuple:
		return sliceIter("tuple_iterator", obj.items), nil
	case *Dict:
		return sliceIter("dict_keyiterator", obj.Keys()), nil
	case *Set:
		return sliceIter("set_iterator", obj.Items()), nil
	case *Str:
		rest := obj.value
		return NewIter("str_iterator", func(ctx context.Context) (Object, bool, error) {
			if rest == "" {
				return nil, false, nil
			}
			r, size := utf8.DecodeRuneInString(rest)
			rest = rest[size:]
			return NewStr(string(r)), true, nil
		}), nil
	case *Bytes:
		i := 0
		return NewIter("bytes_iterator", func(ctx context.Context) (Object, bool, error) {
			if i >= len(obj.value) {
				return nil, false, nil
			}
			b := obj.value[i]
			i++
			return NewInt(int64(b)), true, nil
		}), nil
	case *Range:
		i, n := 0, obj.Len()
		return NewIter("range_iterator", func(ctx context.Context) (Object, bool, error) {
			if i >= n {
				return nil, false, nil
			}
			v := obj.At(i)
			i++
			return NewInt(v), true, nil
		}), nil
	case *Instance:
		return iterateInstance(ctx, obj)
	}
	return nil, TypeErrorf("'%s' object is not iterable", TypeName(obj))
}

func iterateInstance(ctx context.Context, inst *Instance) (*Iter, error) {
	if _, _, ok := inst.class.Lookup("__iter__"); ok {
		result, err := CallMethod(ctx, inst, "__iter__")
		if err != nil {
			return nil, err
		}
		if it, ok := result.(*Iter); ok {
			return it, nil
		}
		if _, _, ok := result.Type().Lookup("__next__"); !ok {
			return nil, TypeErrorf("iter() returned non-iterator of type '%s'", TypeName(result))
		}
		return NewIter(inst.class.name+"_iterator", func(ctx context.Context) (Object, bool, error) {
			item, err := CallMethod(ctx, result, "__next__")
			if err != nil {
				if IsStopIteration(err) {
					return nil, false, nil
				}
				return nil, false, err
			}
			return item, true, nil
		}), nil
	}
	if _, _, ok := inst.class.Lookup("__getitem__"); ok {
		i := int64(0)
		return NewIter("iterator", func(ctx context.Context) (Object, bool, error) {
			item, err := CallMethod(ctx, inst, "__getitem__", NewInt(i))
			if err != nil {
				if exc := AsException(err); exc.IsInstance("IndexError") || exc.IsInstance("StopIteration") {
					return nil, false, nil
				}
				return nil, false, err
			}
			i++
			return item, true, nil
		}), nil
	}
	return nil, TypeErrorf("'%s' object is not iterable", inst.class.name)
}

// Next returns the next item of an iterator object, raising StopIteration
// when it is exhausted.
func Next(ctx context.Context, obj Object) (Object, error) {
	switch obj := obj.(type) {
	case *Iter:
		item, ok, err := obj.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, StopIteration()
		}
		return item, nil
	case *Instance:
		if _, _, ok := obj.class.Lookup("__next__"); ok {
			return CallMethod(ctx, obj, "__next__")
		}
	}
	return nil, TypeErrorf("'%s' object is not an iterator", TypeName(obj))
}

// ToSlice collects the items of an iterable.
func ToSlice(ctx context.Context, obj Object) ([]Object, error) {
	switch obj := obj.(type) {
	case *List:
		return slices.Clone(obj.items), nil
	case *Tuple:
		return slices.Clone(obj.items), nil
	}
	it, err := Iterate(ctx, obj)
	if err != nil {
		return nil, err
	}
	var items []Object
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}
