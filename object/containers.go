package object

import (
	"context"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

// Contains reports whether item is in container.
func Contains(ctx context.Context, container, item Object) (bool, error) {
	switch c := container.(type) {
	case *Str:
		s, ok := item.(*Str)
		if !ok {
			return false, TypeErrorf("'in <string>' requires string as left operand, not %s", TypeName(item))
		}
		return strings.Contains(c.value, s.value), nil
	case *Bytes:
		switch s := item.(type) {
		case *Bytes:
			return strings.Contains(c.value, s.value), nil
		case *Int:
			if s.big != nil || s.value < 0 || s.value > 255 {
				return false, ValueErrorf("byte must be in range(0, 256)")
			}
			return strings.IndexByte(c.value, byte(s.value)) >= 0, nil
		}
		return false, TypeErrorf("a bytes-like object is required, not '%s'", TypeName(item))
	case *List:
		idx, err := indexOf(ctx, c.items, item)
		return idx >= 0, err
	case *Tuple:
		idx, err := indexOf(ctx, c.items, item)
		return idx >= 0, err
	case *Dict:
		_, found, err := c.Get(item)
		return found, err
	case *Set:
		return c.Contains(item)
	case *Range:
		n, ok := asInt(item)
		if !ok {
			return false, nil
		}
		if c.step > 0 && (n < c.start || n >= c.stop) || c.step < 0 && (n > c.start || n <= c.stop) {
			return false, nil
		}
		return (n-c.start)%c.step == 0, nil
	case *Instance:
		if method, ok := lookupSpecial(c, "__contains__"); ok {
			result, err := Call(ctx, method, []Object{item}, nil)
			if err != nil {
				return false, err
			}
			return Truthy(ctx, result)
		}
	}
	it, err := Iterate(ctx, container)
	if err != nil {
		return false, TypeErrorf("argument of type '%s' is not iterable", TypeName(container))
	}
	for {
		value, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return false, err
		}
		eq, err := Equal(ctx, value, item)
		if err != nil || eq {
			return eq, err
		}
	}
}

func indexError(typeName string) error {
	return IndexErrorf("%s index out of range", typeName)
}

func sequenceIndex(typeName string, key Object, n int) (int, error) {
	idx, ok := asInt(key)
	if !ok {
		if isBigInt(key) {
			return 0, indexOverflow()
		}
		return 0, TypeErrorf("%s indices must be integers or slices, not %s", typeName, TypeName(key))
	}
	i, ok := normalizeIndex(idx, n)
	if !ok {
		return 0, indexError(typeName)
	}
	return i, nil
}

// GetItem evaluates container[key].
func GetItem(ctx context.Context, container, key Object) (Object, error) {
	switch c := container.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			items, err := sliceItems(c.items, s)
			return NewList(items), err
		}
		i, err := sequenceIndex("list", key, len(c.items))
		if err != nil {
			return nil, err
		}
		return c.items[i], nil
	case *Tuple:
		if s, ok := key.(*Slice); ok {
			items, err := sliceItems(c.items, s)
			return NewTuple(items), err
		}
		i, err := sequenceIndex("tuple", key, len(c.items))
		if err != nil {
			return nil, err
		}
		return c.items[i], nil
	case *Str:
		runes := []rune(c.value)
		if s, ok := key.(*Slice); ok {
			start, stop, step, err := s.Indices(len(runes))
			if err != nil {
				return nil, err
			}
			var sb strings.Builder
			for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
				sb.WriteRune(runes[i])
			}
			return NewStr(sb.String()), nil
		}
		if !utf8.ValidString(c.value) {
			return nil, ValueErrorf("invalid utf-8 string")
		}
		i, err := sequenceIndex("string", key, len(runes))
		if err != nil {
			return nil, err
		}
		return NewStr(string(runes[i])), nil
	case *Bytes:
		if s, ok := key.(*Slice); ok {
			start, stop, step, err := s.Indices(len(c.value))
			if err != nil {
				return nil, err
			}
			var out []byte
			for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
				out = append(out, c.value[i])
			}
			return NewBytes(out), nil
		}
		i, err := sequenceIndex("index", key, len(c.value))
		if err != nil {
			return nil, err
		}
		return NewInt(int64(c.value[i])), nil
	case *Range:
		if s, ok := key.(*Slice); ok {
			start, stop, step, err := s.Indices(c.Len())
			if err != nil {
				return nil, err
			}
			return NewRange(c.start+int64(start)*c.step, c.start+int64(stop)*c.step, c.step*int64(step))
		}
		i, err := sequenceIndex("range object", key, c.Len())
		if err != nil {
			return nil, err
		}
		return NewInt(c.At(i)), nil
	case *Dict:
		value, found, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, KeyError(key)
		}
		return value, nil
	case *Instance:
		if method, ok := lookupSpecial(c, "__getitem__"); ok {
			return Call(ctx, method, []Object{key}, nil)
		}
	case *Class:
		if method, _, ok := c.Lookup("__class_getitem__"); ok {
			return Call(ctx, bind(method, c, c), []Object{key}, nil)
		}
		return nil, TypeErrorf("type '%s' is not subscriptable", c.name)
	}
	return nil, TypeErrorf("'%s' object is not subscriptable", TypeName(container))
}

// SetItem evaluates container[key] = value.
func SetItem(ctx context.Context, container, key, value Object) error {
	switch c := container.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			return c.setSlice(ctx, s, value)
		}
		i, err := sequenceIndex("list assignment", key, len(c.items))
		if err != nil {
			return err
		}
		c.items[i] = value
		return nil
	case *Dict:
		return c.Set(key, value)
	case *Instance:
		if method, ok := lookupSpecial(c, "__setitem__"); ok {
			_, err := Call(ctx, method, []Object{key, value}, nil)
			return err
		}
	}
	return TypeErrorf("'%s' object does not support item assignment", TypeName(container))
}

func (l *List) setSlice(ctx context.Context, s *Slice, value Object) error {
	items, err := ToSlice(ctx, value)
	if err != nil {
		return TypeErrorf("can only assign an iterable")
	}
	start, stop, step, err := s.Indices(len(l.items))
	if err != nil {
		return err
	}
	if step == 1 {
		if stop < start {
			stop = start
		}
		l.items = slices.Concat(l.items[:start], items, l.items[stop:])
		return nil
	}
	var targets []int
	for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
		targets = append(targets, i)
	}
	if len(targets) != len(items) {
		return ValueErrorf("attempt to assign sequence of size %d to extended slice of size %d", len(items), len(targets))
	}
	for j, i := range targets {
		l.items[i] = items[j]
	}
	return nil
}

// DelItem evaluates del container[key].
func DelItem(ctx context.Context, container, key Object) error {
	switch c := container.(type) {
	case *List:
		if s, ok := key.(*Slice); ok {
			start, stop, step, err := s.Indices(len(c.items))
			if err != nil {
				return err
			}
			drop := map[int]bool{}
			for i := start; (step > 0 && i < stop) || (step < 0 && i > stop); i += step {
				drop[i] = true
			}
			kept := c.items[:0]
			for i, item := range c.items {
				if !drop[i] {
					kept = append(kept, item)
				}
			}
			c.items = kept
			return nil
		}
		i, err := sequenceIndex("list assignment", key, len(c.items))
		if err != nil {
			return err
		}
		c.items = slices.Delete(c.items, i, i+1)
		return nil
	case *Dict:
		found, err := c.Delete(key)
		if err != nil {
			return err
		}
		if !found {
			return KeyError(key)
		}
		return nil
	case *Instance:
		if method, ok := lookupSpecial(c, "__delitem__"); ok {
			_, err := Call(ctx, method, []Object{key}, nil)
			return err
		}
	}
	return TypeErrorf("'%s' object doesn't support item deletion", TypeName(container))
}

// Sort sorts items in place with a stable sort. key may be nil or None.
func Sort(ctx context.Context, items []Object, key Object, reverse bool) error {
	keys := items
	if key != nil && key != None {
		keys = make([]Object, len(items))
		for i, item := range items {
			k, err := Call(ctx, key, []Object{item}, nil)
			if err != nil {
				return err
			}
			keys[i] = k
		}
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := keys[idx[i]], keys[idx[j]]
		if reverse {
			a, b = b, a
		}
		less, err := LessThan(ctx, a, b)
		if err != nil {
			sortErr = err
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]Object, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}
