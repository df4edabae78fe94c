package builtins

import (
	"context"

	"github.com/deepnoodle-ai/slither/object"
	"github.com/deepnoodle-ai/slither/op"
)

func All(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("all", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return scan(ctx, args[0], false)
}

func Any(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("any", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return scan(ctx, args[0], true)
}

// scan returns stopOn as soon as an item's truth value equals it.
func scan(ctx context.Context, iterable object.Object, stopOn bool) (object.Object, error) {
	it, err := object.Iterate(ctx, iterable)
	if err != nil {
		return nil, err
	}
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return object.NewBool(!stopOn), nil
		}
		truthy, err := object.Truthy(ctx, item)
		if err != nil {
			return nil, err
		}
		if truthy == stopOn {
			return object.NewBool(stopOn), nil
		}
	}
}

func Enumerate(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("enumerate", args, kwargs, "iterable", "start?")
	if err != nil {
		return nil, err
	}
	var n int64
	if params[1] != nil {
		if n, err = object.AsInt(params[1]); err != nil {
			return nil, err
		}
	}
	it, err := object.Iterate(ctx, params[0])
	if err != nil {
		return nil, err
	}
	return object.NewIter("enumerate", func(ctx context.Context) (object.Object, bool, error) {
		item, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		pair := object.NewTuple([]object.Object{object.NewInt(n), item})
		n++
		return pair, true, nil
	}), nil
}

func Zip(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("zip", nil, kwargs, "strict?")
	if err != nil {
		return nil, err
	}
	strict := params[0] != nil && params[0].IsTruthy()
	iters := make([]*object.Iter, len(args))
	for i, arg := range args {
		if iters[i], err = object.Iterate(ctx, arg); err != nil {
			return nil, object.TypeErrorf("zip argument #%d must support iteration", i+1)
		}
	}
	return object.NewIter("zip", func(ctx context.Context) (object.Object, bool, error) {
		if len(iters) == 0 {
			return nil, false, nil
		}
		items := make([]object.Object, len(iters))
		for i, it := range iters {
			item, ok, err := it.Next(ctx)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				if strict && i > 0 {
					return nil, false, object.ValueErrorf("zip() argument %d is shorter than argument 1", i+1)
				}
				return nil, false, nil
			}
			items[i] = item
		}
		return object.NewTuple(items), true, nil
	}), nil
}

func Map(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if len(args) < 2 {
		return nil, object.TypeErrorf("map() must have at least two arguments.")
	}
	fn := args[0]
	zipped, err := Zip(ctx, args[1:], kwargs)
	if err != nil {
		return nil, err
	}
	it := zipped.(*object.Iter)
	return object.NewIter("map", func(ctx context.Context) (object.Object, bool, error) {
		group, ok, err := it.Next(ctx)
		if err != nil || !ok {
			return nil, false, err
		}
		result, err := object.Call(ctx, fn, group.(*object.Tuple).Items(), nil)
		if err != nil {
			return nil, false, err
		}
		return result, true, nil
	}), nil
}

func Filter(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("filter", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	fn := args[0]
	it, err := object.Iterate(ctx, args[1])
	if err != nil {
		return nil, err
	}
	return object.NewIter("filter", func(ctx context.Context) (object.Object, bool, error) {
		for {
			item, ok, err := it.Next(ctx)
			if err != nil || !ok {
				return nil, false, err
			}
			test := item
			if fn != object.None {
				if test, err = object.Call(ctx, fn, []object.Object{item}, nil); err != nil {
					return nil, false, err
				}
			}
			truthy, err := object.Truthy(ctx, test)
			if err != nil {
				return nil, false, err
			}
			if truthy {
				return item, true, nil
			}
		}
	}), nil
}

func Iter(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("iter", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	if len(args) == 1 {
		return object.Iterate(ctx, args[0])
	}
	fn, sentinel := args[0], args[1]
	return object.NewIter("callable_iterator", func(ctx context.Context) (object.Object, bool, error) {
		value, err := object.Call(ctx, fn, nil, nil)
		if err != nil {
			return nil, false, err
		}
		done, err := object.Equal(ctx, value, sentinel)
		if err != nil || done {
			return nil, false, err
		}
		return value, true, nil
	}), nil
}

func Next(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("next", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	value, err := object.Next(ctx, args[0])
	if err != nil && len(args) == 2 && object.IsStopIteration(err) {
		return args[1], nil
	}
	return value, err
}

func Reversed(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("reversed", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	seq := args[0]
	switch s := seq.(type) {
	case *object.Dict, *object.Set, *object.Iter:
		return nil, object.TypeErrorf("'%s' object is not reversible", object.TypeName(seq))
	case *object.Instance:
		if _, _, ok := s.Class().Lookup("__reversed__"); ok {
			return object.CallMethod(ctx, s, "__reversed__")
		}
	}
	n, err := object.Len(ctx, seq)
	if err != nil {
		return nil, object.TypeErrorf("'%s' object is not reversible", object.TypeName(seq))
	}
	i := n - 1
	return object.NewIter("reversed", func(ctx context.Context) (object.Object, bool, error) {
		if i < 0 {
			return nil, false, nil
		}
		item, err := object.GetItem(ctx, seq, object.NewInt(int64(i)))
		if err != nil {
			return nil, false, err
		}
		i--
		return item, true, nil
	}), nil
}

func Sorted(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if len(args) != 1 {
		return nil, object.TypeErrorf("sorted expected 1 argument, got %d", len(args))
	}
	params, err := object.ParseArgs("sorted", nil, kwargs, "key?", "reverse?")
	if err != nil {
		return nil, err
	}
	items, err := object.ToSlice(ctx, args[0])
	if err != nil {
		return nil, err
	}
	reverse := false
	if params[1] != nil {
		if reverse, err = object.Truthy(ctx, params[1]); err != nil {
			return nil, err
		}
	}
	if err := object.Sort(ctx, items, params[0], reverse); err != nil {
		return nil, err
	}
	return object.NewList(items), nil
}

func Sum(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("sum", args, kwargs, "iterable", "start?")
	if err != nil {
		return nil, err
	}
	var total object.Object = object.NewInt(0)
	if params[1] != nil {
		total = params[1]
		switch total.(type) {
		case *object.Str:
			return nil, object.TypeErrorf("sum() can't sum strings [use ''.join(seq) instead]")
		case *object.Bytes:
			return nil, object.TypeErrorf("sum() can't sum bytes [use b''.join(seq) instead]")
		}
	}
	it, err := object.Iterate(ctx, params[0])
	if err != nil {
		return nil, err
	}
	for {
		item, ok, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return total, nil
		}
		if total, err = object.BinaryOp(ctx, op.BinaryAdd, total, item); err != nil {
			return nil, err
		}
	}
}

func Min(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	return extreme(ctx, "min", op.LessThan, args, kwargs)
}

func Max(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	return extreme(ctx, "max", op.GreaterThan, args, kwargs)
}

func extreme(ctx context.Context, name string, cmp op.CompareOpType, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs(name, nil, kwargs, "key?", "default?")
	if err != nil {
		return nil, err
	}
	key, def := params[0], params[1]
	var items []object.Object
	switch len(args) {
	case 0:
		return nil, object.TypeErrorf("%s expected at least 1 argument, got 0", name)
	case 1:
		if items, err = object.ToSlice(ctx, args[0]); err != nil {
			return nil, err
		}
	default:
		if def != nil {
			return nil, object.TypeErrorf("Cannot specify a default for %s() with multiple positional arguments", name)
		}
		items = args
	}
	if len(items) == 0 {
		if def != nil {
			return def, nil
		}
		return nil, object.ValueErrorf("%s() iterable argument is empty", name)
	}
	keyOf := func(item object.Object) (object.Object, error) {
		if key == nil || key == object.None {
			return item, nil
		}
		return object.Call(ctx, key, []object.Object{item}, nil)
	}
	best := items[0]
	bestKey, err := keyOf(best)
	if err != nil {
		return nil, err
	}
	for _, item := range items[1:] {
		k, err := keyOf(item)
		if err != nil {
			return nil, err
		}
		result, err := object.Compare(ctx, cmp, k, bestKey)
		if err != nil {
			return nil, err
		}
		better, err := object.Truthy(ctx, result)
		if err != nil {
			return nil, err
		}
		if better {
			best, bestKey = item, k
		}
	}
	return best, nil
}
