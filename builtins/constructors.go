package builtins

import (
	"context"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/deepnoodle-ai/slither/object"
)

func init() {
	object.TypeClass.SetConstructor(newType)
	object.IntClass.SetConstructor(newInt)
	object.BoolClass.SetConstructor(newBool)
	object.FloatClass.SetConstructor(newFloat)
	object.StrClass.SetConstructor(newStr)
	object.BytesClass.SetConstructor(newBytes)
	object.ListClass.SetConstructor(newList)
	object.TupleClass.SetConstructor(newTuple)
	object.DictClass.SetConstructor(newDict)
	object.SetClass.SetConstructor(newSet)
	object.RangeClass.SetConstructor(newRange)
	object.SliceClass.SetConstructor(newSlice)
	object.SuperClass.SetConstructor(newSuper)
	object.PropertyClass.SetConstructor(newProperty)
	object.StaticMethodClass.SetConstructor(newStaticMethod)
	object.ClassMethodClass.SetConstructor(newClassMethod)
}

func newType(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	switch len(args) {
	case 1:
		return args[0].Type(), nil
	case 3:
	default:
		return nil, object.TypeErrorf("type() takes 1 or 3 arguments")
	}
	name, err := object.AsString(args[0])
	if err != nil {
		return nil, object.TypeErrorf("type.__new__() argument 1 must be str, not %s", object.TypeName(args[0]))
	}
	basesTuple, ok := args[1].(*object.Tuple)
	if !ok {
		return nil, object.TypeErrorf("type.__new__() argument 2 must be tuple, not %s", object.TypeName(args[1]))
	}
	ns, ok := args[2].(*object.Dict)
	if !ok {
		return nil, object.TypeErrorf("type.__new__() argument 3 must be dict, not %s", object.TypeName(args[2]))
	}
	table, ok := object.GetClassTable(ctx)
	if !ok {
		return nil, object.RuntimeErrorf("type(): no class table is available")
	}
	bases := make([]*object.Class, 0, basesTuple.Len())
	for _, item := range basesTuple.Items() {
		base, ok := item.(*object.Class)
		if !ok {
			return nil, object.TypeErrorf("bases must be types")
		}
		bases = append(bases, base)
	}
	dict := object.NewDict()
	for _, key := range ns.Keys() {
		value, _, _ := ns.Get(key)
		if err := dict.Set(key, value); err != nil {
			return nil, err
		}
	}
	module := "__main__"
	if m, ok := dict.GetStr("__module__"); ok {
		if s, err := object.AsString(m); err == nil {
			module = s
		}
	}
	return table.NewClass(name, name, module, bases, dict)
}

func newInt(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("int", args, kwargs, "x?", "base?")
	if err != nil {
		return nil, err
	}
	x, baseArg := params[0], params[1]
	if x == nil {
		if baseArg != nil {
			return nil, object.TypeErrorf("int() missing string argument")
		}
		return object.NewInt(0), nil
	}
	if baseArg != nil {
		base, err := integerArg(baseArg)
		if err != nil {
			return nil, err
		}
		if base != 0 && (base < 2 || base > 36) {
			return nil, object.ValueErrorf("int() base must be >= 2 and <= 36, or 0")
		}
		s, ok := x.(*object.Str)
		if !ok {
			return nil, object.TypeErrorf("int() can't convert non-string with explicit base")
		}
		return parseInt(s.Value(), int(base))
	}
	switch v := x.(type) {
	case *object.Int:
		return v, nil
	case *object.Bool:
		n, _ := object.AsInt(v)
		return object.NewInt(n), nil
	case *object.Float:
		f := v.Value()
		if math.IsInf(f, 0) {
			return nil, object.OverflowErrorf("cannot convert float infinity to integer")
		}
		if math.IsNaN(f) {
			return nil, object.ValueErrorf("cannot convert float NaN to integer")
		}
		return object.IntFromFloat(f), nil
	case *object.Str:
		return parseInt(v.Value(), 10)
	case *object.Bytes:
		return parseInt(string(v.Value()), 10)
	case *object.Instance:
		for _, name := range []string{"__int__", "__index__"} {
			if _, _, ok := v.Class().Lookup(name); ok {
				result, err := object.CallMethod(ctx, v, name)
				if err != nil {
					return nil, err
				}
				if _, ok := result.(*object.Int); !ok {
					return nil, object.TypeErrorf("%s returned non-int (type %s)", name, object.TypeName(result))
				}
				return result, nil
			}
		}
	}
	return nil, object.TypeErrorf("int() argument must be a string, a bytes-like object or a real number, not '%s'", object.TypeName(x))
}

func parseInt(text string, base int) (object.Object, error) {
	s := strings.TrimSpace(text)
	invalid := object.ValueErrorf("invalid literal for int() with base %d: %s", base, object.QuoteString(text))
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	lower := strings.ToLower(s)
	prefixes := map[string]int{"0x": 16, "0o": 8, "0b": 2}
	if len(lower) > 2 {
		if b, ok := prefixes[lower[:2]]; ok && (base == 0 || base == b) {
			s, base = s[2:], b
			s = strings.TrimPrefix(s, "_")
		}
	}
	if base == 0 {
		base = 10
		if len(s) > 1 && s[0] == '0' && strings.Trim(s, "0_") != "" {
			return nil, invalid
		}
	}
	if s == "" || strings.HasPrefix(s, "_") || strings.HasSuffix(s, "_") || strings.Contains(s, "__") {
		return nil, invalid
	}
	digits := strings.ReplaceAll(s, "_", "")
	n, err := strconv.ParseInt(digits, base, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			if neg {
				digits = "-" + digits
			}
			if result, ok := object.ParseBigInt(digits, base); ok {
				return result, nil
			}
		}
		return nil, invalid
	}
	if neg {
		n = -n
	}
	return object.NewInt(n), nil
}

func newBool(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("bool", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.False, nil
	}
	truthy, err := object.Truthy(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewBool(truthy), nil
}

func newFloat(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("float", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.NewFloat(0), nil
	}
	switch v := args[0].(type) {
	case *object.Float:
		return v, nil
	case *object.Int, *object.Bool:
		n, _ := object.AsInt(v)
		return object.NewFloat(float64(n)), nil
	case *object.Str:
		return parseFloat(v.Value())
	case *object.Instance:
		if _, _, ok := v.Class().Lookup("__float__"); ok {
			result, err := object.CallMethod(ctx, v, "__float__")
			if err != nil {
				return nil, err
			}
			if _, ok := result.(*object.Float); !ok {
				return nil, object.TypeErrorf("__float__ returned non-float (type %s)", object.TypeName(result))
			}
			return result, nil
		}
	}
	return nil, object.TypeErrorf("float() argument must be a string or a real number, not '%s'", object.TypeName(args[0]))
}

func parseFloat(text string) (object.Object, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	sign := 1.0
	body := s
	if body != "" && (body[0] == '+' || body[0] == '-') {
		if body[0] == '-' {
			sign = -1
		}
		body = body[1:]
	}
	switch body {
	case "inf", "infinity":
		return object.NewFloat(math.Inf(int(sign))), nil
	case "nan":
		return object.NewFloat(math.NaN()), nil
	}
	if body == "" || strings.HasPrefix(body, "_") || strings.Contains(body, "__") || strings.ContainsAny(body, "xp") {
		return nil, object.ValueErrorf("could not convert string to float: %s", object.QuoteString(text))
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return object.NewFloat(f), nil
		}
		return nil, object.ValueErrorf("could not convert string to float: %s", object.QuoteString(text))
	}
	return object.NewFloat(f), nil
}

func newStr(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("str", args, kwargs, "object?", "encoding?", "errors?")
	if err != nil {
		return nil, err
	}
	if params[0] == nil {
		return object.NewStr(""), nil
	}
	if b, ok := params[0].(*object.Bytes); ok && params[1] != nil {
		if !utf8.Valid(b.Value()) {
			return nil, object.Errorf("UnicodeDecodeError", "'utf-8' codec can't decode bytes")
		}
		return object.NewStr(string(b.Value())), nil
	}
	s, err := object.ToStr(ctx, params[0])
	if err != nil {
		return nil, err
	}
	return object.NewStr(s), nil
}

func newBytes(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("bytes", args, kwargs, "source?", "encoding?", "errors?")
	if err != nil {
		return nil, err
	}
	switch v := params[0].(type) {
	case nil:
		return object.NewBytes(nil), nil
	case *object.Str:
		if params[1] == nil {
			return nil, object.TypeErrorf("string argument without an encoding")
		}
		return object.NewBytes([]byte(v.Value())), nil
	case *object.Bytes:
		return v, nil
	case *object.Int:
		if v.Value() < 0 {
			return nil, object.ValueErrorf("negative count")
		}
		return object.NewBytes(make([]byte, v.Value())), nil
	}
	items, err := object.ToSlice(ctx, params[0])
	if err != nil {
		return nil, object.TypeErrorf("cannot convert '%s' object to bytes", object.TypeName(params[0]))
	}
	out := make([]byte, len(items))
	for i, item := range items {
		n, err := integerArg(item)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 255 {
			return nil, object.ValueErrorf("bytes must be in range(0, 256)")
		}
		out[i] = byte(n)
	}
	return object.NewBytes(out), nil
}

func newList(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("list", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.NewList(nil), nil
	}
	items, err := object.ToSlice(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewList(items), nil
}

func newTuple(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("tuple", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.NewTuple(nil), nil
	}
	if t, ok := args[0].(*object.Tuple); ok {
		return t, nil
	}
	items, err := object.ToSlice(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewTuple(items), nil
}

func newSet(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("set", args, kwargs, 0, 1); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return object.NewSet(), nil
	}
	items, err := object.ToSlice(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewSetFrom(items)
}

func newDict(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if len(args) > 1 {
		return nil, object.TypeErrorf("dict expected at most 1 argument, got %d", len(args))
	}
	d := object.NewDict()
	if len(args) == 1 {
		if err := d.Merge(ctx, args[0]); err != nil {
			return nil, err
		}
	}
	if kwargs != nil {
		d.Update(kwargs)
	}
	return d, nil
}

func newRange(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if kwargs.Len() > 0 {
		return nil, object.TypeErrorf("range() takes no keyword arguments")
	}
	if len(args) < 1 || len(args) > 3 {
		return nil, object.TypeErrorf("range expected at most 3 arguments, got %d", len(args))
	}
	values := make([]int64, len(args))
	for i, arg := range args {
		n, err := integerArg(arg)
		if err != nil {
			return nil, err
		}
		values[i] = n
	}
	switch len(values) {
	case 1:
		return object.NewRange(0, values[0], 1)
	case 2:
		return object.NewRange(values[0], values[1], 1)
	}
	return object.NewRange(values[0], values[1], values[2])
}

func newSlice(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("slice", args, kwargs, 1, 3); err != nil {
		return nil, err
	}
	switch len(args) {
	case 1:
		return object.NewSlice(object.None, args[0], object.None), nil
	case 2:
		return object.NewSlice(args[0], args[1], object.None), nil
	}
	return object.NewSlice(args[0], args[1], args[2]), nil
}

func newSuper(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("super", args, kwargs, 0, 2); err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, object.RuntimeErrorf("super(): no arguments")
	}
	thisClass, ok := args[0].(*object.Class)
	if !ok {
		return nil, object.TypeErrorf("super() argument 1 must be a type, not %s", object.TypeName(args[0]))
	}
	return object.NewSuper(thisClass, args[1])
}

func newProperty(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("property", args, kwargs, "fget?", "fset?", "fdel?", "doc?")
	if err != nil {
		return nil, err
	}
	return object.NewProperty(params[0], params[1], params[2]), nil
}

func newStaticMethod(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("staticmethod", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return object.NewStaticMethod(args[0]), nil
}

func newClassMethod(ctx context.Context, cls *object.Class, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("classmethod", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return object.NewClassMethod(args[0]), nil
}
