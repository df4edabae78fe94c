// Package builtins defines the builtin namespace: functions, the builtin
// classes and every exception class.
package builtins

import (
	"context"
	"io"
	"reflect"
	"strings"

	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/object"
)

// Builtins returns a fresh builtin namespace.
func Builtins() map[string]object.Object {
	m := map[string]object.Object{
		"abs":        object.NewBuiltin("abs", Abs),
		"all":        object.NewBuiltin("all", All),
		"any":        object.NewBuiltin("any", Any),
		"ascii":      object.NewBuiltin("ascii", ASCII),
		"bin":        object.NewBuiltin("bin", Bin),
		"callable":   object.NewBuiltin("callable", Callable),
		"chr":        object.NewBuiltin("chr", Chr),
		"delattr":    object.NewBuiltin("delattr", DelAttr),
		"dir":        object.NewBuiltin("dir", Dir),
		"divmod":     object.NewBuiltin("divmod", DivMod),
		"enumerate":  object.NewBuiltin("enumerate", Enumerate),
		"filter":     object.NewBuiltin("filter", Filter),
		"format":     object.NewBuiltin("format", Format),
		"getattr":    object.NewBuiltin("getattr", GetAttr),
		"hasattr":    object.NewBuiltin("hasattr", HasAttr),
		"hash":       object.NewBuiltin("hash", Hash),
		"hex":        object.NewBuiltin("hex", Hex),
		"id":         object.NewBuiltin("id", ID),
		"isinstance": object.NewBuiltin("isinstance", IsInstance),
		"issubclass": object.NewBuiltin("issubclass", IsSubclass),
		"iter":       object.NewBuiltin("iter", Iter),
		"len":        object.NewBuiltin("len", Len),
		"map":        object.NewBuiltin("map", Map),
		"max":        object.NewBuiltin("max", Max),
		"min":        object.NewBuiltin("min", Min),
		"next":       object.NewBuiltin("next", Next),
		"oct":        object.NewBuiltin("oct", Oct),
		"ord":        object.NewBuiltin("ord", Ord),
		"pow":        object.NewBuiltin("pow", Pow),
		"print":      object.NewBuiltin("print", Print),
		"repr":       object.NewBuiltin("repr", Repr),
		"reversed":   object.NewBuiltin("reversed", Reversed),
		"round":      object.NewBuiltin("round", Round),
		"setattr":    object.NewBuiltin("setattr", SetAttr),
		"sorted":     object.NewBuiltin("sorted", Sorted),
		"sum":        object.NewBuiltin("sum", Sum),
		"vars":       object.NewBuiltin("vars", Vars),
		"zip":        object.NewBuiltin("zip", Zip),

		"NotImplemented": object.NotImplemented,
		"Ellipsis":       object.Ellipsis,
	}
	for _, cls := range []*object.Class{
		object.ObjectClass,
		object.TypeClass,
		object.IntClass,
		object.BoolClass,
		object.FloatClass,
		object.StrClass,
		object.BytesClass,
		object.ListClass,
		object.TupleClass,
		object.DictClass,
		object.SetClass,
		object.RangeClass,
		object.SliceClass,
		object.SuperClass,
		object.PropertyClass,
		object.StaticMethodClass,
		object.ClassMethodClass,
	} {
		m[cls.Name()] = cls
	}
	for _, name := range exception.Names() {
		cls, _ := object.ExceptionClass(name)
		m[name] = cls
	}
	return m
}

func checkArgs(name string, args []object.Object, kwargs *object.Dict, minArgs, maxArgs int) error {
	if kwargs.Len() > 0 {
		return object.TypeErrorf("%s() takes no keyword arguments", name)
	}
	if len(args) < minArgs || len(args) > maxArgs {
		switch {
		case minArgs == maxArgs && minArgs == 1:
			return object.TypeErrorf("%s() takes exactly one argument (%d given)", name, len(args))
		case minArgs == maxArgs:
			return object.TypeErrorf("%s expected %d arguments, got %d", name, minArgs, len(args))
		case len(args) < minArgs:
			return object.TypeErrorf("%s expected at least %d arguments, got %d", name, minArgs, len(args))
		default:
			return object.TypeErrorf("%s expected at most %d arguments, got %d", name, maxArgs, len(args))
		}
	}
	return nil
}

func Print(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("print", nil, kwargs, "sep?", "end?", "file?", "flush?")
	if err != nil {
		return nil, err
	}
	sep, end := " ", "\n"
	if params[0] != nil && params[0] != object.None {
		if sep, err = object.AsString(params[0]); err != nil {
			return nil, object.TypeErrorf("sep must be None or a string, not %s", object.TypeName(params[0]))
		}
	}
	if params[1] != nil && params[1] != object.None {
		if end, err = object.AsString(params[1]); err != nil {
			return nil, object.TypeErrorf("end must be None or a string, not %s", object.TypeName(params[1]))
		}
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		if parts[i], err = object.ToStr(ctx, arg); err != nil {
			return nil, err
		}
	}
	if params[2] != nil && params[2] != object.None {
		file := params[2]
		write, err := object.GetAttribute(ctx, file, "write")
		if err != nil {
			return nil, err
		}
		_, err = object.Call(ctx, write, []object.Object{object.NewStr(strings.Join(parts, sep) + end)}, nil)
		return object.None, err
	}
	if _, err := io.WriteString(object.GetOutput(ctx), strings.Join(parts, sep)+end); err != nil {
		return nil, object.Errorf("OSError", "%s", err.Error())
	}
	return object.None, nil
}

func Len(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("len", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	n, err := object.Len(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewInt(int64(n)), nil
}

func Repr(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("repr", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	s, err := object.Repr(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewStr(s), nil
}

func ASCII(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("ascii", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	s, err := object.ASCII(ctx, args[0])
	if err != nil {
		return nil, err
	}
	return object.NewStr(s), nil
}

func Format(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("format", args, kwargs, 1, 2); err != nil {
		return nil, err
	}
	spec := ""
	if len(args) == 2 {
		var err error
		if spec, err = object.AsString(args[1]); err != nil {
			return nil, object.TypeErrorf("format() argument 2 must be str, not %s", object.TypeName(args[1]))
		}
	}
	s, err := object.FormatValue(ctx, args[0], spec)
	if err != nil {
		return nil, err
	}
	return object.NewStr(s), nil
}

// classInfo flattens the second argument of isinstance and issubclass.
func classInfo(name string, info object.Object) ([]*object.Class, error) {
	switch info := info.(type) {
	case *object.Class:
		return []*object.Class{info}, nil
	case *object.Tuple:
		var out []*object.Class
		for _, item := range info.Items() {
			classes, err := classInfo(name, item)
			if err != nil {
				return nil, err
			}
			out = append(out, classes...)
		}
		return out, nil
	}
	return nil, object.TypeErrorf("%s() arg 2 must be a type, a tuple of types, or a union", name)
}

func IsInstance(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("isinstance", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	classes, err := classInfo("isinstance", args[1])
	if err != nil {
		return nil, err
	}
	for _, cls := range classes {
		if object.IsInstance(args[0], cls) {
			return object.True, nil
		}
	}
	return object.False, nil
}

func IsSubclass(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("issubclass", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	cls, ok := args[0].(*object.Class)
	if !ok {
		return nil, object.TypeErrorf("issubclass() arg 1 must be a class")
	}
	classes, err := classInfo("issubclass", args[1])
	if err != nil {
		return nil, err
	}
	for _, other := range classes {
		if cls.IsSubclass(other) {
			return object.True, nil
		}
	}
	return object.False, nil
}

func attrName(fn string, obj object.Object) (string, error) {
	name, err := object.AsString(obj)
	if err != nil {
		return "", object.TypeErrorf("%s(): attribute name must be string, not '%s'", fn, object.TypeName(obj))
	}
	return name, nil
}

func GetAttr(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("getattr", args, kwargs, 2, 3); err != nil {
		return nil, err
	}
	name, err := attrName("getattr", args[1])
	if err != nil {
		return nil, err
	}
	value, err := object.GetAttribute(ctx, args[0], name)
	if err != nil && len(args) == 3 && object.AsException(err).IsInstance("AttributeError") {
		return args[2], nil
	}
	return value, err
}

func HasAttr(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("hasattr", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("hasattr", args[1])
	if err != nil {
		return nil, err
	}
	ok, err := object.HasAttribute(ctx, args[0], name)
	if err != nil {
		return nil, err
	}
	return object.NewBool(ok), nil
}

func SetAttr(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("setattr", args, kwargs, 3, 3); err != nil {
		return nil, err
	}
	name, err := attrName("setattr", args[1])
	if err != nil {
		return nil, err
	}
	return object.None, object.SetAttribute(ctx, args[0], name, args[2])
}

func DelAttr(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("delattr", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	name, err := attrName("delattr", args[1])
	if err != nil {
		return nil, err
	}
	return object.None, object.DelAttribute(ctx, args[0], name)
}

func Callable(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("callable", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	switch obj := args[0].(type) {
	case *object.Builtin, *object.Function, *object.BoundMethod, *object.Class:
		return object.True, nil
	case *object.Instance:
		_, _, ok := obj.Class().Lookup("__call__")
		return object.NewBool(ok), nil
	}
	return object.False, nil
}

func ID(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("id", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	return object.NewInt(int64(reflect.ValueOf(args[0]).Pointer())), nil
}

func Hash(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("hash", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	if inst, ok := args[0].(*object.Instance); ok {
		if method, owner, ok := inst.Class().Lookup("__hash__"); ok && method != object.None && !owner.IsBuiltin() {
			result, err := object.CallMethod(ctx, inst, "__hash__")
			if err != nil {
				return nil, err
			}
			if _, ok := result.(*object.Int); !ok {
				return nil, object.TypeErrorf("__hash__ method should return an integer")
			}
			return result, nil
		}
	}
	key, err := object.Hash(args[0])
	if err != nil {
		return nil, err
	}
	return object.NewInt(key.Value()), nil
}

func Vars(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("vars", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	value, err := object.GetAttribute(ctx, args[0], "__dict__")
	if err != nil {
		return nil, object.TypeErrorf("vars() argument must have __dict__ attribute")
	}
	return value, nil
}

func Dir(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("dir", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	add := func(d *object.Dict) {
		for _, name := range d.StrKeys() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	switch obj := args[0].(type) {
	case *object.Instance:
		add(obj.Dict())
		for _, cls := range obj.Class().MRO() {
			add(cls.Dict())
		}
	case *object.Class:
		for _, cls := range obj.MRO() {
			add(cls.Dict())
		}
	case *object.Module:
		add(obj.Dict())
	default:
		for _, cls := range obj.Type().MRO() {
			add(cls.Dict())
		}
	}
	items := make([]object.Object, len(names))
	for i, name := range names {
		items[i] = object.NewStr(name)
	}
	if err := object.Sort(ctx, items, nil, false); err != nil {
		return nil, err
	}
	return object.NewList(items), nil
}
