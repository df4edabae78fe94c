package builtins

import (
	"bytes"
	"context"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/slither/object"
	"github.com/stretchr/testify/require"
)

func call(t *testing.T, name string, args ...object.Object) (object.Object, error) {
	t.Helper()
	fn, ok := Builtins()[name]
	require.True(t, ok, "missing builtin %s", name)
	return object.Call(context.Background(), fn, args, nil)
}

func mustCall(t *testing.T, name string, args ...object.Object) object.Object {
	t.Helper()
	result, err := call(t, name, args...)
	require.NoError(t, err)
	return result
}

func errMessage(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return object.AsException(err).Message
}

func ints(values ...int64) []object.Object {
	out := make([]object.Object, len(values))
	for i, v := range values {
		out[i] = object.NewInt(v)
	}
	return out
}

func TestNamespace(t *testing.T) {
	ns := Builtins()
	for _, name := range []string{"print", "len", "isinstance", "object", "int", "ValueError", "StopIteration", "NotImplemented"} {
		_, ok := ns[name]
		require.True(t, ok, name)
	}
	require.Same(t, object.IntClass, ns["int"])
}

func TestPrint(t *testing.T) {
	var buf bytes.Buffer
	ctx := object.WithOutput(context.Background(), &buf)
	kwargs := object.NewDict()
	kwargs.SetStr("sep", object.NewStr("-"))
	kwargs.SetStr("end", object.NewStr("!\n"))
	_, err := Print(ctx, []object.Object{object.NewInt(1), object.NewStr("a"), object.None}, kwargs)
	require.NoError(t, err)
	require.Equal(t, "1-a-None!\n", buf.String())
}

func TestNumericBuiltins(t *testing.T) {
	// 2**68
	huge := object.NewBigInt(new(big.Int).Lsh(big.NewInt(1), 68))
	tests := []struct {
		name string
		args []object.Object
		want string
	}{
		{"abs", ints(-4), "4"},
		{"abs", []object.Object{object.NewFloat(-1.5)}, "1.5"},
		{"bin", ints(10), "'0b1010'"},
		{"oct", ints(-8), "'-0o10'"},
		{"hex", ints(255), "'0xff'"},
		{"chr", ints(65), "'A'"},
		{"ord", []object.Object{object.NewStr("é")}, "233"},
		{"divmod", ints(-7, 2), "(-4, 1)"},
		{"pow", ints(2, 10), "1024"},
		{"pow", ints(3, 4, 5), "1"},
		{"pow", ints(2, -1), "0.5"},
		{"round", []object.Object{object.NewFloat(2.5)}, "2"},
		{"round", []object.Object{object.NewFloat(3.5)}, "4"},
		{"round", []object.Object{object.NewFloat(1.2345), object.NewInt(2)}, "1.23"},
		{"round", ints(1234, -2), "1200"},
		{"round", ints(1250, -2), "1200"},
		{"round", ints(1350, -2), "1400"},
		{"round", ints(-150, -2), "-200"},
		{"round", []object.Object{object.NewFloat(1e20)}, "100000000000000000000"},
		{"abs", ints(math.MinInt64), "9223372036854775808"},
		{"hex", []object.Object{huge}, "'0x100000000000000000'"},
		{"bin", []object.Object{object.NewBigInt(new(big.Int).Neg(big.NewInt(0).Lsh(big.NewInt(1), 64)))}, "'-0b1" + strings.Repeat("0", 64) + "'"},
		{"pow", ints(3, -1, 7), "5"},
		{"pow", ints(2, 100, -7), "-5"},
		{"pow", []object.Object{huge, object.NewInt(2), object.NewInt(1000)}, "736"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, mustCall(t, tt.name, tt.args...).Inspect())
		})
	}

	_, err := call(t, "chr", ints(-1)...)
	require.Equal(t, "chr() arg not in range(0x110000)", errMessage(t, err))
	_, err = call(t, "ord", object.NewStr("ab"))
	require.Equal(t, "ord() expected a character, but string of length 2 found", errMessage(t, err))
	_, err = call(t, "abs", object.NewStr("x"))
	require.Equal(t, "bad operand type for abs(): 'str'", errMessage(t, err))
	_, err = call(t, "pow", ints(2, 3, 0)...)
	require.Equal(t, "pow() 3rd argument cannot be 0", errMessage(t, err))
	_, err = call(t, "pow", ints(2, -1, 4)...)
	require.Equal(t, "base is not invertible for the given modulus", errMessage(t, err))
	_, err = call(t, "chr", huge)
	require.Equal(t, "OverflowError", object.AsException(err).TypeName)
}

func TestIterationBuiltins(t *testing.T) {
	list := object.NewList(ints(3, 1, 2))
	require.Equal(t, "[1, 2, 3]", mustCall(t, "sorted", list).Inspect())
	require.Equal(t, "6", mustCall(t, "sum", list).Inspect())
	require.Equal(t, "1", mustCall(t, "min", list).Inspect())
	require.Equal(t, "3", mustCall(t, "max", ints(3, 1, 2)...).Inspect())
	require.Equal(t, "True", mustCall(t, "any", list).Inspect())
	require.Equal(t, "False", mustCall(t, "all", object.NewList(ints(1, 0))).Inspect())

	ctx := context.Background()
	enumerated, err := object.ToSlice(ctx, mustCall(t, "enumerate", object.NewStr("ab")))
	require.NoError(t, err)
	require.Equal(t, "[(0, 'a'), (1, 'b')]", object.NewList(enumerated).Inspect())

	zipped, err := object.ToSlice(ctx, mustCall(t, "zip", list, object.NewStr("xy")))
	require.NoError(t, err)
	require.Equal(t, "[(3, 'x'), (1, 'y')]", object.NewList(zipped).Inspect())

	reversed, err := object.ToSlice(ctx, mustCall(t, "reversed", list))
	require.NoError(t, err)
	require.Equal(t, "[2, 1, 3]", object.NewList(reversed).Inspect())

	mapped, err := object.ToSlice(ctx, mustCall(t, "map", Builtins()["abs"], object.NewList(ints(-1, -2))))
	require.NoError(t, err)
	require.Equal(t, "[1, 2]", object.NewList(mapped).Inspect())

	filtered, err := object.ToSlice(ctx, mustCall(t, "filter", object.None, object.NewList(ints(0, 1, 0, 2))))
	require.NoError(t, err)
	require.Equal(t, "[1, 2]", object.NewList(filtered).Inspect())

	it := mustCall(t, "iter", object.NewList(ints(1)))
	require.Equal(t, "1", mustCall(t, "next", it).Inspect())
	require.Equal(t, "'done'", mustCall(t, "next", it, object.NewStr("done")).Inspect())
	_, err = call(t, "next", it)
	require.Equal(t, "StopIteration", object.AsException(err).TypeName)

	_, err = call(t, "min", object.NewList(nil))
	require.Equal(t, "min() iterable argument is empty", errMessage(t, err))
	_, err = call(t, "sum", list, object.NewStr(""))
	require.Equal(t, "sum() can't sum strings [use ''.join(seq) instead]", errMessage(t, err))
	_, err = call(t, "reversed", object.NewDict())
	require.Equal(t, "'dict' object is not reversible", errMessage(t, err))
}

func TestSortedKeywords(t *testing.T) {
	kwargs := object.NewDict()
	kwargs.SetStr("key", Builtins()["abs"])
	kwargs.SetStr("reverse", object.True)
	result, err := Sorted(context.Background(), []object.Object{object.NewList(ints(1, -3, 2))}, kwargs)
	require.NoError(t, err)
	require.Equal(t, "[-3, 2, 1]", result.Inspect())
}

func TestZipStrict(t *testing.T) {
	kwargs := object.NewDict()
	kwargs.SetStr("strict", object.True)
	it, err := Zip(context.Background(), []object.Object{object.NewList(ints(1, 2)), object.NewList(ints(1))}, kwargs)
	require.NoError(t, err)
	_, err = object.ToSlice(context.Background(), it)
	require.Equal(t, "zip() argument 2 is shorter than argument 1", errMessage(t, err))
}

func TestIntrospection(t *testing.T) {
	valueError, _ := object.ExceptionClass("ValueError")
	lookupError, _ := object.ExceptionClass("LookupError")
	keyError, _ := object.ExceptionClass("KeyError")

	require.Equal(t, "True", mustCall(t, "isinstance", object.True, object.IntClass).Inspect())
	require.Equal(t, "True", mustCall(t, "isinstance", object.NewStr("x"), object.NewTuple([]object.Object{object.IntClass, object.StrClass})).Inspect())
	require.Equal(t, "True", mustCall(t, "issubclass", keyError, lookupError).Inspect())
	require.Equal(t, "False", mustCall(t, "issubclass", keyError, valueError).Inspect())
	_, err := call(t, "isinstance", object.NewInt(1), object.NewInt(2))
	require.Equal(t, "isinstance() arg 2 must be a type, a tuple of types, or a union", errMessage(t, err))

	require.Equal(t, "True", mustCall(t, "callable", Builtins()["len"]).Inspect())
	require.Equal(t, "False", mustCall(t, "callable", object.NewInt(1)).Inspect())
	require.Equal(t, "3", mustCall(t, "len", object.NewStr("abc")).Inspect())
	require.Equal(t, "\"'a'\"", mustCall(t, "repr", object.NewStr("a")).Inspect())
	require.Equal(t, "'  7'", mustCall(t, "format", object.NewInt(7), object.NewStr(">3")).Inspect())

	_, err = call(t, "len", object.NewInt(1))
	require.Equal(t, "object of type 'int' has no len()", errMessage(t, err))
	_, err = call(t, "hash", object.NewList(nil))
	require.Equal(t, "unhashable type: 'list'", errMessage(t, err))
}

func TestAttributeBuiltins(t *testing.T) {
	table := object.NewClassTable()
	cls, err := table.NewClass("Box", "Box", "__main__", nil, object.NewDict())
	require.NoError(t, err)
	box := object.NewInstance(cls)
	name := object.NewStr("size")

	mustCall(t, "setattr", box, name, object.NewInt(3))
	require.Equal(t, "True", mustCall(t, "hasattr", box, name).Inspect())
	require.Equal(t, "3", mustCall(t, "getattr", box, name).Inspect())
	mustCall(t, "delattr", box, name)
	require.Equal(t, "False", mustCall(t, "hasattr", box, name).Inspect())
	require.Equal(t, "None", mustCall(t, "getattr", box, name, object.None).Inspect())

	_, err = call(t, "getattr", box, name)
	require.Equal(t, "AttributeError", object.AsException(err).TypeName)
	_, err = call(t, "getattr", box, object.NewInt(1))
	require.Equal(t, "getattr(): attribute name must be string, not 'int'", errMessage(t, err))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		cls  *object.Class
		args []object.Object
		want string
	}{
		{object.IntClass, nil, "0"},
		{object.IntClass, []object.Object{object.NewStr(" 42 ")}, "42"},
		{object.IntClass, []object.Object{object.NewStr("1_000")}, "1000"},
		{object.IntClass, []object.Object{object.NewStr("ff"), object.NewInt(16)}, "255"},
		{object.IntClass, []object.Object{object.NewStr("0b101"), object.NewInt(0)}, "5"},
		{object.IntClass, []object.Object{object.NewFloat(-3.9)}, "-3"},
		{object.FloatClass, []object.Object{object.NewStr("1e3")}, "1000.0"},
		{object.FloatClass, []object.Object{object.NewStr("-inf")}, "-inf"},
		{object.FloatClass, ints(2), "2.0"},
		{object.BoolClass, []object.Object{object.NewStr("")}, "False"},
		{object.StrClass, []object.Object{object.NewList(ints(1))}, "'[1]'"},
		{object.BytesClass, []object.Object{object.NewList(ints(104, 105))}, "b'hi'"},
		{object.ListClass, []object.Object{object.NewStr("ab")}, "['a', 'b']"},
		{object.TupleClass, []object.Object{object.NewList(ints(1, 2))}, "(1, 2)"},
		{object.SetClass, []object.Object{object.NewList(ints(1, 1, 2))}, "{1, 2}"},
		{object.RangeClass, ints(1, 10, 3), "range(1, 10, 3)"},
		{object.TypeClass, ints(1), "<class 'int'>"},
	}
	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.cls.Name(), func(t *testing.T) {
			result, err := object.Construct(ctx, tt.cls, tt.args, nil)
			require.NoError(t, err)
			require.Equal(t, tt.want, result.Inspect())
		})
	}

	_, err := object.Construct(ctx, object.IntClass, []object.Object{object.NewStr("abc")}, nil)
	require.Equal(t, "invalid literal for int() with base 10: 'abc'", errMessage(t, err))
	_, err = object.Construct(ctx, object.FloatClass, []object.Object{object.NewStr("x")}, nil)
	require.Equal(t, "could not convert string to float: 'x'", errMessage(t, err))
	result, err := object.Construct(ctx, object.IntClass, []object.Object{object.NewStr("-9223372036854775809")}, nil)
	require.NoError(t, err)
	require.Equal(t, "-9223372036854775809", result.Inspect())
	_, err = object.Construct(ctx, object.SuperClass, nil, nil)
	require.Equal(t, "super(): no arguments", errMessage(t, err))
}

func TestDictConstructor(t *testing.T) {
	ctx := context.Background()
	pairs := object.NewList([]object.Object{
		object.NewTuple([]object.Object{object.NewStr("a"), object.NewInt(1)}),
	})
	kwargs := object.NewDict()
	kwargs.SetStr("b", object.NewInt(2))
	result, err := object.Construct(ctx, object.DictClass, []object.Object{pairs}, kwargs)
	require.NoError(t, err)
	require.Equal(t, "{'a': 1, 'b': 2}", result.Inspect())
}

func TestThreeArgumentType(t *testing.T) {
	table := object.NewClassTable()
	ctx := object.WithClassTable(context.Background(), table)
	ns := object.NewDict()
	ns.SetStr("answer", object.NewInt(42))
	result, err := object.Construct(ctx, object.TypeClass, []object.Object{
		object.NewStr("Thing"),
		object.NewTuple(nil),
		ns,
	}, nil)
	require.NoError(t, err)
	cls, ok := result.(*object.Class)
	require.True(t, ok)
	require.Equal(t, []string{"Thing", "object"}, cls.MRONames())
	value, _, ok := cls.Lookup("answer")
	require.True(t, ok)
	require.Equal(t, "42", value.Inspect())
}
