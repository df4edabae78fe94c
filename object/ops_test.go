package object

import (
	"context"
	"math/big"
	"testing"

	"github.com/deepnoodle-ai/slither/op"
	"github.com/stretchr/testify/require"
)

func TestBinaryOpNumbers(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		code op.Code
		a, b Object
		want Object
	}{
		{op.BinaryAdd, NewInt(2), NewInt(3), NewInt(5)},
		{op.BinaryAdd, NewInt(2), NewFloat(0.5), NewFloat(2.5)},
		{op.BinaryAdd, True, True, NewInt(2)},
		{op.BinarySubtract, NewInt(2), NewInt(5), NewInt(-3)},
		{op.BinaryMultiply, NewInt(6), NewInt(7), NewInt(42)},
		{op.BinaryTrueDivide, NewInt(7), NewInt(2), NewFloat(3.5)},
		{op.BinaryFloorDivide, NewInt(7), NewInt(2), NewInt(3)},
		{op.BinaryFloorDivide, NewInt(-7), NewInt(2), NewInt(-4)},
		{op.BinaryFloorDivide, NewFloat(-7), NewInt(2), NewFloat(-4)},
		{op.BinaryMod, NewInt(-7), NewInt(3), NewInt(2)},
		{op.BinaryMod, NewInt(7), NewInt(-3), NewInt(-2)},
		{op.BinaryMod, NewFloat(-1), NewInt(3), NewFloat(2)},
		{op.BinaryPower, NewInt(2), NewInt(10), NewInt(1024)},
		{op.BinaryPower, NewInt(2), NewInt(-1), NewFloat(0.5)},
		{op.BinaryLShift, NewInt(1), NewInt(4), NewInt(16)},
		{op.BinaryRShift, NewInt(-16), NewInt(2), NewInt(-4)},
		{op.BinaryAnd, NewInt(6), NewInt(3), NewInt(2)},
		{op.BinaryOr, True, False, True},
		{op.BinaryXor, NewInt(6), NewInt(3), NewInt(5)},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			got, err := BinaryOp(ctx, tt.code, tt.a, tt.b)
			require.NoError(t, err)
			require.Equal(t, tt.want.Type(), got.Type())
			require.True(t, tt.want.Equals(got), "got %s", got.Inspect())
		})
	}
}

func TestBinaryOpErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		code     op.Code
		a, b     Object
		typeName string
		message  string
	}{
		{op.BinaryTrueDivide, NewInt(1), NewInt(0), "ZeroDivisionError", "division by zero"},
		{op.BinaryFloorDivide, NewInt(1), NewInt(0), "ZeroDivisionError", "integer division or modulo by zero"},
		{op.BinaryTrueDivide, NewFloat(1), NewFloat(0), "ZeroDivisionError", "float division by zero"},
		{op.BinaryAdd, NewInt(1), NewStr("a"), "TypeError", "unsupported operand type(s) for +: 'int' and 'str'"},
		{op.BinaryPower, NewInt(2), NewInt(1 << 40), "OverflowError", "integer too large"},
		{op.BinaryFloorDivide, NewBigInt(new(big.Int).Lsh(big.NewInt(1), 70)), NewInt(0), "ZeroDivisionError", "integer division or modulo by zero"},
		{op.BinaryLShift, NewInt(1), NewInt(-1), "ValueError", "negative shift count"},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			_, err := BinaryOp(ctx, tt.code, tt.a, tt.b)
			require.Error(t, err)
			exc := AsException(err)
			require.Equal(t, tt.typeName, exc.TypeName)
			require.Equal(t, tt.message, exc.Message)
		})
	}
}

func TestBinaryOpSequences(t *testing.T) {
	ctx := context.Background()
	got, err := BinaryOp(ctx, op.BinaryAdd, NewStr("ab"), NewStr("cd"))
	require.NoError(t, err)
	require.Equal(t, "abcd", got.(*Str).Value())

	got, err = BinaryOp(ctx, op.BinaryMultiply, NewInt(3), NewStr("ab"))
	require.NoError(t, err)
	require.Equal(t, "ababab", got.(*Str).Value())

	got, err = BinaryOp(ctx, op.BinaryAdd, NewList([]Object{NewInt(1)}), NewList([]Object{NewInt(2)}))
	require.NoError(t, err)
	require.Equal(t, "[1, 2]", got.Inspect())

	got, err = BinaryOp(ctx, op.BinaryMultiply, NewTuple([]Object{NewInt(1)}), NewInt(2))
	require.NoError(t, err)
	require.Equal(t, "(1, 1)", got.Inspect())

	a, _ := NewSetFrom([]Object{NewInt(1), NewInt(2)})
	b, _ := NewSetFrom([]Object{NewInt(2), NewInt(3)})
	got, err = BinaryOp(ctx, op.BinaryAnd, a, b)
	require.NoError(t, err)
	require.Equal(t, "{2}", got.Inspect())
}

func TestInplaceListExtends(t *testing.T) {
	ctx := context.Background()
	list := NewList([]Object{NewInt(1)})
	got, err := InplaceOp(ctx, op.BinaryAdd, list, NewTuple([]Object{NewInt(2), NewInt(3)}))
	require.NoError(t, err)
	require.Same(t, list, got)
	require.Equal(t, "[1, 2, 3]", list.Inspect())

	n := NewInt(1)
	got, err = InplaceOp(ctx, op.BinaryAdd, n, NewInt(1))
	require.NoError(t, err)
	require.Equal(t, int64(2), got.(*Int).Value())
	require.Equal(t, int64(1), n.Value())
}

func TestUnaryOp(t *testing.T) {
	ctx := context.Background()
	got, err := UnaryOp(ctx, op.UnaryNegative, NewInt(3))
	require.NoError(t, err)
	require.Equal(t, int64(-3), got.(*Int).Value())

	got, err = UnaryOp(ctx, op.UnaryInvert, NewInt(0))
	require.NoError(t, err)
	require.Equal(t, int64(-1), got.(*Int).Value())

	got, err = UnaryOp(ctx, op.UnaryNot, NewList(nil))
	require.NoError(t, err)
	require.Equal(t, True, got)

	_, err = UnaryOp(ctx, op.UnaryNegative, NewStr("x"))
	require.Equal(t, "bad operand type for unary -: 'str'", AsException(err).Message)
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		cmp  op.CompareOpType
		a, b Object
		want bool
	}{
		{op.LessThan, NewInt(1), NewInt(2), true},
		{op.LessThan, NewInt(1), NewFloat(0.5), false},
		{op.Equal, NewInt(1), NewFloat(1), true},
		{op.Equal, True, NewInt(1), true},
		{op.NotEqual, NewStr("a"), NewStr("b"), true},
		{op.GreaterThanOrEqual, NewStr("b"), NewStr("a"), true},
		{op.LessThan, NewList([]Object{NewInt(1), NewInt(2)}), NewList([]Object{NewInt(1), NewInt(3)}), true},
		{op.LessThan, NewTuple([]Object{NewInt(1)}), NewTuple([]Object{NewInt(1), NewInt(0)}), true},
		{op.Equal, NewList([]Object{NewInt(1)}), NewList([]Object{NewFloat(1)}), true},
		{op.Equal, NewStr("1"), NewInt(1), false},
	}
	for _, tt := range tests {
		got, err := Compare(ctx, tt.cmp, tt.a, tt.b)
		require.NoError(t, err)
		require.Equal(t, NewBool(tt.want), got, "%s %s %s", tt.a.Inspect(), tt.cmp, tt.b.Inspect())
	}

	_, err := Compare(ctx, op.LessThan, NewInt(1), NewStr("a"))
	require.Equal(t, "'<' not supported between instances of 'int' and 'str'", AsException(err).Message)
}

func TestContainsAndItems(t *testing.T) {
	ctx := context.Background()
	list := NewList([]Object{NewInt(10), NewInt(20), NewInt(30)})

	ok, err := Contains(ctx, list, NewFloat(20))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Contains(ctx, NewStr("hello"), NewStr("ell"))
	require.NoError(t, err)
	require.True(t, ok)

	r, _ := NewRange(0, 10, 3)
	ok, err = Contains(ctx, r, NewInt(9))
	require.NoError(t, err)
	require.True(t, ok)

	item, err := GetItem(ctx, list, NewInt(-1))
	require.NoError(t, err)
	require.Equal(t, int64(30), item.(*Int).Value())

	_, err = GetItem(ctx, list, NewInt(3))
	require.Equal(t, "list index out of range", AsException(err).Message)

	sliced, err := GetItem(ctx, list, NewSlice(None, None, NewInt(-1)))
	require.NoError(t, err)
	require.Equal(t, "[30, 20, 10]", sliced.Inspect())

	require.NoError(t, SetItem(ctx, list, NewSlice(NewInt(0), NewInt(2), None), NewList([]Object{NewInt(1)})))
	require.Equal(t, "[1, 30]", list.Inspect())

	require.NoError(t, DelItem(ctx, list, NewInt(0)))
	require.Equal(t, "[30]", list.Inspect())

	d := NewDict()
	require.NoError(t, SetItem(ctx, d, NewStr("a"), NewInt(1)))
	_, err = GetItem(ctx, d, NewStr("b"))
	exc := AsException(err)
	require.Equal(t, "KeyError", exc.TypeName)
	require.Equal(t, "'b'", exc.Message)

	err = SetItem(ctx, NewTuple(nil), NewInt(0), None)
	require.Equal(t, "'tuple' object does not support item assignment", AsException(err).Message)

	s, err := GetItem(ctx, NewStr("héllo"), NewSlice(NewInt(1), NewInt(3), None))
	require.NoError(t, err)
	require.Equal(t, "él", s.(*Str).Value())
}

func TestSortStable(t *testing.T) {
	ctx := context.Background()
	items := []Object{
		NewTuple([]Object{NewInt(2), NewStr("a")}),
		NewTuple([]Object{NewInt(1), NewStr("b")}),
		NewTuple([]Object{NewInt(2), NewStr("c")}),
	}
	key := NewBuiltin("first", func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
		return args[0].(*Tuple).Items()[0], nil
	})
	require.NoError(t, Sort(ctx, items, key, true))
	require.Equal(t, "[(2, 'a'), (2, 'c'), (1, 'b')]", NewList(items).Inspect())

	err := Sort(ctx, []Object{NewInt(1), NewStr("x")}, nil, false)
	require.Error(t, err)
}
