package object

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/deepnoodle-ai/slither/op"
	"github.com/stretchr/testify/require"
)

func pow2(n uint) *Int {
	return NewBigInt(new(big.Int).Lsh(big.NewInt(1), n))
}

func TestIntPromotesOnOverflow(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		code op.Code
		a, b Object
		want string
	}{
		{"add to max", op.BinaryAdd, NewInt(1 << 62), NewInt(1<<62 - 1), "9223372036854775807"},
		{"add past max", op.BinaryAdd, NewInt(math.MaxInt64), NewInt(1), "9223372036854775808"},
		{"subtract past min", op.BinarySubtract, NewInt(math.MinInt64), NewInt(1), "-9223372036854775809"},
		{"multiply", op.BinaryMultiply, NewInt(1 << 62), NewInt(4), "18446744073709551616"},
		{"power", op.BinaryPower, NewInt(2), NewInt(64), "18446744073709551616"},
		{"shift", op.BinaryLShift, NewInt(1), NewInt(64), "18446744073709551616"},
		{"floor divide min", op.BinaryFloorDivide, NewInt(math.MinInt64), NewInt(-1), "9223372036854775808"},
		{"square", op.BinaryMultiply, pow2(64), pow2(64), "340282366920938463463374607431768211456"},
		{"floor divide negative", op.BinaryFloorDivide, NewBigInt(new(big.Int).Neg(pow2(70).Big())), NewInt(3), "-393530540239137101142"},
		{"mod negative", op.BinaryMod, NewBigInt(new(big.Int).Neg(pow2(70).Big())), NewInt(3), "2"},
		{"mod negative divisor", op.BinaryMod, pow2(70), NewInt(-3), "-2"},
		{"right shift", op.BinaryRShift, pow2(70), NewInt(3), "147573952589676412928"},
		{"right shift negative", op.BinaryRShift, NewBigInt(new(big.Int).Neg(pow2(70).Big())), NewInt(69), "-2"},
		{"and", op.BinaryAnd, pow2(64), NewBigInt(new(big.Int).Add(pow2(64).Big(), big.NewInt(5))), "18446744073709551616"},
		{"or", op.BinaryOr, pow2(64), True, "18446744073709551617"},
		{"xor back to small", op.BinaryXor, pow2(64), pow2(64), "0"},
		{"subtract back to small", op.BinarySubtract, pow2(63), NewInt(1), "9223372036854775807"},
		{"true divide", op.BinaryTrueDivide, pow2(70), pow2(69), "2.0"},
		{"mixed with float", op.BinaryAdd, pow2(64), NewFloat(0.5), "1.8446744073709552e+19"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BinaryOp(ctx, tt.code, tt.a, tt.b)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Inspect())
		})
	}
}

func TestBigIntNormalizes(t *testing.T) {
	ctx := context.Background()
	got, err := BinaryOp(ctx, op.BinarySubtract, pow2(63), NewInt(1))
	require.NoError(t, err)
	require.False(t, got.(*Int).IsBig())
	require.Equal(t, int64(math.MaxInt64), got.(*Int).Value())

	neg, err := UnaryOp(ctx, op.UnaryNegative, NewInt(math.MinInt64))
	require.NoError(t, err)
	require.True(t, neg.(*Int).IsBig())
	require.Equal(t, "9223372036854775808", neg.Inspect())

	back, err := UnaryOp(ctx, op.UnaryNegative, neg)
	require.NoError(t, err)
	require.False(t, back.(*Int).IsBig())

	inverted, err := UnaryOp(ctx, op.UnaryInvert, pow2(64))
	require.NoError(t, err)
	require.Equal(t, "-18446744073709551617", inverted.Inspect())
}

func TestBigIntCompareAndHash(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		cmp  op.CompareOpType
		a, b Object
		want bool
	}{
		{op.Equal, pow2(70), pow2(70), true},
		{op.Equal, pow2(70), NewFloat(math.Ldexp(1, 70)), true},
		{op.Equal, NewBigInt(new(big.Int).Add(pow2(70).Big(), big.NewInt(1))), NewFloat(math.Ldexp(1, 70)), false},
		{op.GreaterThan, NewBigInt(new(big.Int).Add(pow2(70).Big(), big.NewInt(1))), NewFloat(math.Ldexp(1, 70)), true},
		{op.GreaterThan, pow2(63), NewInt(math.MaxInt64), true},
		{op.LessThan, NewBigInt(new(big.Int).Neg(pow2(64).Big())), NewInt(math.MinInt64), true},
		{op.LessThan, pow2(64), NewFloat(math.Inf(1)), true},
		{op.LessThan, pow2(64), NewFloat(math.NaN()), false},
		{op.NotEqual, pow2(64), NewInt(0), true},
	}
	for _, tt := range tests {
		got, err := Compare(ctx, tt.cmp, tt.a, tt.b)
		require.NoError(t, err)
		require.Equal(t, NewBool(tt.want), got, "%s %s %s", tt.a.Inspect(), tt.cmp, tt.b.Inspect())
	}

	intKey, err := Hash(pow2(70))
	require.NoError(t, err)
	floatKey, err := Hash(NewFloat(math.Ldexp(1, 70)))
	require.NoError(t, err)
	require.Equal(t, intKey, floatKey)

	d := NewDict()
	require.NoError(t, SetItem(ctx, d, pow2(70), NewStr("big")))
	value, err := GetItem(ctx, d, NewFloat(math.Ldexp(1, 70)))
	require.NoError(t, err)
	require.Equal(t, "'big'", value.Inspect())
}

func TestBigIntFormatting(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		spec string
		want string
	}{
		{"", "1180591620717411303424"},
		{",", "1,180,591,620,717,411,303,424"},
		{"#x", "0x400000000000000000"},
		{">25", "   1180591620717411303424"},
		{".3e", "1.181e+21"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := FormatValue(ctx, pow2(70), tt.spec)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	got, err := FormatPercent(ctx, "%d %x", NewTuple([]Object{pow2(65), pow2(64)}))
	require.NoError(t, err)
	require.Equal(t, "36893488147419103232 10000000000000000", got)
}

func TestBigIntLimits(t *testing.T) {
	ctx := context.Background()
	list := NewList([]Object{NewInt(1)})
	_, err := GetItem(ctx, list, pow2(70))
	exc := AsException(err)
	require.Equal(t, "IndexError", exc.TypeName)
	require.Equal(t, "cannot fit 'int' into an index-sized integer", exc.Message)

	_, err = AsInt(pow2(70))
	require.Equal(t, "OverflowError", AsException(err).TypeName)

	_, err = BinaryOp(ctx, op.BinaryLShift, NewInt(1), pow2(70))
	require.Equal(t, "OverflowError", AsException(err).TypeName)

	got, err := BinaryOp(ctx, op.BinaryRShift, NewInt(-1), pow2(70))
	require.NoError(t, err)
	require.Equal(t, "-1", got.Inspect())

	require.Equal(t, "1180591620717411303424", IntFromFloat(math.Ldexp(1, 70)).Inspect())
	n, ok := ParseBigInt("-ffffffffffffffffff", 16)
	require.True(t, ok)
	require.Equal(t, "-4722366482869645213695", n.Inspect())
}
