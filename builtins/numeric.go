package builtins

import (
	"context"
	"math"
	"math/big"
	"strconv"
	"unicode/utf8"

	"github.com/deepnoodle-ai/slither/object"
	"github.com/deepnoodle-ai/slither/op"
)

func Abs(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("abs", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Int:
		if v.IsBig() || v.Value() == math.MinInt64 {
			return object.NewBigInt(new(big.Int).Abs(v.Big())), nil
		}
		if v.Value() < 0 {
			return object.NewInt(-v.Value()), nil
		}
		return v, nil
	case *object.Bool:
		n, _ := object.AsInt(v)
		return object.NewInt(n), nil
	case *object.Float:
		return object.NewFloat(math.Abs(v.Value())), nil
	case *object.Instance:
		if _, _, ok := v.Class().Lookup("__abs__"); ok {
			return object.CallMethod(ctx, v, "__abs__")
		}
	}
	return nil, object.TypeErrorf("bad operand type for abs(): '%s'", object.TypeName(args[0]))
}

func integerArg(obj object.Object) (int64, error) {
	switch obj.(type) {
	case *object.Int, *object.Bool:
		return object.AsInt(obj)
	}
	return 0, object.TypeErrorf("'%s' object cannot be interpreted as an integer", object.TypeName(obj))
}

// bigIntegerArg is integerArg without the int64 range limit.
func bigIntegerArg(obj object.Object) (*big.Int, error) {
	switch v := obj.(type) {
	case *object.Int:
		return v.Big(), nil
	case *object.Bool:
		n, _ := object.AsInt(v)
		return big.NewInt(n), nil
	}
	return nil, object.TypeErrorf("'%s' object cannot be interpreted as an integer", object.TypeName(obj))
}

func radix(name, prefix string, base int) object.BuiltinFunc {
	return func(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		if err := checkArgs(name, args, kwargs, 1, 1); err != nil {
			return nil, err
		}
		n, err := bigIntegerArg(args[0])
		if err != nil {
			return nil, err
		}
		sign := ""
		if n.Sign() < 0 {
			sign = "-"
		}
		return object.NewStr(sign + prefix + n.Abs(n).Text(base)), nil
	}
}

var (
	Bin = radix("bin", "0b", 2)
	Oct = radix("oct", "0o", 8)
	Hex = radix("hex", "0x", 16)
)

func Chr(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("chr", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	n, err := integerArg(args[0])
	if err != nil {
		return nil, err
	}
	if n < 0 || n > utf8.MaxRune {
		return nil, object.ValueErrorf("chr() arg not in range(0x110000)")
	}
	return object.NewStr(string(rune(n))), nil
}

func Ord(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("ord", args, kwargs, 1, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case *object.Str:
		s := v.Value()
		if n := utf8.RuneCountInString(s); n != 1 {
			return nil, object.TypeErrorf("ord() expected a character, but string of length %d found", n)
		}
		r, _ := utf8.DecodeRuneInString(s)
		return object.NewInt(int64(r)), nil
	case *object.Bytes:
		b := v.Value()
		if len(b) != 1 {
			return nil, object.TypeErrorf("ord() expected a character, but string of length %d found", len(b))
		}
		return object.NewInt(int64(b[0])), nil
	}
	return nil, object.TypeErrorf("ord() expected string of length 1, but %s found", object.TypeName(args[0]))
}

func DivMod(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if err := checkArgs("divmod", args, kwargs, 2, 2); err != nil {
		return nil, err
	}
	q, err := object.BinaryOp(ctx, op.BinaryFloorDivide, args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := object.BinaryOp(ctx, op.BinaryMod, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return object.NewTuple([]object.Object{q, r}), nil
}

func Pow(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("pow", args, kwargs, "base", "exp", "mod?")
	if err != nil {
		return nil, err
	}
	if params[2] == nil || params[2] == object.None {
		return object.BinaryOp(ctx, op.BinaryPower, params[0], params[1])
	}
	base, err1 := bigIntegerArg(params[0])
	exp, err2 := bigIntegerArg(params[1])
	mod, err3 := bigIntegerArg(params[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return nil, object.TypeErrorf("pow() 3rd argument not allowed unless all arguments are integers")
	}
	if mod.Sign() == 0 {
		return nil, object.ValueErrorf("pow() 3rd argument cannot be 0")
	}
	result, ok := modPow(base, exp, mod)
	if !ok {
		return nil, object.ValueErrorf("base is not invertible for the given modulus")
	}
	return object.NewBigInt(result), nil
}

// modPow computes base**exp % mod with the sign of mod. A negative exp
// uses the modular inverse of base.
func modPow(base, exp, mod *big.Int) (*big.Int, bool) {
	m := new(big.Int).Abs(mod)
	b := new(big.Int).Mod(base, m)
	if exp.Sign() < 0 {
		inv := new(big.Int).ModInverse(b, m)
		if inv == nil {
			return nil, false
		}
		b, exp = inv, new(big.Int).Neg(exp)
	}
	result := new(big.Int).Exp(b, exp, m)
	if mod.Sign() < 0 && result.Sign() != 0 {
		result.Add(result, mod)
	}
	return result, true
}

// roundInt rounds n to a multiple of 10**places, ties to even.
func roundInt(n *big.Int, places int64) *big.Int {
	if places > int64(n.BitLen())+1 {
		return new(big.Int)
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(places), nil)
	q, r := new(big.Int).DivMod(n, scale, new(big.Int))
	switch r.Lsh(r, 1).Cmp(scale) {
	case 1:
		q.Add(q, big.NewInt(1))
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, big.NewInt(1))
		}
	}
	return q.Mul(q, scale)
}

func Round(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	params, err := object.ParseArgs("round", args, kwargs, "number", "ndigits?")
	if err != nil {
		return nil, err
	}
	number, ndigits := params[0], params[1]
	switch v := number.(type) {
	case *object.Int, *object.Bool:
		n, _ := bigIntegerArg(v)
		if ndigits == nil || ndigits == object.None {
			return object.NewBigInt(n), nil
		}
		digits, err := integerArg(ndigits)
		if err != nil {
			return nil, err
		}
		if digits >= 0 {
			return object.NewBigInt(n), nil
		}
		return object.NewBigInt(roundInt(n, -digits)), nil
	case *object.Float:
		f := v.Value()
		if ndigits == nil || ndigits == object.None {
			if math.IsInf(f, 0) {
				return nil, object.OverflowErrorf("cannot convert float infinity to integer")
			}
			if math.IsNaN(f) {
				return nil, object.ValueErrorf("cannot convert float NaN to integer")
			}
			return object.IntFromFloat(math.RoundToEven(f)), nil
		}
		digits, err := integerArg(ndigits)
		if err != nil {
			return nil, err
		}
		s := strconv.FormatFloat(f, 'f', int(max(digits, 0)), 64)
		if digits < 0 {
			scale := math.Pow(10, float64(-digits))
			return object.NewFloat(math.RoundToEven(f/scale) * scale), nil
		}
		rounded, _ := strconv.ParseFloat(s, 64)
		return object.NewFloat(rounded), nil
	case *object.Instance:
		if _, _, ok := v.Class().Lookup("__round__"); ok {
			if ndigits == nil {
				return object.CallMethod(ctx, v, "__round__")
			}
			return object.CallMethod(ctx, v, "__round__", ndigits)
		}
	}
	return nil, object.TypeErrorf("type %s doesn't define __round__ method", object.TypeName(number))
}
