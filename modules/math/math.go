// Package math provides the host "math" module.
package math

import (
	"context"
	"math"
	"math/big"

	"github.com/deepnoodle-ai/slither/object"
)

func domainError() error {
	return object.ValueErrorf("math domain error")
}

// unary adapts a float function into a one-argument builtin.
func unary(name string, fn func(float64) (float64, error)) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		parsed, err := object.ParseArgs(name, args, kwargs, "x")
		if err != nil {
			return nil, err
		}
		x, err := object.AsFloat(parsed[0])
		if err != nil {
			return nil, err
		}
		result, err := fn(x)
		if err != nil {
			return nil, err
		}
		return object.NewFloat(result), nil
	})
}

func pure(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) { return fn(x), nil }
}

func positive(fn func(float64) float64) func(float64) (float64, error) {
	return func(x float64) (float64, error) {
		if x <= 0 {
			return 0, domainError()
		}
		return fn(x), nil
	}
}

func sqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, domainError()
	}
	return math.Sqrt(x), nil
}

func toInt(x float64) (object.Object, error) {
	switch {
	case math.IsNaN(x):
		return nil, object.ValueErrorf("cannot convert float NaN to integer")
	case math.IsInf(x, 0):
		return nil, object.Errorf("OverflowError", "cannot convert float infinity to integer")
	}
	return object.IntFromFloat(x), nil
}

// rounding returns the integer result of fn. Ints pass through unchanged.
func rounding(name string, fn func(float64) float64) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		parsed, err := object.ParseArgs(name, args, kwargs, "x")
		if err != nil {
			return nil, err
		}
		switch v := parsed[0].(type) {
		case *object.Int:
			return v, nil
		case *object.Bool:
			n, _ := object.AsInt(v)
			return object.NewInt(n), nil
		}
		x, err := object.AsFloat(parsed[0])
		if err != nil {
			return nil, err
		}
		return toInt(fn(x))
	})
}

func predicate(name string, fn func(float64) bool) *object.Builtin {
	return object.NewBuiltin(name, func(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
		parsed, err := object.ParseArgs(name, args, kwargs, "x")
		if err != nil {
			return nil, err
		}
		x, err := object.AsFloat(parsed[0])
		if err != nil {
			return nil, err
		}
		return object.NewBool(fn(x)), nil
	})
}

func Log(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	parsed, err := object.ParseArgs("log", args, kwargs, "x", "base?")
	if err != nil {
		return nil, err
	}
	x, err := object.AsFloat(parsed[0])
	if err != nil {
		return nil, err
	}
	if x <= 0 {
		return nil, domainError()
	}
	if parsed[1] == nil {
		return object.NewFloat(math.Log(x)), nil
	}
	base, err := object.AsFloat(parsed[1])
	if err != nil {
		return nil, err
	}
	if base <= 0 || base == 1 {
		return nil, domainError()
	}
	return object.NewFloat(math.Log(x) / math.Log(base)), nil
}

func Pow(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	parsed, err := object.ParseArgs("pow", args, kwargs, "x", "y")
	if err != nil {
		return nil, err
	}
	x, err := object.AsFloat(parsed[0])
	if err != nil {
		return nil, err
	}
	y, err := object.AsFloat(parsed[1])
	if err != nil {
		return nil, err
	}
	if (x == 0 && y < 0) || (x < 0 && y != math.Trunc(y)) {
		return nil, domainError()
	}
	return object.NewFloat(math.Pow(x, y)), nil
}

func Atan2(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	parsed, err := object.ParseArgs("atan2", args, kwargs, "y", "x")
	if err != nil {
		return nil, err
	}
	y, err := object.AsFloat(parsed[0])
	if err != nil {
		return nil, err
	}
	x, err := object.AsFloat(parsed[1])
	if err != nil {
		return nil, err
	}
	return object.NewFloat(math.Atan2(y, x)), nil
}

func Gcd(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if kwargs != nil && kwargs.Len() > 0 {
		return nil, object.TypeErrorf("gcd() takes no keyword arguments")
	}
	result := new(big.Int)
	for _, arg := range args {
		var n *big.Int
		switch v := arg.(type) {
		case *object.Int:
			n = v.Big()
		case *object.Bool:
			i, _ := object.AsInt(v)
			n = big.NewInt(i)
		default:
			return nil, object.TypeErrorf("'%s' object cannot be interpreted as an integer", object.TypeName(arg))
		}
		result.GCD(nil, nil, result, n.Abs(n))
	}
	return object.NewBigInt(result), nil
}

func IsClose(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	parsed, err := object.ParseArgs("isclose", args, kwargs, "a", "b", "rel_tol?", "abs_tol?")
	if err != nil {
		return nil, err
	}
	values := []float64{0, 0, 1e-09, 0}
	for i, arg := range parsed {
		if arg == nil {
			continue
		}
		if values[i], err = object.AsFloat(arg); err != nil {
			return nil, err
		}
	}
	a, b, rel, abs := values[0], values[1], values[2], values[3]
	if rel < 0 || abs < 0 {
		return nil, object.ValueErrorf("tolerances must be non-negative")
	}
	if a == b {
		return object.True, nil
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return object.False, nil
	}
	diff := math.Abs(b - a)
	return object.NewBool(diff <= math.Abs(rel*b) || diff <= math.Abs(rel*a) || diff <= abs), nil
}

// Module returns a new math module.
func Module() *object.Module {
	m := object.NewModule("math", "")
	members := map[string]object.Object{
		"pi":       object.NewFloat(math.Pi),
		"e":        object.NewFloat(math.E),
		"tau":      object.NewFloat(2 * math.Pi),
		"inf":      object.NewFloat(math.Inf(1)),
		"nan":      object.NewFloat(math.NaN()),
		"sqrt":     unary("sqrt", sqrt),
		"exp":      unary("exp", pure(math.Exp)),
		"fabs":     unary("fabs", pure(math.Abs)),
		"sin":      unary("sin", pure(math.Sin)),
		"cos":      unary("cos", pure(math.Cos)),
		"tan":      unary("tan", pure(math.Tan)),
		"log2":     unary("log2", positive(math.Log2)),
		"log10":    unary("log10", positive(math.Log10)),
		"floor":    rounding("floor", math.Floor),
		"ceil":     rounding("ceil", math.Ceil),
		"trunc":    rounding("trunc", math.Trunc),
		"isnan":    predicate("isnan", math.IsNaN),
		"isinf":    predicate("isinf", func(x float64) bool { return math.IsInf(x, 0) }),
		"isfinite": predicate("isfinite", func(x float64) bool { return !math.IsInf(x, 0) && !math.IsNaN(x) }),
		"log":      object.NewBuiltin("log", Log),
		"pow":      object.NewBuiltin("pow", Pow),
		"atan2":    object.NewBuiltin("atan2", Atan2),
		"gcd":      object.NewBuiltin("gcd", Gcd),
		"isclose":  object.NewBuiltin("isclose", IsClose),
	}
	for name, value := range members {
		m.SetGlobal(name, value)
	}
	return m
}
