package object

import (
	"context"
	"math"
	"math/big"
	"strings"

	"github.com/deepnoodle-ai/slither/op"
)

type binarySpec struct {
	name, rname, iname, symbol string
}

var binarySpecs = map[op.Code]binarySpec{
	op.BinaryAdd:         {"__add__", "__radd__", "__iadd__", "+"},
	op.BinarySubtract:    {"__sub__", "__rsub__", "__isub__", "-"},
	op.BinaryMultiply:    {"__mul__", "__rmul__", "__imul__", "*"},
	op.BinaryTrueDivide:  {"__truediv__", "__rtruediv__", "__itruediv__", "/"},
	op.BinaryFloorDivide: {"__floordiv__", "__rfloordiv__", "__ifloordiv__", "//"},
	op.BinaryMod:         {"__mod__", "__rmod__", "__imod__", "%"},
	op.BinaryPower:       {"__pow__", "__rpow__", "__ipow__", "**"},
	op.BinaryLShift:      {"__lshift__", "__rlshift__", "__ilshift__", "<<"},
	op.BinaryRShift:      {"__rshift__", "__rrshift__", "__irshift__", ">>"},
	op.BinaryAnd:         {"__and__", "__rand__", "__iand__", "&"},
	op.BinaryOr:          {"__or__", "__ror__", "__ior__", "|"},
	op.BinaryXor:         {"__xor__", "__rxor__", "__ixor__", "^"},
	op.BinaryMatMul:      {"__matmul__", "__rmatmul__", "__imatmul__", "@"},
}

// BinaryOp applies a binary operator. Builtin types are handled directly;
// instances dispatch to the operator's dunder method and its reflection.
func BinaryOp(ctx context.Context, code op.Code, a, b Object) (Object, error) {
	spec, ok := binarySpecs[code]
	if !ok {
		return nil, RuntimeErrorf("unknown binary operator %s", code)
	}
	if result, ok, err := builtinBinary(ctx, code, a, b); ok || err != nil {
		return result, err
	}
	result, err := dispatchBinary(ctx, spec, a, b)
	if err != nil {
		return nil, err
	}
	if result != NotImplemented {
		return result, nil
	}
	return nil, TypeErrorf("unsupported operand type(s) for %s: '%s' and '%s'", spec.symbol, TypeName(a), TypeName(b))
}

// InplaceOp applies an augmented assignment operator. Mutable builtin
// containers are updated in place.
func InplaceOp(ctx context.Context, code op.Code, a, b Object) (Object, error) {
	spec, ok := binarySpecs[code]
	if !ok {
		return nil, RuntimeErrorf("unknown binary operator %s", code)
	}
	switch x := a.(type) {
	case *List:
		switch code {
		case op.BinaryAdd:
			items, err := ToSlice(ctx, b)
			if err != nil {
				return nil, err
			}
			x.items = append(x.items, items...)
			return x, nil
		case op.BinaryMultiply:
			n, ok := asInt(b)
			if !ok {
				break
			}
			x.items = repeatItems(x.items, n)
			return x, nil
		}
	case *Set:
		if other, ok := b.(*Set); ok {
			var result *Set
			switch code {
			case op.BinaryOr:
				result = x.Union(other)
			case op.BinaryAnd:
				result = x.Intersection(other)
			case op.BinarySubtract:
				result = x.Difference(other)
			case op.BinaryXor:
				result = x.SymmetricDifference(other)
			}
			if result != nil {
				x.items = result.items
				return x, nil
			}
		}
	case *Dict:
		if other, ok := b.(*Dict); ok && code == op.BinaryOr {
			x.Update(other)
			return x, nil
		}
	case *Instance:
		if method, ok := lookupSpecial(x, spec.iname); ok {
			result, err := Call(ctx, method, []Object{b}, nil)
			if err != nil || result != NotImplemented {
				return result, err
			}
		}
	}
	return BinaryOp(ctx, code, a, b)
}

func dispatchBinary(ctx context.Context, spec binarySpec, a, b Object) (Object, error) {
	aType, bType := a.Type(), b.Type()
	tryReflected := func() (Object, error) {
		if aType == bType {
			return NotImplemented, nil
		}
		if method, ok := lookupSpecial(b, spec.rname); ok && isInstanceOrUser(b) {
			return Call(ctx, method, []Object{a}, nil)
		}
		return NotImplemented, nil
	}
	if bType != aType && bType.IsSubclass(aType) && hasOverride(b, spec.rname) {
		result, err := tryReflected()
		if err != nil || result != NotImplemented {
			return result, err
		}
	}
	if method, ok := lookupSpecial(a, spec.name); ok && isInstanceOrUser(a) {
		result, err := Call(ctx, method, []Object{b}, nil)
		if err != nil || result != NotImplemented {
			return result, err
		}
	}
	return tryReflected()
}

func isInstanceOrUser(obj Object) bool {
	_, ok := obj.(*Instance)
	return ok
}

func builtinBinary(ctx context.Context, code op.Code, a, b Object) (Object, bool, error) {
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			_, aBool := a.(*Bool)
			_, bBool := b.(*Bool)
			if aBool && bBool && (code == op.BinaryAnd || code == op.BinaryOr || code == op.BinaryXor) {
				r, _ := intOp(code, x, y)
				return NewBool(r.(*Int).value != 0), true, nil
			}
			r, err := intOp(code, x, y)
			if err == errIntOverflow {
				r, err = bigOp(code, big.NewInt(x), big.NewInt(y))
			}
			return r, r != nil || err != nil, err
		}
	}
	if isBigInt(a) || isBigInt(b) {
		if x, ok := asBigInt(a); ok {
			if y, ok := asBigInt(b); ok {
				r, err := bigOp(code, x, y)
				return r, r != nil || err != nil, err
			}
		}
	}
	if x, ok := asFloat(a); ok {
		if y, ok := asFloat(b); ok {
			r, err := floatOp(code, x, y)
			return r, r != nil || err != nil, err
		}
	}
	switch x := a.(type) {
	case *Str:
		switch code {
		case op.BinaryAdd:
			if y, ok := b.(*Str); ok {
				return NewStr(x.value + y.value), true, nil
			}
		case op.BinaryMultiply:
			if n, ok := asInt(b); ok {
				return NewStr(strings.Repeat(x.value, int(max(n, 0)))), true, nil
			}
		case op.BinaryMod:
			s, err := FormatPercent(ctx, x.value, b)
			if err != nil {
				return nil, true, err
			}
			return NewStr(s), true, nil
		}
	case *Bytes:
		switch code {
		case op.BinaryAdd:
			if y, ok := b.(*Bytes); ok {
				return &Bytes{value: x.value + y.value}, true, nil
			}
		case op.BinaryMultiply:
			if n, ok := asInt(b); ok {
				return &Bytes{value: strings.Repeat(x.value, int(max(n, 0)))}, true, nil
			}
		}
	case *List:
		switch code {
		case op.BinaryAdd:
			if y, ok := b.(*List); ok {
				return NewList(concat(x.items, y.items)), true, nil
			}
		case op.BinaryMultiply:
			if n, ok := asInt(b); ok {
				return NewList(repeatItems(x.items, n)), true, nil
			}
		}
	case *Tuple:
		switch code {
		case op.BinaryAdd:
			if y, ok := b.(*Tuple); ok {
				return NewTuple(concat(x.items, y.items)), true, nil
			}
		case op.BinaryMultiply:
			if n, ok := asInt(b); ok {
				return NewTuple(repeatItems(x.items, n)), true, nil
			}
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			switch code {
			case op.BinaryOr:
				return x.Union(y), true, nil
			case op.BinaryAnd:
				return x.Intersection(y), true, nil
			case op.BinarySubtract:
				return x.Difference(y), true, nil
			case op.BinaryXor:
				return x.SymmetricDifference(y), true, nil
			}
		}
	case *Dict:
		if y, ok := b.(*Dict); ok && code == op.BinaryOr {
			out := x.Copy()
			out.Update(y)
			return out, true, nil
		}
	}
	if code == op.BinaryMultiply {
		if n, ok := asInt(a); ok {
			switch b.(type) {
			case *Str, *Bytes, *List, *Tuple:
				return builtinBinary(ctx, code, b, NewInt(n))
			}
		}
	}
	return nil, false, nil
}

func concat(a, b []Object) []Object {
	out := make([]Object, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}

func repeatItems(items []Object, n int64) []Object {
	if n <= 0 {
		return nil
	}
	out := make([]Object, 0, len(items)*int(n))
	for i := int64(0); i < n; i++ {
		out = append(out, items...)
	}
	return out
}

func intOp(code op.Code, a, b int64) (Object, error) {
	switch code {
	case op.BinaryAdd:
		s := a + b
		if (a > 0 && b > 0 && s < 0) || (a < 0 && b < 0 && s >= 0) {
			return nil, errIntOverflow
		}
		return NewInt(s), nil
	case op.BinarySubtract:
		s := a - b
		if (a >= 0 && b < 0 && s < 0) || (a < 0 && b > 0 && s >= 0) {
			return nil, errIntOverflow
		}
		return NewInt(s), nil
	case op.BinaryMultiply:
		return mulInt(a, b)
	case op.BinaryTrueDivide:
		if b == 0 {
			return nil, ZeroDivisionErrorf("division by zero")
		}
		return NewFloat(float64(a) / float64(b)), nil
	case op.BinaryFloorDivide:
		if b == 0 {
			return nil, ZeroDivisionErrorf("integer division or modulo by zero")
		}
		if a == math.MinInt64 && b == -1 {
			return nil, errIntOverflow
		}
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return NewInt(q), nil
	case op.BinaryMod:
		if b == 0 {
			return nil, ZeroDivisionErrorf("integer modulo by zero")
		}
		if b == -1 {
			return NewInt(0), nil
		}
		r := a % b
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return NewInt(r), nil
	case op.BinaryPower:
		if b < 0 {
			if a == 0 {
				return nil, ZeroDivisionErrorf("0.0 cannot be raised to a negative power")
			}
			return NewFloat(math.Pow(float64(a), float64(b))), nil
		}
		result := int64(1)
		base := a
		for exp := b; exp > 0; exp >>= 1 {
			var err error
			if exp&1 == 1 {
				if result, err = mulInt64(result, base); err != nil {
					return nil, err
				}
			}
			if exp > 1 {
				if base, err = mulInt64(base, base); err != nil {
					return nil, err
				}
			}
		}
		return NewInt(result), nil
	case op.BinaryLShift:
		if b < 0 {
			return nil, ValueErrorf("negative shift count")
		}
		if a == 0 {
			return NewInt(0), nil
		}
		if b >= 63 || (a<<b)>>b != a {
			return nil, errIntOverflow
		}
		return NewInt(a << b), nil
	case op.BinaryRShift:
		if b < 0 {
			return nil, ValueErrorf("negative shift count")
		}
		if b >= 64 {
			if a < 0 {
				return NewInt(-1), nil
			}
			return NewInt(0), nil
		}
		return NewInt(a >> b), nil
	case op.BinaryAnd:
		return NewInt(a & b), nil
	case op.BinaryOr:
		return NewInt(a | b), nil
	case op.BinaryXor:
		return NewInt(a ^ b), nil
	}
	return nil, nil
}

func mulInt(a, b int64) (Object, error) {
	r, err := mulInt64(a, b)
	if err != nil {
		return nil, err
	}
	return NewInt(r), nil
}

func mulInt64(a, b int64) (int64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	r := a * b
	if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
		return 0, errIntOverflow
	}
	return r, nil
}

func floatOp(code op.Code, a, b float64) (Object, error) {
	switch code {
	case op.BinaryAdd:
		return NewFloat(a + b), nil
	case op.BinarySubtract:
		return NewFloat(a - b), nil
	case op.BinaryMultiply:
		return NewFloat(a * b), nil
	case op.BinaryTrueDivide:
		if b == 0 {
			return nil, ZeroDivisionErrorf("float division by zero")
		}
		return NewFloat(a / b), nil
	case op.BinaryFloorDivide:
		if b == 0 {
			return nil, ZeroDivisionErrorf("float floor division by zero")
		}
		return NewFloat(math.Floor(a / b)), nil
	case op.BinaryMod:
		if b == 0 {
			return nil, ZeroDivisionErrorf("float modulo by zero")
		}
		r := math.Mod(a, b)
		if r != 0 && (r < 0) != (b < 0) {
			r += b
		}
		return NewFloat(r), nil
	case op.BinaryPower:
		if a == 0 && b < 0 {
			return nil, ZeroDivisionErrorf("0.0 cannot be raised to a negative power")
		}
		if a < 0 && b != math.Trunc(b) {
			return nil, ValueErrorf("math domain error")
		}
		return NewFloat(math.Pow(a, b)), nil
	}
	return nil, nil
}

var unaryDunders = map[op.Code]struct{ name, symbol string }{
	op.UnaryNegative: {"__neg__", "-"},
	op.UnaryPositive: {"__pos__", "+"},
	op.UnaryInvert:   {"__invert__", "~"},
}

// UnaryOp applies a unary operator.
func UnaryOp(ctx context.Context, code op.Code, a Object) (Object, error) {
	if code == op.UnaryNot {
		truthy, err := Truthy(ctx, a)
		if err != nil {
			return nil, err
		}
		return NewBool(!truthy), nil
	}
	if isBigInt(a) {
		return bigUnary(code, a.(*Int).Big()), nil
	}
	if n, ok := asInt(a); ok {
		switch code {
		case op.UnaryNegative:
			if n == math.MinInt64 {
				return bigUnary(code, big.NewInt(n)), nil
			}
			return NewInt(-n), nil
		case op.UnaryPositive:
			return NewInt(n), nil
		case op.UnaryInvert:
			return NewInt(^n), nil
		}
	}
	if f, ok := a.(*Float); ok {
		switch code {
		case op.UnaryNegative:
			return NewFloat(-f.value), nil
		case op.UnaryPositive:
			return f, nil
		}
	}
	spec := unaryDunders[code]
	if inst, ok := a.(*Instance); ok {
		if method, ok := lookupSpecial(inst, spec.name); ok {
			return Call(ctx, method, nil, nil)
		}
	}
	return nil, TypeErrorf("bad operand type for unary %s: '%s'", spec.symbol, TypeName(a))
}

var compareDunders = map[op.CompareOpType]struct{ name, reflected string }{
	op.LessThan:           {"__lt__", "__gt__"},
	op.LessThanOrEqual:    {"__le__", "__ge__"},
	op.Equal:              {"__eq__", "__eq__"},
	op.NotEqual:           {"__ne__", "__ne__"},
	op.GreaterThan:        {"__gt__", "__lt__"},
	op.GreaterThanOrEqual: {"__ge__", "__le__"},
}

// Compare applies a rich comparison. Instances may return any object from
// their comparison methods.
func Compare(ctx context.Context, cmp op.CompareOpType, a, b Object) (Object, error) {
	_, aInst := a.(*Instance)
	_, bInst := b.(*Instance)
	if aInst || bInst {
		result, err := dispatchCompare(ctx, cmp, a, b)
		if err != nil || result != NotImplemented {
			return result, err
		}
		switch cmp {
		case op.Equal:
			return NewBool(a == b), nil
		case op.NotEqual:
			return NewBool(a != b), nil
		}
		return nil, compareError(cmp, a, b)
	}
	switch cmp {
	case op.Equal, op.NotEqual:
		eq, err := Equal(ctx, a, b)
		if err != nil {
			return nil, err
		}
		return NewBool(eq == (cmp == op.Equal)), nil
	}
	c, err := order(ctx, cmp, a, b)
	if err != nil {
		return nil, err
	}
	return NewBool(c), nil
}

func dispatchCompare(ctx context.Context, cmp op.CompareOpType, a, b Object) (Object, error) {
	names := compareDunders[cmp]
	if a.Type() != b.Type() && b.Type().IsSubclass(a.Type()) && hasOverride(b, names.reflected) {
		result, err := CallMethod(ctx, b, names.reflected, a)
		if err != nil || result != NotImplemented {
			return result, err
		}
	}
	if hasOverride(a, names.name) {
		result, err := CallMethod(ctx, a, names.name, b)
		if err != nil || result != NotImplemented {
			return result, err
		}
	} else if cmp == op.NotEqual && hasOverride(a, "__eq__") {
		result, err := CallMethod(ctx, a, "__eq__", b)
		if err != nil || result != NotImplemented {
			if err != nil {
				return nil, err
			}
			truthy, err := Truthy(ctx, result)
			return NewBool(!truthy), err
		}
	}
	if hasOverride(b, names.reflected) {
		return CallMethod(ctx, b, names.reflected, a)
	}
	return NotImplemented, nil
}

func compareError(cmp op.CompareOpType, a, b Object) error {
	return TypeErrorf("'%s' not supported between instances of '%s' and '%s'", cmp, TypeName(a), TypeName(b))
}

// Equal reports whether a == b, dispatching to __eq__ on instances.
func Equal(ctx context.Context, a, b Object) (bool, error) {
	if a == b {
		return true, nil
	}
	_, aInst := a.(*Instance)
	_, bInst := b.(*Instance)
	if aInst || bInst {
		result, err := Compare(ctx, op.Equal, a, b)
		if err != nil {
			return false, err
		}
		return Truthy(ctx, result)
	}
	switch x := a.(type) {
	case *List:
		y, ok := b.(*List)
		if !ok {
			return false, nil
		}
		return sequenceEqual(ctx, x.items, y.items)
	case *Tuple:
		y, ok := b.(*Tuple)
		if !ok {
			return false, nil
		}
		return sequenceEqual(ctx, x.items, y.items)
	case *Dict:
		y, ok := b.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false, nil
		}
		for i, key := range x.keys {
			value, found, err := y.Get(key)
			if err != nil || !found {
				return false, err
			}
			eq, err := Equal(ctx, x.values[i], value)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	}
	return a.Equals(b), nil
}

func sequenceEqual(ctx context.Context, a, b []Object) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		eq, err := Equal(ctx, a[i], b[i])
		if err != nil || !eq {
			return false, err
		}
	}
	return true, nil
}

// order evaluates an ordering comparison between builtin values.
func order(ctx context.Context, cmp op.CompareOpType, a, b Object) (bool, error) {
	if _, ok := asFloat(a); ok {
		if _, ok := asFloat(b); ok {
			c, ordered := compareNumbers(a, b)
			return ordered && applyOrder(cmp, c), nil
		}
	}
	switch x := a.(type) {
	case *Str:
		if y, ok := b.(*Str); ok {
			return applyOrder(cmp, strings.Compare(x.value, y.value)), nil
		}
	case *Bytes:
		if y, ok := b.(*Bytes); ok {
			return applyOrder(cmp, strings.Compare(x.value, y.value)), nil
		}
	case *List:
		if y, ok := b.(*List); ok {
			return orderSequences(ctx, cmp, x.items, y.items)
		}
	case *Tuple:
		if y, ok := b.(*Tuple); ok {
			return orderSequences(ctx, cmp, x.items, y.items)
		}
	case *Set:
		if y, ok := b.(*Set); ok {
			switch cmp {
			case op.LessThanOrEqual:
				return x.isSubset(y), nil
			case op.LessThan:
				return x.Len() < y.Len() && x.isSubset(y), nil
			case op.GreaterThanOrEqual:
				return y.isSubset(x), nil
			case op.GreaterThan:
				return y.Len() < x.Len() && y.isSubset(x), nil
			}
		}
	}
	return false, compareError(cmp, a, b)
}

func orderSequences(ctx context.Context, cmp op.CompareOpType, a, b []Object) (bool, error) {
	for i := 0; i < len(a) && i < len(b); i++ {
		eq, err := Equal(ctx, a[i], b[i])
		if err != nil {
			return false, err
		}
		if eq {
			continue
		}
		result, err := Compare(ctx, cmp, a[i], b[i])
		if err != nil {
			return false, err
		}
		return Truthy(ctx, result)
	}
	return applyOrder(cmp, compareInts(int64(len(a)), int64(len(b)))), nil
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func applyOrder(cmp op.CompareOpType, c int) bool {
	switch cmp {
	case op.LessThan:
		return c < 0
	case op.LessThanOrEqual:
		return c <= 0
	case op.GreaterThan:
		return c > 0
	case op.GreaterThanOrEqual:
		return c >= 0
	case op.Equal:
		return c == 0
	case op.NotEqual:
		return c != 0
	}
	return false
}

// LessThan reports whether a < b.
func LessThan(ctx context.Context, a, b Object) (bool, error) {
	result, err := Compare(ctx, op.LessThan, a, b)
	if err != nil {
		return false, err
	}
	return Truthy(ctx, result)
}
