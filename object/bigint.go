package object

import (
	"errors"
	"math"
	"math/big"

	"github.com/deepnoodle-ai/slither/op"
)

// maxIntBits bounds the size of results produced by ** and <<.
const maxIntBits = 1 << 24

// errIntOverflow signals that an int64 operation must be redone on big ints.
var errIntOverflow = errors.New("int64 overflow")

// NewBigInt returns an Int holding n. Values that fit in int64 use the
// compact representation.
func NewBigInt(n *big.Int) *Int {
	if n.IsInt64() {
		return NewInt(n.Int64())
	}
	return &Int{big: new(big.Int).Set(n)}
}

// IntFromFloat truncates a finite float to an Int.
func IntFromFloat(f float64) *Int {
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return NewInt(int64(f))
	}
	n, _ := big.NewFloat(f).Int(nil)
	return NewBigInt(n)
}

// ParseBigInt parses digits in the given base into an Int.
func ParseBigInt(digits string, base int) (*Int, bool) {
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, false
	}
	return NewBigInt(n), true
}

// IsBig reports whether the value is outside the int64 range.
func (i *Int) IsBig() bool { return i.big != nil }

// Big returns the value as a new big.Int.
func (i *Int) Big() *big.Int {
	if i.big != nil {
		return new(big.Int).Set(i.big)
	}
	return big.NewInt(i.value)
}

func (i *Int) float() float64 {
	if i.big == nil {
		return float64(i.value)
	}
	f, _ := new(big.Float).SetInt(i.big).Float64()
	return f
}

// asBigInt returns the value of an Int or Bool as a big.Int.
func asBigInt(obj Object) (*big.Int, bool) {
	switch obj := obj.(type) {
	case *Int:
		return obj.Big(), true
	case *Bool:
		return big.NewInt(obj.int()), true
	}
	return nil, false
}

func isBigInt(obj Object) bool {
	i, ok := obj.(*Int)
	return ok && i.big != nil
}

func indexOverflow() error {
	return IndexErrorf("cannot fit 'int' into an index-sized integer")
}

func bigOp(code op.Code, a, b *big.Int) (Object, error) {
	switch code {
	case op.BinaryAdd:
		return NewBigInt(new(big.Int).Add(a, b)), nil
	case op.BinarySubtract:
		return NewBigInt(new(big.Int).Sub(a, b)), nil
	case op.BinaryMultiply:
		if a.BitLen()+b.BitLen() > maxIntBits {
			return nil, OverflowErrorf("integer too large")
		}
		return NewBigInt(new(big.Int).Mul(a, b)), nil
	case op.BinaryTrueDivide:
		if b.Sign() == 0 {
			return nil, ZeroDivisionErrorf("division by zero")
		}
		f, _ := new(big.Rat).SetFrac(a, b).Float64()
		if math.IsInf(f, 0) {
			return nil, OverflowErrorf("integer division result too large for a float")
		}
		return NewFloat(f), nil
	case op.BinaryFloorDivide:
		if b.Sign() == 0 {
			return nil, ZeroDivisionErrorf("integer division or modulo by zero")
		}
		q, m := new(big.Int).QuoRem(a, b, new(big.Int))
		if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
			q.Sub(q, big.NewInt(1))
		}
		return NewBigInt(q), nil
	case op.BinaryMod:
		if b.Sign() == 0 {
			return nil, ZeroDivisionErrorf("integer modulo by zero")
		}
		m := new(big.Int).Rem(a, b)
		if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
			m.Add(m, b)
		}
		return NewBigInt(m), nil
	case op.BinaryPower:
		if b.Sign() < 0 {
			if a.Sign() == 0 {
				return nil, ZeroDivisionErrorf("0.0 cannot be raised to a negative power")
			}
			x, _ := new(big.Float).SetInt(a).Float64()
			y, _ := new(big.Float).SetInt(b).Float64()
			return NewFloat(math.Pow(x, y)), nil
		}
		if a.CmpAbs(big.NewInt(1)) > 0 && (!b.IsInt64() || b.Int64() > maxIntBits/int64(a.BitLen()-1)) {
			return nil, OverflowErrorf("integer too large")
		}
		return NewBigInt(new(big.Int).Exp(a, b, nil)), nil
	case op.BinaryLShift:
		if b.Sign() < 0 {
			return nil, ValueErrorf("negative shift count")
		}
		if a.Sign() == 0 {
			return NewInt(0), nil
		}
		if !b.IsInt64() || int64(a.BitLen())+b.Int64() > maxIntBits {
			return nil, OverflowErrorf("integer too large")
		}
		return NewBigInt(new(big.Int).Lsh(a, uint(b.Int64()))), nil
	case op.BinaryRShift:
		if b.Sign() < 0 {
			return nil, ValueErrorf("negative shift count")
		}
		if !b.IsInt64() || b.Int64() > int64(a.BitLen()) {
			if a.Sign() < 0 {
				return NewInt(-1), nil
			}
			return NewInt(0), nil
		}
		return NewBigInt(new(big.Int).Rsh(a, uint(b.Int64()))), nil
	case op.BinaryAnd:
		return NewBigInt(new(big.Int).And(a, b)), nil
	case op.BinaryOr:
		return NewBigInt(new(big.Int).Or(a, b)), nil
	case op.BinaryXor:
		return NewBigInt(new(big.Int).Xor(a, b)), nil
	}
	return nil, nil
}

func bigUnary(code op.Code, n *big.Int) Object {
	switch code {
	case op.UnaryNegative:
		return NewBigInt(n.Neg(n))
	case op.UnaryPositive:
		return NewBigInt(n)
	case op.UnaryInvert:
		return NewBigInt(n.Not(n))
	}
	return nil
}

// compareNumbers orders two numeric values exactly, including ints that
// do not fit in a float64. NaN is unordered.
func compareNumbers(a, b Object) (int, bool) {
	if x, ok := asInt(a); ok {
		if y, ok := asInt(b); ok {
			return compareInts(x, y), true
		}
	}
	if x, ok := asBigInt(a); ok {
		if y, ok := asBigInt(b); ok {
			return x.Cmp(y), true
		}
	}
	x, _ := asFloat(a)
	y, _ := asFloat(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	if !isBigInt(a) && !isBigInt(b) {
		return compareFloats(x, y), true
	}
	return exactFloat(a).Cmp(exactFloat(b)), true
}

func exactFloat(obj Object) *big.Float {
	if f, ok := obj.(*Float); ok {
		return new(big.Float).SetFloat64(f.value)
	}
	n, _ := asBigInt(obj)
	return new(big.Float).SetInt(n)
}

// bigEqualsFloat reports whether a big int and a float hold the same value.
func bigEqualsFloat(n *big.Int, f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	return new(big.Float).SetInt(n).Cmp(new(big.Float).SetFloat64(f)) == 0
}
