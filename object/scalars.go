package object

import (
	"context"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// NoneType is the type of None.
type NoneType struct{ base }

// NotImplementedType is returned by binary dunder methods that do not
// support an operand.
type NotImplementedType struct{ base }

// EllipsisType is the type of "...".
type EllipsisType struct{ base }

var (
	None           = &NoneType{}
	NotImplemented = &NotImplementedType{}
	Ellipsis       = &EllipsisType{}
	True           = &Bool{value: true}
	False          = &Bool{value: false}
)

func (n *NoneType) Type() *Class                            { return NoneClass }
func (n *NoneType) Inspect() string                         { return "None" }
func (n *NoneType) Interface() any                          { return nil }
func (n *NoneType) Equals(other Object) bool                { return other == None }
func (n *NoneType) IsTruthy() bool                          { return false }
func (n *NoneType) SetAttr(name string, value Object) error { return setAttrError(n, name) }

func (n *NotImplementedType) Type() *Class             { return NotImplementedClass }
func (n *NotImplementedType) Inspect() string          { return "NotImplemented" }
func (n *NotImplementedType) Interface() any           { return nil }
func (n *NotImplementedType) Equals(other Object) bool { return other == NotImplemented }
func (n *NotImplementedType) SetAttr(name string, value Object) error {
	return setAttrError(n, name)
}

func (e *EllipsisType) Type() *Class                            { return EllipsisClass }
func (e *EllipsisType) Inspect() string                         { return "Ellipsis" }
func (e *EllipsisType) Interface() any                          { return nil }
func (e *EllipsisType) Equals(other Object) bool                { return other == Ellipsis }
func (e *EllipsisType) SetAttr(name string, value Object) error { return setAttrError(e, name) }

// Bool is True or False. Bools behave as the integers 1 and 0 in
// arithmetic and hashing.
type Bool struct {
	base
	value bool
}

func NewBool(value bool) *Bool {
	if value {
		return True
	}
	return False
}

func (b *Bool) Value() bool    { return b.value }
func (b *Bool) Type() *Class   { return BoolClass }
func (b *Bool) Interface() any { return b.value }
func (b *Bool) IsTruthy() bool { return b.value }

func (b *Bool) Inspect() string {
	if b.value {
		return "True"
	}
	return "False"
}

func (b *Bool) Equals(other Object) bool {
	f, ok := asFloat(other)
	return ok && f == float64(b.int())
}

func (b *Bool) SetAttr(name string, value Object) error { return setAttrError(b, name) }

func (b *Bool) int() int64 {
	if b.value {
		return 1
	}
	return 0
}

// Int is an arbitrary-precision integer. Values in the int64 range are
// stored inline; larger ones spill into a big.Int.
type Int struct {
	base
	value int64
	big   *big.Int
}

var smallInts [262]*Int

func init() {
	for i := range smallInts {
		smallInts[i] = &Int{value: int64(i) - 5}
	}
}

func NewInt(value int64) *Int {
	if value >= -5 && value <= 256 {
		return smallInts[value+5]
	}
	return &Int{value: value}
}

// Value returns the int64 value. It is only meaningful when IsBig is false.
func (i *Int) Value() int64 { return i.value }
func (i *Int) Type() *Class { return IntClass }

func (i *Int) Inspect() string {
	if i.big != nil {
		return i.big.String()
	}
	return strconv.FormatInt(i.value, 10)
}

func (i *Int) Interface() any {
	if i.big != nil {
		return i.Big()
	}
	return i.value
}

func (i *Int) IsTruthy() bool { return i.big != nil || i.value != 0 }

func (i *Int) Equals(other Object) bool {
	if f, ok := other.(*Float); ok {
		if i.big != nil {
			return bigEqualsFloat(i.big, f.value)
		}
		return float64(i.value) == f.value
	}
	if i.big != nil {
		o, ok := other.(*Int)
		return ok && o.big != nil && o.big.Cmp(i.big) == 0
	}
	n, ok := asInt(other)
	return ok && n == i.value
}

func (i *Int) SetAttr(name string, value Object) error { return setAttrError(i, name) }

func (i *Int) GetAttr(name string) (Object, bool) {
	switch name {
	case "real", "numerator":
		return i, true
	case "imag":
		return NewInt(0), true
	case "denominator":
		return NewInt(1), true
	case "bit_length":
		return boundMethod("int", name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return NewInt(int64(i.Big().BitLen())), nil
		}), true
	}
	return nil, false
}

// asInt returns the integer value of an Int or Bool. Ints outside the
// int64 range are rejected.
func asInt(obj Object) (int64, bool) {
	switch obj := obj.(type) {
	case *Int:
		return obj.value, obj.big == nil
	case *Bool:
		return obj.int(), true
	}
	return 0, false
}

// AsInt returns the integer value of an Int or Bool.
func AsInt(obj Object) (int64, error) {
	if n, ok := asInt(obj); ok {
		return n, nil
	}
	if isBigInt(obj) {
		return 0, OverflowErrorf("Python int too large to convert to C ssize_t")
	}
	return 0, TypeErrorf("'%s' object cannot be interpreted as an integer", TypeName(obj))
}

// Float is a 64-bit floating point number.
type Float struct {
	base
	value float64
}

func NewFloat(value float64) *Float {
	return &Float{value: value}
}

func (f *Float) Value() float64  { return f.value }
func (f *Float) Type() *Class    { return FloatClass }
func (f *Float) Inspect() string { return FormatFloat(f.value) }
func (f *Float) Interface() any  { return f.value }
func (f *Float) IsTruthy() bool  { return f.value != 0 }

func (f *Float) Equals(other Object) bool {
	if o, ok := other.(*Float); ok {
		return f.value == o.value
	}
	if i, ok := other.(*Int); ok {
		return i.Equals(f)
	}
	n, ok := asInt(other)
	return ok && float64(n) == f.value
}

func (f *Float) SetAttr(name string, value Object) error { return setAttrError(f, name) }

func (f *Float) GetAttr(name string) (Object, bool) {
	switch name {
	case "real":
		return f, true
	case "imag":
		return NewFloat(0), true
	case "is_integer":
		return boundMethod("float", name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return NewBool(f.value == math.Trunc(f.value) && !math.IsInf(f.value, 0)), nil
		}), true
	}
	return nil, false
}

// asFloat returns the float value of a Float, Int or Bool.
func asFloat(obj Object) (float64, bool) {
	if f, ok := obj.(*Float); ok {
		return f.value, true
	}
	if i, ok := obj.(*Int); ok {
		return i.float(), true
	}
	if n, ok := asInt(obj); ok {
		return float64(n), true
	}
	return 0, false
}

// AsFloat returns the float value of a Float, Int or Bool.
func AsFloat(obj Object) (float64, error) {
	if f, ok := asFloat(obj); ok {
		return f, nil
	}
	return 0, TypeErrorf("must be real number, not %s", TypeName(obj))
}

// FormatFloat renders f the way repr() does: the shortest representation
// that round-trips, in positional notation for exponents in [-4, 16).
func FormatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	exp := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, expPart, _ := strings.Cut(exp, "e")
	e, _ := strconv.Atoi(expPart)
	if e >= -4 && e < 16 {
		s := strconv.FormatFloat(f, 'f', -1, 64)
		if !strings.ContainsAny(s, ".") {
			s += ".0"
		}
		return s
	}
	sign := "+"
	if e < 0 {
		sign = "-"
		e = -e
	}
	return mantissa + "e" + sign + leftPad(strconv.Itoa(e), 2, '0')
}

func leftPad(s string, width int, fill rune) string {
	if n := width - len([]rune(s)); n > 0 {
		return strings.Repeat(string(fill), n) + s
	}
	return s
}
