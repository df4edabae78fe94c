package object

import (
	"fmt"
	"math/big"

	"github.com/deepnoodle-ai/slither/bytecode"
)

// CodeValue wraps a code object so it can sit on the VM stack.
type CodeValue struct {
	base
	code *bytecode.Code
}

func NewCodeValue(code *bytecode.Code) *CodeValue {
	return &CodeValue{code: code}
}

func (c *CodeValue) Code() *bytecode.Code { return c.code }
func (c *CodeValue) Type() *Class         { return CodeClass }
func (c *CodeValue) Interface() any       { return c.code }

func (c *CodeValue) Inspect() string {
	return fmt.Sprintf("<code object %s at %p, file %q, line %d>",
		c.code.Name(), c.code, c.code.Filename(), c.code.FirstLineNo())
}

func (c *CodeValue) Equals(other Object) bool {
	o, ok := other.(*CodeValue)
	return ok && o.code == c.code
}

func (c *CodeValue) SetAttr(name string, value Object) error { return setAttrError(c, name) }

func (c *CodeValue) GetAttr(name string) (Object, bool) {
	switch name {
	case "co_name":
		return NewStr(c.code.Name()), true
	case "co_qualname":
		return NewStr(c.code.QualName()), true
	case "co_filename":
		return NewStr(c.code.Filename()), true
	case "co_firstlineno":
		return NewInt(int64(c.code.FirstLineNo())), true
	case "co_argcount":
		return NewInt(int64(c.code.ArgCount())), true
	case "co_kwonlyargcount":
		return NewInt(int64(c.code.KwOnlyArgCount())), true
	case "co_nlocals":
		return NewInt(int64(c.code.NLocals())), true
	case "co_flags":
		return NewInt(int64(c.code.Flags())), true
	case "co_varnames":
		return strTuple(c.code.VarNames()), true
	case "co_names":
		return strTuple(c.code.Names()), true
	case "co_cellvars":
		return strTuple(c.code.CellVars()), true
	case "co_freevars":
		return strTuple(c.code.FreeVars()), true
	case "co_consts":
		consts := make([]Object, c.code.ConstantCount())
		for i := range consts {
			consts[i] = FromConstant(c.code.ConstantAt(i))
		}
		return NewTuple(consts), true
	}
	return nil, false
}

func strTuple(values []string) *Tuple {
	items := make([]Object, len(values))
	for i, v := range values {
		items[i] = NewStr(v)
	}
	return NewTuple(items)
}

// FromConstant converts a constant pool entry to a runtime value.
func FromConstant(value any) Object {
	switch v := value.(type) {
	case nil:
		return None
	case bool:
		return NewBool(v)
	case int64:
		return NewInt(v)
	case *big.Int:
		return NewBigInt(v)
	case float64:
		return NewFloat(v)
	case string:
		return NewStr(v)
	case bytecode.Bytes:
		return &Bytes{value: string(v)}
	case bytecode.Ellipsis:
		return Ellipsis
	case bytecode.Tuple:
		items := make([]Object, len(v))
		for i, item := range v {
			items[i] = FromConstant(item)
		}
		return NewTuple(items)
	case *bytecode.Code:
		return NewCodeValue(v)
	}
	panic(fmt.Sprintf("object: unsupported constant type %T", value))
}

// FromGo converts a Go value to a runtime value. It supports the types
// produced by Interface on builtin values plus common host types.
func FromGo(value any) (Object, error) {
	switch v := value.(type) {
	case nil:
		return None, nil
	case Object:
		return v, nil
	case bool:
		return NewBool(v), nil
	case int:
		return NewInt(int64(v)), nil
	case int32:
		return NewInt(int64(v)), nil
	case int64:
		return NewInt(v), nil
	case *big.Int:
		return NewBigInt(v), nil
	case float32:
		return NewFloat(float64(v)), nil
	case float64:
		return NewFloat(v), nil
	case string:
		return NewStr(v), nil
	case []byte:
		return NewBytes(v), nil
	case []any:
		items := make([]Object, len(v))
		for i, item := range v {
			obj, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			items[i] = obj
		}
		return NewList(items), nil
	case []string:
		return NewList(strTuple(v).items), nil
	case map[string]any:
		m := make(map[string]Object, len(v))
		for key, item := range v {
			obj, err := FromGo(item)
			if err != nil {
				return nil, err
			}
			m[key] = obj
		}
		return NewDictFromMap(m), nil
	}
	return nil, TypeErrorf("cannot convert value of type %T", value)
}
