package object

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/slither/exception"
)

// Instance is an instance of a user-defined class or of a builtin exception
// class.
type Instance struct {
	class *Class
	dict  *Dict
	// exc and args are set for instances of BaseException subclasses
	exc  *exception.Exception
	args *Tuple
}

func NewInstance(class *Class) *Instance {
	return &Instance{class: class, dict: NewDict()}
}

func (i *Instance) Class() *Class { return i.class }

func (i *Instance) Dict() *Dict { return i.dict }

// Exception returns the exception carried by the instance, or nil.
func (i *Instance) Exception() *exception.Exception { return i.exc }

func (i *Instance) Type() *Class { return i.class }

func (i *Instance) Inspect() string {
	if i.exc != nil {
		parts := make([]string, len(i.args.items))
		for j, arg := range i.args.items {
			parts[j] = arg.Inspect()
		}
		return fmt.Sprintf("%s(%s)", i.class.name, strings.Join(parts, ", "))
	}
	name := i.class.qualName
	if i.class.module != "" && i.class.module != "builtins" {
		name = i.class.module + "." + name
	}
	return identity(name, i)
}

func (i *Instance) Interface() any { return i }

func (i *Instance) Equals(other Object) bool { return i == other }

func (i *Instance) IsTruthy() bool { return true }

// GetAttr returns an attribute stored on the instance itself. Class
// attributes and methods are resolved by GetAttribute.
func (i *Instance) GetAttr(name string) (Object, bool) {
	if i.exc != nil {
		if value, ok := exceptionAttr(i, name); ok {
			return value, true
		}
	}
	switch name {
	case "__class__":
		return i.class, true
	case "__dict__":
		return i.dict, true
	}
	return i.dict.GetStr(name)
}

func (i *Instance) SetAttr(name string, value Object) error {
	if i.exc != nil {
		if handled, err := setExceptionAttr(i, name, value); handled {
			return err
		}
	}
	if name == "__class__" || name == "__dict__" {
		return TypeErrorf("cannot assign to '%s'", name)
	}
	i.dict.SetStr(name, value)
	return nil
}

// DelAttr removes an attribute stored on the instance.
func (i *Instance) DelAttr(name string) error {
	if !i.dict.DelStr(name) {
		return AttributeErrorf("'%s' object has no attribute '%s'", i.class.name, name)
	}
	return nil
}
