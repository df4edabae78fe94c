// Package object provides the runtime values used by the Slither virtual
// machine.
//
// Every value implements the Object interface. Concrete values are usually
// reached through a type switch:
//
//	switch obj := obj.(type) {
//	case *object.Str:
//		// do something with obj.Value()
//	case *object.Int:
//		// do something with obj.Value()
//	}
//
// Behavior that may run user code, such as calling a dunder method defined
// on a class, lives in the protocol functions of this package (Call, Repr,
// Str, BinaryOp, Compare, Iterate, GetItem and friends). Those functions
// take a context.Context, which carries the CallFunc installed by the VM.
package object

import (
	"fmt"
)

// Object is the interface that all runtime values implement.
type Object interface {
	// Type returns the class of the object.
	Type() *Class

	// Inspect returns the repr of the object. Containers holding instances
	// should be rendered with Repr, which can dispatch to __repr__.
	Inspect() string

	// Interface converts the object to a native Go value.
	Interface() any

	// Equals reports whether the object equals other without running
	// user code.
	Equals(other Object) bool

	// GetAttr returns a builtin attribute of the object.
	GetAttr(name string) (Object, bool)

	// SetAttr sets an attribute on the object.
	SetAttr(name string, value Object) error

	// IsTruthy reports whether the object is considered true.
	IsTruthy() bool
}

type base struct{}

func (b *base) GetAttr(name string) (Object, bool) {
	return nil, false
}

func (b *base) IsTruthy() bool {
	return true
}

// TypeName returns the class name of obj.
func TypeName(obj Object) string {
	if obj == nil {
		return "NoneType"
	}
	return obj.Type().Name()
}

// identity renders the default "<name object at 0x...>" repr.
func identity(name string, obj any) string {
	return fmt.Sprintf("<%s object at %p>", name, obj)
}

// setAttrError is returned by SetAttr on values without a writable
// attribute dictionary.
func setAttrError(obj Object, name string) error {
	if _, ok := obj.GetAttr(name); ok {
		return AttributeErrorf("'%s' object attribute '%s' is read-only", TypeName(obj), name)
	}
	return AttributeErrorf("'%s' object has no attribute '%s'", TypeName(obj), name)
}
