package object

import (
	"context"
	"slices"
	"strings"
)

// Call invokes a callable object.
func Call(ctx context.Context, fn Object, args []Object, kwargs *Dict) (Object, error) {
	switch fn := fn.(type) {
	case *Builtin:
		return fn.fn(ctx, args, kwargs)
	case *Function:
		call, ok := GetCallFunc(ctx)
		if !ok {
			return nil, RuntimeErrorf("no interpreter is available to call %s", fn.qualName)
		}
		return call(ctx, fn, args, kwargs)
	case *BoundMethod:
		return Call(ctx, fn.fn, prepend(fn.self, args), kwargs)
	case *Class:
		return Construct(ctx, fn, args, kwargs)
	case *StaticMethod:
		return Call(ctx, fn.fn, args, kwargs)
	case *Instance:
		if method, ok := lookupSpecial(fn, "__call__"); ok {
			return Call(ctx, method, args, kwargs)
		}
	}
	return nil, TypeErrorf("'%s' object is not callable", TypeName(fn))
}

func prepend(first Object, rest []Object) []Object {
	out := make([]Object, 0, len(rest)+1)
	out = append(out, first)
	return append(out, rest...)
}

// Construct creates an instance of cls and runs its __init__.
func Construct(ctx context.Context, cls *Class, args []Object, kwargs *Dict) (Object, error) {
	obj, err := cls.constructor()(ctx, cls, args, kwargs)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok || inst.class != cls {
		return obj, nil
	}
	init, ok := lookupSpecial(inst, "__init__")
	if !ok {
		return inst, nil
	}
	result, err := Call(ctx, init, args, kwargs)
	if err != nil {
		return nil, err
	}
	if result != None {
		return nil, TypeErrorf("__init__() should return None, not '%s'", TypeName(result))
	}
	return inst, nil
}

// CallMethod looks up a special method on the class of obj and calls it.
func CallMethod(ctx context.Context, obj Object, name string, args ...Object) (Object, error) {
	method, ok := lookupSpecial(obj, name)
	if !ok {
		return nil, AttributeErrorf("'%s' object has no attribute '%s'", TypeName(obj), name)
	}
	return Call(ctx, method, args, nil)
}

// lookupSpecial finds a method on the class of obj, bound to obj. Builtin
// types expose their methods through GetAttr instead.
func lookupSpecial(obj Object, name string) (Object, bool) {
	if inst, ok := obj.(*Instance); ok {
		value, _, found := inst.class.Lookup(name)
		if !found {
			return nil, false
		}
		return bind(value, inst, inst.class), true
	}
	return obj.GetAttr(name)
}

// hasOverride reports whether the class of obj defines name somewhere other
// than on a builtin class.
func hasOverride(obj Object, name string) bool {
	inst, ok := obj.(*Instance)
	if !ok {
		return false
	}
	_, owner, found := inst.class.Lookup(name)
	return found && !owner.builtin
}

// bind applies the descriptor rules for a value found on a class. self is
// nil for lookups on the class itself.
func bind(value Object, self Object, cls *Class) Object {
	switch v := value.(type) {
	case *Function:
		if self != nil {
			return NewBoundMethod(self, v)
		}
	case *Builtin:
		if v.method && self != nil {
			return NewBoundMethod(self, v)
		}
	case *StaticMethod:
		return v.fn
	case *ClassMethod:
		return NewBoundMethod(cls, v.fn)
	}
	return value
}

// GetAttribute implements attribute access, including method binding,
// properties and __getattr__.
func GetAttribute(ctx context.Context, obj Object, name string) (Object, error) {
	switch o := obj.(type) {
	case *Instance:
		classValue, _, found := o.class.Lookup(name)
		if p, ok := classValue.(*Property); ok && found {
			if p.fget == nil {
				return nil, AttributeErrorf("property '%s' of '%s' object has no getter", name, o.class.name)
			}
			return Call(ctx, p.fget, []Object{o}, nil)
		}
		if value, ok := o.GetAttr(name); ok {
			return value, nil
		}
		if found {
			return bind(classValue, o, o.class), nil
		}
		if getattr, ok := lookupSpecial(o, "__getattr__"); ok {
			return Call(ctx, getattr, []Object{NewStr(name)}, nil)
		}
		return nil, AttributeErrorf("'%s' object has no attribute '%s'", o.class.name, name)
	case *Class:
		if value, _, found := o.Lookup(name); found {
			return bind(value, nil, o), nil
		}
		if value, ok := o.GetAttr(name); ok {
			return value, nil
		}
		if name == "__class__" {
			return TypeClass, nil
		}
		return nil, AttributeErrorf("type object '%s' has no attribute '%s'", o.name, name)
	case *Super:
		return o.getAttribute(ctx, name)
	}
	if value, ok := obj.GetAttr(name); ok {
		return value, nil
	}
	if name == "__class__" {
		return obj.Type(), nil
	}
	if name == "__doc__" {
		return None, nil
	}
	return nil, AttributeErrorf("'%s' object has no attribute '%s'", TypeName(obj), name)
}

// SetAttribute implements attribute assignment.
func SetAttribute(ctx context.Context, obj Object, name string, value Object) error {
	if inst, ok := obj.(*Instance); ok {
		if classValue, _, found := inst.class.Lookup(name); found {
			if p, ok := classValue.(*Property); ok {
				if p.fset == nil {
					return AttributeErrorf("property '%s' of '%s' object has no setter", name, inst.class.name)
				}
				_, err := Call(ctx, p.fset, []Object{inst, value}, nil)
				return err
			}
		}
	}
	return obj.SetAttr(name, value)
}

// DelAttribute implements "del obj.name".
func DelAttribute(ctx context.Context, obj Object, name string) error {
	switch o := obj.(type) {
	case *Instance:
		if classValue, _, found := o.class.Lookup(name); found {
			if p, ok := classValue.(*Property); ok {
				if p.fdel == nil {
					return AttributeErrorf("property '%s' of '%s' object has no deleter", name, o.class.name)
				}
				_, err := Call(ctx, p.fdel, []Object{o}, nil)
				return err
			}
		}
		return o.DelAttr(name)
	case *Class:
		if o.builtin {
			return TypeErrorf("cannot delete '%s' attribute of immutable type '%s'", name, o.name)
		}
		if !o.dict.DelStr(name) {
			return AttributeErrorf("type object '%s' has no attribute '%s'", o.name, name)
		}
		return nil
	case *Module:
		if !o.dict.DelStr(name) {
			return AttributeErrorf("module '%s' has no attribute '%s'", o.name, name)
		}
		return nil
	case *Function:
		if !o.dict.DelStr(name) {
			return AttributeErrorf("'function' object has no attribute '%s'", name)
		}
		return nil
	}
	return AttributeErrorf("'%s' object has no attribute '%s'", TypeName(obj), name)
}

// HasAttribute reports whether attribute access succeeds. Exceptions other
// than AttributeError are returned.
func HasAttribute(ctx context.Context, obj Object, name string) (bool, error) {
	_, err := GetAttribute(ctx, obj, name)
	if err == nil {
		return true, nil
	}
	if AsException(err).IsInstance("AttributeError") {
		return false, nil
	}
	return false, err
}

// IsInstance reports whether obj is an instance of cls or a subclass.
func IsInstance(obj Object, cls *Class) bool {
	return obj.Type().IsSubclass(cls)
}

// Repr returns the printable representation of obj, dispatching to
// __repr__ on instances.
func Repr(ctx context.Context, obj Object) (string, error) {
	switch o := obj.(type) {
	case *Instance:
		if hasOverride(o, "__repr__") {
			return stringResult(ctx, o, "__repr__")
		}
	case *List:
		s, err := reprItems(ctx, o.items)
		return "[" + s + "]", err
	case *Tuple:
		s, err := reprItems(ctx, o.items)
		if len(o.items) == 1 {
			s += ","
		}
		return "(" + s + ")", err
	case *Set:
		if o.Len() == 0 {
			return "set()", nil
		}
		s, err := reprItems(ctx, o.items.keys)
		return "{" + s + "}", err
	case *Dict:
		parts := make([]string, len(o.keys))
		for i := range o.keys {
			k, err := Repr(ctx, o.keys[i])
			if err != nil {
				return "", err
			}
			v, err := Repr(ctx, o.values[i])
			if err != nil {
				return "", err
			}
			parts[i] = k + ": " + v
		}
		return "{" + strings.Join(parts, ", ") + "}", nil
	}
	return obj.Inspect(), nil
}

func reprItems(ctx context.Context, items []Object) (string, error) {
	parts := make([]string, len(items))
	for i, item := range items {
		s, err := Repr(ctx, item)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, ", "), nil
}

// ToStr returns the informal string form of obj, dispatching to __str__ on
// instances.
func ToStr(ctx context.Context, obj Object) (string, error) {
	switch o := obj.(type) {
	case *Str:
		return o.value, nil
	case *Instance:
		if hasOverride(o, "__str__") {
			return stringResult(ctx, o, "__str__")
		}
		if o.exc != nil {
			if o.args.Len() == 1 {
				return ToStr(ctx, o.args.items[0])
			}
			return messageFromArgs(o.args), nil
		}
	}
	return Repr(ctx, obj)
}

func stringResult(ctx context.Context, obj Object, method string) (string, error) {
	result, err := CallMethod(ctx, obj, method)
	if err != nil {
		return "", err
	}
	s, ok := result.(*Str)
	if !ok {
		return "", TypeErrorf("%s returned non-string (type %s)", method, TypeName(result))
	}
	return s.value, nil
}

// Truthy reports whether obj is true, dispatching to __bool__ or __len__ on
// instances.
func Truthy(ctx context.Context, obj Object) (bool, error) {
	inst, ok := obj.(*Instance)
	if !ok {
		return obj.IsTruthy(), nil
	}
	if method, ok := lookupSpecial(inst, "__bool__"); ok {
		result, err := Call(ctx, method, nil, nil)
		if err != nil {
			return false, err
		}
		b, ok := result.(*Bool)
		if !ok {
			return false, TypeErrorf("__bool__ should return bool, returned %s", TypeName(result))
		}
		return b.value, nil
	}
	if _, _, ok := inst.class.Lookup("__len__"); ok {
		n, err := Len(ctx, inst)
		return n > 0, err
	}
	return true, nil
}

// Len returns the length of a sized object.
func Len(ctx context.Context, obj Object) (int, error) {
	switch o := obj.(type) {
	case *Str:
		return o.Len(), nil
	case *Bytes:
		return o.Len(), nil
	case *List:
		return o.Len(), nil
	case *Tuple:
		return o.Len(), nil
	case *Dict:
		return o.Len(), nil
	case *Set:
		return o.Len(), nil
	case *Range:
		return o.Len(), nil
	case *Instance:
		if _, _, ok := o.class.Lookup("__len__"); ok {
			result, err := CallMethod(ctx, o, "__len__")
			if err != nil {
				return 0, err
			}
			n, err := AsInt(result)
			if err != nil {
				return 0, err
			}
			if n < 0 {
				return 0, ValueErrorf("__len__() should return >= 0")
			}
			return int(n), nil
		}
	}
	return 0, TypeErrorf("object of type '%s' has no len()", TypeName(obj))
}

// Super is the proxy returned by super(). Lookups start after thisClass in
// the method resolution order of self.
type Super struct {
	base
	thisClass *Class
	self      Object
}

func NewSuper(thisClass *Class, self Object) (*Super, error) {
	var selfClass *Class
	if cls, ok := self.(*Class); ok && cls.IsSubclass(thisClass) {
		selfClass = cls
	} else {
		selfClass = self.Type()
	}
	if !selfClass.IsSubclass(thisClass) {
		return nil, TypeErrorf("super(type, obj): obj must be an instance or subtype of type")
	}
	return &Super{thisClass: thisClass, self: self}, nil
}

func (s *Super) Type() *Class             { return SuperClass }
func (s *Super) Interface() any           { return s }
func (s *Super) Equals(other Object) bool { return s == other }

func (s *Super) Inspect() string {
	return "<super: <class '" + s.thisClass.name + "'>, <" + TypeName(s.self) + " object>>"
}

func (s *Super) SetAttr(name string, value Object) error { return setAttrError(s, name) }

func (s *Super) getAttribute(ctx context.Context, name string) (Object, error) {
	selfClass, isClass := s.self.(*Class)
	if !isClass {
		selfClass = s.self.Type()
	}
	mro := selfClass.mro
	start := slices.Index(mro, s.thisClass) + 1
	for _, cls := range mro[start:] {
		value, ok := cls.dict.GetStr(name)
		if !ok {
			continue
		}
		if p, ok := value.(*Property); ok && !isClass {
			if p.fget == nil {
				return nil, AttributeErrorf("property '%s' has no getter", name)
			}
			return Call(ctx, p.fget, []Object{s.self}, nil)
		}
		if isClass {
			return bind(value, nil, selfClass), nil
		}
		return bind(value, s.self, selfClass), nil
	}
	return nil, AttributeErrorf("'super' object has no attribute '%s'", name)
}
