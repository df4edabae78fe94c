package object

import (
	"context"
	"fmt"

	"github.com/deepnoodle-ai/slither/bytecode"
)

// BuiltinFunc is the signature of functions implemented in Go. kwargs may be
// nil when no keyword arguments were passed.
type BuiltinFunc func(ctx context.Context, args []Object, kwargs *Dict) (Object, error)

// Builtin wraps a Go function.
type Builtin struct {
	base
	fn   BuiltinFunc
	name string
	// method builtins stored in a class dict bind to the instance
	method bool
}

func NewBuiltin(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{fn: fn, name: name}
}

// NewMethod returns a builtin that binds to instances when found on a
// class. The instance is passed as the first argument.
func NewMethod(name string, fn BuiltinFunc) *Builtin {
	return &Builtin{fn: fn, name: name, method: true}
}

func (b *Builtin) Name() string   { return b.name }
func (b *Builtin) Type() *Class   { return BuiltinClass }
func (b *Builtin) Interface() any { return b.fn }

func (b *Builtin) Inspect() string {
	return fmt.Sprintf("<built-in function %s>", b.name)
}

func (b *Builtin) Equals(other Object) bool { return b == other }

func (b *Builtin) SetAttr(name string, value Object) error { return setAttrError(b, name) }

func (b *Builtin) GetAttr(name string) (Object, bool) {
	switch name {
	case "__name__", "__qualname__":
		return NewStr(b.name), true
	}
	return nil, false
}

// Call invokes the wrapped function.
func (b *Builtin) Call(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
	return b.fn(ctx, args, kwargs)
}

// boundMethod returns a builtin for a method of a builtin type that takes
// between minArgs and maxArgs positional arguments and no keywords.
func boundMethod(typeName, name string, minArgs, maxArgs int, fn func(ctx context.Context, args []Object) (Object, error)) *Builtin {
	return NewBuiltin(name, func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
		if kwargs.Len() > 0 {
			return nil, TypeErrorf("%s.%s() takes no keyword arguments", typeName, name)
		}
		if len(args) < minArgs || len(args) > maxArgs {
			switch {
			case minArgs == maxArgs:
				return nil, errWrongArgs(typeName+"."+name, minArgs, len(args))
			case len(args) < minArgs:
				return nil, TypeErrorf("%s.%s() takes at least %d arguments (%d given)", typeName, name, minArgs, len(args))
			default:
				return nil, TypeErrorf("%s.%s() takes at most %d arguments (%d given)", typeName, name, maxArgs, len(args))
			}
		}
		return fn(ctx, args)
	})
}

// Function is a function compiled to bytecode, with its defaults and
// closure cells.
type Function struct {
	base
	code       *bytecode.Code
	globals    *Module
	name       string
	qualName   string
	defaults   []Object
	kwDefaults *Dict
	closure    []*Cell
	dict       *Dict
}

// FunctionParams holds the values captured by MakeFunction.
type FunctionParams struct {
	Code       *bytecode.Code
	Globals    *Module
	QualName   string
	Defaults   []Object
	KwDefaults *Dict
	Closure    []*Cell
}

func NewFunction(p FunctionParams) *Function {
	qualName := p.QualName
	if qualName == "" {
		qualName = p.Code.QualName()
	}
	return &Function{
		code:       p.Code,
		globals:    p.Globals,
		name:       p.Code.Name(),
		qualName:   qualName,
		defaults:   p.Defaults,
		kwDefaults: p.KwDefaults,
		closure:    p.Closure,
		dict:       NewDict(),
	}
}

func (f *Function) Code() *bytecode.Code { return f.code }
func (f *Function) Globals() *Module     { return f.globals }
func (f *Function) Name() string         { return f.name }
func (f *Function) QualName() string     { return f.qualName }
func (f *Function) Defaults() []Object   { return f.defaults }
func (f *Function) KwDefaults() *Dict    { return f.kwDefaults }
func (f *Function) Closure() []*Cell     { return f.closure }
func (f *Function) Type() *Class         { return FunctionClass }
func (f *Function) Interface() any       { return f }

func (f *Function) Inspect() string {
	return fmt.Sprintf("<function %s at %p>", f.qualName, f)
}

func (f *Function) Equals(other Object) bool { return f == other }

func (f *Function) GetAttr(name string) (Object, bool) {
	switch name {
	case "__name__":
		return NewStr(f.name), true
	case "__qualname__":
		return NewStr(f.qualName), true
	case "__module__":
		if f.globals != nil {
			return NewStr(f.globals.name), true
		}
		return None, true
	case "__defaults__":
		if len(f.defaults) == 0 {
			return None, true
		}
		return NewTuple(f.defaults), true
	case "__dict__":
		return f.dict, true
	}
	return f.dict.GetStr(name)
}

func (f *Function) SetAttr(name string, value Object) error {
	switch name {
	case "__name__":
		s, err := AsString(value)
		if err != nil {
			return TypeErrorf("__name__ must be set to a string object")
		}
		f.name = s
	case "__qualname__":
		s, err := AsString(value)
		if err != nil {
			return TypeErrorf("__qualname__ must be set to a string object")
		}
		f.qualName = s
	default:
		f.dict.SetStr(name, value)
	}
	return nil
}

// BoundMethod is a callable bound to its first argument.
type BoundMethod struct {
	base
	self Object
	fn   Object
}

func NewBoundMethod(self, fn Object) *BoundMethod {
	return &BoundMethod{self: self, fn: fn}
}

func (m *BoundMethod) Self() Object     { return m.self }
func (m *BoundMethod) Function() Object { return m.fn }
func (m *BoundMethod) Type() *Class     { return MethodClass }
func (m *BoundMethod) Interface() any   { return m }

func (m *BoundMethod) Inspect() string {
	name := "?"
	if n, ok := m.fn.GetAttr("__qualname__"); ok {
		name = n.(*Str).value
	}
	return fmt.Sprintf("<bound method %s of %s>", name, m.self.Inspect())
}

func (m *BoundMethod) Equals(other Object) bool {
	o, ok := other.(*BoundMethod)
	return ok && o.self == m.self && o.fn == m.fn
}

func (m *BoundMethod) GetAttr(name string) (Object, bool) {
	switch name {
	case "__self__":
		return m.self, true
	case "__func__":
		return m.fn, true
	}
	return m.fn.GetAttr(name)
}

func (m *BoundMethod) SetAttr(name string, value Object) error { return setAttrError(m, name) }

// Cell holds a variable shared between a function and its closures. A nil
// value means the variable is unbound.
type Cell struct {
	base
	value Object
}

func NewCell(value Object) *Cell {
	return &Cell{value: value}
}

func (c *Cell) Get() Object      { return c.value }
func (c *Cell) Set(value Object) { c.value = value }
func (c *Cell) Type() *Class     { return CellClass }
func (c *Cell) Interface() any   { return c }

func (c *Cell) Inspect() string {
	if c.value == nil {
		return fmt.Sprintf("<cell at %p: empty>", c)
	}
	return fmt.Sprintf("<cell at %p: %s object>", c, TypeName(c.value))
}

func (c *Cell) Equals(other Object) bool { return c == other }

func (c *Cell) SetAttr(name string, value Object) error { return setAttrError(c, name) }

// Property is a managed attribute with getter, setter and deleter.
type Property struct {
	base
	fget, fset, fdel Object
}

func NewProperty(fget, fset, fdel Object) *Property {
	return &Property{fget: fget, fset: fset, fdel: fdel}
}

func (p *Property) Type() *Class             { return PropertyClass }
func (p *Property) Interface() any           { return p }
func (p *Property) Inspect() string          { return fmt.Sprintf("<property object at %p>", p) }
func (p *Property) Equals(other Object) bool { return p == other }

func (p *Property) SetAttr(name string, value Object) error { return setAttrError(p, name) }

func (p *Property) GetAttr(name string) (Object, bool) {
	with := func(fget, fset, fdel Object) Object {
		return NewProperty(fget, fset, fdel)
	}
	switch name {
	case "fget":
		return orNone(p.fget), true
	case "fset":
		return orNone(p.fset), true
	case "fdel":
		return orNone(p.fdel), true
	case "getter":
		return boundMethod("property", name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			return with(args[0], p.fset, p.fdel), nil
		}), true
	case "setter":
		return boundMethod("property", name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			return with(p.fget, args[0], p.fdel), nil
		}), true
	case "deleter":
		return boundMethod("property", name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			return with(p.fget, p.fset, args[0]), nil
		}), true
	}
	return nil, false
}

func orNone(obj Object) Object {
	if obj == nil {
		return None
	}
	return obj
}

// StaticMethod wraps a function that is not bound when looked up.
type StaticMethod struct {
	base
	fn Object
}

func NewStaticMethod(fn Object) *StaticMethod { return &StaticMethod{fn: fn} }

func (s *StaticMethod) Function() Object         { return s.fn }
func (s *StaticMethod) Type() *Class             { return StaticMethodClass }
func (s *StaticMethod) Interface() any           { return s }
func (s *StaticMethod) Inspect() string          { return fmt.Sprintf("<staticmethod(%s)>", s.fn.Inspect()) }
func (s *StaticMethod) Equals(other Object) bool { return s == other }

func (s *StaticMethod) SetAttr(name string, value Object) error { return setAttrError(s, name) }

// ClassMethod wraps a function that is bound to the class when looked up.
type ClassMethod struct {
	base
	fn Object
}

func NewClassMethod(fn Object) *ClassMethod { return &ClassMethod{fn: fn} }

func (c *ClassMethod) Function() Object         { return c.fn }
func (c *ClassMethod) Type() *Class             { return ClassMethodClass }
func (c *ClassMethod) Interface() any           { return c }
func (c *ClassMethod) Inspect() string          { return fmt.Sprintf("<classmethod(%s)>", c.fn.Inspect()) }
func (c *ClassMethod) Equals(other Object) bool { return c == other }

func (c *ClassMethod) SetAttr(name string, value Object) error { return setAttrError(c, name) }

// Module is an executed module and its namespace.
type Module struct {
	base
	name string
	path string
	dict *Dict
}

func NewModule(name, path string) *Module {
	m := &Module{name: name, path: path, dict: NewDict()}
	m.dict.SetStr("__name__", NewStr(name))
	if path != "" {
		m.dict.SetStr("__file__", NewStr(path))
	}
	return m
}

func (m *Module) Name() string   { return m.name }
func (m *Module) Path() string   { return m.path }
func (m *Module) Dict() *Dict    { return m.dict }
func (m *Module) Type() *Class   { return ModuleClass }
func (m *Module) Interface() any { return m }

func (m *Module) Inspect() string {
	if m.path == "" {
		return fmt.Sprintf("<module '%s'>", m.name)
	}
	return fmt.Sprintf("<module '%s' from '%s'>", m.name, m.path)
}

func (m *Module) Equals(other Object) bool { return m == other }

func (m *Module) GetAttr(name string) (Object, bool) {
	if name == "__dict__" {
		return m.dict, true
	}
	return m.dict.GetStr(name)
}

func (m *Module) SetAttr(name string, value Object) error {
	m.dict.SetStr(name, value)
	return nil
}

// Global returns a name from the module namespace.
func (m *Module) Global(name string) (Object, bool) {
	return m.dict.GetStr(name)
}

// SetGlobal binds a name in the module namespace.
func (m *Module) SetGlobal(name string, value Object) {
	m.dict.SetStr(name, value)
}
