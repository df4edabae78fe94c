package object

import (
	"context"
	"fmt"
	"slices"

	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/mro"
)

// NewFunc creates a new value for a call to cls.
type NewFunc func(ctx context.Context, cls *Class, args []Object, kwargs *Dict) (Object, error)

// Class is a runtime class. Builtin classes are shared by every VM; user
// classes belong to the ClassTable of the VM that defined them.
type Class struct {
	name     string
	qualName string
	module   string
	index    int
	bases    []*Class
	mro      []*Class
	dict     *Dict
	new      NewFunc
	builtin  bool
	// sealed builtin classes cannot be used as a base
	sealed bool
}

// Builtin classes.
var (
	ObjectClass         *Class
	TypeClass           *Class
	NoneClass           *Class
	NotImplementedClass *Class
	EllipsisClass       *Class
	IntClass            *Class
	BoolClass           *Class
	FloatClass          *Class
	StrClass            *Class
	BytesClass          *Class
	ListClass           *Class
	TupleClass          *Class
	DictClass           *Class
	SetClass            *Class
	RangeClass          *Class
	SliceClass          *Class
	FunctionClass       *Class
	BuiltinClass        *Class
	MethodClass         *Class
	ModuleClass         *Class
	CellClass           *Class
	IteratorClass       *Class
	SuperClass          *Class
	PropertyClass       *Class
	StaticMethodClass   *Class
	ClassMethodClass    *Class
	CodeClass           *Class
	BaseExceptionClass  *Class
)

var (
	builtinTable     = mro.NewTable()
	builtinClasses   []*Class
	exceptionClasses = map[string]*Class{}
)

func init() {
	ObjectClass = &Class{name: "object", qualName: "object", module: "builtins", index: mro.Object, builtin: true}
	ObjectClass.mro = []*Class{ObjectClass}
	ObjectClass.dict = NewDict()
	ObjectClass.new = objectNew
	builtinClasses = append(builtinClasses, ObjectClass)

	TypeClass = newBuiltinClass("type", ObjectClass, true)
	NoneClass = newBuiltinClass("NoneType", ObjectClass, true)
	NotImplementedClass = newBuiltinClass("NotImplementedType", ObjectClass, true)
	EllipsisClass = newBuiltinClass("ellipsis", ObjectClass, true)
	IntClass = newBuiltinClass("int", ObjectClass, true)
	BoolClass = newBuiltinClass("bool", IntClass, true)
	FloatClass = newBuiltinClass("float", ObjectClass, true)
	StrClass = newBuiltinClass("str", ObjectClass, true)
	BytesClass = newBuiltinClass("bytes", ObjectClass, true)
	ListClass = newBuiltinClass("list", ObjectClass, true)
	TupleClass = newBuiltinClass("tuple", ObjectClass, true)
	DictClass = newBuiltinClass("dict", ObjectClass, true)
	SetClass = newBuiltinClass("set", ObjectClass, true)
	RangeClass = newBuiltinClass("range", ObjectClass, true)
	SliceClass = newBuiltinClass("slice", ObjectClass, true)
	FunctionClass = newBuiltinClass("function", ObjectClass, true)
	BuiltinClass = newBuiltinClass("builtin_function_or_method", ObjectClass, true)
	MethodClass = newBuiltinClass("method", ObjectClass, true)
	ModuleClass = newBuiltinClass("module", ObjectClass, true)
	CellClass = newBuiltinClass("cell", ObjectClass, true)
	IteratorClass = newBuiltinClass("iterator", ObjectClass, true)
	SuperClass = newBuiltinClass("super", ObjectClass, true)
	PropertyClass = newBuiltinClass("property", ObjectClass, true)
	StaticMethodClass = newBuiltinClass("staticmethod", ObjectClass, true)
	ClassMethodClass = newBuiltinClass("classmethod", ObjectClass, true)
	CodeClass = newBuiltinClass("code", ObjectClass, true)

	ObjectClass.dict.SetStr("__init__", NewMethod("__init__", objectInit))
	for _, name := range exception.Names() {
		base := ObjectClass
		if parent, _ := exception.Parent(name); parent != "" {
			base = exceptionClasses[parent]
		}
		cls := newBuiltinClass(name, base, false)
		exceptionClasses[name] = cls
	}
	BaseExceptionClass = exceptionClasses["BaseException"]
	BaseExceptionClass.new = exceptionNew
	BaseExceptionClass.dict.SetStr("__init__", NewMethod("__init__", exceptionInit))
}

func newBuiltinClass(name string, base *Class, sealed bool) *Class {
	idx, err := builtinTable.Define(name, []int{base.index})
	if err != nil {
		panic(fmt.Sprintf("object: defining builtin class %s: %v", name, err))
	}
	cls := &Class{
		name:     name,
		qualName: name,
		module:   "builtins",
		index:    idx,
		bases:    []*Class{base},
		dict:     NewDict(),
		builtin:  true,
		sealed:   sealed,
	}
	builtinClasses = append(builtinClasses, cls)
	cls.mro = classesAt(builtinClasses, builtinTable.MRO(idx))
	return cls
}

func classesAt(classes []*Class, indexes []int) []*Class {
	out := make([]*Class, len(indexes))
	for i, idx := range indexes {
		out[i] = classes[idx]
	}
	return out
}

// BuiltinClasses returns the builtin classes in definition order.
func BuiltinClasses() []*Class {
	return slices.Clone(builtinClasses)
}

// ExceptionClass returns the builtin exception class with the given name.
func ExceptionClass(name string) (*Class, bool) {
	cls, ok := exceptionClasses[name]
	return cls, ok
}

func exceptionClass(name string) *Class {
	if cls, ok := exceptionClasses[name]; ok {
		return cls
	}
	return exceptionClasses["Exception"]
}

// NewBuiltinClass returns a sealed builtin class deriving from object whose
// instances are created by new. It is not registered in any ClassTable.
func NewBuiltinClass(name string, new NewFunc) *Class {
	cls := &Class{
		name:     name,
		qualName: name,
		module:   "builtins",
		index:    -1,
		bases:    []*Class{ObjectClass},
		dict:     NewDict(),
		new:      new,
		builtin:  true,
		sealed:   true,
	}
	cls.mro = []*Class{cls, ObjectClass}
	return cls
}

// SetConstructor sets the function that creates instances of a builtin
// class.
func (c *Class) SetConstructor(new NewFunc) {
	c.new = new
}

func (c *Class) Name() string     { return c.name }
func (c *Class) QualName() string { return c.qualName }
func (c *Class) Module() string   { return c.module }
func (c *Class) Index() int       { return c.index }
func (c *Class) Bases() []*Class  { return slices.Clone(c.bases) }
func (c *Class) MRO() []*Class    { return slices.Clone(c.mro) }
func (c *Class) Dict() *Dict      { return c.dict }
func (c *Class) IsBuiltin() bool  { return c.builtin }

// MRONames returns the names of the classes in the method resolution order.
func (c *Class) MRONames() []string {
	names := make([]string, len(c.mro))
	for i, cls := range c.mro {
		names[i] = cls.name
	}
	return names
}

// IsSubclass reports whether c is other or derives from it.
func (c *Class) IsSubclass(other *Class) bool {
	return slices.Contains(c.mro, other)
}

// Lookup searches the method resolution order for name and returns the
// value and the class that defines it.
func (c *Class) Lookup(name string) (Object, *Class, bool) {
	for _, cls := range c.mro {
		if value, ok := cls.dict.GetStr(name); ok {
			return value, cls, true
		}
	}
	return nil, nil, false
}

// constructor returns the NewFunc of the nearest class in the MRO that
// has one.
func (c *Class) constructor() NewFunc {
	for _, cls := range c.mro {
		if cls.new != nil {
			return cls.new
		}
	}
	return objectNew
}

func (c *Class) Type() *Class { return TypeClass }

func (c *Class) Inspect() string {
	if c.module == "builtins" || c.module == "" {
		return fmt.Sprintf("<class '%s'>", c.qualName)
	}
	return fmt.Sprintf("<class '%s.%s'>", c.module, c.qualName)
}

func (c *Class) Interface() any { return c }

func (c *Class) Equals(other Object) bool { return c == other }

func (c *Class) IsTruthy() bool { return true }

func (c *Class) GetAttr(name string) (Object, bool) {
	switch name {
	case "__name__":
		return NewStr(c.name), true
	case "__qualname__":
		return NewStr(c.qualName), true
	case "__module__":
		return NewStr(c.module), true
	case "__mro__":
		items := make([]Object, len(c.mro))
		for i, cls := range c.mro {
			items[i] = cls
		}
		return NewTuple(items), true
	case "__bases__":
		items := make([]Object, len(c.bases))
		for i, cls := range c.bases {
			items[i] = cls
		}
		return NewTuple(items), true
	case "__dict__":
		return c.dict.Copy(), true
	}
	value, _, ok := c.Lookup(name)
	return value, ok
}

func (c *Class) SetAttr(name string, value Object) error {
	if c.builtin {
		return TypeErrorf("cannot set '%s' attribute of immutable type '%s'", name, c.name)
	}
	c.dict.SetStr(name, value)
	return nil
}

// ClassTable is the per-VM class arena. It starts with the builtin classes
// at the same indexes as the shared builtin table, followed by the classes
// defined by the running program.
type ClassTable struct {
	table   *mro.Table
	classes []*Class
}

// NewClassTable returns a table holding the builtin classes.
func NewClassTable() *ClassTable {
	t := &ClassTable{table: mro.NewTable(), classes: []*Class{ObjectClass}}
	for _, cls := range builtinClasses[1:] {
		idx, err := t.table.Define(cls.name, []int{cls.bases[0].index})
		if err != nil || idx != cls.index {
			panic(fmt.Sprintf("object: builtin class table out of sync at %s", cls.name))
		}
		t.classes = append(t.classes, cls)
	}
	return t
}

// Len returns the number of classes in the table.
func (t *ClassTable) Len() int {
	return len(t.classes)
}

// Get returns the class at index idx.
func (t *ClassTable) Get(idx int) (*Class, bool) {
	if idx < 0 || idx >= len(t.classes) {
		return nil, false
	}
	return t.classes[idx], true
}

// NewClass defines a user class and computes its C3 linearization.
func (t *ClassTable) NewClass(name, qualName, module string, bases []*Class, dict *Dict) (*Class, error) {
	if len(bases) == 0 {
		bases = []*Class{ObjectClass}
	}
	indexes := make([]int, len(bases))
	for i, base := range bases {
		if base.sealed {
			return nil, TypeErrorf("type '%s' is not an acceptable base type", base.name)
		}
		if base.index < 0 || base.index >= len(t.classes) || t.classes[base.index] != base {
			return nil, TypeErrorf("base class '%s' belongs to another interpreter", base.name)
		}
		indexes[i] = base.index
	}
	idx, err := t.table.Define(name, indexes)
	if err != nil {
		return nil, TypeErrorf("%s", err.Error())
	}
	if dict == nil {
		dict = NewDict()
	}
	cls := &Class{
		name:     name,
		qualName: qualName,
		module:   module,
		index:    idx,
		bases:    slices.Clone(bases),
		dict:     dict,
	}
	t.classes = append(t.classes, cls)
	cls.mro = classesAt(t.classes, t.table.MRO(idx))
	return cls, nil
}

func objectNew(ctx context.Context, cls *Class, args []Object, kwargs *Dict) (Object, error) {
	return NewInstance(cls), nil
}

func objectInit(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
	if len(args) == 0 {
		return nil, TypeErrorf("descriptor '__init__' of 'object' object needs an argument")
	}
	if len(args) > 1 || kwargs.Len() > 0 {
		cls := args[0].Type()
		if _, owner, _ := cls.Lookup("__init__"); owner == ObjectClass {
			return nil, TypeErrorf("%s() takes no arguments", cls.name)
		}
		return nil, TypeErrorf("object.__init__() takes exactly one argument (the instance to initialize)")
	}
	return None, nil
}

func exceptionNew(ctx context.Context, cls *Class, args []Object, kwargs *Dict) (Object, error) {
	exc := &exception.Exception{TypeName: cls.name}
	return newExceptionInstance(cls, exc, args), nil
}

func exceptionInit(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
	if len(args) == 0 {
		return nil, TypeErrorf("descriptor '__init__' of 'BaseException' object needs an argument")
	}
	self, ok := args[0].(*Instance)
	if !ok || self.exc == nil {
		return nil, TypeErrorf("descriptor '__init__' requires a 'BaseException' object")
	}
	self.setArgs(slices.Clone(args[1:]))
	return None, nil
}
