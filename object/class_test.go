package object

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinClassHierarchy(t *testing.T) {
	require.Equal(t, []string{"bool", "int", "object"}, BoolClass.MRONames())
	require.True(t, BoolClass.IsSubclass(IntClass))

	keyError, ok := ExceptionClass("KeyError")
	require.True(t, ok)
	require.Equal(t, []string{"KeyError", "LookupError", "Exception", "BaseException", "object"}, keyError.MRONames())
	require.Equal(t, "<class 'KeyError'>", keyError.Inspect())
}

func TestClassTableDiamond(t *testing.T) {
	table := NewClassTable()
	require.Equal(t, len(BuiltinClasses()), table.Len())

	a, err := table.NewClass("A", "A", "__main__", nil, NewDict())
	require.NoError(t, err)
	b, err := table.NewClass("B", "B", "__main__", []*Class{a}, NewDict())
	require.NoError(t, err)
	c, err := table.NewClass("C", "C", "__main__", []*Class{a}, NewDict())
	require.NoError(t, err)
	d, err := table.NewClass("D", "D", "__main__", []*Class{b, c}, NewDict())
	require.NoError(t, err)

	require.Equal(t, []string{"D", "B", "C", "A", "object"}, d.MRONames())
	require.Equal(t, "<class '__main__.D'>", d.Inspect())
	got, ok := table.Get(d.Index())
	require.True(t, ok)
	require.Same(t, d, got)

	_, err = table.NewClass("E", "E", "__main__", []*Class{a, b}, NewDict())
	exc := AsException(err)
	require.Equal(t, "TypeError", exc.TypeName)
	require.Equal(t, "Cannot create a consistent method resolution order (MRO) for bases A, B", exc.Message)
}

func TestClassTableRejectsSealedBase(t *testing.T) {
	table := NewClassTable()
	_, err := table.NewClass("MyInt", "MyInt", "__main__", []*Class{IntClass}, NewDict())
	require.Equal(t, "type 'int' is not an acceptable base type", AsException(err).Message)

	other := NewClassTable()
	foreign, err := other.NewClass("X", "X", "__main__", nil, NewDict())
	require.NoError(t, err)
	extra, err := other.NewClass("Y", "Y", "__main__", nil, NewDict())
	require.NoError(t, err)
	_, err = table.NewClass("Z", "Z", "__main__", []*Class{extra}, NewDict())
	require.Error(t, err)
	require.NotNil(t, foreign)
}

func TestUserExceptionClass(t *testing.T) {
	ctx := context.Background()
	table := NewClassTable()
	valueError, _ := ExceptionClass("ValueError")
	custom, err := table.NewClass("ConfigError", "ConfigError", "__main__", []*Class{valueError}, NewDict())
	require.NoError(t, err)

	obj, err := Construct(ctx, custom, []Object{NewStr("bad key")}, nil)
	require.NoError(t, err)
	inst := obj.(*Instance)
	exc := inst.Exception()
	require.NotNil(t, exc)
	require.Equal(t, "ConfigError", exc.TypeName)
	require.Equal(t, "bad key", exc.Message)
	require.True(t, exc.IsInstance("ValueError"))
	require.Equal(t, "ConfigError('bad key')", inst.Inspect())

	s, err := ToStr(ctx, inst)
	require.NoError(t, err)
	require.Equal(t, "bad key", s)
}

func TestObjectInitArguments(t *testing.T) {
	ctx := context.Background()
	table := NewClassTable()
	point, err := table.NewClass("Point", "Point", "__main__", nil, NewDict())
	require.NoError(t, err)
	_, err = Construct(ctx, point, []Object{NewInt(1)}, nil)
	require.Equal(t, "Point() takes no arguments", AsException(err).Message)
}

func TestHashing(t *testing.T) {
	one, err := Hash(NewInt(1))
	require.NoError(t, err)
	oneFloat, err := Hash(NewFloat(1))
	require.NoError(t, err)
	trueKey, err := Hash(True)
	require.NoError(t, err)
	require.Equal(t, one, oneFloat)
	require.Equal(t, one, trueKey)

	_, err = Hash(NewList(nil))
	require.Equal(t, "unhashable type: 'list'", AsException(err).Message)

	_, err = Hash(NewTuple([]Object{NewInt(1), NewList(nil)}))
	require.Error(t, err)

	table := NewClassTable()
	dict := NewDict()
	dict.SetStr("__hash__", None)
	cls, err := table.NewClass("Unhashable", "Unhashable", "__main__", nil, dict)
	require.NoError(t, err)
	_, err = Hash(NewInstance(cls))
	require.Equal(t, "unhashable type: 'Unhashable'", AsException(err).Message)
}

func TestDictOrderAndEquality(t *testing.T) {
	ctx := context.Background()
	d := NewDict()
	require.NoError(t, d.Set(NewStr("b"), NewInt(1)))
	require.NoError(t, d.Set(NewStr("a"), NewInt(2)))
	require.NoError(t, d.Set(NewStr("b"), NewInt(3)))
	require.Equal(t, "{'b': 3, 'a': 2}", d.Inspect())

	found, err := d.Delete(NewStr("b"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []string{"a"}, d.StrKeys())

	other := NewDict()
	require.NoError(t, other.Set(NewStr("a"), NewFloat(2)))
	eq, err := Equal(ctx, d, other)
	require.NoError(t, err)
	require.True(t, eq)
}
