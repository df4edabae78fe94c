package mro

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/bytecode"
)

func define(t *testing.T, table *Table, name string, bases ...string) int {
	t.Helper()
	idxs := make([]int, len(bases))
	for i, b := range bases {
		idx, ok := table.Lookup(b)
		require.True(t, ok, "unknown base %s", b)
		idxs[i] = idx
	}
	idx, err := table.Define(name, idxs)
	require.NoError(t, err)
	return idx
}

func TestRootClass(t *testing.T) {
	table := NewTable()
	require.Equal(t, 1, table.Len())
	require.Equal(t, "object", table.Get(Object).Name)
	require.Equal(t, []string{"object"}, table.MRONames(Object))
	idx, ok := table.Lookup("object")
	require.True(t, ok)
	require.Equal(t, Object, idx)
}

func TestDiamond(t *testing.T) {
	table := NewTable()
	define(t, table, "A")
	define(t, table, "B", "A")
	define(t, table, "C", "A")
	d := define(t, table, "D", "B", "C")
	require.Equal(t, []string{"D", "B", "C", "A", "object"}, table.MRONames(d))

	seen := map[int]int{}
	for _, c := range table.MRO(d) {
		seen[c]++
	}
	for c, n := range seen {
		require.Equal(t, 1, n, "class %d appears %d times", c, n)
	}
}

func TestLinearChain(t *testing.T) {
	for _, depth := range []int{1, 2, 5, 20} {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			table := NewTable()
			prev := define(t, table, "C0")
			for i := 1; i < depth; i++ {
				idx, err := table.Define(fmt.Sprintf("C%d", i), []int{prev})
				require.NoError(t, err)
				prev = idx
			}
			order := table.MRO(prev)
			require.Len(t, order, depth+1)
			for i := 0; i < depth; i++ {
				require.Equal(t, fmt.Sprintf("C%d", depth-1-i), table.Get(order[i]).Name)
			}
			require.Equal(t, Object, order[len(order)-1])
		})
	}
}

func TestComplexHierarchy(t *testing.T) {
	// The classic example from the C3 paper.
	table := NewTable()
	for _, name := range []string{"O1", "O2", "O3", "O4", "O5"} {
		define(t, table, name)
	}
	define(t, table, "K1", "O1", "O2", "O3")
	define(t, table, "K2", "O4", "O2", "O5")
	define(t, table, "K3", "O4", "O1")
	z := define(t, table, "Z", "K1", "K2", "K3")
	require.Equal(t,
		[]string{"Z", "K1", "K2", "K3", "O4", "O1", "O2", "O3", "O5", "object"},
		table.MRONames(z))
}

func TestInconsistentMRO(t *testing.T) {
	table := NewTable()
	define(t, table, "A")
	define(t, table, "B", "A")
	a, _ := table.Lookup("A")
	b, _ := table.Lookup("B")
	_, err := table.Define("C", []int{a, b})
	require.Error(t, err)
	var mroErr *Error
	require.True(t, errors.As(err, &mroErr))
	require.Equal(t, "C", mroErr.Class)
	require.Equal(t,
		"Cannot create a consistent method resolution order (MRO) for bases A, B",
		err.Error())
	// Nothing was added on failure
	require.Equal(t, 3, table.Len())
}

func TestDefineErrors(t *testing.T) {
	table := NewTable()
	a := define(t, table, "A")
	_, err := table.Define("B", []int{a, a})
	require.EqualError(t, err, "duplicate base class A")
	_, err = table.Define("B", []int{42})
	require.EqualError(t, err, "invalid base class index 42")
	_, err = table.Define("B", []int{-1})
	require.Error(t, err)
}

func TestExternal(t *testing.T) {
	table := NewTable()
	ext := table.DefineExternal("Exception")
	require.Equal(t, ext, table.DefineExternal("Exception"))
	require.Equal(t, Object, table.DefineExternal("object"))
	require.True(t, table.Get(ext).External)
	require.Equal(t, []string{"Exception", "object"}, table.MRONames(ext))

	mine := define(t, table, "MyError", "Exception")
	require.Equal(t, []string{"MyError", "Exception", "object"}, table.MRONames(mine))
	require.True(t, table.IsSubclass(mine, ext))
	require.False(t, table.IsSubclass(ext, mine))
}

func TestResolve(t *testing.T) {
	table := NewTable()
	a := define(t, table, "A")
	b := define(t, table, "B", "A")
	c := define(t, table, "C", "A")
	d := define(t, table, "D", "B", "C")
	code := bytecode.NewCode(bytecode.CodeParams{Name: "m"})
	table.AddMethod(a, "hello", code)
	table.AddMethod(c, "hello", code)
	table.AddMethod(b, "other", code)

	owner, ok := table.Resolve(d, "hello")
	require.True(t, ok)
	require.Equal(t, c, owner)
	owner, ok = table.Resolve(d, "other")
	require.True(t, ok)
	require.Equal(t, b, owner)
	_, ok = table.Resolve(d, "missing")
	require.False(t, ok)
	_, ok = table.Resolve(99, "hello")
	require.False(t, ok)
}

func TestMROCopies(t *testing.T) {
	table := NewTable()
	a := define(t, table, "A")
	order := table.MRO(a)
	order[0] = 99
	require.Equal(t, []int{a, Object}, table.MRO(a))
	require.Nil(t, table.MRO(99))
	require.Nil(t, table.MRONames(-1))
	require.Nil(t, table.Get(99))
}

func TestLinearize(t *testing.T) {
	tests := []struct {
		name  string
		heads [][]int
		bases []int
		want  []int
		ok    bool
	}{
		{"empty", nil, nil, nil, true},
		{"single", [][]int{{1, 0}}, []int{1}, []int{1, 0}, true},
		{"diamond", [][]int{{1, 3, 0}, {2, 3, 0}}, []int{1, 2}, []int{1, 2, 3, 0}, true},
		{"conflict", [][]int{{1, 2}, {2, 1}}, []int{1, 2}, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var heads [][]int
			for _, h := range tt.heads {
				heads = append(heads, append([]int(nil), h...))
			}
			got, ok := Linearize(heads, tt.bases)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.heads, heads)
		})
	}
}
