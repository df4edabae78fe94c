package exception

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndError(t *testing.T) {
	e := New("ValueError", "bad value")
	require.Equal(t, "ValueError: bad value", e.Error())
	require.Equal(t, "KeyError", New("KeyError", "").Error())
	require.Equal(t, "TypeError: 3 args", Newf("TypeError", "%d args", 3).Error())
}

func TestWithCauseSuppressesContext(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *Exception)
	}{
		{"cause only", func(e *Exception) {}},
		{"context first", func(e *Exception) { e.WithContext(New("KeyError", "k")) }},
		{"context after", func(e *Exception) {}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New("RuntimeError", "outer")
			tt.setup(e)
			e.WithCause(New("ValueError", "inner"))
			require.True(t, e.SuppressContext)
			require.NotNil(t, e.Cause)
		})
	}
}

func TestContextIsNeverSelf(t *testing.T) {
	e := New("ValueError", "x")
	e.WithContext(e)
	require.Nil(t, e.Context)
}

func TestSuppressContextOnly(t *testing.T) {
	e := New("RuntimeError", "outer").WithContext(New("KeyError", "k"))
	e.SuppressContextOnly()
	require.True(t, e.SuppressContext)
	require.Nil(t, e.Cause)
	out := e.Format()
	require.NotContains(t, out, "another exception occurred")
	require.NotContains(t, out, "KeyError")
	require.Equal(t, "RuntimeError: outer\n", out)
}

func TestFormatImplicitContext(t *testing.T) {
	ctx := New("KeyError", "'a'")
	ctx.Push(Frame{Function: "<module>", File: "main.py", Line: 2, Source: "d['a']"})
	e := New("ValueError", "converted").WithContext(ctx)
	e.Push(Frame{Function: "<module>", File: "main.py", Line: 4})

	expected := "Traceback (most recent call last):\n" +
		"  File \"main.py\", line 2, in <module>\n" +
		"    d['a']\n" +
		"KeyError: 'a'\n" +
		"\nDuring handling of the above exception, another exception occurred:\n\n" +
		"Traceback (most recent call last):\n" +
		"  File \"main.py\", line 4, in <module>\n" +
		"ValueError: converted\n"
	require.Equal(t, expected, e.Format())
}

func TestFormatCauseRoundTrip(t *testing.T) {
	cause := New("ConnectionError", "refused")
	e := New("RuntimeError", "fetch failed").WithCause(cause)
	out := e.Format()
	require.Contains(t, out, "ConnectionError")
	require.Contains(t, out, "refused")
	require.Contains(t, out, "RuntimeError")
	require.Contains(t, out, "fetch failed")
	require.Contains(t, out, "direct cause")
	require.NotContains(t, out, "another exception occurred")
	require.Less(t, strings.Index(out, "refused"), strings.Index(out, "fetch failed"))
}

func TestFormatCauseWinsOverContext(t *testing.T) {
	e := New("RuntimeError", "outer").WithContext(New("KeyError", "ctx"))
	e.WithCause(New("ValueError", "cause"))
	out := e.Format()
	require.Contains(t, out, "ValueError: cause")
	require.NotContains(t, out, "KeyError")
}

func TestFormatNotes(t *testing.T) {
	e := New("ValueError", "bad")
	e.AddNote("first note")
	e.AddNote("second note")
	require.Equal(t, "ValueError: bad\nfirst note\nsecond note\n", e.Format())
}

func TestFormatCycle(t *testing.T) {
	a := New("ValueError", "a")
	b := New("TypeError", "b").WithContext(a)
	a.WithContext(b)
	out := b.Format()
	require.Equal(t, 1, strings.Count(out, "TypeError: b"))
	require.Equal(t, 1, strings.Count(out, "ValueError: a"))
}

func TestPushAndPushFront(t *testing.T) {
	e := New("ValueError", "x")
	e.Push(Frame{Function: "inner", Line: 3})
	e.PushFront(Frame{Function: "outer", Line: 7})
	e.PushFront(Frame{Function: "<module>", Line: 9})
	e.Push(Frame{Function: "helper", Line: 1})
	var names []string
	for _, f := range e.Traceback {
		names = append(names, f.Function)
	}
	require.Equal(t, []string{"<module>", "outer", "inner", "helper"}, names)
}

func TestUnwrap(t *testing.T) {
	cause := New("OSError", "disk")
	e := New("RuntimeError", "failed").WithCause(cause)
	var target *Exception
	require.True(t, errors.As(e.Unwrap(), &target))
	require.Equal(t, cause, target)
	require.Nil(t, cause.Unwrap())
}

func TestIsInstance(t *testing.T) {
	tests := []struct {
		typeName string
		check    string
		want     bool
	}{
		{"IndexError", "LookupError", true},
		{"KeyError", "LookupError", true},
		{"KeyError", "Exception", true},
		{"KeyError", "BaseException", true},
		{"ZeroDivisionError", "ArithmeticError", true},
		{"ModuleNotFoundError", "ImportError", true},
		{"BrokenPipeError", "ConnectionError", true},
		{"BrokenPipeError", "OSError", true},
		{"TabError", "SyntaxError", true},
		{"UnicodeDecodeError", "ValueError", true},
		{"SystemExit", "Exception", false},
		{"KeyboardInterrupt", "Exception", false},
		{"GeneratorExit", "BaseException", true},
		{"ValueError", "LookupError", false},
		{"Unknown", "Exception", false},
	}
	for _, tt := range tests {
		t.Run(tt.typeName+"/"+tt.check, func(t *testing.T) {
			require.Equal(t, tt.want, New(tt.typeName, "").IsInstance(tt.check))
		})
	}
}

func TestIsInstanceUserDefined(t *testing.T) {
	e := New("MyError", "")
	e.Ancestors = []string{"MyError", "ValueError", "Exception", "BaseException", "object"}
	require.True(t, e.IsInstance("MyError"))
	require.True(t, e.IsInstance("ValueError"))
	require.False(t, e.IsInstance("KeyError"))
}

func TestHierarchy(t *testing.T) {
	h := Hierarchy()
	h["ValueError"] = "changed"
	parent, ok := Parent("ValueError")
	require.True(t, ok)
	require.Equal(t, "Exception", parent)
	_, ok = Parent("Nope")
	require.False(t, ok)
	require.True(t, IsBuiltin("UserWarning"))
	require.True(t, IsSubtype("UserWarning", "Warning"))
	require.Equal(t, []string{"TabError", "IndentationError", "SyntaxError", "Exception", "BaseException"}, Ancestors("TabError"))

	for name := range Hierarchy() {
		require.True(t, IsSubtype(name, "BaseException"), name)
	}

	names := Names()
	require.Equal(t, "BaseException", names[0])
	pos := map[string]int{}
	for i, n := range names {
		pos[n] = i
	}
	for name, parent := range Hierarchy() {
		if parent != "" {
			require.Less(t, pos[parent], pos[name], name)
		}
	}
}
