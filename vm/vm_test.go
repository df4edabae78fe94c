package vm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/compiler"
	"github.com/deepnoodle-ai/slither/exception"
	"github.com/deepnoodle-ai/slither/importer"
	"github.com/deepnoodle-ai/slither/object"
)

func newVM(t *testing.T, source string, opts ...Option) (*VirtualMachine, *bytes.Buffer) {
	t.Helper()
	code, err := compiler.CompileModuleSource(source, compiler.WithFilename("test.py"))
	require.NoError(t, err)
	var out bytes.Buffer
	machine, err := New(code, append([]Option{WithOutput(&out)}, opts...)...)
	require.NoError(t, err)
	return machine, &out
}

// run executes source and returns what it printed.
func run(t *testing.T, source string, opts ...Option) string {
	t.Helper()
	machine, out := newVM(t, source, opts...)
	require.NoError(t, machine.Run(context.Background()))
	return out.String()
}

// runErr executes source and returns the uncaught exception.
func runErr(t *testing.T, source string, opts ...Option) (*exception.Exception, string) {
	t.Helper()
	machine, out := newVM(t, source, opts...)
	err := machine.Run(context.Background())
	require.Error(t, err)
	var exc *exception.Exception
	require.True(t, errors.As(err, &exc), "expected an exception, got %v", err)
	return exc, out.String()
}

func TestPrograms(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"arithmetic", "print(1 + 2 * 3, 7 // 2, 7 % 3, 2 ** 10, 7 / 2)", "7 3 1 1024 3.5\n"},
		{"strings", "s = 'ab'\nprint(s * 2, s + 'c', len(s), s[1], s[::-1])", "abab abc 2 b ba\n"},
		{"fstring", "x = 3\nprint(f'{x} {x!r} {x:03d} {\"a\"!r}')", "3 3 003 'a'\n"},
		{"chained compare", "x = 5\nprint(1 < x < 10, 1 < x > 10)", "True False\n"},
		{"short circuit", "print(0 or 'a', 1 and 2, None or 0)", "a 2 0\n"},
		{"ternary", "x = 4\nprint('even' if x % 2 == 0 else 'odd')", "even\n"},
		{"walrus", "if (n := 10) > 5:\n    print(n)", "10\n"},
		{"unpack", "a, (b, c) = 1, (2, 3)\nprint(a, b, c)", "1 2 3\n"},
		{"star unpack", "first, *rest, last = range(5)\nprint(first, rest, last)", "0 [1, 2, 3] 4\n"},
		{"while else", "i = 0\nwhile i < 3:\n    i += 1\nelse:\n    print('done', i)", "done 3\n"},
		{"for break", "for i in range(10):\n    if i == 3:\n        break\nprint(i)", "3\n"},
		{"for continue", "total = 0\nfor i in range(5):\n    if i % 2:\n        continue\n    total += i\nprint(total)", "6\n"},
		{"slices", "xs = [0, 1, 2, 3, 4]\nxs[1:3] = ['a']\nprint(xs, xs[-2:])", "[0, 'a', 3, 4] [3, 4]\n"},
		{"del", "d = {'a': 1, 'b': 2}\ndel d['a']\nx = 1\ndel x\nprint(d)", "{'b': 2}\n"},
		{"dict display", "a = {'x': 1}\nb = {**a, 'y': 2}\nprint(b)", "{'x': 1, 'y': 2}\n"},
		{"set display", "print(sorted({3, 1, *[2, 1]}))", "[1, 2, 3]\n"},
		{"assert passes", "assert 1 + 1 == 2, 'math'\nprint('ok')", "ok\n"},
		{"annotated", "x: int = 5\nprint(x)", "5\n"},
		{"is", "a = None\nprint(a is None, a is not None)", "True False\n"},
		{"in", "print(2 in [1, 2], 'z' not in 'abc')", "True True\n"},
		{"augmented list", "xs = [1]\nys = xs\nxs += [2]\nprint(ys)", "[1, 2]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, run(t, tt.source))
		})
	}
}

func TestBigIntegers(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"sum to max", "print(2**62 + 2**62 - 1)", "9223372036854775807\n"},
		{"power", "print(2**64, -2**63 - 1)", "18446744073709551616 -9223372036854775809\n"},
		{"literal", "x = 99999999999999999999\nprint(x + 1, type(x).__name__)", "100000000000000000000 int\n"},
		{"factorial", "n = 1\nfor i in range(1, 26):\n    n *= i\nprint(n)", "15511210043330985984000000\n"},
		{"dict key", "d = {2**70: 'a'}\nprint(d[2**70], 2**70 in {2.0**70})", "a True\n"},
		{"int parse", "print(int('123456789012345678901234567890') // 10**20)", "1234567890\n"},
		{"divmod", "print(divmod(-2**70, 7))", "(-168655945816773043347, 5)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, run(t, tt.source))
		})
	}
}

func TestComprehensions(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"list", "print([x * x for x in range(6) if x % 2 == 0])", "[0, 4, 16]\n"},
		{"nested", "print([(a, b) for a in range(2) for b in 'xy'])", "[(0, 'x'), (0, 'y'), (1, 'x'), (1, 'y')]\n"},
		{"dict", "print({k: len(k) for k in ['a', 'bb']})", "{'a': 1, 'bb': 2}\n"},
		{"set", "print(sorted({x % 3 for x in range(10)}))", "[0, 1, 2]\n"},
		{"generator argument", "print(sum(x for x in range(5)))", "10\n"},
		{"in function", "def f(n):\n    return [i * n for i in range(3)]\nprint(f(2))", "[0, 2, 4]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, run(t, tt.source))
		})
	}
}

func TestFunctionArguments(t *testing.T) {
	source := `
def f(a, b=2, *args, c, d=4, **kw):
    return (a, b, args, c, d, kw)

print(f(1, c=3))
print(f(1, 5, 6, 7, c=3, e=8))
print(f(*[1, 2], **{'c': 0}))
g = lambda x, y=1: x + y
print(g(1), g(1, y=5))
`
	want := "(1, 2, (), 3, 4, {})\n(1, 5, (6, 7), 3, 4, {'e': 8})\n(1, 2, (), 0, 4, {})\n2 6\n"
	require.Equal(t, want, run(t, source))
}

func TestArgumentErrors(t *testing.T) {
	tests := []struct {
		call string
		want string
	}{
		{"f(1, 2, 3)", "f() takes from 1 to 2 positional arguments but 3 were given"},
		{"g(1)", "g() takes 0 positional arguments but 1 was given"},
		{"f()", "f() missing 1 required positional argument: 'a'"},
		{"h()", "h() missing 3 required positional arguments: 'x', 'y', and 'z'"},
		{"f(1, a=2)", "f() got multiple values for argument 'a'"},
		{"f(1, q=2)", "f() got an unexpected keyword argument 'q'"},
		{"k()", "k() missing 1 required keyword-only argument: 'key'"},
	}
	prelude := "def f(a, b=1):\n    pass\ndef g():\n    pass\ndef h(x, y, z):\n    pass\ndef k(*, key):\n    pass\n"
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			exc, _ := runErr(t, prelude+tt.call)
			require.Equal(t, "TypeError", exc.TypeName)
			require.Equal(t, tt.want, exc.Message)
		})
	}
}

func TestClosures(t *testing.T) {
	source := `
def counter():
    count = 0
    def inc(step=1):
        nonlocal count
        count += step
        return count
    return inc

c = counter()
c()
c(5)
print(c())

def adders():
    return [lambda x, n=n: x + n for n in range(3)]
print([a(10) for a in adders()])

x = 'global'
def read():
    return x
def write():
    global x
    x = 'changed'
write()
print(read())
`
	require.Equal(t, "7\n[10, 11, 12]\nchanged\n", run(t, source))
}

func TestNameErrors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		typeName string
		message  string
	}{
		{"undefined", "print(missing)", "NameError", "name 'missing' is not defined"},
		{"unbound local", "def f():\n    print(x)\n    x = 1\nf()", "UnboundLocalError", "cannot access local variable 'x' where it is not associated with a value"},
		{"deleted", "x = 1\ndel x\nx", "NameError", "name 'x' is not defined"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exc, _ := runErr(t, tt.source)
			require.Equal(t, tt.typeName, exc.TypeName)
			require.Equal(t, tt.message, exc.Message)
		})
	}
}

func TestClasses(t *testing.T) {
	source := `
class Point:
    def __init__(self, x, y):
        self.x = x
        self.y = y

    def __repr__(self):
        return f'Point({self.x}, {self.y})'

    def __eq__(self, other):
        return self.x == other.x and self.y == other.y

    def __add__(self, other):
        return Point(self.x + other.x, self.y + other.y)

    @property
    def norm1(self):
        return abs(self.x) + abs(self.y)

    @staticmethod
    def origin():
        return Point(0, 0)

    @classmethod
    def name(cls):
        return cls.__name__

p = Point(1, 2) + Point(3, -4)
print(p, p.norm1, Point.origin(), Point.name())
print(p == Point(4, -2), isinstance(p, Point), Point.__qualname__)
print(Point.__hash__ is None)
`
	require.Equal(t, "Point(4, -2) 6 Point(0, 0) Point\nTrue True Point\nTrue\n", run(t, source))
}

func TestSuperAndMRO(t *testing.T) {
	source := `
class A:
    def who(self):
        return ['A']

class B(A):
    def who(self):
        return ['B'] + super().who()

class C(A):
    def who(self):
        return ['C'] + super().who()

class D(B, C):
    def who(self):
        return ['D'] + super().who()

print(D().who())
print([k.__name__ for k in D.__mro__])

class Base:
    def __init__(self, value):
        self.value = value

class Child(Base):
    def __init__(self, value):
        super().__init__(value * 2)

print(Child(21).value)
print(super(D, D()).who())
`
	want := "['D', 'B', 'C', 'A']\n['D', 'B', 'C', 'A', 'object']\n42\n['B', 'C', 'A']\n"
	require.Equal(t, want, run(t, source))
}

func TestInconsistentMRO(t *testing.T) {
	source := `
class X: pass
class Y: pass
class A(X, Y): pass
class B(Y, X): pass
def make(first, second):
    class C(first, second): pass
    return C
make(A, B)
`
	exc, _ := runErr(t, source)
	require.Equal(t, "TypeError", exc.TypeName)
	require.Contains(t, exc.Message, "consistent method resolution")
}

func TestBasesResolvedAtRuntime(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"parameter shadows class",
			`
class Base: pass
class Derived(Base): pass
class Mixin: pass
def make(Base):
    class X(Base, Derived): pass
    return X
print([k.__name__ for k in make(Mixin).__mro__])
`,
			"['X', 'Mixin', 'Derived', 'Base', 'object']\n",
		},
		{
			"rebound global",
			`
class A: pass
class B(A): pass
class Other: pass
A = Other
class C(A, B): pass
print([k.__name__ for k in C.__mro__])
`,
			"['C', 'Other', 'B', 'A', 'object']\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, run(t, tt.source))
		})
	}
}

func TestSuperErrors(t *testing.T) {
	exc, _ := runErr(t, "def f():\n    return super()\nf()")
	require.Equal(t, "RuntimeError", exc.TypeName)
	require.Equal(t, "super(): __class__ cell not found", exc.Message)
}

func TestExceptionHandling(t *testing.T) {
	source := `
def check(value):
    try:
        if value == 0:
            raise ValueError('zero')
        if value == 1:
            raise KeyError('one')
        result = 10 // (value - 2)
    except ValueError as e:
        print('value', e)
    except (KeyError, ZeroDivisionError) as e:
        print('other', type(e).__name__)
    else:
        print('else', result)
    finally:
        print('finally')

for v in range(4):
    check(v)
try:
    e
except NameError:
    print('cleared')
`
	want := "value zero\nfinally\nother KeyError\nfinally\nother ZeroDivisionError\nfinally\nelse 10\nfinally\ncleared\n"
	require.Equal(t, want, run(t, source))
}

func TestUserExceptions(t *testing.T) {
	source := `
class AppError(Exception):
    def __init__(self, code):
        super().__init__(f'code {code}')
        self.code = code

class NotFound(AppError):
    pass

try:
    raise NotFound(404)
except AppError as e:
    print(type(e).__name__, e.code, e, e.args)

try:
    raise AppError
except AppError:
    print('wrong')
except Exception as e:
    print('bare class', type(e).__name__)
`
	want := "NotFound 404 code 404 ('code 404',)\nbare class TypeError\n"
	require.Equal(t, want, run(t, source))
}

func TestExceptMatchRequiresExceptionClass(t *testing.T) {
	exc, _ := runErr(t, "try:\n    1 / 0\nexcept int:\n    pass")
	require.Equal(t, "TypeError", exc.TypeName)
	require.Equal(t, "catching classes that do not inherit from BaseException is not allowed", exc.Message)
}

func TestRaiseNonException(t *testing.T) {
	exc, _ := runErr(t, "raise 5")
	require.Equal(t, "TypeError", exc.TypeName)
	require.Equal(t, "exceptions must derive from BaseException", exc.Message)

	exc, _ = runErr(t, "raise")
	require.Equal(t, "RuntimeError", exc.TypeName)
	require.Equal(t, "No active exception to reraise", exc.Message)
}

func TestTraceback(t *testing.T) {
	source := `def inner():
    raise ValueError('bad')

def outer():
    inner()

outer()
`
	exc, _ := runErr(t, source)
	require.Equal(t, "ValueError", exc.TypeName)
	require.Len(t, exc.Traceback, 3)
	require.Equal(t, []string{"<module>", "outer", "inner"}, []string{
		exc.Traceback[0].Function, exc.Traceback[1].Function, exc.Traceback[2].Function,
	})
	require.Equal(t, []int{7, 5, 2}, []int{
		exc.Traceback[0].Line, exc.Traceback[1].Line, exc.Traceback[2].Line,
	})
	require.Equal(t, "raise ValueError('bad')", exc.Traceback[2].Source)
	require.Equal(t, "test.py", exc.Traceback[0].File)

	formatted := exc.Format()
	require.Contains(t, formatted, "Traceback (most recent call last):\n")
	require.Contains(t, formatted, "  File \"test.py\", line 2, in inner\n    raise ValueError('bad')\n")
	require.True(t, strings.HasSuffix(formatted, "ValueError: bad\n"))
}

func TestReraiseKeepsTraceback(t *testing.T) {
	source := `def f():
    raise KeyError('k')

try:
    f()
finally:
    pass
`
	exc, _ := runErr(t, source)
	require.Len(t, exc.Traceback, 2)
	require.Equal(t, "f", exc.Traceback[1].Function)

	source = `try:
    {}['missing']
except KeyError:
    raise
`
	exc, _ = runErr(t, source)
	require.Equal(t, "KeyError", exc.TypeName)
	require.Len(t, exc.Traceback, 1)
	require.Equal(t, 2, exc.Traceback[0].Line)
}

func TestExceptionChaining(t *testing.T) {
	t.Run("explicit cause", func(t *testing.T) {
		exc, _ := runErr(t, "try:\n    1 / 0\nexcept ZeroDivisionError as e:\n    raise ValueError('wrapped') from e")
		require.Equal(t, "ValueError", exc.TypeName)
		require.NotNil(t, exc.Cause)
		require.Equal(t, "ZeroDivisionError", exc.Cause.TypeName)
		require.True(t, exc.SuppressContext)
		require.Contains(t, exc.Format(), "The above exception was the direct cause of the following exception:")
	})
	t.Run("implicit context", func(t *testing.T) {
		exc, _ := runErr(t, "try:\n    [][1]\nexcept IndexError:\n    undefined_name")
		require.Equal(t, "NameError", exc.TypeName)
		require.Nil(t, exc.Cause)
		require.NotNil(t, exc.Context)
		require.Equal(t, "IndexError", exc.Context.TypeName)
		require.Contains(t, exc.Format(), "During handling of the above exception, another exception occurred:")
	})
	t.Run("from None", func(t *testing.T) {
		exc, _ := runErr(t, "try:\n    [][1]\nexcept IndexError:\n    raise KeyError('x') from None")
		require.True(t, exc.SuppressContext)
		require.Nil(t, exc.Cause)
		require.NotContains(t, exc.Format(), "IndexError")
	})
	t.Run("finally replaces", func(t *testing.T) {
		exc, _ := runErr(t, "try:\n    raise ValueError('a')\nfinally:\n    raise TypeError('b')")
		require.Equal(t, "TypeError", exc.TypeName)
		require.NotNil(t, exc.Context)
		require.Equal(t, "ValueError", exc.Context.TypeName)
	})
	t.Run("attributes", func(t *testing.T) {
		source := `
try:
    try:
        1 / 0
    except ZeroDivisionError as e:
        raise ValueError('v') from e
except ValueError as v:
    print(type(v.__cause__).__name__, type(v.__context__).__name__, v.__suppress_context__)
`
		require.Equal(t, "ZeroDivisionError ZeroDivisionError True\n", run(t, source))
	})
	t.Run("active exception restored", func(t *testing.T) {
		source := `
try:
    raise ValueError('outer')
except ValueError:
    try:
        raise KeyError('inner')
    except KeyError:
        pass
    try:
        raise
    except ValueError as e:
        print('reraised', e)
`
		require.Equal(t, "reraised outer\n", run(t, source))
	})
}

func TestNotes(t *testing.T) {
	exc, _ := runErr(t, "e = ValueError('x')\ne.add_note('first')\ne.add_note('second')\nraise e")
	require.Equal(t, []string{"first", "second"}, exc.Notes)
	require.Contains(t, exc.Format(), "ValueError: x\nfirst\nsecond")
}

func TestFinallyRunsExactlyOnce(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"normal", "try:\n    print('body')\nfinally:\n    print('fin')", "body\nfin\n"},
		{"return", "def f():\n    try:\n        return 'r'\n    finally:\n        print('fin')\nprint(f())", "fin\nr\n"},
		{"break", "for i in range(3):\n    try:\n        break\n    finally:\n        print('fin', i)", "fin 0\n"},
		{"continue", "for i in range(2):\n    try:\n        continue\n    finally:\n        print('fin', i)", "fin 0\nfin 1\n"},
		{"exception caught outside", "try:\n    try:\n        raise ValueError\n    finally:\n        print('fin')\nexcept ValueError:\n    print('caught')", "fin\ncaught\n"},
		{"return from handler", "def f():\n    try:\n        raise KeyError\n    except KeyError:\n        return 'h'\n    finally:\n        print('fin')\nprint(f())", "fin\nh\n"},
		{"nested order", "def f():\n    try:\n        try:\n            return 1\n        finally:\n            print('inner')\n    finally:\n        print('outer')\nf()", "inner\nouter\n"},
		{"return in finally swallows", "def f():\n    try:\n        raise ValueError\n    finally:\n        return 'swallowed'\nprint(f())", "swallowed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, run(t, tt.source))
		})
	}
}

func TestWith(t *testing.T) {
	source := `
class Manager:
    def __init__(self, name, suppress=False):
        self.name = name
        self.suppress = suppress

    def __enter__(self):
        print('enter', self.name)
        return self.name.upper()

    def __exit__(self, typ, value, tb):
        print('exit', self.name, typ.__name__ if typ is not None else None)
        return self.suppress

with Manager('a') as value, Manager('b'):
    print('body', value)

with Manager('s', suppress=True):
    raise ValueError('hidden')
print('after suppress')

def early():
    with Manager('r'):
        return 'returned'
print(early())

try:
    with Manager('p'):
        raise KeyError('k')
except KeyError:
    print('propagated')
`
	want := "enter a\nenter b\nbody A\nexit b None\nexit a None\n" +
		"enter s\nexit s ValueError\nafter suppress\n" +
		"enter r\nexit r None\nreturned\n" +
		"enter p\nexit p KeyError\npropagated\n"
	require.Equal(t, want, run(t, source))
}

func TestWithRequiresProtocol(t *testing.T) {
	exc, _ := runErr(t, "with 5:\n    pass")
	require.Equal(t, "TypeError", exc.TypeName)
	require.Equal(t, "'int' object does not support the context manager protocol", exc.Message)
}

func TestUnpackErrors(t *testing.T) {
	tests := []struct {
		source  string
		message string
	}{
		{"a, b = [1, 2, 3]", "too many values to unpack (expected 2)"},
		{"a, b, c = (1,)", "not enough values to unpack (expected 3, got 1)"},
		{"a, *b, c = [1]", "not enough values to unpack (expected at least 2, got 1)"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			exc, _ := runErr(t, tt.source)
			require.Equal(t, "ValueError", exc.TypeName)
			require.Equal(t, tt.message, exc.Message)
		})
	}
	exc, _ := runErr(t, "a, b = 5")
	require.Equal(t, "cannot unpack non-iterable int object", exc.Message)
}

func TestImports(t *testing.T) {
	imp := importer.NewMemory(map[string]string{
		"pkg":         "NAME = 'pkg'\n",
		"pkg.mod":     "VALUE = 42\ndef double(x):\n    return x * 2\n",
		"pkg.sibling": "from .mod import VALUE\nfrom . import mod\nTOTAL = VALUE + mod.double(1)\n",
		"stars":       "__all__ = ['public']\npublic = 1\nhidden = 2\n",
	})
	source := `
import pkg.mod
import pkg.mod as m
from pkg.sibling import TOTAL
from pkg import mod as direct
from stars import *
print(pkg.NAME, pkg.mod.VALUE, m.double(4), TOTAL, direct is m, public)
try:
    hidden
except NameError:
    print('not exported')
`
	require.Equal(t, "pkg 42 8 44 True 1\nnot exported\n", run(t, source, WithImporter(imp)))
}

func TestImportErrors(t *testing.T) {
	imp := importer.NewMemory(map[string]string{"mod": "x = 1\n", "broken": "raise RuntimeError('boom')\n"})
	tests := []struct {
		source   string
		typeName string
		message  string
	}{
		{"import missing", "ModuleNotFoundError", "No module named 'missing'"},
		{"from mod import y", "ImportError", "cannot import name 'y' from 'mod' (<mod>)"},
		{"from . import mod", "ImportError", "attempted relative import with no known parent package"},
		{"import broken", "RuntimeError", "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			exc, _ := runErr(t, tt.source, WithImporter(imp))
			require.Equal(t, tt.typeName, exc.TypeName)
			require.Equal(t, tt.message, exc.Message)
		})
	}

	exc, _ := runErr(t, "import os")
	require.Equal(t, "ModuleNotFoundError", exc.TypeName)
}

func TestHostModule(t *testing.T) {
	mathModule := object.NewModule("hostmath", "<host>")
	mathModule.SetGlobal("answer", object.NewInt(42))
	require.Equal(t, "42\n", run(t, "from hostmath import answer\nprint(answer)", WithModule(mathModule)))
}

func TestGlobalsAndCall(t *testing.T) {
	machine, out := newVM(t, "def add(a, b):\n    return a + b + offset\nprint(greeting)",
		WithGlobals(map[string]any{"greeting": "hi", "offset": 100}))
	ctx := context.Background()
	require.NoError(t, machine.Run(ctx))
	require.Equal(t, "hi\n", out.String())
	require.NotEmpty(t, machine.RunID())
	require.Contains(t, machine.GlobalNames(), "add")

	add, err := machine.Get("add")
	require.NoError(t, err)
	result, err := machine.Call(ctx, add, object.NewInt(1), object.NewInt(2))
	require.NoError(t, err)
	require.Equal(t, int64(103), result.(*object.Int).Value())

	_, err = machine.Get("nope")
	require.ErrorIs(t, err, ErrGlobalNotFound)
}

func TestRunCodeExpression(t *testing.T) {
	machine, _ := newVM(t, "x = 20")
	ctx := context.Background()
	require.NoError(t, machine.Run(ctx))
	expr, err := compiler.CompileExpressionSource("x * 2 + 2")
	require.NoError(t, err)
	result, err := machine.RunCode(ctx, expr)
	require.NoError(t, err)
	require.Equal(t, "42", result.Inspect())
}

func TestRecursionLimit(t *testing.T) {
	exc, _ := runErr(t, "def f(n):\n    return f(n + 1)\nf(0)", WithMaxFrameDepth(50))
	require.Equal(t, "RecursionError", exc.TypeName)
	require.Equal(t, "maximum recursion depth exceeded", exc.Message)

	out := run(t, "def f(n):\n    return f(n + 1)\ntry:\n    f(0)\nexcept RecursionError:\n    print('caught')", WithMaxFrameDepth(50))
	require.Equal(t, "caught\n", out)
}

func TestContextCancellation(t *testing.T) {
	machine, _ := newVM(t, "while True:\n    try:\n        pass\n    except BaseException:\n        pass", WithContextCheckInterval(10))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := machine.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAlreadyRunning(t *testing.T) {
	machine, _ := newVM(t, "x = 1")
	require.NoError(t, machine.start())
	defer machine.stop(new(error))
	require.Error(t, machine.Run(context.Background()))
}
