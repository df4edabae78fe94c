package parser

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) *ast.Module {
	t.Helper()
	module, err := Parse(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, module)
	return module
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"a - b - c", "((a - b) - c)"},
		{"a ** b ** c", "(a ** (b ** c))"},
		{"-2 ** 2", "(-(2 ** 2))"},
		{"2 ** -1", "(2 ** -1)"},
		{"-x", "(-x)"},
		{"~x + 1", "((~x) + 1)"},
		{"a // b % c @ d", "(((a // b) % c) @ d)"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"a << 1 + b", "(a << (1 + b))"},
		{"not a == b", "(not (a == b))"},
		{"not a and b", "((not a) and b)"},
		{"a or b and c", "(a or (b and c))"},
		{"a or b or c", "(a or b or c)"},
		{"a < b <= c", "(a < b <= c)"},
		{"a not in b", "(a not in b)"},
		{"a is not None", "(a is not None)"},
		{"a is b", "(a is b)"},
		{"x in y and y in z", "((x in y) and (y in z))"},
		{"a if b else c", "(a if b else c)"},
		{"a if b else c if d else e", "(a if b else (c if d else e))"},
		{"f(x, *y, k=1, **z)", "f(x, *y, k=1, **z)"},
		{"f()()", "f()()"},
		{"obj.attr.method(1)", "obj.attr.method(1)"},
		{"x[1]", "x[1]"},
		{"x[1:2]", "x[1:2]"},
		{"x[::2]", "x[::2]"},
		{"x[:-1]", "x[:-1]"},
		{"x[1:2, 3]", "x[(1:2, 3)]"},
		{"[]", "[]"},
		{"[1, 2,]", "[1, 2]"},
		{"[*a, b]", "[*a, b]"},
		{"()", "()"},
		{"(1,)", "(1,)"},
		{"(1, 2)", "(1, 2)"},
		{"{}", "{}"},
		{"{1, 2}", "{1, 2}"},
		{"{'a': 1, **rest}", `{"a": 1, **rest}`},
		{"[x * 2 for x in xs if x]", "[(x * 2) for x in xs if x]"},
		{"[x for x in a if x if x > 1]", "[x for x in a if x if (x > 1)]"},
		{"[(x, y) for x in a for y in b]", "[(x, y) for x in a for y in b]"},
		{"{k: v for k, v in d}", "{k: v for (k, v) in d}"},
		{"{x for x in s}", "{x for x in s}"},
		{"(x for x in s)", "(x for x in s)"},
		{"sum(x for x in s)", "sum((x for x in s))"},
		{"[a if c else b for a in xs]", "[(a if c else b) for a in xs]"},
		{"lambda: 0", "(lambda: 0)"},
		{"lambda x, y=1: x + y", "(lambda x, y=1: (x + y))"},
		{"lambda *a, **k: a", "(lambda *a, **k: a)"},
		{"(y := 3)", "(y := 3)"},
		{"None", "None"},
		{"True", "True"},
		{"...", "..."},
		{"1.5e3", "1500"},
		{"0x_ff", "255"},
		{"0o17", "15"},
		{"0b101", "5"},
		{"1_000", "1000"},
		{"-9223372036854775808", "-9223372036854775808"},
		{`"a" 'b'`, `"ab"`},
		{`b"x" b"y"`, `b"xy"`},
		{`f"a{b!r:>{w}}"`, `f"a{b!r:>{w}}"`},
		{`f"{{x}}"`, `f"{{x}}"`},
		{`"s" f"{x}"`, `f"s{x}"`},
		{`f"{a['k']}"`, `f"{a["k"]}"`},
		{`f"{x != y}"`, `f"{(x != y)}"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := ParseExpression(context.Background(), tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.expected, expr.String())
		})
	}
}

func TestStatements(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = 1", "x = 1"},
		{"a = b = c", "a = b = c"},
		{"a, b = b, a", "(a, b) = (b, a)"},
		{"first, *rest = items", "(first, *rest) = items"},
		{"[a, b] = x", "[a, b] = x"},
		{"obj.x = 1", "obj.x = 1"},
		{"d['k'] = v", `d["k"] = v`},
		{"x += 1", "x += 1"},
		{"x //= 2", "x //= 2"},
		{"x **= 2", "x **= 2"},
		{"x: int = 5", "x: int = 5"},
		{"x: int", "x: int"},
		{"pass", "pass"},
		{"del a, b[0]", "del a, b[0]"},
		{"global a, b", "global a, b"},
		{"assert x, 'msg'", `assert x, "msg"`},
		{"raise", "raise"},
		{"raise ValueError('x') from err", `raise ValueError("x") from err`},
		{"raise E from None", "raise E from None"},
		{"return", "return"},
		{"import a.b as c, d", "import a.b as c, d"},
		{"from ..pkg import (x, y as z,)", "from ..pkg import x, y as z"},
		{"from . import *", "from . import *"},
		{"from m import x", "from m import x"},
		{"f(x)", "f(x)"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			module := parse(t, tt.input)
			require.Len(t, module.Body, 1)
			require.Equal(t, tt.expected, module.Body[0].String())
		})
	}
}

func TestCompoundStatements(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"if elif else",
			"if x:\n    y = 1\nelif z:\n    pass\nelse:\n    y = 2\n",
			"if x:\n    y = 1\nelse:\n    if z:\n        pass\n    else:\n        y = 2",
		},
		{
			"while else",
			"while n > 0:\n    n -= 1\nelse:\n    done()\n",
			"while (n > 0):\n    n -= 1\nelse:\n    done()",
		},
		{
			"for",
			"for i, x in enumerate(xs):\n    print(i, x)\n",
			"for (i, x) in enumerate(xs):\n    print(i, x)",
		},
		{
			"single line body",
			"if x: y = 1; z = 2\n",
			"if x:\n    y = 1\n    z = 2",
		},
		{
			"try",
			"try:\n    f()\nexcept (A, B) as e:\n    g(e)\nexcept:\n    raise\nelse:\n    h()\nfinally:\n    done()\n",
			"try:\n    f()\nexcept (A, B) as e:\n    g(e)\nexcept:\n    raise\nelse:\n    h()\nfinally:\n    done()",
		},
		{
			"with",
			"with open(p) as f, lock:\n    f.read()\n",
			"with open(p) as f, lock:\n    f.read()",
		},
		{
			"def",
			"@dec\ndef f(a, b=1, *args, k, m=2, **kw) -> int:\n    return a\n",
			"@dec\ndef f(a, b=1, *args, k, m=2, **kw) -> int:\n    return a",
		},
		{
			"def keyword only",
			"def f(*, k): pass\n",
			"def f(*, k):\n    pass",
		},
		{
			"class",
			"class A(B, metaclass=M):\n    x = 1\n\n    def m(self):\n        return self.x\n",
			"class A(B, metaclass=M):\n    x = 1\n    def m(self):\n        return self.x",
		},
		{
			"nested blocks",
			"def f():\n    for x in y:\n        if x:\n            break\n    return 1\n",
			"def f():\n    for x in y:\n        if x:\n            break\n    return 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			module := parse(t, tt.input)
			require.Len(t, module.Body, 1)
			require.Equal(t, tt.expected, module.Body[0].String())
		})
	}
}

func TestMultipleStatements(t *testing.T) {
	module := parse(t, "x = 1\n\n# comment\ny = 2; z = 3\n")
	require.Len(t, module.Body, 3)
	require.Equal(t, 4, module.Body[1].Pos().LineNumber())
	require.Equal(t, 3, module.Body[1].Pos().Line)
}

func TestPositions(t *testing.T) {
	module := parse(t, "x = 1\nif y:\n    z = obj.attr\n")
	require.Len(t, module.Body, 2)
	require.Equal(t, 1, module.Body[0].Pos().LineNumber())
	require.Equal(t, 2, module.Body[1].Pos().LineNumber())
	ifStmt := module.Body[1].(*ast.If)
	assign := ifStmt.Body[0].(*ast.Assign)
	require.Equal(t, 3, assign.Pos().LineNumber())
	require.Equal(t, 5, assign.Pos().ColumnNumber())
	attr := assign.Value.(*ast.Attribute)
	require.Equal(t, 13, attr.AttrPos.ColumnNumber())
}

func TestFStringFields(t *testing.T) {
	expr, err := ParseExpression(context.Background(), `f"x={x!r} y={y:.2f} {z=}"`)
	require.NoError(t, err)
	joined, ok := expr.(*ast.JoinedStr)
	require.True(t, ok)
	require.Len(t, joined.Values, 6)

	require.Equal(t, "x=", joined.Values[0].(*ast.Constant).Value)
	fx := joined.Values[1].(*ast.FormattedValue)
	require.Equal(t, 'r', fx.Conversion)
	require.Equal(t, " y=", joined.Values[2].(*ast.Constant).Value)
	fy := joined.Values[3].(*ast.FormattedValue)
	require.NotNil(t, fy.FormatSpec)
	require.Equal(t, " z=", joined.Values[4].(*ast.Constant).Value)
	fz := joined.Values[5].(*ast.FormattedValue)
	require.Equal(t, 'r', fz.Conversion)
	require.Equal(t, "z", fz.Value.String())
}

func TestAssignmentExpressionPlacement(t *testing.T) {
	tests := []string{
		"(x := 1)",
		"x = (y := 1)",
		"if n := 10:\n    pass",
		"while (n := n - 1) > 0:\n    pass",
		"values = [y := 2, y]",
		"f(z := 3)",
		"print([v for x in data if (v := x * 2)])",
	}
	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			module := parse(t, input)
			var found bool
			ast.Inspect(module, func(node ast.Node) bool {
				if _, ok := node.(*ast.NamedExpr); ok {
					found = true
				}
				return true
			})
			require.True(t, found)
		})
	}
}

func TestBigIntLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"18446744073709551616", "18446744073709551616"},
		{"-9223372036854775809", "-9223372036854775809"},
		{"0x1_0000_0000_0000_0000", "18446744073709551616"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			module := parse(t, tt.input)
			expr := module.Body[0].(*ast.ExprStmt)
			constant, ok := expr.X.(*ast.Constant)
			require.True(t, ok)
			value, ok := constant.Value.(*big.Int)
			require.True(t, ok, "got %T", constant.Value)
			require.Equal(t, tt.want, value.String())
		})
	}
	constant := parse(t, "-9223372036854775808").Body[0].(*ast.ExprStmt).X.(*ast.Constant)
	require.Equal(t, int64(-9223372036854775808), constant.Value)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = ", "unexpected end of line while parsing expression"},
		{"x = 1 +\n", "unexpected end of line while parsing expression"},
		{"f() = 1", "cannot assign to function call"},
		{"1 = x", "cannot assign to literal"},
		{"None = x", "cannot assign to None"},
		{"(a, f()) = x", "cannot assign to function call"},
		{"del f()", "cannot delete function call"},
		{"*a = 1", "starred assignment target must be in a list or tuple"},
		{"a, *b, *c = x", "multiple starred expressions in assignment"},
		{"f() += 1", "'function call' is an illegal expression for augmented assignment"},
		{"a, b: int", "only single target (not tuple) can be annotated"},
		{"def f(a=1, b): pass", "non-default argument follows default argument"},
		{"def f(*): pass", "named arguments must follow bare *"},
		{"def f(**k, a): pass", "arguments cannot follow var-keyword argument"},
		{"f(a=1, b)", "positional argument follows keyword argument"},
		{"f(**k, *a)", "iterable argument unpacking follows keyword argument unpacking"},
		{"f(a=1, a=2)", "keyword argument repeated: a"},
		{"f(x for x in y, 1)", "generator expression must be parenthesized"},
		{"if x:\npass", "expected an indented block after 'if' statement"},
		{"  x = 1", "unexpected indent"},
		{"try:\n    pass\nx = 1\n", "expected 'except' or 'finally' block"},
		{"try:\n    pass\nexcept:\n    pass\nexcept E:\n    pass\n", "default 'except:' must be last"},
		{"try:\n    pass\nexcept A, B:\n    pass\n", "multiple exception types must be parenthesized"},
		{"yield x", "'yield' is not supported"},
		{"x = await y", "'await' is not supported"},
		{"async def f(): pass", "'async' is not supported"},
		{"x := 1", "invalid syntax: unexpected ':=' while parsing statement"},
		{"x = y := 1", "invalid syntax: unexpected ':=' while parsing statement"},
		{"a, b := 1", "invalid syntax: unexpected ':=' while parsing statement"},
		{"print 'x'", "invalid syntax: unexpected string literal while parsing statement"},
		{"f'{}'", "f-string: empty expression not allowed"},
		{"f'{x'", "f-string: expecting '}'"},
		{"f'}'", "f-string: single '}' is not allowed"},
		{"f'{x!z}'", "f-string: invalid conversion character"},
		{"b'a' 'b'", "cannot mix bytes and nonbytes literals"},
		{"@dec\nx = 1", "expected 'def' or 'class' after decorator"},
		{"from import x", "invalid syntax: unexpected keyword 'import' while parsing import statement"},
		{"def class(): pass", "'class' is a keyword and cannot be used as a name"},
		{"x = (1, 2", "while parsing tuple"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			module, err := Parse(context.Background(), tt.input)
			require.Error(t, err)
			require.Nil(t, module)
			require.Contains(t, err.Error(), tt.expected)
		})
	}
}

func TestErrorTypes(t *testing.T) {
	_, err := Parse(context.Background(), "x = )", WithFilename("main.py"))
	require.Error(t, err)
	var syntaxErr *errors.SyntaxError
	require.ErrorAs(t, err, &syntaxErr)
	require.Equal(t, "main.py", syntaxErr.Filename)
	require.Equal(t, 1, syntaxErr.Line)
	require.Equal(t, 5, syntaxErr.Column)
	require.Equal(t, "x = )", syntaxErr.SourceLine)

	_, err = Parse(context.Background(), "x = 'abc", WithFilename("main.py"))
	require.Error(t, err)
	var lexErr *errors.LexError
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, errors.E1002, lexErr.Code)
	require.Equal(t, "main.py", lexErr.Filename)

	_, err = Parse(context.Background(), "if x:\n        a = 1\n    b = 2\n")
	require.ErrorAs(t, err, &lexErr)
	require.Contains(t, lexErr.Message, "unindent does not match any outer indentation level")
}

func TestMaxDepth(t *testing.T) {
	input := strings.Repeat("(", 600) + "1" + strings.Repeat(")", 600)
	_, err := Parse(context.Background(), input)
	require.Error(t, err)
	require.Contains(t, err.Error(), "maximum nesting depth exceeded")

	_, err = Parse(context.Background(), strings.Repeat("(", 20)+"1"+strings.Repeat(")", 20), WithMaxDepth(10))
	require.Error(t, err)

	_, err = Parse(context.Background(), strings.Repeat("(", 20)+"1"+strings.Repeat(")", 20))
	require.NoError(t, err)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, "x = 1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestEmptyInput(t *testing.T) {
	module := parse(t, "")
	require.Empty(t, module.Body)
	module = parse(t, "\n\n# only a comment\n")
	require.Empty(t, module.Body)
}
