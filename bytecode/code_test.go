package bytecode

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/op"
)

func TestNewCodeImmutability(t *testing.T) {
	instructions := []op.Code{op.LoadConst, 0, op.Return}
	constants := []any{int64(42), Tuple{"a", "b"}}
	names := []string{"foo", "bar"}
	varNames := []string{"self", "x"}
	locations := []SourceLocation{{Line: 1, Column: 1}, {Line: 1, Column: 1}, {Line: 1, Column: 5}}

	code := NewCode(CodeParams{
		Name:         "test_code",
		Instructions: instructions,
		Constants:    constants,
		Names:        names,
		VarNames:     varNames,
		Locations:    locations,
	})

	instructions[0] = op.Nop
	constants[0] = int64(99)
	constants[1].(Tuple)[0] = "changed"
	names[0] = "modified"
	varNames[0] = "modified"
	locations[0] = SourceLocation{Line: 999, Column: 999}

	require.Equal(t, op.LoadConst, code.InstructionAt(0))
	require.Equal(t, int64(42), code.ConstantAt(0))
	require.Equal(t, Tuple{"a", "b"}, code.ConstantAt(1))
	require.Equal(t, "foo", code.NameAt(0))
	require.Equal(t, "self", code.VarNameAt(0))
	require.Equal(t, 1, code.LocationAt(0).Line)

	// Accessors hand out copies
	code.VarNames()[0] = "oops"
	code.Names()[0] = "oops"
	require.Equal(t, []string{"self", "x"}, code.VarNames())
	require.Equal(t, []string{"foo", "bar"}, code.Names())
}

func TestCodeAccessors(t *testing.T) {
	code := NewCode(CodeParams{
		ID:             "main.0",
		Name:           "__init__",
		QualName:       "Point.__init__",
		Filename:       "point.py",
		FirstLineNo:    2,
		ArgCount:       3,
		KwOnlyArgCount: 1,
		Flags:          FlagOptimized | FlagNewLocals | FlagVarArgs,
		Instructions:   []op.Code{op.LoadFast, 0, op.Return},
		VarNames:       []string{"self", "x", "y", "k"},
		CellVars:       []string{"self"},
		FreeVars:       []string{"outer"},
	})
	require.Equal(t, "main.0", code.ID())
	require.Equal(t, "__init__", code.Name())
	require.Equal(t, "Point.__init__", code.QualName())
	require.Equal(t, "point.py", code.Filename())
	require.Equal(t, 2, code.FirstLineNo())
	require.Equal(t, 3, code.ArgCount())
	require.Equal(t, 1, code.KwOnlyArgCount())
	require.Equal(t, 4, code.NLocals())
	require.True(t, code.HasFlag(FlagVarArgs))
	require.False(t, code.HasFlag(FlagVarKeywords))
	require.Equal(t, 2, code.DerefCount())
	require.Equal(t, "self", code.DerefNameAt(0))
	require.Equal(t, "outer", code.DerefNameAt(1))
	require.Equal(t, "", code.DerefNameAt(2))
	require.Equal(t, "", code.VarNameAt(-1))
	require.Equal(t, SourceLocation{}, code.LocationAt(10))
}

func TestQualNameDefaultsToName(t *testing.T) {
	code := NewCode(CodeParams{Name: "f"})
	require.Equal(t, "f", code.QualName())
}

func TestInstructionBytes(t *testing.T) {
	code := NewCode(CodeParams{
		Instructions: []op.Code{op.LoadConst, 0x0102, op.Return},
	})
	require.Equal(t, []byte{
		byte(op.LoadConst), 0,
		0x02, 0x01,
		byte(op.Return), 0,
	}, code.InstructionBytes())
}

func TestDecodeInstructions(t *testing.T) {
	code := NewCode(CodeParams{
		Instructions: []op.Code{
			op.LoadConst, 0,
			op.GetIter,
			op.ForIter, 8,
			op.PopTop,
			op.Jump, 3,
			op.Return,
		},
		Constants: []any{Tuple{int64(1)}},
	})
	instrs := code.Instructions()
	require.Len(t, instrs, 6)
	require.Equal(t, Instruction{Offset: 0, Op: op.LoadConst, Operands: []uint16{0}}, instrs[0])
	require.Equal(t, 2, instrs[1].Offset)
	require.Equal(t, 8, instrs[2].Arg())
	require.Equal(t, "3 FOR_ITER 8", instrs[2].String())
	require.Equal(t, 1, code.CountOp(op.ForIter))
	require.Equal(t, 0, code.CountOp(op.Call))
	require.NoError(t, code.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		params CodeParams
		errMsg string
	}{
		{
			name:   "constant out of range",
			params: CodeParams{Instructions: []op.Code{op.LoadConst, 1, op.Return}, Constants: []any{nil}},
			errMsg: "constant index 1 out of range",
		},
		{
			name:   "name out of range",
			params: CodeParams{Instructions: []op.Code{op.LoadName, 0, op.Return}},
			errMsg: "name index 0 out of range",
		},
		{
			name:   "local out of range",
			params: CodeParams{Instructions: []op.Code{op.LoadFast, 2, op.Return}, VarNames: []string{"a"}},
			errMsg: "local index 2 out of range",
		},
		{
			name:   "truncated",
			params: CodeParams{Instructions: []op.Code{op.Return, op.LoadConst}},
			errMsg: "invalid or truncated instruction",
		},
		{
			name:   "jump into operand",
			params: CodeParams{Instructions: []op.Code{op.Jump, 1, op.Return}},
			errMsg: "jump target 1 is not an instruction boundary",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewCode(tt.params).Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestChildrenAndSource(t *testing.T) {
	source := "class A:\n    def m(self):\n        pass"
	method := NewCode(CodeParams{Name: "m", QualName: "A.m", Source: source, Instructions: []op.Code{op.LoadConst, 0, op.Return}, Constants: []any{nil}})
	lambda := NewCode(CodeParams{Name: "<lambda>", Instructions: []op.Code{op.LoadConst, 0, op.Return}, Constants: []any{nil}})
	body := NewCode(CodeParams{
		Name:      "A",
		Source:    source,
		Constants: []any{method, "A.m", lambda},
	})
	root := NewCode(CodeParams{
		Name:      "<module>",
		Source:    source,
		Constants: []any{body, "A"},
	})
	require.Equal(t, []*Code{body}, root.Children())
	require.Equal(t, []*Code{method, lambda}, body.Children())
	require.Equal(t, []*Code{root, body, method, lambda}, root.Flatten())
	require.Equal(t, "    def m(self):", method.GetSourceLine(2))
	require.Equal(t, "", method.GetSourceLine(9))
	require.Equal(t, "", method.GetSourceLine(0))
	require.Equal(t, "", lambda.GetSourceLine(1))

	stats := root.Stats()
	require.Equal(t, 3, stats.CodeCount)
	require.Equal(t, 6, stats.InstructionCount)
}

func TestFormatConstant(t *testing.T) {
	tests := []struct {
		value    any
		expected string
	}{
		{nil, "None"},
		{true, "True"},
		{false, "False"},
		{int64(-3), "-3"},
		{2.5, "2.5"},
		{"hi", `"hi"`},
		{Bytes("ab"), `b"ab"`},
		{Ellipsis{}, "Ellipsis"},
		{Tuple{"x"}, `("x",)`},
		{Tuple{int64(1), int64(2)}, "(1, 2)"},
		{NewCode(CodeParams{Name: "f", QualName: "A.f"}), "<code A.f>"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, FormatConstant(tt.value))
	}
}

func TestSharedChildIsUnchanged(t *testing.T) {
	child := NewCode(CodeParams{Name: "f", Source: "def f(): pass"})
	first := NewCode(CodeParams{Name: "<module>", Source: "a", Constants: []any{child}})
	second := NewCode(CodeParams{Name: "<module>", Source: "b", Constants: []any{child}})
	require.Same(t, child, first.Children()[0])
	require.Same(t, child, second.Children()[0])
	require.Equal(t, "def f(): pass", child.Source())
}
