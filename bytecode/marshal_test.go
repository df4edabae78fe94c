package bytecode

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/op"
)

const pointSource = "class Point:\n    def __init__(self, x, y):\n        self.x = x\n"

func sampleTree() *Code {
	method := NewCode(CodeParams{
		ID:           "main.0.0",
		Name:         "__init__",
		QualName:     "Point.__init__",
		Filename:     "point.py",
		Source:       pointSource,
		FirstLineNo:  2,
		ArgCount:     3,
		Flags:        FlagOptimized | FlagNewLocals,
		Instructions: []op.Code{op.LoadFast, 1, op.LoadFast, 0, op.StoreAttr, 0, op.LoadConst, 0, op.Return},
		Constants:    []any{nil},
		Names:        []string{"x"},
		VarNames:     []string{"self", "x", "y"},
		Locations:    []SourceLocation{{3, 9}, {3, 9}, {3, 9}, {3, 9}, {3, 9}, {3, 9}, {3, 9}, {3, 9}, {3, 9}},
	})
	body := NewCode(CodeParams{
		ID:           "main.0",
		Name:         "Point",
		Source:       pointSource,
		Flags:        FlagClassBody,
		Instructions: []op.Code{op.LoadConst, 0, op.LoadConst, 1, op.MakeFunction, 0, op.StoreName, 0, op.LoadConst, 2, op.Return},
		Constants:    []any{method, "Point.__init__", nil},
		Names:        []string{"__init__"},
	})
	return NewCode(CodeParams{
		ID:       "main",
		Name:     "<module>",
		Filename: "point.py",
		Source:   pointSource,
		Constants: []any{
			body, "Point", int64(math.MinInt64), 1.5, true, Bytes("\x00\xff"),
			Ellipsis{}, Tuple{"a", Tuple{int64(1)}}, math.Inf(1),
		},
		Instructions: []op.Code{op.LoadBuildClass, op.LoadConst, 0, op.LoadConst, 1, op.MakeFunction, 0, op.LoadConst, 1, op.Call, 2, op.StoreName, 0, op.LoadConst, 2, op.Return},
		Names:        []string{"Point"},
	})
}

func requireSameTree(t *testing.T, want, got *Code) {
	t.Helper()
	require.Equal(t, want.ID(), got.ID())
	require.Equal(t, want.Name(), got.Name())
	require.Equal(t, want.QualName(), got.QualName())
	require.Equal(t, want.Filename(), got.Filename())
	require.Equal(t, want.Source(), got.Source())
	require.Equal(t, want.FirstLineNo(), got.FirstLineNo())
	require.Equal(t, want.ArgCount(), got.ArgCount())
	require.Equal(t, want.Flags(), got.Flags())
	require.Equal(t, want.InstructionBytes(), got.InstructionBytes())
	require.Equal(t, want.Names(), got.Names())
	require.Equal(t, want.VarNames(), got.VarNames())
	require.Equal(t, want.LocationCount(), got.LocationCount())
	require.Equal(t, want.ConstantCount(), got.ConstantCount())
	for i := 0; i < want.ConstantCount(); i++ {
		if child, ok := want.ConstantAt(i).(*Code); ok {
			gotChild, ok := got.ConstantAt(i).(*Code)
			require.True(t, ok)
			requireSameTree(t, child, gotChild)
			continue
		}
		require.Equal(t, want.ConstantAt(i), got.ConstantAt(i))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	root := sampleTree()
	data, err := Marshal(root)
	require.NoError(t, err)
	restored, err := Unmarshal(data)
	require.NoError(t, err)
	requireSameTree(t, root, restored)

	// json.Marshal goes through the same encoder
	direct, err := json.Marshal(root)
	require.NoError(t, err)
	require.JSONEq(t, string(data), string(direct))
}

func TestCBORRoundTrip(t *testing.T) {
	root := sampleTree()
	data, err := MarshalCBOR(root)
	require.NoError(t, err)
	restored, err := UnmarshalCBOR(data)
	require.NoError(t, err)
	requireSameTree(t, root, restored)
	require.Equal(t, "    def __init__(self, x, y):", restored.Children()[0].Children()[0].GetSourceLine(2))

	// Canonical encoding is deterministic
	again, err := MarshalCBOR(restored)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestBytesConstants(t *testing.T) {
	value := Bytes("\x00\xff\xfe\x80")
	code := NewCode(CodeParams{Name: "<module>", Constants: []any{value, Tuple{value}}})
	tests := []struct {
		name      string
		marshal   func(*Code) ([]byte, error)
		unmarshal func([]byte) (*Code, error)
	}{
		{"json", Marshal, Unmarshal},
		{"cbor", MarshalCBOR, UnmarshalCBOR},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.marshal(code)
			require.NoError(t, err)
			restored, err := tt.unmarshal(data)
			require.NoError(t, err)
			require.Equal(t, value, restored.ConstantAt(0))
			require.Equal(t, Tuple{value}, restored.ConstantAt(1))
		})
	}
}

func TestBigIntConstants(t *testing.T) {
	value, _ := new(big.Int).SetString("-340282366920938463463374607431768211456", 10)
	code := NewCode(CodeParams{Name: "<module>", Constants: []any{value, int64(7)}})
	for _, codec := range []struct {
		marshal   func(*Code) ([]byte, error)
		unmarshal func([]byte) (*Code, error)
	}{{Marshal, Unmarshal}, {MarshalCBOR, UnmarshalCBOR}} {
		data, err := codec.marshal(code)
		require.NoError(t, err)
		restored, err := codec.unmarshal(data)
		require.NoError(t, err)
		require.Equal(t, 0, value.Cmp(restored.ConstantAt(0).(*big.Int)))
		require.Equal(t, int64(7), restored.ConstantAt(1))
	}
	require.Equal(t, "-340282366920938463463374607431768211456", FormatConstant(value))
}

func TestSourceStoredOnce(t *testing.T) {
	data, err := Marshal(sampleTree())
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(string(data), `"source"`))

	restored, err := Unmarshal(data)
	require.NoError(t, err)
	for _, code := range restored.Flatten() {
		require.Equal(t, pointSource, code.Source())
	}
}

func TestUnmarshalErrors(t *testing.T) {
	_, err := Unmarshal([]byte(`{"version": 99, "code": {"name": "x"}}`))
	require.ErrorContains(t, err, "unsupported format version 99")

	_, err = Unmarshal([]byte(`{"version": 2}`))
	require.ErrorContains(t, err, "missing code")

	_, err = Unmarshal([]byte(`{"version": 2, "code": {"name": "x", "constants": [{"kind": "blob"}]}}`))
	require.ErrorContains(t, err, `unknown constant kind "blob"`)

	_, err = UnmarshalCBOR([]byte{0xff})
	require.Error(t, err)
}

func TestMarshalUnsupportedConstant(t *testing.T) {
	code := NewCode(CodeParams{Name: "m", Constants: []any{struct{}{}}})
	_, err := Marshal(code)
	require.ErrorContains(t, err, "unsupported constant type")
}
