package object

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		value Object
		spec  string
		want  string
	}{
		{NewInt(42), "", "42"},
		{NewInt(42), "5", "   42"},
		{NewInt(42), "<5", "42   "},
		{NewInt(42), "^6", "  42  "},
		{NewInt(42), "*>6", "****42"},
		{NewInt(-42), "06", "-00042"},
		{NewInt(42), "+d", "+42"},
		{NewInt(255), "x", "ff"},
		{NewInt(255), "#X", "0XFF"},
		{NewInt(5), "b", "101"},
		{NewInt(1234567), ",", "1,234,567"},
		{NewInt(1234567), "_", "1_234_567"},
		{NewFloat(3.14159), ".2f", "3.14"},
		{NewFloat(3.14159), "8.3f", "   3.142"},
		{NewFloat(0.5), ".1%", "50.0%"},
		{NewFloat(12345.678), ",.1f", "12,345.7"},
		{NewFloat(1e6), "g", "1e+06"},
		{NewFloat(1.5), "e", "1.500000e+00"},
		{NewFloat(1.0), ".3", "1.0"},
		{NewInt(3), ".2f", "3.00"},
		{NewStr("ab"), "4", "ab  "},
		{NewStr("abcdef"), ".3", "abc"},
		{NewStr("ab"), ">4", "  ab"},
		{True, "", "True"},
		{True, "d", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := FormatValue(ctx, tt.value, tt.spec)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatValueErrors(t *testing.T) {
	ctx := context.Background()
	_, err := FormatValue(ctx, NewStr("x"), "d")
	require.Equal(t, "Unknown format code 'd' for object of type 'str'", AsException(err).Message)

	_, err = FormatValue(ctx, NewList(nil), "5")
	require.Equal(t, "unsupported format string passed to list.__format__", AsException(err).Message)
}

func TestFormatString(t *testing.T) {
	ctx := context.Background()
	kwargs := NewDict()
	kwargs.SetStr("name", NewStr("world"))
	kwargs.SetStr("items", NewList([]Object{NewInt(7), NewInt(8)}))
	tests := []struct {
		format string
		args   []Object
		want   string
	}{
		{"{} {}", []Object{NewInt(1), NewInt(2)}, "1 2"},
		{"{1} {0}", []Object{NewInt(1), NewInt(2)}, "2 1"},
		{"hello {name}!", nil, "hello world!"},
		{"{name!r}", nil, "'world'"},
		{"{items[1]}", nil, "8"},
		{"{{literal}}", nil, "{literal}"},
		{"{:>{}}", []Object{NewStr("x"), NewInt(3)}, "  x"},
		{"{0:.{1}f}", []Object{NewFloat(2.5), NewInt(2)}, "2.50"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := FormatString(ctx, tt.format, tt.args, kwargs)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestFormatStringErrors(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		format   string
		typeName string
		message  string
	}{
		{"{", "ValueError", "Single '{' encountered in format string"},
		{"}", "ValueError", "Single '}' encountered in format string"},
		{"{} {1}", "ValueError", "cannot switch from automatic field numbering to manual field specification"},
		{"{} {}", "IndexError", "Replacement index 1 out of range for positional args tuple"},
		{"{missing}", "KeyError", "'missing'"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			_, err := FormatString(ctx, tt.format, []Object{NewInt(1)}, nil)
			exc := AsException(err)
			require.Equal(t, tt.typeName, exc.TypeName)
			require.Equal(t, tt.message, exc.Message)
		})
	}
}

func TestFormatPercent(t *testing.T) {
	ctx := context.Background()
	mapping := NewDict()
	mapping.SetStr("n", NewInt(3))
	tests := []struct {
		format string
		values Object
		want   string
	}{
		{"%d items", NewInt(3), "3 items"},
		{"%s and %r", NewTuple([]Object{NewStr("a"), NewStr("b")}), "a and 'b'"},
		{"%5.2f|", NewFloat(3.14159), " 3.14|"},
		{"%-4d|", NewInt(7), "7   |"},
		{"%04x", NewInt(255), "00ff"},
		{"%(n)d%%", mapping, "3%"},
		{"%5s", NewStr("ab"), "   ab"},
		{"%c", NewInt(65), "A"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := FormatPercent(ctx, tt.format, tt.values)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := FormatPercent(ctx, "%d %d", NewInt(1))
	require.Equal(t, "not enough arguments for format string", AsException(err).Message)
	_, err = FormatPercent(ctx, "%d", NewTuple([]Object{NewInt(1), NewInt(2)}))
	require.Equal(t, "not all arguments converted during string formatting", AsException(err).Message)
	_, err = FormatPercent(ctx, "%d", NewStr("x"))
	require.Equal(t, "%d format: a real number is required, not str", AsException(err).Message)
}

func TestParseArgs(t *testing.T) {
	kwargs := NewDict()
	kwargs.SetStr("maxsplit", NewInt(2))
	params, err := ParseArgs("split", []Object{NewStr(",")}, kwargs, "sep?", "maxsplit?")
	require.NoError(t, err)
	require.Equal(t, ",", params[0].(*Str).Value())
	require.Equal(t, int64(2), params[1].(*Int).Value())

	params, err = ParseArgs("split", nil, nil, "sep?", "maxsplit?")
	require.NoError(t, err)
	require.Nil(t, params[0])

	_, err = ParseArgs("f", nil, nil, "x")
	require.Equal(t, "f() missing required argument 'x' (pos 1)", AsException(err).Message)

	bad := NewDict()
	bad.SetStr("y", None)
	_, err = ParseArgs("f", nil, bad, "x?")
	require.Equal(t, "f() got an unexpected keyword argument 'y'", AsException(err).Message)
}
