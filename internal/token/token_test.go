package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Test looking up values succeeds, then fails
func TestLookup(t *testing.T) {
	for key, val := range keywords {
		if LookupIdentifier(key) != val {
			t.Errorf("Lookup of %s failed", key)
		}
		// Keywords are case sensitive, so a changed case is an identifier.
		if LookupIdentifier(strings.ToUpper(key)+"_") != NAME {
			t.Errorf("Lookup of %s failed", key)
		}
	}
	require.Equal(t, NAME, LookupIdentifier("none"))
	require.Equal(t, NONE, LookupIdentifier("None"))
}

func TestLookupOperator(t *testing.T) {
	tests := []struct {
		input    string
		expected Type
		ok       bool
	}{
		{"*", ASTERISK, true},
		{"**", POW, true},
		{"**=", POW_EQUALS, true},
		{"//=", DOUBLE_SLASH_EQ, true},
		{"...", ELLIPSIS, true},
		{"->", ARROW, true},
		{"!", "", false},
		{"", "", false},
		{"====", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := LookupOperator(tt.input)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestPosition(t *testing.T) {
	tok := Token{
		Type:    NAME,
		Literal: "foo",
		StartPosition: Position{
			Line:   2,
			Column: 0,
		},
	}
	// Switches to 1-indexed
	require.Equal(t, 3, tok.StartPosition.LineNumber())
	require.Equal(t, 1, tok.StartPosition.ColumnNumber())
	require.Equal(t, 4, tok.StartPosition.Advance(3).ColumnNumber())
	require.False(t, NoPos.IsValid())
}
