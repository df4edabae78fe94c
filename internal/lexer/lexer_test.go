package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
)

type expectedToken struct {
	typ     token.Type
	literal string
}

func requireTokens(t *testing.T, input string, expected []expectedToken) {
	t.Helper()
	tokens, err := New(input).Tokenize()
	require.NoError(t, err)
	require.Len(t, tokens, len(expected), "tokens: %v", tokens)
	for i, tt := range expected {
		require.Equal(t, tt.typ, tokens[i].Type, "tests[%d] - tokentype wrong", i)
		if tt.literal != "" {
			require.Equal(t, tt.literal, tokens[i].Literal, "tests[%d] - literal wrong", i)
		}
	}
}

func types(t *testing.T, input string) []token.Type {
	t.Helper()
	tokens, err := New(input).Tokenize()
	require.NoError(t, err)
	var result []token.Type
	for _, tok := range tokens {
		result = append(result, tok.Type)
	}
	return result
}

func TestSimpleStatement(t *testing.T) {
	requireTokens(t, "x = 5 + y", []expectedToken{
		{token.NAME, "x"},
		{token.ASSIGN, "="},
		{token.INT, "5"},
		{token.PLUS, "+"},
		{token.NAME, "y"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestOperatorsLongestMatch(t *testing.T) {
	requireTokens(t, "a **= b ** c * d // e //= f >>= g -> h := i != j ...", []expectedToken{
		{token.NAME, "a"},
		{token.POW_EQUALS, "**="},
		{token.NAME, "b"},
		{token.POW, "**"},
		{token.NAME, "c"},
		{token.ASTERISK, "*"},
		{token.NAME, "d"},
		{token.DOUBLE_SLASH, "//"},
		{token.NAME, "e"},
		{token.DOUBLE_SLASH_EQ, "//="},
		{token.NAME, "f"},
		{token.GT_GT_EQUALS, ">>="},
		{token.NAME, "g"},
		{token.ARROW, "->"},
		{token.NAME, "h"},
		{token.WALRUS, ":="},
		{token.NAME, "i"},
		{token.NOT_EQ, "!="},
		{token.NAME, "j"},
		{token.ELLIPSIS, "..."},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestKeywords(t *testing.T) {
	requireTokens(t, "if x is not None and True: pass", []expectedToken{
		{token.IF, "if"},
		{token.NAME, "x"},
		{token.IS, "is"},
		{token.NOT, "not"},
		{token.NONE, "None"},
		{token.AND, "and"},
		{token.TRUE, "True"},
		{token.COLON, ":"},
		{token.PASS, "pass"},
		{token.NEWLINE, ""},
		{token.EOF, ""},
	})
}

func TestIndentation(t *testing.T) {
	input := "if a:\n    b\n    if c:\n        d\ne\n"
	require.Equal(t, []token.Type{
		token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE,
		token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE,
		token.DEDENT, token.DEDENT,
		token.NAME, token.NEWLINE,
		token.EOF,
	}, types(t, input))
}

func TestDedentAtEOF(t *testing.T) {
	input := "def f():\n  if x:\n    return 1"
	require.Equal(t, []token.Type{
		token.DEF, token.NAME, token.LPAREN, token.RPAREN, token.COLON, token.NEWLINE,
		token.INDENT, token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.RETURN, token.INT, token.NEWLINE,
		token.DEDENT, token.DEDENT, token.EOF,
	}, types(t, input))
}

func TestBlankAndCommentLinesIgnored(t *testing.T) {
	input := "if a:\n\n    # just a comment\n        \n    b\n# trailing\n"
	require.Equal(t, []token.Type{
		token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE,
		token.DEDENT, token.EOF,
	}, types(t, input))
}

func TestTabsRoundToMultipleOfEight(t *testing.T) {
	// A tab is equivalent to eight spaces, so the second line matches.
	input := "if a:\n\tb\n        c\n"
	require.Equal(t, []token.Type{
		token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE,
		token.NAME, token.NEWLINE,
		token.DEDENT, token.EOF,
	}, types(t, input))

	// Four spaces followed by a tab also rounds up to eight.
	input = "if a:\n    \tb\n        c\n"
	require.Equal(t, []token.Type{
		token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE,
		token.NAME, token.NEWLINE,
		token.DEDENT, token.EOF,
	}, types(t, input))
}

func TestUnindentMismatch(t *testing.T) {
	_, err := New("if a:\n    b\n  c\n").Tokenize()
	require.Error(t, err)
	var lexErr *errors.LexError
	require.ErrorAs(t, err, &lexErr)
	require.Equal(t, "unindent does not match any outer indentation level", lexErr.Message)
	require.Equal(t, errors.E1011, lexErr.Code)
	require.Equal(t, 3, lexErr.Line)
}

func TestNewlinesSuppressedInBrackets(t *testing.T) {
	input := "x = [\n    1,\n  2,\n]\ny = (a +\n b)\n"
	require.Equal(t, []token.Type{
		token.NAME, token.ASSIGN, token.LBRACKET, token.INT, token.COMMA,
		token.INT, token.COMMA, token.RBRACKET, token.NEWLINE,
		token.NAME, token.ASSIGN, token.LPAREN, token.NAME, token.PLUS,
		token.NAME, token.RPAREN, token.NEWLINE,
		token.EOF,
	}, types(t, input))
}

func TestLineContinuation(t *testing.T) {
	input := "x = 1 + \\\n    2\ny"
	require.Equal(t, []token.Type{
		token.NAME, token.ASSIGN, token.INT, token.PLUS, token.INT, token.NEWLINE,
		token.NAME, token.NEWLINE,
		token.EOF,
	}, types(t, input))

	_, err := New("x = 1 \\ 2").Tokenize()
	require.ErrorContains(t, err, "unexpected character after line continuation character")
}

func TestStrings(t *testing.T) {
	tests := []struct {
		input    string
		typ      token.Type
		expected string
	}{
		{`'hello'`, token.STRING, "hello"},
		{`"it's"`, token.STRING, "it's"},
		{`'a\nb\tc'`, token.STRING, "a\nb\tc"},
		{`'q\'q\"'`, token.STRING, `q'q"`},
		{`'back\\slash'`, token.STRING, `back\slash`},
		{`'nul\0'`, token.STRING, "nul\x00"},
		{`'\x41\u00e9'`, token.STRING, "Aé"},
		{`'keep\d'`, token.STRING, `keep\d`},
		{`r'raw\n'`, token.STRING, `raw\n`},
		{`R"raw\"quote"`, token.STRING, `raw\"quote`},
		{`b'bytes\n'`, token.BYTES, "bytes\n"},
		{`rb'\d'`, token.BYTES, `\d`},
		{`f'{x}!'`, token.FSTRING, "{x}!"},
		{`u'text'`, token.STRING, "text"},
		{"'''multi\nline'''", token.STRING, "multi\nline"},
		{`"""with "quotes" inside"""`, token.STRING, `with "quotes" inside`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, err := New(tt.input).Next()
			require.NoError(t, err)
			require.Equal(t, tt.typ, tok.Type)
			require.Equal(t, tt.expected, tok.Literal)
		})
	}
}

func TestStringErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`'abc`, "unterminated string literal"},
		{"'abc\ndef'", "EOL while scanning string literal"},
		{`"""never closed`, "unterminated string literal"},
		{`'\x4'`, "invalid escape sequence"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := New(tt.input).Tokenize()
			require.Error(t, err)
			var lexErr *errors.LexError
			require.ErrorAs(t, err, &lexErr)
			require.Equal(t, tt.expected, lexErr.Message)
		})
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input    string
		typ      token.Type
		expected string
	}{
		{"42", token.INT, "42"},
		{"1_000_000", token.INT, "1000000"},
		{"0", token.INT, "0"},
		{"000", token.INT, "000"},
		{"0xff", token.INT, "0xff"},
		{"0XdE_aD", token.INT, "0XdEaD"},
		{"0o17", token.INT, "0o17"},
		{"0b1010", token.INT, "0b1010"},
		{"3.14", token.FLOAT, "3.14"},
		{".5", token.FLOAT, ".5"},
		{"1e10", token.FLOAT, "1e10"},
		{"2.5E-3", token.FLOAT, "2.5E-3"},
		{"1_0.0_1", token.FLOAT, "10.01"},
		{"7.", token.FLOAT, "7."},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tok, err := New(tt.input).Next()
			require.NoError(t, err)
			require.Equal(t, tt.typ, tok.Type)
			require.Equal(t, tt.expected, tok.Literal)
		})
	}
}

func TestNumberErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1__0", "invalid integer literal: 1__0"},
		{"10_", "invalid integer literal: 10_"},
		{"0123", "invalid integer literal: 0123"},
		{"12abc", "invalid integer literal: 12abc"},
		{"0xZZ", "invalid hex literal: 0xZZ"},
		{"0x", "invalid hex literal: 0x"},
		{"0o9", "invalid octal literal: 0o9"},
		{"0b102", "invalid binary literal: 0b102"},
		{"1.5e", "invalid float literal: 1.5e"},
		{"1_.5", "invalid float literal: 1_.5"},
		{"3j", "invalid integer literal: 3j"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := New(tt.input).Next()
			require.Error(t, err)
			var lexErr *errors.LexError
			require.ErrorAs(t, err, &lexErr)
			require.Equal(t, tt.expected, lexErr.Message)
			require.Equal(t, errors.E1008, lexErr.Code)
		})
	}
}

func TestInvalidCharacter(t *testing.T) {
	_, err := New("x = $").Tokenize()
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid character '$'")

	_, err = New("!x").Tokenize()
	require.Error(t, err)
}

func TestPositions(t *testing.T) {
	l := New("a = 1\n  \nfoo(bar)", WithFilename("test.py"))
	tokens, err := l.Tokenize()
	require.NoError(t, err)
	// foo is on the third line (0-indexed line 2)
	foo := tokens[4]
	require.Equal(t, token.NAME, foo.Type)
	require.Equal(t, "foo", foo.Literal)
	require.Equal(t, 2, foo.StartPosition.Line)
	require.Equal(t, 0, foo.StartPosition.Column)
	require.Equal(t, 2, foo.EndPosition.Column)
	require.Equal(t, "test.py", foo.StartPosition.File)
	require.Equal(t, "foo(bar)", l.GetLineText(foo))
}

func TestEOFIsSticky(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		tok, err := l.Next()
		require.NoError(t, err)
		require.Equal(t, token.EOF, tok.Type)
	}
}

func TestCRLF(t *testing.T) {
	input := "if a:\r\n    b\r\nc\r\n"
	require.Equal(t, []token.Type{
		token.IF, token.NAME, token.COLON, token.NEWLINE,
		token.INDENT, token.NAME, token.NEWLINE,
		token.DEDENT, token.NAME, token.NEWLINE,
		token.EOF,
	}, types(t, input))
}
