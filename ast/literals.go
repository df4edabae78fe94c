package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/slither/internal/token"
)

// Bytes is the value type of a bytes literal.
type Bytes string

// EllipsisValue is the value of the "..." literal.
type EllipsisValue struct{}

// Constant is a literal value: an int64, *big.Int, float64, string, Bytes,
// bool, EllipsisValue or nil (None).
type Constant struct {
	ValuePos token.Position
	ValueEnd token.Position
	Value    any
}

func (x *Constant) exprNode() {}

func (x *Constant) Pos() token.Position { return x.ValuePos }
func (x *Constant) End() token.Position { return x.ValueEnd }

func (x *Constant) String() string {
	return ConstantString(x.Value)
}

// ConstantString renders a constant value the way it would be written in
// source code.
func ConstantString(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	case Bytes:
		return "b" + strconv.Quote(string(v))
	case EllipsisValue:
		return "..."
	default:
		return fmt.Sprintf("%v", v)
	}
}

// JoinedStr is an f-string. Values holds string Constants and
// FormattedValue nodes in source order.
type JoinedStr struct {
	StrPos token.Position
	StrEnd token.Position
	Values []Expr
}

func (x *JoinedStr) exprNode() {}

func (x *JoinedStr) Pos() token.Position { return x.StrPos }
func (x *JoinedStr) End() token.Position { return x.StrEnd }

func (x *JoinedStr) String() string {
	var out strings.Builder
	out.WriteString("f\"")
	for _, v := range x.Values {
		switch v := v.(type) {
		case *Constant:
			if s, ok := v.Value.(string); ok {
				out.WriteString(strings.NewReplacer("{", "{{", "}", "}}").Replace(s))
			}
		default:
			out.WriteString(v.String())
		}
	}
	out.WriteString("\"")
	return out.String()
}

// FormattedValue is a replacement field inside an f-string.
type FormattedValue struct {
	Value      Expr
	Conversion rune // 0, 's', 'r' or 'a'
	FormatSpec Expr // *JoinedStr or nil
}

func (x *FormattedValue) exprNode() {}

func (x *FormattedValue) Pos() token.Position { return x.Value.Pos() }
func (x *FormattedValue) End() token.Position { return x.Value.End() }

func (x *FormattedValue) String() string {
	var out strings.Builder
	out.WriteString("{")
	out.WriteString(x.Value.String())
	if x.Conversion != 0 {
		out.WriteString("!")
		out.WriteRune(x.Conversion)
	}
	if x.FormatSpec != nil {
		out.WriteString(":")
		spec := x.FormatSpec.String()
		out.WriteString(strings.TrimSuffix(strings.TrimPrefix(spec, "f\""), "\""))
	}
	out.WriteString("}")
	return out.String()
}

// List is a list display such as [1, 2].
type List struct {
	Lbrack token.Position
	Elts   []Expr
	Rbrack token.Position
}

func (x *List) exprNode() {}

func (x *List) Pos() token.Position { return x.Lbrack }
func (x *List) End() token.Position { return x.Rbrack.Advance(1) }

func (x *List) String() string {
	return "[" + joinExprs(x.Elts, ", ") + "]"
}

// Tuple is a tuple display, parenthesized or not.
type Tuple struct {
	TuplePos token.Position
	Elts     []Expr
	TupleEnd token.Position
}

func (x *Tuple) exprNode() {}

func (x *Tuple) Pos() token.Position { return x.TuplePos }
func (x *Tuple) End() token.Position { return x.TupleEnd }

func (x *Tuple) String() string {
	if len(x.Elts) == 1 {
		return "(" + x.Elts[0].String() + ",)"
	}
	return "(" + joinExprs(x.Elts, ", ") + ")"
}

// Set is a set display such as {1, 2}.
type Set struct {
	Lbrace token.Position
	Elts   []Expr
	Rbrace token.Position
}

func (x *Set) exprNode() {}

func (x *Set) Pos() token.Position { return x.Lbrace }
func (x *Set) End() token.Position { return x.Rbrace.Advance(1) }

func (x *Set) String() string {
	return "{" + joinExprs(x.Elts, ", ") + "}"
}

// Dict is a dict display such as {"a": 1}.
type Dict struct {
	Lbrace token.Position
	Keys   []Expr
	Values []Expr
	Rbrace token.Position
}

func (x *Dict) exprNode() {}

func (x *Dict) Pos() token.Position { return x.Lbrace }
func (x *Dict) End() token.Position { return x.Rbrace.Advance(1) }

func (x *Dict) String() string {
	parts := make([]string, len(x.Keys))
	for i := range x.Keys {
		if x.Keys[i] == nil {
			parts[i] = "**" + x.Values[i].String()
			continue
		}
		parts[i] = x.Keys[i].String() + ": " + x.Values[i].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
