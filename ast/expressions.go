package ast

import (
	"strings"

	"github.com/deepnoodle-ai/slither/internal/token"
)

// Name is an expression node that refers to a variable by name.
type Name struct {
	NamePos token.Position
	Id      string
}

func (x *Name) exprNode() {}

func (x *Name) Pos() token.Position { return x.NamePos }
func (x *Name) End() token.Position { return x.NamePos.Advance(len(x.Id)) }

func (x *Name) String() string { return x.Id }

// BinOp is a binary arithmetic or bitwise operation.
type BinOp struct {
	Left  Expr
	OpPos token.Position
	Op    token.Type
	Right Expr
}

func (x *BinOp) exprNode() {}

func (x *BinOp) Pos() token.Position { return x.Left.Pos() }
func (x *BinOp) End() token.Position { return x.Right.End() }

func (x *BinOp) String() string {
	return "(" + x.Left.String() + " " + string(x.Op) + " " + x.Right.String() + ")"
}

// UnaryOp is a prefix operation: "-x", "+x", "~x" or "not x".
type UnaryOp struct {
	OpPos token.Position
	Op    token.Type
	X     Expr
}

func (x *UnaryOp) exprNode() {}

func (x *UnaryOp) Pos() token.Position { return x.OpPos }
func (x *UnaryOp) End() token.Position { return x.X.End() }

func (x *UnaryOp) String() string {
	if x.Op == token.NOT {
		return "(not " + x.X.String() + ")"
	}
	return "(" + string(x.Op) + x.X.String() + ")"
}

// BoolOp is a short-circuiting "and" or "or" over two or more values.
type BoolOp struct {
	Op     token.Type // token.AND or token.OR
	Values []Expr
}

func (x *BoolOp) exprNode() {}

func (x *BoolOp) Pos() token.Position { return x.Values[0].Pos() }
func (x *BoolOp) End() token.Position { return x.Values[len(x.Values)-1].End() }

func (x *BoolOp) String() string {
	return "(" + joinExprs(x.Values, " "+string(x.Op)+" ") + ")"
}

// CmpOp is a comparison operator.
type CmpOp string

// Comparison operators
const (
	Eq    CmpOp = "=="
	NotEq CmpOp = "!="
	Lt    CmpOp = "<"
	LtE   CmpOp = "<="
	Gt    CmpOp = ">"
	GtE   CmpOp = ">="
	In    CmpOp = "in"
	NotIn CmpOp = "not in"
	Is    CmpOp = "is"
	IsNot CmpOp = "is not"
)

// Compare is a possibly chained comparison such as "a < b <= c".
type Compare struct {
	Left        Expr
	Ops         []CmpOp
	Comparators []Expr
}

func (x *Compare) exprNode() {}

func (x *Compare) Pos() token.Position { return x.Left.Pos() }
func (x *Compare) End() token.Position { return x.Comparators[len(x.Comparators)-1].End() }

func (x *Compare) String() string {
	var out strings.Builder
	out.WriteString("(")
	out.WriteString(x.Left.String())
	for i, op := range x.Ops {
		out.WriteString(" ")
		out.WriteString(string(op))
		out.WriteString(" ")
		out.WriteString(x.Comparators[i].String())
	}
	out.WriteString(")")
	return out.String()
}

// Keyword is a keyword argument in a call or class definition. Arg is
// empty for a "**mapping" argument.
type Keyword struct {
	ArgPos token.Position
	Arg    string
	Value  Expr
}

func (k *Keyword) String() string {
	if k.Arg == "" {
		return "**" + k.Value.String()
	}
	return k.Arg + "=" + k.Value.String()
}

// Call is a function call. Args may contain Starred expressions.
type Call struct {
	Func     Expr
	Lparen   token.Position
	Args     []Expr
	Keywords []*Keyword
	Rparen   token.Position
}

func (x *Call) exprNode() {}

func (x *Call) Pos() token.Position { return x.Func.Pos() }
func (x *Call) End() token.Position { return x.Rparen.Advance(1) }

func (x *Call) String() string {
	parts := make([]string, 0, len(x.Args)+len(x.Keywords))
	for _, a := range x.Args {
		parts = append(parts, a.String())
	}
	for _, k := range x.Keywords {
		parts = append(parts, k.String())
	}
	return x.Func.String() + "(" + strings.Join(parts, ", ") + ")"
}

// Attribute is an attribute access such as "obj.attr".
type Attribute struct {
	X       Expr
	AttrPos token.Position
	Attr    string
}

func (x *Attribute) exprNode() {}

func (x *Attribute) Pos() token.Position { return x.X.Pos() }
func (x *Attribute) End() token.Position { return x.AttrPos.Advance(len(x.Attr)) }

func (x *Attribute) String() string { return x.X.String() + "." + x.Attr }

// Subscript is an index or slice operation such as "x[i]".
type Subscript struct {
	X      Expr
	Lbrack token.Position
	Index  Expr
	Rbrack token.Position
}

func (x *Subscript) exprNode() {}

func (x *Subscript) Pos() token.Position { return x.X.Pos() }
func (x *Subscript) End() token.Position { return x.Rbrack.Advance(1) }

func (x *Subscript) String() string {
	return x.X.String() + "[" + x.Index.String() + "]"
}

// Slice is the "lower:upper:step" form inside a subscript. Any part may be nil.
type Slice struct {
	ColonPos token.Position
	Lower    Expr
	Upper    Expr
	Step     Expr
}

func (x *Slice) exprNode() {}

func (x *Slice) Pos() token.Position {
	if x.Lower != nil {
		return x.Lower.Pos()
	}
	return x.ColonPos
}

func (x *Slice) End() token.Position {
	switch {
	case x.Step != nil:
		return x.Step.End()
	case x.Upper != nil:
		return x.Upper.End()
	}
	return x.ColonPos.Advance(1)
}

func (x *Slice) String() string {
	var out strings.Builder
	if x.Lower != nil {
		out.WriteString(x.Lower.String())
	}
	out.WriteString(":")
	if x.Upper != nil {
		out.WriteString(x.Upper.String())
	}
	if x.Step != nil {
		out.WriteString(":")
		out.WriteString(x.Step.String())
	}
	return out.String()
}

// Starred is "*x" in a call argument list or an assignment target.
type Starred struct {
	StarPos token.Position
	X       Expr
}

func (x *Starred) exprNode() {}

func (x *Starred) Pos() token.Position { return x.StarPos }
func (x *Starred) End() token.Position { return x.X.End() }

func (x *Starred) String() string { return "*" + x.X.String() }

// IfExp is a conditional expression "body if test else orelse".
type IfExp struct {
	Test   Expr
	Body   Expr
	OrElse Expr
}

func (x *IfExp) exprNode() {}

func (x *IfExp) Pos() token.Position { return x.Body.Pos() }
func (x *IfExp) End() token.Position { return x.OrElse.End() }

func (x *IfExp) String() string {
	return "(" + x.Body.String() + " if " + x.Test.String() + " else " + x.OrElse.String() + ")"
}

// Lambda is an anonymous function expression.
type Lambda struct {
	LambdaPos token.Position
	Args      *Arguments
	Body      Expr
}

func (x *Lambda) exprNode() {}

func (x *Lambda) Pos() token.Position { return x.LambdaPos }
func (x *Lambda) End() token.Position { return x.Body.End() }

func (x *Lambda) String() string {
	params := x.Args.String()
	if params == "" {
		return "(lambda: " + x.Body.String() + ")"
	}
	return "(lambda " + params + ": " + x.Body.String() + ")"
}

// NamedExpr is an assignment expression "target := value".
type NamedExpr struct {
	Target *Name
	Value  Expr
}

func (x *NamedExpr) exprNode() {}

func (x *NamedExpr) Pos() token.Position { return x.Target.Pos() }
func (x *NamedExpr) End() token.Position { return x.Value.End() }

func (x *NamedExpr) String() string {
	return "(" + x.Target.String() + " := " + x.Value.String() + ")"
}

// Comprehension is one "for target in iter if cond..." clause.
type Comprehension struct {
	ForPos token.Position
	Target Expr
	Iter   Expr
	Ifs    []Expr
}

func (c *Comprehension) String() string {
	var out strings.Builder
	out.WriteString("for ")
	out.WriteString(c.Target.String())
	out.WriteString(" in ")
	out.WriteString(c.Iter.String())
	for _, cond := range c.Ifs {
		out.WriteString(" if ")
		out.WriteString(cond.String())
	}
	return out.String()
}

func generatorsString(gens []*Comprehension) string {
	parts := make([]string, len(gens))
	for i, g := range gens {
		parts[i] = g.String()
	}
	return strings.Join(parts, " ")
}

func generatorsEnd(gens []*Comprehension) token.Position {
	last := gens[len(gens)-1]
	if len(last.Ifs) > 0 {
		return last.Ifs[len(last.Ifs)-1].End()
	}
	return last.Iter.End()
}

// ListComp is a list comprehension "[elt for ...]".
type ListComp struct {
	Lbrack     token.Position
	Elt        Expr
	Generators []*Comprehension
}

func (x *ListComp) exprNode() {}

func (x *ListComp) Pos() token.Position { return x.Lbrack }
func (x *ListComp) End() token.Position { return generatorsEnd(x.Generators).Advance(1) }

func (x *ListComp) String() string {
	return "[" + x.Elt.String() + " " + generatorsString(x.Generators) + "]"
}

// SetComp is a set comprehension "{elt for ...}".
type SetComp struct {
	Lbrace     token.Position
	Elt        Expr
	Generators []*Comprehension
}

func (x *SetComp) exprNode() {}

func (x *SetComp) Pos() token.Position { return x.Lbrace }
func (x *SetComp) End() token.Position { return generatorsEnd(x.Generators).Advance(1) }

func (x *SetComp) String() string {
	return "{" + x.Elt.String() + " " + generatorsString(x.Generators) + "}"
}

// DictComp is a dict comprehension "{key: value for ...}".
type DictComp struct {
	Lbrace     token.Position
	Key        Expr
	Value      Expr
	Generators []*Comprehension
}

func (x *DictComp) exprNode() {}

func (x *DictComp) Pos() token.Position { return x.Lbrace }
func (x *DictComp) End() token.Position { return generatorsEnd(x.Generators).Advance(1) }

func (x *DictComp) String() string {
	return "{" + x.Key.String() + ": " + x.Value.String() + " " + generatorsString(x.Generators) + "}"
}

// GeneratorExp is a generator expression "(elt for ...)".
type GeneratorExp struct {
	Lparen     token.Position
	Elt        Expr
	Generators []*Comprehension
}

func (x *GeneratorExp) exprNode() {}

func (x *GeneratorExp) Pos() token.Position { return x.Lparen }
func (x *GeneratorExp) End() token.Position { return generatorsEnd(x.Generators).Advance(1) }

func (x *GeneratorExp) String() string {
	return "(" + x.Elt.String() + " " + generatorsString(x.Generators) + ")"
}
