package ast

import (
	"strings"

	"github.com/deepnoodle-ai/slither/internal/token"
)

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	X Expr
}

func (s *ExprStmt) stmtNode() {}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }
func (s *ExprStmt) End() token.Position { return s.X.End() }

func (s *ExprStmt) String() string { return s.X.String() }

// Assign is "t1 = t2 = value". Targets holds every target in source order.
type Assign struct {
	Targets []Expr
	Value   Expr
}

func (s *Assign) stmtNode() {}

func (s *Assign) Pos() token.Position { return s.Targets[0].Pos() }
func (s *Assign) End() token.Position { return s.Value.End() }

func (s *Assign) String() string {
	return joinExprs(s.Targets, " = ") + " = " + s.Value.String()
}

// AugAssign is an augmented assignment such as "x += 1". Op is the binary
// operator, for example token.PLUS.
type AugAssign struct {
	Target Expr
	OpPos  token.Position
	Op     token.Type
	Value  Expr
}

func (s *AugAssign) stmtNode() {}

func (s *AugAssign) Pos() token.Position { return s.Target.Pos() }
func (s *AugAssign) End() token.Position { return s.Value.End() }

func (s *AugAssign) String() string {
	return s.Target.String() + " " + string(s.Op) + "= " + s.Value.String()
}

// AnnAssign is an annotated assignment "x: T = value". Value may be nil.
type AnnAssign struct {
	Target     Expr
	Annotation Expr
	Value      Expr
}

func (s *AnnAssign) stmtNode() {}

func (s *AnnAssign) Pos() token.Position { return s.Target.Pos() }

func (s *AnnAssign) End() token.Position {
	if s.Value != nil {
		return s.Value.End()
	}
	return s.Annotation.End()
}

func (s *AnnAssign) String() string {
	out := s.Target.String() + ": " + s.Annotation.String()
	if s.Value != nil {
		out += " = " + s.Value.String()
	}
	return out
}

// Pass is the "pass" statement.
type Pass struct {
	PassPos token.Position
}

func (s *Pass) stmtNode() {}

func (s *Pass) Pos() token.Position { return s.PassPos }
func (s *Pass) End() token.Position { return s.PassPos.Advance(4) }
func (s *Pass) String() string      { return "pass" }

// Break is the "break" statement.
type Break struct {
	BreakPos token.Position
}

func (s *Break) stmtNode() {}

func (s *Break) Pos() token.Position { return s.BreakPos }
func (s *Break) End() token.Position { return s.BreakPos.Advance(5) }
func (s *Break) String() string      { return "break" }

// Continue is the "continue" statement.
type Continue struct {
	ContinuePos token.Position
}

func (s *Continue) stmtNode() {}

func (s *Continue) Pos() token.Position { return s.ContinuePos }
func (s *Continue) End() token.Position { return s.ContinuePos.Advance(8) }
func (s *Continue) String() string      { return "continue" }

// Return is "return [value]".
type Return struct {
	ReturnPos token.Position
	Value     Expr
}

func (s *Return) stmtNode() {}

func (s *Return) Pos() token.Position { return s.ReturnPos }

func (s *Return) End() token.Position {
	if s.Value != nil {
		return s.Value.End()
	}
	return s.ReturnPos.Advance(6)
}

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// Delete is "del t1, t2".
type Delete struct {
	DelPos  token.Position
	Targets []Expr
}

func (s *Delete) stmtNode() {}

func (s *Delete) Pos() token.Position { return s.DelPos }
func (s *Delete) End() token.Position { return s.Targets[len(s.Targets)-1].End() }

func (s *Delete) String() string { return "del " + joinExprs(s.Targets, ", ") }

// Global is "global a, b".
type Global struct {
	GlobalPos token.Position
	Names     []string
	NamesEnd  token.Position
}

func (s *Global) stmtNode() {}

func (s *Global) Pos() token.Position { return s.GlobalPos }
func (s *Global) End() token.Position { return s.NamesEnd }
func (s *Global) String() string      { return "global " + strings.Join(s.Names, ", ") }

// Nonlocal is "nonlocal a, b".
type Nonlocal struct {
	NonlocalPos token.Position
	Names       []string
	NamesEnd    token.Position
}

func (s *Nonlocal) stmtNode() {}

func (s *Nonlocal) Pos() token.Position { return s.NonlocalPos }
func (s *Nonlocal) End() token.Position { return s.NamesEnd }
func (s *Nonlocal) String() string      { return "nonlocal " + strings.Join(s.Names, ", ") }

// Assert is "assert test[, msg]".
type Assert struct {
	AssertPos token.Position
	Test      Expr
	Msg       Expr
}

func (s *Assert) stmtNode() {}

func (s *Assert) Pos() token.Position { return s.AssertPos }

func (s *Assert) End() token.Position {
	if s.Msg != nil {
		return s.Msg.End()
	}
	return s.Test.End()
}

func (s *Assert) String() string {
	if s.Msg != nil {
		return "assert " + s.Test.String() + ", " + s.Msg.String()
	}
	return "assert " + s.Test.String()
}

// Raise is "raise [exc [from cause]]".
type Raise struct {
	RaisePos token.Position
	Exc      Expr
	Cause    Expr
}

func (s *Raise) stmtNode() {}

func (s *Raise) Pos() token.Position { return s.RaisePos }

func (s *Raise) End() token.Position {
	switch {
	case s.Cause != nil:
		return s.Cause.End()
	case s.Exc != nil:
		return s.Exc.End()
	}
	return s.RaisePos.Advance(5)
}

func (s *Raise) String() string {
	out := "raise"
	if s.Exc != nil {
		out += " " + s.Exc.String()
	}
	if s.Cause != nil {
		out += " from " + s.Cause.String()
	}
	return out
}

// If is an if statement. An elif chain is represented as a nested If in
// OrElse.
type If struct {
	IfPos  token.Position
	Test   Expr
	Body   []Stmt
	OrElse []Stmt
}

func (s *If) stmtNode() {}

func (s *If) Pos() token.Position { return s.IfPos }

func (s *If) End() token.Position {
	return endOfBlock(s.OrElse, endOfBlock(s.Body, s.Test.End()))
}

func (s *If) String() string {
	var out strings.Builder
	out.WriteString("if " + s.Test.String() + ":\n")
	out.WriteString(blockString(s.Body, "    "))
	if len(s.OrElse) > 0 {
		out.WriteString("\nelse:\n")
		out.WriteString(blockString(s.OrElse, "    "))
	}
	return out.String()
}

// While is "while test: body [else: orelse]".
type While struct {
	WhilePos token.Position
	Test     Expr
	Body     []Stmt
	OrElse   []Stmt
}

func (s *While) stmtNode() {}

func (s *While) Pos() token.Position { return s.WhilePos }

func (s *While) End() token.Position {
	return endOfBlock(s.OrElse, endOfBlock(s.Body, s.Test.End()))
}

func (s *While) String() string {
	var out strings.Builder
	out.WriteString("while " + s.Test.String() + ":\n")
	out.WriteString(blockString(s.Body, "    "))
	if len(s.OrElse) > 0 {
		out.WriteString("\nelse:\n")
		out.WriteString(blockString(s.OrElse, "    "))
	}
	return out.String()
}

// For is "for target in iter: body [else: orelse]".
type For struct {
	ForPos token.Position
	Target Expr
	Iter   Expr
	Body   []Stmt
	OrElse []Stmt
}

func (s *For) stmtNode() {}

func (s *For) Pos() token.Position { return s.ForPos }

func (s *For) End() token.Position {
	return endOfBlock(s.OrElse, endOfBlock(s.Body, s.Iter.End()))
}

func (s *For) String() string {
	var out strings.Builder
	out.WriteString("for " + s.Target.String() + " in " + s.Iter.String() + ":\n")
	out.WriteString(blockString(s.Body, "    "))
	if len(s.OrElse) > 0 {
		out.WriteString("\nelse:\n")
		out.WriteString(blockString(s.OrElse, "    "))
	}
	return out.String()
}

// ExceptHandler is one "except [type [as name]]:" clause.
type ExceptHandler struct {
	ExceptPos token.Position
	Type      Expr
	Name      string
	Body      []Stmt
}

func (h *ExceptHandler) Pos() token.Position { return h.ExceptPos }
func (h *ExceptHandler) End() token.Position { return endOfBlock(h.Body, h.ExceptPos) }

func (h *ExceptHandler) String() string {
	out := "except"
	if h.Type != nil {
		out += " " + h.Type.String()
	}
	if h.Name != "" {
		out += " as " + h.Name
	}
	return out + ":\n" + blockString(h.Body, "    ")
}

// Try is a try statement with any combination of handlers, else and
// finally clauses.
type Try struct {
	TryPos    token.Position
	Body      []Stmt
	Handlers  []*ExceptHandler
	OrElse    []Stmt
	Finalbody []Stmt
}

func (s *Try) stmtNode() {}

func (s *Try) Pos() token.Position { return s.TryPos }

func (s *Try) End() token.Position {
	end := endOfBlock(s.Body, s.TryPos)
	if len(s.Handlers) > 0 {
		end = s.Handlers[len(s.Handlers)-1].End()
	}
	return endOfBlock(s.Finalbody, endOfBlock(s.OrElse, end))
}

func (s *Try) String() string {
	var out strings.Builder
	out.WriteString("try:\n")
	out.WriteString(blockString(s.Body, "    "))
	for _, h := range s.Handlers {
		out.WriteString("\n")
		out.WriteString(h.String())
	}
	if len(s.OrElse) > 0 {
		out.WriteString("\nelse:\n")
		out.WriteString(blockString(s.OrElse, "    "))
	}
	if len(s.Finalbody) > 0 {
		out.WriteString("\nfinally:\n")
		out.WriteString(blockString(s.Finalbody, "    "))
	}
	return out.String()
}

// WithItem is one "expr [as target]" item of a with statement.
type WithItem struct {
	ContextExpr  Expr
	OptionalVars Expr
}

func (w *WithItem) String() string {
	if w.OptionalVars != nil {
		return w.ContextExpr.String() + " as " + w.OptionalVars.String()
	}
	return w.ContextExpr.String()
}

// With is "with a as x, b: body".
type With struct {
	WithPos token.Position
	Items   []*WithItem
	Body    []Stmt
}

func (s *With) stmtNode() {}

func (s *With) Pos() token.Position { return s.WithPos }
func (s *With) End() token.Position { return endOfBlock(s.Body, s.WithPos) }

func (s *With) String() string {
	parts := make([]string, len(s.Items))
	for i, item := range s.Items {
		parts[i] = item.String()
	}
	return "with " + strings.Join(parts, ", ") + ":\n" + blockString(s.Body, "    ")
}

// Arg is a single parameter.
type Arg struct {
	ArgPos     token.Position
	Name       string
	Annotation Expr
}

func (a *Arg) String() string {
	if a.Annotation != nil {
		return a.Name + ": " + a.Annotation.String()
	}
	return a.Name
}

// Arguments is a parameter list. Defaults align with the tail of Args;
// KwDefaults aligns with KwOnlyArgs and holds nil for required keyword-only
// parameters.
type Arguments struct {
	Args       []*Arg
	Vararg     *Arg
	KwOnlyArgs []*Arg
	KwDefaults []Expr
	Kwarg      *Arg
	Defaults   []Expr
}

func (a *Arguments) String() string {
	if a == nil {
		return ""
	}
	var parts []string
	firstDefault := len(a.Args) - len(a.Defaults)
	for i, arg := range a.Args {
		if i >= firstDefault {
			parts = append(parts, arg.String()+"="+a.Defaults[i-firstDefault].String())
		} else {
			parts = append(parts, arg.String())
		}
	}
	if a.Vararg != nil {
		parts = append(parts, "*"+a.Vararg.String())
	} else if len(a.KwOnlyArgs) > 0 {
		parts = append(parts, "*")
	}
	for i, arg := range a.KwOnlyArgs {
		if i < len(a.KwDefaults) && a.KwDefaults[i] != nil {
			parts = append(parts, arg.String()+"="+a.KwDefaults[i].String())
		} else {
			parts = append(parts, arg.String())
		}
	}
	if a.Kwarg != nil {
		parts = append(parts, "**"+a.Kwarg.String())
	}
	return strings.Join(parts, ", ")
}

// Names returns every parameter name in binding order: positional,
// *args, keyword-only, **kwargs.
func (a *Arguments) Names() []string {
	if a == nil {
		return nil
	}
	var names []string
	for _, arg := range a.Args {
		names = append(names, arg.Name)
	}
	if a.Vararg != nil {
		names = append(names, a.Vararg.Name)
	}
	for _, arg := range a.KwOnlyArgs {
		names = append(names, arg.Name)
	}
	if a.Kwarg != nil {
		names = append(names, a.Kwarg.Name)
	}
	return names
}

// FunctionDef is a "def" statement.
type FunctionDef struct {
	DefPos        token.Position
	Name          string
	Args          *Arguments
	Body          []Stmt
	DecoratorList []Expr
	Returns       Expr
}

func (s *FunctionDef) stmtNode() {}

func (s *FunctionDef) Pos() token.Position {
	if len(s.DecoratorList) > 0 {
		return s.DecoratorList[0].Pos()
	}
	return s.DefPos
}

func (s *FunctionDef) End() token.Position { return endOfBlock(s.Body, s.DefPos) }

func (s *FunctionDef) String() string {
	var out strings.Builder
	for _, d := range s.DecoratorList {
		out.WriteString("@" + d.String() + "\n")
	}
	out.WriteString("def " + s.Name + "(" + s.Args.String() + ")")
	if s.Returns != nil {
		out.WriteString(" -> " + s.Returns.String())
	}
	out.WriteString(":\n")
	out.WriteString(blockString(s.Body, "    "))
	return out.String()
}

// ClassDef is a "class" statement.
type ClassDef struct {
	ClassPos      token.Position
	Name          string
	Bases         []Expr
	Keywords      []*Keyword
	Body          []Stmt
	DecoratorList []Expr
}

func (s *ClassDef) stmtNode() {}

func (s *ClassDef) Pos() token.Position {
	if len(s.DecoratorList) > 0 {
		return s.DecoratorList[0].Pos()
	}
	return s.ClassPos
}

func (s *ClassDef) End() token.Position { return endOfBlock(s.Body, s.ClassPos) }

func (s *ClassDef) String() string {
	var out strings.Builder
	for _, d := range s.DecoratorList {
		out.WriteString("@" + d.String() + "\n")
	}
	out.WriteString("class " + s.Name)
	if len(s.Bases) > 0 || len(s.Keywords) > 0 {
		parts := make([]string, 0, len(s.Bases)+len(s.Keywords))
		for _, b := range s.Bases {
			parts = append(parts, b.String())
		}
		for _, k := range s.Keywords {
			parts = append(parts, k.String())
		}
		out.WriteString("(" + strings.Join(parts, ", ") + ")")
	}
	out.WriteString(":\n")
	out.WriteString(blockString(s.Body, "    "))
	return out.String()
}

// Alias is "name [as asname]" in an import statement.
type Alias struct {
	Name   string
	AsName string
}

func (a *Alias) String() string {
	if a.AsName != "" {
		return a.Name + " as " + a.AsName
	}
	return a.Name
}

func aliasesString(names []*Alias) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}

// Import is "import a.b as c, d".
type Import struct {
	ImportPos token.Position
	Names     []*Alias
	NamesEnd  token.Position
}

func (s *Import) stmtNode() {}

func (s *Import) Pos() token.Position { return s.ImportPos }
func (s *Import) End() token.Position { return s.NamesEnd }
func (s *Import) String() string      { return "import " + aliasesString(s.Names) }

// ImportFrom is "from [.]module import names". A single Alias named "*"
// denotes a star import.
type ImportFrom struct {
	FromPos  token.Position
	Module   string
	Names    []*Alias
	Level    int
	NamesEnd token.Position
}

func (s *ImportFrom) stmtNode() {}

func (s *ImportFrom) Pos() token.Position { return s.FromPos }
func (s *ImportFrom) End() token.Position { return s.NamesEnd }

func (s *ImportFrom) String() string {
	return "from " + strings.Repeat(".", s.Level) + s.Module + " import " + aliasesString(s.Names)
}
