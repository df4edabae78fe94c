package ast

import "iter"

// Visitor defines the interface for AST traversal. If Visit returns nil,
// children of the node are not visited. Otherwise, the returned Visitor
// is used to visit children.
type Visitor interface {
	Visit(node Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. It starts by calling
// v.Visit(node); if the returned visitor w is not nil, Walk is invoked
// recursively with visitor w for each of the non-nil children of node.
func Walk(v Visitor, node Node) {
	if v = v.Visit(node); v == nil {
		return
	}
	for _, child := range Children(node) {
		Walk(v, child)
	}
}

// Inspect traverses an AST in depth-first order. It calls f(node) for each
// node; if f returns true, Inspect invokes f recursively for each of the
// non-nil children of node.
func Inspect(node Node, f func(Node) bool) {
	Walk(inspector(f), node)
}

type inspector func(Node) bool

func (f inspector) Visit(node Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Preorder returns an iterator over all the nodes of the AST rooted at node
// in depth-first preorder.
func Preorder(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		var visit func(Node) bool
		visit = func(n Node) bool {
			if !yield(n) {
				return false
			}
			for _, child := range Children(n) {
				if !visit(child) {
					return false
				}
			}
			return true
		}
		visit(root)
	}
}

// Children returns the direct child nodes of n in source order. Helper
// structures that are not nodes themselves (keywords, comprehension
// clauses, parameters, with items) contribute their expressions directly.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, node := range nodes {
			if node == nil || isNilNode(node) {
				continue
			}
			out = append(out, node)
		}
	}
	addExprs := func(exprs []Expr) {
		for _, e := range exprs {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	addStmts := func(stmts []Stmt) {
		for _, s := range stmts {
			out = append(out, s)
		}
	}
	addArgs := func(a *Arguments) {
		if a == nil {
			return
		}
		// Defaults are evaluated in the enclosing scope.
		addExprs(a.Defaults)
		addExprs(a.KwDefaults)
		for _, arg := range a.Args {
			addExpr(&out, arg.Annotation)
		}
	}
	addGenerators := func(gens []*Comprehension) {
		for _, g := range gens {
			add(g.Target, g.Iter)
			addExprs(g.Ifs)
		}
	}

	switch n := n.(type) {
	case *Module:
		addStmts(n.Body)

	// Statements
	case *ExprStmt:
		add(n.X)
	case *Assign:
		addExprs(n.Targets)
		add(n.Value)
	case *AugAssign:
		add(n.Target, n.Value)
	case *AnnAssign:
		add(n.Target, n.Annotation)
		addExpr(&out, n.Value)
	case *Return:
		addExpr(&out, n.Value)
	case *Delete:
		addExprs(n.Targets)
	case *Assert:
		add(n.Test)
		addExpr(&out, n.Msg)
	case *Raise:
		addExpr(&out, n.Exc)
		addExpr(&out, n.Cause)
	case *If:
		add(n.Test)
		addStmts(n.Body)
		addStmts(n.OrElse)
	case *While:
		add(n.Test)
		addStmts(n.Body)
		addStmts(n.OrElse)
	case *For:
		add(n.Target, n.Iter)
		addStmts(n.Body)
		addStmts(n.OrElse)
	case *Try:
		addStmts(n.Body)
		for _, h := range n.Handlers {
			out = append(out, h)
		}
		addStmts(n.OrElse)
		addStmts(n.Finalbody)
	case *ExceptHandler:
		addExpr(&out, n.Type)
		addStmts(n.Body)
	case *With:
		for _, item := range n.Items {
			add(item.ContextExpr)
			addExpr(&out, item.OptionalVars)
		}
		addStmts(n.Body)
	case *FunctionDef:
		addExprs(n.DecoratorList)
		addArgs(n.Args)
		addExpr(&out, n.Returns)
		addStmts(n.Body)
	case *ClassDef:
		addExprs(n.DecoratorList)
		addExprs(n.Bases)
		for _, k := range n.Keywords {
			add(k.Value)
		}
		addStmts(n.Body)

	// Expressions
	case *JoinedStr:
		addExprs(n.Values)
	case *FormattedValue:
		add(n.Value)
		addExpr(&out, n.FormatSpec)
	case *List:
		addExprs(n.Elts)
	case *Tuple:
		addExprs(n.Elts)
	case *Set:
		addExprs(n.Elts)
	case *Dict:
		for i := range n.Keys {
			addExpr(&out, n.Keys[i])
			add(n.Values[i])
		}
	case *BinOp:
		add(n.Left, n.Right)
	case *UnaryOp:
		add(n.X)
	case *BoolOp:
		addExprs(n.Values)
	case *Compare:
		add(n.Left)
		addExprs(n.Comparators)
	case *Call:
		add(n.Func)
		addExprs(n.Args)
		for _, k := range n.Keywords {
			add(k.Value)
		}
	case *Attribute:
		add(n.X)
	case *Subscript:
		add(n.X, n.Index)
	case *Slice:
		addExpr(&out, n.Lower)
		addExpr(&out, n.Upper)
		addExpr(&out, n.Step)
	case *Starred:
		add(n.X)
	case *IfExp:
		add(n.Body, n.Test, n.OrElse)
	case *Lambda:
		addArgs(n.Args)
		add(n.Body)
	case *NamedExpr:
		add(n.Target, n.Value)
	case *ListComp:
		addGenerators(n.Generators)
		add(n.Elt)
	case *SetComp:
		addGenerators(n.Generators)
		add(n.Elt)
	case *DictComp:
		addGenerators(n.Generators)
		add(n.Key, n.Value)
	case *GeneratorExp:
		addGenerators(n.Generators)
		add(n.Elt)
	}
	return out
}

func addExpr(out *[]Node, e Expr) {
	if e != nil {
		*out = append(*out, e)
	}
}

// isNilNode reports whether node holds a typed nil pointer for the node
// types that appear as optional fields.
func isNilNode(node Node) bool {
	switch n := node.(type) {
	case *Name:
		return n == nil
	case *Constant:
		return n == nil
	}
	return false
}
