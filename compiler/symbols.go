package compiler

import (
	"sort"
	"strings"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
)

type scopeKind int

const (
	moduleScope scopeKind = iota
	functionScope
	classScope
)

// Scope describes how a name is resolved within a scope.
type Scope int

const (
	Unresolved Scope = iota
	// Local names live in fast slots of a function, or in the namespace of a
	// module or class body.
	Local
	GlobalExplicit
	GlobalImplicit
	// Free names are captured from an enclosing function.
	Free
	// Cell names are locals captured by an inner function.
	Cell
)

func (s Scope) String() string {
	switch s {
	case Local:
		return "local"
	case GlobalExplicit:
		return "global"
	case GlobalImplicit:
		return "global-implicit"
	case Free:
		return "free"
	case Cell:
		return "cell"
	default:
		return "unresolved"
	}
}

// Symbol definition flags
const (
	defLocal = 1 << iota
	defParam
	defGlobal
	defNonlocal
	defUse
)

const classCellName = "__class__"

// symbolScope is the result of the symbol pass for one function, class or
// module body.
type symbolScope struct {
	kind     scopeKind
	name     string
	node     ast.Node
	parent   *symbolScope
	children []*symbolScope

	flags     map[string]int
	order     []string
	params    []string
	positions map[string]token.Position

	resolved map[string]Scope
	// bindings counts the statements that bind each name, including
	// rebindings from nested scopes through global or nonlocal.
	bindings map[string]int
	// classes holds the names bound only by an undecorated class statement.
	classes map[string]*ast.ClassDef
	// free holds names this scope must receive from its enclosing scope,
	// including names it only passes through to nested scopes.
	free map[string]bool

	needsClassCell bool
	usesSuper      bool
}

func newSymbolScope(kind scopeKind, name string, node ast.Node, parent *symbolScope) *symbolScope {
	s := &symbolScope{
		kind:      kind,
		name:      name,
		node:      node,
		parent:    parent,
		flags:     map[string]int{},
		positions: map[string]token.Position{},
		resolved:  map[string]Scope{},
		bindings:  map[string]int{},
		classes:   map[string]*ast.ClassDef{},
		free:      map[string]bool{},
	}
	if parent != nil {
		parent.children = append(parent.children, s)
	}
	return s
}

func (s *symbolScope) add(name string, flag int, pos token.Position) {
	if _, ok := s.flags[name]; !ok {
		s.order = append(s.order, name)
		s.positions[name] = pos
	}
	s.flags[name] |= flag
}

// Resolve returns the scope of name as seen from this scope.
func (s *symbolScope) Resolve(name string) Scope {
	if sc, ok := s.resolved[name]; ok {
		return sc
	}
	if s.free[name] {
		return Free
	}
	return GlobalImplicit
}

// classBinding returns the class statement that is the only binding of
// name in this scope.
func (s *symbolScope) classBinding(name string) (*ast.ClassDef, bool) {
	def, ok := s.classes[name]
	if !ok || s.bindings[name] != 1 || s.flags[name]&(defParam|defGlobal|defNonlocal) != 0 {
		return nil, false
	}
	return def, true
}

// isClassLocal reports whether a class body binds name in its namespace.
func (s *symbolScope) isClassLocal(name string) bool {
	return s.kind == classScope && s.flags[name]&defLocal != 0 && s.flags[name]&(defGlobal|defNonlocal) == 0
}

// varNames returns the fast-slot names of a function: parameters first,
// then other non-cell locals in order of first appearance.
func (s *symbolScope) varNames() []string {
	names := append([]string(nil), s.params...)
	isParam := map[string]bool{}
	for _, p := range s.params {
		isParam[p] = true
	}
	for _, name := range s.order {
		if !isParam[name] && s.resolved[name] == Local {
			names = append(names, name)
		}
	}
	return names
}

// cellVars returns the sorted names of locals captured by nested scopes.
func (s *symbolScope) cellVars() []string {
	var cells []string
	for name, sc := range s.resolved {
		if sc == Cell {
			cells = append(cells, name)
		}
	}
	if s.needsClassCell {
		cells = append(cells, classCellName)
	}
	sort.Strings(cells)
	return cells
}

// freeVars returns the sorted names captured from enclosing scopes.
func (s *symbolScope) freeVars() []string {
	var free []string
	for name := range s.free {
		free = append(free, name)
	}
	sort.Strings(free)
	return free
}

// symbolBuilder walks the AST once, recording which names each scope
// binds, declares and uses.
type symbolBuilder struct {
	c      *Compiler
	cur    *symbolScope
	scopes map[ast.Node]*symbolScope
	err    error
}

// buildSymbols runs the symbol pass over a module and resolves every name.
func (c *Compiler) buildSymbols(body []ast.Stmt, root ast.Node) (*symbolScope, map[ast.Node]*symbolScope, error) {
	b := &symbolBuilder{c: c, scopes: map[ast.Node]*symbolScope{}}
	b.cur = newSymbolScope(moduleScope, "<module>", root, nil)
	b.scopes[root] = b.cur
	b.visitStmts(body)
	if b.err != nil {
		return nil, nil, b.err
	}
	if err := b.analyze(b.cur, map[string]bool{}); err != nil {
		return nil, nil, err
	}
	return b.cur, b.scopes, nil
}

func (b *symbolBuilder) fail(pos token.Position, code errors.ErrorCode, format string, args ...any) {
	if b.err == nil {
		b.err = b.c.errorAt(pos, code, format, args...)
	}
}

func (b *symbolBuilder) define(name string, flag int, pos token.Position) {
	b.cur.add(name, flag, pos)
	b.bind(name)
}

// bind counts a binding of name in the scope that owns it.
func (b *symbolBuilder) bind(name string) {
	owner := b.cur
	switch flags := b.cur.flags[name]; {
	case flags&defGlobal != 0:
		for owner.parent != nil {
			owner = owner.parent
		}
	case flags&defNonlocal != 0:
		for owner = owner.parent; owner != nil && owner.kind != functionScope; owner = owner.parent {
		}
		if owner == nil {
			return
		}
	}
	owner.bindings[name]++
}

func (b *symbolBuilder) use(name string, pos token.Position) {
	b.cur.add(name, defUse, pos)
	if name == "super" && b.cur.kind == functionScope {
		b.cur.usesSuper = true
		b.cur.add(classCellName, defUse, pos)
	}
}

func (b *symbolBuilder) visitStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		if b.err != nil {
			return
		}
		b.visitStmt(stmt)
	}
}

func (b *symbolBuilder) visitStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		b.visitExpr(s.X)
	case *ast.Assign:
		b.visitExpr(s.Value)
		for _, target := range s.Targets {
			b.visitTarget(target)
		}
	case *ast.AugAssign:
		b.visitExpr(s.Value)
		if name, ok := s.Target.(*ast.Name); ok {
			b.use(name.Id, name.NamePos)
			b.define(name.Id, defLocal, name.NamePos)
		} else {
			b.visitExpr(s.Target)
		}
	case *ast.AnnAssign:
		if s.Value != nil {
			b.visitExpr(s.Value)
		}
		if b.cur.kind != functionScope {
			b.visitExpr(s.Annotation)
		}
		b.visitTarget(s.Target)
	case *ast.Delete:
		for _, target := range s.Targets {
			b.visitTarget(target)
		}
	case *ast.Return:
		if s.Value != nil {
			b.visitExpr(s.Value)
		}
	case *ast.Raise:
		if s.Exc != nil {
			b.visitExpr(s.Exc)
		}
		if s.Cause != nil {
			b.visitExpr(s.Cause)
		}
	case *ast.Assert:
		b.visitExpr(s.Test)
		if s.Msg != nil {
			b.visitExpr(s.Msg)
		}
		b.use("AssertionError", s.AssertPos)
	case *ast.Global:
		for _, name := range s.Names {
			b.declareGlobal(name, s.GlobalPos)
		}
	case *ast.Nonlocal:
		for _, name := range s.Names {
			b.declareNonlocal(name, s.NonlocalPos)
		}
	case *ast.If:
		b.visitExpr(s.Test)
		b.visitStmts(s.Body)
		b.visitStmts(s.OrElse)
	case *ast.While:
		b.visitExpr(s.Test)
		b.visitStmts(s.Body)
		b.visitStmts(s.OrElse)
	case *ast.For:
		b.visitExpr(s.Iter)
		b.visitTarget(s.Target)
		b.visitStmts(s.Body)
		b.visitStmts(s.OrElse)
	case *ast.Try:
		b.visitStmts(s.Body)
		for _, h := range s.Handlers {
			if h.Type != nil {
				b.visitExpr(h.Type)
			}
			if h.Name != "" {
				b.define(h.Name, defLocal, h.ExceptPos)
			}
			b.visitStmts(h.Body)
		}
		b.visitStmts(s.OrElse)
		b.visitStmts(s.Finalbody)
	case *ast.With:
		for _, item := range s.Items {
			b.visitExpr(item.ContextExpr)
			if item.OptionalVars != nil {
				b.visitTarget(item.OptionalVars)
			}
		}
		b.visitStmts(s.Body)
	case *ast.FunctionDef:
		for _, d := range s.DecoratorList {
			b.visitExpr(d)
		}
		b.visitDefaults(s.Args)
		b.define(s.Name, defLocal, s.DefPos)
		b.visitFunction(s, s.Name, s.Args, func() { b.visitStmts(s.Body) })
	case *ast.ClassDef:
		for _, d := range s.DecoratorList {
			b.visitExpr(d)
		}
		for _, base := range s.Bases {
			b.visitExpr(base)
		}
		for _, kw := range s.Keywords {
			b.visitExpr(kw.Value)
		}
		b.define(s.Name, defLocal, s.ClassPos)
		if len(s.DecoratorList) == 0 {
			b.cur.classes[s.Name] = s
		}
		parent := b.cur
		b.cur = newSymbolScope(classScope, s.Name, s, parent)
		b.scopes[s] = b.cur
		b.visitStmts(s.Body)
		b.cur = parent
	case *ast.Import:
		for _, alias := range s.Names {
			name := alias.AsName
			if name == "" {
				name, _, _ = strings.Cut(alias.Name, ".")
			}
			b.define(name, defLocal, s.ImportPos)
		}
	case *ast.ImportFrom:
		for _, alias := range s.Names {
			if alias.Name == "*" {
				if b.cur.kind != moduleScope {
					b.fail(s.FromPos, errors.E2012, "import * only allowed at module level")
				}
				continue
			}
			name := alias.AsName
			if name == "" {
				name = alias.Name
			}
			b.define(name, defLocal, s.FromPos)
		}
	case *ast.Pass, *ast.Break, *ast.Continue:
	}
}

func (b *symbolBuilder) declareGlobal(name string, pos token.Position) {
	flags := b.cur.flags[name]
	switch {
	case flags&defParam != 0:
		b.fail(pos, errors.E2013, "name '%s' is parameter and global", name)
	case flags&defNonlocal != 0:
		b.fail(pos, errors.E2013, "name '%s' is nonlocal and global", name)
	case flags&defLocal != 0:
		b.fail(pos, errors.E2013, "name '%s' is assigned to before global declaration", name)
	case flags&defUse != 0:
		b.fail(pos, errors.E2013, "name '%s' is used prior to global declaration", name)
	}
	b.define(name, defGlobal, pos)
}

func (b *symbolBuilder) declareNonlocal(name string, pos token.Position) {
	if b.cur.kind == moduleScope {
		b.fail(pos, errors.E2013, "nonlocal declaration not allowed at module level")
		return
	}
	flags := b.cur.flags[name]
	switch {
	case flags&defParam != 0:
		b.fail(pos, errors.E2013, "name '%s' is parameter and nonlocal", name)
	case flags&defGlobal != 0:
		b.fail(pos, errors.E2013, "name '%s' is nonlocal and global", name)
	case flags&defLocal != 0:
		b.fail(pos, errors.E2013, "name '%s' is assigned to before nonlocal declaration", name)
	case flags&defUse != 0:
		b.fail(pos, errors.E2013, "name '%s' is used prior to nonlocal declaration", name)
	}
	b.define(name, defNonlocal, pos)
}

// visitDefaults visits default values, which are evaluated in the
// enclosing scope.
func (b *symbolBuilder) visitDefaults(args *ast.Arguments) {
	if args == nil {
		return
	}
	for _, d := range args.Defaults {
		b.visitExpr(d)
	}
	for _, d := range args.KwDefaults {
		if d != nil {
			b.visitExpr(d)
		}
	}
}

// parameterNames returns parameter names in slot order: positional,
// keyword-only, *args, **kwargs.
func parameterNames(args *ast.Arguments) []*ast.Arg {
	if args == nil {
		return nil
	}
	params := append([]*ast.Arg(nil), args.Args...)
	params = append(params, args.KwOnlyArgs...)
	if args.Vararg != nil {
		params = append(params, args.Vararg)
	}
	if args.Kwarg != nil {
		params = append(params, args.Kwarg)
	}
	return params
}

func (b *symbolBuilder) visitFunction(node ast.Node, name string, args *ast.Arguments, body func()) {
	parent := b.cur
	b.cur = newSymbolScope(functionScope, name, node, parent)
	b.scopes[node] = b.cur
	seen := map[string]bool{}
	for _, arg := range parameterNames(args) {
		if seen[arg.Name] {
			b.fail(arg.ArgPos, errors.E2006, "duplicate argument '%s' in function definition", arg.Name)
		}
		seen[arg.Name] = true
		b.define(arg.Name, defParam|defLocal, arg.ArgPos)
		b.cur.params = append(b.cur.params, arg.Name)
	}
	body()
	b.cur = parent
}

func (b *symbolBuilder) visitTarget(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Name:
		b.define(t.Id, defLocal, t.NamePos)
	case *ast.Tuple:
		for _, elt := range t.Elts {
			b.visitTarget(elt)
		}
	case *ast.List:
		for _, elt := range t.Elts {
			b.visitTarget(elt)
		}
	case *ast.Starred:
		b.visitTarget(t.X)
	case *ast.Attribute:
		b.visitExpr(t.X)
	case *ast.Subscript:
		b.visitExpr(t.X)
		b.visitExpr(t.Index)
	default:
		b.visitExpr(target)
	}
}

func (b *symbolBuilder) visitComprehension(gens []*ast.Comprehension, elts ...ast.Expr) {
	for _, gen := range gens {
		b.visitExpr(gen.Iter)
		b.visitTarget(gen.Target)
		for _, cond := range gen.Ifs {
			b.visitExpr(cond)
		}
	}
	for _, elt := range elts {
		b.visitExpr(elt)
	}
}

func (b *symbolBuilder) visitExpr(expr ast.Expr) {
	if expr == nil || b.err != nil {
		return
	}
	switch e := expr.(type) {
	case *ast.Name:
		b.use(e.Id, e.NamePos)
	case *ast.Lambda:
		b.visitDefaults(e.Args)
		b.visitFunction(e, "<lambda>", e.Args, func() { b.visitExpr(e.Body) })
	case *ast.NamedExpr:
		b.visitExpr(e.Value)
		b.define(e.Target.Id, defLocal, e.Target.NamePos)
	case *ast.ListComp:
		b.visitComprehension(e.Generators, e.Elt)
	case *ast.SetComp:
		b.visitComprehension(e.Generators, e.Elt)
	case *ast.GeneratorExp:
		b.visitComprehension(e.Generators, e.Elt)
	case *ast.DictComp:
		b.visitComprehension(e.Generators, e.Key, e.Value)
	case *ast.Call:
		b.visitExpr(e.Func)
		for _, arg := range e.Args {
			b.visitExpr(arg)
		}
		for _, kw := range e.Keywords {
			b.visitExpr(kw.Value)
		}
	default:
		for _, child := range ast.Children(expr) {
			if x, ok := child.(ast.Expr); ok {
				b.visitExpr(x)
			}
		}
	}
}

// analyze resolves every name in s. bound holds the names bound by
// enclosing function scopes.
func (b *symbolBuilder) analyze(s *symbolScope, bound map[string]bool) error {
	for _, name := range s.order {
		flags := s.flags[name]
		switch {
		case flags&defGlobal != 0:
			s.resolved[name] = GlobalExplicit
		case flags&defNonlocal != 0:
			if !bound[name] {
				return b.c.errorAt(s.positions[name], errors.E2013, "no binding for nonlocal '%s' found", name)
			}
			s.resolved[name] = Free
			s.free[name] = true
		case flags&defLocal != 0:
			s.resolved[name] = Local
		case s.kind == functionScope && bound[name]:
			s.resolved[name] = Free
			s.free[name] = true
		case s.kind == classScope && bound[name] && name != classCellName:
			s.resolved[name] = Free
			s.free[name] = true
		default:
			if s.kind != moduleScope && name == classCellName && bound[name] {
				s.resolved[name] = Free
				s.free[name] = true
				continue
			}
			s.resolved[name] = GlobalImplicit
		}
	}

	childBound := make(map[string]bool, len(bound))
	for name := range bound {
		childBound[name] = true
	}
	switch s.kind {
	case functionScope:
		for name, sc := range s.resolved {
			switch sc {
			case Local, Free:
				childBound[name] = true
			case GlobalExplicit:
				delete(childBound, name)
			}
		}
	case classScope:
		childBound[classCellName] = true
	}

	for _, child := range s.children {
		if err := b.analyze(child, childBound); err != nil {
			return err
		}
		for _, name := range child.freeVars() {
			switch {
			case s.kind == classScope && name == classCellName:
				s.needsClassCell = true
			case s.kind == functionScope && s.resolved[name] == Local:
				s.resolved[name] = Cell
			case s.resolved[name] == Cell:
			default:
				if s.kind != moduleScope {
					s.free[name] = true
					if _, ok := s.resolved[name]; !ok {
						s.resolved[name] = Free
					}
				}
			}
		}
	}
	return nil
}
