// Package ast defines the abstract syntax tree produced by the parser.
package ast

import (
	"strings"

	"github.com/deepnoodle-ai/slither/internal/token"
)

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// End returns the position of the first character immediately after the node.
	End() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node.
type Expr interface {
	Node
	exprNode()
}

// Module is the root node of a parsed source file.
type Module struct {
	Body []Stmt
}

func (m *Module) Pos() token.Position {
	if len(m.Body) > 0 {
		return m.Body[0].Pos()
	}
	return token.NoPos
}

func (m *Module) End() token.Position {
	if len(m.Body) > 0 {
		return m.Body[len(m.Body)-1].End()
	}
	return token.NoPos
}

func (m *Module) String() string {
	return blockString(m.Body, "")
}

// blockString renders statements one per line with the given indentation.
func blockString(stmts []Stmt, indent string) string {
	var out strings.Builder
	for i, stmt := range stmts {
		if i > 0 {
			out.WriteString("\n")
		}
		lines := strings.Split(stmt.String(), "\n")
		for j, line := range lines {
			if j > 0 {
				out.WriteString("\n")
			}
			out.WriteString(indent)
			out.WriteString(line)
		}
	}
	return out.String()
}

func endOfBlock(stmts []Stmt, fallback token.Position) token.Position {
	if len(stmts) == 0 {
		return fallback
	}
	return stmts[len(stmts)-1].End()
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return strings.Join(parts, sep)
}
