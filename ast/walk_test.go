package ast

import (
	"fmt"
	"testing"

	"github.com/deepnoodle-ai/slither/internal/token"
	"github.com/stretchr/testify/require"
)

func describe(n Node) string {
	switch node := n.(type) {
	case *Module:
		return "Module"
	case *Assign:
		return "Assign"
	case *BinOp:
		return "BinOp:" + string(node.Op)
	case *Name:
		return "Name:" + node.Id
	case *Constant:
		return fmt.Sprintf("Constant:%v", node.Value)
	case *ListComp:
		return "ListComp"
	case *Compare:
		return "Compare"
	}
	return fmt.Sprintf("%T", n)
}

func TestInspect(t *testing.T) {
	// x = 1 + y
	module := &Module{Body: []Stmt{
		&Assign{
			Targets: []Expr{name("x")},
			Value:   &BinOp{Left: constant(int64(1)), Op: token.PLUS, Right: name("y")},
		},
	}}

	var visited []string
	Inspect(module, func(n Node) bool {
		visited = append(visited, describe(n))
		return true
	})
	require.Equal(t, []string{"Module", "Assign", "Name:x", "BinOp:+", "Constant:1", "Name:y"}, visited)
}

func TestInspectPrune(t *testing.T) {
	module := &Module{Body: []Stmt{
		&ExprStmt{X: &BinOp{Left: name("a"), Op: token.ASTERISK, Right: name("b")}},
	}}
	var visited []string
	Inspect(module, func(n Node) bool {
		visited = append(visited, describe(n))
		_, isBinOp := n.(*BinOp)
		return !isBinOp
	})
	require.Equal(t, []string{"Module", "*ast.ExprStmt", "BinOp:*"}, visited)
}

func TestPreorderComprehension(t *testing.T) {
	// [x for x in xs if x > 0]
	comp := &ListComp{
		Elt: name("x"),
		Generators: []*Comprehension{{
			Target: name("x"),
			Iter:   name("xs"),
			Ifs:    []Expr{&Compare{Left: name("x"), Ops: []CmpOp{Gt}, Comparators: []Expr{constant(int64(0))}}},
		}},
	}
	var visited []string
	for n := range Preorder(comp) {
		visited = append(visited, describe(n))
	}
	require.Equal(t, []string{
		"ListComp", "Name:x", "Name:xs", "Compare", "Name:x", "Constant:0", "Name:x",
	}, visited)
}

func TestPreorderStopsEarly(t *testing.T) {
	module := &Module{Body: []Stmt{&Pass{}, &Pass{}, &Pass{}}}
	count := 0
	for range Preorder(module) {
		count++
		if count == 2 {
			break
		}
	}
	require.Equal(t, 2, count)
}

func TestChildrenSkipsMissingParts(t *testing.T) {
	ret := &Return{}
	require.Empty(t, Children(ret))

	raise := &Raise{Exc: name("E")}
	require.Len(t, Children(raise), 1)

	handler := &ExceptHandler{Body: []Stmt{&Pass{}}}
	try := &Try{Body: []Stmt{&Pass{}}, Handlers: []*ExceptHandler{handler}}
	require.Equal(t, []Node{try.Body[0], handler}, Children(try))
}
