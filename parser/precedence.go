package parser

import (
	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/internal/token"
)

// Precedence order for operators
const (
	_ int = iota
	LOWEST
	TERNARY // a if c else b
	OR      // or
	AND     // and
	NOT     // not x
	COMPARE // < > == != <= >= in, not in, is, is not
	BITOR   // |
	BITXOR  // ^
	BITAND  // &
	SHIFT   // << >>
	SUM     // + -
	PRODUCT // * / // % @
	UNARY   // -x +x ~x
	POWER   // **
	CALL    // f(x), x[i], x.attr
)

// Precedences for each infix token type
var precedences = map[token.Type]int{
	token.IF:           TERNARY,
	token.OR:           OR,
	token.AND:          AND,
	token.EQ:           COMPARE,
	token.NOT_EQ:       COMPARE,
	token.LT:           COMPARE,
	token.LT_EQUALS:    COMPARE,
	token.GT:           COMPARE,
	token.GT_EQUALS:    COMPARE,
	token.IN:           COMPARE,
	token.IS:           COMPARE,
	token.PIPE:         BITOR,
	token.CARET:        BITXOR,
	token.AMPERSAND:    BITAND,
	token.LT_LT:        SHIFT,
	token.GT_GT:        SHIFT,
	token.PLUS:         SUM,
	token.MINUS:        SUM,
	token.ASTERISK:     PRODUCT,
	token.SLASH:        PRODUCT,
	token.DOUBLE_SLASH: PRODUCT,
	token.PERCENT:      PRODUCT,
	token.AT:           PRODUCT,
	token.POW:          POWER,
	token.LPAREN:       CALL,
	token.LBRACKET:     CALL,
	token.PERIOD:       CALL,
}

var comparisonOps = map[token.Type]ast.CmpOp{
	token.EQ:        ast.Eq,
	token.NOT_EQ:    ast.NotEq,
	token.LT:        ast.Lt,
	token.LT_EQUALS: ast.LtE,
	token.GT:        ast.Gt,
	token.GT_EQUALS: ast.GtE,
	token.IN:        ast.In,
}
