// Package compiler compiles a parsed module into bytecode.
//
// # Two-Pass Compilation Strategy
//
// The first pass walks the AST and builds a tree of scopes, one per module,
// function, lambda and class body. Once the whole tree is known, every name
// is classified as local, global, cell or free. A name can only be known to
// be captured after the inner function that captures it has been seen, which
// is why the classification cannot happen while emitting code.
//
// The second pass emits instructions. Each function, lambda and class body
// is compiled into its own unit, which becomes an immutable *bytecode.Code
// stored as a constant of the enclosing code.
//
// # Name Resolution
//
//   - Local: function locals, accessed via LoadFast/StoreFast
//   - Global: declared global, or unbound in a function, via LoadGlobal/StoreGlobal
//   - Cell and Free: captured variables, accessed via LoadDeref/StoreDeref
//   - Module and class body names: accessed via LoadName/StoreName
//
// # Control Flow
//
// Jump operands are absolute instruction offsets. Loops, try blocks and with
// blocks are tracked on a stack of frame blocks so that return, break and
// continue can run the cleanup of every block they cross, including inlined
// copies of finally bodies.
package compiler

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/internal/token"
	"github.com/deepnoodle-ai/slither/mro"
	"github.com/deepnoodle-ai/slither/op"
	"github.com/deepnoodle-ai/slither/parser"
)

const (
	// MaxIndex is the largest constant, name or local index an operand can
	// address.
	MaxIndex = math.MaxUint16

	// Placeholder is a temporary jump target, always replaced before
	// compilation is complete.
	Placeholder = uint16(math.MaxUint16)
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithFilename sets the filename recorded in code objects and errors.
func WithFilename(filename string) Option {
	return func(c *Compiler) {
		c.filename = filename
	}
}

// WithSource sets the source text used for error messages and tracebacks.
func WithSource(source string) Option {
	return func(c *Compiler) {
		c.source = source
	}
}

// WithLogger sets the logger used for compiler debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// WithOptimize sets the optimization level. At level 1 and above, assert
// statements are removed.
func WithOptimize(level int) Option {
	return func(c *Compiler) {
		c.optimize = level
	}
}

// Compiler compiles modules into bytecode. A Compiler is not safe for
// concurrent use; create one per compilation unit.
type Compiler struct {
	filename string
	source   string
	lines    []string
	logger   zerolog.Logger
	optimize int

	// The unit currently being compiled. This changes as we enter and
	// leave functions and class bodies.
	cur *unit

	scopes map[ast.Node]*symbolScope

	// Compile-time class hierarchy of this unit
	classes    *mro.Table
	classIndex map[*ast.ClassDef]int

	// Position of the node being compiled, used for the source map
	pos token.Position
}

// New returns a new Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		filename:   "<string>",
		logger:     zerolog.Nop(),
		classes:    mro.NewTable(),
		classIndex: map[*ast.ClassDef]int{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classes returns the class hierarchy recorded while compiling.
func (c *Compiler) Classes() *mro.Table {
	return c.classes
}

// CompileModuleSource parses and compiles a module, returning its root code
// object. Errors are *errors.LexError, *errors.SyntaxError or
// *errors.CompileError.
func CompileModuleSource(source string, opts ...Option) (*bytecode.Code, error) {
	c := New(append([]Option{WithSource(source)}, opts...)...)
	module, err := parser.Parse(context.Background(), source, parser.WithFilename(c.filename))
	if err != nil {
		return nil, err
	}
	return c.Compile(module)
}

// CompileExpressionSource parses and compiles a single expression into a
// code object that returns its value.
func CompileExpressionSource(source string, opts ...Option) (*bytecode.Code, error) {
	c := New(append([]Option{WithSource(source)}, opts...)...)
	expr, err := parser.ParseExpression(context.Background(), source, parser.WithFilename(c.filename))
	if err != nil {
		return nil, err
	}
	return c.CompileExpression(expr)
}

// Compile compiles a module. The result is the module's root code object,
// named "<module>".
func (c *Compiler) Compile(module *ast.Module) (*bytecode.Code, error) {
	root, scopes, err := c.buildSymbols(module.Body, module)
	if err != nil {
		return nil, err
	}
	c.scopes = scopes
	c.cur = c.newUnit(root, "<module>", "<module>", 1)
	if err := c.compileStmts(module.Body); err != nil {
		return nil, err
	}
	c.emitReturnNone()
	return c.finish()
}

// CompileExpression compiles a single expression into a code object whose
// result is the value of the expression.
func (c *Compiler) CompileExpression(expr ast.Expr) (*bytecode.Code, error) {
	body := []ast.Stmt{&ast.ExprStmt{X: expr}}
	root, scopes, err := c.buildSymbols(body, expr)
	if err != nil {
		return nil, err
	}
	c.scopes = scopes
	c.cur = c.newUnit(root, "<expr>", "<expr>", expr.Pos().LineNumber())
	if err := c.compileExpr(expr); err != nil {
		return nil, err
	}
	c.emit(op.Return)
	return c.finish()
}

// finish converts the current unit into an immutable code object and
// returns to the enclosing unit.
func (c *Compiler) finish() (*bytecode.Code, error) {
	u := c.cur
	if err := u.checkLimits(c); err != nil {
		return nil, err
	}
	code := u.toCode(c)
	c.logger.Debug().
		Str("name", code.QualName()).
		Str("file", c.filename).
		Int("instructions", code.InstructionCount()).
		Int("constants", code.ConstantCount()).
		Msg("compiled unit")
	c.cur = u.parent
	return code, nil
}

func (c *Compiler) setPos(pos token.Position) {
	if pos.IsValid() {
		c.pos = pos
	}
}

func (c *Compiler) location() bytecode.SourceLocation {
	return bytecode.SourceLocation{Line: c.pos.LineNumber(), Column: c.pos.ColumnNumber()}
}

func (c *Compiler) emit(opcode op.Code, operands ...uint16) int {
	inst := makeInstruction(opcode, operands...)
	u := c.cur
	pos := len(u.instructions)
	u.instructions = append(u.instructions, inst...)
	// Record source location for each instruction word
	loc := c.location()
	for range inst {
		u.locations = append(u.locations, loc)
	}
	return pos
}

func makeInstruction(opcode op.Code, operands ...uint16) []op.Code {
	instruction := make([]op.Code, 0, 1+len(operands))
	instruction = append(instruction, opcode)
	for _, o := range operands {
		instruction = append(instruction, op.Code(o))
	}
	return instruction
}

func (c *Compiler) currentPosition() int {
	return len(c.cur.instructions)
}

func (c *Compiler) changeOperand(instructionIndex int, operand uint16) {
	c.cur.instructions[instructionIndex+1] = op.Code(operand)
}

// patchJump points the jump at instructionIndex to the current position.
func (c *Compiler) patchJump(instructionIndex int) {
	c.changeOperand(instructionIndex, uint16(c.currentPosition()))
}

func (c *Compiler) emitJump(opcode op.Code, target int) int {
	return c.emit(opcode, uint16(target))
}

func (c *Compiler) constant(value any) uint16 {
	return c.cur.addConstant(value)
}

func (c *Compiler) loadConst(value any) {
	c.emit(op.LoadConst, c.constant(value))
}

func (c *Compiler) emitReturnNone() {
	c.loadConst(nil)
	c.emit(op.Return)
}

type nameContext int

const (
	loadName nameContext = iota
	storeName
	deleteName
)

var nameOps = map[Scope][3]op.Code{
	Local:          {op.LoadFast, op.StoreFast, op.DeleteFast},
	GlobalExplicit: {op.LoadGlobal, op.StoreGlobal, op.DeleteGlobal},
	Free:           {op.LoadDeref, op.StoreDeref, op.DeleteDeref},
}

var namespaceOps = [3]op.Code{op.LoadName, op.StoreName, op.DeleteName}

// nameOp emits the load, store or delete of a name according to its scope.
func (c *Compiler) nameOp(name string, ctx nameContext) {
	u := c.cur
	scope := u.scope.Resolve(name)
	inFunction := u.scope.kind == functionScope
	switch scope {
	case Free, Cell:
		c.emit(nameOps[Free][ctx], u.derefIndex(name))
	case Local:
		if inFunction {
			c.emit(nameOps[Local][ctx], u.varIndex[name])
			return
		}
		c.emit(namespaceOps[ctx], u.addName(name))
	case GlobalExplicit:
		c.emit(nameOps[GlobalExplicit][ctx], u.addName(name))
	default:
		if inFunction {
			c.emit(nameOps[GlobalExplicit][ctx], u.addName(name))
			return
		}
		c.emit(namespaceOps[ctx], u.addName(name))
	}
}

// qualify returns the qualified name of a function or class defined in the
// current unit.
func (c *Compiler) qualify(name string) string {
	u := c.cur
	switch u.scope.kind {
	case functionScope:
		return u.qualName + ".<locals>." + name
	case classScope:
		return u.qualName + "." + name
	}
	return name
}

func (c *Compiler) errorAt(pos token.Position, code errors.ErrorCode, format string, args ...any) error {
	return errors.NewCompileError(code, errors.SourceLocation{
		Filename: c.filename,
		Line:     pos.LineNumber(),
		Column:   pos.ColumnNumber(),
		Source:   c.sourceLine(pos.Line),
	}, format, args...)
}

func (c *Compiler) errorf(code errors.ErrorCode, format string, args ...any) error {
	return c.errorAt(c.pos, code, format, args...)
}

// sourceLine returns the 0-indexed line of the source, or "".
func (c *Compiler) sourceLine(line int) string {
	if c.source == "" {
		return ""
	}
	if c.lines == nil {
		c.lines = strings.Split(c.source, "\n")
	}
	if line < 0 || line >= len(c.lines) {
		return ""
	}
	return strings.TrimRight(c.lines[line], "\r")
}

// describe names an expression kind for error messages.
func describe(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.Constant:
		if e.Value == nil || e.Value == true || e.Value == false {
			return ast.ConstantString(e.Value)
		}
		return "literal"
	case *ast.Call:
		return "function call"
	case *ast.BinOp, *ast.UnaryOp:
		return "expression"
	case *ast.BoolOp:
		return "expression"
	case *ast.Compare:
		return "comparison"
	case *ast.Lambda:
		return "lambda"
	case *ast.IfExp:
		return "conditional expression"
	case *ast.NamedExpr:
		return "named expression"
	case *ast.Dict:
		return "dict literal"
	case *ast.Set:
		return "set display"
	case *ast.ListComp:
		return "list comprehension"
	case *ast.SetComp:
		return "set comprehension"
	case *ast.DictComp:
		return "dict comprehension"
	case *ast.GeneratorExp:
		return "generator expression"
	case *ast.JoinedStr:
		return "f-string expression"
	default:
		return fmt.Sprintf("%T", expr)
	}
}
