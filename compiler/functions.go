package compiler

import (
	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/op"
)

func (c *Compiler) compileDecorators(decorators []ast.Expr) error {
	for _, d := range decorators {
		if err := c.compileExpr(d); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) applyDecorators(decorators []ast.Expr) {
	for range decorators {
		c.emit(op.Call, 1)
	}
}

func (c *Compiler) compileFunctionDef(s *ast.FunctionDef) error {
	if err := c.compileDecorators(s.DecoratorList); err != nil {
		return err
	}
	code, err := c.compileFunction(s, s.Name, s.Args, func() error {
		if err := c.compileStmts(s.Body); err != nil {
			return err
		}
		if len(s.Body) == 0 {
			c.emitReturnNone()
		} else if _, ok := s.Body[len(s.Body)-1].(*ast.Return); !ok {
			c.emitReturnNone()
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.setPos(s.DefPos)
	c.applyDecorators(s.DecoratorList)
	if c.cur.scope.kind == classScope {
		c.cur.methods[s.Name] = code
	}
	c.nameOp(s.Name, storeName)
	return nil
}

func (c *Compiler) compileLambda(e *ast.Lambda) error {
	_, err := c.compileFunction(e, "<lambda>", e.Args, func() error {
		if err := c.compileExpr(e.Body); err != nil {
			return err
		}
		c.emit(op.Return)
		return nil
	})
	return err
}

// compileFunction emits the defaults, closure and MakeFunction for a def
// or lambda. The function body is compiled into a child unit by body.
func (c *Compiler) compileFunction(node ast.Node, name string, args *ast.Arguments, body func() error) (*bytecode.Code, error) {
	var flags uint16
	if args != nil && len(args.Defaults) > 0 {
		for _, d := range args.Defaults {
			if err := c.compileExpr(d); err != nil {
				return nil, err
			}
		}
		c.emit(op.BuildTuple, uint16(len(args.Defaults)))
		flags |= op.FuncDefaults
	}
	if args != nil {
		count := 0
		for i, d := range args.KwDefaults {
			if d == nil {
				continue
			}
			c.loadConst(args.KwOnlyArgs[i].Name)
			if err := c.compileExpr(d); err != nil {
				return nil, err
			}
			count++
		}
		if count > 0 {
			c.emit(op.BuildDict, uint16(count))
			flags |= op.FuncKwDefaults
		}
	}

	scope := c.scopes[node]
	qualName := c.qualify(name)
	outer := c.cur
	c.cur = c.newUnit(scope, name, qualName, node.Pos().LineNumber())
	u := c.cur
	u.flags = bytecode.FlagOptimized | bytecode.FlagNewLocals
	if outer.scope.kind == functionScope {
		u.flags |= bytecode.FlagNested
	}
	if args != nil {
		u.argCount = len(args.Args)
		u.kwOnlyArgCount = len(args.KwOnlyArgs)
		if args.Vararg != nil {
			u.flags |= bytecode.FlagVarArgs
		}
		if args.Kwarg != nil {
			u.flags |= bytecode.FlagVarKeywords
		}
	}
	if err := body(); err != nil {
		c.cur = outer
		return nil, err
	}
	code, err := c.finish()
	if err != nil {
		c.cur = outer
		return nil, err
	}
	c.setPos(node.Pos())
	c.makeClosure(code, flags)
	return code, nil
}

// makeClosure emits the closure tuple, if any, and MakeFunction for code.
func (c *Compiler) makeClosure(code *bytecode.Code, flags uint16) {
	if free := code.FreeVars(); len(free) > 0 {
		for _, name := range free {
			c.emit(op.LoadClosure, c.cur.derefIndex(name))
		}
		c.emit(op.BuildTuple, uint16(len(free)))
		flags |= op.FuncClosure
	}
	c.loadConst(code)
	c.loadConst(code.QualName())
	c.emit(op.MakeFunction, flags)
}
