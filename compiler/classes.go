package compiler

import (
	"github.com/deepnoodle-ai/slither/ast"
	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/errors"
	"github.com/deepnoodle-ai/slither/op"
)

// compileClassDef compiles a class statement into a call of the class
// builder with the body function, the class name and the bases.
func (c *Compiler) compileClassDef(s *ast.ClassDef) error {
	for _, base := range s.Bases {
		if starred, ok := base.(*ast.Starred); ok {
			return c.errorAt(starred.StarPos, errors.E2012, "starred base classes are not supported")
		}
	}
	for _, kw := range s.Keywords {
		if kw.Arg == "" {
			return c.errorAt(kw.ArgPos, errors.E2012, "keyword unpacking in class bases is not supported")
		}
	}
	classIdx, err := c.defineClass(s)
	if err != nil {
		return err
	}
	if err := c.compileDecorators(s.DecoratorList); err != nil {
		return err
	}
	c.setPos(s.ClassPos)
	c.emit(op.LoadBuildClass)

	scope := c.scopes[s]
	qualName := c.qualify(s.Name)
	outer := c.cur
	c.cur = c.newUnit(scope, s.Name, qualName, s.ClassPos.LineNumber())
	u := c.cur
	u.flags = bytecode.FlagClassBody
	c.nameOp("__name__", loadName)
	c.nameOp("__module__", storeName)
	c.loadConst(qualName)
	c.nameOp("__qualname__", storeName)
	if err := c.compileStmts(s.Body); err != nil {
		c.cur = outer
		return err
	}
	if scope.needsClassCell {
		u.flags |= bytecode.FlagUsesSuperRef
		c.emit(op.LoadClosure, u.derefIndex(classCellName))
		c.nameOp("__classcell__", storeName)
	}
	c.emitReturnNone()
	methods := u.methods
	code, err := c.finish()
	if err != nil {
		c.cur = outer
		return err
	}
	for name, method := range methods {
		c.classes.AddMethod(classIdx, name, method)
	}

	c.setPos(s.ClassPos)
	c.makeClosure(code, 0)
	c.loadConst(s.Name)
	for _, base := range s.Bases {
		if err := c.compileExpr(base); err != nil {
			return err
		}
	}
	argc := 2 + len(s.Bases)
	if len(s.Keywords) == 0 {
		c.setPos(s.ClassPos)
		c.emit(op.Call, uint16(argc))
	} else {
		names := make(bytecode.Tuple, 0, len(s.Keywords))
		for _, kw := range s.Keywords {
			if err := c.compileExpr(kw.Value); err != nil {
				return err
			}
			names = append(names, kw.Arg)
		}
		c.loadConst(names)
		c.setPos(s.ClassPos)
		c.emit(op.CallKw, uint16(argc+len(s.Keywords)))
	}
	c.applyDecorators(s.DecoratorList)
	c.nameOp(s.Name, storeName)
	return nil
}

// defineClass records the class in the compile-time hierarchy. A base is
// linked only when it names a class statement that is the sole binding of
// that name in the current scope; anything else is an external class.
func (c *Compiler) defineClass(s *ast.ClassDef) (int, error) {
	bases := make([]int, 0, len(s.Bases))
	for _, base := range s.Bases {
		if idx, ok := c.linkedBase(base); ok {
			bases = append(bases, idx)
			continue
		}
		bases = append(bases, c.classes.DefineExternal(base.String()))
	}
	idx, err := c.classes.Define(s.Name, bases)
	if err != nil {
		return -1, c.errorAt(s.ClassPos, errors.E2011, "%s", err.Error())
	}
	c.classIndex[s] = idx
	c.logger.Debug().
		Str("class", s.Name).
		Strs("mro", c.classes.MRONames(idx)).
		Msg("class linearized")
	return idx, nil
}

func (c *Compiler) linkedBase(base ast.Expr) (int, bool) {
	name, ok := base.(*ast.Name)
	if !ok {
		return 0, false
	}
	def, ok := c.cur.scope.classBinding(name.Id)
	if !ok {
		return 0, false
	}
	idx, ok := c.classIndex[def]
	return idx, ok
}
