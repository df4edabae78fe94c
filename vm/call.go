package vm

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/deepnoodle-ai/slither/bytecode"
	"github.com/deepnoodle-ai/slither/object"
	"github.com/deepnoodle-ai/slither/op"
)

// callFunction runs a bytecode function in a new frame. It is installed in
// the context as the object.CallFunc of this VM.
func (vm *VirtualMachine) callFunction(ctx context.Context, fn *object.Function, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if vm.depth >= vm.maxFrameDepth {
		return nil, object.Errorf("RecursionError", "maximum recursion depth exceeded")
	}
	c := vm.loadCode(fn.Code())
	f := newFrame(c, fn.Globals(), nil, vm.depth+1)
	f.fn = fn
	if err := bindArguments(f, fn, args, kwargs); err != nil {
		return nil, err
	}
	f.bindClosure(fn.Closure())
	f.initCells()

	vm.depth++
	defer func() { vm.depth-- }()

	if vm.observer != nil && vm.observerCfg.ObserveCalls {
		event := CallEvent{
			FunctionName: fn.QualName(),
			ArgCount:     len(args) + kwargs.Len(),
			Location:     bytecode.SourceLocation{Line: c.FirstLineNo()},
			FrameDepth:   f.depth + 1,
		}
		if !vm.observer.OnCall(event) {
			return nil, ErrHalted
		}
	}
	result, err := vm.eval(ctx, f)
	if vm.observer != nil && vm.observerCfg.ObserveReturns && !isFatal(err) {
		event := ReturnEvent{
			FunctionName: fn.QualName(),
			Location:     c.LocationAt(f.lastIP),
			FrameDepth:   f.depth,
			Raised:       err != nil,
		}
		if !vm.observer.OnReturn(event) {
			return nil, ErrHalted
		}
	}
	return result, err
}

// bindArguments fills the parameter slots of f from a call's arguments.
// Slots are ordered positional, keyword-only, *args, **kwargs.
func bindArguments(f *frame, fn *object.Function, args []object.Object, kwargs *object.Dict) error {
	c := f.code
	name := fn.QualName()
	nargs := c.ArgCount()
	nkwonly := c.KwOnlyArgCount()
	varArgs := c.HasFlag(bytecode.FlagVarArgs)
	varKeywords := c.HasFlag(bytecode.FlagVarKeywords)
	defaults := fn.Defaults()

	slot := nargs + nkwonly
	varArgsSlot, varKeywordsSlot := -1, -1
	if varArgs {
		varArgsSlot = slot
		slot++
	}
	if varKeywords {
		varKeywordsSlot = slot
	}

	npos := min(len(args), nargs)
	copy(f.fast, args[:npos])
	if len(args) > nargs {
		if !varArgs {
			return tooManyPositional(name, nargs, len(defaults), len(args))
		}
		rest := make([]object.Object, len(args)-nargs)
		copy(rest, args[nargs:])
		f.fast[varArgsSlot] = object.NewTuple(rest)
	} else if varArgs {
		f.fast[varArgsSlot] = object.NewTuple(nil)
	}

	var extra *object.Dict
	if varKeywords {
		extra = object.NewDict()
		f.fast[varKeywordsSlot] = extra
	}
	for _, key := range kwargs.StrKeys() {
		value, _ := kwargs.GetStr(key)
		idx := slices.Index(c.varNames[:nargs+nkwonly], key)
		if idx < 0 {
			if extra == nil {
				return object.TypeErrorf("%s() got an unexpected keyword argument '%s'", name, key)
			}
			extra.SetStr(key, value)
			continue
		}
		if f.fast[idx] != nil {
			return object.TypeErrorf("%s() got multiple values for argument '%s'", name, key)
		}
		f.fast[idx] = value
	}

	firstDefault := nargs - len(defaults)
	var missing []string
	for i := 0; i < nargs; i++ {
		if f.fast[i] != nil {
			continue
		}
		if i >= firstDefault {
			f.fast[i] = defaults[i-firstDefault]
			continue
		}
		missing = append(missing, c.varNames[i])
	}
	if len(missing) > 0 {
		return missingArguments(name, "positional", missing)
	}

	missing = nil
	kwDefaults := fn.KwDefaults()
	for i := nargs; i < nargs+nkwonly; i++ {
		if f.fast[i] != nil {
			continue
		}
		if value, ok := kwDefaults.GetStr(c.varNames[i]); ok {
			f.fast[i] = value
			continue
		}
		missing = append(missing, c.varNames[i])
	}
	if len(missing) > 0 {
		return missingArguments(name, "keyword-only", missing)
	}
	return nil
}

func tooManyPositional(name string, nargs, ndefaults, given int) error {
	takes := fmt.Sprintf("%d positional argument%s", nargs, plural(nargs))
	if ndefaults > 0 {
		takes = fmt.Sprintf("from %d to %d positional arguments", nargs-ndefaults, nargs)
	}
	verb := "were"
	if given == 1 {
		verb = "was"
	}
	return object.TypeErrorf("%s() takes %s but %d %s given", name, takes, given, verb)
}

func missingArguments(name, kind string, missing []string) error {
	quoted := make([]string, len(missing))
	for i, m := range missing {
		quoted[i] = "'" + m + "'"
	}
	var list string
	switch len(quoted) {
	case 1:
		list = quoted[0]
	case 2:
		list = quoted[0] + " and " + quoted[1]
	default:
		list = strings.Join(quoted[:len(quoted)-1], ", ") + ", and " + quoted[len(quoted)-1]
	}
	return object.TypeErrorf("%s() missing %d required %s argument%s: %s",
		name, len(missing), kind, plural(len(missing)), list)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// makeFunction pops the operands of MakeFunction: the qualified name and
// code, then the closure, keyword defaults and defaults selected by flags.
func (vm *VirtualMachine) makeFunction(f *frame, flags int) object.Object {
	qualName := f.pop().(*object.Str).Value()
	fnCode := f.pop().(*object.CodeValue).Code()
	params := object.FunctionParams{
		Code:     fnCode,
		Globals:  f.globals,
		QualName: qualName,
	}
	if flags&op.FuncClosure != 0 {
		items := f.pop().(*object.Tuple).Items()
		params.Closure = make([]*object.Cell, len(items))
		for i, item := range items {
			params.Closure[i] = item.(*object.Cell)
		}
	}
	if flags&op.FuncKwDefaults != 0 {
		params.KwDefaults = f.pop().(*object.Dict)
	}
	if flags&op.FuncDefaults != 0 {
		params.Defaults = f.pop().(*object.Tuple).Items()
	}
	return object.NewFunction(params)
}

// zeroArgSuper resolves super() from the method's __class__ cell and its
// first argument.
func (vm *VirtualMachine) zeroArgSuper(f *frame) (object.Object, error) {
	c := f.code
	idx := slices.Index(c.freeVars, "__class__")
	if idx < 0 {
		return nil, object.RuntimeErrorf("super(): __class__ cell not found")
	}
	if c.ArgCount() == 0 {
		return nil, object.RuntimeErrorf("super(): no arguments")
	}
	cls, ok := f.cells[len(c.cellVars)+idx].Get().(*object.Class)
	if !ok {
		return nil, object.RuntimeErrorf("super(): empty __class__ cell")
	}
	self := f.fast[0]
	for i, slot := range c.cellArgs {
		if slot == 0 {
			self = f.cells[i].Get()
		}
	}
	if self == nil {
		return nil, object.RuntimeErrorf("super(): arg[0] deleted")
	}
	return object.NewSuper(cls, self)
}
