package vm

import (
	"context"
	"strings"

	"github.com/deepnoodle-ai/slither/object"
	"github.com/deepnoodle-ai/slither/op"
)

// eval runs a frame to completion. Exceptions raised inside the frame are
// routed to its handlers; an exception no handler catches is returned.
func (vm *VirtualMachine) eval(ctx context.Context, f *frame) (object.Object, error) {
	for {
		result, err := vm.dispatch(ctx, f)
		if err == nil {
			return result, nil
		}
		if isFatal(err) {
			return nil, err
		}
		exc := vm.prepareException(f, err)
		if !vm.handleException(f, exc) {
			return nil, exc
		}
	}
}

// dispatch executes instructions until the frame returns or an error is
// raised.
func (vm *VirtualMachine) dispatch(ctx context.Context, f *frame) (object.Object, error) {
	c := f.code
	instructions := c.instructions
	done := ctx.Done()
	checkInterval := vm.contextCheckInterval

	for f.ip < len(instructions) {
		if checkInterval > 0 && done != nil {
			vm.instructionCount++
			if vm.instructionCount >= checkInterval {
				vm.instructionCount = 0
				select {
				case <-done:
					return nil, ctx.Err()
				default:
				}
			}
		}

		f.lastIP = f.ip
		opcode := instructions[f.ip]

		if vm.stepper != nil && vm.stepper.shouldStep(c, f.ip) {
			event := StepEvent{
				IP:         f.ip,
				Opcode:     opcode,
				OpcodeName: op.GetInfo(opcode).Name,
				Function:   c.QualName(),
				Location:   c.LocationAt(f.ip),
				StackDepth: len(f.stack),
				FrameDepth: f.depth + 1,
			}
			if !vm.observer.OnStep(event) {
				return nil, ErrHalted
			}
		}
		f.ip++

		switch opcode {
		case op.Nop:

		// Calls and functions

		case op.Call:
			argc := f.fetch()
			args := f.popN(argc)
			fn := f.pop()
			var result object.Object
			var err error
			if argc == 0 && fn == object.Object(object.SuperClass) {
				result, err = vm.zeroArgSuper(f)
			} else {
				result, err = object.Call(ctx, fn, args, nil)
			}
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.CallKw:
			argc := f.fetch()
			names := f.pop().(*object.Tuple).Items()
			values := f.popN(argc)
			fn := f.pop()
			npos := argc - len(names)
			kwargs := object.NewDict()
			for i, name := range names {
				kwargs.SetStr(name.(*object.Str).Value(), values[npos+i])
			}
			result, err := object.Call(ctx, fn, values[:npos], kwargs)
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.CallEx:
			var kwargs *object.Dict
			if f.fetch()&1 == 1 {
				kwargs = f.pop().(*object.Dict)
			}
			args := f.pop().(*object.Tuple).Items()
			fn := f.pop()
			var result object.Object
			var err error
			if len(args) == 0 && kwargs.Len() == 0 && fn == object.Object(object.SuperClass) {
				result, err = vm.zeroArgSuper(f)
			} else {
				result, err = object.Call(ctx, fn, args, kwargs)
			}
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.Return:
			return f.pop(), nil
		case op.MakeFunction:
			f.push(vm.makeFunction(f, f.fetch()))
		case op.LoadBuildClass:
			f.push(vm.builtins["__build_class__"])

		// Jumps

		case op.Jump:
			f.ip = f.fetch()
		case op.PopJumpIfFalse, op.PopJumpIfTrue:
			target := f.fetch()
			truthy, err := object.Truthy(ctx, f.pop())
			if err != nil {
				return nil, err
			}
			if truthy == (opcode == op.PopJumpIfTrue) {
				f.ip = target
			}
		case op.JumpIfFalseOrPop, op.JumpIfTrueOrPop:
			target := f.fetch()
			truthy, err := object.Truthy(ctx, f.top())
			if err != nil {
				return nil, err
			}
			if truthy == (opcode == op.JumpIfTrueOrPop) {
				f.ip = target
			} else {
				f.pop()
			}

		// Loads

		case op.LoadConst:
			f.push(c.constants[f.fetch()])
		case op.LoadFast:
			idx := f.fetch()
			value := f.fast[idx]
			if value == nil {
				return nil, unboundLocal(c.varNames[idx])
			}
			f.push(value)
		case op.LoadGlobal:
			value, err := vm.loadGlobal(f, c.names[f.fetch()])
			if err != nil {
				return nil, err
			}
			f.push(value)
		case op.LoadName:
			value, err := vm.loadName(f, c.names[f.fetch()])
			if err != nil {
				return nil, err
			}
			f.push(value)
		case op.LoadDeref:
			idx := f.fetch()
			value := f.cells[idx].Get()
			if value == nil {
				return nil, unboundDeref(c, idx)
			}
			f.push(value)
		case op.LoadClosure:
			f.push(f.cells[f.fetch()])
		case op.LoadAttr:
			value, err := object.GetAttribute(ctx, f.pop(), c.names[f.fetch()])
			if err != nil {
				return nil, err
			}
			f.push(value)

		// Stores

		case op.StoreFast:
			f.fast[f.fetch()] = f.pop()
		case op.StoreGlobal:
			f.globals.SetGlobal(c.names[f.fetch()], f.pop())
		case op.StoreName:
			f.locals.SetStr(c.names[f.fetch()], f.pop())
		case op.StoreDeref:
			f.cells[f.fetch()].Set(f.pop())
		case op.StoreAttr:
			name := c.names[f.fetch()]
			obj := f.pop()
			value := f.pop()
			if err := object.SetAttribute(ctx, obj, name, value); err != nil {
				return nil, err
			}

		// Deletes

		case op.DeleteFast:
			idx := f.fetch()
			if f.fast[idx] == nil {
				return nil, unboundLocal(c.varNames[idx])
			}
			f.fast[idx] = nil
		case op.DeleteGlobal:
			name := c.names[f.fetch()]
			if !f.globals.Dict().DelStr(name) {
				return nil, nameError(name)
			}
		case op.DeleteName:
			name := c.names[f.fetch()]
			if !f.locals.DelStr(name) {
				return nil, nameError(name)
			}
		case op.DeleteDeref:
			idx := f.fetch()
			if f.cells[idx].Get() == nil {
				return nil, unboundDeref(c, idx)
			}
			f.cells[idx].Set(nil)
		case op.DeleteAttr:
			if err := object.DelAttribute(ctx, f.pop(), c.names[f.fetch()]); err != nil {
				return nil, err
			}

		// Operators

		case op.BinaryAdd, op.BinarySubtract, op.BinaryMultiply, op.BinaryTrueDivide,
			op.BinaryFloorDivide, op.BinaryMod, op.BinaryPower, op.BinaryLShift,
			op.BinaryRShift, op.BinaryAnd, op.BinaryOr, op.BinaryXor, op.BinaryMatMul:
			b := f.pop()
			a := f.pop()
			result, err := object.BinaryOp(ctx, opcode, a, b)
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.InplaceOp:
			binop := op.Code(f.fetch())
			b := f.pop()
			a := f.pop()
			result, err := object.InplaceOp(ctx, binop, a, b)
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.UnaryNegative, op.UnaryPositive, op.UnaryInvert:
			result, err := object.UnaryOp(ctx, opcode, f.pop())
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.UnaryNot:
			truthy, err := object.Truthy(ctx, f.pop())
			if err != nil {
				return nil, err
			}
			f.push(object.NewBool(!truthy))
		case op.CompareOp:
			cmp := op.CompareOpType(f.fetch())
			b := f.pop()
			a := f.pop()
			result, err := object.Compare(ctx, cmp, a, b)
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.IsOp:
			negate := f.fetch() == 1
			b := f.pop()
			a := f.pop()
			f.push(object.NewBool((a == b) != negate))
		case op.ContainsOp:
			negate := f.fetch() == 1
			container := f.pop()
			item := f.pop()
			found, err := object.Contains(ctx, container, item)
			if err != nil {
				return nil, err
			}
			f.push(object.NewBool(found != negate))

		// Builders

		case op.BuildTuple:
			f.push(object.NewTuple(f.popN(f.fetch())))
		case op.BuildList:
			f.push(object.NewList(f.popN(f.fetch())))
		case op.BuildSet:
			set, err := object.NewSetFrom(f.popN(f.fetch()))
			if err != nil {
				return nil, err
			}
			f.push(set)
		case op.BuildDict:
			items := f.popN(2 * f.fetch())
			dict := object.NewDict()
			for i := 0; i < len(items); i += 2 {
				if err := dict.Set(items[i], items[i+1]); err != nil {
					return nil, err
				}
			}
			f.push(dict)
		case op.BuildString:
			parts := f.popN(f.fetch())
			var sb strings.Builder
			for _, part := range parts {
				s, err := object.ToStr(ctx, part)
				if err != nil {
					return nil, err
				}
				sb.WriteString(s)
			}
			f.push(object.NewStr(sb.String()))
		case op.BuildSlice:
			var step object.Object = object.None
			if f.fetch() == 3 {
				step = f.pop()
			}
			stop := f.pop()
			start := f.pop()
			f.push(object.NewSlice(start, stop, step))
		case op.FormatValue:
			result, err := formatValue(ctx, f, f.fetch())
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.ListAppend:
			depth := f.fetch()
			item := f.pop()
			f.stack[len(f.stack)-depth].(*object.List).Append(item)
		case op.SetAdd:
			depth := f.fetch()
			item := f.pop()
			if err := f.stack[len(f.stack)-depth].(*object.Set).Add(item); err != nil {
				return nil, err
			}
		case op.MapAdd:
			depth := f.fetch()
			value := f.pop()
			key := f.pop()
			if err := f.stack[len(f.stack)-depth].(*object.Dict).Set(key, value); err != nil {
				return nil, err
			}
		case op.ListExtend:
			depth := f.fetch()
			items, err := object.ToSlice(ctx, f.pop())
			if err != nil {
				return nil, err
			}
			list := f.stack[len(f.stack)-depth].(*object.List)
			for _, item := range items {
				list.Append(item)
			}
		case op.SetUpdate:
			depth := f.fetch()
			items, err := object.ToSlice(ctx, f.pop())
			if err != nil {
				return nil, err
			}
			set := f.stack[len(f.stack)-depth].(*object.Set)
			for _, item := range items {
				if err := set.Add(item); err != nil {
					return nil, err
				}
			}
		case op.DictUpdate:
			depth := f.fetch()
			src := f.pop()
			if err := dictUpdate(ctx, f.stack[len(f.stack)-depth].(*object.Dict), src); err != nil {
				return nil, err
			}
		case op.DictMerge:
			depth := f.fetch()
			src := f.pop()
			if err := vm.dictMerge(ctx, f, depth, src); err != nil {
				return nil, err
			}
		case op.ListToTuple:
			f.push(object.NewTuple(f.pop().(*object.List).Items()))

		// Containers

		case op.BinarySubscr:
			key := f.pop()
			container := f.pop()
			result, err := object.GetItem(ctx, container, key)
			if err != nil {
				return nil, err
			}
			f.push(result)
		case op.StoreSubscr:
			key := f.pop()
			container := f.pop()
			value := f.pop()
			if err := object.SetItem(ctx, container, key, value); err != nil {
				return nil, err
			}
		case op.DeleteSubscr:
			key := f.pop()
			container := f.pop()
			if err := object.DelItem(ctx, container, key); err != nil {
				return nil, err
			}
		case op.UnpackSequence:
			if err := unpackSequence(ctx, f, f.fetch()); err != nil {
				return nil, err
			}
		case op.UnpackEx:
			arg := f.fetch()
			if err := unpackEx(ctx, f, arg&0xff, arg>>8); err != nil {
				return nil, err
			}

		// Stack

		case op.PopTop:
			f.pop()
		case op.RotTwo:
			n := len(f.stack)
			f.stack[n-1], f.stack[n-2] = f.stack[n-2], f.stack[n-1]
		case op.RotThree:
			n := len(f.stack)
			a, b, top := f.stack[n-3], f.stack[n-2], f.stack[n-1]
			f.stack[n-3], f.stack[n-2], f.stack[n-1] = top, a, b
		case op.DupTop:
			f.push(f.top())
		case op.DupTopTwo:
			n := len(f.stack)
			a, b := f.stack[n-2], f.stack[n-1]
			f.push(a)
			f.push(b)

		// Iteration

		case op.GetIter:
			iter, err := object.Iterate(ctx, f.pop())
			if err != nil {
				return nil, err
			}
			f.push(iter)
		case op.ForIter:
			target := f.fetch()
			iter := f.top().(*object.Iter)
			item, ok, err := iter.Next(ctx)
			if err != nil {
				return nil, err
			}
			if !ok {
				f.pop()
				f.ip = target
				continue
			}
			f.push(item)

		// Exception handling

		case op.SetupExcept:
			f.pushBlock(block{kind: setupExcept, handler: f.fetch(), level: len(f.stack)})
		case op.SetupFinally:
			f.pushBlock(block{kind: setupFinally, handler: f.fetch(), level: len(f.stack)})
		case op.SetupWith:
			if err := vm.setupWith(ctx, f, f.fetch()); err != nil {
				return nil, err
			}
		case op.PopBlock:
			f.popBlock()
		case op.PopExcept:
			if b, ok := f.popBlock(); ok && b.kind == exceptHandler {
				vm.active = b.prev
			} else {
				return nil, object.Errorf("SystemError", "popped block is not an except handler")
			}
		case op.Raise:
			return nil, vm.raise(ctx, f, f.fetch())
		case op.Reraise:
			return nil, vm.reraise(f.pop())
		case op.CheckExcMatch:
			typ := f.pop()
			match, err := exceptionMatches(f.top(), typ)
			if err != nil {
				return nil, err
			}
			f.push(object.NewBool(match))
		case op.WithExceptStart:
			if err := vm.withExceptStart(ctx, f); err != nil {
				return nil, err
			}

		// Imports

		case op.ImportName:
			name := c.names[f.fetch()]
			fromList := f.pop()
			level := f.pop()
			module, err := vm.importName(ctx, f, name, level, fromList)
			if err != nil {
				return nil, err
			}
			f.push(module)
		case op.ImportFrom:
			value, err := vm.importFrom(ctx, f.top(), c.names[f.fetch()])
			if err != nil {
				return nil, err
			}
			f.push(value)
		case op.ImportStar:
			if err := vm.importStar(ctx, f, f.pop()); err != nil {
				return nil, err
			}

		default:
			return nil, object.Errorf("SystemError", "unknown opcode %d", opcode)
		}
	}
	return object.None, nil
}

func (vm *VirtualMachine) loadGlobal(f *frame, name string) (object.Object, error) {
	if value, ok := f.globals.Global(name); ok {
		return value, nil
	}
	if value, ok := vm.builtins[name]; ok {
		return value, nil
	}
	return nil, nameError(name)
}

func (vm *VirtualMachine) loadName(f *frame, name string) (object.Object, error) {
	if value, ok := f.locals.GetStr(name); ok {
		return value, nil
	}
	return vm.loadGlobal(f, name)
}

func nameError(name string) error {
	return object.NameErrorf("name '%s' is not defined", name)
}

func unboundLocal(name string) error {
	return object.Errorf("UnboundLocalError", "cannot access local variable '%s' where it is not associated with a value", name)
}

func unboundDeref(c *code, idx int) error {
	name := c.derefName(idx)
	if idx < len(c.cellVars) {
		return unboundLocal(name)
	}
	return object.NameErrorf("cannot access free variable '%s' where it is not associated with a value in enclosing scope", name)
}

func formatValue(ctx context.Context, f *frame, flags int) (object.Object, error) {
	spec := ""
	if flags&op.FormatWithSpec != 0 {
		s, err := object.AsString(f.pop())
		if err != nil {
			return nil, err
		}
		spec = s
	}
	value := f.pop()
	var conversion rune
	switch flags & 0x03 {
	case op.FormatStr:
		conversion = 's'
	case op.FormatRepr:
		conversion = 'r'
	case op.FormatASCII:
		conversion = 'a'
	}
	if conversion != 0 {
		s, err := object.Convert(ctx, value, conversion)
		if err != nil {
			return nil, err
		}
		value = object.NewStr(s)
	}
	s, err := object.FormatValue(ctx, value, spec)
	if err != nil {
		return nil, err
	}
	return object.NewStr(s), nil
}

func dictUpdate(ctx context.Context, dict *object.Dict, src object.Object) error {
	switch src := src.(type) {
	case *object.Dict:
		dict.Update(src)
		return nil
	case *object.Instance:
		return dict.Merge(ctx, src)
	}
	return object.TypeErrorf("'%s' object is not a mapping", object.TypeName(src))
}

// dictMerge adds **mapping arguments of a call to the keyword dict. The
// called function sits below the positional argument tuple.
func (vm *VirtualMachine) dictMerge(ctx context.Context, f *frame, depth int, src object.Object) error {
	dict := f.stack[len(f.stack)-depth].(*object.Dict)
	fnName := "function"
	if idx := len(f.stack) - depth - 2; idx >= 0 {
		fnName = callableName(f.stack[idx])
	}
	other, ok := src.(*object.Dict)
	if !ok {
		if _, isInst := src.(*object.Instance); !isInst {
			return object.TypeErrorf("%s() argument after ** must be a mapping, not %s", fnName, object.TypeName(src))
		}
		other = object.NewDict()
		if err := other.Merge(ctx, src); err != nil {
			return err
		}
	}
	var err error
	other.Range(func(key, value object.Object) bool {
		s, ok := key.(*object.Str)
		if !ok {
			err = object.TypeErrorf("keywords must be strings")
			return false
		}
		if _, exists := dict.GetStr(s.Value()); exists {
			err = object.TypeErrorf("%s() got multiple values for keyword argument '%s'", fnName, s.Value())
			return false
		}
		dict.SetStr(s.Value(), value)
		return true
	})
	return err
}

func callableName(fn object.Object) string {
	switch fn := fn.(type) {
	case *object.Function:
		return fn.QualName()
	case *object.Builtin:
		return fn.Name()
	case *object.Class:
		return fn.Name()
	case *object.BoundMethod:
		return callableName(fn.Function())
	}
	return object.TypeName(fn)
}

func unpackItems(ctx context.Context, obj object.Object) ([]object.Object, error) {
	switch obj := obj.(type) {
	case *object.Tuple:
		return obj.Items(), nil
	case *object.List:
		return obj.Items(), nil
	}
	iter, err := object.Iterate(ctx, obj)
	if err != nil {
		if exc := object.AsException(err); exc.IsInstance("TypeError") {
			return nil, object.TypeErrorf("cannot unpack non-iterable %s object", object.TypeName(obj))
		}
		return nil, err
	}
	var items []object.Object
	for {
		item, ok, err := iter.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return items, nil
		}
		items = append(items, item)
	}
}

// unpackSequence pushes the n items of the top value so that the first item
// ends up on top.
func unpackSequence(ctx context.Context, f *frame, n int) error {
	items, err := unpackItems(ctx, f.pop())
	if err != nil {
		return err
	}
	if len(items) > n {
		return object.ValueErrorf("too many values to unpack (expected %d)", n)
	}
	if len(items) < n {
		return object.ValueErrorf("not enough values to unpack (expected %d, got %d)", n, len(items))
	}
	for i := n - 1; i >= 0; i-- {
		f.push(items[i])
	}
	return nil
}

// unpackEx unpacks with a starred target: before items, a list of the
// rest, then after items.
func unpackEx(ctx context.Context, f *frame, before, after int) error {
	items, err := unpackItems(ctx, f.pop())
	if err != nil {
		return err
	}
	if len(items) < before+after {
		return object.ValueErrorf("not enough values to unpack (expected at least %d, got %d)", before+after, len(items))
	}
	split := len(items) - after
	for i := len(items) - 1; i >= split; i-- {
		f.push(items[i])
	}
	rest := make([]object.Object, split-before)
	copy(rest, items[before:split])
	f.push(object.NewList(rest))
	for i := before - 1; i >= 0; i-- {
		f.push(items[i])
	}
	return nil
}
