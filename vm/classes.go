package vm

import (
	"context"

	"github.com/deepnoodle-ai/slither/object"
)

// buildClass implements __build_class__(func, name, *bases). The class body
// function runs with a fresh namespace, which becomes the class dictionary.
func (vm *VirtualMachine) buildClass(ctx context.Context, args []object.Object, kwargs *object.Dict) (object.Object, error) {
	if len(args) < 2 {
		return nil, object.TypeErrorf("__build_class__: not enough arguments")
	}
	body, ok := args[0].(*object.Function)
	if !ok {
		return nil, object.TypeErrorf("__build_class__: func must be a function")
	}
	nameObj, ok := args[1].(*object.Str)
	if !ok {
		return nil, object.TypeErrorf("__build_class__: name is not a string")
	}
	name := nameObj.Value()
	if kwargs.Len() > 0 {
		if _, ok := kwargs.GetStr("metaclass"); ok {
			return nil, object.TypeErrorf("metaclasses are not supported")
		}
		return nil, object.TypeErrorf("%s.__init_subclass__() takes no keyword arguments", name)
	}
	bases := make([]*object.Class, 0, len(args)-2)
	for _, base := range args[2:] {
		cls, ok := base.(*object.Class)
		if !ok {
			return nil, object.TypeErrorf("bases must be types, not '%s'", object.TypeName(base))
		}
		bases = append(bases, cls)
	}

	ns := object.NewDict()
	if err := vm.runClassBody(ctx, body, ns); err != nil {
		return nil, err
	}

	qualName := name
	if q, ok := ns.GetStr("__qualname__"); ok {
		if s, ok := q.(*object.Str); ok {
			qualName = s.Value()
		}
		ns.DelStr("__qualname__")
	}
	module := ""
	if m, ok := ns.GetStr("__module__"); ok {
		if s, ok := m.(*object.Str); ok {
			module = s.Value()
		}
	}
	classCell, _ := ns.GetStr("__classcell__")
	ns.DelStr("__classcell__")
	if _, ok := ns.GetStr("__eq__"); ok {
		if _, ok := ns.GetStr("__hash__"); !ok {
			ns.SetStr("__hash__", object.None)
		}
	}

	cls, err := vm.classes.NewClass(name, qualName, module, bases, ns)
	if err != nil {
		return nil, err
	}
	if cell, ok := classCell.(*object.Cell); ok {
		cell.Set(cls)
	}
	vm.logger.Debug().
		Str("class", qualName).
		Strs("mro", cls.MRONames()).
		Msg("class created")
	return cls, nil
}

func (vm *VirtualMachine) runClassBody(ctx context.Context, body *object.Function, ns *object.Dict) error {
	if vm.depth >= vm.maxFrameDepth {
		return object.Errorf("RecursionError", "maximum recursion depth exceeded")
	}
	vm.depth++
	defer func() { vm.depth-- }()
	f := newFrame(vm.loadCode(body.Code()), body.Globals(), ns, vm.depth)
	f.fn = body
	f.bindClosure(body.Closure())
	_, err := vm.eval(ctx, f)
	return err
}
