package vm

import (
	"context"
	"strings"

	"github.com/deepnoodle-ai/slither/object"
)

// importName implements ImportName. A plain "import a.b.c" binds the
// top-level package, so it is returned when there is no from-list; from
// imports receive the named module itself.
func (vm *VirtualMachine) importName(ctx context.Context, f *frame, name string, levelObj, fromList object.Object) (object.Object, error) {
	level, err := object.AsInt(levelObj)
	if err != nil {
		return nil, err
	}
	module, err := vm.importModule(ctx, f, strings.Repeat(".", int(level))+name)
	if err != nil {
		return nil, err
	}
	if fromList != object.None || level > 0 || !strings.Contains(name, ".") {
		return module, nil
	}
	top, _, _ := strings.Cut(name, ".")
	return vm.importModule(ctx, f, top)
}

func (vm *VirtualMachine) importModule(ctx context.Context, f *frame, specifier string) (*object.Module, error) {
	if module, ok := vm.modules[specifier]; ok {
		return module, nil
	}
	if vm.importer == nil {
		return nil, object.Errorf("ModuleNotFoundError", "No module named '%s'", strings.TrimLeft(specifier, "."))
	}
	vm.logger.Debug().
		Str("run_id", vm.runID.String()).
		Str("module", specifier).
		Str("requester", f.globals.Name()).
		Msg("import")
	return vm.importer.ResolveAndLoad(ctx, specifier, f.globals.Name())
}

// importFrom reads name from a module, importing it as a submodule when
// the module has no such attribute.
func (vm *VirtualMachine) importFrom(ctx context.Context, moduleObj object.Object, name string) (object.Object, error) {
	value, err := object.GetAttribute(ctx, moduleObj, name)
	if err == nil {
		return value, nil
	}
	if !object.AsException(err).IsInstance("AttributeError") {
		return nil, err
	}
	module, ok := moduleObj.(*object.Module)
	if !ok {
		return nil, object.Errorf("ImportError", "cannot import name '%s'", name)
	}
	if vm.importer != nil {
		sub, subErr := vm.importer.ResolveAndLoad(ctx, module.Name()+"."+name, module.Name())
		if subErr == nil {
			return sub, nil
		}
		if !object.AsException(subErr).IsInstance("ModuleNotFoundError") {
			return nil, subErr
		}
	}
	return nil, object.Errorf("ImportError", "cannot import name '%s' from '%s' (%s)", name, module.Name(), module.Path())
}

// importStar copies the public names of a module, or the names listed in
// its __all__, into the current namespace.
func (vm *VirtualMachine) importStar(ctx context.Context, f *frame, moduleObj object.Object) error {
	module, ok := moduleObj.(*object.Module)
	if !ok {
		return object.TypeErrorf("import * expects a module, got '%s'", object.TypeName(moduleObj))
	}
	target := f.locals
	if target == nil {
		target = f.globals.Dict()
	}
	var names []string
	if all, ok := module.Global("__all__"); ok {
		items, err := object.ToSlice(ctx, all)
		if err != nil {
			return err
		}
		for _, item := range items {
			s, err := object.AsString(item)
			if err != nil {
				return object.TypeErrorf("Item in %s.__all__ must be str, not %s", module.Name(), object.TypeName(item))
			}
			names = append(names, s)
		}
	} else {
		for _, name := range module.Dict().StrKeys() {
			if !strings.HasPrefix(name, "_") {
				names = append(names, name)
			}
		}
	}
	for _, name := range names {
		value, ok := module.Global(name)
		if !ok {
			return object.AttributeErrorf("module '%s' has no attribute '%s'", module.Name(), name)
		}
		target.SetStr(name, value)
	}
	return nil
}
