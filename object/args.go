package object

import "strings"

// ParseArgs binds positional and keyword arguments to named parameters.
// A spec ending in "?" is optional; missing optional parameters are
// returned as nil.
func ParseArgs(name string, args []Object, kwargs *Dict, specs ...string) ([]Object, error) {
	out := make([]Object, len(specs))
	names := make([]string, len(specs))
	required := 0
	for i, spec := range specs {
		names[i] = strings.TrimSuffix(spec, "?")
		if !strings.HasSuffix(spec, "?") {
			required = i + 1
		}
	}
	if len(args) > len(specs) {
		return nil, TypeErrorf("%s() takes at most %d arguments (%d given)", name, len(specs), len(args))
	}
	copy(out, args)
	if kwargs != nil {
		for _, key := range kwargs.StrKeys() {
			idx := -1
			for i, n := range names {
				if n == key {
					idx = i
					break
				}
			}
			if idx < 0 {
				return nil, TypeErrorf("%s() got an unexpected keyword argument '%s'", name, key)
			}
			if out[idx] != nil {
				return nil, TypeErrorf("%s() got multiple values for argument '%s'", name, key)
			}
			out[idx], _ = kwargs.GetStr(key)
		}
	}
	for i := 0; i < required; i++ {
		if out[i] == nil {
			return nil, TypeErrorf("%s() missing required argument '%s' (pos %d)", name, names[i], i+1)
		}
	}
	return out, nil
}
