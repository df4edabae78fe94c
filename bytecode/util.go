package bytecode

// copySlice returns a copy of src, preserving nil.
func copySlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}

// copyConstants copies a constant pool. Tuples are copied deeply so the
// caller cannot mutate them afterwards.
func copyConstants(src []any) []any {
	if src == nil {
		return nil
	}
	dst := make([]any, len(src))
	for i, value := range src {
		if tuple, ok := value.(Tuple); ok {
			value = Tuple(copyConstants(tuple))
		}
		dst[i] = value
	}
	return dst
}
