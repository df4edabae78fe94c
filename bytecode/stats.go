package bytecode

// Stats contains statistics about compiled bytecode.
// This is useful for auditing scripts before execution.
type Stats struct {
	// InstructionCount is the total number of instruction words.
	InstructionCount int

	// ConstantCount is the total size of the constant pools.
	ConstantCount int

	// CodeCount is the number of nested code blocks.
	CodeCount int

	// SourceBytes is the size of the original source code in bytes.
	SourceBytes int
}
