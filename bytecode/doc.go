// Package bytecode provides immutable representations of compiled Slither code.
//
// This package defines the output of compilation: pure data structures that
// represent compiled bytecode and its metadata. These types are created once
// during compilation and shared safely across goroutines and VM instances.
//
// # Key Types
//
//   - [Code]: an immutable compiled code block (module, function, class body)
//   - [Instruction]: one decoded opcode with its operands
//   - [SourceLocation]: maps bytecode to source positions (value type)
//
// # Code Trees
//
// Nested functions, lambdas and class bodies are stored as *Code entries in
// the constant pool of the enclosing block, so a module compiles to a single
// rooted tree. [Code.Children] lists them in pool order.
//
// # Immutability Guarantees
//
//   - No mutation methods exist on any type
//   - All fields are unexported
//   - Constructors copy input slices to prevent caller mutation
//   - Accessors return copies or values, never internal slices
//
// # Serialization
//
// A code tree round-trips through JSON ([Marshal], [Unmarshal]) and canonical
// CBOR ([MarshalCBOR], [UnmarshalCBOR]). The CBOR form backs the on-disk
// code cache.
//
// Example:
//
//	code, err := compiler.CompileModuleSource(src)
//	if err != nil {
//	    return err
//	}
//	fmt.Printf("Instructions: %d\n", code.InstructionCount())
//	for instr := range code.All() {
//	    fmt.Println(instr)
//	}
package bytecode
