// Package op defines opcodes used by the Slither compiler and virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop            Code = 1
	Call           Code = 2 // operand: positional argument count
	CallKw         Code = 3 // operand: total argument count, TOS is a tuple of keyword names
	CallEx         Code = 4 // operand: 1 if a kwargs dict sits above the args tuple
	Return         Code = 5
	MakeFunction   Code = 6 // operand: flags (FuncDefaults, FuncKwDefaults, FuncClosure)
	LoadBuildClass Code = 7

	// Jump (operands are absolute instruction offsets)
	Jump             Code = 10
	PopJumpIfFalse   Code = 11
	PopJumpIfTrue    Code = 12
	JumpIfFalseOrPop Code = 13
	JumpIfTrueOrPop  Code = 14

	// Load
	LoadConst   Code = 20
	LoadFast    Code = 21
	LoadGlobal  Code = 22
	LoadName    Code = 23
	LoadDeref   Code = 24
	LoadClosure Code = 25
	LoadAttr    Code = 26

	// Store
	StoreFast   Code = 30
	StoreGlobal Code = 31
	StoreName   Code = 32
	StoreDeref  Code = 33
	StoreAttr   Code = 34

	// Delete
	DeleteFast   Code = 35
	DeleteGlobal Code = 36
	DeleteName   Code = 37
	DeleteDeref  Code = 38
	DeleteAttr   Code = 39

	// Binary operations
	BinaryAdd         Code = 40
	BinarySubtract    Code = 41
	BinaryMultiply    Code = 42
	BinaryTrueDivide  Code = 43
	BinaryFloorDivide Code = 44
	BinaryMod         Code = 45
	BinaryPower       Code = 46
	BinaryLShift      Code = 47
	BinaryRShift      Code = 48
	BinaryAnd         Code = 49
	BinaryOr          Code = 50
	BinaryXor         Code = 51
	BinaryMatMul      Code = 52
	InplaceOp         Code = 53 // operand: the binary opcode to apply in place

	// Unary and comparison operations
	UnaryNegative Code = 55
	UnaryPositive Code = 56
	UnaryInvert   Code = 57
	UnaryNot      Code = 58
	CompareOp     Code = 59 // operand: CompareOpType
	IsOp          Code = 60 // operand: 1 for "is not"
	ContainsOp    Code = 61 // operand: 1 for "not in"

	// Build
	BuildTuple  Code = 65
	BuildList   Code = 66
	BuildSet    Code = 67
	BuildDict   Code = 68 // operand: number of key/value pairs
	BuildString Code = 69
	BuildSlice  Code = 70 // operand: 2 or 3
	FormatValue Code = 71 // operand: conversion | FormatWithSpec
	ListAppend  Code = 72 // operand: depth of the list below the appended item
	SetAdd      Code = 73
	MapAdd      Code = 74
	ListExtend  Code = 75
	SetUpdate   Code = 76
	DictUpdate  Code = 77
	DictMerge   Code = 78 // like DictUpdate but duplicate keys are an error
	ListToTuple Code = 79

	// Containers
	BinarySubscr   Code = 80
	StoreSubscr    Code = 81
	DeleteSubscr   Code = 82
	UnpackSequence Code = 83 // operand: element count
	UnpackEx       Code = 84 // operand: before | after<<8

	// Stack
	PopTop    Code = 90
	RotTwo    Code = 91
	RotThree  Code = 92
	DupTop    Code = 93
	DupTopTwo Code = 94

	// Iteration
	GetIter Code = 100
	ForIter Code = 101 // operand: jump target when the iterator is exhausted

	// Exception handling
	SetupExcept     Code = 110 // operand: handler offset
	SetupFinally    Code = 111 // operand: handler offset
	SetupWith       Code = 112 // operand: exit handler offset
	PopBlock        Code = 113
	PopExcept       Code = 114
	Raise           Code = 115 // operand: 0 (re-raise), 1 (exception) or 2 (exception and cause)
	Reraise         Code = 116
	CheckExcMatch   Code = 117
	WithExceptStart Code = 118

	// Imports
	ImportName Code = 120 // operand: names index of the dotted module name
	ImportFrom Code = 121 // operand: names index of the attribute
	ImportStar Code = 122
)

// MakeFunction flags.
const (
	FuncDefaults   = 0x01
	FuncKwDefaults = 0x02
	FuncClosure    = 0x08
)

// FormatValue operand bits. The low two bits select the conversion.
const (
	FormatNone     = 0x00
	FormatStr      = 0x01
	FormatRepr     = 0x02
	FormatASCII    = 0x03
	FormatWithSpec = 0x04
)

// CompareOpType describes a type of comparison operation. For example, less
// than, greater than, equal, etc.
type CompareOpType uint16

const (
	LessThan           CompareOpType = 1
	LessThanOrEqual    CompareOpType = 2
	Equal              CompareOpType = 3
	NotEqual           CompareOpType = 4
	GreaterThan        CompareOpType = 5
	GreaterThanOrEqual CompareOpType = 6
)

// String returns a string representation of the comparison operation.
// For example "<" for less than.
func (cop CompareOpType) String() string {
	switch cop {
	case LessThan:
		return "<"
	case LessThanOrEqual:
		return "<="
	case Equal:
		return "=="
	case NotEqual:
		return "!="
	case GreaterThan:
		return ">"
	case GreaterThanOrEqual:
		return ">="
	default:
		return ""
	}
}

// Info contains information about an opcode.
type Info struct {
	Code         Code
	Name         string
	OperandCount int
	// Jump is set for opcodes whose operand is an instruction offset.
	Jump bool
}

var infos = make([]Info, 256)

var byName = map[string]Code{}

func init() {
	type opInfo struct {
		op    Code
		name  string
		count int
		jump  bool
	}
	ops := []opInfo{
		{Nop, "NOP", 0, false},
		{Call, "CALL", 1, false},
		{CallKw, "CALL_KW", 1, false},
		{CallEx, "CALL_EX", 1, false},
		{Return, "RETURN", 0, false},
		{MakeFunction, "MAKE_FUNCTION", 1, false},
		{LoadBuildClass, "LOAD_BUILD_CLASS", 0, false},
		{Jump, "JUMP", 1, true},
		{PopJumpIfFalse, "POP_JUMP_IF_FALSE", 1, true},
		{PopJumpIfTrue, "POP_JUMP_IF_TRUE", 1, true},
		{JumpIfFalseOrPop, "JUMP_IF_FALSE_OR_POP", 1, true},
		{JumpIfTrueOrPop, "JUMP_IF_TRUE_OR_POP", 1, true},
		{LoadConst, "LOAD_CONST", 1, false},
		{LoadFast, "LOAD_FAST", 1, false},
		{LoadGlobal, "LOAD_GLOBAL", 1, false},
		{LoadName, "LOAD_NAME", 1, false},
		{LoadDeref, "LOAD_DEREF", 1, false},
		{LoadClosure, "LOAD_CLOSURE", 1, false},
		{LoadAttr, "LOAD_ATTR", 1, false},
		{StoreFast, "STORE_FAST", 1, false},
		{StoreGlobal, "STORE_GLOBAL", 1, false},
		{StoreName, "STORE_NAME", 1, false},
		{StoreDeref, "STORE_DEREF", 1, false},
		{StoreAttr, "STORE_ATTR", 1, false},
		{DeleteFast, "DELETE_FAST", 1, false},
		{DeleteGlobal, "DELETE_GLOBAL", 1, false},
		{DeleteName, "DELETE_NAME", 1, false},
		{DeleteDeref, "DELETE_DEREF", 1, false},
		{DeleteAttr, "DELETE_ATTR", 1, false},
		{BinaryAdd, "BINARY_ADD", 0, false},
		{BinarySubtract, "BINARY_SUBTRACT", 0, false},
		{BinaryMultiply, "BINARY_MULTIPLY", 0, false},
		{BinaryTrueDivide, "BINARY_TRUE_DIVIDE", 0, false},
		{BinaryFloorDivide, "BINARY_FLOOR_DIVIDE", 0, false},
		{BinaryMod, "BINARY_MOD", 0, false},
		{BinaryPower, "BINARY_POWER", 0, false},
		{BinaryLShift, "BINARY_LSHIFT", 0, false},
		{BinaryRShift, "BINARY_RSHIFT", 0, false},
		{BinaryAnd, "BINARY_AND", 0, false},
		{BinaryOr, "BINARY_OR", 0, false},
		{BinaryXor, "BINARY_XOR", 0, false},
		{BinaryMatMul, "BINARY_MATMUL", 0, false},
		{InplaceOp, "INPLACE_OP", 1, false},
		{UnaryNegative, "UNARY_NEGATIVE", 0, false},
		{UnaryPositive, "UNARY_POSITIVE", 0, false},
		{UnaryInvert, "UNARY_INVERT", 0, false},
		{UnaryNot, "UNARY_NOT", 0, false},
		{CompareOp, "COMPARE_OP", 1, false},
		{IsOp, "IS_OP", 1, false},
		{ContainsOp, "CONTAINS_OP", 1, false},
		{BuildTuple, "BUILD_TUPLE", 1, false},
		{BuildList, "BUILD_LIST", 1, false},
		{BuildSet, "BUILD_SET", 1, false},
		{BuildDict, "BUILD_DICT", 1, false},
		{BuildString, "BUILD_STRING", 1, false},
		{BuildSlice, "BUILD_SLICE", 1, false},
		{FormatValue, "FORMAT_VALUE", 1, false},
		{ListAppend, "LIST_APPEND", 1, false},
		{SetAdd, "SET_ADD", 1, false},
		{MapAdd, "MAP_ADD", 1, false},
		{ListExtend, "LIST_EXTEND", 1, false},
		{SetUpdate, "SET_UPDATE", 1, false},
		{DictUpdate, "DICT_UPDATE", 1, false},
		{DictMerge, "DICT_MERGE", 1, false},
		{ListToTuple, "LIST_TO_TUPLE", 0, false},
		{BinarySubscr, "BINARY_SUBSCR", 0, false},
		{StoreSubscr, "STORE_SUBSCR", 0, false},
		{DeleteSubscr, "DELETE_SUBSCR", 0, false},
		{UnpackSequence, "UNPACK_SEQUENCE", 1, false},
		{UnpackEx, "UNPACK_EX", 1, false},
		{PopTop, "POP_TOP", 0, false},
		{RotTwo, "ROT_TWO", 0, false},
		{RotThree, "ROT_THREE", 0, false},
		{DupTop, "DUP_TOP", 0, false},
		{DupTopTwo, "DUP_TOP_TWO", 0, false},
		{GetIter, "GET_ITER", 0, false},
		{ForIter, "FOR_ITER", 1, true},
		{SetupExcept, "SETUP_EXCEPT", 1, true},
		{SetupFinally, "SETUP_FINALLY", 1, true},
		{SetupWith, "SETUP_WITH", 1, true},
		{PopBlock, "POP_BLOCK", 0, false},
		{PopExcept, "POP_EXCEPT", 0, false},
		{Raise, "RAISE", 1, false},
		{Reraise, "RERAISE", 0, false},
		{CheckExcMatch, "CHECK_EXC_MATCH", 0, false},
		{WithExceptStart, "WITH_EXCEPT_START", 0, false},
		{ImportName, "IMPORT_NAME", 1, false},
		{ImportFrom, "IMPORT_FROM", 1, false},
		{ImportStar, "IMPORT_STAR", 0, false},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:         o.name,
			Code:         o.op,
			OperandCount: o.count,
			Jump:         o.jump,
		}
		byName[o.name] = o.op
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}

// Lookup returns the opcode with the given name, e.g. "LOAD_FAST".
func Lookup(name string) (Code, bool) {
	code, ok := byName[name]
	return code, ok
}

// String returns the opcode name.
func (c Code) String() string {
	if info := GetInfo(c); info.Name != "" {
		return info.Name
	}
	return "INVALID"
}

// IsBinary returns true for the Binary* opcodes.
func IsBinary(c Code) bool {
	return c >= BinaryAdd && c <= BinaryMatMul
}

// BinarySymbol returns the operator a binary opcode implements, e.g. "+".
func BinarySymbol(c Code) string {
	switch c {
	case BinaryAdd:
		return "+"
	case BinarySubtract:
		return "-"
	case BinaryMultiply:
		return "*"
	case BinaryTrueDivide:
		return "/"
	case BinaryFloorDivide:
		return "//"
	case BinaryMod:
		return "%"
	case BinaryPower:
		return "**"
	case BinaryLShift:
		return "<<"
	case BinaryRShift:
		return ">>"
	case BinaryAnd:
		return "&"
	case BinaryOr:
		return "|"
	case BinaryXor:
		return "^"
	case BinaryMatMul:
		return "@"
	default:
		return ""
	}
}
