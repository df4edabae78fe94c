package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Constant pool entries are one of: nil, bool, int64, *big.Int, float64,
// string, Bytes, Ellipsis, Tuple or *Code.

// Bytes is an immutable byte string constant.
type Bytes string

// Ellipsis is the "..." constant.
type Ellipsis struct{}

// Tuple is a constant tuple of constants, used for default values, keyword
// names and import lists.
type Tuple []any

// FormatConstant renders a constant the way the disassembler shows it.
func FormatConstant(value any) string {
	switch v := value.(type) {
	case nil:
		return "None"
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return strconv.Quote(v)
	case Bytes:
		return "b" + strconv.Quote(string(v))
	case Ellipsis:
		return "Ellipsis"
	case Tuple:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = FormatConstant(item)
		}
		if len(parts) == 1 {
			return "(" + parts[0] + ",)"
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case *Code:
		return fmt.Sprintf("<code %s>", v.QualName())
	default:
		return fmt.Sprintf("%v", v)
	}
}
