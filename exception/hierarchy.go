package exception

import "sort"

// parents maps each builtin exception type to its direct base.
var parents = map[string]string{
	"BaseException":     "",
	"SystemExit":        "BaseException",
	"KeyboardInterrupt": "BaseException",
	"GeneratorExit":     "BaseException",
	"Exception":         "BaseException",

	"ArithmeticError":    "Exception",
	"ZeroDivisionError":  "ArithmeticError",
	"OverflowError":      "ArithmeticError",
	"FloatingPointError": "ArithmeticError",

	"LookupError": "Exception",
	"IndexError":  "LookupError",
	"KeyError":    "LookupError",

	"OSError":                "Exception",
	"FileNotFoundError":      "OSError",
	"PermissionError":        "OSError",
	"FileExistsError":        "OSError",
	"IsADirectoryError":      "OSError",
	"NotADirectoryError":     "OSError",
	"ConnectionError":        "OSError",
	"BrokenPipeError":        "ConnectionError",
	"ConnectionAbortedError": "ConnectionError",
	"ConnectionRefusedError": "ConnectionError",
	"ConnectionResetError":   "ConnectionError",
	"TimeoutError":           "OSError",
	"BlockingIOError":        "OSError",
	"ChildProcessError":      "OSError",
	"InterruptedError":       "OSError",
	"ProcessLookupError":     "OSError",
	"IOError":                "OSError",
	"EnvironmentError":       "OSError",

	"ValueError":            "Exception",
	"UnicodeError":          "ValueError",
	"UnicodeDecodeError":    "UnicodeError",
	"UnicodeEncodeError":    "UnicodeError",
	"UnicodeTranslateError": "UnicodeError",

	"ImportError":         "Exception",
	"ModuleNotFoundError": "ImportError",

	"SyntaxError":      "Exception",
	"IndentationError": "SyntaxError",
	"TabError":         "IndentationError",

	"RuntimeError":        "Exception",
	"RecursionError":      "RuntimeError",
	"NotImplementedError": "RuntimeError",

	"NameError":          "Exception",
	"UnboundLocalError":  "NameError",
	"AttributeError":     "Exception",
	"TypeError":          "Exception",
	"AssertionError":     "Exception",
	"StopIteration":      "Exception",
	"EOFError":           "Exception",
	"MemoryError":        "Exception",
	"BufferError":        "Exception",
	"ReferenceError":     "Exception",
	"SystemError":        "Exception",

	"Warning":                   "Exception",
	"UserWarning":               "Warning",
	"DeprecationWarning":        "Warning",
	"PendingDeprecationWarning": "Warning",
	"SyntaxWarning":             "Warning",
	"RuntimeWarning":            "Warning",
	"FutureWarning":             "Warning",
	"ImportWarning":             "Warning",
	"UnicodeWarning":            "Warning",
	"BytesWarning":              "Warning",
	"ResourceWarning":           "Warning",
	"EncodingWarning":           "Warning",
}

// Hierarchy returns a copy of the builtin exception table, mapping each
// type to its direct base. BaseException maps to "".
func Hierarchy() map[string]string {
	out := make(map[string]string, len(parents))
	for k, v := range parents {
		out[k] = v
	}
	return out
}

// Parent returns the direct base of a builtin exception type.
func Parent(name string) (string, bool) {
	parent, ok := parents[name]
	return parent, ok
}

// IsBuiltin reports whether name is a builtin exception type.
func IsBuiltin(name string) bool {
	_, ok := parents[name]
	return ok
}

// IsSubtype reports whether child is parent or derives from it in the
// builtin table.
func IsSubtype(child, parent string) bool {
	for name := child; name != ""; {
		if name == parent {
			return true
		}
		next, ok := parents[name]
		if !ok {
			return false
		}
		name = next
	}
	return false
}

// Ancestors returns the chain from name up to BaseException.
func Ancestors(name string) []string {
	var chain []string
	for name != "" {
		if _, ok := parents[name]; !ok {
			break
		}
		chain = append(chain, name)
		name = parents[name]
	}
	return chain
}

// Names returns the builtin exception type names ordered so that every base
// precedes its subtypes, with ties broken alphabetically.
func Names() []string {
	names := make([]string, 0, len(parents))
	for name := range parents {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		di, dj := len(Ancestors(names[i])), len(Ancestors(names[j]))
		if di != dj {
			return di < dj
		}
		return names[i] < names[j]
	})
	return names
}
