package object

import (
	"context"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatSpec is a parsed format specification:
// [[fill]align][sign][#][0][width][,|_][.precision][type]
type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	zero      bool
	width     int
	grouping  byte
	precision int
	typ       byte
}

func parseFormatSpec(spec string) (formatSpec, error) {
	fs := formatSpec{fill: ' ', precision: -1}
	runes := []rune(spec)
	i := 0
	isAlign := func(r rune) bool { return r == '<' || r == '>' || r == '=' || r == '^' }
	if len(runes) >= 2 && isAlign(runes[1]) {
		fs.fill, fs.align = runes[0], byte(runes[1])
		i = 2
	} else if len(runes) >= 1 && isAlign(runes[0]) {
		fs.align = byte(runes[0])
		i = 1
	}
	if i < len(runes) && (runes[i] == '+' || runes[i] == '-' || runes[i] == ' ') {
		fs.sign = byte(runes[i])
		i++
	}
	if i < len(runes) && runes[i] == '#' {
		fs.alt = true
		i++
	}
	if i < len(runes) && runes[i] == '0' {
		fs.zero = true
		i++
	}
	start := i
	for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
		i++
	}
	if i > start {
		fs.width, _ = strconv.Atoi(string(runes[start:i]))
	}
	if i < len(runes) && (runes[i] == ',' || runes[i] == '_') {
		fs.grouping = byte(runes[i])
		i++
	}
	if i < len(runes) && runes[i] == '.' {
		i++
		start = i
		for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
			i++
		}
		if i == start {
			return fs, ValueErrorf("Format specifier missing precision")
		}
		fs.precision, _ = strconv.Atoi(string(runes[start:i]))
	}
	if i < len(runes) {
		if i != len(runes)-1 || runes[i] > 0x7f {
			return fs, ValueErrorf("Invalid format specifier '%s'", spec)
		}
		fs.typ = byte(runes[i])
	}
	return fs, nil
}

// FormatValue applies a format specification to obj, as format() does.
func FormatValue(ctx context.Context, obj Object, spec string) (string, error) {
	if inst, ok := obj.(*Instance); ok && hasOverride(inst, "__format__") {
		result, err := CallMethod(ctx, inst, "__format__", NewStr(spec))
		if err != nil {
			return "", err
		}
		s, ok := result.(*Str)
		if !ok {
			return "", TypeErrorf("__format__ must return a str, not %s", TypeName(result))
		}
		return s.value, nil
	}
	if spec == "" {
		return ToStr(ctx, obj)
	}
	fs, err := parseFormatSpec(spec)
	if err != nil {
		return "", err
	}
	switch v := obj.(type) {
	case *Bool:
		if fs.typ == 0 || fs.typ == 's' {
			return formatStr(v.Inspect(), fs, "bool")
		}
		return formatInt(big.NewInt(v.int()), fs, "bool")
	case *Int:
		return formatInt(v.Big(), fs, "int")
	case *Float:
		return formatFloat(v.value, fs, "float")
	case *Str:
		return formatStr(v.value, fs, "str")
	}
	return "", TypeErrorf("unsupported format string passed to %s.__format__", TypeName(obj))
}

func formatStr(s string, fs formatSpec, typeName string) (string, error) {
	if fs.typ != 0 && fs.typ != 's' {
		return "", ValueErrorf("Unknown format code '%c' for object of type '%s'", fs.typ, typeName)
	}
	if fs.sign != 0 {
		return "", ValueErrorf("Sign not allowed in string format specifier")
	}
	if fs.align == '=' {
		return "", ValueErrorf("'=' alignment not allowed in string format specifier")
	}
	if fs.precision >= 0 && utf8.RuneCountInString(s) > fs.precision {
		s = string([]rune(s)[:fs.precision])
	}
	align := fs.align
	if align == 0 {
		align = '<'
	}
	fill := fs.fill
	if fs.zero && fs.align == 0 {
		fill = '0'
	}
	return pad(s, fs.width, fill, align), nil
}

func formatInt(n *big.Int, fs formatSpec, typeName string) (string, error) {
	var base int
	var prefix string
	switch fs.typ {
	case 0, 'd', 'n':
		base = 10
	case 'b':
		base, prefix = 2, "0b"
	case 'o':
		base, prefix = 8, "0o"
	case 'x':
		base, prefix = 16, "0x"
	case 'X':
		base, prefix = 16, "0X"
	case 'c':
		if !n.IsInt64() || n.Int64() < 0 || n.Int64() > utf8.MaxRune {
			return "", OverflowErrorf("%%c arg not in range(0x110000)")
		}
		return formatStr(string(rune(n.Int64())), formatSpec{fill: fs.fill, align: fs.align, width: fs.width, precision: -1}, typeName)
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		f, _ := new(big.Float).SetInt(n).Float64()
		return formatFloat(f, fs, typeName)
	default:
		return "", ValueErrorf("Unknown format code '%c' for object of type '%s'", fs.typ, typeName)
	}
	if fs.precision >= 0 {
		return "", ValueErrorf("Precision not allowed in integer format specifier")
	}
	digits := new(big.Int).Abs(n).Text(base)
	if fs.typ == 'X' {
		digits = strings.ToUpper(digits)
	}
	if fs.grouping != 0 {
		every := 3
		if base != 10 {
			every = 4
		}
		digits = groupDigits(digits, fs.grouping, every)
	}
	if !fs.alt {
		prefix = ""
	}
	return alignNumber(signOf(n.Sign() < 0, fs.sign)+prefix, digits, fs), nil
}

func formatFloat(f float64, fs formatSpec, typeName string) (string, error) {
	prec := fs.precision
	neg := math.Signbit(f) && !math.IsNaN(f)
	a := math.Abs(f)
	var body string
	switch {
	case math.IsInf(a, 0):
		body = "inf"
	case math.IsNaN(a):
		body = "nan"
	}
	switch fs.typ {
	case 'f', 'F':
		if prec < 0 {
			prec = 6
		}
		if body == "" {
			body = strconv.FormatFloat(a, 'f', prec, 64)
		}
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		if body == "" {
			body = strconv.FormatFloat(a, 'e', prec, 64)
		}
	case 'g', 'G', 'n':
		if prec < 0 {
			prec = 6
		}
		if prec == 0 {
			prec = 1
		}
		if body == "" {
			body = strconv.FormatFloat(a, 'g', prec, 64)
		}
	case '%':
		if prec < 0 {
			prec = 6
		}
		if body == "" {
			body = strconv.FormatFloat(a*100, 'f', prec, 64)
		}
		body += "%"
	case 0:
		if body == "" {
			if prec < 0 {
				body = FormatFloat(a)
			} else {
				body = strconv.FormatFloat(a, 'g', max(prec, 1), 64)
				if !strings.ContainsAny(body, ".e") {
					body += ".0"
				}
			}
		}
	default:
		return "", ValueErrorf("Unknown format code '%c' for object of type '%s'", fs.typ, typeName)
	}
	if fs.typ == 'E' || fs.typ == 'F' || fs.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if fs.grouping != 0 {
		end := strings.IndexAny(body, ".e%")
		if end < 0 {
			end = len(body)
		}
		if body != "inf" && body != "nan" {
			body = groupDigits(body[:end], fs.grouping, 3) + body[end:]
		}
	}
	return alignNumber(signOf(neg, fs.sign), body, fs), nil
}

func signOf(negative bool, sign byte) string {
	switch {
	case negative:
		return "-"
	case sign == '+':
		return "+"
	case sign == ' ':
		return " "
	}
	return ""
}

func groupDigits(digits string, sep byte, every int) string {
	if len(digits) <= every {
		return digits
	}
	var sb strings.Builder
	first := len(digits) % every
	if first > 0 {
		sb.WriteString(digits[:first])
	}
	for i := first; i < len(digits); i += every {
		if sb.Len() > 0 {
			sb.WriteByte(sep)
		}
		sb.WriteString(digits[i : i+every])
	}
	return sb.String()
}

func alignNumber(prefix, body string, fs formatSpec) string {
	fill, align := fs.fill, fs.align
	if fs.zero && align == 0 {
		fill, align = '0', '='
	}
	if align == 0 {
		align = '>'
	}
	if align == '=' {
		return prefix + leftPad(body, fs.width-utf8.RuneCountInString(prefix), fill)
	}
	return pad(prefix+body, fs.width, fill, align)
}

// pad aligns s within width runes. align is one of '<', '>' or '^'.
func pad(s string, width int, fill rune, align byte) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	f := string(fill)
	switch align {
	case '<':
		return s + strings.Repeat(f, n)
	case '^':
		left := n / 2
		return strings.Repeat(f, left) + s + strings.Repeat(f, n-left)
	}
	return strings.Repeat(f, n) + s
}

// ASCII returns repr(obj) with non-ASCII characters escaped.
func ASCII(ctx context.Context, obj Object) (string, error) {
	s, err := Repr(ctx, obj)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r < 0x80:
			sb.WriteRune(r)
		case r <= 0xff:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case r <= 0xffff:
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			fmt.Fprintf(&sb, `\U%08x`, r)
		}
	}
	return sb.String(), nil
}

// Convert applies a !s, !r or !a conversion.
func Convert(ctx context.Context, obj Object, conversion rune) (string, error) {
	switch conversion {
	case 's':
		return ToStr(ctx, obj)
	case 'r':
		return Repr(ctx, obj)
	case 'a':
		return ASCII(ctx, obj)
	}
	return "", ValueErrorf("Unknown conversion specifier %c", conversion)
}

// FormatString implements str.format.
func FormatString(ctx context.Context, format string, args []Object, kwargs *Dict) (string, error) {
	f := &formatter{ctx: ctx, args: args, kwargs: kwargs}
	return f.format(format, 2)
}

type formatter struct {
	ctx    context.Context
	args   []Object
	kwargs *Dict
	// auto is the next automatic field number
	auto   int
	manual bool
}

func (f *formatter) format(s string, depth int) (string, error) {
	if depth < 0 {
		return "", ValueErrorf("Max string recursion exceeded")
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				sb.WriteByte('{')
				i++
				continue
			}
			end, err := matchBrace(s, i)
			if err != nil {
				return "", err
			}
			out, err := f.field(s[i+1:end], depth)
			if err != nil {
				return "", err
			}
			sb.WriteString(out)
			i = end
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				sb.WriteByte('}')
				i++
				continue
			}
			return "", ValueErrorf("Single '}' encountered in format string")
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), nil
}

func matchBrace(s string, open int) (int, error) {
	level := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '{':
			level++
		case '}':
			level--
			if level == 0 {
				return i, nil
			}
		}
	}
	return 0, ValueErrorf("Single '{' encountered in format string")
}

func (f *formatter) field(field string, depth int) (string, error) {
	name, spec, _ := strings.Cut(field, ":")
	var conversion rune
	if before, conv, ok := strings.Cut(name, "!"); ok {
		if len(conv) != 1 {
			return "", ValueErrorf("expected ':' after conversion specifier")
		}
		name, conversion = before, rune(conv[0])
	}
	value, err := f.lookup(name)
	if err != nil {
		return "", err
	}
	if strings.Contains(spec, "{") {
		if spec, err = f.format(spec, depth-1); err != nil {
			return "", err
		}
	}
	if conversion != 0 {
		s, err := Convert(f.ctx, value, conversion)
		if err != nil {
			return "", err
		}
		value = NewStr(s)
	}
	return FormatValue(f.ctx, value, spec)
}

func (f *formatter) lookup(name string) (Object, error) {
	end := strings.IndexAny(name, ".[")
	if end < 0 {
		end = len(name)
	}
	first, rest := name[:end], name[end:]
	var value Object
	switch {
	case first == "":
		if f.manual {
			return nil, ValueErrorf("cannot switch from manual field specification to automatic field numbering")
		}
		idx := f.auto
		f.auto++
		if idx >= len(f.args) {
			return nil, IndexErrorf("Replacement index %d out of range for positional args tuple", idx)
		}
		value = f.args[idx]
	case isDigits(first):
		if f.auto > 0 {
			return nil, ValueErrorf("cannot switch from automatic field numbering to manual field specification")
		}
		f.manual = true
		idx, _ := strconv.Atoi(first)
		if idx >= len(f.args) {
			return nil, IndexErrorf("Replacement index %d out of range for positional args tuple", idx)
		}
		value = f.args[idx]
	default:
		v, ok := f.kwargs.GetStr(first)
		if !ok {
			return nil, KeyError(NewStr(first))
		}
		value = v
	}
	for rest != "" {
		var err error
		switch rest[0] {
		case '.':
			end := strings.IndexAny(rest[1:], ".[")
			if end < 0 {
				end = len(rest) - 1
			}
			attr := rest[1 : end+1]
			if value, err = GetAttribute(f.ctx, value, attr); err != nil {
				return nil, err
			}
			rest = rest[end+1:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return nil, ValueErrorf("Missing ']' in format string")
			}
			var key Object = NewStr(rest[1:end])
			if isDigits(rest[1:end]) {
				n, _ := strconv.ParseInt(rest[1:end], 10, 64)
				key = NewInt(n)
			}
			if value, err = GetItem(f.ctx, value, key); err != nil {
				return nil, err
			}
			rest = rest[end+1:]
		default:
			return nil, ValueErrorf("Only '.' or '[' may follow ']' in format field specifier")
		}
	}
	return value, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// FormatPercent implements printf-style formatting with the % operator.
func FormatPercent(ctx context.Context, format string, values Object) (string, error) {
	var args []Object
	var mapping Object
	switch v := values.(type) {
	case *Tuple:
		args = v.items
	case *Dict:
		mapping = v
		args = []Object{v}
	default:
		args = []Object{values}
	}
	argi := 0
	next := func() (Object, error) {
		if argi >= len(args) {
			return nil, TypeErrorf("not enough arguments for format string")
		}
		argi++
		return args[argi-1], nil
	}
	var sb strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '%' {
			sb.WriteRune(runes[i])
			continue
		}
		i++
		if i >= len(runes) {
			return "", ValueErrorf("incomplete format")
		}
		if runes[i] == '%' {
			sb.WriteRune('%')
			continue
		}
		var arg Object
		if runes[i] == '(' {
			if mapping == nil {
				return "", TypeErrorf("format requires a mapping")
			}
			end := i + 1
			for end < len(runes) && runes[end] != ')' {
				end++
			}
			if end >= len(runes) {
				return "", ValueErrorf("incomplete format key")
			}
			v, err := GetItem(ctx, mapping, NewStr(string(runes[i+1:end])))
			if err != nil {
				return "", err
			}
			arg = v
			i = end + 1
		}
		fs := formatSpec{fill: ' ', precision: -1}
		for ; i < len(runes) && strings.ContainsRune("-+ #0", runes[i]); i++ {
			switch runes[i] {
			case '-':
				fs.align = '<'
			case '+':
				fs.sign = '+'
			case ' ':
				if fs.sign == 0 {
					fs.sign = ' '
				}
			case '#':
				fs.alt = true
			case '0':
				fs.zero = true
			}
		}
		readNumber := func() (int, error) {
			if i < len(runes) && runes[i] == '*' {
				i++
				v, err := next()
				if err != nil {
					return 0, err
				}
				n, err := AsInt(v)
				if err != nil {
					return 0, TypeErrorf("* wants int")
				}
				return int(n), nil
			}
			start := i
			for i < len(runes) && runes[i] >= '0' && runes[i] <= '9' {
				i++
			}
			n, _ := strconv.Atoi(string(runes[start:i]))
			return n, nil
		}
		width, err := readNumber()
		if err != nil {
			return "", err
		}
		if width < 0 {
			fs.align, width = '<', -width
		}
		fs.width = width
		if i < len(runes) && runes[i] == '.' {
			i++
			if fs.precision, err = readNumber(); err != nil {
				return "", err
			}
		}
		for i < len(runes) && strings.ContainsRune("hlL", runes[i]) {
			i++
		}
		if i >= len(runes) {
			return "", ValueErrorf("incomplete format")
		}
		conv := runes[i]
		if arg == nil {
			if arg, err = next(); err != nil {
				return "", err
			}
		}
		if fs.align == '<' {
			fs.zero = false
		}
		out, err := percentConvert(ctx, conv, arg, fs)
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	if mapping == nil && argi < len(args) {
		return "", TypeErrorf("not all arguments converted during string formatting")
	}
	return sb.String(), nil
}

func percentConvert(ctx context.Context, conv rune, arg Object, fs formatSpec) (string, error) {
	align := fs.align
	if align == 0 {
		align = '>'
	}
	switch conv {
	case 's', 'r', 'a':
		s, err := Convert(ctx, arg, conv)
		if err != nil {
			return "", err
		}
		if fs.precision >= 0 && utf8.RuneCountInString(s) > fs.precision {
			s = string([]rune(s)[:fs.precision])
		}
		return pad(s, fs.width, ' ', align), nil
	case 'd', 'i', 'u':
		n, ok := asBigInt(arg)
		if !ok {
			f, isFloat := arg.(*Float)
			if !isFloat {
				return "", TypeErrorf("%%%c format: a real number is required, not %s", conv, TypeName(arg))
			}
			if math.IsInf(f.value, 0) {
				return "", OverflowErrorf("cannot convert float infinity to integer")
			}
			if math.IsNaN(f.value) {
				return "", ValueErrorf("cannot convert float NaN to integer")
			}
			n = IntFromFloat(f.value).Big()
		}
		fs.typ, fs.precision = 'd', -1
		return formatInt(n, fs, "int")
	case 'o', 'x', 'X':
		n, ok := asBigInt(arg)
		if !ok {
			return "", TypeErrorf("%%%c format: an integer is required, not %s", conv, TypeName(arg))
		}
		fs.typ, fs.precision = byte(conv), -1
		return formatInt(n, fs, "int")
	case 'e', 'E', 'f', 'F', 'g', 'G':
		f, ok := asFloat(arg)
		if !ok {
			return "", TypeErrorf("must be real number, not %s", TypeName(arg))
		}
		fs.typ = byte(conv)
		return formatFloat(f, fs, "float")
	case 'c':
		switch v := arg.(type) {
		case *Int:
			if v.big != nil || v.value < 0 || v.value > utf8.MaxRune {
				return "", OverflowErrorf("%%c arg not in range(0x110000)")
			}
			return pad(string(rune(v.value)), fs.width, ' ', align), nil
		case *Str:
			if utf8.RuneCountInString(v.value) == 1 {
				return pad(v.value, fs.width, ' ', align), nil
			}
		}
		return "", TypeErrorf("%%c requires int or char")
	}
	return "", ValueErrorf("unsupported format character '%c' (0x%x)", conv, conv)
}
