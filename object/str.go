package object

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Str is an immutable unicode string. Indexing is by code point.
type Str struct {
	base
	value string
}

func NewStr(value string) *Str {
	return &Str{value: value}
}

func (s *Str) Value() string   { return s.value }
func (s *Str) Type() *Class    { return StrClass }
func (s *Str) Inspect() string { return QuoteString(s.value) }
func (s *Str) Interface() any  { return s.value }
func (s *Str) IsTruthy() bool  { return s.value != "" }

func (s *Str) Equals(other Object) bool {
	o, ok := other.(*Str)
	return ok && o.value == s.value
}

func (s *Str) SetAttr(name string, value Object) error { return setAttrError(s, name) }

// Len returns the number of code points.
func (s *Str) Len() int { return utf8.RuneCountInString(s.value) }

func (s *Str) runes() []rune { return []rune(s.value) }

// QuoteString renders s as a string literal, preferring single quotes.
func QuoteString(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	var sb strings.Builder
	sb.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			sb.WriteRune('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\r':
			sb.WriteString(`\r`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, r)
		case !unicode.IsPrint(r) && r > 0x7f:
			if r > 0xffff {
				fmt.Fprintf(&sb, `\U%08x`, r)
			} else {
				fmt.Fprintf(&sb, `\u%04x`, r)
			}
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteRune(quote)
	return sb.String()
}

func (s *Str) method(name string, minArgs, maxArgs int, fn func(ctx context.Context, args []Object) (Object, error)) *Builtin {
	return boundMethod("str", name, minArgs, maxArgs, fn)
}

func (s *Str) GetAttr(name string) (Object, bool) {
	switch name {
	case "upper":
		return s.transform(name, strings.ToUpper), true
	case "lower":
		return s.transform(name, strings.ToLower), true
	case "title":
		return s.transform(name, titleCase), true
	case "capitalize":
		return s.transform(name, func(v string) string {
			r := []rune(strings.ToLower(v))
			if len(r) > 0 {
				r[0] = unicode.ToUpper(r[0])
			}
			return string(r)
		}), true
	case "swapcase":
		return s.transform(name, func(v string) string {
			return strings.Map(func(r rune) rune {
				if unicode.IsUpper(r) {
					return unicode.ToLower(r)
				}
				return unicode.ToUpper(r)
			}, v)
		}), true
	case "strip", "lstrip", "rstrip":
		return s.method(name, 0, 1, func(ctx context.Context, args []Object) (Object, error) {
			return s.strip(name, args)
		}), true
	case "split", "rsplit":
		return NewBuiltin(name, func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
			params, err := ParseArgs(name, args, kwargs, "sep?", "maxsplit?")
			if err != nil {
				return nil, err
			}
			return s.split(name == "rsplit", params[0], params[1])
		}), true
	case "splitlines":
		return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			v := strings.ReplaceAll(s.value, "\r\n", "\n")
			v = strings.TrimSuffix(v, "\n")
			if v == "" {
				return NewList(nil), nil
			}
			return strList(strings.Split(v, "\n")), nil
		}), true
	case "join":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			items, err := ToSlice(ctx, args[0])
			if err != nil {
				return nil, err
			}
			parts := make([]string, len(items))
			for i, item := range items {
				str, ok := item.(*Str)
				if !ok {
					return nil, TypeErrorf("sequence item %d: expected str instance, %s found", i, TypeName(item))
				}
				parts[i] = str.value
			}
			return NewStr(strings.Join(parts, s.value)), nil
		}), true
	case "replace":
		return s.method(name, 2, 3, func(ctx context.Context, args []Object) (Object, error) {
			old, err := AsString(args[0])
			if err != nil {
				return nil, err
			}
			repl, err := AsString(args[1])
			if err != nil {
				return nil, err
			}
			count := int64(-1)
			if len(args) == 3 {
				if count, err = AsInt(args[2]); err != nil {
					return nil, err
				}
			}
			return NewStr(strings.Replace(s.value, old, repl, int(count))), nil
		}), true
	case "startswith", "endswith":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			check := strings.HasPrefix
			if name == "endswith" {
				check = strings.HasSuffix
			}
			candidates := []Object{args[0]}
			if t, ok := args[0].(*Tuple); ok {
				candidates = t.items
			}
			for _, c := range candidates {
				affix, err := AsString(c)
				if err != nil {
					return nil, err
				}
				if check(s.value, affix) {
					return True, nil
				}
			}
			return False, nil
		}), true
	case "find", "rfind", "index", "rindex":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			sub, err := AsString(args[0])
			if err != nil {
				return nil, err
			}
			var byteIdx int
			if strings.HasPrefix(name, "r") {
				byteIdx = strings.LastIndex(s.value, sub)
			} else {
				byteIdx = strings.Index(s.value, sub)
			}
			if byteIdx < 0 {
				if strings.HasSuffix(name, "index") {
					return nil, ValueErrorf("substring not found")
				}
				return NewInt(-1), nil
			}
			return NewInt(int64(utf8.RuneCountInString(s.value[:byteIdx]))), nil
		}), true
	case "count":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			sub, err := AsString(args[0])
			if err != nil {
				return nil, err
			}
			if sub == "" {
				return NewInt(int64(s.Len() + 1)), nil
			}
			return NewInt(int64(strings.Count(s.value, sub))), nil
		}), true
	case "partition":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			sep, err := AsString(args[0])
			if err != nil {
				return nil, err
			}
			if sep == "" {
				return nil, ValueErrorf("empty separator")
			}
			before, after, found := strings.Cut(s.value, sep)
			if !found {
				return NewTuple([]Object{s, NewStr(""), NewStr("")}), nil
			}
			return NewTuple([]Object{NewStr(before), NewStr(sep), NewStr(after)}), nil
		}), true
	case "zfill":
		return s.method(name, 1, 1, func(ctx context.Context, args []Object) (Object, error) {
			width, err := AsInt(args[0])
			if err != nil {
				return nil, err
			}
			v := s.value
			sign := ""
			if strings.HasPrefix(v, "-") || strings.HasPrefix(v, "+") {
				sign, v = v[:1], v[1:]
			}
			return NewStr(sign + leftPad(v, int(width)-len(sign), '0')), nil
		}), true
	case "center", "ljust", "rjust":
		return s.method(name, 1, 2, func(ctx context.Context, args []Object) (Object, error) {
			width, err := AsInt(args[0])
			if err != nil {
				return nil, err
			}
			fill := ' '
			if len(args) == 2 {
				f, err := AsString(args[1])
				if err != nil {
					return nil, err
				}
				if utf8.RuneCountInString(f) != 1 {
					return nil, TypeErrorf("The fill character must be exactly one character long")
				}
				fill, _ = utf8.DecodeRuneInString(f)
			}
			align := map[string]byte{"center": '^', "ljust": '<', "rjust": '>'}[name]
			return NewStr(pad(s.value, int(width), fill, align)), nil
		}), true
	case "isdigit", "isnumeric", "isdecimal":
		return s.predicate(name, unicode.IsDigit), true
	case "isalpha":
		return s.predicate(name, unicode.IsLetter), true
	case "isalnum":
		return s.predicate(name, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }), true
	case "isspace":
		return s.predicate(name, unicode.IsSpace), true
	case "isupper", "islower":
		return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			cased := false
			for _, r := range s.value {
				if unicode.IsUpper(r) || unicode.IsLower(r) {
					cased = true
					if (name == "isupper") != unicode.IsUpper(r) {
						return False, nil
					}
				}
			}
			return NewBool(cased), nil
		}), true
	case "format":
		return NewBuiltin(name, func(ctx context.Context, args []Object, kwargs *Dict) (Object, error) {
			out, err := FormatString(ctx, s.value, args, kwargs)
			if err != nil {
				return nil, err
			}
			return NewStr(out), nil
		}), true
	case "encode":
		return s.method(name, 0, 1, func(ctx context.Context, args []Object) (Object, error) {
			return NewBytes([]byte(s.value)), nil
		}), true
	}
	return nil, false
}

func (s *Str) transform(name string, fn func(string) string) *Builtin {
	return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
		return NewStr(fn(s.value)), nil
	})
}

func (s *Str) predicate(name string, fn func(rune) bool) *Builtin {
	return s.method(name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
		if s.value == "" {
			return False, nil
		}
		for _, r := range s.value {
			if !fn(r) {
				return False, nil
			}
		}
		return True, nil
	})
}

func (s *Str) strip(name string, args []Object) (Object, error) {
	var cutset string
	useSpace := true
	if len(args) == 1 && args[0] != None {
		chars, err := AsString(args[0])
		if err != nil {
			return nil, err
		}
		cutset, useSpace = chars, false
	}
	v := s.value
	switch name {
	case "strip":
		if useSpace {
			v = strings.TrimSpace(v)
		} else {
			v = strings.Trim(v, cutset)
		}
	case "lstrip":
		if useSpace {
			v = strings.TrimLeftFunc(v, unicode.IsSpace)
		} else {
			v = strings.TrimLeft(v, cutset)
		}
	case "rstrip":
		if useSpace {
			v = strings.TrimRightFunc(v, unicode.IsSpace)
		} else {
			v = strings.TrimRight(v, cutset)
		}
	}
	return NewStr(v), nil
}

func (s *Str) split(fromRight bool, sepArg, maxArg Object) (Object, error) {
	maxSplit := int64(-1)
	if maxArg != nil {
		n, err := AsInt(maxArg)
		if err != nil {
			return nil, err
		}
		maxSplit = n
	}
	if sepArg == nil || sepArg == None {
		fields := strings.Fields(s.value)
		if maxSplit >= 0 && int64(len(fields)) > maxSplit+1 {
			if fromRight {
				return s.rsplitSpace(int(maxSplit)), nil
			}
			rest := strings.TrimLeftFunc(s.value, unicode.IsSpace)
			out := make([]string, 0, maxSplit+1)
			for i := int64(0); i < maxSplit; i++ {
				idx := strings.IndexFunc(rest, unicode.IsSpace)
				out = append(out, rest[:idx])
				rest = strings.TrimLeftFunc(rest[idx:], unicode.IsSpace)
			}
			return strList(append(out, rest)), nil
		}
		return strList(fields), nil
	}
	sep, err := AsString(sepArg)
	if err != nil {
		return nil, err
	}
	if sep == "" {
		return nil, ValueErrorf("empty separator")
	}
	if maxSplit < 0 {
		return strList(strings.Split(s.value, sep)), nil
	}
	if !fromRight {
		return strList(strings.SplitN(s.value, sep, int(maxSplit)+1)), nil
	}
	parts := strings.Split(s.value, sep)
	if len(parts) <= int(maxSplit)+1 {
		return strList(parts), nil
	}
	cut := len(parts) - int(maxSplit)
	head := strings.Join(parts[:cut], sep)
	return strList(append([]string{head}, parts[cut:]...)), nil
}

func (s *Str) rsplitSpace(maxSplit int) Object {
	rest := strings.TrimRightFunc(s.value, unicode.IsSpace)
	var out []string
	for i := 0; i < maxSplit; i++ {
		idx := strings.LastIndexFunc(rest, unicode.IsSpace)
		out = append([]string{rest[idx+1:]}, out...)
		rest = strings.TrimRightFunc(rest[:idx], unicode.IsSpace)
	}
	return strList(append([]string{rest}, out...))
}

func strList(parts []string) *List {
	items := make([]Object, len(parts))
	for i, p := range parts {
		items[i] = NewStr(p)
	}
	return NewList(items)
}

func titleCase(v string) string {
	var sb strings.Builder
	prevCased := false
	for _, r := range v {
		if prevCased {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(unicode.ToUpper(r))
		}
		prevCased = unicode.IsLetter(r)
	}
	return sb.String()
}

// AsString returns the value of a Str.
func AsString(obj Object) (string, error) {
	if s, ok := obj.(*Str); ok {
		return s.value, nil
	}
	return "", TypeErrorf("expected str, got '%s'", TypeName(obj))
}

// Bytes is an immutable byte string.
type Bytes struct {
	base
	value string
}

func NewBytes(value []byte) *Bytes {
	return &Bytes{value: string(value)}
}

func (b *Bytes) Value() []byte  { return []byte(b.value) }
func (b *Bytes) Type() *Class   { return BytesClass }
func (b *Bytes) Interface() any { return []byte(b.value) }
func (b *Bytes) IsTruthy() bool { return b.value != "" }
func (b *Bytes) Len() int       { return len(b.value) }

func (b *Bytes) Inspect() string {
	var sb strings.Builder
	sb.WriteString("b'")
	for i := 0; i < len(b.value); i++ {
		c := b.value[i]
		switch {
		case c == '\'' || c == '\\':
			sb.WriteByte('\\')
			sb.WriteByte(c)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c >= 0x7f:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteString("'")
	return sb.String()
}

func (b *Bytes) Equals(other Object) bool {
	o, ok := other.(*Bytes)
	return ok && o.value == b.value
}

func (b *Bytes) SetAttr(name string, value Object) error { return setAttrError(b, name) }

func (b *Bytes) GetAttr(name string) (Object, bool) {
	switch name {
	case "decode":
		return boundMethod("bytes", name, 0, 2, func(ctx context.Context, args []Object) (Object, error) {
			if !utf8.ValidString(b.value) {
				return nil, Errorf("UnicodeDecodeError", "'utf-8' codec can't decode bytes")
			}
			return NewStr(b.value), nil
		}), true
	case "hex":
		return boundMethod("bytes", name, 0, 0, func(ctx context.Context, args []Object) (Object, error) {
			return NewStr(fmt.Sprintf("%x", b.value)), nil
		}), true
	}
	return nil, false
}
