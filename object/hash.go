package object

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

type hashKind uint8

const (
	hashNone hashKind = iota
	hashInt
	hashBigInt
	hashFloat
	hashStr
	hashBytes
	hashTuple
	hashIdentity
)

// HashKey is the comparable form of a hashable value. Values that compare
// equal produce equal keys: True, 1 and 1.0 all share a key.
type HashKey struct {
	kind hashKind
	n    int64
	s    string
	p    any
}

// Hash returns the key of a hashable object. Lists, dicts and sets are not
// hashable. Instances hash by identity.
func Hash(obj Object) (HashKey, error) {
	switch obj := obj.(type) {
	case *NoneType:
		return HashKey{kind: hashNone}, nil
	case *Bool:
		if obj.value {
			return HashKey{kind: hashInt, n: 1}, nil
		}
		return HashKey{kind: hashInt}, nil
	case *Int:
		if obj.big != nil {
			return HashKey{kind: hashBigInt, s: obj.big.String()}, nil
		}
		return HashKey{kind: hashInt, n: obj.value}, nil
	case *Float:
		f := obj.value
		if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
			return HashKey{kind: hashInt, n: int64(f)}, nil
		}
		if f == math.Trunc(f) && !math.IsInf(f, 0) {
			return Hash(IntFromFloat(f))
		}
		return HashKey{kind: hashFloat, n: int64(math.Float64bits(f))}, nil
	case *Str:
		return HashKey{kind: hashStr, s: obj.value}, nil
	case *Bytes:
		return HashKey{kind: hashBytes, s: obj.value}, nil
	case *Tuple:
		var sb strings.Builder
		for _, item := range obj.items {
			key, err := Hash(item)
			if err != nil {
				return HashKey{}, err
			}
			key.writeTo(&sb)
		}
		return HashKey{kind: hashTuple, s: sb.String()}, nil
	case *List, *Dict, *Set:
		return HashKey{}, TypeErrorf("unhashable type: '%s'", TypeName(obj))
	case *Instance:
		if value, _, found := obj.class.Lookup("__hash__"); found && value == None {
			return HashKey{}, TypeErrorf("unhashable type: '%s'", obj.class.name)
		}
		return HashKey{kind: hashIdentity, p: obj}, nil
	default:
		return HashKey{kind: hashIdentity, p: obj}, nil
	}
}

func (k HashKey) writeTo(sb *strings.Builder) {
	switch k.kind {
	case hashBigInt, hashStr, hashBytes, hashTuple:
		fmt.Fprintf(sb, "%d:%d:%s;", k.kind, len(k.s), k.s)
	case hashIdentity:
		fmt.Fprintf(sb, "%d:%p;", k.kind, k.p)
	default:
		fmt.Fprintf(sb, "%d:%d;", k.kind, k.n)
	}
}

// Value returns the integer hash exposed by the hash() builtin.
func (k HashKey) Value() int64 {
	switch k.kind {
	case hashNone:
		return 0
	case hashInt, hashFloat:
		return k.n
	case hashIdentity:
		h := fnv.New64a()
		fmt.Fprintf(h, "%p", k.p)
		return int64(h.Sum64() >> 1)
	default:
		h := fnv.New64a()
		h.Write([]byte{byte(k.kind)})
		h.Write([]byte(k.s))
		return int64(h.Sum64() >> 1)
	}
}

func strKey(s string) HashKey {
	return HashKey{kind: hashStr, s: s}
}
