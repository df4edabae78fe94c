package bytecode

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	"github.com/fxamacker/cbor/v2"

	"github.com/deepnoodle-ai/slither/op"
)

// FormatVersion identifies the serialized code layout. Data written with a
// different version is rejected.
const FormatVersion = 2

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: cbor encode mode: %v", err))
	}
	cborEncMode = em
}

type envelope struct {
	Version int        `json:"version" cbor:"1,keyasint"`
	Code    *codeState `json:"code" cbor:"2,keyasint"`
}

type codeState struct {
	ID             string           `json:"id,omitempty" cbor:"1,keyasint,omitempty"`
	Name           string           `json:"name" cbor:"2,keyasint"`
	QualName       string           `json:"qualname,omitempty" cbor:"3,keyasint,omitempty"`
	Filename       string           `json:"filename,omitempty" cbor:"4,keyasint,omitempty"`
	Source         string           `json:"source,omitempty" cbor:"5,keyasint,omitempty"`
	FirstLineNo    int              `json:"first_line_no,omitempty" cbor:"6,keyasint,omitempty"`
	ArgCount       int              `json:"argcount" cbor:"7,keyasint"`
	KwOnlyArgCount int              `json:"kwonlyargcount,omitempty" cbor:"8,keyasint,omitempty"`
	Flags          uint32           `json:"flags" cbor:"9,keyasint"`
	Instructions   []uint16         `json:"instructions" cbor:"10,keyasint"`
	Constants      []constantState  `json:"constants,omitempty" cbor:"11,keyasint,omitempty"`
	Names          []string         `json:"names,omitempty" cbor:"12,keyasint,omitempty"`
	VarNames       []string         `json:"varnames,omitempty" cbor:"13,keyasint,omitempty"`
	CellVars       []string         `json:"cellvars,omitempty" cbor:"14,keyasint,omitempty"`
	FreeVars       []string         `json:"freevars,omitempty" cbor:"15,keyasint,omitempty"`
	Locations      []SourceLocation `json:"locations,omitempty" cbor:"16,keyasint,omitempty"`
}

type constantState struct {
	Kind  string          `json:"kind" cbor:"1,keyasint"`
	Bool  bool            `json:"bool,omitempty" cbor:"2,keyasint,omitempty"`
	Int   int64           `json:"int,omitempty" cbor:"3,keyasint,omitempty"`
	Text  string          `json:"text,omitempty" cbor:"4,keyasint,omitempty"`
	Items []constantState `json:"items,omitempty" cbor:"5,keyasint,omitempty"`
	Code  *codeState      `json:"code,omitempty" cbor:"6,keyasint,omitempty"`
	Data  []byte          `json:"data,omitempty" cbor:"7,keyasint,omitempty"`
}

// stateFromCode encodes c. Nested blocks omit a source equal to the one of
// their enclosing block.
func stateFromCode(c *Code, inherited string) (*codeState, error) {
	state := &codeState{
		ID:             c.id,
		Name:           c.name,
		QualName:       c.qualName,
		Filename:       c.filename,
		FirstLineNo:    c.firstLineNo,
		ArgCount:       c.argCount,
		KwOnlyArgCount: c.kwOnlyArgCount,
		Flags:          c.flags,
		Instructions:   make([]uint16, len(c.instructions)),
		Names:          c.names,
		VarNames:       c.varNames,
		CellVars:       c.cellVars,
		FreeVars:       c.freeVars,
		Locations:      c.locations,
	}
	if c.source != inherited {
		state.Source = c.source
	}
	for i, word := range c.instructions {
		state.Instructions[i] = uint16(word)
	}
	for i, value := range c.constants {
		cs, err := stateFromConstant(value, c.source)
		if err != nil {
			return nil, fmt.Errorf("%s: constant %d: %w", c.qualName, i, err)
		}
		state.Constants = append(state.Constants, cs)
	}
	return state, nil
}

func stateFromConstant(value any, source string) (constantState, error) {
	switch v := value.(type) {
	case nil:
		return constantState{Kind: "none"}, nil
	case bool:
		return constantState{Kind: "bool", Bool: v}, nil
	case int64:
		return constantState{Kind: "int", Int: v}, nil
	case int:
		return constantState{Kind: "int", Int: int64(v)}, nil
	case *big.Int:
		return constantState{Kind: "bigint", Text: v.String()}, nil
	case float64:
		return constantState{Kind: "float", Text: strconv.FormatFloat(v, 'g', -1, 64)}, nil
	case string:
		return constantState{Kind: "str", Text: v}, nil
	case Bytes:
		return constantState{Kind: "bytes", Data: []byte(v)}, nil
	case Ellipsis:
		return constantState{Kind: "ellipsis"}, nil
	case Tuple:
		items := make([]constantState, len(v))
		for i, item := range v {
			cs, err := stateFromConstant(item, source)
			if err != nil {
				return constantState{}, err
			}
			items[i] = cs
		}
		return constantState{Kind: "tuple", Items: items}, nil
	case *Code:
		child, err := stateFromCode(v, source)
		if err != nil {
			return constantState{}, err
		}
		return constantState{Kind: "code", Code: child}, nil
	default:
		return constantState{}, fmt.Errorf("unsupported constant type %T", value)
	}
}

func codeFromState(state *codeState, inherited string) (*Code, error) {
	if state == nil {
		return nil, fmt.Errorf("missing code")
	}
	source := state.Source
	if source == "" {
		source = inherited
	}
	params := CodeParams{
		ID:             state.ID,
		Name:           state.Name,
		QualName:       state.QualName,
		Filename:       state.Filename,
		Source:         source,
		FirstLineNo:    state.FirstLineNo,
		ArgCount:       state.ArgCount,
		KwOnlyArgCount: state.KwOnlyArgCount,
		Flags:          state.Flags,
		Instructions:   make([]op.Code, len(state.Instructions)),
		Names:          state.Names,
		VarNames:       state.VarNames,
		CellVars:       state.CellVars,
		FreeVars:       state.FreeVars,
		Locations:      state.Locations,
	}
	for i, word := range state.Instructions {
		params.Instructions[i] = op.Code(word)
	}
	for i, cs := range state.Constants {
		value, err := constantFromState(cs, source)
		if err != nil {
			return nil, fmt.Errorf("%s: constant %d: %w", state.QualName, i, err)
		}
		params.Constants = append(params.Constants, value)
	}
	return NewCode(params), nil
}

func constantFromState(cs constantState, source string) (any, error) {
	switch cs.Kind {
	case "none":
		return nil, nil
	case "bool":
		return cs.Bool, nil
	case "int":
		return cs.Int, nil
	case "bigint":
		n, ok := new(big.Int).SetString(cs.Text, 10)
		if !ok {
			return nil, fmt.Errorf("invalid bigint constant %q", cs.Text)
		}
		return n, nil
	case "float":
		return strconv.ParseFloat(cs.Text, 64)
	case "str":
		return cs.Text, nil
	case "bytes":
		return Bytes(cs.Data), nil
	case "ellipsis":
		return Ellipsis{}, nil
	case "tuple":
		items := make(Tuple, len(cs.Items))
		for i, item := range cs.Items {
			value, err := constantFromState(item, source)
			if err != nil {
				return nil, err
			}
			items[i] = value
		}
		return items, nil
	case "code":
		return codeFromState(cs.Code, source)
	default:
		return nil, fmt.Errorf("unknown constant kind %q", cs.Kind)
	}
}

// MarshalJSON encodes the code tree as JSON.
func (c *Code) MarshalJSON() ([]byte, error) {
	state, err := stateFromCode(c, "")
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Version: FormatVersion, Code: state})
}

// Marshal encodes a code tree as JSON.
func Marshal(c *Code) ([]byte, error) {
	return c.MarshalJSON()
}

// Unmarshal decodes a code tree encoded by Marshal.
func Unmarshal(data []byte) (*Code, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	return fromEnvelope(env)
}

// MarshalCBOR encodes a code tree in canonical CBOR.
func MarshalCBOR(c *Code) ([]byte, error) {
	state, err := stateFromCode(c, "")
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(envelope{Version: FormatVersion, Code: state})
}

// UnmarshalCBOR decodes a code tree encoded by MarshalCBOR.
func UnmarshalCBOR(data []byte) (*Code, error) {
	var env envelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	return fromEnvelope(env)
}

func fromEnvelope(env envelope) (*Code, error) {
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", env.Version)
	}
	code, err := codeFromState(env.Code, "")
	if err != nil {
		return nil, fmt.Errorf("bytecode: %w", err)
	}
	return code, nil
}
