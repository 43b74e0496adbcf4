package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// container 磁盘上的字节码容器
type container struct {
	Magic     string      `cbor:"1,keyasint"`
	Major     uint8       `cbor:"2,keyasint"`
	Minor     uint8       `cbor:"3,keyasint"`
	Code      []byte      `cbor:"4,keyasint"`
	Lines     []int       `cbor:"5,keyasint"`
	Constants []wireValue `cbor:"6,keyasint"`
}

// wireValue 常量的序列化形式
type wireValue struct {
	Kind  uint8       `cbor:"1,keyasint"`
	Bool  bool        `cbor:"2,keyasint,omitempty"`
	Int   int64       `cbor:"3,keyasint,omitempty"`
	Float float64     `cbor:"4,keyasint,omitempty"`
	Str   string      `cbor:"5,keyasint,omitempty"`
	Items []wireValue `cbor:"6,keyasint,omitempty"`
	Arity int         `cbor:"7,keyasint,omitempty"`
	Chunk *container  `cbor:"8,keyasint,omitempty"`
}

// Marshal 将字节码块编码为 CBOR 容器
func Marshal(c *Chunk) ([]byte, error) {
	ct, err := toContainer(c)
	if err != nil {
		return nil, err
	}
	data, err := cborEncMode.Marshal(ct)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal container: %w", err)
	}
	return data, nil
}

// Unmarshal 从 CBOR 容器解码字节码块
func Unmarshal(data []byte) (*Chunk, error) {
	var ct container
	if err := cbor.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal container: %w", err)
	}
	return fromContainer(&ct)
}

func toContainer(c *Chunk) (*container, error) {
	if len(c.Lines) != len(c.Code) {
		return nil, fmt.Errorf("bytecode: line table has %d entries for %d code bytes", len(c.Lines), len(c.Code))
	}
	ct := &container{
		Magic: ContainerMagic,
		Major: MajorVersion,
		Minor: MinorVersion,
		Code:  c.Code,
		Lines: c.Lines,
	}
	for i, v := range c.Constants {
		wv, err := encodeValue(v)
		if err != nil {
			return nil, fmt.Errorf("bytecode: constant %d: %w", i, err)
		}
		ct.Constants = append(ct.Constants, wv)
	}
	return ct, nil
}

func fromContainer(ct *container) (*Chunk, error) {
	if ct.Magic != ContainerMagic {
		return nil, fmt.Errorf("bytecode: bad container magic %q", ct.Magic)
	}
	if ct.Major != MajorVersion {
		return nil, fmt.Errorf("bytecode: unsupported container version %d.%d", ct.Major, ct.Minor)
	}
	if len(ct.Lines) != len(ct.Code) {
		return nil, fmt.Errorf("bytecode: line table has %d entries for %d code bytes", len(ct.Lines), len(ct.Code))
	}
	c := &Chunk{
		Code:      append([]byte(nil), ct.Code...),
		Lines:     append([]int(nil), ct.Lines...),
		Constants: make([]Value, 0, len(ct.Constants)),
	}
	for i, wv := range ct.Constants {
		v, err := decodeValue(wv)
		if err != nil {
			return nil, fmt.Errorf("bytecode: constant %d: %w", i, err)
		}
		c.Constants = append(c.Constants, v)
	}
	return c, nil
}

func encodeValue(v Value) (wireValue, error) {
	switch v.Type {
	case ValNull:
		return wireValue{Kind: ConstNull}, nil
	case ValBool:
		return wireValue{Kind: ConstBool, Bool: v.AsBool()}, nil
	case ValInt:
		return wireValue{Kind: ConstInt, Int: v.AsInt()}, nil
	case ValFloat:
		return wireValue{Kind: ConstFloat, Float: v.AsFloat()}, nil
	case ValString:
		return wireValue{Kind: ConstString, Str: v.AsString()}, nil
	case ValArray:
		wv := wireValue{Kind: ConstArray}
		for _, item := range v.AsArray() {
			iv, err := encodeValue(item)
			if err != nil {
				return wireValue{}, err
			}
			wv.Items = append(wv.Items, iv)
		}
		return wv, nil
	case ValFunc:
		fn := v.AsFunc()
		if fn == nil {
			return wireValue{}, fmt.Errorf("nil function constant")
		}
		wv := wireValue{Kind: ConstFunc, Str: fn.Name, Arity: fn.Arity}
		if fn.Chunk != nil {
			body, err := toContainer(fn.Chunk)
			if err != nil {
				return wireValue{}, err
			}
			wv.Chunk = body
		}
		return wv, nil
	default:
		return wireValue{}, fmt.Errorf("cannot encode value of type %s", v.Type)
	}
}

func decodeValue(wv wireValue) (Value, error) {
	switch wv.Kind {
	case ConstNull:
		return NullValue, nil
	case ConstBool:
		return NewBool(wv.Bool), nil
	case ConstInt:
		return NewInt(wv.Int), nil
	case ConstFloat:
		return NewFloat(wv.Float), nil
	case ConstString:
		return NewString(wv.Str), nil
	case ConstArray:
		items := make([]Value, 0, len(wv.Items))
		for _, iv := range wv.Items {
			item, err := decodeValue(iv)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return NewArray(items), nil
	case ConstFunc:
		fn := &Function{Name: wv.Str, Arity: wv.Arity}
		if wv.Chunk != nil {
			body, err := fromContainer(wv.Chunk)
			if err != nil {
				return Value{}, err
			}
			fn.Chunk = body
		}
		return NewFunc(fn), nil
	default:
		return Value{}, fmt.Errorf("unknown constant kind %d", wv.Kind)
	}
}
