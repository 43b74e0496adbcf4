package ir

import (
	"fmt"
	"strconv"
)

// RegisterID 虚拟寄存器编号，模块内唯一，只赋值一次
type RegisterID uint32

func (r RegisterID) String() string {
	return "r" + strconv.FormatUint(uint64(r), 10)
}

// BlockID 基本块编号，模块内唯一
type BlockID uint32

func (b BlockID) String() string {
	return "bb" + strconv.FormatUint(uint64(b), 10)
}

// Type IR 值类型
type Type uint8

const (
	TypeVoid Type = iota
	TypeBool
	TypeI64
	TypeF64
	TypeString
	TypePtr
	TypeAny
)

var typeNames = [...]string{
	TypeVoid:   "void",
	TypeBool:   "bool",
	TypeI64:    "i64",
	TypeF64:    "f64",
	TypeString: "string",
	TypePtr:    "ptr",
	TypeAny:    "any",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", t)
}

// ============================================================================
// 常量
// ============================================================================

// ConstKind 常量种类
type ConstKind uint8

const (
	ConstNull ConstKind = iota
	ConstInt
	ConstFloat
	ConstString
	ConstBool
)

var constKindNames = [...]string{
	ConstNull:   "null",
	ConstInt:    "int",
	ConstFloat:  "float",
	ConstString: "string",
	ConstBool:   "bool",
}

func (k ConstKind) String() string {
	if int(k) < len(constKindNames) {
		return constKindNames[k]
	}
	return fmt.Sprintf("const(%d)", k)
}

// Constant IR 常量
type Constant struct {
	Kind  ConstKind
	Int   int64
	Float float64
	Str   string
	Bool  bool
}

// IntConst 整数常量
func IntConst(v int64) Constant {
	return Constant{Kind: ConstInt, Int: v}
}

// FloatConst 浮点常量
func FloatConst(v float64) Constant {
	return Constant{Kind: ConstFloat, Float: v}
}

// StringConst 字符串常量
func StringConst(s string) Constant {
	return Constant{Kind: ConstString, Str: s}
}

// BoolConst 布尔常量
func BoolConst(b bool) Constant {
	return Constant{Kind: ConstBool, Bool: b}
}

// NullConst null 常量
func NullConst() Constant {
	return Constant{Kind: ConstNull}
}

// Type 常量对应的 IR 类型
func (c Constant) Type() Type {
	switch c.Kind {
	case ConstInt:
		return TypeI64
	case ConstFloat:
		return TypeF64
	case ConstString:
		return TypeString
	case ConstBool:
		return TypeBool
	default:
		return TypeAny
	}
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstInt:
		return strconv.FormatInt(c.Int, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.Str)
	case ConstBool:
		return strconv.FormatBool(c.Bool)
	default:
		return "null"
	}
}
