package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// ValueType 值类型
type ValueType byte

const (
	ValNull ValueType = iota
	ValBool
	ValInt
	ValFloat
	ValString
	ValArray
	ValFunc
)

var valueTypeNames = [...]string{
	ValNull:   "null",
	ValBool:   "bool",
	ValInt:    "int",
	ValFloat:  "float",
	ValString: "string",
	ValArray:  "array",
	ValFunc:   "func",
}

func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", t)
}

// Function 常量池中的函数原型
type Function struct {
	Name  string
	Arity int
	Chunk *Chunk
}

// Value 常量池中的值
type Value struct {
	Type ValueType
	Data interface{}
}

// 预定义常量值
var (
	NullValue  = Value{Type: ValNull}
	TrueValue  = Value{Type: ValBool, Data: true}
	FalseValue = Value{Type: ValBool, Data: false}
	ZeroValue  = Value{Type: ValInt, Data: int64(0)}
	OneValue   = Value{Type: ValInt, Data: int64(1)}
)

// NewNull 创建 null 值
func NewNull() Value {
	return NullValue
}

// NewBool 创建布尔值
func NewBool(b bool) Value {
	if b {
		return TrueValue
	}
	return FalseValue
}

// NewInt 创建整数值
func NewInt(n int64) Value {
	return Value{Type: ValInt, Data: n}
}

// NewFloat 创建浮点数值
func NewFloat(f float64) Value {
	return Value{Type: ValFloat, Data: f}
}

// NewString 创建字符串值
func NewString(s string) Value {
	return Value{Type: ValString, Data: s}
}

// NewArray 创建数组值
func NewArray(arr []Value) Value {
	return Value{Type: ValArray, Data: arr}
}

// NewFunc 创建函数值
func NewFunc(fn *Function) Value {
	return Value{Type: ValFunc, Data: fn}
}

func (v Value) IsNull() bool {
	return v.Type == ValNull
}

func (v Value) AsBool() bool {
	if b, ok := v.Data.(bool); ok {
		return b
	}
	return false
}

func (v Value) AsInt() int64 {
	switch v.Type {
	case ValInt:
		return v.Data.(int64)
	case ValFloat:
		return int64(v.Data.(float64))
	}
	return 0
}

func (v Value) AsFloat() float64 {
	switch v.Type {
	case ValFloat:
		return v.Data.(float64)
	case ValInt:
		return float64(v.Data.(int64))
	}
	return 0
}

func (v Value) AsString() string {
	if s, ok := v.Data.(string); ok {
		return s
	}
	return ""
}

func (v Value) AsArray() []Value {
	if arr, ok := v.Data.([]Value); ok {
		return arr
	}
	return nil
}

func (v Value) AsFunc() *Function {
	if fn, ok := v.Data.(*Function); ok {
		return fn
	}
	return nil
}

func (v Value) String() string {
	switch v.Type {
	case ValNull:
		return "null"
	case ValBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case ValInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case ValFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case ValString:
		return v.AsString()
	case ValArray:
		var parts []string
		for _, elem := range v.AsArray() {
			parts = append(parts, elem.String())
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValFunc:
		if fn := v.AsFunc(); fn != nil {
			return fmt.Sprintf("<fn %s/%d>", fn.Name, fn.Arity)
		}
		return "<fn>"
	default:
		return "<unknown>"
	}
}

// Equals 值相等比较
func (v Value) Equals(other Value) bool {
	if v.Type != other.Type {
		return false
	}
	switch v.Type {
	case ValNull:
		return true
	case ValBool:
		return v.AsBool() == other.AsBool()
	case ValInt:
		return v.AsInt() == other.AsInt()
	case ValFloat:
		return v.AsFloat() == other.AsFloat()
	case ValString:
		return v.AsString() == other.AsString()
	case ValArray:
		a, b := v.AsArray(), other.AsArray()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equals(b[i]) {
				return false
			}
		}
		return true
	default:
		return v.Data == other.Data
	}
}
