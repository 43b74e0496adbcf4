package bytecode

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// OpCode 操作码类型
type OpCode byte

const (
	// 常量
	OpConst     OpCode = iota // 压入常量 (index: u8)
	OpConstLong               // 压入常量 (index: u16)
	OpNull                    // 压入 null
	OpTrue                    // 压入 true
	OpFalse                   // 压入 false
	OpZero                    // 压入 0
	OpOne                     // 压入 1

	// 栈操作
	OpPop  // 弹出栈顶
	OpDup  // 复制栈顶
	OpSwap // 交换栈顶两个元素

	// 局部变量操作
	OpLoadLocal  // 加载局部变量 (index: u16)
	OpStoreLocal // 存储局部变量 (index: u16)

	// 全局变量操作
	OpLoadGlobal  // 加载全局变量 (index: u16)
	OpStoreGlobal // 存储全局变量 (index: u16)

	// 算术运算
	OpAdd // 加法
	OpSub // 减法
	OpMul // 乘法
	OpDiv // 除法
	OpMod // 取模
	OpNeg // 取负

	// 比较运算
	OpEq // 等于
	OpNe // 不等于
	OpLt // 小于
	OpLe // 小于等于
	OpGt // 大于
	OpGe // 大于等于

	// 逻辑运算
	OpNot // 逻辑非
	OpAnd // 逻辑与
	OpOr  // 逻辑或

	// 位运算
	OpBitAnd // 位与
	OpBitOr  // 位或
	OpBitXor // 位异或
	OpBitNot // 位非
	OpShl    // 左移
	OpShr    // 右移

	// 字符串
	OpConcat // 字符串拼接

	// 跳转指令
	OpJump        // 无条件跳转 (offset: i16)
	OpJumpIfFalse // 条件为假时跳转 (offset: i16)
	OpJumpIfTrue  // 条件为真时跳转 (offset: i16)
	OpLoop        // 循环跳转 (向后跳转, offset: u16)

	// 函数调用
	OpCall       // 调用函数 (argCount: u8)
	OpReturn     // 返回
	OpReturnNull // 返回 null

	// 异常
	OpThrow // 抛出异常

	// 输出
	OpPrint      // 打印栈顶
	OpPrintLn    // 打印栈顶并换行
	OpDebugPrint // 调试打印

	// 终止
	OpHalt // 停止执行

	opCount // 哨兵，不是合法操作码
)

var opNames = map[OpCode]string{
	OpConst:       "CONST",
	OpConstLong:   "CONST_LONG",
	OpNull:        "NULL",
	OpTrue:        "TRUE",
	OpFalse:       "FALSE",
	OpZero:        "ZERO",
	OpOne:         "ONE",
	OpPop:         "POP",
	OpDup:         "DUP",
	OpSwap:        "SWAP",
	OpLoadLocal:   "LOAD_LOCAL",
	OpStoreLocal:  "STORE_LOCAL",
	OpLoadGlobal:  "LOAD_GLOBAL",
	OpStoreGlobal: "STORE_GLOBAL",
	OpAdd:         "ADD",
	OpSub:         "SUB",
	OpMul:         "MUL",
	OpDiv:         "DIV",
	OpMod:         "MOD",
	OpNeg:         "NEG",
	OpEq:          "EQ",
	OpNe:          "NE",
	OpLt:          "LT",
	OpLe:          "LE",
	OpGt:          "GT",
	OpGe:          "GE",
	OpNot:         "NOT",
	OpAnd:         "AND",
	OpOr:          "OR",
	OpBitAnd:      "BIT_AND",
	OpBitOr:       "BIT_OR",
	OpBitXor:      "BIT_XOR",
	OpBitNot:      "BIT_NOT",
	OpShl:         "SHL",
	OpShr:         "SHR",
	OpConcat:      "CONCAT",
	OpJump:        "JUMP",
	OpJumpIfFalse: "JUMP_IF_FALSE",
	OpJumpIfTrue:  "JUMP_IF_TRUE",
	OpLoop:        "LOOP",
	OpCall:        "CALL",
	OpReturn:      "RETURN",
	OpReturnNull:  "RETURN_NULL",
	OpThrow:       "THROW",
	OpPrint:       "PRINT",
	OpPrintLn:     "PRINTLN",
	OpDebugPrint:  "DEBUG_PRINT",
	OpHalt:        "HALT",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(%d)", op)
}

// Valid 是否为已定义的操作码
func (op OpCode) Valid() bool {
	return op < opCount
}

// LookupOp 根据助记符查找操作码（不区分大小写）
func LookupOp(name string) (OpCode, bool) {
	upper := strings.ToUpper(name)
	for op, n := range opNames {
		if n == upper {
			return op, true
		}
	}
	return 0, false
}

// OperandWidth 返回操作码后紧跟的操作数字节数
func (op OpCode) OperandWidth() int {
	switch op {
	case OpConst, OpCall:
		return 1
	case OpConstLong, OpLoadLocal, OpStoreLocal, OpLoadGlobal, OpStoreGlobal,
		OpJump, OpJumpIfFalse, OpJumpIfTrue, OpLoop:
		return 2
	default:
		return 0
	}
}

// Chunk 字节码块
type Chunk struct {
	Code      []byte  // 字节码
	Constants []Value // 常量池
	Lines     []int   // 行号信息，与 Code 逐字节对应
}

// NewChunk 创建新的字节码块
func NewChunk() *Chunk {
	return &Chunk{
		Code:      make([]byte, 0, 64),
		Constants: make([]Value, 0, 16),
		Lines:     make([]int, 0, 64),
	}
}

// Write 写入一个字节
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp 写入操作码
func (c *Chunk) WriteOp(op OpCode, line int) {
	c.Write(byte(op), line)
}

// WriteU8 写入 uint8
func (c *Chunk) WriteU8(v uint8, line int) {
	c.Write(v, line)
}

// WriteU16 写入 uint16 (大端序)
func (c *Chunk) WriteU16(v uint16, line int) {
	c.Write(byte(v>>8), line)
	c.Write(byte(v), line)
}

// WriteI16 写入 int16 (大端序)
func (c *Chunk) WriteI16(v int16, line int) {
	c.WriteU16(uint16(v), line)
}

// AddConstant 添加常量，返回索引
func (c *Chunk) AddConstant(value Value) int {
	c.Constants = append(c.Constants, value)
	return len(c.Constants) - 1
}

// EmitConstant 添加常量并写入加载指令，索引超过 255 时使用 CONST_LONG
func (c *Chunk) EmitConstant(value Value, line int) error {
	idx := c.AddConstant(value)
	switch {
	case idx <= 0xFF:
		c.WriteOp(OpConst, line)
		c.WriteU8(uint8(idx), line)
	case idx <= 0xFFFF:
		c.WriteOp(OpConstLong, line)
		c.WriteU16(uint16(idx), line)
	default:
		return fmt.Errorf("too many constants in one chunk (%d)", idx+1)
	}
	return nil
}

// Len 返回字节码长度
func (c *Chunk) Len() int {
	return len(c.Code)
}

// LineAt 返回偏移处的源码行号，缺失时返回 0
func (c *Chunk) LineAt(offset int) int {
	if offset >= 0 && offset < len(c.Lines) {
		return c.Lines[offset]
	}
	return 0
}

// ReadU16 从指定位置读取 uint16
func (c *Chunk) ReadU16(offset int) uint16 {
	return binary.BigEndian.Uint16(c.Code[offset:])
}

// ReadI16 从指定位置读取 int16
func (c *Chunk) ReadI16(offset int) int16 {
	return int16(c.ReadU16(offset))
}

// ============================================================================
// 指令解码
// ============================================================================

// Instruction 解码后的一条指令
type Instruction struct {
	Offset  int
	Op      OpCode
	Operand int // 无操作数时为 0；跳转为有符号偏移
	Line    int
}

// Width 指令总字节数
func (in Instruction) Width() int {
	return 1 + in.Op.OperandWidth()
}

// DecodeError 字节码解码错误
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed bytecode at offset %d: %s", e.Offset, e.Reason)
}

// Decode 解码 offset 处的一条指令
func (c *Chunk) Decode(offset int) (Instruction, error) {
	if offset < 0 || offset >= len(c.Code) {
		return Instruction{}, &DecodeError{Offset: offset, Reason: "offset out of range"}
	}
	op := OpCode(c.Code[offset])
	if !op.Valid() {
		return Instruction{}, &DecodeError{Offset: offset, Reason: fmt.Sprintf("unknown opcode 0x%02x", byte(op))}
	}
	in := Instruction{Offset: offset, Op: op, Line: c.LineAt(offset)}
	width := op.OperandWidth()
	if width > 0 && offset+width >= len(c.Code) {
		return Instruction{}, &DecodeError{Offset: offset, Reason: fmt.Sprintf("truncated operand for %s", op)}
	}
	switch width {
	case 1:
		in.Operand = int(c.Code[offset+1])
	case 2:
		switch op {
		case OpJump, OpJumpIfFalse, OpJumpIfTrue:
			in.Operand = int(c.ReadI16(offset + 1))
		default:
			in.Operand = int(c.ReadU16(offset + 1))
		}
	}
	return in, nil
}

// Instructions 按顺序解码整个字节码块
func (c *Chunk) Instructions() ([]Instruction, error) {
	var out []Instruction
	for offset := 0; offset < len(c.Code); {
		in, err := c.Decode(offset)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
		offset += in.Width()
	}
	return out, nil
}

// ============================================================================
// 反汇编
// ============================================================================

// Disassemble 反汇编字节码
func (c *Chunk) Disassemble(name string) string {
	var sb strings.Builder
	sb.Grow(len(c.Code) * 30)

	sb.WriteString("=== ")
	sb.WriteString(name)
	sb.WriteString(" ===\n")

	offset := 0
	for offset < len(c.Code) {
		next, ok := c.disassembleInstruction(&sb, offset)
		if !ok {
			break
		}
		offset = next
	}

	return sb.String()
}

func (c *Chunk) disassembleInstruction(sb *strings.Builder, offset int) (int, bool) {
	fmt.Fprintf(sb, "%04d ", offset)

	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		sb.WriteString("   | ")
	} else {
		fmt.Fprintf(sb, "%4d ", c.LineAt(offset))
	}

	in, err := c.Decode(offset)
	if err != nil {
		fmt.Fprintf(sb, "<%s>\n", err)
		return 0, false
	}

	switch in.Op {
	case OpConst, OpConstLong:
		fmt.Fprintf(sb, "%-16s %4d '", in.Op, in.Operand)
		if in.Operand < len(c.Constants) {
			sb.WriteString(c.Constants[in.Operand].String())
		}
		sb.WriteString("'\n")
	case OpJump, OpJumpIfFalse, OpJumpIfTrue:
		fmt.Fprintf(sb, "%-16s %4d -> %d\n", in.Op, in.Operand, offset+3+in.Operand)
	case OpLoop:
		fmt.Fprintf(sb, "%-16s %4d -> %d\n", in.Op, in.Operand, offset+3-in.Operand)
	default:
		if in.Op.OperandWidth() > 0 {
			fmt.Fprintf(sb, "%-16s %4d\n", in.Op, in.Operand)
		} else {
			fmt.Fprintf(sb, "%s\n", in.Op)
		}
	}
	return offset + in.Width(), true
}
