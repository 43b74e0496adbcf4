package ir

import (
	"fmt"
	"strings"
)

// ============================================================================
// IR 指令定义
// ============================================================================

// Op IR 操作码
type Op uint8

const (
	OpNop Op = iota

	// 数据移动
	OpLoadConst
	OpLoadGlobal
	OpStoreGlobal
	OpLoadLocal
	OpStoreLocal
	OpMove
	OpLoad  // 通过指针寄存器读取
	OpStore // 通过指针寄存器写入

	// 算术运算
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg

	// 比较运算
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// 逻辑运算
	OpAnd
	OpOr
	OpNot

	// 位运算
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr

	// 调用
	OpCall
	OpCallIndirect

	// 内存
	OpAlloca
	OpHeapAlloc
	OpFree

	// 异常
	OpThrow
	OpTryBegin
	OpTryEnd

	// 其他
	OpPhi
	OpDebugLine
)

var opNames = [...]string{
	OpNop:          "nop",
	OpLoadConst:    "const",
	OpLoadGlobal:   "load_global",
	OpStoreGlobal:  "store_global",
	OpLoadLocal:    "load_local",
	OpStoreLocal:   "store_local",
	OpMove:         "move",
	OpLoad:         "load",
	OpStore:        "store",
	OpAdd:          "add",
	OpSub:          "sub",
	OpMul:          "mul",
	OpDiv:          "div",
	OpMod:          "mod",
	OpNeg:          "neg",
	OpEq:           "eq",
	OpNe:           "ne",
	OpLt:           "lt",
	OpLe:           "le",
	OpGt:           "gt",
	OpGe:           "ge",
	OpAnd:          "and",
	OpOr:           "or",
	OpNot:          "not",
	OpBitAnd:       "bit_and",
	OpBitOr:        "bit_or",
	OpBitXor:       "bit_xor",
	OpBitNot:       "bit_not",
	OpShl:          "shl",
	OpShr:          "shr",
	OpCall:         "call",
	OpCallIndirect: "call_indirect",
	OpAlloca:       "alloca",
	OpHeapAlloc:    "heap_alloc",
	OpFree:         "free",
	OpThrow:        "throw",
	OpTryBegin:     "try_begin",
	OpTryEnd:       "try_end",
	OpPhi:          "phi",
	OpDebugLine:    "debug_line",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// IsBinary 是否为二元运算
func (op Op) IsBinary() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod,
		OpEq, OpNe, OpLt, OpLe, OpGt, OpGe,
		OpAnd, OpOr,
		OpBitAnd, OpBitOr, OpBitXor, OpShl, OpShr:
		return true
	}
	return false
}

// IsUnary 是否为一元运算
func (op Op) IsUnary() bool {
	switch op {
	case OpNeg, OpNot, OpBitNot:
		return true
	}
	return false
}

// IsComparison 是否为比较运算
func (op Op) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// PhiEdge phi 的一个入边
type PhiEdge struct {
	Block BlockID
	Value RegisterID
}

// Instruction IR 指令
//
// 各操作码使用的字段：
//   - 二元运算: Dest = Args[0] op Args[1]
//   - 一元运算 / Move / Load: Dest = op Args[0]
//   - Store: *Args[0] = Args[1]
//   - LoadConst: Dest = Const
//   - LoadGlobal / StoreGlobal: Name，StoreGlobal 的值在 Args[0]
//   - LoadLocal / StoreLocal: Slot，StoreLocal 的值在 Args[0]
//   - Call: Name(Args...)，Dest 可选
//   - CallIndirect: Args[0](Args[1:]...)，Dest 可选
//   - Alloca / HeapAlloc: Dest = 分配 Size 字节
//   - Free / Throw: Args[0]
//   - TryBegin: Handler 为异常处理块
//   - Phi: Dest = phi(Incoming...)
//   - DebugLine: Line
type Instruction struct {
	Op       Op
	Dest     RegisterID
	HasDest  bool
	Args     []RegisterID
	Const    Constant
	Name     string
	Slot     int
	Size     int64
	Handler  BlockID
	Incoming []PhiEdge
	Line     int // 源码行号，0 表示未知
}

// Left 二元运算左操作数
func (in Instruction) Left() RegisterID {
	return in.Args[0]
}

// Right 二元运算右操作数
func (in Instruction) Right() RegisterID {
	return in.Args[1]
}

// Uses 指令读取的寄存器
func (in Instruction) Uses() []RegisterID {
	if in.Op == OpPhi {
		uses := make([]RegisterID, 0, len(in.Incoming))
		for _, e := range in.Incoming {
			uses = append(uses, e.Value)
		}
		return uses
	}
	return in.Args
}

// WithLine 返回带行号的指令副本
func (in Instruction) WithLine(line int) Instruction {
	in.Line = line
	return in
}

// ============================================================================
// 指令构造
// ============================================================================

func LoadConst(dest RegisterID, c Constant) Instruction {
	return Instruction{Op: OpLoadConst, Dest: dest, HasDest: true, Const: c}
}

func LoadGlobal(dest RegisterID, name string) Instruction {
	return Instruction{Op: OpLoadGlobal, Dest: dest, HasDest: true, Name: name}
}

func StoreGlobal(name string, value RegisterID) Instruction {
	return Instruction{Op: OpStoreGlobal, Name: name, Args: []RegisterID{value}}
}

func LoadLocal(dest RegisterID, slot int) Instruction {
	return Instruction{Op: OpLoadLocal, Dest: dest, HasDest: true, Slot: slot}
}

func StoreLocal(slot int, value RegisterID) Instruction {
	return Instruction{Op: OpStoreLocal, Slot: slot, Args: []RegisterID{value}}
}

func Move(dest, src RegisterID) Instruction {
	return Instruction{Op: OpMove, Dest: dest, HasDest: true, Args: []RegisterID{src}}
}

func Load(dest, ptr RegisterID) Instruction {
	return Instruction{Op: OpLoad, Dest: dest, HasDest: true, Args: []RegisterID{ptr}}
}

func Store(ptr, value RegisterID) Instruction {
	return Instruction{Op: OpStore, Args: []RegisterID{ptr, value}}
}

// Binary 二元运算 dest = left op right
func Binary(op Op, dest, left, right RegisterID) Instruction {
	return Instruction{Op: op, Dest: dest, HasDest: true, Args: []RegisterID{left, right}}
}

// Unary 一元运算 dest = op operand
func Unary(op Op, dest, operand RegisterID) Instruction {
	return Instruction{Op: op, Dest: dest, HasDest: true, Args: []RegisterID{operand}}
}

// Call 直接调用，dest 为 nil 时丢弃返回值
func Call(dest *RegisterID, callee string, args ...RegisterID) Instruction {
	in := Instruction{Op: OpCall, Name: callee, Args: args}
	if dest != nil {
		in.Dest, in.HasDest = *dest, true
	}
	return in
}

// CallIndirect 通过寄存器中的函数指针调用
func CallIndirect(dest *RegisterID, callee RegisterID, args ...RegisterID) Instruction {
	in := Instruction{Op: OpCallIndirect, Args: append([]RegisterID{callee}, args...)}
	if dest != nil {
		in.Dest, in.HasDest = *dest, true
	}
	return in
}

func Alloca(dest RegisterID, size int64) Instruction {
	return Instruction{Op: OpAlloca, Dest: dest, HasDest: true, Size: size}
}

func HeapAlloc(dest RegisterID, size int64) Instruction {
	return Instruction{Op: OpHeapAlloc, Dest: dest, HasDest: true, Size: size}
}

func Free(ptr RegisterID) Instruction {
	return Instruction{Op: OpFree, Args: []RegisterID{ptr}}
}

func ThrowValue(value RegisterID) Instruction {
	return Instruction{Op: OpThrow, Args: []RegisterID{value}}
}

func TryBegin(handler BlockID) Instruction {
	return Instruction{Op: OpTryBegin, Handler: handler}
}

func TryEnd() Instruction {
	return Instruction{Op: OpTryEnd}
}

func Phi(dest RegisterID, incoming ...PhiEdge) Instruction {
	return Instruction{Op: OpPhi, Dest: dest, HasDest: true, Incoming: incoming}
}

func Nop() Instruction {
	return Instruction{Op: OpNop}
}

func DebugLine(line int) Instruction {
	return Instruction{Op: OpDebugLine, Line: line}
}

// ============================================================================
// 字符串表示
// ============================================================================

func (in Instruction) String() string {
	var sb strings.Builder
	if in.HasDest {
		sb.WriteString(in.Dest.String())
		sb.WriteString(" = ")
	}
	sb.WriteString(in.Op.String())

	switch in.Op {
	case OpLoadConst:
		sb.WriteString(" " + in.Const.String())
	case OpLoadGlobal:
		sb.WriteString(" @" + in.Name)
	case OpStoreGlobal:
		fmt.Fprintf(&sb, " @%s, %s", in.Name, joinRegs(in.Args))
	case OpLoadLocal:
		fmt.Fprintf(&sb, " $%d", in.Slot)
	case OpStoreLocal:
		fmt.Fprintf(&sb, " $%d, %s", in.Slot, joinRegs(in.Args))
	case OpCall:
		fmt.Fprintf(&sb, " @%s(%s)", in.Name, joinRegs(in.Args))
	case OpCallIndirect:
		if len(in.Args) > 0 {
			fmt.Fprintf(&sb, " %s(%s)", in.Args[0], joinRegs(in.Args[1:]))
		}
	case OpAlloca, OpHeapAlloc:
		fmt.Fprintf(&sb, " %d", in.Size)
	case OpTryBegin:
		sb.WriteString(" " + in.Handler.String())
	case OpPhi:
		parts := make([]string, 0, len(in.Incoming))
		for _, e := range in.Incoming {
			parts = append(parts, fmt.Sprintf("[%s, %s]", e.Block, e.Value))
		}
		sb.WriteString(" " + strings.Join(parts, ", "))
	case OpDebugLine:
		fmt.Fprintf(&sb, " %d", in.Line)
	default:
		if len(in.Args) > 0 {
			sb.WriteString(" " + joinRegs(in.Args))
		}
	}
	return sb.String()
}

func joinRegs(regs []RegisterID) string {
	parts := make([]string, len(regs))
	for i, r := range regs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ", ")
}
