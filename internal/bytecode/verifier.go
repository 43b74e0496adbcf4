package bytecode

import (
	"fmt"
)

// VerificationError 字节码结构错误
type VerificationError struct {
	Offset  int    // 指令偏移量
	Message string // 错误消息
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("invalid bytecode at offset %d: %s", e.Offset, e.Message)
}

// Verifier 字节码结构验证器
//
// 检查每条指令都能解码、常量索引在常量池内、跳转目标落在指令边界上。
// 跳转可以指向字节码末尾。
type Verifier struct {
	chunk      *Chunk
	boundaries map[int]bool
}

// NewVerifier 创建验证器
func NewVerifier(chunk *Chunk) *Verifier {
	return &Verifier{chunk: chunk}
}

// Verify 验证字节码块，返回第一个错误
func Verify(chunk *Chunk) error {
	return NewVerifier(chunk).Verify()
}

// Verify 验证字节码
func (v *Verifier) Verify() error {
	if v.chunk == nil {
		return &VerificationError{Offset: 0, Message: "nil chunk"}
	}
	if len(v.chunk.Lines) != len(v.chunk.Code) {
		return &VerificationError{Offset: 0, Message: fmt.Sprintf(
			"line table has %d entries for %d code bytes", len(v.chunk.Lines), len(v.chunk.Code))}
	}

	instructions, err := v.chunk.Instructions()
	if err != nil {
		return err
	}

	// 第一遍：记录指令边界
	v.boundaries = make(map[int]bool, len(instructions)+1)
	for _, in := range instructions {
		v.boundaries[in.Offset] = true
	}
	v.boundaries[v.chunk.Len()] = true

	// 第二遍：检查操作数
	for _, in := range instructions {
		if err := v.verifyInstruction(in); err != nil {
			return err
		}
	}
	return nil
}

func (v *Verifier) verifyInstruction(in Instruction) error {
	switch in.Op {
	case OpConst, OpConstLong:
		if in.Operand >= len(v.chunk.Constants) {
			return &VerificationError{Offset: in.Offset, Message: fmt.Sprintf(
				"%s index %d out of range (pool has %d constants)", in.Op, in.Operand, len(v.chunk.Constants))}
		}
	case OpJump, OpJumpIfFalse, OpJumpIfTrue, OpLoop:
		target := JumpTarget(in)
		if !v.boundaries[target] {
			return &VerificationError{Offset: in.Offset, Message: fmt.Sprintf(
				"%s target %d is not an instruction boundary", in.Op, target)}
		}
	}
	return nil
}

// JumpTarget 返回跳转指令的目标偏移，LOOP 向后跳转
func JumpTarget(in Instruction) int {
	next := in.Offset + in.Width()
	if in.Op == OpLoop {
		return next - in.Operand
	}
	return next + in.Operand
}
