package frontend

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tangzhangming/solac/internal/bytecode"
)

// Assembler 文本字节码汇编器
//
// 语法：
//
//	; 注释
//	CONST 2
//	CONST "hello"
//	ADD
//	JUMP_IF_FALSE 3
//	RETURN
//
// 三个阶段的错误分别带 "lex error"、"parse error"、"bytecode compile error" 前缀。
type Assembler struct{}

// NewAssembler 创建汇编器
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Compile 实现 Frontend
func (a *Assembler) Compile(name string, source []byte) (*bytecode.Chunk, error) {
	tokens, err := newLexer(string(source)).scan()
	if err != nil {
		return nil, errors.Wrap(&SourceError{File: name, Err: err}, "lex error")
	}
	stmts, err := newParser(tokens).parse()
	if err != nil {
		return nil, errors.Wrap(&SourceError{File: name, Err: err}, "parse error")
	}
	chunk, err := emit(stmts)
	if err != nil {
		return nil, errors.Wrap(&SourceError{File: name, Err: err}, "bytecode compile error")
	}
	return chunk, nil
}

// ============================================================================
// 字节码生成
// ============================================================================

// emit 把指令序列写入字节码块
func emit(stmts []statement) (*bytecode.Chunk, error) {
	chunk := bytecode.NewChunk()
	var errs error
	for _, stmt := range stmts {
		if err := emitStatement(chunk, stmt); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return chunk, nil
}

func emitStatement(chunk *bytecode.Chunk, stmt statement) error {
	line := stmt.Pos.Line
	switch stmt.Op {
	case bytecode.OpConst:
		if err := chunk.EmitConstant(stmt.Operand.Value, line); err != nil {
			return newPosError(stmt.Pos, "%v", err)
		}
		return nil

	case bytecode.OpConstLong:
		idx := chunk.AddConstant(stmt.Operand.Value)
		if idx > math.MaxUint16 {
			return newPosError(stmt.Pos, "constant index %d exceeds %d", idx, math.MaxUint16)
		}
		chunk.WriteOp(bytecode.OpConstLong, line)
		chunk.WriteU16(uint16(idx), line)
		return nil
	}

	if stmt.Operand == nil {
		chunk.WriteOp(stmt.Op, line)
		return nil
	}

	n := stmt.Operand.Integer
	lo, hi := operandRange(stmt.Op)
	if n < lo || n > hi {
		return newPosError(stmt.Operand.Pos, "operand %d of %s out of range [%d, %d]", n, stmt.Op, lo, hi)
	}
	chunk.WriteOp(stmt.Op, line)
	switch stmt.Op.OperandWidth() {
	case 1:
		chunk.WriteU8(uint8(n), line)
	case 2:
		chunk.WriteU16(uint16(n), line)
	}
	return nil
}

// operandRange 整数操作数的取值范围
func operandRange(op bytecode.OpCode) (int64, int64) {
	switch op {
	case bytecode.OpJump, bytecode.OpJumpIfFalse, bytecode.OpJumpIfTrue:
		return math.MinInt16, math.MaxInt16
	}
	if op.OperandWidth() == 1 {
		return 0, math.MaxUint8
	}
	return 0, math.MaxUint16
}
