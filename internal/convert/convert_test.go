package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/solac/internal/bytecode"
	"github.com/tangzhangming/solac/internal/ir"
)

func chunkOf(build func(c *bytecode.Chunk)) *bytecode.Chunk {
	c := bytecode.NewChunk()
	build(c)
	return c
}

func instrStrings(b *ir.Block) []string {
	out := make([]string, len(b.Instructions))
	for i, in := range b.Instructions {
		out[i] = in.String()
	}
	return out
}

// TestConvertEmpty 空字节码仍生成 main 和 return 0
func TestConvertEmpty(t *testing.T) {
	m, err := Convert("empty", bytecode.NewChunk())
	require.NoError(t, err)

	require.Len(t, m.Functions, 1)
	fn := m.Functions[0]
	assert.Equal(t, "main", fn.Name)
	require.Len(t, fn.Blocks, 1)

	b := fn.Blocks[0]
	require.Len(t, b.Instructions, 1)
	ret, ok := b.Terminator.ReturnValue()
	require.True(t, ok)
	assert.Equal(t, ir.LoadConst(ret, ir.IntConst(0)), b.Instructions[0])
	require.NoError(t, m.Validate())
}

// TestConvertOperandOrder 先压栈的值是左操作数
func TestConvertOperandOrder(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		require.NoError(t, c.EmitConstant(bytecode.NewFloat(2.0), 1))
		require.NoError(t, c.EmitConstant(bytecode.NewFloat(3.0), 1))
		c.WriteOp(bytecode.OpAdd, 1)
	})

	m, err := Convert("add", chunk)
	require.NoError(t, err)
	b := m.Functions[0].Blocks[0]

	require.Len(t, b.Instructions, 4)
	assert.Equal(t, []string{
		"r0 = const 2",
		"r1 = const 3",
		"r2 = add r0, r1",
		"r3 = const 0",
	}, instrStrings(b))
	assert.Equal(t, ir.FloatConst(2.0), b.Instructions[0].Const)
	assert.Equal(t, ir.RegisterID(0), b.Instructions[2].Left())
	assert.Equal(t, ir.RegisterID(1), b.Instructions[2].Right())
}

// TestConvertSubOrder 非交换运算的操作数顺序
func TestConvertSubOrder(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		require.NoError(t, c.EmitConstant(bytecode.NewInt(10), 1))
		require.NoError(t, c.EmitConstant(bytecode.NewInt(4), 1))
		c.WriteOp(bytecode.OpSub, 1)
		require.NoError(t, c.EmitConstant(bytecode.NewInt(2), 2))
		c.WriteOp(bytecode.OpShl, 2)
	})

	m, err := Convert("sub", chunk)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"r0 = const 10",
		"r1 = const 4",
		"r2 = sub r0, r1",
		"r3 = const 2",
		"r4 = shl r2, r3",
		"r5 = const 0",
	}, instrStrings(m.Functions[0].Blocks[0]))
}

// TestConvertReturnOverwritten 显式 return 被合成的 return 0 覆盖
func TestConvertReturnOverwritten(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		require.NoError(t, c.EmitConstant(bytecode.NewFloat(2.0), 1))
		require.NoError(t, c.EmitConstant(bytecode.NewFloat(3.0), 1))
		c.WriteOp(bytecode.OpAdd, 1)
		c.WriteOp(bytecode.OpReturn, 1)
	})

	m, err := Convert("ret", chunk)
	require.NoError(t, err)
	b := m.Functions[0].Blocks[0]

	sum := b.Instructions[2].Dest
	ret, ok := b.Terminator.ReturnValue()
	require.True(t, ok)
	assert.NotEqual(t, sum, ret)

	last := b.Instructions[len(b.Instructions)-1]
	assert.Equal(t, ret, last.Dest)
	assert.Equal(t, ir.OpLoadConst, last.Op)
	assert.Equal(t, ir.IntConst(0), last.Const)
}

// TestConvertLiteralsAndUnary 测试字面量和一元运算
func TestConvertLiteralsAndUnary(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		c.WriteOp(bytecode.OpTrue, 1)
		c.WriteOp(bytecode.OpNot, 1)
		c.WriteOp(bytecode.OpPop, 1)
		c.WriteOp(bytecode.OpNull, 2)
		c.WriteOp(bytecode.OpPrintLn, 2)
		c.WriteOp(bytecode.OpFalse, 3)
		c.WriteOp(bytecode.OpPrint, 3)
		require.NoError(t, c.EmitConstant(bytecode.NewString("x"), 4))
		c.WriteOp(bytecode.OpPop, 4)
		c.WriteOp(bytecode.OpOne, 5)
		c.WriteOp(bytecode.OpNeg, 5)
		c.WriteOp(bytecode.OpBitNot, 5)
	})

	m, err := Convert("lit", chunk)
	require.NoError(t, err)
	b := m.Functions[0].Blocks[0]
	assert.Equal(t, []string{
		"r0 = const true",
		"r1 = not r0",
		"r2 = const null",
		"r3 = const false",
		`r4 = const "x"`,
		"r5 = const 1",
		"r6 = neg r5",
		"r7 = bit_not r6",
		"r8 = const 0",
	}, instrStrings(b))
	assert.Equal(t, 5, b.Instructions[6].Line)
	assert.Equal(t, 0, b.Instructions[8].Line)
}

// TestConvertUnsupportedOpcode 不支持的操作码使转换失败
func TestConvertUnsupportedOpcode(t *testing.T) {
	for _, op := range []bytecode.OpCode{bytecode.OpJump, bytecode.OpLoop, bytecode.OpCall, bytecode.OpLoadLocal, bytecode.OpDup} {
		chunk := chunkOf(func(c *bytecode.Chunk) {
			c.WriteOp(bytecode.OpTrue, 1)
			c.WriteOp(op, 2)
			for i := 0; i < op.OperandWidth(); i++ {
				c.WriteU8(0, 2)
			}
		})

		m, err := Convert("bad", chunk)
		require.Error(t, err, op.String())
		assert.Nil(t, m)
		assert.Contains(t, err.Error(), "unsupported")

		var opErr *UnsupportedOpcodeError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, op, opErr.Op)
		assert.Equal(t, 1, opErr.Offset)
	}
}

// TestConvertInvalidByte 未定义的操作码字节
func TestConvertInvalidByte(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) { c.Write(0xEE, 1) })
	_, err := Convert("bad", chunk)
	var opErr *UnsupportedOpcodeError
	require.ErrorAs(t, err, &opErr)
}

// TestConvertUnderflow 空栈上的二元运算
func TestConvertUnderflow(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		c.WriteOp(bytecode.OpOne, 1)
		c.WriteOp(bytecode.OpAdd, 1)
	})
	_, err := Convert("under", chunk)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStackUnderflow)
	assert.Contains(t, err.Error(), "underflow")

	chunk = chunkOf(func(c *bytecode.Chunk) { c.WriteOp(bytecode.OpPop, 1) })
	_, err = Convert("under", chunk)
	assert.ErrorIs(t, err, ErrStackUnderflow)
}

// TestPopRegisterEmpty 直接在空栈上出栈
func TestPopRegisterEmpty(t *testing.T) {
	c := New(ir.NewModule("m"))
	_, err := c.popRegister()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "underflow")

	r := c.pushRegister()
	got, err := c.popRegister()
	require.NoError(t, err)
	assert.Equal(t, r, got)
	assert.Equal(t, 0, c.stackDepth)
	assert.Empty(t, c.stackMap)
}

// TestEmitWithoutBlock 没有当前块时写入被丢弃
func TestEmitWithoutBlock(t *testing.T) {
	m := ir.NewModule("m")
	c := New(m)
	c.emit(ir.Nop())
	c.terminate(ir.ReturnVoid())
	assert.Empty(t, m.Functions)
}

// TestConvertUnsupportedConstant 函数常量不能表示为 IR 常量
func TestConvertUnsupportedConstant(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		require.NoError(t, c.EmitConstant(bytecode.NewFunc(&bytecode.Function{Name: "f"}), 1))
	})
	_, err := Convert("k", chunk)
	var kErr *UnsupportedConstantError
	require.ErrorAs(t, err, &kErr)
	assert.Equal(t, bytecode.ValFunc, kErr.Type)
	assert.Contains(t, err.Error(), "unsupported constant")
}

// TestConvertConstantOutOfRange 常量索引越界
func TestConvertConstantOutOfRange(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) {
		c.WriteOp(bytecode.OpConst, 1)
		c.WriteU8(3, 1)
	})
	_, err := Convert("k", chunk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

// TestConvertOwnership 模块交出后转换器不能再次使用
func TestConvertOwnership(t *testing.T) {
	c := New(ir.NewModule("m"))
	m, err := c.Convert(bytecode.NewChunk())
	require.NoError(t, err)
	require.NotNil(t, m)

	_, err = c.Convert(bytecode.NewChunk())
	assert.ErrorIs(t, err, ErrConsumed)
}

// TestConvertReturnEmptyStack 空栈 return 后仍被结尾覆盖
func TestConvertReturnEmptyStack(t *testing.T) {
	chunk := chunkOf(func(c *bytecode.Chunk) { c.WriteOp(bytecode.OpReturn, 1) })
	m, err := Convert("r", chunk)
	require.NoError(t, err)
	_, ok := m.Functions[0].Blocks[0].Terminator.ReturnValue()
	assert.True(t, ok)
}
