package bytecode

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk() *Chunk {
	c := NewChunk()
	_ = c.EmitConstant(NewFloat(2), 1)
	_ = c.EmitConstant(NewString("hello"), 1)
	_ = c.EmitConstant(NewArray([]Value{NewInt(1), NullValue, NewBool(true)}), 2)
	c.WriteOp(OpPrintLn, 3)
	c.WriteOp(OpReturn, 4)

	body := NewChunk()
	body.WriteOp(OpReturnNull, 7)
	c.AddConstant(NewFunc(&Function{Name: "helper", Arity: 1, Chunk: body}))
	return c
}

// TestContainerRoundTrip 测试容器编解码
func TestContainerRoundTrip(t *testing.T) {
	c := sampleChunk()

	data, err := Marshal(c)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, c.Code, got.Code)
	assert.Equal(t, c.Lines, got.Lines)
	require.Len(t, got.Constants, len(c.Constants))
	for i := 0; i < 3; i++ {
		assert.True(t, c.Constants[i].Equals(got.Constants[i]), "constant %d", i)
	}

	fn := got.Constants[3].AsFunc()
	require.NotNil(t, fn)
	assert.Equal(t, "helper", fn.Name)
	assert.Equal(t, 1, fn.Arity)
	require.NotNil(t, fn.Chunk)
	assert.Equal(t, []byte{byte(OpReturnNull)}, fn.Chunk.Code)
}

// TestContainerDeterministic 测试规范编码的确定性
func TestContainerDeterministic(t *testing.T) {
	a, err := Marshal(sampleChunk())
	require.NoError(t, err)
	b, err := Marshal(sampleChunk())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// TestContainerBadMagic 测试魔数校验
func TestContainerBadMagic(t *testing.T) {
	data, err := cbor.Marshal(&container{Magic: "ELF!", Major: MajorVersion})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad container magic")
}

// TestContainerVersion 测试版本校验
func TestContainerVersion(t *testing.T) {
	data, err := cbor.Marshal(&container{Magic: ContainerMagic, Major: MajorVersion + 1})
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported container version")
}

// TestContainerLineTableMismatch 测试行号表长度校验
func TestContainerLineTableMismatch(t *testing.T) {
	c := &Chunk{Code: []byte{byte(OpReturn)}}
	_, err := Marshal(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line table")
}

// TestContainerGarbage 测试非法输入
func TestContainerGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00, 0x13})
	require.Error(t, err)
}
