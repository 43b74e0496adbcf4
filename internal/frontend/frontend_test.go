package frontend

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/tangzhangming/solac/internal/bytecode"
)

func assemble(t *testing.T, src string) *bytecode.Chunk {
	t.Helper()
	chunk, err := NewAssembler().Compile("test.sasm", []byte(src))
	require.NoError(t, err)
	return chunk
}

// TestAssembleBasic 测试基本指令与行号
func TestAssembleBasic(t *testing.T) {
	chunk := assemble(t, `; 2 + 3
CONST 2
const 3   ; 大小写不敏感

ADD
RETURN
`)
	assert.Equal(t, []byte{
		byte(bytecode.OpConst), 0,
		byte(bytecode.OpConst), 1,
		byte(bytecode.OpAdd),
		byte(bytecode.OpReturn),
	}, chunk.Code)
	assert.Equal(t, []int{2, 2, 3, 3, 5, 6}, chunk.Lines)
	require.Len(t, chunk.Constants, 2)
	assert.True(t, chunk.Constants[0].Equals(bytecode.NewInt(2)))
	assert.True(t, chunk.Constants[1].Equals(bytecode.NewInt(3)))
}

// TestAssembleLiterals 测试各类字面量
func TestAssembleLiterals(t *testing.T) {
	chunk := assemble(t, strings.Join([]string{
		`CONST -7`,
		`CONST 0x10`,
		`CONST 2.5`,
		`CONST 1e3`,
		`CONST "a\tb\"c\n"`,
		`CONST true`,
		`CONST false`,
		`CONST null`,
	}, "\n"))

	want := []bytecode.Value{
		bytecode.NewInt(-7),
		bytecode.NewInt(16),
		bytecode.NewFloat(2.5),
		bytecode.NewFloat(1000),
		bytecode.NewString("a\tb\"c\n"),
		bytecode.TrueValue,
		bytecode.FalseValue,
		bytecode.NullValue,
	}
	require.Len(t, chunk.Constants, len(want))
	for i, v := range want {
		assert.True(t, v.Equals(chunk.Constants[i]), "constant %d: want %s got %s", i, v, chunk.Constants[i])
	}
}

// TestAssembleOperands 测试整数操作数编码
func TestAssembleOperands(t *testing.T) {
	chunk := assemble(t, "JUMP -3\nLOAD_LOCAL 258\nCALL 2\nCONST_LONG 9")
	assert.Equal(t, []byte{
		byte(bytecode.OpJump), 0xFF, 0xFD,
		byte(bytecode.OpLoadLocal), 0x01, 0x02,
		byte(bytecode.OpCall), 2,
		byte(bytecode.OpConstLong), 0x00, 0x00,
	}, chunk.Code)

	ins, err := chunk.Instructions()
	require.NoError(t, err)
	assert.Equal(t, -3, ins[0].Operand)
	assert.Equal(t, 258, ins[1].Operand)
}

// TestAssembleConstLongSwitch 测试常量超过 256 个时自动使用 CONST_LONG
func TestAssembleConstLongSwitch(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 257; i++ {
		sb.WriteString("CONST 1\n")
	}
	chunk := assemble(t, sb.String())
	ins, err := chunk.Instructions()
	require.NoError(t, err)
	require.Len(t, ins, 257)
	assert.Equal(t, bytecode.OpConst, ins[255].Op)
	assert.Equal(t, bytecode.OpConstLong, ins[256].Op)
	assert.Equal(t, 256, ins[256].Operand)
}

// TestAssembleLexErrors 测试词法错误全部上报
func TestAssembleLexErrors(t *testing.T) {
	_, err := NewAssembler().Compile("bad.sasm", []byte("CONST \"open\nADD @\nCONST \"\\q\""))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "lex error: bad.sasm: "), err.Error())

	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	errs := multierr.Errors(srcErr.Err)
	require.Len(t, errs, 3)
	assert.Equal(t, "1:7: unterminated string", errs[0].Error())
	assert.Equal(t, "2:5: unexpected character '@'", errs[1].Error())
	assert.Equal(t, "3:7: invalid escape sequence \\q", errs[2].Error())
}

// TestAssembleParseErrors 测试语法错误
func TestAssembleParseErrors(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"FROB", `1:1: unknown mnemonic "FROB"`},
		{"ADD 1", "1:5: unexpected integer after ADD"},
		{"CONST", "1:6: CONST expects a literal, got end of line"},
		{"CONST maybe", `1:7: CONST expects a literal, got "maybe"`},
		{"JUMP \"x\"", "1:6: JUMP expects an integer operand, got string"},
		{"42", "1:1: expected mnemonic, got integer"},
		{"CONST 99999999999999999999", `1:7: invalid integer "99999999999999999999"`},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := NewAssembler().Compile("p.sasm", []byte(tc.src))
			require.Error(t, err)
			assert.Equal(t, "parse error: p.sasm: "+tc.want, err.Error())
		})
	}
}

// TestAssembleParseRecovers 测试出错后继续分析下一行
func TestAssembleParseRecovers(t *testing.T) {
	_, err := NewAssembler().Compile("p.sasm", []byte("FROB 1 2\nADD\nNOPE"))
	var srcErr *SourceError
	require.True(t, errors.As(err, &srcErr))
	assert.Len(t, multierr.Errors(srcErr.Err), 2)
}

// TestAssembleCompileErrors 测试操作数越界
func TestAssembleCompileErrors(t *testing.T) {
	_, err := NewAssembler().Compile("c.sasm", []byte("CALL 256\nJUMP 40000\nLOAD_GLOBAL -1"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "bytecode compile error: c.sasm: "), err.Error())
	assert.Contains(t, err.Error(), "operand 256 of CALL out of range [0, 255]")
	assert.Contains(t, err.Error(), "operand 40000 of JUMP out of range [-32768, 32767]")
	assert.Contains(t, err.Error(), "operand -1 of LOAD_GLOBAL out of range [0, 65535]")
}

// TestAssembleEmpty 测试空源文件
func TestAssembleEmpty(t *testing.T) {
	chunk := assemble(t, "; 只有注释\n\n")
	assert.Empty(t, chunk.Code)
	assert.Empty(t, chunk.Constants)
}

// TestContainerLoader 测试容器加载与扩展名选择
func TestContainerLoader(t *testing.T) {
	src := bytecode.NewChunk()
	require.NoError(t, src.EmitConstant(bytecode.NewInt(5), 1))
	src.WriteOp(bytecode.OpReturn, 1)
	data, err := bytecode.Marshal(src)
	require.NoError(t, err)

	fe := ForPath("prog.sbc")
	require.IsType(t, ContainerLoader{}, fe)
	chunk, err := fe.Compile("prog.sbc", data)
	require.NoError(t, err)
	assert.Equal(t, src.Code, chunk.Code)

	_, err = fe.Compile("junk.sbc", []byte("not cbor"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "junk.sbc: "))

	bad := bytecode.NewChunk()
	bad.WriteOp(bytecode.OpConst, 1)
	bad.WriteU8(7, 1)
	data, err = bytecode.Marshal(bad)
	require.NoError(t, err)
	_, err = fe.Compile("bad.sbc", data)
	var verr *bytecode.VerificationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, verr.Offset)

	assert.IsType(t, &Assembler{}, ForPath("prog.sasm"))
	assert.IsType(t, &Assembler{}, ForPath("prog"))
	assert.IsType(t, ContainerLoader{}, ForPath("PROG.SBC"))
}
