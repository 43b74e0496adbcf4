package backend

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangzhangming/solac/internal/ir"
	"github.com/tangzhangming/solac/internal/target"
)

// returnZeroModule 空字节码转换后的模块：r0 = const 0; ret r0
func returnZeroModule() *ir.Module {
	m := ir.NewModule("empty")
	fn := m.NewFunction("main", ir.TypeI64)
	r := m.NewRegister()
	fn.EntryBlock().Append(ir.LoadConst(r, ir.IntConst(0)))
	fn.EntryBlock().SetTerminator(ir.Return(r))
	return m
}

// TestCompileReturnZeroLinux 测试最小程序的完整机器码
func TestCompileReturnZeroLinux(t *testing.T) {
	code, err := NewX64(target.OSLinux).CompileModule(returnZeroModule())
	require.NoError(t, err)

	want := []byte{
		// 入口桩
		0xE8, 0x0E, 0x00, 0x00, 0x00, // call main
		0x48, 0x89, 0xC7, // mov rdi, rax
		0x48, 0xC7, 0xC0, 0x3C, 0x00, 0x00, 0x00, // mov rax, 60
		0x0F, 0x05, // syscall
		0x0F, 0x0B, // ud2
		// main
		0x55,             // push rbp
		0x48, 0x89, 0xE5, // mov rbp, rsp
		0x48, 0xC7, 0xC0, 0x00, 0x00, 0x00, 0x00, // mov rax, 0
		0x48, 0x89, 0xC6, // mov rsi, rax
		0x48, 0x89, 0xF0, // mov rax, rsi
		0x48, 0x89, 0xEC, // mov rsp, rbp
		0x5D, // pop rbp
		0xC3, // ret
	}
	assert.Equal(t, want, code)
}

// TestEntryStubPerOS 测试各操作系统的入口桩
func TestEntryStubPerOS(t *testing.T) {
	code, err := NewX64(target.OSMacOS).CompileModule(returnZeroModule())
	require.NoError(t, err)
	assert.Equal(t, []byte{0x48, 0xC7, 0xC0, 0x01, 0x00, 0x00, 0x02}, code[8:15])

	code, err = NewX64(target.OSWindows).CompileModule(returnZeroModule())
	require.NoError(t, err)
	assert.Equal(t, []byte{0xE8, 0x01, 0x00, 0x00, 0x00, 0xC3, 0x55}, code[:7])
}

// TestCompileIsStateless 测试后端可重复调用且输出稳定
func TestCompileIsStateless(t *testing.T) {
	b := NewX64(target.OSLinux)
	first, err := b.CompileModule(returnZeroModule())
	require.NoError(t, err)
	second, err := b.CompileModule(returnZeroModule())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "x86_64", b.Name())
}

// TestCompileMissingMain 测试缺少入口函数
func TestCompileMissingMain(t *testing.T) {
	m := ir.NewModule("lib")
	fn := m.NewFunction("helper", ir.TypeVoid)
	fn.EntryBlock().SetTerminator(ir.ReturnVoid())

	_, err := NewX64(target.OSLinux).CompileModule(m)
	var cgErr *CodegenError
	require.True(t, errors.As(err, &cgErr))
	assert.Contains(t, err.Error(), "no main function")
}

// TestCompileRejectsGlobals 测试全局变量报错
func TestCompileRejectsGlobals(t *testing.T) {
	m := returnZeroModule()
	m.AddGlobal(&ir.Global{Name: "counter", Type: ir.TypeI64})
	_, err := NewX64(target.OSLinux).CompileModule(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "global @counter")
}

// TestCompileUnsupportedInstruction 测试不支持的指令
func TestCompileUnsupportedInstruction(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("main", ir.TypeI64)
	r := m.NewRegister()
	fn.EntryBlock().Append(ir.Call(&r, "print"))
	fn.EntryBlock().SetTerminator(ir.Return(r))

	_, err := NewX64(target.OSLinux).CompileModule(m)
	var cgErr *CodegenError
	require.True(t, errors.As(err, &cgErr))
	assert.Equal(t, "main", cgErr.Function)
	assert.Equal(t, fn.Entry, cgErr.Block)
	assert.Equal(t, `codegen: main/bb0: instruction "r0 = call @print()" is not supported by the x86_64 backend`, err.Error())
}

// TestCompileUnreachable 测试未设置终结指令的块生成 ud2
func TestCompileUnreachable(t *testing.T) {
	m := ir.NewModule("t")
	m.NewFunction("main", ir.TypeI64)
	code, err := NewX64(target.OSLinux).CompileModule(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x55, 0x48, 0x89, 0xE5, 0x0F, 0x0B}, code[19:])
}

// TestCompileStringPool 测试字符串字面量池
func TestCompileStringPool(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("main", ir.TypeI64)
	b := fn.EntryBlock()
	s1, s2, zero := m.NewRegister(), m.NewRegister(), m.NewRegister()
	b.Append(ir.LoadConst(s1, ir.StringConst("hi")))
	b.Append(ir.LoadConst(s2, ir.StringConst("hi")))
	b.Append(ir.LoadConst(zero, ir.IntConst(0)))
	b.SetTerminator(ir.Return(zero))

	code, err := NewX64(target.OSLinux).CompileModule(m)
	require.NoError(t, err)

	// 相同字面量只写一次
	assert.Equal(t, 1, bytes.Count(code, []byte("hi\x00")))
	start := bytes.Index(code, []byte("hi\x00"))
	assert.Equal(t, 0, start%8)
	assert.Equal(t, len(code), start+3)
}

// TestCompileSpillFrame 测试溢出槽进入栈帧
func TestCompileSpillFrame(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("main", ir.TypeI64)
	b := fn.EntryBlock()

	// 7 个同时活跃的值，5 个寄存器放不下
	var regs []ir.RegisterID
	for i := 0; i < 7; i++ {
		r := m.NewRegister()
		b.Append(ir.LoadConst(r, ir.IntConst(int64(i))))
		regs = append(regs, r)
	}
	sum := regs[0]
	for _, r := range regs[1:] {
		next := m.NewRegister()
		b.Append(ir.Binary(ir.OpAdd, next, sum, r))
		sum = next
	}
	b.SetTerminator(ir.Return(sum))

	code, err := NewX64(target.OSLinux).CompileModule(m)
	require.NoError(t, err)
	// push rbp; mov rbp, rsp; sub rsp, imm8
	assert.Equal(t, []byte{0x55, 0x48, 0x89, 0xE5, 0x48, 0x83, 0xEC}, code[19:26])
	assert.Equal(t, byte(0), code[26]%16)
	assert.NotZero(t, code[26])
}

// TestCompileBranch 测试条件分支生成 test/jne/jmp
func TestCompileBranch(t *testing.T) {
	m := ir.NewModule("t")
	fn := m.NewFunction("main", ir.TypeI64)
	entry := fn.EntryBlock()
	then := fn.AddBlock(m.NewBlockID())
	els := fn.AddBlock(m.NewBlockID())

	cond, one, two := m.NewRegister(), m.NewRegister(), m.NewRegister()
	entry.Append(ir.LoadConst(cond, ir.BoolConst(true)))
	entry.SetTerminator(ir.Branch(cond, then.ID, els.ID))
	then.Append(ir.LoadConst(one, ir.IntConst(1)))
	then.SetTerminator(ir.Return(one))
	els.Append(ir.LoadConst(two, ir.IntConst(2)))
	els.SetTerminator(ir.Return(two))

	code, err := NewX64(target.OSLinux).CompileModule(m)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(code, []byte{0x48, 0x85, 0xC0, 0x0F, 0x85}), "test rax, rax; jne")
}

// TestCodegenErrorMessage 测试错误信息格式
func TestCodegenErrorMessage(t *testing.T) {
	assert.Equal(t, "codegen: boom", (&CodegenError{Reason: "boom"}).Error())
	assert.Equal(t, "codegen: f/bb3: boom", (&CodegenError{Function: "f", Block: 3, Reason: "boom"}).Error())
}
