package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, build func(a *X64Assembler)) []byte {
	t.Helper()
	a := NewX64Assembler()
	build(a)
	code, err := a.Finish()
	require.NoError(t, err)
	return code
}

// TestX64Encodings 测试常用指令编码
func TestX64Encodings(t *testing.T) {
	cases := []struct {
		name  string
		build func(a *X64Assembler)
		want  []byte
	}{
		{"push rbp", func(a *X64Assembler) { a.Push(RBP) }, []byte{0x55}},
		{"push r12", func(a *X64Assembler) { a.Push(R12) }, []byte{0x41, 0x54}},
		{"pop rbp", func(a *X64Assembler) { a.Pop(RBP) }, []byte{0x5D}},
		{"mov rbp, rsp", func(a *X64Assembler) { a.MovRegReg(RBP, RSP) }, []byte{0x48, 0x89, 0xE5}},
		{"mov rdi, rax", func(a *X64Assembler) { a.MovRegReg(RDI, RAX) }, []byte{0x48, 0x89, 0xC7}},
		{"mov r10, rax", func(a *X64Assembler) { a.MovRegReg(R10, RAX) }, []byte{0x49, 0x89, 0xC2}},
		{"mov rax, 60", func(a *X64Assembler) { a.MovRegImm(RAX, 60) }, []byte{0x48, 0xC7, 0xC0, 0x3C, 0, 0, 0}},
		{"mov rax, -1", func(a *X64Assembler) { a.MovRegImm(RAX, -1) }, []byte{0x48, 0xC7, 0xC0, 0xFF, 0xFF, 0xFF, 0xFF}},
		{"mov rax, 1<<40", func(a *X64Assembler) { a.MovRegImm(RAX, 1<<40) }, []byte{0x48, 0xB8, 0, 0, 0, 0, 0, 0x01, 0, 0}},
		{"mov rax, [rbp-8]", func(a *X64Assembler) { a.MovRegMem(RAX, RBP, -8) }, []byte{0x48, 0x8B, 0x45, 0xF8}},
		{"mov rax, [r13]", func(a *X64Assembler) { a.MovRegMem(RAX, R13, 0) }, []byte{0x49, 0x8B, 0x45, 0x00}},
		{"mov [rsp], rax", func(a *X64Assembler) { a.MovMemReg(RSP, 0, RAX) }, []byte{0x48, 0x89, 0x04, 0x24}},
		{"mov [rbp-0x100], rcx", func(a *X64Assembler) { a.MovMemReg(RBP, -0x100, RCX) }, []byte{0x48, 0x89, 0x8D, 0x00, 0xFF, 0xFF, 0xFF}},
		{"lea rax, [rbp-16]", func(a *X64Assembler) { a.LeaRegMem(RAX, RBP, -16) }, []byte{0x48, 0x8D, 0x45, 0xF0}},
		{"add rax, rcx", func(a *X64Assembler) { a.AddRegReg(RAX, RCX) }, []byte{0x48, 0x01, 0xC8}},
		{"sub rax, rcx", func(a *X64Assembler) { a.SubRegReg(RAX, RCX) }, []byte{0x48, 0x29, 0xC8}},
		{"sub rsp, 16", func(a *X64Assembler) { a.SubRegImm32(RSP, 16) }, []byte{0x48, 0x83, 0xEC, 0x10}},
		{"imul rax, rcx", func(a *X64Assembler) { a.IMulRegReg(RAX, RCX) }, []byte{0x48, 0x0F, 0xAF, 0xC1}},
		{"cqo", func(a *X64Assembler) { a.CQO() }, []byte{0x48, 0x99}},
		{"idiv rcx", func(a *X64Assembler) { a.IDivReg(RCX) }, []byte{0x48, 0xF7, 0xF9}},
		{"neg rax", func(a *X64Assembler) { a.Neg(RAX) }, []byte{0x48, 0xF7, 0xD8}},
		{"not rax", func(a *X64Assembler) { a.NotReg(RAX) }, []byte{0x48, 0xF7, 0xD0}},
		{"shl rax, cl", func(a *X64Assembler) { a.ShlRegCL(RAX) }, []byte{0x48, 0xD3, 0xE0}},
		{"sar rax, cl", func(a *X64Assembler) { a.SarRegCL(RAX) }, []byte{0x48, 0xD3, 0xF8}},
		{"cmp rax, rcx", func(a *X64Assembler) { a.CmpRegReg(RAX, RCX) }, []byte{0x48, 0x39, 0xC8}},
		{"test rax, rax", func(a *X64Assembler) { a.TestRegReg(RAX, RAX) }, []byte{0x48, 0x85, 0xC0}},
		{"setl al", func(a *X64Assembler) { a.SetCC(CondL, RAX) }, []byte{0x0F, 0x9C, 0xC0}},
		{"sete sil", func(a *X64Assembler) { a.SetCC(CondE, RSI) }, []byte{0x40, 0x0F, 0x94, 0xC6}},
		{"setne r9b", func(a *X64Assembler) { a.SetCC(CondNE, R9) }, []byte{0x41, 0x0F, 0x95, 0xC1}},
		{"movzx rax, al", func(a *X64Assembler) { a.MovzxReg8(RAX, RAX) }, []byte{0x48, 0x0F, 0xB6, 0xC0}},
		{"syscall", func(a *X64Assembler) { a.Syscall() }, []byte{0x0F, 0x05}},
		{"ud2", func(a *X64Assembler) { a.UD2() }, []byte{0x0F, 0x0B}},
		{"call r11", func(a *X64Assembler) { a.CallReg(R11) }, []byte{0x41, 0xFF, 0xD3}},
		{"ret", func(a *X64Assembler) { a.Ret() }, []byte{0xC3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, assemble(t, tc.build))
		})
	}
}

// TestX64Relocations 测试标签回填
func TestX64Relocations(t *testing.T) {
	code := assemble(t, func(a *X64Assembler) {
		back := a.NewLabel()
		fwd := a.NewLabel()
		a.Bind(back)
		a.Jmp(fwd)          // 0
		a.Jcc(CondNE, back) // 5
		a.Int3()            // 11
		a.Bind(fwd)         // 12
		a.Ret()
	})
	assert.Equal(t, []byte{
		0xE9, 0x07, 0x00, 0x00, 0x00,
		0x0F, 0x85, 0xF5, 0xFF, 0xFF, 0xFF,
		0xCC,
		0xC3,
	}, code)
}

// TestX64LeaRIP 测试 RIP 相对寻址
func TestX64LeaRIP(t *testing.T) {
	code := assemble(t, func(a *X64Assembler) {
		data := a.NewLabel()
		a.LeaRIP(RDI, data)
		a.Align(8, 0xCC)
		a.Bind(data)
		a.Bytes([]byte("hi"))
	})
	assert.Equal(t, []byte{0x48, 0x8D, 0x3D, 0x01, 0x00, 0x00, 0x00, 0xCC, 'h', 'i'}, code)
}

// TestX64UnboundLabel 测试未绑定标签
func TestX64UnboundLabel(t *testing.T) {
	a := NewX64Assembler()
	a.CallLabel(a.NewLabel())
	_, err := a.Finish()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unbound label")
}
