// x64_asm.go - x86-64 汇编器
//
// x86-64 指令编码格式：
// [前缀] [REX] [操作码] [ModR/M] [SIB] [位移] [立即数]
//
// REX 前缀：用于扩展寄存器和操作数大小
// - REX.W: 64 位操作数
// - REX.R: 扩展 ModR/M.reg 字段
// - REX.X: 扩展 SIB.index 字段
// - REX.B: 扩展 ModR/M.r/m 或 SIB.base 字段
//
// 所有跳转、调用和 RIP 相对寻址都通过标签记录重定位，在 Finish 时统一回填。

package backend

import (
	"encoding/binary"
	"fmt"
)

// ============================================================================
// x86-64 寄存器定义
// ============================================================================

// X64Reg x86-64 寄存器
type X64Reg int

const (
	RAX X64Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	RegNone X64Reg = -1 // 无寄存器
)

var x64RegNames = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

// String 返回寄存器名称
func (r X64Reg) String() string {
	if r >= 0 && int(r) < len(x64RegNames) {
		return x64RegNames[r]
	}
	return "???"
}

// IsExtended 检查是否是扩展寄存器（需要 REX 前缀）
func (r X64Reg) IsExtended() bool {
	return r >= R8 && r <= R15
}

// LowBits 获取寄存器编码的低 3 位
func (r X64Reg) LowBits() byte {
	return byte(r) & 0x7
}

// Cond 条件码，用于 Jcc / SETcc
type Cond byte

const (
	CondE  Cond = 0x4
	CondNE Cond = 0x5
	CondL  Cond = 0xC
	CondGE Cond = 0xD
	CondLE Cond = 0xE
	CondG  Cond = 0xF
)

// Label 代码位置标签
type Label int

// ============================================================================
// x86-64 汇编器
// ============================================================================

// X64Assembler x86-64 汇编器
type X64Assembler struct {
	code      []byte
	labels    map[Label]int // 标签 -> 代码偏移
	relocs    []x64Reloc
	nextLabel Label
}

// x64Reloc 重定位条目，rel32 = 目标 - (偏移 + 4)
type x64Reloc struct {
	offset int
	target Label
}

// NewX64Assembler 创建 x86-64 汇编器
func NewX64Assembler() *X64Assembler {
	return &X64Assembler{
		code:   make([]byte, 0, 1024),
		labels: make(map[Label]int),
	}
}

// Len 返回当前代码长度
func (a *X64Assembler) Len() int {
	return len(a.code)
}

// NewLabel 分配一个未绑定的标签
func (a *X64Assembler) NewLabel() Label {
	l := a.nextLabel
	a.nextLabel++
	return l
}

// Bind 将标签绑定到当前位置
func (a *X64Assembler) Bind(l Label) {
	a.labels[l] = len(a.code)
}

// Finish 回填重定位并返回机器码，存在未绑定标签时报错
func (a *X64Assembler) Finish() ([]byte, error) {
	for _, reloc := range a.relocs {
		target, ok := a.labels[reloc.target]
		if !ok {
			return nil, fmt.Errorf("unbound label %d referenced at offset %d", reloc.target, reloc.offset)
		}
		rel := int32(target - (reloc.offset + 4))
		binary.LittleEndian.PutUint32(a.code[reloc.offset:], uint32(rel))
	}
	return a.code, nil
}

// ============================================================================
// 底层编码方法
// ============================================================================

func (a *X64Assembler) emit(bytes ...byte) {
	a.code = append(a.code, bytes...)
}

func (a *X64Assembler) emitU32(v uint32) {
	a.code = binary.LittleEndian.AppendUint32(a.code, v)
}

func (a *X64Assembler) emitU64(v uint64) {
	a.code = binary.LittleEndian.AppendUint64(a.code, v)
}

// emitRel32 写入 rel32 占位符并记录重定位
func (a *X64Assembler) emitRel32(target Label) {
	a.relocs = append(a.relocs, x64Reloc{offset: len(a.code), target: target})
	a.emitU32(0)
}

// Bytes 追加原始数据
func (a *X64Assembler) Bytes(data []byte) {
	a.emit(data...)
}

// Align 用 fill 填充到 n 字节对齐
func (a *X64Assembler) Align(n int, fill byte) {
	for len(a.code)%n != 0 {
		a.emit(fill)
	}
}

// rex 构造 REX 前缀
func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

// modrm 构造 ModR/M 字节
func modrm(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 0x7) << 3) | (rm & 0x7)
}

// emitMemOperand 生成 [base+offset] 内存操作数编码
func (a *X64Assembler) emitMemOperand(reg byte, base X64Reg, offset int32) {
	baseCode := base.LowBits()

	// RSP/R12 作为基址需要 SIB 字节
	needSIB := base == RSP || base == R12

	var mod byte
	switch {
	case offset == 0 && base != RBP && base != R13:
		mod = 0
	case offset >= -128 && offset <= 127:
		mod = 1
	default:
		mod = 2
	}

	if needSIB {
		a.emit(modrm(mod, reg, 4), 0x24)
	} else {
		a.emit(modrm(mod, reg, baseCode))
	}

	switch mod {
	case 1:
		a.emit(byte(offset))
	case 2:
		a.emitU32(uint32(offset))
	}
}

// ============================================================================
// 数据移动指令
// ============================================================================

// MovRegReg mov dst, src
func (a *X64Assembler) MovRegReg(dst, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, dst.IsExtended()))
	a.emit(0x89)
	a.emit(modrm(3, src.LowBits(), dst.LowBits()))
}

// MovRegImm64 mov reg, imm64
func (a *X64Assembler) MovRegImm64(reg X64Reg, imm uint64) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xB8 + reg.LowBits())
	a.emitU64(imm)
}

// MovRegImm32 mov reg, imm32（符号扩展）
func (a *X64Assembler) MovRegImm32(reg X64Reg, imm int32) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xC7)
	a.emit(modrm(3, 0, reg.LowBits()))
	a.emitU32(uint32(imm))
}

// MovRegImm 选择最短编码加载立即数
func (a *X64Assembler) MovRegImm(reg X64Reg, imm int64) {
	if imm >= -1<<31 && imm < 1<<31 {
		a.MovRegImm32(reg, int32(imm))
		return
	}
	a.MovRegImm64(reg, uint64(imm))
}

// MovRegMem mov dst, [base+offset]
func (a *X64Assembler) MovRegMem(dst X64Reg, base X64Reg, offset int32) {
	a.emit(rex(true, dst.IsExtended(), false, base.IsExtended()))
	a.emit(0x8B)
	a.emitMemOperand(dst.LowBits(), base, offset)
}

// MovMemReg mov [base+offset], src
func (a *X64Assembler) MovMemReg(base X64Reg, offset int32, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, base.IsExtended()))
	a.emit(0x89)
	a.emitMemOperand(src.LowBits(), base, offset)
}

// LeaRegMem lea dst, [base+offset]
func (a *X64Assembler) LeaRegMem(dst X64Reg, base X64Reg, offset int32) {
	a.emit(rex(true, dst.IsExtended(), false, base.IsExtended()))
	a.emit(0x8D)
	a.emitMemOperand(dst.LowBits(), base, offset)
}

// LeaRIP lea dst, [rip+label]
func (a *X64Assembler) LeaRIP(dst X64Reg, target Label) {
	a.emit(rex(true, dst.IsExtended(), false, false))
	a.emit(0x8D)
	a.emit(modrm(0, dst.LowBits(), 5))
	a.emitRel32(target)
}

// ============================================================================
// 算术指令
// ============================================================================

// AddRegReg add dst, src
func (a *X64Assembler) AddRegReg(dst, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, dst.IsExtended()))
	a.emit(0x01)
	a.emit(modrm(3, src.LowBits(), dst.LowBits()))
}

// SubRegReg sub dst, src
func (a *X64Assembler) SubRegReg(dst, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, dst.IsExtended()))
	a.emit(0x29)
	a.emit(modrm(3, src.LowBits(), dst.LowBits()))
}

// SubRegImm32 sub reg, imm32
func (a *X64Assembler) SubRegImm32(reg X64Reg, imm int32) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	if imm >= -128 && imm <= 127 {
		a.emit(0x83)
		a.emit(modrm(3, 5, reg.LowBits()))
		a.emit(byte(imm))
	} else {
		a.emit(0x81)
		a.emit(modrm(3, 5, reg.LowBits()))
		a.emitU32(uint32(imm))
	}
}

// IMulRegReg imul dst, src
func (a *X64Assembler) IMulRegReg(dst, src X64Reg) {
	a.emit(rex(true, dst.IsExtended(), false, src.IsExtended()))
	a.emit(0x0F, 0xAF)
	a.emit(modrm(3, dst.LowBits(), src.LowBits()))
}

// Neg neg reg
func (a *X64Assembler) Neg(reg X64Reg) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xF7)
	a.emit(modrm(3, 3, reg.LowBits()))
}

// CQO 符号扩展 RAX -> RDX:RAX
func (a *X64Assembler) CQO() {
	a.emit(0x48, 0x99)
}

// IDivReg idiv reg (RDX:RAX / reg -> RAX, 余数 -> RDX)
func (a *X64Assembler) IDivReg(reg X64Reg) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xF7)
	a.emit(modrm(3, 7, reg.LowBits()))
}

// ============================================================================
// 位运算指令
// ============================================================================

// AndRegReg and dst, src
func (a *X64Assembler) AndRegReg(dst, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, dst.IsExtended()))
	a.emit(0x21)
	a.emit(modrm(3, src.LowBits(), dst.LowBits()))
}

// OrRegReg or dst, src
func (a *X64Assembler) OrRegReg(dst, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, dst.IsExtended()))
	a.emit(0x09)
	a.emit(modrm(3, src.LowBits(), dst.LowBits()))
}

// XorRegReg xor dst, src
func (a *X64Assembler) XorRegReg(dst, src X64Reg) {
	a.emit(rex(true, src.IsExtended(), false, dst.IsExtended()))
	a.emit(0x31)
	a.emit(modrm(3, src.LowBits(), dst.LowBits()))
}

// NotReg not reg
func (a *X64Assembler) NotReg(reg X64Reg) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xF7)
	a.emit(modrm(3, 2, reg.LowBits()))
}

// ShlRegCL shl reg, cl
func (a *X64Assembler) ShlRegCL(reg X64Reg) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xD3)
	a.emit(modrm(3, 4, reg.LowBits()))
}

// SarRegCL sar reg, cl
func (a *X64Assembler) SarRegCL(reg X64Reg) {
	a.emit(rex(true, false, false, reg.IsExtended()))
	a.emit(0xD3)
	a.emit(modrm(3, 7, reg.LowBits()))
}

// ============================================================================
// 比较指令
// ============================================================================

// CmpRegReg cmp left, right
func (a *X64Assembler) CmpRegReg(left, right X64Reg) {
	a.emit(rex(true, right.IsExtended(), false, left.IsExtended()))
	a.emit(0x39)
	a.emit(modrm(3, right.LowBits(), left.LowBits()))
}

// TestRegReg test reg1, reg2
func (a *X64Assembler) TestRegReg(reg1, reg2 X64Reg) {
	a.emit(rex(true, reg2.IsExtended(), false, reg1.IsExtended()))
	a.emit(0x85)
	a.emit(modrm(3, reg2.LowBits(), reg1.LowBits()))
}

// SetCC setcc reg8
//
// 寄存器编号 4-7 在没有 REX 前缀时表示 AH/CH/DH/BH，
// 所以 SPL/BPL/SIL/DIL 也必须带 REX。
func (a *X64Assembler) SetCC(cond Cond, reg X64Reg) {
	if reg >= RSP {
		a.emit(rex(false, false, false, reg.IsExtended()))
	}
	a.emit(0x0F, 0x90+byte(cond))
	a.emit(modrm(3, 0, reg.LowBits()))
}

// MovzxReg8 movzx dst, src8
func (a *X64Assembler) MovzxReg8(dst, src X64Reg) {
	a.emit(rex(true, dst.IsExtended(), false, src.IsExtended()))
	a.emit(0x0F, 0xB6)
	a.emit(modrm(3, dst.LowBits(), src.LowBits()))
}

// ============================================================================
// 栈操作指令
// ============================================================================

// Push push reg
func (a *X64Assembler) Push(reg X64Reg) {
	if reg.IsExtended() {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x50 + reg.LowBits())
}

// Pop pop reg
func (a *X64Assembler) Pop(reg X64Reg) {
	if reg.IsExtended() {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x58 + reg.LowBits())
}

// ============================================================================
// 控制流指令
// ============================================================================

// Jmp jmp rel32
func (a *X64Assembler) Jmp(target Label) {
	a.emit(0xE9)
	a.emitRel32(target)
}

// Jcc 条件跳转 rel32
func (a *X64Assembler) Jcc(cond Cond, target Label) {
	a.emit(0x0F, 0x80+byte(cond))
	a.emitRel32(target)
}

// CallLabel call rel32
func (a *X64Assembler) CallLabel(target Label) {
	a.emit(0xE8)
	a.emitRel32(target)
}

// CallReg call reg
func (a *X64Assembler) CallReg(reg X64Reg) {
	if reg.IsExtended() {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0xFF)
	a.emit(modrm(3, 2, reg.LowBits()))
}

// Ret ret
func (a *X64Assembler) Ret() {
	a.emit(0xC3)
}

// Syscall syscall
func (a *X64Assembler) Syscall() {
	a.emit(0x0F, 0x05)
}

// UD2 未定义指令，执行即触发 #UD
func (a *X64Assembler) UD2() {
	a.emit(0x0F, 0x0B)
}

// Int3 断点
func (a *X64Assembler) Int3() {
	a.emit(0xCC)
}
