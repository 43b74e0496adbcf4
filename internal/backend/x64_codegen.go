// x64_codegen.go - x86-64 代码生成器
//
// 输出布局：
//
//	偏移 0:  入口桩，调用 main 后以其返回值退出进程
//	之后:    每个非外部函数
//	末尾:    8 字节对齐的字符串字面量池，通过 RIP 相对寻址访问
//
// 所有值都按 64 位整数处理，浮点常量截断为整数。
//
// 寄存器约定：
// - RSI, RDI, R8, R9, R10: 分配给 IR 值
// - RAX, RCX, RDX, R11: 临时寄存器，每条指令内部使用
// - RBP: 帧指针，RSP: 栈指针
//
// 栈帧（自 RBP 向下）：局部变量槽、alloca 区、溢出槽，总大小 16 字节对齐。

package backend

import (
	"fmt"
	"math"

	"github.com/tangzhangming/solac/internal/ir"
	"github.com/tangzhangming/solac/internal/target"
)

// 进程退出系统调用号
const (
	linuxSysExit = 60
	macosSysExit = 0x2000001
)

// X64Backend x86-64 后端
type X64Backend struct {
	os       target.OS
	physRegs []X64Reg
}

// NewX64 创建面向指定操作系统的 x86-64 后端
func NewX64(os target.OS) *X64Backend {
	return &X64Backend{
		os:       os,
		physRegs: []X64Reg{RSI, RDI, R8, R9, R10},
	}
}

// Name 实现 Backend
func (b *X64Backend) Name() string {
	return "x86_64"
}

// argRegs 整数参数寄存器
func (b *X64Backend) argRegs() []X64Reg {
	if b.os == target.OSWindows {
		return []X64Reg{RCX, RDX, R8, R9}
	}
	return []X64Reg{RDI, RSI, RDX, RCX, R8, R9}
}

// CompileModule 实现 Backend
func (b *X64Backend) CompileModule(m *ir.Module) ([]byte, error) {
	entry := m.Function(EntrySymbol)
	if entry == nil || entry.External {
		return nil, &CodegenError{Reason: fmt.Sprintf("module %q has no %s function", m.Name, EntrySymbol)}
	}
	if len(m.Globals) > 0 {
		return nil, &CodegenError{Reason: fmt.Sprintf("global @%s: globals are not supported", m.Globals[0].Name)}
	}

	asm := NewX64Assembler()
	pool := newStringPool()

	funcLabels := make(map[string]Label)
	for _, fn := range m.Functions {
		if !fn.External {
			funcLabels[fn.Name] = asm.NewLabel()
		}
	}

	b.emitEntryStub(asm, funcLabels[EntrySymbol])

	for _, fn := range m.Functions {
		if fn.External {
			continue
		}
		asm.Bind(funcLabels[fn.Name])
		gen := &x64FuncGen{
			asm:      asm,
			fn:       fn,
			physRegs: b.physRegs,
			argRegs:  b.argRegs(),
			pool:     pool,
		}
		if err := gen.generate(); err != nil {
			return nil, err
		}
	}

	pool.emit(asm)
	return asm.Finish()
}

// emitEntryStub 入口桩：call main，然后用返回值退出
func (b *X64Backend) emitEntryStub(asm *X64Assembler, entry Label) {
	asm.CallLabel(entry)
	switch b.os {
	case target.OSWindows:
		asm.Ret()
	case target.OSMacOS:
		asm.MovRegReg(RDI, RAX)
		asm.MovRegImm32(RAX, macosSysExit)
		asm.Syscall()
		asm.UD2()
	default:
		asm.MovRegReg(RDI, RAX)
		asm.MovRegImm32(RAX, linuxSysExit)
		asm.Syscall()
		asm.UD2()
	}
}

// ============================================================================
// 字符串字面量池
// ============================================================================

type stringPool struct {
	labels  map[string]Label
	ordered []string
}

func newStringPool() *stringPool {
	return &stringPool{labels: make(map[string]Label)}
}

func (p *stringPool) label(asm *X64Assembler, s string) Label {
	if l, ok := p.labels[s]; ok {
		return l
	}
	l := asm.NewLabel()
	p.labels[s] = l
	p.ordered = append(p.ordered, s)
	return l
}

// emit 在代码末尾写出所有字面量，以 NUL 结尾
func (p *stringPool) emit(asm *X64Assembler) {
	if len(p.ordered) == 0 {
		return
	}
	asm.Align(8, 0xCC)
	for _, s := range p.ordered {
		asm.Bind(p.labels[s])
		asm.Bytes([]byte(s))
		asm.Bytes([]byte{0})
	}
}

// ============================================================================
// 函数代码生成
// ============================================================================

type x64FuncGen struct {
	asm      *X64Assembler
	fn       *ir.Function
	alloc    *RegAllocation
	physRegs []X64Reg
	argRegs  []X64Reg
	pool     *stringPool

	blockLabels   map[ir.BlockID]Label
	allocaOffsets map[ir.RegisterID]int32
	spillBase     int32
	frameSize     int32
	block         ir.BlockID
}

func (g *x64FuncGen) fail(format string, args ...interface{}) error {
	return &CodegenError{Function: g.fn.Name, Block: g.block, Reason: fmt.Sprintf(format, args...)}
}

func (g *x64FuncGen) generate() error {
	g.block = g.fn.Entry
	if len(g.fn.Params) > len(g.argRegs) {
		return g.fail("%d parameters exceed %d argument registers", len(g.fn.Params), len(g.argRegs))
	}
	if g.fn.EntryBlock() == nil {
		return g.fail("entry block not found")
	}

	g.alloc = NewRegisterAllocator(len(g.physRegs)).Allocate(g.fn)
	if err := g.layoutFrame(); err != nil {
		return err
	}

	g.blockLabels = make(map[ir.BlockID]Label, len(g.fn.Blocks))
	for _, block := range g.fn.Blocks {
		g.blockLabels[block.ID] = g.asm.NewLabel()
	}

	g.emitPrologue()
	// 入口块不在首位时先跳过去
	if g.fn.Blocks[0].ID != g.fn.Entry {
		g.asm.Jmp(g.blockLabels[g.fn.Entry])
	}

	for _, block := range g.fn.Blocks {
		g.block = block.ID
		g.asm.Bind(g.blockLabels[block.ID])
		for _, instr := range block.Instructions {
			if err := g.emitInstr(instr); err != nil {
				return err
			}
		}
		if err := g.emitTerminator(block.Terminator); err != nil {
			return err
		}
	}
	return nil
}

// layoutFrame 计算栈帧布局
func (g *x64FuncGen) layoutFrame() error {
	offset := g.fn.FrameSize()
	g.allocaOffsets = make(map[ir.RegisterID]int32)
	for _, block := range g.fn.Blocks {
		for _, instr := range block.Instructions {
			if instr.Op != ir.OpAlloca {
				continue
			}
			if instr.Size <= 0 {
				g.block = block.ID
				return g.fail("alloca of %d bytes", instr.Size)
			}
			offset += (instr.Size + 7) &^ 7
			g.allocaOffsets[instr.Dest] = int32(-offset)
		}
	}
	g.spillBase = int32(offset)
	offset += int64(g.alloc.SpillCount) * 8
	offset = (offset + 15) &^ 15
	if offset > math.MaxInt32 {
		return g.fail("stack frame of %d bytes is too large", offset)
	}
	g.frameSize = int32(offset)
	return nil
}

func (g *x64FuncGen) spillOffset(slot int) int32 {
	return -(g.spillBase + int32(slot+1)*8)
}

func (g *x64FuncGen) emitPrologue() {
	g.asm.Push(RBP)
	g.asm.MovRegReg(RBP, RSP)
	if g.frameSize > 0 {
		g.asm.SubRegImm32(RSP, g.frameSize)
	}
	for i, p := range g.fn.Params {
		if g.alloc.isSpilled(p.Reg) {
			g.asm.MovMemReg(RBP, g.spillOffset(g.alloc.SpillSlot(p.Reg)), g.argRegs[i])
			continue
		}
		g.store(p.Reg, g.argRegs[i])
	}
}

func (g *x64FuncGen) emitEpilogue() {
	g.asm.MovRegReg(RSP, RBP)
	g.asm.Pop(RBP)
	g.asm.Ret()
}

// load 把虚拟寄存器的值读入物理寄存器 dst
func (g *x64FuncGen) load(dst X64Reg, r ir.RegisterID) error {
	if reg := g.alloc.Reg(r); reg >= 0 {
		if g.physRegs[reg] != dst {
			g.asm.MovRegReg(dst, g.physRegs[reg])
		}
		return nil
	}
	if slot := g.alloc.SpillSlot(r); slot >= 0 {
		g.asm.MovRegMem(dst, RBP, g.spillOffset(slot))
		return nil
	}
	return g.fail("register %s used but never defined", r)
}

// store 把物理寄存器 src 写回虚拟寄存器
func (g *x64FuncGen) store(r ir.RegisterID, src X64Reg) {
	if reg := g.alloc.Reg(r); reg >= 0 {
		if g.physRegs[reg] != src {
			g.asm.MovRegReg(g.physRegs[reg], src)
		}
		return
	}
	if slot := g.alloc.SpillSlot(r); slot >= 0 {
		g.asm.MovMemReg(RBP, g.spillOffset(slot), src)
	}
}

// loadPair 左操作数读入 RAX，右操作数读入 RCX
func (g *x64FuncGen) loadPair(instr ir.Instruction) error {
	if len(instr.Args) != 2 {
		return g.fail("%s expects 2 operands, got %d", instr.Op, len(instr.Args))
	}
	if err := g.load(RAX, instr.Left()); err != nil {
		return err
	}
	return g.load(RCX, instr.Right())
}

func (g *x64FuncGen) loadOne(dst X64Reg, instr ir.Instruction) error {
	if len(instr.Args) < 1 {
		return g.fail("%s expects an operand", instr.Op)
	}
	return g.load(dst, instr.Args[0])
}

func (g *x64FuncGen) localOffset(slot int) (int32, error) {
	if slot < 0 || slot >= len(g.fn.Locals) {
		return 0, g.fail("local slot %d out of range", slot)
	}
	return int32(-g.fn.Locals[slot].Offset), nil
}

// ============================================================================
// 指令生成
// ============================================================================

func (g *x64FuncGen) emitInstr(instr ir.Instruction) error {
	switch instr.Op {
	case ir.OpNop, ir.OpDebugLine:
		return nil

	case ir.OpLoadConst:
		g.emitConst(instr.Const)

	case ir.OpMove:
		if err := g.loadOne(RAX, instr); err != nil {
			return err
		}

	case ir.OpLoadLocal:
		off, err := g.localOffset(instr.Slot)
		if err != nil {
			return err
		}
		g.asm.MovRegMem(RAX, RBP, off)

	case ir.OpStoreLocal:
		off, err := g.localOffset(instr.Slot)
		if err != nil {
			return err
		}
		if err := g.loadOne(RAX, instr); err != nil {
			return err
		}
		g.asm.MovMemReg(RBP, off, RAX)
		return nil

	case ir.OpAlloca:
		g.asm.LeaRegMem(RAX, RBP, g.allocaOffsets[instr.Dest])

	case ir.OpLoad:
		if err := g.loadOne(RCX, instr); err != nil {
			return err
		}
		g.asm.MovRegMem(RAX, RCX, 0)

	case ir.OpStore:
		if len(instr.Args) != 2 {
			return g.fail("store expects 2 operands")
		}
		if err := g.load(RCX, instr.Args[0]); err != nil {
			return err
		}
		if err := g.load(RAX, instr.Args[1]); err != nil {
			return err
		}
		g.asm.MovMemReg(RCX, 0, RAX)
		return nil

	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpBitAnd, ir.OpBitOr, ir.OpBitXor:
		if err := g.loadPair(instr); err != nil {
			return err
		}
		switch instr.Op {
		case ir.OpAdd:
			g.asm.AddRegReg(RAX, RCX)
		case ir.OpSub:
			g.asm.SubRegReg(RAX, RCX)
		case ir.OpMul:
			g.asm.IMulRegReg(RAX, RCX)
		case ir.OpBitAnd:
			g.asm.AndRegReg(RAX, RCX)
		case ir.OpBitOr:
			g.asm.OrRegReg(RAX, RCX)
		case ir.OpBitXor:
			g.asm.XorRegReg(RAX, RCX)
		}

	case ir.OpDiv, ir.OpMod:
		if err := g.loadPair(instr); err != nil {
			return err
		}
		g.asm.CQO()
		g.asm.IDivReg(RCX)
		if instr.Op == ir.OpMod {
			g.asm.MovRegReg(RAX, RDX)
		}

	case ir.OpShl, ir.OpShr:
		if err := g.loadPair(instr); err != nil {
			return err
		}
		if instr.Op == ir.OpShl {
			g.asm.ShlRegCL(RAX)
		} else {
			g.asm.SarRegCL(RAX)
		}

	case ir.OpEq, ir.OpNe, ir.OpLt, ir.OpLe, ir.OpGt, ir.OpGe:
		if err := g.loadPair(instr); err != nil {
			return err
		}
		g.asm.CmpRegReg(RAX, RCX)
		g.asm.SetCC(compareConds[instr.Op], RAX)
		g.asm.MovzxReg8(RAX, RAX)

	case ir.OpAnd, ir.OpOr:
		if err := g.loadPair(instr); err != nil {
			return err
		}
		g.emitBool(RAX)
		g.emitBool(RCX)
		if instr.Op == ir.OpAnd {
			g.asm.AndRegReg(RAX, RCX)
		} else {
			g.asm.OrRegReg(RAX, RCX)
		}

	case ir.OpNeg:
		if err := g.loadOne(RAX, instr); err != nil {
			return err
		}
		g.asm.Neg(RAX)

	case ir.OpBitNot:
		if err := g.loadOne(RAX, instr); err != nil {
			return err
		}
		g.asm.NotReg(RAX)

	case ir.OpNot:
		if err := g.loadOne(RAX, instr); err != nil {
			return err
		}
		g.asm.TestRegReg(RAX, RAX)
		g.asm.SetCC(CondE, RAX)
		g.asm.MovzxReg8(RAX, RAX)

	default:
		return g.fail("instruction %q is not supported by the x86_64 backend", instr.String())
	}

	if instr.HasDest {
		g.store(instr.Dest, RAX)
	}
	return nil
}

var compareConds = map[ir.Op]Cond{
	ir.OpEq: CondE,
	ir.OpNe: CondNE,
	ir.OpLt: CondL,
	ir.OpLe: CondLE,
	ir.OpGt: CondG,
	ir.OpGe: CondGE,
}

// emitBool 将 reg 规范化为 0/1
func (g *x64FuncGen) emitBool(reg X64Reg) {
	g.asm.TestRegReg(reg, reg)
	g.asm.SetCC(CondNE, reg)
	g.asm.MovzxReg8(reg, reg)
}

// emitConst 常量读入 RAX
func (g *x64FuncGen) emitConst(c ir.Constant) {
	switch c.Kind {
	case ir.ConstInt:
		g.asm.MovRegImm(RAX, c.Int)
	case ir.ConstFloat:
		g.asm.MovRegImm(RAX, int64(c.Float))
	case ir.ConstBool:
		if c.Bool {
			g.asm.MovRegImm32(RAX, 1)
		} else {
			g.asm.MovRegImm32(RAX, 0)
		}
	case ir.ConstString:
		g.asm.LeaRIP(RAX, g.pool.label(g.asm, c.Str))
	default:
		g.asm.MovRegImm32(RAX, 0)
	}
}

// ============================================================================
// 终结指令
// ============================================================================

func (g *x64FuncGen) emitTerminator(t ir.Terminator) error {
	switch t.Kind {
	case ir.TermReturn:
		if t.HasValue {
			if err := g.load(RAX, t.Value); err != nil {
				return err
			}
		} else {
			g.asm.MovRegImm32(RAX, 0)
		}
		g.emitEpilogue()

	case ir.TermJump:
		l, ok := g.blockLabels[t.Target]
		if !ok {
			return g.fail("jump target %s not found", t.Target)
		}
		g.asm.Jmp(l)

	case ir.TermBranch:
		then, ok := g.blockLabels[t.Then]
		if !ok {
			return g.fail("branch target %s not found", t.Then)
		}
		els, ok := g.blockLabels[t.Else]
		if !ok {
			return g.fail("branch target %s not found", t.Else)
		}
		if err := g.load(RAX, t.Cond); err != nil {
			return err
		}
		g.asm.TestRegReg(RAX, RAX)
		g.asm.Jcc(CondNE, then)
		g.asm.Jmp(els)

	case ir.TermUnreachable:
		g.asm.UD2()

	default:
		return g.fail("terminator %q is not supported by the x86_64 backend", t.String())
	}
	return nil
}
