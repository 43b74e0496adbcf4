package objfile

import "github.com/tangzhangming/solac/internal/ir"

// ============================================================================
// ELF64 常量
// ============================================================================

const (
	elfHeaderSize        = 64
	elfProgramHeaderSize = 56
	elfSectionHeaderSize = 64

	// ELFBaseAddress 唯一段的装载基址
	ELFBaseAddress = 0x400000

	// ELFCodeOffset 代码在文件中的偏移，紧跟在文件头和程序头之后
	ELFCodeOffset = elfHeaderSize + elfProgramHeaderSize

	// ELFPageSize 文件长度对齐单位
	ELFPageSize = 0x1000

	elfClass64      = 2
	elfDataLSB      = 1
	elfVersion      = 1
	elfOSABISysV    = 0
	elfPTLoad       = 1
	elfPFExecRead   = 0x5 // PF_R | PF_X
	elfMachineAMD64 = 0x3E
)

// ELFKind ELF 文件类型 (e_type)
type ELFKind uint16

const (
	ELFRel  ELFKind = 1 // 可重定位文件
	ELFExec ELFKind = 2 // 可执行文件
)

// ELFGenerator 生成只含一个 PT_LOAD 段的最小 ELF64 映像
//
// 布局：
//
//	0x00  文件头 (64 字节)
//	0x40  程序头 (56 字节)，R|X
//	0x78  机器码
//	...   补零到 4096 的整数倍
//
// 入口地址固定为基址加头部大小，即代码的第一个字节。
type ELFGenerator struct {
	Machine uint16
	Kind    ELFKind
}

// NewELF 创建 x86-64 可执行文件生成器
func NewELF() *ELFGenerator {
	return &ELFGenerator{Machine: elfMachineAMD64, Kind: ELFExec}
}

// FormatName 实现 Generator
func (g *ELFGenerator) FormatName() string {
	return "elf64"
}

// Extension 实现 Generator
func (g *ELFGenerator) Extension() string {
	return ".o"
}

// GenerateObject 实现 Generator
func (g *ELFGenerator) GenerateObject(_ *ir.Module, code []byte) ([]byte, error) {
	machine := g.Machine
	if machine == 0 {
		machine = elfMachineAMD64
	}
	kind := g.Kind
	if kind == 0 {
		kind = ELFExec
	}

	w := NewByteWriter()
	size := uint64(len(code))
	vaddr := uint64(ELFBaseAddress + ELFCodeOffset)

	// e_ident
	w.WriteBytes([]byte{0x7F, 'E', 'L', 'F'})
	w.WriteU8(elfClass64)
	w.WriteU8(elfDataLSB)
	w.WriteU8(elfVersion)
	w.WriteU8(elfOSABISysV)
	w.Zero(8)

	w.WriteU16(uint16(kind))         // e_type
	w.WriteU16(machine)              // e_machine
	w.WriteU32(elfVersion)           // e_version
	w.WriteU64(vaddr)                // e_entry
	w.WriteU64(elfHeaderSize)        // e_phoff
	w.WriteU64(0)                    // e_shoff
	w.WriteU32(0)                    // e_flags
	w.WriteU16(elfHeaderSize)        // e_ehsize
	w.WriteU16(elfProgramHeaderSize) // e_phentsize
	w.WriteU16(1)                    // e_phnum
	w.WriteU16(elfSectionHeaderSize) // e_shentsize
	w.WriteU16(0)                    // e_shnum
	w.WriteU16(0)                    // e_shstrndx

	// 程序头
	w.WriteU32(elfPTLoad)
	w.WriteU32(elfPFExecRead)
	w.WriteU64(ELFCodeOffset) // p_offset
	w.WriteU64(vaddr)         // p_vaddr
	w.WriteU64(vaddr)         // p_paddr
	w.WriteU64(size)          // p_filesz
	w.WriteU64(size)          // p_memsz
	w.WriteU64(ELFPageSize)   // p_align

	w.WriteBytes(code)
	w.PadTo(ELFPageSize)
	return w.Bytes(), nil
}
