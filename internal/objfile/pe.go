package objfile

import "github.com/tangzhangming/solac/internal/ir"

// ============================================================================
// PE32+ 常量
// ============================================================================

const (
	peDOSHeaderSize      = 64
	peSignatureSize      = 4
	peCOFFHeaderSize     = 20
	peOptionalHeaderSize = 240
	peSectionHeaderSize  = 40
	peDataDirectories    = 16

	// PEImageBase 默认映像基址
	PEImageBase = 0x140000000

	// PEFileAlignment 文件内节对齐
	PEFileAlignment = 0x200

	// PESectionAlignment 内存中节对齐
	PESectionAlignment = 0x1000

	peMagicPE32Plus     = 0x20B
	peMachineAMD64      = 0x8664
	peSubsystemConsole  = 3
	peImageExecutable   = 0x0002
	peLargeAddressAware = 0x0020
	peNXCompat          = 0x0100
	peTSAware           = 0x8000
	peSectionCode       = 0x00000020
	peSectionExecute    = 0x20000000
	peSectionRead       = 0x40000000
	peTextRVA           = PESectionAlignment
)

// PEGenerator 生成只含一个 .text 节的最小 PE32+ 映像
//
// 映像没有导入表和重定位表，入口是 .text 的第一个字节，
// 必须装载在 PEImageBase。
type PEGenerator struct {
	Machine uint16
}

// NewPE 创建 x86-64 PE 生成器
func NewPE() *PEGenerator {
	return &PEGenerator{Machine: peMachineAMD64}
}

// FormatName 实现 Generator
func (g *PEGenerator) FormatName() string {
	return "pe32+"
}

// Extension 实现 Generator
func (g *PEGenerator) Extension() string {
	return ".obj"
}

// GenerateObject 实现 Generator
func (g *PEGenerator) GenerateObject(_ *ir.Module, code []byte) ([]byte, error) {
	machine := g.Machine
	if machine == 0 {
		machine = peMachineAMD64
	}

	codeSize := uint64(len(code))
	rawSize := alignUp(codeSize, PEFileAlignment)
	headersSize := alignUp(peDOSHeaderSize+peSignatureSize+peCOFFHeaderSize+
		peOptionalHeaderSize+peSectionHeaderSize, PEFileAlignment)
	imageSize := peTextRVA + alignUp(codeSize, PESectionAlignment)

	w := NewByteWriter()

	// DOS 头，只保留 e_magic 和 e_lfanew
	w.WriteBytes([]byte{'M', 'Z'})
	w.Zero(0x3C - 2)
	w.WriteU32(peDOSHeaderSize)

	w.WriteBytes([]byte{'P', 'E', 0, 0})

	// COFF 文件头
	w.WriteU16(machine)
	w.WriteU16(1) // NumberOfSections
	w.WriteU32(0) // TimeDateStamp
	w.WriteU32(0) // PointerToSymbolTable
	w.WriteU32(0) // NumberOfSymbols
	w.WriteU16(peOptionalHeaderSize)
	w.WriteU16(peImageExecutable | peLargeAddressAware)

	// 可选头
	w.WriteU16(peMagicPE32Plus)
	w.WriteU8(0)                    // MajorLinkerVersion
	w.WriteU8(0)                    // MinorLinkerVersion
	w.WriteU32(uint32(rawSize))     // SizeOfCode
	w.WriteU32(0)                   // SizeOfInitializedData
	w.WriteU32(0)                   // SizeOfUninitializedData
	w.WriteU32(peTextRVA)           // AddressOfEntryPoint
	w.WriteU32(peTextRVA)           // BaseOfCode
	w.WriteU64(PEImageBase)         // ImageBase
	w.WriteU32(PESectionAlignment)  // SectionAlignment
	w.WriteU32(PEFileAlignment)     // FileAlignment
	w.WriteU16(6)                   // MajorOperatingSystemVersion
	w.WriteU16(0)                   // MinorOperatingSystemVersion
	w.WriteU16(0)                   // MajorImageVersion
	w.WriteU16(0)                   // MinorImageVersion
	w.WriteU16(6)                   // MajorSubsystemVersion
	w.WriteU16(0)                   // MinorSubsystemVersion
	w.WriteU32(0)                   // Win32VersionValue
	w.WriteU32(uint32(imageSize))   // SizeOfImage
	w.WriteU32(uint32(headersSize)) // SizeOfHeaders
	w.WriteU32(0)                   // CheckSum
	w.WriteU16(peSubsystemConsole)  // Subsystem
	w.WriteU16(peNXCompat | peTSAware)
	w.WriteU64(0x100000) // SizeOfStackReserve
	w.WriteU64(0x1000)   // SizeOfStackCommit
	w.WriteU64(0x100000) // SizeOfHeapReserve
	w.WriteU64(0x1000)   // SizeOfHeapCommit
	w.WriteU32(0)        // LoaderFlags
	w.WriteU32(peDataDirectories)
	w.Zero(peDataDirectories * 8)

	// .text 节头
	w.WriteString(".text", 8)
	w.WriteU32(uint32(codeSize)) // VirtualSize
	w.WriteU32(peTextRVA)        // VirtualAddress
	w.WriteU32(uint32(rawSize))  // SizeOfRawData
	w.WriteU32(uint32(headersSize))
	w.Zero(12) // 重定位和行号
	w.WriteU32(peSectionCode | peSectionExecute | peSectionRead)

	w.PadTo(PEFileAlignment)
	w.WriteBytes(code)
	w.PadTo(PEFileAlignment)
	return w.Bytes(), nil
}
