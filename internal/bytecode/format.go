package bytecode

// ============================================================================
// 字节码容器文件格式定义
// ============================================================================

const (
	// ContainerExtension 字节码容器文件后缀
	ContainerExtension = ".sbc"

	// AssemblyExtension 文本汇编源文件后缀
	AssemblyExtension = ".sasm"

	// ContainerMagic 容器魔数
	ContainerMagic = "SOLA"

	// 版本号
	MajorVersion uint8 = 1
	MinorVersion uint8 = 0
)

// 常量池类型标记
const (
	ConstNull   uint8 = 0
	ConstBool   uint8 = 1
	ConstInt    uint8 = 2
	ConstFloat  uint8 = 3
	ConstString uint8 = 4
	ConstArray  uint8 = 5
	ConstFunc   uint8 = 6
)
