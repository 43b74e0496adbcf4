package target

import (
	"fmt"
	"runtime"
	"strings"
)

// Arch 目标架构
type Arch uint8

const (
	ArchX86_64 Arch = iota
	ArchARM64
)

func (a Arch) String() string {
	switch a {
	case ArchX86_64:
		return "x86_64"
	case ArchARM64:
		return "arm64"
	default:
		return fmt.Sprintf("arch(%d)", a)
	}
}

// OS 目标操作系统
type OS uint8

const (
	OSLinux OS = iota
	OSWindows
	OSMacOS
)

func (o OS) String() string {
	switch o {
	case OSLinux:
		return "linux"
	case OSWindows:
		return "windows"
	case OSMacOS:
		return "macos"
	default:
		return fmt.Sprintf("os(%d)", o)
	}
}

// Target 目标平台：架构 + 操作系统
type Target struct {
	Arch Arch
	OS   OS
}

// 支持的六种目标
var (
	X86_64Linux   = Target{ArchX86_64, OSLinux}
	X86_64Windows = Target{ArchX86_64, OSWindows}
	X86_64MacOS   = Target{ArchX86_64, OSMacOS}
	ARM64Linux    = Target{ArchARM64, OSLinux}
	ARM64Windows  = Target{ArchARM64, OSWindows}
	ARM64MacOS    = Target{ArchARM64, OSMacOS}
)

// All 返回全部目标
func All() []Target {
	return []Target{X86_64Linux, X86_64Windows, X86_64MacOS, ARM64Linux, ARM64Windows, ARM64MacOS}
}

// Valid 是否为六种已知目标之一
func (t Target) Valid() bool {
	return t.Arch <= ArchARM64 && t.OS <= OSMacOS
}

// String 返回形如 "x86_64-linux" 的目标名
func (t Target) String() string {
	return t.Arch.String() + "-" + t.OS.String()
}

// DefaultLinker 目标平台默认的链接器
func (t Target) DefaultLinker() string {
	if t.OS == OSMacOS {
		return "clang"
	}
	return "gcc"
}

// ExecutableSuffix 可执行文件后缀
func (t Target) ExecutableSuffix() string {
	if t.OS == OSWindows {
		return ".exe"
	}
	return ""
}

// ELFMachine ELF e_machine 字段值
func (t Target) ELFMachine() uint16 {
	switch t.Arch {
	case ArchX86_64:
		return 0x3E
	case ArchARM64:
		return 0xB7
	default:
		return 0
	}
}

// PEMachine PE COFF Machine 字段值
func (t Target) PEMachine() uint16 {
	switch t.Arch {
	case ArchX86_64:
		return 0x8664
	case ArchARM64:
		return 0xAA64
	default:
		return 0
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (t Target) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler，配置文件中的 target 字段使用
func (t *Target) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse 解析目标名，接受 "x86_64-linux"、"amd64-darwin"、"aarch64-windows" 等写法
func Parse(s string) (Target, error) {
	archPart, osPart, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "-")
	if !ok {
		return Target{}, fmt.Errorf("invalid target %q: expected <arch>-<os>", s)
	}

	var t Target
	switch archPart {
	case "x86_64", "amd64", "x64":
		t.Arch = ArchX86_64
	case "arm64", "aarch64":
		t.Arch = ArchARM64
	default:
		return Target{}, fmt.Errorf("invalid target %q: unknown architecture %q", s, archPart)
	}

	switch osPart {
	case "linux":
		t.OS = OSLinux
	case "windows", "win":
		t.OS = OSWindows
	case "macos", "darwin", "osx":
		t.OS = OSMacOS
	default:
		return Target{}, fmt.Errorf("invalid target %q: unknown operating system %q", s, osPart)
	}
	return t, nil
}

// Host 返回当前运行平台对应的目标，无法识别时回退到 x86_64-linux
func Host() Target {
	return fromGo(runtime.GOARCH, runtime.GOOS)
}

func fromGo(goarch, goos string) Target {
	t := X86_64Linux
	if goarch == "arm64" {
		t.Arch = ArchARM64
	}
	switch goos {
	case "windows":
		t.OS = OSWindows
	case "darwin":
		t.OS = OSMacOS
	}
	return t
}
