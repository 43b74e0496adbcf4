package aot

import (
	"fmt"

	"github.com/tangzhangming/solac/internal/backend"
	"github.com/tangzhangming/solac/internal/objfile"
	"github.com/tangzhangming/solac/internal/target"
)

// UnsupportedTargetError 目标平台没有可用的后端
type UnsupportedTargetError struct {
	Target target.Target
	Reason string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("unsupported target %s: %s", e.Target, e.Reason)
}

// CreateBackend 为目标选择代码生成后端
func CreateBackend(t target.Target) (backend.Backend, error) {
	switch t.Arch {
	case target.ArchX86_64:
		return backend.NewX64(t.OS), nil
	case target.ArchARM64:
		return nil, &UnsupportedTargetError{Target: t, Reason: "arm64 code generation is not implemented"}
	default:
		return nil, &UnsupportedTargetError{Target: t, Reason: "unknown architecture"}
	}
}

// CreateGenerator 为目标选择目标文件格式
//
// macOS 目前也生成 ELF，还没有 Mach-O 生成器。
func CreateGenerator(t target.Target) objfile.Generator {
	if t.OS == target.OSWindows {
		return &objfile.PEGenerator{Machine: t.PEMachine()}
	}
	return &objfile.ELFGenerator{Machine: t.ELFMachine(), Kind: objfile.ELFExec}
}
