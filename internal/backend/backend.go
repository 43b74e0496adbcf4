package backend

import (
	"fmt"

	"github.com/tangzhangming/solac/internal/ir"
)

// EntrySymbol 程序入口函数名
const EntrySymbol = "main"

// Backend 将 IR 模块编译为原始机器码
//
// 实现必须是无状态的：每次 CompileModule 都从零开始，
// 同一个 Backend 可以被多次调用。
type Backend interface {
	// Name 返回后端名称，如 "x86_64"
	Name() string
	// CompileModule 编译整个模块，返回可直接装载执行的机器码
	CompileModule(m *ir.Module) ([]byte, error)
}

// CodegenError 代码生成错误
type CodegenError struct {
	Function string
	Block    ir.BlockID
	Reason   string
}

func (e *CodegenError) Error() string {
	if e.Function == "" {
		return "codegen: " + e.Reason
	}
	return fmt.Sprintf("codegen: %s/%s: %s", e.Function, e.Block, e.Reason)
}
