package aot

import "github.com/tangzhangming/solac/internal/ir"

// Pass IR 优化遍
type Pass interface {
	Name() string
	Run(m *ir.Module) error
}

// namedPass 只有名字的优化遍，Run 不修改模块
type namedPass string

func (p namedPass) Name() string {
	return string(p)
}

func (p namedPass) Run(*ir.Module) error {
	return nil
}

// 预留的优化遍
const (
	PassConstantFolding     namedPass = "constant-folding"
	PassDeadCodeElimination namedPass = "dead-code-elimination"
	PassInlining            namedPass = "inlining"
	PassSizeReduction       namedPass = "size-reduction"
)

// Pipeline 返回优化级别对应的优化遍序列
func Pipeline(level OptLevel) []Pass {
	switch level {
	case OptBasic:
		return []Pass{PassConstantFolding, PassDeadCodeElimination}
	case OptAggressive:
		return []Pass{PassConstantFolding, PassDeadCodeElimination, PassInlining}
	case OptSize:
		return []Pass{PassSizeReduction, PassDeadCodeElimination}
	default:
		return nil
	}
}
