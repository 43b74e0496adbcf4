package ir

import (
	"fmt"

	"go.uber.org/multierr"
)

// ValidationError 模块结构错误
type ValidationError struct {
	Function string
	Block    BlockID
	Msg      string
}

func (e *ValidationError) Error() string {
	if e.Function == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s/%s: %s", e.Function, e.Block, e.Msg)
}

// Validate 检查模块结构，返回所有发现的问题
//
// 检查项：入口块存在、块编号唯一、终结指令已设置、跳转目标存在、
// 寄存器只定义一次。
func (m *Module) Validate() error {
	var errs error
	seenBlocks := make(map[BlockID]string)
	defined := make(map[RegisterID]string)

	seenFuncs := make(map[string]bool)
	for _, fn := range m.Functions {
		if seenFuncs[fn.Name] {
			errs = multierr.Append(errs, &ValidationError{Msg: fmt.Sprintf("duplicate function %q", fn.Name)})
		}
		seenFuncs[fn.Name] = true

		if fn.External {
			continue
		}
		if fn.EntryBlock() == nil {
			errs = multierr.Append(errs, &ValidationError{Function: fn.Name, Block: fn.Entry, Msg: "entry block not found"})
		}
		for _, p := range fn.Params {
			defined[p.Reg] = fn.Name
		}

		for _, b := range fn.Blocks {
			if owner, ok := seenBlocks[b.ID]; ok {
				errs = multierr.Append(errs, &ValidationError{
					Function: fn.Name, Block: b.ID,
					Msg: fmt.Sprintf("block id already used in %s", owner),
				})
			}
			seenBlocks[b.ID] = fn.Name

			if !b.Terminated() {
				errs = multierr.Append(errs, &ValidationError{Function: fn.Name, Block: b.ID, Msg: "block has no terminator"})
			}
			for _, succ := range b.Terminator.Successors() {
				if fn.Block(succ) == nil {
					errs = multierr.Append(errs, &ValidationError{
						Function: fn.Name, Block: b.ID,
						Msg: fmt.Sprintf("jump target %s not found", succ),
					})
				}
			}
			for _, in := range b.Instructions {
				if !in.HasDest {
					continue
				}
				if owner, ok := defined[in.Dest]; ok {
					errs = multierr.Append(errs, &ValidationError{
						Function: fn.Name, Block: b.ID,
						Msg: fmt.Sprintf("register %s redefined (first defined in %s)", in.Dest, owner),
					})
					continue
				}
				defined[in.Dest] = fn.Name
			}
		}
	}
	return errs
}
