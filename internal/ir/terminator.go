package ir

import "fmt"

// TermKind 终结指令种类
type TermKind uint8

const (
	TermUnreachable TermKind = iota // 零值，块尚未设置终结指令时即为此值
	TermJump
	TermBranch
	TermReturn
	TermThrow
)

var termKindNames = [...]string{
	TermUnreachable: "unreachable",
	TermJump:        "jump",
	TermBranch:      "branch",
	TermReturn:      "ret",
	TermThrow:       "throw",
}

func (k TermKind) String() string {
	if int(k) < len(termKindNames) {
		return termKindNames[k]
	}
	return fmt.Sprintf("term(%d)", k)
}

// Terminator 基本块的唯一出口
type Terminator struct {
	Kind     TermKind
	Target   BlockID    // Jump
	Cond     RegisterID // Branch
	Then     BlockID    // Branch
	Else     BlockID    // Branch
	Value    RegisterID // Return / Throw
	HasValue bool       // Return 是否带返回值
}

func Jump(target BlockID) Terminator {
	return Terminator{Kind: TermJump, Target: target}
}

func Branch(cond RegisterID, then, els BlockID) Terminator {
	return Terminator{Kind: TermBranch, Cond: cond, Then: then, Else: els}
}

// Return 带返回值返回
func Return(value RegisterID) Terminator {
	return Terminator{Kind: TermReturn, Value: value, HasValue: true}
}

// ReturnVoid 无返回值返回
func ReturnVoid() Terminator {
	return Terminator{Kind: TermReturn}
}

func Unreachable() Terminator {
	return Terminator{Kind: TermUnreachable}
}

func Throw(value RegisterID) Terminator {
	return Terminator{Kind: TermThrow, Value: value, HasValue: true}
}

// ReturnValue 返回指令的返回值寄存器
func (t Terminator) ReturnValue() (RegisterID, bool) {
	if t.Kind != TermReturn || !t.HasValue {
		return 0, false
	}
	return t.Value, true
}

// Successors 后继块
func (t Terminator) Successors() []BlockID {
	switch t.Kind {
	case TermJump:
		return []BlockID{t.Target}
	case TermBranch:
		return []BlockID{t.Then, t.Else}
	default:
		return nil
	}
}

// Uses 终结指令读取的寄存器
func (t Terminator) Uses() []RegisterID {
	switch t.Kind {
	case TermBranch:
		return []RegisterID{t.Cond}
	case TermReturn, TermThrow:
		if t.HasValue {
			return []RegisterID{t.Value}
		}
	}
	return nil
}

func (t Terminator) String() string {
	switch t.Kind {
	case TermJump:
		return "jump " + t.Target.String()
	case TermBranch:
		return fmt.Sprintf("branch %s, %s, %s", t.Cond, t.Then, t.Else)
	case TermReturn:
		if t.HasValue {
			return "ret " + t.Value.String()
		}
		return "ret"
	case TermThrow:
		return "throw " + t.Value.String()
	default:
		return "unreachable"
	}
}
