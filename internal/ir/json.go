package ir

import (
	"github.com/segmentio/encoding/json"
)

// JSON 视图，只用于导出

type moduleJSON struct {
	Name      string            `json:"name"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Globals   []globalJSON      `json:"globals,omitempty"`
	Functions []functionJSON    `json:"functions"`
}

type globalJSON struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Init     *string `json:"init,omitempty"`
	Mutable  bool    `json:"mutable"`
	Exported bool    `json:"exported"`
}

type functionJSON struct {
	Name       string      `json:"name"`
	Params     []paramJSON `json:"params,omitempty"`
	ReturnType string      `json:"returnType"`
	Entry      BlockID     `json:"entry"`
	Locals     []localJSON `json:"locals,omitempty"`
	Blocks     []blockJSON `json:"blocks"`
	External   bool        `json:"external,omitempty"`
	Exported   bool        `json:"exported,omitempty"`
}

type paramJSON struct {
	Reg  RegisterID `json:"reg"`
	Type string     `json:"type"`
}

type localJSON struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Offset int64  `json:"offset"`
}

type blockJSON struct {
	ID           BlockID           `json:"id"`
	Instructions []instructionJSON `json:"instructions"`
	Terminator   terminatorJSON    `json:"terminator"`
}

type instructionJSON struct {
	Op    string       `json:"op"`
	Dest  *RegisterID  `json:"dest,omitempty"`
	Args  []RegisterID `json:"args,omitempty"`
	Const *string      `json:"const,omitempty"`
	Name  string       `json:"name,omitempty"`
	Line  int          `json:"line,omitempty"`
	Text  string       `json:"text"`
}

type terminatorJSON struct {
	Kind    string      `json:"kind"`
	Targets []BlockID   `json:"targets,omitempty"`
	Value   *RegisterID `json:"value,omitempty"`
	Text    string      `json:"text"`
}

// MarshalJSON 导出模块的 JSON 形式
func (m *Module) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.jsonView())
}

// DumpJSON 导出带缩进的 JSON
func DumpJSON(m *Module) ([]byte, error) {
	return json.MarshalIndent(m.jsonView(), "", "  ")
}

func (m *Module) jsonView() moduleJSON {
	out := moduleJSON{
		Name:      m.Name,
		Metadata:  m.Metadata,
		Functions: make([]functionJSON, 0, len(m.Functions)),
	}
	for _, g := range m.Globals {
		gj := globalJSON{Name: g.Name, Type: g.Type.String(), Mutable: g.Mutable, Exported: g.Exported}
		if g.Init != nil {
			s := g.Init.String()
			gj.Init = &s
		}
		out.Globals = append(out.Globals, gj)
	}
	for _, fn := range m.Functions {
		fj := functionJSON{
			Name:       fn.Name,
			ReturnType: fn.ReturnType.String(),
			Entry:      fn.Entry,
			Blocks:     make([]blockJSON, 0, len(fn.Blocks)),
			External:   fn.External,
			Exported:   fn.Exported,
		}
		for _, p := range fn.Params {
			fj.Params = append(fj.Params, paramJSON{Reg: p.Reg, Type: p.Type.String()})
		}
		for _, l := range fn.Locals {
			fj.Locals = append(fj.Locals, localJSON{Name: l.Name, Type: l.Type.String(), Offset: l.Offset})
		}
		for _, b := range fn.Blocks {
			fj.Blocks = append(fj.Blocks, b.jsonView())
		}
		out.Functions = append(out.Functions, fj)
	}
	return out
}

func (b *Block) jsonView() blockJSON {
	bj := blockJSON{ID: b.ID, Instructions: make([]instructionJSON, 0, len(b.Instructions))}
	for _, in := range b.Instructions {
		ij := instructionJSON{Op: in.Op.String(), Args: in.Args, Name: in.Name, Line: in.Line, Text: in.String()}
		if in.HasDest {
			d := in.Dest
			ij.Dest = &d
		}
		if in.Op == OpLoadConst {
			s := in.Const.String()
			ij.Const = &s
		}
		bj.Instructions = append(bj.Instructions, ij)
	}
	t := b.Terminator
	bj.Terminator = terminatorJSON{Kind: t.Kind.String(), Targets: t.Successors(), Text: t.String()}
	if t.HasValue {
		v := t.Value
		bj.Terminator.Value = &v
	}
	return bj
}
