package ir

import (
	"fmt"
	"sort"
	"strings"
)

// String 返回模块的文本形式
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)

	keys := make([]string, 0, len(m.Metadata))
	for k := range m.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "; %s = %s\n", k, m.Metadata[k])
	}

	for _, g := range m.Globals {
		sb.WriteString(g.String())
		sb.WriteByte('\n')
	}
	for _, fn := range m.Functions {
		sb.WriteByte('\n')
		sb.WriteString(fn.String())
	}
	return sb.String()
}

func (g *Global) String() string {
	var sb strings.Builder
	sb.WriteString("global ")
	if g.Exported {
		sb.WriteString("export ")
	}
	if g.Mutable {
		sb.WriteString("mut ")
	}
	fmt.Fprintf(&sb, "@%s: %s", g.Name, g.Type)
	if g.Init != nil {
		sb.WriteString(" = " + g.Init.String())
	}
	return sb.String()
}

func (f *Function) String() string {
	var sb strings.Builder
	switch {
	case f.External:
		sb.WriteString("declare ")
	case f.Exported:
		sb.WriteString("export ")
	}

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%s: %s", p.Reg, p.Type)
	}
	fmt.Fprintf(&sb, "func %s(%s) -> %s", f.Name, strings.Join(params, ", "), f.ReturnType)
	if f.External {
		sb.WriteByte('\n')
		return sb.String()
	}
	sb.WriteString(" {\n")

	for i, l := range f.Locals {
		fmt.Fprintf(&sb, "  $%d %s: %s ; [fp-%d]\n", i, l.Name, l.Type, l.Offset)
	}
	for _, b := range f.Blocks {
		sb.WriteString(b.String())
	}
	sb.WriteString("}\n")
	return sb.String()
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.ID)
	for i, in := range b.Instructions {
		fmt.Fprintf(&sb, "%4d: %s\n", i, in.String())
	}
	fmt.Fprintf(&sb, "      %s\n", b.Terminator.String())
	return sb.String()
}
