package aot

import (
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/tangzhangming/solac/internal/target"
)

// ============================================================================
// 优化级别
// ============================================================================

// OptLevel 优化级别
//
// 目前只决定传给链接器的 -O 参数，IR 层的优化遍都是空实现。
type OptLevel int

const (
	OptNone       OptLevel = iota // -O0
	OptBasic                      // -O2
	OptAggressive                 // -O3
	OptSize                       // -Os
)

var optLevelNames = [...]string{
	OptNone:       "none",
	OptBasic:      "basic",
	OptAggressive: "aggressive",
	OptSize:       "size",
}

var optLevelFlags = [...]string{
	OptNone:       "-O0",
	OptBasic:      "-O2",
	OptAggressive: "-O3",
	OptSize:       "-Os",
}

func (l OptLevel) valid() bool {
	return l >= OptNone && l <= OptSize
}

func (l OptLevel) String() string {
	if l.valid() {
		return optLevelNames[l]
	}
	return fmt.Sprintf("OptLevel(%d)", int(l))
}

// Flag 对应的链接器参数
func (l OptLevel) Flag() string {
	if l.valid() {
		return optLevelFlags[l]
	}
	return optLevelFlags[OptNone]
}

// ParseOptLevel 解析优化级别，接受 0/none、1/2/basic、3/aggressive、s/size，可带 -O 前缀
func ParseOptLevel(s string) (OptLevel, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimPrefix(v, "-o")
	switch v {
	case "0", "none":
		return OptNone, nil
	case "1", "2", "basic":
		return OptBasic, nil
	case "3", "aggressive":
		return OptAggressive, nil
	case "s", "size":
		return OptSize, nil
	}
	return OptNone, fmt.Errorf("unknown optimization level %q", s)
}

// MarshalText 实现 encoding.TextMarshaler
func (l OptLevel) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("invalid optimization level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (l *OptLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseOptLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ============================================================================
// 编译选项
// ============================================================================

// CompileOptions AOT 编译选项
type CompileOptions struct {
	Target       target.Target
	Optimization OptLevel

	// Linker 链接器可执行文件，为空时使用目标的默认链接器
	Linker       string
	Libraries    []string // 每项生成 -l<name>
	LibraryPaths []string // 每项生成 -L<path>
	LinkerFlags  []string // 原样传给链接器

	StaticLinking bool
	CleanupObject bool // 链接成功后删除中间目标文件

	// 目前只保存，代码生成不使用
	DebugSymbols bool
	StripSymbols bool
}

// DefaultOptions 目标的默认选项
func DefaultOptions(t target.Target) CompileOptions {
	return CompileOptions{
		Target:        t,
		Optimization:  OptBasic,
		Linker:        t.DefaultLinker(),
		CleanupObject: true,
	}
}

// LinkerPath 实际使用的链接器
func (o CompileOptions) LinkerPath() string {
	if o.Linker != "" {
		return o.Linker
	}
	return o.Target.DefaultLinker()
}

// Validate 检查选项，返回全部问题
func (o CompileOptions) Validate() error {
	var errs error
	if !o.Target.Valid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid target %q", o.Target))
	}
	if !o.Optimization.valid() {
		errs = multierr.Append(errs, fmt.Errorf("invalid optimization level %d", int(o.Optimization)))
	}
	for _, lib := range o.Libraries {
		if strings.TrimSpace(lib) == "" {
			errs = multierr.Append(errs, fmt.Errorf("empty library name"))
			break
		}
	}
	for _, dir := range o.LibraryPaths {
		if strings.TrimSpace(dir) == "" {
			errs = multierr.Append(errs, fmt.Errorf("empty library path"))
			break
		}
	}
	return errs
}
