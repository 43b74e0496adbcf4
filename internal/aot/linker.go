package aot

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// LinkError 链接器以非零状态退出
type LinkError struct {
	Linker   string
	ExitCode int
	Stderr   string
}

func (e *LinkError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("linker %s exited with status %d", e.Linker, e.ExitCode)
	}
	return fmt.Sprintf("linker %s exited with status %d:\n%s", e.Linker, e.ExitCode, msg)
}

// LinkArgs 链接器参数：
//
//	<obj> -o <output> -l<lib>... -L<dir>... [-static] -O<level> <flags>...
func LinkArgs(opts CompileOptions, objPath, output string) []string {
	args := make([]string, 0, 4+len(opts.Libraries)+len(opts.LibraryPaths)+len(opts.LinkerFlags))
	args = append(args, objPath, "-o", output)
	for _, lib := range opts.Libraries {
		args = append(args, "-l"+lib)
	}
	for _, dir := range opts.LibraryPaths {
		args = append(args, "-L"+dir)
	}
	if opts.StaticLinking {
		args = append(args, "-static")
	}
	args = append(args, opts.Optimization.Flag())
	args = append(args, opts.LinkerFlags...)
	return args
}

// Link 同步运行链接器，没有超时
func Link(opts CompileOptions, objPath, output string) error {
	linker := opts.LinkerPath()
	cmd := exec.Command(linker, LinkArgs(opts, objPath, output)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// 找到了链接器，但链接失败
			return &LinkError{Linker: linker, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		// 多半是找不到链接器
		return pkgerrors.Wrap(err, "failed to run linker")
	}
	return nil
}
