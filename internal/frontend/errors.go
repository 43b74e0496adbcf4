package frontend

import "fmt"

// Position 源码位置
type Position struct {
	Line   int // 从 1 开始
	Column int // 从 1 开始
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// PosError 带位置的单条错误
type PosError struct {
	Pos     Position
	Message string
}

func (e *PosError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}

// SourceError 附加文件名
type SourceError struct {
	File string
	Err  error
}

func (e *SourceError) Error() string {
	if e.File == "" {
		return e.Err.Error()
	}
	return e.File + ": " + e.Err.Error()
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

func newPosError(pos Position, format string, args ...interface{}) *PosError {
	return &PosError{Pos: pos, Message: fmt.Sprintf(format, args...)}
}
