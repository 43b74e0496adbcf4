// Package frontend 把源文件编译成字节码块。
//
// 两种输入：
//   - .sasm 文本汇编，逐行一条指令
//   - .sbc  CBOR 编码的字节码容器
package frontend

import (
	"path/filepath"
	"strings"

	"github.com/tangzhangming/solac/internal/bytecode"
)

// Frontend 前端：源码 -> 字节码
type Frontend interface {
	// Compile 编译一个源文件，name 只用于错误信息
	Compile(name string, source []byte) (*bytecode.Chunk, error)
}

// ForPath 按扩展名选择前端，.sbc 使用容器加载器，其余按汇编处理
func ForPath(path string) Frontend {
	if strings.EqualFold(filepath.Ext(path), bytecode.ContainerExtension) {
		return ContainerLoader{}
	}
	return NewAssembler()
}

// ContainerLoader 加载 CBOR 字节码容器，加载后做结构验证
type ContainerLoader struct{}

// Compile 实现 Frontend
func (ContainerLoader) Compile(name string, source []byte) (*bytecode.Chunk, error) {
	chunk, err := bytecode.Unmarshal(source)
	if err != nil {
		return nil, &SourceError{File: name, Err: err}
	}
	if err := bytecode.Verify(chunk); err != nil {
		return nil, &SourceError{File: name, Err: err}
	}
	return chunk, nil
}
