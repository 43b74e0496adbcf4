// Package objfile 把原始机器码包装成可装载的二进制映像。
//
// 生成器只负责文件格式：不做重定位，不生成符号表，
// 代码被原样放进唯一的可执行段。
package objfile

import "github.com/tangzhangming/solac/internal/ir"

// Generator 目标文件生成器
//
// 实现必须是无状态的，同一个 Generator 可以被多次调用。
type Generator interface {
	// GenerateObject 用模块元数据和机器码生成完整映像
	GenerateObject(m *ir.Module, code []byte) ([]byte, error)
	// FormatName 格式名称，如 "elf64"
	FormatName() string
	// Extension 目标文件扩展名，含点号
	Extension() string
}
