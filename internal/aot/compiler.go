// Package aot 把 Sola 字节码编译成本机可执行文件。
//
// 流水线：
//
//	源文件 -> 前端 -> 字节码 -> IR -> 优化遍 -> 机器码 -> 目标文件 -> 链接器
//
// 整条流水线在调用方的 goroutine 上同步执行，唯一的阻塞点是链接器子进程。
package aot

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tangzhangming/solac/internal/backend"
	"github.com/tangzhangming/solac/internal/bytecode"
	"github.com/tangzhangming/solac/internal/convert"
	"github.com/tangzhangming/solac/internal/frontend"
	"github.com/tangzhangming/solac/internal/ir"
	"github.com/tangzhangming/solac/internal/objfile"
)

// ObjectSuffix 中间目标文件后缀，追加在输出路径之后
const ObjectSuffix = ".o"

// Compiler AOT 编译器
//
// 每个实例持有自己的选项、后端和生成器，不同实例可以并发使用，
// 但调用方需要保证输出路径互不相同。
type Compiler struct {
	opts      CompileOptions
	frontend  frontend.Frontend
	backend   backend.Backend
	generator objfile.Generator
	logger    *zap.Logger
}

// Option 编译器构造选项
type Option func(*Compiler)

// WithLogger 设置日志记录器，默认不输出
func WithLogger(logger *zap.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New 创建编译器
//
// fe 为 nil 时 CompileFile 按扩展名选择前端。
// 目标平台没有后端时返回 *UnsupportedTargetError。
func New(opts CompileOptions, fe frontend.Frontend, options ...Option) (*Compiler, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid compile options")
	}
	be, err := CreateBackend(opts.Target)
	if err != nil {
		return nil, err
	}

	c := &Compiler{
		opts:      opts,
		frontend:  fe,
		backend:   be,
		generator: CreateGenerator(opts.Target),
		logger:    zap.NewNop(),
	}
	for _, opt := range options {
		opt(c)
	}
	if opts.DebugSymbols && opts.StripSymbols {
		c.logger.Warn("both debug and strip requested; neither is applied yet")
	}
	return c, nil
}

// Options 返回编译选项
func (c *Compiler) Options() CompileOptions {
	return c.opts
}

// Generator 返回目标文件生成器
func (c *Compiler) Generator() objfile.Generator {
	return c.generator
}

// ObjectPath 输出对应的中间目标文件路径
func ObjectPath(output string) string {
	return output + ObjectSuffix
}

// ============================================================================
// 流水线
// ============================================================================

// CompileFile 编译源文件并链接成 output
func (c *Compiler) CompileFile(path, output string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read source %s", path)
	}

	fe := c.frontend
	if fe == nil {
		fe = frontend.ForPath(path)
	}
	c.logger.Debug("running front end", zap.String("source", path), zap.Int("bytes", len(source)))
	chunk, err := fe.Compile(path, source)
	if err != nil {
		return err
	}
	return c.compile(moduleName(path), chunk, output)
}

// CompileBytecode 编译字节码块并链接成 output
func (c *Compiler) CompileBytecode(chunk *bytecode.Chunk, output string) error {
	return c.compile(moduleName(output), chunk, output)
}

func (c *Compiler) compile(name string, chunk *bytecode.Chunk, output string) error {
	start := time.Now()

	module, err := c.Lower(name, chunk)
	if err != nil {
		return err
	}

	image, err := c.Emit(module)
	if err != nil {
		return err
	}

	objPath := ObjectPath(output)
	if err := os.WriteFile(objPath, image, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write object file %s", objPath)
	}
	c.logger.Debug("object written",
		zap.String("path", objPath),
		zap.String("format", c.generator.FormatName()),
		zap.Int("bytes", len(image)))

	linker := c.opts.LinkerPath()
	c.logger.Info("linking",
		zap.String("linker", linker),
		zap.Strings("args", LinkArgs(c.opts, objPath, output)))
	if err := Link(c.opts, objPath, output); err != nil {
		return err
	}

	if c.opts.CleanupObject {
		// 删除失败不影响编译结果
		if err := os.Remove(objPath); err != nil {
			c.logger.Debug("failed to remove object file", zap.String("path", objPath), zap.Error(err))
		}
	}

	c.logger.Debug("compilation finished",
		zap.String("output", output),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// ConvertBytecode 把字节码转换为 IR，不运行优化遍
func (c *Compiler) ConvertBytecode(name string, chunk *bytecode.Chunk) (*ir.Module, error) {
	c.logger.Debug("converting bytecode", zap.String("module", name), zap.Int("bytes", chunk.Len()))
	module, err := convert.Convert(name, chunk)
	if err != nil {
		return nil, errors.Wrap(err, "IR conversion failed")
	}
	return module, nil
}

// Lower 转换为 IR，运行当前优化级别的优化遍并校验结果
func (c *Compiler) Lower(name string, chunk *bytecode.Chunk) (*ir.Module, error) {
	module, err := c.ConvertBytecode(name, chunk)
	if err != nil {
		return nil, err
	}
	if err := c.optimizeIR(module); err != nil {
		return nil, err
	}
	if err := module.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid IR")
	}
	return module, nil
}

// Emit 生成机器码并包装成目标文件映像
func (c *Compiler) Emit(module *ir.Module) ([]byte, error) {
	code, err := c.backend.CompileModule(module)
	if err != nil {
		return nil, errors.Wrap(err, "code generation failed")
	}
	c.logger.Debug("machine code generated",
		zap.String("backend", c.backend.Name()),
		zap.Int("bytes", len(code)))

	image, err := c.generator.GenerateObject(module, code)
	if err != nil {
		return nil, errors.Wrap(err, "object generation failed")
	}
	return image, nil
}

// optimizeIR 按优化级别运行优化遍
func (c *Compiler) optimizeIR(module *ir.Module) error {
	for _, pass := range Pipeline(c.opts.Optimization) {
		c.logger.Debug("running pass", zap.String("pass", pass.Name()))
		if err := pass.Run(module); err != nil {
			return errors.Wrapf(err, "pass %s failed", pass.Name())
		}
	}
	return nil
}

// moduleName 取文件名去掉扩展名作为模块名
func moduleName(path string) string {
	base := filepath.Base(path)
	if name := strings.TrimSuffix(base, filepath.Ext(base)); name != "" {
		return name
	}
	return base
}
