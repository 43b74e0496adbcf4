package aot

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/tangzhangming/solac/internal/target"
)

// ConfigFileName 配置文件名
const ConfigFileName = "solac.toml"

// Config solac.toml 配置
type Config struct {
	Build BuildConfig `toml:"build"`
}

// BuildConfig [build] 表
//
// 未出现的字段保持目标平台的默认值。
type BuildConfig struct {
	// Target 目标平台，如 x86_64-linux，为空时使用当前平台
	Target string `toml:"target"`

	// Optimization 优化级别：none/basic/aggressive/size 或 0/2/3/s
	Optimization string `toml:"optimization"`

	Linker       string   `toml:"linker"`
	Libraries    []string `toml:"libraries"`
	LibraryPaths []string `toml:"library_paths"`
	LinkerFlags  []string `toml:"linker_flags"`

	Static     *bool `toml:"static"`
	KeepObject *bool `toml:"keep_object"`
	Debug      *bool `toml:"debug"`
	Strip      *bool `toml:"strip"`
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return ParseConfig(data)
}

// ParseConfig 解析配置内容，未知字段视为错误
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return &config, nil
}

// Options 把配置应用到默认选项上
func (c *Config) Options() (CompileOptions, error) {
	b := c.Build
	var errs error

	t := target.Host()
	if b.Target != "" {
		parsed, err := target.Parse(b.Target)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			t = parsed
		}
	}

	opts := DefaultOptions(t)
	if b.Optimization != "" {
		level, err := ParseOptLevel(b.Optimization)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			opts.Optimization = level
		}
	}
	if b.Linker != "" {
		opts.Linker = b.Linker
	}
	opts.Libraries = append(opts.Libraries, b.Libraries...)
	opts.LibraryPaths = append(opts.LibraryPaths, b.LibraryPaths...)
	opts.LinkerFlags = append(opts.LinkerFlags, b.LinkerFlags...)
	if b.Static != nil {
		opts.StaticLinking = *b.Static
	}
	if b.KeepObject != nil {
		opts.CleanupObject = !*b.KeepObject
	}
	if b.Debug != nil {
		opts.DebugSymbols = *b.Debug
	}
	if b.Strip != nil {
		opts.StripSymbols = *b.Strip
	}

	if errs != nil {
		return CompileOptions{}, errors.Wrap(errs, "invalid [build] configuration")
	}
	return opts, nil
}

// FindConfig 从指定路径向上查找配置文件
// 返回配置文件的完整路径，如果找不到则返回空字符串
func FindConfig(startPath string) string {
	info, err := os.Stat(startPath)
	if err != nil {
		return ""
	}

	dir := startPath
	if !info.IsDir() {
		dir = filepath.Dir(startPath)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// 已到达根目录
			return ""
		}
		dir = parent
	}
}
