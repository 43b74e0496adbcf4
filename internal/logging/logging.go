// Package logging 构造命令行使用的 zap 日志记录器。
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 创建输出到 stderr 的彩色控制台日志记录器
//
// verbose 时输出 debug 级别并带调用位置，否则只输出 warn 及以上。
func New(verbose bool) *zap.Logger {
	level := zap.WarnLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg := encoderConfig()
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger := newWithSink(zapcore.Lock(os.Stderr), level, cfg)
	if verbose {
		logger = logger.WithOptions(zap.AddCaller())
	}
	return logger
}

// newWithSink 创建写入 sink 的控制台日志记录器
func newWithSink(sink zapcore.WriteSyncer, level zapcore.Level, cfg zapcore.EncoderConfig) *zap.Logger {
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), sink, level)
	return zap.New(core)
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}
