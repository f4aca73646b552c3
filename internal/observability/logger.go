// Package observability builds the process logger.
package observability

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerOptions configures NewLogger.
type LoggerOptions struct {
	Level      string // debug, info, warn, error
	File       string // rotated JSON log file; empty disables
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer // human-readable console output; nil disables
}

// NewLogger builds a zap logger writing JSON to a rotated file and console
// text to opts.Console. An unparsable level falls back to info.
func NewLogger(opts LoggerOptions) *zap.Logger {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level.SetLevel(zap.InfoLevel)
	}

	var cores []zapcore.Core
	if opts.Console != nil {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig()),
			zapcore.Lock(zapcore.AddSync(opts.Console)),
			level,
		))
	}
	if opts.File != "" {
		// lumberjack handles rotation and concurrent writes.
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig()),
			zapcore.AddSync(&lumberjack.Logger{
				Filename:   opts.File,
				MaxSize:    opts.MaxSizeMB,
				MaxBackups: opts.MaxBackups,
			}),
			level,
		))
	}
	if len(cores) == 0 {
		return zap.NewNop()
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zap.ErrorLevel))
}

// NewConsoleLogger logs to stderr only, for short-lived CLI commands.
func NewConsoleLogger(level string) *zap.Logger {
	return NewLogger(LoggerOptions{Level: level, Console: os.Stderr})
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg
}
