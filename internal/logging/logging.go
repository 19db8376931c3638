// Package logging builds the process logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option adjusts the logger configuration before it is built.
type Option func(*zap.Config)

// ParseLevel maps a level name onto a zap level. Unknown names mean info.
func ParseLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(levelStr)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "dpanic":
		return zapcore.DPanicLevel
	case "panic":
		return zapcore.PanicLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// WithLevel sets the minimum level.
func WithLevel(level string) Option {
	return func(c *zap.Config) {
		c.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	}
}

// WithFile sends all output to path. Terminal commands use this so the
// interface owns stdout.
func WithFile(path string) Option {
	return func(c *zap.Config) {
		if path == "" {
			return
		}
		c.OutputPaths = []string{path}
		c.ErrorOutputPaths = []string{path}
	}
}

// WithConsole switches to the human readable encoder.
func WithConsole() Option {
	return func(c *zap.Config) {
		c.Encoding = "console"
		c.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
}

// New builds a production logger with the given options applied.
func New(options ...Option) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	for _, option := range options {
		option(&config)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.Named("bard"), nil
}
