// Package logger initializes the process-wide zap logger. Services receive the
// logger at construction time; only initialization lives here.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON zap logger. Debug level outside production, info level in
// production.
func New(environment string, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if environment != "production" && debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
