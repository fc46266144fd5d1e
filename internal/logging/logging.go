// Package logging builds the structured leveled logger used by every
// component: a level, a message, and an arbitrary key-value context —
// exactly zap.SugaredLogger's Infow/Warnw/Errorw shape.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile logger: JSON encoding, ISO8601 times,
// level gated by the verbose flag (debug when true, info otherwise).
func New(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	logger, err := cfg.Build()
	if err != nil {
		// Fall back to a bare no-op core rather than panic; logging must
		// never be the reason the service fails to start.
		logger = zap.NewNop()
	}

	return logger.Sugar()
}

// Noop returns a logger that discards everything, for tests.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
