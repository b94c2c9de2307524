package kernel

import (
	"log/slog"
	"os"
)

// Logger defines the structured logging contract used throughout the
// kernel: every Timeline and ParallelTimeline accepts one of these
// rather than depending on a concrete logging library. This keeps the kernel compatible with slog, zap,
// logrus or anything else that can be adapted to this four-method shape.
//
//	logger.Info("barrier complete", "rank", rank, "sync_time", syncTime)
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// NewDefaultLogger returns the kernel's zero-configuration logger: a
// log/slog.Logger writing to stderr, which already satisfies Logger
// without an adapter since its method set matches exactly.
func NewDefaultLogger() Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// NopLogger discards everything. Useful for benchmarks and for workers
// that run with ShowProgress off and no diagnostic needs.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}
