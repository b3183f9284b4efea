package gpuring

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// loggerHooks are notified whenever SetLogger stores a new logger.
// Backends register here from their init functions.
var loggerHooks atomic.Pointer[[]func(*slog.Logger)]

func init() {
	loggerPtr.Store(newNopLogger())
	loggerHooks.Store(&[]func(*slog.Logger){})
}

// SetLogger configures the logger for gpuring and all registered backends.
// By default, gpuring produces no log output. Call SetLogger to enable logging.
//
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by gpuring:
//   - [slog.LevelDebug]: per-allocation diagnostics (offsets, wraparound, remaps)
//   - [slog.LevelInfo]: lifecycle events (region reserved, allocator closed)
//   - [slog.LevelWarn]: rejected allocations and contract violations
//
// Example:
//
//	gpuring.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	for _, hook := range *loggerHooks.Load() {
		hook(l)
	}
}

// Logger returns the current logger used by gpuring.
// Sub-packages call this to share the same logger configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// OnLoggerChange registers fn to receive every logger passed to SetLogger.
// fn is invoked immediately with the current logger.
func OnLoggerChange(fn func(*slog.Logger)) {
	for {
		old := loggerHooks.Load()
		hooks := make([]func(*slog.Logger), len(*old), len(*old)+1)
		copy(hooks, *old)
		hooks = append(hooks, fn)
		if loggerHooks.CompareAndSwap(old, &hooks) {
			break
		}
	}
	fn(Logger())
}
