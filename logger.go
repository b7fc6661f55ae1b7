package inkstore

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so call sites
// never pay for attribute formatting while logging is off.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// The active logger. Held behind an atomic pointer because render workers
// log from their own goroutines while the application may swap loggers.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger installs the logger used by inkstore and its sub-packages.
// Logging is off until a logger is installed; passing nil turns it off
// again. Safe to call at any time, from any goroutine.
//
// inkstore logs at two levels: debug for bookkeeping (history truncation,
// cache eviction, discarded render results) and warn for recoverable
// trouble (failed image decodes, refused snapshots).
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the installed logger. The render and spatial sub-packages
// read it through here rather than carrying their own configuration.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
