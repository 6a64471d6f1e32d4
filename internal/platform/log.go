package platform

import (
	"os"

	charmlog "github.com/charmbracelet/log"
)

// traceLevel registers a fifth level below Debug so the Logger interface
// below can expose all five levels spec.md §6 names (trace, debug, info,
// warn, error); charmbracelet/log ships four.
const traceLevel = charmlog.Level(-8)

// Logger is the host→node logging capability of spec.md §6. The process
// loop only ever calls Trace/Debug on it; Warn/Error are reserved for
// control-thread entry points (buffer registration, pipeline assembly) so
// that no allocation-heavy formatting happens on the real-time thread
// (spec.md §9 "Real-time discipline").
type Logger interface {
	Trace(msg string, keyvals ...interface{})
	Debug(msg string, keyvals ...interface{})
	Info(msg string, keyvals ...interface{})
	Warn(msg string, keyvals ...interface{})
	Error(msg string, keyvals ...interface{})
}

// charmLogger adapts *charmlog.Logger to Logger.
type charmLogger struct {
	l *charmlog.Logger
}

// NewLogger builds the default Logger, writing to stderr with the
// teacher's preferred charm styling (timestamps, levels, prefix).
func NewLogger(prefix string) Logger {
	l := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Prefix:          prefix,
	})
	return &charmLogger{l: l}
}

func (c *charmLogger) Trace(msg string, keyvals ...interface{}) {
	c.l.Log(traceLevel, msg, keyvals...)
}

func (c *charmLogger) Debug(msg string, keyvals ...interface{}) { c.l.Debug(msg, keyvals...) }
func (c *charmLogger) Info(msg string, keyvals ...interface{})  { c.l.Info(msg, keyvals...) }
func (c *charmLogger) Warn(msg string, keyvals ...interface{})  { c.l.Warn(msg, keyvals...) }
func (c *charmLogger) Error(msg string, keyvals ...interface{}) { c.l.Error(msg, keyvals...) }

// NopLogger discards everything; it is the default when a host does not
// supply a Logger capability, matching spec.md §6's "no ordering
// guarantees across log lines" — there simply are none.
type NopLogger struct{}

func (NopLogger) Trace(string, ...interface{}) {}
func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
