// Package log provides the logging interface used throughout the DCV
// library. Components accept a Logger rather than reaching for a global, so
// that the embedding service can route audit lines to whatever sink it
// likes.
package log

import (
	"fmt"
	"log/syslog"
	"os"
)

// Logger is implemented by anything that can receive the library's log
// lines. AuditInfof and AuditObject are for lines an auditor reproducing a
// validation decision would want to see (e.g. the evidence a handler
// accepted); the rest are operational logging.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Errf(format string, args ...interface{})
	AuditInfof(format string, args ...interface{})
	AuditObject(label string, obj interface{})
}

// impl is the syslog-backed Logger used outside of tests.
type impl struct {
	w    *syslog.Writer
	name string
}

// New connects to the local syslog daemon and returns a Logger tagged with
// name. If syslog is unreachable the returned Logger falls back to stderr so
// that a misconfigured syslog daemon never silences validation errors.
func New(name string) (Logger, error) {
	w, err := syslog.New(syslog.LOG_INFO, name)
	if err != nil {
		return &stderrLogger{name: name}, nil
	}
	return &impl{w: w, name: name}, nil
}

func (l *impl) Debugf(format string, args ...interface{}) {
	_ = l.w.Debug(fmt.Sprintf(format, args...))
}

func (l *impl) Infof(format string, args ...interface{}) {
	_ = l.w.Info(fmt.Sprintf(format, args...))
}

func (l *impl) Warningf(format string, args ...interface{}) {
	_ = l.w.Warning(fmt.Sprintf(format, args...))
}

func (l *impl) Errf(format string, args ...interface{}) {
	_ = l.w.Err(fmt.Sprintf(format, args...))
}

func (l *impl) AuditInfof(format string, args ...interface{}) {
	_ = l.w.Notice("[AUDIT] " + fmt.Sprintf(format, args...))
}

func (l *impl) AuditObject(label string, obj interface{}) {
	_ = l.w.Notice(fmt.Sprintf("[AUDIT] %s: %+v", label, obj))
}

// stderrLogger is the syslog-unavailable fallback.
type stderrLogger struct{ name string }

func (l *stderrLogger) Debugf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] DEBUG: "+format+"\n", prepend(l.name, args)...)
}
func (l *stderrLogger) Infof(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] INFO: "+format+"\n", prepend(l.name, args)...)
}
func (l *stderrLogger) Warningf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] WARNING: "+format+"\n", prepend(l.name, args)...)
}
func (l *stderrLogger) Errf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] ERR: "+format+"\n", prepend(l.name, args)...)
}
func (l *stderrLogger) AuditInfof(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] AUDIT: "+format+"\n", prepend(l.name, args)...)
}
func (l *stderrLogger) AuditObject(label string, obj interface{}) {
	fmt.Fprintf(os.Stderr, "[%s] AUDIT %s: %+v\n", l.name, label, obj)
}

func prepend(name string, args []interface{}) []interface{} {
	return append([]interface{}{name}, args...)
}

// Mock is a Logger that records every line it receives, for use in tests
// that want to assert on log output.
type Mock struct {
	lines []string
}

// NewMock returns a Logger that records lines instead of emitting them.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) record(level, format string, args ...interface{}) {
	m.lines = append(m.lines, fmt.Sprintf("%s: %s", level, fmt.Sprintf(format, args...)))
}

func (m *Mock) Debugf(format string, args ...interface{})   { m.record("DEBUG", format, args...) }
func (m *Mock) Infof(format string, args ...interface{})    { m.record("INFO", format, args...) }
func (m *Mock) Warningf(format string, args ...interface{}) { m.record("WARNING", format, args...) }
func (m *Mock) Errf(format string, args ...interface{})     { m.record("ERR", format, args...) }
func (m *Mock) AuditInfof(format string, args ...interface{}) {
	m.record("AUDIT-INFO", format, args...)
}
func (m *Mock) AuditObject(label string, obj interface{}) {
	m.lines = append(m.lines, fmt.Sprintf("AUDIT-OBJECT: %s: %+v", label, obj))
}

// GetAll returns every recorded line, in order.
func (m *Mock) GetAll() []string {
	out := make([]string, len(m.lines))
	copy(out, m.lines)
	return out
}
