// Package logging is a small leveled logger on top of the standard log
// package. Messages below the configured level are dropped; the rest are
// written with a "[LEVEL]" prefix.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level orders message severity.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < Debug || l > Error {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel accepts debug, info, warn/warning and error, in any case.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug, nil
	case "", "info":
		return Info, nil
	case "warn", "warning":
		return Warn, nil
	case "error":
		return Error, nil
	}
	return Info, fmt.Errorf("unknown log level %q", s)
}

// Logger writes leveled messages. The zero value is not usable; a nil
// *Logger discards everything.
type Logger struct {
	level Level
	out   *log.Logger
}

// New returns a Logger writing to w at the given threshold.
func New(w io.Writer, level Level) *Logger {
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// Default writes INFO and above to stderr.
func Default() *Logger {
	return New(os.Stderr, Info)
}

// Discard returns a Logger that drops every message.
func Discard() *Logger {
	return New(io.Discard, Error+1)
}

// Enabled reports whether messages at l are written.
func (lg *Logger) Enabled(l Level) bool {
	return lg != nil && l >= lg.level
}

func (lg *Logger) logf(l Level, format string, args ...any) {
	if !lg.Enabled(l) {
		return
	}
	_ = lg.out.Output(3, "["+l.String()+"] "+fmt.Sprintf(format, args...))
}

func (lg *Logger) Debugf(format string, args ...any) { lg.logf(Debug, format, args...) }
func (lg *Logger) Infof(format string, args ...any)  { lg.logf(Info, format, args...) }
func (lg *Logger) Warnf(format string, args ...any)  { lg.logf(Warn, format, args...) }
func (lg *Logger) Errorf(format string, args ...any) { lg.logf(Error, format, args...) }
