// Package logging provides the logging interface and default
// implementations for the mockdir harness.
//
// Design: four-level formatted interface so users can wrap their own
// structured loggers (slog, zap) if needed. The default implementation
// writes lines of the form:
//
//	YYYY/MM/DD HH:MM:SS LEVEL [component] message
//
// Component prefixes in this repo:
//   - [mockdir]  — wrapper fault decisions and leak diagnostics
//   - [factory]  — policy construction and backend selection
//   - [harness]  — stress harness progress and artifact collection
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level represents the logging level.
type Level int

const (
	// LevelError logs only errors.
	LevelError Level = iota
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs info, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything including debug messages.
	LevelDebug
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface consumed throughout the repo.
//
// Concurrency: DefaultLogger and Discard are safe for concurrent use.
// User-provided implementations must be as well, since wrappers log from
// whatever goroutines the test harness runs.
type Logger interface {
	// Errorf logs a formatted error message.
	Errorf(format string, args ...any)

	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)

	// Infof logs a formatted informational message.
	Infof(format string, args ...any)

	// Debugf logs a formatted debug message.
	Debugf(format string, args ...any)
}

// DefaultLogger writes leveled, component-prefixed lines to an io.Writer.
type DefaultLogger struct {
	level     Level
	component string
	l         *log.Logger
}

// NewLogger creates a logger writing to w at the given level.
func NewLogger(w io.Writer, level Level, component string) *DefaultLogger {
	return &DefaultLogger{
		level:     level,
		component: component,
		l:         log.New(w, "", log.LstdFlags),
	}
}

// NewStderrLogger creates a logger writing to stderr at LevelInfo.
func NewStderrLogger(component string) *DefaultLogger {
	return NewLogger(os.Stderr, LevelInfo, component)
}

func (dl *DefaultLogger) output(level Level, format string, args ...any) {
	if level > dl.level {
		return
	}
	dl.l.Printf("%s [%s] %s", level, dl.component, fmt.Sprintf(format, args...))
}

// Errorf implements Logger.
func (dl *DefaultLogger) Errorf(format string, args ...any) {
	dl.output(LevelError, format, args...)
}

// Warnf implements Logger.
func (dl *DefaultLogger) Warnf(format string, args ...any) {
	dl.output(LevelWarn, format, args...)
}

// Infof implements Logger.
func (dl *DefaultLogger) Infof(format string, args ...any) {
	dl.output(LevelInfo, format, args...)
}

// Debugf implements Logger.
func (dl *DefaultLogger) Debugf(format string, args ...any) {
	dl.output(LevelDebug, format, args...)
}
