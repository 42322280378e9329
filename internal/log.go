package internal

import (
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel represents different logging verbosity levels
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// Logger provides leveled logging with an optional [Component] tag
type Logger struct {
	level     LogLevel
	component string
	out       *log.Logger
}

// NewLogger creates a new logger with the specified level writing to stderr
func NewLogger(level LogLevel) *Logger {
	return &Logger{level: level, out: log.New(os.Stderr, "", log.LstdFlags)}
}

// NewLoggerTo creates a logger writing to w, used by tests to capture output
func NewLoggerTo(w io.Writer, level LogLevel) *Logger {
	return &Logger{level: level, out: log.New(w, "", 0)}
}

// NewDefaultLogger creates a logger based on LOG_LEVEL environment variable
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")))
}

// ParseLogLevel maps ERROR/WARN/INFO/DEBUG/TRACE to a level. Anything else is INFO.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG":
		return LogLevelDebug
	case "TRACE":
		return LogLevelTrace
	default:
		return LogLevelInfo
	}
}

// With returns a logger sharing level and output that tags lines with component
func (l *Logger) With(component string) *Logger {
	if l == nil {
		l = NewDefaultLogger()
	}
	return &Logger{level: l.level, component: component, out: l.out}
}

func (l *Logger) printf(tag string, format string, args ...interface{}) {
	prefix := "[" + tag + "] "
	if l.component != "" {
		prefix += "[" + l.component + "] "
	}
	l.out.Printf(prefix+format, args...)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LogLevelError {
		l.printf("ERROR", format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LogLevelWarn {
		l.printf("WARN", format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LogLevelInfo {
		l.printf("INFO", format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.printf("DEBUG", format, args...)
	}
}

// Trace logs trace messages
func (l *Logger) Trace(format string, args ...interface{}) {
	if l.level >= LogLevelTrace {
		l.printf("TRACE", format, args...)
	}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	return l.level
}
