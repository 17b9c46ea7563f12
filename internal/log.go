package internal

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel orders logging verbosity from quiet to chatty.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "ERROR"
	case LogLevelWarn:
		return "WARN"
	case LogLevelInfo:
		return "INFO"
	case LogLevelDebug:
		return "DEBUG"
	}
	return "INFO"
}

// ParseLogLevel maps a level name to its LogLevel. Unknown names fall back
// to info.
func ParseLogLevel(name string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "ERROR":
		return LogLevelError
	case "WARN", "WARNING":
		return LogLevelWarn
	case "DEBUG", "TRACE":
		return LogLevelDebug
	default:
		return LogLevelInfo
	}
}

// Logger is a small leveled logger over the standard log package.
type Logger struct {
	level LogLevel
	out   *log.Logger
}

// NewLogger creates a logger writing to w at the given level.
func NewLogger(level LogLevel, w io.Writer) *Logger {
	return &Logger{level: level, out: log.New(w, "", log.LstdFlags)}
}

// NewDefaultLogger reads LOG_LEVEL from the environment and logs to stderr.
func NewDefaultLogger() *Logger {
	return NewLogger(ParseLogLevel(os.Getenv("LOG_LEVEL")), os.Stderr)
}

func (l *Logger) logf(level LogLevel, format string, args ...any) {
	if level > l.level {
		return
	}
	l.out.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
}

func (l *Logger) Error(format string, args ...any) { l.logf(LogLevelError, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.logf(LogLevelWarn, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.logf(LogLevelInfo, format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.logf(LogLevelDebug, format, args...) }

// DefaultLogger is the process-wide logger.
var DefaultLogger = NewDefaultLogger()
