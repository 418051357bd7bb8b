package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LogLevel defines the severity of the log entry.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String makes LogLevel satisfy the fmt.Stringer interface.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo // Default to INFO for unknown
	}
}

// ParseLevel converts a configuration string into a LogLevel.
// Matching is case-insensitive; "warning" is accepted as an alias of "warn".
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Output formats understood by Init.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures the package logger.
type Options struct {
	Level  LogLevel
	Format string // FormatText (default) or FormatJSON
	Output io.Writer
}

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Init initializes the package logger. It can be called again to reconfigure
// logging, e.g. after the configuration file has been read.
func Init(opts Options) error {
	output := opts.Output
	if output == nil {
		output = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: opts.Level.SlogLevel()}

	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", FormatText:
		handler = slog.NewTextHandler(output, handlerOpts)
	case FormatJSON:
		handler = slog.NewJSONHandler(output, handlerOpts)
	default:
		return fmt.Errorf("unknown log format %q", opts.Format)
	}

	logger := slog.New(handler)
	mu.Lock()
	defaultLogger = logger
	mu.Unlock()
	slog.SetDefault(logger)
	return nil
}

// InitForCLI initializes text logging at the given level.
func InitForCLI(filterLevel LogLevel, output io.Writer) {
	// text format never fails
	_ = Init(Options{Level: filterLevel, Format: FormatText, Output: output})
}

// Enabled reports whether messages at level would be written.
func Enabled(level LogLevel) bool {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()
	return logger != nil && logger.Enabled(context.Background(), level.SlogLevel())
}

func logInternal(level LogLevel, subsystem string, err error, messageFmt string, args ...interface{}) {
	mu.RLock()
	logger := defaultLogger
	mu.RUnlock()

	if logger == nil {
		// Not initialized yet: only errors are worth surfacing.
		if level >= LevelError {
			fmt.Fprintf(os.Stderr, "[%s] %s: %s\n", level, subsystem, fmt.Sprintf(messageFmt, args...))
		}
		return
	}
	if !logger.Enabled(context.Background(), level.SlogLevel()) {
		return
	}

	msg := messageFmt
	if len(args) > 0 {
		msg = fmt.Sprintf(messageFmt, args...)
	}

	attrs := []slog.Attr{slog.String("subsystem", subsystem)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(context.Background(), level.SlogLevel(), msg, attrs...)
}

// Debug logs a debug message.
func Debug(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelDebug, subsystem, nil, messageFmt, args...)
}

// Info logs an informational message.
func Info(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelInfo, subsystem, nil, messageFmt, args...)
}

// Warn logs a warning message.
func Warn(subsystem string, messageFmt string, args ...interface{}) {
	logInternal(LevelWarn, subsystem, nil, messageFmt, args...)
}

// Error logs an error message.
func Error(subsystem string, err error, messageFmt string, args ...interface{}) {
	logInternal(LevelError, subsystem, err, messageFmt, args...)
}

// Log logs a message at an explicit level.
func Log(level LogLevel, subsystem string, messageFmt string, args ...interface{}) {
	logInternal(level, subsystem, nil, messageFmt, args...)
}

// selfUpdateLogger adapts the package logger to the Print/Printf logger
// interface used by third-party libraries such as go-selfupdate.
type selfUpdateLogger struct {
	subsystem string
}

// SelfUpdateLogger returns a Print/Printf logger that writes debug messages
// under the given subsystem.
func SelfUpdateLogger(subsystem string) interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
} {
	return selfUpdateLogger{subsystem: subsystem}
}

func (l selfUpdateLogger) Print(v ...interface{}) {
	logInternal(LevelDebug, l.subsystem, nil, "%s", strings.TrimSpace(fmt.Sprint(v...)))
}

func (l selfUpdateLogger) Printf(format string, v ...interface{}) {
	logInternal(LevelDebug, l.subsystem, nil, "%s", strings.TrimSpace(fmt.Sprintf(format, v...)))
}
