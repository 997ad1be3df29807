// Package logging provides the logging interface and default implementations
// used by the tablet metadata store.
//
// Design: five-level interface (Error, Warn, Info, Debug, Fatal). Callers may
// plug in their own logger, or adapt a *zap.Logger with NewZapLogger.
//
// Fatalf logs at FATAL level and calls the configured FatalHandler. It never
// exits the process.
//
// Log format: YYYY/MM/DD HH:MM:SS LEVEL [component] message
//
// Example: 2026/03/02 10:14:07 WARN [stats] skipping invalid rowset key
//
// Component namespace prefixes:
//   - [meta]   tablet header reads and writes
//   - [rowset] committed and pending rowsets, meta logs
//   - [delvec] delete vectors
//   - [json]   JSON import and export
//   - [stats]  statistics scans
//   - [kv]     backend open, close and write errors
package logging

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"reflect"
	"sync/atomic"
)

// ErrFatal is the sentinel error wrapped by fatal conditions.
var ErrFatal = errors.New("fatal error")

// FatalHandler is called when Fatalf is invoked.
//
// Contract: FatalHandler must be safe for concurrent use and must not call
// Fatalf.
type FatalHandler func(msg string)

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

// ParseLevel maps a level name to a Level. Unknown names map to LevelWarn.
func ParseLevel(name string) Level {
	switch name {
	case "error", "ERROR":
		return LevelError
	case "info", "INFO":
		return LevelInfo
	case "debug", "DEBUG":
		return LevelDebug
	default:
		return LevelWarn
	}
}

// Logger defines the interface for store logging.
//
// Implementations MUST be safe for concurrent use.
type Logger interface {
	// Errorf logs a formatted error message.
	Errorf(format string, args ...any)

	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)

	// Infof logs a formatted informational message.
	Infof(format string, args ...any)

	// Debugf logs a formatted debug message.
	Debugf(format string, args ...any)

	// Fatalf logs a fatal error and triggers the fatal handler.
	Fatalf(format string, args ...any)
}

// DefaultLogger writes to a log.Logger. It is safe for concurrent use.
// Level is read-only after construction.
type DefaultLogger struct {
	logger       *log.Logger
	level        Level
	fatalHandler atomic.Pointer[FatalHandler]
}

// NewDefaultLogger creates a logger writing to stderr at the given level.
func NewDefaultLogger(level Level) *DefaultLogger {
	return NewLogger(os.Stderr, level)
}

// NewLogger creates a new logger with the specified output and level.
func NewLogger(w io.Writer, level Level) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  level,
	}
}

// SetFatalHandler sets the handler called when Fatalf is invoked.
func (l *DefaultLogger) SetFatalHandler(h FatalHandler) {
	l.fatalHandler.Store(&h)
}

// Level returns the logging level.
func (l *DefaultLogger) Level() Level {
	return l.level
}

// Errorf logs a formatted error message.
func (l *DefaultLogger) Errorf(format string, args ...any) {
	if l.level >= LevelError {
		_ = l.logger.Output(2, "ERROR "+fmt.Sprintf(format, args...))
	}
}

// Warnf logs a formatted warning message.
func (l *DefaultLogger) Warnf(format string, args ...any) {
	if l.level >= LevelWarn {
		_ = l.logger.Output(2, "WARN "+fmt.Sprintf(format, args...))
	}
}

// Infof logs a formatted informational message.
func (l *DefaultLogger) Infof(format string, args ...any) {
	if l.level >= LevelInfo {
		_ = l.logger.Output(2, "INFO "+fmt.Sprintf(format, args...))
	}
}

// Debugf logs a formatted debug message.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.level >= LevelDebug {
		_ = l.logger.Output(2, "DEBUG "+fmt.Sprintf(format, args...))
	}
}

// Fatalf logs a fatal error regardless of level and calls the fatal handler.
func (l *DefaultLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	_ = l.logger.Output(2, "FATAL "+msg)

	if h := l.fatalHandler.Load(); h != nil {
		(*h)(msg)
	}
}

// Namespace prefixes for log messages.
const (
	// NSMeta is the namespace for tablet header operations.
	NSMeta = "[meta] "
	// NSRowset is the namespace for rowset, pending rowset and meta log operations.
	NSRowset = "[rowset] "
	// NSDelVec is the namespace for delete vector operations.
	NSDelVec = "[delvec] "
	// NSJSON is the namespace for JSON import and export.
	NSJSON = "[json] "
	// NSStats is the namespace for statistics scans.
	NSStats = "[stats] "
	// NSKV is the namespace for backend operations.
	NSKV = "[kv] "
)

// IsNil returns true if the logger is nil or a typed-nil.
//
//	var l *MyLogger = nil
//	opts.Logger = l  // Interface is not nil, but underlying pointer is
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrDefault returns l if it is usable, otherwise a WARN-level default logger.
func OrDefault(l Logger) Logger {
	if IsNil(l) {
		return NewDefaultLogger(LevelWarn)
	}
	return l
}

// DiscardLogger is a no-op logger.
type DiscardLogger struct{}

// Discard is the singleton discard logger.
var Discard Logger = DiscardLogger{}

// Errorf implements Logger.
func (DiscardLogger) Errorf(string, ...any) {}

// Warnf implements Logger.
func (DiscardLogger) Warnf(string, ...any) {}

// Infof implements Logger.
func (DiscardLogger) Infof(string, ...any) {}

// Debugf implements Logger.
func (DiscardLogger) Debugf(string, ...any) {}

// Fatalf implements Logger.
func (DiscardLogger) Fatalf(string, ...any) {}
