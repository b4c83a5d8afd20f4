/*
 * backend/logging/logger.go
 *
 * Process-wide logger for the comparison services.
 * - Keeps a bounded in-memory history for the API.
 * - Optionally mirrors entries to a writer (stderr for the CLI).
 */

package logging

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Interface captures the logging operations needed by collectors, batch jobs and the API.
type Interface interface {
	Debug(message string, source ...string)
	Info(message string, source ...string)
	Warn(message string, source ...string)
	Error(message string, source ...string)
}

// LogLevel represents the severity level of a log entry
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a flag value onto a LogLevel, defaulting to info.
func ParseLevel(value string) LogLevel {
	switch value {
	case "debug", "DEBUG":
		return LogLevelDebug
	case "warn", "WARN", "warning":
		return LogLevelWarn
	case "error", "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
}

// Logger keeps recent log entries in memory.
type Logger struct {
	mu       sync.RWMutex
	entries  []LogEntry
	maxSize  int
	minLevel LogLevel
	out      io.Writer
}

// NewLogger creates a new logger with specified maximum entries
func NewLogger(maxSize int) *Logger {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Logger{
		entries: make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
	}
}

// SetOutput mirrors entries at or above minLevel to w. A nil writer disables mirroring.
func (l *Logger) SetOutput(w io.Writer, minLevel LogLevel) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out = w
	l.minLevel = minLevel
}

// Log adds a log entry with the specified level, message and optional source
func (l *Logger) Log(level LogLevel, message string, source ...string) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level.String(),
		Message:   message,
	}
	if len(source) > 0 {
		entry.Source = source[0]
	}

	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxSize {
		// Re-slice into a fresh buffer so capacity can't grow unbounded
		start := len(l.entries) - l.maxSize
		newEntries := make([]LogEntry, l.maxSize)
		copy(newEntries, l.entries[start:])
		l.entries = newEntries
	}

	if l.out != nil && level >= l.minLevel {
		if entry.Source != "" {
			fmt.Fprintf(l.out, "%s %-5s [%s] %s\n", entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Source, entry.Message)
		} else {
			fmt.Fprintf(l.out, "%s %-5s %s\n", entry.Timestamp.Format(time.RFC3339), entry.Level, entry.Message)
		}
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string, source ...string) {
	l.Log(LogLevelDebug, message, source...)
}

// Info logs an info message
func (l *Logger) Info(message string, source ...string) {
	l.Log(LogLevelInfo, message, source...)
}

// Warn logs a warning message
func (l *Logger) Warn(message string, source ...string) {
	l.Log(LogLevelWarn, message, source...)
}

// Error logs an error message
func (l *Logger) Error(message string, source ...string) {
	l.Log(LogLevelError, message, source...)
}

// GetEntries returns a copy of all log entries
func (l *Logger) GetEntries() []LogEntry {
	if l == nil {
		return []LogEntry{}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	entries := make([]LogEntry, len(l.entries))
	copy(entries, l.entries)
	return entries
}

// Count returns the number of log entries
func (l *Logger) Count() int {
	if l == nil {
		return 0
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Noop discards every entry.
type Noop struct{}

func (Noop) Debug(string, ...string) {}
func (Noop) Info(string, ...string)  {}
func (Noop) Warn(string, ...string)  {}
func (Noop) Error(string, ...string) {}

// OrNoop returns logger, or a discarding logger when it is nil.
func OrNoop(logger Interface) Interface {
	if logger == nil {
		return Noop{}
	}
	return logger
}
