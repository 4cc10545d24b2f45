package component

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// LogLevel represents the severity level of a log entry
type LogLevel string

const (
	// LogLevelDebug represents debug-level logs
	LogLevelDebug LogLevel = "DEBUG"
	// LogLevelInfo represents informational logs
	LogLevelInfo LogLevel = "INFO"
	// LogLevelWarn represents warning logs
	LogLevelWarn LogLevel = "WARN"
	// LogLevelError represents error logs
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is a structured log entry published to NATS for live observation
// of a running resolver.
type LogEntry struct {
	Timestamp string   `json:"timestamp"` // RFC3339 format
	Level     LogLevel `json:"level"`
	Component string   `json:"component"`
	Message   string   `json:"message"`
	Error     string   `json:"error,omitempty"`
}

// logSubject is where component log entries are mirrored when a NATS
// connection is supplied.
const logSubject = "aws-account-name.logs"

// Logger provides structured logging for components. It wraps a slog.Logger
// for local logging and, when given a NATS connection, mirrors entries to a
// subject for remote consumption. A nil *Logger is safe to call.
type Logger struct {
	componentName string
	nc            *nats.Conn
	logger        *slog.Logger
	enabled       bool
}

// NewLogger creates a component logger. nc may be nil to disable mirroring;
// logger nil falls back to slog.Default.
func NewLogger(componentName string, nc *nats.Conn, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{
		componentName: componentName,
		nc:            nc,
		logger:        logger.With("component", componentName),
		enabled:       nc != nil,
	}
}

// Slog exposes the wrapped slog.Logger for packages that take one directly.
func (cl *Logger) Slog() *slog.Logger {
	if cl == nil {
		return slog.Default()
	}
	return cl.logger
}

// Debug logs a debug-level message
func (cl *Logger) Debug(msg string, args ...any) {
	if cl == nil {
		return
	}
	cl.logger.Debug(msg, args...)
	cl.publish(LogLevelDebug, msg, nil)
}

// Info logs an info-level message
func (cl *Logger) Info(msg string, args ...any) {
	if cl == nil {
		return
	}
	cl.logger.Info(msg, args...)
	cl.publish(LogLevelInfo, msg, nil)
}

// Warn logs a warning-level message
func (cl *Logger) Warn(msg string, args ...any) {
	if cl == nil {
		return
	}
	cl.logger.Warn(msg, args...)
	cl.publish(LogLevelWarn, msg, nil)
}

// Error logs an error-level message with optional error details
func (cl *Logger) Error(msg string, err error, args ...any) {
	if cl == nil {
		return
	}
	if err != nil {
		args = append(args, "error", err)
	}
	cl.logger.Error(msg, args...)
	cl.publish(LogLevelError, msg, err)
}

// publish mirrors the entry to NATS. Best effort: a publish failure logs
// locally and moves on, logging must never take a component down.
func (cl *Logger) publish(level LogLevel, msg string, err error) {
	if !cl.enabled {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().Format(time.RFC3339),
		Level:     level,
		Component: cl.componentName,
		Message:   msg,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		cl.logger.DebugContext(context.Background(), "log entry marshal failed", "error", marshalErr)
		return
	}
	if pubErr := cl.nc.Publish(logSubject, data); pubErr != nil {
		cl.logger.DebugContext(context.Background(), "log entry publish failed", "error", pubErr)
	}
}
