package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/jasonwadsworth/aws-account-name/config"
	"github.com/jasonwadsworth/aws-account-name/natsclient"
)

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     logLevel,
		AddSource: logLevel == slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler).With(
		"service", appName,
		"version", Version,
		"pid", os.Getpid(),
	)
}

// natsConn unwraps the raw connection, tolerating a nil client.
func natsConn(client *natsclient.Client) *nats.Conn {
	if client == nil {
		return nil
	}
	return client.Conn()
}

// loggerMirror returns the connection component loggers should mirror to,
// or nil when mirroring is off.
func loggerMirror(cfg *config.Config, conn *nats.Conn) *nats.Conn {
	if !cfg.Logging.Mirror {
		return nil
	}
	return conn
}
