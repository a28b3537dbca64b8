package logger

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

var (
	log    *slog.Logger
	initMu sync.Mutex
)

// Init configures the global logger.
// env: "development" gives a readable text handler, anything else gives JSON.
func Init(env string) {
	initMu.Lock()
	defer initMu.Unlock()

	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     slog.LevelInfo,
		AddSource: true,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	log = slog.New(handler)
	slog.SetDefault(log)
}

// SetLogger replaces the global logger, e.g. to capture output in tests.
func SetLogger(l *slog.Logger) {
	initMu.Lock()
	defer initMu.Unlock()
	log = l
}

// GetLogger returns the global logger, initialising a development one if Init was never called.
func GetLogger() *slog.Logger {
	if log == nil {
		Init("development")
	}
	return log
}

// ============================================
// Convenience helpers
// ============================================

func Debug(msg string, args ...any) {
	GetLogger().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	GetLogger().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	GetLogger().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	GetLogger().Error(msg, args...)
}

// Fatal logs at error level and exits the process.
func Fatal(msg string, args ...any) {
	GetLogger().Error(msg, args...)
	os.Exit(1)
}

// With returns a child logger carrying the given fields.
func With(args ...any) *slog.Logger {
	return GetLogger().With(args...)
}

// WithError returns a child logger carrying an "error" field.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}

// ============================================
// Specialised loggers
// ============================================

// HTTPLog logs an inbound HTTP request with the request fields carried by ctx.
// 5xx go out at error level, 4xx at warn.
func HTTPLog(ctx context.Context, method, path string, status int, duration time.Duration, size int, args ...any) {
	fields := append([]any{
		"method", method,
		"path", path,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"size_bytes", size,
	}, args...)

	log := FromContext(ctx)
	switch {
	case status >= 500:
		log.Error("HTTP Server Error", fields...)
	case status >= 400:
		log.Warn("HTTP Client Error", fields...)
	default:
		log.Info("HTTP Request", fields...)
	}
}

// GatewayLog logs an outbound call to the payment gateway.
// Successful calls are logged at debug level so polling does not flood production logs.
func GatewayLog(operation, target string, status int, duration time.Duration, err error) {
	fields := []any{
		"operation", operation,
		"target", target,
		"status", status,
		"duration_ms", duration.Milliseconds(),
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Warn("gateway call failed", fields...)
	} else {
		GetLogger().Debug("gateway call", fields...)
	}
}

// DBLog logs a database operation. rows < 0 means unknown.
func DBLog(ctx context.Context, operation, query string, duration time.Duration, rows int64, err error) {
	fields := []any{
		"operation", operation,
		"query", query,
		"duration_ms", duration.Milliseconds(),
	}
	if rows >= 0 {
		fields = append(fields, "rows", rows)
	}

	log := FromContext(ctx)
	if err != nil {
		fields = append(fields, "error", err.Error())
		log.Error("database operation failed", fields...)
	} else {
		log.Debug("database operation", fields...)
	}
}

// WorkerLog logs a background worker operation.
func WorkerLog(worker, operation string, err error) {
	fields := []any{
		"worker", worker,
		"operation", operation,
	}

	if err != nil {
		fields = append(fields, "error", err.Error())
		GetLogger().Error("worker operation failed", fields...)
	} else {
		GetLogger().Info("worker operation completed", fields...)
	}
}
