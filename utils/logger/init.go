package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

var Logger *slog.Logger

// InitLogger initializes the package-global logger with the given level
// and format ("json" or "text") and installs it as the slog default.
func InitLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	Logger.Info("Logger initialized")

	return Logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SafeErrorContext logs an error through the global logger, tolerating an
// uninitialized logger in tests.
func SafeErrorContext(ctx context.Context, msg string, args ...any) {
	if Logger == nil {
		return
	}
	Logger.ErrorContext(ctx, msg, args...)
}

// SafeWarnContext logs a warning through the global logger, tolerating an
// uninitialized logger in tests.
func SafeWarnContext(ctx context.Context, msg string, args ...any) {
	if Logger == nil {
		return
	}
	Logger.WarnContext(ctx, msg, args...)
}

// SafeInfoContext logs at info level through the global logger, tolerating
// an uninitialized logger in tests.
func SafeInfoContext(ctx context.Context, msg string, args ...any) {
	if Logger == nil {
		return
	}
	Logger.InfoContext(ctx, msg, args...)
}
