package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// secretKeys — ключи атрибутов, значения которых не попадают в лог.
var secretKeys = map[string]bool{
	"access_token": true,
	"auth":         true,
	"event_token":  true,
	"token":        true,
}

const redacted = "[redacted]"

// LogLevel читает уровень из LOG_LEVEL (debug, info, warn, error; регистр не важен).
// По умолчанию INFO.
func LogLevel() slog.Level {
	switch strings.ToUpper(strings.TrimSpace(os.Getenv("LOG_LEVEL"))) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger создаёт логгер сервиса в stdout и делает его глобальным.
//
// LOG_FORMAT=text включает человекочитаемый формат, иначе JSON.
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stdout, LogLevel(), os.Getenv("LOG_FORMAT"))
	slog.SetDefault(logger)
	return logger
}

// NewLogger создаёт логгер в w. Токены авторизации заменяются на [redacted].
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: redact,
	}

	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if secretKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, redacted)
	}
	return a
}

type loggerKey struct{}

// WithLogger добавляет логгер в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext извлекает логгер из контекста, иначе возвращает глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithInvocationID возвращает логгер с invocation_id.
func WithInvocationID(logger *slog.Logger, invocationID string) *slog.Logger {
	return logger.With("invocation_id", invocationID)
}

// WithTaskID возвращает логгер с task_id.
func WithTaskID(logger *slog.Logger, taskID int) *slog.Logger {
	return logger.With("task_id", taskID)
}

// WithRobot возвращает логгер с кодом робота и доменом портала.
func WithRobot(logger *slog.Logger, robot, domain string) *slog.Logger {
	return logger.With("robot", robot, "domain", domain)
}
