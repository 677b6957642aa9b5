package logger

import (
	"io"
	"log/slog"
	"strings"

	"github.com/go-chi/httplog/v3"
)

const (
	appName    = "payroll-ledger"
	appVersion = "v1.0.0"
)

// New returns a JSON logger using the ECS field schema shared with the request logger.
func New(w io.Writer, env, level string) *slog.Logger {
	logFormat := httplog.SchemaECS.Concise(env != "production")
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", appName),
		slog.String("version", appVersion),
		slog.String("env", env),
	)
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
