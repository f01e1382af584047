package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/amissa/backend/internal/model"
)

// Setup configures the global slog default with a JSON handler.
// Log level is controlled by the LOG_LEVEL environment variable
// (DEBUG, INFO, WARN, ERROR). Defaults to INFO.
// ERROR-level logs automatically include a stack trace.
func Setup() {
	level := parseLevel(os.Getenv("LOG_LEVEL"))
	json := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
	slog.SetDefault(slog.New(&stackHandler{Handler: json}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
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

// Actor returns the log attribute describing who triggered an operation.
// A nil actor is logged as anonymous.
func Actor(a *model.Actor) slog.Attr {
	if a == nil {
		return slog.Group("actor", slog.String("id", "anonymous"))
	}
	attrs := []any{slog.String("id", a.ID), slog.String("role", string(a.Role))}
	if a.DioceseID != "" {
		attrs = append(attrs, slog.String("diocese_id", a.DioceseID))
	}
	if a.ParishID != "" {
		attrs = append(attrs, slog.String("parish_id", a.ParishID))
	}
	return slog.Group("actor", attrs...)
}

// Fatal logs at Error level and exits with code 1.
func Fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

// stackHandler wraps a slog.Handler and appends a stack trace for ERROR+.
type stackHandler struct {
	slog.Handler
}

func (h *stackHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		buf := make([]byte, 4096)
		n := runtime.Stack(buf, false)
		r.AddAttrs(slog.String("stacktrace", string(buf[:n])))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *stackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stackHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *stackHandler) WithGroup(name string) slog.Handler {
	return &stackHandler{Handler: h.Handler.WithGroup(name)}
}
