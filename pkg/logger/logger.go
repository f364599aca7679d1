package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/manzanit0/smartcity/pkg/middleware"
)

// InitGlobalSlog installs a JSON logger tagged with service as the default
// slog logger. LOG_LEVEL accepts debug, info, warn and error.
func InitGlobalSlog(service string) {
	handler := NewContextJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(os.Getenv("LOG_LEVEL"))})
	logger := slog.New(handler)
	logger = logger.With("service", service)
	slog.SetDefault(logger)
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// ContextJSONHandler adds the request trace id found in the context to every
// record.
type ContextJSONHandler struct {
	jsonHandler slog.Handler
}

func NewContextJSONHandler(w io.Writer, opts *slog.HandlerOptions) *ContextJSONHandler {
	return &ContextJSONHandler{slog.NewJSONHandler(w, opts)}
}

func (h *ContextJSONHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.jsonHandler.Enabled(ctx, level)
}

func (h *ContextJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextJSONHandler{jsonHandler: h.jsonHandler.WithAttrs(attrs)}
}

func (h *ContextJSONHandler) WithGroup(name string) slog.Handler {
	return &ContextJSONHandler{jsonHandler: h.jsonHandler.WithGroup(name)}
}

func (h *ContextJSONHandler) Handle(ctx context.Context, r slog.Record) error {
	if traceID := middleware.GetTraceID(ctx); traceID != "" {
		r.AddAttrs(slog.String(string(middleware.CtxKeyTraceID), traceID))
	}

	return h.jsonHandler.Handle(ctx, r)
}
