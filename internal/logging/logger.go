// Package logging configures log/slog and carries per-request fields.
//
// Request IDs come from chi's RequestID middleware; other fields (the
// visitor's session id, for one) are attached with ContextWithAttrs and
// picked up by FromContext.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey struct{}

// Setup configures the global slog logger.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, level, format)))
}

// NewHandler builds the handler Setup installs, writing to w.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// ContextWithAttrs returns a context whose FromContext logger includes args
// in addition to any attributes already attached.
func ContextWithAttrs(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]any)
	attrs := make([]any, 0, len(prev)+len(args))
	attrs = append(attrs, prev...)
	attrs = append(attrs, args...)
	return context.WithValue(ctx, ctxKey{}, attrs)
}

// FromContext returns the default logger enriched with the request id and
// any attributes attached with ContextWithAttrs.
//
//	func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("upload received", "file", name)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if attrs, ok := ctx.Value(ctxKey{}).([]any); ok && len(attrs) > 0 {
		logger = logger.With(attrs...)
	}
	return logger
}

// WithFields returns a request logger with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
