package web

// errors.go turns errors into responses. The technical error is logged with
// the request id; the client gets the mapped user message as an htmx
// fragment, JSON, or plain text depending on the request.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/core"
	"github.com/JonMunkholm/vizboard/internal/dataset"
	"github.com/JonMunkholm/vizboard/internal/logging"
	"github.com/JonMunkholm/vizboard/internal/panel"
	"github.com/JonMunkholm/vizboard/internal/web/templates"
)

var (
	errFileTooLarge = errors.New("file too large")
	errNoFile       = errors.New("no file provided")
	errRateLimited  = errors.New("rate limit exceeded")
	errBadRequest   = errors.New("invalid request")
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrTooManyUploads),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrSessionNotFound),
		errors.Is(err, panel.ErrPanelIndex):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNoDataset):
		return http.StatusConflict
	case errors.Is(err, errNoFile),
		errors.Is(err, errBadRequest),
		errors.Is(err, dataset.ErrEmptyFile),
		errors.Is(err, dataset.ErrInvalidFormat),
		errors.Is(err, dataset.ErrNoColumns),
		errors.Is(err, dataset.ErrUnknownColumn),
		errors.Is(err, panel.ErrIneligibleColumn),
		errors.Is(err, chart.ErrUnknownKind),
		errors.Is(err, chart.ErrColumnType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	log.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, msg)
	case wantsJSON(r):
		respondErrorJSON(w, msg, status)
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}); err != nil {
		slog.Warn("encode error response", "error", err)
	}
}

// renderErrorPartial swaps the alert into the page's alert area. htmx drops
// the body of non-2xx responses, so the fragment is sent with 200 and
// retargeted.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("HX-Retarget", "#alerts")
	w.Header().Set("HX-Reswap", "innerHTML")
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Warn("render error alert", "error", err)
	}
}

// writeJSON encodes v as JSON. Encoding errors are logged since the header is
// already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "error", err)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for JSON or hit the API.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}
