package web

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/core"
	"github.com/JonMunkholm/vizboard/internal/logging"
	"github.com/JonMunkholm/vizboard/internal/panel"
	"github.com/JonMunkholm/vizboard/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for form boundaries
// and headers.
const multipartOverhead = 1 << 20

// maxUploadsListed caps /api/uploads.
const maxUploadsListed = 100

// handlePage renders the full page for the visitor's session.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, nil, http.StatusOK)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, alert *core.UserMessage, status int) {
	sess := sessionFrom(r.Context())
	v, err := s.service.View(sess.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	params := templates.PageParams{View: v, Alert: alert, MaxFileSize: s.cfg.Upload.MaxFileSize}
	if err := templates.Page(params).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render page", "error", err)
	}
}

// handleUpload replaces the session's dataset with the uploaded file.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	maxSize := s.cfg.Upload.MaxFileSize

	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(min(maxSize, 32<<20)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.uploadFailed(w, r, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize))
			return
		}
		s.uploadFailed(w, r, fmt.Errorf("%w: %v", errNoFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.uploadFailed(w, r, errNoFile)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.uploadFailed(w, r, fmt.Errorf("%w: %d bytes, limit is %d", errFileTooLarge, header.Size, maxSize))
		return
	}

	rec, err := s.service.LoadDataset(r.Context(), sess.ID, filepath.Base(header.Filename), file)
	if err != nil {
		s.uploadFailed(w, r, err)
		return
	}

	switch {
	case isHTMX(r):
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
	case wantsJSON(r):
		writeJSON(w, rec)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// uploadFailed reports a failed upload. Plain form posts get the page back
// with the alert, showing the dataset that is still loaded.
func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	if isHTMX(r) || wantsJSON(r) {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Warn("upload failed", "error", err)
	msg := core.MapError(err)
	s.renderPage(w, r, &msg, statusFor(err))
}

// handleUpdatePanel applies the submitted kind and columns to one panel.
// Form fields: kind (slug or label), col0..col2.
func (s *Server) handleUpdatePanel(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	index, err := panelIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	kind, err := chart.ParseKind(r.PostForm.Get("kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	sel := panel.Selection{Kind: kind}
	for i := 0; i < kind.Arity(); i++ {
		sel.Columns = append(sel.Columns, r.PostForm.Get("col"+strconv.Itoa(i)))
	}

	if err := s.service.UpdatePanel(sess.ID, index, sel); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Debug("panel updated",
		"panel", index,
		"kind", kind.Slug(),
		"columns", strings.Join(sel.Columns, ","),
	)

	if !isHTMX(r) && !wantsJSON(r) {
		http.Redirect(w, r, fmt.Sprintf("/#panel-%d", index), http.StatusSeeOther)
		return
	}

	v, err := s.service.View(sess.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if v.Dataset == nil {
		s.respondError(w, r, core.ErrNoDataset)
		return
	}
	pv := v.Panels[index]
	if wantsJSON(r) {
		writeJSON(w, pv)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.PanelCard(v.Dataset.ID, pv).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render panel", "panel", index, "error", err)
	}
}

// handleChart serves a panel's chart as PNG. Panels that cannot be drawn
// get a placeholder image carrying the reason.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	index, err := panelIndex(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	img, err := s.service.PanelImage(sess.ID, index)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", chart.ContentType)
	w.Header().Set("Cache-Control", "private, no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	if _, err := w.Write(img); err != nil {
		logging.FromContext(r.Context()).Debug("write chart", "panel", index, "error", err)
	}
}

// handleReset drops the session's dataset.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := s.service.ClearSession(sess.ID); err != nil {
		s.respondError(w, r, err)
		return
	}

	switch {
	case isHTMX(r):
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusNoContent)
	case wantsJSON(r):
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

// handleSession returns the session snapshot as JSON.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	v, err := s.service.View(sess.ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, v)
}

// handleUploads lists the session's recent uploads. Query: limit.
func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, r, fmt.Errorf("%w: limit %q", errBadRequest, v))
			return
		}
		limit = min(n, maxUploadsListed)
	}

	recs, err := s.service.SessionUploads(r.Context(), sess.ID, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"uploads": recs})
}

// handleHealth reports liveness and load.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":   "ok",
		"sessions": s.service.SessionCount(),
		"uploads":  s.service.Limiter().Status(),
	})
}

func panelIndex(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: panel index %q", errBadRequest, raw)
	}
	if i < 0 || i >= panel.Count {
		return 0, fmt.Errorf("%w: %d", panel.ErrPanelIndex, i)
	}
	return i, nil
}
