package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/vizboard/internal/chart"
	"github.com/JonMunkholm/vizboard/internal/dataset"
	"github.com/JonMunkholm/vizboard/internal/panel"
)

// UploadTimeout bounds a single upload, including the wait for a slot.
var UploadTimeout = 2 * time.Minute

// Config holds the settings the service needs. It is filled from the
// application config in main.
type Config struct {
	MaxConcurrentUploads int
	MaxUploadWait        time.Duration
	MaxRows              int
	PreviewRows          int
	ChartWidth           int
	ChartHeight          int
}

// Service owns every session and the operations performed on them.
type Service struct {
	cfg      Config
	renderer panel.Renderer
	recorder UploadRecorder
	limiter  *UploadLimiter
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates a Service. A nil recorder keeps history in memory.
func NewService(cfg Config, renderer panel.Renderer, recorder UploadRecorder) *Service {
	if recorder == nil {
		recorder = NewMemoryRecorder(DefaultHistorySize)
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = 50
	}
	return &Service{
		cfg:      cfg,
		renderer: renderer,
		recorder: recorder,
		limiter:  NewUploadLimiter(cfg.MaxConcurrentUploads, cfg.MaxUploadWait),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Limiter exposes the upload limiter for status reporting and shutdown.
func (s *Service) Limiter() *UploadLimiter {
	return s.limiter
}

// EnsureSession returns the session for id, creating a new one with a fresh
// id when id is empty or unknown.
func (s *Service) EnsureSession(id string) *Session {
	now := s.now()
	if id != "" {
		s.mu.RLock()
		sess, ok := s.sessions[id]
		s.mu.RUnlock()
		if ok {
			sess.touch(now)
			return sess
		}
	}

	sess := newSession(uuid.New().String(), now)
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Session returns an existing session.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSessionNotFound, id)
	}
	sess.touch(s.now())
	return sess, nil
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// LoadDataset parses an upload and, on success, replaces the session's
// dataset and resets all panels. On failure the session is unchanged.
// Every attempt is recorded in the upload history.
func (s *Service) LoadDataset(ctx context.Context, sessionID, fileName string, r io.Reader) (UploadRecord, error) {
	start := s.now()
	rec := UploadRecord{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		FileName:  fileName,
		Format:    string(dataset.FormatFromName(fileName)),
		CreatedAt: start,
	}

	sess, err := s.Session(sessionID)
	if err != nil {
		return rec, err
	}

	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		rec.Status = UploadRejected
		s.finish(ctx, &rec, start, err)
		return rec, err
	}
	defer s.limiter.Release()

	ds, err := dataset.Load(fileName, r, dataset.LoadOptions{MaxRows: s.cfg.MaxRows})
	if err != nil {
		rec.Status = UploadFailed
		s.finish(ctx, &rec, start, err)
		return rec, err
	}

	sets := dataset.Classify(ds)
	sess.install(ds, sets)

	rec.Status = UploadSucceeded
	rec.Rows = ds.NumRows()
	rec.Columns = ds.NumCols()
	rec.Categorical = sets.Count(dataset.Categorical)
	rec.Numerical = sets.Count(dataset.Numerical)
	s.finish(ctx, &rec, start, nil)

	slog.Info("dataset loaded",
		"session_id", sessionID,
		"file", fileName,
		"rows", rec.Rows,
		"columns", rec.Columns,
		"categorical", rec.Categorical,
		"numerical", rec.Numerical,
		"duration_ms", rec.DurationMs,
	)
	return rec, nil
}

// finish completes and stores an upload record. History failures are
// logged and never fail the upload itself.
func (s *Service) finish(ctx context.Context, rec *UploadRecord, start time.Time, err error) {
	rec.DurationMs = s.now().Sub(start).Milliseconds()
	if err != nil {
		rec.ErrorCode = MapError(err).Code
		rec.Error = err.Error()
	}
	// The request context may already be done; history still gets written.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if rerr := s.recorder.Record(recordCtx, *rec); rerr != nil {
		slog.Warn("record upload history", "upload_id", rec.ID, "error", rerr)
	}
}

// RecentUploads returns the newest upload records.
func (s *Service) RecentUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	return s.recorder.Recent(ctx, limit)
}

// SessionUploads returns the newest upload records of one session.
func (s *Service) SessionUploads(ctx context.Context, sessionID string, limit int) ([]UploadRecord, error) {
	return s.recorder.RecentForSession(ctx, sessionID, limit)
}

// UpdatePanel applies a selection to one panel of the session's board.
func (s *Service) UpdatePanel(sessionID string, index int, sel panel.Selection) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	return sess.withBoard(func(_ *dataset.Dataset, b *panel.Board) error {
		return b.Update(index, sel)
	})
}

// RenderPanel renders one panel against the session's dataset.
func (s *Service) RenderPanel(sessionID string, index int) (panel.Result, error) {
	sess, err := s.Session(sessionID)
	if err != nil {
		return panel.Result{}, err
	}
	var res panel.Result
	err = sess.withBoard(func(ds *dataset.Dataset, b *panel.Board) error {
		var rerr error
		res, rerr = b.Render(index, ds, s.renderer)
		return rerr
	})
	return res, err
}

// PanelImage returns PNG bytes for a panel: the chart when it can be drawn,
// otherwise a placeholder carrying the reason. Only session and index
// errors are returned.
func (s *Service) PanelImage(sessionID string, index int) ([]byte, error) {
	res, err := s.RenderPanel(sessionID, index)
	switch {
	case err == nil && res.Chart != nil:
		return res.Chart.PNG, nil
	case err == nil:
		return chart.Placeholder(s.cfg.ChartWidth, s.cfg.ChartHeight, res.Message)
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, panel.ErrPanelIndex):
		return nil, err
	default:
		slog.Debug("panel render failed", "session_id", sessionID, "panel", index, "error", err)
		return chart.Placeholder(s.cfg.ChartWidth, s.cfg.ChartHeight, FormatUserError(err))
	}
}

// ClearSession drops the session's dataset and panels.
func (s *Service) ClearSession(sessionID string) error {
	sess, err := s.Session(sessionID)
	if err != nil {
		return err
	}
	sess.clear()
	return nil
}

// SweepSessions removes sessions idle for longer than ttl and returns how
// many were removed.
func (s *Service) SweepSessions(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen().Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
