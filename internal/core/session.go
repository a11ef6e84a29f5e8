package core

import (
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/vizboard/internal/dataset"
	"github.com/JonMunkholm/vizboard/internal/panel"
)

var (
	// ErrSessionNotFound is returned for an unknown or evicted session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrNoDataset is returned when a panel operation runs before any
	// successful upload.
	ErrNoDataset = errors.New("no dataset loaded")
)

// Session is one visitor's state: at most one dataset plus the board built
// from its column sets. All fields are guarded by mu.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	lastSeen time.Time
	data     *dataset.Dataset
	board    *panel.Board
}

func newSession(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, lastSeen: now}
}

// install replaces the dataset and rebuilds all panels from its column sets.
func (s *Session) install(ds *dataset.Dataset, sets dataset.ColumnSets) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = ds
	s.board = panel.NewBoard(sets)
}

// clear drops the dataset and panels.
func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	s.board = nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// LastSeen returns the time of the session's most recent request.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

// HasDataset reports whether a dataset is loaded.
func (s *Session) HasDataset() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data != nil
}

// withBoard runs fn with the session locked. It fails with ErrNoDataset
// when nothing has been uploaded.
func (s *Session) withBoard(fn func(ds *dataset.Dataset, b *panel.Board) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil || s.board == nil {
		return ErrNoDataset
	}
	return fn(s.data, s.board)
}
