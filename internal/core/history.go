package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UploadStatus is the outcome of an upload attempt.
type UploadStatus string

const (
	UploadSucceeded UploadStatus = "succeeded"
	UploadFailed    UploadStatus = "failed"
	UploadRejected  UploadStatus = "rejected"
)

// DefaultHistorySize is the capacity of the in-memory upload history.
const DefaultHistorySize = 200

// UploadRecord is the metadata kept for one upload attempt. File contents
// and chart configurations are never stored.
type UploadRecord struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	FileName    string       `json:"fileName"`
	Format      string       `json:"format"`
	Status      UploadStatus `json:"status"`
	Rows        int          `json:"rows"`
	Columns     int          `json:"columns"`
	Categorical int          `json:"categorical"`
	Numerical   int          `json:"numerical"`
	ErrorCode   string       `json:"errorCode,omitempty"`
	Error       string       `json:"error,omitempty"`
	DurationMs  int64        `json:"durationMs"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// UploadRecorder persists upload history.
type UploadRecorder interface {
	Record(ctx context.Context, rec UploadRecord) error
	Recent(ctx context.Context, limit int) ([]UploadRecord, error)
	// RecentForSession is Recent restricted to one session.
	RecentForSession(ctx context.Context, sessionID string, limit int) ([]UploadRecord, error)
}

// MemoryRecorder keeps the most recent uploads in a fixed-size ring.
type MemoryRecorder struct {
	mu   sync.Mutex
	ring []UploadRecord
	next int
	full bool
}

// NewMemoryRecorder creates a ring holding up to size records.
func NewMemoryRecorder(size int) *MemoryRecorder {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &MemoryRecorder{ring: make([]UploadRecord, size)}
}

func (m *MemoryRecorder) Record(_ context.Context, rec UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring[m.next] = rec
	m.next = (m.next + 1) % len(m.ring)
	if m.next == 0 {
		m.full = true
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (m *MemoryRecorder) Recent(_ context.Context, limit int) ([]UploadRecord, error) {
	return m.collect(limit, func(UploadRecord) bool { return true }), nil
}

// RecentForSession returns up to limit records of one session, newest first.
func (m *MemoryRecorder) RecentForSession(_ context.Context, sessionID string, limit int) ([]UploadRecord, error) {
	return m.collect(limit, func(rec UploadRecord) bool { return rec.SessionID == sessionID }), nil
}

// collect walks the ring newest first, keeping records that match. A limit
// of zero or less keeps every match.
func (m *MemoryRecorder) collect(limit int, match func(UploadRecord) bool) []UploadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.next
	if m.full {
		n = len(m.ring)
	}

	out := make([]UploadRecord, 0, min(n, max(limit, 0)))
	for i := 1; i <= n; i++ {
		rec := m.ring[(m.next-i+len(m.ring))%len(m.ring)]
		if !match(rec) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// uploadHistorySchema creates the history table on first use.
const uploadHistorySchema = `
CREATE TABLE IF NOT EXISTS dataset_uploads (
	id           UUID PRIMARY KEY,
	session_id   TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	format       TEXT NOT NULL,
	status       TEXT NOT NULL,
	row_count    INTEGER NOT NULL DEFAULT 0,
	column_count INTEGER NOT NULL DEFAULT 0,
	categorical  INTEGER NOT NULL DEFAULT 0,
	numerical    INTEGER NOT NULL DEFAULT 0,
	error_code   TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	duration_ms  BIGINT NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS dataset_uploads_created_at_idx ON dataset_uploads (created_at DESC);
CREATE INDEX IF NOT EXISTS dataset_uploads_session_idx ON dataset_uploads (session_id, created_at DESC);
`

// PGRecorder stores upload history in PostgreSQL.
type PGRecorder struct {
	pool *pgxpool.Pool
}

// NewPGRecorder ensures the history table exists and returns a recorder.
func NewPGRecorder(ctx context.Context, pool *pgxpool.Pool) (*PGRecorder, error) {
	if _, err := pool.Exec(ctx, uploadHistorySchema); err != nil {
		return nil, fmt.Errorf("create upload history table: %w", err)
	}
	return &PGRecorder{pool: pool}, nil
}

func (p *PGRecorder) Record(ctx context.Context, rec UploadRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO dataset_uploads
			(id, session_id, file_name, format, status, row_count, column_count,
			 categorical, numerical, error_code, error, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.SessionID, rec.FileName, rec.Format, string(rec.Status),
		rec.Rows, rec.Columns, rec.Categorical, rec.Numerical,
		rec.ErrorCode, rec.Error, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload record: %w", err)
	}
	return nil
}

const uploadColumns = `
	SELECT id::text, session_id, file_name, format, status, row_count, column_count,
	       categorical, numerical, error_code, error, duration_ms, created_at
	FROM dataset_uploads`

// Recent returns up to limit records, newest first.
func (p *PGRecorder) Recent(ctx context.Context, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return p.query(ctx, uploadColumns+`
		ORDER BY created_at DESC
		LIMIT $1`, limit)
}

// RecentForSession returns up to limit records of one session, newest first.
func (p *PGRecorder) RecentForSession(ctx context.Context, sessionID string, limit int) ([]UploadRecord, error) {
	if limit <= 0 {
		limit = DefaultHistorySize
	}
	return p.query(ctx, uploadColumns+`
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, sessionID, limit)
}

func (p *PGRecorder) query(ctx context.Context, sql string, args ...any) ([]UploadRecord, error) {
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query upload history: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (UploadRecord, error) {
		var (
			rec    UploadRecord
			status string
		)
		err := row.Scan(&rec.ID, &rec.SessionID, &rec.FileName, &rec.Format, &status,
			&rec.Rows, &rec.Columns, &rec.Categorical, &rec.Numerical,
			&rec.ErrorCode, &rec.Error, &rec.DurationMs, &rec.CreatedAt)
		rec.Status = UploadStatus(status)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan upload history: %w", err)
	}
	return out, nil
}
