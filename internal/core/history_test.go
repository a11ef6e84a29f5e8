package core

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestMemoryRecorder_NewestFirst(t *testing.T) {
	m := NewMemoryRecorder(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := m.Record(ctx, UploadRecord{ID: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		limit int
		want  []string
	}{
		{0, []string{"4", "3", "2"}},
		{2, []string{"4", "3"}},
		{10, []string{"4", "3", "2"}},
	}
	for _, tt := range tests {
		got, err := m.Recent(ctx, tt.limit)
		if err != nil {
			t.Fatalf("Recent(%d) error = %v", tt.limit, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("Recent(%d) len = %d, want %d", tt.limit, len(got), len(tt.want))
		}
		for i := range tt.want {
			if got[i].ID != tt.want[i] {
				t.Errorf("Recent(%d)[%d] = %q, want %q", tt.limit, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestMemoryRecorder_Empty(t *testing.T) {
	got, err := NewMemoryRecorder(0).Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Recent on empty recorder = %v", got)
	}
}

func TestMemoryRecorder_RecentForSession(t *testing.T) {
	m := NewMemoryRecorder(10)
	ctx := context.Background()

	m.Record(ctx, UploadRecord{ID: "mine-1", SessionID: "s1"})
	for i := 0; i < 5; i++ {
		m.Record(ctx, UploadRecord{ID: fmt.Sprint("other-", i), SessionID: "s2"})
	}
	m.Record(ctx, UploadRecord{ID: "mine-2", SessionID: "s1"})
	m.Record(ctx, UploadRecord{ID: "other-5", SessionID: "s2"})

	tests := []struct {
		session string
		limit   int
		want    []string
	}{
		{"s1", 0, []string{"mine-2", "mine-1"}},
		{"s1", 1, []string{"mine-2"}},
		{"s2", 2, []string{"other-5", "other-4"}},
		{"nobody", 0, nil},
	}
	for _, tt := range tests {
		got, err := m.RecentForSession(ctx, tt.session, tt.limit)
		if err != nil {
			t.Fatalf("RecentForSession(%s, %d) error = %v", tt.session, tt.limit, err)
		}
		var ids []string
		for _, rec := range got {
			ids = append(ids, rec.ID)
		}
		if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
			t.Errorf("RecentForSession(%s, %d) = %v, want %v", tt.session, tt.limit, ids, tt.want)
		}
	}
}

// TestPGRecorder runs against a real database when VIZBOARD_TEST_DATABASE_URL
// is set.
func TestPGRecorder(t *testing.T) {
	url := os.Getenv("VIZBOARD_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("VIZBOARD_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	rec, err := NewPGRecorder(ctx, pool)
	if err != nil {
		t.Fatalf("NewPGRecorder() error = %v", err)
	}

	want := UploadRecord{
		ID:        uuid.New().String(),
		SessionID: "test-session",
		FileName:  "sales.csv",
		Format:    "csv",
		Status:    UploadSucceeded,
		Rows:      3,
		Columns:   2,
		Numerical: 1,
		CreatedAt: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	if err := rec.Record(ctx, want); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	defer pool.Exec(ctx, "DELETE FROM dataset_uploads WHERE id = $1", want.ID)

	got, err := rec.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != want.ID || got[0].Status != UploadSucceeded || got[0].Rows != 3 {
		t.Errorf("Recent() = %+v, want %+v", got, want)
	}

	// A newer upload from another session must not hide this session's record.
	other := want
	other.ID = uuid.New().String()
	other.SessionID = "other-session"
	other.CreatedAt = want.CreatedAt.Add(time.Minute)
	if err := rec.Record(ctx, other); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	defer pool.Exec(ctx, "DELETE FROM dataset_uploads WHERE id = $1", other.ID)

	got, err = rec.RecentForSession(ctx, want.SessionID, 1)
	if err != nil {
		t.Fatalf("RecentForSession() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != want.ID {
		t.Errorf("RecentForSession() = %+v, want %s", got, want.ID)
	}
}
