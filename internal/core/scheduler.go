package core

// scheduler.go runs background maintenance. Sessions live in memory, so
// idle ones are evicted periodically to release their datasets.

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultSessionTTL    = 2 * time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// StartSessionSweeper evicts sessions idle longer than ttl every interval.
// It blocks until ctx is cancelled; run it in a goroutine.
func (s *Service) StartSessionSweeper(ctx context.Context, interval, ttl time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	slog.Info("session sweeper started", "interval", interval.String(), "ttl", ttl.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session sweeper stopped")
			return
		case <-ticker.C:
			start := time.Now()
			if removed := s.SweepSessions(ttl); removed > 0 {
				slog.Info("evicted idle sessions",
					"removed", removed,
					"remaining", s.SessionCount(),
					"duration_ms", time.Since(start).Milliseconds(),
				)
			}
		}
	}
}
