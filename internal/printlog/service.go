// Package printlog keeps the capped, append-only record of print
// delivery attempts — the primary operator-facing diagnostic surface.
package printlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/printdeck/printdeck/internal/store"
	"github.com/printdeck/printdeck/pkg/models"
)

// Cap is the maximum number of retained entries. The oldest entries are
// evicted silently when it is exceeded.
const Cap = 50

// Service is the in-memory print log backed by a kv bucket. Entries are
// kept newest-first and never mutated after append.
type Service struct {
	mu      sync.RWMutex
	entries []models.PrintLogEntry
	bucket  *store.Bucket
	logger  *zap.Logger
	now     func() time.Time
}

// NewService loads the persisted log. A missing or corrupt stored value
// starts the log empty rather than failing.
func NewService(ctx context.Context, bucket *store.Bucket, logger *zap.Logger) (*Service, error) {
	s := &Service{bucket: bucket, logger: logger, now: time.Now}
	if _, err := bucket.Load(ctx, &s.entries); err != nil {
		return nil, err
	}
	if len(s.entries) > Cap {
		s.entries = s.entries[:Cap]
	}
	return s, nil
}

// Record assigns an id and timestamp, prepends the entry, truncates to
// the cap, and persists the whole list. Persistence failures are logged
// but do not fail the print path: losing a log write must never block a
// delivery outcome.
func (s *Service) Record(ctx context.Context, entry models.PrintLogEntry) {
	entry.ID = uuid.New().String()
	entry.Timestamp = s.now().UTC()

	s.mu.Lock()
	s.entries = append([]models.PrintLogEntry{entry}, s.entries...)
	if len(s.entries) > Cap {
		s.entries = s.entries[:Cap]
	}
	snapshot := make([]models.PrintLogEntry, len(s.entries))
	copy(snapshot, s.entries)
	s.mu.Unlock()

	if err := s.bucket.Save(ctx, snapshot); err != nil {
		s.logger.Warn("failed to persist print log",
			zap.String("entry_id", entry.ID),
			zap.Error(err),
		)
	}
}

// Recent returns up to n entries, newest first. n <= 0 returns the full
// capped list.
func (s *Service) Recent(n int) []models.PrintLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]models.PrintLogEntry, n)
	copy(out, s.entries[:n])
	return out
}
