package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps entries in process for local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{entries: make(map[string]Entry)}
}

// Record implements Repository.
func (r *InMemoryRepository) Record(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.EventID]; exists {
		return nil
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	r.entries[entry.EventID] = entry
	return nil
}

// ListByUser implements Repository. Entries come newest first.
func (r *InMemoryRepository) ListByUser(_ context.Context, userID string, cursor *Cursor, limit int) ([]Entry, *Cursor, error) {
	r.mu.RLock()
	matches := make([]Entry, 0)
	for _, e := range r.entries {
		if e.UserID != userID {
			continue
		}
		if cursor != nil && !cursor.before(e) {
			continue
		}
		matches = append(matches, e)
	}
	r.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].OccurredAt.Equal(matches[j].OccurredAt) {
			return matches[i].EventID > matches[j].EventID
		}
		return matches[i].OccurredAt.After(matches[j].OccurredAt)
	})

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit >= len(matches) {
		return matches, nil, nil
	}
	page := matches[:limit]
	last := page[len(page)-1]
	return page, &Cursor{OccurredAt: last.OccurredAt, EventID: last.EventID}, nil
}
