package outbox

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lingkod/pkg/platform/sentinel"
)

// InMemoryStore backs unit tests and single-node development.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Entry
	byKey   map[string]uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[uuid.UUID]*Entry),
		byKey:   make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) InsertIfAbsent(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byKey[entry.DedupeKey]; ok {
		return sentinel.ErrAlreadyUsed
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	s.byKey[entry.DedupeKey] = entry.ID
	return nil
}

func (s *InMemoryStore) InsertBatch(ctx context.Context, entries []*Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entry := range entries {
		if _, ok := s.byKey[entry.DedupeKey]; ok {
			continue
		}
		cp := *entry
		s.entries[entry.ID] = &cp
		s.byKey[entry.DedupeKey] = entry.ID
	}
	return nil
}

func (s *InMemoryStore) ExistingKeys(_ context.Context, keys []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]bool, len(keys))
	for _, key := range keys {
		if _, ok := s.byKey[key]; ok {
			found[key] = true
		}
	}
	return found, nil
}

// ClaimPending leases due pending entries by pushing next_attempt_at past
// the lease window, so concurrent claimers skip them.
func (s *InMemoryStore) ClaimPending(_ context.Context, limit int, now time.Time, lease time.Duration) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Entry
	for _, entry := range s.entries {
		if entry.Status == EntryPending && !entry.NextAttemptAt.After(now) {
			due = append(due, entry)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Entry, 0, len(due))
	for _, entry := range due {
		entry.NextAttemptAt = now.Add(lease)
		cp := *entry
		claimed = append(claimed, &cp)
	}
	return claimed, nil
}

func (s *InMemoryStore) MarkSent(_ context.Context, entryID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	entry.Status = EntrySent
	entry.NextAttemptAt = at
	entry.LastError = ""
	return nil
}

func (s *InMemoryStore) Reschedule(_ context.Context, entryID uuid.UUID, attempts int, nextAttemptAt time.Time, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	entry.Attempts = attempts
	entry.NextAttemptAt = nextAttemptAt
	entry.LastError = lastError
	return nil
}

func (s *InMemoryStore) MarkFailed(_ context.Context, entryID uuid.UUID, attempts int, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[entryID]
	if !ok {
		return sentinel.ErrNotFound
	}
	entry.Status = EntryFailed
	entry.Attempts = attempts
	entry.LastError = lastError
	return nil
}

// Find returns a copy of the entry with the given dedupe key, for tests.
func (s *InMemoryStore) Find(key string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entryID, ok := s.byKey[key]
	if !ok {
		return nil, false
	}
	cp := *s.entries[entryID]
	return &cp, true
}

// Len reports the number of stored entries, for tests.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
