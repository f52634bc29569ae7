package dedup

import (
	"context"
	"strings"
	"sync"
	"time"

	"velocity/monitor-service/internal/model"
)

type memoryEntry struct {
	job       model.JobPosting
	expiresAt time.Time // zero means no expiry
}

// MemoryStore is a SeenStore backed by a map with real expiry. It satisfies
// the same contract as RedisStore and backs tests and redis-less dev runs;
// history does not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

// SetClock overrides the store's notion of "now" so tests can step time
// instead of sleeping.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(e memoryEntry) bool {
	return e.expiresAt.IsZero() || e.expiresAt.After(s.now())
}

// Seen reports whether key holds an unexpired record.
func (s *MemoryStore) Seen(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if !s.live(e) {
		delete(s.entries, key)
		return false
	}
	return true
}

// MarkSeen stores the snapshot with the class's expiry.
func (s *MemoryStore) MarkSeen(_ context.Context, key string, job model.JobPosting, class TTLClass) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{job: job}
	if class != TTLPermanent {
		e.expiresAt = s.now().Add(time.Duration(class))
	}
	s.entries[key] = e
	return nil
}

// Delete removes one record.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Scan returns the live records. Remaining TTL is computed against the
// store's clock; permanent records report -1.
func (s *MemoryStore) Scan(_ context.Context) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []Record
	for key, e := range s.entries {
		if !s.live(e) {
			delete(s.entries, key)
			continue
		}
		ttl := time.Duration(-1)
		if !e.expiresAt.IsZero() {
			ttl = e.expiresAt.Sub(s.now())
		}
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		records = append(records, Record{Key: key, Job: e.job, TTL: ttl})
	}
	return records, nil
}
