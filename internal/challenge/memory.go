package challenge

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps entries in process memory. It only serves requests in
// the process that wrote them, so it suits tests and single-binary setups.
type MemoryStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]Entry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]Entry{}}
}

func (s *MemoryStore) Put(_ context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if cur, ok := s.entries[e.Token]; ok && cur.ExpiresAt.After(now) {
		if cur.sameResponse(e) {
			return nil
		}
		return ErrExists
	}
	e.Value = append([]byte(nil), e.Value...)
	e.ExpiresAt = now.Add(s.ttl)
	s.entries[e.Token] = e
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[token]
	if !ok || !e.ExpiresAt.After(s.now()) {
		return Entry{}, ErrNotFound
	}
	e.Value = append([]byte(nil), e.Value...)
	return e, nil
}

func (s *MemoryStore) Delete(_ context.Context, tokens ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tokens {
		delete(s.entries, t)
	}
	return nil
}

func (s *MemoryStore) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, e := range s.entries {
		if !e.ExpiresAt.After(now) {
			delete(s.entries, token)
			n++
		}
	}
	return n, nil
}
