package session

import (
	"context"
	"sync"
	"time"

	"github.com/Rainelz/booko/internal/common/metrics"
)

// Store persists conversations between updates. A missing session is
// (nil, nil), not an error.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
}

type memoryEntry struct {
	session   *Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory with a TTL. Good enough
// for a single instance; use the redis store when running more than one.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[int64]*memoryEntry
	ttl     time.Duration
	stop    chan struct{}
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[int64]*memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *MemoryStore) Get(_ context.Context, chatID int64) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[chatID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.session, nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[sess.ChatID]; !exists {
		metrics.SessionsActive.Inc()
	}
	s.entries[sess.ChatID] = &memoryEntry{
		session:   sess,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[chatID]; exists {
		delete(s.entries, chatID)
		metrics.SessionsActive.Dec()
	}
	return nil
}

// Close stops the background cleanup goroutine.
func (s *MemoryStore) Close() {
	close(s.stop)
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) removeExpired() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for chatID, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, chatID)
			metrics.SessionsActive.Dec()
		}
	}
}
