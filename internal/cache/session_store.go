package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

var ErrSessionNotFound = errors.New("guest session not found")

const guestSessionPrefix = "quiz-engine:guest-session:"

// SessionStore holds guest sessions until their TTL runs out.
type SessionStore interface {
	Save(ctx context.Context, session *models.GuestSession, ttl time.Duration) error
	Get(ctx context.Context, id string) (*models.GuestSession, error)
	Delete(ctx context.Context, id string) error
}

type cacheSessionStore struct {
	cache CacheService
}

// NewCacheSessionStore keeps sessions as JSON documents in the cache service.
func NewCacheSessionStore(cache CacheService) SessionStore {
	return &cacheSessionStore{cache: cache}
}

func (s *cacheSessionStore) Save(ctx context.Context, session *models.GuestSession, ttl time.Duration) error {
	return s.cache.Set(ctx, guestSessionPrefix+session.ID, session, ttl)
}

func (s *cacheSessionStore) Get(ctx context.Context, id string) (*models.GuestSession, error) {
	var session models.GuestSession
	if err := s.cache.Get(ctx, guestSessionPrefix+id, &session); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *cacheSessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, guestSessionPrefix+id)
}

type memoryEntry struct {
	session   models.GuestSession
	expiresAt time.Time
}

type memorySessionStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemorySessionStore() SessionStore {
	return newMemorySessionStore(time.Now)
}

func newMemorySessionStore(now func() time.Time) *memorySessionStore {
	return &memorySessionStore{entries: make(map[string]memoryEntry), now: now}
}

func (s *memorySessionStore) Save(ctx context.Context, session *models.GuestSession, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()
	entry := memoryEntry{session: copySession(session)}
	if ttl > 0 {
		entry.expiresAt = s.now().Add(ttl)
	}
	s.entries[session.ID] = entry
	return nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*models.GuestSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || s.expired(entry) {
		delete(s.entries, id)
		return nil, ErrSessionNotFound
	}
	session := copySession(&entry.session)
	return &session, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}

func (s *memorySessionStore) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !s.now().Before(entry.expiresAt)
}

func (s *memorySessionStore) purgeExpired() {
	for id, entry := range s.entries {
		if s.expired(entry) {
			delete(s.entries, id)
		}
	}
}

func copySession(session *models.GuestSession) models.GuestSession {
	c := *session
	c.QuestionIDs = append([]uint(nil), session.QuestionIDs...)
	c.Answers = append([]models.Answer(nil), session.Answers...)
	return c
}
