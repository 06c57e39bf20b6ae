package cms

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("cms session not found")

// Session is a native CMS login.
type Session struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"account_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionStore keeps CMS sessions and the ledger of consumed federation
// token ids.
type SessionStore interface {
	Create(ctx context.Context, acc *Account, ttl time.Duration) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	// ConsumeTokenID records jti and reports whether this was its first use.
	// The entry is kept until the token itself would expire.
	ConsumeTokenID(ctx context.Context, jti string, until time.Time) (bool, error)
}

const (
	sessionKeyPrefix = "cms:session:"
	ledgerKeyPrefix  = "cms:jti:"
)

func sessionKey(id string) string { return sessionKeyPrefix + id }
func ledgerKey(jti string) string { return ledgerKeyPrefix + jti }

func newSession(acc *Account, now time.Time, ttl time.Duration) *Session {
	return &Session{
		ID:          uuid.NewString(),
		AccountID:   acc.ID,
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		Role:        acc.Role,
		ExpiresAt:   now.Add(ttl),
	}
}

type redisSessionStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisSessionStore returns a SessionStore on Redis.
func NewRedisSessionStore(client redis.UniversalClient) SessionStore {
	return &redisSessionStore{client: client, now: time.Now}
}

func (s *redisSessionStore) Create(ctx context.Context, acc *Account, ttl time.Duration) (*Session, error) {
	sess := newSession(acc, s.now(), ttl)
	payload, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), payload, ttl).Err(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *redisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *redisSessionStore) ConsumeTokenID(ctx context.Context, jti string, until time.Time) (bool, error) {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return false, nil
	}
	return s.client.SetNX(ctx, ledgerKey(jti), 1, ttl).Result()
}

// MemorySessionStore is an in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ledger   map[string]time.Time
	now      func() time.Time
}

// NewMemorySessionStore returns an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		ledger:   make(map[string]time.Time),
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (s *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	s.now = now
	return s
}

func (s *MemorySessionStore) Create(ctx context.Context, acc *Account, ttl time.Duration) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess := newSession(acc, s.now(), ttl)
	s.mu.Lock()
	s.sessions[sess.ID] = *sess
	s.mu.Unlock()
	return sess, nil
}

func (s *MemorySessionStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !s.now().Before(sess.ExpiresAt) {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

func (s *MemorySessionStore) ConsumeTokenID(ctx context.Context, jti string, until time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.ledger {
		if !now.Before(exp) {
			delete(s.ledger, id)
		}
	}
	if !now.Before(until) {
		return false, nil
	}
	if _, seen := s.ledger[jti]; seen {
		return false, nil
	}
	s.ledger[jti] = until
	return true, nil
}
