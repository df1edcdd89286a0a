package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-game-service/internal/game"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions stay in a local map because their timers and answer outbox live in this
// process. Redis holds a JSON snapshot per live session under quiz:game:{id}, refreshed
// on every transition, so other instances and operators can see what is in flight.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*game.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		logger:   slog.Default(),
		sessions: make(map[string]*game.Session),
	}
}

func (s *SessionStore) Put(session *game.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	s.mark(session)
}

func (s *SessionStore) Get(sessionID string) (*game.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Touch(session *game.Session) {
	s.mark(session)
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if err := s.client.Del(context.Background(), Key(sessionID)).Err(); err != nil {
		s.logger.Warn("session snapshot not removed", "session_id", sessionID, "error", err)
	}
}

func (s *SessionStore) Range(fn func(*game.Session) bool) {
	s.mu.RLock()
	sessions := make([]*game.Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()
	for _, session := range sessions {
		if !fn(session) {
			return
		}
	}
}

// LoadSnapshot reads the last published snapshot of a live session.
func (s *SessionStore) LoadSnapshot(ctx context.Context, sessionID string) (game.Snapshot, bool, error) {
	raw, err := s.client.Get(ctx, Key(sessionID)).Bytes()
	if err == redis.Nil {
		return game.Snapshot{}, false, nil
	}
	if err != nil {
		return game.Snapshot{}, false, err
	}
	var snap game.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return game.Snapshot{}, false, err
	}
	return snap, true, nil
}

// best-effort liveness marker
func (s *SessionStore) mark(session *game.Session) {
	raw, err := json.Marshal(session.Snapshot())
	if err != nil {
		return
	}
	if err := s.client.Set(context.Background(), Key(session.ID()), raw, s.ttl).Err(); err != nil {
		s.logger.Warn("session snapshot not published", "session_id", session.ID(), "error", err)
	}
}

// Key is the Redis key holding a live session's snapshot.
func Key(sessionID string) string {
	return "quiz:game:" + sessionID
}
