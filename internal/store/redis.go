package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/conveyorhq/conveyor/pkg/domain"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "conveyor:debug-session:"

// DefaultSessionTTL bounds how long an abandoned session survives in Redis.
const DefaultSessionTTL = 24 * time.Hour

// RedisSessionStore persists debug sessions as JSON documents so a session
// can be picked up by any process between calls.
type RedisSessionStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisSessionStore(client redis.UniversalClient, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &RedisSessionStore{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (s *RedisSessionStore) GetSession(ctx context.Context, sessionID string) (domain.DebugSession, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.DebugSession{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
	}

	if err != nil {
		return domain.DebugSession{}, fmt.Errorf("failed to get session %s: %w", sessionID, err)
	}

	var session domain.DebugSession
	if err := json.Unmarshal(data, &session); err != nil {
		return domain.DebugSession{}, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}

	return session, nil
}

func (s *RedisSessionStore) PutSession(ctx context.Context, session domain.DebugSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}

	if err := s.client.Set(ctx, sessionKey(session.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to put session %s: %w", session.ID, err)
	}

	return nil
}

func (s *RedisSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", sessionID, err)
	}

	return nil
}
