package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/agentmemz/agentmemz/internal/errs"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
	"github.com/agentmemz/agentmemz/internal/utils"
)

type sessionStore struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSessionStore creates a redis-backed session context store. Session
// context is advisory state with a sliding expiry; unlike the result cache,
// read failures here are surfaced so callers can tell "no session" from
// "redis down".
func NewSessionStore(client *goredis.Client, ttl time.Duration) interfaces.SessionService {
	return &sessionStore{client: client, ttl: ttl}
}

func (s *sessionStore) GetContext(ctx context.Context, sessionID string) (map[string]string, error) {
	data, err := s.client.HGetAll(ctx, utils.SessionKey(sessionID)).Result()
	if err != nil {
		return nil, errs.Storage("get session context", err)
	}
	if len(data) == 0 {
		return nil, errs.NotFound("session", sessionID)
	}
	return data, nil
}

func (s *sessionStore) UpdateContext(ctx context.Context, sessionID string, updates map[string]string) error {
	if len(updates) == 0 {
		return nil
	}
	key := utils.SessionKey(sessionID)
	fields := make(map[string]interface{}, len(updates))
	for k, v := range updates {
		fields[k] = v
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return errs.Storage("update session context", err)
	}
	return nil
}
