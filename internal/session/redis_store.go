package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/triage-concierge/internal/chat"
)

const defaultTTL = 24 * time.Hour

// RedisStore keeps each session as a JSON array under one key with a TTL.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore wraps a redis client.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("triage.internal.session")
	}
	return &RedisStore{redis: client, ttl: ttl, tracer: tracer}
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, entries []chat.Entry) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	if entries == nil {
		entries = []chat.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal entries: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist entries: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) ([]chat.Entry, error) {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load entries: %w", err)
	}

	var entries []chat.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode entries: %w", err)
	}
	return entries, nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	ctx, span := s.tracer.Start(ctx, "session.delete")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to delete entries: %w", err)
	}
	return nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("triage:session:%s", id)
}
