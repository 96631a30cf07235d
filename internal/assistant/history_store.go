package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// historyStore keeps each session's transcript in Redis under its own key, so
// concurrent sessions never share state.
type historyStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func newHistoryStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *historyStore {
	if client == nil {
		panic("assistant: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if tracer == nil {
		tracer = otel.Tracer("mentoji.internal.assistant.history")
	}
	return &historyStore{redis: client, ttl: ttl, tracer: tracer}
}

func (s *historyStore) Save(ctx context.Context, sessionID string, history []ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "assistant.save_history")
	defer span.End()

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sessionID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("assistant: failed to persist history: %w", err)
	}
	return nil
}

func (s *historyStore) Load(ctx context.Context, sessionID string) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "assistant.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		span.RecordError(err)
		if err == redis.Nil {
			return nil, fmt.Errorf("assistant: unknown session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("assistant: failed to load history: %w", err)
	}

	var history []ChatMessage
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("assistant: failed to decode history: %w", err)
	}
	return history, nil
}

func sessionKey(id string) string {
	return fmt.Sprintf("assistant_session:%s", id)
}
