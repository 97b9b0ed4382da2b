package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"campuslive/internal/core/domain"
	"campuslive/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisHistoryRepository stores chat and mic-decision logs as capped Redis
// lists, newest first.
type RedisHistoryRepository struct {
	client  *redis.Client
	prefix  string
	maxChat int64
	maxMic  int64
}

func NewRedisHistoryRepository(client *redis.Client, maxChat, maxMic int) ports.HistoryRepository {
	return &RedisHistoryRepository{
		client:  client,
		prefix:  "campuslive:history:",
		maxChat: int64(maxChat),
		maxMic:  int64(maxMic),
	}
}

func (r *RedisHistoryRepository) chatKey() string {
	return r.prefix + "chat"
}

func (r *RedisHistoryRepository) micKey() string {
	return r.prefix + "mic"
}

func (r *RedisHistoryRepository) AppendChat(ctx context.Context, msg domain.ChatMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal chat message: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.chatKey(), data)
	pipe.LTrim(ctx, r.chatKey(), 0, r.maxChat-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat message: %w", err)
	}
	return nil
}

func (r *RedisHistoryRepository) RecentChat(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	entries, err := r.client.LRange(ctx, r.chatKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read chat history: %w", err)
	}

	messages := make([]domain.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		var msg domain.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			// Skip entries that no longer decode
			continue
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *RedisHistoryRepository) AppendMicEvent(ctx context.Context, event domain.MicEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal mic event: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.micKey(), data)
	pipe.LTrim(ctx, r.micKey(), 0, r.maxMic-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append mic event: %w", err)
	}
	return nil
}

func (r *RedisHistoryRepository) RecentMicEvents(ctx context.Context, limit int) ([]domain.MicEvent, error) {
	entries, err := r.client.LRange(ctx, r.micKey(), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mic history: %w", err)
	}

	events := make([]domain.MicEvent, 0, len(entries))
	for _, entry := range entries {
		var event domain.MicEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
