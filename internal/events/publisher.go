package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/maltedev/marketplace-matcher/internal/scheduler"
	"github.com/redis/go-redis/v9"
)

type EventType string

const (
	// EventTypeTaskMatched is published once per completed task.
	EventTypeTaskMatched EventType = "TASK_MATCHED"

	DefaultStream = "stream:marketplace_matches"
)

// RedisClient is the subset of the go-redis client the publisher needs.
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type TaskMatchedPayload struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Timestamp time.Time        `json:"timestamp"`
	RunID     string           `json:"run_id"`
	Index     int              `json:"index"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Row       models.ResultRow `json:"row"`
	Source    string           `json:"source"`
}

// RedisPublisher streams task completions to a Redis stream. Publish errors
// are logged and never fail the run.
type RedisPublisher struct {
	client RedisClient
	stream string
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisPublisher(client RedisClient, stream string, logger *slog.Logger) *RedisPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{
		client: client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
		now:    time.Now,
	}
}

func (p *RedisPublisher) TaskCompleted(ctx context.Context, progress scheduler.Progress) {
	if err := p.Publish(ctx, progress); err != nil {
		p.logger.Error("failed to publish task event",
			"run_id", progress.RunID,
			"index", progress.Index,
			"error", err)
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, progress scheduler.Progress) error {
	payload := TaskMatchedPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypeTaskMatched),
		Timestamp: p.now().UTC(),
		RunID:     progress.RunID,
		Index:     progress.Index,
		Completed: progress.Completed,
		Total:     progress.Total,
		Row:       progress.Row,
		Source:    "marketplace-matcher",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   payload.EventID,
			"event_type": payload.EventType,
			"run_id":     payload.RunID,
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
			"payload":    string(data),
		},
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("task event published",
		"event_id", payload.EventID,
		"run_id", payload.RunID,
		"index", payload.Index,
		"stream", p.stream)

	return nil
}

func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
