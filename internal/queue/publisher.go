package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"forumhub/internal/logger"
)

type Publisher interface {
	// Publish appends event to the discussions stream and returns its message id.
	Publish(ctx context.Context, event Event) (messageID string, err error)
}

type RedisPublisher struct {
	client *redis.Client
	stream string
}

func NewPublisher(client *redis.Client) Publisher {
	return &RedisPublisher{client: client, stream: StreamDiscussions}
}

func (p *RedisPublisher) Publish(ctx context.Context, event Event) (string, error) {
	values, err := event.ToMap()
	if err != nil {
		return "", fmt.Errorf("serialize event: %w", err)
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd to stream: %w", err)
	}

	logger.Debug.Printf("[Publisher] stream=%s type=%s msgID=%s", p.stream, event.Type, messageID)
	return messageID, nil
}
