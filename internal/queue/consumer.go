package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"forumhub/internal/logger"
)

type Message struct {
	ID    string
	Event Event
}

type Consumer interface {
	// EnsureGroup creates the stream and group if missing.
	EnsureGroup(ctx context.Context, stream, group string) error
	// Read returns messages never delivered to the group. block=0 waits forever.
	Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error)
	// ReadPending returns messages delivered to this consumer but never acked,
	// which is what a crashed worker leaves behind.
	ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error)
	Ack(ctx context.Context, stream, group string, messageIDs ...string) error
	Pending(ctx context.Context, stream, group string) (int64, error)
}

type RedisConsumer struct {
	client *redis.Client
}

func NewConsumer(client *redis.Client) Consumer {
	return &RedisConsumer{client: client}
}

func (c *RedisConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	// "0" lets a new group pick up events published before it existed
	err := c.client.XGroupCreateMkStream(ctx, stream, group, "0").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return nil
		}
		return fmt.Errorf("create consumer group: %w", err)
	}

	logger.Info.Printf("[Consumer] created group %s on %s", group, stream)
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]Message, error) {
	return c.read(ctx, stream, group, consumer, ">", count, block)
}

func (c *RedisConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]Message, error) {
	return c.read(ctx, stream, group, consumer, "0", count, -1)
}

// read wraps XREADGROUP. A negative block omits BLOCK entirely, which is what
// reading our own pending list needs.
func (c *RedisConsumer) read(ctx context.Context, stream, group, consumer, start string, count int64, block time.Duration) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, start},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	var messages []Message
	var malformed []string
	for _, s := range streams {
		for _, msg := range s.Messages {
			event, err := ParseEvent(msg.Values)
			if err != nil {
				logger.Warn.Printf("[Consumer] dropping malformed message %s: %v", msg.ID, err)
				malformed = append(malformed, msg.ID)
				continue
			}
			messages = append(messages, Message{ID: msg.ID, Event: event})
		}
	}

	// Malformed entries would otherwise sit in the pending list forever.
	if len(malformed) > 0 {
		if err := c.Ack(ctx, stream, group, malformed...); err != nil {
			logger.Warn.Printf("[Consumer] ack malformed: %v", err)
		}
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}

	if err := c.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	info, err := c.client.XPending(ctx, stream, group).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return info.Count, nil
}
