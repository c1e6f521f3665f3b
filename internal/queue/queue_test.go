package queue

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestParseEvent_RejectsMissingData(t *testing.T) {
	if _, err := ParseEvent(map[string]interface{}{"type": EventUserFollowed}); err == nil {
		t.Fatal("expected error for message without data field")
	}
	if _, err := ParseEvent(map[string]interface{}{"data": "{not json"}); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestNewDiscussionCreatedEvent_UsesCreationTime(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewDiscussionCreatedEvent(10, 20, created)

	if e.CreatedAt != created.Unix() {
		t.Errorf("CreatedAt = %d, want %d", e.CreatedAt, created.Unix())
	}
	if e.Type != EventDiscussionCreated || e.DiscussionID != 10 || e.AuthorID != 20 {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestStream_PublishReadAck(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opts)
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	client.FlushDB(ctx)
	defer client.FlushDB(ctx)

	pub := NewPublisher(client)
	con := NewConsumer(client)

	if err := con.EnsureGroup(ctx, StreamDiscussions, ConsumerGroupFeed); err != nil {
		t.Fatalf("EnsureGroup: %v", err)
	}
	// second call hits BUSYGROUP and must still succeed
	if err := con.EnsureGroup(ctx, StreamDiscussions, ConsumerGroupFeed); err != nil {
		t.Fatalf("EnsureGroup again: %v", err)
	}

	if _, err := pub.Publish(ctx, NewUserFollowedEvent(1, 2)); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	client.XAdd(ctx, &redis.XAddArgs{Stream: StreamDiscussions, Values: map[string]interface{}{"type": "junk"}})

	msgs, err := con.Read(ctx, StreamDiscussions, ConsumerGroupFeed, "test-1", 10, time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Event.FollowerID != 1 || msgs[0].Event.FolloweeID != 2 {
		t.Fatalf("unexpected messages %+v", msgs)
	}

	// the malformed entry is acked on read, the good one is still pending
	pending, _ := con.Pending(ctx, StreamDiscussions, ConsumerGroupFeed)
	if pending != 1 {
		t.Fatalf("pending = %d, want 1", pending)
	}

	again, err := con.ReadPending(ctx, StreamDiscussions, ConsumerGroupFeed, "test-1", 10)
	if err != nil || len(again) != 1 {
		t.Fatalf("ReadPending = %v, %v", again, err)
	}

	if err := con.Ack(ctx, StreamDiscussions, ConsumerGroupFeed, msgs[0].ID); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	pending, _ = con.Pending(ctx, StreamDiscussions, ConsumerGroupFeed)
	if pending != 0 {
		t.Fatalf("pending after ack = %d, want 0", pending)
	}
}
