package cache

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/1"
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse TEST_REDIS_URL: %v", err)
	}

	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available: %v", err)
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

// caches runs every test against both implementations.
func caches(t *testing.T) map[string]FeedCache {
	t.Helper()
	out := map[string]FeedCache{"memory": NewMemoryFeedCache()}

	url := os.Getenv("TEST_REDIS_URL")
	if url != "" {
		out["redis"] = NewFeedCache(setupTestRedis(t))
	}
	return out
}

func TestFeedCache_OrderAndCursor(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const user = int64(7)

			for i := int64(1); i <= 5; i++ {
				if err := c.Add(ctx, user, i, 1000+i); err != nil {
					t.Fatalf("Add: %v", err)
				}
			}

			ids, scores, err := c.Get(ctx, user, nil, 3)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			want := []int64{5, 4, 3}
			if len(ids) != len(want) {
				t.Fatalf("got %v, want %v", ids, want)
			}
			for i := range want {
				if ids[i] != want[i] {
					t.Fatalf("got %v, want %v", ids, want)
				}
			}

			cursor := scores[len(scores)-1]
			ids, _, err = c.Get(ctx, user, &cursor, 3)
			if err != nil {
				t.Fatalf("Get with cursor: %v", err)
			}
			if len(ids) != 2 || ids[0] != 2 || ids[1] != 1 {
				t.Fatalf("second page = %v, want [2 1]", ids)
			}
		})
	}
}

func TestFeedCache_RemoveAndExists(t *testing.T) {
	for name, c := range caches(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const user = int64(9)

			if ok, _ := c.Exists(ctx, user); ok {
				t.Fatal("fresh user should have no feed")
			}

			if err := c.Warm(ctx, user, []DiscussionScore{{DiscussionID: 1, Timestamp: 10}, {DiscussionID: 2, Timestamp: 20}}); err != nil {
				t.Fatalf("Warm: %v", err)
			}
			if ok, _ := c.Exists(ctx, user); !ok {
				t.Fatal("warmed feed should exist")
			}

			if err := c.Remove(ctx, user, 2); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			size, _ := c.Size(ctx, user)
			if size != 1 {
				t.Fatalf("size = %d, want 1", size)
			}
		})
	}
}

func TestMemoryFeedCache_Cap(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryFeedCache()

	items := make([]DiscussionScore, FeedCacheCap+10)
	for i := range items {
		items[i] = DiscussionScore{DiscussionID: int64(i + 1), Timestamp: int64(i + 1)}
	}
	if err := c.Warm(ctx, 1, items); err != nil {
		t.Fatalf("Warm: %v", err)
	}

	size, _ := c.Size(ctx, 1)
	if size != FeedCacheCap {
		t.Fatalf("size = %d, want %d", size, FeedCacheCap)
	}

	// the oldest entries are the ones dropped
	ids, _, _ := c.Get(ctx, 1, nil, FeedCacheCap)
	if ids[len(ids)-1] != 11 {
		t.Errorf("oldest kept id = %d, want 11", ids[len(ids)-1])
	}
}
