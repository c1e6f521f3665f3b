package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"forumhub/internal/cache"
	"forumhub/internal/queue"
	"forumhub/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

type MockFollowerProvider struct {
	followers map[int64][]int64
	err       error
}

func NewMockFollowerProvider() *MockFollowerProvider {
	return &MockFollowerProvider{followers: make(map[int64][]int64)}
}

func (m *MockFollowerProvider) AddFollower(userID, followerID int64) {
	m.followers[userID] = append(m.followers[userID], followerID)
}

func (m *MockFollowerProvider) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]int64(nil), m.followers[userID]...), nil
}

type MockDiscussionsProvider struct {
	discussions map[int64][]cache.DiscussionScore
}

func NewMockDiscussionsProvider() *MockDiscussionsProvider {
	return &MockDiscussionsProvider{discussions: make(map[int64][]cache.DiscussionScore)}
}

func (m *MockDiscussionsProvider) Add(authorID, discussionID, timestamp int64) {
	m.discussions[authorID] = append(m.discussions[authorID], cache.DiscussionScore{
		DiscussionID: discussionID,
		Timestamp:    timestamp,
	})
}

func (m *MockDiscussionsProvider) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]cache.DiscussionScore, error) {
	items := m.discussions[userID]
	if len(items) > limit {
		return items[:limit], nil
	}
	return items, nil
}

// MockConsumer serves one batch of messages and records acks.
type MockConsumer struct {
	mu      sync.Mutex
	batches [][]queue.Message
	pending []queue.Message
	acked   []string
}

func (m *MockConsumer) EnsureGroup(ctx context.Context, stream, group string) error { return nil }

func (m *MockConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	m.mu.Lock()
	if len(m.batches) > 0 {
		batch := m.batches[0]
		m.batches = m.batches[1:]
		m.mu.Unlock()
		return batch, nil
	}
	m.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return nil, nil
	}
}

func (m *MockConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out, nil
}

func (m *MockConsumer) Ack(ctx context.Context, stream, group string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = append(m.acked, ids...)
	return nil
}

func (m *MockConsumer) Pending(ctx context.Context, stream, group string) (int64, error) {
	return 0, nil
}

func (m *MockConsumer) Acked() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.acked...)
}

// =============================================================================
// Handler Tests
// =============================================================================

func feedIDs(t *testing.T, c cache.FeedCache, userID int64) []int64 {
	t.Helper()
	ids, _, err := c.Get(context.Background(), userID, nil, 100)
	if err != nil {
		t.Fatalf("Get feed: %v", err)
	}
	return ids
}

func TestHandler_DiscussionCreated_FansOut(t *testing.T) {
	// ARRANGE
	ctx := context.Background()
	feed := cache.NewMemoryFeedCache()
	followers := NewMockFollowerProvider()
	followers.AddFollower(1, 2)
	followers.AddFollower(1, 3)
	h := worker.NewHandler(feed, followers, NewMockDiscussionsProvider())

	// ACT
	err := h.HandleEvent(ctx, queue.NewDiscussionCreatedEvent(100, 1, time.Unix(5000, 0)))

	// ASSERT
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	for _, user := range []int64{1, 2, 3} {
		ids := feedIDs(t, feed, user)
		if len(ids) != 1 || ids[0] != 100 {
			t.Errorf("user %d feed = %v, want [100]", user, ids)
		}
	}
	if ids := feedIDs(t, feed, 4); len(ids) != 0 {
		t.Errorf("non-follower feed = %v, want empty", ids)
	}
}

func TestHandler_DiscussionDeleted_RemovesEverywhere(t *testing.T) {
	ctx := context.Background()
	feed := cache.NewMemoryFeedCache()
	followers := NewMockFollowerProvider()
	followers.AddFollower(1, 2)
	h := worker.NewHandler(feed, followers, NewMockDiscussionsProvider())

	_ = h.HandleEvent(ctx, queue.NewDiscussionCreatedEvent(100, 1, time.Unix(5000, 0)))
	_ = h.HandleEvent(ctx, queue.NewDiscussionCreatedEvent(101, 1, time.Unix(5001, 0)))

	if err := h.HandleEvent(ctx, queue.NewDiscussionDeletedEvent(100, 1)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	for _, user := range []int64{1, 2} {
		ids := feedIDs(t, feed, user)
		if len(ids) != 1 || ids[0] != 101 {
			t.Errorf("user %d feed = %v, want [101]", user, ids)
		}
	}
}

func TestHandler_UserFollowed_BackfillsExistingFeed(t *testing.T) {
	ctx := context.Background()
	feed := cache.NewMemoryFeedCache()
	discussions := NewMockDiscussionsProvider()
	discussions.Add(2, 20, 200)
	discussions.Add(2, 21, 210)
	h := worker.NewHandler(feed, NewMockFollowerProvider(), discussions)

	// follower 1 already has a feed
	_ = feed.Add(ctx, 1, 5, 50)

	if err := h.HandleEvent(ctx, queue.NewUserFollowedEvent(1, 2)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	ids := feedIDs(t, feed, 1)
	want := []int64{21, 20, 5}
	if len(ids) != len(want) {
		t.Fatalf("feed = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("feed = %v, want %v", ids, want)
		}
	}
}

func TestHandler_UserFollowed_SkipsColdFeed(t *testing.T) {
	ctx := context.Background()
	feed := cache.NewMemoryFeedCache()
	discussions := NewMockDiscussionsProvider()
	discussions.Add(2, 20, 200)
	h := worker.NewHandler(feed, NewMockFollowerProvider(), discussions)

	if err := h.HandleEvent(ctx, queue.NewUserFollowedEvent(1, 2)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	if ok, _ := feed.Exists(ctx, 1); ok {
		t.Error("cold feed should stay absent so it is warmed in full on read")
	}
}

func TestHandler_UserUnfollowed_PrunesFolloweeDiscussions(t *testing.T) {
	ctx := context.Background()
	feed := cache.NewMemoryFeedCache()
	discussions := NewMockDiscussionsProvider()
	discussions.Add(2, 20, 200)
	discussions.Add(2, 21, 210)
	h := worker.NewHandler(feed, NewMockFollowerProvider(), discussions)

	_ = feed.Warm(ctx, 1, []cache.DiscussionScore{
		{DiscussionID: 5, Timestamp: 50},
		{DiscussionID: 20, Timestamp: 200},
		{DiscussionID: 21, Timestamp: 210},
	})

	if err := h.HandleEvent(ctx, queue.NewUserUnfollowedEvent(1, 2)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	ids := feedIDs(t, feed, 1)
	if len(ids) != 1 || ids[0] != 5 {
		t.Errorf("feed = %v, want [5]", ids)
	}
}

func TestHandler_Errors(t *testing.T) {
	ctx := context.Background()
	followers := NewMockFollowerProvider()
	followers.err = errors.New("db down")
	h := worker.NewHandler(cache.NewMemoryFeedCache(), followers, NewMockDiscussionsProvider())

	if err := h.HandleEvent(ctx, queue.Event{Type: "mystery"}); err == nil {
		t.Error("expected error for unknown event type")
	}
	if err := h.HandleEvent(ctx, queue.NewDiscussionCreatedEvent(1, 1, time.Now())); err == nil {
		t.Error("expected follower lookup error to surface")
	}
}

// =============================================================================
// Manager Tests
// =============================================================================

func TestManager_ProcessesAndAcksEverything(t *testing.T) {
	feed := cache.NewMemoryFeedCache()
	h := worker.NewHandler(feed, NewMockFollowerProvider(), NewMockDiscussionsProvider())

	consumer := &MockConsumer{
		pending: []queue.Message{
			{ID: "1-0", Event: queue.NewDiscussionCreatedEvent(10, 1, time.Unix(100, 0))},
		},
		batches: [][]queue.Message{{
			{ID: "2-0", Event: queue.NewDiscussionCreatedEvent(11, 1, time.Unix(101, 0))},
			{ID: "3-0", Event: queue.Event{Type: "mystery"}},
		}},
	}

	m := worker.NewManager(consumer, h, worker.ManagerConfig{WorkerCount: 1, BlockTimeout: 10 * time.Millisecond})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(consumer.Acked()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	acked := consumer.Acked()
	if len(acked) != 3 {
		t.Fatalf("acked = %v, want 3 messages including the failed one", acked)
	}

	ids := feedIDs(t, feed, 1)
	if len(ids) != 2 || ids[0] != 11 || ids[1] != 10 {
		t.Errorf("author feed = %v, want [11 10]", ids)
	}
}
