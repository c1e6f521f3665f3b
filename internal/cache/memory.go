package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryFeedCache is a process-local FeedCache with the same ordering and cap
// as the Redis one. It has no TTL.
type MemoryFeedCache struct {
	mu    sync.Mutex
	feeds map[int64]map[int64]int64
}

func NewMemoryFeedCache() *MemoryFeedCache {
	return &MemoryFeedCache{feeds: make(map[int64]map[int64]int64)}
}

func (c *MemoryFeedCache) Add(_ context.Context, userID, discussionID int64, timestamp int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	feed := c.feed(userID)
	feed[discussionID] = timestamp
	c.trim(feed)
	return nil
}

func (c *MemoryFeedCache) Remove(_ context.Context, userID int64, discussionIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if feed, ok := c.feeds[userID]; ok {
		for _, id := range discussionIDs {
			delete(feed, id)
		}
	}
	return nil
}

func (c *MemoryFeedCache) Get(_ context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := []int64{}
	scores := []float64{}
	for _, it := range sorted(c.feeds[userID]) {
		if cursorScore != nil && float64(it.Timestamp) >= *cursorScore {
			continue
		}
		if len(ids) == limit {
			break
		}
		ids = append(ids, it.DiscussionID)
		scores = append(scores, float64(it.Timestamp))
	}
	return ids, scores, nil
}

func (c *MemoryFeedCache) Warm(_ context.Context, userID int64, items []DiscussionScore) error {
	if len(items) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	feed := c.feed(userID)
	for _, it := range items {
		feed[it.DiscussionID] = it.Timestamp
	}
	c.trim(feed)
	return nil
}

func (c *MemoryFeedCache) Size(_ context.Context, userID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.feeds[userID])), nil
}

func (c *MemoryFeedCache) Exists(_ context.Context, userID int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.feeds[userID]
	return ok, nil
}

func (c *MemoryFeedCache) feed(userID int64) map[int64]int64 {
	feed, ok := c.feeds[userID]
	if !ok {
		feed = make(map[int64]int64)
		c.feeds[userID] = feed
	}
	return feed
}

func (c *MemoryFeedCache) trim(feed map[int64]int64) {
	items := sorted(feed)
	for _, it := range items[min(len(items), FeedCacheCap):] {
		delete(feed, it.DiscussionID)
	}
}

// sorted orders by score then id, both descending, like ZREVRANGE.
func sorted(feed map[int64]int64) []DiscussionScore {
	items := make([]DiscussionScore, 0, len(feed))
	for id, ts := range feed {
		items = append(items, DiscussionScore{DiscussionID: id, Timestamp: ts})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp != items[j].Timestamp {
			return items[i].Timestamp > items[j].Timestamp
		}
		return items[i].DiscussionID > items[j].DiscussionID
	})
	return items
}
