package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"forumhub/internal/logger"
)

const (
	FeedCachePrefix = "feed:user:"

	// FeedCacheCap bounds the number of discussions kept per user.
	FeedCacheCap = 500

	FeedCacheTTL = 7 * 24 * time.Hour
)

// DiscussionScore pairs a discussion with its creation time in unix seconds,
// which is its score in the sorted set.
type DiscussionScore struct {
	DiscussionID int64
	Timestamp    int64
}

// FeedCache holds, per user, the ids of discussions written by the people
// they follow (and themselves), newest first.
type FeedCache interface {
	// Add trims the set back to FeedCacheCap and refreshes the TTL.
	Add(ctx context.Context, userID, discussionID int64, timestamp int64) error
	Remove(ctx context.Context, userID int64, discussionIDs ...int64) error
	// Get returns up to limit ids strictly older than cursorScore, or the
	// newest ones when cursorScore is nil.
	Get(ctx context.Context, userID int64, cursorScore *float64, limit int) (ids []int64, scores []float64, err error)
	Warm(ctx context.Context, userID int64, items []DiscussionScore) error
	Size(ctx context.Context, userID int64) (int64, error)
	// Exists is false for new users and expired keys; callers warm the cache then.
	Exists(ctx context.Context, userID int64) (bool, error)
}

// RedisFeedCache keeps one sorted set per user.
type RedisFeedCache struct {
	client *redis.Client
}

func NewFeedCache(client *redis.Client) FeedCache {
	return &RedisFeedCache{client: client}
}

func feedKey(userID int64) string {
	return fmt.Sprintf("%s%d", FeedCachePrefix, userID)
}

func (c *RedisFeedCache) Add(ctx context.Context, userID, discussionID int64, timestamp int64) error {
	key := feedKey(userID)

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(timestamp),
		Member: strconv.FormatInt(discussionID, 10),
	})
	// rank 0 is the oldest; keep the newest FeedCacheCap members
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add discussion to feed: %w", err)
	}

	logger.Debug.Printf("[FeedCache] Add user=%d discussion=%d", userID, discussionID)
	return nil
}

func (c *RedisFeedCache) Remove(ctx context.Context, userID int64, discussionIDs ...int64) error {
	if len(discussionIDs) == 0 {
		return nil
	}

	members := make([]interface{}, len(discussionIDs))
	for i, id := range discussionIDs {
		members[i] = strconv.FormatInt(id, 10)
	}

	removed, err := c.client.ZRem(ctx, feedKey(userID), members...).Result()
	if err != nil {
		return fmt.Errorf("remove discussions from feed: %w", err)
	}

	logger.Debug.Printf("[FeedCache] Remove user=%d requested=%d removed=%d", userID, len(discussionIDs), removed)
	return nil
}

func (c *RedisFeedCache) Get(ctx context.Context, userID int64, cursorScore *float64, limit int) ([]int64, []float64, error) {
	key := feedKey(userID)

	var results []redis.Z
	var err error
	if cursorScore == nil {
		results, err = c.client.ZRevRangeWithScores(ctx, key, 0, int64(limit-1)).Result()
	} else {
		results, err = c.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
			Min:   "-inf",
			Max:   fmt.Sprintf("(%f", *cursorScore),
			Count: int64(limit),
		}).Result()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get feed: %w", err)
	}

	c.client.Expire(ctx, key, FeedCacheTTL)

	ids := make([]int64, len(results))
	scores := make([]float64, len(results))
	for i, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			return nil, nil, fmt.Errorf("unexpected feed member %v", z.Member)
		}
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parse discussion id: %w", err)
		}
		ids[i] = id
		scores[i] = z.Score
	}
	return ids, scores, nil
}

func (c *RedisFeedCache) Warm(ctx context.Context, userID int64, items []DiscussionScore) error {
	if len(items) == 0 {
		return nil
	}

	key := feedKey(userID)
	members := make([]redis.Z, len(items))
	for i, it := range items {
		members[i] = redis.Z{
			Score:  float64(it.Timestamp),
			Member: strconv.FormatInt(it.DiscussionID, 10),
		}
	}

	pipe := c.client.Pipeline()
	pipe.ZAdd(ctx, key, members...)
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-FeedCacheCap-1))
	pipe.Expire(ctx, key, FeedCacheTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("warm feed: %w", err)
	}

	logger.Debug.Printf("[FeedCache] Warm user=%d items=%d", userID, len(items))
	return nil
}

func (c *RedisFeedCache) Size(ctx context.Context, userID int64) (int64, error) {
	size, err := c.client.ZCard(ctx, feedKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("get feed size: %w", err)
	}
	return size, nil
}

func (c *RedisFeedCache) Exists(ctx context.Context, userID int64) (bool, error) {
	n, err := c.client.Exists(ctx, feedKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("check feed exists: %w", err)
	}
	return n > 0, nil
}
