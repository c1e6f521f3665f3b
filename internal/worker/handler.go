package worker

import (
	"context"
	"fmt"

	"forumhub/internal/cache"
	"forumhub/internal/logger"
	"forumhub/internal/queue"
)

const (
	// followBackfillLimit is how many of the followee's latest discussions
	// land in the follower's feed right after a follow.
	followBackfillLimit = 20
	// unfollowRemoveLimit bounds the discussions pruned after an unfollow.
	unfollowRemoveLimit = 100
)

// FollowerProvider keeps the worker off the follow repository's full interface.
type FollowerProvider interface {
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
}

type RecentDiscussionsProvider interface {
	GetRecentByUser(ctx context.Context, userID int64, limit int) ([]cache.DiscussionScore, error)
}

// Handler applies stream events to the feed cache.
type Handler struct {
	feedCache   cache.FeedCache
	followers   FollowerProvider
	discussions RecentDiscussionsProvider
}

func NewHandler(feedCache cache.FeedCache, followers FollowerProvider, discussions RecentDiscussionsProvider) *Handler {
	return &Handler{
		feedCache:   feedCache,
		followers:   followers,
		discussions: discussions,
	}
}

func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	var err error
	switch event.Type {
	case queue.EventDiscussionCreated:
		err = h.handleDiscussionCreated(ctx, event)
	case queue.EventDiscussionDeleted:
		err = h.handleDiscussionDeleted(ctx, event)
	case queue.EventUserFollowed:
		err = h.handleUserFollowed(ctx, event)
	case queue.EventUserUnfollowed:
		err = h.handleUserUnfollowed(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", event.Type, err)
	}
	return nil
}

// handleDiscussionCreated fans the discussion out to the author and every
// follower. A failure for one follower does not stop the rest.
func (h *Handler) handleDiscussionCreated(ctx context.Context, event queue.Event) error {
	followers, err := h.followers.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	score := event.CreatedAt
	if score == 0 {
		score = event.Timestamp
	}

	var failed int
	for _, userID := range append(followers, event.AuthorID) {
		if err := h.feedCache.Add(ctx, userID, event.DiscussionID, score); err != nil {
			logger.Warn.Printf("[Worker] fan-out discussion=%d user=%d: %v", event.DiscussionID, userID, err)
			failed++
		}
	}

	logger.Debug.Printf("[Worker] discussion=%d fanned out to %d feeds (%d failed)",
		event.DiscussionID, len(followers)+1, failed)
	return nil
}

func (h *Handler) handleDiscussionDeleted(ctx context.Context, event queue.Event) error {
	followers, err := h.followers.GetFollowerIDs(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("get followers: %w", err)
	}

	for _, userID := range append(followers, event.AuthorID) {
		if err := h.feedCache.Remove(ctx, userID, event.DiscussionID); err != nil {
			logger.Warn.Printf("[Worker] remove discussion=%d user=%d: %v", event.DiscussionID, userID, err)
		}
	}
	return nil
}

func (h *Handler) handleUserFollowed(ctx context.Context, event queue.Event) error {
	recent, err := h.discussions.GetRecentByUser(ctx, event.FolloweeID, followBackfillLimit)
	if err != nil {
		return fmt.Errorf("get recent discussions: %w", err)
	}

	// An absent feed is warmed in full on the next read, so only backfill
	// feeds that already exist.
	exists, err := h.feedCache.Exists(ctx, event.FollowerID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	return h.feedCache.Warm(ctx, event.FollowerID, recent)
}

func (h *Handler) handleUserUnfollowed(ctx context.Context, event queue.Event) error {
	recent, err := h.discussions.GetRecentByUser(ctx, event.FolloweeID, unfollowRemoveLimit)
	if err != nil {
		return fmt.Errorf("get discussions to remove: %w", err)
	}
	if len(recent) == 0 {
		return nil
	}

	ids := make([]int64, len(recent))
	for i, d := range recent {
		ids[i] = d.DiscussionID
	}
	return h.feedCache.Remove(ctx, event.FollowerID, ids...)
}
