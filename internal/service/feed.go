package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"forumhub/internal/cache"
	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/repository"
)

const (
	// FeedDefaultLimit is the default number of discussions per page
	FeedDefaultLimit = 10

	// FeedMaxLimit is the maximum number of discussions per page
	FeedMaxLimit = 50
)

type FeedService struct {
	feedCache      cache.FeedCache
	discussionRepo repository.DiscussionRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	userRepo       repository.UserRepository
}

func NewFeedService(
	feedCache cache.FeedCache,
	discussionRepo repository.DiscussionRepository,
	commentRepo repository.CommentRepository,
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
) *FeedService {
	return &FeedService{
		feedCache:      feedCache,
		discussionRepo: discussionRepo,
		commentRepo:    commentRepo,
		followRepo:     followRepo,
		userRepo:       userRepo,
	}
}

// GetFeed pages through the discussions of everyone userID follows plus
// their own, newest first.
//
// Flow:
// 1. Warm the cache from Postgres when the user has none
// 2. Read ids older than the cursor from the sorted set
// 3. Hydrate the ids from Postgres, dropping ones deleted since
func (s *FeedService) GetFeed(ctx context.Context, userID int64, cursor *string, limit int) (*model.FeedResponse, error) {
	startTime := time.Now()

	if limit <= 0 {
		limit = FeedDefaultLimit
	}
	if limit > FeedMaxLimit {
		limit = FeedMaxLimit
	}

	var cursorScore *float64
	if cursor != nil {
		score, _, err := parseFeedCursor(*cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cursor: %v", model.ErrValidation, err)
		}
		cursorScore = &score
	}

	exists, err := s.feedCache.Exists(ctx, userID)
	if err != nil {
		logger.Warn.Printf("[FeedService] Cache check failed for user=%d: %v", userID, err)
	}
	if !exists {
		logger.Debug.Printf("[FeedService] Cache miss for user=%d, warming", userID)
		if err := s.warmCache(ctx, userID); err != nil {
			logger.Warn.Printf("[FeedService] Cache warm failed for user=%d: %v", userID, err)
		}
	}

	ids, scores, err := s.feedCache.Get(ctx, userID, cursorScore, limit)
	if err != nil {
		return nil, fmt.Errorf("get feed from cache: %w", err)
	}
	if len(ids) == 0 {
		return &model.FeedResponse{Discussions: []model.Discussion{}}, nil
	}

	discussions, err := s.discussionRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate discussions: %w", err)
	}
	ptrs := make([]*model.Discussion, len(discussions))
	for i := range discussions {
		ptrs[i] = &discussions[i]
	}
	if err := hydrateDiscussions(ctx, s.commentRepo, s.userRepo, ptrs); err != nil {
		return nil, err
	}

	// A full page of ids may have more behind it even if some were deleted.
	resp := &model.FeedResponse{Discussions: discussions, HasMore: len(ids) == limit}
	if resp.HasMore {
		c := formatFeedCursor(scores[len(scores)-1], ids[len(ids)-1])
		resp.NextCursor = &c
	}

	logger.Debug.Printf("[FeedService] GetFeed user=%d discussions=%d hasMore=%v duration=%v",
		userID, len(discussions), resp.HasMore, time.Since(startTime))
	return resp, nil
}

// warmCache fills the user's feed from Postgres, capped at the cache size.
func (s *FeedService) warmCache(ctx context.Context, userID int64) error {
	followeeIDs, err := s.followRepo.GetFolloweeIDs(ctx, userID)
	if err != nil {
		return fmt.Errorf("get followee ids: %w", err)
	}
	ownerIDs := append(followeeIDs, userID)

	items, err := s.discussionRepo.GetFeedIDs(ctx, ownerIDs, cache.FeedCacheCap)
	if err != nil {
		return fmt.Errorf("get feed ids: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	if err := s.feedCache.Warm(ctx, userID, items); err != nil {
		return fmt.Errorf("warm cache: %w", err)
	}
	logger.Debug.Printf("[FeedService] Cache warmed: user=%d discussions=%d", userID, len(items))
	return nil
}

// parseFeedCursor parses an "id:timestamp" cursor and returns the timestamp
// as a score together with the discussion id.
func parseFeedCursor(cursor string) (float64, int64, error) {
	parts := strings.Split(cursor, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected id:timestamp")
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad discussion id: %w", err)
	}
	score, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("bad timestamp: %w", err)
	}
	return score, id, nil
}

func formatFeedCursor(score float64, id int64) string {
	return fmt.Sprintf("%d:%.0f", id, score)
}
