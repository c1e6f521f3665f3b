package service

import (
	"context"
	"time"

	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/queue"
	"forumhub/internal/repository"
)

const (
	FollowListDefaultLimit = 20
	FollowListMaxLimit     = 100
)

type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	publisher  queue.Publisher
}

// NewFollowService accepts a nil publisher; feeds then only refresh on warm.
func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	publisher queue.Publisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		publisher:  publisher,
	}
}

// Follow adds the edge and both counters in one store transaction, then
// publishes UserFollowed so the worker can backfill the follower's feed.
func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	if err := s.followRepo.Follow(ctx, followerID, followeeID); err != nil {
		return err
	}

	s.publish(ctx, queue.NewUserFollowedEvent(followerID, followeeID))
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}

	if err := s.followRepo.Unfollow(ctx, followerID, followeeID); err != nil {
		return err
	}

	s.publish(ctx, queue.NewUserUnfollowedEvent(followerID, followeeID))
	return nil
}

// publish runs after the store write has committed. A failure only delays
// the feed update, so it is logged and swallowed.
func (s *FollowService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	msgID, err := s.publisher.Publish(ctx, event)
	if err != nil {
		logger.Warn.Printf("[FollowService] Failed to publish %s: follower=%d followee=%d err=%v",
			event.Type, event.FollowerID, event.FolloweeID, err)
		return
	}
	logger.Debug.Printf("[FollowService] Published %s: follower=%d followee=%d msgID=%s",
		event.Type, event.FollowerID, event.FolloweeID, msgID)
}

// GetFollowers pages through userID's followers, newest edge first. The
// cursor is the RFC3339Nano time of the last edge on the previous page.
func (s *FollowService) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.list(ctx, userID, cursor, limit, viewerID, s.followRepo.GetFollowers)
}

func (s *FollowService) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error) {
	return s.list(ctx, userID, cursor, limit, viewerID, s.followRepo.GetFollowing)
}

type pageFunc func(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)

func (s *FollowService) list(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64, page pageFunc) (*model.FollowListResponse, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = FollowListDefaultLimit
	}
	if limit > FollowListMaxLimit {
		limit = FollowListMaxLimit
	}

	users, next, err := page(ctx, userID, cursor, limit)
	if err != nil {
		return nil, err
	}

	if viewerID != nil {
		users = s.enrichWithFollowStatus(ctx, *viewerID, users)
	}

	resp := &model.FollowListResponse{Users: users, HasMore: next != nil}
	if next != nil {
		str := next.Format(time.RFC3339Nano)
		resp.NextCursor = &str
	}
	return resp, nil
}

// enrichWithFollowStatus checks every listed user in one query. A failed
// check leaves is_following false rather than failing the listing.
func (s *FollowService) enrichWithFollowStatus(ctx context.Context, viewerID int64, users []model.UserSummary) []model.UserSummary {
	if len(users) == 0 {
		return users
	}

	userIDs := make([]int64, len(users))
	for i, user := range users {
		userIDs[i] = user.ID
	}

	followMap, err := s.followRepo.CheckFollows(ctx, viewerID, userIDs)
	if err != nil {
		logger.Warn.Printf("[FollowService] CheckFollows failed: viewer=%d err=%v", viewerID, err)
		return users
	}

	for i := range users {
		users[i].IsFollowing = followMap[users[i].ID]
	}
	return users
}
