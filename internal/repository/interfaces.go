package repository

import (
	"context"
	"time"

	"forumhub/internal/cache"
	"forumhub/internal/model"
)

type UserRepository interface {
	// Create returns model.ErrEmailExists when the email is taken.
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	SearchByName(ctx context.Context, pattern string) ([]model.User, error)
	Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error)
	// Delete removes the user and its follow edges, adjusting the counters of
	// everyone on the other side of those edges.
	Delete(ctx context.Context, id int64) error
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

type FollowRepository interface {
	// Follow inserts the edge and bumps both counters in one transaction.
	Follow(ctx context.Context, followerID, followeeID int64) error
	Unfollow(ctx context.Context, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error)
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
	// GetRelations loads both sides of the graph for every user in one query.
	GetRelations(ctx context.Context, userIDs []int64) (map[int64]model.Relations, error)
}

type DiscussionRepository interface {
	Create(ctx context.Context, d *model.Discussion) error
	// GetByID does not load comments.
	GetByID(ctx context.Context, id int64) (*model.Discussion, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Discussion, error)
	// Update applies changes only when ownerID owns the discussion and returns
	// the updated row together with the image key it replaced.
	Update(ctx context.Context, id, ownerID int64, changes model.DiscussionChanges) (*model.Discussion, string, error)
	// Delete removes the discussion and, through the foreign key, its comments.
	Delete(ctx context.Context, id, ownerID int64) (*model.Discussion, error)
	List(ctx context.Context, filter model.DiscussionFilter) ([]model.Discussion, error)
	Like(ctx context.Context, id, userID int64) ([]int64, error)
	Unlike(ctx context.Context, id, userID int64) ([]int64, error)
	IncrementViews(ctx context.Context, id int64) (int64, error)
	GetRecentByUser(ctx context.Context, userID int64, limit int) ([]cache.DiscussionScore, error)
	GetFeedIDs(ctx context.Context, ownerIDs []int64, limit int) ([]cache.DiscussionScore, error)
}

type CommentRepository interface {
	// Add returns the discussion's comments after the insert, newest first.
	Add(ctx context.Context, c *model.Comment) ([]model.Comment, error)
	// Delete returns the remaining comments.
	Delete(ctx context.Context, discussionID int64, commentID string, userID int64) ([]model.Comment, error)
	UpdateText(ctx context.Context, discussionID int64, commentID string, userID int64, text string) (*model.Comment, error)
	Like(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error)
	Unlike(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error)
	ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Comment, error)
	ListByDiscussions(ctx context.Context, discussionIDs []int64) (map[int64][]model.Comment, error)
}
