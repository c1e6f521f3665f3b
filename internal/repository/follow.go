package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"forumhub/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

// Follow stores the edge and both counters in one transaction, so a user is
// in B's followers exactly when B is in the user's following.
func (r *followRepository) Follow(ctx context.Context, followerID, followeeID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireUsers(ctx, tx, followerID, followeeID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followee_id) DO NOTHING
	`, followerID, followeeID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("failed to create follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrAlreadyFollowing
	}

	if err := adjustFollowCounts(ctx, tx, followerID, followeeID, 1); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := requireUsers(ctx, tx, followerID, followeeID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`, followerID, followeeID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrNotFollowing
	}

	if err := adjustFollowCounts(ctx, tx, followerID, followeeID, -1); err != nil {
		return err
	}

	return tx.Commit()
}

func requireUsers(ctx context.Context, tx *sqlx.Tx, ids ...int64) error {
	var found int
	err := tx.GetContext(ctx, &found, `SELECT COUNT(*) FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("check users exist: %w", err)
	}
	if found < len(ids) {
		return model.ErrUserNotFound
	}
	return nil
}

func adjustFollowCounts(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64, delta int) error {
	_, err := tx.ExecContext(ctx, `UPDATE users SET following_count = following_count + $1 WHERE id = $2`, delta, followerID)
	if err != nil {
		return fmt.Errorf("failed to update following count: %w", err)
	}
	_, err = tx.ExecContext(ctx, `UPDATE users SET follower_count = follower_count + $1 WHERE id = $2`, delta, followeeID)
	if err != nil {
		return fmt.Errorf("failed to update follower count: %w", err)
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, followerID, followeeID); err != nil {
		return false, fmt.Errorf("failed to check follow existence: %w", err)
	}
	return exists, nil
}

// GetFollowers pages through followers newest first. The cursor is the
// created_at of the last edge on the previous page; limit+1 rows are fetched
// to know whether another page exists.
func (r *followRepository) GetFollowers(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return r.page(ctx, "follower_id", "followee_id", userID, cursor, limit)
}

func (r *followRepository) GetFollowing(ctx context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return r.page(ctx, "followee_id", "follower_id", userID, cursor, limit)
}

// page lists the users on the `other` side of edges whose `self` column is userID.
func (r *followRepository) page(ctx context.Context, other, self string, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	query := fmt.Sprintf(`
		SELECT u.id, u.name, u.email, f.created_at
		FROM follows f
		JOIN users u ON u.id = f.%s
		WHERE f.%s = $1 AND ($2::timestamptz IS NULL OR f.created_at < $2)
		ORDER BY f.created_at DESC
		LIMIT $3
	`, other, self)

	type userWithTime struct {
		model.UserSummary
		CreatedAt time.Time `db:"created_at"`
	}

	var results []userWithTime
	if err := r.db.SelectContext(ctx, &results, query, userID, cursor, limit+1); err != nil {
		return nil, nil, fmt.Errorf("failed to list follows: %w", err)
	}

	var nextCursor *time.Time
	if len(results) > limit {
		results = results[:limit]
		nextCursor = &results[len(results)-1].CreatedAt
	}

	users := make([]model.UserSummary, 0, len(results))
	for _, res := range results {
		users = append(users, res.UserSummary)
	}
	return users, nextCursor, nil
}

func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(followeeIDs))
	if len(followeeIDs) == 0 {
		return result, nil
	}

	var followedIDs []int64
	query := `SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`
	if err := r.db.SelectContext(ctx, &followedIDs, query, followerID, pq.Array(followeeIDs)); err != nil {
		return nil, fmt.Errorf("failed to check follows: %w", err)
	}

	for _, id := range followeeIDs {
		result[id] = false
	}
	for _, id := range followedIDs {
		result[id] = true
	}
	return result, nil
}

func (r *followRepository) GetFollowerIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT follower_id FROM follows WHERE followee_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get follower ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.SelectContext(ctx, &ids, `SELECT followee_id FROM follows WHERE follower_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get followee ids: %w", err)
	}
	return ids, nil
}

func (r *followRepository) GetRelations(ctx context.Context, userIDs []int64) (map[int64]model.Relations, error) {
	result := make(map[int64]model.Relations, len(userIDs))
	for _, id := range userIDs {
		result[id] = model.Relations{Followers: []int64{}, Following: []int64{}}
	}
	if len(userIDs) == 0 {
		return result, nil
	}

	var edges []model.Follow
	query := `
		SELECT follower_id, followee_id, created_at
		FROM follows
		WHERE follower_id = ANY($1) OR followee_id = ANY($1)
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &edges, query, pq.Array(userIDs)); err != nil {
		return nil, fmt.Errorf("failed to get relations: %w", err)
	}

	for _, e := range edges {
		if rel, ok := result[e.FollowerID]; ok {
			rel.Following = append(rel.Following, e.FolloweeID)
			result[e.FollowerID] = rel
		}
		if rel, ok := result[e.FolloweeID]; ok {
			rel.Followers = append(rel.Followers, e.FollowerID)
			result[e.FolloweeID] = rel
		}
	}
	return result, nil
}
