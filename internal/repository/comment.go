package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"forumhub/internal/model"
)

const commentColumns = `id, discussion_id, user_id, text, likes, created_at`

type commentRow struct {
	ID           string        `db:"id"`
	DiscussionID int64         `db:"discussion_id"`
	UserID       int64         `db:"user_id"`
	Text         string        `db:"text"`
	Likes        pq.Int64Array `db:"likes"`
	CreatedAt    time.Time     `db:"created_at"`
}

func (row commentRow) toModel() model.Comment {
	return model.Comment{
		ID:           row.ID,
		DiscussionID: row.DiscussionID,
		UserID:       row.UserID,
		Text:         row.Text,
		Likes:        nonNilIDs(row.Likes),
		CreatedAt:    row.CreatedAt,
	}
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Add(ctx context.Context, c *model.Comment) ([]model.Comment, error) {
	if c.ID == "" {
		c.ID = NewULID()
	}

	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO discussion_comments (id, discussion_id, user_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, c.ID, c.DiscussionID, c.UserID, c.Text).Scan(&c.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, model.ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("create comment: %w", err)
	}
	c.Likes = []int64{}

	return r.ListByDiscussion(ctx, c.DiscussionID)
}

func (r *commentRepository) Delete(ctx context.Context, discussionID int64, commentID string, userID int64) ([]model.Comment, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM discussion_comments
		WHERE discussion_id = $1 AND id = $2 AND user_id = $3
	`, discussionID, commentID, userID)
	if err != nil {
		return nil, fmt.Errorf("delete comment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, r.explainMiss(ctx, discussionID, commentID, model.ErrNotCommentOwner)
	}

	return r.ListByDiscussion(ctx, discussionID)
}

func (r *commentRepository) UpdateText(ctx context.Context, discussionID int64, commentID string, userID int64, text string) (*model.Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, `
		UPDATE discussion_comments
		SET text = $4
		WHERE discussion_id = $1 AND id = $2 AND user_id = $3
		RETURNING `+commentColumns, discussionID, commentID, userID, text)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMiss(ctx, discussionID, commentID, model.ErrNotCommentOwner)
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}

	c := row.toModel()
	return &c, nil
}

func (r *commentRepository) Like(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error) {
	var likes pq.Int64Array
	err := r.db.GetContext(ctx, &likes, `
		UPDATE discussion_comments
		SET likes = array_prepend($3::bigint, likes)
		WHERE discussion_id = $1 AND id = $2 AND NOT ($3 = ANY(likes))
		RETURNING likes
	`, discussionID, commentID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMiss(ctx, discussionID, commentID, model.ErrAlreadyLiked)
		}
		return nil, fmt.Errorf("like comment: %w", err)
	}
	return nonNilIDs(likes), nil
}

func (r *commentRepository) Unlike(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error) {
	var likes pq.Int64Array
	err := r.db.GetContext(ctx, &likes, `
		UPDATE discussion_comments
		SET likes = array_remove(likes, $3::bigint)
		WHERE discussion_id = $1 AND id = $2 AND $3 = ANY(likes)
		RETURNING likes
	`, discussionID, commentID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMiss(ctx, discussionID, commentID, model.ErrNotYetLiked)
		}
		return nil, fmt.Errorf("unlike comment: %w", err)
	}
	return nonNilIDs(likes), nil
}

func (r *commentRepository) ListByDiscussion(ctx context.Context, discussionID int64) ([]model.Comment, error) {
	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+commentColumns+`
		FROM discussion_comments
		WHERE discussion_id = $1
		ORDER BY created_at DESC, id DESC
	`, discussionID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]model.Comment, len(rows))
	for i, row := range rows {
		comments[i] = row.toModel()
	}
	return comments, nil
}

// ListByDiscussions loads comments for many discussions in one query.
func (r *commentRepository) ListByDiscussions(ctx context.Context, discussionIDs []int64) (map[int64][]model.Comment, error) {
	result := make(map[int64][]model.Comment, len(discussionIDs))
	if len(discussionIDs) == 0 {
		return result, nil
	}

	var rows []commentRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT `+commentColumns+`
		FROM discussion_comments
		WHERE discussion_id = ANY($1)
		ORDER BY discussion_id, created_at DESC, id DESC
	`, pq.Array(discussionIDs))
	if err != nil {
		return nil, fmt.Errorf("list comments for discussions: %w", err)
	}

	for _, row := range rows {
		result[row.DiscussionID] = append(result[row.DiscussionID], row.toModel())
	}
	return result, nil
}

// explainMiss tells apart the reasons a keyed comment write matched no row:
// missing discussion, missing comment, or the condition-specific error.
func (r *commentRepository) explainMiss(ctx context.Context, discussionID int64, commentID string, otherwise error) error {
	var found struct {
		Discussion bool `db:"discussion_exists"`
		Comment    bool `db:"comment_exists"`
	}
	err := r.db.GetContext(ctx, &found, `
		SELECT
			EXISTS(SELECT 1 FROM discussions WHERE id = $1) AS discussion_exists,
			EXISTS(SELECT 1 FROM discussion_comments WHERE discussion_id = $1 AND id = $2) AS comment_exists
	`, discussionID, commentID)
	if err != nil {
		return fmt.Errorf("check comment exists: %w", err)
	}

	switch {
	case !found.Discussion:
		return model.ErrDiscussionNotFound
	case !found.Comment:
		return model.ErrCommentNotFound
	default:
		return otherwise
	}
}
