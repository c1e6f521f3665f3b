package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"forumhub/internal/cache"
	"forumhub/internal/model"
)

const discussionColumns = `id, user_id, text, image_url, image_key, hashtags, likes, views, created_at, updated_at`

type discussionRow struct {
	ID        int64          `db:"id"`
	UserID    int64          `db:"user_id"`
	Text      string         `db:"text"`
	ImageURL  string         `db:"image_url"`
	ImageKey  string         `db:"image_key"`
	Hashtags  pq.StringArray `db:"hashtags"`
	Likes     pq.Int64Array  `db:"likes"`
	Views     int64          `db:"views"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (row discussionRow) toModel() model.Discussion {
	d := model.Discussion{
		ID:        row.ID,
		UserID:    row.UserID,
		Text:      row.Text,
		Image:     row.ImageURL,
		ImageKey:  row.ImageKey,
		Hashtags:  []string(row.Hashtags),
		Likes:     []int64(row.Likes),
		Comments:  []model.Comment{},
		Views:     row.Views,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if d.Hashtags == nil {
		d.Hashtags = []string{}
	}
	if d.Likes == nil {
		d.Likes = []int64{}
	}
	return d
}

type discussionRepository struct {
	db *sqlx.DB
}

func NewDiscussionRepository(db *sqlx.DB) DiscussionRepository {
	return &discussionRepository{db: db}
}

func (r *discussionRepository) Create(ctx context.Context, d *model.Discussion) error {
	query := `
		INSERT INTO discussions (user_id, text, image_url, image_key, hashtags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + discussionColumns

	var row discussionRow
	err := r.db.GetContext(ctx, &row, query, d.UserID, d.Text, d.Image, d.ImageKey, pq.Array(d.Hashtags))
	if err != nil {
		return fmt.Errorf("create discussion: %w", err)
	}

	*d = row.toModel()
	return nil
}

func (r *discussionRepository) GetByID(ctx context.Context, id int64) (*model.Discussion, error) {
	var row discussionRow
	err := r.db.GetContext(ctx, &row, `SELECT `+discussionColumns+` FROM discussions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrDiscussionNotFound
		}
		return nil, fmt.Errorf("get discussion: %w", err)
	}

	d := row.toModel()
	return &d, nil
}

// GetByIDs keeps the order of ids and silently skips ids that no longer exist.
func (r *discussionRepository) GetByIDs(ctx context.Context, ids []int64) ([]model.Discussion, error) {
	if len(ids) == 0 {
		return []model.Discussion{}, nil
	}

	var rows []discussionRow
	err := r.db.SelectContext(ctx, &rows, `SELECT `+discussionColumns+` FROM discussions WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get discussions by ids: %w", err)
	}

	byID := make(map[int64]model.Discussion, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.toModel()
	}

	ordered := make([]model.Discussion, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			ordered = append(ordered, d)
		}
	}
	return ordered, nil
}

func (r *discussionRepository) Update(ctx context.Context, id, ownerID int64, changes model.DiscussionChanges) (*model.Discussion, string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current struct {
		UserID   int64  `db:"user_id"`
		ImageKey string `db:"image_key"`
	}
	err = tx.GetContext(ctx, &current, `SELECT user_id, image_key FROM discussions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", model.ErrDiscussionNotFound
		}
		return nil, "", fmt.Errorf("lock discussion: %w", err)
	}
	if current.UserID != ownerID {
		return nil, "", model.ErrNotDiscussionOwner
	}

	var row discussionRow
	err = tx.GetContext(ctx, &row, `
		UPDATE discussions
		SET text = $2, hashtags = $3, image_url = $4, image_key = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+discussionColumns,
		id, changes.Text, pq.Array(changes.Hashtags), changes.ImageURL, changes.ImageKey)
	if err != nil {
		return nil, "", fmt.Errorf("update discussion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("commit: %w", err)
	}

	d := row.toModel()
	return &d, current.ImageKey, nil
}

func (r *discussionRepository) Delete(ctx context.Context, id, ownerID int64) (*model.Discussion, error) {
	var row discussionRow
	err := r.db.GetContext(ctx, &row, `
		DELETE FROM discussions
		WHERE id = $1 AND user_id = $2
		RETURNING `+discussionColumns, id, ownerID)
	if err == nil {
		d := row.toModel()
		return &d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("delete discussion: %w", err)
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, model.ErrNotDiscussionOwner
	}
	return nil, model.ErrDiscussionNotFound
}

func (r *discussionRepository) List(ctx context.Context, filter model.DiscussionFilter) ([]model.Discussion, error) {
	query := `SELECT ` + discussionColumns + ` FROM discussions`
	var args []interface{}

	switch {
	case filter.Tag != "":
		query += ` WHERE $1 = ANY(hashtags)`
		args = append(args, filter.Tag)
	case filter.Text != "":
		query += ` WHERE text ILIKE $1`
		args = append(args, containsPattern(filter.Text))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	var rows []discussionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list discussions: %w", err)
	}

	discussions := make([]model.Discussion, len(rows))
	for i, row := range rows {
		discussions[i] = row.toModel()
	}
	return discussions, nil
}

// Like prepends userID to likes unless it is already there. The membership
// test and the write are one statement, so concurrent likes cannot duplicate.
func (r *discussionRepository) Like(ctx context.Context, id, userID int64) ([]int64, error) {
	var likes pq.Int64Array
	err := r.db.GetContext(ctx, &likes, `
		UPDATE discussions
		SET likes = array_prepend($2::bigint, likes)
		WHERE id = $1 AND NOT ($2 = ANY(likes))
		RETURNING likes
	`, id, userID)
	if err == nil {
		return nonNilIDs(likes), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("like discussion: %w", err)
	}
	return nil, r.missOrConflict(ctx, id, model.ErrAlreadyLiked)
}

func (r *discussionRepository) Unlike(ctx context.Context, id, userID int64) ([]int64, error) {
	var likes pq.Int64Array
	err := r.db.GetContext(ctx, &likes, `
		UPDATE discussions
		SET likes = array_remove(likes, $2::bigint)
		WHERE id = $1 AND $2 = ANY(likes)
		RETURNING likes
	`, id, userID)
	if err == nil {
		return nonNilIDs(likes), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("unlike discussion: %w", err)
	}
	return nil, r.missOrConflict(ctx, id, model.ErrNotYetLiked)
}

func (r *discussionRepository) IncrementViews(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := r.db.GetContext(ctx, &views, `UPDATE discussions SET views = views + 1 WHERE id = $1 RETURNING views`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrDiscussionNotFound
		}
		return 0, fmt.Errorf("increment views: %w", err)
	}
	return views, nil
}

// GetRecentByUser feeds the follow backfill.
func (r *discussionRepository) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]cache.DiscussionScore, error) {
	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS timestamp
		FROM discussions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.scores(ctx, query, userID, limit)
}

// GetFeedIDs is used to warm an empty feed cache.
func (r *discussionRepository) GetFeedIDs(ctx context.Context, ownerIDs []int64, limit int) ([]cache.DiscussionScore, error) {
	if len(ownerIDs) == 0 {
		return []cache.DiscussionScore{}, nil
	}

	query := `
		SELECT id, EXTRACT(EPOCH FROM created_at)::bigint AS timestamp
		FROM discussions
		WHERE user_id = ANY($1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.scores(ctx, query, pq.Array(ownerIDs), limit)
}

func (r *discussionRepository) scores(ctx context.Context, query string, args ...interface{}) ([]cache.DiscussionScore, error) {
	type row struct {
		ID        int64 `db:"id"`
		Timestamp int64 `db:"timestamp"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("get discussion scores: %w", err)
	}

	scores := make([]cache.DiscussionScore, len(rows))
	for i, rw := range rows {
		scores[i] = cache.DiscussionScore{DiscussionID: rw.ID, Timestamp: rw.Timestamp}
	}
	return scores, nil
}

func (r *discussionRepository) exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM discussions WHERE id = $1)`, id); err != nil {
		return false, fmt.Errorf("check discussion exists: %w", err)
	}
	return exists, nil
}

// missOrConflict explains why a conditional update touched no row.
func (r *discussionRepository) missOrConflict(ctx context.Context, id int64, conflict error) error {
	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return model.ErrDiscussionNotFound
	}
	return conflict
}

func nonNilIDs(ids pq.Int64Array) []int64 {
	if ids == nil {
		return []int64{}
	}
	return []int64(ids)
}
