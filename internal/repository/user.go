package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"forumhub/internal/model"
)

const userColumns = `id, name, mobile, email, password_hashed, follower_count, following_count, created_at, updated_at`

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (name, mobile, email, password_hashed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, follower_count, following_count, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query, u.Name, u.Mobile, u.Email, u.PasswordHashed).
		Scan(&u.ID, &u.FollowerCount, &u.FollowingCount, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.ErrEmailExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u model.User
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	var u model.User
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &u, nil
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}
	return exists, nil
}

func (r *userRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`

	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SearchByName matches pattern as a literal, case-insensitive substring.
func (r *userRepository) SearchByName(ctx context.Context, pattern string) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name ILIKE $1 ORDER BY id`

	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, query, containsPattern(pattern)); err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

// Update writes only the non-nil fields in a single statement.
func (r *userRepository) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE($2, name),
		    mobile = COALESCE($3, mobile),
		    email = COALESCE($4, email),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	err := r.db.GetContext(ctx, &u, query, id, req.Name, req.Mobile, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		if isUniqueViolation(err) {
			return nil, model.ErrEmailExists
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

func (r *userRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Row lock blocks concurrent follows of this user until we are done.
	var locked int64
	err = tx.GetContext(ctx, &locked, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("lock user: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET following_count = following_count - 1
		WHERE id IN (SELECT follower_id FROM follows WHERE followee_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("decrement following counts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET follower_count = follower_count - 1
		WHERE id IN (SELECT followee_id FROM follows WHERE follower_id = $1)
	`, id)
	if err != nil {
		return fmt.Errorf("decrement follower counts: %w", err)
	}

	// follows and refresh_tokens go with the row via ON DELETE CASCADE
	if _, err = tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	return tx.Commit()
}

func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	result := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var summaries []model.UserSummary
	err := r.db.SelectContext(ctx, &summaries, `SELECT id, name, email FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}

	for _, s := range summaries {
		result[s.ID] = s
	}
	return result, nil
}
