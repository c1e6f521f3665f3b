package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"forumhub/internal/model"
)

const refreshTokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by, device_info, ip_address`

type refreshTokenRepository struct {
	db *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	id := uuid.NewString()
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, device_info, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		id, token.UserID, token.TokenHash, token.ExpiresAt, token.DeviceInfo, token.IPAddress,
	).Scan(&token.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrUserNotFound
		}
		return fmt.Errorf("insert refresh token for user %d: %w", token.UserID, err)
	}
	token.ID = id
	return nil
}

func (r *refreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var token model.RefreshToken
	err := r.db.GetContext(ctx, &token,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, model.ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("select refresh token: %w", err)
	}
	return &token, nil
}

// Revoke marks one live token revoked and records its successor, if any.
// Tokens revoked earlier keep their original timestamp and link.
func (r *refreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	return r.revoke(ctx, "id = $1", id, replacedBy)
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	return r.revoke(ctx, "user_id = $1", userID, nil)
}

func (r *refreshTokenRepository) revoke(ctx context.Context, where string, key interface{}, replacedBy *string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = NOW(), replaced_by = COALESCE($2, replaced_by)
		WHERE `+where+` AND revoked_at IS NULL`,
		key, replacedBy)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens (%s): %w", where, err)
	}
	return nil
}

// DeleteExpired drops tokens whose expiry lies more than olderThan in the past.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
