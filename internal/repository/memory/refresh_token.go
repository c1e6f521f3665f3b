package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"forumhub/internal/model"
)

type tokenRepo struct{ s *Store }

func (r *tokenRepo) Create(_ context.Context, token *model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	token.ID = uuid.NewString()
	token.CreatedAt = r.s.now()

	stored := *token
	r.s.tokens[token.ID] = &stored
	return nil
}

func (r *tokenRepo) FindByTokenHash(_ context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.tokens {
		if t.TokenHash == tokenHash {
			out := *t
			return &out, nil
		}
	}
	return nil, model.ErrRefreshTokenNotFound
}

func (r *tokenRepo) Revoke(_ context.Context, id string, replacedBy *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[id]
	if !ok || t.RevokedAt != nil {
		return nil
	}
	now := r.s.now()
	t.RevokedAt = &now
	t.ReplacedBy = replacedBy
	return nil
}

func (r *tokenRepo) RevokeAllForUser(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, t := range r.s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			revokedAt := now
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *tokenRepo) DeleteExpired(_ context.Context, olderThan time.Duration) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var n int64
	for id, t := range r.s.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}
