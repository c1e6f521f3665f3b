package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"forumhub/internal/config"
	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/repository"
)

// ExpiredTokenRetention keeps expired refresh tokens around long enough for
// reuse detection to still recognise them.
const ExpiredTokenRetention = 7 * 24 * time.Hour

// AuthService mints access tokens and rotates refresh tokens, revoking the
// whole family when a revoked token is presented again.
type AuthService struct {
	refreshTokenRepo repository.RefreshTokenRepository
	config           *config.Config
}

func NewAuthService(refreshTokenRepo repository.RefreshTokenRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		refreshTokenRepo: refreshTokenRepo,
		config:           cfg,
	}
}

// GenerateTokenPair issues a new access token and persists a refresh token.
func (s *AuthService) GenerateTokenPair(ctx context.Context, userID int64, deviceInfo, ipAddress string) (*model.TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshTokenRaw := uuid.NewString()
	refreshToken := &model.RefreshToken{
		UserID:    userID,
		TokenHash: hashToken(refreshTokenRaw),
		ExpiresAt: time.Now().Add(time.Duration(s.config.RefreshTokenMaxAge) * time.Second),
	}
	if deviceInfo != "" {
		refreshToken.DeviceInfo = &deviceInfo
	}
	if ipAddress != "" {
		refreshToken.IPAddress = &ipAddress
	}

	if err := s.refreshTokenRepo.Create(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &model.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenRaw,
		ExpiresIn:    s.config.AccessTokenMaxAge,
	}, nil
}

// RefreshTokens validates the refresh token and rotates it into a new pair.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshTokenRaw, deviceInfo, ipAddress string) (*model.TokenPair, int64, error) {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		if !errors.Is(err, model.ErrRefreshTokenNotFound) {
			logger.Error.Printf("[AuthService] refresh token lookup failed: %v", err)
		}
		return nil, 0, model.ErrRefreshTokenNotFound
	}

	if token.IsRevoked() {
		logger.Warn.Printf("[AuthService] revoked refresh token presented: user=%d token=%s", token.UserID, token.ID)
		if err := s.refreshTokenRepo.RevokeAllForUser(ctx, token.UserID); err != nil {
			logger.Error.Printf("[AuthService] failed to revoke token family: user=%d err=%v", token.UserID, err)
		}
		return nil, 0, model.ErrRefreshTokenReused
	}

	if token.IsExpired() {
		return nil, 0, model.ErrRefreshTokenExpired
	}

	pair, err := s.GenerateTokenPair(ctx, token.UserID, deviceInfo, ipAddress)
	if err != nil {
		return nil, 0, err
	}

	var replacedBy *string
	if next, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(pair.RefreshToken)); err == nil {
		replacedBy = &next.ID
	}
	if err := s.refreshTokenRepo.Revoke(ctx, token.ID, replacedBy); err != nil {
		logger.Error.Printf("[AuthService] failed to revoke rotated token %s: %v", token.ID, err)
	}

	return pair, token.UserID, nil
}

// RevokeRefreshToken revokes one token; it must belong to userID.
func (s *AuthService) RevokeRefreshToken(ctx context.Context, userID int64, refreshTokenRaw string) error {
	token, err := s.refreshTokenRepo.FindByTokenHash(ctx, hashToken(refreshTokenRaw))
	if err != nil {
		return err
	}
	if token.UserID != userID {
		return model.ErrRefreshTokenNotFound
	}
	return s.refreshTokenRepo.Revoke(ctx, token.ID, nil)
}

func (s *AuthService) RevokeAllUserTokens(ctx context.Context, userID int64) error {
	return s.refreshTokenRepo.RevokeAllForUser(ctx, userID)
}

// PurgeExpiredTokens deletes refresh tokens that expired before the retention window.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := s.refreshTokenRepo.DeleteExpired(ctx, ExpiredTokenRetention)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logger.Info.Printf("[AuthService] purged %d expired refresh tokens", n)
	}
	return n, nil
}

func (s *AuthService) generateAccessToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(time.Duration(s.config.AccessTokenMaxAge) * time.Second).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
