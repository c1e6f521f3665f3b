package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/repository"
	"forumhub/internal/validate"
)

// UserService handles accounts and profile reads. Profiles always carry both
// sides of the follow graph.
type UserService struct {
	repo       repository.UserRepository
	followRepo repository.FollowRepository
}

func NewUserService(repo repository.UserRepository, followRepo repository.FollowRepository) *UserService {
	return &UserService{
		repo:       repo,
		followRepo: followRepo,
	}
}

// Signup creates an account. Tokens are minted by the caller through AuthService.
func (s *UserService) Signup(ctx context.Context, req *model.SignupRequest) (*model.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Mobile = strings.TrimSpace(req.Mobile)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, model.ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:           req.Name,
		Mobile:         req.Mobile,
		Email:          req.Email,
		PasswordHashed: string(hashedPassword),
		Followers:      []int64{},
		Following:      []int64{},
	}
	// Create still reports ErrEmailExists when a concurrent signup wins.
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	logger.Info.Printf("[UserService] user %d signed up", user.ID)
	return user, nil
}

// Login checks the password. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, req *model.LoginRequest) (*model.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			logger.Error.Printf("[UserService] login lookup failed: %v", err)
		}
		return nil, model.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHashed), []byte(req.Password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := s.hydrate(ctx, []*model.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile returns a user with followers and following filled in.
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*model.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, users)
}

// Search matches name case-insensitively as a substring.
func (s *UserService) Search(ctx context.Context, name string) ([]model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}

	users, err := s.repo.SearchByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.hydrateAll(ctx, users)
}

// Update applies a partial profile edit. A missing target is reported before
// an ownership mismatch.
func (s *UserService) Update(ctx context.Context, targetID, callerID int64, req model.UpdateUserRequest) (*model.User, error) {
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		return nil, err
	}
	if targetID != callerID {
		return nil, model.ErrNotAccountOwner
	}

	if err := normalizeUpdate(&req); err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		return s.GetProfile(ctx, targetID)
	}

	user, err := s.repo.Update(ctx, targetID, req)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*model.User{user}); err != nil {
		return nil, err
	}
	return user, nil
}

func normalizeUpdate(req *model.UpdateUserRequest) error {
	for _, field := range []*string{req.Name, req.Mobile, req.Email} {
		if field != nil {
			*field = strings.TrimSpace(*field)
		}
	}
	if req.Name != nil && *req.Name == "" {
		return fmt.Errorf("%w: name cannot be empty", model.ErrValidation)
	}
	if req.Email != nil && *req.Email == "" {
		return fmt.Errorf("%w: email cannot be empty", model.ErrValidation)
	}
	return validate.Struct(req)
}

// Delete removes the account together with its follow edges and sessions.
// Discussions and comments the user wrote are left in place.
func (s *UserService) Delete(ctx context.Context, targetID, callerID int64) error {
	if _, err := s.repo.GetByID(ctx, targetID); err != nil {
		return err
	}
	if targetID != callerID {
		return model.ErrNotAccountOwner
	}

	if err := s.repo.Delete(ctx, targetID); err != nil {
		return err
	}
	logger.Info.Printf("[UserService] user %d deleted", targetID)
	return nil
}

func (s *UserService) hydrateAll(ctx context.Context, users []model.User) ([]model.User, error) {
	ptrs := make([]*model.User, len(users))
	for i := range users {
		ptrs[i] = &users[i]
	}
	if err := s.hydrate(ctx, ptrs); err != nil {
		return nil, err
	}
	return users, nil
}

// hydrate loads follow relations for every user in one query.
func (s *UserService) hydrate(ctx context.Context, users []*model.User) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}

	relations, err := s.followRepo.GetRelations(ctx, ids)
	if err != nil {
		return fmt.Errorf("load relations: %w", err)
	}

	for _, u := range users {
		rel := relations[u.ID]
		u.Followers = nonNil(rel.Followers)
		u.Following = nonNil(rel.Following)
	}
	return nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
