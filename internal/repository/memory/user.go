package memory

import (
	"context"
	"sort"
	"strings"

	"forumhub/internal/model"
)

type userRepo struct{ s *Store }

func cloneUser(u *model.User) *model.User {
	c := *u
	c.Followers = nil
	c.Following = nil
	return &c
}

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return model.ErrEmailExists
		}
	}

	r.s.nextUserID++
	now := r.s.now()
	u.ID = r.s.nextUserID
	u.FollowerCount = 0
	u.FollowingCount = 0
	u.CreatedAt = now
	u.UpdatedAt = now

	r.s.users[u.ID] = cloneUser(u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, model.ErrUserNotFound
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(ctx, email)
	if err == model.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *userRepo) List(_ context.Context) ([]model.User, error) {
	return r.filter(func(*model.User) bool { return true }), nil
}

func (r *userRepo) SearchByName(_ context.Context, pattern string) ([]model.User, error) {
	needle := strings.ToLower(pattern)
	return r.filter(func(u *model.User) bool {
		return strings.Contains(strings.ToLower(u.Name), needle)
	}), nil
}

func (r *userRepo) filter(keep func(*model.User) bool) []model.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := []model.User{}
	for _, u := range r.s.users {
		if keep(u) {
			users = append(users, *cloneUser(u))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (r *userRepo) Update(_ context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if req.Email != nil {
		for otherID, other := range r.s.users {
			if otherID != id && other.Email == *req.Email {
				return nil, model.ErrEmailExists
			}
		}
		u.Email = *req.Email
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	if req.Mobile != nil {
		u.Mobile = *req.Mobile
	}
	u.UpdatedAt = r.s.now()

	return cloneUser(u), nil
}

func (r *userRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return model.ErrUserNotFound
	}

	for k := range r.s.follows {
		switch id {
		case k.followee:
			r.s.users[k.follower].FollowingCount--
		case k.follower:
			r.s.users[k.followee].FollowerCount--
		default:
			continue
		}
		delete(r.s.follows, k)
	}
	for tokenID, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, tokenID)
		}
	}
	delete(r.s.users, id)
	return nil
}

func (r *userRepo) GetSummaries(_ context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64]model.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = model.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return out, nil
}
