package memory

import (
	"context"
	"sort"
	"time"

	"forumhub/internal/model"
)

type followRepo struct{ s *Store }

func (r *followRepo) Follow(_ context.Context, followerID, followeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	follower, ok1 := r.s.users[followerID]
	followee, ok2 := r.s.users[followeeID]
	if !ok1 || !ok2 {
		return model.ErrUserNotFound
	}

	key := followKey{followerID, followeeID}
	if _, exists := r.s.follows[key]; exists {
		return model.ErrAlreadyFollowing
	}

	r.s.follows[key] = r.s.now()
	follower.FollowingCount++
	followee.FollowerCount++
	return nil
}

func (r *followRepo) Unfollow(_ context.Context, followerID, followeeID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	follower, ok1 := r.s.users[followerID]
	followee, ok2 := r.s.users[followeeID]
	if !ok1 || !ok2 {
		return model.ErrUserNotFound
	}

	key := followKey{followerID, followeeID}
	if _, exists := r.s.follows[key]; !exists {
		return model.ErrNotFollowing
	}

	delete(r.s.follows, key)
	follower.FollowingCount--
	followee.FollowerCount--
	return nil
}

func (r *followRepo) Exists(_ context.Context, followerID, followeeID int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	_, ok := r.s.follows[followKey{followerID, followeeID}]
	return ok, nil
}

type edge struct {
	other     int64
	createdAt time.Time
}

// edges lists the other side of userID's edges, newest first. Callers hold s.mu.
func (r *followRepo) edges(userID int64, followers bool) []edge {
	var out []edge
	for k, at := range r.s.follows {
		switch {
		case followers && k.followee == userID:
			out = append(out, edge{k.follower, at})
		case !followers && k.follower == userID:
			out = append(out, edge{k.followee, at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].createdAt.After(out[j].createdAt) })
	return out
}

func (r *followRepo) page(userID int64, followers bool, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var page []edge
	for _, e := range r.edges(userID, followers) {
		if cursor != nil && !e.createdAt.Before(*cursor) {
			continue
		}
		page = append(page, e)
		if len(page) > limit {
			break
		}
	}

	var next *time.Time
	if len(page) > limit {
		page = page[:limit]
		at := page[len(page)-1].createdAt
		next = &at
	}

	users := make([]model.UserSummary, 0, len(page))
	for _, e := range page {
		u := r.s.users[e.other]
		users = append(users, model.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email})
	}
	return users, next, nil
}

func (r *followRepo) GetFollowers(_ context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return r.page(userID, true, cursor, limit)
}

func (r *followRepo) GetFollowing(_ context.Context, userID int64, cursor *time.Time, limit int) ([]model.UserSummary, *time.Time, error) {
	return r.page(userID, false, cursor, limit)
}

func (r *followRepo) CheckFollows(_ context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64]bool, len(followeeIDs))
	for _, id := range followeeIDs {
		_, out[id] = r.s.follows[followKey{followerID, id}]
	}
	return out, nil
}

func (r *followRepo) ids(userID int64, followers bool) []int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := []int64{}
	for _, e := range r.edges(userID, followers) {
		ids = append(ids, e.other)
	}
	return ids
}

func (r *followRepo) GetFollowerIDs(_ context.Context, userID int64) ([]int64, error) {
	return r.ids(userID, true), nil
}

func (r *followRepo) GetFolloweeIDs(_ context.Context, userID int64) ([]int64, error) {
	return r.ids(userID, false), nil
}

func (r *followRepo) GetRelations(_ context.Context, userIDs []int64) (map[int64]model.Relations, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64]model.Relations, len(userIDs))
	for _, id := range userIDs {
		rel := model.Relations{Followers: []int64{}, Following: []int64{}}
		for _, e := range r.edges(id, true) {
			rel.Followers = append(rel.Followers, e.other)
		}
		for _, e := range r.edges(id, false) {
			rel.Following = append(rel.Following, e.other)
		}
		out[id] = rel
	}
	return out, nil
}
