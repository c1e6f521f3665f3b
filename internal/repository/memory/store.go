// Package memory implements the repository interfaces on in-process maps.
// Every method holds the store lock for its whole duration, which gives the
// same per-operation atomicity the Postgres statements provide.
package memory

import (
	"sync"
	"time"

	"forumhub/internal/model"
	"forumhub/internal/repository"
)

type followKey struct {
	follower, followee int64
}

type Store struct {
	mu sync.Mutex

	lastTime         time.Time
	nextUserID       int64
	nextDiscussionID int64

	users       map[int64]*model.User
	follows     map[followKey]time.Time
	discussions map[int64]*model.Discussion
	// comments per discussion, newest first
	comments map[int64][]model.Comment
	tokens   map[string]*model.RefreshToken
}

func New() *Store {
	return &Store{
		users:       make(map[int64]*model.User),
		follows:     make(map[followKey]time.Time),
		discussions: make(map[int64]*model.Discussion),
		comments:    make(map[int64][]model.Comment),
		tokens:      make(map[string]*model.RefreshToken),
	}
}

func (s *Store) Users() repository.UserRepository                 { return &userRepo{s} }
func (s *Store) Follows() repository.FollowRepository             { return &followRepo{s} }
func (s *Store) Discussions() repository.DiscussionRepository     { return &discussionRepo{s} }
func (s *Store) Comments() repository.CommentRepository           { return &commentRepo{s} }
func (s *Store) RefreshTokens() repository.RefreshTokenRepository { return &tokenRepo{s} }

// now is strictly increasing so "newest first" orderings are deterministic.
// Callers hold s.mu.
func (s *Store) now() time.Time {
	t := time.Now()
	if !t.After(s.lastTime) {
		t = s.lastTime.Add(time.Microsecond)
	}
	s.lastTime = t
	return t
}

func copyIDs(ids []int64) []int64 {
	out := make([]int64, len(ids))
	copy(out, ids)
	return out
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []int64, id int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
