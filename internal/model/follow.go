package model

import (
	"errors"
	"time"
)

type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// UserSummary is the public slice of a user used for owners and follow lists.
type UserSummary struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Email       string `db:"email" json:"email"`
	IsFollowing bool   `db:"-" json:"is_following"`
}

// Relations holds both sides of a user's follow graph, newest first.
type Relations struct {
	Followers []int64
	Following []int64
}

type FollowListResponse struct {
	Users      []UserSummary `json:"users"`
	NextCursor *string       `json:"next_cursor,omitempty"`
	HasMore    bool          `json:"has_more"`
}

var (
	ErrAlreadyFollowing = errors.New("you already follow this user")
	ErrNotFollowing     = errors.New("you do not follow this user")
	ErrCannotFollowSelf = errors.New("you cannot follow yourself")
)
