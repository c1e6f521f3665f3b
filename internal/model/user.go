package model

import (
	"errors"
	"time"
)

// User is an account. Followers and Following are hydrated from the follows
// table and are never written through the user row.
type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Mobile         string    `db:"mobile" json:"mobile"`
	Email          string    `db:"email" json:"email"`
	PasswordHashed string    `db:"password_hashed" json:"-"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Followers []int64 `db:"-" json:"followers"`
	Following []int64 `db:"-" json:"following"`
}

// SignupRequest is the body of POST /users/signup
type SignupRequest struct {
	Name     string `json:"name" validate:"required"`
	Mobile   string `json:"mobile" validate:"required,mobile"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the body of POST /users/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UpdateUserRequest is a partial profile update; nil fields are left alone.
type UpdateUserRequest struct {
	Name   *string `json:"name" validate:"omitempty"`
	Mobile *string `json:"mobile" validate:"omitempty,mobile"`
	Email  *string `json:"email" validate:"omitempty,email"`
}

// IsEmpty reports whether the request would change nothing.
func (r UpdateUserRequest) IsEmpty() bool {
	return r.Name == nil && r.Mobile == nil && r.Email == nil
}

// AuthResponse is returned by signup, login and refresh.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user,omitempty"`
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAccountOwner    = errors.New("you can only modify your own account")
)
