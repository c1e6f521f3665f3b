package model

import (
	"errors"
	"time"
)

// Comment belongs to exactly one discussion. IDs are ULIDs, so they sort by
// creation time.
type Comment struct {
	ID           string    `json:"id"`
	DiscussionID int64     `json:"discussion_id"`
	UserID       int64     `json:"user"`
	Text         string    `json:"text"`
	Likes        []int64   `json:"likes"`
	CreatedAt    time.Time `json:"date"`
}

type CommentRequest struct {
	Text string `json:"text" validate:"required"`
}

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrNotCommentOwner = errors.New("you can only modify your own comments")
)
