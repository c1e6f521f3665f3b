package model

import (
	"errors"
	"mime/multipart"
	"strings"
	"time"
)

// Discussion is a post. Likes and Comments are ordered newest first.
type Discussion struct {
	ID        int64        `json:"id"`
	UserID    int64        `json:"user"`
	Owner     *UserSummary `json:"owner,omitempty"`
	Text      string       `json:"text"`
	Image     string       `json:"image"`
	ImageKey  string       `json:"-"`
	Hashtags  []string     `json:"hashtags"`
	Likes     []int64      `json:"likes"`
	Comments  []Comment    `json:"comments"`
	Views     int64        `json:"views"`
	CreatedAt time.Time    `json:"date"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ImageFile is an uploaded multipart part that has not been stored yet.
type ImageFile struct {
	File   multipart.File
	Header *multipart.FileHeader
}

// DiscussionInput carries the multipart form of create and update.
type DiscussionInput struct {
	Text     string
	Hashtags string
	Image    *ImageFile
}

// DiscussionChanges is what the store writes on update. Image fields are
// always replaced, so an empty URL clears the image.
type DiscussionChanges struct {
	Text     string
	Hashtags []string
	ImageURL string
	ImageKey string
}

// DiscussionFilter selects a listing. At most one of Tag and Text is set.
type DiscussionFilter struct {
	Tag  string
	Text string
}

// ViewsResponse is returned by PUT /discussions/view/{id}
type ViewsResponse struct {
	Views int64 `json:"views"`
}

type LikesResponse struct {
	Likes []int64 `json:"likes"`
}

type FeedResponse struct {
	Discussions []Discussion `json:"discussions"`
	NextCursor  *string      `json:"next_cursor,omitempty"`
	HasMore     bool         `json:"has_more"`
}

// ParseHashtags splits a comma separated list and trims each entry. Order,
// duplicates and empty entries are preserved; a blank input yields no tags.
func ParseHashtags(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	parts := strings.Split(csv, ",")
	tags := make([]string, len(parts))
	for i, p := range parts {
		tags[i] = strings.TrimSpace(p)
	}
	return tags
}

var (
	ErrDiscussionNotFound = errors.New("discussion not found")
	ErrNotDiscussionOwner = errors.New("you can only modify your own discussions")
	ErrAlreadyLiked       = errors.New("already liked")
	ErrNotYetLiked        = errors.New("not liked yet")
	ErrImagesDisabled     = errors.New("image uploads are not configured")
)
