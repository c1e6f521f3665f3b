package memory

import (
	"context"

	"forumhub/internal/model"
	"forumhub/internal/repository"
)

type commentRepo struct{ s *Store }

func cloneComment(c model.Comment) model.Comment {
	c.Likes = copyIDs(c.Likes)
	return c
}

// list copies a discussion's comments. Callers hold s.mu.
func (r *commentRepo) list(discussionID int64) []model.Comment {
	src := r.s.comments[discussionID]
	out := make([]model.Comment, len(src))
	for i, c := range src {
		out[i] = cloneComment(c)
	}
	return out
}

// find locates a comment, reporting the first missing level. Callers hold s.mu.
func (r *commentRepo) find(discussionID int64, commentID string) (int, error) {
	if _, ok := r.s.discussions[discussionID]; !ok {
		return -1, model.ErrDiscussionNotFound
	}
	for i, c := range r.s.comments[discussionID] {
		if c.ID == commentID {
			return i, nil
		}
	}
	return -1, model.ErrCommentNotFound
}

func (r *commentRepo) Add(_ context.Context, c *model.Comment) ([]model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.discussions[c.DiscussionID]; !ok {
		return nil, model.ErrDiscussionNotFound
	}
	if c.ID == "" {
		c.ID = repository.NewULID()
	}
	c.Likes = []int64{}
	c.CreatedAt = r.s.now()

	r.s.comments[c.DiscussionID] = append([]model.Comment{cloneComment(*c)}, r.s.comments[c.DiscussionID]...)
	return r.list(c.DiscussionID), nil
}

func (r *commentRepo) Delete(_ context.Context, discussionID int64, commentID string, userID int64) ([]model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, err := r.find(discussionID, commentID)
	if err != nil {
		return nil, err
	}
	comments := r.s.comments[discussionID]
	if comments[i].UserID != userID {
		return nil, model.ErrNotCommentOwner
	}

	remaining := make([]model.Comment, 0, len(comments)-1)
	remaining = append(remaining, comments[:i]...)
	remaining = append(remaining, comments[i+1:]...)
	r.s.comments[discussionID] = remaining

	return r.list(discussionID), nil
}

func (r *commentRepo) UpdateText(_ context.Context, discussionID int64, commentID string, userID int64, text string) (*model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, err := r.find(discussionID, commentID)
	if err != nil {
		return nil, err
	}
	c := &r.s.comments[discussionID][i]
	if c.UserID != userID {
		return nil, model.ErrNotCommentOwner
	}
	c.Text = text

	out := cloneComment(*c)
	return &out, nil
}

func (r *commentRepo) Like(_ context.Context, discussionID int64, commentID string, userID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, err := r.find(discussionID, commentID)
	if err != nil {
		return nil, err
	}
	c := &r.s.comments[discussionID][i]
	if containsID(c.Likes, userID) {
		return nil, model.ErrAlreadyLiked
	}
	c.Likes = append([]int64{userID}, c.Likes...)
	return copyIDs(c.Likes), nil
}

func (r *commentRepo) Unlike(_ context.Context, discussionID int64, commentID string, userID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, err := r.find(discussionID, commentID)
	if err != nil {
		return nil, err
	}
	c := &r.s.comments[discussionID][i]
	if !containsID(c.Likes, userID) {
		return nil, model.ErrNotYetLiked
	}
	c.Likes = removeID(c.Likes, userID)
	return copyIDs(c.Likes), nil
}

func (r *commentRepo) ListByDiscussion(_ context.Context, discussionID int64) ([]model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(discussionID), nil
}

func (r *commentRepo) ListByDiscussions(_ context.Context, discussionIDs []int64) (map[int64][]model.Comment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[int64][]model.Comment, len(discussionIDs))
	for _, id := range discussionIDs {
		if comments := r.list(id); len(comments) > 0 {
			out[id] = comments
		}
	}
	return out, nil
}
