package memory

import (
	"context"
	"sort"
	"strings"

	"forumhub/internal/cache"
	"forumhub/internal/model"
)

type discussionRepo struct{ s *Store }

func cloneDiscussion(d *model.Discussion) model.Discussion {
	c := *d
	c.Hashtags = append([]string{}, d.Hashtags...)
	c.Likes = copyIDs(d.Likes)
	c.Comments = []model.Comment{}
	c.Owner = nil
	return c
}

func (r *discussionRepo) Create(_ context.Context, d *model.Discussion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextDiscussionID++
	now := r.s.now()

	stored := &model.Discussion{
		ID:        r.s.nextDiscussionID,
		UserID:    d.UserID,
		Text:      d.Text,
		Image:     d.Image,
		ImageKey:  d.ImageKey,
		Hashtags:  append([]string{}, d.Hashtags...),
		Likes:     []int64{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.s.discussions[stored.ID] = stored

	*d = cloneDiscussion(stored)
	return nil
}

func (r *discussionRepo) GetByID(_ context.Context, id int64) (*model.Discussion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.discussions[id]
	if !ok {
		return nil, model.ErrDiscussionNotFound
	}
	c := cloneDiscussion(d)
	return &c, nil
}

func (r *discussionRepo) GetByIDs(_ context.Context, ids []int64) ([]model.Discussion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]model.Discussion, 0, len(ids))
	for _, id := range ids {
		if d, ok := r.s.discussions[id]; ok {
			out = append(out, cloneDiscussion(d))
		}
	}
	return out, nil
}

// owned returns the discussion when ownerID owns it. Callers hold s.mu.
func (r *discussionRepo) owned(id, ownerID int64) (*model.Discussion, error) {
	d, ok := r.s.discussions[id]
	if !ok {
		return nil, model.ErrDiscussionNotFound
	}
	if d.UserID != ownerID {
		return nil, model.ErrNotDiscussionOwner
	}
	return d, nil
}

func (r *discussionRepo) Update(_ context.Context, id, ownerID int64, changes model.DiscussionChanges) (*model.Discussion, string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, err := r.owned(id, ownerID)
	if err != nil {
		return nil, "", err
	}

	previousKey := d.ImageKey
	d.Text = changes.Text
	d.Hashtags = append([]string{}, changes.Hashtags...)
	d.Image = changes.ImageURL
	d.ImageKey = changes.ImageKey
	d.UpdatedAt = r.s.now()

	c := cloneDiscussion(d)
	return &c, previousKey, nil
}

func (r *discussionRepo) Delete(_ context.Context, id, ownerID int64) (*model.Discussion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, err := r.owned(id, ownerID)
	if err != nil {
		return nil, err
	}

	delete(r.s.discussions, id)
	delete(r.s.comments, id)

	c := cloneDiscussion(d)
	return &c, nil
}

func (r *discussionRepo) List(_ context.Context, filter model.DiscussionFilter) ([]model.Discussion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	text := strings.ToLower(filter.Text)
	out := []model.Discussion{}
	for _, d := range r.s.discussions {
		switch {
		case filter.Tag != "":
			if !containsTag(d.Hashtags, filter.Tag) {
				continue
			}
		case filter.Text != "":
			if !strings.Contains(strings.ToLower(d.Text), text) {
				continue
			}
		}
		out = append(out, cloneDiscussion(d))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (r *discussionRepo) Like(_ context.Context, id, userID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.discussions[id]
	if !ok {
		return nil, model.ErrDiscussionNotFound
	}
	if containsID(d.Likes, userID) {
		return nil, model.ErrAlreadyLiked
	}
	d.Likes = append([]int64{userID}, d.Likes...)
	return copyIDs(d.Likes), nil
}

func (r *discussionRepo) Unlike(_ context.Context, id, userID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.discussions[id]
	if !ok {
		return nil, model.ErrDiscussionNotFound
	}
	if !containsID(d.Likes, userID) {
		return nil, model.ErrNotYetLiked
	}
	d.Likes = removeID(d.Likes, userID)
	return copyIDs(d.Likes), nil
}

func (r *discussionRepo) IncrementViews(_ context.Context, id int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.discussions[id]
	if !ok {
		return 0, model.ErrDiscussionNotFound
	}
	d.Views++
	return d.Views, nil
}

func (r *discussionRepo) GetRecentByUser(ctx context.Context, userID int64, limit int) ([]cache.DiscussionScore, error) {
	return r.GetFeedIDs(ctx, []int64{userID}, limit)
}

func (r *discussionRepo) GetFeedIDs(_ context.Context, ownerIDs []int64, limit int) ([]cache.DiscussionScore, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []*model.Discussion
	for _, d := range r.s.discussions {
		if containsID(ownerIDs, d.UserID) {
			matched = append(matched, d)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]cache.DiscussionScore, len(matched))
	for i, d := range matched {
		out[i] = cache.DiscussionScore{DiscussionID: d.ID, Timestamp: d.CreatedAt.Unix()}
	}
	return out, nil
}
