package service

import (
	"context"
	"strings"

	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/repository"
	"forumhub/internal/validate"
)

// CommentService mutates comments inside a discussion. Every write is a
// single conditional statement in the repository, so concurrent callers
// never lose each other's comments or likes.
type CommentService struct {
	commentRepo    repository.CommentRepository
	discussionRepo repository.DiscussionRepository
	userRepo       repository.UserRepository
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	discussionRepo repository.DiscussionRepository,
	userRepo repository.UserRepository,
) *CommentService {
	return &CommentService{
		commentRepo:    commentRepo,
		discussionRepo: discussionRepo,
		userRepo:       userRepo,
	}
}

// Add prepends a comment and returns the discussion's comments, newest first.
func (s *CommentService) Add(ctx context.Context, discussionID, authorID int64, req model.CommentRequest) ([]model.Comment, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}

	c := &model.Comment{DiscussionID: discussionID, UserID: authorID, Text: req.Text}
	comments, err := s.commentRepo.Add(ctx, c)
	if err != nil {
		return nil, err
	}

	logger.Debug.Printf("[CommentService] comment %s added to discussion %d", c.ID, discussionID)
	return comments, nil
}

// Delete removes one comment written by callerID and returns the rest.
func (s *CommentService) Delete(ctx context.Context, discussionID int64, commentID string, callerID int64) ([]model.Comment, error) {
	return s.commentRepo.Delete(ctx, discussionID, commentID, callerID)
}

// Edit replaces a comment's text in place and returns the whole discussion.
func (s *CommentService) Edit(ctx context.Context, discussionID int64, commentID string, callerID int64, req model.CommentRequest) (*model.Discussion, error) {
	req.Text = strings.TrimSpace(req.Text)
	if err := validate.Struct(&req); err != nil {
		return nil, err
	}

	if _, err := s.commentRepo.UpdateText(ctx, discussionID, commentID, callerID, req.Text); err != nil {
		return nil, err
	}

	d, err := s.discussionRepo.GetByID(ctx, discussionID)
	if err != nil {
		return nil, err
	}
	if err := hydrateDiscussions(ctx, s.commentRepo, s.userRepo, []*model.Discussion{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *CommentService) Like(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error) {
	return s.commentRepo.Like(ctx, discussionID, commentID, userID)
}

func (s *CommentService) Unlike(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error) {
	return s.commentRepo.Unlike(ctx, discussionID, commentID, userID)
}
