package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/queue"
	"forumhub/internal/repository"
)

type DiscussionService struct {
	discussionRepo repository.DiscussionRepository
	commentRepo    repository.CommentRepository
	userRepo       repository.UserRepository
	images         ImageStore
	publisher      queue.Publisher
}

// NewDiscussionService accepts a nil images store (uploads are rejected with
// model.ErrImagesDisabled) and a nil publisher (feeds refresh on warm only).
func NewDiscussionService(
	discussionRepo repository.DiscussionRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	images ImageStore,
	publisher queue.Publisher,
) *DiscussionService {
	return &DiscussionService{
		discussionRepo: discussionRepo,
		commentRepo:    commentRepo,
		userRepo:       userRepo,
		images:         images,
		publisher:      publisher,
	}
}

// Create stores a discussion and publishes DiscussionCreated for fan-out.
func (s *DiscussionService) Create(ctx context.Context, ownerID int64, in model.DiscussionInput) (*model.Discussion, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrValidation)
	}

	upload, err := s.upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	d := &model.Discussion{
		UserID:   ownerID,
		Text:     text,
		Hashtags: model.ParseHashtags(in.Hashtags),
	}
	if upload != nil {
		d.Image = upload.URL
		d.ImageKey = upload.Key
	}

	if err := s.discussionRepo.Create(ctx, d); err != nil {
		if upload != nil {
			s.deleteImage(ctx, upload.Key)
		}
		return nil, fmt.Errorf("create discussion: %w", err)
	}

	s.publish(ctx, queue.NewDiscussionCreatedEvent(d.ID, ownerID, d.CreatedAt))

	if err := s.hydrate(ctx, []*model.Discussion{d}); err != nil {
		logger.Warn.Printf("[DiscussionService] hydrate after create failed: discussion=%d err=%v", d.ID, err)
	}
	return d, nil
}

// Update replaces text, hashtags and image. Leaving the image out clears it.
func (s *DiscussionService) Update(ctx context.Context, id, callerID int64, in model.DiscussionInput) (*model.Discussion, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrValidation)
	}

	// Checked up front so a stranger cannot make us store an image. The
	// repository checks ownership again atomically with the write.
	current, err := s.discussionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.UserID != callerID {
		return nil, model.ErrNotDiscussionOwner
	}

	upload, err := s.upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	changes := model.DiscussionChanges{
		Text:     text,
		Hashtags: model.ParseHashtags(in.Hashtags),
	}
	if upload != nil {
		changes.ImageURL = upload.URL
		changes.ImageKey = upload.Key
	}

	d, previousKey, err := s.discussionRepo.Update(ctx, id, callerID, changes)
	if err != nil {
		if upload != nil {
			s.deleteImage(ctx, upload.Key)
		}
		return nil, err
	}
	if previousKey != "" && previousKey != changes.ImageKey {
		s.deleteImage(ctx, previousKey)
	}

	if err := s.hydrate(ctx, []*model.Discussion{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// Delete removes the discussion with its comments and image, then publishes
// DiscussionDeleted so followers' feeds drop it.
func (s *DiscussionService) Delete(ctx context.Context, id, callerID int64) error {
	d, err := s.discussionRepo.Delete(ctx, id, callerID)
	if err != nil {
		return err
	}

	s.deleteImage(ctx, d.ImageKey)
	s.publish(ctx, queue.NewDiscussionDeletedEvent(d.ID, d.UserID))
	return nil
}

// GetByID returns one discussion with its comments and owner.
func (s *DiscussionService) GetByID(ctx context.Context, id int64) (*model.Discussion, error) {
	d, err := s.discussionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, []*model.Discussion{d}); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DiscussionService) List(ctx context.Context) ([]model.Discussion, error) {
	return s.list(ctx, model.DiscussionFilter{})
}

// ListByTag matches tag exactly against each hashtag.
func (s *DiscussionService) ListByTag(ctx context.Context, tag string) ([]model.Discussion, error) {
	if tag == "" {
		return nil, fmt.Errorf("%w: tag is required", model.ErrValidation)
	}
	return s.list(ctx, model.DiscussionFilter{Tag: tag})
}

// ListByText matches text as a case-insensitive substring.
func (s *DiscussionService) ListByText(ctx context.Context, text string) ([]model.Discussion, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", model.ErrValidation)
	}
	return s.list(ctx, model.DiscussionFilter{Text: text})
}

func (s *DiscussionService) list(ctx context.Context, filter model.DiscussionFilter) ([]model.Discussion, error) {
	discussions, err := s.discussionRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateAll(ctx, discussions); err != nil {
		return nil, err
	}
	return discussions, nil
}

func (s *DiscussionService) Like(ctx context.Context, id, userID int64) ([]int64, error) {
	return s.discussionRepo.Like(ctx, id, userID)
}

func (s *DiscussionService) Unlike(ctx context.Context, id, userID int64) ([]int64, error) {
	return s.discussionRepo.Unlike(ctx, id, userID)
}

// View counts one view and returns the new total.
func (s *DiscussionService) View(ctx context.Context, id int64) (int64, error) {
	return s.discussionRepo.IncrementViews(ctx, id)
}

func (s *DiscussionService) upload(ctx context.Context, image *model.ImageFile) (*model.UploadResult, error) {
	if image == nil {
		return nil, nil
	}
	if s.images == nil {
		return nil, model.ErrImagesDisabled
	}
	return s.images.UploadDiscussionImage(ctx, image.File, image.Header)
}

// deleteImage is best effort: an orphaned object only costs storage.
func (s *DiscussionService) deleteImage(ctx context.Context, key string) {
	if key == "" || s.images == nil {
		return
	}
	if err := s.images.DeleteObject(ctx, key); err != nil {
		logger.Warn.Printf("[DiscussionService] Failed to delete image %s: %v", key, err)
	}
}

func (s *DiscussionService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	msgID, err := s.publisher.Publish(ctx, event)
	if err != nil {
		logger.Warn.Printf("[DiscussionService] Failed to publish %s: discussion=%d err=%v", event.Type, event.DiscussionID, err)
		return
	}
	logger.Debug.Printf("[DiscussionService] Published %s: discussion=%d msgID=%s", event.Type, event.DiscussionID, msgID)
}

func (s *DiscussionService) hydrate(ctx context.Context, discussions []*model.Discussion) error {
	return hydrateDiscussions(ctx, s.commentRepo, s.userRepo, discussions)
}

func (s *DiscussionService) hydrateAll(ctx context.Context, discussions []model.Discussion) error {
	ptrs := make([]*model.Discussion, len(discussions))
	for i := range discussions {
		ptrs[i] = &discussions[i]
	}
	return s.hydrate(ctx, ptrs)
}

// hydrateDiscussions loads comments and owner summaries for a batch of
// discussions with one query each. Owners that no longer exist stay nil.
func hydrateDiscussions(ctx context.Context, comments repository.CommentRepository, users repository.UserRepository, discussions []*model.Discussion) error {
	if len(discussions) == 0 {
		return nil
	}

	ids := make([]int64, len(discussions))
	ownerSet := make(map[int64]struct{}, len(discussions))
	ownerIDs := make([]int64, 0, len(discussions))
	for i, d := range discussions {
		ids[i] = d.ID
		if _, seen := ownerSet[d.UserID]; !seen {
			ownerSet[d.UserID] = struct{}{}
			ownerIDs = append(ownerIDs, d.UserID)
		}
	}

	byDiscussion, err := comments.ListByDiscussions(ctx, ids)
	if err != nil {
		return fmt.Errorf("load comments: %w", err)
	}
	owners, err := users.GetSummaries(ctx, ownerIDs)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return fmt.Errorf("load owners: %w", err)
	}

	for _, d := range discussions {
		d.Comments = byDiscussion[d.ID]
		if d.Comments == nil {
			d.Comments = []model.Comment{}
		}
		if owner, ok := owners[d.UserID]; ok {
			d.Owner = &owner
		}
	}
	return nil
}
