package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"testing"

	"forumhub/internal/config"
	"forumhub/internal/model"
	"forumhub/internal/queue"
	"forumhub/internal/repository/memory"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================
//
// Services depend on repository interfaces, so tests run against the
// in-memory store. Only the edges that leave the process (the event stream
// and object storage) are replaced with recorders.

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event queue.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, event)
	return fmt.Sprintf("%d-0", len(p.events)), nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type fakeImageStore struct {
	mu        sync.Mutex
	uploads   int
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeImageStore) UploadDiscussionImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploads++
	key := fmt.Sprintf("%s/img-%d%s", model.DiscussionImageFolder, f.uploads, model.DiscussionImageExt)
	return &model.UploadResult{URL: "https://cdn.example.com/" + key, Key: key}, nil
}

func (f *fakeImageStore) DeleteObject(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

var errBoom = errors.New("boom")

// =============================================================================
// FIXTURE
// =============================================================================

type fixture struct {
	store       *memory.Store
	publisher   *recordingPublisher
	images      *fakeImageStore
	users       *UserService
	auth        *AuthService
	follows     *FollowService
	discussions *DiscussionService
	comments    *CommentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	pub := &recordingPublisher{}
	images := &fakeImageStore{}
	cfg := &config.Config{JWTSecret: "test-secret", AccessTokenMaxAge: 900, RefreshTokenMaxAge: 3600}

	return &fixture{
		store:       store,
		publisher:   pub,
		images:      images,
		users:       NewUserService(store.Users(), store.Follows()),
		auth:        NewAuthService(store.RefreshTokens(), cfg),
		follows:     NewFollowService(store.Follows(), store.Users(), pub),
		discussions: NewDiscussionService(store.Discussions(), store.Comments(), store.Users(), images, pub),
		comments:    NewCommentService(store.Comments(), store.Discussions(), store.Users()),
	}
}

func (f *fixture) signup(t *testing.T, name string) *model.User {
	t.Helper()
	u, err := f.users.Signup(context.Background(), &model.SignupRequest{
		Name:     name,
		Mobile:   "+15550001111",
		Email:    name + "@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("signup %s: %v", name, err)
	}
	return u
}

func (f *fixture) post(t *testing.T, ownerID int64, text, tags string) *model.Discussion {
	t.Helper()
	d, err := f.discussions.Create(context.Background(), ownerID, model.DiscussionInput{Text: text, Hashtags: tags})
	if err != nil {
		t.Fatalf("create discussion: %v", err)
	}
	return d
}
