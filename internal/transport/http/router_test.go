package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"forumhub/internal/cache"
	"forumhub/internal/config"
	"forumhub/internal/handler"
	"forumhub/internal/httputil"
	"forumhub/internal/model"
	"forumhub/internal/queue"
	"forumhub/internal/repository/memory"
	"forumhub/internal/service"
)

const testSecret = "router-test-secret"

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, event queue.Event) (string, error) {
	return "0-0", nil
}

// newTestRouter wires the full handler stack over the in-memory store.
// Image uploads stay disabled.
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.New()
	cfg := &config.Config{
		JWTSecret:          testSecret,
		AccessTokenMaxAge:  900,
		RefreshTokenMaxAge: 3600,
	}

	users, follows := store.Users(), store.Follows()
	discussions, comments := store.Discussions(), store.Comments()

	userService := service.NewUserService(users, follows)
	authService := service.NewAuthService(store.RefreshTokens(), cfg)
	followService := service.NewFollowService(follows, users, nopPublisher{})
	discussionService := service.NewDiscussionService(discussions, comments, users, nil, nopPublisher{})
	commentService := service.NewCommentService(comments, discussions, users)
	feedService := service.NewFeedService(cache.NewMemoryFeedCache(), discussions, comments, follows, users)

	return NewRouter(RouterConfig{
		AuthHandler:       handler.NewAuthHandler(userService, authService),
		UserHandler:       handler.NewUserHandler(userService),
		FollowHandler:     handler.NewFollowHandler(followService),
		DiscussionHandler: handler.NewDiscussionHandler(discussionService),
		CommentHandler:    handler.NewCommentHandler(commentService),
		FeedHandler:       handler.NewFeedHandler(feedService),
		JWTSecret:         testSecret,
		Quiet:             true,
	})
}

type client struct {
	t      *testing.T
	router http.Handler
}

func (c client) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expect(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, status, rec.Body.String())
	}
	if code == "" {
		return
	}
	if got := decode[httputil.ErrorResponse](t, rec); got.Code != code {
		t.Fatalf("code = %q, want %q", got.Code, code)
	}
}

func (c client) signup(name, email string) model.AuthResponse {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/users/signup", "", model.SignupRequest{
		Name:     name,
		Email:    email,
		Mobile:   "+15550001111",
		Password: "secret123",
	})
	expect(c.t, rec, http.StatusCreated, "")
	return decode[model.AuthResponse](c.t, rec)
}

func (c client) createDiscussion(token, text, tags string) model.Discussion {
	c.t.Helper()
	rec := c.do(http.MethodPost, "/api/discussions", token, map[string]string{"text": text, "hashtags": tags})
	expect(c.t, rec, http.StatusCreated, "")
	return decode[model.Discussion](c.t, rec)
}

// =============================================================================
// END-TO-END SCENARIOS
// =============================================================================

func TestRouter_LikeLifecycle(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}

	alice := c.signup("Alice", "a@x.com")
	bob := c.signup("Bob", "b@x.com")

	d := c.createDiscussion(alice.Token, "hello #demo", "demo")
	if len(d.Hashtags) != 1 || d.Hashtags[0] != "demo" {
		t.Fatalf("hashtags = %v, want [demo]", d.Hashtags)
	}
	id := strconv.FormatInt(d.ID, 10)

	rec := c.do(http.MethodPut, "/api/discussions/like/"+id, bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	likes := decode[model.LikesResponse](t, rec)
	if len(likes.Likes) != 1 || likes.Likes[0] != bob.User.ID {
		t.Fatalf("likes = %v, want [%d]", likes.Likes, bob.User.ID)
	}

	rec = c.do(http.MethodPut, "/api/discussions/like/"+id, bob.Token, nil)
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeConflict)

	rec = c.do(http.MethodPut, "/api/discussions/unlike/"+id, bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	if likes := decode[model.LikesResponse](t, rec); len(likes.Likes) != 0 {
		t.Fatalf("likes after unlike = %v, want []", likes.Likes)
	}

	rec = c.do(http.MethodDelete, "/api/discussions/"+id, bob.Token, nil)
	expect(t, rec, http.StatusUnauthorized, httputil.ErrCodeForbidden)

	rec = c.do(http.MethodDelete, "/api/discussions/"+id, alice.Token, nil)
	expect(t, rec, http.StatusOK, "")

	rec = c.do(http.MethodGet, "/api/discussions/"+id, "", nil)
	expect(t, rec, http.StatusNotFound, httputil.ErrCodeNotFound)
}

func TestRouter_CommentLifecycle(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}

	alice := c.signup("Alice", "a@x.com")
	bob := c.signup("Bob", "b@x.com")
	d := c.createDiscussion(alice.Token, "first", "")
	base := fmt.Sprintf("/api/discussions/comment/%d", d.ID)

	rec := c.do(http.MethodPost, base, bob.Token, model.CommentRequest{Text: "nice"})
	expect(t, rec, http.StatusCreated, "")
	comments := decode[[]model.Comment](t, rec)
	if len(comments) != 1 || comments[0].Text != "nice" {
		t.Fatalf("comments = %+v", comments)
	}
	cid := comments[0].ID

	rec = c.do(http.MethodPost, base, bob.Token, model.CommentRequest{Text: "  "})
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeValidation)

	rec = c.do(http.MethodPut, fmt.Sprintf("/api/discussions/comment/like/%d/%s", d.ID, cid), alice.Token, nil)
	expect(t, rec, http.StatusOK, "")

	rec = c.do(http.MethodPut, base+"/"+cid, alice.Token, model.CommentRequest{Text: "hijack"})
	expect(t, rec, http.StatusUnauthorized, httputil.ErrCodeForbidden)

	rec = c.do(http.MethodPut, base+"/"+cid, bob.Token, model.CommentRequest{Text: "very nice"})
	expect(t, rec, http.StatusOK, "")
	got := decode[model.Discussion](t, rec)
	if len(got.Comments) != 1 || got.Comments[0].Text != "very nice" {
		t.Fatalf("comments after edit = %+v", got.Comments)
	}
	if len(got.Comments[0].Likes) != 1 || got.Comments[0].Likes[0] != alice.User.ID {
		t.Errorf("edit lost likes: %v", got.Comments[0].Likes)
	}

	rec = c.do(http.MethodDelete, base+"/"+cid, bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	if remaining := decode[[]model.Comment](t, rec); len(remaining) != 0 {
		t.Fatalf("remaining = %+v, want none", remaining)
	}

	rec = c.do(http.MethodDelete, base+"/"+cid, bob.Token, nil)
	expect(t, rec, http.StatusNotFound, httputil.ErrCodeNotFound)
}

func TestRouter_FollowAndFeed(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}

	alice := c.signup("Alice", "a@x.com")
	bob := c.signup("Bob", "b@x.com")
	aliceID := strconv.FormatInt(alice.User.ID, 10)

	rec := c.do(http.MethodPut, "/api/users/follow/"+strconv.FormatInt(bob.User.ID, 10), bob.Token, nil)
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeBadRequest)

	rec = c.do(http.MethodPut, "/api/users/follow/"+aliceID, bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	rec = c.do(http.MethodPut, "/api/users/follow/"+aliceID, bob.Token, nil)
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeConflict)

	rec = c.do(http.MethodGet, "/api/users/"+aliceID+"/followers", bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	followers := decode[model.FollowListResponse](t, rec)
	if len(followers.Users) != 1 || followers.Users[0].ID != bob.User.ID {
		t.Fatalf("followers = %+v", followers.Users)
	}

	c.createDiscussion(alice.Token, "one", "")
	c.createDiscussion(alice.Token, "two", "")

	rec = c.do(http.MethodGet, "/api/discussions/feed?limit=10", bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	feed := decode[model.FeedResponse](t, rec)
	if len(feed.Discussions) != 2 {
		t.Fatalf("feed has %d discussions, want 2", len(feed.Discussions))
	}

	rec = c.do(http.MethodGet, "/api/discussions/feed?cursor=garbage", bob.Token, nil)
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeValidation)

	rec = c.do(http.MethodGet, "/api/discussions/feed", "", nil)
	expect(t, rec, http.StatusUnauthorized, "")
}

func TestRouter_UserEndpoints(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}

	alice := c.signup("Alice", "a@x.com")
	bob := c.signup("Bob", "b@x.com")
	aliceID := strconv.FormatInt(alice.User.ID, 10)

	rec := c.do(http.MethodPost, "/api/users/signup", "", model.SignupRequest{
		Name: "Again", Email: "a@x.com", Mobile: "+15550001111", Password: "secret123",
	})
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeConflict)

	rec = c.do(http.MethodPost, "/api/users/login", "", model.LoginRequest{Email: "a@x.com", Password: "wrong-pass"})
	expect(t, rec, http.StatusUnauthorized, "")

	rec = c.do(http.MethodGet, "/api/users/profile", alice.Token, nil)
	expect(t, rec, http.StatusOK, "")
	if me := decode[model.User](t, rec); me.ID != alice.User.ID {
		t.Fatalf("profile id = %d, want %d", me.ID, alice.User.ID)
	}

	name := "Mallory"
	rec = c.do(http.MethodPut, "/api/users/"+aliceID, bob.Token, model.UpdateUserRequest{Name: &name})
	expect(t, rec, http.StatusUnauthorized, httputil.ErrCodeForbidden)

	name = "Alicia"
	rec = c.do(http.MethodPut, "/api/users/"+aliceID, alice.Token, model.UpdateUserRequest{Name: &name})
	expect(t, rec, http.StatusOK, "")

	rec = c.do(http.MethodGet, "/api/users/search/lic", bob.Token, nil)
	expect(t, rec, http.StatusOK, "")
	if found := decode[[]model.User](t, rec); len(found) != 1 || found[0].Name != "Alicia" {
		t.Fatalf("search = %+v", found)
	}

	rec = c.do(http.MethodGet, "/api/users/abc", bob.Token, nil)
	expect(t, rec, http.StatusBadRequest, httputil.ErrCodeBadRequest)

	rec = c.do(http.MethodDelete, "/api/users/"+aliceID, alice.Token, nil)
	expect(t, rec, http.StatusOK, "")
	rec = c.do(http.MethodGet, "/api/users/"+aliceID, bob.Token, nil)
	expect(t, rec, http.StatusNotFound, httputil.ErrCodeNotFound)
}

func TestRouter_RefreshRotation(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}
	alice := c.signup("Alice", "a@x.com")

	rec := c.do(http.MethodPost, "/api/users/refresh", "", model.RefreshRequest{RefreshToken: alice.RefreshToken})
	expect(t, rec, http.StatusOK, "")
	rotated := decode[model.AuthResponse](t, rec)
	if rotated.RefreshToken == alice.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	rec = c.do(http.MethodPost, "/api/users/refresh", "", model.RefreshRequest{RefreshToken: alice.RefreshToken})
	expect(t, rec, http.StatusUnauthorized, model.CodeTokenReused)

	// Reuse revokes the whole family.
	rec = c.do(http.MethodPost, "/api/users/refresh", "", model.RefreshRequest{RefreshToken: rotated.RefreshToken})
	expect(t, rec, http.StatusUnauthorized, model.CodeTokenReused)
}

func TestRouter_PublicViewsAndHealth(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}
	alice := c.signup("Alice", "a@x.com")
	d := c.createDiscussion(alice.Token, "watch me", "")

	for i := 1; i <= 3; i++ {
		rec := c.do(http.MethodPut, fmt.Sprintf("/api/discussions/view/%d", d.ID), "", nil)
		expect(t, rec, http.StatusOK, "")
		if got := decode[model.ViewsResponse](t, rec); got.Views != int64(i) {
			t.Fatalf("views = %d, want %d", got.Views, i)
		}
	}

	rec := c.do(http.MethodPut, "/api/discussions/view/999", "", nil)
	expect(t, rec, http.StatusNotFound, httputil.ErrCodeNotFound)

	rec = c.do(http.MethodGet, "/health", "", nil)
	expect(t, rec, http.StatusOK, "")
}

func TestRouter_SearchParamsAreDecoded(t *testing.T) {
	c := client{t: t, router: newTestRouter(t)}
	alice := c.signup("Alice", "a@x.com")

	c.createDiscussion(alice.Token, "either/or", "ci/cd, go")
	c.createDiscussion(alice.Token, "100% sure", "go")

	tests := []struct {
		path string
		want int
	}{
		{"/api/discussions/tag/ci%2Fcd", 1},
		{"/api/discussions/tag/go", 2},
		{"/api/discussions/text/either%2For", 1},
		{"/api/discussions/text/100%25", 1},
		{"/api/discussions/text/100%25%20sure", 1},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := client{t: t, router: c.router}.do(http.MethodGet, tt.path, "", nil)
			expect(t, rec, http.StatusOK, "")
			if got := decode[[]model.Discussion](t, rec); len(got) != tt.want {
				t.Fatalf("got %d discussions, want %d", len(got), tt.want)
			}
		})
	}
}
