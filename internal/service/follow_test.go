package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"forumhub/internal/model"
	"forumhub/internal/queue"
)

func TestFollowService_FollowThenUnfollowRestoresState(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	ctx := context.Background()

	if err := f.follows.Follow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	a, _ := f.users.GetProfile(ctx, alice.ID)
	b, _ := f.users.GetProfile(ctx, bob.ID)
	if !reflect.DeepEqual(a.Following, []int64{bob.ID}) || !reflect.DeepEqual(b.Followers, []int64{alice.ID}) {
		t.Fatalf("asymmetric follow: alice.following=%v bob.followers=%v", a.Following, b.Followers)
	}

	if err := f.follows.Follow(ctx, alice.ID, bob.ID); !errors.Is(err, model.ErrAlreadyFollowing) {
		t.Fatalf("expected ErrAlreadyFollowing, got %v", err)
	}

	if err := f.follows.Unfollow(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	a, _ = f.users.GetProfile(ctx, alice.ID)
	b, _ = f.users.GetProfile(ctx, bob.ID)
	if len(a.Following) != 0 || len(b.Followers) != 0 || a.FollowingCount != 0 || b.FollowerCount != 0 {
		t.Fatalf("state not restored: alice=%+v bob=%+v", a, b)
	}

	if err := f.follows.Unfollow(ctx, alice.ID, bob.ID); !errors.Is(err, model.ErrNotFollowing) {
		t.Fatalf("expected ErrNotFollowing, got %v", err)
	}

	want := []string{queue.EventUserFollowed, queue.EventUserUnfollowed}
	if got := f.publisher.types(); !reflect.DeepEqual(got, want) {
		t.Errorf("published %v, want %v", got, want)
	}
}

func TestFollowService_Errors(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	ctx := context.Background()

	if err := f.follows.Follow(ctx, alice.ID, alice.ID); !errors.Is(err, model.ErrCannotFollowSelf) {
		t.Errorf("self follow: %v", err)
	}
	if err := f.follows.Follow(ctx, alice.ID, 404); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("missing followee: %v", err)
	}
	if len(f.publisher.types()) != 0 {
		t.Errorf("failed follows published events: %v", f.publisher.types())
	}
}

func TestFollowService_PublishFailureDoesNotFailFollow(t *testing.T) {
	f := newFixture(t)
	alice := f.signup(t, "alice")
	bob := f.signup(t, "bob")
	f.publisher.err = errBoom

	if err := f.follows.Follow(context.Background(), alice.ID, bob.ID); err != nil {
		t.Fatalf("Follow should succeed when the stream is down, got %v", err)
	}
}

func TestFollowService_ListsWithCursorAndStatus(t *testing.T) {
	f := newFixture(t)
	target := f.signup(t, "target")
	viewer := f.signup(t, "viewer")
	ctx := context.Background()

	var fans []*model.User
	for _, name := range []string{"f1", "f2", "f3"} {
		u := f.signup(t, name)
		fans = append(fans, u)
		if err := f.follows.Follow(ctx, u.ID, target.ID); err != nil {
			t.Fatalf("Follow: %v", err)
		}
	}
	if err := f.follows.Follow(ctx, viewer.ID, fans[2].ID); err != nil {
		t.Fatalf("Follow: %v", err)
	}

	page, err := f.follows.GetFollowers(ctx, target.ID, nil, 2, &viewer.ID)
	if err != nil {
		t.Fatalf("GetFollowers: %v", err)
	}
	if len(page.Users) != 2 || !page.HasMore || page.NextCursor == nil {
		t.Fatalf("first page = %+v", page)
	}
	if page.Users[0].ID != fans[2].ID || !page.Users[0].IsFollowing {
		t.Errorf("newest follower should be f3 followed by viewer: %+v", page.Users[0])
	}

	cursor, err := time.Parse(time.RFC3339Nano, *page.NextCursor)
	if err != nil {
		t.Fatalf("cursor not RFC3339Nano: %v", err)
	}
	rest, _ := f.follows.GetFollowers(ctx, target.ID, &cursor, 2, nil)
	if len(rest.Users) != 1 || rest.HasMore || rest.Users[0].ID != fans[0].ID {
		t.Errorf("second page = %+v", rest)
	}

	if _, err := f.follows.GetFollowing(ctx, 404, nil, 10, nil); !errors.Is(err, model.ErrUserNotFound) {
		t.Errorf("listing a missing user: %v", err)
	}
}
