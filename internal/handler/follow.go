package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"forumhub/internal/httputil"
	"forumhub/internal/model"
	"forumhub/internal/service"
)

type FollowHandler struct {
	followService *service.FollowService
}

func NewFollowHandler(followService *service.FollowService) *FollowHandler {
	return &FollowHandler{
		followService: followService,
	}
}

// Follow handles PUT /users/follow/{id}
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := callerID(w, r)
	if !ok {
		return
	}
	followeeID, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.followService.Follow(r.Context(), followerID, followeeID); err != nil {
		writeServiceError(w, err, "Follow")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"msg": "Successfully followed user"})
}

// Unfollow handles PUT /users/unfollow/{id}
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := callerID(w, r)
	if !ok {
		return
	}
	followeeID, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.followService.Unfollow(r.Context(), followerID, followeeID); err != nil {
		writeServiceError(w, err, "Unfollow")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"msg": "Successfully unfollowed user"})
}

// GetFollowers handles GET /users/{id}/followers?cursor=&limit=
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "GetFollowers", h.followService.GetFollowers)
}

// GetFollowing handles GET /users/{id}/following?cursor=&limit=
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "GetFollowing", h.followService.GetFollowing)
}

type followListFunc func(ctx context.Context, userID int64, cursor *time.Time, limit int, viewerID *int64) (*model.FollowListResponse, error)

func (h *FollowHandler) list(w http.ResponseWriter, r *http.Request, op string, fetch followListFunc) {
	viewerID, ok := callerID(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "id", "user")
	if !ok {
		return
	}

	var cursor *time.Time
	if c := r.URL.Query().Get("cursor"); c != "" {
		parsed, err := time.Parse(time.RFC3339Nano, c)
		if err != nil {
			httputil.WriteBadRequest(w, "Invalid cursor format")
			return
		}
		cursor = &parsed
	}

	limit := service.FollowListDefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 || parsed > service.FollowListMaxLimit {
			httputil.WriteBadRequest(w, "Limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	result, err := fetch(r.Context(), userID, cursor, limit, &viewerID)
	if err != nil {
		writeServiceError(w, err, op)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
