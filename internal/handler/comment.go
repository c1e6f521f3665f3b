package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"forumhub/internal/httputil"
	"forumhub/internal/model"
	"forumhub/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// Add handles POST /discussions/comment/{id} and returns the discussion's
// comments, newest first.
func (h *CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	discussionID, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	var req model.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comments, err := h.commentService.Add(r.Context(), discussionID, userID, req)
	if err != nil {
		writeServiceError(w, err, "AddComment")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, comments)
}

// Delete handles DELETE /discussions/comment/{id}/{comment_id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	discussionID, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	comments, err := h.commentService.Delete(r.Context(), discussionID, chi.URLParam(r, "comment_id"), userID)
	if err != nil {
		writeServiceError(w, err, "DeleteComment")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comments)
}

// Edit handles PUT /discussions/comment/{id}/{comment_id} and returns the
// whole discussion.
func (h *CommentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	discussionID, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	var req model.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.commentService.Edit(r.Context(), discussionID, chi.URLParam(r, "comment_id"), userID, req)
	if err != nil {
		writeServiceError(w, err, "EditComment")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// Like handles PUT /discussions/comment/like/{id}/{comment_id}
func (h *CommentHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "LikeComment", h.commentService.Like)
}

// Unlike handles PUT /discussions/comment/unlike/{id}/{comment_id}
func (h *CommentHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "UnlikeComment", h.commentService.Unlike)
}

func (h *CommentHandler) toggleLike(w http.ResponseWriter, r *http.Request, op string, toggle func(ctx context.Context, discussionID int64, commentID string, userID int64) ([]int64, error)) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	discussionID, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	likes, err := toggle(r.Context(), discussionID, chi.URLParam(r, "comment_id"), userID)
	if err != nil {
		writeServiceError(w, err, op)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.LikesResponse{Likes: likes})
}
