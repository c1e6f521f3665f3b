package handler

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"

	"forumhub/internal/httputil"
	"forumhub/internal/model"
	"forumhub/internal/service"
)

// maxFormSize leaves room for the text fields next to a full-size image.
const maxFormSize = int64(model.MaxImageSizeBytes) + 1<<20

type DiscussionHandler struct {
	discussionService *service.DiscussionService
}

func NewDiscussionHandler(discussionService *service.DiscussionService) *DiscussionHandler {
	return &DiscussionHandler{
		discussionService: discussionService,
	}
}

// discussionBody is the JSON alternative to the multipart form.
type discussionBody struct {
	Text     string `json:"text"`
	Hashtags string `json:"hashtags"`
}

// readDiscussionInput accepts multipart/form-data (fields text, hashtags and
// an optional image part) or a JSON body without an image. The returned
// cleanup closes the uploaded file and removes spooled temp files.
func readDiscussionInput(w http.ResponseWriter, r *http.Request) (model.DiscussionInput, func(), bool) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body discussionBody
		if !decodeJSON(w, r, &body) {
			return model.DiscussionInput{}, noop, false
		}
		return model.DiscussionInput{Text: body.Text, Hashtags: body.Hashtags}, noop, true
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
		case errors.Is(err, http.ErrNotMultipart):
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data or application/json")
		default:
			httputil.WriteBadRequest(w, "Invalid form data")
		}
		return model.DiscussionInput{}, noop, false
	}

	in := model.DiscussionInput{
		Text:     r.FormValue("text"),
		Hashtags: r.FormValue("hashtags"),
	}

	removeTemp := func() { _ = r.MultipartForm.RemoveAll() }

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		in.Image = &model.ImageFile{File: file, Header: header}
		return in, func() { file.Close(); removeTemp() }, true
	case errors.Is(err, http.ErrMissingFile):
		return in, removeTemp, true
	default:
		removeTemp()
		httputil.WriteBadRequest(w, "Invalid image upload")
		return model.DiscussionInput{}, noop, false
	}
}

// Create handles POST /discussions
func (h *DiscussionHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	in, cleanup, ok := readDiscussionInput(w, r)
	if !ok {
		return
	}
	defer cleanup()

	d, err := h.discussionService.Create(r.Context(), userID, in)
	if err != nil {
		writeServiceError(w, err, "CreateDiscussion")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, d)
}

// Update handles PUT /discussions/{id}
func (h *DiscussionHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	in, cleanup, ok := readDiscussionInput(w, r)
	if !ok {
		return
	}
	defer cleanup()

	d, err := h.discussionService.Update(r.Context(), id, userID, in)
	if err != nil {
		writeServiceError(w, err, "UpdateDiscussion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// Delete handles DELETE /discussions/{id}
func (h *DiscussionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	if err := h.discussionService.Delete(r.Context(), id, userID); err != nil {
		writeServiceError(w, err, "DeleteDiscussion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"msg": "Discussion deleted"})
}

// GetByID handles GET /discussions/{id}
func (h *DiscussionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	d, err := h.discussionService.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "GetDiscussion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, d)
}

// List handles GET /discussions
func (h *DiscussionHandler) List(w http.ResponseWriter, r *http.Request) {
	discussions, err := h.discussionService.List(r.Context())
	h.writeList(w, discussions, err, "ListDiscussions")
}

// ListByTag handles GET /discussions/tag/{tag}
func (h *DiscussionHandler) ListByTag(w http.ResponseWriter, r *http.Request) {
	tag, ok := pathText(w, r, "tag")
	if !ok {
		return
	}
	discussions, err := h.discussionService.ListByTag(r.Context(), tag)
	h.writeList(w, discussions, err, "ListByTag")
}

// ListByText handles GET /discussions/text/{text}
func (h *DiscussionHandler) ListByText(w http.ResponseWriter, r *http.Request) {
	text, ok := pathText(w, r, "text")
	if !ok {
		return
	}
	discussions, err := h.discussionService.ListByText(r.Context(), strings.TrimSpace(text))
	h.writeList(w, discussions, err, "ListByText")
}

func (h *DiscussionHandler) writeList(w http.ResponseWriter, discussions []model.Discussion, err error, op string) {
	if err != nil {
		writeServiceError(w, err, op)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, discussions)
}

// Like handles PUT /discussions/like/{id}
func (h *DiscussionHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "LikeDiscussion", h.discussionService.Like)
}

// Unlike handles PUT /discussions/unlike/{id}
func (h *DiscussionHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.toggleLike(w, r, "UnlikeDiscussion", h.discussionService.Unlike)
}

func (h *DiscussionHandler) toggleLike(w http.ResponseWriter, r *http.Request, op string, toggle func(ctx context.Context, id, userID int64) ([]int64, error)) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	likes, err := toggle(r.Context(), id, userID)
	if err != nil {
		writeServiceError(w, err, op)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.LikesResponse{Likes: likes})
}

// View handles PUT /discussions/view/{id}. It needs no credential.
func (h *DiscussionHandler) View(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "discussion")
	if !ok {
		return
	}

	views, err := h.discussionService.View(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "ViewDiscussion")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.ViewsResponse{Views: views})
}
