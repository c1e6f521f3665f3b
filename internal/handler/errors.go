package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"forumhub/internal/httputil"
	"forumhub/internal/logger"
	"forumhub/internal/model"
	"forumhub/internal/transport/http/middleware"
	"forumhub/internal/validate"
)

// writeServiceError maps the domain sentinels onto the response envelope.
// Anything unrecognised is logged with op and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, model.ErrValidation):
		httputil.WriteValidationError(w, validate.Message(err))

	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrDiscussionNotFound),
		errors.Is(err, model.ErrCommentNotFound):
		httputil.WriteNotFound(w, err.Error())

	case errors.Is(err, model.ErrNotAccountOwner),
		errors.Is(err, model.ErrNotDiscussionOwner),
		errors.Is(err, model.ErrNotCommentOwner):
		httputil.WriteForbidden(w, err.Error())

	case errors.Is(err, model.ErrEmailExists),
		errors.Is(err, model.ErrAlreadyLiked),
		errors.Is(err, model.ErrNotYetLiked),
		errors.Is(err, model.ErrAlreadyFollowing),
		errors.Is(err, model.ErrNotFollowing):
		httputil.WriteConflict(w, err.Error())

	case errors.Is(err, model.ErrCannotFollowSelf),
		errors.Is(err, model.ErrImagesDisabled):
		httputil.WriteBadRequest(w, err.Error())

	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Image exceeds 10MB limit")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")

	case errors.Is(err, model.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, "Invalid email or password")

	default:
		logger.Error.Printf("[Handler] %s: %v", op, err)
		httputil.WriteInternalError(w, "Something went wrong")
	}
}

// pathID parses a numeric URL parameter, writing a 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteBadRequest(w, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}

// pathText returns a free-text URL parameter decoded. chi matches on the raw
// path when the request carries escapes such as %2F, leaving them encoded.
func pathText(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v, true
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid "+name+" parameter")
		return "", false
	}
	return decoded, true
}

// callerID returns the authenticated user, writing a 401 when there is none.
func callerID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
	}
	return id, ok
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}
