package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"forumhub/internal/httputil"
	"forumhub/internal/model"
)

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{fmt.Errorf("%w: name is required", model.ErrValidation), http.StatusBadRequest, httputil.ErrCodeValidation},
		{model.ErrUserNotFound, http.StatusNotFound, httputil.ErrCodeNotFound},
		{fmt.Errorf("get: %w", model.ErrDiscussionNotFound), http.StatusNotFound, httputil.ErrCodeNotFound},
		{model.ErrCommentNotFound, http.StatusNotFound, httputil.ErrCodeNotFound},
		{model.ErrNotAccountOwner, http.StatusUnauthorized, httputil.ErrCodeForbidden},
		{model.ErrNotDiscussionOwner, http.StatusUnauthorized, httputil.ErrCodeForbidden},
		{model.ErrNotCommentOwner, http.StatusUnauthorized, httputil.ErrCodeForbidden},
		{model.ErrEmailExists, http.StatusBadRequest, httputil.ErrCodeConflict},
		{model.ErrAlreadyLiked, http.StatusBadRequest, httputil.ErrCodeConflict},
		{model.ErrNotYetLiked, http.StatusBadRequest, httputil.ErrCodeConflict},
		{model.ErrAlreadyFollowing, http.StatusBadRequest, httputil.ErrCodeConflict},
		{model.ErrNotFollowing, http.StatusBadRequest, httputil.ErrCodeConflict},
		{model.ErrCannotFollowSelf, http.StatusBadRequest, httputil.ErrCodeBadRequest},
		{model.ErrImagesDisabled, http.StatusBadRequest, httputil.ErrCodeBadRequest},
		{model.ErrFileTooLarge, http.StatusBadRequest, model.CodeFileTooLarge},
		{model.ErrInvalidImageType, http.StatusBadRequest, model.CodeInvalidImageType},
		{model.ErrInvalidCredentials, http.StatusUnauthorized, httputil.ErrCodeUnauthorized},
		{errors.New("connection reset"), http.StatusInternalServerError, httputil.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err, "test")

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body httputil.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Msg == "" {
				t.Error("empty msg")
			}
		})
	}
}

func TestWriteServiceError_HidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: password authentication failed"), "test")

	var body httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Msg != "Something went wrong" {
		t.Errorf("msg = %q, leaked internal error", body.Msg)
	}
}

func TestValidationMessageStripsSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, fmt.Errorf("%w: text is required", model.ErrValidation), "test")

	var body httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Msg != "text is required" {
		t.Errorf("msg = %q, want %q", body.Msg, "text is required")
	}
}
