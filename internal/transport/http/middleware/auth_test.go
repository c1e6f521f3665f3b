package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"forumhub/internal/httputil"
	"forumhub/internal/model"
)

const secret = "test-secret"

func sign(t *testing.T, claims jwt.MapClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestAuthMiddleware(t *testing.T) {
	valid := sign(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()}, secret)
	expired := sign(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(-time.Hour).Unix()}, secret)
	forged := sign(t, jwt.MapClaims{"user_id": 7, "exp": time.Now().Add(time.Hour).Unix()}, "other")
	noUser := sign(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}, secret)

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantErr  string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, http.StatusOK, ""},
		{"x-auth-token header", func(r *http.Request) { r.Header.Set(LegacyTokenHeader, valid) }, http.StatusOK, ""},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: valid}) }, http.StatusOK, ""},
		{"missing", func(r *http.Request) {}, http.StatusUnauthorized, httputil.ErrCodeUnauthorized},
		{"expired", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+expired) }, http.StatusUnauthorized, model.CodeTokenExpired},
		{"wrong key", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+forged) }, http.StatusUnauthorized, model.CodeTokenInvalid},
		{"no user claim", func(r *http.Request) { r.Header.Set(LegacyTokenHeader, noUser) }, http.StatusUnauthorized, model.CodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int64
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, _ = GetUserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			AuthMiddleware(secret)(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK {
				if gotID != 7 {
					t.Errorf("user id in context = %d, want 7", gotID)
				}
				return
			}

			var body httputil.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != tt.wantErr || body.Msg == "" {
				t.Errorf("error body = %+v, want code %s", body, tt.wantErr)
			}
		})
	}
}
