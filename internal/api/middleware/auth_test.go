package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key-test-secret-key-0001", 15*time.Minute)
}

func captureSession(captured *auth.Session) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := auth.SessionFrom(r.Context()); ok {
			*captured = s
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken_Header(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)

	var session auth.Session
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Auth(jwtService)(captureSession(&session)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", session.UserID)
	assert.Equal(t, "test@example.com", session.Email)
	assert.Equal(t, "customer", session.Role)
	assert.Equal(t, token, session.Token)
}

func TestAuth_ValidToken_Cookie(t *testing.T) {
	jwtService := newTestJWTService()
	token, _, err := jwtService.GenerateAccessToken("user-123", "test@example.com", "customer")
	require.NoError(t, err)

	var session auth.Session
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()

	Auth(jwtService)(captureSession(&session)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-123", session.UserID)
}

func TestAuth_Rejects(t *testing.T) {
	jwtService := newTestJWTService()

	tests := []struct {
		name   string
		header string
	}{
		{"no token", ""},
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Auth(jwtService)(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, called)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name     string
		session  *auth.Session
		expected int
	}{
		{"no session", nil, http.StatusUnauthorized},
		{"wrong role", &auth.Session{UserID: "u", Role: "customer"}, http.StatusForbidden},
		{"admin", &auth.Session{UserID: "u", Role: auth.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.session != nil {
				req = req.WithContext(auth.WithSession(req.Context(), *tt.session))
			}
			rec := httptest.NewRecorder()

			RequireRole(auth.RoleAdmin)(ok).ServeHTTP(rec, req)

			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}
