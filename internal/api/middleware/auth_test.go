package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/letterpress-shop/internal/auth"
)

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService("test-secret-key", 15*time.Minute, 7*24*time.Hour)
}

func okHandler(captured **auth.Claims) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := r.Context().Value(UserContextKey).(*auth.Claims); ok {
			*captured = claims
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken_Header(t *testing.T) {
	jwtService := newTestJWTService()
	mw := AuthMiddleware(jwtService)

	token, _, err := jwtService.GenerateAccessToken("user-123", "test@example.com", "customer", true)
	require.NoError(t, err)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	mw(okHandler(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-123", captured.UserID)
	assert.Equal(t, "test@example.com", captured.Email)
	assert.True(t, captured.Approved)
}

func TestAuthMiddleware_ValidToken_Cookie(t *testing.T) {
	jwtService := newTestJWTService()
	mw := AuthMiddleware(jwtService)

	token, _, err := jwtService.GenerateAccessToken("user-456", "cookie@example.com", "admin", true)
	require.NoError(t, err)

	var captured *auth.Claims
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	rec := httptest.NewRecorder()

	mw(okHandler(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-456", captured.UserID)
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	mw := AuthMiddleware(newTestJWTService())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()

	var captured *auth.Claims
	mw(okHandler(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, captured)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	mw := AuthMiddleware(newTestJWTService())

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	var captured *auth.Claims
	mw(okHandler(&captured)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func withClaims(req *http.Request, claims *auth.Claims) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), UserContextKey, claims))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		claims   *auth.Claims
		wantCode int
	}{
		{"admin allowed", &auth.Claims{UserID: "u1", Role: "admin"}, http.StatusOK},
		{"customer forbidden", &auth.Claims{UserID: "u2", Role: "customer"}, http.StatusForbidden},
		{"no claims unauthorized", nil, http.StatusUnauthorized},
	}

	mw := RequireRole("admin")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.claims != nil {
				req = withClaims(req, tt.claims)
			}
			rec := httptest.NewRecorder()

			var captured *auth.Claims
			mw(okHandler(&captured)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestRequireApproved(t *testing.T) {
	tests := []struct {
		name     string
		claims   *auth.Claims
		wantCode int
	}{
		{"approved customer", &auth.Claims{UserID: "u1", Role: "customer", Approved: true}, http.StatusOK},
		{"pending customer", &auth.Claims{UserID: "u2", Role: "customer", Approved: false}, http.StatusForbidden},
		{"admin bypasses approval", &auth.Claims{UserID: "u3", Role: "admin", Approved: false}, http.StatusOK},
		{"no claims", nil, http.StatusUnauthorized},
	}

	mw := RequireApproved()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
			if tt.claims != nil {
				req = withClaims(req, tt.claims)
			}
			rec := httptest.NewRecorder()

			var captured *auth.Claims
			mw(okHandler(&captured)).ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
