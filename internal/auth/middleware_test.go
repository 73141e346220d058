package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/models"
	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRevocation struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocation) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return s.revoked[jti], s.err
}

func okHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetUserFromContext(r)
		require.NotNil(t, claims)
		assert.Equal(t, wantUserID, claims.UserID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func serveWithToken(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func setupMiddleware(t *testing.T) (*TokenManager, *models.User, *TokenPair) {
	user := &models.User{ID: "u-1", Email: "alice@example.com", TokenKey: "k", Role: models.RolePassenger, IsActive: true}
	tm := NewTokenManager("middleware-secret", time.Minute, time.Hour, stubUsers{user.ID: user})
	pair, err := tm.GeneratePair(user)
	require.NoError(t, err)
	return tm, user, pair
}

func TestAuthMiddleware_AcceptsAccessToken(t *testing.T) {
	tm, user, pair := setupMiddleware(t)

	rec := serveWithToken(AuthMiddleware(tm)(okHandler(t, user.ID)), pair.AccessToken)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	tm, _, pair := setupMiddleware(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run")
	})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + pair.AccessToken},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer abc.def.ghi"},
		{"refresh token", "Bearer " + pair.RefreshToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			AuthMiddleware(tm)(next).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body pkghttp.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "unauthorized", body.Error)
		})
	}
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	tm, _, pair := setupMiddleware(t)
	claims, err := tm.ValidateToken(context.Background(), pair.AccessToken)
	require.NoError(t, err)

	checker := &stubRevocation{revoked: map[string]bool{claims.ID: true}}
	h := AuthMiddlewareWithRevocation(tm, checker, RevocationConfig{})(okHandler(t, "u-1"))

	assert.Equal(t, http.StatusUnauthorized, serveWithToken(h, pair.AccessToken).Code)
}

func TestAuthMiddleware_RevocationStoreDown(t *testing.T) {
	tm, user, pair := setupMiddleware(t)
	checker := &stubRevocation{err: errors.New("connection refused")}

	open := AuthMiddlewareWithRevocation(tm, checker, RevocationConfig{FailClosed: false})(okHandler(t, user.ID))
	assert.Equal(t, http.StatusNoContent, serveWithToken(open, pair.AccessToken).Code)

	closed := AuthMiddlewareWithRevocation(tm, checker, RevocationConfig{FailClosed: true})(okHandler(t, user.ID))
	assert.Equal(t, http.StatusServiceUnavailable, serveWithToken(closed, pair.AccessToken).Code)
}

func TestRequireRole(t *testing.T) {
	tm, user, pair := setupMiddleware(t)
	users := stubUsers{user.ID: user}

	h := AuthMiddleware(tm)(RequireRole(users, models.RoleAdmin)(okHandler(t, user.ID)))
	assert.Equal(t, http.StatusForbidden, serveWithToken(h, pair.AccessToken).Code)

	user.Role = models.RoleAdmin
	assert.Equal(t, http.StatusNoContent, serveWithToken(h, pair.AccessToken).Code)
}

func TestRequireRole_WithoutClaims(t *testing.T) {
	h := RequireRole(stubUsers{}, models.RoleAdmin)(http.NotFoundHandler())

	rec := serveWithToken(h, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
