package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/models"
	"github.com/ecotrajet/ecotrajet/internal/services"
	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with a JSON body
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds access token claims to the request context
func WithAuthContext(req *http.Request, userID, email string) *http.Request {
	claims := &models.TokenClaims{
		UserID: userID,
		Email:  email,
		Type:   models.TokenTypeAccess,
	}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// WithURLParams attaches chi route parameters to the request
func WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks the status and content type and decodes the body into target
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks the status and machine-readable error code
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthService implements AuthServiceInterface
type MockAuthService struct {
	LoginFunc        func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	RegisterFunc     func(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error)
	RefreshTokenFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc       func(ctx context.Context, callerID, refreshToken string) error
	ActivityFunc     func(ctx context.Context, userID string) ([]*models.LoginAttempt, error)
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, in)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAuthService) RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) Logout(ctx context.Context, callerID, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, callerID, refreshToken)
	}
	return nil
}

func (m *MockAuthService) Activity(ctx context.Context, userID string) ([]*models.LoginAttempt, error) {
	if m.ActivityFunc != nil {
		return m.ActivityFunc(ctx, userID)
	}
	return nil, nil
}

// MockAccountService implements AccountServiceInterface
type MockAccountService struct {
	VerifyEmailFunc          func(ctx context.Context, uid, token string) (*models.User, error)
	RequestPasswordResetFunc func(ctx context.Context, email string) bool
	ConfirmPasswordResetFunc func(ctx context.Context, uid, token, password, confirm string) error
	ChangePasswordFunc       func(ctx context.Context, userID, oldPassword, newPassword, confirm string) error
}

func (m *MockAccountService) VerifyEmail(ctx context.Context, uid, token string) (*models.User, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, uid, token)
	}
	return nil, models.ErrInvalidToken
}

func (m *MockAccountService) RequestPasswordReset(ctx context.Context, email string) bool {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return false
}

func (m *MockAccountService) ConfirmPasswordReset(ctx context.Context, uid, token, password, confirm string) error {
	if m.ConfirmPasswordResetFunc != nil {
		return m.ConfirmPasswordResetFunc(ctx, uid, token, password, confirm)
	}
	return nil
}

func (m *MockAccountService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, oldPassword, newPassword, confirm)
	}
	return nil
}

// MockUserService implements UserServiceInterface
type MockUserService struct {
	GetProfileFunc    func(ctx context.Context, id string) (*services.UserResponse, error)
	UpdateProfileFunc func(ctx context.Context, id string, update services.ProfileUpdate) (*services.UserResponse, error)
	DeleteAccountFunc func(ctx context.Context, id string) error
	ListUsersFunc     func(ctx context.Context, limit, offset int) (*services.UserList, error)
	AssignRoleFunc    func(ctx context.Context, actorID, targetID, role string) (*services.UserResponse, error)
}

func (m *MockUserService) GetProfile(ctx context.Context, id string) (*services.UserResponse, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, update services.ProfileUpdate) (*services.UserResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, update)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) DeleteAccount(ctx context.Context, id string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, id)
	}
	return nil
}

func (m *MockUserService) ListUsers(ctx context.Context, limit, offset int) (*services.UserList, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, limit, offset)
	}
	return &services.UserList{Limit: limit, Offset: offset}, nil
}

func (m *MockUserService) AssignRole(ctx context.Context, actorID, targetID, role string) (*services.UserResponse, error) {
	if m.AssignRoleFunc != nil {
		return m.AssignRoleFunc(ctx, actorID, targetID, role)
	}
	return nil, models.ErrNotFound
}
