package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/models"
	"github.com/ecotrajet/ecotrajet/internal/services"
	pkgauth "github.com/ecotrajet/ecotrajet/pkg/auth"
	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	Register(ctx context.Context, in services.RegisterInput) (*services.AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	Logout(ctx context.Context, callerID, refreshToken string) error
	Activity(ctx context.Context, userID string) ([]*models.LoginAttempt, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	ipConfig *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
	}
}

// Request DTOs

// LoginRequest represents the request body for login. Email is the identifier
// and is not format-checked so that every submission reaches the attempt log.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email,max=254"`
	Password         string `json:"password" validate:"required"`
	FirstName        string `json:"first_name" validate:"max=100"`
	LastName         string `json:"last_name" validate:"max=100"`
	Phone            string `json:"phone" validate:"max=20"`
	PreferredRoute   string `json:"preferred_route" validate:"max=255"`
	PreferredPayment string `json:"preferred_payment" validate:"omitempty,oneof=carte paypal cash virement"`
	Role             string `json:"role" validate:"omitempty,oneof=passager conducteur"`
}

// RefreshTokenRequest represents the request body for token refresh and logout
type RefreshTokenRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// SessionResponse is an AuthResponse stamped with the request time and login
type SessionResponse struct {
	*services.AuthResponse
	Timestamp string `json:"timestamp"`
	UserLogin string `json:"user_login"`
}

// MessageResponse is the body of endpoints that only report an outcome
type MessageResponse struct {
	Message string `json:"message"`
}

func newSessionResponse(resp *services.AuthResponse) SessionResponse {
	s := SessionResponse{AuthResponse: resp, Timestamp: timestamp()}
	if resp.User != nil {
		s.UserLogin = resp.User.Email
	}
	return s
}

// Login handles user login
// @Summary Obtain a session credential pair
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/token [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	authResp, err := h.service.Login(r.Context(), services.LoginInput{
		Identifier: req.Email,
		Password:   req.Password,
		IPAddress:  pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent:  r.Header.Get("User-Agent"),
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteError(w, http.StatusTooManyRequests, "account_locked",
				"Account temporarily locked due to too many failed login attempts. Try again later.")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "No active account found with the given credentials")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newSessionResponse(authResp))
}

// Register handles user registration
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} SessionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	authResp, err := h.service.Register(r.Context(), services.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		PreferredRoute:   req.PreferredRoute,
		PreferredPayment: req.PreferredPayment,
		Role:             req.Role,
	})
	if err != nil {
		var strengthErr *pkgauth.PasswordStrengthError
		switch {
		case errors.As(err, &strengthErr):
			pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", strengthErr.Message)
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "A user with this email already exists.")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, err.Error())
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, newSessionResponse(authResp))
}

// RefreshToken rotates the session credential pair
// @Summary Refresh access token
// @Accept json
// @Param request body RefreshTokenRequest true "Refresh token request"
// @Produce json
// @Success 200 {object} services.AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/token/refresh [post]
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	authResp, err := h.service.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Token is invalid or expired")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, authResp)
}

// Logout blacklists the caller's refresh token
// @Summary User logout
// @Accept json
// @Security BearerAuth
// @Param request body RefreshTokenRequest true "Refresh token to blacklist"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req RefreshTokenRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.service.Logout(r.Context(), claims.UserID, req.Refresh); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_token", "Token is invalid or expired")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logout successful"})
}

// Activity lists the caller's most recent login attempts
// @Summary Login activity
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.LoginAttempt
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /auth/activity [get]
func (h *AuthHandler) Activity(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	attempts, err := h.service.Activity(r.Context(), claims.UserID)
	if err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, attempts)
}
