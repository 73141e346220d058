package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/models"
	"github.com/ecotrajet/ecotrajet/internal/services"
	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserServiceInterface defines the interface for profile and admin user logic
type UserServiceInterface interface {
	GetProfile(ctx context.Context, id string) (*services.UserResponse, error)
	UpdateProfile(ctx context.Context, id string, update services.ProfileUpdate) (*services.UserResponse, error)
	DeleteAccount(ctx context.Context, id string) error
	ListUsers(ctx context.Context, limit, offset int) (*services.UserList, error)
	AssignRole(ctx context.Context, actorID, targetID, role string) (*services.UserResponse, error)
}

// UserHandler handles profile and user administration requests
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// UpdateProfileRequest represents a partial profile update; absent fields are kept
type UpdateProfileRequest struct {
	FirstName        *string `json:"first_name" validate:"omitempty,max=100"`
	LastName         *string `json:"last_name" validate:"omitempty,max=100"`
	Phone            *string `json:"phone" validate:"omitempty,max=20"`
	PreferredRoute   *string `json:"preferred_route" validate:"omitempty,max=255"`
	PreferredPayment *string `json:"preferred_payment" validate:"omitempty,oneof=carte paypal cash virement"`
}

// AssignRoleRequest represents the request body for role assignment
type AssignRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=passager conducteur admin"`
}

// ProfileResponse is a profile stamped with the request time and login
type ProfileResponse struct {
	*services.UserResponse
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	UserLogin string `json:"user_login"`
}

// GetProfile returns the caller's profile
// @Summary Get own profile
// @Security BearerAuth
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /auth/profile [get]
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ProfileResponse{
		UserResponse: profile,
		Timestamp:    timestamp(),
		UserLogin:    profile.Email,
	})
}

// UpdateProfile applies a partial update to the caller's profile
// @Summary Update own profile
// @Accept json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/profile [patch]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), claims.UserID, services.ProfileUpdate{
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		PreferredRoute:   req.PreferredRoute,
		PreferredPayment: req.PreferredPayment,
	})
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ProfileResponse{
		UserResponse: profile,
		Message:      "Profile updated successfully.",
		Timestamp:    timestamp(),
		UserLogin:    profile.Email,
	})
}

// DeleteProfile deletes the caller's account
// @Summary Delete own account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/profile [delete]
func (h *UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), claims.UserID); err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message":    "User account deleted successfully.",
		"timestamp":  timestamp(),
		"user_login": claims.Email,
	})
}

// ListUsers lists users with pagination
//
// @Summary List users
// @Security BearerAuth
// @Param limit query int false "Limit (default 20)" default(20)
// @Param offset query int false "Offset (default 0)" default(0)
// @Produce json
// @Success 200 {object} services.UserList
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 20, 1, 100)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid limit parameter")
		return
	}

	offset, err := queryInt(r, "offset", 0, 0, 100000)
	if err != nil {
		pkghttp.WriteBadRequest(w, "Invalid offset parameter")
		return
	}

	list, err := h.service.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, list)
}

// AssignRole changes a user's role
//
// @Summary Assign role
// @Accept json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body AssignRoleRequest true "Role"
// @Produce json
// @Success 200 {object} services.UserResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/role [put]
func (h *UserHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	targetID := chi.URLParam(r, "id")
	if targetID == "" {
		pkghttp.WriteBadRequest(w, "User ID is required")
		return
	}

	var req AssignRoleRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	user, err := h.service.AssignRole(r.Context(), claims.UserID, targetID, req.Role)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

func writeUserError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "User not found")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, strings.TrimPrefix(err.Error(), models.ErrBadRequest.Error()+": "))
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, strings.TrimPrefix(err.Error(), models.ErrForbidden.Error()+": "))
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// queryInt parses an optional integer query parameter within [min, max]
func queryInt(r *http.Request, name string, def, min, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < min || n > max {
		return 0, errors.New("parameter out of range")
	}
	return n, nil
}
