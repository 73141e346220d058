package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/models"
	pkgauth "github.com/ecotrajet/ecotrajet/pkg/auth"
	pkghttp "github.com/ecotrajet/ecotrajet/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountServiceInterface defines the email verification and password flows
type AccountServiceInterface interface {
	VerifyEmail(ctx context.Context, uid, token string) (*models.User, error)
	RequestPasswordReset(ctx context.Context, email string) bool
	ConfirmPasswordReset(ctx context.Context, uid, token, password, confirm string) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error
}

// AccountHandler serves the link-based account flows and password change
type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	UID             string `json:"uid" validate:"required"`
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// VerifyEmail activates the account named by the link
// @Summary Verify email address
// @Param uid path string true "Encoded user id"
// @Param token path string true "Verification token"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/verify-email/{uid}/{token} [get]
func (h *AccountHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.VerifyEmail(r.Context(), chi.URLParam(r, "uid"), chi.URLParam(r, "token"))
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidUID):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_link", "Invalid verification link.")
		case errors.Is(err, models.ErrInvalidToken):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_token", "Invalid verification token.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Email verified successfully. Your account is now active."})
}

// RequestPasswordReset always answers 200
// @Summary Request a password reset email
// @Accept json
// @Param request body PasswordResetRequest true "Password reset request"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/password-reset [post]
func (h *AccountHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	message := "Password reset email has been sent if the email exists."
	if h.service.RequestPasswordReset(r.Context(), req.Email) {
		message = "Password reset email has been sent."
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// ConfirmPasswordReset sets a new password from a reset link
// @Summary Confirm password reset
// @Accept json
// @Param request body PasswordResetConfirmRequest true "Password reset confirmation"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/password-reset/confirm [post]
func (h *AccountHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetConfirmRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	err := h.service.ConfirmPasswordReset(r.Context(), req.UID, req.Token, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case writePasswordError(w, err):
		case errors.Is(err, models.ErrInvalidUID):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_link", "Invalid reset link.")
		case errors.Is(err, models.ErrInvalidToken):
			pkghttp.WriteError(w, http.StatusBadRequest, "invalid_token", "Invalid token.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset successfully."})
}

// ChangePassword replaces the caller's password and ends every session
// @Summary Change password
// @Accept json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/change-password [post]
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	err := h.service.ChangePassword(r.Context(), claims.UserID, req.OldPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		switch {
		case writePasswordError(w, err):
		case errors.Is(err, models.ErrIncorrectPassword):
			pkghttp.WriteError(w, http.StatusBadRequest, "incorrect_password", "Old password is incorrect.")
		case errors.Is(err, models.ErrPasswordUnchanged):
			pkghttp.WriteError(w, http.StatusBadRequest, "password_reused", "New password must be different from old password.")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "unauthorized")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "Password changed successfully. Please log in again with your new password.",
	})
}

// writePasswordError handles the errors shared by every flow that sets a password
func writePasswordError(w http.ResponseWriter, err error) bool {
	var strengthErr *pkgauth.PasswordStrengthError
	switch {
	case errors.Is(err, models.ErrPasswordMismatch):
		pkghttp.WriteError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match.")
	case errors.As(err, &strengthErr):
		pkghttp.WriteError(w, http.StatusBadRequest, "weak_password", strengthErr.Message)
	default:
		return false
	}
	return true
}
