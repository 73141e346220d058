package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/auth"
	"github.com/ecotrajet/ecotrajet/internal/models"
	pkgauth "github.com/ecotrajet/ecotrajet/pkg/auth"
	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
)

// AccountTokenService runs the email verification, password reset and
// password change flows on top of stateless account tokens.
type AccountTokenService struct {
	users        UserRepository
	verifyTokens *auth.AccountTokenGenerator
	resetTokens  *auth.AccountTokenGenerator
	mailer       Mailer
	links        AccountLinks
	events       EventPublisher
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	now          func() time.Time
}

func NewAccountTokenService(
	users UserRepository,
	verifyTokens, resetTokens *auth.AccountTokenGenerator,
	mailer Mailer,
	links AccountLinks,
	events EventPublisher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AccountTokenService {
	return &AccountTokenService{
		users:        users,
		verifyTokens: verifyTokens,
		resetTokens:  resetTokens,
		mailer:       mailer,
		links:        links,
		events:       events,
		logger:       logger,
		auditLogger:  auditLogger,
		now:          time.Now,
	}
}

// SendVerification emails user a link to activate the account
func (s *AccountTokenService) SendVerification(ctx context.Context, user *models.User) error {
	link := s.links.VerifyEmail(auth.EncodeUID(user.ID), s.verifyTokens.MakeToken(user))
	return s.mailer.Send(ctx, verificationEmail(user.Email, link))
}

// VerifyEmail activates the account identified by uid when token matches its current state.
// Verifying an already active account with a still-valid token succeeds without changes.
func (s *AccountTokenService) VerifyEmail(ctx context.Context, uid, token string) (*models.User, error) {
	user, err := s.userFromUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if !s.verifyTokens.CheckToken(user, token) {
		s.logger.Info("email verification rejected: invalid token", slog.String("user_id", user.ID))
		return nil, models.ErrInvalidToken
	}

	if user.IsActive {
		return user, nil
	}

	if err := s.users.Activate(ctx, user.ID); err != nil {
		s.logger.Error("failed to activate user", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	user.IsActive = true

	s.logger.Info("email verified", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("email_verified", user.ID, "", nil)
	publishEvent(ctx, s.events, s.logger, EventAccountVerified, user.ID, user.Role)

	return user, nil
}

// RequestPasswordReset emails a reset link when the address belongs to an account.
// It reports whether an email went out; lookup and delivery failures are logged
// and reported as not sent so callers can answer identically either way.
func (s *AccountTokenService) RequestPasswordReset(ctx context.Context, email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		}
		s.logger.Info("password reset requested for unknown email",
			slog.String("email", pkglogger.SanitizedEmail(email)))
		return false
	}

	link := s.links.ResetPassword(auth.EncodeUID(user.ID), s.resetTokens.MakeToken(user))
	if err := s.mailer.Send(ctx, passwordResetEmail(user.Email, link)); err != nil {
		s.logger.Error("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return false
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, "", nil)
	return true
}

// ConfirmPasswordReset checks, in order: confirmation match, strength, uid, token.
func (s *AccountTokenService) ConfirmPasswordReset(ctx context.Context, uid, token, password, confirm string) error {
	if password != confirm {
		return models.ErrPasswordMismatch
	}

	if _, err := pkgauth.ValidatePasswordStrength(password); err != nil {
		return err
	}

	user, err := s.userFromUID(ctx, uid)
	if err != nil {
		return err
	}

	if !s.resetTokens.CheckToken(user, token) {
		s.logger.Info("password reset rejected: invalid token", slog.String("user_id", user.ID))
		return models.ErrInvalidToken
	}

	if err := s.setPassword(ctx, user, password); err != nil {
		return err
	}

	s.logger.Info("password reset", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("password_reset", user.ID, "", nil)
	publishEvent(ctx, s.events, s.logger, EventAccountPasswordReset, user.ID, user.Role)
	return nil
}

// ChangePassword checks, in order: old password, confirmation match, reuse, strength.
func (s *AccountTokenService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword, confirm string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for password change", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, oldPassword); err != nil {
		s.auditLogger.LogPasswordChange(user.ID, "", false)
		return models.ErrIncorrectPassword
	}

	if newPassword != confirm {
		return models.ErrPasswordMismatch
	}

	if newPassword == oldPassword {
		return models.ErrPasswordUnchanged
	}

	if _, err := pkgauth.ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	if err := s.setPassword(ctx, user, newPassword); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.String("user_id", user.ID))
	s.auditLogger.LogPasswordChange(user.ID, "", true)
	publishEvent(ctx, s.events, s.logger, EventAccountPasswordChanged, user.ID, user.Role)
	return nil
}

// setPassword stores the new hash and rotates the token key, which ends every
// JWT session and, through the new hash, every outstanding reset link.
func (s *AccountTokenService) setPassword(ctx context.Context, user *models.User, password string) error {
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	tokenKey, err := pkgauth.GenerateTokenKey()
	if err != nil {
		s.logger.Error("failed to generate token key", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := s.now().UTC()
	if err := s.users.UpdatePassword(ctx, user.ID, hash, tokenKey, now); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	user.PasswordHash = hash
	user.TokenKey = tokenKey
	user.PasswordChangedAt = &now
	return nil
}

func (s *AccountTokenService) userFromUID(ctx context.Context, uid string) (*models.User, error) {
	id, ok := auth.DecodeUID(uid)
	if !ok {
		return nil, models.ErrInvalidUID
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrInvalidUID
		}
		s.logger.Error("failed to look up user by uid", slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrInternalServer, err)
	}
	return user, nil
}
