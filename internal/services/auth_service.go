package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

// ActivityLimit is the number of login attempts returned by Activity
const ActivityLimit = 20

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// VerificationSender emails a freshly registered user their verification link
type VerificationSender interface {
	SendVerification(ctx context.Context, user *models.User) error
}

// AuthResponse is returned by login, registration and refresh
type AuthResponse struct {
	AccessToken  string        `json:"access"`
	RefreshToken string        `json:"refresh"`
	User         *UserResponse `json:"user"`
}

// LoginInput is one credential submission. Identifier is kept verbatim for the attempt log.
type LoginInput struct {
	Identifier string
	Password   string
	IPAddress  string
	UserAgent  string
}

// RegisterInput carries a registration request after shape validation
type RegisterInput struct {
	Email            string
	Password         string
	FirstName        string
	LastName         string
	Phone            string
	PreferredRoute   string
	PreferredPayment string
	Role             string
}

// AuthService handles authentication business logic
type AuthService struct {
	users       UserRepository
	guard       *LockoutGuard
	revocations TokenRevocationRepository
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	verifier    VerificationSender
	events      EventPublisher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	dummyHash   string
}

func NewAuthService(
	users UserRepository,
	guard *LockoutGuard,
	revocations TokenRevocationRepository,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	verifier VerificationSender,
	events EventPublisher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) (*AuthService, error) {
	// Compared against when the identifier is unknown so both paths pay for a bcrypt check
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("failed to seed dummy hash: %w", err)
	}
	dummyHash, err := pkgauth.HashPassword(hex.EncodeToString(seed))
	if err != nil {
		return nil, err
	}

	return &AuthService{
		users:       users,
		guard:       guard,
		revocations: revocations,
		tm:          tm,
		timing:      timing,
		verifier:    verifier,
		events:      events,
		logger:      logger,
		auditLogger: auditLogger,
		dummyHash:   dummyHash,
	}, nil
}

// Login verifies credentials, appends exactly one attempt to the log and then
// applies the lockout rule. A locked account is refused even when the password
// is correct; the refusal itself is not logged as another attempt.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	start := time.Now()
	identifier := strings.TrimSpace(in.Identifier)

	var user *models.User
	if identifier != "" {
		u, err := s.users.GetByEmail(ctx, strings.ToLower(identifier))
		switch {
		case err == nil:
			user = u
		case errors.Is(err, models.ErrNotFound):
		default:
			s.logger.Error("failed to get user by identifier", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	success, reason := s.checkCredentials(user, in.Password)

	attempt := &models.LoginAttempt{
		Identifier: in.Identifier,
		IPAddress:  in.IPAddress,
		UserAgent:  in.UserAgent,
		Success:    success,
	}
	if user != nil {
		attempt.UserID = &user.ID
	}
	if !success {
		attempt.FailureReason = &reason
	}

	if err := s.guard.RecordAttempt(ctx, attempt); err != nil {
		s.logger.Error("failed to record login attempt", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user != nil && s.guard.IsLocked(ctx, user.ID) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_locked",
			UserID:        user.ID,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: "account_locked",
		})
		publishEvent(ctx, s.events, s.logger, EventAccountLocked, user.ID, user.Role)
		s.timing.WaitFrom(start, false)
		return nil, models.ErrAccountLocked
	}

	if !success {
		event := pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: reason,
		}
		if user != nil {
			event.UserID = user.ID
		}
		s.auditLogger.LogAuthAttempt(event)
		s.timing.WaitFrom(start, false)
		return nil, models.ErrUnauthorized
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", slog.String("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLoginAt = &now
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: in.IPAddress,
		UserAgent: in.UserAgent,
		Success:   true,
	})
	return resp, nil
}

// checkCredentials succeeds only for an existing, active user with a matching password
func (s *AuthService) checkCredentials(user *models.User, password string) (bool, string) {
	if user == nil {
		_ = pkgauth.ComparePassword(s.dummyHash, password)
		return false, models.LoginFailureUnknownIdentifier
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		return false, models.LoginFailureInvalidCredentials
	}

	if !user.IsActive {
		return false, models.LoginFailureInactiveAccount
	}

	return true, ""
}

// Register creates an inactive account, emails the verification link and
// returns a credential pair that becomes usable once the email is verified.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}

	role := in.Role
	if role == "" {
		role = models.RolePassenger
	}
	if role != models.RolePassenger && role != models.RoleDriver {
		return nil, fmt.Errorf("%w: role must be %s or %s", models.ErrBadRequest, models.RolePassenger, models.RoleDriver)
	}

	if !isValidPayment(in.PreferredPayment) {
		return nil, fmt.Errorf("%w: unknown payment method", models.ErrBadRequest)
	}

	if _, err := pkgauth.ValidatePasswordStrength(in.Password); err != nil {
		return nil, err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: user already exists")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &models.User{
		Email:             email,
		PasswordHash:      hashedPassword,
		FirstName:         strings.TrimSpace(in.FirstName),
		LastName:          strings.TrimSpace(in.LastName),
		Phone:             strings.TrimSpace(in.Phone),
		PreferredRoute:    strings.TrimSpace(in.PreferredRoute),
		PreferredPayment:  in.PreferredPayment,
		Role:              role,
		IsActive:          false,
		PasswordChangedAt: &now,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.verifier.SendVerification(ctx, created); err != nil {
		s.logger.Error("failed to send verification email",
			slog.String("user_id", created.ID),
			slog.Any("error", err))
	}

	resp, err := s.issue(created)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID), slog.String("role", created.Role))
	s.auditLogger.LogAccountAction("user_registered", created.ID, "", map[string]string{"role": created.Role})
	publishEvent(ctx, s.events, s.logger, EventAccountRegistered, created.ID, created.Role)

	return resp, nil
}

// RefreshToken rotates a refresh token: the presented one is revoked and a new pair issued
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.revocations.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, claims.ExpiresAt.Time, "rotated"); err != nil {
		s.logger.Error("failed to revoke rotated refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("token refreshed", slog.String("user_id", user.ID))
	return s.issue(user)
}

// Logout blacklists refreshToken, which must be a live refresh token owned by callerID
func (s *AuthService) Logout(ctx context.Context, callerID, refreshToken string) error {
	claims, err := s.validateRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, models.ErrInternalServer) {
			return err
		}
		return models.ErrInvalidToken
	}

	if claims.UserID != callerID {
		s.logger.Warn("logout with another user's refresh token", slog.String("user_id", callerID))
		return models.ErrInvalidToken
	}

	if err := s.revocations.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, claims.ExpiresAt.Time, "logout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out", slog.String("user_id", callerID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{EventType: "logout", UserID: callerID, Success: true})
	return nil
}

// Activity returns the caller's most recent login attempts, newest first
func (s *AuthService) Activity(ctx context.Context, userID string) ([]*models.LoginAttempt, error) {
	attempts, err := s.guard.RecentAttempts(ctx, userID, ActivityLimit)
	if err != nil {
		s.logger.Error("failed to list login attempts", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return attempts, nil
}

func (s *AuthService) validateRefresh(ctx context.Context, refreshToken string) (*models.TokenClaims, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(ctx, refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	revoked, err := s.revocations.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.Error("failed to check token revocation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if revoked {
		s.logger.Info("revoked refresh token presented", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	return claims, nil
}

func (s *AuthService) issue(user *models.User) (*AuthResponse, error) {
	pair, err := s.tm.GeneratePair(user)
	if err != nil {
		s.logger.Error("failed to generate tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &AuthResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         userModelToResponse(user),
	}, nil
}
