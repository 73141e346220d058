package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/models"
	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) (*models.User, error)
	Activate(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash, tokenKey string, changedAt time.Time) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// UserResponse represents a user in HTTP responses
type UserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Phone            string `json:"phone"`
	PreferredRoute   string `json:"preferred_route"`
	PreferredPayment string `json:"preferred_payment"`
	Role             string `json:"role"`
	IsActive         bool   `json:"is_active"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:               user.ID,
		Email:            user.Email,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		Phone:            user.Phone,
		PreferredRoute:   user.PreferredRoute,
		PreferredPayment: user.PreferredPayment,
		Role:             user.Role,
		IsActive:         user.IsActive,
		CreatedAt:        user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        user.UpdatedAt.Format(time.RFC3339),
	}
}

// ProfileUpdate carries a partial profile change; nil fields are left untouched
type ProfileUpdate struct {
	FirstName        *string
	LastName         *string
	Phone            *string
	PreferredRoute   *string
	PreferredPayment *string
}

// UserList is one page of users
type UserList struct {
	Users  []*UserResponse `json:"users"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// UserService handles profile and administration use cases
type UserService struct {
	repo        UserRepository
	events      EventPublisher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(repo UserRepository, events EventPublisher, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		events:      events,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

func (s *UserService) GetProfile(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return userModelToResponse(user), nil
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = strings.TrimSpace(*update.LastName)
	}
	if update.Phone != nil {
		user.Phone = strings.TrimSpace(*update.Phone)
	}
	if update.PreferredRoute != nil {
		user.PreferredRoute = strings.TrimSpace(*update.PreferredRoute)
	}
	if update.PreferredPayment != nil {
		if !isValidPayment(*update.PreferredPayment) {
			return nil, fmt.Errorf("%w: unknown payment method", models.ErrBadRequest)
		}
		user.PreferredPayment = *update.PreferredPayment
	}

	updated, err := s.repo.Update(ctx, id, user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("user_id", id))
	return userModelToResponse(updated), nil
}

// DeleteAccount removes the user; its login attempts stay with a null user reference
func (s *UserService) DeleteAccount(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account deleted", slog.String("user_id", id))
	s.auditLogger.LogAccountAction("account_deleted", id, "", nil)
	publishEvent(ctx, s.events, s.logger, EventAccountDeleted, id, "")
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) (*UserList, error) {
	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Int("limit", limit), slog.Int("offset", offset), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	list := &UserList{Users: make([]*UserResponse, 0, len(users)), Total: total, Limit: limit, Offset: offset}
	for _, u := range users {
		list.Users = append(list.Users, userModelToResponse(u))
	}
	return list, nil
}

// AssignRole changes targetID's role. Admins cannot change their own role.
func (s *UserService) AssignRole(ctx context.Context, actorID, targetID, role string) (*UserResponse, error) {
	if !models.IsValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrBadRequest, role)
	}
	if actorID == targetID {
		return nil, fmt.Errorf("%w: cannot change your own role", models.ErrForbidden)
	}

	user, err := s.getUser(ctx, targetID)
	if err != nil {
		return nil, err
	}

	previous := user.Role
	user.Role = role

	updated, err := s.repo.Update(ctx, targetID, user)
	if err != nil {
		s.logger.Error("failed to assign role", slog.String("user_id", targetID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("role_assigned", targetID, "", map[string]string{
		"actor_id":      actorID,
		"previous_role": previous,
		"role":          role,
	})
	return userModelToResponse(updated), nil
}

func (s *UserService) getUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("user not found", slog.String("user_id", id))
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

func isValidPayment(p string) bool {
	switch p {
	case "", models.PaymentCard, models.PaymentPayPal, models.PaymentCash, models.PaymentTransfer:
		return true
	}
	return false
}
