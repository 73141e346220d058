package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/models"
	pkgauth "github.com/ecotrajet/ecotrajet/pkg/auth"
	"golang.org/x/term"
)

// readPassword is replaced in tests
var readPassword = term.ReadPassword

type adminCreator interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

type adminInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// promptPassword reads the password twice without echo
func promptPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	first, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(w, "Password (again): ")
	second, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", models.ErrPasswordMismatch
	}
	return string(first), nil
}

// createAdmin creates an active admin account. The address must not be taken.
func createAdmin(ctx context.Context, users adminCreator, in adminInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid --email is required", models.ErrBadRequest)
	}

	password, err := pkgauth.ValidatePasswordStrength(in.Password)
	if err != nil {
		return nil, err
	}

	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: %s already exists", models.ErrConflict, email)
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up %s: %w", email, err)
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return users.Create(ctx, &models.User{
		Email:             email,
		PasswordHash:      hash,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Role:              models.RoleAdmin,
		IsActive:          true,
		PasswordChangedAt: &now,
	})
}
