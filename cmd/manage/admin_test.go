package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/ecotrajet/ecotrajet/internal/models"
	pkgauth "github.com/ecotrajet/ecotrajet/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubUsers struct {
	existing *models.User
	lookErr  error
	created  *models.User
}

func (s *stubUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.lookErr != nil {
		return nil, s.lookErr
	}
	if s.existing != nil && s.existing.Email == email {
		return s.existing, nil
	}
	return nil, models.ErrNotFound
}

func (s *stubUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = "6f1c2d4e-0b7a-4c39-9d7e-2a1b3c4d5e6f"
	s.created = user
	return user, nil
}

func TestCreateAdmin(t *testing.T) {
	pkgauth.BcryptCost = bcrypt.MinCost

	t.Run("creates active admin", func(t *testing.T) {
		users := &stubUsers{}
		admin, err := createAdmin(context.Background(), users, adminInput{
			Email: " Root@EcoTrajet.com ", FirstName: "Root", Password: "Password1!",
		})
		require.NoError(t, err)
		assert.Equal(t, "root@ecotrajet.com", admin.Email)
		assert.Equal(t, models.RoleAdmin, admin.Role)
		assert.True(t, admin.IsActive)
		assert.NotNil(t, admin.PasswordChangedAt)
		assert.NoError(t, pkgauth.ComparePassword(admin.PasswordHash, "Password1!"))
	})

	t.Run("weak password refused", func(t *testing.T) {
		users := &stubUsers{}
		_, err := createAdmin(context.Background(), users, adminInput{Email: "a@b.co", Password: "password"})
		var strength *pkgauth.PasswordStrengthError
		assert.ErrorAs(t, err, &strength)
		assert.Nil(t, users.created)
	})

	t.Run("existing email refused", func(t *testing.T) {
		users := &stubUsers{existing: &models.User{Email: "a@b.co"}}
		_, err := createAdmin(context.Background(), users, adminInput{Email: "a@b.co", Password: "Password1!"})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("missing email refused", func(t *testing.T) {
		_, err := createAdmin(context.Background(), &stubUsers{}, adminInput{Password: "Password1!"})
		assert.ErrorIs(t, err, models.ErrBadRequest)
	})

	t.Run("lookup failure surfaces", func(t *testing.T) {
		users := &stubUsers{lookErr: errors.New("connection refused")}
		_, err := createAdmin(context.Background(), users, adminInput{Email: "a@b.co", Password: "Password1!"})
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestPromptPassword(t *testing.T) {
	original := readPassword
	t.Cleanup(func() { readPassword = original })

	answers := [][]byte{[]byte("Password1!"), []byte("Password1!")}
	readPassword = func(fd int) ([]byte, error) {
		next := answers[0]
		answers = answers[1:]
		return next, nil
	}

	var out bytes.Buffer
	pw, err := promptPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "Password1!", pw)
	assert.Contains(t, out.String(), "Password (again): ")

	answers = [][]byte{[]byte("Password1!"), []byte("Password2!")}
	_, err = promptPassword(&out)
	assert.ErrorIs(t, err, models.ErrPasswordMismatch)
}
