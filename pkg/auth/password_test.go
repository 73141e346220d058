package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		rule     string
		message  string
	}{
		{
			name:     "too short",
			password: "short1!",
			rule:     RuleLength,
			message:  "Password must be at least 8 characters long.",
		},
		{
			name:     "missing uppercase",
			password: "password1!",
			rule:     RuleUppercase,
			message:  "Password must contain at least one uppercase letter.",
		},
		{
			name:     "missing lowercase",
			password: "PASSWORD1!",
			rule:     RuleLowercase,
			message:  "Password must contain at least one lowercase letter.",
		},
		{
			name:     "missing digit",
			password: "Password!",
			rule:     RuleDigit,
			message:  "Password must contain at least one number.",
		},
		{
			name:     "missing special character",
			password: "Password1",
			rule:     RuleSpecial,
			message:  "Password must contain at least one special character.",
		},
		{
			name:     "only the first failing rule is reported",
			password: "abc",
			rule:     RuleLength,
			message:  "Password must be at least 8 characters long.",
		},
		{
			name:     "symbol outside the special set does not count",
			password: "Password1~",
			rule:     RuleSpecial,
		},
		{
			name:     "longer than bcrypt accepts",
			password: "Aa1!" + strings.Repeat("x", 80),
			rule:     RuleMaxLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePasswordStrength(tt.password)
			require.Error(t, err)
			assert.Empty(t, got)

			var strengthErr *PasswordStrengthError
			require.True(t, errors.As(err, &strengthErr))
			assert.Equal(t, tt.rule, strengthErr.Rule)
			if tt.message != "" {
				assert.Equal(t, tt.message, err.Error())
			}
		})
	}
}

func TestValidatePasswordStrength_Accepts(t *testing.T) {
	for _, password := range []string{"Password1!", "Secure#P@ssw0rd", "Éclair99{}"} {
		got, err := ValidatePasswordStrength(password)
		assert.NoError(t, err, password)
		assert.Equal(t, password, got)
	}
}

func TestHashAndComparePassword(t *testing.T) {
	BcryptCost = bcrypt.MinCost

	hash, err := HashPassword("Password1!")
	require.NoError(t, err)
	assert.NotEqual(t, "Password1!", hash)

	assert.NoError(t, ComparePassword(hash, "Password1!"))
	assert.Error(t, ComparePassword(hash, "Password2!"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestGenerateTokenKey_Unique(t *testing.T) {
	a, err := GenerateTokenKey()
	require.NoError(t, err)
	b, err := GenerateTokenKey()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 44)
}
