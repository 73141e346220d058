package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const (
	TokenKeyLength = 32 // 256 bits
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt input limit in bytes

	// SpecialCharacters is the punctuation set a password must draw from
	SpecialCharacters = `!@#$%^&*(),.?":{}|<>`
)

// BcryptCost is a variable so tests can drop to bcrypt.MinCost
var BcryptCost = 12

// Password strength rules, in evaluation order
const (
	RuleLength    = "length"
	RuleUppercase = "uppercase"
	RuleLowercase = "lowercase"
	RuleDigit     = "digit"
	RuleSpecial   = "special"
	RuleMaxLength = "max_length"
)

// PasswordStrengthError reports the first strength rule a password violates
type PasswordStrengthError struct {
	Rule    string
	Message string
}

func (e *PasswordStrengthError) Error() string {
	return e.Message
}

func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func GenerateTokenKey() (string, error) {
	bytes := make([]byte, TokenKeyLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}

// ValidatePasswordStrength checks the rules in a fixed order (length, uppercase,
// lowercase, digit, special character) and reports only the first one that fails.
// On success the password is returned unchanged.
func ValidatePasswordStrength(password string) (string, error) {
	if len([]rune(password)) < MinPasswordLen {
		return "", &PasswordStrengthError{
			Rule:    RuleLength,
			Message: fmt.Sprintf("Password must be at least %d characters long.", MinPasswordLen),
		}
	}

	if !containsFunc(password, unicode.IsUpper) {
		return "", &PasswordStrengthError{
			Rule:    RuleUppercase,
			Message: "Password must contain at least one uppercase letter.",
		}
	}

	if !containsFunc(password, unicode.IsLower) {
		return "", &PasswordStrengthError{
			Rule:    RuleLowercase,
			Message: "Password must contain at least one lowercase letter.",
		}
	}

	if !containsFunc(password, unicode.IsDigit) {
		return "", &PasswordStrengthError{
			Rule:    RuleDigit,
			Message: "Password must contain at least one number.",
		}
	}

	if !strings.ContainsAny(password, SpecialCharacters) {
		return "", &PasswordStrengthError{
			Rule:    RuleSpecial,
			Message: "Password must contain at least one special character.",
		}
	}

	if len(password) > MaxPasswordLen {
		return "", &PasswordStrengthError{
			Rule:    RuleMaxLength,
			Message: fmt.Sprintf("Password must be at most %d bytes long.", MaxPasswordLen),
		}
	}

	return password, nil
}

func containsFunc(s string, f func(rune) bool) bool {
	return strings.IndexFunc(s, f) >= 0
}
