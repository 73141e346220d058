package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/models"
)

// Account token purposes. Each purpose derives its own HMAC key, so a
// verification token can never be replayed as a reset token.
const (
	PurposeEmailVerification = "email-verification"
	PurposePasswordReset     = "password-reset"
)

const DefaultAccountTokenTimeout = 3 * 24 * time.Hour

// StateFunc returns the snapshot of mutable user state a token is bound to.
// When the snapshot changes, every token minted before the change stops validating.
type StateFunc func(user *models.User) string

// VerificationState binds email verification tokens to the email address and
// last login. The active flag is left out, so a link still validates after the
// account has been activated and clicking it twice is harmless.
func VerificationState(user *models.User) string {
	return user.Email + "|" + formatLastLogin(user.LastLoginAt)
}

// PasswordResetState binds reset tokens to the current password hash, so a
// successful reset or password change invalidates every outstanding link.
func PasswordResetState(user *models.User) string {
	return user.PasswordHash + "|" + formatLastLogin(user.LastLoginAt) + "|" + user.Email
}

func formatLastLogin(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// AccountTokenGenerator mints and checks stateless account tokens of the form
// base36(issued-at unix seconds) "-" hex(HMAC-SHA256(user id, issued-at, state)).
// Nothing is persisted: a token is valid iff the signature recomputed from the
// user's current state matches and it is younger than the timeout.
type AccountTokenGenerator struct {
	key     []byte
	state   StateFunc
	timeout time.Duration
	now     func() time.Time
}

func NewAccountTokenGenerator(secret, purpose string, state StateFunc, timeout time.Duration) *AccountTokenGenerator {
	if timeout <= 0 {
		timeout = DefaultAccountTokenTimeout
	}
	key := sha256.Sum256([]byte("ecotrajet.account-token." + purpose + secret))
	return &AccountTokenGenerator{
		key:     key[:],
		state:   state,
		timeout: timeout,
		now:     time.Now,
	}
}

func NewEmailVerificationTokens(secret string, timeout time.Duration) *AccountTokenGenerator {
	return NewAccountTokenGenerator(secret, PurposeEmailVerification, VerificationState, timeout)
}

func NewPasswordResetTokens(secret string, timeout time.Duration) *AccountTokenGenerator {
	return NewAccountTokenGenerator(secret, PurposePasswordReset, PasswordResetState, timeout)
}

// MakeToken issues a token for user bound to its current state
func (g *AccountTokenGenerator) MakeToken(user *models.User) string {
	return g.makeTokenAt(user, g.now().Unix())
}

func (g *AccountTokenGenerator) makeTokenAt(user *models.User, issuedAt int64) string {
	ts := strconv.FormatInt(issuedAt, 36)
	return ts + "-" + g.sign(user, ts)
}

func (g *AccountTokenGenerator) sign(user *models.User, ts string) string {
	mac := hmac.New(sha256.New, g.key)
	mac.Write([]byte(user.ID))
	mac.Write([]byte{0})
	mac.Write([]byte(ts))
	mac.Write([]byte{0})
	mac.Write([]byte(g.state(user)))
	return hex.EncodeToString(mac.Sum(nil))
}

// CheckToken reports whether token was minted for user's current state and has not expired.
// Malformed, tampered, stale and expired tokens are indistinguishable to the caller.
func (g *AccountTokenGenerator) CheckToken(user *models.User, token string) bool {
	if user == nil || token == "" {
		return false
	}

	ts, sig, ok := strings.Cut(token, "-")
	if !ok || ts == "" || sig == "" {
		return false
	}

	issuedAt, err := strconv.ParseInt(ts, 36, 64)
	if err != nil || issuedAt < 0 {
		return false
	}

	// Re-encode so alternate spellings of the same timestamp cannot validate
	expected := g.makeTokenAt(user, issuedAt)
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return false
	}

	age := g.now().Sub(time.Unix(issuedAt, 0))
	return age >= 0 && age <= g.timeout
}
