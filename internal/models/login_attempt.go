package models

import "time"

// Failure reasons recorded on login attempts
const (
	LoginFailureInvalidCredentials = "invalid_credentials"
	LoginFailureUnknownIdentifier  = "unknown_identifier"
	LoginFailureInactiveAccount    = "inactive_account"
)

// LoginAttempt is one append-only row of the authentication audit log.
// UserID is nil when the identifier did not resolve to an account.
type LoginAttempt struct {
	ID            string    `json:"-"`
	UserID        *string   `json:"-"`
	Identifier    string    `json:"username"`
	IPAddress     string    `json:"ip_address"`
	UserAgent     string    `json:"-"`
	Success       bool      `json:"success"`
	FailureReason *string   `json:"-"`
	AttemptedAt   time.Time `json:"timestamp"`
}
