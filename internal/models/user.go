package models

import (
	"time"
)

// User roles
const (
	RolePassenger = "passager"
	RoleDriver    = "conducteur"
	RoleAdmin     = "admin"
)

// Preferred payment methods
const (
	PaymentCard     = "carte"
	PaymentPayPal   = "paypal"
	PaymentCash     = "cash"
	PaymentTransfer = "virement"
)

type User struct {
	ID                string
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Phone             string
	PreferredRoute    string
	PreferredPayment  string
	Role              string
	IsActive          bool       // false until the email address is verified
	TokenKey          string     // Per-user secret for composite token signing
	LastLoginAt       *time.Time
	PasswordChangedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsValidRole reports whether role is one of the known user roles
func IsValidRole(role string) bool {
	switch role {
	case RolePassenger, RoleDriver, RoleAdmin:
		return true
	}
	return false
}
