package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountLocked   = errors.New("account is temporarily locked")
	ErrAccountInactive = errors.New("account is not active")

	// Account token errors
	ErrInvalidUID   = errors.New("invalid user identification")
	ErrInvalidToken = errors.New("invalid or expired token")

	// Password errors
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrIncorrectPassword = errors.New("old password is incorrect")
	ErrPasswordUnchanged = errors.New("new password must be different from old password")
)
