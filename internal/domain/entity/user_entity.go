package entity

import (
	"time"
)

// User is the aggregate root for the account domain.
// Passwords are stored as bcrypt hashes in Password field.
//
// ConfirmationCode and ResetToken are single-use credentials for the
// out-of-band verification flows; both are cleared once consumed.
// ResetToken holds the sha256 of the opaque token, never the token itself.
type User struct {
	ID               string
	Email            string
	Username         string
	FullName         string
	Password         string
	ProfilePhoto     string
	IsVerified       bool
	IsAdmin          bool
	ConfirmationCode string
	ResetToken       string
	ResetTokenExpiry time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
