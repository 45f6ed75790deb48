package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenCollision means a freshly generated token already belonged to
	// another user twice in a row. With 256-bit tokens that only happens if
	// the random source is broken, so it is surfaced loudly instead of
	// being retried away.
	ErrTokenCollision = errors.New("token collision after retry")
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor
}

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	Nationality  string
	Age          int
	Role         Role

	// EmailVerified is nil until the verification token is redeemed.
	EmailVerified *time.Time

	// Token fields are set and cleared together; one set with the other
	// nil is an inconsistent state no write path is allowed to produce.
	VerificationToken        *string
	VerificationTokenExpires *time.Time
	ResetToken               *string
	ResetTokenExpires        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
