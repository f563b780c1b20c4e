package model

import (
	"fmt"
	"time"
)

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the profile attached to joined reads.
type PublicUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Public returns the user's public profile.
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Actor is the authenticated identity behind a request.
type Actor struct {
	ID    int64
	Email string
}

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxPasswordLength is bcrypt's input limit in bytes.
const MaxPasswordLength = 72

// Registration is the sign-up form.
type Registration struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=200"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdate lists the profile fields a user may change. Nil fields are left as they are.
type ProfileUpdate struct {
	Name     *string `json:"name" validate:"omitnil,min=1,max=100"`
	Email    *string `json:"email" validate:"omitnil,email,max=200"`
	Password *string `json:"password"`
}

// ValidatePassword checks password length constraints.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}
