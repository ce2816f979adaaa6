// Package models defines server-side data models persisted in the database.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/postboard/internal/common"
	"github.com/google/uuid"
)

const MinPasswordLength = 6

// User is a stored account. PasswordHash and RefreshTokenHash never leave
// the server; use Summary for anything client-facing.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	// RefreshTokenHash is nil when the user has no active session.
	RefreshTokenHash *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// UserSummary is the public projection of a user.
type UserSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Email: u.Email, Name: u.Name}
}

// ValidateCredentials checks registration input before any hashing happens.
func ValidateCredentials(email, password, name string) error {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return invalid("email", "must be a valid address")
	}
	if len(password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if strings.TrimSpace(name) == "" {
		return invalid("name", "must not be empty")
	}
	return nil
}

// NewUser returns a User with a fresh id. The password is expected to be
// hashed already; ValidateCredentials covers the plaintext.
func NewUser(email, passwordHash, name string) (*User, error) {
	if strings.TrimSpace(email) == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "must be a valid address")
	}
	if passwordHash == "" {
		return nil, invalid("password", "must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, invalid("name", "must not be empty")
	}

	now := time.Now().UTC()
	return &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func invalid(field, msg string) error {
	return fmt.Errorf("%w: %s %s", common.ErrorValidation, field, msg)
}
