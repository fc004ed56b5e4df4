// Package user models API accounts.
package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/turtacn/flame-data/pkg/errors"
)

// User is an account. PasswordHash never leaves the service.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// NormalizeEmail trims and lower-cases an address and checks its syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New(errors.ErrCodeValidation, "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", errors.Newf(errors.ErrCodeValidation, "Invalid email address %q", email)
	}
	return email, nil
}
