package user

import (
	"errors"
	"strings"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrInvalidEmail   = errors.New("a valid email is required")
	ErrWrongPassword  = errors.New("incorrect email or password")
	ErrNotApproved    = errors.New("account is awaiting wholesale approval")
	ErrAccountInactive = errors.New("account is deactivated")
)

// User is a wholesale storefront account. New accounts start unapproved and
// cannot check out until an admin approves them.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Company      string    `json:"company,omitempty"`
	Role         string    `json:"role"`
	Approved     bool      `json:"approved"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail lowercases and trims an email address for use as a lookup key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a cheap plausibility check, not RFC validation.
func ValidEmail(email string) bool {
	email = NormalizeEmail(email)
	at := strings.Index(email, "@")
	return at > 0 && strings.Contains(email[at:], ".") && !strings.ContainsAny(email, " \t")
}
