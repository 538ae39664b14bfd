package models

import (
	"time"
)

// User represents a registered account
type User struct {
	ID                    string     `json:"id" db:"id"`
	Pseudo                string     `json:"pseudo" db:"pseudo"`
	Email                 string     `json:"email" db:"email"`
	PasswordHash          string     `json:"-" db:"password_hash"`
	EmailVerified         bool       `json:"emailVerified" db:"email_verified"`
	VerificationTokenHash string     `json:"-" db:"verification_token_hash"`
	VerificationExpiry    *time.Time `json:"-" db:"verification_expiry"`
	Role                  UserRole   `json:"role" db:"role"`
	LastLogin             *time.Time `json:"lastLogin,omitempty" db:"last_login"`
	CreatedAt             time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time  `json:"updatedAt" db:"updated_at"`
}

// UserRole represents user roles
type UserRole string

const (
	UserRoleAdmin UserRole = "admin"
	UserRoleUser  UserRole = "user"
)

// PublicUser is the API-safe view of a user
type PublicUser struct {
	ID            string     `json:"id"`
	Pseudo        string     `json:"pseudo"`
	Email         string     `json:"email"`
	EmailVerified bool       `json:"emailVerified"`
	Role          UserRole   `json:"role"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Public strips fields that never leave the API
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:            u.ID,
		Pseudo:        u.Pseudo,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		Role:          u.Role,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}
