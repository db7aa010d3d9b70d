package domain

import "time"

// User represents an account held by the development user API.
type User struct {
	ID           int64
	Email        string
	Username     string
	Bio          string
	Image        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserChanges carries a partial user update. Nil fields are left untouched.
type UserChanges struct {
	Email    *string
	Username *string
	Password *string
	Bio      *string
	Image    *string
}
