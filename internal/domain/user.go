package domain

import "time"

// User is an account that may obtain tokens.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash []byte
	IsActive     bool
	IsStaff      bool
	DateJoined   time.Time
}
