package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. A user is either pending (Verified false, OTP set) or
// registered (Verified true, OTP nil). A registered user carries an OTP only
// while a password reset is in flight.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Verified     bool
	OTP          *string
	OTPExpiresAt *time.Time
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OTPMatches reports whether otp equals the stored passcode and has not
// expired at now.
func (u User) OTPMatches(otp string, now time.Time) bool {
	if u.OTP == nil || u.OTPExpiresAt == nil {
		return false
	}
	return *u.OTP == otp && now.Before(*u.OTPExpiresAt)
}

// Profile is the public view of a user returned by auth endpoints.
type Profile struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
}

// Profile returns the caller-visible fields of u.
func (u User) Profile() Profile {
	return Profile{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Session is the result of a successful verification or login.
type Session struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}
