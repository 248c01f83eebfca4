package authcore

import "time"

// RegisterResult describes a newly created user. ConfirmationQueued is false
// when the confirmation mail could not be queued; the account still exists
// and SendConfirmationEmail can be retried.
type RegisterResult struct {
	UserID             string
	Email              string
	ConfirmationQueued bool
}

// LoginResult is the pending second-factor state returned by Login. No
// session exists until ValidateOTP succeeds.
type LoginResult struct {
	UserID       string
	OTPExpiresAt time.Time
}

// Session is an issued token pair.
type Session struct {
	UserID           string
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// UserProfile is the public view of a user. It never carries the OTP secret.
type UserProfile struct {
	ID              string
	Email           string
	IsEmailVerified bool
	Is2FAEnabled    bool
	LastLoginAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
