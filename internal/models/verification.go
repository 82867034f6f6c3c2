package models

import "time"

// VerificationCodeType is the purpose a code was issued for.
type VerificationCodeType string

const (
	EmailVerification VerificationCodeType = "email_verification"
	PasswordReset     VerificationCodeType = "password_reset"
)

// VerificationCode is a single-use, expiring code.
//
// The ID is the secret handed to the user (embedded in the emailed URL), so it
// must be random and never sequential.
type VerificationCode struct {
	ExpiresAt time.Time            `json:"expiresAt"`
	CreatedAt time.Time            `json:"createdAt"`
	ID        string               `json:"id"`
	UserID    string               `json:"userId"`
	Type      VerificationCodeType `json:"type"`
}

// Valid reports whether the code may be consumed for purpose t at now.
func (c *VerificationCode) Valid(t VerificationCodeType, now time.Time) bool {
	return c.Type == t && c.ExpiresAt.After(now)
}
