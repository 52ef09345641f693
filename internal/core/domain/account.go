package domain

import "time"

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                string
	Email             string
	Username          string
	PasswordHash      string
	IsVerified        bool
	VerificationToken *string
	CreatedAt         time.Time
	VerifiedAt        *time.Time
}

// Sanitized returns a copy without credential material.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	a.VerificationToken = nil
	return a
}

// VerificationState enumerates the email verification lifecycle of an account.
type VerificationState string

const (
	VerificationStateUnverified VerificationState = "unverified"
	VerificationStateVerified   VerificationState = "verified"
)

// State reports where the account sits in the verification lifecycle.
func (a Account) State() VerificationState {
	if a.IsVerified {
		return VerificationStateVerified
	}
	return VerificationStateUnverified
}

// IssuedToken is a signed session token handed back on login.
type IssuedToken struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
}

// SessionClaims holds the identity asserted by a verified session token.
type SessionClaims struct {
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
