package domain

import "time"

// Account is a single identity record. A guest account has no user name and
// no password material; a registered account has all three password fields
// set. Every account carries exactly one live access/refresh token pair.
type Account struct {
	ID                    string
	UserName              *string
	PasswordHash          *string
	PasswordHashSalt      *string
	PasswordHashAlgorithm *string
	CreatedAt             time.Time
	AccessToken           string
	RefreshToken          string
}

// IsGuest reports whether the account was provisioned without credentials.
func (a Account) IsGuest() bool {
	return a.UserName == nil
}

// DisplayName returns the user name or "guest" for anonymous accounts.
func (a Account) DisplayName() string {
	if a.UserName != nil {
		return *a.UserName
	}
	return "guest"
}

// Credentials carries a plaintext password exactly once, from the request
// payload to the hasher or verifier. It is never persisted.
type Credentials struct {
	UserName string
	Password string
}

// TokenPair groups the live access and refresh tokens of an account.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Profile is what a caller holds after any successful lifecycle operation.
type Profile struct {
	UserID   string
	UserName *string
	Token    TokenPair
}
