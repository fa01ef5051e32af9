// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Role is the authorization level of a user account.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account in the credential store.
//
// An account always carries at least one authentication method: a bcrypt
// password digest, a Google subject id, or both (a password account that
// later linked Google). NewPasswordUser and NewGoogleUser are the only
// creation paths and each guarantees its method is present; the sqlite
// repository re-checks the invariant before insert.
//
// PasswordHash and GoogleID use the empty string as "absent" rather than
// pointers — simpler to scan from SQL and safe to compare.
//
// Verified tracks the OTP lifecycle: a password signup starts unverified
// and cannot log in until its registration code is consumed. Google
// accounts are verified from the start (the provider already proved
// control of the email). Active is the separate soft-deactivation switch
// flipped only by admins; it is re-checked on every authenticated
// request, which is the only revocation mechanism for issued tokens.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized
	Role         Role      `json:"role"`
	Verified     bool      `json:"verified"`
	Active       bool      `json:"active"`
	GoogleID     string    `json:"-"`

	// Live OTP challenge, if any. At most one per user: issuing a new
	// code overwrites these, consuming or expiring clears them.
	OTPCode    string    `json:"-"`
	OTPExpires time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewPasswordUser builds an unverified account from a password signup.
// The caller passes the already-hashed digest — models never see plaintext.
func NewPasswordUser(name, email, passwordHash string) *User {
	return &User{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         RoleUser,
		Verified:     false,
		Active:       true,
	}
}

// NewGoogleUser builds an account from a verified Google identity.
// It enters directly in the verified state — Google already proved
// control of the email address.
func NewGoogleUser(name, email, googleID string) *User {
	return &User{
		Name:     strings.TrimSpace(name),
		Email:    NormalizeEmail(email),
		GoogleID: googleID,
		Role:     RoleUser,
		Verified: true,
		Active:   true,
	}
}

// HasCredential reports whether the account has at least one way to
// authenticate. A record violating this can never be logged into and
// must not be persisted.
func (u *User) HasCredential() bool {
	return u.PasswordHash != "" || u.GoogleID != ""
}

// CanLogin reports whether the account is usable for any login path.
func (u *User) CanLogin() bool {
	return u.Verified && u.Active
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// write goes through this so "A@X.com " and "a@x.com" hit the same record.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is a cheap plausibility check, not RFC 5322 validation:
// non-empty, exactly one "@" with something on both sides and a dot in
// the domain. Claims from the identity provider pass through this too.
func ValidEmail(email string) bool {
	email = NormalizeEmail(email)
	at := strings.Index(email, "@")
	if at <= 0 || at != strings.LastIndex(email, "@") {
		return false
	}
	domain := email[at+1:]
	return len(domain) >= 3 && strings.Contains(domain, ".") &&
		!strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
