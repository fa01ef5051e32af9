package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly ~250ms on
// a modern server — negligible for a login, brutal for offline cracking.
const defaultCost = 12

// dummyHash is a real bcrypt digest of an unguessable throwaway string.
// When login hits an account with no password set (Google-only), we
// verify the submitted password against this instead of returning early,
// so "no password set" costs the same wall-clock time as "wrong
// password" and both surface the identical generic error.
const dummyHash = "$2a$12$K3JNi5xUQ3o0DNYnu1LsjuEW4FSNwat84HGLo7Hgw1uNpFyZzWGTK"

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so the cost can be injected in
// tests — cost 4 makes each hash take milliseconds instead of ~250ms.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost (12).
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost creates a PasswordService with a custom
// bcrypt cost. Intended for tests; do not lower the cost in production.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password with bcrypt.
//
// The output is self-contained ($2a$12$<salt><hash>) — the salt and cost
// are embedded, so it stores as a single column and Verify needs nothing
// else. Hash is called exactly once per password-set event (registration
// request and reset completion); nothing re-hashes on unrelated saves,
// so a digest can never be double-hashed.
//
// Returns an error if the plaintext exceeds 72 bytes: bcrypt silently
// truncates beyond that, and silent truncation of a password is worse
// than a visible error.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", errors.New("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest.
//
// It fails closed: a malformed or empty digest returns false, never an
// error — the caller treats every false identically as the generic
// invalid-credentials outcome. For an empty digest the comparison still
// runs against dummyHash to keep the timing shape of a real mismatch.
//
// bcrypt.CompareHashAndPassword is constant-time over the digest itself,
// so per-byte timing leaks are not a concern here.
func (p *PasswordService) Verify(hash, plaintext string) bool {
	if hash == "" {
		// Guaranteed mismatch; running the comparison anyway is what
		// equalizes the timing.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
