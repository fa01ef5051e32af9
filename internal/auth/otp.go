package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// OTP parameters. A 6-digit code gives a 1-in-a-million guess per
// attempt; combined with the 10-minute window that is plenty for an
// email-possession proof.
const (
	otpDigits = 6
	OTPTTL    = 10 * time.Minute
)

// OTPService issues and checks one-time codes.
//
// Codes come from crypto/rand — a predictable generator here would let
// an attacker complete someone else's registration or password reset,
// so math/rand is not acceptable even though the code is "just" numeric.
//
// The service is stateless: the live challenge is stored on the user
// record (one per user, newer codes overwrite older ones) and the
// repository consumes it atomically. now is injectable so tests can move
// the clock past the expiry window.
type OTPService struct {
	now func() time.Time
}

// NewOTPService creates an OTPService using the wall clock.
func NewOTPService() *OTPService {
	return &OTPService{now: time.Now}
}

// NewOTPServiceWithClock creates an OTPService with an injected clock.
// Tests use this to simulate expiry without sleeping.
func NewOTPServiceWithClock(now func() time.Time) *OTPService {
	return &OTPService{now: now}
}

// Now returns the service's current instant. Exposed so callers pass
// the same clock into the repository's consume operations that Issue
// used for the expiry — mixing clocks would skew the window in tests.
func (o *OTPService) Now() time.Time {
	return o.now()
}

// Issue generates a fresh 6-digit code and its absolute expiry instant.
// The code is zero-padded ("004913" is valid), so always compare it as a
// string — parsing it as an integer would shrink the code space.
func (o *OTPService) Issue() (code string, expiresAt time.Time, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: generating OTP: %w", err)
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), o.now().Add(OTPTTL), nil
}

// Check reports whether a submitted code matches the stored challenge.
//
// Valid iff a challenge is present, the code matches exactly, and the
// current instant is strictly before the expiry. Check alone does not
// consume the code — the caller must pair a true result with the
// repository's atomic consume so two racing requests cannot both
// succeed (there is no in-process lock to rely on).
func (o *OTPService) Check(storedCode string, expiresAt time.Time, submitted string) bool {
	if storedCode == "" || submitted == "" {
		return false
	}
	if storedCode != submitted {
		return false
	}
	return o.now().Before(expiresAt)
}
