// Package auth provides the authentication building blocks for the
// gallery API: session tokens (JWT), password hashing (bcrypt), OTP
// challenges, Google identity verification, and the request middleware
// that ties them together.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. A client registers (email+password+OTP) or logs in (password or
//     Google token); on success the server mints a session token.
//  2. The client sends the token as "Authorization: Bearer <token>" on
//     every protected call.
//  3. RequireAuth validates the token, re-resolves the user record and
//     puts the identity in the request context.
//
// The token is stateless — it carries the user id and role inside the
// signed payload, so verification needs no store lookup. The middleware
// still re-reads the user on every request so that deactivating an
// account takes effect immediately even for unexpired tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/media-gallery/internal/model"
)

// SessionDuration is the fixed lifetime of a session token. Expiry is
// the only server-independent invalidation mechanism; there is no
// denylist, so keep this bounded.
const SessionDuration = 7 * 24 * time.Hour

const issuer = "media-gallery"

// TokenService signs and verifies session tokens.
//
// It holds the HMAC secret key used for both operations. The secret
// comes from config and its presence is enforced at startup.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// Identity is the pair of claims a session token asserts.
type Identity struct {
	UserID string
	Role   model.Role
}

// claims is the JWT payload. The user id rides in the standard "sub"
// claim; the role is a private claim.
type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Generate creates and signs a session token for the given user.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs
// and verifies, which fits a single-service deployment.
func (s *TokenService) Generate(user *model.User) (string, error) {
	return s.GenerateWithDuration(user.ID, user.Role, SessionDuration)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used by tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(userID string, role model.Role, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning the identity it
// asserts.
//
// Checks performed (by the jwt library, plus our options):
//   - Signature is valid and the algorithm is HS256. Pinning the
//     algorithm with WithValidMethods blocks algorithm-confusion
//     attacks ("alg":"none" and friends).
//   - Token is not expired, and an expiry claim is present at all.
//   - Issuer matches, so tokens minted by other apps sharing a secret
//     by accident don't verify.
//
// The two failure kinds callers care about — expired vs anything else —
// are not distinguished in the returned error on purpose: the HTTP
// layer collapses both to 401 anyway, and a distinct message would leak
// which check failed.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	role := model.Role(c.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("auth: token has unknown role %q", c.Role)
	}

	return &Identity{UserID: c.Subject, Role: role}, nil
}
