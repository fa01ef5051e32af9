package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// contextKey is an unexported type for context keys in this package.
// A package-private key type means only this package can read or write
// the identity value — no collisions with other packages' keys.
type contextKey string

const identityKey contextKey = "identity"

// RequestIdentity is what downstream handlers know about the caller.
// It comes from the user RECORD, not the token: the token only names the
// user, the record is re-read on every request.
type RequestIdentity struct {
	ID    string
	Name  string
	Email string
	Role  model.Role
}

// RequireAuth is the authentication gate for protected routes.
//
// It extracts a bearer token from the Authorization header, validates
// it, re-resolves the user record, and stores the identity in the
// request context. The chain of failures:
//
//	missing/malformed header  → 401
//	bad signature or expired  → 401 (collapsed — never say which)
//	user record gone          → 401
//	user deactivated          → 403
//
// The record re-read is what makes soft-deactivation an effective
// revocation: a deactivated account's token still cryptographically
// verifies, but the gate rejects it on the very next request.
func RequireAuth(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, status := resolveIdentity(r, tokens, users)
			if status != 0 {
				writeAuthError(w, status)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches the identity when a valid token is present but
// never blocks the request. Used on routes like the contact form where
// anonymous submissions are allowed but authenticated ones get linked to
// the account.
func OptionalAuth(tokens *TokenService, users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ident, status := resolveIdentity(r, tokens, users); status == 0 {
				r = r.WithContext(context.WithValue(r.Context(), identityKey, ident))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin gates admin-only routes. It assumes RequireAuth already
// ran; the distinction matters in the response code. 401 means "we don't
// know who you are", 403 means "we know exactly who you are and the
// answer is no".
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, ok := IdentityFromContext(r.Context())
		if !ok {
			writeAuthError(w, http.StatusUnauthorized)
			return
		}
		if ident.Role != model.RoleAdmin {
			writeAuthError(w, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext retrieves the authenticated caller's identity.
// Returns (zero, false) on anonymous requests.
func IdentityFromContext(ctx context.Context) (*RequestIdentity, bool) {
	ident, ok := ctx.Value(identityKey).(*RequestIdentity)
	return ident, ok && ident != nil
}

// resolveIdentity performs the full gate check. It returns the identity
// and 0 on success, or a zero identity and the HTTP status to reject
// with.
func resolveIdentity(r *http.Request, tokens *TokenService, users repository.UserRepository) (*RequestIdentity, int) {
	tokenStr := bearerToken(r)
	if tokenStr == "" {
		return nil, http.StatusUnauthorized
	}

	claims, err := tokens.Validate(tokenStr)
	if err != nil {
		return nil, http.StatusUnauthorized
	}

	user, err := users.GetByID(r.Context(), claims.UserID)
	if err != nil {
		// Not found and store failure both end the request here; the
		// caller cannot act on the difference.
		return nil, http.StatusUnauthorized
	}
	if !user.Active {
		return nil, http.StatusForbidden
	}

	return &RequestIdentity{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}, 0
}

// bearerToken pulls the token out of "Authorization: Bearer <token>".
// Returns "" for a missing or malformed header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if header == "" || !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func writeAuthError(w http.ResponseWriter, status int) {
	if status == http.StatusForbidden {
		http.Error(w, `{"error":"forbidden","message":"account is deactivated or lacks the required role"}`, status)
		return
	}
	http.Error(w, `{"error":"unauthorized","message":"valid authentication required"}`, status)
}
