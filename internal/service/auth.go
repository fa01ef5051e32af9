// Package service contains the business logic layer: handlers parse
// HTTP and delegate here; this layer enforces the rules and talks to
// the repositories and collaborators. Nothing in this package knows
// about status codes or JSON.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/auth"
	"github.com/sakif/media-gallery/internal/mailer"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// MinPasswordLength is the floor for new passwords. The ceiling (72
// bytes) is bcrypt's own and enforced by the hasher.
const MinPasswordLength = 8

// GoogleVerifier validates a Google ID token and returns its claims.
// Satisfied by *auth.GoogleVerifier; tests substitute a fake so no
// network is involved.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleClaims, error)
}

// AuthService orchestrates the whole account lifecycle: password
// registration with OTP verification, login, Google federation, and
// password reset.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	otps      *auth.OTPService
	google    GoogleVerifier
	mail      mailer.Mailer
	logger    *slog.Logger
}

// NewAuthService wires the service. All collaborators are injected;
// the service owns none of them.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	otps *auth.OTPService,
	google GoogleVerifier,
	mail mailer.Mailer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		otps:      otps,
		google:    google,
		mail:      mail,
		logger:    logger,
	}
}

// AuthResult bundles the authenticated user with the freshly minted
// session token, so the handler responds with both in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RequestRegistration starts a password signup: it creates the pending
// account (password already hashed, login still impossible), issues an
// OTP and mails it.
//
// Any existing record under the email — pending or active — is a
// conflict; a second request never creates a second pending user.
// Hashing happens here and only here for the registration flow: the
// repository stores whatever digest it is given and never re-hashes.
func (s *AuthService) RequestRegistration(ctx context.Context, name, email, password string) error {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return apperror.ValidationFailed("email", "a valid email is required")
	}
	if len(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return apperror.ValidationFailed("password", err.Error())
	}

	user := model.NewPasswordUser(name, email, hash)

	code, expiresAt, err := s.otps.Issue()
	if err != nil {
		return fmt.Errorf("service/auth: issuing registration OTP: %w", err)
	}
	user.OTPCode = code
	user.OTPExpires = expiresAt

	if err := s.users.Create(ctx, user); err != nil {
		return fmt.Errorf("service/auth: creating pending user: %w", err)
	}

	if err := s.mail.SendOTP(ctx, email, code, mailer.PurposeVerification); err != nil {
		s.logger.Error("registration OTP delivery failed",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream("email delivery", err)
	}

	s.logger.Info("registration OTP issued", slog.String("userID", user.ID))
	return nil
}

// VerifyRegistration consumes the registration OTP and activates the
// account, minting the first session token.
//
// The check-and-clear is one conditional store operation: present code,
// exact match, strictly before expiry. Wrong and expired codes are the
// same generic failure, and so is an unknown email — the endpoint must
// not confirm which addresses have pending registrations.
func (s *AuthService) VerifyRegistration(ctx context.Context, email, code string) (*AuthResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, apperror.ValidationFailed("code", "email and code are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InvalidCredentials()
	}

	// Cheap pre-check on the loaded row; the conditional consume below
	// re-applies the same rule atomically and stays authoritative.
	if !s.otps.Check(user.OTPCode, user.OTPExpires, code) {
		return nil, apperror.InvalidCredentials()
	}

	ok, err := s.users.ConsumeRegistrationOTP(ctx, user.ID, code, s.otps.Now())
	if err != nil {
		return nil, fmt.Errorf("service/auth: consuming registration OTP: %w", err)
	}
	if !ok {
		return nil, apperror.InvalidCredentials()
	}

	// Reload: the consume flipped verified and cleared the challenge.
	user, err = s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: reloading verified user: %w", err)
	}

	s.logger.Info("registration verified", slog.String("userID", user.ID))
	return s.mintSession(user)
}

// Login authenticates an email/password pair.
//
// Every failure on the credential path — unknown email, wrong password,
// password-less (Google-only) account, unverified account — collapses
// into the one generic invalid-credentials error. A deactivated account
// is the single distinguishable case, per policy: the caller proved the
// credentials, so telling them the account is disabled leaks nothing.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = model.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("credentials", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Burn a hash comparison anyway so unknown emails cost the same
		// as wrong passwords.
		s.passwords.Verify("", password)
		return nil, apperror.InvalidCredentials()
	}

	// For a Google-only account PasswordHash is "" and Verify fails
	// closed against a dummy digest — same outcome, same timing shape.
	if !s.passwords.Verify(user.PasswordHash, password) {
		return nil, apperror.InvalidCredentials()
	}
	if !user.Verified {
		return nil, apperror.InvalidCredentials()
	}
	if !user.Active {
		return nil, apperror.Forbidden("account is deactivated")
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.mintSession(user)
}

// GoogleLogin authenticates a Google ID token: verify against the
// provider, then upsert/link the account by the external subject id.
//
// Linking order: an account already linked to this Google id wins; then
// an existing account under the same (verified) email gets the Google id
// attached; otherwise a fresh account is created, active immediately.
// The claims were already revalidated by the verifier — audience,
// subject, email shape — before any of this runs.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*AuthResult, error) {
	if strings.TrimSpace(idToken) == "" {
		return nil, apperror.ValidationFailed("idToken", "a Google ID token is required")
	}

	claims, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logger.Warn("google token rejected", slog.String("error", err.Error()))
		return nil, apperror.Unauthorized()
	}

	return s.LoginWithGoogleClaims(ctx, claims)
}

// LoginWithGoogleClaims completes a federated login from already
// verified claims. The OAuth code-flow handler calls this directly
// after its exchange; GoogleLogin calls it after token introspection.
func (s *AuthService) LoginWithGoogleClaims(ctx context.Context, claims *auth.GoogleClaims) (*AuthResult, error) {
	if claims == nil || claims.Subject == "" {
		return nil, apperror.Unauthorized()
	}
	// The verifier already enforces this; re-check here because the
	// email below links or creates an account, and an unconfirmed
	// address must never do either.
	if claims.EmailVerified != "true" {
		return nil, apperror.Unauthorized()
	}

	user, err := s.users.GetByGoogleID(ctx, claims.Subject)
	if err != nil {
		// No linked account yet — try the email, then create.
		user, err = s.users.GetByEmail(ctx, claims.Email)
		if err == nil {
			user.GoogleID = claims.Subject
			user.Verified = true // Google proved control of the email
			if err := s.users.Update(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: linking google identity: %w", err)
			}
			s.logger.Info("google identity linked", slog.String("userID", user.ID))
		} else {
			user = model.NewGoogleUser(claims.Name, claims.Email, claims.Subject)
			if err := s.users.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("service/auth: creating google user: %w", err)
			}
			s.logger.Info("google user created", slog.String("userID", user.ID))
		}
	}

	if !user.Active {
		return nil, apperror.Forbidden("account is deactivated")
	}

	return s.mintSession(user)
}

// RequestPasswordReset issues a reset OTP for an existing account.
//
// The response is identical whether or not the email has an account —
// the handler always reports "a code was sent if the address is
// registered", so this endpoint cannot be used for enumeration. Reset
// does not lock the account: it stays usable with the old password
// until the reset completes.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if !model.ValidEmail(email) {
		return apperror.ValidationFailed("email", "a valid email is required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}

	code, expiresAt, err := s.otps.Issue()
	if err != nil {
		return fmt.Errorf("service/auth: issuing reset OTP: %w", err)
	}
	if err := s.users.SetOTP(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("service/auth: storing reset OTP: %w", err)
	}

	if err := s.mail.SendOTP(ctx, user.Email, code, mailer.PurposeReset); err != nil {
		s.logger.Error("reset OTP delivery failed",
			slog.String("userID", user.ID),
			slog.String("error", err.Error()),
		)
		return apperror.Upstream("email delivery", err)
	}

	s.logger.Info("reset OTP issued", slog.String("userID", user.ID))
	return nil
}

// ResetPassword completes a reset: the new password is hashed first,
// then the OTP check and the hash install happen as one atomic store
// operation, so a racing duplicate submission cannot consume the code
// twice.
func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = model.NormalizeEmail(email)
	if email == "" || code == "" {
		return apperror.ValidationFailed("code", "email and code are required")
	}
	if len(newPassword) < MinPasswordLength {
		return apperror.ValidationFailed("newPassword",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return apperror.InvalidCredentials()
	}

	// Pre-check before paying for the bcrypt hash; the conditional
	// consume below re-applies the rule atomically.
	if !s.otps.Check(user.OTPCode, user.OTPExpires, code) {
		return apperror.InvalidCredentials()
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return apperror.ValidationFailed("newPassword", err.Error())
	}

	ok, err := s.users.ConsumeResetOTP(ctx, user.ID, code, hash, s.otps.Now())
	if err != nil {
		return fmt.Errorf("service/auth: consuming reset OTP: %w", err)
	}
	if !ok {
		return apperror.InvalidCredentials()
	}

	s.logger.Info("password reset completed", slog.String("userID", user.ID))
	return nil
}

// GetUserByID returns the user for the given internal id. Used by the
// /api/me handler after the gate has established the identity.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user id must not be empty")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) mintSession(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
