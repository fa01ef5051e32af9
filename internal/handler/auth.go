package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rs/xid"
	"github.com/sakif/media-gallery/internal/auth"
	"github.com/sakif/media-gallery/internal/service"
)

// AuthHandler exposes the account lifecycle over HTTP.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegisterRequestOTP → create a pending account, email a code
//   - HandleRegisterVerifyOTP  → burn the code, activate, issue JWT
//   - HandleLogin              → password login
//   - HandleGoogleLogin        → token-based Google sign-in (SPA posts an ID token)
//   - HandleGoogleRedirect / HandleGoogleCallback → browser OAuth code flow
//   - HandleForgotPassword / HandleResetPassword  → OTP password reset
//   - HandleMe                 → current user's profile
//
// All business rules live in service.AuthService; the handler only
// decodes requests, calls the service, and encodes responses.
type AuthHandler struct {
	svc    *service.AuthService
	google *auth.GoogleProvider
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. The Google provider may be nil
// when OAuth credentials are not configured; the code-flow endpoints
// then answer 503.
func NewAuthHandler(svc *service.AuthService, google *auth.GoogleProvider, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, google: google, logger: logger}
}

// authResponse is the body returned by every endpoint that establishes
// a session.
type authResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

// HandleRegisterRequestOTP starts registration.
//
// HTTP: POST /api/auth/register/request-otp
// Body: {"name": "...", "email": "...", "password": "..."}
//
// On success the account exists but is unverified; a 6-digit code is
// emailed and the client is asked to call verify-otp with it.
func (h *AuthHandler) HandleRegisterRequestOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	if err := h.svc.RequestRegistration(r.Context(), req.Name, req.Email, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "verification code sent to your email",
	})
}

// HandleRegisterVerifyOTP completes registration.
//
// HTTP: POST /api/auth/register/verify-otp
// Body: {"email": "...", "code": "123456"}
//
// A correct, unexpired code flips the account to verified and returns a
// session token. The code is single-use: a second call with the same
// code fails.
func (h *AuthHandler) HandleRegisterVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.svc.VerifyRegistration(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: result.User})
}

// HandleLogin performs password login.
//
// HTTP: POST /api/auth/login
// Body: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: result.User})
}

// HandleGoogleLogin signs in with a Google ID token obtained by the
// frontend (One Tap or the JS SDK).
//
// HTTP: POST /api/auth/google-login
// Body: {"idToken": "..."}
//
// The token is introspected against Google's tokeninfo endpoint; a
// matching account is signed in, an email match is linked, and an
// unknown email gets a fresh pre-verified account.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	result, err := h.svc.GoogleLogin(r.Context(), req.IDToken)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: result.User})
}

// HandleGoogleRedirect starts the browser OAuth code flow.
//
// HTTP: GET /auth/google/login
//
// A random state value goes into a short-lived HttpOnly cookie; the
// callback verifies it matches, which proves the flow started here and
// not on an attacker's page.
func (h *AuthHandler) HandleGoogleRedirect(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "upstream_error",
			Message: "Google sign-in is not configured",
		})
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the OAuth code flow.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter against the cookie
//  2. Exchange the code for the Google profile
//  3. Sign in (or create/link) the account
//  4. Respond with the session token and user, same shape as the
//     other login endpoints
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if h.google == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "upstream_error",
			Message: "Google sign-in is not configured",
		})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("google callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Clear the state cookie — it's single-use
	http.SetCookie(w, &http.Cookie{
		Name:   "oauth_state",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	claims, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.svc.LoginWithGoogleClaims(r.Context(), claims)
	if err != nil {
		h.logger.Error("google callback: sign-in failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: result.Token, User: result.User})
}

// HandleForgotPassword requests a password-reset code.
//
// HTTP: POST /api/auth/forgot-password
// Body: {"email": "..."}
//
// The response is the same whether or not the email is registered, so
// this endpoint can't be used to probe which addresses have accounts.
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if that email is registered, a reset code has been sent",
	})
}

// HandleResetPassword sets a new password using an emailed code.
//
// HTTP: POST /api/auth/reset-password
// Body: {"email": "...", "code": "123456", "newPassword": "..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Code        string `json:"code"`
		NewPassword string `json:"newPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	if err := h.svc.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// HandleMe returns the currently authenticated user's profile.
//
// HTTP: GET /api/me
// Auth: Required (RequireAuth middleware sets the identity in context)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		// Should never happen on a RequireAuth-protected route, but be safe.
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.svc.GetUserByID(r.Context(), identity.ID)
	if err != nil {
		h.logger.Error("HandleMe: user lookup failed", slog.String("userID", identity.ID))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
