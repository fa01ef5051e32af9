package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sakif/media-gallery/internal/model"
)

// tokenInfoURL is Google's token-introspection endpoint: ID token in,
// claims JSON out (or an error payload). This network call is the single
// external-trust boundary of the system.
const tokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// verifyTimeout bounds the introspection call. The provider not
// answering is treated exactly like an invalid token — the login fails
// now rather than hanging the request.
const verifyTimeout = 10 * time.Second

// GoogleClaims is the portion of the tokeninfo response we use. Google
// returns more fields; we only unmarshal what the credential store
// needs. All of it is untrusted input until revalidated.
type GoogleClaims struct {
	Subject       string `json:"sub"`   // Google's stable account id
	Audience      string `json:"aud"`   // client id the token was minted for
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"` // tokeninfo encodes this as "true"/"false"
	Name          string `json:"name"`
}

// GoogleVerifier validates Google ID tokens against the tokeninfo
// endpoint and extracts the claims the rest of the system consumes.
//
// It deliberately does NOT verify the token locally: the introspection
// round-trip keeps us out of the JWKS-caching business, and one HTTPS
// call per federated login is acceptable at this service's scale.
type GoogleVerifier struct {
	clientID string
	client   *http.Client
	baseURL  string
}

// NewGoogleVerifier creates a verifier bound to this service's
// registered OAuth client id. Tokens minted for any other audience are
// rejected even when Google vouches for them.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: verifyTimeout},
		baseURL:  tokenInfoURL,
	}
}

// newGoogleVerifierForTest points the verifier at a fake tokeninfo
// server. Used by the tests in this package.
func newGoogleVerifierForTest(clientID, baseURL string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		client:   &http.Client{Timeout: 2 * time.Second},
		baseURL:  baseURL,
	}
}

// Verify introspects an ID token and returns its claims.
//
// Every failure mode — transport error, non-200 from Google, unparsable
// body, wrong audience, junk claims — comes back as a plain error the
// caller maps to the generic invalid-token outcome. The claims
// themselves are revalidated here (non-empty subject, plausible email)
// before anything downstream may create or link a user from them.
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*GoogleClaims, error) {
	if idToken == "" {
		return nil, fmt.Errorf("auth: empty Google token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+"?id_token="+url.QueryEscape(idToken), nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building tokeninfo request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Google answers 400 with an error payload for bad/expired
		// tokens. The body is not worth parsing — any non-200 means the
		// token does not stand.
		return nil, fmt.Errorf("auth: tokeninfo returned status %d", resp.StatusCode)
	}

	var c GoogleClaims
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("auth: decoding tokeninfo response: %w", err)
	}

	// Audience must EXACTLY equal our client id. A valid Google token
	// minted for some other app must not open a session here.
	if c.Audience != g.clientID {
		return nil, fmt.Errorf("auth: token audience mismatch")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if !model.ValidEmail(c.Email) {
		return nil, fmt.Errorf("auth: token email is not plausible")
	}
	// Google also vouches for addresses it has not confirmed. Such a
	// token proves the Google account, not the email, and downstream
	// links accounts by email — so it must not pass.
	if c.EmailVerified != "true" {
		return nil, fmt.Errorf("auth: token email is not verified by Google")
	}

	return &c, nil
}

// GoogleProvider wraps golang.org/x/oauth2 for the Authorization Code
// flow — the browser-redirect variant of Google login, for clients that
// don't obtain an ID token themselves.
//
// The code-for-token exchange is server-to-server with our client
// secret; the access token never reaches the browser.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// redirectURL must exactly match a redirect URI registered in the Google
// Cloud console for this client.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// AuthURL returns the consent-page URL for the given CSRF state. The
// caller stores the state in a short-lived cookie and checks it on
// callback.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the code flow: trades the authorization code for
// the user's Google profile via the userinfo endpoint. The claims come
// back in the same shape as Verify so the service layer handles both
// login variants identically.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleClaims, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("auth: calling userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo returned status %d", resp.StatusCode)
	}

	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("auth: decoding userinfo response: %w", err)
	}

	if info.ID == "" {
		return nil, fmt.Errorf("auth: userinfo has no account id")
	}
	if !model.ValidEmail(info.Email) {
		return nil, fmt.Errorf("auth: userinfo email is not plausible")
	}
	if !info.VerifiedEmail {
		return nil, fmt.Errorf("auth: userinfo email is not verified by Google")
	}

	return &GoogleClaims{
		Subject:       info.ID,
		Audience:      p.config.ClientID,
		Email:         info.Email,
		EmailVerified: "true",
		Name:          info.Name,
	}, nil
}
