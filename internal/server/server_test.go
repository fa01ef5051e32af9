package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/media-gallery/internal/config"
	"github.com/sakif/media-gallery/internal/mailer"
	"github.com/sakif/media-gallery/internal/model"
)

// stubBlobStore stands in for S3 so the full request path can run
// against an in-memory bucket.
type stubBlobStore struct {
	blobs map[string][]byte
}

func newStubBlobStore() *stubBlobStore {
	return &stubBlobStore{blobs: make(map[string][]byte)}
}

func (b *stubBlobStore) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	b.blobs[key] = data
	return "https://blobs.test/" + key, nil
}

func (b *stubBlobStore) Delete(ctx context.Context, key string) error {
	delete(b.blobs, key)
	return nil
}

func (b *stubBlobStore) PresignGet(ctx context.Context, key string, expires time.Duration) (string, error) {
	return "https://blobs.test/" + key + "?signed=1", nil
}

// captureMailer records OTP codes so tests can complete the flows that
// normally go through email.
type captureMailer struct {
	lastCode    string
	lastTo      string
	lastPurpose mailer.Purpose
}

func (m *captureMailer) SendOTP(ctx context.Context, to, code string, purpose mailer.Purpose) error {
	m.lastTo = to
	m.lastCode = code
	m.lastPurpose = purpose
	return nil
}

type fixture struct {
	srv   *Server
	blobs *stubBlobStore
	mail  *captureMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Port:      0,
		DBPath:    ":memory:",
		JWTSecret: "test-secret-at-least-16-chars!!",
	}
	blobs := newStubBlobStore()
	mail := &captureMailer{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	srv, err := New(cfg, blobs, mail, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { srv.db.Close() })

	return &fixture{srv: srv, blobs: blobs, mail: mail}
}

// do runs one request through the full router and decodes the JSON
// response into out (when out is non-nil).
func (fx *fixture) do(t *testing.T, method, path, token string, body any, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(rr, req)

	if out != nil && rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
		}
	}
	return rr
}

// registerUser walks the OTP registration and returns a session token.
func (fx *fixture) registerUser(t *testing.T, name, email, password string) string {
	t.Helper()

	rr := fx.do(t, http.MethodPost, "/api/auth/register/request-otp", "", map[string]string{
		"name": name, "email": email, "password": password,
	}, nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("request-otp status = %d, body %s", rr.Code, rr.Body.String())
	}

	var res struct {
		Token string `json:"token"`
	}
	rr = fx.do(t, http.MethodPost, "/api/auth/register/verify-otp", "", map[string]string{
		"email": email, "code": fx.mail.lastCode,
	}, &res)
	if rr.Code != http.StatusOK || res.Token == "" {
		t.Fatalf("verify-otp status = %d, body %s", rr.Code, rr.Body.String())
	}
	return res.Token
}

// promoteToAdmin flips a registered account's role directly in the
// store, the same way the first admin would be bootstrapped.
func (fx *fixture) promoteToAdmin(t *testing.T, email string) {
	t.Helper()
	ctx := context.Background()
	u, err := fx.srv.db.Users().GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("loading %s: %v", email, err)
	}
	u.Role = model.RoleAdmin
	if err := fx.srv.db.Users().Update(ctx, u); err != nil {
		t.Fatalf("promoting %s: %v", email, err)
	}
}

// uploadPNG posts a small multipart upload and returns the created item.
func (fx *fixture) uploadPNG(t *testing.T, token, title string) map[string]any {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fh := make(map[string][]string)
	fh["Content-Disposition"] = []string{`form-data; name="file"; filename="photo.png"`}
	fh["Content-Type"] = []string{"image/png"}
	part, err := mw.CreatePart(fh)
	if err != nil {
		t.Fatalf("creating multipart file: %v", err)
	}
	if _, err := part.Write([]byte("fake png bytes")); err != nil {
		t.Fatalf("writing multipart file: %v", err)
	}
	if err := mw.WriteField("title", title); err != nil {
		t.Fatalf("writing title field: %v", err)
	}
	if err := mw.WriteField("tags", "test, fixture"); err != nil {
		t.Fatalf("writing tags field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	fx.srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rr.Code, rr.Body.String())
	}
	var media map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &media); err != nil {
		t.Fatalf("decoding upload response: %v", err)
	}
	return media
}

func TestHealthz(t *testing.T) {
	fx := newFixture(t)

	rr := fx.do(t, http.MethodGet, "/healthz", "", nil, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestAuthEndpoints(t *testing.T) {
	t.Run("registration flow mints a working session", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		var me map[string]any
		rr := fx.do(t, http.MethodGet, "/api/me", token, nil, &me)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "jane@example.com", me["email"])
		assert.Equal(t, true, me["verified"])
		assert.NotContains(t, me, "passwordHash")
	})

	t.Run("login", func(t *testing.T) {
		fx := newFixture(t)
		fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		var res struct {
			Token string `json:"token"`
		}
		rr := fx.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "jane@example.com", "password": "hunter2-hunter2",
		}, &res)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.NotEmpty(t, res.Token)
	})

	t.Run("wrong password yields the generic credential error", func(t *testing.T) {
		fx := newFixture(t)
		fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		var res struct {
			Error string `json:"error"`
		}
		rr := fx.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "jane@example.com", "password": "wrong",
		}, &res)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "invalid_credentials", res.Error)
	})

	t.Run("password reset flow", func(t *testing.T) {
		fx := newFixture(t)
		fx.registerUser(t, "Jane", "jane@example.com", "old-password-1")

		rr := fx.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
			"email": "jane@example.com",
		}, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, mailer.PurposeReset, fx.mail.lastPurpose)

		rr = fx.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
			"email": "jane@example.com", "code": fx.mail.lastCode, "newPassword": "new-password-1",
		}, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = fx.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email": "jane@example.com", "password": "new-password-1",
		}, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("forgot-password for an unknown email still says ok", func(t *testing.T) {
		fx := newFixture(t)

		rr := fx.do(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{
			"email": "nobody@example.com",
		}, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("malformed JSON body", func(t *testing.T) {
		fx := newFixture(t)

		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		fx.srv.Handler().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("protected route without token", func(t *testing.T) {
		fx := newFixture(t)

		rr := fx.do(t, http.MethodGet, "/api/me", "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("profile rename", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		var updated map[string]any
		rr := fx.do(t, http.MethodPut, "/api/users/profile", token, map[string]string{
			"name": "Jane Q.",
		}, &updated)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Jane Q.", updated["name"])
	})

	t.Run("google code flow unavailable without credentials", func(t *testing.T) {
		fx := newFixture(t)

		rr := fx.do(t, http.MethodGet, "/auth/google/login", "", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})
}

func TestMediaEndpoints(t *testing.T) {
	t.Run("upload list get update delete", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		media := fx.uploadPNG(t, token, "Beach Sunset")
		id := media["id"].(string)
		assert.NotEmpty(t, id)
		assert.Equal(t, "Beach Sunset", media["title"])
		assert.Len(t, fx.blobs.blobs, 1)

		var list []map[string]any
		rr := fx.do(t, http.MethodGet, "/api/media", token, nil, &list)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, list, 1)

		var updated map[string]any
		rr = fx.do(t, http.MethodPut, "/api/media/"+id, token, map[string]string{
			"title": "Beach Sunrise",
		}, &updated)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Beach Sunrise", updated["title"])

		rr = fx.do(t, http.MethodDelete, "/api/media/"+id, token, nil, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, fx.blobs.blobs)

		rr = fx.do(t, http.MethodGet, "/api/media/"+id, token, nil, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("search filters the listing", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")
		fx.uploadPNG(t, token, "Beach Sunset")
		fx.uploadPNG(t, token, "Mountain Trail")

		var list []map[string]any
		rr := fx.do(t, http.MethodGet, "/api/media?search=beach", token, nil, &list)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, list, 1)
		assert.Equal(t, "Beach Sunset", list[0]["title"])
	})

	t.Run("download returns a presigned url", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")
		media := fx.uploadPNG(t, token, "Shared")

		var res struct {
			URL       string `json:"url"`
			ExpiresAt string `json:"expiresAt"`
		}
		rr := fx.do(t, http.MethodGet, fmt.Sprintf("/api/media/%s/download", media["id"]), token, nil, &res)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, res.URL, "signed=1")
		_, err := time.Parse(time.RFC3339, res.ExpiresAt)
		assert.NoError(t, err)
	})

	t.Run("another user's media is forbidden", func(t *testing.T) {
		fx := newFixture(t)
		owner := fx.registerUser(t, "Owner", "owner@example.com", "hunter2-hunter2")
		other := fx.registerUser(t, "Other", "other@example.com", "hunter2-hunter2")
		media := fx.uploadPNG(t, owner, "Private")

		rr := fx.do(t, http.MethodGet, "/api/media/"+media["id"].(string), other, nil, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)

		// And it never shows up in the other user's listing.
		var list []map[string]any
		rr = fx.do(t, http.MethodGet, "/api/media", other, nil, &list)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Empty(t, list)
	})

	t.Run("upload without a file", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		mw.WriteField("title", "No File")
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		fx.srv.Handler().ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestContactEndpoints(t *testing.T) {
	t.Run("anonymous submission", func(t *testing.T) {
		fx := newFixture(t)

		var created map[string]any
		rr := fx.do(t, http.MethodPost, "/api/contact", "", map[string]string{
			"name": "Visitor", "email": "visitor@example.com", "message": "Hello",
		}, &created)
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.NotContains(t, created, "userId")
	})

	t.Run("authenticated submission is listed under my-messages", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		rr := fx.do(t, http.MethodPost, "/api/contact", token, map[string]string{
			"name": "Jane", "message": "Mine",
		}, nil)
		assert.Equal(t, http.StatusCreated, rr.Code)

		var mine []map[string]any
		rr = fx.do(t, http.MethodGet, "/api/contact/my-messages", token, nil, &mine)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, mine, 1)
		assert.Equal(t, "Mine", mine[0]["message"])
	})

	t.Run("edit and delete own message", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		var created map[string]any
		fx.do(t, http.MethodPost, "/api/contact", token, map[string]string{
			"name": "Jane", "message": "first",
		}, &created)
		id := created["id"].(string)

		var updated map[string]any
		rr := fx.do(t, http.MethodPut, "/api/contact/"+id, token, map[string]string{
			"message": "second",
		}, &updated)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "second", updated["message"])

		rr = fx.do(t, http.MethodDelete, "/api/contact/"+id, token, nil, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		var mine []map[string]any
		fx.do(t, http.MethodGet, "/api/contact/my-messages", token, nil, &mine)
		assert.Empty(t, mine)
	})
}

func TestAdminEndpoints(t *testing.T) {
	t.Run("regular user is forbidden", func(t *testing.T) {
		fx := newFixture(t)
		token := fx.registerUser(t, "Jane", "jane@example.com", "hunter2-hunter2")

		rr := fx.do(t, http.MethodGet, "/api/admin/users", token, nil, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin lists and edits accounts", func(t *testing.T) {
		fx := newFixture(t)
		fx.registerUser(t, "Member", "member@example.com", "hunter2-hunter2")
		adminToken := fx.registerUser(t, "Admin", "admin@example.com", "hunter2-hunter2")
		fx.promoteToAdmin(t, "admin@example.com")

		var users []map[string]any
		rr := fx.do(t, http.MethodGet, "/api/admin/users", adminToken, nil, &users)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, users, 2)

		memberID := ""
		for _, u := range users {
			if u["email"] == "member@example.com" {
				memberID = u["id"].(string)
			}
		}
		assert.NotEmpty(t, memberID)

		var updated map[string]any
		rr = fx.do(t, http.MethodPut, "/api/admin/users/"+memberID, adminToken, map[string]any{
			"is_active": false,
		}, &updated)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, false, updated["active"])
	})

	t.Run("deactivated account is locked out immediately", func(t *testing.T) {
		fx := newFixture(t)
		memberToken := fx.registerUser(t, "Member", "member@example.com", "hunter2-hunter2")
		adminToken := fx.registerUser(t, "Admin", "admin@example.com", "hunter2-hunter2")
		fx.promoteToAdmin(t, "admin@example.com")

		var me map[string]any
		fx.do(t, http.MethodGet, "/api/me", memberToken, nil, &me)
		memberID := me["id"].(string)

		rr := fx.do(t, http.MethodPut, "/api/admin/users/"+memberID, adminToken, map[string]any{
			"is_active": false,
		}, nil)
		assert.Equal(t, http.StatusOK, rr.Code)

		// The still-valid token no longer opens the door.
		rr = fx.do(t, http.MethodGet, "/api/me", memberToken, nil, nil)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin inbox covers anonymous messages", func(t *testing.T) {
		fx := newFixture(t)
		adminToken := fx.registerUser(t, "Admin", "admin@example.com", "hunter2-hunter2")
		fx.promoteToAdmin(t, "admin@example.com")

		var created map[string]any
		fx.do(t, http.MethodPost, "/api/contact", "", map[string]string{
			"name": "Visitor", "message": "anonymous note",
		}, &created)

		var inbox []map[string]any
		rr := fx.do(t, http.MethodGet, "/api/admin/contact", adminToken, nil, &inbox)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, inbox, 1)

		rr = fx.do(t, http.MethodDelete, "/api/admin/contact/"+created["id"].(string), adminToken, nil, nil)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		fx.do(t, http.MethodGet, "/api/admin/contact", adminToken, nil, &inbox)
		assert.Empty(t, inbox)
	})
}
