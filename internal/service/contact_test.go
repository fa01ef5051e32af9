package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// memContactRepo is an in-memory repository.ContactRepository with the
// store's soft-delete semantics: deleted rows vanish from every lookup.
type memContactRepo struct {
	items  map[string]*model.Contact
	nextID int
}

func newMemContactRepo() *memContactRepo {
	return &memContactRepo{items: make(map[string]*model.Contact), nextID: 1}
}

func (f *memContactRepo) Create(ctx context.Context, contact *model.Contact) error {
	contact.ID = fmt.Sprintf("contact-%d", f.nextID)
	f.nextID++
	contact.CreatedAt = time.Now()
	contact.UpdatedAt = time.Now()
	copied := *contact
	f.items[contact.ID] = &copied
	return nil
}

func (f *memContactRepo) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	c, ok := f.items[id]
	if !ok || c.Deleted {
		return nil, apperror.NotFound("contact", id)
	}
	copied := *c
	return &copied, nil
}

func (f *memContactRepo) ListByUser(ctx context.Context, userID string) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range f.items {
		if !c.Deleted && c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *memContactRepo) ListAll(ctx context.Context) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range f.items {
		if !c.Deleted {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *memContactRepo) Update(ctx context.Context, contact *model.Contact) error {
	c, ok := f.items[contact.ID]
	if !ok || c.Deleted {
		return apperror.NotFound("contact", contact.ID)
	}
	copied := *contact
	f.items[contact.ID] = &copied
	return nil
}

func (f *memContactRepo) SoftDelete(ctx context.Context, id string) error {
	c, ok := f.items[id]
	if !ok || c.Deleted {
		return apperror.NotFound("contact", id)
	}
	c.Deleted = true
	return nil
}

func newContactService(t *testing.T) (*ContactService, *memContactRepo) {
	t.Helper()
	repo := newMemContactRepo()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewContactService(repo, logger), repo
}

// =========================================================================
// SUBMIT TESTS
// =========================================================================

func TestContactSubmit_Anonymous(t *testing.T) {
	svc, _ := newContactService(t)

	c, err := svc.Submit(context.Background(), "", "Visitor", "visitor@example.com", "Hello there")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.ID == "" {
		t.Error("Submit() did not assign an id")
	}
	if c.UserID != "" {
		t.Errorf("UserID = %q, want empty for an anonymous message", c.UserID)
	}
}

func TestContactSubmit_Authenticated(t *testing.T) {
	svc, _ := newContactService(t)

	c, err := svc.Submit(context.Background(), "user-1", "Jane", "jane@example.com", "Hi from a member")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if c.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", c.UserID, "user-1")
	}
}

func TestContactSubmit_Validation(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		email   string
		message string
	}{
		{"empty message", "ok@example.com", "   "},
		{"oversized message", "ok@example.com", strings.Repeat("x", MaxMessageLength+1)},
		{"malformed email", "not-an-email", "fine message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Submit(ctx, "", "Name", tt.email, tt.message)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestContactSubmit_EmptyEmailIsAllowed(t *testing.T) {
	svc, _ := newContactService(t)

	// The email field is optional; only a present-but-malformed value
	// is rejected.
	if _, err := svc.Submit(context.Background(), "", "Name", "", "fine message"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
}

// =========================================================================
// OWNERSHIP TESTS
// =========================================================================

func TestContactUpdate_OwnMessage(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, "user-1", "Jane", "", "first draft")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	updated, err := svc.Update(ctx, "user-1", c.ID, "  second draft  ")
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Message != "second draft" {
		t.Errorf("Message = %q, want trimmed %q", updated.Message, "second draft")
	}
}

func TestContactUpdate_ForeignMessageForbidden(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, "user-1", "Jane", "", "private note")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	_, err = svc.Update(ctx, "user-2", c.ID, "hijacked")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestContactUpdate_AnonymousMessageHasNoOwner(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, "", "Visitor", "", "anonymous note")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	// Nobody can edit an anonymous submission, not even by guessing
	// its id.
	_, err = svc.Update(ctx, "user-1", c.ID, "claimed")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

func TestContactListMine_OnlyOwnMessages(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	for i, userID := range []string{"user-1", "user-2", "user-1", ""} {
		if _, err := svc.Submit(ctx, userID, "N", "", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	mine, err := svc.ListMine(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("ListMine() returned %d messages, want 2", len(mine))
	}
}

// =========================================================================
// DELETE TESTS
// =========================================================================

func TestContactDelete_HidesMessage(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, "user-1", "Jane", "", "ephemeral")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := svc.Delete(ctx, "user-1", c.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	mine, err := svc.ListMine(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListMine() error = %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("deleted message still listed: %v", mine)
	}

	// A second delete finds nothing.
	if err := svc.Delete(ctx, "user-1", c.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}
}

func TestContactDelete_ForeignMessageForbidden(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	c, err := svc.Submit(ctx, "user-1", "Jane", "", "keep out")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if err := svc.Delete(ctx, "user-2", c.ID); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("error = %v, want ErrForbidden", err)
	}
}

// =========================================================================
// ADMIN TESTS
// =========================================================================

func TestContactAdmin_ListAllAndDelete(t *testing.T) {
	svc, _ := newContactService(t)
	ctx := context.Background()

	anon, err := svc.Submit(ctx, "", "Visitor", "", "anonymous")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if _, err := svc.Submit(ctx, "user-1", "Jane", "", "member"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListAll() returned %d messages, want 2", len(all))
	}

	// Admin removal works regardless of owner, anonymous included.
	if err := svc.AdminDelete(ctx, anon.ID); err != nil {
		t.Fatalf("AdminDelete() error = %v", err)
	}
	all, err = svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListAll() returned %d messages after delete, want 1", len(all))
	}
}
