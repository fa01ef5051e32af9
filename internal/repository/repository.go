// Package repository defines the storage interfaces the service layer
// programs against. The sqlite subpackage is the concrete
// implementation; tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/media-gallery/internal/model"
)

// UserRepository is the credential store.
//
// Email is normalized (lowercased, trimmed) before every lookup and
// write, so lookups with mismatched casing resolve to the same record.
// Create fails with apperror.ErrConflict when the normalized email is
// already taken.
//
// The two Consume* methods exist because OTP verification must be
// check-and-clear in ONE store operation: the store's per-row atomicity
// is the only concurrency control in the system, and two requests racing
// on the same code must not both succeed.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	List(ctx context.Context) ([]model.User, error)

	// SetOTP installs a fresh challenge, overwriting any unconsumed
	// prior code. At most one live challenge per user.
	SetOTP(ctx context.Context, userID, code string, expiresAt time.Time) error

	// ConsumeRegistrationOTP atomically checks the code against the live
	// challenge and, if it matches and now is strictly before the expiry,
	// clears the challenge and marks the account verified. Returns false
	// (and no state change) otherwise.
	ConsumeRegistrationOTP(ctx context.Context, userID, code string, now time.Time) (bool, error)

	// ConsumeResetOTP is the password-reset variant: same atomic
	// check-and-clear, but on success it installs the new password hash
	// instead of flipping the verified flag.
	ConsumeResetOTP(ctx context.Context, userID, code, newPasswordHash string, now time.Time) (bool, error)
}

// MediaFilter narrows a gallery listing. Zero values mean "no filter".
type MediaFilter struct {
	Search string   // case-insensitive substring match on title
	Tags   []string // match any of these tags
}

// MediaRepository stores gallery metadata. Blobs live in storage.BlobStore.
type MediaRepository interface {
	Create(ctx context.Context, media *model.Media) error
	GetByID(ctx context.Context, id string) (*model.Media, error)
	ListByOwner(ctx context.Context, ownerID string, filter MediaFilter) ([]model.Media, error)
	Update(ctx context.Context, media *model.Media) error
	Delete(ctx context.Context, id string) error
}

// ContactRepository stores inbox messages. Delete is soft: the row stays
// but disappears from every listing and lookup.
type ContactRepository interface {
	Create(ctx context.Context, contact *model.Contact) error
	GetByID(ctx context.Context, id string) (*model.Contact, error)
	ListByUser(ctx context.Context, userID string) ([]model.Contact, error)
	ListAll(ctx context.Context) ([]model.Contact, error)
	Update(ctx context.Context, contact *model.Contact) error
	SoftDelete(ctx context.Context, id string) error
}
