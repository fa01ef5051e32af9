package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// createTestMedia inserts a media row for the given owner.
func createTestMedia(t *testing.T, m *MediaStore, ownerID, title string, tags ...string) *model.Media {
	t.Helper()
	media := &model.Media{
		OwnerID:     ownerID,
		Title:       title,
		Description: "a test item",
		Tags:        tags,
		URL:         "https://bucket.s3.amazonaws.com/media/" + ownerID + "/key",
		StorageKey:  "media/" + ownerID + "/key-" + title,
		ContentType: "image/jpeg",
		Size:        1024,
	}
	if err := m.Create(context.Background(), media); err != nil {
		t.Fatalf("failed to create test media: %v", err)
	}
	return media
}

// mediaOwner creates the owning user row so the foreign key holds.
func mediaOwner(t *testing.T, db *DB) *model.User {
	t.Helper()
	return createTestUser(t, db.Users(), "owner@example.com")
}

// =========================================================================
// CREATE / GET TESTS
// =========================================================================

func TestMediaCreate(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)
	m := db.Media()

	media := createTestMedia(t, m, owner.ID, "Sunset", "nature", "sky")
	if media.ID == "" {
		t.Error("Create() did not set media.ID")
	}
	if media.CreatedAt.IsZero() {
		t.Error("Create() did not set media.CreatedAt")
	}
}

func TestMediaGetByID_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)
	m := db.Media()

	created := createTestMedia(t, m, owner.ID, "Sunset", "nature", "sky")

	got, err := m.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Sunset" {
		t.Errorf("Title = %q, want %q", got.Title, "Sunset")
	}
	if len(got.Tags) != 2 || got.Tags[0] != "nature" || got.Tags[1] != "sky" {
		t.Errorf("Tags = %v, want [nature sky]", got.Tags)
	}
	if got.StorageKey == "" {
		t.Error("StorageKey should survive the round trip")
	}
}

func TestMediaGetByID_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Media().GetByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// LIST TESTS
// =========================================================================

func TestMediaListByOwner_OnlyOwnItems(t *testing.T) {
	db := newTestDB(t)
	m := db.Media()
	owner := mediaOwner(t, db)
	other := createTestUser(t, db.Users(), "other@example.com")

	createTestMedia(t, m, owner.ID, "Mine")
	createTestMedia(t, m, other.ID, "Theirs")

	items, err := m.ListByOwner(context.Background(), owner.ID, repository.MediaFilter{})
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("ListByOwner() returned %d items, want 1", len(items))
	}
	if items[0].Title != "Mine" {
		t.Errorf("Title = %q, want %q", items[0].Title, "Mine")
	}
}

func TestMediaListByOwner_SearchIsCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)
	m := db.Media()

	createTestMedia(t, m, owner.ID, "Beach Sunset")
	createTestMedia(t, m, owner.ID, "Mountain Hike")

	items, err := m.ListByOwner(context.Background(), owner.ID,
		repository.MediaFilter{Search: "SUNSET"})
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if len(items) != 1 || items[0].Title != "Beach Sunset" {
		t.Errorf("search result = %v, want only Beach Sunset", items)
	}
}

func TestMediaListByOwner_TagFilterMatchesAny(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)
	m := db.Media()

	createTestMedia(t, m, owner.ID, "One", "nature")
	createTestMedia(t, m, owner.ID, "Two", "city", "night")
	createTestMedia(t, m, owner.ID, "Three", "food")

	items, err := m.ListByOwner(context.Background(), owner.ID,
		repository.MediaFilter{Tags: []string{"NATURE", "night"}})
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	// Any listed tag qualifies, compared case-insensitively.
	if len(items) != 2 {
		t.Fatalf("ListByOwner() returned %d items, want 2", len(items))
	}
}

func TestMediaListByOwner_EmptyGallery(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)

	items, err := db.Media().ListByOwner(context.Background(), owner.ID, repository.MediaFilter{})
	if err != nil {
		t.Fatalf("ListByOwner() error = %v", err)
	}
	if items == nil {
		t.Error("ListByOwner() should return an empty slice, not nil")
	}
	if len(items) != 0 {
		t.Errorf("ListByOwner() returned %d items, want 0", len(items))
	}
}

// =========================================================================
// UPDATE / DELETE TESTS
// =========================================================================

func TestMediaUpdate(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)
	m := db.Media()

	media := createTestMedia(t, m, owner.ID, "Old Title", "old")
	media.Title = "New Title"
	media.Tags = []string{"new", "tags"}

	if err := m.Update(context.Background(), media); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, _ := m.GetByID(context.Background(), media.ID)
	if got.Title != "New Title" {
		t.Errorf("Title = %q, want %q", got.Title, "New Title")
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags = %v, want [new tags]", got.Tags)
	}
}

func TestMediaUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Media().Update(context.Background(), &model.Media{ID: "missing"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestMediaDelete(t *testing.T) {
	db := newTestDB(t)
	owner := mediaOwner(t, db)
	m := db.Media()

	media := createTestMedia(t, m, owner.ID, "Doomed")
	if err := m.Delete(context.Background(), media.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := m.GetByID(context.Background(), media.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("GetByID() after delete error = %v, want ErrNotFound", err)
	}
}

func TestMediaDelete_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Media().Delete(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound", err)
	}
}
