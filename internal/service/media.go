package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
	"github.com/sakif/media-gallery/internal/storage"
)

// Upload limits. The size cap is enforced again at the HTTP layer via
// http.MaxBytesReader; this is the authoritative check.
const (
	MaxUploadSize      = 10 << 20 // 10 MiB
	MaxTitleLength     = 200
	DownloadURLExpires = 15 * time.Minute
)

// allowedContentTypes is the image whitelist for uploads.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// MediaService owns the gallery: blob in the object store, metadata in
// the repository, ownership enforced on every mutation.
type MediaService struct {
	repo   repository.MediaRepository
	blobs  storage.BlobStore
	logger *slog.Logger
}

// NewMediaService creates a MediaService.
func NewMediaService(repo repository.MediaRepository, blobs storage.BlobStore, logger *slog.Logger) *MediaService {
	return &MediaService{repo: repo, blobs: blobs, logger: logger}
}

// UploadInput carries one upload's form fields and file stream.
type UploadInput struct {
	Title       string
	Description string
	Tags        string // comma-separated, as submitted
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores the blob, then the metadata row. Blob first: if the
// metadata insert fails we try to remove the orphan blob, whereas a
// row pointing at a missing blob would be visibly broken.
func (s *MediaService) Upload(ctx context.Context, ownerID string, in UploadInput) (*model.Media, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "title is required")
	}
	if len(title) > MaxTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
	}
	if !allowedContentTypes[in.ContentType] {
		return nil, apperror.ValidationFailed("file",
			"unsupported file type: only JPEG, PNG, WEBP and GIF images are accepted")
	}
	if in.Size <= 0 || in.Size > MaxUploadSize {
		return nil, apperror.ValidationFailed("file",
			fmt.Sprintf("file must be between 1 byte and %d MiB", MaxUploadSize>>20))
	}

	key := fmt.Sprintf("media/%s/%s", ownerID, xid.New().String())
	url, err := s.blobs.Put(ctx, key, in.ContentType, in.Body, in.Size)
	if err != nil {
		return nil, apperror.Upstream("object storage", err)
	}

	media := &model.Media{
		OwnerID:     ownerID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Tags:        model.ParseTags(in.Tags),
		URL:         url,
		StorageKey:  key,
		ContentType: in.ContentType,
		Size:        in.Size,
	}
	if err := s.repo.Create(ctx, media); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphan blob left after failed metadata insert",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("service/media: saving metadata: %w", err)
	}

	s.logger.Info("media uploaded",
		slog.String("mediaID", media.ID),
		slog.String("ownerID", ownerID),
		slog.Int64("size", in.Size),
	)
	return media, nil
}

// List returns the owner's gallery, optionally filtered by a title
// search and/or tags (comma-separated).
func (s *MediaService) List(ctx context.Context, ownerID, search, tags string) ([]model.Media, error) {
	filter := repository.MediaFilter{
		Search: strings.TrimSpace(search),
		Tags:   model.ParseTags(tags),
	}
	medias, err := s.repo.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("service/media: listing gallery: %w", err)
	}
	return medias, nil
}

// Get returns one media item, enforcing ownership.
func (s *MediaService) Get(ctx context.Context, ownerID, id string) (*model.Media, error) {
	return s.getOwned(ctx, ownerID, id)
}

// UpdateInput carries the caller-editable metadata fields. Nil means
// "leave unchanged", mirroring a partial JSON body.
type UpdateInput struct {
	Title       *string
	Description *string
	Tags        *string
}

// Update edits a media item's metadata, enforcing ownership.
func (s *MediaService) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Media, error) {
	media, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apperror.ValidationFailed("title", "title must not be empty")
		}
		if len(title) > MaxTitleLength {
			return nil, apperror.ValidationFailed("title",
				fmt.Sprintf("title must be %d characters or fewer", MaxTitleLength))
		}
		media.Title = title
	}
	if in.Description != nil {
		media.Description = strings.TrimSpace(*in.Description)
	}
	if in.Tags != nil {
		media.Tags = model.ParseTags(*in.Tags)
	}

	if err := s.repo.Update(ctx, media); err != nil {
		return nil, fmt.Errorf("service/media: updating %s: %w", id, err)
	}
	return media, nil
}

// Delete removes a media item, blob first, enforcing ownership.
func (s *MediaService) Delete(ctx context.Context, ownerID, id string) error {
	media, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, media.StorageKey); err != nil {
		// Leave the row so the client can retry; Delete on the store is
		// idempotent for already-gone keys.
		return apperror.Upstream("object storage", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service/media: deleting %s: %w", id, err)
	}

	s.logger.Info("media deleted",
		slog.String("mediaID", id),
		slog.String("ownerID", ownerID),
	)
	return nil
}

// DownloadURL returns a time-limited signed URL for one item, enforcing
// ownership. The server never proxies the bytes.
func (s *MediaService) DownloadURL(ctx context.Context, ownerID, id string) (string, time.Time, error) {
	media, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return "", time.Time{}, err
	}

	url, err := s.blobs.PresignGet(ctx, media.StorageKey, DownloadURLExpires)
	if err != nil {
		return "", time.Time{}, apperror.Upstream("object storage", err)
	}
	return url, time.Now().Add(DownloadURLExpires), nil
}

// getOwned loads an item and checks it belongs to the caller. Foreign
// media is a 403, not a 404: the ids are unguessable xids, so hiding
// existence buys nothing, and the distinction helps debugging clients.
func (s *MediaService) getOwned(ctx context.Context, ownerID, id string) (*model.Media, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "media id is required")
	}
	media, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/media: fetching %s: %w", id, err)
	}
	if media.OwnerID != ownerID {
		return nil, apperror.Forbidden("media belongs to another user")
	}
	return media, nil
}
