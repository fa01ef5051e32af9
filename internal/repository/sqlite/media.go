package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// MediaStore is the gallery metadata store over the shared pool.
type MediaStore struct {
	conn *sql.DB
}

// compile-time check that *MediaStore implements repository.MediaRepository
var _ repository.MediaRepository = (*MediaStore)(nil)

const mediaColumns = `id, owner_id, title, description, tags, url,
	storage_key, content_type, size, created_at, updated_at`

// Create inserts a media metadata row, assigning the id and timestamps.
func (db *MediaStore) Create(ctx context.Context, media *model.Media) error {
	now := time.Now()
	media.ID = xid.New().String()
	media.CreatedAt = now
	media.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO media (id, owner_id, title, description, tags, url,
		                    storage_key, content_type, size, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		media.ID,
		media.OwnerID,
		media.Title,
		media.Description,
		model.JoinTags(media.Tags),
		media.URL,
		media.StorageKey,
		media.ContentType,
		media.Size,
		media.CreatedAt,
		media.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting media (owner=%s): %w", media.OwnerID, err)
	}
	return nil
}

// GetByID retrieves one media row.
// Returns apperror.ErrNotFound if no row exists with that id.
func (db *MediaStore) GetByID(ctx context.Context, id string) (*model.Media, error) {
	var (
		m    model.Media
		tags string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE id = ?`, id,
	).Scan(
		&m.ID, &m.OwnerID, &m.Title, &m.Description, &tags, &m.URL,
		&m.StorageKey, &m.ContentType, &m.Size, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("media", id)
		}
		return nil, fmt.Errorf("sqlite: getting media %s: %w", id, err)
	}
	m.Tags = model.ParseTags(tags)
	return &m, nil
}

// ListByOwner returns the owner's gallery, newest first. The title
// search runs in SQL; the tag filter runs on the scanned rows because
// tags live in one CSV column and a LIKE per tag would match substrings
// of other tags.
func (db *MediaStore) ListByOwner(ctx context.Context, ownerID string, filter repository.MediaFilter) ([]model.Media, error) {
	query := `SELECT ` + mediaColumns + ` FROM media WHERE owner_id = ?`
	args := []any{ownerID}

	if filter.Search != "" {
		query += ` AND lower(title) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing media for owner %s: %w", ownerID, err)
	}
	defer rows.Close()

	medias := []model.Media{}
	for rows.Next() {
		var (
			m    model.Media
			tags string
		)
		if err := rows.Scan(
			&m.ID, &m.OwnerID, &m.Title, &m.Description, &tags, &m.URL,
			&m.StorageKey, &m.ContentType, &m.Size, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning media row: %w", err)
		}
		m.Tags = model.ParseTags(tags)
		if len(filter.Tags) > 0 && !hasAnyTag(m.Tags, filter.Tags) {
			continue
		}
		medias = append(medias, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating media: %w", err)
	}
	return medias, nil
}

// Update rewrites the caller-editable fields of a media row.
func (db *MediaStore) Update(ctx context.Context, media *model.Media) error {
	media.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE media SET title = ?, description = ?, tags = ?, updated_at = ?
		 WHERE id = ?`,
		media.Title,
		media.Description,
		model.JoinTags(media.Tags),
		media.UpdatedAt,
		media.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating media %s: %w", media.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("media", media.ID)
	}
	return nil
}

// Delete removes a media row. The blob is the service layer's
// problem — it deletes from the object store before calling this.
func (db *MediaStore) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting media %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("media", id)
	}
	return nil
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
