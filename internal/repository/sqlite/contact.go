package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/media-gallery/internal/apperror"
	"github.com/sakif/media-gallery/internal/model"
	"github.com/sakif/media-gallery/internal/repository"
)

// ContactStore is the inbox store over the shared pool.
type ContactStore struct {
	conn *sql.DB
}

// compile-time check that *ContactStore implements repository.ContactRepository
var _ repository.ContactRepository = (*ContactStore)(nil)

const contactColumns = `id, user_id, name, email, message, deleted, created_at, updated_at`

// Create inserts a contact message, assigning the id and timestamps.
func (db *ContactStore) Create(ctx context.Context, contact *model.Contact) error {
	now := time.Now()
	contact.ID = xid.New().String()
	contact.CreatedAt = now
	contact.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO contacts (id, user_id, name, email, message, deleted, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		contact.ID,
		contact.UserID,
		contact.Name,
		contact.Email,
		contact.Message,
		contact.CreatedAt,
		contact.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting contact message: %w", err)
	}
	return nil
}

// GetByID retrieves one live message. Soft-deleted rows are reported as
// not found — deletion is final from the caller's point of view.
func (db *ContactStore) GetByID(ctx context.Context, id string) (*model.Contact, error) {
	var c model.Contact
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND deleted = 0`, id,
	).Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Message, &c.Deleted,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("contact message", id)
		}
		return nil, fmt.Errorf("sqlite: getting contact message %s: %w", id, err)
	}
	return &c, nil
}

// ListByUser returns a user's live messages, newest first.
func (db *ContactStore) ListByUser(ctx context.Context, userID string) ([]model.Contact, error) {
	return db.list(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = ? AND deleted = 0
		 ORDER BY created_at DESC, id DESC`, userID)
}

// ListAll returns every live message, newest first. Admin-only caller.
func (db *ContactStore) ListAll(ctx context.Context) ([]model.Contact, error) {
	return db.list(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE deleted = 0
		 ORDER BY created_at DESC, id DESC`)
}

func (db *ContactStore) list(ctx context.Context, query string, args ...any) ([]model.Contact, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing contact messages: %w", err)
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.Name, &c.Email, &c.Message, &c.Deleted,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating contact messages: %w", err)
	}
	return contacts, nil
}

// Update rewrites the message body of a live row.
func (db *ContactStore) Update(ctx context.Context, contact *model.Contact) error {
	contact.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE contacts SET message = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		contact.Message, contact.UpdatedAt, contact.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating contact message %s: %w", contact.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("contact message", contact.ID)
	}
	return nil
}

// SoftDelete hides a message from all listings without dropping the row.
func (db *ContactStore) SoftDelete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE contacts SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
		time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting contact message %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("contact message", id)
	}
	return nil
}
