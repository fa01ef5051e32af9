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

// UserStore is the credential store over the shared pool.
type UserStore struct {
	conn *sql.DB
}

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

const userColumns = `id, name, email, password_hash, role, verified, active,
	google_id, otp_code, otp_expires, created_at, updated_at`

// Create inserts a new user, assigning the id and timestamps.
//
// The credential invariant and email uniqueness are both enforced here.
// Uniqueness is checked twice: a friendly SELECT first (so the common
// case gets a clean conflict error) and the UNIQUE constraint as the
// backstop for two racing registrations — the loser's constraint
// failure is mapped to the same conflict error.
func (db *UserStore) Create(ctx context.Context, user *model.User) error {
	if !user.HasCredential() {
		return apperror.ValidationFailed("credential",
			"user must have a password or a linked identity")
	}
	user.Email = model.NormalizeEmail(user.Email)

	var existing string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE email = ?`, user.Email,
	).Scan(&existing)
	if err == nil {
		return apperror.Conflict("user", "email already registered")
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: checking email %s: %w", user.Email, err)
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, verified, active,
		                    google_id, otp_code, otp_expires, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Verified,
		user.Active,
		nullString(user.GoogleID),
		user.OTPCode,
		nullTime(user.OTPExpires),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return apperror.Conflict("user", "email already registered")
		}
		return fmt.Errorf("sqlite: inserting user (email=%s): %w", user.Email, err)
	}

	return nil
}

// GetByID retrieves a user by internal id.
// Returns apperror.ErrNotFound if no such user exists.
func (db *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	return db.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetByEmail retrieves a user by email. The argument is normalized
// before the lookup, so casing never matters to callers.
func (db *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		model.NormalizeEmail(email))
}

// GetByGoogleID retrieves a user by their Google subject id.
func (db *UserStore) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return db.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
}

func (db *UserStore) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		u          model.User
		role       string
		googleID   sql.NullString
		otpExpires sql.NullTime
	)
	err := db.conn.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.Verified,
		&u.Active,
		&googleID,
		&u.OTPCode,
		&otpExpires,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", fmt.Sprint(arg))
		}
		return nil, fmt.Errorf("sqlite: getting user: %w", err)
	}

	u.Role = model.Role(role)
	u.GoogleID = googleID.String
	u.OTPExpires = otpExpires.Time
	return &u, nil
}

// Update rewrites a user's mutable fields. The password hash is written
// as-is — hashing already happened at the explicit set point, never here.
func (db *UserStore) Update(ctx context.Context, user *model.User) error {
	user.Email = model.NormalizeEmail(user.Email)
	user.UpdatedAt = time.Now()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?,
		        verified = ?, active = ?, google_id = ?, updated_at = ?
		 WHERE id = ?`,
		user.Name,
		user.Email,
		user.PasswordHash,
		string(user.Role),
		user.Verified,
		user.Active,
		nullString(user.GoogleID),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return apperror.Conflict("user", "email already registered")
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}

// List returns all users, newest first. Admin-only caller.
func (db *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		var (
			u          model.User
			role       string
			googleID   sql.NullString
			otpExpires sql.NullTime
		)
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Verified,
			&u.Active, &googleID, &u.OTPCode, &otpExpires, &u.CreatedAt, &u.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		u.Role = model.Role(role)
		u.GoogleID = googleID.String
		u.OTPExpires = otpExpires.Time
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

// SetOTP installs a fresh challenge, overwriting any unconsumed code.
func (db *UserStore) SetOTP(ctx context.Context, userID, code string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET otp_code = ?, otp_expires = ?, updated_at = ? WHERE id = ?`,
		code, expiresAt, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting OTP for user %s: %w", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// ConsumeRegistrationOTP checks and clears the challenge in a single
// conditional UPDATE. The WHERE clause encodes the whole validity rule —
// code present, exact match, now strictly before expiry — and SQLite's
// per-statement atomicity guarantees at most one of two racing requests
// sees rows-affected == 1.
func (db *UserStore) ConsumeRegistrationOTP(ctx context.Context, userID, code string, now time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET otp_code = '', otp_expires = NULL, verified = 1, updated_at = ?
		 WHERE id = ? AND otp_code != '' AND otp_code = ? AND otp_expires > ?`,
		now, userID, code, now,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming registration OTP for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n == 1, nil
}

// ConsumeResetOTP is the password-reset variant: same atomic
// check-and-clear, installing the new hash on success.
func (db *UserStore) ConsumeResetOTP(ctx context.Context, userID, code, newPasswordHash string, now time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET otp_code = '', otp_expires = NULL, password_hash = ?, updated_at = ?
		 WHERE id = ? AND otp_code != '' AND otp_code = ? AND otp_expires > ?`,
		newPasswordHash, now, userID, code, now,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: consuming reset OTP for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: rows affected: %w", err)
	}
	return n == 1, nil
}

// nullString maps "" to NULL, for columns with partial UNIQUE indexes.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
