package model

import "time"

// Contact is one message in the contact inbox.
//
// UserID is empty for anonymous submissions. Deleted is a soft-delete
// flag: deleted messages stay in the table for the audit trail but are
// invisible to every listing and mutation.
type Contact struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId,omitempty"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Deleted   bool      `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
