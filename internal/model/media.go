package model

import (
	"strings"
	"time"
)

// Media is the metadata row for one uploaded gallery item. The bytes
// themselves live in the object store under StorageKey; URL is where the
// store serves them from. Tags are stored as a comma-separated string in
// SQLite and exposed as a slice.
type Media struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	URL         string    `json:"url"`
	StorageKey  string    `json:"-"` // object-store key, not a client concern
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ParseTags splits a comma-separated tag string into trimmed, non-empty
// tags. Used both for the upload form field and for the gallery filter
// query parameter.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// JoinTags is the inverse of ParseTags, for storage.
func JoinTags(tags []string) string {
	return strings.Join(tags, ",")
}
