package models

import (
	"time"

	"github.com/google/uuid"
)

// Share is an ephemeral, link-addressable bundle of files.
type Share struct {
	ID           uuid.UUID  `json:"id"`
	Link         string     `json:"link"`
	PasswordHash *string    `json:"-"` // bcrypt hash, nil = no password
	ExpiresAt    time.Time  `json:"expires_at"`
	FileCount    int        `json:"file_count"`
	OwnerID      *uuid.UUID `json:"owner_id,omitempty"`
	Title        *string    `json:"title,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// HasPassword returns true if the share is password protected.
func (s *Share) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}

// IsOwnedBy returns true if the share belongs to the given user.
// Anonymous shares are owned by nobody.
func (s *Share) IsOwnedBy(userID *uuid.UUID) bool {
	if s.OwnerID == nil || userID == nil {
		return false
	}
	return *s.OwnerID == *userID
}
