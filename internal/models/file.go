package models

import (
	"time"

	"github.com/google/uuid"
)

// File is a single upload attached to a share.
// Size and MimeType are recorded as declared by the client.
type File struct {
	ID         uuid.UUID `json:"id"`
	ShareID    uuid.UUID `json:"share_id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	BlobKey    string    `json:"-"`
	UploadedAt time.Time `json:"uploaded_at"`
}
