package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateShareResponse is returned after a share is created.
type CreateShareResponse struct {
	ShareLink string    `json:"shareLink"`
	ExpiresAt time.Time `json:"expiresAt"`
	ShareID   uuid.UUID `json:"shareId"`
}

// RegisterFileResponse carries the presigned upload target for a new file.
type RegisterFileResponse struct {
	FileID    uuid.UUID `json:"fileId"`
	UploadURL string    `json:"uploadUrl"`
}

// VerifyAccessResponse describes whether a share can be opened.
type VerifyAccessResponse struct {
	Valid            bool      `json:"valid"`
	RequiresPassword bool      `json:"requiresPassword"`
	ExpiresAt        time.Time `json:"expiresAt"`
	FileCount        int       `json:"fileCount"`
}

// FileListing is a file with a time-boxed download URL.
type FileListing struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	MimeType    string    `json:"mimeType"`
	DownloadURL string    `json:"downloadUrl"`
}

// ShareInfo is the public view of a share.
type ShareInfo struct {
	Link      string    `json:"link"`
	Title     string    `json:"title,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	FileCount int       `json:"fileCount"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListFilesResponse is returned by the file listing endpoint.
type ListFilesResponse struct {
	Files     []FileListing `json:"files"`
	ShareInfo ShareInfo     `json:"shareInfo"`
}

// DownloadResponse carries a single presigned download URL.
type DownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
}

// DeleteShareResponse confirms a share deletion.
type DeleteShareResponse struct {
	Deleted bool      `json:"deleted"`
	ID      uuid.UUID `json:"id"`
}

// OwnedShare is a share as seen by its owner.
type OwnedShare struct {
	ID          uuid.UUID `json:"id"`
	Link        string    `json:"link"`
	Title       string    `json:"title,omitempty"`
	HasPassword bool      `json:"hasPassword"`
	ExpiresAt   time.Time `json:"expiresAt"`
	FileCount   int       `json:"fileCount"`
	Expired     bool      `json:"expired"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewShareInfo builds the public view of a share.
func NewShareInfo(s *Share) ShareInfo {
	info := ShareInfo{
		Link:      s.Link,
		ExpiresAt: s.ExpiresAt,
		FileCount: s.FileCount,
		CreatedAt: s.CreatedAt,
	}
	if s.Title != nil {
		info.Title = *s.Title
	}
	return info
}

// ExtendShareResponse carries a share's new expiry.
type ExtendShareResponse struct {
	ID        uuid.UUID `json:"id"`
	Link      string    `json:"link"`
	ExpiresAt time.Time `json:"expiresAt"`
}
