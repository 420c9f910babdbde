package sharing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sharebox/internal/models"
)

// ShareStore persists shares and files. *db.DB implements it.
// Implementations report misses with the db package sentinels.
type ShareStore interface {
	LinkExists(ctx context.Context, link string) (bool, error)
	CreateShare(ctx context.Context, share *models.Share) error
	GetShareByLink(ctx context.Context, link string) (*models.Share, error)
	GetShareByID(ctx context.Context, id uuid.UUID) (*models.Share, error)
	ListSharesByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Share, error)
	UpdateShareExpiry(ctx context.Context, id uuid.UUID, expiresAt time.Time) error
	IncrementFileCount(ctx context.Context, id uuid.UUID) error
	DeleteShare(ctx context.Context, id uuid.UUID) error
	DeleteExpiredShare(ctx context.Context, id uuid.UUID, cutoff time.Time) error

	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, shareID, fileID uuid.UUID) (*models.File, error)
	ListFiles(ctx context.Context, shareID uuid.UUID) ([]models.File, error)
}

// AccountLookup resolves owner ids to accounts.
type AccountLookup interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// BlobStore issues presigned URLs and removes objects.
type BlobStore interface {
	PresignUpload(ctx context.Context, key, mimeType string, ttl time.Duration) (string, error)
	PresignDownload(ctx context.Context, key, filename string, ttl time.Duration) (string, error)
	DeleteMany(ctx context.Context, keys []string) error
}

// RateLimiter is a sliding-window counter keyed by identifier and bucket.
type RateLimiter interface {
	Allow(ctx context.Context, identifier, bucket string) (bool, error)
}

// Rate limit buckets consulted by the service.
const (
	BucketCreate = "create"
	BucketVerify = "verify"
)

// Presigned URL lifetimes.
const (
	UploadURLTTL   = time.Hour
	DownloadURLTTL = time.Hour
	ListingURLTTL  = 24 * time.Hour
)

// BlobKey derives the object key for a file. The same share and filename
// always map to the same key, so re-uploads overwrite.
func BlobKey(shareID uuid.UUID, sanitizedFilename string) string {
	return "uploads/" + shareID.String() + "/" + sanitizedFilename
}
