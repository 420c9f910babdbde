// Package sharing implements the ephemeral share lifecycle: link allocation,
// expiry, the password gate, file registration and owner-initiated teardown.
package sharing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sharebox/internal/config"
	"sharebox/internal/db"
	"sharebox/internal/metrics"
	"sharebox/internal/models"
	"sharebox/internal/validation"
)

// Deps are the collaborators a Service needs. Limiter, Clock and LinkGen are
// optional.
type Deps struct {
	Store    ShareStore
	Accounts AccountLookup
	Blobs    BlobStore
	Limiter  RateLimiter
	Logger   *zap.Logger
	Clock    func() time.Time
	LinkGen  func() (string, error)
}

// Service orchestrates the share lifecycle. It holds no per-share state; every
// call re-reads the store.
type Service struct {
	store     ShareStore
	accounts  AccountLookup
	blobs     BlobStore
	limiter   RateLimiter
	log       *zap.Logger
	now       func() time.Time
	newLink   func() (string, error)
	expiry    ExpiryPolicy
	passwords PasswordGate
	maxFiles  int
}

// NewService creates a lifecycle service.
func NewService(deps Deps, policy *config.Policy) *Service {
	if policy == nil {
		policy = config.DefaultPolicy()
	}
	s := &Service{
		store:     deps.Store,
		accounts:  deps.Accounts,
		blobs:     deps.Blobs,
		limiter:   deps.Limiter,
		log:       deps.Logger,
		now:       deps.Clock,
		newLink:   deps.LinkGen,
		expiry:    NewExpiryPolicy(policy.Shares.MinHours, policy.Shares.MaxDays),
		passwords: NewPasswordGate(policy.Passwords.BcryptCost),
		maxFiles:  policy.Shares.MaxFilesPerShare,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newLink == nil {
		s.newLink = GenerateLink
	}
	return s
}

// Expiry returns the duration policy in force.
func (s *Service) Expiry() ExpiryPolicy {
	return s.expiry
}

// CreateInput is a request to create a share.
type CreateInput struct {
	Password      *string
	DurationHours int
	OwnerID       *uuid.UUID
	Title         *string
	// ClientKey identifies the caller for rate limiting, e.g. the client IP.
	ClientKey string
}

// Validate checks the input against the duration policy.
func (in CreateInput) Validate(policy ExpiryPolicy) validation.Result {
	if err := policy.ValidateDuration(in.DurationHours); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return validation.Fail("durationHours", e.Message)
		}
		return validation.Fail("durationHours", err.Error())
	}
	if in.Title != nil {
		if ok, msg := validation.ValidateTitle(*in.Title); !ok {
			return validation.Fail("title", msg)
		}
	}
	return validation.Result{}
}

// CreateResult is the outcome of a successful Create.
type CreateResult struct {
	Link      string
	ExpiresAt time.Time
	ShareID   uuid.UUID
}

// Create allocates a unique link and persists a new share.
func (s *Service) Create(ctx context.Context, in CreateInput) (*CreateResult, error) {
	if res := in.Validate(s.expiry); !res.OK() {
		return nil, validationError(res.Reason)
	}

	if err := s.checkRate(ctx, in.ClientKey, BucketCreate); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt, err := s.expiry.ComputeExpiry(now, in.DurationHours)
	if err != nil {
		return nil, err
	}

	share := &models.Share{
		ExpiresAt: expiresAt.UTC(),
		OwnerID:   s.resolveOwner(ctx, in.OwnerID),
	}
	if in.Title != nil && *in.Title != "" {
		title := *in.Title
		share.Title = &title
	}

	if in.Password != nil && *in.Password != "" {
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			if KindOf(err) == KindValidation {
				return nil, err
			}
			return nil, upstreamError(err)
		}
		share.PasswordHash = &hash
	}

	if err := s.insertWithUniqueLink(ctx, share); err != nil {
		return nil, err
	}

	metrics.ShareCreated(share.PasswordHash != nil, share.OwnerID != nil)
	s.log.Info("share created",
		zap.String("share_id", share.ID.String()),
		zap.Time("expires_at", share.ExpiresAt),
		zap.Bool("password", share.PasswordHash != nil),
		zap.Bool("owned", share.OwnerID != nil),
	)

	return &CreateResult{Link: share.Link, ExpiresAt: share.ExpiresAt, ShareID: share.ID}, nil
}

// insertWithUniqueLink tries up to MaxLinkAttempts fresh links. A link is
// checked against the store before insert, and an insert-time unique
// violation counts as a collision too.
func (s *Service) insertWithUniqueLink(ctx context.Context, share *models.Share) error {
	for attempt := 1; attempt <= MaxLinkAttempts; attempt++ {
		link, err := s.newLink()
		if err != nil {
			return newError(KindAllocation, ErrAllocation.Message, err)
		}

		exists, err := s.store.LinkExists(ctx, link)
		if err != nil {
			return upstreamError(err)
		}
		if exists {
			s.log.Debug("share link collision", zap.Int("attempt", attempt))
			continue
		}

		share.Link = link
		err = s.store.CreateShare(ctx, share)
		if errors.Is(err, db.ErrDuplicateLink) {
			s.log.Debug("share link collision on insert", zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return upstreamError(err)
		}
		return nil
	}

	s.log.Error("exhausted share link attempts", zap.Int("attempts", MaxLinkAttempts))
	return ErrAllocation
}

// resolveOwner returns ownerID if it names an existing account, nil otherwise.
// A missing or unreachable account downgrades the share to anonymous rather
// than failing the create.
func (s *Service) resolveOwner(ctx context.Context, ownerID *uuid.UUID) *uuid.UUID {
	if ownerID == nil || s.accounts == nil {
		return nil
	}
	user, err := s.accounts.GetUserByID(ctx, *ownerID)
	if err != nil || user == nil {
		if !errors.Is(err, db.ErrUserNotFound) && err != nil {
			s.log.Warn("owner lookup failed, creating anonymous share", zap.Error(err))
		}
		return nil
	}
	id := user.ID
	return &id
}

// RegisterFileInput describes a file the client is about to upload.
type RegisterFileInput struct {
	Filename string
	Size     int64
	MimeType string
}

// Validate checks the declared file metadata.
func (in RegisterFileInput) Validate() validation.Result {
	if in.Filename == "" {
		return validation.Fail("filename", "Filename is required")
	}
	if in.Size < 0 {
		return validation.Fail("size", "Size must not be negative")
	}
	if in.MimeType != "" && !validation.ValidateMimeType(in.MimeType) {
		return validation.Fail("mimeType", "Invalid MIME type")
	}
	return validation.Result{}
}

// RegisterFile records a file against a live share and returns a presigned
// upload URL. The byte transfer happens between the client and the blob store.
func (s *Service) RegisterFile(ctx context.Context, link string, in RegisterFileInput) (*models.RegisterFileResponse, error) {
	if res := in.Validate(); !res.OK() {
		return nil, validationError(res.Reason)
	}

	share, err := s.activeShare(ctx, link)
	if err != nil {
		return nil, err
	}

	// fileCount is advisory; concurrent registrations may both pass this check.
	if s.maxFiles > 0 && share.FileCount >= s.maxFiles {
		return nil, ErrLimitExceeded
	}

	mimeType := in.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	filename := validation.SanitizeFilename(in.Filename)
	file := &models.File{
		ShareID:  share.ID,
		Filename: filename,
		Size:     in.Size,
		MimeType: mimeType,
		BlobKey:  BlobKey(share.ID, filename),
	}

	uploadURL, err := s.blobs.PresignUpload(ctx, file.BlobKey, mimeType, UploadURLTTL)
	if err != nil {
		return nil, upstreamError(err)
	}

	if err := s.store.CreateFile(ctx, file); err != nil {
		return nil, upstreamError(err)
	}

	if err := s.store.IncrementFileCount(ctx, share.ID); err != nil {
		s.log.Warn("failed to increment file count",
			zap.String("share_id", share.ID.String()),
			zap.Error(err),
		)
	}

	metrics.FileRegistered(in.Size)

	return &models.RegisterFileResponse{FileID: file.ID, UploadURL: uploadURL}, nil
}

// VerifyAccess checks that a share is live and, if it has a password, that
// the right one was supplied. A missing password is a normal outcome, not an
// error. Nothing is remembered between calls.
func (s *Service) VerifyAccess(ctx context.Context, link string, password *string, clientKey string) (*models.VerifyAccessResponse, error) {
	share, err := s.activeShare(ctx, link)
	if err != nil {
		return nil, err
	}

	resp := &models.VerifyAccessResponse{
		RequiresPassword: share.HasPassword(),
		ExpiresAt:        share.ExpiresAt,
		FileCount:        share.FileCount,
	}

	if share.HasPassword() {
		if password == nil || *password == "" {
			return resp, nil
		}

		// Keyed by client and link so one noisy share doesn't lock a client
		// out of others.
		if err := s.checkRate(ctx, clientKey+"|"+share.Link, BucketVerify); err != nil {
			return nil, err
		}

		if !s.passwords.Verify(*password, *share.PasswordHash) {
			metrics.PasswordRejected()
			return nil, ErrUnauthorized
		}
	}

	resp.Valid = true
	return resp, nil
}

// ListFiles returns the share's files with 24 hour download URLs. The password
// is not re-checked here; callers are expected to have called VerifyAccess.
func (s *Service) ListFiles(ctx context.Context, link string) (*models.ListFilesResponse, error) {
	share, err := s.activeShare(ctx, link)
	if err != nil {
		return nil, err
	}

	files, err := s.store.ListFiles(ctx, share.ID)
	if err != nil {
		return nil, upstreamError(err)
	}

	listing := make([]models.FileListing, 0, len(files))
	for _, f := range files {
		url, err := s.blobs.PresignDownload(ctx, f.BlobKey, f.Filename, ListingURLTTL)
		if err != nil {
			return nil, upstreamError(err)
		}
		listing = append(listing, models.FileListing{
			ID:          f.ID,
			Filename:    f.Filename,
			Size:        f.Size,
			MimeType:    f.MimeType,
			DownloadURL: url,
		})
	}

	return &models.ListFilesResponse{Files: listing, ShareInfo: models.NewShareInfo(share)}, nil
}

// DownloadURL issues a one hour download URL for a single file.
func (s *Service) DownloadURL(ctx context.Context, link string, fileID uuid.UUID) (*models.DownloadResponse, error) {
	share, err := s.activeShare(ctx, link)
	if err != nil {
		return nil, err
	}

	file, err := s.store.GetFile(ctx, share.ID, fileID)
	if err != nil {
		if errors.Is(err, db.ErrFileNotFound) {
			return nil, newError(KindNotFound, "File not found", nil)
		}
		return nil, upstreamError(err)
	}

	url, err := s.blobs.PresignDownload(ctx, file.BlobKey, file.Filename, DownloadURLTTL)
	if err != nil {
		return nil, upstreamError(err)
	}
	return &models.DownloadResponse{DownloadURL: url}, nil
}

// ActiveShareFiles returns a live share and its files in upload order. It
// fails with NotFound when the share has no files.
func (s *Service) ActiveShareFiles(ctx context.Context, link string) (*models.Share, []models.File, error) {
	share, err := s.activeShare(ctx, link)
	if err != nil {
		return nil, nil, err
	}

	files, err := s.store.ListFiles(ctx, share.ID)
	if err != nil {
		return nil, nil, upstreamError(err)
	}
	if len(files) == 0 {
		return nil, nil, newError(KindNotFound, "Share has no files", nil)
	}
	return share, files, nil
}

// DeleteShare removes a share and its blobs. Only the owner may delete;
// anonymous shares can only expire. A failed blob delete is logged and the
// metadata is removed anyway.
func (s *Service) DeleteShare(ctx context.Context, ref string, requester *uuid.UUID) (*models.DeleteShareResponse, error) {
	share, err := s.lookupShare(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !share.IsOwnedBy(requester) {
		return nil, ErrForbidden
	}

	if err := s.purge(ctx, share); err != nil {
		return nil, err
	}

	metrics.ShareDeleted("owner")
	s.log.Info("share deleted", zap.String("share_id", share.ID.String()))

	return &models.DeleteShareResponse{Deleted: true, ID: share.ID}, nil
}

// purge deletes a share's row and then its blobs. It performs no ownership
// or expiry checks.
func (s *Service) purge(ctx context.Context, share *models.Share) error {
	files, err := s.store.ListFiles(ctx, share.ID)
	if err != nil {
		return upstreamError(err)
	}

	if err := s.store.DeleteShare(ctx, share.ID); err != nil {
		if errors.Is(err, db.ErrShareNotFound) {
			return ErrNotFound
		}
		return upstreamError(err)
	}

	s.deleteBlobs(ctx, share, files)
	return nil
}

// PurgeExpired is purge for the expired share sweeper. The row is only
// deleted if the share still expired before cutoff, so a share extended
// after it was listed survives with its blobs. Reports whether it was
// deleted.
func (s *Service) PurgeExpired(ctx context.Context, share *models.Share, cutoff time.Time) (bool, error) {
	files, err := s.store.ListFiles(ctx, share.ID)
	if err != nil {
		return false, upstreamError(err)
	}

	if err := s.store.DeleteExpiredShare(ctx, share.ID, cutoff); err != nil {
		if errors.Is(err, db.ErrShareNotFound) {
			return false, nil
		}
		return false, upstreamError(err)
	}

	s.deleteBlobs(ctx, share, files)
	return true, nil
}

// deleteBlobs removes the objects behind files. Failures leave orphaned
// objects and are only logged.
func (s *Service) deleteBlobs(ctx context.Context, share *models.Share, files []models.File) {
	if len(files) == 0 {
		return
	}

	keys := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if !seen[f.BlobKey] {
			seen[f.BlobKey] = true
			keys = append(keys, f.BlobKey)
		}
	}
	if err := s.blobs.DeleteMany(ctx, keys); err != nil {
		s.log.Warn("failed to delete share blobs",
			zap.String("share_id", share.ID.String()),
			zap.Int("keys", len(keys)),
			zap.Error(err),
		)
	}
}

// ExtendShare pushes the expiry of an owned share later.
func (s *Service) ExtendShare(ctx context.Context, ref string, requester *uuid.UUID, additionalHours int) (*models.Share, error) {
	share, err := s.lookupShare(ctx, ref)
	if err != nil {
		return nil, err
	}

	if !share.IsOwnedBy(requester) {
		return nil, ErrForbidden
	}

	if additionalHours > s.expiry.MaxHours {
		return nil, validationError("Additional hours exceed the maximum share duration")
	}

	newExpiry, err := Extend(share.ExpiresAt, additionalHours)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateShareExpiry(ctx, share.ID, newExpiry); err != nil {
		if errors.Is(err, db.ErrShareNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamError(err)
	}

	s.log.Info("share extended",
		zap.String("share_id", share.ID.String()),
		zap.Time("expires_at", newExpiry),
	)

	share.ExpiresAt = newExpiry
	return share, nil
}

// ListOwned returns every share owned by a user, including expired ones.
func (s *Service) ListOwned(ctx context.Context, owner uuid.UUID) ([]models.OwnedShare, error) {
	shares, err := s.store.ListSharesByOwner(ctx, owner)
	if err != nil {
		return nil, upstreamError(err)
	}

	now := s.now()
	out := make([]models.OwnedShare, 0, len(shares))
	for i := range shares {
		sh := &shares[i]
		owned := models.OwnedShare{
			ID:          sh.ID,
			Link:        sh.Link,
			HasPassword: sh.HasPassword(),
			ExpiresAt:   sh.ExpiresAt,
			FileCount:   sh.FileCount,
			Expired:     IsExpired(sh.ExpiresAt, now),
			CreatedAt:   sh.CreatedAt,
		}
		if sh.Title != nil {
			owned.Title = *sh.Title
		}
		out = append(out, owned)
	}
	return out, nil
}

// activeShare loads a share by link and rejects it if it has expired.
func (s *Service) activeShare(ctx context.Context, link string) (*models.Share, error) {
	if !IsWellFormedLink(link) {
		return nil, ErrNotFound
	}

	share, err := s.store.GetShareByLink(ctx, link)
	if err != nil {
		if errors.Is(err, db.ErrShareNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamError(err)
	}

	if IsExpired(share.ExpiresAt, s.now()) {
		return nil, ErrGone
	}
	return share, nil
}

// lookupShare loads a share by uuid or public link without an expiry check.
func (s *Service) lookupShare(ctx context.Context, ref string) (*models.Share, error) {
	var (
		share *models.Share
		err   error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		share, err = s.store.GetShareByID(ctx, id)
	} else if IsWellFormedLink(ref) {
		share, err = s.store.GetShareByLink(ctx, ref)
	} else {
		return nil, ErrNotFound
	}

	if err != nil {
		if errors.Is(err, db.ErrShareNotFound) {
			return nil, ErrNotFound
		}
		return nil, upstreamError(err)
	}
	return share, nil
}

// checkRate consults the limiter. Limiter failures are logged and the
// request is allowed.
func (s *Service) checkRate(ctx context.Context, identifier, bucket string) error {
	if s.limiter == nil || identifier == "" {
		return nil
	}
	allowed, err := s.limiter.Allow(ctx, identifier, bucket)
	if err != nil {
		s.log.Warn("rate limiter unavailable", zap.String("bucket", bucket), zap.Error(err))
		return nil
	}
	if !allowed {
		metrics.RateLimited(bucket)
		return ErrRateLimited
	}
	return nil
}
