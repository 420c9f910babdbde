package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"sharebox/internal/metrics"
	"sharebox/internal/models"
)

// sweepBatchSize bounds how many shares are loaded per query.
const sweepBatchSize = 100

// ExpiredLister finds shares whose expiry has passed. *db.DB implements it.
type ExpiredLister interface {
	ListExpiredShares(ctx context.Context, now time.Time, limit int) ([]models.Share, error)
}

// Purger removes a share with its blobs if it still expired before cutoff,
// reporting whether it did. *sharing.Service implements it.
type Purger interface {
	PurgeExpired(ctx context.Context, share *models.Share, cutoff time.Time) (bool, error)
}

// ExpirySweeper deletes shares some time after they expire. Expiry is enforced
// at read time regardless; this only reclaims storage.
type ExpirySweeper struct {
	lister   ExpiredLister
	purger   Purger
	interval time.Duration
	grace    time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// NewExpirySweeper creates a sweeper. Shares are kept for grace after expiry
// so owners can still extend them.
func NewExpirySweeper(lister ExpiredLister, purger Purger, interval, grace time.Duration, log *zap.Logger) *ExpirySweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &ExpirySweeper{
		lister:   lister,
		purger:   purger,
		interval: interval,
		grace:    grace,
		log:      log,
		now:      time.Now,
	}
}

// Start runs the sweep loop until ctx is canceled.
func (s *ExpirySweeper) Start(ctx context.Context) {
	s.log.Info("expiry sweeper started", zap.Duration("interval", s.interval), zap.Duration("grace", s.grace))

	// Run immediately on start
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *ExpirySweeper) runOnce(ctx context.Context) {
	n, err := s.Sweep(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Int("deleted", n), zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("expiry sweep finished", zap.Int("deleted", n))
	}
}

// Sweep deletes every share that expired more than grace ago and returns how
// many were removed. A share that fails to purge is logged and skipped; one
// extended since it was listed is left alone.
func (s *ExpirySweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.grace)
	deleted := 0
	skipped := make(map[string]bool)

	for {
		// Shares skipped this run may still be listed, so make room for them.
		limit := sweepBatchSize + len(skipped)
		shares, err := s.lister.ListExpiredShares(ctx, cutoff, limit)
		if err != nil {
			return deleted, err
		}

		progress := false
		for i := range shares {
			share := &shares[i]
			if skipped[share.ID.String()] {
				continue
			}

			// Check context before each share
			if err := ctx.Err(); err != nil {
				return deleted, err
			}

			purged, err := s.purger.PurgeExpired(ctx, share, cutoff)
			if err != nil {
				s.log.Warn("failed to purge expired share",
					zap.String("share_id", share.ID.String()),
					zap.Error(err),
				)
				skipped[share.ID.String()] = true
				continue
			}
			if !purged {
				s.log.Debug("share no longer expired, kept", zap.String("share_id", share.ID.String()))
				skipped[share.ID.String()] = true
				continue
			}
			deleted++
			progress = true
			metrics.ShareDeleted("expired")
		}

		if !progress || len(shares) < limit {
			return deleted, nil
		}
	}
}
