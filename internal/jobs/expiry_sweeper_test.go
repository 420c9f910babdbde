package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sharebox/internal/db"
	"sharebox/internal/models"
	"sharebox/internal/testutil"
)

type storePurger struct {
	store  *testutil.MemStore
	failOn map[uuid.UUID]bool
	calls  int
}

func (p *storePurger) PurgeExpired(ctx context.Context, share *models.Share, cutoff time.Time) (bool, error) {
	p.calls++
	if p.failOn[share.ID] {
		return false, errors.New("blob store unavailable")
	}
	if err := p.store.DeleteExpiredShare(ctx, share.ID, cutoff); err != nil {
		if errors.Is(err, db.ErrShareNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// extendingLister extends every share right after listing it, as an owner
// racing the sweeper would.
type extendingLister struct {
	store *testutil.MemStore
}

func (l *extendingLister) ListExpiredShares(ctx context.Context, now time.Time, limit int) ([]models.Share, error) {
	shares, err := l.store.ListExpiredShares(ctx, now, limit)
	if err != nil {
		return nil, err
	}
	for _, s := range shares {
		if err := l.store.UpdateShareExpiry(ctx, s.ID, now.Add(72*time.Hour)); err != nil {
			return nil, err
		}
	}
	return shares, nil
}

func addShare(t *testing.T, store *testutil.MemStore, expiresAt time.Time) *models.Share {
	t.Helper()
	link := uuid.NewString()[:12]
	share := &models.Share{Link: link, ExpiresAt: expiresAt}
	require.NoError(t, store.CreateShare(context.Background(), share))
	return share
}

func TestSweep_DeletesOnlyPastGrace(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := testutil.NewMemStore()

	old := addShare(t, store, now.Add(-48*time.Hour))
	recent := addShare(t, store, now.Add(-time.Hour))
	live := addShare(t, store, now.Add(time.Hour))

	purger := &storePurger{store: store}
	s := NewExpirySweeper(store, purger, time.Minute, 24*time.Hour, nil)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetShareByID(context.Background(), old.ID)
	assert.Error(t, err)
	for _, keep := range []*models.Share{recent, live} {
		_, err = store.GetShareByID(context.Background(), keep.ID)
		assert.NoError(t, err)
	}
}

func TestSweep_ManyBatches(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := testutil.NewMemStore()
	for i := 0; i < sweepBatchSize*2+7; i++ {
		addShare(t, store, now.Add(-time.Duration(i+1)*time.Minute))
	}

	s := NewExpirySweeper(store, &storePurger{store: store}, time.Minute, 0, nil)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sweepBatchSize*2+7, n)
	assert.Equal(t, 0, store.ShareCount())
}

func TestSweep_SkipsFailures(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := testutil.NewMemStore()

	bad := addShare(t, store, now.Add(-3*time.Hour))
	addShare(t, store, now.Add(-2*time.Hour))
	addShare(t, store, now.Add(-time.Hour))

	purger := &storePurger{store: store, failOn: map[uuid.UUID]bool{bad.ID: true}}
	s := NewExpirySweeper(store, purger, time.Minute, 0, nil)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, store.ShareCount())
	assert.Equal(t, 3, purger.calls)
}

func TestSweep_KeepsShareExtendedAfterListing(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := testutil.NewMemStore()
	share := addShare(t, store, now.Add(-time.Hour))

	purger := &storePurger{store: store}
	s := NewExpirySweeper(&extendingLister{store: store}, purger, time.Minute, 0, nil)
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, purger.calls)

	found, err := store.GetShareByID(context.Background(), share.ID)
	require.NoError(t, err)
	assert.True(t, found.ExpiresAt.After(now))
}

func TestSweep_ListError(t *testing.T) {
	store := testutil.NewMemStore()
	store.FailOn("ListExpiredShares", errors.New("db down"))

	s := NewExpirySweeper(store, &storePurger{store: store}, time.Minute, 0, nil)
	_, err := s.Sweep(context.Background())
	assert.Error(t, err)
}

func TestStart_StopsOnCancel(t *testing.T) {
	store := testutil.NewMemStore()
	s := NewExpirySweeper(store, &storePurger{store: store}, time.Hour, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after cancel")
	}
}
