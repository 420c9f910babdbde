package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"sharebox/internal/models"
)

type fakeStats struct {
	stats *models.ShareStats
	err   error
}

func (f fakeStats) GetShareStats(ctx context.Context, now time.Time) (*models.ShareStats, error) {
	return f.stats, f.err
}

func TestShareCollector(t *testing.T) {
	c := NewShareCollector(fakeStats{stats: &models.ShareStats{Active: 3, Expired: 1, Files: 7, Bytes: 2048}}, nil)

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(c)

	expected := `
# HELP sharebox_shares Shares currently stored, by state
# TYPE sharebox_shares gauge
sharebox_shares{state="active"} 3
sharebox_shares{state="expired"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "sharebox_shares"); err != nil {
		t.Errorf("GatherAndCompare() error = %v", err)
	}

	if got := testutil.CollectAndCount(c); got != 4 {
		t.Errorf("CollectAndCount() = %d, want 4", got)
	}
}

func TestShareCollector_SourceError(t *testing.T) {
	c := NewShareCollector(fakeStats{err: errors.New("db down")}, nil)

	if got := testutil.CollectAndCount(c); got != 0 {
		t.Errorf("CollectAndCount() = %d, want 0", got)
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(archiveEntries.WithLabelValues("skipped"))
	ArchiveEntry("skipped")
	ArchiveEntry("skipped")
	if got := testutil.ToFloat64(archiveEntries.WithLabelValues("skipped")) - before; got != 2 {
		t.Errorf("archive skipped delta = %v, want 2", got)
	}

	beforeBytes := testutil.ToFloat64(declaredBytes)
	FileRegistered(100)
	FileRegistered(0)
	if got := testutil.ToFloat64(declaredBytes) - beforeBytes; got != 100 {
		t.Errorf("declared bytes delta = %v, want 100", got)
	}
}
