package metrics

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"sharebox/internal/models"
)

const namespace = "sharebox"

var (
	sharesCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shares_created_total",
		Help:      "Shares created, by password protection and ownership",
	}, []string{"password", "owned"})

	sharesDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "shares_deleted_total",
		Help:      "Shares deleted, by reason",
	}, []string{"reason"})

	filesRegistered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_registered_total",
		Help:      "Files registered against shares",
	})

	declaredBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "files_declared_bytes_total",
		Help:      "Sum of declared sizes of registered files",
	})

	passwordRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_rejections_total",
		Help:      "Wrong passwords presented to the access check",
	})

	rateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by bucket",
	}, []string{"bucket"})

	archiveEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archive_entries_total",
		Help:      "Archive entries, by outcome",
	}, []string{"outcome"})

	archives = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "archives_total",
		Help:      "Archive streams, by final state",
	}, []string{"state"})
)

var (
	activeSharesDesc = prometheus.NewDesc(
		namespace+"_shares",
		"Shares currently stored, by state",
		[]string{"state"},
		nil,
	)
	storedFilesDesc = prometheus.NewDesc(
		namespace+"_stored_files",
		"Files registered against stored shares",
		nil,
		nil,
	)
	storedBytesDesc = prometheus.NewDesc(
		namespace+"_stored_declared_bytes",
		"Sum of declared file sizes across stored shares",
		nil,
		nil,
	)
)

// StatsSource reports point-in-time share counts. *db.DB implements it.
type StatsSource interface {
	GetShareStats(ctx context.Context, now time.Time) (*models.ShareStats, error)
}

// ShareCollector is a custom Prometheus collector that reads share counts
// from the database on each scrape.
type ShareCollector struct {
	source StatsSource
	log    *zap.Logger
}

// NewShareCollector creates a collector backed by source.
func NewShareCollector(source StatsSource, log *zap.Logger) *ShareCollector {
	if log == nil {
		log = zap.NewNop()
	}
	return &ShareCollector{source: source, log: log}
}

// Describe sends the metric descriptors to the channel.
func (c *ShareCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- activeSharesDesc
	ch <- storedFilesDesc
	ch <- storedBytesDesc
}

// Collect queries the database and emits gauges.
func (c *ShareCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.source.GetShareStats(ctx, time.Now())
	if err != nil {
		c.log.Error("failed to collect share metrics", zap.Error(err))
		return
	}

	ch <- prometheus.MustNewConstMetric(activeSharesDesc, prometheus.GaugeValue, float64(stats.Active), "active")
	ch <- prometheus.MustNewConstMetric(activeSharesDesc, prometheus.GaugeValue, float64(stats.Expired), "expired")
	ch <- prometheus.MustNewConstMetric(storedFilesDesc, prometheus.GaugeValue, float64(stats.Files))
	ch <- prometheus.MustNewConstMetric(storedBytesDesc, prometheus.GaugeValue, float64(stats.Bytes))
}

var initOnce sync.Once

// Init registers the event counters and the share collector with the
// default registry. Must be called once at startup; later calls are no-ops.
func Init(source StatsSource, log *zap.Logger) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			sharesCreated,
			sharesDeleted,
			filesRegistered,
			declaredBytes,
			passwordRejections,
			rateLimited,
			archiveEntries,
			archives,
		)
		if source != nil {
			prometheus.MustRegister(NewShareCollector(source, log))
		}
	})
}

// ShareCreated counts a newly created share.
func ShareCreated(password, owned bool) {
	sharesCreated.WithLabelValues(strconv.FormatBool(password), strconv.FormatBool(owned)).Inc()
}

// ShareDeleted counts a removed share. reason is "owner" or "expired".
func ShareDeleted(reason string) {
	sharesDeleted.WithLabelValues(reason).Inc()
}

// FileRegistered counts a registered file and its declared size.
func FileRegistered(size int64) {
	filesRegistered.Inc()
	if size > 0 {
		declaredBytes.Add(float64(size))
	}
}

// PasswordRejected counts a failed password check.
func PasswordRejected() {
	passwordRejections.Inc()
}

// RateLimited counts a request rejected in bucket.
func RateLimited(bucket string) {
	rateLimited.WithLabelValues(bucket).Inc()
}

// ArchiveEntry counts an archive entry. outcome is "written" or "skipped".
func ArchiveEntry(outcome string) {
	archiveEntries.WithLabelValues(outcome).Inc()
}

// ArchiveFinished counts a finished archive stream by its terminal state.
func ArchiveFinished(state string) {
	archives.WithLabelValues(state).Inc()
}
