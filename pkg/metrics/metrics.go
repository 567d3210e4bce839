package metrics

import (
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"

	"walldo/pkg/errors"
	"walldo/pkg/events"
	"walldo/pkg/models"
)

// Run outcome labels
const (
	ResultOK        = "ok"
	ResultPartial   = "partial"
	ResultNoResults = "no_results"
	ResultError     = "error"
)

// Metrics bundles the Prometheus collectors fed by download events. It
// implements events.Observer and is safe for concurrent use.
type Metrics struct {
	Registry *prometheus.Registry

	ImagesTotal    *prometheus.CounterVec
	ImageErrors    *prometheus.CounterVec
	BytesTotal     prometheus.Counter
	ImageSize      prometheus.Histogram
	RoundsTotal    prometheus.Counter
	LinksSeenTotal prometheus.Counter
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	SessionImages  prometheus.Gauge
}

// New constructs and registers all metrics on a dedicated registry
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		ImagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Images handled, by outcome (done, skipped, failed).",
		}, []string{"outcome"}),
		ImageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_errors_total",
			Help:      "Failed image downloads by error type.",
		}, []string{"error_type"}),
		BytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "downloaded_bytes_total",
			Help:      "Bytes written to disk for downloaded images.",
		}),
		ImageSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_size_bytes",
			Help:      "Size of downloaded images.",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 2, 8),
		}),
		RoundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Gallery page rounds completed.",
		}),
		LinksSeenTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_seen_total",
			Help:      "Image links taken from gallery pages.",
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs by result.",
		}, []string{"result"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of finished runs.",
			Buckets:   prometheus.DefBuckets,
		}),
		SessionImages: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_images",
			Help:      "Images downloaded by all runs of this process.",
		}),
	}

	registry.MustRegister(
		m.ImagesTotal,
		m.ImageErrors,
		m.BytesTotal,
		m.ImageSize,
		m.RoundsTotal,
		m.LinksSeenTotal,
		m.RunsTotal,
		m.RunDuration,
		m.SessionImages,
	)

	return m
}

var _ events.Observer = (*Metrics)(nil)

// ImageDone counts a written image and its size
func (m *Metrics) ImageDone(record models.DownloadRecord) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues("done").Inc()
	m.BytesTotal.Add(float64(record.Size))
	m.ImageSize.Observe(float64(record.Size))
}

// ImageSkipped counts an image that was already on disk
func (m *Metrics) ImageSkipped(models.ImageLink) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues("skipped").Inc()
}

// ImageFailed counts a failed image by error type
func (m *Metrics) ImageFailed(_ models.ImageLink, err error) {
	if m == nil {
		return
	}
	m.ImagesTotal.WithLabelValues("failed").Inc()
	m.ImageErrors.WithLabelValues(errors.Label(err)).Inc()
}

// RoundFinished counts a completed round
func (m *Metrics) RoundFinished(round events.Round) {
	if m == nil {
		return
	}
	m.RoundsTotal.Inc()
	m.LinksSeenTotal.Add(float64(round.LinksSeen))
}

// RunFinished records the run's result and duration
func (m *Metrics) RunFinished(run events.Run) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(RunResult(run.Err)).Inc()
	m.RunDuration.Observe(run.Stats.Elapsed.Seconds())
	m.SessionImages.Set(float64(run.Session.ImagesDownloaded))
}

// RunResult maps a run error to its result label
func RunResult(err error) string {
	switch {
	case err == nil:
		return ResultOK
	case stderrors.Is(err, errors.ErrMaxRetriesCrossed):
		return ResultPartial
	case stderrors.Is(err, errors.ErrSearchReturnedNone):
		return ResultNoResults
	default:
		return ResultError
	}
}
