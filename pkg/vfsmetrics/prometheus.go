package vfsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// prometheusMetrics is the Prometheus implementation of ChannelMetrics:
// one CounterVec/HistogramVec/GaugeVec per instrumented dimension,
// registered via promauto at construction time.
type prometheusMetrics struct {
	openChannels     prometheus.Gauge
	bytesRead        *prometheus.CounterVec
	bytesWritten     *prometheus.CounterVec
	lockWaitSeconds  *prometheus.HistogramVec
	pagePoolOccupied prometheus.Gauge
}

// NewPrometheus registers the engine's metrics with reg and returns a
// ChannelMetrics backed by them. Pass prometheus.DefaultRegisterer to use
// the global registry.
func NewPrometheus(reg prometheus.Registerer) ChannelMetrics {
	factory := promauto.With(reg)

	return &prometheusMetrics{
		openChannels: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vfscore",
			Name:      "open_channels",
			Help:      "Number of currently open channels.",
		}),
		bytesRead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vfscore",
			Name:      "bytes_read_total",
			Help:      "Total bytes read, labeled by operation.",
		}, []string{"op"}),
		bytesWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vfscore",
			Name:      "bytes_written_total",
			Help:      "Total bytes written, labeled by operation.",
		}, []string{"op"}),
		lockWaitSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vfscore",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting to acquire a file's reader/writer lock.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		pagePoolOccupied: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "vfscore",
			Name:      "page_pool_occupied",
			Help:      "Pages currently sitting in the free-page pool.",
		}),
	}
}

func (m *prometheusMetrics) ChannelOpened() { m.openChannels.Inc() }
func (m *prometheusMetrics) ChannelClosed() { m.openChannels.Dec() }

func (m *prometheusMetrics) BytesRead(op string, n int64) {
	m.bytesRead.WithLabelValues(op).Add(float64(n))
}

func (m *prometheusMetrics) BytesWritten(op string, n int64) {
	m.bytesWritten.WithLabelValues(op).Add(float64(n))
}

func (m *prometheusMetrics) LockWait(shared bool, d time.Duration) {
	mode := "exclusive"
	if shared {
		mode = "shared"
	}
	m.lockWaitSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

func (m *prometheusMetrics) PagePoolSize(n int) { m.pagePoolOccupied.Set(float64(n)) }

var _ ChannelMetrics = (*prometheusMetrics)(nil)
