package metrics

import (
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks scan throughput and latency. Counters are mirrored into
// plain atomics so the JSON endpoint can report them without scraping the
// Prometheus registry.
type Metrics struct {
	registry  *prometheus.Registry
	startedAt time.Time

	scansStarted     prometheus.Counter
	scansSucceeded   prometheus.Counter
	scansFailed      prometheus.Counter
	scansCached      prometheus.Counter
	ssrfBlocked      prometheus.Counter
	validationErrors prometheus.Counter
	scanDuration     prometheus.Histogram
	queueDepth       prometheus.Gauge
	activeWorkers    prometheus.Gauge

	startedTotal     atomic.Int64
	succeededTotal   atomic.Int64
	failedTotal      atomic.Int64
	cachedTotal      atomic.Int64
	ssrfTotal        atomic.Int64
	validationTotal  atomic.Int64
	queueDepthVal    atomic.Int64
	activeWorkersVal atomic.Int64
}

// New creates the metrics set on a private registry so the exposition page
// carries only service metrics plus the standard Go collectors.
func New(serviceName string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(registry)
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		registry:  registry,
		startedAt: time.Now(),
		scansStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "privascan_scans_started_total", Help: "Scans picked up by a worker.", ConstLabels: labels,
		}),
		scansSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "privascan_scans_succeeded_total", Help: "Scans that completed with a result.", ConstLabels: labels,
		}),
		scansFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "privascan_scans_failed_total", Help: "Scans that exhausted retries.", ConstLabels: labels,
		}),
		scansCached: factory.NewCounter(prometheus.CounterOpts{
			Name: "privascan_scans_cached_total", Help: "Submissions served from a recent result.", ConstLabels: labels,
		}),
		ssrfBlocked: factory.NewCounter(prometheus.CounterOpts{
			Name: "privascan_ssrf_blocked_total", Help: "Submissions refused by the SSRF guard.", ConstLabels: labels,
		}),
		validationErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "privascan_validation_errors_total", Help: "Submissions refused by URL validation.", ConstLabels: labels,
		}),
		scanDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "privascan_scan_duration_seconds",
			Help:        "End-to-end scan duration including crawl and analysis.",
			ConstLabels: labels,
			Buckets:     []float64{10, 30, 60, 90},
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "privascan_queue_depth", Help: "Jobs waiting in the work queue.", ConstLabels: labels,
		}),
		activeWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "privascan_active_workers", Help: "Workers currently processing a scan.", ConstLabels: labels,
		}),
	}
}

func (m *Metrics) ScanStarted() {
	m.scansStarted.Inc()
	m.startedTotal.Add(1)
}

func (m *Metrics) ScanSucceeded(duration time.Duration) {
	m.scansSucceeded.Inc()
	m.succeededTotal.Add(1)
	m.scanDuration.Observe(duration.Seconds())
}

func (m *Metrics) ScanFailed(duration time.Duration) {
	m.scansFailed.Inc()
	m.failedTotal.Add(1)
	m.scanDuration.Observe(duration.Seconds())
}

func (m *Metrics) ScanCached() {
	m.scansCached.Inc()
	m.cachedTotal.Add(1)
}

func (m *Metrics) SSRFBlocked() {
	m.ssrfBlocked.Inc()
	m.ssrfTotal.Add(1)
}

func (m *Metrics) ValidationError() {
	m.validationErrors.Inc()
	m.validationTotal.Add(1)
}

func (m *Metrics) SetQueueDepth(depth int64) {
	m.queueDepth.Set(float64(depth))
	m.queueDepthVal.Store(depth)
}

func (m *Metrics) WorkerStarted() {
	m.activeWorkers.Inc()
	m.activeWorkersVal.Add(1)
}

func (m *Metrics) WorkerFinished() {
	m.activeWorkers.Dec()
	m.activeWorkersVal.Add(-1)
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Snapshot is the JSON metrics shape served by GET /metrics.
type Snapshot struct {
	UptimeSeconds    float64 `json:"uptimeSeconds"`
	ScansStarted     int64   `json:"scansStarted"`
	ScansSucceeded   int64   `json:"scansSucceeded"`
	ScansFailed      int64   `json:"scansFailed"`
	ScansCached      int64   `json:"scansCached"`
	SSRFBlocked      int64   `json:"ssrfBlocked"`
	ValidationErrors int64   `json:"validationErrors"`
	QueueDepth       int64   `json:"queueDepth"`
	ActiveWorkers    int64   `json:"activeWorkers"`
	Goroutines       int     `json:"goroutines"`
	MemoryAllocMB    float64 `json:"memoryAllocMb"`
	MemorySysMB      float64 `json:"memorySysMb"`
}

// Snapshot reads the current counters plus runtime memory stats.
func (m *Metrics) Snapshot() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return Snapshot{
		UptimeSeconds:    time.Since(m.startedAt).Seconds(),
		ScansStarted:     m.startedTotal.Load(),
		ScansSucceeded:   m.succeededTotal.Load(),
		ScansFailed:      m.failedTotal.Load(),
		ScansCached:      m.cachedTotal.Load(),
		SSRFBlocked:      m.ssrfTotal.Load(),
		ValidationErrors: m.validationTotal.Load(),
		QueueDepth:       m.queueDepthVal.Load(),
		ActiveWorkers:    m.activeWorkersVal.Load(),
		Goroutines:       runtime.NumGoroutine(),
		MemoryAllocMB:    float64(mem.Alloc) / 1024 / 1024,
		MemorySysMB:      float64(mem.Sys) / 1024 / 1024,
	}
}
