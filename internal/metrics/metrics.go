package metrics

import (
	"net/http"
	"strconv"
	"time"

	"fernspiel/internal/failure"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fernspiel"

// Recorder receives launcher events. Collector is the Prometheus
// implementation; Nop discards everything.
type Recorder interface {
	LaunchCompleted(err error, duration time.Duration)
	InstallCompleted(err error, duration time.Duration)
	RuntimeExited(exitCode int)
}

// Nop is a Recorder that records nothing.
type Nop struct{}

func (Nop) LaunchCompleted(error, time.Duration)  {}
func (Nop) InstallCompleted(error, time.Duration) {}
func (Nop) RuntimeExited(int)                     {}

// Collector records launcher metrics in its own registry.
type Collector struct {
	launches        *prometheus.CounterVec
	launchDuration  *prometheus.HistogramVec
	installs        *prometheus.CounterVec
	installDuration prometheus.Histogram
	exits           *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates a collector with a fresh registry that also exposes
// the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "launches_total",
			Help:      "Total number of runtime launches by outcome",
		},
		[]string{"outcome"},
	)
	c.launchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "launch_duration_seconds",
			Help:      "Time from launch request until the runtime was ready or failed",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"outcome"},
	)
	c.installs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installs_total",
			Help:      "Total number of runtime installations by outcome",
		},
		[]string{"outcome"},
	)
	c.installDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "install_duration_seconds",
			Help:      "Duration of runtime installations",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	c.exits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runtime_exits_total",
			Help:      "Total number of runtime process exits by exit code",
		},
		[]string{"code"},
	)

	c.registry.MustRegister(
		c.launches,
		c.launchDuration,
		c.installs,
		c.installDuration,
		c.exits,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry metrics are recorded in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) LaunchCompleted(err error, duration time.Duration) {
	outcome := Outcome(err)
	c.launches.WithLabelValues(outcome).Inc()
	c.launchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (c *Collector) InstallCompleted(err error, duration time.Duration) {
	c.installs.WithLabelValues(Outcome(err)).Inc()
	c.installDuration.Observe(duration.Seconds())
}

func (c *Collector) RuntimeExited(exitCode int) {
	c.exits.WithLabelValues(strconv.Itoa(exitCode)).Inc()
}

// Outcome converts a launch stage result into a metric label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	kind, ok := failure.KindOf(err)
	if !ok {
		return "error"
	}
	switch kind {
	case failure.NotFound:
		return "not_found"
	case failure.VersionUnparseable:
		return "version_unparseable"
	case failure.DownloadFailed:
		return "download_failed"
	case failure.ExtractFailed:
		return "extract_failed"
	case failure.SpawnFailed:
		return "spawn_failed"
	case failure.PrematureExit:
		return "premature_exit"
	case failure.ProbeTimeout:
		return "probe_timeout"
	default:
		return "error"
	}
}
