// Package metrics holds the Prometheus collectors for artifact generation,
// session mutations and the preview monitor.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gst_architect"

var (
	// artifactsGenerated counts rendered artifacts by kind (pipeline, script, unit).
	artifactsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_generated_total",
			Help:      "Total number of generated artifacts",
		},
		[]string{"kind"},
	)

	// generationDuration observes pipeline+script rendering time.
	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of artifact generation in seconds",
			Buckets:   []float64{.0001, .00025, .0005, .001, .0025, .005, .01, .025, .05},
		},
	)

	// sessionMutations counts store writes by operation and outcome.
	sessionMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_mutations_total",
			Help:      "Total number of session mutations",
		},
		[]string{"op", "status"}, // status: success, error
	)

	// sessionsRunning is the number of sessions in the running preview state.
	sessionsRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_running",
			Help:      "Number of sessions whose preview monitor is running",
		},
	)

	// watchers is the number of open artifact watch streams.
	watchers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers_active",
			Help:      "Number of open artifact watch streams",
		},
	)
)

var allMetrics = []prometheus.Collector{
	artifactsGenerated,
	generationDuration,
	sessionMutations,
	sessionsRunning,
	watchers,
}

// NewRegistry returns a registry holding every collector plus the Go and
// process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	for _, c := range allMetrics {
		reg.MustRegister(c)
	}
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func RecordArtifact(kind string) {
	artifactsGenerated.WithLabelValues(kind).Inc()
}

func RecordGeneration(seconds float64) {
	generationDuration.Observe(seconds)
}

func RecordMutation(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sessionMutations.WithLabelValues(op, status).Inc()
}

func SetRunning(n int) {
	sessionsRunning.Set(float64(n))
}

func WatcherOpened() { watchers.Inc() }
func WatcherClosed() { watchers.Dec() }
