// Package metrics records Prometheus metrics for an index run and writes
// them in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one run on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	apiRequests  *prometheus.CounterVec
	repositories prometheus.Gauge
	files        prometheus.Gauge
	fetchErrors  prometheus.Counter
	runDuration  prometheus.Gauge
	lastSuccess  prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		apiRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repo_index_api_requests_total",
				Help: "Total number of GitHub API requests by status code and method",
			},
			[]string{"code", "method"},
		),
		repositories: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repo_index_repositories",
				Help: "Number of repositories listed in the last run",
			},
		),
		files: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repo_index_files",
				Help: "Number of files in the generated index",
			},
		),
		fetchErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "repo_index_fetch_errors_total",
				Help: "API calls that failed and were skipped",
			},
		),
		runDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repo_index_run_duration_seconds",
				Help: "Wall time of the last run in seconds",
			},
		),
		lastSuccess: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "repo_index_last_success_timestamp_seconds",
				Help: "Unix time at which the index file was last written",
			},
		),
	}
}

// InstrumentTransport counts every request that goes through rt.
func (m *Metrics) InstrumentTransport(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperCounter(m.apiRequests, rt)
}

func (m *Metrics) SetRepositories(n int) {
	m.repositories.Set(float64(n))
}

func (m *Metrics) SetFiles(n int) {
	m.files.Set(float64(n))
}

func (m *Metrics) AddFetchErrors(n int) {
	if n > 0 {
		m.fetchErrors.Add(float64(n))
	}
}

func (m *Metrics) ObserveRunDuration(d time.Duration) {
	m.runDuration.Set(d.Seconds())
}

func (m *Metrics) MarkSuccess(at time.Time) {
	m.lastSuccess.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
