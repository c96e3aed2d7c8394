package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/coinpilot/internal/application/pipeline"
	"github.com/sawpanic/coinpilot/internal/safety"
)

// MetricsRegistry holds the Prometheus metrics exposed on /metrics.
type MetricsRegistry struct {
	registry *prometheus.Registry

	RequestDuration *prometheus.HistogramVec
	Requests        *prometheus.CounterVec

	Scans      *prometheus.CounterVec
	Picks      prometheus.Gauge
	Rejections *prometheus.CounterVec

	Verifications   *prometheus.CounterVec
	CacheHitRatio   prometheus.Gauge
	AdvisorFallback prometheus.Counter
}

// NewMetricsRegistry creates the metrics on a private registry so several
// servers (and tests) can coexist in one process.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coinpilot_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"route", "method"},
		),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"route", "method", "status"},
		),

		Scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_scans_total",
				Help: "Total scoring runs by outcome",
			},
			[]string{"outcome"},
		),

		Picks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinpilot_last_scan_picks",
				Help: "Number of picks returned by the most recent scoring run",
			},
		),

		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_filter_rejections_total",
				Help: "Candidates dropped by each filter gate",
			},
			[]string{"gate"},
		),

		Verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coinpilot_verifications_total",
				Help: "Symbol verifications by answer source and verdict",
			},
			[]string{"source", "verified"},
		),

		CacheHitRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "coinpilot_verification_cache_hit_ratio",
				Help: "Share of registry-bound verifications answered from cache (0.0 to 1.0)",
			},
		),

		AdvisorFallback: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coinpilot_advisor_fallbacks_total",
				Help: "Advisory decisions that used the local heuristic",
			},
		),
	}

	m.registry.MustRegister(
		m.RequestDuration,
		m.Requests,
		m.Scans,
		m.Picks,
		m.Rejections,
		m.Verifications,
		m.CacheHitRatio,
		m.AdvisorFallback,
	)
	return m
}

// ObserveRequest records one served request.
func (m *MetricsRegistry) ObserveRequest(route, method string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, method).Observe(d.Seconds())
	m.Requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// RecordScan records a scoring run.
func (m *MetricsRegistry) RecordScan(res *pipeline.Result) {
	outcome := "ok"
	switch {
	case res.Degraded:
		outcome = "degraded"
	case res.NoCandidates:
		outcome = "empty"
	}
	m.Scans.WithLabelValues(outcome).Inc()
	m.Picks.Set(float64(len(res.Picks)))
	for _, r := range res.Rejected {
		m.Rejections.WithLabelValues(r.Gate).Inc()
	}
}

// RecordVerification records a verification answer and refreshes the hit ratio.
func (m *MetricsRegistry) RecordVerification(r safety.RegistryResult) {
	m.Verifications.WithLabelValues(string(r.Source), strconv.FormatBool(r.Verified)).Inc()
	m.updateCacheHitRatio()
}

// updateCacheHitRatio derives cache hits over cache plus registry answers.
func (m *MetricsRegistry) updateCacheHitRatio() {
	hits := m.sourceCount(safety.SourceCache)
	misses := m.sourceCount(safety.SourceRegistry) + m.sourceCount(safety.SourceFallback)
	if total := hits + misses; total > 0 {
		m.CacheHitRatio.Set(hits / total)
	}
}

func (m *MetricsRegistry) sourceCount(source safety.Source) float64 {
	var total float64
	for _, verified := range []string{"true", "false"} {
		c, err := m.Verifications.GetMetricWithLabelValues(string(source), verified)
		if err != nil {
			continue
		}
		metric := &io_prometheus_client.Metric{}
		if err := c.Write(metric); err != nil {
			log.Debug().Err(err).Msg("Failed to read verification counter")
			continue
		}
		total += metric.GetCounter().GetValue()
	}
	return total
}

// Gatherer exposes the underlying registry.
func (m *MetricsRegistry) Gatherer() prometheus.Gatherer {
	return m.registry
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
