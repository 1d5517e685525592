package monitoring

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	AnalysesTotal     *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	PhotosClassified  *prometheus.CounterVec
	ScrapeErrorsTotal *prometheus.CounterVec
	BrowserRespawns   prometheus.Counter
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// NewMetrics registers the metric set on reg. Tests pass a fresh registry so
// parallel suites never collide on registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_runs_total",
			Help: "The total number of analysis runs by outcome",
		}, []string{"outcome"}), // e.g. 'completed', 'acquisition_failed', 'cached'
		AnalysisDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "analyzer_run_duration_seconds",
			Help:    "Wall-clock duration of full analysis runs",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		PhotosClassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_photos_classified_total",
			Help: "The total number of photo units finalized by verdict",
		}, []string{"verdict"}),
		ScrapeErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_scrape_errors_total",
			Help: "The total number of classification attempt failures",
		}, []string{"type"}), // e.g. 'unit_failed', 'session_dead'
		BrowserRespawns: factory.NewCounter(prometheus.CounterOpts{
			Name: "analyzer_browser_respawns_total",
			Help: "The total number of browser sessions respawned after a fault",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "analyzer_http_requests_total",
			Help: "The total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "analyzer_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) IncAnalyses(outcome string) {
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAnalysisDuration(d time.Duration) {
	m.AnalysisDuration.Observe(d.Seconds())
}

func (m *Metrics) IncPhotosClassified(verdict string) {
	m.PhotosClassified.WithLabelValues(verdict).Inc()
}

func (m *Metrics) IncScrapeErrors(errType string) {
	m.ScrapeErrorsTotal.WithLabelValues(errType).Inc()
}

func (m *Metrics) IncBrowserRespawns() {
	m.BrowserRespawns.Inc()
}

func (m *Metrics) ObserveHTTPRequest(route string, code int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, fmt.Sprintf("%d", code)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
