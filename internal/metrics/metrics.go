package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Run metrics

	RunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "runs_total",
		Help:      "Total scheduler runs started.",
	})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "adscheduler",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of one scheduler run.",
		Buckets:   []float64{.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
	})

	SchedulesProcessedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "schedules_processed_total",
		Help:      "Total schedules finished, by outcome.",
	}, []string{"outcome"})

	// Upstream call metrics

	APICallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adscheduler",
		Name:      "api_call_duration_seconds",
		Help:      "Duration of one partner API call, by outcome.",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
	}, []string{"outcome"})

	RetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "retries_total",
		Help:      "Total retried partner API calls.",
	})

	RateLimitHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "rate_limit_hits_total",
		Help:      "Total rate-limit rejections from the partner API.",
	})

	AdaptiveDelaySeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adscheduler",
		Name:      "adaptive_delay_seconds",
		Help:      "Inter-call pacing delay carried into the next wave.",
	})

	ShopsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "adscheduler",
		Name:      "shops_in_flight",
		Help:      "Shops currently being processed by the active wave.",
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "adscheduler",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "adscheduler",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		RunsTotal,
		RunDuration,
		SchedulesProcessedTotal,
		APICallDuration,
		RetriesTotal,
		RateLimitHitsTotal,
		AdaptiveDelaySeconds,
		ShopsInFlight,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if handler != nil {
		mux.Handle("/healthz", handler)
		mux.Handle("/readyz", handler)
	}
	return &http.Server{Addr: addr, Handler: mux}
}
