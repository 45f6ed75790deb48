package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/socraticschool/accounts/internal/health"
)

var (
	// Token lifecycle

	TokensIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "tokens_issued_total",
		Help:      "Verification and reset tokens issued.",
	}, []string{"kind"})

	RedemptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "redemptions_total",
		Help:      "Token redemption attempts by terminal outcome.",
	}, []string{"kind", "outcome"})

	// NormalizerCandidateHits tracks which canonical form of an inbound
	// token finally matched. Index 0 is the unmangled common case; any
	// volume on higher indexes means mangled legacy links are still in
	// circulation.
	NormalizerCandidateHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "normalizer_candidate_hits_total",
		Help:      "Matches by candidate position in the normalizer list.",
	}, []string{"index"})

	// Sweeper

	SweepClearedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "sweep_cleared_total",
		Help:      "Expired token rows cleared by the sweeper.",
	}, []string{"kind"})

	SweepCycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "sweep_cycle_duration_seconds",
		Help:      "Time taken for one sweep cycle.",
		Buckets:   prometheus.DefBuckets,
	})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "accounts",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "accounts",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		TokensIssuedTotal,
		RedemptionsTotal,
		NormalizerCandidateHits,
		SweepClearedTotal,
		SweepCycleDuration,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealth(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		writeHealth(w, result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealth(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
