package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Leg outcomes
const (
	OutcomeExact   = "exact"
	OutcomeRelaxed = "relaxed"
	OutcomeNoMatch = "no_match"
)

var (
	legTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triplan_leg_match_total",
		Help: "Leg matches by service kind and outcome",
	}, []string{"kind", "outcome"})

	legSteps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triplan_leg_relaxation_steps",
		Help:    "Relaxation steps reported per leg",
		Buckets: []float64{0, 1, 2, 3, 4},
	}, []string{"kind"})

	stepTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triplan_relaxation_attempts_total",
		Help: "Relaxation notches attempted by service kind and rationale",
	}, []string{"kind", "rationale"})

	planTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triplan_plan_total",
		Help: "Planning requests by itinerary status",
	}, []string{"status"})

	planDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "triplan_plan_duration_seconds",
		Help:    "Planning request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
	})
)

// ObserveLeg records a finished leg match
func ObserveLeg(kind, outcome string, steps int) {
	legTotal.WithLabelValues(kind, outcome).Inc()
	legSteps.WithLabelValues(kind).Observe(float64(steps))
}

// ObserveStep records one relaxation notch
func ObserveStep(kind, rationale string) {
	stepTotal.WithLabelValues(kind, rationale).Inc()
}

// ObservePlan records a finished planning request; status is "error" on failure
func ObservePlan(status string, elapsed time.Duration) {
	planTotal.WithLabelValues(status).Inc()
	planDuration.Observe(elapsed.Seconds())
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
