package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/core/model"
)

// PromSink records run statistics as Prometheus metrics.
type PromSink struct {
	candidates *prometheus.CounterVec
	outcomes   *prometheus.CounterVec
	duration   prometheus.Histogram
	ranked     prometheus.Gauge
}

// NewPromSink registers the drift metrics on the default registerer.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer. A
// nil registerer defaults to the global one.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	candidates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drift_candidates_total",
		Help: "Candidates evaluated, by outcome of the evaluation",
	}, []string{"outcome"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "drift_particles_total",
		Help: "Ensemble particles by terminal status",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "drift_ensemble_duration_seconds",
		Help:    "Wall-clock time to simulate and score one candidate ensemble",
		Buckets: prometheus.DefBuckets,
	})
	ranked := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "drift_ranking_size",
		Help: "Number of candidates in the last published ranking",
	})

	for _, c := range []prometheus.Collector{candidates, outcomes, duration, ranked} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return &PromSink{candidates: candidates, outcomes: outcomes, duration: duration, ranked: ranked}, nil
}

// RecordCandidate counts the evaluation and observes its duration.
func (s *PromSink) RecordCandidate(res model.CandidateResult, elapsed time.Duration) error {
	s.candidates.WithLabelValues("evaluated").Inc()
	s.duration.Observe(elapsed.Seconds())
	return nil
}

// RecordOutcomes counts ensemble members by terminal status.
func (s *PromSink) RecordOutcomes(candidateID string, counts map[model.Status]int) error {
	for st, n := range counts {
		s.outcomes.WithLabelValues(st.String()).Add(float64(n))
	}
	return nil
}

// RecordRun sets the ranking gauge and counts skipped candidates.
func (s *PromSink) RecordRun(run coremetrics.RunSummary) error {
	s.ranked.Set(float64(run.Ranked))
	if run.Skipped > 0 {
		s.candidates.WithLabelValues("skipped").Add(float64(run.Skipped))
	}
	return nil
}
