// Package metrics defines the sink interface the engine reports run
// statistics through. Concrete sinks (Prometheus, InfluxDB, multi) live in
// infra/metrics and depend only on these types.
package metrics

import (
	"time"

	"github.com/bluecorridor/driftcast/core/model"
)

// RunSummary describes one finished optimization run.
type RunSummary struct {
	RunID     string
	Evaluated int
	Skipped   int
	Ranked    int
	Partial   bool
	Elapsed   time.Duration
}

// Sink receives engine statistics. Implementations must be safe for
// concurrent use; the collector may forward events from several workers.
type Sink interface {
	// RecordCandidate reports a scored candidate and its evaluation time.
	RecordCandidate(res model.CandidateResult, elapsed time.Duration) error
	// RecordOutcomes reports ensemble member counts by terminal status.
	RecordOutcomes(candidateID string, counts map[model.Status]int) error
	// RecordRun reports the run summary once per optimization.
	RecordRun(run RunSummary) error
}

// NopSink drops all measurements.
type NopSink struct{}

func (NopSink) RecordCandidate(model.CandidateResult, time.Duration) error { return nil }
func (NopSink) RecordOutcomes(string, map[model.Status]int) error          { return nil }
func (NopSink) RecordRun(RunSummary) error                                 { return nil }
