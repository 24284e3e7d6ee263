package metrics

import (
	"errors"
	"time"

	coremetrics "github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/core/model"
)

// MultiSink fans every record out to several sinks, joining their errors.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordCandidate(res model.CandidateResult, elapsed time.Duration) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordCandidate(res, elapsed); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordOutcomes(candidateID string, counts map[model.Status]int) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordOutcomes(candidateID, counts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordRun(run coremetrics.RunSummary) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordRun(run); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
