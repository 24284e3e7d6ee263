// Package events defines the progress notifications published on the
// internal bus during an optimization run. Subscribers (metrics collectors,
// progress reporters) must not block; delivery is best-effort.
package events

import (
	"time"

	"github.com/bluecorridor/driftcast/core/model"
)

// CandidateEvaluated is published once per scored candidate.
type CandidateEvaluated struct {
	Result model.CandidateResult
	// Outcomes counts ensemble members by terminal status.
	Outcomes map[model.Status]int
	Elapsed  time.Duration
}

// CandidateSkipped reports an infeasible candidate that was omitted from
// the ranking.
type CandidateSkipped struct {
	CandidateID string
	Reason      string
}

// RunCompleted closes a run, successful or cancelled.
type RunCompleted struct {
	RunID     string
	Evaluated int
	Skipped   int
	Ranked    int
	Partial   bool
	Elapsed   time.Duration
}
