// Package zone tests drift trajectories against target and exclusion
// geometries. Evaluation walks samples in time order; an exclusion hit
// always takes precedence over a target hit at the same sample, so a
// payload that grazes a shipping lane on the way to a beach counts as lost.
package zone

import (
	"time"

	"github.com/bluecorridor/driftcast/core/model"
)

// Outcome is the zone verdict for one trajectory.
type Outcome struct {
	Status  model.Status
	Zone    string
	Elapsed time.Duration
}

// Evaluator holds the zone collection for a run. Zones are read-only, so
// the evaluator is safe for concurrent use by simulation workers.
type Evaluator struct {
	exclusions []model.Zone
	targets    []model.Zone
}

// NewEvaluator splits the supplied zones by kind, preserving input order
// within each kind.
func NewEvaluator(zones []model.Zone) *Evaluator {
	e := &Evaluator{}
	for _, z := range zones {
		if z.Kind == model.ZoneExclusion {
			e.exclusions = append(e.exclusions, z)
		} else {
			e.targets = append(e.targets, z)
		}
	}
	return e
}

// Targets returns the target zones in input order.
func (e *Evaluator) Targets() []model.Zone { return e.targets }

// Check tests a single position against all active zones. ok is false when
// no zone covers the point.
func (e *Evaluator) Check(p model.GeoPoint, t time.Time) (model.Status, string, bool) {
	for _, z := range e.exclusions {
		if z.ActiveAt(t) && z.Covers(p) {
			return model.StatusEnteredExclusion, z.Name, true
		}
	}
	for _, z := range e.targets {
		if z.ActiveAt(t) && z.Covers(p) {
			return model.StatusReachedTarget, z.Name, true
		}
	}
	return model.StatusActive, "", false
}

// Evaluate scans a finished trajectory and returns the first zone hit, or
// the trajectory's own terminal status when no zone was entered. A
// trajectory still unresolved at the horizon is reported expired.
func (e *Evaluator) Evaluate(tr *model.Trajectory, spawn time.Time) Outcome {
	for _, s := range tr.Samples {
		if st, name, ok := e.Check(s.Position, s.Time); ok {
			return Outcome{Status: st, Zone: name, Elapsed: s.Time.Sub(spawn)}
		}
	}
	if tr.Status == model.StatusActive || tr.Status == model.StatusReachedTarget || tr.Status == model.StatusEnteredExclusion {
		return Outcome{Status: model.StatusExpired}
	}
	return Outcome{Status: tr.Status}
}
