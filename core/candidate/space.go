// Package candidate enumerates the discrete set of feasible release
// configurations: a spatial grid over the allowed release region crossed
// with a cadence of release times within forecast coverage. Infeasible
// pairs are filtered at generation time so no simulation budget is wasted
// on starts that cannot work.
package candidate

import (
	"fmt"
	"time"

	"github.com/bluecorridor/driftcast/core/field"
	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/zone"
)

// InfeasibleError reports a candidate that cannot be evaluated. The
// optimizer skips such candidates and reports the omission; they never
// abort the run.
type InfeasibleError struct {
	Candidate model.CandidateConfig
	Reason    string
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("candidate %s infeasible: %s", e.Candidate.ID, e.Reason)
}

// EnsembleDefaults carries the per-candidate simulation parameters stamped
// onto every generated configuration.
type EnsembleDefaults struct {
	Size         int
	SpawnRadiusM float64
	DiffusionM   float64
}

// Space is the finite candidate enumeration. It holds only read-only
// collaborators, so iteration is restartable and side-effect free.
type Space struct {
	region   model.Region
	spacing  float64
	start    time.Time
	cadence  time.Duration
	count    int
	defaults EnsembleDefaults
	field    *field.VectorField
	zones    *zone.Evaluator
	// prefix distinguishes coarse from refinement candidate IDs.
	prefix string
}

// NewSpace validates the enumeration parameters against the forecast
// coverage. start is clamped forward to the first forecast frame.
func NewSpace(region model.Region, spacingDeg float64, start time.Time, cadence time.Duration, count int, defaults EnsembleDefaults, f *field.VectorField, zones *zone.Evaluator) (*Space, error) {
	if err := region.Validate(); err != nil {
		return nil, fmt.Errorf("candidate: %w", err)
	}
	if spacingDeg <= 0 {
		return nil, fmt.Errorf("candidate: release spacing must be positive, got %v", spacingDeg)
	}
	if count <= 0 || (count > 1 && cadence <= 0) {
		return nil, fmt.Errorf("candidate: need a positive release count and cadence, got %d every %v", count, cadence)
	}
	if defaults.Size <= 0 {
		return nil, fmt.Errorf("candidate: ensemble size must be positive, got %d", defaults.Size)
	}
	first, _ := f.TimeBounds()
	if start.Before(first) {
		start = first
	}
	return &Space{
		region: region, spacing: spacingDeg,
		start: start, cadence: cadence, count: count,
		defaults: defaults, field: f, zones: zones,
		prefix: "p",
	}, nil
}

// Spacing returns the release grid spacing in degrees.
func (s *Space) Spacing() float64 { return s.spacing }

// ForEach yields candidates in deterministic order (west→east, south→north,
// earliest release first) until exhausted or yield returns false.
func (s *Space) ForEach(yield func(model.CandidateConfig) bool) {
	bounds := s.field.Bounds()
	pi := 0
	for lat := s.region.MinLat; lat <= s.region.MaxLat+1e-9; lat += s.spacing {
		for lon := s.region.MinLon; lon <= s.region.MaxLon+1e-9; lon += s.spacing {
			p := model.GeoPoint{Lon: lon, Lat: lat}
			if !bounds.Contains(p) || s.field.IsLand(p) {
				continue
			}
			pi++
			for ti := 0; ti < s.count; ti++ {
				rt := s.start.Add(time.Duration(ti) * s.cadence)
				if !s.field.Covers(rt) {
					continue
				}
				if st, _, hit := s.zones.Check(p, rt); hit && st == model.StatusEnteredExclusion {
					continue
				}
				c := s.make(p, rt, pi, ti)
				if !yield(c) {
					return
				}
			}
		}
	}
}

// All materializes the full enumeration.
func (s *Space) All() []model.CandidateConfig {
	var out []model.CandidateConfig
	s.ForEach(func(c model.CandidateConfig) bool {
		out = append(out, c)
		return true
	})
	return out
}

// Around builds a refinement sub-space: a finer grid of the given spacing
// centered on a coarse winner, one spacing-radius out in each direction,
// restricted to the original region. Release times stay fixed to the
// winner's.
func (s *Space) Around(c model.CandidateConfig, spacingDeg float64) *Space {
	region := model.Region{
		MinLon: maxf(s.region.MinLon, c.Release.Lon-s.spacing),
		MaxLon: minf(s.region.MaxLon, c.Release.Lon+s.spacing),
		MinLat: maxf(s.region.MinLat, c.Release.Lat-s.spacing),
		MaxLat: minf(s.region.MaxLat, c.Release.Lat+s.spacing),
	}
	return &Space{
		region: region, spacing: spacingDeg,
		start: c.ReleaseTime, cadence: s.cadence, count: 1,
		defaults: s.defaults, field: s.field, zones: s.zones,
		prefix: "r" + c.ID + "-",
	}
}

// Check validates an externally supplied candidate against the same
// feasibility rules the enumeration applies.
func (s *Space) Check(c model.CandidateConfig) error {
	if !s.field.Bounds().Contains(c.Release) {
		return &InfeasibleError{Candidate: c, Reason: "release point outside forecast coverage"}
	}
	if s.field.IsLand(c.Release) {
		return &InfeasibleError{Candidate: c, Reason: "release point on land"}
	}
	if !s.field.Covers(c.ReleaseTime) {
		return &InfeasibleError{Candidate: c, Reason: "release time outside forecast coverage"}
	}
	if st, name, hit := s.zones.Check(c.Release, c.ReleaseTime); hit && st == model.StatusEnteredExclusion {
		return &InfeasibleError{Candidate: c, Reason: "release point inside exclusion zone " + name}
	}
	return nil
}

func (s *Space) make(p model.GeoPoint, rt time.Time, pi, ti int) model.CandidateConfig {
	return model.CandidateConfig{
		ID:           fmt.Sprintf("%s%04d-t%02d", s.prefix, pi, ti),
		Release:      p,
		ReleaseTime:  rt,
		EnsembleSize: s.defaults.Size,
		SpawnRadiusM: s.defaults.SpawnRadiusM,
		DiffusionM:   s.defaults.DiffusionM,
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
