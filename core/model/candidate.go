package model

import (
	"time"
)

// CandidateConfig is one (release point, release time) pair under
// evaluation, together with the ensemble parameters derived from the run
// configuration. Candidates are generated by the candidate space and never
// mutated downstream.
type CandidateConfig struct {
	ID           string    `json:"id"`
	Release      GeoPoint  `json:"release"`
	ReleaseTime  time.Time `json:"release_time"`
	EnsembleSize int       `json:"ensemble_size"`
	// SpawnRadiusM is the radius in meters of the random initial offset
	// applied to each ensemble member, representing release-point
	// uncertainty.
	SpawnRadiusM float64 `json:"spawn_radius_m"`
	// DiffusionM is the per-step RMS diffusion displacement in meters.
	DiffusionM float64 `json:"diffusion_m"`
}

// ZoneStats aggregates ensemble outcomes for one target zone.
type ZoneStats struct {
	Zone string `json:"zone"`
	// ReachFraction is the share of the ensemble that entered the zone.
	ReachFraction float64 `json:"reach_fraction"`
	// MedianArrival and P90Arrival are drift durations until zone entry
	// over the reaching subset; zero when nothing arrived.
	MedianArrival time.Duration `json:"median_arrival"`
	P90Arrival    time.Duration `json:"p90_arrival"`
}

// CandidateResult is the scored outcome of one candidate's ensemble.
type CandidateResult struct {
	Candidate CandidateConfig `json:"candidate"`
	// Targets holds per-zone arrival statistics, keyed in the report by
	// zone name and ordered by name for stable output.
	Targets []ZoneStats `json:"targets"`
	// ExclusionFraction is the share of the ensemble that entered any
	// exclusion zone.
	ExclusionFraction float64 `json:"exclusion_fraction"`
	// LostFraction is the share that left the forecast domain or beached.
	LostFraction float64 `json:"lost_fraction"`
	// ExpiredFraction is the share still adrift at the horizon.
	ExpiredFraction float64 `json:"expired_fraction"`
	// TotalReachFraction is the share that reached any target zone.
	TotalReachFraction float64 `json:"total_reach_fraction"`
	// MedianArrival is the median drift duration over all particles that
	// reached a target, regardless of which.
	MedianArrival time.Duration `json:"median_arrival"`
	Score         float64       `json:"score"`
}

// TargetStats returns the statistics entry for the named zone and whether
// it exists.
func (r CandidateResult) TargetStats(zone string) (ZoneStats, bool) {
	for _, s := range r.Targets {
		if s.Zone == zone {
			return s, true
		}
	}
	return ZoneStats{}, false
}
