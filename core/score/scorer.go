// Package score reduces an ensemble's zone outcomes into a single
// comparable number per candidate. The weighting between reach fraction and
// arrival speed is mission-specific, so both knobs are exposed instead of a
// hard-coded combination.
package score

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/zone"
)

// Weights tunes the objective.
type Weights struct {
	// ZoneWeights gives relative priority per target zone; absent zones
	// default to 1.
	ZoneWeights map[string]float64
	// ExclusionPenalty multiplies the exclusion-entry fraction subtracted
	// from the score.
	ExclusionPenalty float64
	// ArrivalDecayPerHour discounts a zone's contribution exponentially
	// with its median arrival time. Zero disables the discount.
	ArrivalDecayPerHour float64
}

// Scorer computes CandidateResults from per-particle outcomes.
type Scorer struct {
	weights Weights
}

// NewScorer applies defaults: unit exclusion penalty, no arrival decay.
func NewScorer(w Weights) *Scorer {
	if w.ExclusionPenalty == 0 {
		w.ExclusionPenalty = 1
	}
	return &Scorer{weights: w}
}

// Score aggregates the outcomes of one candidate's ensemble into an
// immutable result record.
func (sc *Scorer) Score(cand model.CandidateConfig, outcomes []zone.Outcome) model.CandidateResult {
	n := float64(len(outcomes))
	res := model.CandidateResult{Candidate: cand}
	if n == 0 {
		return res
	}

	arrivalsByZone := make(map[string][]float64)
	var allArrivals []float64
	var excluded, lost, expired, reached int
	for _, o := range outcomes {
		switch o.Status {
		case model.StatusReachedTarget:
			reached++
			h := o.Elapsed.Hours()
			arrivalsByZone[o.Zone] = append(arrivalsByZone[o.Zone], h)
			allArrivals = append(allArrivals, h)
		case model.StatusEnteredExclusion:
			excluded++
		case model.StatusExitedDomain, model.StatusBeached:
			lost++
		default:
			expired++
		}
	}

	zones := make([]string, 0, len(arrivalsByZone))
	for z := range arrivalsByZone {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	for _, z := range zones {
		hrs := arrivalsByZone[z]
		sort.Float64s(hrs)
		res.Targets = append(res.Targets, model.ZoneStats{
			Zone:          z,
			ReachFraction: float64(len(hrs)) / n,
			MedianArrival: hours(stat.Quantile(0.5, stat.Empirical, hrs, nil)),
			P90Arrival:    hours(stat.Quantile(0.9, stat.Empirical, hrs, nil)),
		})
	}

	res.ExclusionFraction = float64(excluded) / n
	res.LostFraction = float64(lost) / n
	res.ExpiredFraction = float64(expired) / n
	res.TotalReachFraction = float64(reached) / n
	if len(allArrivals) > 0 {
		sort.Float64s(allArrivals)
		res.MedianArrival = hours(stat.Quantile(0.5, stat.Empirical, allArrivals, nil))
	}
	res.Score = sc.objective(res)
	return res
}

func (sc *Scorer) objective(r model.CandidateResult) float64 {
	var s float64
	for _, t := range r.Targets {
		w, ok := sc.weights.ZoneWeights[t.Zone]
		if !ok {
			w = 1
		}
		s += w * t.ReachFraction * decay(sc.weights.ArrivalDecayPerHour, t.MedianArrival)
	}
	return s - sc.weights.ExclusionPenalty*r.ExclusionFraction
}

// decay is exp(-rate*hours) computed without pulling the arrival discount
// below zero for pathological durations.
func decay(ratePerHour float64, d time.Duration) float64 {
	if ratePerHour <= 0 {
		return 1
	}
	return math.Exp(-ratePerHour * d.Hours())
}

// Better reports whether a should rank ahead of b. Ties on score resolve
// by higher reach fraction, then lower exclusion fraction, then earlier
// median arrival, then earlier release time; fully tied candidates keep
// input order under a stable sort.
func Better(a, b model.CandidateResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.TotalReachFraction != b.TotalReachFraction {
		return a.TotalReachFraction > b.TotalReachFraction
	}
	if a.ExclusionFraction != b.ExclusionFraction {
		return a.ExclusionFraction < b.ExclusionFraction
	}
	if a.MedianArrival != b.MedianArrival {
		return a.MedianArrival < b.MedianArrival
	}
	return a.Candidate.ReleaseTime.Before(b.Candidate.ReleaseTime)
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
