// Package ensemble runs perturbed particle ensembles for candidate release
// configurations. Particles advance in lockstep and stop consuming steps as
// soon as they reach a terminal status; the whole ensemble ends when every
// particle is terminal or the horizon elapses.
package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/bluecorridor/driftcast/core/field"
	"github.com/bluecorridor/driftcast/core/integrate"
	"github.com/bluecorridor/driftcast/core/logger"
	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/zone"
)

// Params fixes the simulation discretization for a run.
type Params struct {
	Horizon time.Duration
	Dt      time.Duration
	// WindageCoefficient scales the 10 m wind added to the current, as a
	// fraction (0.02 for the typical 2% of wind speed).
	WindageCoefficient float64
	UseStokes          bool
}

// Simulator produces trajectory ensembles. It holds only read-only
// collaborators and is safe to share across optimizer workers.
type Simulator struct {
	sampler *field.Sampler
	zones   *zone.Evaluator
	params  Params
	log     logger.Logger
}

// NewSimulator wires a simulator. A nil log defaults to the no-op logger.
func NewSimulator(sampler *field.Sampler, zones *zone.Evaluator, params Params, log logger.Logger) (*Simulator, error) {
	if sampler == nil || zones == nil {
		return nil, fmt.Errorf("ensemble: nil sampler or zone evaluator")
	}
	if params.Dt <= 0 || params.Horizon < params.Dt {
		return nil, fmt.Errorf("ensemble: horizon %v must cover at least one step of %v", params.Horizon, params.Dt)
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Simulator{sampler: sampler, zones: zones, params: params, log: log}, nil
}

// Run simulates one candidate's ensemble and returns a trajectory per
// particle. The context is checked between lockstep rounds so long runs can
// be abandoned cleanly; already-frozen trajectories stay valid.
func (s *Simulator) Run(ctx context.Context, cand model.CandidateConfig) ([]*model.Trajectory, error) {
	if cand.EnsembleSize <= 0 {
		return nil, fmt.Errorf("ensemble: candidate %s has ensemble size %d", cand.ID, cand.EnsembleSize)
	}

	it := &integrate.Integrator{
		Velocity: func(p model.GeoPoint, t time.Time) (float64, float64, error) {
			return s.sampler.SampleDrift(p.Lon, p.Lat, t, s.params.WindageCoefficient, s.params.UseStokes)
		},
		DiffusionM: cand.DiffusionM,
	}

	particles := make([]*model.Particle, cand.EnsembleSize)
	rngs := make([]*rand.Rand, cand.EnsembleSize)
	tracks := make([]*model.Trajectory, cand.EnsembleSize)
	for i := range particles {
		seed := integrate.SeedFor(cand.ID, i)
		rng := rand.New(rand.NewSource(seed))
		particles[i] = &model.Particle{
			ID:        i,
			Position:  spawnOffset(cand.Release, cand.SpawnRadiusM, rng),
			SpawnTime: cand.ReleaseTime,
			Seed:      seed,
		}
		rngs[i] = rng
		tracks[i] = &model.Trajectory{ParticleID: i}
		tracks[i].Append(cand.ReleaseTime, particles[i].Position)
		s.settle(particles[i], tracks[i], cand.ReleaseTime)
	}

	steps := int(s.params.Horizon / s.params.Dt)
	active := countActive(particles)
	for step := 1; step <= steps && active > 0; step++ {
		select {
		case <-ctx.Done():
			return tracks, ctx.Err()
		default:
		}
		now := cand.ReleaseTime.Add(time.Duration(step-1) * s.params.Dt)
		next := cand.ReleaseTime.Add(time.Duration(step) * s.params.Dt)
		for i, p := range particles {
			if p.Status.Terminal() {
				continue
			}
			pos, err := it.Step(p.Position, now, s.params.Dt, rngs[i])
			if err != nil {
				st, ok := domainStatus(err)
				if !ok {
					return tracks, fmt.Errorf("ensemble: candidate %s particle %d: %w", cand.ID, i, err)
				}
				s.terminate(p, tracks[i], st, "", 0)
				active--
				continue
			}
			p.Position = pos
			p.Elapsed = next.Sub(cand.ReleaseTime)
			tracks[i].Append(next, pos)
			s.settle(p, tracks[i], next)
			if p.Status.Terminal() {
				active--
			}
		}
	}
	for i, p := range particles {
		if !p.Status.Terminal() {
			s.terminate(p, tracks[i], model.StatusExpired, "", 0)
		}
	}
	s.log.Debugw("ensemble complete", map[string]any{
		"candidate": cand.ID,
		"particles": len(particles),
	})
	return tracks, nil
}

// settle applies the terminal checks for a freshly placed particle:
// stranding on the coastline mask first, then zone membership with
// exclusion precedence.
func (s *Simulator) settle(p *model.Particle, tr *model.Trajectory, now time.Time) {
	if p.Status.Terminal() {
		return
	}
	if s.sampler.Field().IsLand(p.Position) {
		s.terminate(p, tr, model.StatusBeached, "", 0)
		return
	}
	if st, name, ok := s.zones.Check(p.Position, now); ok {
		s.terminate(p, tr, st, name, now.Sub(p.SpawnTime))
	}
}

func (s *Simulator) terminate(p *model.Particle, tr *model.Trajectory, st model.Status, zoneName string, elapsed time.Duration) {
	p.Status = st
	tr.Status = st
	tr.HitZone = zoneName
	tr.HitElapsed = elapsed
}

// domainStatus maps sampler failures to the terminal status of the
// affected particle. Drifting past the edge of forecast coverage or into an
// unfilled data gap ends that particle, never the run. Any other error is
// unexpected and aborts the ensemble.
func domainStatus(err error) (model.Status, bool) {
	var ood *field.OutOfDomainError
	var miss *field.MissingDataError
	if errors.As(err, &ood) || errors.As(err, &miss) {
		return model.StatusExitedDomain, true
	}
	return model.StatusActive, false
}

// spawnOffset jitters the nominal release point by a uniform draw inside a
// disc of the given metric radius.
func spawnOffset(p model.GeoPoint, radiusM float64, rng *rand.Rand) model.GeoPoint {
	if radiusM <= 0 {
		return p
	}
	r := radiusM * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	dLon, dLat := model.DegreesPerMeter(p.Lat)
	return model.GeoPoint{
		Lon: p.Lon + r*math.Cos(theta)*dLon,
		Lat: p.Lat + r*math.Sin(theta)*dLat,
	}
}

func countActive(ps []*model.Particle) int {
	n := 0
	for _, p := range ps {
		if !p.Status.Terminal() {
			n++
		}
	}
	return n
}
