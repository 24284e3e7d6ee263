package model

import "time"

// Status describes the lifecycle state of a drift particle. A particle is
// Active until it reaches exactly one terminal state; after that its
// trajectory is frozen.
type Status int

const (
	StatusActive Status = iota
	StatusReachedTarget
	StatusExitedDomain
	StatusEnteredExclusion
	StatusBeached
	StatusExpired
)

// Terminal reports whether the status ends a particle's simulation.
func (s Status) Terminal() bool { return s != StatusActive }

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusReachedTarget:
		return "reached-target"
	case StatusExitedDomain:
		return "exited-domain"
	case StatusEnteredExclusion:
		return "entered-exclusion"
	case StatusBeached:
		return "beached"
	case StatusExpired:
		return "expired"
	}
	return "unknown"
}

// Particle is the mutable state of one simulated drifter. It belongs to
// exactly one candidate's ensemble and is discarded when the ensemble run
// completes; only its Trajectory survives.
type Particle struct {
	ID        int
	Position  GeoPoint
	SpawnTime time.Time
	Elapsed   time.Duration
	Seed      int64
	Status    Status
}

// TrajectorySample is one (time, position) record along a drift path.
type TrajectorySample struct {
	Time     time.Time `json:"time"`
	Position GeoPoint  `json:"position"`
}

// Trajectory is the ordered path of a single particle. Samples are appended
// with strictly increasing timestamps during simulation and never modified
// afterwards.
type Trajectory struct {
	ParticleID int
	Samples    []TrajectorySample
	Status     Status
	// HitZone names the target or exclusion zone that terminated the
	// particle, when any did.
	HitZone string
	// HitElapsed is the drift duration until the terminating zone entry.
	HitElapsed time.Duration
}

// Append records a new sample. Out-of-order timestamps are a programming
// error and are ignored to preserve the monotonic invariant.
func (t *Trajectory) Append(ts time.Time, p GeoPoint) {
	if n := len(t.Samples); n > 0 && !ts.After(t.Samples[n-1].Time) {
		return
	}
	t.Samples = append(t.Samples, TrajectorySample{Time: ts, Position: p})
}

// Last returns the most recent sample. ok is false for an empty trajectory.
func (t *Trajectory) Last() (TrajectorySample, bool) {
	if len(t.Samples) == 0 {
		return TrajectorySample{}, false
	}
	return t.Samples[len(t.Samples)-1], true
}
