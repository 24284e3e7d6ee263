package config

import (
	"fmt"
	"time"

	"github.com/bluecorridor/driftcast/core/model"
)

// FieldConfig locates the stitched forecast drivers.
type FieldConfig struct {
	// Path of the drivers file written by the acquisition pipeline.
	Path string `json:"path" yaml:"path"`
	// GapFill falls back to the nearest valid grid node when a query is
	// surrounded by masked cells.
	GapFill bool `json:"gap_fill" yaml:"gap_fill"`
	// MaxGapFraction is the masked-cell budget above which the field is
	// rejected at load time.
	MaxGapFraction float64 `json:"max_gap_fraction" yaml:"max_gap_fraction"`
}

// SetDefaults applies the gap budget default.
func (c *FieldConfig) SetDefaults() {
	if c.MaxGapFraction == 0 {
		c.MaxGapFraction = 0.25
	}
}

// Validate checks mandatory fields.
func (c FieldConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("field: path is required")
	}
	if c.MaxGapFraction < 0 || c.MaxGapFraction > 1 {
		return fmt.Errorf("field: max_gap_fraction %v outside [0,1]", c.MaxGapFraction)
	}
	return nil
}

// RunConfig fixes the simulation and release enumeration parameters.
type RunConfig struct {
	HorizonHours       float64      `json:"horizon_hours" yaml:"horizon_hours"`
	DtMinutes          float64      `json:"dt_minutes" yaml:"dt_minutes"`
	EnsembleSize       int          `json:"ensemble_size" yaml:"ensemble_size"`
	DiffusionM         float64      `json:"diffusion_m" yaml:"diffusion_m"`
	SpawnRadiusM       float64      `json:"spawn_radius_m" yaml:"spawn_radius_m"`
	WindageCoefficient float64      `json:"windage_coefficient" yaml:"windage_coefficient"`
	UseStokes          bool         `json:"use_stokes" yaml:"use_stokes"`
	ReleaseRegion      model.Region `json:"release_region" yaml:"release_region"`
	ReleaseSpacingDeg  float64      `json:"release_spacing_deg" yaml:"release_spacing_deg"`
	// ReleaseStart is the first release time, RFC3339. Empty means the
	// first forecast frame.
	ReleaseStart        string  `json:"release_start" yaml:"release_start"`
	ReleaseCadenceHours float64 `json:"release_cadence_hours" yaml:"release_cadence_hours"`
	ReleaseCount        int     `json:"release_count" yaml:"release_count"`
}

// SetDefaults mirrors the operational defaults of the original pipeline:
// 72 h horizon, hourly steps, 20-member ensembles released every 6 h.
func (c *RunConfig) SetDefaults() {
	if c.HorizonHours == 0 {
		c.HorizonHours = 72
	}
	if c.DtMinutes == 0 {
		c.DtMinutes = 60
	}
	if c.EnsembleSize == 0 {
		c.EnsembleSize = 20
	}
	if c.ReleaseCadenceHours == 0 {
		c.ReleaseCadenceHours = 6
	}
	if c.ReleaseCount == 0 {
		c.ReleaseCount = 4
	}
	if c.ReleaseSpacingDeg == 0 {
		c.ReleaseSpacingDeg = 0.25
	}
}

// Validate rejects contradictory option combinations before any simulation
// starts.
func (c RunConfig) Validate() error {
	if c.DtMinutes <= 0 {
		return fmt.Errorf("run: dt_minutes must be positive, got %v", c.DtMinutes)
	}
	if c.HorizonHours*60 < c.DtMinutes {
		return fmt.Errorf("run: horizon %vh shorter than one step of %vmin", c.HorizonHours, c.DtMinutes)
	}
	if c.EnsembleSize <= 0 {
		return fmt.Errorf("run: ensemble_size must be positive, got %d", c.EnsembleSize)
	}
	if c.DiffusionM < 0 || c.SpawnRadiusM < 0 {
		return fmt.Errorf("run: diffusion_m and spawn_radius_m must not be negative")
	}
	if c.WindageCoefficient < 0 || c.WindageCoefficient > 0.1 {
		return fmt.Errorf("run: windage_coefficient %v outside [0, 0.1]", c.WindageCoefficient)
	}
	if err := c.ReleaseRegion.Validate(); err != nil {
		return fmt.Errorf("run: release_region: %w", err)
	}
	if c.ReleaseSpacingDeg <= 0 {
		return fmt.Errorf("run: release_spacing_deg must be positive, got %v", c.ReleaseSpacingDeg)
	}
	if c.ReleaseCount <= 0 {
		return fmt.Errorf("run: release_count must be positive, got %d", c.ReleaseCount)
	}
	if c.ReleaseStart != "" {
		if _, err := time.Parse(time.RFC3339, c.ReleaseStart); err != nil {
			return fmt.Errorf("run: release_start: %w", err)
		}
	}
	return nil
}

// Horizon returns the simulation horizon as a duration.
func (c RunConfig) Horizon() time.Duration {
	return time.Duration(c.HorizonHours * float64(time.Hour))
}

// Dt returns the integration step as a duration.
func (c RunConfig) Dt() time.Duration {
	return time.Duration(c.DtMinutes * float64(time.Minute))
}

// Cadence returns the release time spacing as a duration.
func (c RunConfig) Cadence() time.Duration {
	return time.Duration(c.ReleaseCadenceHours * float64(time.Hour))
}

// StartTime parses ReleaseStart; the zero time means "first frame".
func (c RunConfig) StartTime() time.Time {
	if c.ReleaseStart == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.ReleaseStart)
	return t
}

// ScoreConfig tunes the objective function.
type ScoreConfig struct {
	ZoneWeights         map[string]float64 `json:"zone_weights" yaml:"zone_weights"`
	ExclusionPenalty    float64            `json:"exclusion_penalty" yaml:"exclusion_penalty"`
	ArrivalDecayPerHour float64            `json:"arrival_decay_per_hour" yaml:"arrival_decay_per_hour"`
}

// Validate rejects negative weights.
func (c ScoreConfig) Validate() error {
	for z, w := range c.ZoneWeights {
		if w < 0 {
			return fmt.Errorf("score: zone weight for %s must not be negative, got %v", z, w)
		}
	}
	if c.ExclusionPenalty < 0 {
		return fmt.Errorf("score: exclusion_penalty must not be negative, got %v", c.ExclusionPenalty)
	}
	if c.ArrivalDecayPerHour < 0 {
		return fmt.Errorf("score: arrival_decay_per_hour must not be negative, got %v", c.ArrivalDecayPerHour)
	}
	return nil
}

// OutputConfig locates run artifacts.
type OutputConfig struct {
	Dir string `json:"dir" yaml:"dir"`
	// Tracks also exports the winning candidate's trajectories as
	// GeoJSON, which is expensive for large ensembles.
	Tracks bool `json:"tracks" yaml:"tracks"`
}

// SetDefaults applies the artifact directory default.
func (c *OutputConfig) SetDefaults() {
	if c.Dir == "" {
		c.Dir = "data/outputs"
	}
}
