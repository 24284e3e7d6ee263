// Package fieldio reads the stitched forecast driver file and the zone
// definitions produced by the external acquisition pipeline. The engine
// consumes both as opaque read-only inputs; retrieval and authentication
// against the forecast providers happen upstream.
package fieldio

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/bluecorridor/driftcast/core/field"
)

// driverFile mirrors the on-disk JSON layout of the stitched drivers:
// hourly frames of surface current, optional 10 m wind and Stokes drift on
// a shared lon/lat grid. Masked samples carry the declared missing value.
type driverFile struct {
	Lons         []float64    `json:"lons"`
	Lats         []float64    `json:"lats"`
	Times        []time.Time  `json:"times"`
	MissingValue *float64     `json:"missing_value"`
	Current      *componentUV `json:"current"`
	Wind         *componentUV `json:"wind"`
	Stokes       *componentUV `json:"stokes"`
	Land         []bool       `json:"land"`
}

type componentUV struct {
	U []float64 `json:"u"`
	V []float64 `json:"v"`
}

// LoadField reads and decodes a driver file. Grid consistency and the
// gap budget are validated by the sampler at wrap time, not here.
func LoadField(path string) (*field.VectorField, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fieldio: read drivers: %w", err)
	}
	var df driverFile
	if err := json.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("fieldio: decode drivers %s: %w", path, err)
	}
	if df.Current == nil {
		return nil, fmt.Errorf("fieldio: drivers file %s has no current component", path)
	}

	f := &field.VectorField{
		Lons:    df.Lons,
		Lats:    df.Lats,
		Times:   df.Times,
		Current: toSet(df.Current, df.MissingValue),
		Land:    df.Land,
	}
	if df.Wind != nil {
		f.Wind = toSet(df.Wind, df.MissingValue)
	}
	if df.Stokes != nil {
		f.Stokes = toSet(df.Stokes, df.MissingValue)
	}
	return f, nil
}

// toSet converts declared missing values to NaN so the sampler has a single
// in-memory convention for masked cells.
func toSet(c *componentUV, missing *float64) *field.ComponentSet {
	set := &field.ComponentSet{U: make([]float64, len(c.U)), V: make([]float64, len(c.V))}
	copy(set.U, c.U)
	copy(set.V, c.V)
	if missing != nil {
		for i, u := range set.U {
			if u == *missing {
				set.U[i] = math.NaN()
			}
		}
		for i, v := range set.V {
			if v == *missing {
				set.V[i] = math.NaN()
			}
		}
	}
	return set
}
