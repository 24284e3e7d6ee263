// Package field holds the gridded forecast drivers and answers velocity
// queries through spatial and temporal interpolation. The grid is loaded
// once by an external collaborator, is immutable for the duration of a run
// and is shared read-only by all simulation workers.
package field

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/bluecorridor/driftcast/core/model"
)

// ComponentSet holds the u/v values of one forecast driver (surface
// current, 10 m wind or Stokes drift) on the shared grid. Values are stored
// frame-major: index = frame*ny*nx + row*nx + col. Masked cells carry NaN.
type ComponentSet struct {
	U []float64
	V []float64
}

// VectorField is a time series of velocity frames on a regular lon/lat
// grid. Current is mandatory; Wind and Stokes are optional extra drivers
// combined by the integrator. Land marks coastline cells used for
// stranding, one flag per grid cell.
type VectorField struct {
	Lons  []float64
	Lats  []float64
	Times []time.Time

	Current *ComponentSet
	Wind    *ComponentSet
	Stokes  *ComponentSet

	Land []bool
}

// Bounds returns the spatial coverage of the grid.
func (f *VectorField) Bounds() model.Region {
	return model.Region{
		MinLon: f.Lons[0], MaxLon: f.Lons[len(f.Lons)-1],
		MinLat: f.Lats[0], MaxLat: f.Lats[len(f.Lats)-1],
	}
}

// TimeBounds returns the first and last forecast frame times.
func (f *VectorField) TimeBounds() (time.Time, time.Time) {
	return f.Times[0], f.Times[len(f.Times)-1]
}

// Covers reports whether the given release time lies inside the temporal
// coverage, leaving room for at least one step of simulation.
func (f *VectorField) Covers(t time.Time) bool {
	return !t.Before(f.Times[0]) && t.Before(f.Times[len(f.Times)-1])
}

func (f *VectorField) idx(frame, row, col int) int {
	return frame*len(f.Lats)*len(f.Lons) + row*len(f.Lons) + col
}

// IsLand reports whether the grid cell nearest to p is flagged as land.
// Without a land mask every cell counts as water.
func (f *VectorField) IsLand(p model.GeoPoint) bool {
	if f.Land == nil {
		return false
	}
	col := nearestIndex(f.Lons, p.Lon)
	row := nearestIndex(f.Lats, p.Lat)
	return f.Land[row*len(f.Lons)+col]
}

// GapFraction returns the share of masked current samples over water cells.
// A field dominated by gaps cannot support trustworthy simulation and is
// rejected at load time.
func (f *VectorField) GapFraction() float64 {
	nx, ny := len(f.Lons), len(f.Lats)
	var total, gaps int
	for k := range f.Times {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				if f.Land != nil && f.Land[j*nx+i] {
					continue
				}
				total++
				if math.IsNaN(f.Current.U[f.idx(k, j, i)]) {
					gaps++
				}
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(gaps) / float64(total)
}

// Validate checks grid consistency and the masked-data budget.
func (f *VectorField) Validate(maxGapFraction float64) error {
	if len(f.Lons) < 2 || len(f.Lats) < 2 {
		return fmt.Errorf("field: grid needs at least 2x2 nodes, got %dx%d", len(f.Lons), len(f.Lats))
	}
	if len(f.Times) < 2 {
		return fmt.Errorf("field: need at least two forecast frames, got %d", len(f.Times))
	}
	if !sort.Float64sAreSorted(f.Lons) || !sort.Float64sAreSorted(f.Lats) {
		return fmt.Errorf("field: grid axes must be ascending")
	}
	for i := 1; i < len(f.Times); i++ {
		if !f.Times[i].After(f.Times[i-1]) {
			return fmt.Errorf("field: frame times must be strictly increasing")
		}
	}
	want := len(f.Times) * len(f.Lats) * len(f.Lons)
	for name, set := range map[string]*ComponentSet{"current": f.Current, "wind": f.Wind, "stokes": f.Stokes} {
		if set == nil {
			if name == "current" {
				return fmt.Errorf("field: current component set is required")
			}
			continue
		}
		if len(set.U) != want || len(set.V) != want {
			return fmt.Errorf("field: %s set has %d/%d samples, want %d", name, len(set.U), len(set.V), want)
		}
	}
	if f.Land != nil && len(f.Land) != len(f.Lats)*len(f.Lons) {
		return fmt.Errorf("field: land mask has %d cells, want %d", len(f.Land), len(f.Lats)*len(f.Lons))
	}
	if gap := f.GapFraction(); gap > maxGapFraction {
		return fmt.Errorf("field: %.1f%% of water cells are masked, budget is %.1f%%", gap*100, maxGapFraction*100)
	}
	return nil
}

// nearestIndex returns the index of the axis node closest to v.
func nearestIndex(axis []float64, v float64) int {
	i := sort.SearchFloat64s(axis, v)
	if i == 0 {
		return 0
	}
	if i >= len(axis) {
		return len(axis) - 1
	}
	if v-axis[i-1] <= axis[i]-v {
		return i - 1
	}
	return i
}

// bracket returns the lower index i such that axis[i] <= v <= axis[i+1],
// and the interpolation weight of the upper node.
func bracket(axis []float64, v float64) (int, float64, bool) {
	if v < axis[0] || v > axis[len(axis)-1] {
		return 0, 0, false
	}
	i := sort.SearchFloat64s(axis, v)
	if i > 0 {
		i--
	}
	if i >= len(axis)-1 {
		i = len(axis) - 2
	}
	span := axis[i+1] - axis[i]
	return i, (v - axis[i]) / span, true
}
