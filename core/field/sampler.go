package field

import (
	"math"
	"time"
)

// Sampler answers velocity queries against a VectorField. It performs
// bilinear interpolation in space and linear interpolation in time between
// the two bracketing forecast frames. Sampler is stateless apart from the
// read-only grid and is safe for concurrent use.
type Sampler struct {
	field   *VectorField
	gapFill bool
}

// NewSampler validates the field and wraps it. With gapFill enabled,
// queries whose surrounding cells are all masked fall back to the nearest
// valid grid node instead of failing.
func NewSampler(f *VectorField, gapFill bool, maxGapFraction float64) (*Sampler, error) {
	if err := f.Validate(maxGapFraction); err != nil {
		return nil, err
	}
	return &Sampler{field: f, gapFill: gapFill}, nil
}

// Field exposes the wrapped grid.
func (s *Sampler) Field() *VectorField { return s.field }

// Sample returns the interpolated surface current at the given position and
// time. It fails with *OutOfDomainError outside coverage and with
// *MissingDataError when the query falls in an unfilled grid gap.
func (s *Sampler) Sample(lon, lat float64, t time.Time) (u, v float64, err error) {
	return s.sampleSet(s.field.Current, lon, lat, t)
}

// SampleDrift returns the combined drift velocity: current plus windage
// times the 10 m wind plus, when enabled and present, Stokes drift.
func (s *Sampler) SampleDrift(lon, lat float64, t time.Time, windage float64, useStokes bool) (u, v float64, err error) {
	u, v, err = s.sampleSet(s.field.Current, lon, lat, t)
	if err != nil {
		return 0, 0, err
	}
	if windage != 0 && s.field.Wind != nil {
		wu, wv, werr := s.sampleSet(s.field.Wind, lon, lat, t)
		if werr != nil {
			return 0, 0, werr
		}
		u += windage * wu
		v += windage * wv
	}
	if useStokes && s.field.Stokes != nil {
		su, sv, serr := s.sampleSet(s.field.Stokes, lon, lat, t)
		if serr != nil {
			return 0, 0, serr
		}
		u += su
		v += sv
	}
	return u, v, nil
}

func (s *Sampler) sampleSet(set *ComponentSet, lon, lat float64, t time.Time) (float64, float64, error) {
	f := s.field
	frame, wt, ok := s.timeBracket(t)
	if !ok {
		return 0, 0, &OutOfDomainError{Lon: lon, Lat: lat, Time: t}
	}
	col, wx, okx := bracket(f.Lons, lon)
	row, wy, oky := bracket(f.Lats, lat)
	if !okx || !oky {
		return 0, 0, &OutOfDomainError{Lon: lon, Lat: lat, Time: t}
	}

	// Time-interpolate each of the four surrounding nodes, then blend
	// bilinearly over the nodes that carry valid data. Weights are
	// renormalized when some corners are masked.
	var usum, vsum, wsum float64
	for dj := 0; dj <= 1; dj++ {
		for di := 0; di <= 1; di++ {
			cu, cv, valid := s.nodeValue(set, frame, wt, row+dj, col+di)
			if !valid {
				continue
			}
			w := lerpWeight(wx, di) * lerpWeight(wy, dj)
			usum += w * cu
			vsum += w * cv
			wsum += w
		}
	}
	if wsum > 0 {
		return usum / wsum, vsum / wsum, nil
	}
	if s.gapFill {
		if u, v, ok := s.nearestValid(set, frame, wt, row, col); ok {
			return u, v, nil
		}
	}
	return 0, 0, &MissingDataError{Lon: lon, Lat: lat, Time: t}
}

// nodeValue time-interpolates one grid node between the bracketing frames.
func (s *Sampler) nodeValue(set *ComponentSet, frame int, wt float64, row, col int) (float64, float64, bool) {
	f := s.field
	u0, v0 := set.U[f.idx(frame, row, col)], set.V[f.idx(frame, row, col)]
	u1, v1 := set.U[f.idx(frame+1, row, col)], set.V[f.idx(frame+1, row, col)]
	if math.IsNaN(u0) || math.IsNaN(v0) || math.IsNaN(u1) || math.IsNaN(v1) {
		return 0, 0, false
	}
	return u0 + wt*(u1-u0), v0 + wt*(v1-v0), true
}

// nearestValid searches outward in expanding windows around the query cell
// and returns the minimum-distance node with valid data in both bracketing
// frames, distance measured in squared grid indices from the cell.
func (s *Sampler) nearestValid(set *ComponentSet, frame int, wt float64, row, col int) (float64, float64, bool) {
	f := s.field
	nx, ny := len(f.Lons), len(f.Lats)
	maxR := nx
	if ny > maxR {
		maxR = ny
	}
	for r := 1; r < maxR; r++ {
		var bestU, bestV float64
		bestD := -1
		for j := row - r; j <= row+r+1; j++ {
			if j < 0 || j >= ny {
				continue
			}
			for i := col - r; i <= col+r+1; i++ {
				if i < 0 || i >= nx {
					continue
				}
				u, v, ok := s.nodeValue(set, frame, wt, j, i)
				if !ok {
					continue
				}
				d := axisDistSq(j, row) + axisDistSq(i, col)
				if bestD < 0 || d < bestD {
					bestU, bestV, bestD = u, v, d
				}
			}
		}
		if bestD >= 0 {
			return bestU, bestV, true
		}
	}
	return 0, 0, false
}

// axisDistSq is the squared index distance from node n to the cell edge
// spanning c..c+1 along one axis.
func axisDistSq(n, c int) int {
	d := 0
	switch {
	case n < c:
		d = c - n
	case n > c+1:
		d = n - c - 1
	}
	return d * d
}

// timeBracket locates the frame pair spanning t and the weight of the later
// frame. Queries at the exact last frame are in coverage with weight 1.
func (s *Sampler) timeBracket(t time.Time) (int, float64, bool) {
	times := s.field.Times
	if t.Before(times[0]) || t.After(times[len(times)-1]) {
		return 0, 0, false
	}
	k := 0
	for k < len(times)-2 && !t.Before(times[k+1]) {
		k++
	}
	span := times[k+1].Sub(times[k]).Seconds()
	return k, t.Sub(times[k]).Seconds() / span, true
}

func lerpWeight(w float64, upper int) float64 {
	if upper == 1 {
		return w
	}
	return 1 - w
}
