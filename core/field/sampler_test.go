package field

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/bluecorridor/driftcast/core/model"
)

func modelPoint(lon, lat float64) model.GeoPoint {
	return model.GeoPoint{Lon: lon, Lat: lat}
}

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

// uniformField builds a 3x3 grid with two hourly frames and a constant
// current of (u, v) everywhere.
func uniformField(u, v float64) *VectorField {
	lons := []float64{5.0, 5.5, 6.0}
	lats := []float64{42.0, 42.5, 43.0}
	times := []time.Time{t0, t0.Add(time.Hour)}
	n := len(times) * len(lats) * len(lons)
	us := make([]float64, n)
	vs := make([]float64, n)
	for i := range us {
		us[i] = u
		vs[i] = v
	}
	return &VectorField{
		Lons: lons, Lats: lats, Times: times,
		Current: &ComponentSet{U: us, V: vs},
	}
}

func TestSampler_ExactNodeValue(t *testing.T) {
	f := uniformField(0, 0)
	// Distinct value at node (row 1, col 1) in both frames.
	for frame := 0; frame < 2; frame++ {
		f.Current.U[f.idx(frame, 1, 1)] = 0.4
		f.Current.V[f.idx(frame, 1, 1)] = -0.2
	}
	s, err := NewSampler(f, false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, v, err := s.Sample(5.5, 42.5, t0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(u-0.4) > 1e-12 || math.Abs(v+0.2) > 1e-12 {
		t.Errorf("node query should return the stored value exactly, got (%v, %v)", u, v)
	}
}

func TestSampler_BilinearMidpoint(t *testing.T) {
	f := uniformField(0, 0)
	// Corner values 0, 1, 2, 3 around the cell (0,0)..(1,1): the center
	// of the cell averages to 1.5.
	for i, rc := range [][2]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}} {
		for frame := 0; frame < 2; frame++ {
			f.Current.U[f.idx(frame, rc[0], rc[1])] = float64(i)
		}
	}
	s, err := NewSampler(f, false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, _, err := s.Sample(5.25, 42.25, t0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(u-1.5) > 1e-12 {
		t.Errorf("cell center should average the four corners, got %v", u)
	}
}

func TestSampler_TimeInterpolation(t *testing.T) {
	f := uniformField(0, 0)
	for row := range f.Lats {
		for col := range f.Lons {
			f.Current.U[f.idx(0, row, col)] = 1.0
			f.Current.U[f.idx(1, row, col)] = 3.0
		}
	}
	s, err := NewSampler(f, false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, _, err := s.Sample(5.5, 42.5, t0.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(u-2.0) > 1e-12 {
		t.Errorf("halfway between frames should blend to 2.0, got %v", u)
	}
}

func TestSampler_OutOfDomain(t *testing.T) {
	s, err := NewSampler(uniformField(0.1, 0), false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	cases := []struct {
		name     string
		lon, lat float64
		at       time.Time
	}{
		{"west of grid", 4.9, 42.5, t0},
		{"north of grid", 5.5, 43.1, t0},
		{"before first frame", 5.5, 42.5, t0.Add(-time.Second)},
		{"past last frame", 5.5, 42.5, t0.Add(time.Hour + time.Second)},
	}
	for _, tc := range cases {
		_, _, err := s.Sample(tc.lon, tc.lat, tc.at)
		var ood *OutOfDomainError
		if !errors.As(err, &ood) {
			t.Errorf("%s: want OutOfDomainError, got %v", tc.name, err)
		}
	}
}

func TestSampler_LastFrameIsInDomain(t *testing.T) {
	s, err := NewSampler(uniformField(0.1, 0.2), false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, v, err := s.Sample(5.5, 42.5, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("query at the exact last frame should succeed: %v", err)
	}
	if math.Abs(u-0.1) > 1e-12 || math.Abs(v-0.2) > 1e-12 {
		t.Errorf("got (%v, %v)", u, v)
	}
}

func TestSampler_MissingData(t *testing.T) {
	f := uniformField(0.1, 0)
	// Mask the whole grid in both frames so every corner is invalid.
	for i := range f.Current.U {
		f.Current.U[i] = math.NaN()
		f.Current.V[i] = math.NaN()
	}
	// Keep one valid node so validation's gap budget can be set loose.
	for frame := 0; frame < 2; frame++ {
		f.Current.U[f.idx(frame, 2, 2)] = 0.5
		f.Current.V[f.idx(frame, 2, 2)] = 0.0
	}

	strict, err := NewSampler(f, false, 1.0)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	_, _, err = strict.Sample(5.1, 42.1, t0)
	var missing *MissingDataError
	if !errors.As(err, &missing) {
		t.Fatalf("want MissingDataError, got %v", err)
	}

	filling, err := NewSampler(f, true, 1.0)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, _, err := filling.Sample(5.1, 42.1, t0)
	if err != nil {
		t.Fatalf("gap fill should reach the valid node: %v", err)
	}
	if math.Abs(u-0.5) > 1e-12 {
		t.Errorf("gap fill should return the nearest valid value, got %v", u)
	}
}

func TestSampler_GapFillPrefersNearestNode(t *testing.T) {
	lons := []float64{5.0, 5.5, 6.0, 6.5}
	lats := []float64{42.0, 42.5, 43.0, 43.5}
	times := []time.Time{t0, t0.Add(time.Hour)}
	n := len(times) * len(lats) * len(lons)
	us := make([]float64, n)
	vs := make([]float64, n)
	for i := range us {
		us[i] = math.NaN()
		vs[i] = math.NaN()
	}
	f := &VectorField{
		Lons: lons, Lats: lats, Times: times,
		Current: &ComponentSet{U: us, V: vs},
	}
	// Two valid nodes: (row 0, col 0) sits two cells away from the query
	// cell, (row 2, col 3) only one. The fill must take the closer value
	// even though the farther node comes first in row-major order.
	for frame := 0; frame < 2; frame++ {
		f.Current.U[f.idx(frame, 0, 0)] = 0.9
		f.Current.V[f.idx(frame, 0, 0)] = 0.0
		f.Current.U[f.idx(frame, 2, 3)] = 0.4
		f.Current.V[f.idx(frame, 2, 3)] = 0.0
	}

	s, err := NewSampler(f, true, 1.0)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, _, err := s.Sample(5.6, 42.6, t0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(u-0.4) > 1e-12 {
		t.Errorf("gap fill should use the closest valid node, got %v", u)
	}
}

func TestSampler_PartialCornersRenormalize(t *testing.T) {
	f := uniformField(1.0, 0)
	// Mask one corner of the queried cell; the remaining three still carry
	// 1.0, so the renormalized blend stays 1.0.
	for frame := 0; frame < 2; frame++ {
		f.Current.U[f.idx(frame, 0, 0)] = math.NaN()
	}
	s, err := NewSampler(f, false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, _, err := s.Sample(5.25, 42.25, t0)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if math.Abs(u-1.0) > 1e-12 {
		t.Errorf("renormalized blend over valid corners should give 1.0, got %v", u)
	}
}

func TestSampler_DriftCombinesWindAndStokes(t *testing.T) {
	f := uniformField(0.1, 0)
	n := len(f.Current.U)
	wind := &ComponentSet{U: make([]float64, n), V: make([]float64, n)}
	stokes := &ComponentSet{U: make([]float64, n), V: make([]float64, n)}
	for i := 0; i < n; i++ {
		wind.U[i] = 10.0
		stokes.U[i] = 0.05
	}
	f.Wind = wind
	f.Stokes = stokes

	s, err := NewSampler(f, false, 0.25)
	if err != nil {
		t.Fatalf("NewSampler: %v", err)
	}
	u, _, err := s.SampleDrift(5.5, 42.5, t0, 0.02, true)
	if err != nil {
		t.Fatalf("SampleDrift: %v", err)
	}
	want := 0.1 + 0.02*10.0 + 0.05
	if math.Abs(u-want) > 1e-12 {
		t.Errorf("drift = %v, want %v", u, want)
	}

	u, _, err = s.SampleDrift(5.5, 42.5, t0, 0, false)
	if err != nil {
		t.Fatalf("SampleDrift: %v", err)
	}
	if math.Abs(u-0.1) > 1e-12 {
		t.Errorf("with windage 0 and stokes off only current remains, got %v", u)
	}
}

func TestVectorField_Validate(t *testing.T) {
	f := uniformField(0, 0)
	if err := f.Validate(0.25); err != nil {
		t.Fatalf("valid field rejected: %v", err)
	}

	bad := uniformField(0, 0)
	bad.Times = []time.Time{t0}
	bad.Current.U = bad.Current.U[:9]
	bad.Current.V = bad.Current.V[:9]
	if err := bad.Validate(0.25); err == nil {
		t.Error("single frame should be rejected")
	}

	gapped := uniformField(0, 0)
	for i := range gapped.Current.U {
		if i%2 == 0 {
			gapped.Current.U[i] = math.NaN()
		}
	}
	if err := gapped.Validate(0.25); err == nil {
		t.Error("field over the gap budget should be rejected")
	}
}

func TestVectorField_IsLand(t *testing.T) {
	f := uniformField(0, 0)
	f.Land = make([]bool, 9)
	f.Land[0] = true // row 0, col 0
	if !f.IsLand(modelPoint(5.05, 42.05)) {
		t.Error("point near the land node should be flagged")
	}
	if f.IsLand(modelPoint(5.5, 42.5)) {
		t.Error("center node is water")
	}
}
