package model

import (
	"fmt"
	"math"

	"github.com/wroge/wgs84"
)

// GeoPoint is a position in WGS84 degrees.
type GeoPoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Region is an axis-aligned bounding box in WGS84 degrees.
type Region struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
}

// Contains reports whether p lies inside the region, borders included.
func (r Region) Contains(p GeoPoint) bool {
	return p.Lon >= r.MinLon && p.Lon <= r.MaxLon && p.Lat >= r.MinLat && p.Lat <= r.MaxLat
}

// Validate checks that the region spans a non-degenerate area.
func (r Region) Validate() error {
	if r.MaxLon <= r.MinLon || r.MaxLat <= r.MinLat {
		return fmt.Errorf("degenerate region [%v,%v]x[%v,%v]", r.MinLon, r.MaxLon, r.MinLat, r.MaxLat)
	}
	return nil
}

var toMercator = wgs84.EPSG().Transform(4326, 3857)

// MetricDistance returns the planar distance in meters between two points
// after projection to Web Mercator. Adequate for the basin-scale distances
// this engine deals with; not a geodesic.
func MetricDistance(a, b GeoPoint) float64 {
	ax, ay, _ := toMercator(a.Lon, a.Lat, 0)
	bx, by, _ := toMercator(b.Lon, b.Lat, 0)
	return math.Hypot(bx-ax, by-ay)
}

// DegreesPerMeter returns the local conversion factors from meters to
// degrees of longitude and latitude at the given latitude. Used to apply
// metric diffusion displacements to positions kept in degrees.
func DegreesPerMeter(lat float64) (dLon, dLat float64) {
	const metersPerDegLat = 111320.0
	dLat = 1.0 / metersPerDegLat
	coslat := math.Cos(lat * math.Pi / 180.0)
	if coslat < 1e-6 {
		coslat = 1e-6
	}
	dLon = 1.0 / (metersPerDegLat * coslat)
	return dLon, dLat
}
