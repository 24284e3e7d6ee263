package model

import (
	"time"

	"github.com/peterstace/simplefeatures/geom"
)

// ZoneKind distinguishes intended recipient areas from areas the payload
// must never enter.
type ZoneKind int

const (
	ZoneTarget ZoneKind = iota
	ZoneExclusion
)

// String returns a human-readable representation of the zone kind.
func (k ZoneKind) String() string {
	if k == ZoneExclusion {
		return "exclusion"
	}
	return "target"
}

// Zone is a named polygon with an activation window. Zones are supplied by
// an external collaborator and are read-only to the engine. A zero From or
// Until leaves that side of the window open.
type Zone struct {
	Name    string
	Kind    ZoneKind
	Polygon geom.Polygon
	From    time.Time
	Until   time.Time
}

// ActiveAt reports whether the zone's window covers t.
func (z Zone) ActiveAt(t time.Time) bool {
	if !z.From.IsZero() && t.Before(z.From) {
		return false
	}
	if !z.Until.IsZero() && t.After(z.Until) {
		return false
	}
	return true
}

// Covers reports whether the point lies inside the zone polygon, boundary
// included.
func (z Zone) Covers(p GeoPoint) bool {
	// NewPoint only rejects non-finite coordinates; such a point is
	// inside no zone.
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.Lon, Y: p.Lat}})
	if err != nil {
		return false
	}
	return geom.Intersects(z.Polygon.AsGeometry(), pt.AsGeometry())
}
