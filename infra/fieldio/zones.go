package fieldio

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/bluecorridor/driftcast/core/model"
)

// LoadZones parses a GeoJSON FeatureCollection of zone polygons. Each
// feature carries a "name" and a "kind" (target or exclusion) property and
// optionally "from"/"until" RFC3339 activation bounds.
func LoadZones(path string) ([]model.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fieldio: read zones: %w", err)
	}
	var fc geom.GeoJSONFeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("fieldio: decode zones %s: %w", path, err)
	}

	zones := make([]model.Zone, 0, len(fc))
	for i, f := range fc {
		z, err := zoneFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("fieldio: zones feature %d: %w", i, err)
		}
		zones = append(zones, z)
	}
	if len(zones) == 0 {
		return nil, fmt.Errorf("fieldio: zones file %s is empty", path)
	}
	return zones, nil
}

func zoneFromFeature(f geom.GeoJSONFeature) (model.Zone, error) {
	poly, ok := f.Geometry.AsPolygon()
	if !ok {
		return model.Zone{}, fmt.Errorf("geometry is %s, want Polygon", f.Geometry.Type())
	}
	z := model.Zone{Polygon: poly}

	name, ok := f.Properties["name"].(string)
	if !ok || name == "" {
		return model.Zone{}, fmt.Errorf("missing name property")
	}
	z.Name = name

	switch kind := f.Properties["kind"]; kind {
	case "target":
		z.Kind = model.ZoneTarget
	case "exclusion":
		z.Kind = model.ZoneExclusion
	default:
		return model.Zone{}, fmt.Errorf("zone %s: kind %q is not target or exclusion", name, kind)
	}

	var err error
	if z.From, err = timeProp(f.Properties, "from"); err != nil {
		return model.Zone{}, fmt.Errorf("zone %s: %w", name, err)
	}
	if z.Until, err = timeProp(f.Properties, "until"); err != nil {
		return model.Zone{}, fmt.Errorf("zone %s: %w", name, err)
	}
	return z, nil
}

func timeProp(props map[string]any, key string) (time.Time, error) {
	raw, ok := props[key]
	if !ok {
		return time.Time{}, nil
	}
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("%s property must be an RFC3339 string", key)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s property: %w", key, err)
	}
	return t, nil
}
