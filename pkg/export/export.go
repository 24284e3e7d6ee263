// Package export writes run artifacts for the downstream reporting
// collaborator: ranked candidates and drift tracks as GeoJSON, a flat CSV
// summary, and a JSON manifest tying the artifacts to the run.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/peterstace/simplefeatures/geom"

	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/optimize"
)

// WriteRankingJSON writes the full ranking to w.
func WriteRankingJSON(w io.Writer, rank *optimize.Ranking) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rank)
}

// WriteRankingGeoJSON writes the ranked candidates as a FeatureCollection
// of release points, best first.
func WriteRankingGeoJSON(w io.Writer, rank *optimize.Ranking) error {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(rank.Results))
	for i, r := range rank.Results {
		pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: r.Candidate.Release.Lon, Y: r.Candidate.Release.Lat}})
		if err != nil {
			return fmt.Errorf("release point %s: %w", r.Candidate.ID, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: pt.AsGeometry(),
			Properties: map[string]any{
				"rank":               i + 1,
				"candidate_id":       r.Candidate.ID,
				"release_time":       r.Candidate.ReleaseTime.UTC().Format(time.RFC3339),
				"score":              r.Score,
				"reach_fraction":     r.TotalReachFraction,
				"exclusion_fraction": r.ExclusionFraction,
				"median_arrival_h":   r.MedianArrival.Hours(),
			},
		})
	}
	return json.NewEncoder(w).Encode(fc)
}

// WriteTracksGeoJSON writes trajectories as LineString features with the
// sample times attached, mirroring the track artifact of the original
// pipeline.
func WriteTracksGeoJSON(w io.Writer, tracks []*model.Trajectory) error {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(tracks))
	for _, tr := range tracks {
		if len(tr.Samples) < 2 {
			continue
		}
		coords := make([]float64, 0, len(tr.Samples)*2)
		times := make([]string, 0, len(tr.Samples))
		for _, s := range tr.Samples {
			coords = append(coords, s.Position.Lon, s.Position.Lat)
			times = append(times, s.Time.UTC().Format(time.RFC3339))
		}
		ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
		if err != nil {
			return fmt.Errorf("track %d: %w", tr.ParticleID, err)
		}
		fc = append(fc, geom.GeoJSONFeature{
			Geometry: ls.AsGeometry(),
			Properties: map[string]any{
				"particle_id": tr.ParticleID,
				"status":      tr.Status.String(),
				"hit_zone":    tr.HitZone,
				"times":       times,
			},
		})
	}
	return json.NewEncoder(w).Encode(fc)
}

// WriteSummaryCSV writes one metric,value header block followed by a row
// per ranked candidate.
func WriteSummaryCSV(w io.Writer, rank *optimize.Ranking) error {
	cw := csv.NewWriter(w)
	head := [][]string{
		{"metric", "value"},
		{"run_id", rank.RunID},
		{"candidates_evaluated", strconv.Itoa(rank.Evaluated)},
		{"candidates_skipped", strconv.Itoa(rank.Skipped)},
		{"partial", strconv.FormatBool(rank.Partial)},
		{"elapsed_seconds", fmt.Sprintf("%.1f", rank.Elapsed.Seconds())},
	}
	for _, rec := range head {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"rank", "candidate_id", "lon", "lat", "release_time", "score", "reach_fraction", "exclusion_fraction", "median_arrival_hours"}); err != nil {
		return err
	}
	for i, r := range rank.Results {
		rec := []string{
			strconv.Itoa(i + 1),
			r.Candidate.ID,
			strconv.FormatFloat(r.Candidate.Release.Lon, 'f', 5, 64),
			strconv.FormatFloat(r.Candidate.Release.Lat, 'f', 5, 64),
			r.Candidate.ReleaseTime.UTC().Format(time.RFC3339),
			strconv.FormatFloat(r.Score, 'f', 4, 64),
			strconv.FormatFloat(r.TotalReachFraction, 'f', 3, 64),
			strconv.FormatFloat(r.ExclusionFraction, 'f', 3, 64),
			fmt.Sprintf("%.2f", r.MedianArrival.Hours()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Manifest records what a run produced and where.
type Manifest struct {
	RunID     string            `json:"run_id"`
	RunTime   time.Time         `json:"run_time"`
	Evaluated int               `json:"candidates_evaluated"`
	Skipped   int               `json:"candidates_skipped"`
	Partial   bool              `json:"partial"`
	Artifacts map[string]string `json:"artifacts"`
}

// WriteManifest writes the manifest JSON.
func WriteManifest(w io.Writer, m Manifest) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(m)
}
