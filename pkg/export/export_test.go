package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/optimize"
)

func sampleRanking() *optimize.Ranking {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &optimize.Ranking{
		RunID:     "run-1",
		Evaluated: 12,
		Skipped:   1,
		Elapsed:   90 * time.Second,
		Results: []model.CandidateResult{
			{
				Candidate: model.CandidateConfig{
					ID:      "p0003-t00",
					Release: model.GeoPoint{Lon: 5.5, Lat: 42.5},
					ReleaseTime: t0,
				},
				Score:              0.85,
				TotalReachFraction: 0.9,
				ExclusionFraction:  0.05,
				MedianArrival:      14 * time.Hour,
			},
			{
				Candidate: model.CandidateConfig{
					ID:      "p0001-t01",
					Release: model.GeoPoint{Lon: 5.0, Lat: 42.0},
					ReleaseTime: t0.Add(6 * time.Hour),
				},
				Score:              0.4,
				TotalReachFraction: 0.5,
				ExclusionFraction:  0.1,
				MedianArrival:      30 * time.Hour,
			},
		},
	}
}

func TestWriteRankingJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRankingJSON(&buf, sampleRanking()); err != nil {
		t.Fatalf("WriteRankingJSON: %v", err)
	}
	var back optimize.Ranking
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.RunID != "run-1" || len(back.Results) != 2 {
		t.Errorf("round trip lost data: %+v", back)
	}
	if back.Results[0].Candidate.ID != "p0003-t00" {
		t.Errorf("ordering lost: %s", back.Results[0].Candidate.ID)
	}
}

func TestWriteRankingGeoJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRankingGeoJSON(&buf, sampleRanking()); err != nil {
		t.Fatalf("WriteRankingGeoJSON: %v", err)
	}
	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("got %s with %d features", fc.Type, len(fc.Features))
	}
	first := fc.Features[0]
	if first.Geometry.Type != "Point" {
		t.Errorf("geometry type = %s", first.Geometry.Type)
	}
	if first.Geometry.Coordinates[0] != 5.5 || first.Geometry.Coordinates[1] != 42.5 {
		t.Errorf("coordinates = %v", first.Geometry.Coordinates)
	}
	if first.Properties["rank"].(float64) != 1 {
		t.Errorf("rank property = %v", first.Properties["rank"])
	}
	if first.Properties["candidate_id"].(string) != "p0003-t00" {
		t.Errorf("candidate_id property = %v", first.Properties["candidate_id"])
	}
}

func TestWriteTracksGeoJSON(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tr := &model.Trajectory{ParticleID: 0, Status: model.StatusReachedTarget, HitZone: "beach"}
	tr.Append(t0, model.GeoPoint{Lon: 5.0, Lat: 42.0})
	tr.Append(t0.Add(time.Hour), model.GeoPoint{Lon: 5.1, Lat: 42.0})
	short := &model.Trajectory{ParticleID: 1, Status: model.StatusBeached}
	short.Append(t0, model.GeoPoint{Lon: 5.0, Lat: 42.0})

	var buf bytes.Buffer
	if err := WriteTracksGeoJSON(&buf, []*model.Trajectory{tr, short}); err != nil {
		t.Fatalf("WriteTracksGeoJSON: %v", err)
	}
	var fc struct {
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(buf.Bytes(), &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// Single-sample tracks cannot form a LineString and are dropped.
	if len(fc.Features) != 1 {
		t.Fatalf("got %d features, want 1", len(fc.Features))
	}
	f := fc.Features[0]
	if f.Geometry.Type != "LineString" {
		t.Errorf("geometry type = %s", f.Geometry.Type)
	}
	if f.Properties["status"].(string) != "reached-target" {
		t.Errorf("status property = %v", f.Properties["status"])
	}
	times := f.Properties["times"].([]any)
	if len(times) != 2 || times[0].(string) != "2026-03-01T00:00:00Z" {
		t.Errorf("times property = %v", times)
	}
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, sampleRanking()); err != nil {
		t.Fatalf("WriteSummaryCSV: %v", err)
	}
	r := csv.NewReader(strings.NewReader(buf.String()))
	// Metric rows and candidate rows have different widths.
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// 6 header rows, 1 column header, 2 candidate rows.
	if len(records) != 9 {
		t.Fatalf("got %d records, want 9", len(records))
	}
	if records[1][0] != "run_id" || records[1][1] != "run-1" {
		t.Errorf("run_id row = %v", records[1])
	}
	if records[7][1] != "p0003-t00" {
		t.Errorf("first candidate row = %v", records[7])
	}
	if records[8][0] != "2" {
		t.Errorf("second candidate rank = %v", records[8][0])
	}
}

func TestWriteManifest(t *testing.T) {
	var buf bytes.Buffer
	m := Manifest{
		RunID:     "run-1",
		RunTime:   time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC),
		Evaluated: 12,
		Artifacts: map[string]string{"ranking_json": "out/ranking_latest.json"},
	}
	if err := WriteManifest(&buf, m); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}
	var back Manifest
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.RunID != m.RunID || back.Artifacts["ranking_json"] != "out/ranking_latest.json" {
		t.Errorf("round trip lost data: %+v", back)
	}
}
