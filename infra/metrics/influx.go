package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/bluecorridor/driftcast/core/logger"
	coremetrics "github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/core/model"
	infralogger "github.com/bluecorridor/driftcast/infra/logger"
)

// InfluxSink writes run statistics to InfluxDB using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	base := strings.TrimSuffix(cfg.InfluxURL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.InfluxToken,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing metrics backend never
// blocks a run.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCandidate writes one point per scored candidate.
func (s *InfluxSink) RecordCandidate(res model.CandidateResult, elapsed time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("drift_candidate").
		AddTag("candidate_id", res.Candidate.ID).
		AddField("lon", res.Candidate.Release.Lon).
		AddField("lat", res.Candidate.Release.Lat).
		AddField("score", res.Score).
		AddField("reach_fraction", res.TotalReachFraction).
		AddField("exclusion_fraction", res.ExclusionFraction).
		AddField("median_arrival_hours", res.MedianArrival.Hours()).
		AddField("eval_seconds", elapsed.Seconds()).
		SetTime(res.Candidate.ReleaseTime)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOutcomes writes the per-status particle counts of one ensemble.
func (s *InfluxSink) RecordOutcomes(candidateID string, counts map[model.Status]int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("drift_particles").
		AddTag("candidate_id", candidateID).
		SetTime(time.Now())
	for st, n := range counts {
		p = p.AddField(st.String(), n)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes the run summary point.
func (s *InfluxSink) RecordRun(run coremetrics.RunSummary) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("drift_run").
		AddTag("run_id", run.RunID).
		AddField("evaluated", run.Evaluated).
		AddField("skipped", run.Skipped).
		AddField("ranked", run.Ranked).
		AddField("partial", run.Partial).
		AddField("elapsed_seconds", run.Elapsed.Seconds()).
		SetTime(time.Now())
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }
