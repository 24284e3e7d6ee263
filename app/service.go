// Package app wires the configuration into a runnable optimization
// service: field and zones are loaded once, the optimizer runs to
// completion, and the ranking is exported and optionally published.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bluecorridor/driftcast/config"
	"github.com/bluecorridor/driftcast/core/candidate"
	"github.com/bluecorridor/driftcast/core/ensemble"
	"github.com/bluecorridor/driftcast/core/field"
	"github.com/bluecorridor/driftcast/core/logger"
	coremetrics "github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/optimize"
	"github.com/bluecorridor/driftcast/core/score"
	"github.com/bluecorridor/driftcast/core/zone"
	"github.com/bluecorridor/driftcast/infra/fieldio"
	infralogger "github.com/bluecorridor/driftcast/infra/logger"
	"github.com/bluecorridor/driftcast/infra/metrics"
	"github.com/bluecorridor/driftcast/infra/mqtt"
	"github.com/bluecorridor/driftcast/internal/eventbus"
	"github.com/bluecorridor/driftcast/pkg/export"
)

// Service holds one run's collaborators.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	sampler   *field.Sampler
	zones     *zone.Evaluator
	simulator *ensemble.Simulator
	space     *candidate.Space
	optimizer *optimize.Optimizer
	bus       *eventbus.Bus
	collector *metrics.Collector
	publisher *mqtt.RankingPublisher
}

// New loads the field and zones and builds the optimizer. Any error here is
// fatal: either the configuration is contradictory or the forecast data
// cannot support a trustworthy run.
func New(cfg *config.Config) (*Service, error) {
	logg := infralogger.New("service")

	vf, err := fieldio.LoadField(cfg.Field.Path)
	if err != nil {
		return nil, err
	}
	sampler, err := field.NewSampler(vf, cfg.Field.GapFill, cfg.Field.MaxGapFraction)
	if err != nil {
		return nil, err
	}
	first, last := vf.TimeBounds()
	logg.Infof("field loaded: %dx%d grid, %d frames %s..%s, gap fraction %.3f",
		len(vf.Lons), len(vf.Lats), len(vf.Times),
		first.Format(time.RFC3339), last.Format(time.RFC3339), vf.GapFraction())

	zones, err := fieldio.LoadZones(cfg.ZonesPath)
	if err != nil {
		return nil, err
	}
	evaluator := zone.NewEvaluator(zones)
	if len(evaluator.Targets()) == 0 {
		return nil, fmt.Errorf("app: no target zones in %s", cfg.ZonesPath)
	}

	sim, err := ensemble.NewSimulator(sampler, evaluator, ensemble.Params{
		Horizon:            cfg.Run.Horizon(),
		Dt:                 cfg.Run.Dt(),
		WindageCoefficient: cfg.Run.WindageCoefficient,
		UseStokes:          cfg.Run.UseStokes,
	}, infralogger.New("ensemble"))
	if err != nil {
		return nil, err
	}

	space, err := candidate.NewSpace(
		cfg.Run.ReleaseRegion, cfg.Run.ReleaseSpacingDeg,
		cfg.Run.StartTime(), cfg.Run.Cadence(), cfg.Run.ReleaseCount,
		candidate.EnsembleDefaults{
			Size:         cfg.Run.EnsembleSize,
			SpawnRadiusM: cfg.Run.SpawnRadiusM,
			DiffusionM:   cfg.Run.DiffusionM,
		}, vf, evaluator)
	if err != nil {
		return nil, err
	}

	scorer := score.NewScorer(score.Weights{
		ZoneWeights:         cfg.Score.ZoneWeights,
		ExclusionPenalty:    cfg.Score.ExclusionPenalty,
		ArrivalDecayPerHour: cfg.Score.ArrivalDecayPerHour,
	})

	bus := eventbus.New()
	opt, err := optimize.New(sim, evaluator, scorer, optimize.Options{
		TopK:       cfg.Optimizer.TopK,
		Workers:    cfg.Optimizer.Workers,
		TimeBudget: cfg.Optimizer.TimeBudget(),
		Refinement: cfg.Optimizer.Refinement,
	}, bus, infralogger.New("optimizer"))
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg: cfg, log: logg,
		sampler: sampler, zones: evaluator, simulator: sim,
		space: space, optimizer: opt, bus: bus,
	}
	svc.collector = metrics.NewCollector(buildSink(cfg, logg), logg)

	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewRankingPublisher(cfg.MQTT, infralogger.New("mqtt"))
		if err != nil {
			return nil, err
		}
		svc.publisher = pub
	}
	return svc, nil
}

func buildSink(cfg *config.Config, logg logger.Logger) coremetrics.Sink {
	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			logg.Errorf("prom sink: %v", err)
		} else {
			sinks = append(sinks, sink)
		}
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}
	case 1:
		return sinks[0]
	default:
		return metrics.NewMultiSink(sinks...)
	}
}

// Run executes one optimization and writes the artifacts. Cancellation
// yields a partial ranking, still exported.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	collectorCtx, stopCollector := context.WithCancel(context.Background())
	defer stopCollector()
	go s.collector.Run(collectorCtx, s.bus)

	rank, err := s.optimizer.Optimize(ctx, s.space)
	if err != nil {
		return err
	}
	if rank.Partial {
		s.log.Warnf("run %s is partial: %d results before interruption", rank.RunID, len(rank.Results))
	}

	if err := s.exportArtifacts(ctx, rank); err != nil {
		return err
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(rank); err != nil {
			s.log.Errorf("ranking publish: %v", err)
		}
	}
	return nil
}

func (s *Service) exportArtifacts(ctx context.Context, rank *optimize.Ranking) error {
	dir := s.cfg.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("app: output dir: %w", err)
	}

	artifacts := map[string]string{
		"ranking_json":    filepath.Join(dir, "ranking_latest.json"),
		"ranking_geojson": filepath.Join(dir, "ranking_latest.geojson"),
		"summary_csv":     filepath.Join(dir, "summary_latest.csv"),
		"manifest":        filepath.Join(dir, "manifest.json"),
	}
	if err := writeFile(artifacts["ranking_json"], func(f *os.File) error {
		return export.WriteRankingJSON(f, rank)
	}); err != nil {
		return err
	}
	if err := writeFile(artifacts["ranking_geojson"], func(f *os.File) error {
		return export.WriteRankingGeoJSON(f, rank)
	}); err != nil {
		return err
	}
	if err := writeFile(artifacts["summary_csv"], func(f *os.File) error {
		return export.WriteSummaryCSV(f, rank)
	}); err != nil {
		return err
	}

	if s.cfg.Output.Tracks && len(rank.Results) > 0 {
		path := filepath.Join(dir, "tracks_latest.geojson")
		tracks, err := s.simulator.Run(ctx, rank.Results[0].Candidate)
		if err != nil {
			s.log.Errorf("track export simulation: %v", err)
		} else if err := writeFile(path, func(f *os.File) error {
			return export.WriteTracksGeoJSON(f, tracks)
		}); err != nil {
			return err
		} else {
			artifacts["tracks_geojson"] = path
		}
	}

	manifest := export.Manifest{
		RunID:     rank.RunID,
		RunTime:   time.Now().UTC(),
		Evaluated: rank.Evaluated,
		Skipped:   rank.Skipped,
		Partial:   rank.Partial,
		Artifacts: artifacts,
	}
	if err := writeFile(artifacts["manifest"], func(f *os.File) error {
		return export.WriteManifest(f, manifest)
	}); err != nil {
		return err
	}
	s.log.Infof("artifacts written to %s", dir)
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("app: create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("app: write %s: %w", path, err)
	}
	return f.Close()
}

// Close releases external connections.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Close()
	}
	s.bus.Close()
	return nil
}

// Simulate runs a single externally supplied candidate and returns its
// trajectories, checking feasibility first. Used by the simulate command.
// A zero release time means the first forecast frame.
func (s *Service) Simulate(ctx context.Context, release model.GeoPoint, at time.Time) ([]*model.Trajectory, error) {
	if at.IsZero() {
		at, _ = s.sampler.Field().TimeBounds()
	}
	cand := model.CandidateConfig{
		ID:           "manual",
		Release:      release,
		ReleaseTime:  at,
		EnsembleSize: s.cfg.Run.EnsembleSize,
		SpawnRadiusM: s.cfg.Run.SpawnRadiusM,
		DiffusionM:   s.cfg.Run.DiffusionM,
	}
	if err := s.space.Check(cand); err != nil {
		return nil, err
	}
	return s.simulator.Run(ctx, cand)
}
