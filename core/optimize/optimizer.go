// Package optimize searches the candidate space for the release
// configurations most likely to deliver. Candidates are independent units
// of work: a bounded worker pool evaluates them in parallel against the
// shared read-only field and the results are merged and ranked once all
// workers drain.
package optimize

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bluecorridor/driftcast/core/candidate"
	"github.com/bluecorridor/driftcast/core/ensemble"
	"github.com/bluecorridor/driftcast/core/events"
	"github.com/bluecorridor/driftcast/core/logger"
	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/core/score"
	"github.com/bluecorridor/driftcast/core/zone"
	"github.com/bluecorridor/driftcast/internal/eventbus"
)

// Refinement configures the optional second search stage: a finer grid
// around the best coarse candidates, re-scored with a larger ensemble. The
// result is the best found, never a claim of global optimality.
type Refinement struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
	// SpacingFactor divides the coarse grid spacing (>1).
	SpacingFactor float64 `json:"spacing_factor" yaml:"spacing_factor"`
	// EnsembleScale multiplies the ensemble size for refinement passes.
	EnsembleScale float64 `json:"ensemble_scale" yaml:"ensemble_scale"`
	// Keep is how many coarse winners seed refinement sub-grids.
	Keep int `json:"keep" yaml:"keep"`
}

// Options bounds one optimization run.
type Options struct {
	TopK    int
	Workers int
	// TimeBudget caps the wall-clock duration of the whole run. Zero
	// means unbounded. The budget is enforced here, never inside the
	// integrator.
	TimeBudget time.Duration
	Refinement Refinement
}

// Ranking is the ordered outcome of a run, best candidate first.
type Ranking struct {
	RunID     string                  `json:"run_id"`
	Results   []model.CandidateResult `json:"results"`
	Evaluated int                     `json:"evaluated"`
	Skipped   int                     `json:"skipped"`
	// Partial marks a run cut short by cancellation or budget; the
	// results that did complete are still valid.
	Partial bool          `json:"partial"`
	Elapsed time.Duration `json:"elapsed"`
}

// Optimizer drives candidate evaluation.
type Optimizer struct {
	sim    *ensemble.Simulator
	zones  *zone.Evaluator
	scorer *score.Scorer
	bus    *eventbus.Bus
	log    logger.Logger
	opts   Options
}

// New wires an optimizer. bus may be nil when nothing listens for progress.
func New(sim *ensemble.Simulator, zones *zone.Evaluator, scorer *score.Scorer, opts Options, bus *eventbus.Bus, log logger.Logger) (*Optimizer, error) {
	if sim == nil || zones == nil || scorer == nil {
		return nil, fmt.Errorf("optimize: nil collaborator")
	}
	if opts.TopK <= 0 {
		return nil, fmt.Errorf("optimize: top_k must be positive, got %d", opts.TopK)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Refinement.Enabled {
		if opts.Refinement.SpacingFactor <= 1 {
			return nil, fmt.Errorf("optimize: refinement spacing factor must exceed 1, got %v", opts.Refinement.SpacingFactor)
		}
		if opts.Refinement.Keep <= 0 {
			opts.Refinement.Keep = 3
		}
		if opts.Refinement.EnsembleScale < 1 {
			opts.Refinement.EnsembleScale = 1
		}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Optimizer{sim: sim, zones: zones, scorer: scorer, bus: bus, log: log, opts: opts}, nil
}

type job struct {
	idx  int
	cand model.CandidateConfig
}

type scored struct {
	idx int
	res model.CandidateResult
}

// Optimize evaluates the whole space and returns the top-k ranking. On
// cancellation the already-completed results are ranked and returned with
// Partial set; only configuration and field-load problems abort before any
// simulation starts.
func (o *Optimizer) Optimize(ctx context.Context, space *candidate.Space) (*Ranking, error) {
	start := time.Now()
	if o.opts.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.TimeBudget)
		defer cancel()
	}

	rank := &Ranking{RunID: uuid.NewString()}
	coarse, skipped, partial := o.evaluateAll(ctx, space.All(), 1)
	rank.Evaluated = len(coarse)
	rank.Skipped = skipped
	rank.Partial = partial

	results := coarse
	if o.opts.Refinement.Enabled && !partial && len(coarse) > 0 {
		refined, rskip, rpartial := o.refine(ctx, space, coarse)
		results = append(results, refined...)
		rank.Evaluated += len(refined)
		rank.Skipped += rskip
		rank.Partial = rpartial
	}

	ordered := make([]model.CandidateResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return score.Better(ordered[i], ordered[j]) })
	if len(ordered) > o.opts.TopK {
		ordered = ordered[:o.opts.TopK]
	}
	rank.Results = ordered
	rank.Elapsed = time.Since(start)

	if o.bus != nil {
		o.bus.Publish(events.RunCompleted{
			RunID:     rank.RunID,
			Evaluated: rank.Evaluated,
			Skipped:   rank.Skipped,
			Ranked:    len(rank.Results),
			Partial:   rank.Partial,
			Elapsed:   rank.Elapsed,
		})
	}
	o.log.Infof("run %s: %d evaluated, %d skipped, %d ranked in %v", rank.RunID, rank.Evaluated, rank.Skipped, len(rank.Results), rank.Elapsed)
	return rank, nil
}

// refine re-samples finer grids around the best coarse candidates.
func (o *Optimizer) refine(ctx context.Context, space *candidate.Space, coarse []model.CandidateResult) ([]model.CandidateResult, int, bool) {
	winners := make([]model.CandidateResult, len(coarse))
	copy(winners, coarse)
	sort.SliceStable(winners, func(i, j int) bool { return score.Better(winners[i], winners[j]) })
	if len(winners) > o.opts.Refinement.Keep {
		winners = winners[:o.opts.Refinement.Keep]
	}

	var cands []model.CandidateConfig
	seen := make(map[string]bool)
	for _, w := range winners {
		sub := space.Around(w.Candidate, space.Spacing()/o.opts.Refinement.SpacingFactor)
		sub.ForEach(func(c model.CandidateConfig) bool {
			key := fmt.Sprintf("%.6f/%.6f/%d", c.Release.Lon, c.Release.Lat, c.ReleaseTime.Unix())
			if !seen[key] {
				seen[key] = true
				cands = append(cands, c)
			}
			return true
		})
	}
	o.log.Infof("refinement: %d candidates around top %d", len(cands), len(winners))
	return o.evaluateAll(ctx, cands, o.opts.Refinement.EnsembleScale)
}

// evaluateAll fans the candidates out over the worker pool and merges the
// per-worker results. Ranking determinism does not depend on completion
// order: results are re-sorted by enumeration index before scoring order
// matters.
func (o *Optimizer) evaluateAll(ctx context.Context, cands []model.CandidateConfig, ensembleScale float64) ([]model.CandidateResult, int, bool) {
	jobs := make(chan job)
	out := make(chan scored, len(cands))
	var skipped sync.Map
	var wg sync.WaitGroup

	for w := 0; w < o.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}
				res, err := o.evaluate(ctx, j.cand, ensembleScale)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					skipped.Store(j.cand.ID, err)
					o.log.Warnf("candidate %s skipped: %v", j.cand.ID, err)
					if o.bus != nil {
						o.bus.Publish(events.CandidateSkipped{CandidateID: j.cand.ID, Reason: err.Error()})
					}
					continue
				}
				out <- scored{idx: j.idx, res: res}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, c := range cands {
			select {
			case jobs <- job{idx: i, cand: c}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	close(out)

	collected := make([]scored, 0, len(cands))
	for s := range out {
		collected = append(collected, s)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })
	results := make([]model.CandidateResult, len(collected))
	for i, s := range collected {
		results[i] = s.res
	}

	nskip := 0
	skipped.Range(func(_, _ any) bool { nskip++; return true })
	partial := ctx.Err() != nil
	return results, nskip, partial
}

// evaluate runs and scores a single candidate's ensemble.
func (o *Optimizer) evaluate(ctx context.Context, cand model.CandidateConfig, ensembleScale float64) (model.CandidateResult, error) {
	if ensembleScale > 1 {
		cand.EnsembleSize = int(float64(cand.EnsembleSize) * ensembleScale)
	}
	start := time.Now()
	tracks, err := o.sim.Run(ctx, cand)
	if err != nil {
		return model.CandidateResult{}, err
	}

	outcomes := make([]zone.Outcome, len(tracks))
	counts := make(map[model.Status]int, 4)
	for i, tr := range tracks {
		outcomes[i] = o.zones.Evaluate(tr, cand.ReleaseTime)
		counts[outcomes[i].Status]++
	}
	res := o.scorer.Score(cand, outcomes)
	if o.bus != nil {
		o.bus.Publish(events.CandidateEvaluated{Result: res, Outcomes: counts, Elapsed: time.Since(start)})
	}
	return res, nil
}
