package metrics

import (
	"context"

	"github.com/bluecorridor/driftcast/core/events"
	"github.com/bluecorridor/driftcast/core/logger"
	coremetrics "github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/internal/eventbus"
)

// Collector forwards optimizer progress events from the bus to a sink, so
// the core never depends on a metrics backend directly.
type Collector struct {
	sink coremetrics.Sink
	log  logger.Logger
}

// NewCollector wires a collector to the given sink.
func NewCollector(sink coremetrics.Sink, log logger.Logger) *Collector {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Collector{sink: sink, log: log}
}

// Run consumes events until the bus closes or the context is cancelled.
// Call it in its own goroutine.
func (c *Collector) Run(ctx context.Context, bus *eventbus.Bus) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			c.record(ev)
		}
	}
}

func (c *Collector) record(ev eventbus.Event) {
	switch e := ev.(type) {
	case events.CandidateEvaluated:
		if err := c.sink.RecordCandidate(e.Result, e.Elapsed); err != nil {
			c.log.Errorf("candidate metrics: %v", err)
		}
		if err := c.sink.RecordOutcomes(e.Result.Candidate.ID, e.Outcomes); err != nil {
			c.log.Errorf("outcome metrics: %v", err)
		}
	case events.RunCompleted:
		if err := c.sink.RecordRun(coremetrics.RunSummary{
			RunID:     e.RunID,
			Evaluated: e.Evaluated,
			Skipped:   e.Skipped,
			Ranked:    e.Ranked,
			Partial:   e.Partial,
			Elapsed:   e.Elapsed,
		}); err != nil {
			c.log.Errorf("run metrics: %v", err)
		}
	}
}
