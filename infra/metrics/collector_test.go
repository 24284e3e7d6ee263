package metrics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bluecorridor/driftcast/core/events"
	coremetrics "github.com/bluecorridor/driftcast/core/metrics"
	"github.com/bluecorridor/driftcast/core/model"
	"github.com/bluecorridor/driftcast/internal/eventbus"
)

type recordingSink struct {
	mu         sync.Mutex
	candidates []string
	outcomes   map[string]map[model.Status]int
	runs       []coremetrics.RunSummary
}

func newRecordingSink() *recordingSink {
	return &recordingSink{outcomes: make(map[string]map[model.Status]int)}
}

func (r *recordingSink) RecordCandidate(res model.CandidateResult, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = append(r.candidates, res.Candidate.ID)
	return nil
}

func (r *recordingSink) RecordOutcomes(id string, counts map[model.Status]int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[id] = counts
	return nil
}

func (r *recordingSink) RecordRun(run coremetrics.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

func TestCollector_ForwardsEvents(t *testing.T) {
	bus := eventbus.New()
	sink := newRecordingSink()
	col := NewCollector(sink, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		col.Run(context.Background(), bus)
	}()

	// Let the collector subscribe before publishing.
	time.Sleep(10 * time.Millisecond)
	bus.Publish(events.CandidateEvaluated{
		Result:   model.CandidateResult{Candidate: model.CandidateConfig{ID: "c1"}},
		Outcomes: map[model.Status]int{model.StatusReachedTarget: 4},
	})
	bus.Publish(events.RunCompleted{RunID: "run-1", Evaluated: 1, Ranked: 1})
	time.Sleep(50 * time.Millisecond)
	bus.Close()
	<-done

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.candidates) != 1 || sink.candidates[0] != "c1" {
		t.Errorf("candidates = %v", sink.candidates)
	}
	if sink.outcomes["c1"][model.StatusReachedTarget] != 4 {
		t.Errorf("outcomes = %v", sink.outcomes)
	}
	if len(sink.runs) != 1 || sink.runs[0].RunID != "run-1" {
		t.Errorf("runs = %v", sink.runs)
	}
}

func TestCollector_StopsOnContextCancel(t *testing.T) {
	bus := eventbus.New()
	col := NewCollector(newRecordingSink(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		col.Run(ctx, bus)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop on cancellation")
	}
	bus.Close()
}
