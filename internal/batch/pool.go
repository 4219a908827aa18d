// Package batch runs many synthesis requests through one orchestrator with
// bounded concurrency. Input order is preserved in the results regardless of
// completion order, and one failing item never aborts the rest of the batch.
package batch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/djzlabs/djzspeak/internal/observe"
	"github.com/djzlabs/djzspeak/pkg/synth"
)

// Item is one entry of a batch: the request to synthesize.
type Item struct {
	// Text is the raw input text.
	Text string

	// Voice is the preset id; empty selects the orchestrator's default.
	Voice string
}

// Result pairs a batch item with its outcome. Exactly one of Synthesis and
// Err is set.
type Result struct {
	// Index is the item's position in the input slice.
	Index int

	// Item is the originating request.
	Item Item

	// Synthesis is the successful outcome.
	Synthesis *synth.Result

	// Err is the per-item failure. The batch continues past it.
	Err error
}

// Summary aggregates a finished batch for reporting.
type Summary struct {
	// Items is the batch size, Failed the number of failed items.
	Items  int
	Failed int

	// AudioDuration is the total playback length of all produced clips.
	AudioDuration time.Duration

	// WallTime is the elapsed time of the whole batch run.
	WallTime time.Duration
}

// RealTimeFactor returns batch wall time divided by total audio duration,
// or 0 when no audio was produced.
func (s Summary) RealTimeFactor() float64 {
	if s.AudioDuration <= 0 {
		return 0
	}
	return float64(s.WallTime) / float64(s.AudioDuration)
}

// Pool runs batches against one shared orchestrator.
type Pool struct {
	orch    *synth.Orchestrator
	workers int
	metrics *observe.Metrics
}

// New creates a Pool with the given worker count. Counts below 1 fall back
// to 1.
func New(orch *synth.Orchestrator, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		orch:    orch,
		workers: workers,
		metrics: observe.DefaultMetrics(),
	}
}

// Run synthesizes all items with at most the pool's worker count in flight.
// results[i] always corresponds to items[i]. Per-item failures are recorded
// in their Result and do not stop the batch; only ctx cancellation aborts
// early, in which case the context error is returned alongside the results
// gathered so far.
func (p *Pool) Run(ctx context.Context, items []Item) ([]Result, Summary, error) {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "batch.run")
	defer span.End()

	results := make([]Result, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, item := range items {
		results[i] = Result{Index: i, Item: item}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i].Err = err
				return err
			}

			p.metrics.ActiveBatchJobs.Add(gctx, 1)
			defer p.metrics.ActiveBatchJobs.Add(gctx, -1)

			res, err := p.orch.Synthesize(gctx, synth.Request{
				Text:  item.Text,
				Voice: item.Voice,
			})
			if err != nil {
				results[i].Err = err
				observe.Logger(gctx).Warn("batch item failed",
					"index", i,
					"voice", item.Voice,
					"err", err,
				)
				// The batch carries on; only cancellation stops it.
				return nil
			}
			results[i].Synthesis = res
			return nil
		})
	}
	err := g.Wait()

	summary := Summary{Items: len(items), WallTime: time.Since(start)}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			continue
		}
		if r.Synthesis != nil {
			summary.AudioDuration += r.Synthesis.Stats.AudioDuration
		}
	}
	return results, summary, err
}
