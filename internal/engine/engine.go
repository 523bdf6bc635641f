// Package engine runs the scoring pipeline over a batch of work items.
// Items are independent, so per-item processing fans out across a bounded
// worker pool; only the final fold combines results across items.
package engine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"devkpi/internal/schedule"
	"devkpi/internal/scoring"
	"devkpi/internal/timeline"
)

// Item is one work item ready for scoring: identity, parameters, and its
// ordered state-change history. All inputs are already materialized; nothing
// here blocks on I/O.
type Item struct {
	ID             int                   `json:"id"`
	Title          string                `json:"title,omitempty"`
	Developer      string                `json:"developer"`
	Project        string                `json:"project,omitempty"`
	Type           string                `json:"type,omitempty"`
	RawState       string                `json:"rawState"`
	EstimatedHours float64               `json:"estimatedHours"`
	TargetDate     *time.Time            `json:"targetDate,omitempty"`
	ClosedDate     *time.Time            `json:"closedDate,omitempty"`
	Events         []timeline.StateEvent `json:"events"`
}

// Config bundles the validated configuration for one run.
type Config struct {
	Mapping  timeline.Mapping
	Schedule schedule.Config
	Scoring  scoring.Config
	Weights  scoring.Weights
	MinItems int
}

// Options controls run mechanics without affecting results.
type Options struct {
	// Workers bounds concurrent item processing; <=0 means GOMAXPROCS.
	Workers int
	// Now is the query boundary for open-ended segments; zero means wall clock.
	Now time.Time
}

// ItemError records a recoverable per-item failure. The item is excluded from
// aggregation and the batch continues.
type ItemError struct {
	ItemID int   `json:"itemId"`
	Err    error `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("work item %d: %v", e.ItemID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Result is the outcome of one batch run.
type Result struct {
	Items     []scoring.ItemMetrics `json:"items"`
	Summaries []scoring.Summary     `json:"summaries"`
	Warnings  []ItemError           `json:"warnings,omitempty"`
}

// Run scores every item and folds the results into per-developer summaries.
//
// Configuration errors abort before any work is scheduled. Input errors are
// collected as warnings and exclude only the offending item. Summaries are
// deterministic: items fold in ID order, developers sort by name.
func Run(ctx context.Context, items []Item, cfg Config, opts Options) (*Result, error) {
	sched, err := cfg.Schedule.Normalize()
	if err != nil {
		return nil, fmt.Errorf("business hours config: %w", err)
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return nil, fmt.Errorf("scoring config: %w", err)
	}
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	metrics := make([]*scoring.ItemMetrics, len(items))
	var (
		mu       sync.Mutex
		warnings []ItemError
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			breakdown, err := timeline.Accumulate(item.Events, sched, now)
			if err != nil {
				mu.Lock()
				warnings = append(warnings, ItemError{ItemID: item.ID, Err: err})
				mu.Unlock()
				log.Warn().Int("item", item.ID).Err(err).Msg("Excluding work item from aggregation")
				return nil
			}

			completed := cfg.Mapping.Categorize(item.RawState) == timeline.CategoryCompletion
			m := scoring.Score(breakdown, item.EstimatedHours, completed, item.TargetDate, item.ClosedDate, cfg.Scoring)
			m.ItemID = item.ID
			m.Developer = item.Developer

			metrics[i] = &m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{Warnings: warnings}

	byDeveloper := make(map[string][]scoring.ItemMetrics)
	for _, m := range metrics {
		if m == nil {
			continue
		}
		res.Items = append(res.Items, *m)
		byDeveloper[m.Developer] = append(byDeveloper[m.Developer], *m)
	}
	sort.Slice(res.Items, func(i, j int) bool { return res.Items[i].ItemID < res.Items[j].ItemID })

	for developer, devItems := range byDeveloper {
		summary, err := scoring.Summarize(developer, devItems, len(devItems), cfg.Weights, cfg.MinItems)
		if err != nil {
			return nil, err
		}
		res.Summaries = append(res.Summaries, summary)
	}
	sort.Slice(res.Summaries, func(i, j int) bool {
		return res.Summaries[i].Developer < res.Summaries[j].Developer
	})

	return res, nil
}
