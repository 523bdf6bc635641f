package timeline

import (
	"errors"
	"slices"
	"strings"
	"time"

	"devkpi/internal/schedule"
)

// ErrMissingTimestamp is returned when an event carries a zero timestamp.
// It is an input error: the item is excluded from aggregation, not the batch.
var ErrMissingTimestamp = errors.New("state event has no timestamp")

// Breakdown is the accumulated working-time result for one work item.
//
// ActiveHours always equals PreReopenActiveHours + PostReopenActiveHours.
type Breakdown struct {
	ActiveHours           float64 `json:"activeHours"`
	PausedHours           float64 `json:"pausedHours"`
	PreReopenActiveHours  float64 `json:"preReopenActiveHours"`
	PostReopenActiveHours float64 `json:"postReopenActiveHours"`
	WasReopened           bool    `json:"wasReopened"`
	ReopenCount           int     `json:"reopenCount"`
	EventCount            int     `json:"eventCount"`

	// StateHours breaks active time down per raw productive state.
	StateHours map[string]float64 `json:"stateHours,omitempty"`
	// PausedStateHours breaks paused time down per raw pause state.
	PausedStateHours map[string]float64 `json:"pausedStateHours,omitempty"`
}

// openSegment is one entry of the accumulation stack. The stack lets a pause
// suspend an enclosing productive segment and resume it afterwards; its depth
// is bounded by the nesting of pauses, typically two.
type openSegment struct {
	cat   Category
	raw   string
	start time.Time
}

// Accumulate runs a single forward pass over the events of one work item and
// returns its time breakdown.
//
// Productive segments contribute their business-hours overlap, paused segments
// contribute raw elapsed wall-clock time, assigned and ignored segments
// contribute nothing. The final segment extends to now unless the item is in a
// completion or ignored state. Events are stable-sorted by timestamp first, so
// out-of-order delivery from the upstream source is tolerated; equal timestamps
// collapse into zero-length segments.
//
// The input slice is not modified. Calling Accumulate twice on the same events
// yields identical results.
func Accumulate(events []StateEvent, sched schedule.Config, now time.Time) (Breakdown, error) {
	b := Breakdown{
		StateHours:       make(map[string]float64),
		PausedStateHours: make(map[string]float64),
	}
	if len(events) == 0 {
		return b, nil
	}

	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			return b, ErrMissingTimestamp
		}
	}

	sorted := make([]StateEvent, len(events))
	copy(sorted, events)
	slices.SortStableFunc(sorted, func(a, e StateEvent) int {
		return a.Timestamp.Compare(e.Timestamp)
	})

	b.EventCount = len(sorted)

	var stack []openSegment
	inCompletion := false
	afterReopen := false

	accrue := func(seg openSegment, end time.Time) {
		if !end.After(seg.start) {
			return
		}
		switch seg.cat {
		case CategoryProductive:
			h := schedule.OverlapHours(seg.start, end, sched)
			if h == 0 {
				return
			}
			if afterReopen {
				b.PostReopenActiveHours += h
			} else {
				b.PreReopenActiveHours += h
			}
			b.StateHours[strings.ToLower(seg.raw)] += h
		case CategoryPaused:
			h := end.Sub(seg.start).Hours()
			b.PausedHours += h
			b.PausedStateHours[strings.ToLower(seg.raw)] += h
		}
	}

	for _, ev := range sorted {
		// Reopen detection happens before the segment that the event opens,
		// so time accrued from here on lands in the post-reopen bucket.
		switch ev.Category {
		case CategoryCompletion:
			inCompletion = true
		case CategoryIgnored:
			// Ignored events neither complete nor reopen.
		default:
			if inCompletion {
				b.WasReopened = true
				b.ReopenCount++
				afterReopen = true
				inCompletion = false
			}
		}

		if len(stack) > 0 {
			top := stack[len(stack)-1]
			accrue(top, ev.Timestamp)

			if ev.Category == CategoryPaused && top.cat == CategoryProductive {
				// Suspend the productive segment underneath the pause.
				stack = append(stack, openSegment{cat: ev.Category, raw: ev.RawState, start: ev.Timestamp})
				continue
			}
			if top.cat == CategoryPaused && len(stack) > 1 && stack[len(stack)-2].cat == ev.Category {
				// Pause ends back into the enclosing category: pop and resume.
				stack = stack[:len(stack)-1]
				stack[len(stack)-1].start = ev.Timestamp
				stack[len(stack)-1].raw = ev.RawState
				continue
			}
		}

		stack = append(stack[:0], openSegment{cat: ev.Category, raw: ev.RawState, start: ev.Timestamp})
	}

	// Open-ended tail: a non-terminal item keeps accruing until the query boundary.
	top := stack[len(stack)-1]
	if top.cat != CategoryCompletion && top.cat != CategoryIgnored && now.After(top.start) {
		accrue(top, now)
	}

	b.ActiveHours = b.PreReopenActiveHours + b.PostReopenActiveHours
	return b, nil
}
