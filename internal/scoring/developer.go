package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrInvalidWeights is returned when developer-score weights do not sum to 1.0.
// It is a configuration error, fatal to the run; weights are never silently
// renormalized.
var ErrInvalidWeights = errors.New("developer score weights must sum to 1.0")

const weightSumEpsilon = 1e-9

// Weights distributes the overall developer score across its four components.
type Weights struct {
	FairEfficiency float64 `yaml:"fair_efficiency" json:"fairEfficiency"`
	Delivery       float64 `yaml:"delivery" json:"delivery"`
	CompletionRate float64 `yaml:"completion_rate" json:"completionRate"`
	OnTime         float64 `yaml:"on_time" json:"onTime"`
}

// DefaultWeights favors delivery consistency over raw efficiency.
func DefaultWeights() Weights {
	return Weights{
		FairEfficiency: 0.25,
		Delivery:       0.50,
		CompletionRate: 0.15,
		OnTime:         0.10,
	}
}

// Validate checks the unit-sum invariant.
func (w Weights) Validate() error {
	sum := w.FairEfficiency + w.Delivery + w.CompletionRate + w.OnTime
	if math.Abs(sum-1.0) > weightSumEpsilon {
		return fmt.Errorf("%w: got %v", ErrInvalidWeights, sum)
	}
	return nil
}

// Summary aggregates one developer's item metrics for a query window.
// Built once per window; immutable after construction.
type Summary struct {
	Developer string `json:"developer"`

	TotalItems     int `json:"totalItems"`
	CompletedItems int `json:"completedItems"`
	EligibleItems  int `json:"eligibleItems"`
	ReopenedItems  int `json:"reopenedItems"`

	CompletionRate     float64 `json:"completionRate"`
	OnTimeRate         float64 `json:"onTimeRate"`
	AvgFairEfficiency  float64 `json:"avgFairEfficiency"`
	AvgDeliveryScore   float64 `json:"avgDeliveryScore"`
	AvgDaysAheadBehind float64 `json:"avgDaysAheadBehind"`
	ReopenedRate       float64 `json:"reopenedRate"`
	OverallScore       float64 `json:"overallScore"`

	TotalActiveHours    float64 `json:"totalActiveHours"`
	TotalEstimatedHours float64 `json:"totalEstimatedHours"`

	// TimingBreakdown counts items per delivery tier name.
	TimingBreakdown map[string]int `json:"timingBreakdown,omitempty"`

	// LowConfidence flags sample sizes below the configured minimum. The
	// developer is still scored, never suppressed.
	LowConfidence bool `json:"lowConfidence"`
}

// Summarize folds one developer's item metrics into a summary.
//
// totalAssigned is the completion-rate denominator and may exceed len(items)
// when the query window filtered states; zero falls back to len(items).
// Means are computed over eligible items only, in a stable order (sorted by
// item ID), so concurrent producers cannot perturb the result.
func Summarize(developer string, items []ItemMetrics, totalAssigned int, w Weights, minItems int) (Summary, error) {
	if err := w.Validate(); err != nil {
		return Summary{}, err
	}

	if totalAssigned <= 0 {
		totalAssigned = len(items)
	}

	s := Summary{
		Developer:       developer,
		TotalItems:      totalAssigned,
		TimingBreakdown: make(map[string]int),
		LowConfidence:   totalAssigned < minItems,
	}
	if len(items) == 0 && totalAssigned == 0 {
		return s, nil
	}

	sorted := make([]ItemMetrics, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	var (
		fairSum, deliverySum, daysSum float64
		timedItems, onTime            int
	)

	for _, m := range sorted {
		if m.IsCompleted {
			s.CompletedItems++
		}
		if m.WasReopened {
			s.ReopenedItems++
		}
		if m.Eligible {
			s.EligibleItems++
			fairSum += m.FairEfficiencyPct
		}
		if m.HasTiming() {
			timedItems++
			deliverySum += m.DeliveryScore
			daysSum += float64(*m.DaysAheadBehind)
			if *m.DaysAheadBehind <= 0 {
				onTime++
			}
			s.TimingBreakdown[m.DeliveryTierName]++
		}
		s.TotalActiveHours += m.ActiveHours
		s.TotalEstimatedHours += m.EstimatedHours
	}

	if totalAssigned > 0 {
		s.CompletionRate = float64(s.CompletedItems) / float64(totalAssigned) * 100.0
	}
	if timedItems > 0 {
		s.OnTimeRate = float64(onTime) / float64(timedItems) * 100.0
		s.AvgDeliveryScore = deliverySum / float64(timedItems)
		s.AvgDaysAheadBehind = daysSum / float64(timedItems)
	}
	if s.EligibleItems > 0 {
		s.AvgFairEfficiency = fairSum / float64(s.EligibleItems)
	}
	if len(items) > 0 {
		s.ReopenedRate = float64(s.ReopenedItems) / float64(len(items)) * 100.0
	}

	s.OverallScore = s.AvgFairEfficiency*w.FairEfficiency +
		s.AvgDeliveryScore*w.Delivery +
		s.CompletionRate*w.CompletionRate +
		s.OnTimeRate*w.OnTime

	return s, nil
}
