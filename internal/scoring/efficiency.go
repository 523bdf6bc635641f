package scoring

import (
	"math"
	"strings"
	"time"

	"devkpi/internal/timeline"
)

// Capping markers recorded on ItemMetrics.
const (
	CappingNone       = "none"
	CappingNoEstimate = "no_estimate_exclusion"
	CappingAtEstimate = "capped_at_estimate_factor"
	CappingNoData     = "no_data"
)

// ItemMetrics is the scored result for one work item.
type ItemMetrics struct {
	ItemID    int    `json:"itemId"`
	Developer string `json:"developer,omitempty"`

	EstimatedHours             float64 `json:"estimatedHours"`
	ActiveHours                float64 `json:"activeHours"`
	RawActiveHours             float64 `json:"rawActiveHours"`
	PausedHours                float64 `json:"pausedHours"`
	CompletionBonusHours       float64 `json:"completionBonusHours"`
	LatePenaltyMitigationHours float64 `json:"latePenaltyMitigationHours"`
	TimingBonusHours           float64 `json:"timingBonusHours"`

	// FairEfficiencyPct is clamped to [0, MaxEfficiencyCap].
	FairEfficiencyPct float64 `json:"fairEfficiencyPct"`
	// TraditionalEfficiencyPct is the inverted estimate/active ratio, capped.
	TraditionalEfficiencyPct float64 `json:"traditionalEfficiencyPct"`

	// DeliveryScore and DaysAheadBehind are set only when the item completed
	// with both target and close dates known; DaysAheadBehind is negative for
	// early delivery.
	DeliveryScore    float64 `json:"deliveryScore,omitempty"`
	DeliveryTierName string  `json:"deliveryTier,omitempty"`
	DaysAheadBehind  *int    `json:"daysAheadBehind,omitempty"`

	IsCompleted bool `json:"isCompleted"`
	WasReopened bool `json:"wasReopened"`

	// Eligible marks items that participate in efficiency aggregation. An
	// item without a usable estimate or without state-transition data is
	// scored ineligible but still counts toward completion rates.
	Eligible bool `json:"eligible"`

	CappingApplied string `json:"cappingApplied"`
}

// HasTiming reports whether delivery timing was computable for this item.
func (m ItemMetrics) HasTiming() bool {
	return m.DaysAheadBehind != nil
}

// Score computes per-item metrics from an accumulated time breakdown.
//
// Every step is a pure function of its inputs. A zero denominator or missing
// timing is an undefined result, not an error: the affected fields stay absent
// and the item is excluded from the corresponding aggregates.
func Score(b timeline.Breakdown, estimatedHours float64, isCompleted bool, targetDate, closedDate *time.Time, cfg Config) ItemMetrics {
	m := ItemMetrics{
		EstimatedHours: estimatedHours,
		RawActiveHours: b.ActiveHours,
		PausedHours:    b.PausedHours,
		IsCompleted:    isCompleted,
		WasReopened:    b.WasReopened,
		CappingApplied: CappingNone,
	}

	if b.EventCount == 0 {
		m.CappingApplied = CappingNoData
		return m
	}

	// Credited active time: excluded entirely without an estimate, otherwise
	// capped at ActiveCapFactor x estimate.
	switch {
	case estimatedHours <= 0:
		m.ActiveHours = 0
		m.CappingApplied = CappingNoEstimate
	case cfg.ActiveCapFactor > 0 && b.ActiveHours > estimatedHours*cfg.ActiveCapFactor:
		m.ActiveHours = estimatedHours * cfg.ActiveCapFactor
		m.CappingApplied = CappingAtEstimate
	default:
		m.ActiveHours = b.ActiveHours
	}

	if isCompleted {
		m.CompletionBonusHours = estimatedHours * cfg.CompletionBonusPct
	}

	// Delivery timing only exists for completed items with both dates.
	if isCompleted && targetDate != nil && closedDate != nil {
		days := int(math.Floor(closedDate.Sub(*targetDate).Hours() / 24.0))
		tier := cfg.tierFor(days)

		m.DaysAheadBehind = &days
		m.DeliveryScore = tier.Score
		m.DeliveryTierName = tier.Name
		m.LatePenaltyMitigationHours = tier.MitigationHours
		if days < 0 {
			m.TimingBonusHours = float64(-days) * tier.BonusHoursPerDay
		}
	}

	numerator := m.ActiveHours + m.CompletionBonusHours
	denominator := estimatedHours + m.LatePenaltyMitigationHours

	if denominator > 0 && estimatedHours > 0 {
		m.FairEfficiencyPct = clamp(numerator/denominator*100.0, 0, cfg.MaxEfficiencyCap)
		m.Eligible = true
	}

	if m.ActiveHours > 0 && estimatedHours > 0 {
		m.TraditionalEfficiencyPct = clamp(estimatedHours/m.ActiveHours*100.0, 0, cfg.MaxEfficiencyCap)
	}

	return m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func normalizeType(itemType string) string {
	return strings.ToLower(strings.TrimSpace(itemType))
}
