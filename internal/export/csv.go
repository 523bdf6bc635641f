// Package export writes scoring results as CSV for spreadsheets and BI tools.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"devkpi/internal/scoring"
)

var itemHeader = []string{
	"item_id", "developer", "estimated_hours", "active_hours", "raw_active_hours",
	"paused_hours", "completion_bonus_hours", "mitigation_hours", "timing_bonus_hours",
	"fair_efficiency_pct", "traditional_efficiency_pct", "delivery_score", "delivery_tier",
	"days_ahead_behind", "completed", "reopened", "eligible", "capping",
}

// WriteItems emits one row per scored work item.
func WriteItems(w io.Writer, items []scoring.ItemMetrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(itemHeader); err != nil {
		return err
	}
	for _, it := range items {
		days := ""
		if it.DaysAheadBehind != nil {
			days = strconv.Itoa(*it.DaysAheadBehind)
		}
		delivery := ""
		if it.HasTiming() {
			delivery = num(it.DeliveryScore)
		}
		row := []string{
			strconv.Itoa(it.ItemID),
			it.Developer,
			num(it.EstimatedHours),
			num(it.ActiveHours),
			num(it.RawActiveHours),
			num(it.PausedHours),
			num(it.CompletionBonusHours),
			num(it.LatePenaltyMitigationHours),
			num(it.TimingBonusHours),
			num(it.FairEfficiencyPct),
			num(it.TraditionalEfficiencyPct),
			delivery,
			it.DeliveryTierName,
			days,
			strconv.FormatBool(it.IsCompleted),
			strconv.FormatBool(it.WasReopened),
			strconv.FormatBool(it.Eligible),
			it.CappingApplied,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var summaryHeader = []string{
	"developer", "overall_score", "avg_fair_efficiency", "avg_delivery_score",
	"completion_rate", "on_time_rate", "reopened_rate", "avg_days_ahead_behind",
	"total_items", "completed_items", "eligible_items", "reopened_items",
	"total_active_hours", "total_estimated_hours", "low_confidence",
}

// WriteSummaries emits one row per developer.
func WriteSummaries(w io.Writer, summaries []scoring.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return err
	}
	for _, s := range summaries {
		row := []string{
			s.Developer,
			num(s.OverallScore),
			num(s.AvgFairEfficiency),
			num(s.AvgDeliveryScore),
			num(s.CompletionRate),
			num(s.OnTimeRate),
			num(s.ReopenedRate),
			num(s.AvgDaysAheadBehind),
			strconv.Itoa(s.TotalItems),
			strconv.Itoa(s.CompletedItems),
			strconv.Itoa(s.EligibleItems),
			strconv.Itoa(s.ReopenedItems),
			num(s.TotalActiveHours),
			num(s.TotalEstimatedHours),
			strconv.FormatBool(s.LowConfidence),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func num(f float64) string {
	return fmt.Sprintf("%.2f", f)
}
