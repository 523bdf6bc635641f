// Package render formats scoring results as text tables for terminal output.
package render

import (
	"fmt"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"devkpi/internal/scoring"
)

// Summaries renders the developer leaderboard sorted by overall score,
// highest first.
func Summaries(summaries []scoring.Summary) string {
	sorted := make([]scoring.Summary, len(summaries))
	copy(sorted, summaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OverallScore > sorted[j].OverallScore
	})

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{
		"Developer", "Overall", "Fair Eff %", "Delivery", "Completion %", "On-Time %", "Items", "Note",
	})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for _, s := range sorted {
		note := ""
		if s.LowConfidence {
			note = "low sample"
		}
		tbl.AppendRow(table.Row{
			s.Developer,
			fmt.Sprintf("%.1f", s.OverallScore),
			fmt.Sprintf("%.1f", s.AvgFairEfficiency),
			fmt.Sprintf("%.1f", s.AvgDeliveryScore),
			fmt.Sprintf("%.1f", s.CompletionRate),
			fmt.Sprintf("%.1f", s.OnTimeRate),
			s.TotalItems,
			note,
		})
	}
	return tbl.Render()
}

// Items renders per-item metrics grouped under whatever order the caller
// supplied, typically ascending item id.
func Items(items []scoring.ItemMetrics) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{
		"ID", "Developer", "Est h", "Active h", "Paused h", "Fair Eff %", "Delivery", "Tier", "Flags",
	})

	for _, it := range items {
		delivery := "-"
		if it.HasTiming() {
			delivery = fmt.Sprintf("%.0f", it.DeliveryScore)
		}
		tbl.AppendRow(table.Row{
			it.ItemID,
			it.Developer,
			fmt.Sprintf("%.1f", it.EstimatedHours),
			fmt.Sprintf("%.1f", it.ActiveHours),
			fmt.Sprintf("%.1f", it.PausedHours),
			fmt.Sprintf("%.1f", it.FairEfficiencyPct),
			delivery,
			it.DeliveryTierName,
			flags(it),
		})
	}
	return tbl.Render()
}

func flags(it scoring.ItemMetrics) string {
	out := ""
	if it.WasReopened {
		out += "R"
	}
	if !it.Eligible {
		out += "X"
	}
	if it.CappingApplied == scoring.CappingAtEstimate {
		out += "C"
	}
	return out
}
