// Package scoring turns accumulated working time, estimates, and delivery
// timing into bounded per-item efficiency metrics and weighted per-developer
// scores.
package scoring

import (
	"fmt"
)

// DeliveryTier is one row of the ordered delivery-scoring table. Lookup is
// first-match on daysAheadBehind <= UpToDays, so tiers must be sorted by
// UpToDays ascending. Negative days mean early delivery. The final tier is
// implicitly open-ended: it catches everything beyond the previous bound and
// its own UpToDays is ignored, so a table may simply omit it on the last row.
type DeliveryTier struct {
	Name             string  `yaml:"name" json:"name"`
	UpToDays         int     `yaml:"up_to_days" json:"upToDays"`
	Score            float64 `yaml:"score" json:"score"`
	MitigationHours  float64 `yaml:"mitigation_hours" json:"mitigationHours"`
	BonusHoursPerDay float64 `yaml:"bonus_hours_per_day" json:"bonusHoursPerDay"`
}

// Config holds all scoring parameters. Every threshold and score is
// configuration; DefaultConfig documents the defaults.
type Config struct {
	// CompletionBonusPct of the estimate is credited when the item completed.
	CompletionBonusPct float64 `yaml:"completion_bonus_pct"`
	// MaxEfficiencyCap bounds every efficiency percentage.
	MaxEfficiencyCap float64 `yaml:"max_efficiency_cap"`
	// ActiveCapFactor caps credited active hours at factor x estimate.
	ActiveCapFactor float64 `yaml:"active_cap_factor"`
	// Tiers is the ordered delivery table, earliest tier first.
	Tiers []DeliveryTier `yaml:"tiers"`
	// DefaultEstimates supplies per-work-item-type fallback estimates (hours)
	// keyed by lowercase type name; the "default" key covers the rest.
	DefaultEstimates map[string]float64 `yaml:"default_estimates"`
}

// DefaultConfig returns the standard scoring table.
func DefaultConfig() Config {
	return Config{
		CompletionBonusPct: 0.20,
		MaxEfficiencyCap:   150.0,
		ActiveCapFactor:    1.2,
		Tiers: []DeliveryTier{
			{Name: "very_early", UpToDays: -5, Score: 130, BonusHoursPerDay: 1.0},
			{Name: "early", UpToDays: -3, Score: 120, BonusHoursPerDay: 0.5},
			{Name: "slightly_early", UpToDays: -1, Score: 110, BonusHoursPerDay: 0.25},
			{Name: "on_time", UpToDays: 0, Score: 100},
			{Name: "late_1_3", UpToDays: 3, Score: 95, MitigationHours: 2},
			{Name: "late_4_7", UpToDays: 7, Score: 90, MitigationHours: 4},
			{Name: "late_8_14", UpToDays: 14, Score: 85, MitigationHours: 6},
			{Name: "late_15_plus", Score: 70, MitigationHours: 8},
		},
		DefaultEstimates: map[string]float64{
			"user story": 8.0,
			"task":       4.0,
			"bug":        2.0,
			"default":    4.0,
		},
	}
}

// Validate reports configuration errors. Violations are fatal to the run.
func (c Config) Validate() error {
	if c.MaxEfficiencyCap <= 0 {
		return fmt.Errorf("max efficiency cap must be positive, got %v", c.MaxEfficiencyCap)
	}
	if c.CompletionBonusPct < 0 {
		return fmt.Errorf("completion bonus percentage must not be negative, got %v", c.CompletionBonusPct)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("delivery tier table is empty")
	}
	// The last tier's bound is ignored (implicitly open-ended), so ordering
	// only applies to the bounded rows before it.
	for i := 1; i < len(c.Tiers)-1; i++ {
		if c.Tiers[i].UpToDays <= c.Tiers[i-1].UpToDays {
			return fmt.Errorf("delivery tiers out of order: %q (<=%d) after %q (<=%d)",
				c.Tiers[i].Name, c.Tiers[i].UpToDays, c.Tiers[i-1].Name, c.Tiers[i-1].UpToDays)
		}
	}
	return nil
}

// tierFor returns the first tier whose bound covers days; the last tier
// catches everything beyond the previous bound.
func (c Config) tierFor(days int) DeliveryTier {
	for _, tier := range c.Tiers[:len(c.Tiers)-1] {
		if days <= tier.UpToDays {
			return tier
		}
	}
	return c.Tiers[len(c.Tiers)-1]
}

// EstimateFor resolves a fallback estimate for a work item type.
func (c Config) EstimateFor(itemType string) float64 {
	if len(c.DefaultEstimates) == 0 {
		return 0
	}
	if h, ok := c.DefaultEstimates[normalizeType(itemType)]; ok {
		return h
	}
	return c.DefaultEstimates["default"]
}
