package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"devkpi/internal/timeline"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "devkpi.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRules_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadRules(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Mapping.Categorize("Closed"); got != timeline.CategoryCompletion {
		t.Errorf("default mapping Closed = %s, want completion", got)
	}
	if cfg.Schedule.OfficeStartHour != 9 || cfg.Schedule.OfficeEndHour != 17 {
		t.Errorf("unexpected default office hours: %d-%d", cfg.Schedule.OfficeStartHour, cfg.Schedule.OfficeEndHour)
	}
	if cfg.MinItems != 3 {
		t.Errorf("MinItems = %d, want 3", cfg.MinItems)
	}
}

func TestLoadRules_FullFile(t *testing.T) {
	path := writeRules(t, `
states:
  assigned: ["Backlog"]
  productive: ["In Progress"]
  paused: ["Waiting"]
  completion: ["Released"]
  ignored: ["Abandoned"]
  fallback: paused
schedule:
  office_start_hour: 8
  office_end_hour: 16
  max_hours_per_day: 6
  timezone: UTC
  working_weekdays: [monday, tuesday, Sunday]
scoring:
  completion_bonus_pct: 0.1
weights:
  fair_efficiency: 0.4
  delivery: 0.3
  completion_rate: 0.2
  on_time: 0.1
min_items: 5
`)
	cfg, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Mapping.Categorize("released"); got != timeline.CategoryCompletion {
		t.Errorf("Categorize(released) = %s, want completion", got)
	}
	if got := cfg.Mapping.Categorize("Some Unknown"); got != timeline.CategoryPaused {
		t.Errorf("fallback = %s, want paused", got)
	}
	if cfg.Schedule.OfficeEndHour != 16 || cfg.Schedule.MaxHoursPerDay != 6 {
		t.Errorf("schedule not applied: %+v", cfg.Schedule)
	}
	if cfg.Schedule.Timezone != "UTC" {
		t.Errorf("timezone = %s", cfg.Schedule.Timezone)
	}
	if len(cfg.Schedule.WorkingWeekdays) != 3 || cfg.Schedule.WorkingWeekdays[2] != time.Sunday {
		t.Errorf("working weekdays = %v", cfg.Schedule.WorkingWeekdays)
	}
	if cfg.Scoring.CompletionBonusPct != 0.1 {
		t.Errorf("completion bonus = %v", cfg.Scoring.CompletionBonusPct)
	}
	// Tier table was not overridden and keeps its defaults.
	if len(cfg.Scoring.Tiers) == 0 {
		t.Error("tier table lost during merge")
	}
	if cfg.Weights.FairEfficiency != 0.4 {
		t.Errorf("weights not applied: %+v", cfg.Weights)
	}
	if cfg.MinItems != 5 {
		t.Errorf("MinItems = %d, want 5", cfg.MinItems)
	}
}

func TestLoadRules_CustomTierTable(t *testing.T) {
	// A naturally written table bounds every row, including the last one.
	path := writeRules(t, `
scoring:
  tiers:
    - {name: very_early, up_to_days: -5, score: 130, bonus_hours_per_day: 1.0}
    - {name: early, up_to_days: -3, score: 120, bonus_hours_per_day: 0.5}
    - {name: slightly_early, up_to_days: -1, score: 110, bonus_hours_per_day: 0.25}
    - {name: on_time, up_to_days: 0, score: 100}
    - {name: late_1_3, up_to_days: 3, score: 95, mitigation_hours: 2}
    - {name: late_4_7, up_to_days: 7, score: 90, mitigation_hours: 4}
    - {name: late_8_14, up_to_days: 14, score: 85, mitigation_hours: 6}
    - {name: late_15_plus, up_to_days: 15, score: 70, mitigation_hours: 8}
`)
	cfg, err := LoadRules(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Scoring.Tiers) != 8 {
		t.Fatalf("got %d tiers, want 8", len(cfg.Scoring.Tiers))
	}
	last := cfg.Scoring.Tiers[7]
	if last.Name != "late_15_plus" || last.Score != 70 || last.MitigationHours != 8 {
		t.Errorf("last tier = %+v", last)
	}
	if err := cfg.Scoring.Validate(); err != nil {
		t.Errorf("loaded table failed validation: %v", err)
	}
}

func TestLoadRules_RejectsBadTierOrder(t *testing.T) {
	path := writeRules(t, `
scoring:
  tiers:
    - {name: late, up_to_days: 7, score: 90}
    - {name: on_time, up_to_days: 0, score: 100}
    - {name: very_late, score: 70}
`)
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for out-of-order tiers")
	}
}

func TestLoadRules_RejectsBadWeights(t *testing.T) {
	path := writeRules(t, `
weights:
  fair_efficiency: 0.9
  delivery: 0.9
`)
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for weights not summing to 1.0")
	}
}

func TestLoadRules_BadWeekday(t *testing.T) {
	path := writeRules(t, "schedule:\n  working_weekdays: [funday]\n")
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for unknown weekday")
	}
}

func TestLoadRules_BadFallback(t *testing.T) {
	path := writeRules(t, "states:\n  fallback: nonsense\n")
	if _, err := LoadRules(path); err == nil {
		t.Fatal("expected error for invalid fallback category")
	}
}

func TestGodotenvQuoting(t *testing.T) {
	content := `AZDO_PAT='token with "double quotes"'`
	tmpfile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(tmpfile, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	env, err := godotenv.Read(tmpfile)
	if err != nil {
		t.Fatalf("Error reading env: %v", err)
	}

	expected := `token with "double quotes"`
	if env["AZDO_PAT"] != expected {
		t.Errorf("Expected %s, got %s", expected, env["AZDO_PAT"])
	}
}
