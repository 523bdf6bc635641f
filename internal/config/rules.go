package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"devkpi/internal/engine"
	"devkpi/internal/schedule"
	"devkpi/internal/scoring"
	"devkpi/internal/timeline"
)

// RulesFile is the YAML shape of the rules file. Every section is optional;
// missing sections fall back to built-in defaults.
type RulesFile struct {
	States struct {
		Assigned   []string `yaml:"assigned"`
		Productive []string `yaml:"productive"`
		Paused     []string `yaml:"paused"`
		Completion []string `yaml:"completion"`
		Ignored    []string `yaml:"ignored"`
		Fallback   string   `yaml:"fallback"`
	} `yaml:"states"`
	Schedule *struct {
		OfficeStartHour *int     `yaml:"office_start_hour"`
		OfficeEndHour   *int     `yaml:"office_end_hour"`
		MaxHoursPerDay  *float64 `yaml:"max_hours_per_day"`
		Timezone        string   `yaml:"timezone"`
		WorkingWeekdays []string `yaml:"working_weekdays"`
	} `yaml:"schedule"`
	Scoring  *scoring.Config  `yaml:"scoring"`
	Weights  *scoring.Weights `yaml:"weights"`
	MinItems *int             `yaml:"min_items"`
}

// DefaultStateLabels is the built-in state mapping used when the rules file
// does not define one. The labels match the common Azure DevOps agile process.
func DefaultStateLabels() map[string]timeline.Category {
	return map[string]timeline.Category{
		"new":       timeline.CategoryAssigned,
		"to do":     timeline.CategoryAssigned,
		"approved":  timeline.CategoryAssigned,
		"active":    timeline.CategoryProductive,
		"doing":     timeline.CategoryProductive,
		"committed": timeline.CategoryProductive,
		"blocked":   timeline.CategoryPaused,
		"on hold":   timeline.CategoryPaused,
		"closed":    timeline.CategoryCompletion,
		"done":      timeline.CategoryCompletion,
		"removed":   timeline.CategoryIgnored,
	}
}

var weekdayNames = map[string]int{
	"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
	"thursday": 4, "friday": 5, "saturday": 6,
}

// LoadRules reads the YAML rules file at path and builds the full engine
// configuration. A missing file is not an error; defaults apply.
func LoadRules(path string) (engine.Config, error) {
	var rf RulesFile
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &rf); err != nil {
			return engine.Config{}, fmt.Errorf("rules file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// defaults only
	default:
		return engine.Config{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return buildEngineConfig(rf)
}

func buildEngineConfig(rf RulesFile) (engine.Config, error) {
	// 1. State mapping
	labels := map[string]timeline.Category{}
	sections := []struct {
		states []string
		cat    timeline.Category
	}{
		{rf.States.Assigned, timeline.CategoryAssigned},
		{rf.States.Productive, timeline.CategoryProductive},
		{rf.States.Paused, timeline.CategoryPaused},
		{rf.States.Completion, timeline.CategoryCompletion},
		{rf.States.Ignored, timeline.CategoryIgnored},
	}
	for _, s := range sections {
		for _, state := range s.states {
			labels[state] = s.cat
		}
	}
	if len(labels) == 0 {
		labels = DefaultStateLabels()
	}
	mapping, err := timeline.NewMapping(labels, timeline.Category(rf.States.Fallback))
	if err != nil {
		return engine.Config{}, err
	}

	// 2. Schedule
	sched := schedule.DefaultConfig()
	if s := rf.Schedule; s != nil {
		if s.OfficeStartHour != nil {
			sched.OfficeStartHour = *s.OfficeStartHour
		}
		if s.OfficeEndHour != nil {
			sched.OfficeEndHour = *s.OfficeEndHour
		}
		if s.MaxHoursPerDay != nil {
			sched.MaxHoursPerDay = *s.MaxHoursPerDay
		}
		if s.Timezone != "" {
			sched.Timezone = s.Timezone
		}
		for _, name := range s.WorkingWeekdays {
			day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return engine.Config{}, fmt.Errorf("unknown weekday %q in schedule.working_weekdays", name)
			}
			sched.WorkingWeekdays = append(sched.WorkingWeekdays, time.Weekday(day))
		}
	}

	// 3. Scoring and weights
	scoreCfg := scoring.DefaultConfig()
	if rf.Scoring != nil {
		scoreCfg = mergeScoring(scoreCfg, *rf.Scoring)
	}
	if err := scoreCfg.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("scoring config: %w", err)
	}
	weights := scoring.DefaultWeights()
	if rf.Weights != nil {
		weights = *rf.Weights
	}
	if err := weights.Validate(); err != nil {
		return engine.Config{}, err
	}

	minItems := 3
	if rf.MinItems != nil {
		minItems = *rf.MinItems
	}

	return engine.Config{
		Mapping:  mapping,
		Schedule: sched,
		Scoring:  scoreCfg,
		Weights:  weights,
		MinItems: minItems,
	}, nil
}

// mergeScoring overlays non-zero fields from the file on top of the defaults.
// Tier tables and estimate maps replace wholesale when present.
func mergeScoring(base, override scoring.Config) scoring.Config {
	if override.CompletionBonusPct != 0 {
		base.CompletionBonusPct = override.CompletionBonusPct
	}
	if override.MaxEfficiencyCap != 0 {
		base.MaxEfficiencyCap = override.MaxEfficiencyCap
	}
	if override.ActiveCapFactor != 0 {
		base.ActiveCapFactor = override.ActiveCapFactor
	}
	if len(override.Tiers) > 0 {
		base.Tiers = override.Tiers
	}
	if len(override.DefaultEstimates) > 0 {
		base.DefaultEstimates = override.DefaultEstimates
	}
	return base
}
