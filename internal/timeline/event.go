// Package timeline converts ordered work-item state-change events into
// accumulated durations per semantic category.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Category is the semantic class of a raw work-item state. The set is closed;
// the raw-label-to-category mapping is injected configuration.
type Category string

const (
	// CategoryAssigned marks states where the item is owned but not worked on.
	CategoryAssigned Category = "assigned"
	// CategoryProductive marks states that accrue active (business-hours) time.
	CategoryProductive Category = "productive"
	// CategoryPaused marks blocked/on-hold states; they accrue wall-clock time.
	CategoryPaused Category = "paused"
	// CategoryCompletion marks terminal done states.
	CategoryCompletion Category = "completion"
	// CategoryIgnored marks states excluded from all accounting.
	CategoryIgnored Category = "ignored"
)

func validCategory(c Category) bool {
	switch c {
	case CategoryAssigned, CategoryProductive, CategoryPaused, CategoryCompletion, CategoryIgnored:
		return true
	}
	return false
}

// StateEvent is a single state change of one work item.
type StateEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RawState  string    `json:"rawState"`
	Category  Category  `json:"category"`
}

// Mapping resolves raw state labels to categories, case-insensitively.
// Unmapped labels fail closed to the configured fallback instead of erroring
// at arbitrary points.
type Mapping struct {
	labels   map[string]Category
	fallback Category
}

// NewMapping builds a validated mapping table. An empty fallback defaults to
// CategoryIgnored.
func NewMapping(labels map[string]Category, fallback Category) (Mapping, error) {
	if fallback == "" {
		fallback = CategoryIgnored
	}
	if !validCategory(fallback) {
		return Mapping{}, fmt.Errorf("unknown fallback category %q", fallback)
	}

	m := Mapping{
		labels:   make(map[string]Category, len(labels)),
		fallback: fallback,
	}
	for label, cat := range labels {
		if !validCategory(cat) {
			return Mapping{}, fmt.Errorf("state %q mapped to unknown category %q", label, cat)
		}
		m.labels[strings.ToLower(strings.TrimSpace(label))] = cat
	}
	return m, nil
}

// Categorize returns the category for a raw state label.
func (m Mapping) Categorize(raw string) Category {
	if cat, ok := m.labels[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return cat
	}
	if m.fallback == "" {
		return CategoryIgnored
	}
	return m.fallback
}

// Event builds a StateEvent with the category resolved through the mapping.
func (m Mapping) Event(ts time.Time, raw string) StateEvent {
	return StateEvent{Timestamp: ts, RawState: raw, Category: m.Categorize(raw)}
}
