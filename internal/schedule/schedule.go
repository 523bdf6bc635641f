// Package schedule computes the overlap between arbitrary time intervals and
// configured office hours. All durations are expressed in fractional hours.
package schedule

import (
	"fmt"
	"time"
)

// Config defines the office-hours window used when crediting working time.
type Config struct {
	// OfficeStartHour and OfficeEndHour bound the local working window (24h clock).
	OfficeStartHour int
	OfficeEndHour   int
	// MaxHoursPerDay caps the credit for a single calendar day, so overtime
	// inside the office window still cannot exceed the cap.
	MaxHoursPerDay float64
	// Timezone names the IANA zone intervals are attributed in.
	Timezone string
	// WorkingWeekdays lists the weekdays that accrue time. Empty means Mon-Fri.
	WorkingWeekdays []time.Weekday

	// Location is the resolved Timezone. Set by Normalize.
	Location *time.Location
}

// DefaultConfig returns the site defaults: 9-17 local, 8h daily cap, Mon-Fri.
func DefaultConfig() Config {
	return Config{
		OfficeStartHour: 9,
		OfficeEndHour:   17,
		MaxHoursPerDay:  8.0,
		Timezone:        "America/Mexico_City",
	}
}

// Normalize resolves the timezone and validates the window. It returns a copy
// ready for concurrent use; the original is not modified.
func (c Config) Normalize() (Config, error) {
	if c.OfficeEndHour <= c.OfficeStartHour {
		return c, fmt.Errorf("office window %d-%d is empty", c.OfficeStartHour, c.OfficeEndHour)
	}
	if c.MaxHoursPerDay <= 0 {
		return c, fmt.Errorf("max hours per day must be positive, got %v", c.MaxHoursPerDay)
	}

	if c.Location == nil {
		tz := c.Timezone
		if tz == "" {
			tz = "UTC"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return c, fmt.Errorf("resolve timezone %q: %w", tz, err)
		}
		c.Location = loc
	}

	return c, nil
}

func (c Config) isWorkingDay(d time.Weekday) bool {
	if len(c.WorkingWeekdays) == 0 {
		return d != time.Saturday && d != time.Sunday
	}
	for _, w := range c.WorkingWeekdays {
		if w == d {
			return true
		}
	}
	return false
}

// OverlapHours returns the working-time overlap between [start, end) and the
// configured office hours. Boundaries are absolute instants; they are converted
// to the configured zone before day-splitting so an interval crossing midnight
// UTC lands on the correct local day. Degenerate intervals return 0.
//
// The function is pure and safe to call concurrently.
func OverlapHours(start, end time.Time, cfg Config) float64 {
	if !end.After(start) {
		return 0
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	start = start.In(loc)
	end = end.In(loc)

	total := 0.0

	// Walk one calendar day at a time in the configured zone.
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	for day.Before(end) {
		next := day.AddDate(0, 0, 1)
		if !cfg.isWorkingDay(day.Weekday()) {
			day = next
			continue
		}

		officeStart := time.Date(day.Year(), day.Month(), day.Day(), cfg.OfficeStartHour, 0, 0, 0, loc)
		officeEnd := time.Date(day.Year(), day.Month(), day.Day(), cfg.OfficeEndHour, 0, 0, 0, loc)

		segStart := officeStart
		if start.After(segStart) {
			segStart = start
		}
		segEnd := officeEnd
		if end.Before(segEnd) {
			segEnd = end
		}

		if segEnd.After(segStart) {
			hours := segEnd.Sub(segStart).Hours()
			if hours > cfg.MaxHoursPerDay {
				hours = cfg.MaxHoursPerDay
			}
			total += hours
		}

		day = next
	}

	return total
}
