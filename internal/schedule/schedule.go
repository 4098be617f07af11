// Package schedule computes the upcoming calendar occurrences of a group's
// recurring game night. Generation is a pure function of the schedule spec
// and an injected "today", so callers (and tests) control the clock.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/tablemates/gamenight/internal/models"
)

// DefaultHorizon is how many occurrences are materialized ahead of time
// when a group is created or its schedule changes.
const DefaultHorizon = 8

// ErrInvalidSchedule is returned when a spec has no weekdays or an unknown
// frequency. Validation happens before any store access.
var ErrInvalidSchedule = errors.New("schedule needs at least one weekday and a known frequency")

// Spec is the recurrence pattern of a group: which weekdays, at what time
// of day, and how often the pattern repeats.
type Spec struct {
	Weekdays  []time.Weekday
	Hour      int
	Minute    int
	Frequency models.Frequency
}

// Validate checks the spec without touching the clock.
func (s Spec) Validate() error {
	if len(s.Weekdays) == 0 || !s.Frequency.Valid() {
		return ErrInvalidSchedule
	}
	if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
		return ErrInvalidSchedule
	}
	return nil
}

// Slot is one generated occurrence: a calendar date (midnight, process-local)
// plus the time of day copied from the spec.
type Slot struct {
	Date   time.Time
	Hour   int
	Minute int
}

// Generate returns the next horizon occurrences of spec on or after today,
// ascending and without duplicate dates. Today counts as a candidate when its
// weekday matches.
//
// Weekly and biweekly schedules expand one WEEKLY rrule per weekday. For
// biweekly the rule's DTSTART is that weekday's first candidate on or after
// today, so each weekday's alternation anchors to its own first candidate
// week rather than a shared epoch. Two weekdays in the same group can
// therefore alternate on different calendar weeks; this mirrors how existing
// groups already behave, so the anchoring is kept per weekday on purpose.
//
// Monthly schedules keep only the first occurrence of the pattern within each
// calendar month.
func Generate(spec Spec, today time.Time, horizon int) ([]Slot, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if horizon <= 0 {
		return nil, nil
	}

	day0 := midnight(today)

	interval := 1
	if spec.Frequency == models.FrequencyBiweekly {
		interval = 2
	}

	// Monthly keeps one date out of every ~4 weekly candidates, so expand
	// enough of the weekly stream to cover the horizon in months.
	perWeekday := horizon
	if spec.Frequency == models.FrequencyMonthly {
		perWeekday = horizon * 6
	}

	var dates []time.Time
	seen := make(map[string]bool)
	for _, wd := range uniqueWeekdays(spec.Weekdays) {
		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:     rrule.WEEKLY,
			Interval: interval,
			Count:    perWeekday,
			Dtstart:  firstOnOrAfter(day0, wd),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build recurrence rule: %w", err)
		}
		for _, d := range rule.All() {
			key := d.Format(models.DateFormat)
			if !seen[key] {
				seen[key] = true
				dates = append(dates, d)
			}
		}
	}

	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	if spec.Frequency == models.FrequencyMonthly {
		dates = firstPerMonth(dates)
	}
	if len(dates) > horizon {
		dates = dates[:horizon]
	}

	slots := make([]Slot, len(dates))
	for i, d := range dates {
		slots[i] = Slot{Date: d, Hour: spec.Hour, Minute: spec.Minute}
	}
	return slots, nil
}

// midnight truncates t to its calendar date in the process-local zone.
// The group's stored timezone is advisory; no conversion happens here.
func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// firstOnOrAfter returns the first date with weekday wd on or after day.
func firstOnOrAfter(day time.Time, wd time.Weekday) time.Time {
	offset := (int(wd) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, offset)
}

func uniqueWeekdays(weekdays []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(weekdays))
	out := make([]time.Weekday, 0, len(weekdays))
	for _, wd := range weekdays {
		if !seen[wd] {
			seen[wd] = true
			out = append(out, wd)
		}
	}
	return out
}

// firstPerMonth keeps the earliest date in each (year, month) of an
// ascending slice.
func firstPerMonth(dates []time.Time) []time.Time {
	var out []time.Time
	lastYear, lastMonth := 0, time.Month(0)
	for _, d := range dates {
		if d.Year() == lastYear && d.Month() == lastMonth {
			continue
		}
		lastYear, lastMonth = d.Year(), d.Month()
		out = append(out, d)
	}
	return out
}
