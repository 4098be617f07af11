package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/tablemates/gamenight/internal/models"
)

// monday is a known Monday used as the injected "today" in most tests.
var monday = time.Date(2024, time.January, 1, 10, 30, 0, 0, time.UTC)

func dates(t *testing.T, slots []Slot) []string {
	t.Helper()
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Date.Format(models.DateFormat)
	}
	return out
}

func TestGenerateWeeklySingleWeekday(t *testing.T) {
	spec := Spec{
		Weekdays:  []time.Weekday{time.Thursday},
		Hour:      19,
		Minute:    0,
		Frequency: models.FrequencyWeekly,
	}

	slots, err := Generate(spec, monday, 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	if got := slots[0].Date.Format(models.DateFormat); got != "2024-01-04" {
		t.Errorf("first occurrence: expected upcoming Thursday 2024-01-04, got %s", got)
	}
	// Eighth occurrence is 7 weeks after the first.
	if got := slots[7].Date.Format(models.DateFormat); got != "2024-02-22" {
		t.Errorf("eighth occurrence: expected 2024-02-22, got %s", got)
	}
	for i, s := range slots {
		if s.Date.Weekday() != time.Thursday {
			t.Errorf("slot %d falls on %v, want Thursday", i, s.Date.Weekday())
		}
		if s.Hour != 19 || s.Minute != 0 {
			t.Errorf("slot %d time: got %d:%02d, want 19:00", i, s.Hour, s.Minute)
		}
		if i > 0 && slots[i].Date.Sub(slots[i-1].Date) != 7*24*time.Hour {
			t.Errorf("slots %d and %d are not a week apart", i-1, i)
		}
	}
}

func TestGenerateWeeklyMultipleWeekdays(t *testing.T) {
	spec := Spec{
		Weekdays:  []time.Weekday{time.Thursday, time.Monday},
		Hour:      18,
		Minute:    30,
		Frequency: models.FrequencyWeekly,
	}

	slots, err := Generate(spec, monday, 5)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Today is a Monday, so it counts as the first candidate.
	want := []string{"2024-01-01", "2024-01-04", "2024-01-08", "2024-01-11", "2024-01-15"}
	got := dates(t, slots)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dates mismatch: got %v, want %v", got, want)
		}
	}
}

func TestGenerateProperties(t *testing.T) {
	specs := []Spec{
		{Weekdays: []time.Weekday{time.Tuesday}, Frequency: models.FrequencyWeekly},
		{Weekdays: []time.Weekday{time.Tuesday, time.Saturday}, Frequency: models.FrequencyWeekly},
		{Weekdays: []time.Weekday{time.Sunday, time.Wednesday}, Frequency: models.FrequencyBiweekly},
		{Weekdays: []time.Weekday{time.Friday}, Frequency: models.FrequencyMonthly},
		// Duplicate weekday entries must not produce duplicate dates.
		{Weekdays: []time.Weekday{time.Monday, time.Monday}, Frequency: models.FrequencyWeekly},
	}

	for _, spec := range specs {
		allowed := make(map[time.Weekday]bool)
		for _, wd := range spec.Weekdays {
			allowed[wd] = true
		}

		for _, horizon := range []int{1, 4, 13} {
			slots, err := Generate(spec, monday, horizon)
			if err != nil {
				t.Fatalf("Generate(%+v, %d) failed: %v", spec, horizon, err)
			}
			if len(slots) != horizon {
				t.Fatalf("Generate(%+v, %d): got %d slots", spec, horizon, len(slots))
			}

			seen := make(map[string]bool)
			for i, s := range slots {
				if s.Date.Before(midnight(monday)) {
					t.Errorf("%+v: slot %d is before today", spec, i)
				}
				if !allowed[s.Date.Weekday()] {
					t.Errorf("%+v: slot %d falls on %v, outside the weekday set", spec, i, s.Date.Weekday())
				}
				key := s.Date.Format(models.DateFormat)
				if seen[key] {
					t.Errorf("%+v: duplicate date %s", spec, key)
				}
				seen[key] = true
				if i > 0 && !slots[i-1].Date.Before(s.Date) {
					t.Errorf("%+v: slots not strictly ascending at %d", spec, i)
				}
			}
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	spec := Spec{
		Weekdays:  []time.Weekday{time.Wednesday, time.Sunday},
		Frequency: models.FrequencyBiweekly,
	}

	a, err := Generate(spec, monday, 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	b, err := Generate(spec, monday, 10)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date) {
			t.Fatalf("generation is not deterministic at slot %d: %v vs %v", i, a[i].Date, b[i].Date)
		}
	}
}

func TestGenerateBiweeklySpacing(t *testing.T) {
	spec := Spec{
		Weekdays:  []time.Weekday{time.Tuesday, time.Friday},
		Frequency: models.FrequencyBiweekly,
	}

	slots, err := Generate(spec, monday, 8)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// Consecutive dates for a single weekday must be exactly 14 days apart,
	// each weekday anchored to its own first candidate.
	last := make(map[time.Weekday]time.Time)
	for _, s := range slots {
		wd := s.Date.Weekday()
		if prev, ok := last[wd]; ok {
			if s.Date.Sub(prev) != 14*24*time.Hour {
				t.Errorf("%v occurrences %s and %s are not 14 days apart",
					wd, prev.Format(models.DateFormat), s.Date.Format(models.DateFormat))
			}
		}
		last[wd] = s.Date
	}
	if got := slots[0].Date.Format(models.DateFormat); got != "2024-01-02" {
		t.Errorf("first Tuesday: expected 2024-01-02, got %s", got)
	}
}

func TestGenerateMonthlyOnePerMonth(t *testing.T) {
	spec := Spec{
		Weekdays:  []time.Weekday{time.Thursday},
		Frequency: models.FrequencyMonthly,
	}

	slots, err := Generate(spec, monday, 6)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(slots) != 6 {
		t.Fatalf("expected 6 slots, got %d", len(slots))
	}

	want := []string{"2024-01-04", "2024-02-01", "2024-03-07", "2024-04-04", "2024-05-02", "2024-06-06"}
	got := dates(t, slots)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("monthly dates mismatch: got %v, want %v", got, want)
		}
	}

	months := make(map[string]bool)
	for _, s := range slots {
		key := s.Date.Format("2006-01")
		if months[key] {
			t.Errorf("more than one occurrence in month %s", key)
		}
		months[key] = true
	}
}

func TestGenerateMonthlyMultipleWeekdays(t *testing.T) {
	// With Monday+Thursday, the first occurrence of the pattern in each month
	// wins, whichever weekday it lands on.
	spec := Spec{
		Weekdays:  []time.Weekday{time.Monday, time.Thursday},
		Frequency: models.FrequencyMonthly,
	}

	slots, err := Generate(spec, monday, 3)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := []string{"2024-01-01", "2024-02-01", "2024-03-04"}
	got := dates(t, slots)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dates mismatch: got %v, want %v", got, want)
		}
	}
}

func TestGenerateInvalidSpec(t *testing.T) {
	cases := []Spec{
		{Weekdays: nil, Frequency: models.FrequencyWeekly},
		{Weekdays: []time.Weekday{time.Monday}, Frequency: "fortnightly"},
		{Weekdays: []time.Weekday{time.Monday}, Frequency: models.FrequencyWeekly, Hour: 24},
		{Weekdays: []time.Weekday{time.Monday}, Frequency: models.FrequencyWeekly, Minute: 60},
	}
	for _, spec := range cases {
		if _, err := Generate(spec, monday, 4); !errors.Is(err, ErrInvalidSchedule) {
			t.Errorf("Generate(%+v): expected ErrInvalidSchedule, got %v", spec, err)
		}
	}
}

func TestGenerateZeroHorizon(t *testing.T) {
	spec := Spec{Weekdays: []time.Weekday{time.Monday}, Frequency: models.FrequencyWeekly}
	slots, err := Generate(spec, monday, 0)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("expected no slots for zero horizon, got %d", len(slots))
	}
}
