package models

import "fmt"

// DateFormat is the calendar-date layout used for occurrence dates.
const DateFormat = "2006-01-02"

// Attendance statuses. A new response from the same user replaces the
// previous one; no history is kept.
const (
	StatusGoing    = "going"
	StatusMaybe    = "maybe"
	StatusNotGoing = "not_going"
)

// ValidStatus reports whether s is a known attendance status.
func ValidStatus(s string) bool {
	return s == StatusGoing || s == StatusMaybe || s == StatusNotGoing
}

// Occurrence is one concrete calendar instance of a group's schedule.
// At most one occurrence exists per (group, date).
type Occurrence struct {
	// ID is derived from the group ID and date, so regeneration is stable.
	ID string

	// GroupID is the owning group.
	GroupID string

	// Date is the calendar date in DateFormat.
	Date string

	// Hour and Minute are copied from the group at generation time.
	Hour   int
	Minute int

	// HostID/HostName identify the member hosting this session, if any.
	// First volunteer wins; HostName is denormalized for display.
	HostID   string
	HostName string

	// Responses are the attendance answers recorded so far.
	Responses []AttendanceResponse
}

// AttendanceResponse is one member's answer for one occurrence.
type AttendanceResponse struct {
	OccurrenceID string
	UserID       string
	Status       string
	RespondedAt  int64
}

// OccurrenceID returns the stable identifier for a (group, date) pair.
func OccurrenceID(groupID, date string) string {
	return fmt.Sprintf("%s_%s", groupID, date)
}
