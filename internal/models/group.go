package models

import "time"

// Frequency describes how often a group's game night repeats.
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether f is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Group represents a recurring game night group.
type Group struct {
	// ID is the unique identifier for the group (UUID format).
	ID string

	// Name is the display name of the group (e.g., "Thursday Catan Crew").
	Name string

	// Weekdays are the scheduled weekdays (non-empty, unique).
	Weekdays []time.Weekday

	// Hour and Minute are the session start time of day.
	// No timezone math is performed on them; Timezone is display-only.
	Hour   int
	Minute int

	// Timezone is the IANA timezone name for display purposes.
	Timezone string

	// Frequency is how often the schedule repeats.
	Frequency Frequency

	// InviteCode is the 6-character shareable code resolving to this group.
	// Unique across groups; regenerable by the admin.
	InviteCode string

	// AdminID is the user ID of the single admin member.
	// Kept in sync with the is_admin flag on memberships.
	AdminID string

	// MemberCount is the denormalized count of memberships.
	// Maintained only inside the storage layer's transactions.
	MemberCount int

	// CreatedAt/UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// Membership links a user to a group.
// Exactly one membership per group has IsAdmin set, and its user ID
// equals the group's AdminID.
type Membership struct {
	GroupID string
	UserID  string

	// IsAdmin marks the group's single admin. Moved, never duplicated.
	IsAdmin bool

	// JoinedAt is the Unix timestamp when the user joined.
	// Drives admin succession: earliest joiner wins, ties broken by user ID.
	JoinedAt int64
}
