package service

import (
	"errors"
	"time"

	"github.com/tablemates/gamenight/internal/models"
	"github.com/tablemates/gamenight/internal/schedule"
	"github.com/tablemates/gamenight/internal/storage"
)

// Result is the envelope every use-case hands back to its caller. Expected
// business-rule violations come back as Success=false with a message, so the
// calling layer renders errors without special-casing error types. Only
// store/transport failures propagate as Go errors (retryable).
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok() Result {
	return Result{Success: true}
}

func fail(msg string) Result {
	return Result{Error: msg}
}

// domainErrors are the failures translated into result messages instead of
// propagating. Everything else is infrastructure.
var domainErrors = []error{
	storage.ErrGroupNotFound,
	storage.ErrOccurrenceNotFound,
	storage.ErrNotAMember,
	storage.ErrNotAdmin,
	storage.ErrCannotRemoveSelf,
	storage.ErrTargetNotMember,
	storage.ErrAlreadyHosted,
	schedule.ErrInvalidSchedule,
}

func domainMessage(err error) (string, bool) {
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return d.Error(), true
		}
	}
	return "", false
}

// Member is a membership decorated with the user's display name.
type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	IsAdmin     bool   `json:"is_admin"`
	JoinedAt    int64  `json:"joined_at"`
}

// ResponseView is one attendance answer on an occurrence.
type ResponseView struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// OccurrenceView is one occurrence with derived attendance counts and the
// seating-capacity hint.
type OccurrenceView struct {
	ID           string         `json:"id"`
	Date         string         `json:"date"`
	Hour         int            `json:"hour"`
	Minute       int            `json:"minute"`
	HostID       string         `json:"host_id,omitempty"`
	HostName     string         `json:"host_name,omitempty"`
	Going        int            `json:"going"`
	Maybe        int            `json:"maybe"`
	CapacityHint string         `json:"capacity_hint"`
	Responses    []ResponseView `json:"responses"`
}

// GroupView is the full read model of a group.
type GroupView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Weekdays    []time.Weekday   `json:"weekdays"`
	Hour        int              `json:"hour"`
	Minute      int              `json:"minute"`
	Timezone    string           `json:"timezone"`
	Frequency   models.Frequency `json:"frequency"`
	InviteCode  string           `json:"invite_code"`
	AdminID     string           `json:"admin_id"`
	MemberCount int              `json:"member_count"`
	Members     []Member         `json:"members,omitempty"`
	Occurrences []OccurrenceView `json:"occurrences,omitempty"`
}

// GroupResult is a use-case result carrying a group view.
type GroupResult struct {
	Result
	Group *GroupView `json:"group,omitempty"`
}

// GroupListResult carries the caller's groups.
type GroupListResult struct {
	Result
	Groups []*GroupView `json:"groups"`
}

// LeaveResult reports whether leaving dissolved the group.
type LeaveResult struct {
	Result
	GroupDeleted bool `json:"group_deleted"`
}

// OccurrenceResult is a use-case result carrying an occurrence view.
type OccurrenceResult struct {
	Result
	Occurrence *OccurrenceView `json:"occurrence,omitempty"`
}

// UserView is the public shape of a user account.
type UserView struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	CreatedAt   int64  `json:"created_at"`
}

// AuthResult carries a session token and the account it belongs to.
type AuthResult struct {
	Result
	Token string    `json:"token,omitempty"`
	User  *UserView `json:"user,omitempty"`
}

func newOccurrenceView(occ *models.Occurrence) OccurrenceView {
	view := OccurrenceView{
		ID:        occ.ID,
		Date:      occ.Date,
		Hour:      occ.Hour,
		Minute:    occ.Minute,
		HostID:    occ.HostID,
		HostName:  occ.HostName,
		Responses: make([]ResponseView, 0, len(occ.Responses)),
	}
	for _, r := range occ.Responses {
		view.Responses = append(view.Responses, ResponseView{UserID: r.UserID, Status: r.Status})
		switch r.Status {
		case models.StatusGoing:
			view.Going++
		case models.StatusMaybe:
			view.Maybe++
		}
	}
	view.CapacityHint = CapacityHint(view.Going)
	return view
}

func newGroupView(group *models.Group) *GroupView {
	return &GroupView{
		ID:          group.ID,
		Name:        group.Name,
		Weekdays:    group.Weekdays,
		Hour:        group.Hour,
		Minute:      group.Minute,
		Timezone:    group.Timezone,
		Frequency:   group.Frequency,
		InviteCode:  group.InviteCode,
		AdminID:     group.AdminID,
		MemberCount: group.MemberCount,
	}
}
