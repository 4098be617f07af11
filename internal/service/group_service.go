package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tablemates/gamenight/internal/invite"
	"github.com/tablemates/gamenight/internal/models"
	"github.com/tablemates/gamenight/internal/schedule"
	"github.com/tablemates/gamenight/internal/storage"
)

// inviteCodeAttempts bounds the regenerate-on-collision loop. Six random
// characters over a 32-character alphabet collide rarely, but the store
// enforces uniqueness and we retry rather than fail on the first clash.
const inviteCodeAttempts = 5

// GroupService orchestrates the group lifecycle: create, join, leave,
// remove, transfer, delete, and schedule changes. Every method takes the
// acting user's ID explicitly.
type GroupService struct {
	store   storage.Store
	horizon int
	now     func() time.Time
}

// NewGroupService creates a GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{
		store:   store,
		horizon: schedule.DefaultHorizon,
		now:     time.Now,
	}
}

// WithHorizon overrides how many occurrences are materialized ahead.
func (s *GroupService) WithHorizon(horizon int) *GroupService {
	s.horizon = horizon
	return s
}

// WithClock overrides the clock, for tests.
func (s *GroupService) WithClock(now func() time.Time) *GroupService {
	s.now = now
	return s
}

// CreateGroupParams are the caller-supplied fields for a new group.
type CreateGroupParams struct {
	Name      string           `json:"name"`
	Weekdays  []time.Weekday   `json:"weekdays"`
	Hour      int              `json:"hour"`
	Minute    int              `json:"minute"`
	Timezone  string           `json:"timezone"`
	Frequency models.Frequency `json:"frequency"`
}

func (p CreateGroupParams) spec() schedule.Spec {
	return schedule.Spec{
		Weekdays:  p.Weekdays,
		Hour:      p.Hour,
		Minute:    p.Minute,
		Frequency: p.Frequency,
	}
}

// Create validates the schedule, generates the first batch of occurrences,
// and persists everything atomically with the creator as admin.
func (s *GroupService) Create(ctx context.Context, userID string, p CreateGroupParams) (*GroupResult, error) {
	slog.Info("Create group request", "user_id", userID, "name", p.Name)

	if strings.TrimSpace(p.Name) == "" {
		return &GroupResult{Result: fail("group name is required")}, nil
	}

	slots, err := schedule.Generate(p.spec(), s.now(), s.horizon)
	if err != nil {
		if msg, isDomain := domainMessage(err); isDomain {
			return &GroupResult{Result: fail(msg)}, nil
		}
		return nil, err
	}

	group := &models.Group{
		Name:      strings.TrimSpace(p.Name),
		Weekdays:  p.Weekdays,
		Hour:      p.Hour,
		Minute:    p.Minute,
		Timezone:  p.Timezone,
		Frequency: p.Frequency,
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		group.InviteCode, err = invite.Generate()
		if err != nil {
			return nil, err
		}
		err = s.store.CreateGroup(ctx, group, userID, slotsToOccurrences(slots))
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrInviteCodeTaken) {
			return nil, err
		}
		group.ID = "" // retry with a fresh code and ID
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find a free invite code: %w", err)
	}

	slog.Info("Group created", "group_id", group.ID, "admin_id", userID, "occurrences", len(slots))
	return s.groupResult(ctx, group.ID)
}

// Get returns the full group view. Only members may see it; the group can be
// referenced by ID or invite code.
func (s *GroupService) Get(ctx context.Context, ref, userID string) (*GroupResult, error) {
	group, err := s.resolveGroup(ctx, ref)
	if err != nil {
		return groupFailure(err)
	}
	if _, err := s.store.GetMembership(ctx, group.ID, userID); err != nil {
		return groupFailure(err)
	}
	return s.groupResult(ctx, group.ID)
}

// List returns summaries of the caller's groups.
func (s *GroupService) List(ctx context.Context, userID string) (*GroupListResult, error) {
	groups, err := s.store.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]*GroupView, len(groups))
	for i, g := range groups {
		views[i] = newGroupView(g)
	}
	return &GroupListResult{Result: ok(), Groups: views}, nil
}

// Join adds the caller to a group referenced by ID or invite code.
// Joining a group twice is a success without effect.
func (s *GroupService) Join(ctx context.Context, ref, userID string) (*GroupResult, error) {
	slog.Info("Join group request", "user_id", userID, "ref", ref)

	group, err := s.resolveGroup(ctx, ref)
	if err != nil {
		return groupFailure(err)
	}
	if err := s.store.JoinGroup(ctx, group.ID, userID); err != nil {
		return groupFailure(err)
	}

	slog.Info("User joined group", "group_id", group.ID, "user_id", userID)
	return s.groupResult(ctx, group.ID)
}

// Leave removes the caller from a group. An admin leaving hands the role to
// the earliest-joined remaining member; the last member out dissolves the
// group entirely.
func (s *GroupService) Leave(ctx context.Context, groupID, userID string) (*LeaveResult, error) {
	slog.Info("Leave group request", "group_id", groupID, "user_id", userID)

	deleted, err := s.store.LeaveGroup(ctx, groupID, userID)
	if err != nil {
		if msg, isDomain := domainMessage(err); isDomain {
			return &LeaveResult{Result: fail(msg)}, nil
		}
		return nil, err
	}

	slog.Info("User left group", "group_id", groupID, "user_id", userID, "group_deleted", deleted)
	return &LeaveResult{Result: ok(), GroupDeleted: deleted}, nil
}

// RemoveMember lets the admin remove another member.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, adminID, targetID string) (*GroupResult, error) {
	slog.Info("Remove member request", "group_id", groupID, "admin_id", adminID, "target_id", targetID)

	if err := s.store.RemoveMember(ctx, groupID, adminID, targetID); err != nil {
		return groupFailure(err)
	}
	return s.groupResult(ctx, groupID)
}

// TransferAdmin hands the admin role to another member.
func (s *GroupService) TransferAdmin(ctx context.Context, groupID, adminID, newAdminID string) (*GroupResult, error) {
	slog.Info("Transfer admin request", "group_id", groupID, "admin_id", adminID, "new_admin_id", newAdminID)

	if err := s.store.TransferAdmin(ctx, groupID, adminID, newAdminID); err != nil {
		return groupFailure(err)
	}
	return s.groupResult(ctx, groupID)
}

// Delete removes the group and everything it owns.
func (s *GroupService) Delete(ctx context.Context, groupID, adminID string) (*Result, error) {
	slog.Info("Delete group request", "group_id", groupID, "admin_id", adminID)

	if err := s.store.DeleteGroup(ctx, groupID, adminID); err != nil {
		if msg, isDomain := domainMessage(err); isDomain {
			r := fail(msg)
			return &r, nil
		}
		return nil, err
	}

	slog.Info("Group deleted", "group_id", groupID)
	r := ok()
	return &r, nil
}

// UpdateSchedule replaces the group's schedule. Future occurrences are
// regenerated from the new spec; past ones are left untouched.
func (s *GroupService) UpdateSchedule(ctx context.Context, groupID, adminID string, p CreateGroupParams) (*GroupResult, error) {
	slog.Info("Update schedule request", "group_id", groupID, "admin_id", adminID)

	now := s.now()
	slots, err := schedule.Generate(p.spec(), now, s.horizon)
	if err != nil {
		return groupFailure(err)
	}

	group := &models.Group{
		ID:        groupID,
		Weekdays:  p.Weekdays,
		Hour:      p.Hour,
		Minute:    p.Minute,
		Timezone:  p.Timezone,
		Frequency: p.Frequency,
	}
	fromDate := now.Format(models.DateFormat)
	if err := s.store.ReplaceSchedule(ctx, group, adminID, fromDate, slotsToOccurrences(slots)); err != nil {
		return groupFailure(err)
	}

	slog.Info("Schedule updated", "group_id", groupID, "occurrences", len(slots))
	return s.groupResult(ctx, groupID)
}

// RegenerateInviteCode replaces the group's invite code with a fresh one,
// retrying on the (unlikely) collision.
func (s *GroupService) RegenerateInviteCode(ctx context.Context, groupID, adminID string) (*GroupResult, error) {
	slog.Info("Regenerate invite code request", "group_id", groupID, "admin_id", adminID)

	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		var code string
		code, err = invite.Generate()
		if err != nil {
			return nil, err
		}
		err = s.store.UpdateInviteCode(ctx, groupID, adminID, code)
		if err == nil {
			return s.groupResult(ctx, groupID)
		}
		if !errors.Is(err, storage.ErrInviteCodeTaken) {
			return groupFailure(err)
		}
	}
	return nil, fmt.Errorf("failed to find a free invite code: %w", err)
}

// resolveGroup finds a group by invite code (case-insensitive) or by ID.
func (s *GroupService) resolveGroup(ctx context.Context, ref string) (*models.Group, error) {
	code := invite.Normalize(ref)
	if invite.Plausible(code) {
		group, err := s.store.GetGroupByInviteCode(ctx, code)
		if err == nil {
			return group, nil
		}
		if !errors.Is(err, storage.ErrGroupNotFound) {
			return nil, err
		}
		// Fall through: a 6-character ID prefix is not a code.
	}
	return s.store.GetGroup(ctx, ref)
}

// groupResult builds the full group view: members decorated with display
// names (batched user lookup) and upcoming occurrences with capacity hints.
func (s *GroupService) groupResult(ctx context.Context, groupID string) (*GroupResult, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return groupFailure(err)
	}
	view := newGroupView(group)

	memberships, err := s.store.ListMemberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.UserID
	}
	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range memberships {
		member := Member{UserID: m.UserID, IsAdmin: m.IsAdmin, JoinedAt: m.JoinedAt}
		if u := users[m.UserID]; u != nil {
			member.DisplayName = u.DisplayName
		}
		view.Members = append(view.Members, member)
	}

	occurrences, err := s.store.ListOccurrences(ctx, groupID, s.now().Format(models.DateFormat))
	if err != nil {
		return nil, err
	}
	for _, occ := range occurrences {
		view.Occurrences = append(view.Occurrences, newOccurrenceView(occ))
	}

	return &GroupResult{Result: ok(), Group: view}, nil
}

func groupFailure(err error) (*GroupResult, error) {
	if msg, isDomain := domainMessage(err); isDomain {
		return &GroupResult{Result: fail(msg)}, nil
	}
	return nil, err
}

func slotsToOccurrences(slots []schedule.Slot) []*models.Occurrence {
	occurrences := make([]*models.Occurrence, len(slots))
	for i, slot := range slots {
		occurrences[i] = &models.Occurrence{
			Date:   slot.Date.Format(models.DateFormat),
			Hour:   slot.Hour,
			Minute: slot.Minute,
		}
	}
	return occurrences
}
