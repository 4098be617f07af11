package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/tablemates/gamenight/internal/invite"
	"github.com/tablemates/gamenight/internal/models"
	"github.com/tablemates/gamenight/internal/storage"
	"github.com/tablemates/gamenight/internal/storage/sqlite"
)

// testClock pins "today" to a known Monday so generated dates are stable.
var testClock = func() time.Time {
	return time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
}

func setupGroupService(t *testing.T) (*GroupService, storage.Store) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "gamenight-service-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})

	svc := NewGroupService(store).WithClock(testClock)
	return svc, store
}

func createUser(t *testing.T, store storage.Store, email, name string) *models.User {
	t.Helper()
	user := models.NewUser(email, name, "hash")
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	return user
}

func thursdayParams() CreateGroupParams {
	return CreateGroupParams{
		Name:      "Thursday Crew",
		Weekdays:  []time.Weekday{time.Thursday},
		Hour:      19,
		Minute:    0,
		Timezone:  "Europe/Berlin",
		Frequency: models.FrequencyWeekly,
	}
}

func TestCreateGroupEndToEnd(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")

	res, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	group := res.Group
	if group == nil {
		t.Fatal("expected group in result")
	}

	if group.AdminID != alice.ID {
		t.Errorf("admin: expected creator, got %s", group.AdminID)
	}
	if group.MemberCount != 1 {
		t.Errorf("member count: expected 1, got %d", group.MemberCount)
	}
	if !invite.Plausible(group.InviteCode) {
		t.Errorf("invite code %q is not a plausible code", group.InviteCode)
	}
	if len(group.Members) != 1 || group.Members[0].DisplayName != "Alice" {
		t.Errorf("members not decorated with display names: %+v", group.Members)
	}

	// Weekly Thursday at 19:00 with horizon 8 from a known Monday.
	if len(group.Occurrences) != 8 {
		t.Fatalf("expected 8 occurrences, got %d", len(group.Occurrences))
	}
	if group.Occurrences[0].Date != "2024-01-04" {
		t.Errorf("first occurrence: expected the upcoming Thursday, got %s", group.Occurrences[0].Date)
	}
	if group.Occurrences[7].Date != "2024-02-22" {
		t.Errorf("eighth occurrence: expected 7 weeks after the first, got %s", group.Occurrences[7].Date)
	}
	for i, occ := range group.Occurrences {
		if occ.Hour != 19 || occ.Minute != 0 {
			t.Errorf("occurrence %d time: got %d:%02d, want 19:00", i, occ.Hour, occ.Minute)
		}
		if len(occ.Responses) != 0 || occ.HostID != "" {
			t.Errorf("occurrence %d should start with no responses and no host", i)
		}
	}
}

func TestCreateGroupValidation(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")

	p := thursdayParams()
	p.Name = "   "
	res, err := svc.Create(ctx, alice.ID, p)
	if err != nil {
		t.Fatalf("Create returned infra error: %v", err)
	}
	if res.Success || res.Error == "" {
		t.Error("expected failure result for empty name")
	}

	p = thursdayParams()
	p.Weekdays = nil
	res, err = svc.Create(ctx, alice.ID, p)
	if err != nil {
		t.Fatalf("Create returned infra error: %v", err)
	}
	if res.Success {
		t.Error("expected failure result for empty weekday set")
	}

	p = thursdayParams()
	p.Frequency = "fortnightly"
	res, err = svc.Create(ctx, alice.ID, p)
	if err != nil {
		t.Fatalf("Create returned infra error: %v", err)
	}
	if res.Success {
		t.Error("expected failure result for unknown frequency")
	}
}

func TestJoinByInviteCode(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Codes resolve case-insensitively.
	res, err := svc.Join(ctx, strings.ToLower(created.Group.InviteCode), bob.ID)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if res.Group.MemberCount != 2 {
		t.Errorf("member count: expected 2, got %d", res.Group.MemberCount)
	}

	// Joining again is an idempotent success.
	res, err = svc.Join(ctx, created.Group.ID, bob.ID)
	if err != nil {
		t.Fatalf("second Join failed: %v", err)
	}
	if !res.Success || res.Group.MemberCount != 2 {
		t.Errorf("double join: expected success with count 2, got success=%v count=%d", res.Success, res.Group.MemberCount)
	}
}

func TestJoinUnknownReference(t *testing.T) {
	svc, store := setupGroupService(t)
	bob := createUser(t, store, "bob@example.com", "Bob")

	res, err := svc.Join(context.Background(), "ZZZZZ9", bob.ID)
	if err != nil {
		t.Fatalf("Join returned infra error: %v", err)
	}
	if res.Success {
		t.Error("expected failure result for unknown reference")
	}
	if res.Error != storage.ErrGroupNotFound.Error() {
		t.Errorf("error message: got %q", res.Error)
	}
}

func TestLeaveLastMemberDissolvesGroup(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	groupID := created.Group.ID

	res, err := svc.Leave(ctx, groupID, alice.ID)
	if err != nil {
		t.Fatalf("Leave failed: %v", err)
	}
	if !res.Success || !res.GroupDeleted {
		t.Fatalf("expected dissolution, got success=%v deleted=%v", res.Success, res.GroupDeleted)
	}

	// The stale group ID must not be joinable.
	join, err := svc.Join(ctx, groupID, bob.ID)
	if err != nil {
		t.Fatalf("Join returned infra error: %v", err)
	}
	if join.Success {
		t.Error("expected failure joining a dissolved group")
	}
	if join.Error != storage.ErrGroupNotFound.Error() {
		t.Errorf("error message: got %q", join.Error)
	}
}

func TestRemoveMemberRequiresAdmin(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Join(ctx, created.Group.ID, bob.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	res, err := svc.RemoveMember(ctx, created.Group.ID, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("RemoveMember returned infra error: %v", err)
	}
	if res.Success {
		t.Error("expected failure result for non-admin removal")
	}
	if res.Error != storage.ErrNotAdmin.Error() {
		t.Errorf("error message: got %q", res.Error)
	}

	res, err = svc.RemoveMember(ctx, created.Group.ID, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if !res.Success || res.Group.MemberCount != 1 {
		t.Errorf("removal: expected success with count 1, got success=%v count=%d", res.Success, res.Group.MemberCount)
	}
}

func TestTransferAdmin(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Join(ctx, created.Group.ID, bob.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}

	res, err := svc.TransferAdmin(ctx, created.Group.ID, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("TransferAdmin failed: %v", err)
	}
	if !res.Success || res.Group.AdminID != bob.ID {
		t.Errorf("transfer: expected bob as admin, got success=%v admin=%s", res.Success, res.Group.AdminID)
	}
}

func TestUpdateScheduleRegenerates(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	p := thursdayParams()
	p.Weekdays = []time.Weekday{time.Friday}
	p.Hour = 20
	res, err := svc.UpdateSchedule(ctx, created.Group.ID, alice.ID, p)
	if err != nil {
		t.Fatalf("UpdateSchedule failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	if len(res.Group.Occurrences) != 8 {
		t.Fatalf("expected 8 regenerated occurrences, got %d", len(res.Group.Occurrences))
	}
	for i, occ := range res.Group.Occurrences {
		date, err := time.Parse(models.DateFormat, occ.Date)
		if err != nil {
			t.Fatalf("bad date %q: %v", occ.Date, err)
		}
		if date.Weekday() != time.Friday {
			t.Errorf("occurrence %d is on %v, want Friday", i, date.Weekday())
		}
		if occ.Hour != 20 {
			t.Errorf("occurrence %d hour: got %d, want 20", i, occ.Hour)
		}
	}

	// Non-admins cannot change the schedule.
	bob := createUser(t, store, "bob@example.com", "Bob")
	if _, err := svc.Join(ctx, created.Group.ID, bob.ID); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	denied, err := svc.UpdateSchedule(ctx, created.Group.ID, bob.ID, p)
	if err != nil {
		t.Fatalf("UpdateSchedule returned infra error: %v", err)
	}
	if denied.Success {
		t.Error("expected failure result for non-admin schedule change")
	}
}

func TestRegenerateInviteCode(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	bob := createUser(t, store, "bob@example.com", "Bob")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	oldCode := created.Group.InviteCode

	res, err := svc.RegenerateInviteCode(ctx, created.Group.ID, alice.ID)
	if err != nil {
		t.Fatalf("RegenerateInviteCode failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got error %q", res.Error)
	}
	newCode := res.Group.InviteCode
	if newCode == oldCode {
		t.Error("invite code did not change")
	}
	if !invite.Plausible(newCode) {
		t.Errorf("new code %q is not a plausible code", newCode)
	}

	// Old code is dead, new code resolves.
	dead, err := svc.Join(ctx, oldCode, bob.ID)
	if err != nil {
		t.Fatalf("Join returned infra error: %v", err)
	}
	if dead.Success {
		t.Error("expected old invite code to stop working")
	}
	alive, err := svc.Join(ctx, newCode, bob.ID)
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if !alive.Success {
		t.Errorf("expected new invite code to work, got %q", alive.Error)
	}
}

func TestGetRequiresMembership(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")
	mallory := createUser(t, store, "mallory@example.com", "Mallory")

	created, err := svc.Create(ctx, alice.ID, thursdayParams())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := svc.Get(ctx, created.Group.ID, mallory.ID)
	if err != nil {
		t.Fatalf("Get returned infra error: %v", err)
	}
	if res.Success {
		t.Error("expected failure result for non-member view")
	}
}

func TestListGroups(t *testing.T) {
	svc, store := setupGroupService(t)
	ctx := context.Background()
	alice := createUser(t, store, "alice@example.com", "Alice")

	if _, err := svc.Create(ctx, alice.ID, thursdayParams()); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	p := thursdayParams()
	p.Name = "Sunday Irregulars"
	p.Weekdays = []time.Weekday{time.Sunday}
	if _, err := svc.Create(ctx, alice.ID, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	res, err := svc.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(res.Groups) != 2 {
		t.Errorf("expected 2 groups, got %d", len(res.Groups))
	}
}
