// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/tablemates/gamenight/internal/models"
)

// Domain errors surfaced by stores. Services map these to user-facing
// result messages; anything else is treated as an infrastructure failure.
var (
	ErrGroupNotFound      = errors.New("group not found")
	ErrOccurrenceNotFound = errors.New("occurrence not found")
	ErrNotAMember         = errors.New("user is not a member of the group")
	ErrNotAdmin           = errors.New("only the group admin can do that")
	ErrCannotRemoveSelf   = errors.New("admin cannot remove themselves")
	ErrTargetNotMember    = errors.New("target user is not a member of the group")
	ErrAlreadyHosted      = errors.New("occurrence already has a host")
	ErrInviteCodeTaken    = errors.New("invite code is already in use")
)

// Store defines the persistence operations for groups, memberships,
// occurrences, and attendance responses. Every multi-record mutation below
// runs as a single all-or-nothing transaction: partial application is never
// observable, and the transaction is the sole concurrency control.
// Preconditions (admin checks, membership checks) are verified inside the
// same transaction that applies the effect.
type Store interface {
	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email. Returns (nil, nil) when absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID. Returns (nil, nil) when absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID. Missing users are
	// omitted. Any backend query-size limits are handled here, never by
	// business code.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// GetGroup retrieves a group by ID. Returns ErrGroupNotFound when absent.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// GetGroupByInviteCode retrieves a group by its (normalized) invite code.
	// Returns ErrGroupNotFound when no group carries the code.
	GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error)

	// ListGroupsForUser returns the groups the user is a member of.
	ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error)

	// GetMembership retrieves one membership edge. Returns ErrNotAMember
	// when absent.
	GetMembership(ctx context.Context, groupID, userID string) (*models.Membership, error)

	// ListMemberships returns a group's memberships ordered by join time,
	// ties broken by user ID.
	ListMemberships(ctx context.Context, groupID string) ([]*models.Membership, error)

	// CreateGroup atomically inserts the group (admin=creator,
	// member_count=1), the creator's admin membership, and the occurrence
	// batch. Returns ErrInviteCodeTaken when the code collides; the caller
	// regenerates and retries.
	CreateGroup(ctx context.Context, group *models.Group, creatorID string, occurrences []*models.Occurrence) error

	// JoinGroup atomically inserts a membership and increments member_count.
	// Idempotent: joining a group the user already belongs to succeeds
	// without mutation.
	JoinGroup(ctx context.Context, groupID, userID string) error

	// LeaveGroup atomically removes the user's membership. An admin leaving
	// with other members present hands the admin role to the earliest-joined
	// remaining member; an admin leaving alone deletes the group and all its
	// records, reported via deleted=true.
	LeaveGroup(ctx context.Context, groupID, userID string) (deleted bool, err error)

	// RemoveMember atomically deletes the target's membership and decrements
	// member_count. Only the current admin may remove, and never themselves.
	RemoveMember(ctx context.Context, groupID, adminID, targetID string) error

	// TransferAdmin atomically moves the admin role to another member,
	// updating the group's admin_id and both memberships' flags together.
	TransferAdmin(ctx context.Context, groupID, adminID, newAdminID string) error

	// DeleteGroup atomically deletes the group and all its memberships,
	// occurrences, and responses.
	DeleteGroup(ctx context.Context, groupID, adminID string) error

	// ReplaceSchedule atomically updates the group's schedule fields, deletes
	// future occurrences (date strictly after fromDate), and inserts the new
	// batch. Past occurrences are never touched.
	ReplaceSchedule(ctx context.Context, group *models.Group, adminID, fromDate string, occurrences []*models.Occurrence) error

	// UpdateInviteCode atomically replaces the group's invite code.
	// Returns ErrInviteCodeTaken when the new code collides.
	UpdateInviteCode(ctx context.Context, groupID, adminID, code string) error

	// GetOccurrence retrieves one occurrence with its responses.
	GetOccurrence(ctx context.Context, occurrenceID string) (*models.Occurrence, error)

	// ListOccurrences returns a group's occurrences with responses, dates on
	// or after fromDate, ascending. An empty fromDate returns everything.
	ListOccurrences(ctx context.Context, groupID, fromDate string) ([]*models.Occurrence, error)

	// UpsertResponse records a member's attendance answer, replacing any
	// previous answer for the same occurrence (last write wins).
	UpsertResponse(ctx context.Context, response *models.AttendanceResponse) error

	// ClaimHost sets the occurrence's host if unset. First volunteer wins;
	// returns ErrAlreadyHosted afterwards. There is no override path.
	ClaimHost(ctx context.Context, occurrenceID, userID, hostName string) error

	// Close releases any resources held by the store.
	Close() error
}
