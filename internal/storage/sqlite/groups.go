package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tablemates/gamenight/internal/models"
	"github.com/tablemates/gamenight/internal/storage"
)

const groupColumns = "id, name, weekdays, hour, minute, timezone, frequency, invite_code, admin_id, member_count, created_at, updated_at"

// encodeWeekdays serializes a weekday set as a comma-joined list of ints.
func encodeWeekdays(weekdays []time.Weekday) string {
	parts := make([]string, len(weekdays))
	for i, wd := range weekdays {
		parts[i] = strconv.Itoa(int(wd))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(encoded string) ([]time.Weekday, error) {
	if encoded == "" {
		return nil, nil
	}
	parts := strings.Split(encoded, ",")
	weekdays := make([]time.Weekday, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid weekday %q: %w", p, err)
		}
		weekdays[i] = time.Weekday(n)
	}
	return weekdays, nil
}

// scanner is the shared subset of sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanGroup(row scanner) (*models.Group, error) {
	group := &models.Group{}
	var weekdays string
	err := row.Scan(
		&group.ID, &group.Name, &weekdays, &group.Hour, &group.Minute,
		&group.Timezone, &group.Frequency, &group.InviteCode,
		&group.AdminID, &group.MemberCount, &group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	group.Weekdays, err = decodeWeekdays(weekdays)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", groupID))
	if err == sql.ErrNoRows {
		return nil, storage.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// GetGroupByInviteCode retrieves a group by its invite code.
// The caller is expected to normalize the code first.
func (s *SQLiteStore) GetGroupByInviteCode(ctx context.Context, code string) (*models.Group, error) {
	group, err := scanGroup(s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE invite_code = ?", code))
	if err == sql.ErrNoRows {
		return nil, storage.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group by invite code: %w", err)
	}
	return group, nil
}

// ListGroupsForUser returns the groups the user belongs to, newest first.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM groups
		 WHERE id IN (SELECT group_id FROM memberships WHERE user_id = ?)
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups for user: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}
	return groups, nil
}

// GetMembership retrieves one membership edge.
func (s *SQLiteStore) GetMembership(ctx context.Context, groupID, userID string) (*models.Membership, error) {
	m := &models.Membership{}
	err := s.db.QueryRowContext(ctx,
		"SELECT group_id, user_id, is_admin, joined_at FROM memberships WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&m.GroupID, &m.UserID, &m.IsAdmin, &m.JoinedAt)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotAMember
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// ListMemberships returns a group's memberships in succession order:
// earliest joined first, ties broken by user ID.
func (s *SQLiteStore) ListMemberships(ctx context.Context, groupID string) ([]*models.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT group_id, user_id, is_admin, joined_at FROM memberships
		 WHERE group_id = ? ORDER BY joined_at ASC, user_id ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		m := &models.Membership{}
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		memberships = append(memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memberships: %w", err)
	}
	return memberships, nil
}

// CreateGroup inserts the group, the creator's admin membership, and the
// occurrence batch in one transaction.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group, creatorID string, occurrences []*models.Occurrence) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now().Unix()
	if group.CreatedAt == 0 {
		group.CreatedAt = now
	}
	group.UpdatedAt = now
	group.AdminID = creatorID
	group.MemberCount = 1

	return s.withTx(ctx, func(tx *sql.Tx) error {
		taken, err := inviteCodeTaken(ctx, tx, group.InviteCode, "")
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrInviteCodeTaken
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO groups (`+groupColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			group.ID, group.Name, encodeWeekdays(group.Weekdays), group.Hour, group.Minute,
			group.Timezone, group.Frequency, group.InviteCode,
			group.AdminID, group.MemberCount, group.CreatedAt, group.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO memberships (group_id, user_id, is_admin, joined_at) VALUES (?, ?, 1, ?)",
			group.ID, creatorID, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert admin membership: %w", err)
		}

		return insertOccurrences(ctx, tx, group.ID, occurrences)
	})
}

// JoinGroup adds a membership and bumps the denormalized counter together.
// Joining twice is a no-op success.
func (s *SQLiteStore) JoinGroup(ctx context.Context, groupID, userID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := groupForUpdate(ctx, tx, groupID); err != nil {
			return err
		}

		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM memberships WHERE group_id = ? AND user_id = ?",
			groupID, userID,
		).Scan(&exists)
		if err == nil {
			return nil // already a member: idempotent success, no mutation
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("failed to check membership: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO memberships (group_id, user_id, is_admin, joined_at) VALUES (?, ?, 0, ?)",
			groupID, userID, time.Now().Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert membership: %w", err)
		}

		return bumpMemberCount(ctx, tx, groupID, +1)
	})
}

// LeaveGroup removes the membership, handing off the admin role or deleting
// the group when the admin is the last member.
func (s *SQLiteStore) LeaveGroup(ctx context.Context, groupID, userID string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var isAdmin bool
		err := tx.QueryRowContext(ctx,
			"SELECT is_admin FROM memberships WHERE group_id = ? AND user_id = ?",
			groupID, userID,
		).Scan(&isAdmin)
		if err == sql.ErrNoRows {
			return storage.ErrNotAMember
		}
		if err != nil {
			return fmt.Errorf("failed to get membership: %w", err)
		}

		if isAdmin {
			// Succession: earliest joined remaining member, ties broken by
			// user ID so the pick is deterministic.
			var successor string
			err := tx.QueryRowContext(ctx,
				`SELECT user_id FROM memberships
				 WHERE group_id = ? AND user_id != ?
				 ORDER BY joined_at ASC, user_id ASC LIMIT 1`,
				groupID, userID,
			).Scan(&successor)
			if err == sql.ErrNoRows {
				// Last member out: the group goes with them.
				if _, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID); err != nil {
					return fmt.Errorf("failed to delete group: %w", err)
				}
				deleted = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to pick successor: %w", err)
			}

			_, err = tx.ExecContext(ctx,
				"UPDATE memberships SET is_admin = 1 WHERE group_id = ? AND user_id = ?",
				groupID, successor,
			)
			if err != nil {
				return fmt.Errorf("failed to promote successor: %w", err)
			}
			_, err = tx.ExecContext(ctx,
				"UPDATE groups SET admin_id = ?, updated_at = ? WHERE id = ?",
				successor, time.Now().Unix(), groupID,
			)
			if err != nil {
				return fmt.Errorf("failed to update group admin: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM memberships WHERE group_id = ? AND user_id = ?",
			groupID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}

		return bumpMemberCount(ctx, tx, groupID, -1)
	})
	return deleted, err
}

// RemoveMember lets the admin kick another member out.
func (s *SQLiteStore) RemoveMember(ctx context.Context, groupID, adminID, targetID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		group, err := groupForUpdate(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group.AdminID != adminID {
			return storage.ErrNotAdmin
		}
		if targetID == adminID {
			return storage.ErrCannotRemoveSelf
		}

		res, err := tx.ExecContext(ctx,
			"DELETE FROM memberships WHERE group_id = ? AND user_id = ?",
			groupID, targetID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return storage.ErrNotAMember
		}

		return bumpMemberCount(ctx, tx, groupID, -1)
	})
}

// TransferAdmin moves the admin role: group.admin_id and both memberships'
// flags change in the same transaction.
func (s *SQLiteStore) TransferAdmin(ctx context.Context, groupID, adminID, newAdminID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		group, err := groupForUpdate(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group.AdminID != adminID {
			return storage.ErrNotAdmin
		}

		var exists int
		err = tx.QueryRowContext(ctx,
			"SELECT 1 FROM memberships WHERE group_id = ? AND user_id = ?",
			groupID, newAdminID,
		).Scan(&exists)
		if err == sql.ErrNoRows {
			return storage.ErrTargetNotMember
		}
		if err != nil {
			return fmt.Errorf("failed to check target membership: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE memberships SET is_admin = 0 WHERE group_id = ? AND user_id = ?",
			groupID, adminID,
		); err != nil {
			return fmt.Errorf("failed to demote admin: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE memberships SET is_admin = 1 WHERE group_id = ? AND user_id = ?",
			groupID, newAdminID,
		); err != nil {
			return fmt.Errorf("failed to promote new admin: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE groups SET admin_id = ?, updated_at = ? WHERE id = ?",
			newAdminID, time.Now().Unix(), groupID,
		); err != nil {
			return fmt.Errorf("failed to update group admin: %w", err)
		}
		return nil
	})
}

// DeleteGroup removes the group; cascade foreign keys take the memberships,
// occurrences, and responses with it.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, groupID, adminID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		group, err := groupForUpdate(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group.AdminID != adminID {
			return storage.ErrNotAdmin
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM groups WHERE id = ?", groupID); err != nil {
			return fmt.Errorf("failed to delete group: %w", err)
		}
		return nil
	})
}

// ReplaceSchedule updates the schedule fields, clears future occurrences,
// and inserts the regenerated batch. Occurrences on or before fromDate are
// left alone.
func (s *SQLiteStore) ReplaceSchedule(ctx context.Context, group *models.Group, adminID, fromDate string, occurrences []*models.Occurrence) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := groupForUpdate(ctx, tx, group.ID)
		if err != nil {
			return err
		}
		if current.AdminID != adminID {
			return storage.ErrNotAdmin
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE groups SET weekdays = ?, hour = ?, minute = ?, timezone = ?, frequency = ?, updated_at = ?
			 WHERE id = ?`,
			encodeWeekdays(group.Weekdays), group.Hour, group.Minute,
			group.Timezone, group.Frequency, time.Now().Unix(), group.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update schedule: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM occurrences WHERE group_id = ? AND date > ?",
			group.ID, fromDate,
		)
		if err != nil {
			return fmt.Errorf("failed to delete future occurrences: %w", err)
		}

		return insertOccurrences(ctx, tx, group.ID, occurrences)
	})
}

// UpdateInviteCode swaps in a freshly generated code.
func (s *SQLiteStore) UpdateInviteCode(ctx context.Context, groupID, adminID, code string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		group, err := groupForUpdate(ctx, tx, groupID)
		if err != nil {
			return err
		}
		if group.AdminID != adminID {
			return storage.ErrNotAdmin
		}

		taken, err := inviteCodeTaken(ctx, tx, code, groupID)
		if err != nil {
			return err
		}
		if taken {
			return storage.ErrInviteCodeTaken
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE groups SET invite_code = ?, updated_at = ? WHERE id = ?",
			code, time.Now().Unix(), groupID,
		)
		if err != nil {
			return fmt.Errorf("failed to update invite code: %w", err)
		}
		return nil
	})
}

// groupForUpdate reads a group inside a transaction, translating a missing
// row into ErrGroupNotFound.
func groupForUpdate(ctx context.Context, tx *sql.Tx, groupID string) (*models.Group, error) {
	group, err := scanGroup(tx.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?", groupID))
	if err == sql.ErrNoRows {
		return nil, storage.ErrGroupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// bumpMemberCount adjusts the denormalized counter. This is the only place
// member_count changes, and always inside the mutating transaction.
func bumpMemberCount(ctx context.Context, tx *sql.Tx, groupID string, delta int) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE groups SET member_count = member_count + ?, updated_at = ? WHERE id = ?",
		delta, time.Now().Unix(), groupID,
	)
	if err != nil {
		return fmt.Errorf("failed to update member count: %w", err)
	}
	return nil
}

// inviteCodeTaken checks whether another group already carries the code.
func inviteCodeTaken(ctx context.Context, tx *sql.Tx, code, excludeGroupID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		"SELECT 1 FROM groups WHERE invite_code = ? AND id != ?",
		code, excludeGroupID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check invite code: %w", err)
	}
	return true, nil
}
