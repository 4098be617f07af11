package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tablemates/gamenight/internal/models"
	"github.com/tablemates/gamenight/internal/storage"
)

// insertOccurrences writes a generated batch inside an existing transaction.
// The (group, date) unique constraint is resolved with DO NOTHING so a
// regenerated date that still exists (today's session, say) is kept as-is.
func insertOccurrences(ctx context.Context, tx *sql.Tx, groupID string, occurrences []*models.Occurrence) error {
	for _, occ := range occurrences {
		if occ.ID == "" {
			occ.ID = models.OccurrenceID(groupID, occ.Date)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO occurrences (id, group_id, date, hour, minute, host_id, host_name)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (group_id, date) DO NOTHING`,
			occ.ID, groupID, occ.Date, occ.Hour, occ.Minute, occ.HostID, occ.HostName,
		)
		if err != nil {
			return fmt.Errorf("failed to insert occurrence: %w", err)
		}
	}
	return nil
}

// GetOccurrence retrieves one occurrence with its responses.
func (s *SQLiteStore) GetOccurrence(ctx context.Context, occurrenceID string) (*models.Occurrence, error) {
	occ := &models.Occurrence{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, date, hour, minute, host_id, host_name
		 FROM occurrences WHERE id = ?`,
		occurrenceID,
	).Scan(&occ.ID, &occ.GroupID, &occ.Date, &occ.Hour, &occ.Minute, &occ.HostID, &occ.HostName)
	if err == sql.ErrNoRows {
		return nil, storage.ErrOccurrenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get occurrence: %w", err)
	}

	if err := s.loadResponses(ctx, occ); err != nil {
		return nil, err
	}
	return occ, nil
}

// ListOccurrences returns a group's occurrences on or after fromDate,
// ascending by date, each with its responses.
func (s *SQLiteStore) ListOccurrences(ctx context.Context, groupID, fromDate string) ([]*models.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, date, hour, minute, host_id, host_name
		 FROM occurrences WHERE group_id = ? AND date >= ? ORDER BY date ASC`,
		groupID, fromDate,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences: %w", err)
	}
	defer rows.Close()

	var occurrences []*models.Occurrence
	for rows.Next() {
		occ := &models.Occurrence{}
		if err := rows.Scan(&occ.ID, &occ.GroupID, &occ.Date, &occ.Hour, &occ.Minute, &occ.HostID, &occ.HostName); err != nil {
			return nil, fmt.Errorf("failed to scan occurrence: %w", err)
		}
		occurrences = append(occurrences, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate occurrences: %w", err)
	}

	for _, occ := range occurrences {
		if err := s.loadResponses(ctx, occ); err != nil {
			return nil, err
		}
	}
	return occurrences, nil
}

func (s *SQLiteStore) loadResponses(ctx context.Context, occ *models.Occurrence) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT occurrence_id, user_id, status, responded_at
		 FROM responses WHERE occurrence_id = ? ORDER BY responded_at ASC, user_id ASC`,
		occ.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get responses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r models.AttendanceResponse
		if err := rows.Scan(&r.OccurrenceID, &r.UserID, &r.Status, &r.RespondedAt); err != nil {
			return fmt.Errorf("failed to scan response: %w", err)
		}
		occ.Responses = append(occ.Responses, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate responses: %w", err)
	}
	return nil
}

// UpsertResponse records an attendance answer, last write wins.
func (s *SQLiteStore) UpsertResponse(ctx context.Context, response *models.AttendanceResponse) error {
	if response.RespondedAt == 0 {
		response.RespondedAt = time.Now().Unix()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM occurrences WHERE id = ?", response.OccurrenceID,
		).Scan(&one)
		if err == sql.ErrNoRows {
			return storage.ErrOccurrenceNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check occurrence: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO responses (occurrence_id, user_id, status, responded_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT (occurrence_id, user_id) DO UPDATE SET status = excluded.status, responded_at = excluded.responded_at`,
			response.OccurrenceID, response.UserID, response.Status, response.RespondedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert response: %w", err)
		}
		return nil
	})
}

// ClaimHost assigns the host fields if they are still empty.
func (s *SQLiteStore) ClaimHost(ctx context.Context, occurrenceID, userID, hostName string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var hostID string
		err := tx.QueryRowContext(ctx,
			"SELECT host_id FROM occurrences WHERE id = ?", occurrenceID,
		).Scan(&hostID)
		if err == sql.ErrNoRows {
			return storage.ErrOccurrenceNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check host: %w", err)
		}
		if hostID != "" {
			return storage.ErrAlreadyHosted
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE occurrences SET host_id = ?, host_name = ? WHERE id = ?",
			userID, hostName, occurrenceID,
		)
		if err != nil {
			return fmt.Errorf("failed to set host: %w", err)
		}
		return nil
	})
}
