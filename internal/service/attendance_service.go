package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tablemates/gamenight/internal/models"
	"github.com/tablemates/gamenight/internal/storage"
)

// Seating thresholds: four players make a table, eight fill a second one.
const (
	tableSize       = 4
	secondTableSize = 8
)

// AttendanceService records attendance answers and host volunteering for
// single occurrences, independent of membership changes.
type AttendanceService struct {
	store storage.Store
}

// NewAttendanceService creates an AttendanceService with the given storage backend.
func NewAttendanceService(store storage.Store) *AttendanceService {
	return &AttendanceService{store: store}
}

// Respond upserts the caller's attendance answer for one occurrence,
// replacing any earlier answer. Only members of the owning group may respond,
// and only for themselves.
func (s *AttendanceService) Respond(ctx context.Context, occurrenceID, userID, status string) (*OccurrenceResult, error) {
	slog.Info("Respond request", "occurrence_id", occurrenceID, "user_id", userID, "status", status)

	if !models.ValidStatus(status) {
		return &OccurrenceResult{Result: fail("invalid attendance status")}, nil
	}

	occ, err := s.store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return occurrenceFailure(err)
	}
	if _, err := s.store.GetMembership(ctx, occ.GroupID, userID); err != nil {
		return occurrenceFailure(err)
	}

	err = s.store.UpsertResponse(ctx, &models.AttendanceResponse{
		OccurrenceID: occurrenceID,
		UserID:       userID,
		Status:       status,
	})
	if err != nil {
		return occurrenceFailure(err)
	}

	return s.occurrenceResult(ctx, occurrenceID)
}

// VolunteerHost assigns the caller as host if the occurrence has none yet.
// First volunteer wins; there is no override path.
func (s *AttendanceService) VolunteerHost(ctx context.Context, occurrenceID, userID string) (*OccurrenceResult, error) {
	slog.Info("Volunteer host request", "occurrence_id", occurrenceID, "user_id", userID)

	occ, err := s.store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return occurrenceFailure(err)
	}
	if _, err := s.store.GetMembership(ctx, occ.GroupID, userID); err != nil {
		return occurrenceFailure(err)
	}

	hostName := userID
	if user, err := s.store.GetUserByID(ctx, userID); err != nil {
		return nil, err
	} else if user != nil {
		hostName = user.DisplayName
	}

	if err := s.store.ClaimHost(ctx, occurrenceID, userID, hostName); err != nil {
		return occurrenceFailure(err)
	}

	slog.Info("Host assigned", "occurrence_id", occurrenceID, "host_id", userID)
	return s.occurrenceResult(ctx, occurrenceID)
}

// CapacityHint derives the seating message from the number of confirmed
// players. The thresholds are a business rule: under four can't start, four
// seat one table, five to seven are waiting on an eight-player second table,
// eight or more fill both.
func CapacityHint(going int) string {
	switch {
	case going < tableSize:
		return fmt.Sprintf("need %d more to play", tableSize-going)
	case going == tableSize:
		return "table ready"
	case going < secondTableSize:
		return fmt.Sprintf("need %d more for second table", secondTableSize-going)
	default:
		return "tables full"
	}
}

func (s *AttendanceService) occurrenceResult(ctx context.Context, occurrenceID string) (*OccurrenceResult, error) {
	occ, err := s.store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return occurrenceFailure(err)
	}
	view := newOccurrenceView(occ)
	return &OccurrenceResult{Result: ok(), Occurrence: &view}, nil
}

func occurrenceFailure(err error) (*OccurrenceResult, error) {
	if msg, isDomain := domainMessage(err); isDomain {
		return &OccurrenceResult{Result: fail(msg)}, nil
	}
	return nil, err
}
