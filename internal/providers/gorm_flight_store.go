package providers

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/db/repositories"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/models/gorm"
	"infinite-experiment/dispatchboard/internal/scheduling"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// GormFlightStore implements FlightStore over the flights table. The same
// store serves Postgres and SQLite; only the dialector differs.
type GormFlightStore struct {
	repo      *repositories.FlightRepo
	notifier  common.Notifier
	chunkSize int
}

var _ FlightStore = (*GormFlightStore)(nil)

func NewGormFlightStore(repo *repositories.FlightRepo, notifier common.Notifier) *GormFlightStore {
	return &GormFlightStore{
		repo:      repo,
		notifier:  notifier,
		chunkSize: constants.ImportChunkSize,
	}
}

func (s *GormFlightStore) Load(ctx context.Context, window scheduling.TimeRange) ([]scheduling.FlightOperation, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.FindInWindow(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("load flights: %w", err)
	}

	flights := make([]scheduling.FlightOperation, 0, len(rows))
	for i := range rows {
		flights = append(flights, rows[i].ToOperation())
	}
	return flights, nil
}

func (s *GormFlightStore) Mutate(ctx context.Context, recordID string, write AssignmentWrite) (scheduling.FlightOperation, error) {
	if err := write.Validate(); err != nil {
		return scheduling.FlightOperation{}, fmt.Errorf("%w: %w", scheduling.ErrMutationRejected, err)
	}

	var (
		row *gorm.Flight
		err error
	)
	switch write.Field {
	case constants.MutationGate:
		row, err = s.repo.UpdateGate(ctx, recordID, write.Gate)
	case constants.MutationCheckins:
		row, err = s.repo.UpdateCheckinData(ctx, recordID, gorm.CheckinDataFromWindows(write.Checkins))
	}
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			err = ErrFlightNotFound
		}
		return scheduling.FlightOperation{}, fmt.Errorf("%w: %s %s: %w", scheduling.ErrMutationRejected, write.Field, recordID, err)
	}

	flight := row.ToOperation()
	s.publish(ctx, common.ChangeEvent{Type: constants.ChangeUpdate, RecordID: recordID, Flight: &flight})
	return flight, nil
}

func (s *GormFlightStore) Insert(ctx context.Context, flights []scheduling.FlightOperation) ([]scheduling.FlightOperation, error) {
	rows := make([]gorm.Flight, 0, len(flights))
	out := make([]scheduling.FlightOperation, 0, len(flights))

	for i, f := range flights {
		if err := scheduling.ValidateWindows(f.Checkins); err != nil {
			return nil, fmt.Errorf("flight %d (%s): %w", i, f.ID, err)
		}
		if f.RecordID == "" {
			f.RecordID = uuid.NewString()
		}
		if f.Gate == "" {
			f.Gate = scheduling.Unassigned
		}
		if f.AircraftCategory == "" {
			f.AircraftCategory = scheduling.AircraftCategory(f.AircraftType)
		}
		rows = append(rows, *gorm.FlightFromOperation(f))
		out = append(out, f)
	}

	if err := s.repo.InsertBatch(ctx, rows, s.chunkSize); err != nil {
		return nil, fmt.Errorf("insert flights: %w", err)
	}

	for i := range out {
		f := out[i]
		s.publish(ctx, common.ChangeEvent{Type: constants.ChangeInsert, RecordID: f.RecordID, Flight: &f})
	}
	return out, nil
}

func (s *GormFlightStore) Delete(ctx context.Context, recordID string) error {
	deleted, err := s.repo.Delete(ctx, recordID)
	if err != nil {
		return fmt.Errorf("delete flight %s: %w", recordID, err)
	}
	if !deleted {
		return ErrFlightNotFound
	}

	s.publish(ctx, common.ChangeEvent{Type: constants.ChangeDelete, RecordID: recordID})
	return nil
}

func (s *GormFlightStore) Count(ctx context.Context, window scheduling.TimeRange) (int64, error) {
	if err := window.Validate(); err != nil {
		return 0, err
	}
	n, err := s.repo.CountInWindow(ctx, window.Start, window.End)
	if err != nil {
		return 0, fmt.Errorf("count flights: %w", err)
	}
	return n, nil
}

func (s *GormFlightStore) Subscribe(ctx context.Context) (<-chan common.ChangeEvent, error) {
	return s.notifier.Subscribe(ctx)
}

// publish never fails the write that triggered it; peers catch up on their
// next refresh.
func (s *GormFlightStore) publish(ctx context.Context, ev common.ChangeEvent) {
	if err := s.notifier.Publish(ctx, ev); err != nil {
		logging.Warn("Failed to publish change event",
			"event", ev.Type,
			"record_id", ev.RecordID,
			"error", err,
		)
	}
}
