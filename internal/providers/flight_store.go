package providers

import (
	"context"
	"errors"
	"fmt"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/scheduling"
)

// ErrFlightNotFound is returned when a record id matches no stored flight.
var ErrFlightNotFound = errors.New("flight not found")

// FlightStore defines the persistence collaborator behind the dispatch board
type FlightStore interface {
	// Load returns flights whose operative time lies in the closed window
	Load(ctx context.Context, window scheduling.TimeRange) ([]scheduling.FlightOperation, error)

	// Mutate atomically replaces one assignment field and returns the stored flight.
	// Refused writes wrap scheduling.ErrMutationRejected.
	Mutate(ctx context.Context, recordID string, write AssignmentWrite) (scheduling.FlightOperation, error)

	// Insert stores new flights, assigning record ids where missing
	Insert(ctx context.Context, flights []scheduling.FlightOperation) ([]scheduling.FlightOperation, error)

	// Delete removes one flight
	Delete(ctx context.Context, recordID string) error

	// Count returns how many flights Load would return for window
	Count(ctx context.Context, window scheduling.TimeRange) (int64, error)

	// Subscribe streams insert/update/delete notifications until ctx is done
	Subscribe(ctx context.Context) (<-chan common.ChangeEvent, error)
}

// AssignmentWrite is a single-field replacement: either the gate or the
// whole check-in window list, never both.
type AssignmentWrite struct {
	Field    constants.MutationKind
	Gate     string
	Checkins []scheduling.CheckinWindow
}

func GateWrite(gate string) AssignmentWrite {
	if gate == "" {
		gate = scheduling.Unassigned
	}
	return AssignmentWrite{Field: constants.MutationGate, Gate: gate}
}

func CheckinWrite(windows []scheduling.CheckinWindow) AssignmentWrite {
	return AssignmentWrite{Field: constants.MutationCheckins, Checkins: windows}
}

// Apply returns f with the write applied. f is not modified.
func (w AssignmentWrite) Apply(f scheduling.FlightOperation) scheduling.FlightOperation {
	out := f.Clone()
	switch w.Field {
	case constants.MutationGate:
		out.Gate = w.Gate
	case constants.MutationCheckins:
		out.Checkins = append([]scheduling.CheckinWindow(nil), w.Checkins...)
	}
	return out
}

// Validate rejects unknown fields and malformed windows.
func (w AssignmentWrite) Validate() error {
	switch w.Field {
	case constants.MutationGate:
		return nil
	case constants.MutationCheckins:
		return scheduling.ValidateWindows(w.Checkins)
	}
	return fmt.Errorf("%w: unknown assignment field %q", scheduling.ErrInvalidArgument, w.Field)
}
