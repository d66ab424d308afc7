package dtos

import (
	"fmt"
	"strings"
	"time"

	"infinite-experiment/dispatchboard/internal/scheduling"
)

type GateRequest struct {
	Gate string `json:"gate"`
}

type CounterRequest struct {
	Counter string `json:"counter"`
}

// CheckinWindowDTO uses the short keys of the stored checkin_data column.
type CheckinWindowDTO struct {
	Counter string    `json:"ctr"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type CheckinWindowsRequest struct {
	Windows []CheckinWindowDTO `json:"windows"`
}

// WindowRequest moves the shared view window.
type WindowRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type BufferRequest struct {
	PreMinutes  *int `json:"pre_minutes"`
	PostMinutes *int `json:"post_minutes"`
}

// ImportFlight is one row of a bulk import, already parsed by the client.
type ImportFlight struct {
	FlightNo   string             `json:"flight_no"`
	Gate       string             `json:"gate"`
	TargetTime time.Time          `json:"target_time"`
	IsETD      bool               `json:"is_etd"`
	ACType     string             `json:"ac_type"`
	ACCode     string             `json:"ac_code"`
	Checkins   []CheckinWindowDTO `json:"checkin_data"`
}

type ImportRequest struct {
	Flights []ImportFlight `json:"flights"`
}

func ToWindows(in []CheckinWindowDTO) []scheduling.CheckinWindow {
	out := make([]scheduling.CheckinWindow, 0, len(in))
	for _, w := range in {
		out = append(out, scheduling.CheckinWindow{
			CounterID: strings.TrimSpace(w.Counter),
			Start:     w.Start.UTC(),
			End:       w.End.UTC(),
		})
	}
	return out
}

// Buffer merges the request onto current; omitted fields keep their value.
func (r BufferRequest) Buffer(current scheduling.GateBuffer) scheduling.GateBuffer {
	if r.PreMinutes != nil {
		current.PreMinutes = *r.PreMinutes
	}
	if r.PostMinutes != nil {
		current.PostMinutes = *r.PostMinutes
	}
	return current
}

func (f ImportFlight) ToOperation() (scheduling.FlightOperation, error) {
	flightNo := strings.TrimSpace(f.FlightNo)
	if flightNo == "" {
		return scheduling.FlightOperation{}, fmt.Errorf("%w: flight number is required", scheduling.ErrInvalidArgument)
	}
	if f.TargetTime.IsZero() {
		return scheduling.FlightOperation{}, fmt.Errorf("%w: flight %s has no target time", scheduling.ErrInvalidArgument, flightNo)
	}
	windows := ToWindows(f.Checkins)
	if err := scheduling.ValidateWindows(windows); err != nil {
		return scheduling.FlightOperation{}, fmt.Errorf("flight %s: %w", flightNo, err)
	}

	gate := strings.TrimSpace(f.Gate)
	if gate == "" {
		gate = scheduling.Unassigned
	}
	return scheduling.FlightOperation{
		ID:               flightNo,
		OperativeTime:    f.TargetTime.UTC(),
		IsEstimated:      f.IsETD,
		AircraftType:     strings.TrimSpace(f.ACType),
		AircraftCategory: strings.TrimSpace(f.ACCode),
		Gate:             gate,
		Checkins:         windows,
	}, nil
}

func (r ImportRequest) ToOperations() ([]scheduling.FlightOperation, error) {
	if len(r.Flights) == 0 {
		return nil, fmt.Errorf("%w: no flights to import", scheduling.ErrInvalidArgument)
	}
	out := make([]scheduling.FlightOperation, 0, len(r.Flights))
	for i, f := range r.Flights {
		op, err := f.ToOperation()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out = append(out, op)
	}
	return out, nil
}
