package scheduling

import (
	"fmt"
	"strings"
	"time"
)

// Unassigned is the gate sentinel meaning the flight holds no gate claim.
const Unassigned = "UNASSIGNED"

// ResourceClass separates the two shared resource pools.
type ResourceClass string

const (
	ClassGate    ResourceClass = "GATE"
	ClassCounter ResourceClass = "COUNTER"
)

// ParseResourceClass accepts the class name in any case, plus the short
// forms used by the dispatch board tabs ("gate", "checkin").
func ParseResourceClass(s string) (ResourceClass, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "GATE", "GATES":
		return ClassGate, nil
	case "COUNTER", "COUNTERS", "CHECKIN", "CHECK-IN":
		return ClassCounter, nil
	}
	return "", fmt.Errorf("%w: unknown resource class %q", ErrInvalidArgument, s)
}

// CheckinWindow is one explicit counter claim.
type CheckinWindow struct {
	CounterID string    `json:"counter_id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

// Validate rejects windows that do not end after they start.
func (w CheckinWindow) Validate() error {
	if w.CounterID == "" {
		return fmt.Errorf("%w: check-in window has no counter", ErrInvalidArgument)
	}
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: check-in window on counter %s ends at %s, not after start %s",
			ErrInvalidArgument, w.CounterID, w.End.Format(time.RFC3339), w.Start.Format(time.RFC3339))
	}
	return nil
}

// ValidateWindows validates every window in order and returns the first failure.
func ValidateWindows(windows []CheckinWindow) error {
	for i, w := range windows {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("window %d: %w", i, err)
		}
	}
	return nil
}

// FlightOperation is one flight's ground-handling record for a single
// operative moment. Only Gate and Checkins change after creation.
type FlightOperation struct {
	RecordID         string          `json:"record_id"`
	ID               string          `json:"id"`
	OperativeTime    time.Time       `json:"operative_time"`
	IsEstimated      bool            `json:"is_estimated"`
	AircraftType     string          `json:"aircraft_type"`
	AircraftCategory string          `json:"aircraft_category"`
	Gate             string          `json:"gate"`
	Checkins         []CheckinWindow `json:"checkins"`
}

// HasGate reports whether the flight holds a gate claim.
func (f FlightOperation) HasGate() bool {
	return f.Gate != "" && f.Gate != Unassigned
}

// HasCheckins reports whether the flight holds at least one counter claim.
func (f FlightOperation) HasCheckins() bool {
	return len(f.Checkins) > 0
}

// Clone returns a copy that shares no slice memory with f.
func (f FlightOperation) Clone() FlightOperation {
	out := f
	if f.Checkins != nil {
		out.Checkins = make([]CheckinWindow, len(f.Checkins))
		copy(out.Checkins, f.Checkins)
	}
	return out
}

// GateBuffer pads a point-in-time flight event into a gate occupancy interval.
type GateBuffer struct {
	PreMinutes  int `json:"pre_minutes"`
	PostMinutes int `json:"post_minutes"`
}

// DefaultGateBuffer matches the board's factory setting.
var DefaultGateBuffer = GateBuffer{PreMinutes: 40, PostMinutes: 15}

func (b GateBuffer) Validate() error {
	if b.PreMinutes < 0 || b.PostMinutes < 0 {
		return fmt.Errorf("%w: gate buffer must be non-negative (pre=%d, post=%d)",
			ErrInvalidArgument, b.PreMinutes, b.PostMinutes)
	}
	return nil
}

// Interval is a time span. Conflict detection treats it as half-open,
// occupancy sampling treats it as closed.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps is the conflict test: touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && i.End.After(o.Start)
}

// ContainsClosed is the occupancy test: both endpoints count.
func (i Interval) ContainsClosed(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// ClaimID identifies one claim within a snapshot.
type ClaimID string

// ResourceClaim is one unit of demand on a named resource. Claims are derived
// on every read and never stored.
type ResourceClaim struct {
	ID            ClaimID       `json:"id"`
	ResourceID    string        `json:"resource_id"`
	Class         ResourceClass `json:"class"`
	Interval      Interval      `json:"interval"`
	OwnerRecordID string        `json:"owner_record_id"`
	OwnerFlightID string        `json:"owner_flight_id"`
	// CheckinIndex is the position in the owner's window list, -1 for gates.
	CheckinIndex int `json:"checkin_index"`
}

// ResourcePool is the declared set of resource ids per class, used only as
// the capacity denominator.
type ResourcePool struct {
	Gates    []string `json:"gates"`
	Counters []string `json:"counters"`
}

// Size returns the number of declared resources of the class.
func (p ResourcePool) Size(class ResourceClass) int {
	switch class {
	case ClassGate:
		return len(p.Gates)
	case ClassCounter:
		return len(p.Counters)
	}
	return 0
}

// Contains reports whether id is declared for the class.
func (p ResourcePool) Contains(class ResourceClass, id string) bool {
	var ids []string
	if class == ClassGate {
		ids = p.Gates
	} else {
		ids = p.Counters
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// DefaultGates returns G01..Gn.
func DefaultGates(n int) []string {
	gates := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		gates = append(gates, fmt.Sprintf("G%02d", i))
	}
	return gates
}

// DefaultCounters returns the terminal's fixed counter rows: 01..54 then M01..M07.
func DefaultCounters() []string {
	counters := make([]string, 0, 61)
	for i := 1; i <= 54; i++ {
		counters = append(counters, fmt.Sprintf("%02d", i))
	}
	for i := 1; i <= 7; i++ {
		counters = append(counters, fmt.Sprintf("M%02d", i))
	}
	return counters
}

// TimeRange is a closed window used to select flights by operative time.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (tr TimeRange) Validate() error {
	if tr.End.Before(tr.Start) {
		return fmt.Errorf("%w: range end %s is before start %s",
			ErrInvalidArgument, tr.End.Format(time.RFC3339), tr.Start.Format(time.RFC3339))
	}
	return nil
}

// Contains checks if a timestamp falls within the range. A zero range
// contains everything.
func (tr TimeRange) Contains(t time.Time) bool {
	if tr.Start.IsZero() && tr.End.IsZero() {
		return true
	}
	if tr.Start.IsZero() {
		return !t.After(tr.End)
	}
	if tr.End.IsZero() {
		return !t.Before(tr.Start)
	}
	return !t.Before(tr.Start) && !t.After(tr.End)
}
