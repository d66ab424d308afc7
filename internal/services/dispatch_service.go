package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/metrics"
	"infinite-experiment/dispatchboard/internal/providers"
	"infinite-experiment/dispatchboard/internal/scheduling"

	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var (
	ErrFlightNotFound  = providers.ErrFlightNotFound
	ErrUnknownResource = errors.New("resource is not in the active pool")
	ErrNoWindow        = errors.New("no view window loaded")
)

// PoolRepository persists the declared resource pool.
type PoolRepository interface {
	List(ctx context.Context, class scheduling.ResourceClass) ([]string, error)
	Add(ctx context.Context, class scheduling.ResourceClass, id string) (bool, error)
	Remove(ctx context.Context, class scheduling.ResourceClass, id string) (bool, error)
	Seed(ctx context.Context, class scheduling.ResourceClass, ids []string) error
}

// Snapshot is an immutable copy of the board state. Flights are the ones
// operating inside the window, sorted by operative time. Nearby holds
// flights just outside it whose claims can still reach into the window.
type Snapshot struct {
	Version uint64                       `json:"version"`
	Window  scheduling.TimeRange         `json:"window"`
	Buffer  scheduling.GateBuffer        `json:"buffer"`
	Pool    scheduling.ResourcePool      `json:"pool"`
	Flights []scheduling.FlightOperation `json:"flights"`
	Nearby  []scheduling.FlightOperation `json:"nearby,omitempty"`
}

// ClaimFlights returns every flight whose claims can touch the window.
func (s Snapshot) ClaimFlights() []scheduling.FlightOperation {
	if len(s.Nearby) == 0 {
		return s.Flights
	}
	out := make([]scheduling.FlightOperation, 0, len(s.Flights)+len(s.Nearby))
	out = append(out, s.Flights...)
	return append(out, s.Nearby...)
}

// MutationResult is the final observable state of one assignment write.
// A rolled-back write is a result, not an error.
type MutationResult struct {
	Outcome string                     `json:"outcome"`
	Field   constants.MutationKind     `json:"field"`
	Flight  scheduling.FlightOperation `json:"flight"`
	Reason  string                     `json:"reason,omitempty"`
}

func (r MutationResult) RolledBack() bool {
	return r.Outcome == scheduling.MutationRolledBack.String()
}

// ConflictView is the per-resource layout of one class with conflicts marked.
type ConflictView struct {
	Version    uint64                    `json:"version"`
	Class      scheduling.ResourceClass  `json:"class"`
	Lanes      []scheduling.ResourceLane `json:"lanes"`
	Conflicted []scheduling.ClaimID      `json:"conflicted"`
}

// QueueView is the packed unassigned queue of one class.
type QueueView struct {
	Version   uint64                                              `json:"version"`
	Class     scheduling.ResourceClass                            `json:"class"`
	Origin    time.Time                                           `json:"origin"`
	Zoom      float64                                             `json:"zoom"`
	LaneCount int                                                 `json:"lane_count"`
	Items     []scheduling.PlacedItem[scheduling.FlightOperation] `json:"items"`
}

// OverlapCheck reports other flights already holding a counter during a
// proposed window.
type OverlapCheck struct {
	Overlaps bool     `json:"overlaps"`
	Flights  []string `json:"flights"`
}

const writeStripes = 64

// replayEntry is a change that landed while a load was in flight. Field is
// set for local assignment writes, which only own that one field.
type replayEntry struct {
	ev    common.ChangeEvent
	field constants.MutationKind
}

// DispatchService owns the in-memory snapshot for the current view window
// and mediates every assignment write through the flight store.
type DispatchService struct {
	store    providers.FlightStore
	poolRepo PoolRepository
	metrics  *metrics.MetricsRegistry
	loads    singleflight.Group

	// writes to one record are serialized across the store round trip
	writeSlots [writeStripes]*semaphore.Weighted

	mu      sync.RWMutex
	window  scheduling.TimeRange // committed by a successful load only
	target  scheduling.TimeRange // window the latest load is for
	span    scheduling.TimeRange // window plus claim margins, as loaded
	gen     uint64
	loaded  bool
	loading int
	replay  []replayEntry
	pending map[string]replayEntry // optimistic writes awaiting the store
	flights map[string]scheduling.FlightOperation
	buffer  scheduling.GateBuffer
	pool    scheduling.ResourcePool
	version uint64
}

// NewDispatchService creates the service. poolRepo may be nil, in which case
// pool edits live only in memory.
func NewDispatchService(
	store providers.FlightStore,
	poolRepo PoolRepository,
	buffer scheduling.GateBuffer,
	metricsReg *metrics.MetricsRegistry,
) *DispatchService {
	s := &DispatchService{
		store:    store,
		poolRepo: poolRepo,
		metrics:  metricsReg,
		flights:  make(map[string]scheduling.FlightOperation),
		pending:  make(map[string]replayEntry),
		buffer:   buffer,
	}
	for i := range s.writeSlots {
		s.writeSlots[i] = semaphore.NewWeighted(1)
	}
	return s
}

/* ---------- snapshot ---------- */

// SetWindow changes the view window and reloads it from the store. The
// window only moves once the load succeeds; a failed load leaves the
// previous window and its flights in place.
func (s *DispatchService) SetWindow(ctx context.Context, window scheduling.TimeRange) error {
	if err := window.Validate(); err != nil {
		return err
	}
	if window.Start.IsZero() || window.End.IsZero() {
		return fmt.Errorf("%w: view window needs both ends", scheduling.ErrInvalidArgument)
	}
	if window.End.Sub(window.Start) > constants.MaxWindowSpan {
		return fmt.Errorf("%w: view window longer than %s", scheduling.ErrInvalidArgument, constants.MaxWindowSpan)
	}

	s.mu.Lock()
	if s.loaded && sameRange(s.window, window) && sameRange(s.target, window) {
		s.mu.Unlock()
		return nil
	}
	s.gen++
	gen := s.gen
	s.target = window
	s.mu.Unlock()

	return s.load(ctx, window, gen)
}

// Refresh reloads the window the board is on, or the one a pending
// SetWindow is moving it to.
func (s *DispatchService) Refresh(ctx context.Context) error {
	s.mu.RLock()
	window, gen := s.target, s.gen
	s.mu.RUnlock()

	if window.Start.IsZero() {
		return ErrNoWindow
	}
	return s.load(ctx, window, gen)
}

// load reads window plus its claim margins from the store and swaps it in,
// unless a later SetWindow superseded it. Concurrent loads of the same
// window share one store round trip. Events and local writes arriving
// during the round trip are replayed onto the loaded flights, so an older
// read never overwrites them.
func (s *DispatchService) load(ctx context.Context, window scheduling.TimeRange, gen uint64) error {
	key := fmt.Sprintf("%d|%s|%s", gen, window.Start.Format(time.RFC3339), window.End.Format(time.RFC3339))
	_, err, shared := s.loads.Do(key, func() (interface{}, error) {
		start := time.Now()

		s.mu.Lock()
		span := loadSpan(window, s.buffer)
		from := len(s.replay)
		s.loading++
		s.mu.Unlock()

		flights, err := s.store.Load(ctx, span)

		s.mu.Lock()
		defer s.mu.Unlock()
		replay := append([]replayEntry(nil), s.replay[from:]...)
		s.loading--
		if s.loading == 0 {
			s.replay = nil
		}

		if err != nil {
			if s.gen == gen {
				s.target = s.window
			}
			return nil, err
		}
		if s.gen != gen {
			// superseded by a later SetWindow
			return nil, nil
		}
		s.metrics.SnapshotLoadsTotal.Inc()

		next := make(map[string]scheduling.FlightOperation, len(flights))
		for _, f := range flights {
			next[f.RecordID] = f
		}
		for _, e := range s.pending {
			applyChange(next, span, e)
		}
		for _, e := range replay {
			applyChange(next, span, e)
		}

		s.window = window
		s.target = window
		s.span = span
		s.flights = next
		s.loaded = true
		s.version++
		s.metrics.SnapshotFlights.Set(float64(len(next)))

		logging.Info("Snapshot loaded",
			"window_start", window.Start,
			"window_end", window.End,
			"flights", len(next),
			"replayed", len(replay),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, nil
	})

	if err != nil {
		return fmt.Errorf("refresh snapshot: %w", err)
	}
	if shared {
		logging.Debug("Snapshot load shared with concurrent caller")
	}
	return nil
}

// loadSpan widens window by how far a claim can reach from its flight's
// operative time: the gate post-buffer before the window, and the longer
// of the gate pre-buffer and the default check-in lead after it.
func loadSpan(window scheduling.TimeRange, buf scheduling.GateBuffer) scheduling.TimeRange {
	before := time.Duration(buf.PostMinutes) * time.Minute
	after := max(time.Duration(buf.PreMinutes)*time.Minute, scheduling.DefaultCheckinLead)
	return scheduling.TimeRange{Start: window.Start.Add(-before), End: window.End.Add(after)}
}

// applyChange folds one change into flights. Inserts outside span are
// dropped, updates of unknown records are ignored, and a local write only
// replaces its own field.
func applyChange(flights map[string]scheduling.FlightOperation, span scheduling.TimeRange, e replayEntry) bool {
	ev := e.ev
	switch ev.Type {
	case constants.ChangeInsert:
		if ev.Flight != nil && span.Contains(ev.Flight.OperativeTime) {
			flights[ev.Flight.RecordID] = ev.Flight.Clone()
			return true
		}
	case constants.ChangeUpdate:
		if ev.Flight == nil {
			return false
		}
		now, ok := flights[ev.Flight.RecordID]
		if !ok {
			return false
		}
		if e.field != "" {
			flights[ev.Flight.RecordID] = withField(now, *ev.Flight, e.field)
		} else {
			flights[ev.Flight.RecordID] = ev.Flight.Clone()
		}
		return true
	case constants.ChangeDelete:
		if _, ok := flights[ev.RecordID]; ok {
			delete(flights, ev.RecordID)
			return true
		}
	}
	return false
}

// record keeps e for replay by any load in flight. Callers hold s.mu.
func (s *DispatchService) record(e replayEntry) {
	if s.loading > 0 {
		e.ev.Flight = cloneFlight(e.ev.Flight)
		s.replay = append(s.replay, e)
	}
}

func cloneFlight(f *scheduling.FlightOperation) *scheduling.FlightOperation {
	if f == nil {
		return nil
	}
	c := f.Clone()
	return &c
}

// Snapshot returns a deep copy of the current state.
func (s *DispatchService) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	flights := make([]scheduling.FlightOperation, 0, len(s.flights))
	var nearby []scheduling.FlightOperation
	for _, f := range s.flights {
		if s.window.Contains(f.OperativeTime) {
			flights = append(flights, f.Clone())
		} else {
			nearby = append(nearby, f.Clone())
		}
	}
	sortByOperativeTime(flights)
	sortByOperativeTime(nearby)

	return Snapshot{
		Version: s.version,
		Window:  s.window,
		Buffer:  s.buffer,
		Pool:    copyPool(s.pool),
		Flights: flights,
		Nearby:  nearby,
	}
}

// StoreDrift compares how many flights the store holds for the loaded range
// with how many the snapshot holds. A difference means change notifications
// were missed.
func (s *DispatchService) StoreDrift(ctx context.Context) (stored int64, held int, err error) {
	s.mu.RLock()
	span, loaded := s.span, s.loaded
	s.mu.RUnlock()
	if !loaded {
		return 0, 0, ErrNoWindow
	}

	stored, err = s.store.Count(ctx, span)
	if err != nil {
		return 0, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !sameRange(s.span, span) {
		// the window moved while counting
		return stored, int(stored), nil
	}
	return stored, len(s.flights), nil
}

// Loaded reports whether a window has been loaded at least once.
func (s *DispatchService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// ApplyEvent folds one remote change notification into the snapshot.
// Inserts outside the loaded range are ignored; updates for records not in
// the snapshot are ignored. Returns true when the snapshot changed.
func (s *DispatchService) ApplyEvent(ev common.ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record(replayEntry{ev: ev})
	if !s.loaded {
		return false
	}

	applied := applyChange(s.flights, s.span, replayEntry{ev: ev})
	if applied {
		s.version++
		s.metrics.NotificationsApplied.WithLabelValues(string(ev.Type)).Inc()
		s.metrics.SnapshotFlights.Set(float64(len(s.flights)))
		logging.Debug("Applied change notification", "event", ev.Type, "record_id", ev.RecordID)
	}
	return applied
}

/* ---------- import / delete ---------- */

// ImportFlights stores new flights. The snapshot picks them up through the
// store's insert notifications.
func (s *DispatchService) ImportFlights(ctx context.Context, flights []scheduling.FlightOperation) ([]scheduling.FlightOperation, error) {
	if len(flights) == 0 {
		return nil, fmt.Errorf("%w: no flights to import", scheduling.ErrInvalidArgument)
	}
	for i, f := range flights {
		if f.OperativeTime.IsZero() {
			return nil, fmt.Errorf("%w: flight %d (%s) has no operative time", scheduling.ErrInvalidArgument, i, f.ID)
		}
	}
	return s.store.Insert(ctx, flights)
}

func (s *DispatchService) DeleteFlight(ctx context.Context, recordID string) error {
	return s.store.Delete(ctx, recordID)
}

/* ---------- assignment mutations ---------- */

// AssignGate puts the flight on a gate of the active pool.
func (s *DispatchService) AssignGate(ctx context.Context, recordID, gate string) (MutationResult, error) {
	gate = strings.TrimSpace(gate)
	if gate == "" || gate == scheduling.Unassigned {
		return s.UnassignGate(ctx, recordID)
	}
	return s.mutate(ctx, recordID, func(_ scheduling.FlightOperation, pool scheduling.ResourcePool) (providers.AssignmentWrite, error) {
		if !pool.Contains(scheduling.ClassGate, gate) {
			return providers.AssignmentWrite{}, fmt.Errorf("%w: gate %s", ErrUnknownResource, gate)
		}
		return providers.GateWrite(gate), nil
	})
}

// UnassignGate sends the flight back to the gate queue.
func (s *DispatchService) UnassignGate(ctx context.Context, recordID string) (MutationResult, error) {
	return s.mutate(ctx, recordID, func(scheduling.FlightOperation, scheduling.ResourcePool) (providers.AssignmentWrite, error) {
		return providers.GateWrite(scheduling.Unassigned), nil
	})
}

// MoveCheckin moves window index to another counter, keeping its times.
func (s *DispatchService) MoveCheckin(ctx context.Context, recordID string, index int, counter string) (MutationResult, error) {
	counter = strings.TrimSpace(counter)
	return s.mutate(ctx, recordID, func(f scheduling.FlightOperation, pool scheduling.ResourcePool) (providers.AssignmentWrite, error) {
		if err := checkIndex(f, index); err != nil {
			return providers.AssignmentWrite{}, err
		}
		if !pool.Contains(scheduling.ClassCounter, counter) {
			return providers.AssignmentWrite{}, fmt.Errorf("%w: counter %s", ErrUnknownResource, counter)
		}
		windows := f.Clone().Checkins
		windows[index].CounterID = counter
		return providers.CheckinWrite(windows), nil
	})
}

// RemoveCheckin drops window index; the rest keep their order.
func (s *DispatchService) RemoveCheckin(ctx context.Context, recordID string, index int) (MutationResult, error) {
	return s.mutate(ctx, recordID, func(f scheduling.FlightOperation, _ scheduling.ResourcePool) (providers.AssignmentWrite, error) {
		if err := checkIndex(f, index); err != nil {
			return providers.AssignmentWrite{}, err
		}
		windows := make([]scheduling.CheckinWindow, 0, len(f.Checkins)-1)
		windows = append(windows, f.Checkins[:index]...)
		windows = append(windows, f.Checkins[index+1:]...)
		return providers.CheckinWrite(windows), nil
	})
}

// SetCheckinWindows replaces the whole window list. Every window must be
// valid and on a declared counter, or nothing is applied.
func (s *DispatchService) SetCheckinWindows(ctx context.Context, recordID string, windows []scheduling.CheckinWindow) (MutationResult, error) {
	if err := scheduling.ValidateWindows(windows); err != nil {
		return MutationResult{}, err
	}
	return s.mutate(ctx, recordID, func(_ scheduling.FlightOperation, pool scheduling.ResourcePool) (providers.AssignmentWrite, error) {
		for i, w := range windows {
			if !pool.Contains(scheduling.ClassCounter, w.CounterID) {
				return providers.AssignmentWrite{}, fmt.Errorf("window %d: %w: counter %s", i, ErrUnknownResource, w.CounterID)
			}
		}
		return providers.CheckinWrite(windows), nil
	})
}

type writeBuilder func(f scheduling.FlightOperation, pool scheduling.ResourcePool) (providers.AssignmentWrite, error)

// mutate applies the write locally, asks the store to confirm it and rolls
// the field back if the store refuses. Writes to one record run one at a
// time, so every rollback restores the value the store still holds.
func (s *DispatchService) mutate(ctx context.Context, recordID string, build writeBuilder) (MutationResult, error) {
	release, err := s.lockRecord(ctx, recordID)
	if err != nil {
		return MutationResult{}, err
	}
	defer release()

	s.mu.Lock()
	current, ok := s.flights[recordID]
	if !ok {
		s.mu.Unlock()
		return MutationResult{}, fmt.Errorf("%w: %s", ErrFlightNotFound, recordID)
	}
	write, err := build(current, s.pool)
	if err == nil {
		err = write.Validate()
	}
	if err != nil {
		s.mu.Unlock()
		return MutationResult{}, err
	}

	proposed := write.Apply(current)
	m := scheduling.BeginMutation(current.Clone(), proposed)
	s.flights[recordID] = m.Value()
	optimistic := replayEntry{ev: updateEvent(proposed), field: write.Field}
	s.record(optimistic)
	s.pending[recordID] = optimistic
	s.version++
	s.mu.Unlock()

	_, storeErr := s.store.Mutate(ctx, recordID, write)
	final, rejected := m.Resolve(storeErr)

	s.mu.Lock()
	delete(s.pending, recordID)
	if now, ok := s.flights[recordID]; ok {
		// a remote update that replaced the proposed value is newer than this write
		if sameField(now, proposed, write.Field) {
			now = withField(now, final, write.Field)
			s.flights[recordID] = now
			s.record(replayEntry{ev: updateEvent(now), field: write.Field})
			s.version++
		}
		final = now
	}
	s.mu.Unlock()

	result := MutationResult{
		Outcome: m.State().String(),
		Field:   write.Field,
		Flight:  final.Clone(),
	}
	s.metrics.MutationsTotal.WithLabelValues(string(write.Field), result.Outcome).Inc()

	if rejected != nil {
		result.Reason = rejected.Error()
		logging.Warn("Assignment rolled back",
			"record_id", recordID,
			"flight", final.ID,
			"field", write.Field,
			"error", storeErr,
		)
	}
	return result, nil
}

// lockRecord waits for the record's write slot or ctx.
func (s *DispatchService) lockRecord(ctx context.Context, recordID string) (func(), error) {
	h := fnv.New32a()
	h.Write([]byte(recordID))
	slot := s.writeSlots[h.Sum32()%writeStripes]

	if err := slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { slot.Release(1) }, nil
}

func updateEvent(f scheduling.FlightOperation) common.ChangeEvent {
	return common.ChangeEvent{Type: constants.ChangeUpdate, RecordID: f.RecordID, Flight: &f}
}

func sameField(a, b scheduling.FlightOperation, field constants.MutationKind) bool {
	switch field {
	case constants.MutationGate:
		return a.Gate == b.Gate
	case constants.MutationCheckins:
		if len(a.Checkins) != len(b.Checkins) {
			return false
		}
		for i := range a.Checkins {
			x, y := a.Checkins[i], b.Checkins[i]
			if x.CounterID != y.CounterID || !x.Start.Equal(y.Start) || !x.End.Equal(y.End) {
				return false
			}
		}
		return true
	}
	return false
}

// withField copies only the mutated field of src onto dst, so a remote
// update to the other field that landed meanwhile survives.
func withField(dst, src scheduling.FlightOperation, field constants.MutationKind) scheduling.FlightOperation {
	out := dst.Clone()
	switch field {
	case constants.MutationGate:
		out.Gate = src.Gate
	case constants.MutationCheckins:
		out.Checkins = src.Clone().Checkins
	}
	return out
}

func checkIndex(f scheduling.FlightOperation, index int) error {
	if index < 0 || index >= len(f.Checkins) {
		return fmt.Errorf("%w: check-in index %d out of range for %d windows", scheduling.ErrInvalidArgument, index, len(f.Checkins))
	}
	return nil
}

/* ---------- check-in helpers ---------- */

// CheckinOverlap reports other flights whose windows on counter overlap
// [start, end). The flight's own windows are ignored.
func (s *DispatchService) CheckinOverlap(recordID, counter string, start, end time.Time) (OverlapCheck, error) {
	proposed := scheduling.CheckinWindow{CounterID: counter, Start: start, End: end}
	if err := proposed.Validate(); err != nil {
		return OverlapCheck{}, err
	}

	iv := scheduling.Interval{Start: start, End: end}
	check := OverlapCheck{Flights: []string{}}
	for _, f := range s.Snapshot().Flights {
		if f.RecordID == recordID {
			continue
		}
		for _, w := range f.Checkins {
			if w.CounterID == counter && iv.Overlaps(scheduling.Interval{Start: w.Start, End: w.End}) {
				check.Overlaps = true
				check.Flights = append(check.Flights, f.ID)
				break
			}
		}
	}
	return check, nil
}

// DefaultCheckinWindows proposes n consecutive counters starting at
// firstCounter, each open from three hours to forty minutes before the
// operative time. Truncated at the end of the counter pool.
func (s *DispatchService) DefaultCheckinWindows(recordID, firstCounter string, n int) ([]scheduling.CheckinWindow, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: counter count must be positive, got %d", scheduling.ErrInvalidArgument, n)
	}

	s.mu.RLock()
	f, ok := s.flights[recordID]
	counters := s.pool.Counters
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFlightNotFound, recordID)
	}
	if f.OperativeTime.IsZero() {
		return nil, fmt.Errorf("%w: flight %s has no operative time", scheduling.ErrInvalidArgument, f.ID)
	}

	first := -1
	for i, c := range counters {
		if c == firstCounter {
			first = i
			break
		}
	}
	if first == -1 {
		return nil, fmt.Errorf("%w: counter %s", ErrUnknownResource, firstCounter)
	}

	start := f.OperativeTime.Add(-scheduling.DefaultCheckinLead)
	end := f.OperativeTime.Add(-scheduling.DefaultCheckinClose)
	windows := make([]scheduling.CheckinWindow, 0, n)
	for i := first; i < len(counters) && len(windows) < n; i++ {
		windows = append(windows, scheduling.CheckinWindow{CounterID: counters[i], Start: start, End: end})
	}
	return windows, nil
}

/* ---------- configuration ---------- */

func (s *DispatchService) GateBuffer() scheduling.GateBuffer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buffer
}

// SetGateBuffer changes the padding used for every gate claim.
func (s *DispatchService) SetGateBuffer(buf scheduling.GateBuffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer != buf {
		s.buffer = buf
		s.version++
		logging.Info("Gate buffer changed", "pre_minutes", buf.PreMinutes, "post_minutes", buf.PostMinutes)
	}
	return nil
}

// InitPool seeds the pool repository with defaults on first start and loads
// the declared pool. Without a repository the defaults are used as-is.
func (s *DispatchService) InitPool(ctx context.Context, defaults scheduling.ResourcePool) error {
	pool := copyPool(defaults)

	if s.poolRepo != nil {
		if err := s.poolRepo.Seed(ctx, scheduling.ClassGate, defaults.Gates); err != nil {
			return fmt.Errorf("seed gates: %w", err)
		}
		if err := s.poolRepo.Seed(ctx, scheduling.ClassCounter, defaults.Counters); err != nil {
			return fmt.Errorf("seed counters: %w", err)
		}

		gates, err := s.poolRepo.List(ctx, scheduling.ClassGate)
		if err != nil {
			return fmt.Errorf("list gates: %w", err)
		}
		counters, err := s.poolRepo.List(ctx, scheduling.ClassCounter)
		if err != nil {
			return fmt.Errorf("list counters: %w", err)
		}
		pool.Gates = gates
		// stored order is lexical; keep the terminal's row order for counters
		pool.Counters = orderLike(counters, defaults.Counters)
	}

	sort.Strings(pool.Gates)

	s.mu.Lock()
	s.pool = pool
	s.version++
	s.mu.Unlock()
	return nil
}

func (s *DispatchService) Pool() scheduling.ResourcePool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPool(s.pool)
}

// AddGate declares a gate. Adding a declared gate is a no-op.
func (s *DispatchService) AddGate(ctx context.Context, id string) (scheduling.ResourcePool, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == scheduling.Unassigned {
		return scheduling.ResourcePool{}, fmt.Errorf("%w: invalid gate id %q", scheduling.ErrInvalidArgument, id)
	}
	if s.Pool().Contains(scheduling.ClassGate, id) {
		return s.Pool(), nil
	}

	if s.poolRepo != nil {
		if _, err := s.poolRepo.Add(ctx, scheduling.ClassGate, id); err != nil {
			return scheduling.ResourcePool{}, fmt.Errorf("add gate %s: %w", id, err)
		}
	}

	s.mu.Lock()
	if !s.pool.Contains(scheduling.ClassGate, id) {
		s.pool.Gates = append(s.pool.Gates, id)
		sort.Strings(s.pool.Gates)
		s.version++
	}
	pool := copyPool(s.pool)
	s.mu.Unlock()

	logging.Info("Gate added to pool", "gate", id, "pool_size", len(pool.Gates))
	return pool, nil
}

// RemoveGate withdraws a gate. Flights still parked on it keep their
// assignment and show up as an extra lane.
func (s *DispatchService) RemoveGate(ctx context.Context, id string) (scheduling.ResourcePool, error) {
	id = strings.TrimSpace(id)
	if !s.Pool().Contains(scheduling.ClassGate, id) {
		return scheduling.ResourcePool{}, fmt.Errorf("%w: gate %s", ErrUnknownResource, id)
	}

	if s.poolRepo != nil {
		if _, err := s.poolRepo.Remove(ctx, scheduling.ClassGate, id); err != nil {
			return scheduling.ResourcePool{}, fmt.Errorf("remove gate %s: %w", id, err)
		}
	}

	s.mu.Lock()
	gates := s.pool.Gates[:0:0]
	for _, g := range s.pool.Gates {
		if g != id {
			gates = append(gates, g)
		}
	}
	if len(gates) != len(s.pool.Gates) {
		s.pool.Gates = gates
		s.version++
	}
	pool := copyPool(s.pool)
	s.mu.Unlock()

	logging.Info("Gate removed from pool", "gate", id, "pool_size", len(pool.Gates))
	return pool, nil
}

/* ---------- derived views ---------- */

// Conflicts derives claims of class from the snapshot and lays them out per
// declared resource with conflicting claims marked.
func (s *DispatchService) Conflicts(class scheduling.ResourceClass) ConflictView {
	start := time.Now()
	snap := s.Snapshot()

	claims := scheduling.FilterClass(scheduling.DeriveAllClaims(snap.Flights, snap.Buffer), class)
	conflicts := scheduling.FindConflicts(claims)

	ids := snap.Pool.Gates
	if class == scheduling.ClassCounter {
		ids = snap.Pool.Counters
	}

	s.metrics.ConflictedClaims.WithLabelValues(string(class)).Set(float64(len(conflicts)))
	s.metrics.AnalysisDuration.WithLabelValues("conflicts").Observe(time.Since(start).Seconds())

	return ConflictView{
		Version:    snap.Version,
		Class:      class,
		Lanes:      scheduling.GroupByResource(claims, class, ids, conflicts),
		Conflicted: conflicts.IDs(),
	}
}

// Queue packs the flights holding no claim of class into lanes, projected
// at zoom pixels per minute from the window start.
func (s *DispatchService) Queue(class scheduling.ResourceClass, zoom float64) (QueueView, error) {
	if zoom <= 0 {
		return QueueView{}, fmt.Errorf("%w: zoom must be positive, got %g", scheduling.ErrInvalidArgument, zoom)
	}

	start := time.Now()
	snap := s.Snapshot()

	var waiting []scheduling.FlightOperation
	for _, f := range snap.Flights {
		if !snap.Window.Contains(f.OperativeTime) {
			continue
		}
		if class == scheduling.ClassGate && !f.HasGate() || class == scheduling.ClassCounter && !f.HasCheckins() {
			waiting = append(waiting, f)
		}
	}
	sort.SliceStable(waiting, func(i, j int) bool {
		return scheduling.QueueTime(waiting[i], class).Before(scheduling.QueueTime(waiting[j], class))
	})

	origin := snap.Window.Start
	placed, lanes := scheduling.PackQueue(waiting, func(f scheduling.FlightOperation) float64 {
		return scheduling.TimeToX(scheduling.QueueTime(f, class), origin, zoom)
	}, scheduling.QueueCardWidth, scheduling.QueueMinGap)

	s.metrics.AnalysisDuration.WithLabelValues("queue").Observe(time.Since(start).Seconds())

	return QueueView{
		Version:   snap.Version,
		Class:     class,
		Origin:    origin,
		Zoom:      zoom,
		LaneCount: lanes,
		Items:     placed,
	}, nil
}

func sortByOperativeTime(flights []scheduling.FlightOperation) {
	sort.Slice(flights, func(i, j int) bool {
		a, b := flights[i], flights[j]
		if !a.OperativeTime.Equal(b.OperativeTime) {
			return a.OperativeTime.Before(b.OperativeTime)
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return a.RecordID < b.RecordID
	})
}

func sameRange(a, b scheduling.TimeRange) bool {
	return a.Start.Equal(b.Start) && a.End.Equal(b.End)
}

func copyPool(p scheduling.ResourcePool) scheduling.ResourcePool {
	return scheduling.ResourcePool{
		Gates:    append([]string{}, p.Gates...),
		Counters: append([]string{}, p.Counters...),
	}
}

// orderLike returns ids in the order they appear in reference, followed by
// any ids reference lacks.
func orderLike(ids, reference []string) []string {
	have := make(map[string]bool, len(ids))
	for _, id := range ids {
		have[id] = true
	}
	out := make([]string, 0, len(ids))
	for _, id := range reference {
		if have[id] {
			out = append(out, id)
			delete(have, id)
		}
	}
	var rest []string
	for id := range have {
		rest = append(rest, id)
	}
	sort.Strings(rest)
	return append(out, rest...)
}
