package workers

import (
	"context"
	"time"

	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/scheduling"
	"infinite-experiment/dispatchboard/internal/services"
)

// Board is the part of the dispatch service the monitor reads.
type Board interface {
	Loaded() bool
	Snapshot() services.Snapshot
	Conflicts(class scheduling.ResourceClass) services.ConflictView
	Refresh(ctx context.Context) error
	StoreDrift(ctx context.Context) (stored int64, held int, err error)
}

// SnapshotMonitor logs board health and keeps the conflict gauges current.
// With reconcile set it reloads the window on every tick; otherwise it reloads
// only when the store's flight count no longer matches the board.
type SnapshotMonitor struct {
	board     Board
	reconcile bool
}

func NewSnapshotMonitor(board Board, reconcile bool) *SnapshotMonitor {
	return &SnapshotMonitor{
		board:     board,
		reconcile: reconcile,
	}
}

// Start blocks until ctx is done.
func (m *SnapshotMonitor) Start(ctx context.Context, interval time.Duration) {
	logging.Info("Snapshot monitor starting", "interval", interval.String(), "reconcile", m.reconcile)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info("Snapshot monitor shutting down")
			return
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

func (m *SnapshotMonitor) check(ctx context.Context) {
	if !m.board.Loaded() {
		return
	}

	if m.reconcile {
		if err := m.board.Refresh(ctx); err != nil {
			logging.Warn("Snapshot reconcile failed", "error", err)
		}
	} else {
		m.reconcileDrift(ctx)
	}

	snap := m.board.Snapshot()
	gates := m.board.Conflicts(scheduling.ClassGate)
	counters := m.board.Conflicts(scheduling.ClassCounter)

	unassigned := 0
	for _, f := range snap.Flights {
		if !f.HasGate() {
			unassigned++
		}
	}

	fields := []interface{}{
		"version", snap.Version,
		"flights", len(snap.Flights),
		"unassigned_gates", unassigned,
		"gate_conflicts", len(gates.Conflicted),
		"counter_conflicts", len(counters.Conflicted),
	}
	if len(gates.Conflicted)+len(counters.Conflicted) > 0 {
		logging.Warn("Board has conflicting claims", fields...)
		return
	}
	logging.Debug("Board health", fields...)
}

func (m *SnapshotMonitor) reconcileDrift(ctx context.Context) {
	stored, held, err := m.board.StoreDrift(ctx)
	if err != nil {
		logging.Warn("Store count failed", "error", err)
		return
	}
	if stored == int64(held) {
		return
	}

	logging.Warn("Board out of step with store, reloading", "stored", stored, "held", held)
	if err := m.board.Refresh(ctx); err != nil {
		logging.Warn("Snapshot reconcile failed", "error", err)
	}
}
