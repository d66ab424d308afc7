package workers

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

type WorkersContainer struct {
	Notifications *NotificationWorker
	Monitor       *SnapshotMonitor

	group *errgroup.Group
}

// LiveBoard is a board that also accepts change notifications.
type LiveBoard interface {
	Board
	EventApplier
}

// InitWorkers starts the background workers; they stop when ctx is done.
func InitWorkers(ctx context.Context, source Subscriber, board LiveBoard, monitorInterval time.Duration, reconcile bool) *WorkersContainer {
	nw := NewNotificationWorker(source, board)
	monitor := NewSnapshotMonitor(board, reconcile)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nw.Start(gctx)
		return nil
	})
	g.Go(func() error {
		monitor.Start(gctx, monitorInterval)
		return nil
	})

	return &WorkersContainer{
		Notifications: nw,
		Monitor:       monitor,
		group:         g,
	}
}

// Wait blocks until every worker has returned.
func (c *WorkersContainer) Wait() {
	_ = c.group.Wait()
}
