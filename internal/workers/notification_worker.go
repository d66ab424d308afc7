package workers

import (
	"context"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/logging"
)

// Subscriber is the notification side of the flight store.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan common.ChangeEvent, error)
}

// EventApplier folds change notifications into the board snapshot.
type EventApplier interface {
	ApplyEvent(ev common.ChangeEvent) bool
}

// NotificationWorker keeps the snapshot in step with remote writes. When the
// subscription drops it resubscribes after retryDelay.
type NotificationWorker struct {
	source     Subscriber
	target     EventApplier
	retryDelay time.Duration
}

func NewNotificationWorker(source Subscriber, target EventApplier) *NotificationWorker {
	return &NotificationWorker{
		source:     source,
		target:     target,
		retryDelay: 2 * time.Second,
	}
}

// Start blocks until ctx is done.
func (w *NotificationWorker) Start(ctx context.Context) {
	logging.Info("Notification worker starting")

	for {
		events, err := w.source.Subscribe(ctx)
		if err != nil {
			logging.Error("Subscribe failed", "error", err, "retry_in", w.retryDelay.String())
		} else {
			applied, ignored := w.drain(ctx, events)
			logging.Info("Notification subscription ended", "applied", applied, "ignored", ignored)
		}

		select {
		case <-ctx.Done():
			logging.Info("Notification worker shutting down")
			return
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *NotificationWorker) drain(ctx context.Context, events <-chan common.ChangeEvent) (applied, ignored int) {
	for {
		select {
		case <-ctx.Done():
			return applied, ignored
		case ev, ok := <-events:
			if !ok {
				return applied, ignored
			}
			if w.target.ApplyEvent(ev) {
				applied++
			} else {
				ignored++
				logging.Debug("Notification ignored", "event", ev.Type, "record_id", ev.RecordID)
			}
		}
	}
}
