package common

import (
	"context"
	"sync"

	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/scheduling"
)

// ChangeEvent is one insert/update/delete on the flights table. Flight is
// the new row for inserts and updates and nil for deletes.
type ChangeEvent struct {
	Type     constants.ChangeEvent       `json:"type"`
	RecordID string                      `json:"record_id"`
	Flight   *scheduling.FlightOperation `json:"flight,omitempty"`
}

// Notifier fans flight changes out to every subscribed board.
type Notifier interface {
	Publish(ctx context.Context, ev ChangeEvent) error
	// Subscribe returns a channel that is closed once ctx is done.
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
	Close() error
}

const subscriberBuffer = 64

// LocalNotifier delivers events in-process, for single-instance deployments
// and tests.
type LocalNotifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]*localSub
	closed bool
}

type localSub struct {
	ch   chan ChangeEvent
	done <-chan struct{}
}

var _ Notifier = (*LocalNotifier)(nil)

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{subs: make(map[int]*localSub)}
}

// Publish blocks until every live subscriber has buffered the event or ctx
// is done.
func (n *LocalNotifier) Publish(ctx context.Context, ev ChangeEvent) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for _, s := range n.subs {
		select {
		case s.ch <- ev:
		case <-s.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (n *LocalNotifier) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make(chan ChangeEvent, subscriberBuffer)
	if n.closed {
		close(out)
		return out, nil
	}

	id := n.nextID
	n.nextID++
	n.subs[id] = &localSub{ch: out, done: ctx.Done()}

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		defer n.mu.Unlock()
		if s, ok := n.subs[id]; ok {
			delete(n.subs, id)
			close(s.ch)
		}
	}()

	return out, nil
}

// Subscribers reports the number of live subscriptions.
func (n *LocalNotifier) Subscribers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}

// Close ends every subscription.
func (n *LocalNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for id, s := range n.subs {
		delete(n.subs, id)
		close(s.ch)
	}
	n.closed = true
	return nil
}
