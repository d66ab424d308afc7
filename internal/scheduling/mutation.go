package scheduling

import (
	"fmt"
	"sync"
)

// MutationState is the lifecycle of an optimistic assignment write.
type MutationState int

const (
	MutationPending MutationState = iota
	MutationConfirmed
	MutationRolledBack
)

func (s MutationState) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationConfirmed:
		return "confirmed"
	case MutationRolledBack:
		return "rolled_back"
	}
	return "unknown"
}

// Mutation tracks one optimistic single-field replacement:
// Pending(old) -> Confirmed | RolledBack(old). The proposed value is
// observable while pending; exactly one of {proposed, old} is observable once
// resolved, and a mutation resolves only once.
type Mutation[T any] struct {
	mu       sync.Mutex
	old      T
	proposed T
	state    MutationState
	err      error
}

// BeginMutation records the pre-mutation value alongside the proposed one.
func BeginMutation[T any](old, proposed T) *Mutation[T] {
	return &Mutation[T]{old: old, proposed: proposed, state: MutationPending}
}

// Resolve settles the mutation with the store's answer. A nil storeErr
// confirms the proposed value; anything else rolls back to the old value and
// returns an error wrapping ErrMutationRejected. Later calls return the first
// outcome unchanged.
func (m *Mutation[T]) Resolve(storeErr error) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == MutationPending {
		if storeErr == nil {
			m.state = MutationConfirmed
		} else {
			m.state = MutationRolledBack
			m.err = fmt.Errorf("%w: %v", ErrMutationRejected, storeErr)
		}
	}

	if m.state == MutationConfirmed {
		return m.proposed, nil
	}
	return m.old, m.err
}

// State returns the current lifecycle state.
func (m *Mutation[T]) State() MutationState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Value returns the currently observable value.
func (m *Mutation[T]) Value() T {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == MutationRolledBack {
		return m.old
	}
	return m.proposed
}

// Old returns the pre-mutation value.
func (m *Mutation[T]) Old() T {
	return m.old
}
