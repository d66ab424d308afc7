package scheduling

import "errors"

var (
	// ErrInvalidArgument marks caller contract violations. Never coerced.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrMutationRejected means the store refused an assignment write and the
	// local value was rolled back.
	ErrMutationRejected = errors.New("mutation rejected")
)
