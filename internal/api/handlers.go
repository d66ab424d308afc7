package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/logging"
	"infinite-experiment/dispatchboard/internal/scheduling"
	"infinite-experiment/dispatchboard/internal/services"
)

type Handlers struct {
	deps *Dependencies
}

// NewHandlers creates a new handlers instance with injected dependencies
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		deps: deps,
	}
}

func (h *Handlers) dispatch() *services.DispatchService { return h.deps.Services.Dispatch }
func (h *Handlers) analysis() *services.AnalysisService { return h.deps.Services.Analysis }

// respondServiceError maps service errors onto status codes.
func respondServiceError(w http.ResponseWriter, initTime time.Time, err error) {
	switch {
	case errors.Is(err, services.ErrFlightNotFound):
		common.RespondError(w, initTime, err, constants.MsgFlightNotFound, http.StatusNotFound)
	case errors.Is(err, services.ErrUnknownResource):
		common.RespondError(w, initTime, err, constants.MsgUnknownResource, http.StatusBadRequest)
	case errors.Is(err, services.ErrNoWindow):
		common.RespondError(w, initTime, nil, constants.MsgSnapshotNotLoaded, http.StatusConflict)
	case errors.Is(err, scheduling.ErrInvalidArgument):
		common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
	default:
		logging.Error("Request failed", "error", err)
		common.RespondError(w, initTime, err, "Internal server error", http.StatusInternalServerError)
	}
}

// respondMutation writes 200 for a confirmed write and 409 with the
// restored record for a rolled-back one.
func respondMutation(w http.ResponseWriter, initTime time.Time, res services.MutationResult, err error) {
	if err != nil {
		respondServiceError(w, initTime, err)
		return
	}
	if res.RolledBack() {
		common.RespondErrorWithData(w, initTime, nil, constants.MsgMutationRejected, res, http.StatusConflict)
		return
	}
	common.RespondSuccess(w, initTime, constants.MsgMutationConfirmed, res)
}

func decodeJSON(r *http.Request, dest any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: %v", scheduling.ErrInvalidArgument, err)
	}
	return nil
}

// timeParam parses an RFC 3339 query parameter; absent gives the zero time.
func timeParam(r *http.Request, name string) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339, got %q", scheduling.ErrInvalidArgument, name, v)
	}
	return t.UTC(), nil
}

func rangeParams(r *http.Request) (time.Time, time.Time, error) {
	from, err := timeParam(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := timeParam(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from.IsZero() != to.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: from and to must be given together", scheduling.ErrInvalidArgument)
	}
	return from, to, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", scheduling.ErrInvalidArgument, name, v)
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean, got %q", scheduling.ErrInvalidArgument, name, v)
	}
	return b, nil
}

// classParam defaults to gates.
func classParam(r *http.Request) (scheduling.ResourceClass, error) {
	v := r.URL.Query().Get("class")
	if v == "" {
		return scheduling.ClassGate, nil
	}
	return scheduling.ParseResourceClass(v)
}
