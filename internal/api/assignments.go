package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/models/dtos"
	"infinite-experiment/dispatchboard/internal/scheduling"
)

func (h *Handlers) AssignGate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.GateRequest
		if err := decodeJSON(r, &req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		res, err := h.dispatch().AssignGate(r.Context(), chi.URLParam(r, "record_id"), req.Gate)
		respondMutation(w, initTime, res, err)
	}
}

func (h *Handlers) UnassignGate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		res, err := h.dispatch().UnassignGate(r.Context(), chi.URLParam(r, "record_id"))
		respondMutation(w, initTime, res, err)
	}
}

func (h *Handlers) SetCheckins() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.CheckinWindowsRequest
		if err := decodeJSON(r, &req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		res, err := h.dispatch().SetCheckinWindows(r.Context(), chi.URLParam(r, "record_id"), dtos.ToWindows(req.Windows))
		respondMutation(w, initTime, res, err)
	}
}

func (h *Handlers) MoveCheckin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		index, err := indexParam(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgCheckinIndexRange, http.StatusBadRequest)
			return
		}
		var req dtos.CounterRequest
		if err := decodeJSON(r, &req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		res, err := h.dispatch().MoveCheckin(r.Context(), chi.URLParam(r, "record_id"), index, req.Counter)
		respondMutation(w, initTime, res, err)
	}
}

func (h *Handlers) RemoveCheckin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		index, err := indexParam(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgCheckinIndexRange, http.StatusBadRequest)
			return
		}

		res, err := h.dispatch().RemoveCheckin(r.Context(), chi.URLParam(r, "record_id"), index)
		respondMutation(w, initTime, res, err)
	}
}

// DefaultCheckins proposes n consecutive counters starting at ?counter.
// Nothing is written.
func (h *Handlers) DefaultCheckins() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		n, err := intParam(r, "n", 1)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		windows, err := h.dispatch().DefaultCheckinWindows(chi.URLParam(r, "record_id"), r.URL.Query().Get("counter"), n)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Default check-in windows", windows)
	}
}

func (h *Handlers) CheckinOverlap() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		start, err := timeParam(r, "start")
		if err == nil && start.IsZero() {
			err = fmt.Errorf("%w: start is required", scheduling.ErrInvalidArgument)
		}
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidWindow, http.StatusBadRequest)
			return
		}
		end, err := timeParam(r, "end")
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidWindow, http.StatusBadRequest)
			return
		}

		check, err := h.dispatch().CheckinOverlap(chi.URLParam(r, "record_id"), r.URL.Query().Get("counter"), start, end)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Overlap check", check)
	}
}

func indexParam(r *http.Request) (int, error) {
	v := chi.URLParam(r, "index")
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: check-in index must be an integer, got %q", scheduling.ErrInvalidArgument, v)
	}
	return n, nil
}
