package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/models/dtos"
	"infinite-experiment/dispatchboard/internal/scheduling"
)

// GetFlights returns the snapshot. With from and to only the flights
// operating in that part of the window are returned.
func (h *Handlers) GetFlights() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		from, to, err := rangeParams(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidWindow, http.StatusBadRequest)
			return
		}
		if !h.dispatch().Loaded() {
			common.RespondError(w, initTime, nil, constants.MsgSnapshotNotLoaded, http.StatusConflict)
			return
		}

		snap := h.dispatch().Snapshot()
		if from.IsZero() {
			common.RespondSuccess(w, initTime, "Snapshot loaded", snap)
			return
		}

		part := scheduling.TimeRange{Start: from, End: to}
		if err := part.Validate(); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidWindow, http.StatusBadRequest)
			return
		}
		if from.Before(snap.Window.Start) || to.After(snap.Window.End) {
			err := fmt.Errorf("%w: range is outside the loaded window", scheduling.ErrInvalidArgument)
			common.RespondError(w, initTime, err, constants.MsgOutsideWindow, http.StatusBadRequest)
			return
		}

		flights := make([]scheduling.FlightOperation, 0, len(snap.Flights))
		for _, f := range snap.Flights {
			if part.Contains(f.OperativeTime) {
				flights = append(flights, f)
			}
		}
		snap.Flights = flights
		snap.Nearby = nil
		common.RespondSuccess(w, initTime, "Snapshot loaded", snap)
	}
}

// SetWindow moves the shared view window and reloads it.
func (h *Handlers) SetWindow() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.WindowRequest
		if err := decodeJSON(r, &req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		window := scheduling.TimeRange{Start: req.Start.UTC(), End: req.End.UTC()}
		if err := h.dispatch().SetWindow(r.Context(), window); err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Window loaded", h.dispatch().Snapshot())
	}
}

func (h *Handlers) ImportFlights() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.ImportRequest
		if err := decodeJSON(r, &req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}
		ops, err := req.ToOperations()
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		stored, err := h.dispatch().ImportFlights(r.Context(), ops)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}

		resp := dtos.ImportResponse{Inserted: len(stored), IDs: make([]string, 0, len(stored))}
		for _, f := range stored {
			resp.IDs = append(resp.IDs, f.RecordID)
		}
		common.RespondSuccess(w, initTime, "Flights imported", resp, http.StatusCreated)
	}
}

func (h *Handlers) DeleteFlight() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		if err := h.dispatch().DeleteFlight(r.Context(), chi.URLParam(r, "record_id")); err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Flight deleted", nil)
	}
}
