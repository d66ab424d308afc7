package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/scheduling"
)

func (h *Handlers) Conflicts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		class, err := classParam(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}
		if !h.dispatch().Loaded() {
			common.RespondError(w, initTime, nil, constants.MsgSnapshotNotLoaded, http.StatusConflict)
			return
		}

		common.RespondSuccess(w, initTime, "Conflicts", h.dispatch().Conflicts(class))
	}
}

// Queue packs the unassigned flights of ?class at ?zoom pixels per minute.
func (h *Handlers) Queue() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		class, err := classParam(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}
		zoom := constants.DefaultZoom
		if v := r.URL.Query().Get("zoom"); v != "" {
			if zoom, err = strconv.ParseFloat(v, 64); err != nil {
				err = fmt.Errorf("%w: zoom must be a number, got %q", scheduling.ErrInvalidArgument, v)
				common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
				return
			}
		}
		if !h.dispatch().Loaded() {
			common.RespondError(w, initTime, nil, constants.MsgSnapshotNotLoaded, http.StatusConflict)
			return
		}

		view, err := h.dispatch().Queue(class, zoom)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Queue", view)
	}
}
