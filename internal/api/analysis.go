package api

import (
	"net/http"
	"time"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/services"
)

func occupancyQuery(r *http.Request) (services.OccupancyQuery, error) {
	var q services.OccupancyQuery
	var err error

	if q.Class, err = classParam(r); err != nil {
		return q, err
	}
	if q.Start, q.End, err = rangeParams(r); err != nil {
		return q, err
	}
	if q.BucketMinutes, err = intParam(r, "bucket", constants.DefaultBucketMinutes); err != nil {
		return q, err
	}
	if q.Hourly, err = boolParam(r, "hourly"); err != nil {
		return q, err
	}
	if q.IncludeUnassigned, err = boolParam(r, "demand"); err != nil {
		return q, err
	}
	return q, nil
}

func (h *Handlers) Occupancy() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q, err := occupancyQuery(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		res, err := h.analysis().Occupancy(r.Context(), q)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Occupancy", res)
	}
}

func (h *Handlers) Capacity() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q, err := occupancyQuery(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		res, err := h.analysis().Capacity(r.Context(), q)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Capacity", res)
	}
}

// Peak evaluates gates and counters over the same range.
func (h *Handlers) Peak() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		q, err := occupancyQuery(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		res, err := h.analysis().Peak(r.Context(), q.Start, q.End, q.BucketMinutes, q.Hourly)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Peak", res)
	}
}

func (h *Handlers) Density() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		from, to, err := rangeParams(r)
		if err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidWindow, http.StatusBadRequest)
			return
		}
		if from.IsZero() && !h.dispatch().Loaded() {
			common.RespondError(w, initTime, nil, constants.MsgSnapshotNotLoaded, http.StatusConflict)
			return
		}

		m, err := h.analysis().Density(r.Context(), from, to)
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Density", m)
	}
}
