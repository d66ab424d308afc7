package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"infinite-experiment/dispatchboard/internal/common"
	"infinite-experiment/dispatchboard/internal/constants"
	"infinite-experiment/dispatchboard/internal/models/dtos"
)

func (h *Handlers) GetPool() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.RespondSuccess(w, time.Now(), "Resource pool", h.dispatch().Pool())
	}
}

func (h *Handlers) AddGate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		pool, err := h.dispatch().AddGate(r.Context(), chi.URLParam(r, "gate_id"))
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Gate added", pool)
	}
}

func (h *Handlers) RemoveGate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		pool, err := h.dispatch().RemoveGate(r.Context(), chi.URLParam(r, "gate_id"))
		if err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Gate removed", pool)
	}
}

func (h *Handlers) GetBuffer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.RespondSuccess(w, time.Now(), "Gate buffer", h.dispatch().GateBuffer())
	}
}

func (h *Handlers) SetBuffer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.BufferRequest
		if err := decodeJSON(r, &req); err != nil {
			common.RespondError(w, initTime, err, constants.MsgInvalidBody, http.StatusBadRequest)
			return
		}

		buf := req.Buffer(h.dispatch().GateBuffer())
		if err := h.dispatch().SetGateBuffer(buf); err != nil {
			respondServiceError(w, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Gate buffer updated", buf)
	}
}
