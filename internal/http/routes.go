package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/cuesplit/internal/http/dto"
	"github.com/cesargomez89/cuesplit/internal/store"
)

const maxRequestBody = 1 << 20

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.IndexResponse{Message: endpointsMessage})
}

func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "unknown endpoint")
}

func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		h.Logger.Warn("Invalid request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:  dto.ToResponse(errs),
			Fields: dto.ToMap(errs),
		})
		return
	}

	job, err := h.JobService.Submit(req.Path)
	if err != nil {
		h.Logger.Error("Failed to submit job", "path", req.Path, "error", err)
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, dto.ProcessResponse{
		JobID:  job.Key(),
		Status: string(job.Status),
	})
}

func (h *Handler) ListStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, dto.NewJobMap(h.JobService.List()))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")
	id, ok := dto.ParseJobID(key)
	if !ok {
		h.writeError(w, http.StatusNotFound, "job not found")
		return
	}

	job, err := h.JobService.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			h.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := dto.NewJobResponse(job)
	resp.JobID = job.Key()
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetLog(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "id")
	id, ok := dto.ParseJobID(key)
	if !ok {
		h.writeError(w, http.StatusNotFound, "log not found")
		return
	}

	content, err := h.JobService.ReadLog(id)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) || errors.Is(err, os.ErrNotExist) {
			h.writeError(w, http.StatusNotFound, "log not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, dto.LogResponse{JobID: key, Log: content})
}
