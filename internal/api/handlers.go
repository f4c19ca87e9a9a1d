package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/marketplace-matcher/internal/models"
	"github.com/maltedev/marketplace-matcher/internal/runs"
)

// RunService is the part of runs.Manager the handlers use.
type RunService interface {
	Create(tasks []models.Task) (runs.Run, error)
	Get(id string) (runs.Run, error)
	List() []runs.Run
}

type Handlers struct {
	runs   RunService
	logger *slog.Logger
}

func NewHandlers(runs RunService, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:   runs,
		logger: logger.With("component", "api"),
	}
}

type CreateRunRequest struct {
	Tasks []models.Task `json:"tasks"`
}

type CreateRunResponse struct {
	ID     string      `json:"id"`
	Status runs.Status `json:"status"`
	Total  int         `json:"total"`
}

// CreateRun starts a matching run and returns immediately.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	run, err := h.runs.Create(req.Tasks)
	switch {
	case errors.Is(err, runs.ErrInvalidTasks):
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, runs.ErrShuttingDown):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	case err != nil:
		h.logger.Error("failed to create run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{
		ID:     run.ID,
		Status: run.Status,
		Total:  run.Total,
	})
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := h.runs.Get(runID)
	if errors.Is(err, runs.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "error", err, "id", runID)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	if run.Status != runs.StatusCompleted {
		run.Rows = nil
	}
	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.runs.List())
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
