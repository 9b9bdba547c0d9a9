package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

type jobStatusPayload struct {
	jobPayload
	// KeepPolling tells the client whether to re-request; false once the
	// job reached a terminal state.
	KeepPolling bool `json:"keep_polling"`
}

// JobsList returns the caller's jobs newest first, optionally filtered by
// project and asset type.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}

	var filter domain.JobFilter
	if projectID := r.URL.Query().Get("projectId"); projectID != "" {
		filter.ProjectID = &projectID
	}
	if rawType := r.URL.Query().Get("type"); rawType != "" {
		assetType, ok := domain.ParseAssetType(rawType)
		if !ok {
			a.error(w, http.StatusBadRequest, "bad_request", "unknown asset type")
			return
		}
		filter.AssetType = &assetType
	}

	jobs, err := a.Status.List(r.Context(), accountID, filter)
	if err != nil {
		a.Logger.Error().Err(err).Msg("jobs: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list jobs")
		return
	}

	payload := make([]jobPayload, 0, len(jobs))
	for _, job := range jobs {
		payload = append(payload, toJobPayload(job))
	}
	a.json(w, http.StatusOK, payload)
}

// JobGet returns one job with the poll-continuation hint.
func (a *App) JobGet(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job id required")
		return
	}

	job, keepPolling, err := a.Status.Get(r.Context(), accountID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, domain.ErrForbidden):
			a.error(w, http.StatusForbidden, "forbidden", "job belongs to another account")
		default:
			a.Logger.Error().Err(err).Str("job_id", jobID).Msg("jobs: get failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		}
		return
	}

	a.json(w, http.StatusOK, jobStatusPayload{jobPayload: toJobPayload(*job), KeepPolling: keepPolling})
}
