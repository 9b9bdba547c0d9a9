package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/middleware"
	"github.com/ocula-lovable/creative-forge/internal/orchestrator"
)

type generateRequest struct {
	ProjectID   *string `json:"project_id"`
	Type        string  `json:"type"`
	Prompt      string  `json:"prompt"`
	Style       string  `json:"style"`
	Duration    int     `json:"duration"`
	AspectRatio string  `json:"aspect_ratio"`
}

// Generate accepts a generation request, debits the flat credit cost and
// responds 202 with the job in its pre-terminal state. Clients poll the job
// endpoint for the outcome.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	job, err := a.Orchestrator.Submit(r.Context(), accountID, orchestrator.SubmitRequest{
		ProjectID:   req.ProjectID,
		AssetType:   req.Type,
		Prompt:      req.Prompt,
		Style:       req.Style,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Locale:      middleware.LocaleFromContext(r.Context()),
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidRequest):
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		case errors.Is(err, domain.ErrInsufficientCredits):
			a.error(w, http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this generation")
		case errors.Is(err, domain.ErrNotFound):
			a.error(w, http.StatusUnauthorized, "unauthorized", "unknown account")
		default:
			a.Logger.Error().Err(err).Str("account_id", accountID).Msg("generate: submit failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to submit generation")
		}
		return
	}

	a.json(w, http.StatusAccepted, toJobPayload(*job))
}
