package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

type projectPayload struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProjectPayload(p domain.Project) projectPayload {
	return projectPayload{
		ID:          p.ID,
		OwnerID:     p.OwnerID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ProjectsList returns the caller's projects.
func (a *App) ProjectsList(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	projects, err := a.Projects.ListByOwner(r.Context(), accountID)
	if err != nil {
		a.Logger.Error().Err(err).Msg("projects: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list projects")
		return
	}
	payload := make([]projectPayload, 0, len(projects))
	for _, p := range projects {
		payload = append(payload, toProjectPayload(p))
	}
	a.json(w, http.StatusOK, payload)
}

// ProjectsCreate creates a project owned by the caller.
func (a *App) ProjectsCreate(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project name required")
		return
	}

	project := &domain.Project{
		ID:          uuid.NewString(),
		OwnerID:     accountID,
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
	}
	if err := a.Projects.Create(r.Context(), project); err != nil {
		a.Logger.Error().Err(err).Msg("projects: create failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create project")
		return
	}
	a.json(w, http.StatusCreated, toProjectPayload(*project))
}

// ProjectGet returns one project, enforcing ownership.
func (a *App) ProjectGet(w http.ResponseWriter, r *http.Request) {
	accountID := a.currentAccountID(r)
	if accountID == "" {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing account context")
		return
	}
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "project id required")
		return
	}

	project, err := a.Projects.GetByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		a.Logger.Error().Err(err).Str("project_id", projectID).Msg("projects: get failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load project")
		return
	}
	if project.OwnerID != accountID {
		a.error(w, http.StatusForbidden, "forbidden", "project belongs to another account")
		return
	}
	a.json(w, http.StatusOK, toProjectPayload(*project))
}
