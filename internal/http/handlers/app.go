package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/infra"
	"github.com/ocula-lovable/creative-forge/internal/middleware"
	"github.com/ocula-lovable/creative-forge/internal/orchestrator"
	"github.com/ocula-lovable/creative-forge/internal/status"
)

// App is the handler container holding every injected collaborator.
type App struct {
	Logger       infra.Logger
	Config       *infra.Config
	Accounts     domain.AccountRepository
	Projects     domain.ProjectRepository
	Orchestrator *orchestrator.Orchestrator
	Status       *status.Service
}

// NewApp wires the handler container.
func NewApp(logger infra.Logger, cfg *infra.Config, accounts domain.AccountRepository, projects domain.ProjectRepository, orch *orchestrator.Orchestrator, statusSvc *status.Service) *App {
	return &App{
		Logger:       logger,
		Config:       cfg,
		Accounts:     accounts,
		Projects:     projects,
		Orchestrator: orch,
		Status:       statusSvc,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

func (a *App) currentAccountID(r *http.Request) string {
	return middleware.AccountIDFromContext(r.Context())
}

type jobPayload struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	ProjectID     *string        `json:"project_id,omitempty"`
	Type          string         `json:"type"`
	Prompt        string         `json:"prompt"`
	Style         string         `json:"style,omitempty"`
	Duration      int            `json:"duration,omitempty"`
	AspectRatio   string         `json:"aspect_ratio,omitempty"`
	Status        string         `json:"status"`
	ResultURL     string         `json:"result_url,omitempty"`
	ProviderID    string         `json:"provider_id,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func toJobPayload(job domain.Job) jobPayload {
	return jobPayload{
		ID:            job.ID,
		OwnerID:       job.OwnerID,
		ProjectID:     job.ProjectID,
		Type:          string(job.AssetType),
		Prompt:        job.Prompt,
		Style:         job.Style,
		Duration:      job.Duration,
		AspectRatio:   job.AspectRatio,
		Status:        string(job.Status),
		ResultURL:     job.ResultURL,
		ProviderID:    job.ProviderID,
		FailureReason: string(job.FailureReason),
		Metadata:      job.Metadata,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
	}
}

type accountPayload struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Credits   int       `json:"credits"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

func toAccountPayload(account domain.Account) accountPayload {
	return accountPayload{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		Credits:   account.Credits,
		Tier:      string(account.Tier),
		CreatedAt: account.CreatedAt,
	}
}
