package main

import (
	"context"
	"errors"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/ocula-lovable/creative-forge/internal/adapter/repo"
	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/infra"
)

// Seeds the demo workspace: one pro account with a project and a pair of
// completed generations, so a fresh database has something to show.
func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required to seed")
	}

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	accounts := repo.NewAccountRepository(dbpool)
	projects := repo.NewProjectRepository(dbpool)
	jobs := repo.NewJobRepository(dbpool)

	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = "demo-password-123"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to hash demo password")
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     "demo_user",
		Email:        "demo@example.com",
		PasswordHash: string(hash),
		Credits:      500,
		Tier:         domain.AccountTierPro,
	}
	if err := accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			logger.Info().Msg("demo_user already seeded")
			return
		}
		logger.Fatal().Err(err).Msg("failed to create demo account")
	}

	project := &domain.Project{
		ID:          uuid.NewString(),
		OwnerID:     account.ID,
		Name:        "Summer Campaign 2024",
		Description: "Launch assets for the summer product line",
	}
	if err := projects.Create(ctx, project); err != nil {
		logger.Fatal().Err(err).Msg("failed to create demo project")
	}

	demoJobs := []domain.Job{
		{
			AssetType: domain.AssetTypeImage,
			Prompt:    "sunlit product shot on a beach towel",
			Style:     "photorealistic",
			ResultURL: "https://images.unsplash.com/photo-1618005182384-a83a8bd57fbe?auto=format&fit=crop&q=80&w=1000",
		},
		{
			AssetType: domain.AssetTypeVideo,
			Prompt:    "slow waves rolling onto the shore",
			Style:     "cinematic",
			Duration:  5,
			ResultURL: "https://assets.mixkit.co/videos/preview/mixkit-waves-in-the-water-1164-large.mp4",
		},
	}
	for _, j := range demoJobs {
		j.ID = uuid.NewString()
		j.OwnerID = account.ID
		j.ProjectID = &project.ID
		j.Status = domain.JobStatusCompleted
		j.ProviderID = string(j.AssetType) + "-" + uuid.NewString()
		j.Metadata = map[string]any{"credit_cost": cfg.CreditCost, "seeded": true}
		if err := jobs.Create(ctx, &j); err != nil {
			logger.Fatal().Err(err).Str("type", string(j.AssetType)).Msg("failed to create demo job")
		}
	}

	logger.Info().
		Str("account_id", account.ID).
		Str("project_id", project.ID).
		Int("jobs", len(demoJobs)).
		Msg("seed complete")
}
