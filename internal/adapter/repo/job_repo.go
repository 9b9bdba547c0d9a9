package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

const jobColumns = `id, owner_id, project_id, asset_type, prompt, style, duration, aspect_ratio,
status, result_url, provider_id, failure_reason, metadata, created_at, updated_at`

// JobRepositoryPG implements domain.JobRepository on PostgreSQL. Transition
// uses a compare-and-set UPDATE whose WHERE clause encodes the legal edges of
// the job state machine, so a terminal row can never be mutated again.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	metadata, err := json.Marshal(orEmptyMetadata(job.Metadata))
	if err != nil {
		return fmt.Errorf("encode job metadata: %w", err)
	}
	query := `
INSERT INTO jobs (id, owner_id, project_id, asset_type, prompt, style, duration, aspect_ratio,
                  status, result_url, provider_id, failure_reason, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING created_at, updated_at;
`
	err = r.pool.QueryRow(ctx, query,
		job.ID,
		job.OwnerID,
		job.ProjectID,
		job.AssetType,
		job.Prompt,
		job.Style,
		job.Duration,
		job.AspectRatio,
		job.Status,
		job.ResultURL,
		job.ProviderID,
		job.FailureReason,
		metadata,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1;`, jobColumns)
	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// List returns the owner's jobs newest first, optionally narrowed by project
// and asset type.
func (r *JobRepositoryPG) List(ctx context.Context, ownerID string, filter domain.JobFilter) ([]domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE owner_id = $1`, jobColumns)
	args := []any{ownerID}
	if filter.ProjectID != nil {
		args = append(args, *filter.ProjectID)
		query += fmt.Sprintf(" AND project_id = $%d", len(args))
	}
	if filter.AssetType != nil {
		args = append(args, *filter.AssetType)
		query += fmt.Sprintf(" AND asset_type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC;"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// Transition moves the job to next when that is a legal edge, setting the
// result URL on completion and the failure reason on failure. It returns
// domain.ErrInvalidTransition, leaving the row untouched, when the job is
// already terminal or the edge is illegal.
func (r *JobRepositoryPG) Transition(ctx context.Context, id string, next domain.JobStatus, resultURL string, reason domain.FailureReason) (*domain.Job, error) {
	query := fmt.Sprintf(`
UPDATE jobs
SET status = $2,
    result_url = CASE WHEN $2 = 'completed' THEN $3 ELSE result_url END,
    failure_reason = CASE WHEN $2 = 'failed' THEN $4 ELSE failure_reason END,
    updated_at = now()
WHERE id = $1
  AND ((status = 'pending' AND $2 IN ('processing', 'completed', 'failed'))
    OR (status = 'processing' AND $2 IN ('completed', 'failed')))
RETURNING %s;
`, jobColumns)
	job, err := scanJob(r.pool.QueryRow(ctx, query, id, next, resultURL, reason))
	if err == nil {
		return job, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transition job: %w", err)
	}

	// The CAS matched nothing: either the job is gone or the edge is illegal.
	var status domain.JobStatus
	if err := r.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1;`, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return nil, domain.ErrInvalidTransition
}

// FailStale forces pre-terminal jobs not updated since cutoff into failed.
func (r *JobRepositoryPG) FailStale(ctx context.Context, cutoff time.Time, reason domain.FailureReason) ([]domain.Job, error) {
	query := fmt.Sprintf(`
UPDATE jobs
SET status = 'failed', failure_reason = $2, updated_at = now()
WHERE status IN ('pending', 'processing') AND updated_at < $1
RETURNING %s;
`, jobColumns)
	rows, err := r.pool.Query(ctx, query, cutoff, reason)
	if err != nil {
		return nil, fmt.Errorf("fail stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var metadata []byte
	if err := row.Scan(
		&job.ID,
		&job.OwnerID,
		&job.ProjectID,
		&job.AssetType,
		&job.Prompt,
		&job.Style,
		&job.Duration,
		&job.AspectRatio,
		&job.Status,
		&job.ResultURL,
		&job.ProviderID,
		&job.FailureReason,
		&metadata,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &job.Metadata); err != nil {
			return nil, fmt.Errorf("decode job metadata: %w", err)
		}
	}
	return &job, nil
}

func orEmptyMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
