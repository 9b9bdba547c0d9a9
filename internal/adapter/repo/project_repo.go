package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

// ProjectRepositoryPG implements domain.ProjectRepository on PostgreSQL.
type ProjectRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewProjectRepository creates a new project repository backed by PostgreSQL.
func NewProjectRepository(pool *pgxpool.Pool) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{pool: pool}
}

// Create inserts a new project record.
func (r *ProjectRepositoryPG) Create(ctx context.Context, project *domain.Project) error {
	query := `
INSERT INTO projects (id, owner_id, name, description)
VALUES ($1, $2, $3, $4)
RETURNING created_at;
`
	err := r.pool.QueryRow(ctx, query,
		project.ID,
		project.OwnerID,
		project.Name,
		project.Description,
	).Scan(&project.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	query := `
SELECT id, owner_id, name, description, created_at
FROM projects
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, id)
	var project domain.Project
	if err := row.Scan(
		&project.ID,
		&project.OwnerID,
		&project.Name,
		&project.Description,
		&project.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// ListByOwner returns the owner's projects newest first.
func (r *ProjectRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.Project, error) {
	query := `
SELECT id, owner_id, name, description, created_at
FROM projects
WHERE owner_id = $1
ORDER BY created_at DESC;
`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(
			&project.ID,
			&project.OwnerID,
			&project.Name,
			&project.Description,
			&project.CreatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}
