// Package status implements the read path used by polling clients. The
// service is stateless: it reads through to the job store and derives the
// poll-continuation hint from the job status.
package status

import (
	"context"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

// Service answers job status queries.
type Service struct {
	jobs domain.JobRepository
}

// NewService creates a status service over the given job store.
func NewService(jobs domain.JobRepository) *Service {
	return &Service{jobs: jobs}
}

// Get returns the job and whether the caller should keep polling. Jobs owned
// by someone else yield domain.ErrForbidden.
func (s *Service) Get(ctx context.Context, ownerID, jobID string) (*domain.Job, bool, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if job.OwnerID != ownerID {
		return nil, false, domain.ErrForbidden
	}
	return job, !job.Status.Terminal(), nil
}

// List returns the owner's jobs newest first, optionally filtered.
func (s *Service) List(ctx context.Context, ownerID string, filter domain.JobFilter) ([]domain.Job, error) {
	return s.jobs.List(ctx, ownerID, filter)
}
