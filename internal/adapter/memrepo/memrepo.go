// Package memrepo provides in-memory implementations of the domain
// repositories and the ledger. They back isolated tests and the development
// mode used when no DATABASE_URL is configured, and honor the same atomicity
// contracts as the PostgreSQL adapters: check-and-decrement reservations and
// compare-and-set job transitions, both under a single lock.
package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

// Store holds all in-memory state. The zero value is not usable; construct
// with New.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	jobs     map[string]*domain.Job
	projects map[string]*domain.Project
	entries  []domain.LedgerEntry
	seq      map[string]int64
	nextSeq  int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		jobs:     make(map[string]*domain.Job),
		projects: make(map[string]*domain.Project),
		seq:      make(map[string]int64),
	}
}

// Accounts returns the store as a domain.AccountRepository.
func (s *Store) Accounts() domain.AccountRepository { return (*accountRepo)(s) }

// Ledger returns the store as a domain.Ledger.
func (s *Store) Ledger() domain.Ledger { return (*accountRepo)(s) }

// Jobs returns the store as a domain.JobRepository.
func (s *Store) Jobs() domain.JobRepository { return (*jobRepo)(s) }

// Projects returns the store as a domain.ProjectRepository.
func (s *Store) Projects() domain.ProjectRepository { return (*projectRepo)(s) }

// Entries returns a copy of all recorded ledger entries, oldest first.
func (s *Store) Entries() []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LedgerEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

type accountRepo Store

func (r *accountRepo) Create(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == account.Username {
			return domain.ErrDuplicateUsername
		}
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	clone := *account
	r.accounts[account.ID] = &clone
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *accountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Username == username {
			clone := *account
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *accountRepo) Reserve(ctx context.Context, accountID string, amount int, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	if account.Credits < amount {
		return domain.ErrInsufficientCredits
	}
	account.Credits -= amount
	r.record(accountID, jobID, -amount, account.Credits)
	return nil
}

func (r *accountRepo) Credit(ctx context.Context, accountID string, amount int, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	account.Credits += amount
	r.record(accountID, jobID, amount, account.Credits)
	return nil
}

// record appends a ledger entry; callers hold the lock.
func (r *accountRepo) record(accountID, jobID string, delta, balanceAfter int) {
	var ref *string
	if jobID != "" {
		ref = &jobID
	}
	r.entries = append(r.entries, domain.LedgerEntry{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		JobID:        ref,
		Delta:        delta,
		BalanceAfter: balanceAfter,
		CreatedAt:    time.Now().UTC(),
	})
}

type jobRepo Store

func (r *jobRepo) Create(ctx context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt
	clone := *job
	r.jobs[job.ID] = &clone
	r.nextSeq++
	r.seq[job.ID] = r.nextSeq
	return nil
}

func (r *jobRepo) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (r *jobRepo) List(ctx context.Context, ownerID string, filter domain.JobFilter) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var jobs []domain.Job
	for _, job := range r.jobs {
		if job.OwnerID != ownerID {
			continue
		}
		if filter.ProjectID != nil && (job.ProjectID == nil || *job.ProjectID != *filter.ProjectID) {
			continue
		}
		if filter.AssetType != nil && job.AssetType != *filter.AssetType {
			continue
		}
		jobs = append(jobs, *job)
	}
	// Newest first; the insertion sequence breaks created_at ties.
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return r.seq[jobs[i].ID] > r.seq[jobs[j].ID]
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func (r *jobRepo) Transition(ctx context.Context, id string, next domain.JobStatus, resultURL string, reason domain.FailureReason) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !job.Status.CanTransitionTo(next) {
		return nil, domain.ErrInvalidTransition
	}
	job.Status = next
	if next == domain.JobStatusCompleted {
		job.ResultURL = resultURL
	}
	if next == domain.JobStatusFailed {
		job.FailureReason = reason
	}
	job.UpdatedAt = time.Now().UTC()
	clone := *job
	return &clone, nil
}

func (r *jobRepo) FailStale(ctx context.Context, cutoff time.Time, reason domain.FailureReason) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var failed []domain.Job
	for _, job := range r.jobs {
		if job.Status.Terminal() || !job.UpdatedAt.Before(cutoff) {
			continue
		}
		job.Status = domain.JobStatusFailed
		job.FailureReason = reason
		job.UpdatedAt = time.Now().UTC()
		failed = append(failed, *job)
	}
	return failed, nil
}

type projectRepo Store

func (r *projectRepo) Create(ctx context.Context, project *domain.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = time.Now().UTC()
	}
	clone := *project
	r.projects[project.ID] = &clone
	r.nextSeq++
	r.seq[project.ID] = r.nextSeq
	return nil
}

func (r *projectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *project
	return &clone, nil
}

func (r *projectRepo) ListByOwner(ctx context.Context, ownerID string) ([]domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var projects []domain.Project
	for _, project := range r.projects {
		if project.OwnerID == ownerID {
			projects = append(projects, *project)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return r.seq[projects[i].ID] > r.seq[projects[j].ID]
		}
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}
