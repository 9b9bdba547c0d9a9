package domain

import (
	"context"
	"time"
)

// AccountRepository defines read/create access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
}

// Ledger owns every mutation of Account.Credits. Reserve is a single
// atomic check-and-decrement: it either debits the full amount or leaves
// the balance untouched, and is safe under concurrent calls for the same
// account. The job id ties each debit 1:1 to the submission that caused it.
type Ledger interface {
	Reserve(ctx context.Context, accountID string, amount int, jobID string) error
	Credit(ctx context.Context, accountID string, amount int, jobID string) error
}

// JobFilter narrows List results. Nil fields mean unfiltered.
type JobFilter struct {
	ProjectID *string
	AssetType *AssetType
}

// JobRepository defines persistence for generation jobs.
//
// Transition enforces the forward-only state machine with compare-and-set
// semantics: it returns ErrInvalidTransition without mutating anything when
// the job is already terminal or the edge is not legal, and ErrNotFound when
// the job does not exist.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, ownerID string, filter JobFilter) ([]Job, error)
	Transition(ctx context.Context, id string, next JobStatus, resultURL string, reason FailureReason) (*Job, error)
	// FailStale forces every job still pre-terminal with updated_at older
	// than cutoff into failed with the given reason, returning the jobs it
	// changed. Used by the reconciliation sweep.
	FailStale(ctx context.Context, cutoff time.Time, reason FailureReason) ([]Job, error)
}

// ProjectRepository defines persistence for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id string) (*Project, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Project, error)
}
