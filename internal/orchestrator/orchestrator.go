// Package orchestrator implements the generation lifecycle: validate the
// request, reserve credits, create the job, dispatch the provider without
// blocking the caller and reconcile the single outcome back into the job
// store. The credit reservation happens before the job row exists and the
// two are tied by the job id, so an account is never charged without a
// corresponding job and never charged twice for one.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/infra"
	"github.com/ocula-lovable/creative-forge/internal/providers"
)

const reconcileTimeout = 10 * time.Second

// Config carries the orchestration policy knobs.
type Config struct {
	// CreditCost is the flat price of one generation.
	CreditCost int
	// RefundOnFailure controls whether a failed generation credits the
	// debited amount back. Off by default: the debit pays for the attempt.
	RefundOnFailure bool
	// ProviderTimeout bounds a single provider invocation; jobs whose
	// provider exceeds it are failed with reason provider_timeout and any
	// late resolution is ignored.
	ProviderTimeout time.Duration
	// MaxConcurrent caps in-flight provider invocations.
	MaxConcurrent int64
}

// SubmitRequest is the raw generation request from the API layer.
type SubmitRequest struct {
	ProjectID   *string
	AssetType   string
	Prompt      string
	Style       string
	Duration    int
	AspectRatio string
	Locale      string
}

// Orchestrator coordinates ledger, job store and providers.
type Orchestrator struct {
	ledger   domain.Ledger
	jobs     domain.JobRepository
	registry *providers.Registry
	logger   infra.Logger
	cfg      Config

	sem      *semaphore.Weighted
	baseCtx  context.Context
	stop     context.CancelFunc
	inflight sync.WaitGroup
}

// New constructs an Orchestrator. Zero config fields get safe defaults.
func New(ledger domain.Ledger, jobs domain.JobRepository, registry *providers.Registry, logger infra.Logger, cfg Config) *Orchestrator {
	if cfg.CreditCost <= 0 {
		cfg.CreditCost = 5
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 2 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 8
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		ledger:   ledger,
		jobs:     jobs,
		registry: registry,
		logger:   logger,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.MaxConcurrent),
		baseCtx:  ctx,
		stop:     cancel,
	}
}

// CreditCost returns the configured flat price per generation.
func (o *Orchestrator) CreditCost() int {
	return o.cfg.CreditCost
}

// Submit validates the request, debits the flat credit cost and creates the
// job in processing state, then dispatches the provider on its own goroutine
// and returns immediately with the pre-terminal job. Clients observe the
// outcome by polling.
func (o *Orchestrator) Submit(ctx context.Context, ownerID string, req SubmitRequest) (*domain.Job, error) {
	assetType, err := validate(req)
	if err != nil {
		return nil, err
	}
	generator, ok := o.registry.Lookup(assetType)
	if !ok {
		return nil, fmt.Errorf("%w: no provider for asset type %q", domain.ErrInvalidRequest, assetType)
	}

	jobID := uuid.NewString()
	if err := o.ledger.Reserve(ctx, ownerID, o.cfg.CreditCost, jobID); err != nil {
		return nil, err
	}

	job := &domain.Job{
		ID:          jobID,
		OwnerID:     ownerID,
		ProjectID:   req.ProjectID,
		AssetType:   assetType,
		Prompt:      strings.TrimSpace(req.Prompt),
		Style:       req.Style,
		Duration:    req.Duration,
		AspectRatio: req.AspectRatio,
		Status:      domain.JobStatusProcessing,
		ProviderID:  fmt.Sprintf("%s-%s", assetType, uuid.NewString()),
		Metadata: map[string]any{
			"credit_cost": o.cfg.CreditCost,
			"locale":      req.Locale,
		},
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		// The debit went through but the job row did not: undo the charge so
		// the user is never charged without a job record.
		o.compensate(ownerID, jobID)
		return nil, fmt.Errorf("create job: %w", err)
	}

	dispatched := *job
	o.inflight.Add(1)
	go o.dispatch(generator, &dispatched)

	return job, nil
}

// dispatch runs the provider under the configured timeout and reconciles the
// outcome exactly once. Runs detached from the submitting request.
func (o *Orchestrator) dispatch(generator providers.Generator, job *domain.Job) {
	defer o.inflight.Done()

	if err := o.sem.Acquire(o.baseCtx, 1); err != nil {
		// Shutting down before the job got a slot; the sweep will fail it.
		o.logger.Warn().Str("job_id", job.ID).Msg("orchestrator: dispatch aborted by shutdown")
		return
	}
	defer o.sem.Release(1)

	ctx, cancel := context.WithTimeout(o.baseCtx, o.cfg.ProviderTimeout)
	defer cancel()

	locale, _ := job.Metadata["locale"].(string)
	req := providers.Request{
		JobID:       job.ID,
		ProviderRef: job.ProviderID,
		Prompt:      job.Prompt,
		Style:       job.Style,
		Duration:    job.Duration,
		AspectRatio: job.AspectRatio,
		Locale:      locale,
	}

	type outcome struct {
		result *providers.Result
		err    error
	}
	// Buffered so a provider resolving after the watchdog fires never blocks;
	// its outcome is simply dropped.
	resolved := make(chan outcome, 1)
	go func() {
		result, err := generator.Generate(ctx, req)
		resolved <- outcome{result: result, err: err}
	}()

	select {
	case <-ctx.Done():
		// Watchdog: the provider exceeded its deadline (or the server is
		// draining). Fail deterministically; anything it produces later is
		// ignored by the terminal-state compare-and-set.
		o.logger.Error().Str("job_id", job.ID).Msg("orchestrator: provider deadline exceeded")
		o.fail(job, domain.FailureReasonTimeout)
	case out := <-resolved:
		if out.err != nil {
			reason := domain.FailureReasonProvider
			if errors.Is(out.err, context.DeadlineExceeded) {
				reason = domain.FailureReasonTimeout
			}
			o.logger.Error().Err(out.err).Str("job_id", job.ID).Str("reason", string(reason)).Msg("orchestrator: generation failed")
			o.fail(job, reason)
			return
		}
		o.complete(job, out.result)
	}
}

// complete reconciles a successful provider outcome.
func (o *Orchestrator) complete(job *domain.Job, result *providers.Result) {
	ctx, cancel := o.reconcileCtx()
	defer cancel()

	if _, err := o.jobs.Transition(ctx, job.ID, domain.JobStatusCompleted, result.URL, ""); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Late resolution on an already-terminal job; drop it.
			o.logger.Debug().Str("job_id", job.ID).Msg("orchestrator: late completion ignored")
			return
		}
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: completion transition failed")
		return
	}
	o.logger.Info().Str("job_id", job.ID).Str("asset_type", string(job.AssetType)).Msg("orchestrator: job completed")
}

// fail reconciles a failed or timed-out outcome. The refund, when enabled,
// only happens if our transition won the compare-and-set, which rules out a
// second credit mutation from a racing late resolution or sweep.
func (o *Orchestrator) fail(job *domain.Job, reason domain.FailureReason) {
	ctx, cancel := o.reconcileCtx()
	defer cancel()

	if _, err := o.jobs.Transition(ctx, job.ID, domain.JobStatusFailed, "", reason); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			o.logger.Debug().Str("job_id", job.ID).Msg("orchestrator: late failure ignored")
			return
		}
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: failure transition failed")
		return
	}

	if o.cfg.RefundOnFailure {
		if err := o.ledger.Credit(ctx, job.OwnerID, o.cfg.CreditCost, job.ID); err != nil {
			o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: refund failed")
		}
	}
}

// compensate credits back a reservation whose job row never materialized.
func (o *Orchestrator) compensate(ownerID, jobID string) {
	ctx, cancel := o.reconcileCtx()
	defer cancel()
	if err := o.ledger.Credit(ctx, ownerID, o.cfg.CreditCost, jobID); err != nil {
		o.logger.Error().Err(err).Str("job_id", jobID).Msg("orchestrator: compensating credit failed")
	}
}

// reconcileCtx returns a context detached from both the submitter's request
// and the orchestrator lifetime, so terminal transitions can still be
// persisted while the server drains.
func (o *Orchestrator) reconcileCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), reconcileTimeout)
}

// Shutdown stops accepting provider work and waits for in-flight dispatches
// to reconcile, up to the context deadline.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.stop()
	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func validate(req SubmitRequest) (domain.AssetType, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", domain.ErrInvalidRequest)
	}
	assetType, ok := domain.ParseAssetType(req.AssetType)
	if !ok {
		return "", fmt.Errorf("%w: unknown asset type %q", domain.ErrInvalidRequest, req.AssetType)
	}
	if req.Duration < 0 {
		return "", fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidRequest)
	}
	return assetType, nil
}
