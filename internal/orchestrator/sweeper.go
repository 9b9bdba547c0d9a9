package orchestrator

import (
	"context"
	"time"

	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/infra"
)

// Sweeper is the reconciliation backstop: it periodically forces jobs stuck
// in a pre-terminal state past the provider timeout into failed. It covers
// process crashes and providers that never resolve; the compare-and-set in
// the job store guarantees the sweep and a late provider resolution cannot
// both win.
type Sweeper struct {
	jobs       domain.JobRepository
	ledger     domain.Ledger
	logger     infra.Logger
	interval   time.Duration
	staleAfter time.Duration
	refund     bool
	creditCost int
}

// NewSweeper builds a sweeper that fails jobs older than staleAfter, checking
// every interval. Refund policy and cost mirror the orchestrator's.
func NewSweeper(jobs domain.JobRepository, ledger domain.Ledger, logger infra.Logger, interval, staleAfter time.Duration, refund bool, creditCost int) *Sweeper {
	return &Sweeper{
		jobs:       jobs,
		ledger:     ledger,
		logger:     logger,
		interval:   interval,
		staleAfter: staleAfter,
		refund:     refund,
		creditCost: creditCost,
	}
}

// Run loops until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info().Dur("interval", s.interval).Msg("sweeper: started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAfter)
	failed, err := s.jobs.FailStale(ctx, cutoff, domain.FailureReasonTimeout)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: fail stale jobs")
		return
	}
	for _, job := range failed {
		s.logger.Warn().Str("job_id", job.ID).Time("cutoff", cutoff).Msg("sweeper: timed out stale job")
		if !s.refund {
			continue
		}
		if err := s.ledger.Credit(ctx, job.OwnerID, s.jobCost(job), job.ID); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("sweeper: refund failed")
		}
	}
}

// jobCost prefers the cost recorded at submission time over the current
// configuration, so a price change cannot over- or under-refund old jobs.
func (s *Sweeper) jobCost(job domain.Job) int {
	if v, ok := job.Metadata["credit_cost"]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return s.creditCost
}
