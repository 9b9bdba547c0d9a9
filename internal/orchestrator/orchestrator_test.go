package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ocula-lovable/creative-forge/internal/adapter/memrepo"
	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/providers"
)

type fakeGenerator struct {
	typ       domain.AssetType
	url       string
	err       error
	delay     time.Duration
	ignoreCtx bool
}

func (g *fakeGenerator) AssetType() domain.AssetType { return g.typ }

func (g *fakeGenerator) Generate(ctx context.Context, req providers.Request) (*providers.Result, error) {
	if g.delay > 0 {
		if g.ignoreCtx {
			time.Sleep(g.delay)
		} else {
			timer := time.NewTimer(g.delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	return &providers.Result{URL: g.url}, nil
}

func seedAccount(t *testing.T, store *memrepo.Store, credits int) *domain.Account {
	t.Helper()
	account := &domain.Account{ID: uuid.NewString(), Username: "u-" + uuid.NewString(), Credits: credits, Tier: domain.AccountTierStarter}
	if err := store.Accounts().Create(context.Background(), account); err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return account
}

func waitForTerminal(t *testing.T, store *memrepo.Store, jobID string) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Jobs().GetByID(context.Background(), jobID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job never reached a terminal state")
	return nil
}

func newOrchestrator(store *memrepo.Store, gen providers.Generator, cfg Config) *Orchestrator {
	return New(store.Ledger(), store.Jobs(), providers.NewRegistry(gen), zerolog.Nop(), cfg)
}

func TestSubmitHappyPath(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 100)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeImage, url: "https://cdn/img.png"}, Config{CreditCost: 5})

	job, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "image", Prompt: "sunset"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.Status != domain.JobStatusProcessing {
		t.Fatalf("submitted job status = %s, want processing", job.Status)
	}
	if job.ResultURL != "" {
		t.Fatal("pre-terminal job must not carry a result URL")
	}

	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 95 {
		t.Fatalf("balance after submit = %d, want 95", got.Credits)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != domain.JobStatusCompleted {
		t.Fatalf("final status = %s, want completed", final.Status)
	}
	if final.ResultURL != "https://cdn/img.png" {
		t.Fatalf("ResultURL = %q", final.ResultURL)
	}

	// No double charge on completion.
	got, _ = store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 95 {
		t.Fatalf("balance after completion = %d, want 95", got.Credits)
	}
	if entries := store.Entries(); len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want exactly 1 debit", len(entries))
	}
}

func TestSubmitInsufficientCredits(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 3)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeImage, url: "u"}, Config{CreditCost: 5})

	_, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "image", Prompt: "sunset"})
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("Submit() error = %v, want ErrInsufficientCredits", err)
	}

	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 3 {
		t.Fatalf("balance = %d, want 3 (unchanged)", got.Credits)
	}
	jobs, _ := store.Jobs().List(context.Background(), account.ID, domain.JobFilter{})
	if len(jobs) != 0 {
		t.Fatalf("no job must be created on rejection, got %d", len(jobs))
	}
}

func TestSubmitValidation(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 100)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeImage, url: "u"}, Config{CreditCost: 5})

	tests := []struct {
		name string
		req  SubmitRequest
	}{
		{name: "empty prompt", req: SubmitRequest{AssetType: "image", Prompt: "   "}},
		{name: "unknown asset type", req: SubmitRequest{AssetType: "hologram", Prompt: "p"}},
		{name: "negative duration", req: SubmitRequest{AssetType: "video", Prompt: "p", Duration: -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := o.Submit(context.Background(), account.ID, tc.req); !errors.Is(err, domain.ErrInvalidRequest) {
				t.Fatalf("Submit() error = %v, want ErrInvalidRequest", err)
			}
		})
	}

	// Rejections have no side effects.
	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 100 {
		t.Fatalf("balance = %d, want 100", got.Credits)
	}
}

func TestConcurrentSubmitsNeverOverspend(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 100)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeImage, url: "u"}, Config{CreditCost: 5, MaxConcurrent: 4})

	const attempts = 40
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "image", Prompt: "p"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var accepted int
	for err := range results {
		if err == nil {
			accepted++
		} else if !errors.Is(err, domain.ErrInsufficientCredits) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 20 {
		t.Fatalf("accepted = %d, want exactly floor(100/5) = 20", accepted)
	}
	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 0 {
		t.Fatalf("balance = %d, want 0", got.Credits)
	}
	jobs, _ := store.Jobs().List(context.Background(), account.ID, domain.JobFilter{})
	if len(jobs) != accepted {
		t.Fatalf("job rows = %d, want %d (one per accepted submit)", len(jobs), accepted)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := o.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestProviderFailureNoRefundByDefault(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 20)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeVideo, err: errors.New("model unavailable")}, Config{CreditCost: 5})

	job, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "video", Prompt: "waves"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != domain.JobStatusFailed || final.FailureReason != domain.FailureReasonProvider {
		t.Fatalf("final = %s/%s, want failed/provider_failure", final.Status, final.FailureReason)
	}
	if final.ResultURL != "" {
		t.Fatal("failed job must not carry a result URL")
	}

	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 15 {
		t.Fatalf("balance = %d, want 15 (debit kept, refunds disabled)", got.Credits)
	}
}

func TestProviderFailureRefundsWhenEnabled(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 20)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeVideo, err: errors.New("boom")}, Config{CreditCost: 5, RefundOnFailure: true})

	job, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "video", Prompt: "waves"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForTerminal(t, store, job.ID)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, _ := store.Accounts().GetByID(context.Background(), account.ID); got.Credits == 20 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 20 {
		t.Fatalf("balance = %d, want 20 (refunded)", got.Credits)
	}
	if entries := store.Entries(); len(entries) != 2 {
		t.Fatalf("ledger entries = %d, want debit + refund", len(entries))
	}
}

func TestProviderTimeoutWatchdog(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 50)
	// The generator ignores cancellation and resolves long after the
	// deadline, like a hung external backend.
	gen := &fakeGenerator{typ: domain.AssetTypeAvatar, url: "https://late/result.mp4", delay: 300 * time.Millisecond, ignoreCtx: true}
	o := newOrchestrator(store, gen, Config{CreditCost: 5, ProviderTimeout: 30 * time.Millisecond})

	job, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "avatar", Prompt: "spokesperson"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	final := waitForTerminal(t, store, job.ID)
	if final.Status != domain.JobStatusFailed || final.FailureReason != domain.FailureReasonTimeout {
		t.Fatalf("final = %s/%s, want failed/provider_timeout", final.Status, final.FailureReason)
	}

	// Let the hung provider resolve, then verify the late result was ignored:
	// status, URL and balance all unchanged.
	time.Sleep(350 * time.Millisecond)
	got, _ := store.Jobs().GetByID(context.Background(), job.ID)
	if got.Status != domain.JobStatusFailed || got.ResultURL != "" {
		t.Fatalf("late resolution mutated the job: %+v", got)
	}
	balance, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if balance.Credits != 45 {
		t.Fatalf("balance = %d, want 45", balance.Credits)
	}
	if entries := store.Entries(); len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
}

func TestStatusNeverRegresses(t *testing.T) {
	store := memrepo.New()
	account := seedAccount(t, store, 50)
	o := newOrchestrator(store, &fakeGenerator{typ: domain.AssetTypeImage, url: "https://cdn/a.png", delay: 30 * time.Millisecond}, Config{CreditCost: 5})

	job, err := o.Submit(context.Background(), account.ID, SubmitRequest{AssetType: "image", Prompt: "p"})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	rank := map[domain.JobStatus]int{
		domain.JobStatusPending:    0,
		domain.JobStatusProcessing: 1,
		domain.JobStatusCompleted:  2,
		domain.JobStatusFailed:     2,
	}
	last := -1
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, err := store.Jobs().GetByID(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if rank[got.Status] < last {
			t.Fatalf("status regressed to %s", got.Status)
		}
		last = rank[got.Status]
		if got.Status.Terminal() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("job never terminated")
}
