package memrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

func newAccount(t *testing.T, store *Store, credits int) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:       uuid.NewString(),
		Username: "user-" + uuid.NewString(),
		Credits:  credits,
		Tier:     domain.AccountTierStarter,
	}
	if err := store.Accounts().Create(context.Background(), account); err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func TestReserveInsufficientCredits(t *testing.T) {
	store := New()
	account := newAccount(t, store, 3)

	err := store.Ledger().Reserve(context.Background(), account.ID, 5, "job-1")
	if !errors.Is(err, domain.ErrInsufficientCredits) {
		t.Fatalf("Reserve() error = %v, want ErrInsufficientCredits", err)
	}

	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 3 {
		t.Fatalf("balance mutated on failed reserve: %d", got.Credits)
	}
	if len(store.Entries()) != 0 {
		t.Fatal("failed reserve must not record a ledger entry")
	}
}

func TestReserveConcurrentNeverOverdraws(t *testing.T) {
	store := New()
	account := newAccount(t, store, 100)
	const cost = 5

	var wg sync.WaitGroup
	accepted := make(chan struct{}, 64)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Ledger().Reserve(context.Background(), account.ID, cost, uuid.NewString()); err == nil {
				accepted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(accepted)

	var n int
	for range accepted {
		n++
	}
	if n != 20 {
		t.Fatalf("accepted %d reservations, want exactly floor(100/5) = 20", n)
	}
	got, _ := store.Accounts().GetByID(context.Background(), account.ID)
	if got.Credits != 0 {
		t.Fatalf("balance = %d, want 0", got.Credits)
	}
}

func TestLedgerEntriesTiedToJob(t *testing.T) {
	store := New()
	account := newAccount(t, store, 10)

	if err := store.Ledger().Reserve(context.Background(), account.ID, 5, "job-9"); err != nil {
		t.Fatalf("Reserve() error = %v", err)
	}
	entries := store.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Delta != -5 || entries[0].BalanceAfter != 5 {
		t.Fatalf("entry = %+v", entries[0])
	}
	if entries[0].JobID == nil || *entries[0].JobID != "job-9" {
		t.Fatalf("entry not tied to job: %+v", entries[0])
	}
}

func TestTransitionEnforcesStateMachine(t *testing.T) {
	store := New()
	ctx := context.Background()
	job := &domain.Job{ID: "j1", OwnerID: "o1", AssetType: domain.AssetTypeImage, Prompt: "sunset", Status: domain.JobStatusProcessing}
	if err := store.Jobs().Create(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := store.Jobs().Transition(ctx, "j1", domain.JobStatusCompleted, "https://cdn/img.png", "")
	if err != nil {
		t.Fatalf("Transition() error = %v", err)
	}
	if updated.ResultURL != "https://cdn/img.png" {
		t.Fatalf("ResultURL = %q", updated.ResultURL)
	}

	// Terminal rows are immutable; late resolutions must not mutate.
	if _, err := store.Jobs().Transition(ctx, "j1", domain.JobStatusFailed, "", domain.FailureReasonProvider); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("second transition error = %v, want ErrInvalidTransition", err)
	}
	got, _ := store.Jobs().GetByID(ctx, "j1")
	if got.Status != domain.JobStatusCompleted || got.ResultURL != "https://cdn/img.png" {
		t.Fatalf("terminal job mutated: %+v", got)
	}

	if _, err := store.Jobs().Transition(ctx, "missing", domain.JobStatusFailed, "", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing job error = %v, want ErrNotFound", err)
	}
}

func TestListFiltersAndOrders(t *testing.T) {
	store := New()
	ctx := context.Background()
	project := "p1"
	base := time.Now().UTC()
	for i, tc := range []struct {
		id      string
		project *string
		kind    domain.AssetType
	}{
		{"a", &project, domain.AssetTypeImage},
		{"b", nil, domain.AssetTypeVideo},
		{"c", &project, domain.AssetTypeVideo},
	} {
		job := &domain.Job{
			ID:        tc.id,
			OwnerID:   "owner",
			ProjectID: tc.project,
			AssetType: tc.kind,
			Prompt:    "p",
			Status:    domain.JobStatusProcessing,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if err := store.Jobs().Create(ctx, job); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := store.Jobs().List(ctx, "owner", domain.JobFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "c" || all[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", all)
	}

	video := domain.AssetTypeVideo
	filtered, err := store.Jobs().List(ctx, "owner", domain.JobFilter{ProjectID: &project, AssetType: &video})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != "c" {
		t.Fatalf("filtered = %+v", filtered)
	}
}

func TestFailStale(t *testing.T) {
	store := New()
	ctx := context.Background()
	stale := &domain.Job{ID: "old", OwnerID: "o", AssetType: domain.AssetTypeVideo, Prompt: "p", Status: domain.JobStatusProcessing, CreatedAt: time.Now().Add(-time.Hour)}
	if err := store.Jobs().Create(ctx, stale); err != nil {
		t.Fatalf("create: %v", err)
	}
	fresh := &domain.Job{ID: "new", OwnerID: "o", AssetType: domain.AssetTypeVideo, Prompt: "p", Status: domain.JobStatusProcessing}
	if err := store.Jobs().Create(ctx, fresh); err != nil {
		t.Fatalf("create: %v", err)
	}

	failed, err := store.Jobs().FailStale(ctx, time.Now().Add(-time.Minute), domain.FailureReasonTimeout)
	if err != nil {
		t.Fatalf("FailStale() error = %v", err)
	}
	if len(failed) != 1 || failed[0].ID != "old" {
		t.Fatalf("failed = %+v", failed)
	}
	got, _ := store.Jobs().GetByID(ctx, "new")
	if got.Status != domain.JobStatusProcessing {
		t.Fatalf("fresh job touched: %+v", got)
	}
}
