package domain

import "time"

// AccountTier enumerates billing tiers.
type AccountTier string

const (
	AccountTierFree    AccountTier = "free"
	AccountTierStarter AccountTier = "starter"
	AccountTierPro     AccountTier = "pro"
)

// Account represents an authenticated user and their credit balance.
// Credits are mutated exclusively through the Ledger.
type Account struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Credits      int
	Tier         AccountTier
	CreatedAt    time.Time
}

// LedgerEntry records a single balance mutation. Debits tied to a job
// submission carry the job id in JobID; one debit per job, never more.
type LedgerEntry struct {
	ID           string
	AccountID    string
	JobID        *string
	Delta        int
	BalanceAfter int
	CreatedAt    time.Time
}
