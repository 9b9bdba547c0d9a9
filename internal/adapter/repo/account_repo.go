package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ocula-lovable/creative-forge/internal/domain"
)

const pgUniqueViolation = "23505"

// AccountRepositoryPG implements domain.AccountRepository and domain.Ledger
// on PostgreSQL. Reserve and Credit run the balance mutation and the ledger
// entry insert inside one transaction; the balance check-and-decrement is a
// single conditional UPDATE, so concurrent submissions for the same account
// can never overdraw it.
type AccountRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new account repository backed by PostgreSQL.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepositoryPG {
	return &AccountRepositoryPG{pool: pool}
}

// Create inserts a new account record.
func (r *AccountRepositoryPG) Create(ctx context.Context, account *domain.Account) error {
	query := `
INSERT INTO accounts (id, username, email, password_hash, credits, tier)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at;
`
	err := r.pool.QueryRow(ctx, query,
		account.ID,
		account.Username,
		account.Email,
		account.PasswordHash,
		account.Credits,
		account.Tier,
	).Scan(&account.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateUsername
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetByID fetches an account by its identifier.
func (r *AccountRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername fetches an account by username.
func (r *AccountRepositoryPG) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getBy(ctx, "username", username)
}

func (r *AccountRepositoryPG) getBy(ctx context.Context, column, value string) (*domain.Account, error) {
	query := fmt.Sprintf(`
SELECT id, username, email, password_hash, credits, tier, created_at
FROM accounts
WHERE %s = $1;
`, column)
	row := r.pool.QueryRow(ctx, query, value)
	var account domain.Account
	if err := row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Credits,
		&account.Tier,
		&account.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

// Reserve atomically debits amount from the account when the balance covers
// it, recording a ledger entry tied to the job. Returns
// domain.ErrInsufficientCredits without any mutation otherwise.
func (r *AccountRepositoryPG) Reserve(ctx context.Context, accountID string, amount int, jobID string) error {
	if amount <= 0 {
		return fmt.Errorf("reserve amount must be positive, got %d", amount)
	}
	return r.mutateBalance(ctx, accountID, -amount, jobID, true)
}

// Credit adds amount back to the account balance, recording a ledger entry.
func (r *AccountRepositoryPG) Credit(ctx context.Context, accountID string, amount int, jobID string) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	return r.mutateBalance(ctx, accountID, amount, jobID, false)
}

func (r *AccountRepositoryPG) mutateBalance(ctx context.Context, accountID string, delta int, jobID string, conditional bool) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback(ctx)

	update := `
UPDATE accounts
SET credits = credits + $2
WHERE id = $1
RETURNING credits;
`
	if conditional {
		update = `
UPDATE accounts
SET credits = credits + $2
WHERE id = $1 AND credits + $2 >= 0
RETURNING credits;
`
	}

	var balanceAfter int
	if err := tx.QueryRow(ctx, update, accountID, delta).Scan(&balanceAfter); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.classifyReserveMiss(ctx, accountID)
		}
		return fmt.Errorf("update balance: %w", err)
	}

	entry := `
INSERT INTO ledger_entries (id, account_id, job_id, delta, balance_after)
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := tx.Exec(ctx, entry, uuid.NewString(), accountID, nullableString(jobID), delta, balanceAfter); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	return tx.Commit(ctx)
}

// classifyReserveMiss distinguishes an unknown account from an insufficient
// balance after the conditional update matched no row.
func (r *AccountRepositoryPG) classifyReserveMiss(ctx context.Context, accountID string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1);`, accountID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check account: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientCredits
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
