package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/promptlyprinted/forge/internal/domain"
)

// ErrInsufficientCredits indicates the balance no longer covers the units.
var ErrInsufficientCredits = errors.New("insufficient credits")

// Ledger implements domain.CreditLedger on the shared store.
type Ledger struct {
	store *Store
}

// NewLedger creates a credit ledger backed by the store.
func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store}
}

// CheckBalance evaluates whether the user can cover the required units.
// Users without a credits row have a zero balance, not an error.
func (l *Ledger) CheckBalance(ctx context.Context, userID string, required int) (domain.BalanceCheck, error) {
	var balance int
	err := l.store.pool.QueryRow(ctx,
		"SELECT balance FROM credits WHERE user_id = $1", userID,
	).Scan(&balance)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.BalanceCheck{}, fmt.Errorf("balance query failed: %w", err)
	}

	return domain.BalanceCheck{
		Allowed:        balance >= required,
		RequiredUnits:  required,
		CurrentBalance: balance,
	}, nil
}

// Deduct atomically removes units from the user's balance and appends a
// transaction row. The conditional UPDATE is the atomic check-then-deduct:
// two concurrent requests cannot both pass it once the balance is spent.
func (l *Ledger) Deduct(ctx context.Context, userID string, units int, reason string) (int, error) {
	tx, err := l.store.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return 0, fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalance int
	err = tx.QueryRow(ctx,
		"UPDATE credits SET balance = balance - $2 WHERE user_id = $1 AND balance >= $2 RETURNING balance",
		userID, units,
	).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("deduction failed: %w", err)
	}

	_, err = tx.Exec(ctx,
		"INSERT INTO credit_transactions (user_id, delta, reason) VALUES ($1, $2, $3)",
		userID, -units, reason,
	)
	if err != nil {
		return 0, fmt.Errorf("transaction insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("tx commit failed: %w", err)
	}

	return newBalance, nil
}
