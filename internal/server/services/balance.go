// Package services contains server-side business logic: token balance
// access, batch generation, post editing and publishing, profile data and
// social account connections.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/dbx"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
	"github.com/dmitrijs2005/socialmaster/internal/server/events"
	"github.com/dmitrijs2005/socialmaster/internal/server/ledger"
	"github.com/dmitrijs2005/socialmaster/internal/server/repositories/repomanager"
)

// BalanceStore implements ledger.Store on top of the user_tokens table.
type BalanceStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

func NewBalanceStore(db *sql.DB, m repomanager.RepositoryManager) *BalanceStore {
	return &BalanceStore{db: db, repomanager: m}
}

// Read returns the current balance. A missing row is common.ErrorNotFound,
// any other failure is transient.
func (s *BalanceStore) Read(ctx context.Context, accountID string) (int64, error) {
	b, err := s.repomanager.Balances(s.db).Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", common.ErrTransientRemote, err)
	}
	return b, nil
}

// Decrement locks the balance row, checks it covers amount and subtracts it
// in a single transaction.
func (s *BalanceStore) Decrement(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive, got %d: %w", amount, common.ErrInvalidArgument)
	}

	var after int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Balances(tx)

		balance, err := repo.GetForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if balance < amount {
			return fmt.Errorf("balance %d does not cover %d: %w", balance, amount, common.ErrInsufficientBalance)
		}

		after, err = repo.Subtract(ctx, accountID, amount)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrInsufficientBalance) || errors.Is(err, common.ErrorNotFound) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", common.ErrTransientRemote, err)
	}
	return after, nil
}

// newLedger returns a session ledger that publishes a tokens.debited event
// for every successful debit.
func newLedger(store ledger.Store, accountID string, pub events.Publisher, log logging.Logger, now func() time.Time) *ledger.Ledger {
	return ledger.New(store, accountID,
		ledger.WithLogger(log),
		ledger.WithDebitHook(func(ctx context.Context, accountID string, kind ledger.Kind, amount, balance int64) {
			events.Emit(ctx, pub, log, events.KeyTokensDebited, events.TokensDebited{
				AccountID: accountID,
				Kind:      kind.String(),
				Amount:    amount,
				Balance:   balance,
				At:        now(),
			})
		}),
	)
}
