package balances

import "context"

// Repository reads and mutates the per-account token balance.
type Repository interface {
	// Get returns the current balance or common.ErrorNotFound.
	Get(ctx context.Context, accountID string) (int64, error)
	// GetForUpdate is Get with a row lock held until the surrounding
	// transaction ends. It must run inside a transaction.
	GetForUpdate(ctx context.Context, accountID string) (int64, error)
	// Subtract lowers the balance by amount and returns the new value.
	Subtract(ctx context.Context, accountID string, amount int64) (int64, error)
}
