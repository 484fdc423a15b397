// Package ledger tracks one account's token balance for the duration of a
// session and gates billable generation work on it.
//
// The cached balance is advisory: the store re-validates every debit under a
// row lock, so concurrent sessions can never drive the balance below zero.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/socialmaster/internal/common"
	"github.com/dmitrijs2005/socialmaster/internal/logging"
)

// Kind is a billable unit of generated content.
type Kind int

const (
	KindImage Kind = iota
	KindDescription
)

const (
	ImagePrice       int64 = 8
	DescriptionPrice int64 = 1
	// DayPrice is the cost of one generated day: one image and one description.
	DayPrice = ImagePrice + DescriptionPrice
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindDescription:
		return "description"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Price returns the unit price of kind.
func Price(kind Kind) int64 {
	if kind == KindImage {
		return ImagePrice
	}
	return DescriptionPrice
}

// CanAfford reports whether balance covers quantity units of kind.
func CanAfford(balance int64, kind Kind, quantity int) bool {
	return balance >= Price(kind)*int64(quantity)
}

// Store is the persistent balance.
type Store interface {
	Read(ctx context.Context, accountID string) (int64, error)
	// Decrement atomically lowers the balance by amount and returns the new
	// balance, or fails with common.ErrInsufficientBalance.
	Decrement(ctx context.Context, accountID string, amount int64) (int64, error)
}

// DebitHook is called after every successful debit.
type DebitHook func(ctx context.Context, accountID string, kind Kind, amount, balance int64)

type Option func(*Ledger)

func WithLogger(l logging.Logger) Option {
	return func(lg *Ledger) { lg.log = l }
}

func WithDebitHook(h DebitHook) Option {
	return func(lg *Ledger) { lg.onDebit = h }
}

// Ledger is safe for concurrent use.
type Ledger struct {
	store     Store
	accountID string
	log       logging.Logger
	onDebit   DebitHook

	mu      sync.Mutex
	balance int64
	known   bool
}

func New(store Store, accountID string, opts ...Option) *Ledger {
	l := &Ledger{store: store, accountID: accountID, log: logging.NopLogger{}}
	for _, o := range opts {
		o(l)
	}
	return l
}

// AccountID returns the account this ledger bills.
func (l *Ledger) AccountID() string {
	return l.accountID
}

// GetBalance reads the balance from the store and caches it. A failed read
// leaves the balance unknown, never zero.
func (l *Ledger) GetBalance(ctx context.Context) (int64, error) {
	b, err := l.store.Read(ctx, l.accountID)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.balance, l.known = 0, false
		return 0, fmt.Errorf("%w: %w", common.ErrBalanceFetch, err)
	}
	l.balance, l.known = b, true
	return b, nil
}

// Balance returns the cached balance and whether it is known.
func (l *Ledger) Balance() (int64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance, l.known
}

// CanAfford checks the cached balance. An unknown balance affords nothing.
func (l *Ledger) CanAfford(kind Kind, quantity int) bool {
	b, ok := l.Balance()
	return ok && CanAfford(b, kind, quantity)
}

// CanAffordDays reports whether the cached balance covers days full days.
func (l *Ledger) CanAffordDays(days int) bool {
	b, ok := l.Balance()
	return ok && b >= DayPrice*int64(days)
}

// Debit charges one unit of kind. It is never retried: a failure leaves the
// cached balance unknown so the next check goes to the store.
func (l *Ledger) Debit(ctx context.Context, kind Kind) (int64, error) {
	price := Price(kind)

	if b, ok := l.Balance(); ok && b < price {
		return b, fmt.Errorf("debit %s (%d) with balance %d: %w", kind, price, b, common.ErrInsufficientBalance)
	}

	after, err := l.store.Decrement(ctx, l.accountID, price)
	if err != nil {
		l.mu.Lock()
		l.balance, l.known = 0, false
		l.mu.Unlock()
		if !errors.Is(err, common.ErrInsufficientBalance) {
			l.log.Warn(ctx, "debit failed", "account_id", l.accountID, "kind", kind.String(), "error", err)
		}
		return 0, fmt.Errorf("debit %s: %w", kind, err)
	}

	l.mu.Lock()
	l.balance, l.known = after, true
	l.mu.Unlock()

	if l.onDebit != nil {
		l.onDebit(ctx, l.accountID, kind, price, after)
	}
	return after, nil
}
