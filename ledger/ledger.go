package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("ledger: not found")

type TransactionType string

const (
	TransactionDeposit TransactionType = "deposit"
	TransactionDebit   TransactionType = "debit"
)

type Account struct {
	UserID  string  `json:"userId"`
	Balance float64 `json:"balance"`
}

// Transaction is one immutable ledger line. Amount is signed: positive for
// deposits, negative for debits.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	ExecutionID string          `json:"executionId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type Store interface {
	GetAccount(ctx context.Context, userID string) (Account, error)
	// Apply persists the updated account balance and the ledger line as one
	// atomic unit. Either both become durable or neither does.
	Apply(ctx context.Context, account Account, tx Transaction) error
	ListTransactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	Close() error
}

// Ledger performs all balance mutations. Every mutation for a given user is
// serialized through a per-user mutex, so two concurrent successful runs can
// never over-draw the same balance.
type Ledger struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(store Store) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	return &Ledger{store: store, locks: map[string]*sync.Mutex{}}, nil
}

func (l *Ledger) userLock(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	return lock
}

// Charge debits amount from the user's balance if it covers the amount, and
// appends one debit transaction. It returns whether the charge was applied.
// Insufficient funds is not an error: the balance is left untouched, no
// transaction is written, and applied is false. A missing account counts as
// a zero balance.
func (l *Ledger) Charge(ctx context.Context, userID string, amount float64, description, executionID string) (bool, error) {
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}
	if amount < 0 {
		return false, fmt.Errorf("charge amount must not be negative")
	}
	if amount == 0 {
		return true, nil
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	account, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load account %q: %w", userID, err)
	}
	if account.Balance < amount {
		return false, nil
	}

	account.Balance -= amount
	tx := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        TransactionDebit,
		Amount:      -amount,
		Description: description,
		ExecutionID: executionID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.store.Apply(ctx, account, tx); err != nil {
		return false, fmt.Errorf("failed to debit account %q: %w", userID, err)
	}
	return true, nil
}

// Deposit credits the user's balance and appends one deposit transaction.
// The engine itself never calls this; it exists for the external deposit
// collaborator.
func (l *Ledger) Deposit(ctx context.Context, userID string, amount float64, description string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if amount <= 0 {
		return fmt.Errorf("deposit amount must be positive")
	}

	lock := l.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	account, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return fmt.Errorf("failed to load account %q: %w", userID, err)
		}
		account = Account{UserID: userID}
	}
	account.Balance += amount
	tx := Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        TransactionDeposit,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := l.store.Apply(ctx, account, tx); err != nil {
		return fmt.Errorf("failed to credit account %q: %w", userID, err)
	}
	return nil
}

// Balance returns the user's current balance. A missing account reads as
// zero.
func (l *Ledger) Balance(ctx context.Context, userID string) (float64, error) {
	account, err := l.store.GetAccount(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// Transactions returns the user's most recent ledger lines, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	return l.store.ListTransactions(ctx, userID, limit)
}
