package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/chainwork/chainwork/ledger"
)

type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (s *LedgerStore) GetAccount(ctx context.Context, userID string) (ledger.Account, error) {
	if strings.TrimSpace(userID) == "" {
		return ledger.Account{}, fmt.Errorf("user id is required")
	}
	var account ledger.Account
	row := s.db.db.QueryRowContext(ctx, `SELECT user_id, balance FROM accounts WHERE user_id = ?;`, userID)
	if err := row.Scan(&account.UserID, &account.Balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.Account{}, ledger.ErrNotFound
		}
		return ledger.Account{}, fmt.Errorf("failed to load account: %w", err)
	}
	return account, nil
}

// Apply writes the account row and the transaction row inside one database
// transaction. A partial write cannot leave the balance and the ledger lines
// out of step.
func (s *LedgerStore) Apply(ctx context.Context, account ledger.Account, tx ledger.Transaction) error {
	if strings.TrimSpace(account.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(tx.ID) == "" {
		return fmt.Errorf("transaction id is required")
	}

	dbTx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ledger write: %w", err)
	}
	defer func() { _ = dbTx.Rollback() }()

	const upsertAccount = `
INSERT INTO accounts (user_id, balance) VALUES (?, ?)
ON CONFLICT(user_id) DO UPDATE SET balance=excluded.balance;
`
	if _, err := dbTx.ExecContext(ctx, upsertAccount, account.UserID, account.Balance); err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	const insertTransaction = `
INSERT INTO transactions (id, user_id, type, amount, description, execution_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?);
`
	_, err = dbTx.ExecContext(
		ctx,
		insertTransaction,
		tx.ID,
		tx.UserID,
		string(tx.Type),
		tx.Amount,
		tx.Description,
		tx.ExecutionID,
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger write: %w", err)
	}
	return nil
}

func (s *LedgerStore) ListTransactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.db.QueryContext(
		ctx,
		`SELECT id, user_id, type, amount, description, execution_id, created_at FROM transactions WHERE user_id = ? ORDER BY created_at DESC LIMIT ?;`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	out := []ledger.Transaction{}
	for rows.Next() {
		var (
			tx         ledger.Transaction
			txType     string
			createdRaw string
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &txType, &tx.Amount, &tx.Description, &tx.ExecutionID, &createdRaw); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		tx.Type = ledger.TransactionType(txType)
		if tx.CreatedAt, err = parseTime(createdRaw); err != nil {
			return nil, fmt.Errorf("failed to parse transaction created_at: %w", err)
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return out, nil
}

func (s *LedgerStore) Close() error {
	return s.db.Close()
}

var _ ledger.Store = (*LedgerStore)(nil)
