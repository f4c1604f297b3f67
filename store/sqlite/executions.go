package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/chainwork/chainwork/execution"
)

type ExecutionStore struct {
	db *DB
}

func NewExecutionStore(db *DB) *ExecutionStore {
	return &ExecutionStore{db: db}
}

func (s *ExecutionStore) Save(ctx context.Context, record execution.Record) error {
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("execution id is required")
	}
	if strings.TrimSpace(record.ChainID) == "" {
		return fmt.Errorf("chain id is required")
	}

	triggerRaw, err := json.Marshal(record.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger data: %w", err)
	}
	resultRaw, err := json.Marshal(record.Result)
	if err != nil {
		return fmt.Errorf("failed to marshal execution result: %w", err)
	}

	const q = `
INSERT INTO executions (
  id, chain_id, status, trigger_data, result, cost, charged, started_at, completed_at, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  status=excluded.status,
  trigger_data=excluded.trigger_data,
  result=excluded.result,
  cost=excluded.cost,
  charged=excluded.charged,
  started_at=excluded.started_at,
  completed_at=excluded.completed_at;
`
	_, err = s.db.db.ExecContext(
		ctx,
		q,
		record.ID,
		record.ChainID,
		string(record.Status),
		string(triggerRaw),
		string(resultRaw),
		record.Cost,
		boolToInt(record.Charged),
		toNullableTime(record.StartedAt),
		toNullableTime(record.CompletedAt),
		formatTime(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	return nil
}

const executionColumns = `id, chain_id, status, trigger_data, result, cost, charged, started_at, completed_at, created_at`

func (s *ExecutionStore) Get(ctx context.Context, id string) (execution.Record, error) {
	if strings.TrimSpace(id) == "" {
		return execution.Record{}, fmt.Errorf("execution id is required")
	}
	row := s.db.db.QueryRowContext(ctx, `SELECT `+executionColumns+` FROM executions WHERE id = ?;`, id)
	record, err := scanExecution(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return execution.Record{}, execution.ErrNotFound
		}
		return execution.Record{}, err
	}
	return record, nil
}

func (s *ExecutionStore) ListByChain(ctx context.Context, chainID string, limit int) ([]execution.Record, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.db.QueryContext(
		ctx,
		`SELECT `+executionColumns+` FROM executions WHERE chain_id = ? ORDER BY created_at DESC LIMIT ?;`,
		chainID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	defer rows.Close()

	out := make([]execution.Record, 0, limit)
	for rows.Next() {
		record, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate executions: %w", err)
	}
	return out, nil
}

func (s *ExecutionStore) Close() error {
	return s.db.Close()
}

func scanExecution(scanner interface{ Scan(dest ...any) error }) (execution.Record, error) {
	var (
		record       execution.Record
		status       string
		triggerRaw   string
		resultRaw    string
		charged      int
		startedRaw   sql.NullString
		completedRaw sql.NullString
		createdRaw   string
	)
	if err := scanner.Scan(
		&record.ID,
		&record.ChainID,
		&status,
		&triggerRaw,
		&resultRaw,
		&record.Cost,
		&charged,
		&startedRaw,
		&completedRaw,
		&createdRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return execution.Record{}, err
		}
		return execution.Record{}, fmt.Errorf("failed to scan execution row: %w", err)
	}
	record.Status = execution.Status(status)
	record.Charged = charged != 0
	if err := json.Unmarshal([]byte(triggerRaw), &record.TriggerData); err != nil {
		return execution.Record{}, fmt.Errorf("failed to decode trigger data: %w", err)
	}
	if err := json.Unmarshal([]byte(resultRaw), &record.Result); err != nil {
		return execution.Record{}, fmt.Errorf("failed to decode execution result: %w", err)
	}
	var err error
	if record.StartedAt, err = parseNullableTime(startedRaw); err != nil {
		return execution.Record{}, fmt.Errorf("failed to parse execution started_at: %w", err)
	}
	if record.CompletedAt, err = parseNullableTime(completedRaw); err != nil {
		return execution.Record{}, fmt.Errorf("failed to parse execution completed_at: %w", err)
	}
	if record.CreatedAt, err = parseTime(createdRaw); err != nil {
		return execution.Record{}, fmt.Errorf("failed to parse execution created_at: %w", err)
	}
	return record, nil
}

var _ execution.Store = (*ExecutionStore)(nil)
