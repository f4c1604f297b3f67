package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chainwork/chainwork/chain"
)

type ChainStore struct {
	db *DB
}

func NewChainStore(db *DB) *ChainStore {
	return &ChainStore{db: db}
}

func (s *ChainStore) Save(ctx context.Context, c chain.Chain) error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("chain id is required")
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	triggerRaw, err := json.Marshal(c.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}
	actionsRaw, err := json.Marshal(c.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	const q = `
INSERT INTO chains (
  id, owner_id, name, description, trigger_type, trigger_config, actions, is_active, execution_cost, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  owner_id=excluded.owner_id,
  name=excluded.name,
  description=excluded.description,
  trigger_type=excluded.trigger_type,
  trigger_config=excluded.trigger_config,
  actions=excluded.actions,
  is_active=excluded.is_active,
  execution_cost=excluded.execution_cost,
  updated_at=excluded.updated_at;
`
	_, err = s.db.db.ExecContext(
		ctx,
		q,
		c.ID,
		c.OwnerID,
		c.Name,
		c.Description,
		string(c.TriggerType),
		string(triggerRaw),
		string(actionsRaw),
		boolToInt(c.IsActive),
		c.ExecutionCost,
		formatTime(c.CreatedAt),
		formatTime(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save chain: %w", err)
	}
	return nil
}

const chainColumns = `id, owner_id, name, description, trigger_type, trigger_config, actions, is_active, execution_cost, created_at, updated_at`

func (s *ChainStore) Get(ctx context.Context, id string) (chain.Chain, error) {
	if strings.TrimSpace(id) == "" {
		return chain.Chain{}, fmt.Errorf("chain id is required")
	}
	row := s.db.db.QueryRowContext(ctx, `SELECT `+chainColumns+` FROM chains WHERE id = ?;`, id)
	c, err := scanChain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chain.Chain{}, chain.ErrNotFound
		}
		return chain.Chain{}, err
	}
	return c, nil
}

func (s *ChainStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM chains WHERE id = ?;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete chain: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check chain deletion: %w", err)
	}
	if affected == 0 {
		return chain.ErrNotFound
	}
	return nil
}

func (s *ChainStore) ListByOwner(ctx context.Context, ownerID string) ([]chain.Chain, error) {
	rows, err := s.db.db.QueryContext(ctx, `SELECT `+chainColumns+` FROM chains WHERE owner_id = ? ORDER BY created_at DESC;`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chains: %w", err)
	}
	defer rows.Close()
	return collectChains(rows)
}

func (s *ChainStore) GetByRoutingToken(ctx context.Context, token string) (chain.Chain, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return chain.Chain{}, chain.ErrNotFound
	}
	// Token uniqueness is enforced at save time by the service layer;
	// json_extract keeps the lookup on the store side.
	row := s.db.db.QueryRowContext(
		ctx,
		`SELECT `+chainColumns+` FROM chains WHERE trigger_type = ? AND json_extract(trigger_config, '$.token') = ?;`,
		string(chain.TriggerWebhook),
		token,
	)
	c, err := scanChain(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chain.Chain{}, chain.ErrNotFound
		}
		return chain.Chain{}, err
	}
	return c, nil
}

func (s *ChainStore) ListActiveScheduled(ctx context.Context) ([]chain.Chain, error) {
	rows, err := s.db.db.QueryContext(
		ctx,
		`SELECT `+chainColumns+` FROM chains WHERE trigger_type = ? AND is_active = 1;`,
		string(chain.TriggerSchedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list scheduled chains: %w", err)
	}
	defer rows.Close()
	return collectChains(rows)
}

func (s *ChainStore) Close() error {
	return s.db.Close()
}

func collectChains(rows *sql.Rows) ([]chain.Chain, error) {
	out := []chain.Chain{}
	for rows.Next() {
		c, err := scanChain(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chains: %w", err)
	}
	return out, nil
}

func scanChain(scanner interface{ Scan(dest ...any) error }) (chain.Chain, error) {
	var (
		c           chain.Chain
		triggerType string
		triggerRaw  string
		actionsRaw  string
		isActive    int
		createdRaw  string
		updatedRaw  string
	)
	if err := scanner.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Name,
		&c.Description,
		&triggerType,
		&triggerRaw,
		&actionsRaw,
		&isActive,
		&c.ExecutionCost,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return chain.Chain{}, err
		}
		return chain.Chain{}, fmt.Errorf("failed to scan chain row: %w", err)
	}
	c.TriggerType = chain.TriggerType(triggerType)
	c.IsActive = isActive != 0
	if err := json.Unmarshal([]byte(triggerRaw), &c.TriggerConfig); err != nil {
		return chain.Chain{}, fmt.Errorf("failed to decode trigger config: %w", err)
	}
	if err := json.Unmarshal([]byte(actionsRaw), &c.Actions); err != nil {
		return chain.Chain{}, fmt.Errorf("failed to decode actions: %w", err)
	}
	var err error
	if c.CreatedAt, err = parseTime(createdRaw); err != nil {
		return chain.Chain{}, fmt.Errorf("failed to parse chain created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedRaw); err != nil {
		return chain.Chain{}, fmt.Errorf("failed to parse chain updated_at: %w", err)
	}
	return c, nil
}

var _ chain.Store = (*ChainStore)(nil)
