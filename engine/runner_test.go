package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/chainwork/chainwork/actions"
	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/execution"
	"github.com/chainwork/chainwork/ledger"
)

type memChainStore struct {
	mu     sync.Mutex
	chains map[string]chain.Chain
}

func newMemChainStore(chains ...chain.Chain) *memChainStore {
	s := &memChainStore{chains: map[string]chain.Chain{}}
	for _, c := range chains {
		s.chains[c.ID] = c
	}
	return s
}

func (s *memChainStore) Save(ctx context.Context, c chain.Chain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains[c.ID] = c
	return nil
}

func (s *memChainStore) Get(ctx context.Context, id string) (chain.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chains[id]
	if !ok {
		return chain.Chain{}, chain.ErrNotFound
	}
	return c, nil
}

func (s *memChainStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chains[id]; !ok {
		return chain.ErrNotFound
	}
	delete(s.chains, id)
	return nil
}

func (s *memChainStore) ListByOwner(ctx context.Context, ownerID string) ([]chain.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []chain.Chain{}
	for _, c := range s.chains {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memChainStore) GetByRoutingToken(ctx context.Context, token string) (chain.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.chains {
		if c.TriggerType == chain.TriggerWebhook && c.RoutingToken() == token {
			return c, nil
		}
	}
	return chain.Chain{}, chain.ErrNotFound
}

func (s *memChainStore) ListActiveScheduled(ctx context.Context) ([]chain.Chain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []chain.Chain{}
	for _, c := range s.chains {
		if c.TriggerType == chain.TriggerSchedule && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memChainStore) Close() error { return nil }

type memExecutionStore struct {
	mu      sync.Mutex
	records map[string]execution.Record
	saves   int
}

func newMemExecutionStore() *memExecutionStore {
	return &memExecutionStore{records: map[string]execution.Record{}}
}

func (s *memExecutionStore) Save(ctx context.Context, record execution.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	s.saves++
	return nil
}

func (s *memExecutionStore) Get(ctx context.Context, id string) (execution.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return execution.Record{}, execution.ErrNotFound
	}
	return record, nil
}

func (s *memExecutionStore) ListByChain(ctx context.Context, chainID string, limit int) ([]execution.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []execution.Record{}
	for _, record := range s.records {
		if record.ChainID == chainID {
			out = append(out, record)
		}
	}
	return out, nil
}

func (s *memExecutionStore) Close() error { return nil }

type memLedgerStore struct {
	mu           sync.Mutex
	accounts     map[string]ledger.Account
	transactions []ledger.Transaction
}

func newMemLedgerStore() *memLedgerStore {
	return &memLedgerStore{accounts: map[string]ledger.Account{}}
}

func (s *memLedgerStore) GetAccount(ctx context.Context, userID string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[userID]
	if !ok {
		return ledger.Account{}, ledger.ErrNotFound
	}
	return account, nil
}

func (s *memLedgerStore) Apply(ctx context.Context, account ledger.Account, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.UserID] = account
	s.transactions = append(s.transactions, tx)
	return nil
}

func (s *memLedgerStore) ListTransactions(ctx context.Context, userID string, limit int) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []ledger.Transaction{}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

func (s *memLedgerStore) Close() error { return nil }

// stubExecutor returns canned results and records the configs it saw.
type stubExecutor struct {
	actionType chain.ActionType
	execute    func(cfg chain.ActionConfig) execution.ActionResult

	mu   sync.Mutex
	seen []chain.ActionConfig
}

func (e *stubExecutor) Type() chain.ActionType { return e.actionType }

func (e *stubExecutor) Execute(ctx context.Context, cfg chain.ActionConfig) execution.ActionResult {
	e.mu.Lock()
	e.seen = append(e.seen, cfg)
	e.mu.Unlock()
	if e.execute != nil {
		return e.execute(cfg)
	}
	return execution.ActionResult{ActionType: e.actionType, Success: true}
}

func okHTTPExecutor(output map[string]any) *stubExecutor {
	return &stubExecutor{
		actionType: chain.ActionHTTPRequest,
		execute: func(cfg chain.ActionConfig) execution.ActionResult {
			return execution.ActionResult{ActionType: chain.ActionHTTPRequest, Success: true, Output: output}
		},
	}
}

func testChain(cost float64, actionList ...chain.Action) chain.Chain {
	if len(actionList) == 0 {
		actionList = []chain.Action{
			{Type: chain.ActionHTTPRequest, Config: map[string]string{"url": "https://example.com"}},
		}
	}
	return chain.Chain{
		ID:            "chain-1",
		OwnerID:       "user-1",
		Name:          "notify",
		TriggerType:   chain.TriggerManual,
		Actions:       actionList,
		IsActive:      true,
		ExecutionCost: cost,
	}
}

func newTestRunner(t *testing.T, chains *memChainStore, executions *memExecutionStore, ledgerStore *memLedgerStore, registry *actions.Registry) *Runner {
	t.Helper()
	billing, err := ledger.New(ledgerStore)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	runner, err := NewRunner(chains, executions, billing, registry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return runner
}

func TestRunSuccessChargesOwner(t *testing.T) {
	chains := newMemChainStore(testChain(0.10))
	executions := newMemExecutionStore()
	ledgerStore := newMemLedgerStore()
	ledgerStore.accounts["user-1"] = ledger.Account{UserID: "user-1", Balance: 1.00}
	registry := actions.NewRegistry(okHTTPExecutor(map[string]any{"status_code": 200}))

	runner := newTestRunner(t, chains, executions, ledgerStore, registry)
	record, err := runner.Run(context.Background(), execution.RunRequest{ChainID: "chain-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != execution.StatusSuccess {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if !record.Charged || record.Cost != 0.10 {
		t.Fatalf("expected charged record at cost 0.10, got charged=%v cost=%v", record.Charged, record.Cost)
	}
	if record.StartedAt == nil || record.CompletedAt == nil {
		t.Fatal("expected started and completed timestamps")
	}

	if ledgerStore.accounts["user-1"].Balance != 0.90 {
		t.Fatalf("unexpected balance: %v", ledgerStore.accounts["user-1"].Balance)
	}
	if len(ledgerStore.transactions) != 1 {
		t.Fatalf("expected one transaction, got %d", len(ledgerStore.transactions))
	}
	tx := ledgerStore.transactions[0]
	if tx.Description != "Execution of chain: notify" {
		t.Fatalf("unexpected description: %q", tx.Description)
	}
	if tx.ExecutionID != record.ID {
		t.Fatalf("transaction should reference the execution, got %q", tx.ExecutionID)
	}

	stored, err := executions.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != execution.StatusSuccess {
		t.Fatalf("persisted record has status %s", stored.Status)
	}
}

func TestRunInsufficientBalanceStaysSuccessful(t *testing.T) {
	chains := newMemChainStore(testChain(0.10))
	executions := newMemExecutionStore()
	ledgerStore := newMemLedgerStore()
	ledgerStore.accounts["user-1"] = ledger.Account{UserID: "user-1", Balance: 0.05}
	registry := actions.NewRegistry(okHTTPExecutor(nil))

	runner := newTestRunner(t, chains, executions, ledgerStore, registry)
	record, err := runner.Run(context.Background(), execution.RunRequest{ChainID: "chain-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != execution.StatusSuccess {
		t.Fatalf("insufficient funds must not fail the run, got %s", record.Status)
	}
	if record.Charged {
		t.Fatal("record must not be charged")
	}
	if record.Cost != 0 {
		t.Fatalf("uncharged record must carry zero cost, got %v", record.Cost)
	}
	if !strings.Contains(record.Result.Summary, "insufficient balance") {
		t.Fatalf("summary should explain the missing charge: %q", record.Result.Summary)
	}
	if ledgerStore.accounts["user-1"].Balance != 0.05 {
		t.Fatalf("balance must stay untouched, got %v", ledgerStore.accounts["user-1"].Balance)
	}
	if len(ledgerStore.transactions) != 0 {
		t.Fatalf("no transaction should be written, got %d", len(ledgerStore.transactions))
	}
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	failing := &stubExecutor{
		actionType: chain.ActionTelegramMessage,
		execute: func(cfg chain.ActionConfig) execution.ActionResult {
			return execution.ActionResult{ActionType: chain.ActionTelegramMessage, Success: false, Error: "chat unreachable"}
		},
	}
	emailExec := &stubExecutor{actionType: chain.ActionSendEmail}
	c := testChain(0.10,
		chain.Action{Type: chain.ActionHTTPRequest, Config: map[string]string{"url": "https://example.com"}},
		chain.Action{Type: chain.ActionTelegramMessage, Config: map[string]string{"chat_id": "7", "message": "hi"}},
		chain.Action{Type: chain.ActionSendEmail, Config: map[string]string{"to": "a@b.c", "subject": "s", "body": "b"}},
	)
	chains := newMemChainStore(c)
	executions := newMemExecutionStore()
	ledgerStore := newMemLedgerStore()
	ledgerStore.accounts["user-1"] = ledger.Account{UserID: "user-1", Balance: 1.00}
	registry := actions.NewRegistry(okHTTPExecutor(nil), failing, emailExec)

	runner := newTestRunner(t, chains, executions, ledgerStore, registry)
	record, err := runner.Run(context.Background(), execution.RunRequest{ChainID: "chain-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if record.Status != execution.StatusFailed {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if len(record.Result.Actions) != 2 {
		t.Fatalf("run must stop at the failed action, got %d results", len(record.Result.Actions))
	}
	if !strings.Contains(record.Result.Summary, "action 1") {
		t.Fatalf("summary should name the failed action: %q", record.Result.Summary)
	}
	if len(emailExec.seen) != 0 {
		t.Fatal("action after the failure must never execute")
	}
	if record.Charged {
		t.Fatal("failed runs must not be charged")
	}
	if ledgerStore.accounts["user-1"].Balance != 1.00 {
		t.Fatalf("balance must stay untouched, got %v", ledgerStore.accounts["user-1"].Balance)
	}
}

func TestRunInterpolatesAcrossActions(t *testing.T) {
	telegram := &stubExecutor{actionType: chain.ActionTelegramMessage}
	c := testChain(0,
		chain.Action{Type: chain.ActionHTTPRequest, Config: map[string]string{"url": "https://example.com/{{trigger.path}}"}},
		chain.Action{Type: chain.ActionTelegramMessage, Config: map[string]string{
			"chat_id": "7",
			"message": "got {{action.0.body}} for {{trigger.path}}",
		}},
	)
	chains := newMemChainStore(c)
	registry := actions.NewRegistry(okHTTPExecutor(map[string]any{"body": "pong"}), telegram)

	runner := newTestRunner(t, chains, newMemExecutionStore(), newMemLedgerStore(), registry)
	record, err := runner.Run(context.Background(), execution.RunRequest{
		ChainID:     "chain-1",
		TriggerData: map[string]any{"path": "ping"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != execution.StatusSuccess {
		t.Fatalf("unexpected status: %s (%s)", record.Status, record.Result.Summary)
	}

	if len(telegram.seen) != 1 {
		t.Fatalf("expected one telegram execution, got %d", len(telegram.seen))
	}
	cfg, ok := telegram.seen[0].(chain.TelegramConfig)
	if !ok {
		t.Fatalf("unexpected config type %T", telegram.seen[0])
	}
	if cfg.Message != "got pong for ping" {
		t.Fatalf("unexpected interpolated message: %q", cfg.Message)
	}
}

func TestRunRecordsUnresolvedReferences(t *testing.T) {
	c := testChain(0,
		chain.Action{Type: chain.ActionHTTPRequest, Config: map[string]string{"url": "https://example.com/{{trigger.missing}}"}},
	)
	chains := newMemChainStore(c)
	registry := actions.NewRegistry(okHTTPExecutor(nil))

	runner := newTestRunner(t, chains, newMemExecutionStore(), newMemLedgerStore(), registry)
	record, err := runner.Run(context.Background(), execution.RunRequest{ChainID: "chain-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != execution.StatusSuccess {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	got := record.Result.Actions[0].Unresolved
	if len(got) != 1 || got[0] != "trigger.missing" {
		t.Fatalf("unexpected unresolved refs: %v", got)
	}
}

func TestRunMissingExecutorFailsAction(t *testing.T) {
	chains := newMemChainStore(testChain(0))
	runner := newTestRunner(t, chains, newMemExecutionStore(), newMemLedgerStore(), actions.NewRegistry())

	record, err := runner.Run(context.Background(), execution.RunRequest{ChainID: "chain-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != execution.StatusFailed {
		t.Fatalf("unexpected status: %s", record.Status)
	}
	if !strings.Contains(record.Result.Actions[0].Error, "no executor registered") {
		t.Fatalf("unexpected action error: %q", record.Result.Actions[0].Error)
	}
}

func TestRunUnknownChain(t *testing.T) {
	runner := newTestRunner(t, newMemChainStore(), newMemExecutionStore(), newMemLedgerStore(), actions.NewRegistry())
	_, err := runner.Run(context.Background(), execution.RunRequest{ChainID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
