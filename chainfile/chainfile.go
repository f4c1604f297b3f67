// Package chainfile loads chain definitions from a YAML file and seeds them
// into a store. It exists so deployments can ship a declarative set of
// chains alongside the binary instead of creating everything over the API.
package chainfile

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"

	"github.com/chainwork/chainwork/chain"
)

// File is the parsed document. Accounts are optional opening balances for
// the owners referenced by the chains.
type File struct {
	Chains   []ChainDef   `yaml:"chains"`
	Accounts []AccountDef `yaml:"accounts"`
}

type ChainDef struct {
	ID          string      `yaml:"id"`
	Owner       string      `yaml:"owner"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Trigger     TriggerDef  `yaml:"trigger"`
	Actions     []ActionDef `yaml:"actions"`
	Active      *bool       `yaml:"active"`
	Cost        float64     `yaml:"cost"`
}

type TriggerDef struct {
	Type   string         `yaml:"type"`
	Config map[string]any `yaml:"config"`
}

type ActionDef struct {
	Type   string            `yaml:"type"`
	Config map[string]string `yaml:"config"`
}

type AccountDef struct {
	User    string  `yaml:"user"`
	Balance float64 `yaml:"balance"`
}

// Load reads and parses a chainfile. Chains are validated structurally;
// chains missing an id or a webhook routing token get one generated, so a
// minimal hand-written file still round-trips into valid records.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("failed to read chainfile %q: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse chainfile: %w", err)
	}
	if len(f.Chains) == 0 {
		return File{}, fmt.Errorf("chainfile defines no chains")
	}
	for i := range f.Chains {
		if err := normalize(&f.Chains[i]); err != nil {
			return File{}, fmt.Errorf("chain %d (%q): %w", i, f.Chains[i].Name, err)
		}
	}
	for i, account := range f.Accounts {
		if strings.TrimSpace(account.User) == "" {
			return File{}, fmt.Errorf("account %d: user is required", i)
		}
		if account.Balance < 0 {
			return File{}, fmt.Errorf("account %d: balance must not be negative", i)
		}
	}
	return f, nil
}

func normalize(def *ChainDef) error {
	if strings.TrimSpace(def.ID) == "" {
		def.ID = uuid.NewString()
	}
	if def.Trigger.Config == nil {
		def.Trigger.Config = map[string]any{}
	}
	if chain.TriggerType(def.Trigger.Type) == chain.TriggerWebhook {
		token := strings.TrimSpace(stringValue(def.Trigger.Config["token"]))
		if token == "" {
			def.Trigger.Config["token"] = uuid.NewString()
		}
	}
	c := def.Chain()
	if err := chain.Validate(c); err != nil {
		return err
	}
	return nil
}

// Chain converts the definition into the engine's model. Active defaults to
// true when the file leaves it out.
func (d ChainDef) Chain() chain.Chain {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	actions := make([]chain.Action, 0, len(d.Actions))
	for _, a := range d.Actions {
		actions = append(actions, chain.Action{Type: chain.ActionType(a.Type), Config: a.Config})
	}
	return chain.Chain{
		ID:            d.ID,
		OwnerID:       d.Owner,
		Name:          d.Name,
		Description:   d.Description,
		TriggerType:   chain.TriggerType(d.Trigger.Type),
		TriggerConfig: d.Trigger.Config,
		Actions:       actions,
		IsActive:      active,
		ExecutionCost: d.Cost,
	}
}

// Depositor is the slice of the ledger the seeder needs for opening
// balances.
type Depositor interface {
	Deposit(ctx context.Context, userID string, amount float64, description string) error
	Balance(ctx context.Context, userID string) (float64, error)
}

// Seed upserts every chain in the file and tops accounts up to their
// declared opening balance. Topping up instead of depositing blindly keeps
// Seed idempotent across restarts.
func Seed(ctx context.Context, f File, chains chain.Store, deposits Depositor) error {
	for _, def := range f.Chains {
		if err := chains.Save(ctx, def.Chain()); err != nil {
			return fmt.Errorf("failed to seed chain %q: %w", def.Name, err)
		}
		log.Printf("[chainfile] seeded chain %s (%s)", def.ID, def.Name)
	}
	if deposits == nil {
		return nil
	}
	for _, account := range f.Accounts {
		if account.Balance == 0 {
			continue
		}
		current, err := deposits.Balance(ctx, account.User)
		if err != nil {
			return fmt.Errorf("failed to read balance for %q: %w", account.User, err)
		}
		if current >= account.Balance {
			continue
		}
		if err := deposits.Deposit(ctx, account.User, account.Balance-current, "chainfile opening balance"); err != nil {
			return fmt.Errorf("failed to seed balance for %q: %w", account.User, err)
		}
		log.Printf("[chainfile] topped up %s to %.2f", account.User, account.Balance)
	}
	return nil
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}
