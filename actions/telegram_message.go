package actions

import (
	"context"
	"fmt"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/channels"
	"github.com/chainwork/chainwork/execution"
)

type TelegramMessageExecutor struct {
	client channels.MessagingClient
}

func NewTelegramMessageExecutor(client channels.MessagingClient) (*TelegramMessageExecutor, error) {
	if client == nil {
		return nil, fmt.Errorf("messaging channel client is required")
	}
	return &TelegramMessageExecutor{client: client}, nil
}

func (e *TelegramMessageExecutor) Type() chain.ActionType { return chain.ActionTelegramMessage }

func (e *TelegramMessageExecutor) Execute(ctx context.Context, cfg chain.ActionConfig) execution.ActionResult {
	tgCfg, ok := cfg.(chain.TelegramConfig)
	if !ok {
		return wrongConfig(e.Type(), cfg)
	}
	messageID, err := e.client.Send(ctx, tgCfg.ChatID, tgCfg.Message)
	if err != nil {
		return failure(e.Type(), "messaging channel error: %v", err)
	}
	return execution.ActionResult{
		ActionType: e.Type(),
		Success:    true,
		Output: map[string]any{
			"chat_id":    tgCfg.ChatID,
			"message_id": messageID,
		},
	}
}

var _ Executor = (*TelegramMessageExecutor)(nil)
