package actions

import (
	"context"
	"fmt"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/channels"
	"github.com/chainwork/chainwork/execution"
)

// SendEmailExecutor reports success once the mail channel accepts the
// message; delivery itself is fire-and-forget.
type SendEmailExecutor struct {
	client channels.MailClient
}

func NewSendEmailExecutor(client channels.MailClient) (*SendEmailExecutor, error) {
	if client == nil {
		return nil, fmt.Errorf("mail channel client is required")
	}
	return &SendEmailExecutor{client: client}, nil
}

func (e *SendEmailExecutor) Type() chain.ActionType { return chain.ActionSendEmail }

func (e *SendEmailExecutor) Execute(ctx context.Context, cfg chain.ActionConfig) execution.ActionResult {
	mailCfg, ok := cfg.(chain.SendEmailConfig)
	if !ok {
		return wrongConfig(e.Type(), cfg)
	}
	messageID, err := e.client.Send(ctx, mailCfg.To, mailCfg.Subject, mailCfg.Body)
	if err != nil {
		return failure(e.Type(), "mail channel rejected message: %v", err)
	}
	output := map[string]any{"to": mailCfg.To}
	if messageID != "" {
		output["message_id"] = messageID
	}
	return execution.ActionResult{
		ActionType: e.Type(),
		Success:    true,
		Output:     output,
	}
}

var _ Executor = (*SendEmailExecutor)(nil)
