package actions

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chainwork/chainwork/chain"
	"github.com/chainwork/chainwork/channels"
	"github.com/chainwork/chainwork/execution"
)

// responseSnippetLimit bounds how much response body is kept on the record.
const responseSnippetLimit = 1000

type HTTPRequestExecutor struct {
	client channels.HTTPClient
}

func NewHTTPRequestExecutor(client channels.HTTPClient) (*HTTPRequestExecutor, error) {
	if client == nil {
		return nil, fmt.Errorf("http channel client is required")
	}
	return &HTTPRequestExecutor{client: client}, nil
}

func (e *HTTPRequestExecutor) Type() chain.ActionType { return chain.ActionHTTPRequest }

func (e *HTTPRequestExecutor) Execute(ctx context.Context, cfg chain.ActionConfig) execution.ActionResult {
	httpCfg, ok := cfg.(chain.HTTPRequestConfig)
	if !ok {
		return wrongConfig(e.Type(), cfg)
	}
	status, body, err := e.client.Send(ctx, httpCfg.Method, httpCfg.URL, httpCfg.Headers, httpCfg.Body)
	if err != nil {
		return failure(e.Type(), "http call failed: %v", err)
	}
	result := execution.ActionResult{
		ActionType: e.Type(),
		Success:    status >= http.StatusOK && status < http.StatusBadRequest,
		Output: map[string]any{
			"status_code": status,
			"body":        snippet(body, responseSnippetLimit),
		},
	}
	if !result.Success {
		result.Error = fmt.Sprintf("unexpected response status %d", status)
	}
	return result
}

func snippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

var _ Executor = (*HTTPRequestExecutor)(nil)
