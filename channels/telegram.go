package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// TelegramBot is the production MessagingClient against the Telegram Bot
// API.
type TelegramBot struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

type TelegramOption func(*TelegramBot)

func WithTelegramBaseURL(baseURL string) TelegramOption {
	return func(b *TelegramBot) {
		if baseURL != "" {
			b.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithTelegramHTTPClient(h *http.Client) TelegramOption {
	return func(b *TelegramBot) {
		if h != nil {
			b.httpClient = h
		}
	}
}

func NewTelegramBot(token string, opts ...TelegramOption) (*TelegramBot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is required")
	}
	b := &TelegramBot{
		token:      token,
		baseURL:    defaultTelegramBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
	Result      struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
}

func (b *TelegramBot) Send(ctx context.Context, chatID, text string) (string, error) {
	raw, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal telegram request: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", b.baseURL, b.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read telegram response: %w", err)
	}
	var decoded sendMessageResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode telegram response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !decoded.OK {
		reason := decoded.Description
		if reason == "" {
			reason = strings.TrimSpace(string(body))
		}
		return "", fmt.Errorf("telegram api error (status %d): %s", resp.StatusCode, reason)
	}
	return strconv.FormatInt(decoded.Result.MessageID, 10), nil
}

var _ MessagingClient = (*TelegramBot)(nil)
