// Package channels holds the narrow contracts the engine uses to reach the
// outside world, plus the production clients behind them. The engine never
// depends on transport details beyond these three interfaces.
package channels

import "context"

// HTTPClient performs one outbound HTTP call for an http_request action.
type HTTPClient interface {
	Send(ctx context.Context, method, url string, headers map[string]string, body string) (status int, responseBody string, err error)
}

// MailClient hands a message to the mail channel. Success means the channel
// accepted the message for delivery, not that it was delivered.
type MailClient interface {
	Send(ctx context.Context, to, subject, body string) (messageID string, err error)
}

// MessagingClient sends one text to a messaging-bot chat.
type MessagingClient interface {
	Send(ctx context.Context, chatID, text string) (messageID string, err error)
}
