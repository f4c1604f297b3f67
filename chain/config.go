package chain

import (
	"fmt"
	"net/http"
	"strings"
)

// ActionConfig is the typed form of an action's raw string config, resolved
// at the validation boundary so the runner and executors work over closed
// variants instead of loose key-value maps.
type ActionConfig interface {
	Kind() ActionType
	Validate() error
}

type HTTPRequestConfig struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

func (HTTPRequestConfig) Kind() ActionType { return ActionHTTPRequest }

func (c HTTPRequestConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("http_request requires a url")
	}
	switch c.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return nil
	default:
		return fmt.Errorf("unsupported http method %q", c.Method)
	}
}

type SendEmailConfig struct {
	To      string
	Subject string
	Body    string
}

func (SendEmailConfig) Kind() ActionType { return ActionSendEmail }

func (c SendEmailConfig) Validate() error {
	if strings.TrimSpace(c.To) == "" {
		return fmt.Errorf("send_email requires a recipient")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return fmt.Errorf("send_email requires a subject")
	}
	if c.Body == "" {
		return fmt.Errorf("send_email requires a body")
	}
	return nil
}

type TelegramConfig struct {
	ChatID  string
	Message string
}

func (TelegramConfig) Kind() ActionType { return ActionTelegramMessage }

func (c TelegramConfig) Validate() error {
	if strings.TrimSpace(c.ChatID) == "" {
		return fmt.Errorf("telegram_message requires a chat_id")
	}
	if c.Message == "" {
		return fmt.Errorf("telegram_message requires a message")
	}
	return nil
}

// ParseConfig converts an action's raw config map into its typed variant.
// Placeholder syntax is allowed in values; callers interpolate before
// executing, so only structural requirements are checked here.
func ParseConfig(a Action) (ActionConfig, error) {
	switch a.Type {
	case ActionHTTPRequest:
		method := strings.ToUpper(strings.TrimSpace(a.Config["method"]))
		if method == "" {
			method = http.MethodGet
		}
		cfg := HTTPRequestConfig{
			Method: method,
			URL:    a.Config["url"],
			Body:   a.Config["body"],
		}
		for key, value := range a.Config {
			if rest, ok := strings.CutPrefix(key, "header."); ok {
				if cfg.Headers == nil {
					cfg.Headers = map[string]string{}
				}
				cfg.Headers[rest] = value
			}
		}
		return cfg, cfg.Validate()
	case ActionSendEmail:
		cfg := SendEmailConfig{
			To:      a.Config["to"],
			Subject: a.Config["subject"],
			Body:    a.Config["body"],
		}
		return cfg, cfg.Validate()
	case ActionTelegramMessage:
		cfg := TelegramConfig{
			ChatID:  a.Config["chat_id"],
			Message: a.Config["message"],
		}
		return cfg, cfg.Validate()
	default:
		return nil, fmt.Errorf("unknown action type %q", a.Type)
	}
}
