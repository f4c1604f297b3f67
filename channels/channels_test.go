package channels

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
)

func TestWebClientSend(t *testing.T) {
	var gotMethod, gotAuth, gotContentType, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("done"))
	}))
	defer server.Close()

	client := NewWebClient()
	status, body, err := client.Send(context.Background(), http.MethodPost, server.URL,
		map[string]string{"Authorization": "Bearer x"}, `{"a":1}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != http.StatusCreated || body != "done" {
		t.Fatalf("unexpected response: %d %q", status, body)
	}
	if gotMethod != http.MethodPost || gotAuth != "Bearer x" || gotBody != `{"a":1}` {
		t.Fatalf("unexpected request: %s %q %q", gotMethod, gotAuth, gotBody)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type should default to json, got %q", gotContentType)
	}
}

func TestWebClientHeaderOverridesContentType(t *testing.T) {
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
	}))
	defer server.Close()

	client := NewWebClient()
	_, _, err := client.Send(context.Background(), http.MethodPost, server.URL,
		map[string]string{"Content-Type": "text/plain"}, "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotContentType != "text/plain" {
		t.Fatalf("explicit content type must win, got %q", gotContentType)
	}
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	mailer, err := NewSMTPMailer("relay.example.com:587", "engine@example.com",
		WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			return nil
		}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	messageID, err := mailer.Send(context.Background(), "ops@example.com", "Alert", "all good")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddr != "relay.example.com:587" || gotFrom != "engine@example.com" {
		t.Fatalf("unexpected relay call: %q %q", gotAddr, gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ops@example.com" {
		t.Fatalf("unexpected recipients: %v", gotTo)
	}
	msg := string(gotMsg)
	if !strings.Contains(msg, "Subject: Alert") || !strings.Contains(msg, "\r\n\r\nall good") {
		t.Fatalf("unexpected message: %q", msg)
	}
	if !strings.Contains(msg, "Message-ID: "+messageID) {
		t.Fatalf("message id should appear in headers, got %q", msg)
	}
	if !strings.HasPrefix(messageID, "<") || !strings.HasSuffix(messageID, "@relay.example.com>") {
		t.Fatalf("unexpected message id: %q", messageID)
	}
}

func TestSMTPMailerPropagatesSendError(t *testing.T) {
	mailer, _ := NewSMTPMailer("relay:25", "a@b.c",
		WithSendFunc(func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			return fmt.Errorf("relay refused")
		}))
	if _, err := mailer.Send(context.Background(), "x@y.z", "s", "b"); err == nil {
		t.Fatal("expected error from relay")
	}
}

func TestTelegramBotSend(t *testing.T) {
	var gotPath string
	var gotReq map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 134},
		})
	}))
	defer server.Close()

	bot, err := NewTelegramBot("tok123", WithTelegramBaseURL(server.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	messageID, err := bot.Send(context.Background(), "chat-7", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if messageID != "134" {
		t.Fatalf("unexpected message id: %q", messageID)
	}
	if gotPath != "/bottok123/sendMessage" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotReq["chat_id"] != "chat-7" || gotReq["text"] != "hello" {
		t.Fatalf("unexpected request: %v", gotReq)
	}
}

func TestTelegramBotAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer server.Close()

	bot, _ := NewTelegramBot("tok123", WithTelegramBaseURL(server.URL))
	_, err := bot.Send(context.Background(), "nope", "hello")
	if err == nil {
		t.Fatal("expected error from api")
	}
	if !strings.Contains(err.Error(), "chat not found") {
		t.Fatalf("error should carry the api description: %v", err)
	}
}

func TestNewTelegramBotRequiresToken(t *testing.T) {
	if _, err := NewTelegramBot("  "); err == nil {
		t.Fatal("expected error for empty token")
	}
}
