package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sampleSMS() *SMS {
	return &SMS{
		Sender:          "Alice Smith",
		SenderNumber:    "+14155551234",
		RecipientNumber: "+14150001111",
		Body:            "lunch tomorrow?",
		Timestamp:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ConversationID:  "conv-9",
		MessageID:       "1001",
		Direction:       "inbound",
	}
}

func TestSessionKey_Fallbacks(t *testing.T) {
	sms := sampleSMS()
	if got := SessionKey(sms); got != "hook:dialpad:sms:conv-9" {
		t.Errorf("SessionKey() = %q, want conversation key", got)
	}

	sms.ConversationID = ""
	if got := SessionKey(sms); got != "hook:dialpad:sms:1001" {
		t.Errorf("SessionKey() = %q, want message key", got)
	}

	sms.MessageID = ""
	if got := SessionKey(sms); got != "hook:dialpad:sms:4155551234" {
		t.Errorf("SessionKey() = %q, want normalized number key", got)
	}

	sms.SenderNumber = ""
	if got := SessionKey(sms); got != "hook:dialpad:sms:unknown" {
		t.Errorf("SessionKey() = %q, want unknown key", got)
	}
}

func TestFormatMessage(t *testing.T) {
	got := FormatMessage(sampleSMS(), "Work (415) 000-1111")

	for _, want := range []string{
		"Dialpad inbound SMS",
		"To Line: Work (415) 000-1111",
		"From: Alice Smith (+14155551234)",
		"Message ID: 1001",
		"lunch tomorrow?",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatMessage() missing %q in:\n%s", want, got)
		}
	}
}

func TestFormatMessage_FallsBackToRecipientNumber(t *testing.T) {
	got := FormatMessage(sampleSMS(), "")
	if !strings.Contains(got, "To: +14150001111") {
		t.Errorf("FormatMessage() missing recipient fallback in:\n%s", got)
	}
}

func TestForward(t *testing.T) {
	var gotAuth string
	var gotPayload hookPayload

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotPayload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f := NewHookForwarder(HookConfig{
		GatewayURL: srv.URL,
		Token:      "tok-123",
		Channel:    "ops",
	})

	if err := f.Forward(context.Background(), sampleSMS(), ""); err != nil {
		t.Fatalf("Forward() error: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotPayload.SessionKey != "hook:dialpad:sms:conv-9" {
		t.Errorf("SessionKey = %q", gotPayload.SessionKey)
	}
	if !gotPayload.Deliver {
		t.Error("Deliver = false, want true")
	}
	if gotPayload.Channel != "ops" {
		t.Errorf("Channel = %q, want %q", gotPayload.Channel, "ops")
	}
	if gotPayload.Name != "Dialpad SMS" {
		t.Errorf("Name = %q, want default", gotPayload.Name)
	}
}

func TestForward_GatewayErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHookForwarder(HookConfig{GatewayURL: srv.URL, Token: "tok"})
	if err := f.Forward(context.Background(), sampleSMS(), ""); err == nil {
		t.Error("Forward() = nil error on 502, want error")
	}
}

func TestForward_RequiresToken(t *testing.T) {
	f := NewHookForwarder(HookConfig{GatewayURL: "http://127.0.0.1:1"})
	if f.Enabled() {
		t.Error("Enabled() = true without token")
	}
	if err := f.Forward(context.Background(), sampleSMS(), ""); err == nil {
		t.Error("Forward() = nil error without token, want error")
	}
}

func TestURL_Joining(t *testing.T) {
	f := NewHookForwarder(HookConfig{GatewayURL: "http://127.0.0.1:8080/", Path: "hooks/agent", Token: "t"})
	if got := f.URL(); got != "http://127.0.0.1:8080/hooks/agent" {
		t.Errorf("URL() = %q", got)
	}
}
