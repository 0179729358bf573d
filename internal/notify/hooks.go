// Package notify delivers inbound-SMS and call notifications to downstream
// channels: the local agent-gateway hooks endpoint and Telegram. Delivery is
// best-effort; a failed notification never fails the webhook that triggered
// it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shapescale/dialbox/internal/domain"
)

// SMS is a normalized inbound message ready for forwarding. Sender carries
// the resolved contact name when one is known, otherwise the number.
type SMS struct {
	Sender          string
	SenderNumber    string
	RecipientNumber string
	Body            string
	Timestamp       time.Time
	ConversationID  string
	MessageID       string
	Direction       string
}

// HookConfig configures the agent-gateway hooks endpoint.
type HookConfig struct {
	GatewayURL string
	Path       string
	Token      string
	Name       string
	Channel    string
	To         string
	AgentID    string
}

// HookForwarder posts inbound SMS notifications to the gateway hooks
// endpoint with a bearer token.
type HookForwarder struct {
	cfg    HookConfig
	client *http.Client
}

// NewHookForwarder returns a forwarder for cfg. Enabled is false when no
// token is configured.
func NewHookForwarder(cfg HookConfig) *HookForwarder {
	if cfg.Path == "" {
		cfg.Path = "/hooks/agent"
	}
	if cfg.Name == "" {
		cfg.Name = "Dialpad SMS"
	}
	return &HookForwarder{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether forwarding is configured.
func (f *HookForwarder) Enabled() bool {
	return f.cfg.Token != ""
}

// URL joins the gateway base URL and hooks path.
func (f *HookForwarder) URL() string {
	return strings.TrimRight(f.cfg.GatewayURL, "/") + "/" + strings.TrimLeft(f.cfg.Path, "/")
}

// SessionKey builds a stable hook session key for an SMS, preferring the
// conversation ID, then the message ID, then the normalized sender number.
func SessionKey(sms *SMS) string {
	candidate := sms.ConversationID
	if candidate == "" {
		candidate = sms.MessageID
	}
	if candidate == "" {
		candidate = domain.NormalizePhone(sms.SenderNumber)
	}
	if candidate == "" {
		candidate = "unknown"
	}
	return "hook:dialpad:sms:" + candidate
}

// FormatMessage renders the hook message text: short metadata lines followed
// by the body. lineDisplay names the receiving line when known.
func FormatMessage(sms *SMS, lineDisplay string) string {
	sender := sms.Sender
	if sender == "" {
		sender = "Unknown"
	}
	senderNumber := sms.SenderNumber
	if senderNumber == "" {
		senderNumber = "Unknown"
	}

	lines := []string{"Dialpad inbound SMS"}
	if lineDisplay != "" {
		lines = append(lines, "To Line: "+lineDisplay)
	} else if sms.RecipientNumber != "" {
		lines = append(lines, "To: "+sms.RecipientNumber)
	}
	lines = append(lines, fmt.Sprintf("From: %s (%s)", sender, senderNumber))
	if !sms.Timestamp.IsZero() {
		lines = append(lines, "Timestamp: "+sms.Timestamp.UTC().Format(time.RFC3339))
	}
	if sms.MessageID != "" {
		lines = append(lines, "Message ID: "+sms.MessageID)
	}
	lines = append(lines, "", sms.Body)
	return strings.Join(lines, "\n")
}

type hookPayload struct {
	Message    string `json:"message"`
	Name       string `json:"name"`
	SessionKey string `json:"sessionKey"`
	Deliver    bool   `json:"deliver"`
	Channel    string `json:"channel,omitempty"`
	To         string `json:"to,omitempty"`
	AgentID    string `json:"agentId,omitempty"`
}

func (f *HookForwarder) buildPayload(sms *SMS, lineDisplay string) hookPayload {
	return hookPayload{
		Message:    FormatMessage(sms, lineDisplay),
		Name:       f.cfg.Name,
		SessionKey: SessionKey(sms),
		Deliver:    true,
		Channel:    f.cfg.Channel,
		To:         f.cfg.To,
		AgentID:    f.cfg.AgentID,
	}
}

// Forward posts the SMS to the hooks endpoint. It returns an error when
// forwarding is unconfigured, the request fails, or the gateway responds
// outside the 2xx range.
func (f *HookForwarder) Forward(ctx context.Context, sms *SMS, lineDisplay string) error {
	if !f.Enabled() {
		return fmt.Errorf("hooks token is not configured")
	}

	body, err := json.Marshal(f.buildPayload(sms, lineDisplay))
	if err != nil {
		return fmt.Errorf("failed to marshal hook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build hook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.cfg.Token)

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to forward SMS to hooks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("hooks endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
