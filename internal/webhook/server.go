// Package webhook serves the HTTP endpoints Dialpad delivers events to:
// SMS, missed-call, and voicemail webhooks, plus a direct /store endpoint
// for the local gateway plugin and a health check. Storage failures fail the
// webhook; notification-forwarding failures do not.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/shapescale/dialbox/internal/domain"
	"github.com/shapescale/dialbox/internal/ingest"
	"github.com/shapescale/dialbox/internal/notify"
)

// maxBodySize caps webhook request bodies at 1 MiB.
const maxBodySize = 1 << 20

// SMSForwarder forwards inbound SMS notifications to the agent gateway.
type SMSForwarder interface {
	Enabled() bool
	Forward(ctx context.Context, sms *notify.SMS, lineDisplay string) error
}

// CallNotifier delivers missed-call and voicemail alerts.
type CallNotifier interface {
	MissedCall(ev *notify.CallEvent) error
	Voicemail(ev *notify.CallEvent) error
}

// ContactResolver resolves a phone number to a contact display name.
type ContactResolver interface {
	ContactName(ctx context.Context, number string) (string, error)
}

// Server wires the webhook endpoints to the ingestion handler and the
// notification channels. Hooks, Calls, and Contacts are optional; a nil
// field disables that integration.
type Server struct {
	Ingest   *ingest.Handler
	Secret   string
	Lines    domain.LineNames
	Hooks    SMSForwarder
	Calls    CallNotifier
	Contacts ContactResolver
	Log      *logrus.Logger
}

// Router builds the HTTP route table.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/store", s.handleStore).Methods(http.MethodPost)
	r.HandleFunc("/webhook/dialpad", s.handleSMSWebhook).Methods(http.MethodPost)
	r.HandleFunc("/webhook/dialpad-call", s.handleCallWebhook).Methods(http.MethodPost)
	r.HandleFunc("/webhook/dialpad-voicemail", s.handleVoicemailWebhook).Methods(http.MethodPost)
	r.Use(s.requestLogger)
	return r
}

func (s *Server) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r.WithContext(r.Context()))
		s.logger().WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     r.Method,
			"path":       r.URL.Path,
			"elapsed":    time.Since(start).String(),
		}).Debug("handled request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStore ingests a message delivered by the local gateway plugin. No
// webhook auth: the endpoint is reachable only on the loopback interface.
func (s *Server) handleStore(w http.ResponseWriter, r *http.Request) {
	payload, _, ok := s.decodePayload(w, r)
	if !ok {
		return
	}

	n, err := s.Ingest.Ingest(r.Context(), payload)
	if err != nil {
		s.respondIngestError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stored": true,
		"is_new": n.IsNew,
	})
}

// handleSMSWebhook is the main Dialpad webhook: verify auth, store the
// message, then forward non-sensitive inbound SMS to the hook gateway.
// Forwarding failures still acknowledge the webhook with 200.
func (s *Server) handleSMSWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return
	}

	if ok, source := VerifyAuth(r.Header, raw, s.Secret); !ok {
		s.logger().WithField("reason", source).Warn("unauthorized webhook request")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	var payload ingest.Payload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			s.logger().WithError(err).Warn("invalid webhook JSON")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	// Missed calls sometimes ride the SMS webhook path as blank events
	// without a message ID. Alert on them instead of storing them.
	if ingest.Classify(&payload) == ingest.ClassMissedCall {
		s.notifyMissedCall(r.Context(), &payload)
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"stored":      false,
			"missed_call": true,
		})
		return
	}

	n, err := s.Ingest.Ingest(r.Context(), &payload)
	if err != nil {
		s.respondIngestError(w, err)
		return
	}

	hookForwarded := false
	hookStatus := ""
	if n.Direction == domain.DirectionInbound {
		hookForwarded, hookStatus = s.forwardInbound(r.Context(), &payload, n)
	}

	s.logger().WithFields(logrus.Fields{
		"contact":   n.Contact,
		"direction": n.Direction,
		"is_new":    n.IsNew,
		"hook":      hookStatus,
	}).Info("sms webhook stored")

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"stored":         true,
		"is_new":         n.IsNew,
		"hook_forwarded": hookForwarded,
		"hook_status":    hookStatus,
	})
}

// forwardInbound decides whether an inbound SMS reaches the hook gateway
// and performs the forward. Redeliveries, blank texts, and sensitive
// messages are filtered.
func (s *Server) forwardInbound(ctx context.Context, p *ingest.Payload, n *domain.Notification) (bool, string) {
	if !n.IsNew {
		return false, "filtered_duplicate"
	}
	if ingest.Classify(p) == ingest.ClassBlankSMS {
		return false, "filtered_blank_sms"
	}

	contactName := s.resolveContactName(ctx, p)
	if ingest.IsSensitive(n.Body, contactName, n.Contact) {
		s.logger().WithField("contact", n.Contact).Info("sensitive message filtered from forwarding")
		return false, "filtered_sensitive"
	}

	if s.Hooks == nil || !s.Hooks.Enabled() {
		return false, "disabled"
	}

	sender := contactName
	if sender == "" {
		sender = p.FromNumber.String()
	}
	sms := &notify.SMS{
		Sender:          sender,
		SenderNumber:    p.FromNumber.String(),
		RecipientNumber: p.ToNumber.String(),
		Body:            n.Body,
		Timestamp:       p.EventTime(),
		ConversationID:  p.ConversationID.String(),
		MessageID:       p.MessageID(),
		Direction:       string(n.Direction),
	}
	if err := s.Hooks.Forward(ctx, sms, s.Lines.Display(p.ToNumber.String())); err != nil {
		s.logger().WithError(err).Warn("hook forwarding failed")
		return false, "request_failed"
	}
	return true, "sent"
}

func (s *Server) resolveContactName(ctx context.Context, p *ingest.Payload) string {
	if name := p.ContactName(); name != "" && name != "Unknown" {
		return name
	}
	if s.Contacts == nil {
		return ""
	}
	name, err := s.Contacts.ContactName(ctx, p.FromNumber.String())
	if err != nil {
		s.logger().WithError(err).Warn("contact lookup failed")
		return ""
	}
	return name
}

// callPayload is the shape of Dialpad call and voicemail webhook events.
type callPayload struct {
	Direction     string            `json:"direction"`
	CallDirection string            `json:"call_direction"`
	FromNumber    ingest.FlexString `json:"from_number"`
	ToNumber      ingest.FlexString `json:"to_number"`
	CallMissed    bool              `json:"call_missed"`
	CallState     string            `json:"call_state"`
	Duration      *float64          `json:"duration"`
	CallDuration  *float64          `json:"call_duration"`

	VoicemailDuration      *float64 `json:"voicemail_duration"`
	Transcription          string   `json:"transcription"`
	VoicemailTranscription string   `json:"voicemail_transcription"`
}

func (p *callPayload) direction() string {
	if p.CallDirection != "" {
		return p.CallDirection
	}
	return p.Direction
}

func (p *callPayload) durationSeconds() float64 {
	for _, d := range []*float64{p.Duration, p.CallDuration, p.VoicemailDuration} {
		if d != nil {
			return *d
		}
	}
	return 0
}

func (p *callPayload) transcription() string {
	if p.VoicemailTranscription != "" {
		return p.VoicemailTranscription
	}
	return p.Transcription
}

// handleCallWebhook alerts on inbound missed calls. Other call events are
// acknowledged and ignored.
func (s *Server) handleCallWebhook(w http.ResponseWriter, r *http.Request) {
	var p callPayload
	if !s.decodeInto(w, r, &p) {
		return
	}

	missed := p.direction() == "inbound" &&
		(p.CallMissed || p.durationSeconds() == 0 || p.CallState == "missed")

	notified := false
	if missed {
		ev := s.callEvent(r.Context(), p.FromNumber.String(), p.ToNumber.String())
		if s.Calls != nil {
			if err := s.Calls.MissedCall(ev); err != nil {
				s.logger().WithError(err).Warn("missed-call alert failed")
			} else {
				notified = true
			}
		}
		s.logger().WithFields(logrus.Fields{
			"from": p.FromNumber.String(),
			"to":   ev.ToDisplay,
		}).Info("missed call")
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"missed_call": missed,
		"notified":    notified,
	})
}

// handleVoicemailWebhook alerts on new voicemails, including the
// transcription when Dialpad provides one.
func (s *Server) handleVoicemailWebhook(w http.ResponseWriter, r *http.Request) {
	var p callPayload
	if !s.decodeInto(w, r, &p) {
		return
	}

	ev := s.callEvent(r.Context(), p.FromNumber.String(), p.ToNumber.String())
	ev.Duration = time.Duration(p.durationSeconds()) * time.Second
	ev.Transcription = p.transcription()

	notified := false
	if s.Calls != nil {
		if err := s.Calls.Voicemail(ev); err != nil {
			s.logger().WithError(err).Warn("voicemail alert failed")
		} else {
			notified = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"voicemail": true,
		"notified":  notified,
	})
}

func (s *Server) notifyMissedCall(ctx context.Context, p *ingest.Payload) {
	if s.Calls == nil {
		return
	}
	ev := s.callEvent(ctx, p.FromNumber.String(), p.ToNumber.String())
	if err := s.Calls.MissedCall(ev); err != nil {
		s.logger().WithError(err).Warn("missed-call alert failed")
	}
}

func (s *Server) callEvent(ctx context.Context, from, to string) *notify.CallEvent {
	fromDisplay := from
	if from != "" && s.Contacts != nil {
		if name, err := s.Contacts.ContactName(ctx, from); err == nil && name != "" {
			fromDisplay = "*" + name + "* (`" + from + "`)"
		}
	}
	return &notify.CallEvent{
		FromDisplay: fromDisplay,
		ToDisplay:   s.Lines.Display(to),
		Time:        time.Now(),
	}
}

// decodePayload reads and parses an SMS webhook body, responding with 400 on
// malformed JSON. The raw body is returned for signature verification.
func (s *Server) decodePayload(w http.ResponseWriter, r *http.Request) (*ingest.Payload, []byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return nil, nil, false
	}

	var p ingest.Payload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			s.logger().WithError(err).Warn("invalid webhook JSON")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return nil, nil, false
		}
	}
	return &p, raw, true
}

func (s *Server) decodeInto(w http.ResponseWriter, r *http.Request, v any) bool {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
		return false
	}
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		s.logger().WithError(err).Warn("invalid webhook JSON")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return false
	}
	return true
}

func (s *Server) respondIngestError(w http.ResponseWriter, err error) {
	var verr *ingest.ValidationError
	if errors.As(err, &verr) {
		s.logger().WithError(verr).Warn("rejected webhook payload")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Error()})
		return
	}
	s.logger().WithError(err).Error("storage failure")
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
