package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/shapescale/dialbox/internal/domain"
	"github.com/shapescale/dialbox/internal/ingest"
	"github.com/shapescale/dialbox/internal/notify"
	"github.com/shapescale/dialbox/internal/store/sqlite"
)

type fakeForwarder struct {
	enabled bool
	sent    []*notify.SMS
	err     error
}

func (f *fakeForwarder) Enabled() bool { return f.enabled }

func (f *fakeForwarder) Forward(ctx context.Context, sms *notify.SMS, lineDisplay string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sms)
	return nil
}

type fakeCallNotifier struct {
	missed     []*notify.CallEvent
	voicemails []*notify.CallEvent
}

func (f *fakeCallNotifier) MissedCall(ev *notify.CallEvent) error {
	f.missed = append(f.missed, ev)
	return nil
}

func (f *fakeCallNotifier) Voicemail(ev *notify.CallEvent) error {
	f.voicemails = append(f.voicemails, ev)
	return nil
}

type testServer struct {
	*Server
	db       *sqlite.DB
	hooks    *fakeForwarder
	calls    *fakeCallNotifier
	handler  http.Handler
	teardown func()
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()

	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	hooks := &fakeForwarder{enabled: true}
	calls := &fakeCallNotifier{}
	lines := domain.NewLineNames(map[string]string{"+14150001111": "Work"})

	srv := &Server{
		Ingest: ingest.NewHandler(db, lines),
		Secret: secret,
		Lines:  lines,
		Hooks:  hooks,
		Calls:  calls,
		Log:    log,
	}
	return &testServer{
		Server:  srv,
		db:      db,
		hooks:   hooks,
		calls:   calls,
		handler: srv.Router(),
	}
}

func (ts *testServer) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return m
}

const inboundBody = `{
	"id": "1001",
	"direction": "inbound",
	"from_number": "+14155551234",
	"to_number": ["+14150001111"],
	"text": "demo",
	"created_date": 1772366400000
}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, "")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := decodeResponse(t, w)["status"]; got != "ok" {
		t.Errorf("status field = %v, want ok", got)
	}
}

func TestSMSWebhook_StoresAndForwards(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.post(t, "/webhook/dialpad", inboundBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	resp := decodeResponse(t, w)
	if resp["stored"] != true {
		t.Error("stored = false, want true")
	}
	if resp["is_new"] != true {
		t.Error("is_new = false, want true")
	}
	if resp["hook_forwarded"] != true {
		t.Errorf("hook_forwarded = %v, want true", resp["hook_forwarded"])
	}

	if len(ts.hooks.sent) != 1 {
		t.Fatalf("forwarded = %d, want 1", len(ts.hooks.sent))
	}
	if ts.hooks.sent[0].MessageID != "1001" {
		t.Errorf("forwarded MessageID = %q", ts.hooks.sent[0].MessageID)
	}

	thread, err := ts.db.GetThread(context.Background(), "+14155551234")
	if err != nil {
		t.Fatalf("GetThread() error: %v", err)
	}
	if len(thread) != 1 || thread[0].Body != "demo" {
		t.Fatalf("thread = %v, want single demo message", thread)
	}
}

func TestSMSWebhook_RedeliveryNotForwardedTwice(t *testing.T) {
	ts := newTestServer(t, "")

	ts.post(t, "/webhook/dialpad", inboundBody)
	w := ts.post(t, "/webhook/dialpad", inboundBody)

	resp := decodeResponse(t, w)
	if resp["is_new"] != false {
		t.Error("is_new = true on redelivery, want false")
	}
	if resp["hook_status"] != "filtered_duplicate" {
		t.Errorf("hook_status = %v, want filtered_duplicate", resp["hook_status"])
	}
	if len(ts.hooks.sent) != 1 {
		t.Errorf("forwarded = %d, want 1 (no duplicate alerts)", len(ts.hooks.sent))
	}

	st, err := ts.db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Messages != 1 {
		t.Errorf("Messages = %d, want 1", st.Messages)
	}
}

func TestSMSWebhook_SensitiveNotForwarded(t *testing.T) {
	ts := newTestServer(t, "")

	body := `{
		"id": "2002",
		"direction": "inbound",
		"from_number": "+14155551234",
		"to_number": "+14150001111",
		"text": "Your Google verification code is 482991",
		"created_date": 1772366400000
	}`
	w := ts.post(t, "/webhook/dialpad", body)

	resp := decodeResponse(t, w)
	if resp["stored"] != true {
		t.Error("sensitive message must still be stored")
	}
	if resp["hook_status"] != "filtered_sensitive" {
		t.Errorf("hook_status = %v, want filtered_sensitive", resp["hook_status"])
	}
	if len(ts.hooks.sent) != 0 {
		t.Errorf("forwarded = %d, want 0", len(ts.hooks.sent))
	}
}

func TestSMSWebhook_OutboundNotForwarded(t *testing.T) {
	ts := newTestServer(t, "")

	body := `{
		"id": "3003",
		"direction": "outbound",
		"from_number": "+14150001111",
		"to_number": "+14155551234",
		"text": "on my way",
		"created_date": 1772366400000
	}`
	w := ts.post(t, "/webhook/dialpad", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(ts.hooks.sent) != 0 {
		t.Errorf("forwarded = %d, want 0", len(ts.hooks.sent))
	}

	// Outbound messages arrive read: no unread count.
	convs, err := ts.db.ListConversations(context.Background())
	if err != nil {
		t.Fatalf("ListConversations() error: %v", err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 0 {
		t.Errorf("conversations = %v, want one with 0 unread", convs)
	}
}

func TestSMSWebhook_MalformedPayloadRejected(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.post(t, "/webhook/dialpad", `{"direction": "inbound", "text": "no id"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	st, err := ts.db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Messages != 0 {
		t.Errorf("Messages = %d, want 0", st.Messages)
	}
}

func TestSMSWebhook_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, "")

	w := ts.post(t, "/webhook/dialpad", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSMSWebhook_AuthRequired(t *testing.T) {
	ts := newTestServer(t, "topsecret")

	w := ts.post(t, "/webhook/dialpad", inboundBody)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/webhook/dialpad", bytes.NewBufferString(inboundBody))
	req.Header.Set("X-Dialpad-Signature", "sha256="+signBody("topsecret", []byte(inboundBody)))
	w2 := httptest.NewRecorder()
	ts.handler.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("signed request status = %d, want 200: %s", w2.Code, w2.Body.String())
	}
}

func TestSMSWebhook_MissedCallHintAlertsWithoutStoring(t *testing.T) {
	ts := newTestServer(t, "")

	body := `{
		"direction": "inbound",
		"from_number": "+14155551234",
		"to_number": "+14150001111",
		"text": "",
		"event_type": "call.missed",
		"call_state": "missed",
		"call_id": "abc123"
	}`
	w := ts.post(t, "/webhook/dialpad", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	resp := decodeResponse(t, w)
	if resp["missed_call"] != true {
		t.Errorf("missed_call = %v, want true", resp["missed_call"])
	}
	if len(ts.calls.missed) != 1 {
		t.Errorf("missed-call alerts = %d, want 1", len(ts.calls.missed))
	}

	st, err := ts.db.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if st.Messages != 0 {
		t.Errorf("Messages = %d, want 0 (missed calls are not messages)", st.Messages)
	}
}

func TestStoreEndpoint(t *testing.T) {
	ts := newTestServer(t, "topsecret")

	// /store bypasses webhook auth: it is for the loopback gateway plugin.
	w := ts.post(t, "/store", inboundBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	resp := decodeResponse(t, w)
	if resp["stored"] != true || resp["is_new"] != true {
		t.Errorf("response = %v", resp)
	}
}

func TestCallWebhook_MissedCall(t *testing.T) {
	ts := newTestServer(t, "")

	body := `{
		"call_direction": "inbound",
		"from_number": "+14155551234",
		"to_number": "+14150001111",
		"call_missed": true
	}`
	w := ts.post(t, "/webhook/dialpad-call", body)

	resp := decodeResponse(t, w)
	if resp["missed_call"] != true || resp["notified"] != true {
		t.Errorf("response = %v", resp)
	}
	if len(ts.calls.missed) != 1 {
		t.Fatalf("alerts = %d, want 1", len(ts.calls.missed))
	}
	if ts.calls.missed[0].ToDisplay != "Work (415) 000-1111" {
		t.Errorf("ToDisplay = %q", ts.calls.missed[0].ToDisplay)
	}
}

func TestCallWebhook_AnsweredCallIgnored(t *testing.T) {
	ts := newTestServer(t, "")

	body := `{
		"call_direction": "inbound",
		"from_number": "+14155551234",
		"duration": 125.0,
		"call_state": "hangup"
	}`
	w := ts.post(t, "/webhook/dialpad-call", body)

	resp := decodeResponse(t, w)
	if resp["missed_call"] != false {
		t.Errorf("missed_call = %v, want false", resp["missed_call"])
	}
	if len(ts.calls.missed) != 0 {
		t.Errorf("alerts = %d, want 0", len(ts.calls.missed))
	}
}

func TestVoicemailWebhook(t *testing.T) {
	ts := newTestServer(t, "")

	body := `{
		"direction": "inbound",
		"from_number": "+14155551234",
		"to_number": "+14150001111",
		"voicemail_duration": 42,
		"voicemail_transcription": "Call me back please."
	}`
	w := ts.post(t, "/webhook/dialpad-voicemail", body)

	resp := decodeResponse(t, w)
	if resp["voicemail"] != true || resp["notified"] != true {
		t.Errorf("response = %v", resp)
	}
	if len(ts.calls.voicemails) != 1 {
		t.Fatalf("alerts = %d, want 1", len(ts.calls.voicemails))
	}
	ev := ts.calls.voicemails[0]
	if ev.Transcription != "Call me back please." {
		t.Errorf("Transcription = %q", ev.Transcription)
	}
	if ev.Duration.Seconds() != 42 {
		t.Errorf("Duration = %v, want 42s", ev.Duration)
	}
}
