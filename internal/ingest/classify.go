package ingest

import "strings"

// Class categorizes an inbound webhook payload for notification behavior.
type Class string

const (
	ClassSMS        Class = "sms"
	ClassBlankSMS   Class = "blank_sms"
	ClassMissedCall Class = "missed_call"
	ClassNotInbound Class = "not_inbound"
)

var missedCallStates = map[string]bool{
	"missed":     true,
	"no_answer":  true,
	"unanswered": true,
}

var missedCallEventHints = []string{
	"missed_call", "call.missed", "call_missed", "call missed",
}

// Classify decides how an inbound payload should be surfaced: a normal SMS,
// a blank SMS, or a missed call that Dialpad routed through the SMS webhook.
func Classify(p *Payload) Class {
	if !strings.EqualFold(p.Direction, "inbound") {
		return ClassNotInbound
	}
	if missedCallHint(p) {
		return ClassMissedCall
	}
	if isBlank(p.Body()) {
		return ClassBlankSMS
	}
	return ClassSMS
}

// missedCallHint detects missed-call events on the SMS webhook path.
// Conservative: requires blank text, an explicit missed-call signal, call
// context, and a sender number.
func missedCallHint(p *Payload) bool {
	if !strings.EqualFold(p.Direction, "inbound") {
		return false
	}
	if !isBlank(p.Body()) {
		return false
	}

	eventText := strings.ToLower(strings.Join([]string{
		p.EventType, p.Event, p.Type, p.SubscriptionType, p.Topic,
	}, " "))
	callState := strings.ToLower(p.CallState)

	hasMissedSignal := boolVal(p.CallMissed) || boolVal(p.MissedCall) || boolVal(p.IsMissedCall) ||
		missedCallStates[callState] ||
		containsAny(eventText, missedCallEventHints) ||
		(strings.Contains(eventText, "call") &&
			(strings.Contains(eventText, "no_answer") || strings.Contains(eventText, "unanswered")))
	if !hasMissedSignal {
		return false
	}

	hasCallContext := p.CallID != "" || p.CallMissed != nil || p.CallState != "" ||
		p.CallDirection != "" || p.CallDuration != nil || p.Duration != nil ||
		strings.Contains(eventText, "call")
	if !hasCallContext {
		return false
	}

	return !isBlank(p.FromNumber.String())
}

func boolVal(b *bool) bool {
	return b != nil && *b
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
