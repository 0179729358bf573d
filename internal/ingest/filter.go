package ingest

import (
	"regexp"
	"strings"
)

// Sensitive messages (OTP, 2FA, verification codes) are stored like any
// other message but must never be forwarded to notification channels.

var sensitiveKeywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(` +
		`otp|o\.t\.p|` +
		`2fa|two[- ]?factor|multi[- ]?factor|mfa|` +
		`verification code|security code|auth(?:entication)? code|` +
		`one[- ]?time (?:pass(?:word)?|code)|passcode` +
		`)\b`),
	regexp.MustCompile(`(?i)\b(?:google|g-?code|intuit|bank|chase|wells fargo|bank of america|` +
		`citi|capital one|paypal|venmo)\b.{0,80}\b(?:code|otp|passcode|verification)\b`),
	regexp.MustCompile(`(?i)\b(?:code|otp|passcode|verification code)\b.{0,30}\b\d{4,8}\b`),
	regexp.MustCompile(`(?i)\b\d{4,8}\b.{0,30}\b(?:code|otp|passcode|verification code)\b`),
}

var codeTokenPattern = regexp.MustCompile(`\b(?:\d[\s-]?){4,8}\b`)

var securityContextPattern = regexp.MustCompile(
	`(?i)\b(verify|verification|security|login|signin|sign in|auth|account|bank|google|intuit)\b`)

// IsSensitive reports whether a message looks like an OTP/2FA/security
// verification text. Sender and contact number participate so branded
// senders ("Google", "Capital One") are caught even with vague bodies.
func IsSensitive(text, sender, contactNumber string) bool {
	body := strings.TrimSpace(text)
	if body == "" {
		return false
	}

	var parts []string
	for _, p := range []string{sender, contactNumber, text} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	combined := strings.Join(parts, " ")

	for _, pattern := range sensitiveKeywordPatterns {
		if pattern.MatchString(combined) {
			return true
		}
	}

	return codeTokenPattern.MatchString(text) && securityContextPattern.MatchString(combined)
}
