package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Dialpad authenticates webhook deliveries either with an HMAC-SHA256
// signature over the raw body or with a Bearer HS256 JWT, depending on how
// the subscription was created. Both are accepted; no configured secret
// disables verification.

var signatureHeaders = []string{
	"X-Dialpad-Signature",
	"X-Dialpad-Signature-SHA256",
}

// VerifyAuth validates an inbound webhook request. It returns whether the
// request is acceptable and the mechanism that accepted it ("disabled",
// "hmac", or "jwt").
func VerifyAuth(header http.Header, rawBody []byte, secret string) (bool, string) {
	if secret == "" {
		return true, "disabled"
	}
	if verifyHMACSignature(header, rawBody, secret) {
		return true, "hmac"
	}
	if verifyBearerJWT(header, secret) {
		return true, "jwt"
	}
	return false, "missing_or_invalid_signature_or_jwt"
}

// parseSignatureCandidates extracts hex digest candidates from a signature
// header. Raw hex, "sha256=<hex>", and "v1:<hex>" forms are all accepted,
// comma-separated.
func parseSignatureCandidates(value string) []string {
	var candidates []string
	for _, part := range strings.Split(value, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		if i := strings.Index(piece, "="); i >= 0 {
			piece = strings.TrimSpace(piece[i+1:])
		} else if i := strings.Index(piece, ":"); i >= 0 {
			piece = strings.TrimSpace(piece[i+1:])
		}
		piece = strings.ToLower(piece)
		if len(piece) == sha256.Size*2 && isHex(piece) {
			candidates = append(candidates, piece)
		}
	}
	return candidates
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}

func verifyHMACSignature(header http.Header, rawBody []byte, secret string) bool {
	var provided []string
	for _, name := range signatureHeaders {
		if v := header.Get(name); v != "" {
			provided = append(provided, parseSignatureCandidates(v)...)
		}
	}
	if len(provided) == 0 {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range provided {
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return true
		}
	}
	return false
}

func verifyBearerJWT(header http.Header, secret string) bool {
	token := bearerToken(header)
	if token == "" {
		return false
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))
	_, err := parser.Parse(token, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	return err == nil
}

func bearerToken(header http.Header) string {
	auth := strings.TrimSpace(header.Get("Authorization"))
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
