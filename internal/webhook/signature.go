package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// CanonicalJSON serializes an envelope deterministically: encoding/json
// emits map keys in sorted order with compact separators. Sign and verify
// must share this exact form or cross-party signatures will mismatch.
func CanonicalJSON(envelope map[string]any) ([]byte, error) {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize envelope: %w", err)
	}
	return payload, nil
}

// Sign computes the hex-encoded HMAC-SHA256 of the canonical envelope
// keyed by secret.
func Sign(secret string, envelope map[string]any) (string, error) {
	payload, err := CanonicalJSON(envelope)
	if err != nil {
		return "", err
	}
	return signBytes(secret, payload), nil
}

func signBytes(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the envelope HMAC and compares it to the
// presented signature in constant time. Used by webhook receivers.
func VerifySignature(secret string, envelope map[string]any, signature string) bool {
	expected, err := Sign(secret, envelope)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(signature))
}
