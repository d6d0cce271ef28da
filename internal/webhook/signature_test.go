package webhook

import (
	"encoding/json"
	"testing"
)

func TestSignAndVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	envelope := map[string]any{
		"event":     "scan.completed",
		"timestamp": 1756166400.5,
		"data": map[string]any{
			"scan_id":         "abc-123",
			"vulnerabilities": float64(7),
		},
	}

	signature, err := Sign("s3cr3t", envelope)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if len(signature) != 64 {
		t.Fatalf("signature length = %d, want 64 hex chars", len(signature))
	}

	if !VerifySignature("s3cr3t", envelope, signature) {
		t.Error("VerifySignature() = false for valid signature")
	}
}

func TestVerifySignatureRejectsMutation(t *testing.T) {
	t.Parallel()

	envelope := map[string]any{
		"event":     "vulnerability.found",
		"timestamp": 1756166400.0,
		"data":      map[string]any{"severity": "high"},
	}

	signature, err := Sign("s3cr3t", envelope)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	envelope["data"] = map[string]any{"severity": "low"}
	if VerifySignature("s3cr3t", envelope, signature) {
		t.Error("VerifySignature() = true after payload mutation")
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	t.Parallel()

	envelope := map[string]any{
		"event":     "scan.started",
		"timestamp": 1756166400.0,
		"data":      map[string]any{},
	}

	signature, err := Sign("s3cr3t", envelope)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	if VerifySignature("wrong", envelope, signature) {
		t.Error("VerifySignature() = true with wrong secret")
	}
}

// A receiver decodes the raw body into a generic map and re-signs it.
// That round trip must produce byte-identical canonical JSON.
func TestCanonicalJSONSurvivesDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	envelope := map[string]any{
		"event":     "critical.finding",
		"timestamp": 1756166401.25,
		"data": map[string]any{
			"target":   "https://example.com",
			"cvss":     9.8,
			"verified": true,
		},
	}

	body, err := CanonicalJSON(envelope)
	if err != nil {
		t.Fatalf("CanonicalJSON() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	recanonical, err := CanonicalJSON(decoded)
	if err != nil {
		t.Fatalf("CanonicalJSON() on decoded envelope error = %v", err)
	}

	if string(body) != string(recanonical) {
		t.Errorf("canonical form changed after decode round trip:\n  first  = %s\n  second = %s", body, recanonical)
	}
}
