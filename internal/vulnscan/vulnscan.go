// Package vulnscan implements lightweight active testers for common
// web vulnerability classes. Testers probe query parameters of a
// target URL and report findings with severity and evidence.
package vulnscan

import "time"

const (
	defaultScanTimeout = 10 * time.Second
	maxEvidenceLength  = 200
)

// Vulnerability is one confirmed finding against a parameter.
type Vulnerability struct {
	Parameter       string `json:"parameter"`
	Payload         string `json:"payload"`
	DetectionMethod string `json:"detection_method"`
	Severity        string `json:"severity"`
	Evidence        string `json:"evidence"`
}

// Result aggregates findings for one target URL.
type Result struct {
	URL             string          `json:"url"`
	Vulnerable      bool            `json:"vulnerable"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

func truncateEvidence(body string) string {
	if len(body) > maxEvidenceLength {
		return body[:maxEvidenceLength] + "..."
	}
	return body
}
