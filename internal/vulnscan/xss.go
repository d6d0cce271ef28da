package vulnscan

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/cyperhq/integration-engine/internal/domain"
)

// xssPayload pairs an attack string with its class for severity
// scoring.
type xssPayload struct {
	payload string
	kind    string
}

var xssPayloads = []xssPayload{
	{"<script>alert('XSS')</script>", "reflected"},
	{"<img src=x onerror=alert('XSS')>", "reflected"},
	{"<svg onload=alert('XSS')>", "reflected"},
	{"' onmouseover='alert(1)", "reflected"},
	{"\" onload=\"alert(1)", "reflected"},
	{"'-alert(1)-'", "reflected"},
	{"\"-alert(1)-\"", "reflected"},
	{"</script><script>alert(1)</script>", "reflected"},
	{"<scr<script>ipt>alert(1)</scr</script>ipt>", "reflected"},
	{"<ScRiPt>alert(1)</sCrIpT>", "reflected"},
}

// XSSTester probes URL query parameters for reflected cross-site
// scripting.
type XSSTester struct {
	client *resty.Client
	logger *zap.Logger
}

func NewXSSTester(client *resty.Client, logger *zap.Logger) *XSSTester {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(defaultScanTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &XSSTester{client: client, logger: logger}
}

// TestURL injects each payload into every query parameter and reports
// reflections that appear unescaped in the response.
func (t *XSSTester) TestURL(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() {
		return nil, fmt.Errorf("%w: target must be an absolute URL", domain.ErrValidation)
	}

	result := &Result{URL: rawURL, Vulnerabilities: []Vulnerability{}}

	params := parsed.Query()
	if len(params) == 0 {
		return result, nil
	}

	for param := range params {
		for _, p := range xssPayloads {
			testURL := injectQueryParam(parsed, param, p.payload)

			response, err := t.client.R().SetContext(ctx).Get(testURL)
			if err != nil {
				continue
			}
			body := response.String()

			if !isReflected(body, p.payload) {
				continue
			}
			exploitable, reflectionContext := isExploitable(body, p.payload)
			if !exploitable {
				continue
			}

			result.Vulnerabilities = append(result.Vulnerabilities, Vulnerability{
				Parameter:       param,
				Payload:         p.payload,
				DetectionMethod: reflectionContext,
				Severity:        xssSeverity(p.kind, reflectionContext),
				Evidence:        extractReflection(body, p.payload),
			})
		}
	}

	result.Vulnerable = len(result.Vulnerabilities) > 0
	if result.Vulnerable {
		t.logger.Warn("cross-site scripting detected",
			zap.String("url", rawURL),
			zap.Int("findings", len(result.Vulnerabilities)),
		)
	}
	return result, nil
}

func isReflected(body, payload string) bool {
	if strings.Contains(body, payload) {
		return true
	}
	if strings.Contains(body, url.QueryEscape(payload)) {
		return true
	}
	return strings.Contains(body, html.EscapeString(payload))
}

// isExploitable distinguishes raw reflection from escaped output.
func isExploitable(body, payload string) (bool, string) {
	escaped := html.EscapeString(payload)
	if strings.Contains(body, escaped) && !strings.Contains(body, payload) {
		return false, "escaped"
	}

	contexts := map[string]string{
		"<script":  "script_tag",
		"onerror=": "event_handler",
		"onload=":  "event_handler",
		"href=":    "attribute",
		"src=":     "attribute",
	}
	lowerPayload := strings.ToLower(payload)
	for marker, reflectionContext := range contexts {
		if strings.Contains(lowerPayload, marker) && strings.Contains(body, payload) {
			return true, reflectionContext
		}
	}

	if strings.Contains(body, payload) {
		return true, "html"
	}
	return false, "none"
}

func xssSeverity(kind, reflectionContext string) string {
	switch {
	case kind == "stored":
		return "critical"
	case kind == "reflected" && (reflectionContext == "script_tag" || reflectionContext == "event_handler"):
		return "high"
	case kind == "dom":
		return "high"
	default:
		return "medium"
	}
}

func extractReflection(body, payload string) string {
	index := strings.Index(body, payload)
	if index == -1 {
		return "payload reflected but exact location unclear"
	}

	start := index - 50
	if start < 0 {
		start = 0
	}
	end := index + len(payload) + 50
	if end > len(body) {
		end = len(body)
	}
	return body[start:end]
}
