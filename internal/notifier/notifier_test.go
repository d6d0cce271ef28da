package notifier

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func captureServer(t *testing.T, status int, body *[]byte) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		*body = raw
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSlackNotifyScanComplete(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusOK, &body)

	n := NewSlackNotifier(server.URL, nil, nil)
	err := n.NotifyScanComplete(context.Background(), ScanSummary{
		Target:        "https://example.com",
		FindingsCount: 5,
		CriticalCount: 2,
		ReportURL:     "https://app.cypersecurity.com/reports/1",
	})
	if err != nil {
		t.Fatalf("NotifyScanComplete() error = %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}

	text, _ := payload["text"].(string)
	if !strings.Contains(text, "5 findings (2 critical)") {
		t.Errorf("fallback text = %q, want findings summary", text)
	}

	blocks, ok := payload["blocks"].([]any)
	if !ok || len(blocks) != 3 {
		t.Fatalf("blocks = %v, want header + section + actions", payload["blocks"])
	}

	header, _ := blocks[0].(map[string]any)
	headerText, _ := header["text"].(map[string]any)
	if got, _ := headerText["text"].(string); !strings.Contains(got, ":rotating_light:") {
		t.Errorf("header text = %q, want rotating_light emoji for critical findings", got)
	}
}

func TestSlackNotifyCriticalFinding(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusOK, &body)

	n := NewSlackNotifier(server.URL, nil, nil)
	err := n.NotifyCriticalFinding(context.Background(), Finding{
		Title:     "SQL Injection",
		Severity:  "critical",
		CVSSScore: 9.8,
		URL:       "https://example.com/login",
	})
	if err != nil {
		t.Fatalf("NotifyCriticalFinding() error = %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	text, _ := payload["text"].(string)
	if !strings.Contains(text, "CRITICAL: SQL Injection") || !strings.Contains(text, "9.8") {
		t.Errorf("text = %q, want title and CVSS score", text)
	}
}

func TestSlackSendMessageErrorStatus(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusInternalServerError, &body)

	n := NewSlackNotifier(server.URL, nil, nil)
	if err := n.SendMessage(context.Background(), "hello", nil); err == nil {
		t.Error("SendMessage() error = nil on 500 response")
	}
}

func TestSlackUnconfiguredDropsQuietly(t *testing.T) {
	t.Parallel()

	n := NewSlackNotifier("", nil, nil)
	if err := n.SendMessage(context.Background(), "hello", nil); err != nil {
		t.Errorf("SendMessage() with no webhook url error = %v, want nil", err)
	}
}

func TestDiscordNotifyScanComplete(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusNoContent, &body)

	n := NewDiscordNotifier(server.URL, nil, nil)
	err := n.NotifyScanComplete(context.Background(), ScanSummary{
		Target:        "api.example.com",
		FindingsCount: 3,
	})
	if err != nil {
		t.Fatalf("NotifyScanComplete() error = %v", err)
	}

	var payload struct {
		Embeds []struct {
			Title  string              `json:"title"`
			Color  int                 `json:"color"`
			Fields []DiscordEmbedField `json:"fields"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(payload.Embeds) != 1 {
		t.Fatalf("embeds = %d, want 1", len(payload.Embeds))
	}
	embed := payload.Embeds[0]
	if embed.Color != discordColorOrange {
		t.Errorf("embed color = %#x, want orange for non-critical findings", embed.Color)
	}
	if len(embed.Fields) != 3 {
		t.Errorf("embed fields = %d, want 3", len(embed.Fields))
	}
}

func TestDiscordRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusTooManyRequests, &body)

	n := NewDiscordNotifier(server.URL, nil, nil)
	if err := n.SendEmbed(context.Background(), "t", "d", discordColorGreen, nil); err == nil {
		t.Error("SendEmbed() error = nil on 429 response")
	}
}

func TestPagerDutyTriggerIncident(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusAccepted, &body)

	n := NewPagerDutyNotifier("routing-key-123", nil, nil)
	n.apiURL = server.URL

	err := n.NotifyCriticalFinding(context.Background(), Finding{
		Title:     "Remote Code Execution",
		CVSSScore: 10.0,
		URL:       "https://example.com/upload",
	})
	if err != nil {
		t.Fatalf("NotifyCriticalFinding() error = %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if payload["routing_key"] != "routing-key-123" {
		t.Errorf("routing_key = %v", payload["routing_key"])
	}
	if payload["event_action"] != "trigger" {
		t.Errorf("event_action = %v, want trigger", payload["event_action"])
	}
	inner, _ := payload["payload"].(map[string]any)
	if inner["severity"] != "critical" {
		t.Errorf("severity = %v, want critical", inner["severity"])
	}
	summary, _ := inner["summary"].(string)
	if !strings.Contains(summary, "Remote Code Execution") {
		t.Errorf("summary = %q, want finding title", summary)
	}
}

func TestPagerDutyRejectsNonAccepted(t *testing.T) {
	t.Parallel()

	var body []byte
	server := captureServer(t, http.StatusBadRequest, &body)

	n := NewPagerDutyNotifier("routing-key-123", nil, nil)
	n.apiURL = server.URL

	if err := n.TriggerIncident(context.Background(), "s", "critical", nil); err == nil {
		t.Error("TriggerIncident() error = nil on 400 response")
	}
}
