package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type sendGridRequest struct {
	Personalizations []struct {
		To []struct {
			Email string `json:"email"`
		} `json:"to"`
	} `json:"personalizations"`
	From struct {
		Email string `json:"email"`
	} `json:"from"`
	Subject string `json:"subject"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func newSendGridServer(t *testing.T, status int, requests *[]sendGridRequest) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Errorf("Authorization header = %q, want bearer token", got)
		}

		body, _ := io.ReadAll(r.Body)
		var req sendGridRequest
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("request body is not valid JSON: %v", err)
		}
		*requests = append(*requests, req)
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSendEmail(t *testing.T) {
	t.Parallel()

	var requests []sendGridRequest
	server := newSendGridServer(t, http.StatusAccepted, &requests)

	svc := NewEmailService("sg-key", "alerts@cypersecurity.com", nil, nil)
	svc.baseURL = server.URL

	err := svc.SendEmail(context.Background(), "user@example.com", "Hello", "<p>hi</p>")
	if err != nil {
		t.Fatalf("SendEmail() error = %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("sendgrid received %d requests, want 1", len(requests))
	}
	req := requests[0]
	if req.From.Email != "alerts@cypersecurity.com" {
		t.Errorf("from = %s", req.From.Email)
	}
	if req.Personalizations[0].To[0].Email != "user@example.com" {
		t.Errorf("to = %s", req.Personalizations[0].To[0].Email)
	}
	if req.Subject != "Hello" {
		t.Errorf("subject = %s", req.Subject)
	}
	if req.Content[0].Type != "text/html" || req.Content[0].Value != "<p>hi</p>" {
		t.Errorf("content = %+v", req.Content)
	}
}

func TestSendEmailAPIError(t *testing.T) {
	t.Parallel()

	var requests []sendGridRequest
	server := newSendGridServer(t, http.StatusUnauthorized, &requests)

	svc := NewEmailService("sg-key", "", nil, nil)
	svc.baseURL = server.URL

	err := svc.SendEmail(context.Background(), "user@example.com", "Hello", "<p>hi</p>")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("SendEmail() error = %v, want ErrDeliveryFailed", err)
	}
}

func TestSendEmailLogOnlyMode(t *testing.T) {
	t.Parallel()

	svc := NewEmailService("", "", nil, nil)
	if err := svc.SendEmail(context.Background(), "user@example.com", "Hello", "<p>hi</p>"); err != nil {
		t.Errorf("SendEmail() in log-only mode error = %v, want nil", err)
	}
}

func TestNotifyScanComplete(t *testing.T) {
	t.Parallel()

	var requests []sendGridRequest
	server := newSendGridServer(t, http.StatusAccepted, &requests)

	svc := NewEmailService("sg-key", "", nil, nil)
	svc.baseURL = server.URL

	err := svc.NotifyScanComplete(context.Background(), "user@example.com", ScanCompleteData{
		Target:        "example.com",
		FindingsCount: 4,
		CriticalCount: 1,
		ScanURL:       "https://app.cypersecurity.com/scans/1",
	})
	if err != nil {
		t.Fatalf("NotifyScanComplete() error = %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("sendgrid received %d requests, want 1", len(requests))
	}
	req := requests[0]
	if req.Subject != "Scan Complete: example.com" {
		t.Errorf("subject = %s", req.Subject)
	}
	body := req.Content[0].Value
	for _, want := range []string{"example.com", "Critical", "Unsubscribe"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestNotifyCriticalFindingFiltersSeverity(t *testing.T) {
	t.Parallel()

	var requests []sendGridRequest
	server := newSendGridServer(t, http.StatusAccepted, &requests)

	svc := NewEmailService("sg-key", "", nil, nil)
	svc.baseURL = server.URL
	ctx := context.Background()

	err := svc.NotifyCriticalFinding(ctx, "user@example.com", CriticalFindingData{
		Title:    "Reflected XSS",
		Severity: "medium",
	})
	if err != nil {
		t.Fatalf("NotifyCriticalFinding(medium) error = %v", err)
	}
	if len(requests) != 0 {
		t.Fatalf("medium-severity finding produced %d emails, want 0", len(requests))
	}

	err = svc.NotifyCriticalFinding(ctx, "user@example.com", CriticalFindingData{
		Title:     "SQL Injection",
		Severity:  "critical",
		CVSSScore: 9.8,
		Target:    "example.com",
	})
	if err != nil {
		t.Fatalf("NotifyCriticalFinding(critical) error = %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("critical finding produced %d emails, want 1", len(requests))
	}
	if !strings.Contains(requests[0].Subject, "SQL Injection") {
		t.Errorf("subject = %s", requests[0].Subject)
	}
}

func TestNotifyPaymentSuccessCentsToDollars(t *testing.T) {
	t.Parallel()

	var requests []sendGridRequest
	server := newSendGridServer(t, http.StatusAccepted, &requests)

	svc := NewEmailService("sg-key", "", nil, nil)
	svc.baseURL = server.URL

	if err := svc.NotifyPaymentSuccess(context.Background(), "user@example.com", 9900, "Pro", ""); err != nil {
		t.Fatalf("NotifyPaymentSuccess() error = %v", err)
	}

	if len(requests) != 1 {
		t.Fatalf("sendgrid received %d requests, want 1", len(requests))
	}
	if !strings.Contains(requests[0].Content[0].Value, "$99.00") {
		t.Error("receipt body missing formatted dollar amount")
	}
}

func TestSendBatchContinuesPastFailures(t *testing.T) {
	t.Parallel()

	var requests []sendGridRequest
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		body, _ := io.ReadAll(r.Body)
		var req sendGridRequest
		_ = json.Unmarshal(body, &req)
		requests = append(requests, req)

		// Second recipient fails.
		if hits == 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	svc := NewEmailService("sg-key", "", nil, nil)
	svc.baseURL = server.URL

	recipients := []string{"a@example.com", "b@example.com", "c@example.com"}
	err := svc.SendBatch(context.Background(), recipients, "Update", "<p>news</p>")
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("SendBatch() error = %v, want ErrDeliveryFailed from failed recipient", err)
	}
	if len(requests) != 3 {
		t.Errorf("sendgrid received %d requests, want all 3 despite mid-batch failure", len(requests))
	}
}

func TestTemplateRenderAllTemplates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		template EmailTemplate
		data     any
		contains string
	}{
		{TemplateScanComplete, ScanCompleteData{Target: "t", FindingsCount: 1}, "Scan Complete"},
		{TemplateCriticalFinding, CriticalFindingData{Title: "x", Severity: "CRITICAL"}, "CRITICAL Security Finding"},
		{TemplatePaymentSuccess, map[string]string{"Amount": "99.00"}, "Payment Received"},
		{TemplatePaymentFailed, map[string]string{"Reason": "declined"}, "declined"},
		{TemplateTrialEnding, map[string]any{"DaysRemaining": 3}, "3 days"},
		{TemplateTrialExpired, map[string]string{"UpgradeURL": "#"}, "Trial Has Expired"},
	}

	for _, tt := range tests {
		t.Run(string(tt.template), func(t *testing.T) {
			t.Parallel()

			html, err := tt.template.Render(tt.data)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if !strings.Contains(html, tt.contains) {
				t.Errorf("rendered %s missing %q", tt.template, tt.contains)
			}
		})
	}
}
