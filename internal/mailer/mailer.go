// Package mailer delivers transactional email through the SendGrid v3
// API. Without an API key it runs in log-only mode so development and
// tests never reach the network.
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	sendGridBaseURL    = "https://api.sendgrid.com"
	sendGridMailPath   = "/v3/mail/send"
	defaultMailTimeout = 10 * time.Second
)

// ErrDeliveryFailed wraps transport and API errors from the provider.
var ErrDeliveryFailed = fmt.Errorf("email delivery failed")

// EmailService sends transactional mail for the platform.
type EmailService struct {
	apiKey    string
	fromEmail string
	baseURL   string
	client    *resty.Client
	logger    *zap.Logger
}

func NewEmailService(apiKey, fromEmail string, client *resty.Client, logger *zap.Logger) *EmailService {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(defaultMailTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}
	if fromEmail == "" {
		fromEmail = "noreply@cypersecurity.com"
	}
	if apiKey == "" {
		logger.Warn("sendgrid not configured, emails will be logged only")
	}

	return &EmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		baseURL:   sendGridBaseURL,
		client:    client,
		logger:    logger,
	}
}

// SendEmail delivers one HTML email. In log-only mode it records the
// send and returns nil.
func (s *EmailService) SendEmail(ctx context.Context, to, subject, htmlContent string) error {
	if to == "" {
		return fmt.Errorf("%w: recipient is required", ErrDeliveryFailed)
	}

	if s.apiKey == "" {
		s.logger.Info("email (log-only mode)",
			zap.String("to", to),
			zap.String("subject", subject),
		)
		return nil
	}

	payload := map[string]any{
		"personalizations": []map[string]any{
			{"to": []map[string]string{{"email": to}}},
		},
		"from":    map[string]string{"email": s.fromEmail},
		"subject": subject,
		"content": []map[string]string{
			{"type": "text/html", "value": htmlContent},
		},
	}

	response, err := s.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+s.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(s.baseURL + sendGridMailPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	if response.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: sendgrid returned status %d", ErrDeliveryFailed, response.StatusCode())
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// SendBatch delivers to every recipient, continuing past individual
// failures. The last failure is returned.
func (s *EmailService) SendBatch(ctx context.Context, recipients []string, subject, htmlContent string) error {
	var lastErr error
	for _, recipient := range recipients {
		if err := s.SendEmail(ctx, recipient, subject, htmlContent); err != nil {
			s.logger.Error("batch email failed",
				zap.String("to", recipient),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	return lastErr
}

// ScanCompleteData feeds the scan_complete template.
type ScanCompleteData struct {
	Target         string
	FindingsCount  int
	CriticalCount  int
	ScanURL        string
	UnsubscribeURL string
}

func (s *EmailService) NotifyScanComplete(ctx context.Context, userEmail string, data ScanCompleteData) error {
	if data.UnsubscribeURL == "" {
		data.UnsubscribeURL = unsubscribeURL(userEmail, "scan_notifications")
	}

	html, err := TemplateScanComplete.Render(data)
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, userEmail, fmt.Sprintf("Scan Complete: %s", data.Target), html)
}

// CriticalFindingData feeds the critical_finding template.
type CriticalFindingData struct {
	Title          string
	Severity       string
	CVSSScore      float64
	Target         string
	Recommendation string
	FindingURL     string
}

// NotifyCriticalFinding emails only critical-severity findings; others
// are dropped silently.
func (s *EmailService) NotifyCriticalFinding(ctx context.Context, userEmail string, finding CriticalFindingData) error {
	if !strings.EqualFold(finding.Severity, "critical") {
		return nil
	}
	if finding.Recommendation == "" {
		finding.Recommendation = "Review the finding details"
	}
	finding.Severity = strings.ToUpper(finding.Severity)

	html, err := TemplateCriticalFinding.Render(finding)
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, userEmail, fmt.Sprintf("CRITICAL: %s", finding.Title), html)
}

// NotifyPaymentSuccess emails a receipt. amountCents is the charge in
// cents as reported by billing.
func (s *EmailService) NotifyPaymentSuccess(ctx context.Context, userEmail string, amountCents int, plan, invoiceURL string) error {
	if plan == "" {
		plan = "Pro"
	}

	html, err := TemplatePaymentSuccess.Render(map[string]string{
		"Amount":     fmt.Sprintf("%.2f", float64(amountCents)/100),
		"Plan":       plan,
		"Period":     "Monthly",
		"InvoiceURL": invoiceURL,
	})
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, userEmail, "Payment Received - Thank You!", html)
}

func (s *EmailService) NotifyPaymentFailed(ctx context.Context, userEmail, reason string) error {
	if reason == "" {
		reason = "Card declined"
	}

	html, err := TemplatePaymentFailed.Render(map[string]string{
		"Reason":           reason,
		"UpdatePaymentURL": "https://app.cypersecurity.com/settings/billing",
	})
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, userEmail, "Payment Failed - Action Required", html)
}

func (s *EmailService) NotifyTrialEnding(ctx context.Context, userEmail string, daysRemaining int) error {
	html, err := TemplateTrialEnding.Render(map[string]any{
		"DaysRemaining": daysRemaining,
		"UpgradeURL":    "https://app.cypersecurity.com/upgrade",
	})
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, userEmail, fmt.Sprintf("Your trial ends in %d days", daysRemaining), html)
}

func (s *EmailService) NotifyTrialExpired(ctx context.Context, userEmail string) error {
	html, err := TemplateTrialExpired.Render(map[string]string{
		"UpgradeURL": "https://app.cypersecurity.com/upgrade",
	})
	if err != nil {
		return err
	}
	return s.SendEmail(ctx, userEmail, "Your trial has expired", html)
}

func unsubscribeURL(userEmail, emailType string) string {
	return fmt.Sprintf("https://app.cypersecurity.com/unsubscribe?email=%s&type=%s", userEmail, emailType)
}
