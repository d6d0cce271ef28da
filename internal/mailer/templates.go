package mailer

import (
	"bytes"
	"fmt"
	"html/template"
)

// EmailTemplate identifies one of the transactional email bodies.
type EmailTemplate string

const (
	TemplateScanComplete    EmailTemplate = "scan_complete"
	TemplateCriticalFinding EmailTemplate = "critical_finding"
	TemplatePaymentSuccess  EmailTemplate = "payment_success"
	TemplatePaymentFailed   EmailTemplate = "payment_failed"
	TemplateTrialEnding     EmailTemplate = "trial_ending"
	TemplateTrialExpired    EmailTemplate = "trial_expired"
)

var emailTemplates = template.Must(template.New("emails").Parse(`
{{define "scan_complete"}}<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Scan Complete: {{.Target}}</h2>
  <p>Your security scan has finished.</p>
  <div style="background: #f5f5f5; padding: 15px; margin: 20px 0;">
    <strong>Findings:</strong> {{.FindingsCount}}<br>
    {{if .CriticalCount}}<span style="color: #d32f2f;"><strong>Critical:</strong> {{.CriticalCount}}</span><br>{{end}}
  </div>
  <p><a href="{{.ScanURL}}" style="background: #2196F3; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">View Report</a></p>
  <p style="color: #666; font-size: 12px; margin-top: 40px;">
    <a href="{{.UnsubscribeURL}}">Unsubscribe</a> from scan notifications
  </p>
</body>
</html>{{end}}

{{define "critical_finding"}}<html>
<body style="font-family: Arial, sans-serif;">
  <div style="background: #d32f2f; color: white; padding: 15px;">
    <h2 style="margin: 0;">CRITICAL Security Finding Detected</h2>
  </div>
  <div style="padding: 20px;">
    <h3>{{.Title}}</h3>
    <p><strong>Severity:</strong> <span style="color: #d32f2f;">{{.Severity}}</span></p>
    <p><strong>CVSS Score:</strong> {{.CVSSScore}}/10</p>
    <p><strong>Affected Target:</strong> {{.Target}}</p>
    <div style="background: #fff3cd; padding: 15px; margin: 20px 0;">
      <strong>Recommendation:</strong><br>
      {{.Recommendation}}
    </div>
    <p><a href="{{.FindingURL}}" style="background: #d32f2f; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">View Details</a></p>
  </div>
</body>
</html>{{end}}

{{define "payment_success"}}<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Payment Received - Thank You!</h2>
  <p>Your payment has been processed successfully.</p>
  <div style="background: #f5f5f5; padding: 15px; margin: 20px 0;">
    <strong>Amount:</strong> ${{.Amount}}<br>
    <strong>Plan:</strong> {{.Plan}}<br>
    <strong>Period:</strong> {{.Period}}
  </div>
  <p><a href="{{.InvoiceURL}}">Download Invoice</a></p>
</body>
</html>{{end}}

{{define "payment_failed"}}<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Payment Failed - Action Required</h2>
  <p>We were unable to process your payment.</p>
  <div style="background: #ffebee; padding: 15px; margin: 20px 0;">
    <strong>Reason:</strong> {{.Reason}}
  </div>
  <p>Please update your payment method to continue using Pro features.</p>
  <p><a href="{{.UpdatePaymentURL}}" style="background: #2196F3; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Update Payment Method</a></p>
</body>
</html>{{end}}

{{define "trial_ending"}}<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Your Trial is Ending Soon</h2>
  <p>You have <strong>{{.DaysRemaining}} days</strong> left in your free trial.</p>
  <p>Upgrade now to continue enjoying Pro features:</p>
  <ul>
    <li>1,000 scans per month</li>
    <li>Advanced reports</li>
    <li>Priority support</li>
  </ul>
  <p><a href="{{.UpgradeURL}}" style="background: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Upgrade to Pro - $99/month</a></p>
</body>
</html>{{end}}

{{define "trial_expired"}}<html>
<body style="font-family: Arial, sans-serif;">
  <h2>Your Trial Has Expired</h2>
  <p>Your free trial has ended. You've been moved to the Free plan.</p>
  <p><strong>Free Plan Limits:</strong></p>
  <ul>
    <li>100 scans per month</li>
    <li>Basic reports</li>
  </ul>
  <p>Upgrade to Pro to unlock more scans and features:</p>
  <p><a href="{{.UpgradeURL}}" style="background: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 4px;">Upgrade Now</a></p>
</body>
</html>{{end}}
`))

// Render produces the HTML body for the template.
func (t EmailTemplate) Render(data any) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, string(t), data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", t, err)
	}
	return buf.String(), nil
}
