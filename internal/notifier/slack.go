package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// SlackNotifier posts formatted messages to a Slack incoming webhook.
// A notifier with an empty webhook URL is valid and drops messages with
// a warning, so callers never need to branch on configuration.
type SlackNotifier struct {
	webhookURL string
	client     *resty.Client
	logger     *zap.Logger
}

func NewSlackNotifier(webhookURL string, client *resty.Client, logger *zap.Logger) *SlackNotifier {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(defaultNotifyTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}
	if webhookURL == "" {
		logger.Warn("slack webhook url not configured, slack notifications disabled")
	}

	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     client,
		logger:     logger,
	}
}

// SendMessage posts text with optional Block Kit blocks.
func (n *SlackNotifier) SendMessage(ctx context.Context, text string, blocks []map[string]any) error {
	if n.webhookURL == "" {
		n.logger.Warn("dropping slack message, webhook url not configured")
		return nil
	}

	payload := map[string]any{"text": text}
	if len(blocks) > 0 {
		payload["blocks"] = blocks
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to send slack message: %w", err)
	}
	if response.StatusCode() != http.StatusOK {
		return fmt.Errorf("slack api returned status %d", response.StatusCode())
	}

	n.logger.Info("slack message sent")
	return nil
}

// NotifyScanComplete posts a scan summary with severity-based styling.
func (n *SlackNotifier) NotifyScanComplete(ctx context.Context, scan ScanSummary) error {
	emoji := ":white_check_mark:"
	if scan.CriticalCount > 0 {
		emoji = ":rotating_light:"
	} else if scan.FindingsCount > 0 {
		emoji = ":warning:"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("%s Scan Complete: %s", emoji, scan.Target),
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Total Findings:*\n%d", scan.FindingsCount)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Critical:*\n%d", scan.CriticalCount)},
			},
		},
	}

	if scan.ReportURL != "" {
		style := "default"
		if scan.CriticalCount > 0 {
			style = "primary"
		}
		blocks = append(blocks, map[string]any{
			"type": "actions",
			"elements": []map[string]any{
				{
					"type":  "button",
					"text":  map[string]any{"type": "plain_text", "text": "View Report"},
					"url":   scan.ReportURL,
					"style": style,
				},
			},
		})
	}

	text := fmt.Sprintf("Scan complete for %s: %d findings (%d critical)",
		scan.Target, scan.FindingsCount, scan.CriticalCount)
	return n.SendMessage(ctx, text, blocks)
}

// NotifyCriticalFinding posts an alert for a single critical finding.
func (n *SlackNotifier) NotifyCriticalFinding(ctx context.Context, finding Finding) error {
	title := finding.Title
	if title == "" {
		title = "Unknown Vulnerability"
	}
	url := finding.URL
	if url == "" {
		url = "N/A"
	}

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf(":rotating_light: CRITICAL: %s", title),
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:*\n%s", strings.ToUpper(finding.Severity))},
				{"type": "mrkdwn", "text": fmt.Sprintf("*CVSS Score:*\n%.1f", finding.CVSSScore)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*URL:*\n%s", url)},
			},
		},
	}

	text := fmt.Sprintf("CRITICAL: %s (CVSS %.1f)", title, finding.CVSSScore)
	return n.SendMessage(ctx, text, blocks)
}
