package notifier

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const pagerDutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

// PagerDutyNotifier creates incidents through the Events API v2.
type PagerDutyNotifier struct {
	routingKey string
	apiURL     string
	client     *resty.Client
	logger     *zap.Logger
}

func NewPagerDutyNotifier(routingKey string, client *resty.Client, logger *zap.Logger) *PagerDutyNotifier {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(defaultNotifyTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}
	if routingKey == "" {
		logger.Warn("pagerduty routing key not configured, incident paging disabled")
	}

	return &PagerDutyNotifier{
		routingKey: routingKey,
		apiURL:     pagerDutyEventsURL,
		client:     client,
		logger:     logger,
	}
}

// TriggerIncident enqueues a trigger event. Severity is one of
// critical, error, warning, info.
func (n *PagerDutyNotifier) TriggerIncident(ctx context.Context, summary, severity string, details map[string]any) error {
	if n.routingKey == "" {
		n.logger.Warn("dropping pagerduty incident, routing key not configured")
		return nil
	}

	payload := map[string]any{
		"routing_key":  n.routingKey,
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":        summary,
			"severity":       severity,
			"source":         "CyperSecurity Platform",
			"custom_details": details,
		},
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.apiURL)
	if err != nil {
		return fmt.Errorf("failed to trigger pagerduty incident: %w", err)
	}
	if response.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("pagerduty api returned status %d", response.StatusCode())
	}

	n.logger.Info("pagerduty incident triggered", zap.String("summary", summary))
	return nil
}

// NotifyCriticalFinding pages on a critical vulnerability.
func (n *PagerDutyNotifier) NotifyCriticalFinding(ctx context.Context, finding Finding) error {
	title := finding.Title
	if title == "" {
		title = "Unknown"
	}

	return n.TriggerIncident(ctx,
		fmt.Sprintf("Critical security finding: %s", title),
		"critical",
		map[string]any{
			"vulnerability": finding.Title,
			"cvss_score":    finding.CVSSScore,
			"url":           finding.URL,
			"description":   finding.Description,
		},
	)
}
