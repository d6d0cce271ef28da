package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	discordColorRed    = 0xFF0000
	discordColorOrange = 0xFFA500
	discordColorGreen  = 0x00FF00
)

// DiscordEmbedField is one name/value pair inside an embed.
type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// DiscordNotifier posts embeds to a Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *resty.Client
	logger     *zap.Logger
	now        func() time.Time
}

func NewDiscordNotifier(webhookURL string, client *resty.Client, logger *zap.Logger) *DiscordNotifier {
	if client == nil {
		client = resty.New()
	}
	client.SetTimeout(defaultNotifyTimeout)
	if logger == nil {
		logger = zap.NewNop()
	}
	if webhookURL == "" {
		logger.Warn("discord webhook url not configured, discord notifications disabled")
	}

	return &DiscordNotifier{
		webhookURL: webhookURL,
		client:     client,
		logger:     logger,
		now:        time.Now,
	}
}

// SendEmbed posts a single embed. Discord answers 204 on the webhook
// path but 200 when ?wait=true is used; both count as delivered.
func (n *DiscordNotifier) SendEmbed(ctx context.Context, title, description string, color int, fields []DiscordEmbedField) error {
	if n.webhookURL == "" {
		n.logger.Warn("dropping discord message, webhook url not configured")
		return nil
	}

	embed := map[string]any{
		"title":       title,
		"description": description,
		"color":       color,
		"timestamp":   n.now().UTC().Format(time.RFC3339),
	}
	if len(fields) > 0 {
		embed["fields"] = fields
	}

	response, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{"embeds": []map[string]any{embed}}).
		Post(n.webhookURL)
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	if response.StatusCode() != http.StatusOK && response.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("discord api returned status %d", response.StatusCode())
	}

	n.logger.Info("discord message sent")
	return nil
}

// NotifyScanComplete posts a scan summary embed colored by severity.
func (n *DiscordNotifier) NotifyScanComplete(ctx context.Context, scan ScanSummary) error {
	color := discordColorGreen
	if scan.CriticalCount > 0 {
		color = discordColorRed
	} else if scan.FindingsCount > 0 {
		color = discordColorOrange
	}

	fields := []DiscordEmbedField{
		{Name: "Target", Value: scan.Target, Inline: true},
		{Name: "Findings", Value: fmt.Sprintf("%d", scan.FindingsCount), Inline: true},
		{Name: "Critical", Value: fmt.Sprintf("%d", scan.CriticalCount), Inline: true},
	}

	return n.SendEmbed(ctx,
		"Scan Complete",
		fmt.Sprintf("Security scan finished for **%s**", scan.Target),
		color,
		fields,
	)
}
