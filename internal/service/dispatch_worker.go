package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/notifier"
	"github.com/cyperhq/integration-engine/internal/observability"
	"github.com/cyperhq/integration-engine/internal/queue"
)

const minWorkerConcurrency = 1

// WebhookSender fans an event out to subscribed endpoints.
type WebhookSender interface {
	Send(ctx context.Context, kind domain.EventKind, payload domain.Payload) error
}

// ScanAlerter posts scan summaries to a team channel.
type ScanAlerter interface {
	NotifyScanComplete(ctx context.Context, scan notifier.ScanSummary) error
}

// CriticalAlerter raises critical-finding alerts.
type CriticalAlerter interface {
	NotifyCriticalFinding(ctx context.Context, finding notifier.Finding) error
}

// BillingMailer sends billing and trial lifecycle email.
type BillingMailer interface {
	NotifyPaymentSuccess(ctx context.Context, userEmail string, amountCents int, plan, invoiceURL string) error
	NotifyPaymentFailed(ctx context.Context, userEmail, reason string) error
	NotifyTrialEnding(ctx context.Context, userEmail string, daysRemaining int) error
}

// DispatchWorker consumes the events queue and performs webhook
// fan-out plus side-channel routing (chat alerts, incident paging,
// billing email). Webhook delivery failure requeues the message; side
// channels are best effort.
type DispatchWorker struct {
	consumer       queue.Consumer
	webhooks       WebhookSender
	scanAlerts     []ScanAlerter
	criticalAlerts []CriticalAlerter
	mailer         BillingMailer
	logger         *zap.Logger
	metrics        *observability.Metrics
	concurrency    int
}

func NewDispatchWorker(
	consumer queue.Consumer,
	webhooks WebhookSender,
	concurrency int,
	logger *zap.Logger,
) (*DispatchWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if webhooks == nil {
		return nil, fmt.Errorf("webhook sender is required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchWorker{
		consumer:    consumer,
		webhooks:    webhooks,
		logger:      logger,
		concurrency: concurrency,
	}, nil
}

func (w *DispatchWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// AddScanAlerter registers a channel for scan.completed summaries.
func (w *DispatchWorker) AddScanAlerter(alerter ScanAlerter) {
	if alerter != nil {
		w.scanAlerts = append(w.scanAlerts, alerter)
	}
}

// AddCriticalAlerter registers a channel for critical.finding alerts.
func (w *DispatchWorker) AddCriticalAlerter(alerter CriticalAlerter) {
	if alerter != nil {
		w.criticalAlerts = append(w.criticalAlerts, alerter)
	}
}

// SetBillingMailer enables billing and trial email routing.
func (w *DispatchWorker) SetBillingMailer(mailer BillingMailer) {
	w.mailer = mailer
}

// Start runs the consumer pool until the context is cancelled.
func (w *DispatchWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("dispatch worker started", zap.Int("workerId", workerID))

			err := w.consumer.Consume(groupCtx, queue.EventsQueue, w.processMessage)
			if err != nil {
				w.logger.Error("dispatch worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("dispatch worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *DispatchWorker) processMessage(ctx context.Context, msg queue.EventMessage) error {
	if w.metrics != nil {
		w.metrics.IncWorkerInFlight(queue.EventsQueue)
		defer w.metrics.DecWorkerInFlight(queue.EventsQueue)
	}

	w.logger.Info("processing event",
		zap.String("eventId", msg.EventID),
		zap.String("event", msg.Kind.String()),
	)

	if err := w.webhooks.Send(ctx, msg.Kind, msg.Payload); err != nil {
		return fmt.Errorf("webhook fan-out failed: %w", err)
	}

	w.routeSideChannels(ctx, msg)
	return nil
}

// routeSideChannels delivers event-specific alerts and email. Failures
// are logged but never fail the message; webhook delivery already
// succeeded.
func (w *DispatchWorker) routeSideChannels(ctx context.Context, msg queue.EventMessage) {
	switch msg.Kind {
	case domain.EventScanCompleted:
		scan := notifier.ScanSummary{
			Target:        payloadString(msg.Payload, "target"),
			FindingsCount: payloadInt(msg.Payload, "findings_count"),
			CriticalCount: payloadInt(msg.Payload, "critical_count"),
			ReportURL:     payloadString(msg.Payload, "report_url"),
		}
		for _, alerter := range w.scanAlerts {
			if err := alerter.NotifyScanComplete(ctx, scan); err != nil {
				w.logger.Error("scan alert failed",
					zap.String("eventId", msg.EventID),
					zap.Error(err),
				)
			}
		}

	case domain.EventCriticalFinding:
		finding := notifier.Finding{
			Title:       payloadString(msg.Payload, "title"),
			Severity:    payloadString(msg.Payload, "severity"),
			CVSSScore:   payloadFloat(msg.Payload, "cvss_score"),
			URL:         payloadString(msg.Payload, "url"),
			Description: payloadString(msg.Payload, "description"),
		}
		if finding.Severity == "" {
			finding.Severity = "critical"
		}
		for _, alerter := range w.criticalAlerts {
			if err := alerter.NotifyCriticalFinding(ctx, finding); err != nil {
				w.logger.Error("critical finding alert failed",
					zap.String("eventId", msg.EventID),
					zap.Error(err),
				)
			}
		}

	case domain.EventPaymentSuccess:
		w.mailBilling(ctx, msg, func(email string) error {
			return w.mailer.NotifyPaymentSuccess(ctx, email,
				payloadInt(msg.Payload, "amount"),
				payloadString(msg.Payload, "plan"),
				payloadString(msg.Payload, "invoice_url"),
			)
		})

	case domain.EventPaymentFailed:
		w.mailBilling(ctx, msg, func(email string) error {
			return w.mailer.NotifyPaymentFailed(ctx, email, payloadString(msg.Payload, "reason"))
		})

	case domain.EventTrialExpiring:
		w.mailBilling(ctx, msg, func(email string) error {
			return w.mailer.NotifyTrialEnding(ctx, email, payloadInt(msg.Payload, "days_remaining"))
		})
	}
}

func (w *DispatchWorker) mailBilling(_ context.Context, msg queue.EventMessage, send func(email string) error) {
	if w.mailer == nil {
		return
	}
	email := payloadString(msg.Payload, "user_email")
	if strings.TrimSpace(email) == "" {
		w.logger.Debug("billing event without user_email, skipping email",
			zap.String("eventId", msg.EventID),
		)
		return
	}
	if err := send(email); err != nil {
		w.logger.Error("billing email failed",
			zap.String("eventId", msg.EventID),
			zap.Error(err),
		)
	}
}

func payloadString(payload domain.Payload, key string) string {
	value, _ := payload[key].(string)
	return value
}

func payloadInt(payload domain.Payload, key string) int {
	switch value := payload[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return 0
}

func payloadFloat(payload domain.Payload, key string) float64 {
	switch value := payload[key].(type) {
	case float64:
		return value
	case int:
		return float64(value)
	}
	return 0
}
