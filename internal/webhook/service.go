package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cyperhq/integration-engine/internal/domain"
	"github.com/cyperhq/integration-engine/internal/observability"
	"github.com/cyperhq/integration-engine/internal/ratelimit"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	userAgent       = "CyperSecurity-Webhook/1.0"
	headerSignature = "X-Webhook-Signature"
	headerEventType = "X-Event-Type"
)

// Service owns the endpoint registry and the delivery log, and fans
// platform events out to subscribed endpoints with signed envelopes and
// exponential-backoff retry.
type Service struct {
	registry Registry
	log      DeliveryLog
	client   *resty.Client
	limiter  ratelimit.RateLimiter
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewService(registry Registry, log DeliveryLog, client *resty.Client, logger *zap.Logger) (*Service, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if log == nil {
		return nil, fmt.Errorf("delivery log is required")
	}
	if client == nil {
		client = resty.New()
	}
	// Retries are handled by the delivery loop, never by the client.
	client.SetRetryCount(0)
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		registry: registry,
		log:      log,
		client:   client,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepWithContext,
	}, nil
}

func (s *Service) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *Service) SetRateLimiter(limiter ratelimit.RateLimiter) {
	if s == nil {
		return
	}
	s.limiter = limiter
}

// Register adds a webhook endpoint. The secret is stored for signing and
// never logged.
func (s *Service) Register(
	ctx context.Context,
	url string,
	events []domain.EventKind,
	secret string,
) (*domain.Endpoint, error) {
	endpoint, err := s.registry.Register(ctx, url, events, secret)
	if err != nil {
		return nil, err
	}

	observability.RequestLogger(s.logger, ctx).Info("webhook endpoint registered",
		zap.String("endpointId", endpoint.ID),
		zap.Int("events", len(endpoint.Events)),
	)
	return endpoint, nil
}

func (s *Service) Unregister(ctx context.Context, endpointID string) (bool, error) {
	removed, err := s.registry.Unregister(ctx, endpointID)
	if err != nil {
		return false, err
	}
	if removed {
		observability.RequestLogger(s.logger, ctx).Info("webhook endpoint unregistered",
			zap.String("endpointId", endpointID))
	}
	return removed, nil
}

func (s *Service) Get(ctx context.Context, endpointID string) (*domain.Endpoint, error) {
	return s.registry.Get(ctx, endpointID)
}

func (s *Service) List(ctx context.Context) ([]domain.Endpoint, error) {
	return s.registry.List(ctx)
}

// DeliveryLogs returns the most recent attempts newest-first, optionally
// filtered by endpoint id.
func (s *Service) DeliveryLogs(ctx context.Context, endpointID string, limit int) ([]domain.DeliveryAttempt, error) {
	return s.log.Query(ctx, endpointID, limit)
}

// Send fans the event out to every enabled endpoint subscribed to kind
// and returns once all deliveries have reached a terminal state. Delivery
// failures never propagate to the caller; they are observable only via
// the delivery log.
func (s *Service) Send(ctx context.Context, kind domain.EventKind, payload domain.Payload) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !kind.IsValid() {
		return fmt.Errorf("%w: invalid event kind %q", domain.ErrValidation, kind)
	}

	endpoints, err := s.registry.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list endpoints: %w", err)
	}

	subscribed := make([]domain.Endpoint, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if endpoint.Enabled && endpoint.Subscribes(kind) {
			subscribed = append(subscribed, endpoint)
		}
	}

	logger := observability.RequestLogger(s.logger, ctx)
	if len(subscribed) == 0 {
		logger.Debug("no webhooks registered for event", zap.String("event", kind.String()))
		return nil
	}

	logger.Info("sending event to webhook endpoints",
		zap.String("event", kind.String()),
		zap.Int("endpoints", len(subscribed)),
	)

	var g errgroup.Group
	for i := range subscribed {
		endpoint := subscribed[i]
		g.Go(func() error {
			s.deliver(ctx, endpoint, kind, payload)
			return nil
		})
	}

	return g.Wait()
}

// deliver performs up to endpoint.RetryCount sequential attempts,
// recording every attempt and sleeping 2^attempt seconds between
// failures. Exhaustion is terminal but silent.
func (s *Service) deliver(ctx context.Context, endpoint domain.Endpoint, kind domain.EventKind, payload domain.Payload) {
	envelope := map[string]any{
		"event":     kind.String(),
		"timestamp": float64(s.now().UnixNano()) / float64(time.Second),
		"data":      payload,
	}

	body, err := CanonicalJSON(envelope)
	if err != nil {
		s.logger.Error("failed to serialize webhook envelope",
			zap.String("endpointId", endpoint.ID),
			zap.String("event", kind.String()),
			zap.Error(err),
		)
		return
	}
	signature := signBytes(endpoint.Secret, body)

	for attempt := 1; attempt <= endpoint.RetryCount; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx, endpoint.ID); err != nil {
				s.logger.Warn("rate limiter wait aborted",
					zap.String("endpointId", endpoint.ID),
					zap.Error(err),
				)
				return
			}
		}

		start := s.now()
		statusCode, postErr := s.post(ctx, endpoint, kind, body, signature)
		if s.metrics != nil {
			s.metrics.ObserveWebhookDeliveryDuration(kind.String(), s.now().Sub(start))
		}

		success := postErr == nil && statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices
		s.recordAttempt(ctx, endpoint.ID, kind, envelope, attempt, statusCode, success, postErr)

		if success {
			s.logger.Info("webhook delivered",
				zap.String("endpointId", endpoint.ID),
				zap.String("event", kind.String()),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", endpoint.RetryCount),
			)
			if s.metrics != nil {
				s.metrics.IncWebhookDelivered(kind.String())
			}
			return
		}

		if postErr != nil {
			s.logger.Warn("webhook attempt failed",
				zap.String("endpointId", endpoint.ID),
				zap.String("event", kind.String()),
				zap.Int("attempt", attempt),
				zap.Error(postErr),
			)
		} else {
			s.logger.Warn("webhook rejected by endpoint",
				zap.String("endpointId", endpoint.ID),
				zap.String("event", kind.String()),
				zap.Int("attempt", attempt),
				zap.Int("status", statusCode),
			)
		}

		if attempt < endpoint.RetryCount {
			if s.metrics != nil {
				s.metrics.IncWebhookRetryScheduled(kind.String())
			}
			// Backoff is 2^attempt seconds: 2s, 4s, 8s, ...
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if err := s.sleep(ctx, backoff); err != nil {
				s.logger.Warn("webhook retry backoff aborted",
					zap.String("endpointId", endpoint.ID),
					zap.Error(err),
				)
				return
			}
		}
	}

	s.logger.Error("webhook delivery failed after all attempts",
		zap.String("endpointId", endpoint.ID),
		zap.String("event", kind.String()),
		zap.Int("attempts", endpoint.RetryCount),
	)
	if s.metrics != nil {
		s.metrics.IncWebhookFailed(kind.String(), "retry_exhausted")
	}
}

// post performs one signed HTTP attempt with the endpoint's timeout.
func (s *Service) post(ctx context.Context, endpoint domain.Endpoint, kind domain.EventKind, body []byte, signature string) (int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, endpoint.Timeout)
	defer cancel()

	response, err := s.client.R().
		SetContext(attemptCtx).
		SetHeader("Content-Type", "application/json").
		SetHeader(headerSignature, signature).
		SetHeader(headerEventType, kind.String()).
		SetHeader("User-Agent", userAgent).
		SetBody(body).
		Post(endpoint.URL)
	if err != nil {
		return 0, err
	}
	if response == nil {
		return 0, fmt.Errorf("endpoint returned empty response")
	}

	return response.StatusCode(), nil
}

func (s *Service) recordAttempt(
	ctx context.Context,
	endpointID string,
	kind domain.EventKind,
	envelope map[string]any,
	attempt int,
	statusCode int,
	success bool,
	postErr error,
) {
	var code *int
	if postErr == nil && statusCode > 0 {
		value := statusCode
		code = &value
	}

	var errMsg *string
	if postErr != nil {
		value := postErr.Error()
		errMsg = &value
	}

	record := &domain.DeliveryAttempt{
		ID:         uuid.NewString(),
		EndpointID: endpointID,
		EventKind:  kind,
		Payload:    domain.Payload(envelope),
		StatusCode: code,
		Success:    success,
		Attempt:    attempt,
		Error:      errMsg,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.log.Record(ctx, record); err != nil {
		s.logger.Error("failed to record delivery attempt",
			zap.String("endpointId", endpointID),
			zap.Error(err),
		)
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
