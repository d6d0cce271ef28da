package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	RabbitMQURL       string `env:"RABBITMQ_URL,required=true"`
	DatabaseDSN       string `env:"DATABASE_DSN"`
	RedisURL          string `env:"REDIS_URL"`
	RateLimitPerSec   int    `env:"RATE_LIMIT_PER_SEC,default=100"`
	WorkerConcurrency int    `env:"WORKER_CONCURRENCY,default=8"`
	APIPort           int    `env:"API_PORT,default=8080"`
	LogLevel          string `env:"LOG_LEVEL,default=info"`

	SlackWebhookURL     string `env:"SLACK_WEBHOOK_URL"`
	DiscordWebhookURL   string `env:"DISCORD_WEBHOOK_URL"`
	PagerDutyRoutingKey string `env:"PAGERDUTY_ROUTING_KEY"`
	SendGridAPIKey      string `env:"SENDGRID_API_KEY"`
	FromEmail           string `env:"FROM_EMAIL,default=noreply@cypersecurity.com"`
	AnalyticsEnabled    bool   `env:"ANALYTICS_ENABLED,default=true"`
}

// Load reads configuration from the environment. DATABASE_DSN and
// REDIS_URL are optional: without them the engine runs with in-memory
// storage and no delivery rate limiting.
func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
