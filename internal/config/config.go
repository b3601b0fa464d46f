package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	SMTPHost      string `env:"SMTP_HOST,required=true"`
	SMTPPort      int    `env:"SMTP_PORT,default=587"`
	SMTPUsername  string `env:"SMTP_USERNAME"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	EmailFrom     string `env:"EMAIL_FROM,required=true"`
	EmailFromName string `env:"EMAIL_FROM_NAME,default=TalentGrid"`

	PushGatewayURL string `env:"PUSH_GATEWAY_URL,required=true"`

	RateLimitPerSec     int `env:"RATE_LIMIT_PER_SEC,default=100"`
	DeliveryConcurrency int `env:"DELIVERY_CONCURRENCY,default=16"`
	QueueCapacity       int `env:"QUEUE_CAPACITY,default=1024"`

	ReminderWindowHours int `env:"REMINDER_WINDOW_HOURS,default=24"`

	APIPort  int    `env:"API_PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
