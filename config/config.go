package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	// Upstream partner API. EgressProxyURL is optional — when set, all
	// partner calls are routed through it so the upstream sees a stable IP.
	PartnerHost    string `env:"PARTNER_HOST" envDefault:"https://partner.shopeemobile.com" validate:"required,url"`
	EgressProxyURL string `env:"EGRESS_PROXY_URL" validate:"omitempty,url"`
	CallTimeoutSec int    `env:"CALL_TIMEOUT_SEC" envDefault:"15" validate:"min=1,max=120"`

	// The reference timezone schedule windows are expressed in.
	Timezone string `env:"SCHEDULER_TIMEZONE" envDefault:"Asia/Jakarta" validate:"required"`

	// Internal cadence. The service can also be triggered over HTTP by an
	// external cron caller; both fire on the same 30-minute slot grid.
	InternalCron bool   `env:"INTERNAL_CRON" envDefault:"true"`
	CronSpec     string `env:"CRON_SPEC" envDefault:"0,30 * * * *"`

	WaveSize             int     `env:"WAVE_SIZE" envDefault:"3" validate:"min=1,max=20"`
	MaxBatchSize         int     `env:"MAX_BATCH_SIZE" envDefault:"60" validate:"min=1,max=500"`
	RunBudgetSec         int     `env:"RUN_BUDGET_SEC" envDefault:"50" validate:"min=5,max=600"`
	MaxRetries           int     `env:"MAX_RETRIES" envDefault:"3" validate:"min=0,max=10"`
	RetryBaseDelayMs     int     `env:"RETRY_BASE_DELAY_MS" envDefault:"500" validate:"min=1"`
	AdaptiveDelayFloorMs int     `env:"ADAPTIVE_DELAY_FLOOR_MS" envDefault:"200" validate:"min=0"`
	AdaptiveDelayCeilMs  int     `env:"ADAPTIVE_DELAY_CEIL_MS" envDefault:"5000" validate:"min=0"`
	FailureRatio         float64 `env:"FAILURE_RATIO_THRESHOLD" envDefault:"0.5" validate:"min=0,max=1"`
	FailureCooldownSec   int     `env:"FAILURE_COOLDOWN_SEC" envDefault:"5" validate:"min=0,max=120"`

	TriggerJWTSecret string `env:"TRIGGER_JWT_SECRET,required" validate:"required,min=32"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
	AlertEmail   string `env:"ALERT_EMAIL"    validate:"omitempty,email"`
}

func Load() (*Config, error) {
	// Missing .env is fine — real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
