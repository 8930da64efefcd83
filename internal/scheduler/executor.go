package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/metrics"
	"github.com/betacomagency/shopee-ads-scheduler/internal/shopee"
)

// BudgetClient is what the executor needs from the signed API client.
type BudgetClient interface {
	SetBudget(ctx context.Context, creds *domain.ShopCredentials, campaignID int64, kind domain.CampaignKind, budget int64) error
}

type Executor struct {
	client     BudgetClient
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	sleep      func(time.Duration)
}

func NewExecutor(client BudgetClient, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Executor {
	return &Executor{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger.With("component", "executor"),
		sleep:      time.Sleep,
	}
}

// Execute applies one schedule against the upstream API, retrying retryable
// failures up to the ceiling with exponential backoff (doubled again when
// rate-limited). Transport timeouts share the same ceiling as application
// errors. The returned classification is the zero value on success.
func (e *Executor) Execute(ctx context.Context, credentials *domain.ShopCredentials, s *domain.BudgetSchedule) (domain.ExecutionResult, shopee.Classification) {
	result := domain.ExecutionResult{
		ScheduleID: s.ID,
		ShopID:     s.ShopID,
		CampaignID: s.CampaignID,
		Budget:     s.Budget,
	}

	for attempt := 0; ; attempt++ {
		start := time.Now()
		err := e.client.SetBudget(ctx, credentials, s.CampaignID, s.CampaignKind, s.Budget)
		if err == nil {
			metrics.APICallDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
			result.Outcome = domain.OutcomeSuccess
			result.Retries = attempt
			result.FinishedAt = time.Now()
			return result, shopee.Classification{}
		}
		metrics.APICallDuration.WithLabelValues("failure").Observe(time.Since(start).Seconds())

		cls := shopee.ClassifyError(err)
		if cls.RateLimited {
			metrics.RateLimitHitsTotal.Inc()
		}

		if !cls.Retryable || attempt >= e.maxRetries {
			result.Outcome = domain.OutcomeFailure
			result.Error = cls.Friendly
			result.Retries = attempt
			result.FinishedAt = time.Now()
			return result, cls
		}

		delay := e.baseDelay << attempt
		if cls.RateLimited {
			delay *= 2
		}
		metrics.RetriesTotal.Inc()
		e.logger.Warn("retrying budget edit",
			"schedule_id", s.ID,
			"shop_id", s.ShopID,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		e.sleep(delay)
	}
}
