package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/audit"
	"github.com/betacomagency/shopee-ads-scheduler/internal/creds"
	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/metrics"
)

// Processor runs all due schedules of one shop strictly sequentially,
// pacing calls with an adaptive delay: doubled (up to a ceiling) when the
// shop hits the upstream rate limit, shrunk by one step (down to a floor) on
// success. A fatal auth/whitelist error marks the offending schedule and all
// remaining ones as skipped: further calls for the shop are certain to fail
// the same way.
type Processor struct {
	provider *creds.Provider
	executor *Executor
	audit    *audit.Recorder
	logger   *slog.Logger

	delayFloor time.Duration
	delayCeil  time.Duration
	delayStep  time.Duration

	sleep func(time.Duration)
}

func NewProcessor(provider *creds.Provider, executor *Executor, recorder *audit.Recorder, logger *slog.Logger, delayFloor, delayCeil time.Duration) *Processor {
	return &Processor{
		provider:   provider,
		executor:   executor,
		audit:      recorder,
		logger:     logger.With("component", "processor"),
		delayFloor: delayFloor,
		delayCeil:  delayCeil,
		delayStep:  delayFloor,
		sleep:      time.Sleep,
	}
}

// ProcessShop executes the shop's due schedules and returns one result per
// schedule, the adaptive delay to carry forward, and the failure count.
func (p *Processor) ProcessShop(ctx context.Context, runID string, shopID int64, due []*domain.BudgetSchedule, delay time.Duration) ([]domain.ExecutionResult, time.Duration, int) {
	results := make([]domain.ExecutionResult, 0, len(due))

	credentials, ok := p.provider.Resolve(ctx, shopID)
	if !ok {
		p.logger.Warn("no usable credentials, skipping shop", "shop_id", shopID, "schedules", len(due))
		for _, s := range due {
			results = append(results, p.skip(runID, s, domain.SkipInvalidCredentials))
		}
		return results, delay, 0
	}

	errorCount := 0
	for i, s := range due {
		if i > 0 && delay > 0 {
			p.sleep(delay)
		}

		result, cls := p.executor.Execute(ctx, credentials, s)

		if cls.FatalForShop() {
			reason := domain.SkipAuthError
			if cls.WhitelistError {
				reason = domain.SkipIPWhitelist
			}
			// The schedule that hit the fatal error is itself a skip, not a
			// failure: nothing shop-specific was wrong with it. Its friendly
			// error stays on the result.
			result.Outcome = domain.OutcomeSkipped
			result.SkipReason = reason
			results = append(results, result)
			p.audit.Record(runID, result)
			metrics.SchedulesProcessedTotal.WithLabelValues(string(domain.OutcomeSkipped)).Inc()

			p.logger.Warn("fatal error, skipping remaining schedules for shop",
				"shop_id", shopID,
				"reason", reason,
				"remaining", len(due)-i-1,
			)
			for _, rest := range due[i+1:] {
				results = append(results, p.skip(runID, rest, reason))
			}
			break
		}

		results = append(results, result)
		p.audit.Record(runID, result)
		metrics.SchedulesProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()

		switch {
		case result.Outcome == domain.OutcomeSuccess:
			delay = max(delay-p.delayStep, p.delayFloor)
		case cls.RateLimited:
			delay = min(delay*2, p.delayCeil)
			errorCount++
		default:
			errorCount++
		}
	}

	return results, delay, errorCount
}

func (p *Processor) skip(runID string, s *domain.BudgetSchedule, reason domain.SkipReason) domain.ExecutionResult {
	result := skippedResult(s, reason)
	p.audit.Record(runID, result)
	metrics.SchedulesProcessedTotal.WithLabelValues(string(domain.OutcomeSkipped)).Inc()
	return result
}

func skippedResult(s *domain.BudgetSchedule, reason domain.SkipReason) domain.ExecutionResult {
	return domain.ExecutionResult{
		ScheduleID: s.ID,
		ShopID:     s.ShopID,
		CampaignID: s.CampaignID,
		Budget:     s.Budget,
		Outcome:    domain.OutcomeSkipped,
		SkipReason: reason,
		FinishedAt: time.Now(),
	}
}
