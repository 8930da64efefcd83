package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/audit"
	"github.com/betacomagency/shopee-ads-scheduler/internal/creds"
	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/metrics"
	"github.com/betacomagency/shopee-ads-scheduler/internal/repository"
	"github.com/betacomagency/shopee-ads-scheduler/internal/runid"
)

// Notifier is told about finished runs that crossed the failure threshold.
type Notifier interface {
	RunCompleted(ctx context.Context, summary domain.RunSummary)
}

type Config struct {
	WaveSize        int
	RunBudget       time.Duration
	MaxRetries      int
	RetryBaseDelay  time.Duration
	DelayFloor      time.Duration
	DelayCeil       time.Duration
	FailureRatio    float64
	FailureCooldown time.Duration
}

// Orchestrator drives one scheduler run: select due schedules, group them by
// shop, process shops in concurrency-limited waves, and aggregate results.
// The adaptive delay observed in one wave seeds the next, so one struggling
// shop slows the whole fleet's pacing rather than just its own.
type Orchestrator struct {
	schedules   repository.ScheduleRepository
	credentials repository.CredentialRepository
	client      BudgetClient
	matcher     *Matcher
	recorder    *audit.Recorder
	notifier    Notifier // optional
	logger      *slog.Logger
	cfg         Config

	sleep func(time.Duration)
}

func NewOrchestrator(
	schedules repository.ScheduleRepository,
	credentials repository.CredentialRepository,
	client BudgetClient,
	matcher *Matcher,
	recorder *audit.Recorder,
	notifier Notifier,
	logger *slog.Logger,
	cfg Config,
) *Orchestrator {
	return &Orchestrator{
		schedules:   schedules,
		credentials: credentials,
		client:      client,
		matcher:     matcher,
		recorder:    recorder,
		notifier:    notifier,
		logger:      logger.With("component", "orchestrator"),
		cfg:         cfg,
		sleep:       time.Sleep,
	}
}

// RunOnce executes one full scheduler pass for the slot containing now.
// It never returns an error: partial and total failures are reported inside
// the summary, with Error set only for catastrophic conditions.
func (o *Orchestrator) RunOnce(ctx context.Context, now time.Time) domain.RunSummary {
	start := time.Now()
	summary := domain.RunSummary{
		RunID:   runid.New(),
		Results: []domain.ExecutionResult{},
	}
	ctx = runid.WithRunID(ctx, summary.RunID)

	metrics.RunsTotal.Inc()
	o.logger.InfoContext(ctx, "run started", "now", now)

	all, err := o.schedules.ListActive(ctx)
	if err != nil {
		summary.Error = fmt.Sprintf("schedule store unreachable: %v", err)
		o.logger.ErrorContext(ctx, "list active schedules", "error", err)
		o.finish(ctx, &summary, start)
		return summary
	}

	due := o.matcher.SelectDue(now, all)
	if len(due) == 0 {
		o.logger.InfoContext(ctx, "no due schedules", "active", len(all))
		o.finish(ctx, &summary, start)
		return summary
	}

	// Group by shop, preserving first-occurrence order.
	var order []int64
	byShop := make(map[int64][]*domain.BudgetSchedule)
	for _, s := range due {
		if _, ok := byShop[s.ShopID]; !ok {
			order = append(order, s.ShopID)
		}
		byShop[s.ShopID] = append(byShop[s.ShopID], s)
	}
	o.logger.InfoContext(ctx, "due schedules selected", "schedules", len(due), "shops", len(order))

	// The credential cache is run-scoped: a fresh provider per invocation.
	provider := creds.NewProvider(o.credentials, o.logger)
	executor := NewExecutor(o.client, o.cfg.MaxRetries, o.cfg.RetryBaseDelay, o.logger)
	processor := NewProcessor(provider, executor, o.recorder, o.logger, o.cfg.DelayFloor, o.cfg.DelayCeil)

	delay := o.cfg.DelayFloor
	failed := 0
	deadline := start.Add(o.cfg.RunBudget)

	for waveStart := 0; waveStart < len(order); waveStart += o.cfg.WaveSize {
		// The budget is cooperative: an in-flight wave finishes, then shops
		// that never started are skipped without any API calls.
		if time.Now().After(deadline) {
			remaining := order[waveStart:]
			o.logger.WarnContext(ctx, "run budget exceeded, skipping remaining shops", "shops", len(remaining))
			for _, shopID := range remaining {
				for _, s := range byShop[shopID] {
					r := skippedResult(s, domain.SkipBatchTimeout)
					o.recorder.Record(summary.RunID, r)
					metrics.SchedulesProcessedTotal.WithLabelValues(string(domain.OutcomeSkipped)).Inc()
					summary.Results = append(summary.Results, r)
				}
			}
			break
		}

		wave := order[waveStart:min(waveStart+o.cfg.WaveSize, len(order))]

		type shopOutcome struct {
			results []domain.ExecutionResult
			delay   time.Duration
			errors  int
		}
		outcomes := make([]shopOutcome, len(wave))

		var wg sync.WaitGroup
		for i, shopID := range wave {
			wg.Add(1)
			go func(i int, shopID int64) {
				defer wg.Done()
				metrics.ShopsInFlight.Inc()
				defer metrics.ShopsInFlight.Dec()
				results, newDelay, errs := processor.ProcessShop(ctx, summary.RunID, shopID, byShop[shopID], delay)
				outcomes[i] = shopOutcome{results: results, delay: newDelay, errors: errs}
			}(i, shopID)
		}
		wg.Wait()

		// The next wave starts at the largest delay any shop in this wave
		// ended with. A shop skipped before any call returns its input delay,
		// so a mixed wave never resets the fleet below the struggling shops.
		waveDelay := time.Duration(0)
		for _, oc := range outcomes {
			summary.Results = append(summary.Results, oc.results...)
			failed += oc.errors
			waveDelay = max(waveDelay, oc.delay)
		}
		delay = waveDelay
		metrics.AdaptiveDelaySeconds.Set(delay.Seconds())

		if waveStart+o.cfg.WaveSize < len(order) && len(summary.Results) > 0 {
			ratio := float64(failed) / float64(len(summary.Results))
			if ratio > o.cfg.FailureRatio {
				o.logger.WarnContext(ctx, "failure ratio high, cooling down before next wave", "ratio", ratio)
				o.sleep(o.cfg.FailureCooldown)
			}
		}
	}

	o.finish(ctx, &summary, start)
	return summary
}

// RunNow executes a single schedule immediately, bypassing the matcher.
// Used for manual "run now" testing from the dashboard.
func (o *Orchestrator) RunNow(ctx context.Context, scheduleID int64) (domain.ExecutionResult, error) {
	s, err := o.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("get schedule: %w", err)
	}

	runID := runid.New()
	ctx = runid.WithRunID(ctx, runID)

	provider := creds.NewProvider(o.credentials, o.logger)
	credentials, ok := provider.Resolve(ctx, s.ShopID)
	if !ok {
		r := skippedResult(s, domain.SkipInvalidCredentials)
		o.recorder.Record(runID, r)
		return r, nil
	}

	executor := NewExecutor(o.client, o.cfg.MaxRetries, o.cfg.RetryBaseDelay, o.logger)
	result, _ := executor.Execute(ctx, credentials, s)
	o.recorder.Record(runID, result)
	metrics.SchedulesProcessedTotal.WithLabelValues(string(result.Outcome)).Inc()
	return result, nil
}

func (o *Orchestrator) finish(ctx context.Context, summary *domain.RunSummary, start time.Time) {
	summary.Tally()
	summary.DurationMS = time.Since(start).Milliseconds()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	o.recorder.RecordRun(*summary)

	o.logger.InfoContext(ctx, "run finished",
		"processed", summary.Processed,
		"success", summary.Succeeded,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"duration_ms", summary.DurationMS,
	)

	if o.notifier != nil && summary.Processed > 0 &&
		float64(summary.Failed)/float64(summary.Processed) > o.cfg.FailureRatio {
		go o.notifier.RunCompleted(context.WithoutCancel(ctx), *summary)
	}
}
