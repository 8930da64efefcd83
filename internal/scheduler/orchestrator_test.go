package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/audit"
	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/metrics"
	"github.com/betacomagency/shopee-ads-scheduler/internal/shopee"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type scheduleRepoStub struct {
	schedules []*domain.BudgetSchedule
	listErr   error
}

func (r *scheduleRepoStub) Create(_ context.Context, s *domain.BudgetSchedule) (*domain.BudgetSchedule, error) {
	return s, nil
}

func (r *scheduleRepoStub) GetByID(_ context.Context, id int64) (*domain.BudgetSchedule, error) {
	for _, s := range r.schedules {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrScheduleNotFound
}

func (r *scheduleRepoStub) ListByShop(_ context.Context, shopID int64) ([]*domain.BudgetSchedule, error) {
	var out []*domain.BudgetSchedule
	for _, s := range r.schedules {
		if s.ShopID == shopID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *scheduleRepoStub) ListActive(_ context.Context) ([]*domain.BudgetSchedule, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.schedules, nil
}

func (r *scheduleRepoStub) SetActive(_ context.Context, _ int64, _ bool) error { return nil }
func (r *scheduleRepoStub) Delete(_ context.Context, _ int64) error            { return nil }

// dueSchedule builds a schedule whose window contains runMoment.
func dueSchedule(id, shopID int64) *domain.BudgetSchedule {
	return &domain.BudgetSchedule{
		ID: id, ShopID: shopID, CampaignID: 1000 + id,
		CampaignKind: domain.CampaignManual, Budget: 500000,
		HourStart: 9, MinuteStart: 0, HourEnd: 11, MinuteEnd: 0,
		Active: true,
	}
}

var runMoment = time.Date(2025, time.March, 3, 9, 5, 0, 0, time.UTC)

func newTestOrchestrator(t *testing.T, schedules *scheduleRepoStub, creds *credRepoStub, client BudgetClient, cfg Config) (*Orchestrator, *auditRepoStub, *[]time.Duration) {
	t.Helper()
	auditRepo := &auditRepoStub{}
	recorder := audit.NewRecorder(auditRepo, slog.Default())
	t.Cleanup(recorder.Close)

	matcher := NewMatcher(time.UTC, 60)
	o := NewOrchestrator(schedules, creds, client, matcher, recorder, nil, slog.Default(), cfg)
	var sleeps []time.Duration
	o.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }
	return o, auditRepo, &sleeps
}

// Delays stay at zero so the wave workers never actually sleep.
func zeroDelayConfig() Config {
	return Config{
		WaveSize:        3,
		RunBudget:       30 * time.Second,
		MaxRetries:      0,
		RetryBaseDelay:  time.Millisecond,
		DelayFloor:      0,
		DelayCeil:       time.Millisecond,
		FailureRatio:    0.5,
		FailureCooldown: time.Second,
	}
}

func TestRunOnce_AllSucceed(t *testing.T) {
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{
		dueSchedule(1, 10), dueSchedule(2, 10),
		dueSchedule(3, 20), dueSchedule(4, 20),
	}}
	creds := &credRepoStub{creds: map[int64]*domain.ShopCredentials{
		10: {ShopID: 10, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
		20: {ShopID: 20, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
	}}
	client := &scriptedClient{}
	o, _, _ := newTestOrchestrator(t, schedules, creds, client, zeroDelayConfig())

	summary := o.RunOnce(context.Background(), runMoment)

	if summary.Error != "" {
		t.Fatalf("unexpected run error: %s", summary.Error)
	}
	if summary.Processed != 4 || summary.Succeeded != 4 {
		t.Fatalf("expected 4 processed / 4 succeeded, got %+v", summary)
	}
	if summary.Processed != summary.Succeeded+summary.Failed+summary.Skipped {
		t.Fatalf("counts do not add up: %+v", summary)
	}
	if client.calls != 4 {
		t.Fatalf("expected 4 API calls, got %d", client.calls)
	}
	if summary.RunID == "" {
		t.Fatal("expected a run id")
	}
}

func TestRunOnce_MissingCredentialsIsolatedPerShop(t *testing.T) {
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{
		dueSchedule(1, 10), dueSchedule(2, 10),
		dueSchedule(3, 20),
	}}
	creds := &credRepoStub{creds: map[int64]*domain.ShopCredentials{
		20: {ShopID: 20, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
	}}
	client := &scriptedClient{}
	o, _, _ := newTestOrchestrator(t, schedules, creds, client, zeroDelayConfig())

	summary := o.RunOnce(context.Background(), runMoment)

	if summary.Skipped != 2 || summary.Succeeded != 1 {
		t.Fatalf("expected 2 skipped / 1 succeeded, got %+v", summary)
	}
	if client.calls != 1 {
		t.Fatalf("expected 1 API call for the healthy shop, got %d", client.calls)
	}
	for _, r := range summary.Results {
		if r.ShopID == 10 && r.SkipReason != domain.SkipInvalidCredentials {
			t.Fatalf("expected invalid_credentials skip for shop 10, got %+v", r)
		}
	}
}

func TestRunOnce_StoreUnreachable(t *testing.T) {
	schedules := &scheduleRepoStub{listErr: errors.New("connection refused")}
	o, _, _ := newTestOrchestrator(t, schedules, &credRepoStub{}, &scriptedClient{}, zeroDelayConfig())

	summary := o.RunOnce(context.Background(), runMoment)
	if summary.Error == "" {
		t.Fatal("expected a run-level error")
	}
	if summary.Processed != 0 {
		t.Fatalf("expected empty run, got %+v", summary)
	}
}

func TestRunOnce_BudgetExceededSkipsRemainingShops(t *testing.T) {
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{
		dueSchedule(1, 10), dueSchedule(2, 20), dueSchedule(3, 30),
	}}
	client := &scriptedClient{}
	cfg := zeroDelayConfig()
	cfg.RunBudget = -time.Second // already expired when the first wave checks
	o, _, _ := newTestOrchestrator(t, schedules, &credRepoStub{}, client, cfg)

	summary := o.RunOnce(context.Background(), runMoment)

	if client.calls != 0 {
		t.Fatalf("expected zero API calls past the budget, got %d", client.calls)
	}
	if summary.Skipped != 3 || summary.Processed != 3 {
		t.Fatalf("expected every schedule skipped, got %+v", summary)
	}
	for _, r := range summary.Results {
		if r.SkipReason != domain.SkipBatchTimeout {
			t.Fatalf("expected batch_timeout skip, got %+v", r)
		}
	}
}

func TestRunOnce_FailureRatioCoolsDownBetweenWaves(t *testing.T) {
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{
		dueSchedule(1, 10), dueSchedule(2, 20),
	}}
	creds := &credRepoStub{creds: map[int64]*domain.ShopCredentials{
		10: {ShopID: 10, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
		20: {ShopID: 20, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
	}}
	client := &scriptedClient{errs: []error{
		&shopee.APIError{Code: "error_param", Message: "bad budget"},
		&shopee.APIError{Code: "error_param", Message: "bad budget"},
	}}
	cfg := zeroDelayConfig()
	cfg.WaveSize = 1
	o, _, sleeps := newTestOrchestrator(t, schedules, creds, client, cfg)

	summary := o.RunOnce(context.Background(), runMoment)

	if summary.Failed != 2 {
		t.Fatalf("expected 2 failures, got %+v", summary)
	}
	// 100% failure after the first wave triggers the cooldown exactly once:
	// there is no wave after the second.
	found := false
	for _, d := range *sleeps {
		if d == cfg.FailureCooldown {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a cooldown sleep, got %v", *sleeps)
	}
}

func TestRunOnce_AdaptiveDelayPropagatesAcrossWaves(t *testing.T) {
	// Shop 10 fills wave 1 and is rate-limited on every call, inflating the
	// pacing delay from the 1ms floor to 8ms. Wave 2 (shop 20) must start at
	// that inflated delay, not back at the floor: its two successes shrink it
	// by one step each, so the gauge ends at 6ms. Without propagation wave 2
	// would start at the floor and the gauge would end there.
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{
		dueSchedule(1, 10), dueSchedule(2, 10), dueSchedule(3, 10),
		dueSchedule(4, 20), dueSchedule(5, 20),
	}}
	creds := &credRepoStub{creds: map[int64]*domain.ShopCredentials{
		10: {ShopID: 10, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
		20: {ShopID: 20, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
	}}
	rate := &shopee.APIError{Code: "error_request_limit", Message: "slow down"}
	client := &scriptedClient{errs: []error{rate, rate, rate}}
	cfg := zeroDelayConfig()
	cfg.WaveSize = 1
	cfg.DelayFloor = time.Millisecond
	cfg.DelayCeil = time.Second
	o, _, _ := newTestOrchestrator(t, schedules, creds, client, cfg)

	summary := o.RunOnce(context.Background(), runMoment)

	if summary.Failed != 3 || summary.Succeeded != 2 {
		t.Fatalf("expected 3 failed / 2 succeeded, got %+v", summary)
	}
	want := (6 * time.Millisecond).Seconds()
	if got := testutil.ToFloat64(metrics.AdaptiveDelaySeconds); got != want {
		t.Fatalf("adaptive delay gauge = %v, want %v", got, want)
	}
}

func TestRunOnce_ResultsAudited(t *testing.T) {
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{
		dueSchedule(1, 10), dueSchedule(2, 10),
	}}
	creds := &credRepoStub{creds: map[int64]*domain.ShopCredentials{
		10: {ShopID: 10, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
	}}
	auditRepo := &auditRepoStub{}
	recorder := audit.NewRecorder(auditRepo, slog.Default())
	matcher := NewMatcher(time.UTC, 60)
	o := NewOrchestrator(schedules, creds, &scriptedClient{}, matcher, recorder, nil, slog.Default(), zeroDelayConfig())

	o.RunOnce(context.Background(), runMoment)
	recorder.Close()

	if len(auditRepo.results) != 2 {
		t.Fatalf("expected 2 audited results, got %d", len(auditRepo.results))
	}
	// Per-shop audit order matches attempt order.
	if auditRepo.results[0].ScheduleID != 1 || auditRepo.results[1].ScheduleID != 2 {
		t.Fatalf("audit rows out of order: %+v", auditRepo.results)
	}
}

func TestRunNow_BypassesWindowMatching(t *testing.T) {
	// The schedule's window is in the past; RunNow must execute it anyway.
	s := dueSchedule(7, 10)
	s.HourStart, s.HourEnd = 1, 2
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{s}}
	creds := &credRepoStub{creds: map[int64]*domain.ShopCredentials{
		10: {ShopID: 10, AccessToken: "t", PartnerID: 1, PartnerKey: "k"},
	}}
	client := &scriptedClient{}
	o, _, _ := newTestOrchestrator(t, schedules, creds, client, zeroDelayConfig())

	result, err := o.RunNow(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.OutcomeSuccess || client.calls != 1 {
		t.Fatalf("expected immediate execution, got %+v (%d calls)", result, client.calls)
	}
}

func TestRunNow_UnknownSchedule(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &scheduleRepoStub{}, &credRepoStub{}, &scriptedClient{}, zeroDelayConfig())

	_, err := o.RunNow(context.Background(), 999)
	if !errors.Is(err, domain.ErrScheduleNotFound) {
		t.Fatalf("expected ErrScheduleNotFound, got %v", err)
	}
}

func TestRunNow_MissingCredentials(t *testing.T) {
	schedules := &scheduleRepoStub{schedules: []*domain.BudgetSchedule{dueSchedule(7, 10)}}
	client := &scriptedClient{}
	o, _, _ := newTestOrchestrator(t, schedules, &credRepoStub{}, client, zeroDelayConfig())

	result, err := o.RunNow(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Outcome != domain.OutcomeSkipped || result.SkipReason != domain.SkipInvalidCredentials {
		t.Fatalf("expected invalid_credentials skip, got %+v", result)
	}
	if client.calls != 0 {
		t.Fatalf("expected no API call, got %d", client.calls)
	}
}
