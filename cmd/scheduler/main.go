package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/config"
	"github.com/betacomagency/shopee-ads-scheduler/internal/audit"
	"github.com/betacomagency/shopee-ads-scheduler/internal/health"
	"github.com/betacomagency/shopee-ads-scheduler/internal/infrastructure/postgres"
	ctxlog "github.com/betacomagency/shopee-ads-scheduler/internal/log"
	"github.com/betacomagency/shopee-ads-scheduler/internal/metrics"
	"github.com/betacomagency/shopee-ads-scheduler/internal/notify"
	"github.com/betacomagency/shopee-ads-scheduler/internal/scheduler"
	"github.com/betacomagency/shopee-ads-scheduler/internal/shopee"
	httptransport "github.com/betacomagency/shopee-ads-scheduler/internal/transport/http"
	"github.com/betacomagency/shopee-ads-scheduler/internal/transport/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		stop()
		log.Fatalf("timezone: %v", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	logger.Info("db connected")

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	scheduleRepo := postgres.NewScheduleRepository(pool)
	credentialRepo := postgres.NewCredentialRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	recorder := audit.NewRecorder(auditRepo, logger)

	client, err := shopee.NewClient(cfg.PartnerHost, cfg.EgressProxyURL, time.Duration(cfg.CallTimeoutSec)*time.Second)
	if err != nil {
		stop()
		log.Fatalf("shopee client: %v", err)
	}

	matcher := scheduler.NewMatcher(loc, cfg.MaxBatchSize)
	alerter := notify.NewRunAlerter(
		notify.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger),
		cfg.AlertEmail,
		logger,
	)

	orchestrator := scheduler.NewOrchestrator(
		scheduleRepo, credentialRepo, client, matcher, recorder, alerter, logger,
		scheduler.Config{
			WaveSize:        cfg.WaveSize,
			RunBudget:       time.Duration(cfg.RunBudgetSec) * time.Second,
			MaxRetries:      cfg.MaxRetries,
			RetryBaseDelay:  time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
			DelayFloor:      time.Duration(cfg.AdaptiveDelayFloorMs) * time.Millisecond,
			DelayCeil:       time.Duration(cfg.AdaptiveDelayCeilMs) * time.Millisecond,
			FailureRatio:    cfg.FailureRatio,
			FailureCooldown: time.Duration(cfg.FailureCooldownSec) * time.Second,
		},
	)

	var cronRunner *cron.Cron
	if cfg.InternalCron {
		cronRunner = cron.New(cron.WithLocation(loc))
		if _, err := cronRunner.AddFunc(cfg.CronSpec, func() {
			orchestrator.RunOnce(ctx, time.Now())
		}); err != nil {
			stop()
			log.Fatalf("cron spec: %v", err)
		}
		cronRunner.Start()
		logger.Info("internal cron started", "spec", cfg.CronSpec, "tz", cfg.Timezone)
	}

	schedulerHandler := handler.NewSchedulerHandler(orchestrator, auditRepo, logger)
	scheduleHandler := handler.NewScheduleHandler(scheduleRepo, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, schedulerHandler, scheduleHandler, []byte(cfg.TriggerJWTSecret)),
	}
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()

	if cronRunner != nil {
		<-cronRunner.Stop().Done()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}

	recorder.Close()
	logger.Info("scheduler shut down")
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
