package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/repository"
	"github.com/betacomagency/shopee-ads-scheduler/internal/scheduler"
	"github.com/gin-gonic/gin"
)

type SchedulerHandler struct {
	orchestrator *scheduler.Orchestrator
	auditRepo    repository.AuditRepository
	logger       *slog.Logger
}

func NewSchedulerHandler(orchestrator *scheduler.Orchestrator, auditRepo repository.AuditRepository, logger *slog.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		orchestrator: orchestrator,
		auditRepo:    auditRepo,
		logger:       logger.With("component", "scheduler_handler"),
	}
}

// Process is the external cron entry point: one full scheduler pass for the
// slot containing the current time. The summary is returned even when every
// schedule in it failed; only a catastrophic condition yields a 500.
func (h *SchedulerHandler) Process(ctx *gin.Context) {
	summary := h.orchestrator.RunOnce(ctx.Request.Context(), time.Now())
	if summary.Error != "" {
		ctx.JSON(http.StatusInternalServerError, summary)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

type runNowRequest struct {
	ScheduleID int64 `json:"schedule_id" binding:"required,min=1"`
}

// RunNow executes a single schedule immediately, bypassing the slot matcher.
func (h *SchedulerHandler) RunNow(ctx *gin.Context) {
	var req runNowRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.orchestrator.RunNow(ctx.Request.Context(), req.ScheduleID)
	if err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
			return
		}
		h.logger.Error("run now", "schedule_id", req.ScheduleID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, result)
}

// RunResults returns the audit rows of one run, in execution order.
func (h *SchedulerHandler) RunResults(ctx *gin.Context) {
	runID := ctx.Param("id")

	results, err := h.auditRepo.ListResults(ctx.Request.Context(), runID)
	if err != nil {
		h.logger.Error("list run results", "run_id", runID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"run_id": runID, "results": results})
}
