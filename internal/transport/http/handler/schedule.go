package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/betacomagency/shopee-ads-scheduler/internal/domain"
	"github.com/betacomagency/shopee-ads-scheduler/internal/repository"
	"github.com/gin-gonic/gin"
)

// ScheduleHandler exposes the CRUD surface the admin dashboard calls. The
// dashboard owns the workflow; these handlers are thin wrappers over the
// schedule store.
type ScheduleHandler struct {
	repo   repository.ScheduleRepository
	logger *slog.Logger
}

func NewScheduleHandler(repo repository.ScheduleRepository, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger.With("component", "schedule_handler")}
}

type createScheduleRequest struct {
	ShopID        int64    `json:"shop_id"        binding:"required,min=1"`
	CampaignID    int64    `json:"campaign_id"    binding:"required,min=1"`
	CampaignKind  string   `json:"campaign_kind"  binding:"required,oneof=auto manual"`
	Budget        int64    `json:"budget"         binding:"required,min=1"`
	HourStart     int      `json:"hour_start"     binding:"min=0,max=23"`
	MinuteStart   int      `json:"minute_start"   binding:"min=0,max=59"`
	HourEnd       int      `json:"hour_end"       binding:"min=0,max=23"`
	MinuteEnd     int      `json:"minute_end"     binding:"min=0,max=59"`
	DaysOfWeek    []int    `json:"days_of_week"   binding:"omitempty,dive,min=0,max=6"`
	SpecificDates []string `json:"specific_dates"`
	Active        *bool    `json:"is_active"`
}

type scheduleResponse struct {
	ID            int64     `json:"id"`
	ShopID        int64     `json:"shop_id"`
	CampaignID    int64     `json:"campaign_id"`
	CampaignKind  string    `json:"campaign_kind"`
	Budget        int64     `json:"budget"`
	HourStart     int       `json:"hour_start"`
	MinuteStart   int       `json:"minute_start"`
	HourEnd       int       `json:"hour_end"`
	MinuteEnd     int       `json:"minute_end"`
	DaysOfWeek    []int     `json:"days_of_week,omitempty"`
	SpecificDates []string  `json:"specific_dates,omitempty"`
	Active        bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

func toScheduleResponse(s *domain.BudgetSchedule) scheduleResponse {
	return scheduleResponse{
		ID:            s.ID,
		ShopID:        s.ShopID,
		CampaignID:    s.CampaignID,
		CampaignKind:  string(s.CampaignKind),
		Budget:        s.Budget,
		HourStart:     s.HourStart,
		MinuteStart:   s.MinuteStart,
		HourEnd:       s.HourEnd,
		MinuteEnd:     s.MinuteEnd,
		DaysOfWeek:    s.DaysOfWeek,
		SpecificDates: s.SpecificDates,
		Active:        s.Active,
		CreatedAt:     s.CreatedAt,
	}
}

func (h *ScheduleHandler) Create(ctx *gin.Context) {
	var req createScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.HourEnd*60+req.MinuteEnd <= req.HourStart*60+req.MinuteStart {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidTimeWindow})
		return
	}
	for _, d := range req.SpecificDates {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errInvalidDateFormat})
			return
		}
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	s, err := h.repo.Create(ctx.Request.Context(), &domain.BudgetSchedule{
		ShopID:        req.ShopID,
		CampaignID:    req.CampaignID,
		CampaignKind:  domain.CampaignKind(req.CampaignKind),
		Budget:        req.Budget,
		HourStart:     req.HourStart,
		MinuteStart:   req.MinuteStart,
		HourEnd:       req.HourEnd,
		MinuteEnd:     req.MinuteEnd,
		DaysOfWeek:    req.DaysOfWeek,
		SpecificDates: req.SpecificDates,
		Active:        active,
	})
	if err != nil {
		h.logger.Error("create schedule", "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.JSON(http.StatusCreated, toScheduleResponse(s))
}

func (h *ScheduleHandler) ListByShop(ctx *gin.Context) {
	shopID, err := strconv.ParseInt(ctx.Param("shop_id"), 10, 64)
	if err != nil || shopID < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid shop id"})
		return
	}

	schedules, err := h.repo.ListByShop(ctx.Request.Context(), shopID)
	if err != nil {
		h.logger.Error("list schedules", "shop_id", shopID, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	resp := make([]scheduleResponse, 0, len(schedules))
	for _, s := range schedules {
		resp = append(resp, toScheduleResponse(s))
	}
	ctx.JSON(http.StatusOK, gin.H{"schedules": resp})
}

func (h *ScheduleHandler) Activate(ctx *gin.Context) {
	h.setActive(ctx, true)
}

func (h *ScheduleHandler) Deactivate(ctx *gin.Context) {
	h.setActive(ctx, false)
}

func (h *ScheduleHandler) setActive(ctx *gin.Context, active bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	if err := h.repo.SetActive(ctx.Request.Context(), id, active); err != nil {
		switch {
		case errors.Is(err, domain.ErrScheduleNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
		case errors.Is(err, domain.ErrScheduleAlreadySet):
			ctx.JSON(http.StatusConflict, gin.H{"error": errScheduleAlreadySet})
		default:
			h.logger.Error("set schedule active", "schedule_id", id, "error", err)
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		}
		return
	}

	ctx.Status(http.StatusNoContent)
}

func (h *ScheduleHandler) Delete(ctx *gin.Context) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id < 1 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid schedule id"})
		return
	}

	if err := h.repo.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrScheduleNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": errScheduleNotFound})
			return
		}
		h.logger.Error("delete schedule", "schedule_id", id, "error", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	ctx.Status(http.StatusNoContent)
}
