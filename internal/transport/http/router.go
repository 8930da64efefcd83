package httptransport

import (
	"log/slog"

	"github.com/betacomagency/shopee-ads-scheduler/internal/transport/http/handler"
	"github.com/betacomagency/shopee-ads-scheduler/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	schedulerHandler *handler.SchedulerHandler,
	scheduleHandler *handler.ScheduleHandler,
	triggerSecret []byte,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	api := r.Group("/api/v1", middleware.TriggerAuth(triggerSecret))

	api.POST("/scheduler/process", schedulerHandler.Process)
	api.POST("/scheduler/run-now", schedulerHandler.RunNow)
	api.GET("/runs/:id/results", schedulerHandler.RunResults)

	api.POST("/schedules", scheduleHandler.Create)
	api.GET("/shops/:shop_id/schedules", scheduleHandler.ListByShop)
	api.POST("/schedules/:id/activate", scheduleHandler.Activate)
	api.POST("/schedules/:id/deactivate", scheduleHandler.Deactivate)
	api.DELETE("/schedules/:id", scheduleHandler.Delete)

	return r
}
