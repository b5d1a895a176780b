package httpapi

import (
	"net/http"
	"time"

	"timeledger/pkg/config"
	"timeledger/pkg/errutil"
	"timeledger/pkg/health"
	"timeledger/pkg/middleware"
	"timeledger/services/analytics"
	"timeledger/services/ledger"
	"timeledger/services/task"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewHandler),
)

type HandlerParams struct {
	fx.In
	Config    *config.Config
	Health    health.HealthService
	Tasks     *task.Service
	Ledger    *ledger.Service
	Analytics *analytics.Service
}

type handler struct {
	tasks     *task.Service
	ledger    *ledger.Service
	analytics *analytics.Service
}

// NewHandler builds the gin engine. Probes sit outside the identity
// middleware; everything under /api requires the X-USER-ID header.
func NewHandler(p HandlerParams) http.Handler {
	if p.Config.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	h := &handler{
		tasks:     p.Tasks,
		ledger:    p.Ledger,
		analytics: p.Analytics,
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", p.Health.Liveness)
	r.GET("/readyz", p.Health.Readiness)

	api := r.Group("/api", middleware.Identity(), middleware.Error())
	{
		api.GET("/dashboard", h.dashboard)

		api.POST("/tasks", h.createTask)
		api.PATCH("/tasks/:id", h.updateTask)
		api.DELETE("/tasks/:id", h.deleteTask)
		api.GET("/tasks/calendar", h.calendar)

		api.GET("/analytics/chart-data", h.chartData)
		api.GET("/analytics/leaderboard", h.leaderboard)
		api.GET("/analytics/categories", h.categories)
		api.GET("/analytics/time-distribution", h.timeDistribution)
		api.GET("/analytics/summary", h.summary)
		api.GET("/analytics/overview", h.overview)
	}

	return r
}

func (h *handler) dashboard(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handler) createTask(c *gin.Context) {
	var in task.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	t, err := h.tasks.Create(c.Request.Context(), middleware.UserID(c), in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *handler) updateTask(c *gin.Context) {
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	var in task.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.Error(errutil.BadRequest("invalid request body", err))
		return
	}

	t, err := h.tasks.Update(c.Request.Context(), middleware.UserID(c), taskID, in)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handler) deleteTask(c *gin.Context) {
	taskID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), middleware.UserID(c), taskID); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *handler) calendar(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("start"))
	if err != nil {
		c.Error(errutil.BadRequest("invalid start date, expected YYYY-MM-DD", err))
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("end"))
	if err != nil {
		c.Error(errutil.BadRequest("invalid end date, expected YYYY-MM-DD", err))
		return
	}

	events, err := h.tasks.CalendarEvents(c.Request.Context(), middleware.UserID(c), from, to)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// Analytics reads never fail the response: a store error is logged and the
// zeroed payload is served so the dashboard panels keep rendering.

func (h *handler) chartData(c *gin.Context) {
	result, err := h.analytics.ChartData(c.Request.Context(), middleware.UserID(c), c.Query("range"))
	logDegraded(c, "chart-data", err)
	c.JSON(http.StatusOK, result)
}

func (h *handler) leaderboard(c *gin.Context) {
	result, err := h.analytics.Leaderboard(c.Request.Context(), middleware.UserID(c), c.Query("range"))
	logDegraded(c, "leaderboard", err)
	c.JSON(http.StatusOK, result)
}

func (h *handler) categories(c *gin.Context) {
	result, err := h.analytics.Categories(c.Request.Context(), middleware.UserID(c), c.Query("range"))
	logDegraded(c, "categories", err)
	c.JSON(http.StatusOK, result)
}

func (h *handler) timeDistribution(c *gin.Context) {
	result, err := h.analytics.TimeDistribution(c.Request.Context(), middleware.UserID(c), c.Query("range"))
	logDegraded(c, "time-distribution", err)
	c.JSON(http.StatusOK, result)
}

func (h *handler) summary(c *gin.Context) {
	result, err := h.analytics.Summary(c.Request.Context(), middleware.UserID(c), c.Query("range"))
	logDegraded(c, "summary", err)
	c.JSON(http.StatusOK, result)
}

func (h *handler) overview(c *gin.Context) {
	result, err := h.analytics.FullOverview(c.Request.Context(), middleware.UserID(c), c.Query("range"))
	logDegraded(c, "overview", err)
	c.JSON(http.StatusOK, result)
}

func logDegraded(c *gin.Context, view string, err error) {
	if err != nil {
		zap.L().Warn("serving degraded analytics view",
			zap.String("view", view),
			zap.Int64("user_id", middleware.UserID(c)),
			zap.Error(err))
	}
}

func pathID(c *gin.Context) (int64, bool) {
	var params struct {
		ID int64 `uri:"id"`
	}
	if err := c.ShouldBindUri(&params); err != nil {
		c.Error(errutil.BadRequest("invalid task id", err))
		return 0, false
	}
	return params.ID, true
}
