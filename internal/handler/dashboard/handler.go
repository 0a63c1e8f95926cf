package dashboard

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/mediguard/internal/handler"
	"github.com/jwalitptl/mediguard/internal/model"
	apperrors "github.com/jwalitptl/mediguard/pkg/errors"
)

// Engine is the compliance engine surface the dashboard reads and mutates.
type Engine interface {
	Now() time.Time
	State() model.EngineState
	Alerts() []model.Alert
	History() []model.ComplianceEvent
	AcknowledgeAlert(index int) bool
	AcknowledgeAlertByID(id uuid.UUID) bool
	TriggerEmergency(ctx context.Context) model.Alert
}

type Catalog interface {
	Snapshot() map[string]model.Medication
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

type Handler struct {
	engine    Engine
	catalog   Catalog
	broker    Subscriber
	channel   string
	heartbeat time.Duration
}

func NewHandler(engine Engine, catalog Catalog, broker Subscriber, channel string) *Handler {
	return &Handler{
		engine:    engine,
		catalog:   catalog,
		broker:    broker,
		channel:   channel,
		heartbeat: 15 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/dashboard", h.GetDashboard)
	r.GET("/history", h.ListHistory)
	r.POST("/emergency", h.TriggerEmergency)

	alerts := r.Group("/alerts")
	{
		alerts.GET("", h.ListAlerts)
		alerts.GET("/stream", h.StreamAlerts)
		alerts.PUT("/:id/read", h.AcknowledgeAlert)
		alerts.PUT("/position/:index/read", h.AcknowledgeAlertAt)
	}
}

func (h *Handler) GetDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.Dashboard{
		State: h.engine.State(),
		Meds:  h.catalog.Snapshot(),
		Now:   h.engine.Now(),
	}))
}

func (h *Handler) ListHistory(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	history := h.engine.History()
	if limit > 0 && limit < len(history) {
		history = history[:limit]
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(history))
}

func (h *Handler) ListAlerts(c *gin.Context) {
	alerts := h.engine.Alerts()
	if c.Query("unread") == "true" {
		unread := make([]model.Alert, 0, len(alerts))
		for _, a := range alerts {
			if !a.Read {
				unread = append(unread, a)
			}
		}
		alerts = unread
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(alerts))
}

func (h *Handler) AcknowledgeAlert(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid alert ID", err))
		return
	}
	if !h.engine.AcknowledgeAlertByID(id) {
		_ = c.Error(apperrors.NotFound("alert", nil))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"acknowledged": true,
		"status":       h.engine.State().Status,
	}))
}

// AcknowledgeAlertAt acknowledges by position, newest first. An index that
// no longer exists is not an error; acknowledged reports false.
func (h *Handler) AcknowledgeAlertAt(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		_ = c.Error(apperrors.BadRequest("invalid alert index", err))
		return
	}
	ok := h.engine.AcknowledgeAlert(index)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"acknowledged": ok,
		"status":       h.engine.State().Status,
	}))
}

func (h *Handler) TriggerEmergency(c *gin.Context) {
	alert := h.engine.TriggerEmergency(c.Request.Context())
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(alert))
}

// StreamAlerts pushes every newly raised alert as a server-sent event.
func (h *Handler) StreamAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	ch, err := h.broker.Subscribe(ctx, h.channel)
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", "{}")
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("alert", string(msg))
			return true
		case <-ticker.C:
			c.SSEvent("ping", strconv.FormatInt(h.engine.Now().Unix(), 10))
			return true
		}
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.BadRequest("limit must be a non-negative integer", err)
	}
	return n, nil
}
