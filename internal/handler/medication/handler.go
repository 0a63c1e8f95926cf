package medication

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/mediguard/internal/handler"
	"github.com/jwalitptl/mediguard/internal/model"
	apperrors "github.com/jwalitptl/mediguard/pkg/errors"
)

type Catalog interface {
	Get(name string) (model.Medication, bool)
	List() []model.Medication
	AddOrReplace(ctx context.Context, med model.Medication) (bool, error)
	Remove(ctx context.Context, name string) error
}

// Scheduler is told to recompute the next dose after every catalog change.
type Scheduler interface {
	RecomputeNextDose() (time.Time, bool)
}

type Handler struct {
	catalog   Catalog
	scheduler Scheduler
}

func NewHandler(catalog Catalog, scheduler Scheduler) *Handler {
	return &Handler{catalog: catalog, scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	meds := r.Group("/medications")
	{
		meds.GET("", h.ListMedications)
		meds.GET("/:name", h.GetMedication)
		meds.POST("", h.AddMedication)
		meds.DELETE("/:name", h.RemoveMedication)
	}
}

func (h *Handler) ListMedications(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.catalog.List()))
}

func (h *Handler) GetMedication(c *gin.Context) {
	med, ok := h.catalog.Get(c.Param("name"))
	if !ok {
		_ = c.Error(apperrors.NotFound("medication", nil))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(med))
}

func (h *Handler) AddMedication(c *gin.Context) {
	var req model.CreateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.BadRequest("invalid medication", err))
		return
	}

	med := req.ToMedication()
	replaced, err := h.catalog.AddOrReplace(c.Request.Context(), med)
	if err != nil {
		_ = c.Error(err)
		return
	}
	next := h.recompute()

	status := http.StatusCreated
	if replaced {
		status = http.StatusOK
	}
	c.JSON(status, handler.NewSuccessResponse(gin.H{
		"medication": med,
		"replaced":   replaced,
		"next_dose":  next,
	}))
}

func (h *Handler) RemoveMedication(c *gin.Context) {
	name := c.Param("name")
	if err := h.catalog.Remove(c.Request.Context(), name); err != nil {
		_ = c.Error(err)
		return
	}
	next := h.recompute()
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"removed":   name,
		"next_dose": next,
	}))
}

func (h *Handler) recompute() *time.Time {
	next, _ := h.scheduler.RecomputeNextDose()
	if next.IsZero() {
		return nil
	}
	return &next
}
