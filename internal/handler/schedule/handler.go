package schedule

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

type Service interface {
	CreateBlock(ctx context.Context, req *model.CreateScheduleBlockRequest) (*model.ScheduleBlock, error)
	DeactivateBlock(ctx context.Context, id uuid.UUID) (*model.ScheduleBlock, error)
	ListBlocks(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleBlock, error)
	Availability(ctx context.Context, doctorID uuid.UUID, date string) (*model.Availability, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/schedules", h.CreateBlock)
	r.DELETE("/schedules/:id", h.DeactivateBlock)
	r.GET("/doctors/:id/schedules", h.ListBlocks)
	r.GET("/doctors/:id/slots", h.Availability)
}

func (h *Handler) CreateBlock(c *gin.Context) {
	var req model.CreateScheduleBlockRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	block, err := h.service.CreateBlock(c.Request.Context(), &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, block)
}

// DeactivateBlock keeps the row; booked appointments still reference it.
func (h *Handler) DeactivateBlock(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	block, err := h.service.DeactivateBlock(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, block)
}

func (h *Handler) ListBlocks(c *gin.Context) {
	doctorID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	blocks, err := h.service.ListBlocks(c.Request.Context(), doctorID)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, blocks)
}

func (h *Handler) Availability(c *gin.Context) {
	doctorID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	availability, err := h.service.Availability(c.Request.Context(), doctorID, c.Query("date"))
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, availability)
}
