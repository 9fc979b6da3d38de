package ward

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

type Service interface {
	CreateWard(ctx context.Context, req *model.CreateWardRequest) (*model.Ward, error)
	CreateBed(ctx context.Context, wardID uuid.UUID, req *model.CreateBedRequest) (*model.Bed, error)
	SetBedStatus(ctx context.Context, bedID uuid.UUID, status model.BedStatus) (*model.Bed, error)
	Occupancy(ctx context.Context) (*model.OccupancyReport, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/wards", h.CreateWard)
	r.GET("/wards/occupancy", h.Occupancy)
	r.POST("/wards/:id/beds", h.CreateBed)
	r.PUT("/beds/:id/status", h.SetBedStatus)
}

func (h *Handler) CreateWard(c *gin.Context) {
	var req model.CreateWardRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	ward, err := h.service.CreateWard(c.Request.Context(), &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, ward)
}

func (h *Handler) CreateBed(c *gin.Context) {
	wardID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.CreateBedRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	bed, err := h.service.CreateBed(c.Request.Context(), wardID, &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, bed)
}

func (h *Handler) SetBedStatus(c *gin.Context) {
	bedID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.SetBedStatusRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	bed, err := h.service.SetBedStatus(c.Request.Context(), bedID, req.Status)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bed)
}

func (h *Handler) Occupancy(c *gin.Context) {
	report, err := h.service.Occupancy(c.Request.Context())
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, report)
}
