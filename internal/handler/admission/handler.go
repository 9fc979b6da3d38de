package admission

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

type Service interface {
	Admit(ctx context.Context, req *model.AdmitRequest) (*model.Admission, error)
	AdmitFromVisit(ctx context.Context, appointmentID uuid.UUID, req *model.AdmitFromVisitRequest) (*model.Admission, error)
	Discharge(ctx context.Context, id uuid.UUID, req *model.DischargeRequest) (*model.Admission, error)
	Transfer(ctx context.Context, id uuid.UUID, req *model.TransferBedRequest) (*model.BedTransfer, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Admission, error)
	ListTransfers(ctx context.Context, id uuid.UUID) ([]*model.BedTransfer, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/appointments/:id/admit", h.AdmitFromVisit)

	admissions := r.Group("/admissions")
	{
		admissions.POST("", h.Admit)
		admissions.GET("/:id", h.Get)
		admissions.POST("/:id/discharge", h.Discharge)
		admissions.POST("/:id/transfer", h.Transfer)
		admissions.GET("/:id/transfers", h.ListTransfers)
	}
}

func (h *Handler) Admit(c *gin.Context) {
	var req model.AdmitRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	adm, err := h.service.Admit(c.Request.Context(), &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, adm)
}

func (h *Handler) AdmitFromVisit(c *gin.Context) {
	appointmentID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.AdmitFromVisitRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	adm, err := h.service.AdmitFromVisit(c.Request.Context(), appointmentID, &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, adm)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	adm, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, adm)
}

func (h *Handler) Discharge(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.DischargeRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	adm, err := h.service.Discharge(c.Request.Context(), id, &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, adm)
}

func (h *Handler) Transfer(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.TransferBedRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	transfer, err := h.service.Transfer(c.Request.Context(), id, &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, transfer)
}

func (h *Handler) ListTransfers(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	transfers, err := h.service.ListTransfers(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, transfers)
}
