package appointment

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/model"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

type Service interface {
	Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filter *model.AppointmentFilter) ([]*model.Appointment, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.Book)
		appointments.GET("", h.List)
		appointments.GET("/:id", h.Get)
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/cancel", h.Cancel)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookAppointmentRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	apt, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	appointments, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithPagination(c, appointments, filter.Page, filter.PageSize, len(appointments))
}

func parseFilter(c *gin.Context) (*model.AppointmentFilter, error) {
	filter := &model.AppointmentFilter{Pagination: handler.QueryPagination(c)}

	var err error
	if filter.DoctorID, err = handler.QueryID(c, "doctor_id"); err != nil {
		return nil, err
	}
	if filter.PatientID, err = handler.QueryID(c, "patient_id"); err != nil {
		return nil, err
	}
	if filter.DateFrom, err = handler.QueryDate(c, "date_from"); err != nil {
		return nil, err
	}
	if filter.DateTo, err = handler.QueryDate(c, "date_to"); err != nil {
		return nil, err
	}
	if raw := c.Query("status"); raw != "" {
		status := model.AppointmentStatus(raw)
		if !status.Valid() {
			return nil, apperrors.Validation("unknown status "+raw, nil)
		}
		filter.Status = &status
	}
	return filter, nil
}

func (h *Handler) Confirm(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	apt, err := h.service.Confirm(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.CancelAppointmentRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	apt, err := h.service.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}
