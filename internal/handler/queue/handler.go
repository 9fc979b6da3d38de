package queue

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

type Service interface {
	CheckIn(ctx context.Context, appointmentID uuid.UUID) (*model.QueueEntry, error)
	CallNext(ctx context.Context, doctorID uuid.UUID) (*model.QueueEntry, error)
	Complete(ctx context.Context, entryID uuid.UUID) (*model.QueueEntry, error)
	Skip(ctx context.Context, entryID uuid.UUID, reason string) (*model.QueueEntry, error)
	Board(ctx context.Context, doctorID uuid.UUID, date string) (*model.QueueBoard, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/appointments/:id/check-in", h.CheckIn)
	r.GET("/doctors/:id/queue", h.Board)
	r.POST("/doctors/:id/queue/next", h.CallNext)
	r.POST("/queue/:id/complete", h.Complete)
	r.POST("/queue/:id/skip", h.Skip)
}

func (h *Handler) CheckIn(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	entry, err := h.service.CheckIn(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, entry)
}

func (h *Handler) CallNext(c *gin.Context) {
	doctorID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	entry, err := h.service.CallNext(c.Request.Context(), doctorID)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	entry, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}

func (h *Handler) Skip(c *gin.Context) {
	id, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req model.SkipQueueEntryRequest
	if err := handler.Bind(c, &req); err != nil {
		handler.Abort(c, err)
		return
	}

	entry, err := h.service.Skip(c.Request.Context(), id, req.Reason)
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, entry)
}

// Board defaults to today when no date is given.
func (h *Handler) Board(c *gin.Context) {
	doctorID, err := handler.ParamID(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	board, err := h.service.Board(c.Request.Context(), doctorID, c.Query("date"))
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithSuccess(c, board)
}
