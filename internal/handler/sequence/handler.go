package sequence

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hms-core/internal/handler"
	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

type Service interface {
	NextIdentifier(ctx context.Context, kind model.SequenceKind) (*model.Identifier, error)
}

// Handler issues identifiers to collaborators such as billing and
// registration.
type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/sequences/:kind", h.Next)
}

func (h *Handler) Next(c *gin.Context) {
	id, err := h.service.NextIdentifier(c.Request.Context(), model.SequenceKind(c.Param("kind")))
	if err != nil {
		handler.Abort(c, err)
		return
	}
	httputil.RespondWithCreated(c, id)
}
