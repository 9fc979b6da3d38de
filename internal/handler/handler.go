package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	govalidator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/validator"
)

// RegisterBindingRules teaches gin's validator the domain tags used on
// request structs.
func RegisterBindingRules() {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		validator.RegisterRules(v)
	}
}

// Bind decodes and validates the JSON body into req.
func Bind(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return validator.Translate(err)
	}
	return nil
}

// ParamID parses a uuid path parameter.
func ParamID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("invalid "+name, err)
	}
	return id, nil
}

// QueryID parses an optional uuid query parameter.
func QueryID(c *gin.Context, name string) (*uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperrors.Validation("invalid "+name, err)
	}
	return &id, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return nil, apperrors.Validation(name+" must be YYYY-MM-DD", err)
	}
	return &d, nil
}

func QueryPagination(c *gin.Context) model.Pagination {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("page_size"))
	return model.Pagination{Page: page, PageSize: size}.Normalize()
}

// Abort hands err to the error middleware.
func Abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
