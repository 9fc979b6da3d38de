package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/hms-core/internal/model"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
	"github.com/jwalitptl/hms-core/pkg/httputil"
)

const ContextCaller = "caller"

// TokenValidator resolves a bearer token to the caller's tenant and user.
type TokenValidator interface {
	Validate(token string) (hospitalID, userID uuid.UUID, err error)
}

type AuthMiddleware struct {
	tokens TokenValidator
}

func NewAuthMiddleware(tokens TokenValidator) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Authenticate verifies the bearer token and puts the caller into the
// request context, where the services read it.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.reject(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			m.reject(c, "invalid authorization format")
			return
		}

		hospitalID, userID, err := m.tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			m.reject(c, "invalid token")
			return
		}

		caller := model.Caller{HospitalID: hospitalID, UserID: userID}
		c.Set(ContextCaller, caller)
		c.Request = c.Request.WithContext(model.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}

func (m *AuthMiddleware) reject(c *gin.Context, msg string) {
	httputil.RespondWithError(c, apperrors.New(apperrors.KindUnauthorized, msg, nil))
	c.Abort()
}
