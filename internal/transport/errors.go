package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/ds124wfegd/WB_L3/carrent/internal/entity"
	"github.com/ds124wfegd/WB_L3/carrent/internal/transport/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, entity.ErrPolicyViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, entity.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError hides infrastructure details from the client; they are
// attached to the context for the request logger.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if !entity.IsBusiness(err) {
		_ = c.Error(err)
		c.JSON(status, ErrorResponse{Error: http.StatusText(status)})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: entity.KindOf(err)})
}

func currentActor(c *gin.Context) (entity.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthenticated"})
	}
	return actor, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + name, Kind: entity.KindOf(entity.ErrValidation)})
		return uuid.Nil, false
	}
	return id, true
}
