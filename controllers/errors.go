package controllers

import (
	"errors"

	"brunopizza/pkg/resp"
	"brunopizza/services"
	"brunopizza/utils"

	"github.com/gin-gonic/gin"
)

// writeError maps the service error taxonomy onto the response envelope.
func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, services.ErrValidation):
		resp.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredential):
		resp.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		resp.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotFound):
		resp.NotFound(c, "not found")
	case errors.Is(err, services.ErrConflict):
		resp.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		resp.Unprocessable(c, err.Error())
	case errors.Is(err, services.ErrUnavailable):
		resp.Unavailable(c, "service temporarily unavailable")
	default:
		resp.ServerError(c, err)
	}
}

func currentActor(c *gin.Context) services.Actor {
	return services.ActorFromRole(utils.CurrentUserID(c), utils.CurrentRole(c))
}
