package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/middleware"
	"github.com/joshua-takyi/unibook/internal/models"
)

// fail writes the client-safe form of err. Unexpected errors are attached to
// the context so ErrorHandler logs them with the request id.
func fail(c *gin.Context, err error) {
	status := apperror.StatusCode(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, models.ErrorResponse(apperror.PublicMessage(err)))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse(msg))
}

func principal(c *gin.Context) (*helpers.Principal, bool) {
	p := middleware.GetPrincipal(c)
	if p == nil {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse("unauthorized"))
		return nil, false
	}
	return p, true
}

// pagination reads limit and offset, defaulting to 10 and 0.
func pagination(c *gin.Context) (offset, limit int, ok bool) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 || limit > 100 {
		badRequest(c, "invalid limit parameter")
		return 0, 0, false
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		badRequest(c, "invalid offset parameter")
		return 0, 0, false
	}
	return offset, limit, true
}
