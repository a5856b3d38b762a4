package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/services"
)

func ListUsers(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		offset, limit, ok := pagination(c)
		if !ok {
			return
		}

		users, err := u.ListUsers(c.Request.Context(), p, offset, limit)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse(users, ""))
	}
}

func CountUsers(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		n, err := u.CountUsers(c.Request.Context(), p)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "count": n})
	}
}

func RegisterAdmin(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		var in services.SignupInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		user, err := u.RegisterAdmin(c.Request.Context(), p, in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "userId": user.ID.Hex()})
	}
}
