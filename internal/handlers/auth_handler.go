package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/middleware"
	"github.com/joshua-takyi/unibook/internal/models"
	"github.com/joshua-takyi/unibook/internal/services"
)

func Signup(u *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.SignupInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		user, err := u.Signup(c.Request.Context(), in)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "userId": user.ID.Hex()})
	}
}

// Login sets the session token as an httpOnly cookie and also returns it in
// the body for clients that send it as a bearer token.
func Login(u *services.UserService, secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.LoginInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, "invalid request body")
			return
		}

		session, err := u.Login(c.Request.Context(), in)
		if err != nil {
			fail(c, err)
			return
		}

		maxAge := int(time.Until(session.ExpiresAt).Seconds())
		if maxAge <= 0 {
			maxAge = 3600
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(middleware.TokenCookie, session.Token, maxAge, "/", "", secureCookies, true)
		c.JSON(http.StatusOK, models.SuccessResponse(session, "Logged in successfully"))
	}
}

func Logout(secureCookies bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(middleware.TokenCookie, "", -1, "/", "", secureCookies, true)
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
	}
}

func Profile() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := principal(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"userId":  p.UserID,
			"email":   p.Email,
			"name":    p.Name,
			"role":    p.GetSafeRole(),
			"isAdmin": p.IsAdmin(),
		})
	}
}
