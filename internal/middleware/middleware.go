package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"go.uber.org/zap"
)

const (
	PrincipalKey = "user"
	TokenCookie  = "token"
)

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get("request_id")

		fields := []zap.Field{
			zap.Any("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if p := GetPrincipal(c); p != nil {
			fields = append(fields, zap.String("user_id", p.UserID))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("HTTP Request", fields...)
			return
		}
		logger.Info("HTTP Request", fields...)
	}
}

// ErrorHandler logs errors attached with c.Error and answers with a generic
// 500 when the handler did not write a response itself.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			zap.Any("request_id", requestID),
			zap.String("error", err.Error()),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse("Internal Server Error"))
		}
	}
}

func tokenFromRequest(c *gin.Context) string {
	if token, err := c.Cookie(TokenCookie); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// Auth reads the session token from the cookie or the Authorization header
// and stores the caller's principal on the context.
func Auth(verifier helpers.TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("authentication required"))
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Debug("token rejected", zap.Error(err), zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("invalid or expired token"))
			return
		}
		if claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("invalid or expired token"))
			return
		}

		c.Set(PrincipalKey, helpers.NewPrincipal(claims))
		c.Next()
	}
}

// RequireRole must run after Auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := GetPrincipal(c)
		if p == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse("authentication required"))
			return
		}
		if !p.HasRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse(role+" access required"))
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) *helpers.Principal {
	v, ok := c.Get(PrincipalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*helpers.Principal)
	return p
}
