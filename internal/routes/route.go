package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/unibook/internal/container"
	"github.com/joshua-takyi/unibook/internal/handlers"
	"github.com/joshua-takyi/unibook/internal/middleware"
	"github.com/joshua-takyi/unibook/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	r.Use(cors.New(corsConfig))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	secure := cfg.IsProduction()
	limiter := middleware.RateLimit(cfg.RateLimit, container.RedisClient(), container.Logger)
	auth := middleware.Auth(container.Tokens, container.Logger)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "OK",
				"service": "unibook-api",
			})
		})
	}

	// public routes
	public := v1.Group("/")
	public.Use(limiter)
	{
		public.POST("/auth/signup", handlers.Signup(container.UserService))
		public.POST("/auth/login", handlers.Login(container.UserService, secure))
		public.POST("/auth/logout", handlers.Logout(secure))

		public.GET("/public/resources", handlers.ListResources(container.ResourceService))
		public.GET("/public/resources/:id", handlers.GetResource(container.ResourceService))

		public.GET("/verify/pass/:id", handlers.VerifyPass(container.IssuanceService))
		public.GET("/verify/ticket/:id", handlers.VerifyTicket(container.IssuanceService))
	}

	// the limiter runs after auth so signed-in callers get their own bucket
	protected := v1.Group("/")
	protected.Use(auth, limiter)
	{
		protected.GET("/profile", handlers.Profile())

		protected.GET("/resources", handlers.ListResources(container.ResourceService))
		protected.GET("/resources/:id", handlers.GetResource(container.ResourceService))

		protected.POST("/bookings", handlers.CreateBooking(container.BookingService))
		protected.GET("/bookings/:id", handlers.GetBooking(container.BookingService))
		protected.GET("/bookings/user/:userId", handlers.ListUserBookings(container.BookingService))
	}

	admin := protected.Group("/")
	admin.Use(adminOnly)
	{
		admin.POST("/resources", handlers.CreateResource(container.ResourceService))
		admin.PUT("/resources/:id", handlers.UpdateResource(container.ResourceService))
		admin.DELETE("/resources/:id", handlers.DeleteResource(container.ResourceService))

		admin.PUT("/bookings/:id", handlers.UpdateBookingStatus(container.BookingService))
		admin.POST("/admin/bookings", handlers.CreateAdminBooking(container.BookingService))
		admin.GET("/admin/bookings", handlers.ListBookings(container.BookingService))
		admin.POST("/admin/bookings/:id/issue-pass", handlers.IssuePasses(container.IssuanceService))
		admin.POST("/admin/bookings/:id/issue-ticket", handlers.IssueTickets(container.IssuanceService))
		admin.POST("/admin/passes/:id/redeem", handlers.RedeemPass(container.IssuanceService))
		admin.POST("/admin/tickets/:id/redeem", handlers.RedeemTicket(container.IssuanceService))

		admin.GET("/download/pass/:id", handlers.DownloadPass(container.IssuanceService))
		admin.GET("/download/ticket/:id", handlers.DownloadTicket(container.IssuanceService))

		admin.GET("/users", handlers.ListUsers(container.UserService))
		admin.GET("/users/count", handlers.CountUsers(container.UserService))
		admin.POST("/users/register-admin", handlers.RegisterAdmin(container.UserService))
	}

	return r
}
