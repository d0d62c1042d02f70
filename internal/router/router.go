package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tripwise-dev/tripwise/internal/handlers"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/metrics"
	"github.com/tripwise-dev/tripwise/internal/middleware"
)

func NewRouter(h *handlers.Handler, authLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), logger.GinMiddleware(), metrics.Middleware())

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     h.Config.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ready", handlers.ReadyCheck)
		api.GET("/ws", middleware.AuthMiddleware(), h.WebSocket)
		api.GET("/invitations/:token", h.GetInvitation)

		auth := api.Group("/auth")
		{
			auth.POST("/register", authLimiter.Handler(), h.CreateUser)
			auth.POST("/login", authLimiter.Handler(), h.LoginUser)
			auth.POST("/logout", h.LogoutUser)
			auth.GET("/me", middleware.AuthMiddleware(), h.Me)
			auth.PATCH("/me", middleware.AuthMiddleware(), h.UpdateUser)
		}

		authed := api.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/allowance/preview", h.PreviewAllowance)
			authed.POST("/transcribe", h.Transcribe)

			forms := authed.Group("/forms")
			{
				forms.POST("", h.CreateForm)
				forms.GET("", h.ListForms)
				forms.GET("/:id", h.GetForm)
				forms.PUT("/:id", h.UpdateForm)
				forms.DELETE("/:id", h.DeleteForm)
				forms.POST("/:id/submit", h.SubmitForm)
			}

			receipts := authed.Group("/receipts")
			{
				receipts.POST("", h.UploadReceipt)
				receipts.GET("", h.ListReceipts)
				receipts.GET("/:id/file", h.DownloadReceipt)
				receipts.POST("/:id/scan", h.ScanReceipt)
				receipts.DELETE("/:id", h.DeleteReceipt)
			}

			vehicles := authed.Group("/vehicles")
			{
				vehicles.GET("", h.ListVehicles)
				vehicles.GET("/:id", h.GetVehicle)
				vehicles.GET("/:id/mileage", h.ListMileageEntries)
				vehicles.POST("/:id/mileage", h.CreateMileageEntry)
			}

			notifications := authed.Group("/notifications")
			{
				notifications.GET("", h.ListNotifications)
				notifications.GET("/unread-count", h.UnreadNotificationCount)
				notifications.PATCH("/:id/read", h.MarkNotificationRead)
				notifications.POST("/read-all", h.MarkAllNotificationsRead)
			}
		}

		admin := api.Group("/admin", middleware.AuthMiddleware(), middleware.AdminOnly())
		{
			admin.GET("/users", h.ListUsers)
			admin.PATCH("/users/:id", h.AdminUpdateUser)
			admin.DELETE("/users/:id", h.DeleteUser)

			admin.GET("/companies", h.ListCompanies)
			admin.POST("/companies", h.CreateCompany)
			admin.PUT("/companies/:id", h.UpdateCompany)
			admin.DELETE("/companies/:id", h.DeleteCompany)

			admin.GET("/invitations", h.ListInvitations)
			admin.POST("/invitations", h.CreateInvitation)
			admin.DELETE("/invitations/:id", h.RevokeInvitation)

			admin.GET("/forms", h.ListReviewForms)
			admin.POST("/forms/:id/approve", h.ApproveForm)
			admin.POST("/forms/:id/reject", h.RejectForm)

			admin.POST("/vehicles", h.CreateVehicle)
			admin.PUT("/vehicles/:id", h.UpdateVehicle)
			admin.DELETE("/vehicles/:id", h.DeleteVehicle)
		}
	}

	return r
}
