package handlers

import (
	"ridealong/internal/auth"
	"ridealong/internal/models"
	"ridealong/internal/utils"

	"github.com/gin-gonic/gin"
)

// Routes registers every endpoint on router
func (h *Handler) Routes(router gin.IRouter) {
	// Basic routes
	router.GET("/", HomeHandler)
	router.GET("/health", h.Health)

	// Auth routes (no session required)
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/otp/send", utils.RateLimit(h.otpLimiter), h.SendLoginCode)
		authRoutes.POST("/otp/verify", utils.RateLimit(h.verifyLimiter), h.VerifyLoginCode)
		authRoutes.GET("/google/login", h.GoogleLogin)
		authRoutes.GET("/google/callback", h.GoogleCallback)
		authRoutes.POST("/logout", h.Logout)
	}

	admin := auth.RequireRole(models.RoleAdmin)

	// Protected routes
	protected := router.Group("")
	protected.Use(auth.AuthMiddleware(h.db))
	{
		protected.GET("/auth/me", h.Me)

		protected.GET("/users/:id", h.GetUser)
		protected.GET("/users/by-email/:email", h.GetUserByEmail)
		protected.POST("/users/me/avatar", h.UploadAvatar)

		protected.GET("/admins", admin, h.ListAdmins)
		protected.POST("/admins", admin, h.CreateAdmin)
		protected.PUT("/admins/:id", admin, h.UpdateAdmin)
		protected.DELETE("/admins/:id", admin, h.DeleteAdmin)

		protected.GET("/clients", admin, h.ListClients)
		protected.POST("/clients", admin, h.CreateClient)
		protected.PUT("/clients/:id", admin, h.UpdateClient)

		protected.GET("/volunteers", admin, h.ListVolunteers)
		protected.POST("/volunteers", admin, h.CreateVolunteer)
		protected.PUT("/volunteers/:id", admin, h.UpdateVolunteer)
		protected.GET("/volunteers/me", h.GetMyVolunteer)
		protected.PUT("/volunteers/me/status", h.UpdateMyStatus)
		protected.PUT("/volunteers/me/reminders", h.ReplaceMyReminders)

		protected.GET("/addresses", h.SearchAddresses)

		protected.GET("/rides", h.ListRides)
		protected.POST("/rides", h.CreateRide)
		protected.GET("/rides/:id", h.GetRide)
		protected.PUT("/rides/:id", admin, h.UpdateRide)
		protected.POST("/rides/:id/signup", h.SignupForRide)
		protected.POST("/rides/:id/unsignup", h.UnsignupFromRide)
		protected.POST("/rides/:id/complete", h.CompleteRide)
		protected.GET("/rides/:id/estimate", h.EstimateRide)

		protected.GET("/metrics/completion-rate", admin, h.CompletionRate)
		protected.GET("/metrics/hours", admin, h.Hours)
		protected.GET("/metrics/top-riders", admin, h.TopRiders)
	}
}
