package reservations

import (
	"slotify/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupReservationRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	reservations := rg.Group("/reservations")
	{
		reservations.POST("", controller.CreateReservation)              // POST /api/v1/reservations
		reservations.GET("/:id", controller.GetReservation)              // GET /api/v1/reservations/:id
		reservations.POST("/:id/cancel", controller.CancelReservation)   // POST /api/v1/reservations/:id/cancel
		reservations.POST("/:id/retry-payment", controller.RetryPayment) // POST /api/v1/reservations/:id/retry-payment
	}

	// Payment-confirmation callbacks
	system := rg.Group("/system/reservations")
	system.Use(auth, middleware.RequireRoles(middleware.RoleSystem, middleware.RoleAdmin))
	{
		system.PATCH("/:id/status", controller.UpdateStatus) // PATCH /api/v1/system/reservations/:id/status
	}

	admin := rg.Group("/admin/reservations")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("/:id/refund", controller.RequestRefund) // POST /api/v1/admin/reservations/:id/refund
	}
}
