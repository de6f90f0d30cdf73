package activities

import (
	"slotify/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

func SetupActivityRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	activities := rg.Group("/activities")
	{
		activities.GET("/:id", controller.GetActivity) // GET /api/v1/activities/:id
	}

	rg.GET("/venues/:id/activities", controller.ListVenueActivities) // GET /api/v1/venues/:id/activities

	admin := rg.Group("/admin/activities")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.PUT("/:id/schedule", controller.UpdateSchedule) // PUT /api/v1/admin/activities/:id/schedule
	}
}
