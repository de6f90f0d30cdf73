package availability

import (
	"github.com/gin-gonic/gin"
)

func SetupAvailabilityRoutes(rg *gin.RouterGroup, controller *Controller) {
	activities := rg.Group("/activities")
	{
		activities.GET("/:id/slots", controller.GetAvailableSlots)                  // GET /api/v1/activities/:id/slots
		activities.GET("/:id/slots/check", controller.CheckSlot)                    // GET /api/v1/activities/:id/slots/check
		activities.GET("/:id/next-available-date", controller.GetNextAvailableDate) // GET /api/v1/activities/:id/next-available-date
	}
}
