package realtime

import (
	"github.com/gin-gonic/gin"
)

func SetupRealtimeRoutes(rg *gin.RouterGroup, controller *Controller) {
	streams := rg.Group("/realtime")
	{
		streams.GET("/activities/:id/stream", controller.StreamActivity) // GET /api/v1/realtime/activities/:id/stream
		streams.GET("/venues/:id/stream", controller.StreamVenue)        // GET /api/v1/realtime/venues/:id/stream
	}
}
