package pricing

import "github.com/gin-gonic/gin"

func SetupPricingRoutes(rg *gin.RouterGroup, controller *Controller) {
	pricing := rg.Group("/pricing")
	{
		pricing.POST("/promo", controller.ApplyPromoCode)    // POST /api/v1/pricing/promo
		pricing.POST("/gift-card", controller.ApplyGiftCard) // POST /api/v1/pricing/gift-card
		pricing.POST("/quote", controller.Quote)             // POST /api/v1/pricing/quote
	}
}
