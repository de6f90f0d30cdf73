package pricing

import (
	"net/http"

	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// ApplyPromoCode handles POST /api/v1/pricing/promo
func (c *Controller) ApplyPromoCode(ctx *gin.Context) {
	var req PromoCodeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
		return
	}

	result, err := c.service.ApplyPromoCode(ctx.Request.Context(), req.Code, req.Subtotal)
	if err != nil {
		response.RespondJSON(ctx, "error", apperrors.HTTPStatus(err), "Failed to apply promo code", nil, apperrors.Details(err))
		return
	}

	// An invalid code is still a successful evaluation; the result carries the reason
	response.RespondJSON(ctx, "success", http.StatusOK, "Promo code evaluated", result, nil)
}

// ApplyGiftCard handles POST /api/v1/pricing/gift-card
func (c *Controller) ApplyGiftCard(ctx *gin.Context) {
	var req GiftCardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
		return
	}

	result, err := c.service.ApplyGiftCard(ctx.Request.Context(), req.Code, req.AmountOwedAfterPromo, req.RequestedAmount)
	if err != nil {
		response.RespondJSON(ctx, "error", apperrors.HTTPStatus(err), "Failed to apply gift card", nil, apperrors.Details(err))
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Gift card evaluated", result, nil)
}

// Quote handles POST /api/v1/pricing/quote
func (c *Controller) Quote(ctx *gin.Context) {
	var req QuoteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
		return
	}

	quote, err := c.service.Quote(ctx.Request.Context(), QuoteInput{
		Subtotal:       req.Subtotal,
		Currency:       req.Currency,
		PromoCode:      req.PromoCode,
		GiftCardCode:   req.GiftCardCode,
		GiftCardAmount: req.GiftCardAmount,
	})
	if err != nil {
		response.RespondJSON(ctx, "error", apperrors.HTTPStatus(err), "Failed to price order", nil, apperrors.Details(err))
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Order priced", quote, nil)
}
