package reservations

import (
	"context"
	"errors"
	"net/http"
	"time"

	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/utils/response"
	"slotify/internal/slots"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityChecker answers the pre-commit availability question. An error means the
// question could not be asked (unknown activity, off-schedule time), not that the slot is taken.
type AvailabilityChecker interface {
	IsStartTimeAvailable(ctx context.Context, activityID uuid.UUID, date time.Time, start slots.TimeOfDay) (bool, error)
}

type Controller struct {
	service Service
	checker AvailabilityChecker
}

func NewController(service Service, checker AvailabilityChecker) *Controller {
	return &Controller{service: service, checker: checker}
}

// CreateReservation handles POST /api/v1/reservations
func (c *Controller) CreateReservation(ctx *gin.Context) {
	var req CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
		return
	}

	if conflict := c.precheck(ctx.Request.Context(), req); conflict != nil {
		response.RespondJSON(ctx, "error", http.StatusConflict, "Slot is no longer available", nil, conflict)
		return
	}

	result, err := c.service.CreateReservationWithPayment(ctx.Request.Context(), req)
	if err != nil {
		c.respondError(ctx, "Failed to create reservation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Reservation created successfully", result, nil)
}

// precheck re-verifies availability right before committing. Races between two
// committers are still settled by the exclusion constraint.
func (c *Controller) precheck(ctx context.Context, req CreateReservationRequest) *apperrors.AvailabilityConflict {
	if c.checker == nil {
		return nil
	}
	activityID, err := uuid.Parse(req.ActivityID)
	if err != nil {
		return nil
	}
	date, err := slots.ParseDate(req.Date)
	if err != nil {
		return nil
	}
	start, err := slots.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil
	}

	available, err := c.checker.IsStartTimeAvailable(ctx, activityID, date, start)
	if err != nil || available {
		return nil
	}
	return &apperrors.AvailabilityConflict{
		ActivityID: activityID.String(),
		Date:       slots.FormatDate(date),
		StartTime:  start.String(),
	}
}

// GetReservation handles GET /api/v1/reservations/:id
func (c *Controller) GetReservation(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	reservation, err := c.service.GetReservation(ctx.Request.Context(), id)
	if err != nil {
		c.respondError(ctx, "Failed to get reservation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation retrieved successfully", reservation, nil)
}

// CancelReservation handles POST /api/v1/reservations/:id/cancel
func (c *Controller) CancelReservation(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req CancelReservationRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
			return
		}
	}

	reservation, err := c.service.CancelReservation(ctx.Request.Context(), id, req.Reason)
	if err != nil {
		c.respondError(ctx, "Failed to cancel reservation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation cancelled successfully", reservation, nil)
}

// RetryPayment handles POST /api/v1/reservations/:id/retry-payment
func (c *Controller) RetryPayment(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	result, err := c.service.RetryPayment(ctx.Request.Context(), id)
	if err != nil {
		c.respondError(ctx, "Failed to retry payment", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payment intent created", result, nil)
}

// UpdateStatus handles PATCH /api/v1/system/reservations/:id/status
func (c *Controller) UpdateStatus(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
		return
	}

	reservation, err := c.service.UpdateReservationStatus(ctx.Request.Context(), id, req.Status, req.PaymentStatus)
	if err != nil {
		c.respondError(ctx, "Failed to update reservation status", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation status updated", reservation, nil)
}

// RequestRefund handles POST /api/v1/admin/reservations/:id/refund
func (c *Controller) RequestRefund(ctx *gin.Context) {
	id, ok := parseID(ctx)
	if !ok {
		return
	}

	var req RefundRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
			return
		}
	}

	refund, err := c.service.RequestRefund(ctx.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		c.respondError(ctx, "Failed to refund reservation", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Refund requested", refund, nil)
}

func parseID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid reservation ID", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	statusCode := apperrors.HTTPStatus(err)
	switch {
	case errors.Is(err, ErrNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		statusCode = http.StatusConflict
	}
	response.RespondJSON(ctx, "error", statusCode, message, nil, apperrors.Details(err))
}
