package activities

import (
	"errors"
	"net/http"

	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetActivity handles GET /api/v1/activities/:id
func (c *Controller) GetActivity(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid activity ID", nil, err.Error())
		return
	}

	activity, err := c.service.GetActivity(ctx.Request.Context(), id)
	if err != nil {
		c.respondError(ctx, "Failed to get activity", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Activity retrieved successfully", activity, nil)
}

// ListVenueActivities handles GET /api/v1/venues/:id/activities
func (c *Controller) ListVenueActivities(ctx *gin.Context) {
	venueID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid venue ID", nil, err.Error())
		return
	}

	list, err := c.service.ListByVenue(ctx.Request.Context(), venueID)
	if err != nil {
		c.respondError(ctx, "Failed to list activities", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Activities retrieved successfully", list, nil)
}

// UpdateSchedule handles PUT /api/v1/admin/activities/:id/schedule
func (c *Controller) UpdateSchedule(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid activity ID", nil, err.Error())
		return
	}

	var req UpdateScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request data", nil, apperrors.Details(apperrors.FromValidator(err)))
		return
	}

	activity, err := c.service.UpdateSchedule(ctx.Request.Context(), id, req)
	if err != nil {
		c.respondError(ctx, "Failed to update schedule", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Schedule updated successfully", activity, nil)
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	statusCode := apperrors.HTTPStatus(err)
	if errors.Is(err, ErrNotFound) {
		statusCode = http.StatusNotFound
	}
	response.RespondJSON(ctx, "error", statusCode, message, nil, apperrors.Details(err))
}
