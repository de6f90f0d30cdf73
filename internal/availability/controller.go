package availability

import (
	"errors"
	"net/http"
	"strconv"

	"slotify/internal/activities"
	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/utils/response"
	"slotify/internal/slots"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetAvailableSlots handles GET /api/v1/activities/:id/slots?date=YYYY-MM-DD
func (c *Controller) GetAvailableSlots(ctx *gin.Context) {
	activityID, ok := parseActivityID(ctx)
	if !ok {
		return
	}
	date, err := slots.ParseDate(ctx.Query("date"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid date", nil, err.Error())
		return
	}

	day, err := c.service.GetAvailableSlots(ctx.Request.Context(), activityID, date)
	if err != nil {
		c.respondError(ctx, "Failed to get available slots", err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slots retrieved successfully", day, nil)
}

// CheckSlot handles GET /api/v1/activities/:id/slots/check?date=&start=&end=
// When end is omitted the slot is resolved from the activity schedule.
func (c *Controller) CheckSlot(ctx *gin.Context) {
	activityID, ok := parseActivityID(ctx)
	if !ok {
		return
	}

	verr := apperrors.NewValidationError()
	date, err := slots.ParseDate(ctx.Query("date"))
	if err != nil {
		verr.Add("date", err.Error())
	}
	start, err := slots.ParseTimeOfDay(ctx.Query("start"))
	if err != nil {
		verr.Add("start", err.Error())
	}
	var end *slots.TimeOfDay
	if raw := ctx.Query("end"); raw != "" {
		parsed, err := slots.ParseTimeOfDay(raw)
		if err != nil {
			verr.Add("end", err.Error())
		} else if parsed <= start {
			verr.Add("end", "must be after start")
		}
		end = &parsed
	}
	if verr.HasErrors() {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, verr.Fields)
		return
	}

	result := CheckResult{
		ActivityID: activityID.String(),
		Date:       slots.FormatDate(date),
		StartTime:  start,
		EndTime:    end,
	}
	if end == nil {
		available, err := c.service.IsStartTimeAvailable(ctx.Request.Context(), activityID, date, start)
		if err != nil {
			c.respondError(ctx, "Failed to check slot", err)
			return
		}
		result.Available = available
	} else {
		result.Available = c.service.IsSlotAvailable(ctx.Request.Context(), activityID, date, start, *end)
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Slot checked successfully", result, nil)
}

// GetNextAvailableDate handles GET /api/v1/activities/:id/next-available-date?from=&maxDays=
func (c *Controller) GetNextAvailableDate(ctx *gin.Context) {
	activityID, ok := parseActivityID(ctx)
	if !ok {
		return
	}

	from, err := slots.ParseDate(ctx.Query("from"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid from date", nil, err.Error())
		return
	}
	maxDays := 0
	if raw := ctx.Query("maxDays"); raw != "" {
		maxDays, err = strconv.Atoi(raw)
		if err != nil || maxDays < 1 || maxDays > 366 {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "maxDays must be between 1 and 366", nil, nil)
			return
		}
	}

	next, err := c.service.GetNextAvailableDate(ctx.Request.Context(), activityID, from, maxDays)
	if err != nil {
		c.respondError(ctx, "Failed to find next available date", err)
		return
	}

	result := NextDateResult{
		ActivityID: activityID.String(),
		From:       slots.FormatDate(from),
		MaxDays:    maxDays,
	}
	if next != nil {
		result.Date = slots.FormatDate(*next)
		result.Found = true
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Next available date retrieved successfully", result, nil)
}

func parseActivityID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid activity ID", nil, err.Error())
		return uuid.Nil, false
	}
	return id, true
}

func (c *Controller) respondError(ctx *gin.Context, message string, err error) {
	statusCode := apperrors.HTTPStatus(err)
	if errors.Is(err, activities.ErrNotFound) {
		statusCode = http.StatusNotFound
	}
	response.RespondJSON(ctx, "error", statusCode, message, nil, apperrors.Details(err))
}
