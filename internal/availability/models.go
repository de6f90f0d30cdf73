package availability

import (
	"slotify/internal/slots"
)

// Reasons a slot is not bookable
const (
	ReasonPast       = "past"
	ReasonBooked     = "booked"
	ReasonUnverified = "unverified"
)

// Slot is one candidate interval with its availability on a date
type Slot struct {
	Date      string          `json:"date"`
	StartTime slots.TimeOfDay `json:"start_time"`
	EndTime   slots.TimeOfDay `json:"end_time"`
	Label     string          `json:"label"`
	Available bool            `json:"available"`
	Reason    string          `json:"reason,omitempty"`
	Capacity  int             `json:"capacity"`
	Remaining int             `json:"remaining"`
}

// DaySlots is the response for one activity-day
type DaySlots struct {
	ActivityID string `json:"activity_id"`
	Date       string `json:"date"`
	Open       bool   `json:"open"`
	Slots      []Slot `json:"slots"`
}

// CheckResult answers a single-slot check
type CheckResult struct {
	ActivityID string           `json:"activity_id"`
	Date       string           `json:"date"`
	StartTime  slots.TimeOfDay  `json:"start_time"`
	EndTime    *slots.TimeOfDay `json:"end_time,omitempty"`
	Available  bool             `json:"available"`
}

// NextDateResult is empty-dated when nothing opens up within the scan horizon
type NextDateResult struct {
	ActivityID string `json:"activity_id"`
	From       string `json:"from"`
	MaxDays    int    `json:"max_days,omitempty"`
	Date       string `json:"date,omitempty"`
	Found      bool   `json:"found"`
}
