package activities

import (
	"time"

	"slotify/internal/slots"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Activity is a bookable, timed experience offered by a venue
type Activity struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	VenueID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"venue_id"`
	Name                string          `gorm:"not null" json:"name"`
	Description         string          `json:"description,omitempty"`
	DurationMinutes     int             `gorm:"not null;check:duration_minutes > 0" json:"duration_minutes"`
	OperatingDays       slots.Weekdays  `gorm:"type:smallint;not null" json:"operating_days"`
	OpenTime            slots.TimeOfDay `gorm:"column:open_minute;not null" json:"open_time"`
	CloseTime           slots.TimeOfDay `gorm:"column:close_minute;not null" json:"close_time"`
	SlotIntervalMinutes int             `gorm:"not null;default:30" json:"slot_interval_minutes"`
	MinPartySize        int             `gorm:"not null;default:1;check:min_party_size > 0" json:"min_party_size"`
	MaxPartySize        int             `gorm:"not null;check:max_party_size >= min_party_size" json:"max_party_size"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Currency            string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	Timezone            string          `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	IsActive            bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	TicketTypes []TicketType `gorm:"foreignKey:ActivityID;constraint:OnDelete:CASCADE;" json:"ticket_types,omitempty"`
}

// TicketType is a priced admission variant, e.g. adult or child
type TicketType struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ActivityID uuid.UUID       `gorm:"type:uuid;index;not null" json:"activity_id"`
	Name       string          `gorm:"not null" json:"name"`
	Price      decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Activity) TableName() string {
	return "activities"
}

func (TicketType) TableName() string {
	return "ticket_types"
}

// Schedule returns the slot-generation view of the activity
func (a *Activity) Schedule() slots.Schedule {
	return slots.Schedule{
		OperatingDays: a.OperatingDays,
		Open:          a.OpenTime,
		Close:         a.CloseTime,
		SlotInterval:  a.SlotIntervalMinutes,
		Duration:      a.DurationMinutes,
	}
}

// Location is the activity's timezone, UTC when unset or unknown
func (a *Activity) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AcceptsPartySize reports whether n is within the configured bounds
func (a *Activity) AcceptsPartySize(n int) bool {
	return n >= a.MinPartySize && n <= a.MaxPartySize
}

// TicketType finds an active ticket type by id
func (a *Activity) TicketType(id uuid.UUID) (*TicketType, bool) {
	for i := range a.TicketTypes {
		if a.TicketTypes[i].ID == id && a.TicketTypes[i].IsActive {
			return &a.TicketTypes[i], true
		}
	}
	return nil, false
}

// UpdateScheduleRequest replaces an activity's operating schedule
type UpdateScheduleRequest struct {
	OperatingDays       slots.Weekdays  `json:"operating_days" binding:"required"`
	OpenTime            slots.TimeOfDay `json:"open_time"`
	CloseTime           slots.TimeOfDay `json:"close_time" binding:"required"`
	SlotIntervalMinutes int             `json:"slot_interval_minutes" binding:"gte=0,lte=1440"`
	DurationMinutes     int             `json:"duration_minutes" binding:"required,gt=0,lte=1440"`
}

func (r UpdateScheduleRequest) Schedule() slots.Schedule {
	return slots.Schedule{
		OperatingDays: r.OperatingDays,
		Open:          r.OpenTime,
		Close:         r.CloseTime,
		SlotInterval:  r.SlotIntervalMinutes,
		Duration:      r.DurationMinutes,
	}
}
