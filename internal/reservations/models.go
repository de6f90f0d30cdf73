package reservations

import (
	"time"

	"slotify/internal/customers"
	"slotify/internal/pricing"
	"slotify/internal/slots"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reservation is a customer's claim on one slot. Non-canceled reservations of the
// same activity and date never overlap; the database enforces it with an exclusion constraint.
type Reservation struct {
	ID                  uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ActivityID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_reservations_activity_date,priority:1" json:"activity_id"`
	VenueID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"venue_id"`
	CustomerID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"customer_id"`
	BookingDate         time.Time       `gorm:"type:date;not null;index:idx_reservations_activity_date,priority:2" json:"booking_date"`
	StartTime           slots.TimeOfDay `gorm:"column:start_minute;not null" json:"start_time"`
	EndTime             slots.TimeOfDay `gorm:"column:end_minute;not null;check:end_minute > start_minute" json:"end_time"`
	PartySize           int             `gorm:"not null;check:party_size > 0" json:"party_size"`
	Status              Status          `gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending', 'confirmed', 'completed', 'canceled')" json:"status"`
	PaymentStatus       PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending';check:payment_status IN ('pending', 'paid', 'failed', 'refunded')" json:"payment_status"`
	Subtotal            decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"subtotal"`
	PromoCode           *string         `gorm:"type:varchar(64)" json:"promo_code,omitempty"`
	PromoDiscount       decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"promo_discount"`
	GiftCardCode        *string         `gorm:"type:varchar(64)" json:"gift_card_code,omitempty"`
	GiftCardCredit      decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0" json:"gift_card_credit"`
	FinalAmount         decimal.Decimal `gorm:"type:numeric(10,2);not null;check:final_amount >= 0" json:"final_amount"`
	Currency            string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	PaymentIntentID     *string         `gorm:"type:varchar(255);index" json:"payment_intent_id,omitempty"`
	PaymentClientSecret *string         `gorm:"type:text" json:"-"`
	CancelReason        *string         `json:"cancel_reason,omitempty"`
	CanceledAt          *time.Time      `json:"canceled_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	Tickets []ReservationTicket `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE;" json:"tickets,omitempty"`
}

// ReservationTicket is one ticket-type line of a reservation
type ReservationTicket struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ReservationID uuid.UUID       `gorm:"type:uuid;index;not null" json:"reservation_id"`
	TicketTypeID  uuid.UUID       `gorm:"type:uuid;not null" json:"ticket_type_id"`
	Quantity      int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (ReservationTicket) TableName() string {
	return "reservation_tickets"
}

func (r *Reservation) Interval() slots.Interval {
	return slots.Interval{Start: r.StartTime, End: r.EndTime}
}

// DateString is the booking date as YYYY-MM-DD
func (r *Reservation) DateString() string {
	return slots.FormatDate(r.BookingDate)
}

// TicketSelection asks for quantity tickets of one ticket type
type TicketSelection struct {
	TicketTypeID string `json:"ticket_type_id" binding:"required,uuid"`
	Quantity     int    `json:"quantity" binding:"required,gte=1"`
}

// CreateReservationRequest is the body of POST /reservations. Either PartySize or
// Tickets is given; with Tickets the party size is their total quantity.
type CreateReservationRequest struct {
	ActivityID     string            `json:"activity_id" binding:"required,uuid"`
	Date           string            `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime      string            `json:"start_time" binding:"required"`
	PartySize      int               `json:"party_size" binding:"omitempty,gte=1"`
	Tickets        []TicketSelection `json:"tickets" binding:"omitempty,dive"`
	Customer       customers.Contact `json:"customer"`
	PromoCode      string            `json:"promo_code" binding:"omitempty,max=64"`
	GiftCardCode   string            `json:"gift_card_code" binding:"omitempty,max=64"`
	GiftCardAmount *decimal.Decimal  `json:"gift_card_amount,omitempty"`
}

// CreateResult is what the booking widget needs to collect payment
type CreateResult struct {
	ReservationID       uuid.UUID       `json:"reservation_id"`
	Status              Status          `json:"status"`
	PaymentStatus       PaymentStatus   `json:"payment_status"`
	PaymentIntentID     string          `json:"payment_intent_id,omitempty"`
	PaymentClientSecret string          `json:"payment_client_secret,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Quote               *pricing.Quote  `json:"quote,omitempty"`
}

type CancelReservationRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// UpdateStatusRequest is sent by payment-confirmation callbacks
type UpdateStatusRequest struct {
	Status        Status         `json:"status" binding:"required,oneof=pending confirmed completed canceled"`
	PaymentStatus *PaymentStatus `json:"payment_status" binding:"omitempty,oneof=pending paid failed refunded"`
}

type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason" binding:"omitempty,max=500"`
}

// StatusUpdate lists the columns a status change writes; nil fields are left alone
type StatusUpdate struct {
	Status        *Status
	PaymentStatus *PaymentStatus
	CancelReason  *string
	CanceledAt    *time.Time
}
