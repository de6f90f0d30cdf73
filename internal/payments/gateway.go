package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Intent is the gateway's handle for collecting one payment
type Intent struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
}

// Refund is the gateway's record of money returned
type Refund struct {
	RefundID        string          `json:"refund_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Reason          string          `json:"reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Gateway is an external payment processor. Errors are returned as the processor reported them.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, reservationID uuid.UUID, amount decimal.Decimal, currency string) (*Intent, error)
	// RequestRefund returns amount, or the full captured amount when amount is nil
	RequestRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*Refund, error)
}

// MinorUnits converts a two-decimal currency amount to the integer the processors expect
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// FromMinorUnits is the inverse of MinorUnits
func FromMinorUnits(units int64) decimal.Decimal {
	return decimal.New(units, -2)
}
