package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentCall records one CreatePaymentIntent call
type IntentCall struct {
	ReservationID uuid.UUID
	Amount        decimal.Decimal
	Currency      string
}

// MockGateway approves everything unless Err is set. Used in development and tests.
type MockGateway struct {
	mu      sync.Mutex
	Err     error
	calls   []IntentCall
	charged map[string]IntentCall
	refunds []Refund
}

func NewMockGateway() *MockGateway {
	return &MockGateway{charged: make(map[string]IntentCall)}
}

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, reservationID uuid.UUID, amount decimal.Decimal, currency string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := IntentCall{ReservationID: reservationID, Amount: amount, Currency: strings.ToUpper(currency)}
	m.calls = append(m.calls, call)
	if m.Err != nil {
		return nil, m.Err
	}

	id := "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	m.charged[id] = call
	return &Intent{
		PaymentIntentID: id,
		ClientSecret:    fmt.Sprintf("%s_secret_%d", id, MinorUnits(amount)),
	}, nil
}

func (m *MockGateway) RequestRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	charge, ok := m.charged[paymentID]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", paymentID)
	}

	refunded := charge.Amount
	if amount != nil {
		if amount.GreaterThan(charge.Amount) {
			return nil, fmt.Errorf("refund amount %s exceeds charge amount %s", amount.StringFixed(2), charge.Amount.StringFixed(2))
		}
		refunded = *amount
	}

	refund := Refund{
		RefundID:        "rf_mock_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		PaymentIntentID: paymentID,
		Amount:          refunded,
		Currency:        charge.Currency,
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	}
	m.refunds = append(m.refunds, refund)
	return &refund, nil
}

// Calls returns every intent request seen so far, failed ones included
func (m *MockGateway) Calls() []IntentCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]IntentCall(nil), m.calls...)
}

func (m *MockGateway) Refunds() []Refund {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Refund(nil), m.refunds...)
}

// SetErr makes subsequent calls fail with err, or succeed again when err is nil
func (m *MockGateway) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}
