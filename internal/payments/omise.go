package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
	"github.com/shopspring/decimal"
)

// offsite source types and the one currency Omise accepts each in
var omiseSourceCurrencies = map[string]string{
	"promptpay":  "THB",
	"paynow":     "SGD",
	"duitnow_qr": "MYR",
}

type OmiseConfig struct {
	PublicKey  string
	SecretKey  string
	SourceType string
	Currency   string
	ReturnURI  string
}

// omiseSourceType resolves the source type for a currency. An empty source type
// picks the one matching the currency.
func omiseSourceType(sourceType, currency string) (string, error) {
	currency = strings.ToUpper(currency)
	if sourceType == "" {
		for st, cur := range omiseSourceCurrencies {
			if cur == currency {
				return st, nil
			}
		}
		return "", fmt.Errorf("no default omise source type for currency %s, set OMISE_SOURCE_TYPE", currency)
	}

	sourceType = strings.ToLower(sourceType)
	if cur, ok := omiseSourceCurrencies[sourceType]; ok && cur != currency {
		return "", fmt.Errorf("omise source type %s only accepts %s, got %s", sourceType, cur, currency)
	}
	return sourceType, nil
}

// OmiseGateway creates a payment source and a charge against it. The charge's authorize
// URI is what the payment element needs, so it is handed back as the client secret.
type OmiseGateway struct {
	client     *omise.Client
	sourceType string
	returnURI  string
}

func NewOmiseGateway(cfg OmiseConfig) (*OmiseGateway, error) {
	sourceType, err := omiseSourceType(cfg.SourceType, cfg.Currency)
	if err != nil {
		return nil, err
	}

	client, err := omise.NewClient(cfg.PublicKey, cfg.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create omise client: %w", err)
	}
	client.SetDebug(false)

	return &OmiseGateway{
		client:     client,
		sourceType: sourceType,
		returnURI:  cfg.ReturnURI,
	}, nil
}

func (g *OmiseGateway) CreatePaymentIntent(ctx context.Context, reservationID uuid.UUID, amount decimal.Decimal, currency string) (*Intent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	units := MinorUnits(amount)
	currency = strings.ToLower(currency)

	source := &omise.Source{}
	if err := g.client.Do(source, &operations.CreateSource{
		Type:     g.sourceType,
		Amount:   units,
		Currency: currency,
	}); err != nil {
		return nil, err
	}

	charge := &omise.Charge{}
	if err := g.client.Do(charge, &operations.CreateCharge{
		Amount:      units,
		Currency:    currency,
		Source:      source.ID,
		ReturnURI:   g.returnURI,
		Description: "Reservation " + reservationID.String(),
		Metadata:    map[string]interface{}{"reservation_id": reservationID.String()},
	}); err != nil {
		return nil, err
	}

	secret := charge.AuthorizeURI
	if secret == "" {
		secret = source.ID
	}
	return &Intent{PaymentIntentID: charge.ID, ClientSecret: secret}, nil
}

func (g *OmiseGateway) RequestRefund(ctx context.Context, paymentID string, amount *decimal.Decimal, reason string) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var units int64
	if amount != nil {
		units = MinorUnits(*amount)
	} else {
		charge := &omise.Charge{}
		if err := g.client.Do(charge, &operations.RetrieveCharge{ChargeID: paymentID}); err != nil {
			return nil, err
		}
		units = charge.Amount
	}

	refund := &omise.Refund{}
	if err := g.client.Do(refund, &operations.CreateRefund{ChargeID: paymentID, Amount: units}); err != nil {
		return nil, err
	}

	return &Refund{
		RefundID:        refund.ID,
		PaymentIntentID: paymentID,
		Amount:          FromMinorUnits(refund.Amount),
		Currency:        strings.ToUpper(refund.Currency),
		Reason:          reason,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
