package pricing

import (
	"strings"
	"time"

	"slotify/internal/shared/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

func (d DiscountType) IsValid() bool {
	return d == DiscountPercentage || d == DiscountFixed
}

type GiftCardStatus string

const (
	GiftCardActive        GiftCardStatus = "active"
	GiftCardPartiallyUsed GiftCardStatus = "partially_used"
	GiftCardFullyUsed     GiftCardStatus = "fully_used"
)

// PromoCode is a percentage or fixed discount. Codes are stored normalized.
type PromoCode struct {
	ID            uuid.UUID           `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code          string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Description   string              `json:"description,omitempty"`
	DiscountType  DiscountType        `gorm:"type:varchar(20);not null;check:discount_type IN ('percentage', 'fixed')" json:"discount_type"`
	DiscountValue decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"discount_value"`
	MinimumOrder  decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"minimum_order"`
	MaxDiscount   decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"max_discount"`
	IsActive      bool                `gorm:"not null;default:true" json:"is_active"`
	ValidFrom     *time.Time          `json:"valid_from,omitempty"`
	ValidUntil    *time.Time          `json:"valid_until,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// GiftCard is stored value redeemable across several orders
type GiftCard struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Code             string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	OriginalValue    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"original_value"`
	RemainingBalance decimal.Decimal `gorm:"type:numeric(10,2);not null;check:remaining_balance >= 0" json:"remaining_balance"`
	Status           GiftCardStatus  `gorm:"type:varchar(20);not null;default:'active';check:status IN ('active', 'partially_used', 'fully_used')" json:"status"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// GiftCardRedemption is the ledger row written for every balance debit
type GiftCardRedemption struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	GiftCardID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"gift_card_id"`
	ReservationID uuid.UUID       `gorm:"type:uuid;index;not null" json:"reservation_id"`
	Amount        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	BalanceAfter  decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"balance_after"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (PromoCode) TableName() string {
	return "promo_codes"
}

func (GiftCard) TableName() string {
	return "gift_cards"
}

func (GiftCardRedemption) TableName() string {
	return "gift_card_redemptions"
}

// NormalizeCode trims whitespace and case-folds, so " save20 " and "SAVE20" match
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// StatusForBalance derives a card's status from its balance
func StatusForBalance(original, remaining decimal.Decimal) GiftCardStatus {
	switch {
	case !remaining.IsPositive():
		return GiftCardFullyUsed
	case remaining.LessThan(original):
		return GiftCardPartiallyUsed
	default:
		return GiftCardActive
	}
}

// PromoResult is the structured outcome of applying a promo code
type PromoResult struct {
	IsValid             bool                     `json:"is_valid"`
	Code                string                   `json:"code"`
	DiscountType        DiscountType             `json:"discount_type,omitempty"`
	DiscountAmount      decimal.Decimal          `json:"discount_amount"`
	AmountAfterDiscount decimal.Decimal          `json:"amount_after_discount"`
	Error               *apperrors.DiscountError `json:"error,omitempty"`
}

// GiftCardResult is the structured outcome of applying a gift card
type GiftCardResult struct {
	IsValid          bool                     `json:"is_valid"`
	Code             string                   `json:"code"`
	AmountApplied    decimal.Decimal          `json:"amount_applied"`
	RemainingBalance decimal.Decimal          `json:"remaining_balance"`
	RemainingAfter   decimal.Decimal          `json:"remaining_after"`
	AmountOwed       decimal.Decimal          `json:"amount_owed"`
	Status           GiftCardStatus           `json:"status,omitempty"`
	Error            *apperrors.DiscountError `json:"error,omitempty"`
}

// QuoteInput describes an order to price
type QuoteInput struct {
	Subtotal       decimal.Decimal
	Currency       string
	PromoCode      string
	GiftCardCode   string
	GiftCardAmount *decimal.Decimal
}

// Quote is the fully priced order
type Quote struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	PromoDiscount  decimal.Decimal `json:"promo_discount"`
	GiftCardCredit decimal.Decimal `json:"gift_card_credit"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	Currency       string          `json:"currency"`
	Promo          *PromoResult    `json:"promo,omitempty"`
	GiftCard       *GiftCardResult `json:"gift_card,omitempty"`
}

// Err returns the first discount instrument that failed to apply
func (q *Quote) Err() *apperrors.DiscountError {
	if q.Promo != nil && !q.Promo.IsValid {
		return q.Promo.Error
	}
	if q.GiftCard != nil && !q.GiftCard.IsValid {
		return q.GiftCard.Error
	}
	return nil
}

// PromoCodeRequest is the body of POST /pricing/promo
type PromoCodeRequest struct {
	Code     string          `json:"code" binding:"required,max=64"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// GiftCardRequest is the body of POST /pricing/gift-card
type GiftCardRequest struct {
	Code                 string           `json:"code" binding:"required,max=64"`
	AmountOwedAfterPromo decimal.Decimal  `json:"amount_owed_after_promo"`
	RequestedAmount      *decimal.Decimal `json:"requested_amount,omitempty"`
}

// QuoteRequest is the body of POST /pricing/quote
type QuoteRequest struct {
	Subtotal       decimal.Decimal  `json:"subtotal"`
	Currency       string           `json:"currency" binding:"omitempty,len=3"`
	PromoCode      string           `json:"promo_code" binding:"omitempty,max=64"`
	GiftCardCode   string           `json:"gift_card_code" binding:"omitempty,max=64"`
	GiftCardAmount *decimal.Decimal `json:"gift_card_amount,omitempty"`
}
