package pricing

import (
	"fmt"
	"time"

	"slotify/internal/shared/apperrors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Line is one priced line of an order
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal is unitPrice × partySize
func Subtotal(unitPrice decimal.Decimal, partySize int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(partySize)))
}

// SubtotalOf sums lines, for orders made of several ticket types
func SubtotalOf(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(Subtotal(l.UnitPrice, l.Quantity))
	}
	return total
}

// PromoDiscount computes the discount promo grants on subtotal at now.
// The discount is clamped to [0, subtotal] whatever the promo's configuration.
func PromoDiscount(promo *PromoCode, subtotal decimal.Decimal, now time.Time) (decimal.Decimal, *apperrors.DiscountError) {
	if !promo.IsActive {
		return decimal.Zero, apperrors.NewDiscountError(apperrors.CodePromoInactive, "promo code is no longer active")
	}
	if promo.ValidFrom != nil && now.Before(*promo.ValidFrom) {
		return decimal.Zero, apperrors.NewDiscountError(apperrors.CodePromoNotStarted, "promo code is not valid yet")
	}
	if promo.ValidUntil != nil && now.After(*promo.ValidUntil) {
		return decimal.Zero, apperrors.NewDiscountError(apperrors.CodePromoExpired, "promo code has expired")
	}
	if promo.MinimumOrder.Valid && subtotal.LessThan(promo.MinimumOrder.Decimal) {
		return decimal.Zero, apperrors.NewDiscountError(apperrors.CodeMinimumNotMet,
			fmt.Sprintf("order must be at least %s to use this code", promo.MinimumOrder.Decimal.StringFixed(2)))
	}

	var discount decimal.Decimal
	switch promo.DiscountType {
	case DiscountPercentage:
		discount = subtotal.Mul(promo.DiscountValue).Div(hundred)
		if promo.MaxDiscount.Valid && discount.GreaterThan(promo.MaxDiscount.Decimal) {
			discount = promo.MaxDiscount.Decimal
		}
	case DiscountFixed:
		discount = promo.DiscountValue
	default:
		return decimal.Zero, apperrors.NewDiscountError(apperrors.CodePromoInactive, "promo code has an unknown discount type")
	}

	return clamp(discount.Round(2), decimal.Zero, subtotal), nil
}

// GiftCardApplication is the arithmetic of applying a gift card
type GiftCardApplication struct {
	AmountApplied  decimal.Decimal
	RemainingAfter decimal.Decimal
	AmountOwed     decimal.Decimal
}

// ApplyGiftCardBalance applies card against the amount still owed after the promo.
// requested, when set, caps how much of the balance to use.
func ApplyGiftCardBalance(card *GiftCard, owedAfterPromo decimal.Decimal, requested *decimal.Decimal) (GiftCardApplication, *apperrors.DiscountError) {
	if card.Status == GiftCardFullyUsed || !card.RemainingBalance.IsPositive() {
		return GiftCardApplication{}, apperrors.NewDiscountError(apperrors.CodeGiftCardFullyUsed, "gift card has been fully used")
	}

	owed := decimal.Max(owedAfterPromo, decimal.Zero)
	applied := decimal.Min(card.RemainingBalance, owed)
	if requested != nil {
		applied = decimal.Min(applied, decimal.Max(*requested, decimal.Zero))
	}

	return GiftCardApplication{
		AmountApplied:  applied,
		RemainingAfter: card.RemainingBalance.Sub(applied),
		AmountOwed:     owed.Sub(applied),
	}, nil
}

// FinalAmount is max(0, subtotal − promoDiscount − giftCardCredit)
func FinalAmount(subtotal, promoDiscount, giftCardCredit decimal.Decimal) decimal.Decimal {
	return decimal.Max(subtotal.Sub(promoDiscount).Sub(giftCardCredit), decimal.Zero)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
