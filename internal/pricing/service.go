package pricing

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/clock"
	"slotify/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service prices orders. Discount failures come back inside the results, never as the
// returned error; the error return is reserved for lookups that could not be made.
type Service interface {
	ApplyPromoCode(ctx context.Context, code string, subtotal decimal.Decimal) (*PromoResult, error)
	ApplyGiftCard(ctx context.Context, code string, amountOwedAfterPromo decimal.Decimal, requested *decimal.Decimal) (*GiftCardResult, error)
	Quote(ctx context.Context, in QuoteInput) (*Quote, error)
	RedeemGiftCard(ctx context.Context, code string, reservationID uuid.UUID, amount decimal.Decimal) (*GiftCardRedemption, error)
}

type service struct {
	repo            Repository
	clock           clock.Clock
	defaultCurrency string
	logger          *logger.Logger
}

func NewService(repo Repository, clk clock.Clock, defaultCurrency string) Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &service{
		repo:            repo,
		clock:           clk,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		logger:          logger.GetDefault(),
	}
}

func (s *service) ApplyPromoCode(ctx context.Context, code string, subtotal decimal.Decimal) (*PromoResult, error) {
	normalized := NormalizeCode(code)
	result := &PromoResult{
		Code:                normalized,
		DiscountAmount:      decimal.Zero,
		AmountAfterDiscount: subtotal,
	}

	if subtotal.IsNegative() {
		return nil, apperrors.Validation("subtotal", "must not be negative")
	}

	promo, err := s.repo.FindPromoByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrPromoNotFound) {
			result.Error = apperrors.NewDiscountError(apperrors.CodePromoNotFound, "promo code not found")
			return result, nil
		}
		return nil, apperrors.Store("find promo code", err)
	}

	result.DiscountType = promo.DiscountType
	discount, derr := PromoDiscount(promo, subtotal, s.clock.Now())
	if derr != nil {
		result.Error = derr
		return result, nil
	}

	result.IsValid = true
	result.DiscountAmount = discount
	result.AmountAfterDiscount = subtotal.Sub(discount)
	return result, nil
}

func (s *service) ApplyGiftCard(ctx context.Context, code string, amountOwedAfterPromo decimal.Decimal, requested *decimal.Decimal) (*GiftCardResult, error) {
	normalized := NormalizeCode(code)
	result := &GiftCardResult{
		Code:           normalized,
		AmountApplied:  decimal.Zero,
		AmountOwed:     decimal.Max(amountOwedAfterPromo, decimal.Zero),
		RemainingAfter: decimal.Zero,
	}

	card, err := s.repo.FindGiftCardByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, ErrGiftCardNotFound) {
			result.Error = apperrors.NewDiscountError(apperrors.CodeGiftCardNotFound, "gift card not found")
			return result, nil
		}
		return nil, apperrors.Store("find gift card", err)
	}

	result.Status = card.Status
	result.RemainingBalance = card.RemainingBalance
	result.RemainingAfter = card.RemainingBalance

	app, derr := ApplyGiftCardBalance(card, amountOwedAfterPromo, requested)
	if derr != nil {
		result.Error = derr
		return result, nil
	}

	result.IsValid = true
	result.AmountApplied = app.AmountApplied
	result.RemainingAfter = app.RemainingAfter
	result.AmountOwed = app.AmountOwed
	return result, nil
}

// Quote applies the promo first, then the gift card against what the promo left owing
func (s *service) Quote(ctx context.Context, in QuoteInput) (*Quote, error) {
	if in.Subtotal.IsNegative() {
		return nil, apperrors.Validation("subtotal", "must not be negative")
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	q := &Quote{
		Subtotal:       in.Subtotal,
		PromoDiscount:  decimal.Zero,
		GiftCardCredit: decimal.Zero,
		Currency:       currency,
	}

	if strings.TrimSpace(in.PromoCode) != "" {
		promo, err := s.ApplyPromoCode(ctx, in.PromoCode, in.Subtotal)
		if err != nil {
			return nil, err
		}
		q.Promo = promo
		if promo.IsValid {
			q.PromoDiscount = promo.DiscountAmount
		}
	}

	if strings.TrimSpace(in.GiftCardCode) != "" {
		owed := in.Subtotal.Sub(q.PromoDiscount)
		gc, err := s.ApplyGiftCard(ctx, in.GiftCardCode, owed, in.GiftCardAmount)
		if err != nil {
			return nil, err
		}
		q.GiftCard = gc
		if gc.IsValid {
			q.GiftCardCredit = gc.AmountApplied
		}
	}

	q.FinalAmount = FinalAmount(q.Subtotal, q.PromoDiscount, q.GiftCardCredit)
	return q, nil
}

// RedeemGiftCard debits the balance for a committed reservation
func (s *service) RedeemGiftCard(ctx context.Context, code string, reservationID uuid.UUID, amount decimal.Decimal) (*GiftCardRedemption, error) {
	if !amount.IsPositive() {
		return nil, apperrors.NewDiscountError(apperrors.CodeNothingOwed, "nothing left to pay with the gift card")
	}

	redemption, err := s.repo.DebitGiftCard(ctx, code, reservationID, amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrGiftCardNotFound):
			return nil, apperrors.NewDiscountError(apperrors.CodeGiftCardNotFound, "gift card not found")
		case errors.Is(err, ErrInsufficientBalance):
			return nil, apperrors.NewDiscountError(apperrors.CodeGiftCardInsufficient, "gift card balance changed, please re-apply it")
		default:
			return nil, apperrors.Store("debit gift card", err)
		}
	}

	s.logger.LogGiftCardRedeemed(ctx, NormalizeCode(code), reservationID.String(),
		redemption.Amount.StringFixed(2), redemption.BalanceAfter.StringFixed(2))
	s.logger.Debug("Gift card ledger entry written", slog.String("redemption_id", redemption.ID.String()))
	return redemption, nil
}
