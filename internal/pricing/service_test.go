package pricing

import (
	"context"
	"errors"
	"testing"

	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/clock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededService(t *testing.T) (Service, *MemoryRepository) {
	t.Helper()
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.CreatePromo(ctx, &PromoCode{
		Code:          "SAVE20",
		DiscountType:  DiscountPercentage,
		DiscountValue: money("20"),
		MaxDiscount:   decimal.NewNullDecimal(money("50")),
		IsActive:      true,
	}))
	require.NoError(t, repo.CreatePromo(ctx, &PromoCode{
		Code:          "TENOFF",
		DiscountType:  DiscountFixed,
		DiscountValue: money("10"),
		MinimumOrder:  decimal.NewNullDecimal(money("50")),
		IsActive:      true,
	}))
	require.NoError(t, repo.CreateGiftCard(ctx, &GiftCard{
		Code:             "GC-DEMO-5000",
		OriginalValue:    money("50"),
		RemainingBalance: money("50"),
		Status:           GiftCardActive,
		Currency:         "USD",
	}))
	require.NoError(t, repo.CreateGiftCard(ctx, &GiftCard{
		Code:             "GC-HALF-2500",
		OriginalValue:    money("50"),
		RemainingBalance: money("25"),
		Status:           GiftCardPartiallyUsed,
		Currency:         "USD",
	}))
	require.NoError(t, repo.CreateGiftCard(ctx, &GiftCard{
		Code:             "GC-EMPTY",
		OriginalValue:    money("50"),
		RemainingBalance: decimal.Zero,
		Status:           GiftCardFullyUsed,
		Currency:         "USD",
	}))

	return NewService(repo, clock.NewManual(now), "usd"), repo
}

func TestQuote_PromoThenGiftCard(t *testing.T) {
	svc, _ := seededService(t)

	q, err := svc.Quote(context.Background(), QuoteInput{
		Subtotal:     Subtotal(money("25"), 4),
		PromoCode:    "SAVE20",
		GiftCardCode: "GC-DEMO-5000",
	})
	require.NoError(t, err)
	require.Nil(t, q.Err())

	assertMoney(t, "100", q.Subtotal)
	assertMoney(t, "20", q.PromoDiscount)
	assertMoney(t, "80", q.Promo.AmountAfterDiscount)
	assertMoney(t, "50", q.GiftCard.AmountApplied)
	assertMoney(t, "50", q.GiftCardCredit)
	assertMoney(t, "30", q.FinalAmount)
	assert.Equal(t, "USD", q.Currency)
}

func TestApplyGiftCard_PartialBalanceCard(t *testing.T) {
	svc, _ := seededService(t)

	res, err := svc.ApplyGiftCard(context.Background(), "GC-HALF-2500", money("50"), nil)
	require.NoError(t, err)
	require.True(t, res.IsValid)

	assertMoney(t, "25", res.AmountApplied)
	assertMoney(t, "25", res.AmountOwed)
	assertMoney(t, "0", res.RemainingAfter)
	assert.Equal(t, GiftCardPartiallyUsed, res.Status)
}

func TestApplyPromoCode_CaseAndWhitespaceInsensitive(t *testing.T) {
	svc, _ := seededService(t)

	a, err := svc.ApplyPromoCode(context.Background(), " save20 ", money("100"))
	require.NoError(t, err)
	b, err := svc.ApplyPromoCode(context.Background(), "SAVE20", money("100"))
	require.NoError(t, err)

	assert.True(t, a.IsValid)
	assert.Equal(t, "SAVE20", a.Code)
	assert.Equal(t, b.DiscountAmount.String(), a.DiscountAmount.String())
}

func TestApplyPromoCode_StructuredFailures(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	res, err := svc.ApplyPromoCode(ctx, "NOPE", money("100"))
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	require.NotNil(t, res.Error)
	assert.Equal(t, apperrors.CodePromoNotFound, res.Error.Code)
	assertMoney(t, "100", res.AmountAfterDiscount)

	res, err = svc.ApplyPromoCode(ctx, "tenoff", money("40"))
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, apperrors.CodeMinimumNotMet, res.Error.Code)

	_, err = svc.ApplyPromoCode(ctx, "SAVE20", money("-1"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestApplyGiftCard_FullyUsedAndUnknown(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	res, err := svc.ApplyGiftCard(ctx, "gc-empty", money("10"), nil)
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, apperrors.CodeGiftCardFullyUsed, res.Error.Code)
	assertMoney(t, "0", res.AmountApplied)

	res, err = svc.ApplyGiftCard(ctx, "GC-MISSING", money("10"), nil)
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, apperrors.CodeGiftCardNotFound, res.Error.Code)
}

func TestQuote_InvalidPromoStillPricesGiftCard(t *testing.T) {
	svc, _ := seededService(t)

	q, err := svc.Quote(context.Background(), QuoteInput{
		Subtotal:     money("40"),
		PromoCode:    "TENOFF",
		GiftCardCode: "GC-HALF-2500",
	})
	require.NoError(t, err)

	require.NotNil(t, q.Err())
	assert.Equal(t, apperrors.CodeMinimumNotMet, q.Err().Code)
	assertMoney(t, "0", q.PromoDiscount)
	assertMoney(t, "25", q.GiftCardCredit)
	assertMoney(t, "15", q.FinalAmount)
}

func TestQuote_StoreFailurePropagates(t *testing.T) {
	svc, repo := seededService(t)
	repo.Err = errors.New("connection refused")

	_, err := svc.Quote(context.Background(), QuoteInput{Subtotal: money("40"), PromoCode: "SAVE20"})
	require.Error(t, err)
	assert.True(t, apperrors.IsStore(err))
}

func TestRedeemGiftCard(t *testing.T) {
	svc, repo := seededService(t)
	ctx := context.Background()
	reservationID := uuid.New()

	redemption, err := svc.RedeemGiftCard(ctx, "gc-demo-5000", reservationID, money("20"))
	require.NoError(t, err)
	assertMoney(t, "30", redemption.BalanceAfter)
	assert.Equal(t, reservationID, redemption.ReservationID)

	card, err := repo.FindGiftCardByCode(ctx, "GC-DEMO-5000")
	require.NoError(t, err)
	assert.Equal(t, GiftCardPartiallyUsed, card.Status)

	_, err = svc.RedeemGiftCard(ctx, "GC-DEMO-5000", reservationID, money("31"))
	require.Error(t, err)
	var derr *apperrors.DiscountError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, apperrors.CodeGiftCardInsufficient, derr.Code)

	_, err = svc.RedeemGiftCard(ctx, "GC-DEMO-5000", reservationID, money("30"))
	require.NoError(t, err)
	card, _ = repo.FindGiftCardByCode(ctx, "GC-DEMO-5000")
	assert.Equal(t, GiftCardFullyUsed, card.Status)
	assert.Len(t, repo.Redemptions(), 2)
}
