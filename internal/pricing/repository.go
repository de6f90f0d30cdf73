package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPromoNotFound       = errors.New("promo code not found")
	ErrGiftCardNotFound    = errors.New("gift card not found")
	ErrInsufficientBalance = errors.New("gift card balance is lower than the requested amount")
)

// Repository looks codes up by their normalized form
type Repository interface {
	FindPromoByCode(ctx context.Context, code string) (*PromoCode, error)
	FindGiftCardByCode(ctx context.Context, code string) (*GiftCard, error)
	// DebitGiftCard atomically reduces the card balance and records the redemption.
	// It returns ErrInsufficientBalance when the balance no longer covers amount.
	DebitGiftCard(ctx context.Context, code string, reservationID uuid.UUID, amount decimal.Decimal) (*GiftCardRedemption, error)
	CreatePromo(ctx context.Context, promo *PromoCode) error
	CreateGiftCard(ctx context.Context, card *GiftCard) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindPromoByCode(ctx context.Context, code string) (*PromoCode, error) {
	var promo PromoCode
	err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&promo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPromoNotFound
		}
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}
	return &promo, nil
}

func (r *repository) FindGiftCardByCode(ctx context.Context, code string) (*GiftCard, error) {
	var card GiftCard
	err := r.db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGiftCardNotFound
		}
		return nil, fmt.Errorf("failed to find gift card: %w", err)
	}
	return &card, nil
}

func (r *repository) DebitGiftCard(ctx context.Context, code string, reservationID uuid.UUID, amount decimal.Decimal) (*GiftCardRedemption, error) {
	var redemption *GiftCardRedemption

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card GiftCard
		result := tx.Model(&card).
			Clauses(clause.Returning{}).
			Where("code = ? AND remaining_balance >= ? AND status <> ?", NormalizeCode(code), amount, GiftCardFullyUsed).
			Updates(map[string]interface{}{
				"remaining_balance": gorm.Expr("remaining_balance - ?", amount),
				"status": gorm.Expr(
					"CASE WHEN remaining_balance - ? <= 0 THEN ? ELSE ? END",
					amount, GiftCardFullyUsed, GiftCardPartiallyUsed,
				),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to debit gift card: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&GiftCard{}).Where("code = ?", NormalizeCode(code)).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check gift card: %w", err)
			}
			if count == 0 {
				return ErrGiftCardNotFound
			}
			return ErrInsufficientBalance
		}

		redemption = &GiftCardRedemption{
			GiftCardID:    card.ID,
			ReservationID: reservationID,
			Amount:        amount,
			BalanceAfter:  card.RemainingBalance,
		}
		if err := tx.Create(redemption).Error; err != nil {
			return fmt.Errorf("failed to record redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redemption, nil
}

func (r *repository) CreatePromo(ctx context.Context, promo *PromoCode) error {
	promo.Code = NormalizeCode(promo.Code)
	if err := r.db.WithContext(ctx).Create(promo).Error; err != nil {
		return fmt.Errorf("failed to create promo code: %w", err)
	}
	return nil
}

func (r *repository) CreateGiftCard(ctx context.Context, card *GiftCard) error {
	card.Code = NormalizeCode(card.Code)
	if err := r.db.WithContext(ctx).Create(card).Error; err != nil {
		return fmt.Errorf("failed to create gift card: %w", err)
	}
	return nil
}
