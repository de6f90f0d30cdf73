package pricing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryRepository keeps codes in maps. Used by tests and the in-process demo mode.
type MemoryRepository struct {
	mu          sync.Mutex
	promos      map[string]PromoCode
	giftCards   map[string]GiftCard
	redemptions []GiftCardRedemption
	// Err, when set, is returned by every call
	Err error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		promos:    make(map[string]PromoCode),
		giftCards: make(map[string]GiftCard),
	}
}

func (m *MemoryRepository) FindPromoByCode(_ context.Context, code string) (*PromoCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	promo, ok := m.promos[NormalizeCode(code)]
	if !ok {
		return nil, ErrPromoNotFound
	}
	return &promo, nil
}

func (m *MemoryRepository) FindGiftCardByCode(_ context.Context, code string) (*GiftCard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	card, ok := m.giftCards[NormalizeCode(code)]
	if !ok {
		return nil, ErrGiftCardNotFound
	}
	return &card, nil
}

func (m *MemoryRepository) DebitGiftCard(_ context.Context, code string, reservationID uuid.UUID, amount decimal.Decimal) (*GiftCardRedemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}

	key := NormalizeCode(code)
	card, ok := m.giftCards[key]
	if !ok {
		return nil, ErrGiftCardNotFound
	}
	if card.Status == GiftCardFullyUsed || card.RemainingBalance.LessThan(amount) {
		return nil, ErrInsufficientBalance
	}

	card.RemainingBalance = card.RemainingBalance.Sub(amount)
	if card.RemainingBalance.IsPositive() {
		card.Status = GiftCardPartiallyUsed
	} else {
		card.Status = GiftCardFullyUsed
	}
	card.UpdatedAt = time.Now()
	m.giftCards[key] = card

	redemption := GiftCardRedemption{
		ID:            uuid.New(),
		GiftCardID:    card.ID,
		ReservationID: reservationID,
		Amount:        amount,
		BalanceAfter:  card.RemainingBalance,
		CreatedAt:     card.UpdatedAt,
	}
	m.redemptions = append(m.redemptions, redemption)
	return &redemption, nil
}

func (m *MemoryRepository) CreatePromo(_ context.Context, promo *PromoCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if promo.ID == uuid.Nil {
		promo.ID = uuid.New()
	}
	promo.Code = NormalizeCode(promo.Code)
	m.promos[promo.Code] = *promo
	return nil
}

func (m *MemoryRepository) CreateGiftCard(_ context.Context, card *GiftCard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	card.Code = NormalizeCode(card.Code)
	m.giftCards[card.Code] = *card
	return nil
}

// Redemptions returns a copy of the ledger
func (m *MemoryRepository) Redemptions() []GiftCardRedemption {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GiftCardRedemption(nil), m.redemptions...)
}
