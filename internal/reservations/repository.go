package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"slotify/internal/slots"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("reservation not found")
	ErrOverlap           = errors.New("reservation overlaps an existing one")
	ErrInvalidTransition = errors.New("invalid reservation status transition")
)

// exclusion_violation, raised by the no-overlap constraint
const pgExclusionViolation = "23P01"

type Repository interface {
	// HasOverlap reports whether a non-canceled reservation intersects [start, end) on date
	HasOverlap(ctx context.Context, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) (bool, error)
	// ActiveIntervals returns the intervals held by non-canceled reservations on date
	ActiveIntervals(ctx context.Context, activityID uuid.UUID, date time.Time) ([]slots.Interval, error)
	Create(ctx context.Context, reservation *Reservation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error)
	// UpdateStatus applies upd only while the reservation is still in status from
	UpdateStatus(ctx context.Context, id uuid.UUID, from Status, upd StatusUpdate) error
	AttachPaymentIntent(ctx context.Context, id uuid.UUID, intentID, clientSecret string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) HasOverlap(ctx context.Context, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) (bool, error) {
	var exists bool
	err := r.db.WithContext(ctx).Raw(`
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE activity_id = ?
			  AND booking_date = ?
			  AND status <> ?
			  AND start_minute < ?
			  AND end_minute > ?
		)`, activityID, slots.FormatDate(date), StatusCanceled, int(end), int(start)).
		Scan(&exists).Error
	if err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return exists, nil
}

func (r *repository) ActiveIntervals(ctx context.Context, activityID uuid.UUID, date time.Time) ([]slots.Interval, error) {
	var rows []struct {
		StartMinute int
		EndMinute   int
	}
	err := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Select("start_minute, end_minute").
		Where("activity_id = ? AND booking_date = ? AND status <> ?", activityID, slots.FormatDate(date), StatusCanceled).
		Order("start_minute ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	intervals := make([]slots.Interval, 0, len(rows))
	for _, row := range rows {
		intervals = append(intervals, slots.Interval{Start: slots.TimeOfDay(row.StartMinute), End: slots.TimeOfDay(row.EndMinute)})
	}
	return intervals, nil
}

func (r *repository) Create(ctx context.Context, reservation *Reservation) error {
	if err := r.db.WithContext(ctx).Create(reservation).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrOverlap
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.WithContext(ctx).
		Preload("Tickets").
		Where("id = ?", id).
		First(&reservation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &reservation, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from Status, upd StatusUpdate) error {
	updates := map[string]interface{}{}
	if upd.Status != nil {
		updates["status"] = *upd.Status
	}
	if upd.PaymentStatus != nil {
		updates["payment_status"] = *upd.PaymentStatus
	}
	if upd.CancelReason != nil {
		updates["cancel_reason"] = *upd.CancelReason
	}
	if upd.CanceledAt != nil {
		updates["canceled_at"] = *upd.CanceledAt
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		var pgErr *pgconn.PgError
		if errors.As(result.Error, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrOverlap
		}
		return fmt.Errorf("failed to update reservation status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&Reservation{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check reservation: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrInvalidTransition
	}
	return nil
}

func (r *repository) AttachPaymentIntent(ctx context.Context, id uuid.UUID, intentID, clientSecret string) error {
	result := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"payment_intent_id":     intentID,
			"payment_client_secret": clientSecret,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to attach payment intent: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
