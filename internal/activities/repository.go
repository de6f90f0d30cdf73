package activities

import (
	"context"
	"errors"
	"fmt"

	"slotify/internal/slots"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("activity not found")

type Repository interface {
	Create(ctx context.Context, activity *Activity) error
	GetByID(ctx context.Context, id uuid.UUID) (*Activity, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Activity, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule slots.Schedule) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, activity *Activity) error {
	if err := r.db.WithContext(ctx).Create(activity).Error; err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Activity, error) {
	var activity Activity
	err := r.db.WithContext(ctx).
		Preload("TicketTypes", "is_active = ?", true).
		Where("id = ?", id).
		First(&activity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}
	return &activity, nil
}

func (r *repository) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Activity, error) {
	var list []Activity
	err := r.db.WithContext(ctx).
		Where("venue_id = ? AND is_active = ?", venueID, true).
		Order("name ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return list, nil
}

func (r *repository) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule slots.Schedule) error {
	result := r.db.WithContext(ctx).
		Model(&Activity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"operating_days":        schedule.OperatingDays,
			"open_minute":           schedule.Open,
			"close_minute":          schedule.Close,
			"slot_interval_minutes": schedule.SlotInterval,
			"duration_minutes":      schedule.Duration,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Activity{}).Where("id = ?", id).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check activity: %w", err)
	}
	return count > 0, nil
}
