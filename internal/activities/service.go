package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"slotify/internal/realtime"
	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/constants"
	"slotify/pkg/cache"
	"slotify/pkg/logger"

	"github.com/google/uuid"
)

// EventPublisher is the part of the realtime bus this package needs
type EventPublisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

type Service interface {
	GetActivity(ctx context.Context, id uuid.UUID) (*Activity, error)
	ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Activity, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, req UpdateScheduleRequest) (*Activity, error)
	ActivityExists(ctx context.Context, id uuid.UUID) (bool, error)
	SetCacheService(cacheService cache.Service)
}

type service struct {
	repo         Repository
	publisher    EventPublisher
	cacheService cache.Service
	logger       *logger.Logger
}

func NewService(repo Repository, publisher EventPublisher) Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.GetDefault(),
	}
}

// SetCacheService enables read-through caching of activity details
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) GetActivity(ctx context.Context, id uuid.UUID) (*Activity, error) {
	cacheKey := constants.BuildActivityDetailKey(id.String())

	if s.cacheService != nil {
		var cached Activity
		err := s.cacheService.Get(ctx, cacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Activity cache read failed", slog.String("activity_id", id.String()), slog.String("error", err.Error()))
		}
	}

	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheService != nil {
		if err := s.cacheService.Set(ctx, cacheKey, activity, constants.TTL_ACTIVITY_DETAIL); err != nil {
			s.logger.Warn("Activity cache write failed", slog.String("activity_id", id.String()), slog.String("error", err.Error()))
		}
	}

	return activity, nil
}

func (s *service) ListByVenue(ctx context.Context, venueID uuid.UUID) ([]Activity, error) {
	return s.repo.ListByVenue(ctx, venueID)
}

func (s *service) ActivityExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// UpdateSchedule replaces the operating schedule and tells live widgets to refetch
func (s *service) UpdateSchedule(ctx context.Context, id uuid.UUID, req UpdateScheduleRequest) (*Activity, error) {
	schedule := req.Schedule()
	if err := schedule.Validate(); err != nil {
		return nil, apperrors.Validation("schedule", err.Error())
	}

	if err := s.repo.UpdateSchedule(ctx, id, schedule); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, id)

	activity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload activity: %w", err)
	}

	if s.publisher != nil {
		event := realtime.NewActivityEvent(realtime.TableActivities, realtime.EventUpdate, activity.ID, activity.VenueID, "")
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish schedule change", slog.String("activity_id", id.String()), slog.String("error", err.Error()))
		}
	}

	s.logger.InfoContext(ctx, "Activity schedule updated",
		slog.String("activity_id", id.String()),
		slog.String("open", schedule.Open.String()),
		slog.String("close", schedule.Close.String()),
	)
	return activity, nil
}

func (s *service) invalidateCache(ctx context.Context, id uuid.UUID) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildActivityDetailKey(id.String())); err != nil {
		s.logger.Warn("Activity cache invalidation failed", slog.String("activity_id", id.String()), slog.String("error", err.Error()))
	}
}
