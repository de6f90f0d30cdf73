package routes

import (
	"context"

	"slotify/internal/activities"
	"slotify/internal/venues"

	"github.com/google/uuid"
)

// scopeResolver lets the realtime controller validate both subscription scope kinds
type scopeResolver struct {
	activities activities.Service
	venues     venues.Service
}

func (s scopeResolver) ActivityExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.activities.ActivityExists(ctx, id)
}

func (s scopeResolver) VenueExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.venues.VenueExists(ctx, id)
}
