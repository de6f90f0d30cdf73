package realtime

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScopeKind names what a subscription is keyed on
type ScopeKind string

const (
	ScopeActivity ScopeKind = "activity"
	ScopeVenue    ScopeKind = "venue"
)

// Scope is either a single activity or every activity of a venue
type Scope struct {
	Kind ScopeKind `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func ActivityScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeActivity, ID: id}
}

func VenueScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeVenue, ID: id}
}

func (s Scope) String() string {
	return fmt.Sprintf("%s:%s", s.Kind, s.ID)
}

// EventType is the kind of write that happened
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
	EventDelete EventType = "delete"
)

// Tables that produce availability events
const (
	TableReservations = "reservations"
	TableActivities   = "activities"
)

// Event says "availability may have changed" for a scope. It is a hint to re-fetch,
// never a diff.
type Event struct {
	Table          string    `json:"table"`
	Type           EventType `json:"event_type"`
	ChangedScopeID string    `json:"changed_scope_id"`
	ActivityID     uuid.UUID `json:"activity_id"`
	VenueID        uuid.UUID `json:"venue_id"`
	Date           string    `json:"date,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewActivityEvent builds an event for a write touching one activity
func NewActivityEvent(table string, eventType EventType, activityID, venueID uuid.UUID, date string) Event {
	return Event{
		Table:          table,
		Type:           eventType,
		ChangedScopeID: activityID.String(),
		ActivityID:     activityID,
		VenueID:        venueID,
		Date:           date,
		OccurredAt:     time.Now().UTC(),
	}
}

// Matches reports whether a subscriber on scope should hear about e
func (e Event) Matches(scope Scope) bool {
	switch scope.Kind {
	case ScopeActivity:
		return e.ActivityID == scope.ID
	case ScopeVenue:
		return e.VenueID != uuid.Nil && e.VenueID == scope.ID
	default:
		return false
	}
}

// ConnectionState is the lifecycle of a subscription as seen by a widget
type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateSubscribed ConnectionState = "subscribed"
	StateError      ConnectionState = "error"
	StateTimedOut   ConnectionState = "timed_out"
	StateClosed     ConnectionState = "closed"
)

// IsTerminal reports whether no further events will be delivered in this state
func (s ConnectionState) IsTerminal() bool {
	return s == StateError || s == StateTimedOut || s == StateClosed
}
