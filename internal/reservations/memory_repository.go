package reservations

import (
	"context"
	"sync"
	"time"

	"slotify/internal/slots"

	"github.com/google/uuid"
)

// MemoryRepository mirrors the database, including the no-overlap constraint on insert
type MemoryRepository struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]Reservation
	order []uuid.UUID
	// ReadErr fails overlap and interval reads; WriteErr fails inserts and updates
	ReadErr  error
	WriteErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]Reservation)}
}

func (m *MemoryRepository) HasOverlap(_ context.Context, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return false, m.ReadErr
	}
	return m.overlapsLocked(uuid.Nil, activityID, date, start, end), nil
}

func (m *MemoryRepository) ActiveIntervals(_ context.Context, activityID uuid.UUID, date time.Time) ([]slots.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}

	day := slots.FormatDate(date)
	var out []slots.Interval
	for _, id := range m.order {
		r := m.byID[id]
		if r.ActivityID == activityID && r.DateString() == day && r.Status.IsActive() {
			out = append(out, r.Interval())
		}
	}
	return out, nil
}

func (m *MemoryRepository) Create(_ context.Context, reservation *Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if reservation.Status.IsActive() &&
		m.overlapsLocked(uuid.Nil, reservation.ActivityID, reservation.BookingDate, reservation.StartTime, reservation.EndTime) {
		return ErrOverlap
	}

	if reservation.ID == uuid.Nil {
		reservation.ID = uuid.New()
	}
	now := time.Now().UTC()
	reservation.CreatedAt = now
	reservation.UpdatedAt = now
	for i := range reservation.Tickets {
		if reservation.Tickets[i].ID == uuid.Nil {
			reservation.Tickets[i].ID = uuid.New()
		}
		reservation.Tickets[i].ReservationID = reservation.ID
	}

	m.byID[reservation.ID] = *reservation
	m.order = append(m.order, reservation.ID)
	return nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	r, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (m *MemoryRepository) UpdateStatus(_ context.Context, id uuid.UUID, from Status, upd StatusUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != from {
		return ErrInvalidTransition
	}

	if upd.Status != nil {
		if !r.Status.IsActive() && upd.Status.IsActive() &&
			m.overlapsLocked(id, r.ActivityID, r.BookingDate, r.StartTime, r.EndTime) {
			return ErrOverlap
		}
		r.Status = *upd.Status
	}
	if upd.PaymentStatus != nil {
		r.PaymentStatus = *upd.PaymentStatus
	}
	if upd.CancelReason != nil {
		reason := *upd.CancelReason
		r.CancelReason = &reason
	}
	if upd.CanceledAt != nil {
		at := *upd.CanceledAt
		r.CanceledAt = &at
	}
	r.UpdatedAt = time.Now().UTC()
	m.byID[id] = r
	return nil
}

func (m *MemoryRepository) AttachPaymentIntent(_ context.Context, id uuid.UUID, intentID, clientSecret string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	r, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	r.PaymentIntentID = &intentID
	r.PaymentClientSecret = &clientSecret
	m.byID[id] = r
	return nil
}

func (m *MemoryRepository) overlapsLocked(skip, activityID uuid.UUID, date time.Time, start, end slots.TimeOfDay) bool {
	day := slots.FormatDate(date)
	for _, id := range m.order {
		if id == skip {
			continue
		}
		r := m.byID[id]
		if r.ActivityID != activityID || r.DateString() != day || !r.Status.IsActive() {
			continue
		}
		if slots.Overlaps(r.StartTime, r.EndTime, start, end) {
			return true
		}
	}
	return false
}
