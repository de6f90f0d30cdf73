package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"slotify/internal/activities"
	"slotify/internal/customers"
	"slotify/internal/payments"
	"slotify/internal/pricing"
	"slotify/internal/realtime"
	"slotify/internal/shared/apperrors"
	"slotify/internal/shared/clock"
	"slotify/internal/slots"
	"slotify/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("slotify/internal/reservations")

type ActivityLookup interface {
	GetActivity(ctx context.Context, id uuid.UUID) (*activities.Activity, error)
}

type CustomerDirectory interface {
	FindOrCreateByEmail(ctx context.Context, contact customers.Contact) (*customers.Customer, error)
}

type Pricer interface {
	Quote(ctx context.Context, in pricing.QuoteInput) (*pricing.Quote, error)
	RedeemGiftCard(ctx context.Context, code string, reservationID uuid.UUID, amount decimal.Decimal) (*pricing.GiftCardRedemption, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

type Service interface {
	// CreateReservationWithPayment commits a pending reservation and requests a payment intent
	// for it. It does not re-check availability; callers do that just before calling.
	CreateReservationWithPayment(ctx context.Context, req CreateReservationRequest) (*CreateResult, error)
	RetryPayment(ctx context.Context, id uuid.UUID) (*CreateResult, error)
	CancelReservation(ctx context.Context, id uuid.UUID, reason string) (*Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uuid.UUID, status Status, paymentStatus *PaymentStatus) (*Reservation, error)
	RequestRefund(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, reason string) (*payments.Refund, error)
	GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error)
}

type Dependencies struct {
	Repo       Repository
	Activities ActivityLookup
	Customers  CustomerDirectory
	Pricing    Pricer
	Gateway    payments.Gateway
	Publisher  EventPublisher
	Clock      clock.Clock
}

type service struct {
	repo       Repository
	activities ActivityLookup
	customers  CustomerDirectory
	pricing    Pricer
	gateway    payments.Gateway
	publisher  EventPublisher
	clock      clock.Clock
	validate   *validator.Validate
	logger     *logger.Logger
}

func NewService(deps Dependencies) Service {
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real{}
	}

	// Same tags gin binds request bodies with
	validate := validator.New()
	validate.SetTagName("binding")

	return &service{
		repo:       deps.Repo,
		activities: deps.Activities,
		customers:  deps.Customers,
		pricing:    deps.Pricing,
		gateway:    deps.Gateway,
		publisher:  deps.Publisher,
		clock:      clk,
		validate:   validate,
		logger:     logger.GetDefault(),
	}
}

// booking is a validated CreateReservationRequest resolved against its activity
type booking struct {
	activity  *activities.Activity
	day       time.Time
	date      string
	interval  slots.Interval
	partySize int
	subtotal  decimal.Decimal
	tickets   []ReservationTicket
}

func (s *service) CreateReservationWithPayment(ctx context.Context, req CreateReservationRequest) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "reservations.CreateReservationWithPayment",
		trace.WithAttributes(
			attribute.String("activity.id", req.ActivityID),
			attribute.String("reservation.date", req.Date),
			attribute.String("reservation.start", req.StartTime),
		))
	defer span.End()

	result, err := s.create(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("reservation.id", result.ReservationID.String()))
	return result, nil
}

func (s *service) create(ctx context.Context, req CreateReservationRequest) (*CreateResult, error) {
	b, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	quote, err := s.pricing.Quote(ctx, pricing.QuoteInput{
		Subtotal:       b.subtotal,
		Currency:       b.activity.Currency,
		PromoCode:      req.PromoCode,
		GiftCardCode:   req.GiftCardCode,
		GiftCardAmount: req.GiftCardAmount,
	})
	if err != nil {
		return nil, err
	}
	if derr := quote.Err(); derr != nil {
		return nil, derr
	}

	customer, err := s.customers.FindOrCreateByEmail(ctx, req.Customer)
	if err != nil {
		return nil, apperrors.Store("find or create customer", err)
	}

	reservation := &Reservation{
		ActivityID:     b.activity.ID,
		VenueID:        b.activity.VenueID,
		CustomerID:     customer.ID,
		BookingDate:    b.day,
		StartTime:      b.interval.Start,
		EndTime:        b.interval.End,
		PartySize:      b.partySize,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		Subtotal:       quote.Subtotal,
		PromoDiscount:  quote.PromoDiscount,
		GiftCardCredit: quote.GiftCardCredit,
		FinalAmount:    quote.FinalAmount,
		Currency:       quote.Currency,
		Tickets:        b.tickets,
	}
	if quote.Promo != nil {
		reservation.PromoCode = &quote.Promo.Code
	}
	if quote.GiftCard != nil {
		reservation.GiftCardCode = &quote.GiftCard.Code
	}

	if err := s.repo.Create(ctx, reservation); err != nil {
		if errors.Is(err, ErrOverlap) {
			return nil, &apperrors.AvailabilityConflict{
				ActivityID: b.activity.ID.String(),
				Date:       b.date,
				StartTime:  b.interval.Start.String(),
				EndTime:    b.interval.End.String(),
			}
		}
		return nil, apperrors.Store("create reservation", err)
	}

	if quote.GiftCardCredit.IsPositive() {
		if _, err := s.pricing.RedeemGiftCard(ctx, quote.GiftCard.Code, reservation.ID, quote.GiftCardCredit); err != nil {
			s.release(ctx, reservation, "gift card redemption failed")
			return nil, err
		}
	}

	s.publish(ctx, reservation, realtime.EventInsert)
	s.logger.LogReservationCreated(ctx, reservation.ID.String(), reservation.ActivityID.String(), b.date,
		reservation.StartTime.String(), reservation.EndTime.String(), reservation.FinalAmount.StringFixed(2))

	result := &CreateResult{
		ReservationID: reservation.ID,
		Status:        reservation.Status,
		PaymentStatus: reservation.PaymentStatus,
		Amount:        reservation.FinalAmount,
		Currency:      reservation.Currency,
		Quote:         quote,
	}

	if !reservation.FinalAmount.IsPositive() {
		return s.confirmWithoutPayment(ctx, reservation, result)
	}

	return s.requestPayment(ctx, reservation, result)
}

// resolve validates req and binds it to the activity's schedule and prices
func (s *service) resolve(ctx context.Context, req CreateReservationRequest) (*booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, apperrors.FromValidator(err)
	}

	verr := apperrors.NewValidationError()
	activityID, err := uuid.Parse(req.ActivityID)
	if err != nil {
		verr.Add("activity_id", "must be a valid UUID")
	}
	date, err := slots.ParseDate(req.Date)
	if err != nil {
		verr.Add("date", err.Error())
	}
	start, err := slots.ParseTimeOfDay(req.StartTime)
	if err != nil {
		verr.Add("start_time", err.Error())
	}
	if req.PartySize == 0 && len(req.Tickets) == 0 {
		verr.Add("party_size", "is required when no tickets are selected")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	activity, err := s.activities.GetActivity(ctx, activityID)
	if err != nil {
		if errors.Is(err, activities.ErrNotFound) {
			return nil, apperrors.Validation("activity_id", "activity not found")
		}
		return nil, apperrors.Store("get activity", err)
	}
	if !activity.IsActive {
		return nil, apperrors.Validation("activity_id", "activity is not bookable")
	}

	b := &booking{activity: activity, day: date, date: slots.FormatDate(date)}

	if len(req.Tickets) > 0 {
		lines := make([]pricing.Line, 0, len(req.Tickets))
		for i, sel := range req.Tickets {
			field := fmt.Sprintf("tickets[%d].ticket_type_id", i)
			tid, err := uuid.Parse(sel.TicketTypeID)
			if err != nil {
				return nil, apperrors.Validation(field, "must be a valid UUID")
			}
			tt, ok := activity.TicketType(tid)
			if !ok {
				return nil, apperrors.Validation(field, "unknown ticket type for this activity")
			}
			lines = append(lines, pricing.Line{UnitPrice: tt.Price, Quantity: sel.Quantity})
			b.tickets = append(b.tickets, ReservationTicket{TicketTypeID: tid, Quantity: sel.Quantity, UnitPrice: tt.Price})
			b.partySize += sel.Quantity
		}
		b.subtotal = pricing.SubtotalOf(lines)
	} else {
		b.partySize = req.PartySize
		b.subtotal = pricing.Subtotal(activity.UnitPrice, req.PartySize)
	}

	if !activity.AcceptsPartySize(b.partySize) {
		return nil, apperrors.Validation("party_size",
			fmt.Sprintf("must be between %d and %d", activity.MinPartySize, activity.MaxPartySize))
	}

	interval, ok := slots.CandidateAt(activity.Schedule(), date, start)
	if !ok {
		return nil, apperrors.Validation("start_time", "is not a bookable slot for this activity on that date")
	}
	b.interval = interval

	now := s.clock.Now().In(activity.Location())
	if slots.IsDateInPast(date, now) || slots.IsTimeInPastForToday(date, interval.Start, now) {
		return nil, apperrors.Validation("start_time", "is in the past")
	}

	return b, nil
}

func (s *service) confirmWithoutPayment(ctx context.Context, reservation *Reservation, result *CreateResult) (*CreateResult, error) {
	confirmed, paid := StatusConfirmed, PaymentPaid
	err := s.repo.UpdateStatus(ctx, reservation.ID, StatusPending, StatusUpdate{Status: &confirmed, PaymentStatus: &paid})
	if err != nil {
		return nil, apperrors.Store("confirm reservation", err)
	}

	s.publish(ctx, reservation, realtime.EventUpdate)
	s.logger.LogReservationStatusChanged(ctx, reservation.ID.String(), string(StatusPending), string(confirmed), string(paid))

	result.Status = confirmed
	result.PaymentStatus = paid
	return result, nil
}

// requestPayment leaves the reservation pending when the gateway fails so payment can be retried
func (s *service) requestPayment(ctx context.Context, reservation *Reservation, result *CreateResult) (*CreateResult, error) {
	intent, err := s.gateway.CreatePaymentIntent(ctx, reservation.ID, reservation.FinalAmount, reservation.Currency)
	if err != nil {
		s.logger.LogPaymentIntentFailed(ctx, reservation.ID.String(), err)
		return nil, &apperrors.PaymentGatewayError{ReservationID: reservation.ID.String(), Err: err}
	}

	if err := s.repo.AttachPaymentIntent(ctx, reservation.ID, intent.PaymentIntentID, intent.ClientSecret); err != nil {
		return nil, apperrors.Store("attach payment intent", err)
	}

	result.PaymentIntentID = intent.PaymentIntentID
	result.PaymentClientSecret = intent.ClientSecret
	return result, nil
}

func (s *service) RetryPayment(ctx context.Context, id uuid.UUID) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "reservations.RetryPayment", trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer span.End()

	reservation, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.Status != StatusPending || reservation.PaymentStatus == PaymentPaid {
		return nil, fmt.Errorf("%w: payment can only be retried for pending reservations", ErrInvalidTransition)
	}

	result := &CreateResult{
		ReservationID: reservation.ID,
		Status:        reservation.Status,
		PaymentStatus: reservation.PaymentStatus,
		Amount:        reservation.FinalAmount,
		Currency:      reservation.Currency,
	}
	if !reservation.FinalAmount.IsPositive() {
		return s.confirmWithoutPayment(ctx, reservation, result)
	}

	result, err = s.requestPayment(ctx, reservation, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return result, err
}

// CancelReservation frees the slot immediately; canceled rows drop out of the overlap query
func (s *service) CancelReservation(ctx context.Context, id uuid.UUID, reason string) (*Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservations.CancelReservation", trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer span.End()

	reservation, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reservation.Status.CanTransitionTo(StatusCanceled) {
		return nil, fmt.Errorf("%w: %s reservations cannot be canceled", ErrInvalidTransition, reservation.Status)
	}
	if reservation.Status == StatusCanceled {
		return reservation, nil
	}

	if err := s.cancel(ctx, reservation, strings.TrimSpace(reason)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return s.GetReservation(ctx, id)
}

func (s *service) cancel(ctx context.Context, reservation *Reservation, reason string) error {
	canceled := StatusCanceled
	now := s.clock.Now().UTC()
	upd := StatusUpdate{Status: &canceled, CanceledAt: &now}
	if reason != "" {
		upd.CancelReason = &reason
	}

	if err := s.repo.UpdateStatus(ctx, reservation.ID, reservation.Status, upd); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return err
		}
		return apperrors.Store("cancel reservation", err)
	}

	s.publish(ctx, reservation, realtime.EventUpdate)
	s.logger.LogReservationCanceled(ctx, reservation.ID.String(), reservation.ActivityID.String(), reason)
	return nil
}

// release cancels a reservation whose follow-up write failed, so it does not hold the slot
func (s *service) release(ctx context.Context, reservation *Reservation, reason string) {
	if err := s.cancel(ctx, reservation, reason); err != nil {
		s.logger.ErrorContext(ctx, "Failed to release reservation",
			"reservation_id", reservation.ID.String(), "error", err.Error())
	}
}

func (s *service) UpdateReservationStatus(ctx context.Context, id uuid.UUID, status Status, paymentStatus *PaymentStatus) (*Reservation, error) {
	ctx, span := tracer.Start(ctx, "reservations.UpdateReservationStatus",
		trace.WithAttributes(attribute.String("reservation.id", id.String()), attribute.String("reservation.status", string(status))))
	defer span.End()

	if !status.IsValid() {
		return nil, apperrors.Validation("status", "must be one of [pending confirmed completed canceled]")
	}
	if paymentStatus != nil && !paymentStatus.IsValid() {
		return nil, apperrors.Validation("payment_status", "must be one of [pending paid failed refunded]")
	}

	reservation, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if !reservation.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, reservation.Status, status)
	}

	upd := StatusUpdate{Status: &status, PaymentStatus: paymentStatus}
	if status == StatusCanceled && reservation.Status != StatusCanceled {
		now := s.clock.Now().UTC()
		upd.CanceledAt = &now
	}
	if err := s.repo.UpdateStatus(ctx, id, reservation.Status, upd); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		span.RecordError(err)
		return nil, apperrors.Store("update reservation status", err)
	}

	if status != reservation.Status {
		s.publish(ctx, reservation, realtime.EventUpdate)
	}
	ps := reservation.PaymentStatus
	if paymentStatus != nil {
		ps = *paymentStatus
	}
	s.logger.LogReservationStatusChanged(ctx, id.String(), string(reservation.Status), string(status), string(ps))

	return s.GetReservation(ctx, id)
}

// RequestRefund refunds a paid reservation through the gateway and marks it refunded
func (s *service) RequestRefund(ctx context.Context, id uuid.UUID, amount *decimal.Decimal, reason string) (*payments.Refund, error) {
	ctx, span := tracer.Start(ctx, "reservations.RequestRefund", trace.WithAttributes(attribute.String("reservation.id", id.String())))
	defer span.End()

	reservation, err := s.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.PaymentStatus != PaymentPaid || reservation.PaymentIntentID == nil {
		return nil, fmt.Errorf("%w: only paid reservations can be refunded", ErrInvalidTransition)
	}
	if amount != nil && (!amount.IsPositive() || amount.GreaterThan(reservation.FinalAmount)) {
		return nil, apperrors.Validation("amount", "must be positive and no more than the amount paid")
	}

	refund, err := s.gateway.RequestRefund(ctx, *reservation.PaymentIntentID, amount, reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &apperrors.PaymentGatewayError{ReservationID: id.String(), Err: err}
	}

	refunded := PaymentRefunded
	if err := s.repo.UpdateStatus(ctx, id, reservation.Status, StatusUpdate{PaymentStatus: &refunded}); err != nil {
		return nil, apperrors.Store("mark reservation refunded", err)
	}
	s.logger.LogReservationStatusChanged(ctx, id.String(), string(reservation.Status), string(reservation.Status), string(refunded))

	return refund, nil
}

func (s *service) GetReservation(ctx context.Context, id uuid.UUID) (*Reservation, error) {
	reservation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, apperrors.Store("get reservation", err)
	}
	return reservation, nil
}

func (s *service) publish(ctx context.Context, reservation *Reservation, eventType realtime.EventType) {
	if s.publisher == nil {
		return
	}
	event := realtime.NewActivityEvent(realtime.TableReservations, eventType,
		reservation.ActivityID, reservation.VenueID, reservation.DateString())
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish reservation change",
			"reservation_id", reservation.ID.String(), "error", err.Error())
	}
}
