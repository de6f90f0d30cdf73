package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports malformed input, keyed by field name
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Validation builds a single-field ValidationError
func Validation(field, message string) *ValidationError {
	v := NewValidationError()
	v.Add(field, message)
	return v
}

func (e *ValidationError) Add(field, message string) {
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// OrNil returns nil when no field failed, so callers can `return verr.OrNil()`
func (e *ValidationError) OrNil() error {
	if e.HasErrors() {
		return e
	}
	return nil
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// FromValidator converts validator/v10 errors into a ValidationError.
// Errors of any other type are returned unchanged.
func FromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := NewValidationError()
	for _, fe := range verrs {
		out.Add(fieldName(fe), describe(fe))
	}
	return out
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// AvailabilityConflict means the requested slot was taken before the write landed
type AvailabilityConflict struct {
	ActivityID string `json:"activity_id"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

func (e *AvailabilityConflict) Error() string {
	return fmt.Sprintf("slot %s %s-%s for activity %s is no longer available", e.Date, e.StartTime, e.EndTime, e.ActivityID)
}

// StoreError wraps a failed storage round trip
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps err as a StoreError, passing through nil and errors that already carry a type
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// PaymentGatewayError carries the gateway's own error unchanged. The reservation it
// belongs to stays pending so payment can be retried against it.
type PaymentGatewayError struct {
	ReservationID string
	Err           error
}

func (e *PaymentGatewayError) Error() string {
	return e.Err.Error()
}

func (e *PaymentGatewayError) Unwrap() error {
	return e.Err
}

// Discount error codes
const (
	CodePromoNotFound        = "promo_not_found"
	CodePromoInactive        = "promo_inactive"
	CodePromoExpired         = "promo_expired"
	CodePromoNotStarted      = "promo_not_started"
	CodeMinimumNotMet        = "minimum_order_not_met"
	CodeGiftCardNotFound     = "gift_card_not_found"
	CodeGiftCardFullyUsed    = "gift_card_fully_used"
	CodeGiftCardInsufficient = "gift_card_insufficient_balance"
	CodeNothingOwed          = "nothing_owed"
)

// DiscountError describes why a promo code or gift card could not be applied
type DiscountError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewDiscountError(code, message string) *DiscountError {
	return &DiscountError{Code: code, Message: message}
}

func (e *DiscountError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAvailabilityConflict(err error) bool {
	var target *AvailabilityConflict
	return errors.As(err, &target)
}

func IsStore(err error) bool {
	var target *StoreError
	return errors.As(err, &target)
}

func IsPaymentGateway(err error) bool {
	var target *PaymentGatewayError
	return errors.As(err, &target)
}

func IsDiscount(err error) bool {
	var target *DiscountError
	return errors.As(err, &target)
}

// HTTPStatus maps an error from the engine onto a response code
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidation(err):
		return http.StatusBadRequest
	case IsAvailabilityConflict(err):
		return http.StatusConflict
	case IsDiscount(err):
		return http.StatusUnprocessableEntity
	case IsPaymentGateway(err):
		return http.StatusBadGateway
	case IsStore(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Details returns the structured part of err suitable for a response body
func Details(err error) interface{} {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	var derr *DiscountError
	if errors.As(err, &derr) {
		return derr
	}
	var conflict *AvailabilityConflict
	if errors.As(err, &conflict) {
		return conflict
	}
	var perr *PaymentGatewayError
	if errors.As(err, &perr) {
		return map[string]string{
			"reservation_id": perr.ReservationID,
			"error":          perr.Err.Error(),
		}
	}
	return err.Error()
}
