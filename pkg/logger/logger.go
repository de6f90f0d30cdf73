package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// New creates a new logger instance
func New() *Logger {
	// Get log level from environment
	level := getLogLevel(os.Getenv("LOG_LEVEL"))

	// Create handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Create handler based on environment
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		// Use text handler for development (more readable)
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		// Use JSON handler for production (structured)
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	// Create logger
	logger := slog.New(handler)

	return &Logger{
		Logger: logger,
	}
}

// getLogLevel converts string to slog.Level
func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("request_id", requestID)),
	}
}

// WithActivityID scopes the logger to one activity
func (l *Logger) WithActivityID(activityID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("activity_id", activityID)),
	}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{
		Logger: l.Logger.With(slog.String("error", err.Error())),
	}
}

// WithFields adds multiple fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// HTTP logging methods

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("user_agent", c.Request.UserAgent()),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("ip", c.ClientIP()),
	)
}

// Reservation logging methods

// LogReservationCreated logs a committed reservation
func (l *Logger) LogReservationCreated(ctx context.Context, reservationID, activityID, date, start, end, amount string) {
	l.Logger.InfoContext(ctx,
		"Reservation Created",
		slog.String("reservation_id", reservationID),
		slog.String("activity_id", activityID),
		slog.String("date", date),
		slog.String("start", start),
		slog.String("end", end),
		slog.String("amount", amount),
	)
}

// LogReservationCanceled logs a cancellation, which frees the slot
func (l *Logger) LogReservationCanceled(ctx context.Context, reservationID, activityID, reason string) {
	l.Logger.InfoContext(ctx,
		"Reservation Canceled",
		slog.String("reservation_id", reservationID),
		slog.String("activity_id", activityID),
		slog.String("reason", reason),
	)
}

// LogReservationStatusChanged logs a status or payment-status transition
func (l *Logger) LogReservationStatusChanged(ctx context.Context, reservationID, from, to, paymentStatus string) {
	l.Logger.InfoContext(ctx,
		"Reservation Status Changed",
		slog.String("reservation_id", reservationID),
		slog.String("from", from),
		slog.String("to", to),
		slog.String("payment_status", paymentStatus),
	)
}

// LogPaymentIntentFailed logs a gateway failure. The reservation stays pending.
func (l *Logger) LogPaymentIntentFailed(ctx context.Context, reservationID string, err error) {
	l.Logger.ErrorContext(ctx,
		"Payment Intent Failed",
		slog.String("reservation_id", reservationID),
		slog.String("error", err.Error()),
	)
}

// LogGiftCardRedeemed logs a gift card debit
func (l *Logger) LogGiftCardRedeemed(ctx context.Context, code, reservationID, amount, balanceAfter string) {
	l.Logger.InfoContext(ctx,
		"Gift Card Redeemed",
		slog.String("code", code),
		slog.String("reservation_id", reservationID),
		slog.String("amount", amount),
		slog.String("balance_after", balanceAfter),
	)
}

// Availability logging methods

// LogAvailabilityDegraded logs a failed availability read that was answered as "unavailable"
func (l *Logger) LogAvailabilityDegraded(ctx context.Context, activityID, date string, err error) {
	l.Logger.WarnContext(ctx,
		"Availability Read Failed, Reporting Unavailable",
		slog.String("activity_id", activityID),
		slog.String("date", date),
		slog.String("error", err.Error()),
	)
}

// LogBusDelivery logs one debounced notification handed to a subscriber
func (l *Logger) LogBusDelivery(ctx context.Context, scope, table, eventType string, collapsed int) {
	l.Logger.DebugContext(ctx,
		"Realtime Notification Delivered",
		slog.String("scope", scope),
		slog.String("table", table),
		slog.String("event_type", eventType),
		slog.Int("collapsed_events", collapsed),
	)
}

// Security logging methods

// LogAuthFailure logs failed authentication
func (l *Logger) LogAuthFailure(ctx context.Context, reason, ip string) {
	l.Logger.WarnContext(ctx,
		"Authentication Failure",
		slog.String("reason", reason),
		slog.String("ip", ip),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// Global logger instance (can be replaced with dependency injection)
var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
