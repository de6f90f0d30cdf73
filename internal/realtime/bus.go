package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"slotify/pkg/logger"
)

const (
	DefaultDebounce         = 500 * time.Millisecond
	DefaultSubscribeTimeout = 10 * time.Second
)

var ErrBusClosed = errors.New("realtime bus is closed")

// Broker moves events between instances. Start must call deliver for every event
// published by any instance, including this one.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Start(ctx context.Context, deliver func(Event)) error
	Close() error
}

// Handler receives debounced events
type Handler func(Event)

// StateHandler observes connection state changes
type StateHandler func(state ConnectionState, err error)

// Option configures a Bus
type Option func(*Bus)

func WithDebounce(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.debounce = d
		}
	}
}

func WithSubscribeTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.subscribeTimeout = d
		}
	}
}

func WithLogger(l *logger.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

// Bus fans broker events out to scoped subscribers, coalescing bursts per subscriber
type Bus struct {
	broker           Broker
	debounce         time.Duration
	subscribeTimeout time.Duration
	logger           *logger.Logger

	mu        sync.Mutex
	subs      map[uint64]*Subscription
	nextID    uint64
	observers []func(Event)
	ready     chan struct{}
	startErr  error
	closed    bool
}

func NewBus(broker Broker, opts ...Option) *Bus {
	b := &Bus{
		broker:           broker,
		debounce:         DefaultDebounce,
		subscribeTimeout: DefaultSubscribeTimeout,
		logger:           logger.GetDefault(),
		subs:             make(map[uint64]*Subscription),
		ready:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start connects the broker. Subscriptions made before Start stay in the connecting
// state until it finishes.
func (b *Bus) Start(ctx context.Context) error {
	err := b.broker.Start(ctx, b.dispatch)

	b.mu.Lock()
	if err != nil {
		b.startErr = fmt.Errorf("failed to start realtime broker: %w", err)
		err = b.startErr
	}
	close(b.ready)
	b.mu.Unlock()

	return err
}

// Close stops the broker and closes every subscription
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		b.Unsubscribe(sub)
	}
	return b.broker.Close()
}

// Publish hands a change to the broker. Failures are returned; callers on write paths
// log them and carry on since the event is only a hint.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return ErrBusClosed
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return b.broker.Publish(ctx, event)
}

// Observe registers fn to run for every event as it arrives, without debouncing.
// Used for cache invalidation.
func (b *Bus) Observe(fn func(Event)) {
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

// SubscribeOption configures a single subscription
type SubscribeOption func(*Subscription)

func WithStateHandler(fn StateHandler) SubscribeOption {
	return func(s *Subscription) {
		s.onState = fn
	}
}

// Subscribe registers onEvent for scope. The returned subscription reports
// connecting, then subscribed once the broker is live, or error/timed_out.
func (b *Bus) Subscribe(scope Scope, onEvent Handler, opts ...SubscribeOption) *Subscription {
	sub := &Subscription{
		bus:     b,
		scope:   scope,
		handler: onEvent,
	}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.setState(StateClosed, ErrBusClosed)
		return sub
	}
	b.nextID++
	sub.id = b.nextID
	b.subs[sub.id] = sub
	ready := b.ready
	b.mu.Unlock()

	sub.setState(StateConnecting, nil)

	select {
	case <-ready:
		b.settle(sub)
	default:
		go b.awaitReady(sub, ready)
	}

	return sub
}

func (b *Bus) awaitReady(sub *Subscription, ready <-chan struct{}) {
	timer := time.NewTimer(b.subscribeTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		b.settle(sub)
	case <-timer.C:
		sub.setState(StateTimedOut, fmt.Errorf("subscription to %s timed out after %s", sub.scope, b.subscribeTimeout))
	}
}

func (b *Bus) settle(sub *Subscription) {
	b.mu.Lock()
	err := b.startErr
	b.mu.Unlock()

	if err != nil {
		sub.setState(StateError, err)
		return
	}
	sub.setState(StateSubscribed, nil)
}

// Unsubscribe cancels any pending notification and releases the subscription
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	delete(b.subs, sub.id)
	b.mu.Unlock()

	sub.close()
}

// SubscriberCount is the number of live subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) dispatch(event Event) {
	b.mu.Lock()
	observers := append([]func(Event){}, b.observers...)
	matched := make([]*Subscription, 0)
	for _, sub := range b.subs {
		if event.Matches(sub.scope) {
			matched = append(matched, sub)
		}
	}
	b.mu.Unlock()

	for _, fn := range observers {
		fn(event)
	}
	for _, sub := range matched {
		sub.schedule(event, b.debounce)
	}

	b.logger.Debug("Realtime event dispatched",
		slog.String("table", event.Table),
		slog.String("event_type", string(event.Type)),
		slog.String("scope_id", event.ChangedScopeID),
		slog.Int("subscribers", len(matched)),
	)
}

// Subscription is one widget's interest in a scope
type Subscription struct {
	id      uint64
	bus     *Bus
	scope   Scope
	handler Handler
	onState StateHandler

	mu      sync.Mutex
	state   ConnectionState
	timer   *time.Timer
	pending *Event
	burst   int
	seq     uint64
	closed  bool
}

func (s *Subscription) Scope() Scope {
	return s.scope
}

func (s *Subscription) State() ConnectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscription) setState(state ConnectionState, err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	onState := s.onState
	s.mu.Unlock()

	if onState != nil {
		onState(state, err)
	}
}

// schedule restarts the debounce window; only the last event of a burst is delivered
func (s *Subscription) schedule(event Event, window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.pending = &event
	s.burst++
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(window, func() { s.fire(seq) })
}

func (s *Subscription) fire(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.seq || s.pending == nil {
		s.mu.Unlock()
		return
	}
	event := *s.pending
	burst := s.burst
	s.pending = nil
	s.burst = 0
	s.timer = nil
	handler := s.handler
	s.mu.Unlock()

	if handler != nil {
		handler(event)
	}
	s.bus.logger.LogBusDelivery(context.Background(), s.scope.String(), event.Table, string(event.Type), burst)
}

func (s *Subscription) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = nil
	s.burst = 0
	s.seq++
	s.state = StateClosed
	onState := s.onState
	s.mu.Unlock()

	if onState != nil {
		onState(StateClosed, nil)
	}
}
