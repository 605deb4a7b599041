// Package notify implements the in-process notification bus that lets open
// sessions observe connection changes without polling.
package notify

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/tripmates/internal/domain"
)

// Handler receives one event for the user it was registered for.
type Handler func(ctx context.Context, event domain.NotificationEvent) error

// Logger receives delivery diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

// Relay forwards every published event outside the process. Failures are logged only.
type Relay interface {
	Relay(ctx context.Context, event domain.NotificationEvent) error
}

type Option func(*Bus)

func WithLogger(logger Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func WithRelay(relay Relay) Option {
	return func(b *Bus) {
		if relay != nil {
			b.relays = append(b.relays, relay)
		}
	}
}

// WithHandlerTimeout bounds the context handed to each handler invocation.
func WithHandlerTimeout(d time.Duration) Option {
	return func(b *Bus) {
		if d > 0 {
			b.handlerTimeout = d
		}
	}
}

// Bus is a publish/subscribe hub keyed by user id. Publish never blocks on
// handlers: deliveries for a user are queued and drained by one goroutine per
// user, which keeps per-user order while users proceed independently.
type Bus struct {
	mu             sync.Mutex
	subs           map[string][]*registration
	queues         map[string]*mailbox
	closed         bool
	inflight       sync.WaitGroup
	logger         Logger
	relays         []Relay
	handlerTimeout time.Duration
}

type registration struct {
	handler Handler
	active  atomic.Bool
}

type delivery struct {
	event   domain.NotificationEvent
	targets []*registration
}

type mailbox struct {
	pending []delivery
}

func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs:   map[string][]*registration{},
		queues: map[string]*mailbox{},
		logger: log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe registers handler for userID. The returned function removes exactly
// this registration and may be called any number of times.
func (b *Bus) Subscribe(userID string, handler Handler) func() {
	reg := &registration{handler: handler}
	reg.active.Store(true)

	b.mu.Lock()
	b.subs[userID] = append(b.subs[userID], reg)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(userID, reg) })
	}
}

// Publish queues event for every handler registered for userID at this moment.
func (b *Bus) Publish(userID string, event domain.NotificationEvent) {
	event.UserID = userID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		b.logger.Printf("notify: bus closed, dropping %s event for %s", event.Kind, userID)
		return
	}

	targets := append([]*registration(nil), b.subs[userID]...)
	if len(targets) == 0 && len(b.relays) == 0 {
		return
	}

	mb, running := b.queues[userID]
	if !running {
		mb = &mailbox{}
		b.queues[userID] = mb
	}
	mb.pending = append(mb.pending, delivery{event: event, targets: targets})
	if !running {
		b.inflight.Add(1)
		go b.drain(userID, mb)
	}
}

// PublishRemoval tells both parties that the connection is gone. userA is the
// acting side and sees direction SENT.
func (b *Bus) PublishRemoval(userA, userB, connectionID string) {
	now := time.Now().UTC()
	b.Publish(userA, domain.NotificationEvent{
		Kind:               domain.EventConnectionRemoved,
		CounterpartyUserID: userB,
		Direction:          domain.DirectionSent,
		ConnectionID:       connectionID,
		OccurredAt:         now,
	})
	b.Publish(userB, domain.NotificationEvent{
		Kind:               domain.EventConnectionRemoved,
		CounterpartyUserID: userA,
		Direction:          domain.DirectionReceived,
		ConnectionID:       connectionID,
		OccurredAt:         now,
	})
}

// Clear drops every subscription. Queued deliveries skip the dropped handlers.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, regs := range b.subs {
		for _, reg := range regs {
			reg.active.Store(false)
		}
	}
	b.subs = map[string][]*registration{}
}

// Close stops accepting publishes and waits for queued deliveries to finish.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notify: waiting for deliveries: %w", ctx.Err())
	}
}

// Subscribers returns the number of live registrations for userID.
func (b *Bus) Subscribers(userID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[userID])
}

func (b *Bus) remove(userID string, reg *registration) {
	reg.active.Store(false)

	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.subs[userID]
	for i, r := range regs {
		if r == reg {
			regs = append(regs[:i:i], regs[i+1:]...)
			break
		}
	}
	if len(regs) == 0 {
		delete(b.subs, userID)
		return
	}
	b.subs[userID] = regs
}

func (b *Bus) drain(userID string, mb *mailbox) {
	defer b.inflight.Done()
	for {
		b.mu.Lock()
		if len(mb.pending) == 0 {
			delete(b.queues, userID)
			b.mu.Unlock()
			return
		}
		next := mb.pending[0]
		mb.pending = mb.pending[1:]
		b.mu.Unlock()

		b.deliver(next)
	}
}

func (b *Bus) deliver(d delivery) {
	event := d.event
	for _, reg := range d.targets {
		if !reg.active.Load() {
			continue
		}
		handler := reg.handler
		b.call("handler", event, func(ctx context.Context) error { return handler(ctx, event) })
	}
	for _, relay := range b.relays {
		b.call("relay", event, func(ctx context.Context) error { return relay.Relay(ctx, event) })
	}
}

func (b *Bus) call(kind string, event domain.NotificationEvent, fn func(ctx context.Context) error) {
	ctx, cancel := b.handlerContext()
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Printf("notify: %s for %s panicked: %v", kind, event.UserID, r)
		}
	}()
	if err := fn(ctx); err != nil {
		b.logger.Printf("notify: %s for %s failed on %s %s: %v", kind, event.UserID, event.Kind, event.ConnectionID, err)
	}
}

func (b *Bus) handlerContext() (context.Context, context.CancelFunc) {
	if b.handlerTimeout > 0 {
		return context.WithTimeout(context.Background(), b.handlerTimeout)
	}
	return context.WithCancel(context.Background())
}
