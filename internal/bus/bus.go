// Package bus implements the asynchronous event dispatcher that decouples
// outcome producers from the trust ledger, drift detector and any other
// subscriber.
//
// Ordering: with a single worker, global delivery order equals publish order.
// With more than one worker only events handled by the same worker keep FIFO
// order; callers that need per-metric ordering must run a single-worker bus or
// partition by routing key upstream.
package bus

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/arbiter-systems/qagov/common/logging"
	"github.com/arbiter-systems/qagov/internal/metrics"
)

// CorrelationIDKey is the payload key carrying the correlation ID.
const CorrelationIDKey = "correlation_id"

var (
	// ErrNilPayload is returned when Publish is called with a nil payload.
	ErrNilPayload = errors.New("bus: payload must be a non-nil map")

	// ErrShutdown is returned when Publish is called after Shutdown.
	ErrShutdown = errors.New("bus: bus is shut down")

	// ErrQueueFull is returned when the event queue is at capacity.
	ErrQueueFull = errors.New("bus: event queue full")
)

// Event is a dispatched bus event. The payload handed to each handler is a
// fresh copy, so handlers cannot mutate each other's view.
type Event struct {
	Type          string
	Payload       map[string]any
	CorrelationID string
	EnqueuedAt    time.Time
}

// Handler processes a delivered event. Returning an error counts the delivery
// as failed but never interrupts delivery to other subscribers.
type Handler func(event Event) error

// Subscription represents an active subscription to an event type.
type Subscription struct {
	id        string
	eventType string
	handler   Handler
	bus       *Bus
}

// EventType returns the event type this subscription listens to.
func (s *Subscription) EventType() string { return s.eventType }

// Unsubscribe stops delivery to this subscription.
func (s *Subscription) Unsubscribe() {
	s.bus.unsubscribe(s)
}

// Metrics is a point-in-time snapshot of dispatch counters.
type Metrics struct {
	Published uint64 `json:"published"`
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

// Config controls bus construction.
type Config struct {
	WorkerCount int
	QueueSize   int
}

// Bus is an in-process publish/subscribe dispatcher backed by a fixed worker
// pool pulling from one shared FIFO queue.
type Bus struct {
	queue  chan Event
	logger *logging.Logger

	mu   sync.RWMutex
	subs map[string][]*Subscription

	// stopMu serializes queue sends against the close in Shutdown.
	stopMu sync.RWMutex
	state  int32 // 0 running, 1 shut down

	pending atomic.Int64
	wg      sync.WaitGroup

	published atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

// New creates a bus and starts its worker pool.
func New(cfg Config, logger *logging.Logger) (*Bus, error) {
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("bus: worker count must be >= 1, got %d", cfg.WorkerCount)
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1024
	}
	if logger == nil {
		logger = logging.Default()
	}

	b := &Bus{
		queue:  make(chan Event, cfg.QueueSize),
		logger: logger.With(logging.Component("bus")),
		subs:   make(map[string][]*Subscription),
	}

	b.wg.Add(cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		go b.worker()
	}

	return b, nil
}

// Subscribe registers a handler for an event type. It is safe to call
// concurrently with dispatch.
func (b *Bus) Subscribe(eventType string, handler Handler) (*Subscription, error) {
	if handler == nil {
		return nil, errors.New("bus: handler must not be nil")
	}

	sub := &Subscription{
		id:        uuid.NewString(),
		eventType: eventType,
		handler:   handler,
		bus:       b,
	}

	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub)
	b.mu.Unlock()

	return sub, nil
}

func (b *Bus) unsubscribe(target *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[target.eventType]
	for i, sub := range subs {
		if sub.id == target.id {
			b.subs[target.eventType] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[target.eventType]) == 0 {
		delete(b.subs, target.eventType)
	}
}

// PublishOption configures a single publish call.
type PublishOption func(*Event)

// WithCorrelationID sets an explicit correlation ID instead of generating one.
func WithCorrelationID(id string) PublishOption {
	return func(e *Event) {
		e.CorrelationID = id
	}
}

// Publish validates the payload, stamps a correlation ID and enqueues the
// event. It never blocks: a full queue is reported as ErrQueueFull.
func (b *Bus) Publish(eventType string, payload map[string]any, opts ...PublishOption) error {
	if payload == nil {
		return ErrNilPayload
	}

	ev := Event{
		Type:       eventType,
		Payload:    copyPayload(payload),
		EnqueuedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&ev)
	}
	if ev.CorrelationID == "" {
		if id, ok := payload[CorrelationIDKey].(string); ok && id != "" {
			ev.CorrelationID = id
		} else {
			ev.CorrelationID = uuid.NewString()
		}
	}
	ev.Payload[CorrelationIDKey] = ev.CorrelationID

	b.stopMu.RLock()
	if atomic.LoadInt32(&b.state) != 0 {
		b.stopMu.RUnlock()
		return ErrShutdown
	}
	b.pending.Add(1)
	select {
	case b.queue <- ev:
		b.stopMu.RUnlock()
	default:
		b.stopMu.RUnlock()
		b.pending.Add(-1)
		return ErrQueueFull
	}

	b.published.Add(1)
	metrics.BusEventsTotal.WithLabelValues(metrics.OutcomePublished).Inc()
	metrics.BusQueueDepth.Set(float64(len(b.queue)))
	return nil
}

func (b *Bus) worker() {
	defer b.wg.Done()

	for ev := range b.queue {
		b.dispatch(ev)
		b.pending.Add(-1)
		metrics.BusQueueDepth.Set(float64(len(b.queue)))
	}
}

func (b *Bus) dispatch(ev Event) {
	b.mu.RLock()
	subs := make([]*Subscription, len(b.subs[ev.Type]))
	copy(subs, b.subs[ev.Type])
	b.mu.RUnlock()

	if len(subs) == 0 {
		b.dropped.Add(1)
		metrics.BusEventsTotal.WithLabelValues(metrics.OutcomeDropped).Inc()
		b.logger.Debug("event dropped, no subscribers",
			logging.EventType(ev.Type),
			logging.CorrelationID(ev.CorrelationID))
		return
	}

	for _, sub := range subs {
		delivery := ev
		delivery.Payload = copyPayload(ev.Payload)

		if err := b.deliver(sub, delivery); err != nil {
			b.failed.Add(1)
			metrics.BusEventsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
			b.logger.Warn("subscriber failed",
				logging.EventType(ev.Type),
				logging.CorrelationID(ev.CorrelationID),
				logging.Error(err))
			continue
		}

		b.delivered.Add(1)
		metrics.BusEventsTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
	}
}

// deliver invokes one handler, converting panics into errors so one bad
// subscriber cannot take down a worker.
func (b *Bus) deliver(sub *Subscription, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return sub.handler(ev)
}

// WaitForIdle polls until every enqueued event has been dispatched or the
// timeout elapses. It does not stop new publishes.
func (b *Bus) WaitForIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for b.pending.Load() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
	return true
}

// Metrics returns a snapshot of the dispatch counters.
func (b *Bus) Metrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Failed:    b.failed.Load(),
		Dropped:   b.dropped.Load(),
	}
}

// Shutdown stops intake, drains already-queued events and joins the workers.
// The wait is bounded by timeout; in-flight handler execution is not cancelled.
func (b *Bus) Shutdown(timeout time.Duration) bool {
	b.stopMu.Lock()
	if !atomic.CompareAndSwapInt32(&b.state, 0, 1) {
		b.stopMu.Unlock()
		return true
	}
	close(b.queue)
	b.stopMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		b.logger.Warn("shutdown timed out with workers still running")
		return false
	}
}

// copyPayload deep-copies the string-keyed maps and slices of a payload so
// each delivery owns its view. Other value types are shared as-is.
func copyPayload(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyPayload(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
