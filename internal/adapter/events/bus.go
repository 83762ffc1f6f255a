package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

// Handler receives every published event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(ctx context.Context, ev domain.Event)

// Bus fans events out to subscribers.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[int]Handler),
		log:      log,
	}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.handlers, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(ctx context.Context, ev domain.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	telemetry.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()
	for _, h := range handlers {
		b.dispatch(ctx, h, ev)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked",
				zap.String("type", string(ev.Type)),
				zap.String("client_id", ev.ClientID),
				zap.Any("panic", r),
			)
		}
	}()
	h(ctx, ev)
}

// Subscribers reports how many handlers are registered.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}

// ClientSink publishes on behalf of one client, stamping identity and time.
type ClientSink struct {
	bus      *Bus
	clientID string
	now      func() time.Time
}

func (b *Bus) ForClient(clientID string) *ClientSink {
	return &ClientSink{bus: b, clientID: clientID, now: time.Now}
}

func (s *ClientSink) Emit(ctx context.Context, ev domain.Event) {
	ev.ClientID = s.clientID
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now().UTC()
	}
	s.bus.Publish(ctx, ev)
}

var _ ports.EventSink = (*ClientSink)(nil)
