package mocks

import (
	"context"
	"sync"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

// MockProductSearcher is a mock implementation of ports.ProductSearcher
type MockProductSearcher struct {
	mu         sync.Mutex
	Queries    []string
	SearchFunc func(ctx context.Context, query string) ([]domain.ProductCandidate, error)
}

func (m *MockProductSearcher) Search(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, query)
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query)
	}
	return []domain.ProductCandidate{}, nil
}

// Calls returns the queries received so far.
func (m *MockProductSearcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Queries...)
}

// MockProductRepository is a mock implementation of ports.ProductRepository
type MockProductRepository struct {
	SearchByNameFunc func(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error)
}

func (m *MockProductRepository) SearchByName(ctx context.Context, query string, limit int) ([]domain.ProductCandidate, error) {
	if m.SearchByNameFunc != nil {
		return m.SearchByNameFunc(ctx, query, limit)
	}
	return []domain.ProductCandidate{}, nil
}

// MockCartStore is a mock implementation of ports.CartStore
type MockCartStore struct {
	mu       sync.Mutex
	Saved    map[string][]domain.CartItem
	LoadFunc func(ctx context.Context, cartID string) ([]domain.CartItem, error)
	SaveFunc func(ctx context.Context, cartID string, items []domain.CartItem) error
}

func NewMockCartStore() *MockCartStore {
	return &MockCartStore{Saved: make(map[string][]domain.CartItem)}
}

func (m *MockCartStore) Load(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, cartID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem(nil), m.Saved[cartID]...), nil
}

func (m *MockCartStore) Save(ctx context.Context, cartID string, items []domain.CartItem) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, cartID, items)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saved[cartID] = append([]domain.CartItem(nil), items...)
	return nil
}

// EventRecorder is an ports.EventSink that keeps every event.
type EventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *EventRecorder) Emit(ctx context.Context, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *EventRecorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// Signals returns the signals emitted so far, in order.
func (r *EventRecorder) Signals() []domain.Signal {
	var out []domain.Signal
	for _, ev := range r.Events() {
		if ev.Type == domain.EventSignal && ev.Signal != nil {
			out = append(out, *ev.Signal)
		}
	}
	return out
}

// SignalCodes returns the codes of the emitted signals, in order.
func (r *EventRecorder) SignalCodes() []string {
	var out []string
	for _, s := range r.Signals() {
		out = append(out, s.Code)
	}
	return out
}

// Destinations returns every navigation directive emitted.
func (r *EventRecorder) Destinations() []domain.Destination {
	var out []domain.Destination
	for _, ev := range r.Events() {
		if ev.Type == domain.EventNavigate {
			out = append(out, ev.Destination)
		}
	}
	return out
}

func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

var _ ports.EventSink = (*EventRecorder)(nil)
