package storefront

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/adapter/events"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/internal/service/cart"
	"github.com/seu-repo/vitrina-voz/internal/service/voice"
)

var (
	ErrManagerClosed   = errors.New("storefront manager closed")
	ErrInvalidClientID = errors.New("client id is required")
)

// Client is the per-shopper state: one cart and one assistant bound to it.
type Client struct {
	ID        string
	Cart      *cart.Engine
	Assistant *voice.Assistant
	Events    ports.EventSink

	lastUsed time.Time
	holds    int
}

// Manager owns the live clients, creating them on first use.
type Manager struct {
	store  ports.CartStore
	search ports.ProductSearcher
	bus    *events.Bus
	cfg    voice.Config
	log    *zap.Logger

	mu      sync.Mutex
	clients map[string]*Client
	closed  bool
	now     func() time.Time

	stop        chan struct{}
	sweeperDone chan struct{}
}

func NewManager(store ports.CartStore, search ports.ProductSearcher, bus *events.Bus, cfg voice.Config, log *zap.Logger) *Manager {
	return &Manager{
		store:   store,
		search:  search,
		bus:     bus,
		cfg:     cfg,
		log:     log,
		clients: make(map[string]*Client),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// Client returns the client for id, hydrating its cart from the store the
// first time it is seen.
func (m *Manager) Client(ctx context.Context, id string) (*Client, error) {
	if id == "" {
		return nil, ErrInvalidClientID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clientLocked(ctx, id)
}

// Attach is Client for long-lived connections: the client is not swept while
// held. The returned func drops the hold and is safe to call more than once.
func (m *Manager) Attach(ctx context.Context, id string) (*Client, func(), error) {
	if id == "" {
		return nil, nil, ErrInvalidClientID
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c, err := m.clientLocked(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c.holds++

	var once sync.Once
	return c, func() {
		once.Do(func() {
			m.mu.Lock()
			c.holds--
			c.lastUsed = m.now()
			m.mu.Unlock()
		})
	}, nil
}

func (m *Manager) clientLocked(ctx context.Context, id string) (*Client, error) {
	if m.closed {
		return nil, ErrManagerClosed
	}
	if c, ok := m.clients[id]; ok {
		c.lastUsed = m.now()
		return c, nil
	}

	sink := m.bus.ForClient(id)
	engine := cart.NewEngine(id, m.store, sink, m.log.With(zap.String("client_id", id)))
	engine.Load(ctx)

	c := &Client{
		ID:        id,
		Cart:      engine,
		Assistant: voice.NewAssistant(m.search, engine, sink, m.cfg, m.log.With(zap.String("client_id", id))),
		Events:    sink,
		lastUsed:  m.now(),
	}
	m.clients[id] = c
	m.log.Debug("Client attached", zap.String("client_id", id), zap.Int("items", engine.Snapshot().Count()))
	return c, nil
}

// Release tears down the client's assistant. The persisted cart survives and
// is hydrated again on the next Client call. It does not wait for an
// in-flight search; the worker exits once that search returns.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	c, ok := m.clients[id]
	delete(m.clients, id)
	m.mu.Unlock()

	if ok {
		c.Assistant.Close()
	}
}

// Sweep releases every unheld client that has not been used for idle and
// returns how many went.
func (m *Manager) Sweep(idle time.Duration) int {
	m.mu.Lock()
	cutoff := m.now().Add(-idle)
	var stale []*Client
	for id, c := range m.clients {
		if c.holds > 0 || c.lastUsed.After(cutoff) {
			continue
		}
		stale = append(stale, c)
		delete(m.clients, id)
	}
	m.mu.Unlock()

	for _, c := range stale {
		c.Assistant.Close()
	}
	if len(stale) > 0 {
		m.log.Debug("Idle clients released", zap.Int("released", len(stale)))
	}
	return len(stale)
}

// StartSweeper runs Sweep every interval until Close. Calling it more than
// once, or after Close, does nothing.
func (m *Manager) StartSweeper(interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.sweeperDone != nil {
		return
	}
	m.sweeperDone = make(chan struct{})

	go func() {
		defer close(m.sweeperDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stop:
				return
			case <-ticker.C:
				m.Sweep(idle)
			}
		}
	}()
}

func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.clients)
}

// Close releases every client and refuses new ones.
func (m *Manager) Close() {
	m.mu.Lock()
	if !m.closed {
		close(m.stop)
	}
	m.closed = true
	clients := m.clients
	m.clients = make(map[string]*Client)
	sweeperDone := m.sweeperDone
	m.mu.Unlock()

	if sweeperDone != nil {
		<-sweeperDone
	}

	for _, c := range clients {
		c.Assistant.Close()
	}
	for _, c := range clients {
		<-c.Assistant.Done()
	}
	m.log.Info("Storefront manager closed", zap.Int("clients", len(clients)))
}
