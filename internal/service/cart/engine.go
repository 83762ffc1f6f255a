package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product id is required and price must not be negative")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrOutOfStock      = errors.New("product out of stock")
)

// Engine owns the lines of one cart. Every mutation builds a fresh slice and
// swaps it in under the lock, so readers never observe a half-applied change.
type Engine struct {
	id     string
	store  ports.CartStore
	events ports.EventSink
	log    *zap.Logger

	// writeMu orders whole mutations, persistence included; mu guards items.
	writeMu sync.Mutex
	mu      sync.RWMutex
	items   []domain.CartItem
}

func NewEngine(id string, store ports.CartStore, events ports.EventSink, log *zap.Logger) *Engine {
	return &Engine{
		id:     id,
		store:  store,
		events: events,
		log:    log.With(zap.String("cart_id", id)),
	}
}

// Load replaces the in-memory lines with the persisted snapshot. Missing or
// unreadable data leaves an empty cart.
func (e *Engine) Load(ctx context.Context) {
	items, err := e.store.Load(ctx, e.id)
	if err != nil {
		e.log.Warn("Failed to load cart, starting empty", zap.Error(err))
		items = nil
	}

	e.mu.Lock()
	e.items = sanitize(items)
	e.mu.Unlock()
}

// sanitize drops lines that would break the invariants of a loaded cart.
func sanitize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ProductID == "" || seen[it.ProductID] || it.Quantity < 1 || it.Price < 0 {
			continue
		}
		if ceiling, ok := it.Ceiling(); ok && it.Quantity > ceiling {
			if ceiling < 1 {
				continue
			}
			it.Quantity = ceiling
		}
		seen[it.ProductID] = true
		out = append(out, it)
	}
	return out
}

func (e *Engine) Snapshot() domain.Cart {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return domain.Cart{Items: cloneItems(e.items)}
}

// AddItem adds qty units of product, merging with an existing line. A request
// above the stock ceiling is clamped and reported, never rejected, unless the
// ceiling is zero.
func (e *Engine) AddItem(ctx context.Context, product domain.ProductCandidate, qty int) (domain.LineChange, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if qty < 1 {
		return domain.LineChange{}, ErrInvalidQuantity
	}
	if product.ID == "" || product.Price < 0 {
		return domain.LineChange{}, ErrInvalidProduct
	}

	e.mu.Lock()
	next := cloneItems(e.items)
	idx := indexOf(next, product.ID)

	line := domain.CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Stock:     product.Stock,
	}
	requested := qty
	if idx >= 0 {
		requested += next[idx].Quantity
		if product.Stock == nil {
			line.Stock = next[idx].Stock
		}
	}

	final, clamped := clamp(requested, line.Stock)
	if final < 1 {
		e.mu.Unlock()
		sig := e.emitSignal(ctx, domain.SignalError, domain.CodeOutOfStock,
			fmt.Sprintf("%s está agotado", product.Name))
		return domain.LineChange{Requested: requested, Signals: []domain.Signal{sig}}, ErrOutOfStock
	}
	line.Quantity = final

	if idx >= 0 {
		next[idx] = line
	} else {
		next = append(next, line)
	}
	e.items = next
	snapshot := domain.Cart{Items: cloneItems(next)}
	e.mu.Unlock()

	change := domain.LineChange{Item: line, Requested: requested, Clamped: clamped}
	telemetry.CartMutationsTotal.WithLabelValues("add").Inc()
	if clamped {
		telemetry.StockClampsTotal.Inc()
		e.log.Info("Quantity clamped to stock",
			zap.String("product_id", product.ID),
			zap.Int("requested", requested),
			zap.Int("stock", final),
		)
		sig := e.emitSignal(ctx, domain.SignalInfo, domain.CodeStockLimit,
			fmt.Sprintf("Solo hay %d unidades de %s; ajusté la cantidad", final, product.Name))
		change.Signals = append(change.Signals, sig)
	}
	e.commit(ctx, snapshot)

	return change, nil
}

func (e *Engine) RemoveItem(ctx context.Context, productID string) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	idx := indexOf(e.items, productID)
	if idx < 0 {
		e.mu.Unlock()
		return ErrItemNotFound
	}
	next := make([]domain.CartItem, 0, len(e.items)-1)
	next = append(next, e.items[:idx]...)
	next = append(next, e.items[idx+1:]...)
	e.items = next
	snapshot := domain.Cart{Items: cloneItems(next)}
	e.mu.Unlock()

	telemetry.CartMutationsTotal.WithLabelValues("remove").Inc()
	e.commit(ctx, snapshot)
	return nil
}

// UpdateQuantity sets the quantity of an existing line, clamped to stock.
// A quantity below 1 removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, qty int) error {
	if qty < 1 {
		return e.RemoveItem(ctx, productID)
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	idx := indexOf(e.items, productID)
	if idx < 0 {
		e.mu.Unlock()
		return ErrItemNotFound
	}
	next := cloneItems(e.items)
	final, clamped := clamp(qty, next[idx].Stock)
	if final < 1 {
		// ceiling dropped to zero since the line was added
		e.mu.Unlock()
		return ErrOutOfStock
	}
	next[idx].Quantity = final
	name := next[idx].Name
	e.items = next
	snapshot := domain.Cart{Items: cloneItems(next)}
	e.mu.Unlock()

	telemetry.CartMutationsTotal.WithLabelValues("update").Inc()
	if clamped {
		telemetry.StockClampsTotal.Inc()
		e.emitSignal(ctx, domain.SignalInfo, domain.CodeStockLimit,
			fmt.Sprintf("Solo hay %d unidades de %s; ajusté la cantidad", final, name))
	}
	e.commit(ctx, snapshot)
	return nil
}

func (e *Engine) Clear(ctx context.Context) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	e.items = []domain.CartItem{}
	e.mu.Unlock()

	telemetry.CartMutationsTotal.WithLabelValues("clear").Inc()
	e.commit(ctx, domain.Cart{Items: []domain.CartItem{}})
	return nil
}

// commit persists the snapshot and announces it. Persistence is best effort:
// the in-memory cart stays authoritative for this process.
func (e *Engine) commit(ctx context.Context, snapshot domain.Cart) {
	if err := e.store.Save(ctx, e.id, snapshot.Items); err != nil {
		e.log.Error("Failed to persist cart", zap.Error(err))
	}
	view := snapshot.View()
	e.emit(ctx, domain.Event{Type: domain.EventCart, Cart: &view})
}

func (e *Engine) emitSignal(ctx context.Context, level domain.SignalLevel, code, msg string) domain.Signal {
	sig := domain.Signal{Level: level, Code: code, Message: msg}
	e.emit(ctx, domain.Event{Type: domain.EventSignal, Signal: &sig})
	return sig
}

func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	if e.events == nil {
		return
	}
	e.events.Emit(ctx, ev)
}

func clamp(qty int, stock *int) (int, bool) {
	if stock != nil && qty > *stock {
		return *stock, true
	}
	return qty, false
}

func indexOf(items []domain.CartItem, productID string) int {
	for i, it := range items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func cloneItems(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}
