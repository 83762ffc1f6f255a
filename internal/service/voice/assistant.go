package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/pkg/textnorm"
)

// ErrAssistantClosed is returned for utterances submitted after, or still
// queued at, teardown.
var ErrAssistantClosed = errors.New("voice assistant closed")

const (
	DefaultMaxCandidates = 5
	DefaultQueueSize     = 16
	DefaultUsageHint     = `Prueba: "agrega 2 coca cola al carrito" o "ver carrito"`
)

type Config struct {
	MaxCandidates int
	QueueSize     int
	UsageHint     string
}

func (c Config) withDefaults() Config {
	if c.MaxCandidates <= 0 {
		c.MaxCandidates = DefaultMaxCandidates
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.UsageHint == "" {
		c.UsageHint = DefaultUsageHint
	}
	return c
}

// Result describes what one utterance did.
type Result struct {
	Intent      domain.Intent             `json:"intent"`
	Rule        string                    `json:"rule,omitempty"`
	Signals     []domain.Signal           `json:"signals"`
	Destination domain.Destination        `json:"destination,omitempty"`
	Candidates  []domain.ProductCandidate `json:"candidates,omitempty"`
	Clamped     bool                      `json:"clamped,omitempty"`
	Cart        domain.CartView           `json:"cart"`
	Err         error                     `json:"-"`
}

type job struct {
	ctx  context.Context
	text string
	done chan Result
}

// Assistant turns utterances into navigation, search and cart effects.
// Utterances are handled one at a time, in submission order, by a single
// worker goroutine.
type Assistant struct {
	classifier *Classifier
	search     ports.ProductSearcher
	cart       ports.CartService
	events     ports.EventSink
	cfg        Config
	log        *zap.Logger

	jobs      chan job
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
	// sendMu is held shared by Submit while it enqueues. The worker takes it
	// exclusively before its final drain so no job lands after the drain.
	sendMu sync.RWMutex

	mu         sync.RWMutex
	candidates []domain.ProductCandidate
}

func NewAssistant(
	search ports.ProductSearcher,
	cart ports.CartService,
	events ports.EventSink,
	cfg Config,
	log *zap.Logger,
) *Assistant {
	cfg = cfg.withDefaults()
	a := &Assistant{
		classifier: NewClassifier(),
		search:     search,
		cart:       cart,
		events:     events,
		cfg:        cfg,
		log:        log,
		jobs:       make(chan job, cfg.QueueSize),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go a.run()
	return a
}

// Submit queues text and returns immediately. The channel yields exactly one
// Result.
func (a *Assistant) Submit(ctx context.Context, text string) <-chan Result {
	out := make(chan Result, 1)

	a.sendMu.RLock()
	defer a.sendMu.RUnlock()
	if a.closed.Load() {
		out <- Result{Err: ErrAssistantClosed}
		return out
	}

	select {
	case a.jobs <- job{ctx: ctx, text: text, done: out}:
		telemetry.VoiceQueueDepth.Inc()
	case <-a.quit:
		out <- Result{Err: ErrAssistantClosed}
	}
	return out
}

// Handle queues text and waits for its result.
func (a *Assistant) Handle(ctx context.Context, text string) (Result, error) {
	select {
	case res := <-a.Submit(ctx, text):
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Close tears the assistant down without waiting for an in-flight search.
// Whatever that search returns is discarded.
func (a *Assistant) Close() {
	a.closeOnce.Do(func() {
		a.closed.Store(true)
		close(a.quit)
	})
}

// Done is closed once the worker goroutine has exited.
func (a *Assistant) Done() <-chan struct{} {
	return a.done
}

func (a *Assistant) live() bool {
	return !a.closed.Load()
}

func (a *Assistant) run() {
	defer close(a.done)
	for {
		select {
		case <-a.quit:
			// Senders blocked on a full queue see quit and let go.
			a.sendMu.Lock()
			a.drain()
			a.sendMu.Unlock()
			return
		case j := <-a.jobs:
			telemetry.VoiceQueueDepth.Dec()
			if !a.live() {
				j.done <- Result{Err: ErrAssistantClosed}
				continue
			}
			j.done <- a.process(j.ctx, j.text)
		}
	}
}

func (a *Assistant) drain() {
	for {
		select {
		case j := <-a.jobs:
			telemetry.VoiceQueueDepth.Dec()
			j.done <- Result{Err: ErrAssistantClosed}
		default:
			return
		}
	}
}

func (a *Assistant) process(ctx context.Context, text string) Result {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "voice.handle")
	defer span.End()

	intent, rule := a.classifier.Explain(text)
	span.SetAttributes(
		attribute.String("voice.intent", string(intent.Kind)),
		attribute.String("voice.rule", rule),
	)

	res := &Result{Intent: intent, Rule: rule, Signals: []domain.Signal{}}

	switch intent.Kind {
	case domain.IntentGoCart:
		a.navigate(ctx, res, domain.DestinationCart)
	case domain.IntentGoCheckout:
		a.goCheckout(ctx, res)
	case domain.IntentClearCart:
		a.clearCart(ctx, res)
	case domain.IntentSearch:
		a.runSearch(ctx, res)
	case domain.IntentBuy, domain.IntentAddToCart:
		a.addToCart(ctx, res)
	case domain.IntentRemoveFromCart:
		a.removeFromCart(ctx, res)
	default:
		a.signal(ctx, res, domain.SignalInfo, domain.CodeNotUnderstood,
			fmt.Sprintf("No entendí el comando. %s", a.cfg.UsageHint), false)
	}

	if !a.live() {
		res.Err = ErrAssistantClosed
		span.SetStatus(codes.Error, "closed")
	}
	res.Cart = a.cart.Snapshot().View()

	status := "ok"
	for _, s := range res.Signals {
		if s.Level == domain.SignalError {
			status = "error"
		}
	}
	telemetry.VoiceCommandsTotal.WithLabelValues(string(intent.Kind), status).Inc()
	telemetry.VoiceLatency.WithLabelValues(string(intent.Kind)).Observe(time.Since(start).Seconds())

	a.log.Info("Voice command handled",
		zap.String("intent", string(intent.Kind)),
		zap.String("rule", rule),
		zap.String("query", intent.Query),
		zap.Int("quantity", intent.Quantity),
		zap.String("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)
	return *res
}

func (a *Assistant) goCheckout(ctx context.Context, res *Result) {
	if a.cart.Snapshot().IsEmpty() {
		a.signal(ctx, res, domain.SignalInfo, domain.CodeCartEmpty, "Tu carrito está vacío", false)
		return
	}
	a.navigate(ctx, res, domain.DestinationCheckout)
}

func (a *Assistant) clearCart(ctx context.Context, res *Result) {
	if a.cart.Snapshot().IsEmpty() {
		a.signal(ctx, res, domain.SignalInfo, domain.CodeAlreadyEmpty, "Tu carrito ya está vacío", false)
		return
	}
	if err := a.cart.Clear(ctx); err != nil {
		a.log.Error("Failed to clear cart", zap.Error(err))
		a.signal(ctx, res, domain.SignalError, domain.CodeCartError, "No pude vaciar el carrito", false)
		return
	}
	a.signal(ctx, res, domain.SignalSuccess, domain.CodeCartCleared, "Vacié tu carrito", true)
}

func (a *Assistant) runSearch(ctx context.Context, res *Result) {
	query := res.Intent.Query
	if query == "" {
		a.signal(ctx, res, domain.SignalInfo, domain.CodeEmptyQuery, "¿Qué producto quieres buscar?", false)
		return
	}

	found, err := a.lookup(ctx, query)
	if !a.live() {
		return
	}
	if len(found) > a.cfg.MaxCandidates {
		found = found[:a.cfg.MaxCandidates]
	}
	a.setCandidates(ctx, found)
	res.Candidates = found

	if err != nil {
		a.signal(ctx, res, domain.SignalError, domain.CodeSearchError, "El buscador no está disponible, intenta de nuevo", false)
	}
	if len(found) == 0 {
		a.signal(ctx, res, domain.SignalInfo, domain.CodeNoResults,
			fmt.Sprintf("No encontré resultados para %q", query), false)
		return
	}
	a.signal(ctx, res, domain.SignalSuccess, domain.CodeResults,
		fmt.Sprintf("Encontré %d resultados para %q", len(found), query), false)
}

func (a *Assistant) addToCart(ctx context.Context, res *Result) {
	intent := res.Intent
	if intent.Query == "" {
		a.signal(ctx, res, domain.SignalInfo, domain.CodeEmptyQuery, "¿Qué producto quieres agregar?", false)
		return
	}

	found, err := a.lookup(ctx, intent.Query)
	if !a.live() {
		return
	}
	if err != nil {
		a.signal(ctx, res, domain.SignalError, domain.CodeSearchError, "El buscador no está disponible, intenta de nuevo", false)
	}
	if len(found) == 0 {
		a.signal(ctx, res, domain.SignalError, domain.CodeNotFound,
			fmt.Sprintf("No encontré %q", intent.Query), false)
		return
	}

	product := found[0]
	change, err := a.cart.AddItem(ctx, product, intent.Quantity)
	// the cart has already emitted these
	res.Signals = append(res.Signals, change.Signals...)
	if err != nil {
		a.log.Warn("Failed to add product", zap.String("product_id", product.ID), zap.Error(err))
		return
	}
	res.Clamped = change.Clamped

	msg := fmt.Sprintf("Agregué %d × %s al carrito", intent.Quantity, product.Name)
	if change.Clamped {
		msg = fmt.Sprintf("Agregué %s; tienes %d en el carrito", product.Name, change.Item.Quantity)
	}
	a.signal(ctx, res, domain.SignalSuccess, domain.CodeAdded, msg, true)

	if intent.Kind == domain.IntentBuy {
		a.navigate(ctx, res, domain.DestinationCheckout)
	}
}

// removeFromCart drops the first line whose name contains the query. The
// whole line goes, whatever quantity was spoken.
func (a *Assistant) removeFromCart(ctx context.Context, res *Result) {
	query := res.Intent.Query
	if query == "" {
		a.signal(ctx, res, domain.SignalInfo, domain.CodeEmptyQuery, "¿Qué producto quieres quitar?", false)
		return
	}

	for _, item := range a.cart.Snapshot().Items {
		if !textnorm.ContainsFold(item.Name, query) {
			continue
		}
		if err := a.cart.RemoveItem(ctx, item.ProductID); err != nil {
			a.log.Warn("Failed to remove product", zap.String("product_id", item.ProductID), zap.Error(err))
			break
		}
		a.signal(ctx, res, domain.SignalSuccess, domain.CodeRemoved,
			fmt.Sprintf("Quité %s del carrito", item.Name), true)
		return
	}
	a.signal(ctx, res, domain.SignalInfo, domain.CodeNotInCart,
		fmt.Sprintf("No encontré %q en tu carrito", query), false)
}

// lookup never fails from the caller's point of view: errors come back with
// an empty candidate list.
func (a *Assistant) lookup(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "voice.search")
	defer span.End()
	span.SetAttributes(attribute.String("catalog.query", query))

	found, err := a.search.Search(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.Warn("Product search failed", zap.String("query", query), zap.Error(err))
		return []domain.ProductCandidate{}, err
	}
	if found == nil {
		found = []domain.ProductCandidate{}
	}
	return found, nil
}

// Candidates returns the results of the last search.
func (a *Assistant) Candidates() []domain.ProductCandidate {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]domain.ProductCandidate(nil), a.candidates...)
}

// ClearCandidates drops the current candidate list.
func (a *Assistant) ClearCandidates(ctx context.Context) {
	a.setCandidates(ctx, nil)
}

func (a *Assistant) setCandidates(ctx context.Context, found []domain.ProductCandidate) {
	a.mu.Lock()
	a.candidates = append([]domain.ProductCandidate(nil), found...)
	a.mu.Unlock()
	a.emit(ctx, domain.Event{Type: domain.EventCandidates, Candidates: found})
}

func (a *Assistant) navigate(ctx context.Context, res *Result, dest domain.Destination) {
	res.Destination = dest
	a.emit(ctx, domain.Event{Type: domain.EventNavigate, Destination: dest})
}

func (a *Assistant) signal(ctx context.Context, res *Result, level domain.SignalLevel, code, msg string, haptic bool) {
	sig := domain.Signal{Level: level, Code: code, Message: msg, Haptic: haptic}
	res.Signals = append(res.Signals, sig)
	a.emit(ctx, domain.Event{Type: domain.EventSignal, Signal: &sig})
}

func (a *Assistant) emit(ctx context.Context, ev domain.Event) {
	if a.events == nil || !a.live() {
		return
	}
	a.events.Emit(ctx, ev)
}
