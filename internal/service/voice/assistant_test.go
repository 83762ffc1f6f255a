package voice

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/mocks"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/internal/service/cart"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var catalog = map[string][]domain.ProductCandidate{
	"coca cola": {{ID: "p-coca", Name: "Coca Cola 600ml", Price: 1.5, Stock: domain.StockOf(3)}},
	"leche":     {{ID: "p-leche", Name: "Leche Entera", Price: 1.2}},
	"pan":       {{ID: "p-pan", Name: "Pan Integral", Price: 2.0}},
	"agua":      {{ID: "p-agua", Name: "Agua Mineral", Price: 0.8, Stock: domain.StockOf(0)}},
}

func catalogSearch(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	return catalog[query], nil
}

type fixture struct {
	assistant *Assistant
	cart      *cart.Engine
	search    *mocks.MockProductSearcher
	events    *mocks.EventRecorder
}

func newFixture(t *testing.T, search func(ctx context.Context, query string) ([]domain.ProductCandidate, error)) *fixture {
	t.Helper()
	events := &mocks.EventRecorder{}
	engine := cart.NewEngine("cart-test", mocks.NewMockCartStore(), events, zap.NewNop())
	searcher := &mocks.MockProductSearcher{SearchFunc: search}
	a := NewAssistant(searcher, engine, events, Config{}, zap.NewNop())
	t.Cleanup(func() {
		a.Close()
		<-a.Done()
	})
	return &fixture{assistant: a, cart: engine, search: searcher, events: events}
}

func (f *fixture) handle(t *testing.T, text string) Result {
	t.Helper()
	res, err := f.assistant.Handle(context.Background(), text)
	if err != nil {
		t.Fatalf("Handle(%q): %v", text, err)
	}
	return res
}

func TestHandle_AddToCart(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "agrega 2 coca cola al carrito")

	if res.Intent.Kind != domain.IntentAddToCart {
		t.Fatalf("expected add_to_cart, got %s", res.Intent.Kind)
	}
	items := f.cart.Snapshot().Items
	if len(items) != 1 || items[0].ProductID != "p-coca" || items[0].Quantity != 2 {
		t.Fatalf("unexpected cart %+v", items)
	}
	if len(res.Signals) != 1 || res.Signals[0].Code != domain.CodeAdded || !res.Signals[0].Haptic {
		t.Errorf("expected haptic added signal, got %+v", res.Signals)
	}
	if res.Destination != domain.DestinationNone {
		t.Errorf("add must not navigate, got %q", res.Destination)
	}
	if res.Cart.Count != 2 {
		t.Errorf("expected cart count 2 in result, got %d", res.Cart.Count)
	}
}

func TestHandle_AddClampsToStock(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "agrega 5 coca cola")

	if !res.Clamped {
		t.Error("expected clamped result")
	}
	if got := f.cart.Snapshot().Items[0].Quantity; got != 3 {
		t.Errorf("expected quantity 3, got %d", got)
	}
	want := []string{domain.CodeStockLimit, domain.CodeAdded}
	if got := f.events.SignalCodes(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected signals %v, got %v", want, got)
	}
	if got := signalCodes(res); !reflect.DeepEqual(got, want) {
		t.Errorf("expected result signals %v, got %v", want, got)
	}
}

func TestHandle_AddOutOfStock(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "agrega 2 agua")

	if !f.cart.Snapshot().IsEmpty() {
		t.Errorf("expected no mutation, got %+v", f.cart.Snapshot().Items)
	}
	want := []string{domain.CodeOutOfStock}
	if got := signalCodes(res); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected result signals %v, got %v", want, got)
	}
	if res.Signals[0].Level != domain.SignalError {
		t.Errorf("expected error level, got %s", res.Signals[0].Level)
	}
	if got := f.events.SignalCodes(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected out_of_stock emitted once, got %v", got)
	}
}

func signalCodes(res Result) []string {
	codes := make([]string, 0, len(res.Signals))
	for _, s := range res.Signals {
		codes = append(codes, s.Code)
	}
	return codes
}

func TestHandle_AddNotFound(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "agrega caviar")

	if !f.cart.Snapshot().IsEmpty() {
		t.Error("expected no mutation")
	}
	if len(res.Signals) != 1 || res.Signals[0].Code != domain.CodeNotFound {
		t.Errorf("expected not_found, got %+v", res.Signals)
	}
}

func TestHandle_AddEmptyQuerySkipsSearch(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "agrega al carrito")

	if len(f.search.Calls()) != 0 {
		t.Errorf("expected no search, got %v", f.search.Calls())
	}
	if res.Signals[0].Code != domain.CodeEmptyQuery {
		t.Errorf("expected empty_query, got %+v", res.Signals)
	}
}

func TestHandle_BuyNavigatesToCheckout(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "compra una leche")

	if res.Destination != domain.DestinationCheckout {
		t.Errorf("expected checkout navigation, got %q", res.Destination)
	}
	if f.cart.Snapshot().Count() != 1 {
		t.Errorf("expected one item, got %d", f.cart.Snapshot().Count())
	}
	if got := f.events.Destinations(); len(got) != 1 || got[0] != domain.DestinationCheckout {
		t.Errorf("expected one checkout directive, got %v", got)
	}
}

func TestHandle_Checkout(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "ir a pagar")
	if res.Destination != domain.DestinationNone {
		t.Errorf("expected no navigation on empty cart, got %q", res.Destination)
	}
	if len(res.Signals) != 1 || res.Signals[0].Code != domain.CodeCartEmpty {
		t.Errorf("expected cart_empty, got %+v", res.Signals)
	}

	f.handle(t, "agrega pan")
	res = f.handle(t, "ir a pagar")
	if res.Destination != domain.DestinationCheckout {
		t.Errorf("expected checkout navigation, got %q", res.Destination)
	}
}

func TestHandle_GoCart(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "ver carrito")

	if res.Destination != domain.DestinationCart {
		t.Errorf("expected cart navigation, got %q", res.Destination)
	}
}

func TestHandle_ClearCart(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "vacía el carrito")
	if res.Signals[0].Code != domain.CodeAlreadyEmpty {
		t.Errorf("expected already_empty, got %+v", res.Signals)
	}

	f.handle(t, "agrega pan")
	res = f.handle(t, "vacía el carrito")
	if res.Signals[0].Code != domain.CodeCartCleared {
		t.Errorf("expected cart_cleared, got %+v", res.Signals)
	}
	if !f.cart.Snapshot().IsEmpty() {
		t.Error("expected empty cart")
	}
}

func TestHandle_Search(t *testing.T) {
	many := make([]domain.ProductCandidate, 8)
	for i := range many {
		many[i] = domain.ProductCandidate{ID: string(rune('a' + i)), Name: "Zapato", Price: 10}
	}
	f := newFixture(t, func(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
		if query == "zapatos" {
			return many, nil
		}
		return nil, nil
	})

	res := f.handle(t, "busca zapatos")
	if len(res.Candidates) != DefaultMaxCandidates {
		t.Fatalf("expected %d candidates, got %d", DefaultMaxCandidates, len(res.Candidates))
	}
	if len(f.assistant.Candidates()) != DefaultMaxCandidates {
		t.Errorf("expected retained candidates")
	}
	if res.Signals[0].Code != domain.CodeResults || !strings.Contains(res.Signals[0].Message, "5") {
		t.Errorf("expected '5 results' signal, got %+v", res.Signals)
	}

	res = f.handle(t, "busca sombreros")
	if res.Signals[0].Code != domain.CodeNoResults {
		t.Errorf("expected no_results, got %+v", res.Signals)
	}
	if len(f.assistant.Candidates()) != 0 {
		t.Error("expected candidates replaced by the empty result")
	}

	res = f.handle(t, "busca")
	if res.Signals[0].Code != domain.CodeEmptyQuery {
		t.Errorf("expected empty_query, got %+v", res.Signals)
	}
	if calls := f.search.Calls(); len(calls) != 2 {
		t.Errorf("expected empty query not to hit search, got %v", calls)
	}
}

func TestHandle_SearchFailure(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
		return nil, ports.ErrSearchUnavailable
	})

	res := f.handle(t, "busca pan")

	var codes []string
	for _, s := range res.Signals {
		codes = append(codes, s.Code)
	}
	want := []string{domain.CodeSearchError, domain.CodeNoResults}
	if !reflect.DeepEqual(codes, want) {
		t.Errorf("expected %v, got %v", want, codes)
	}

	res = f.handle(t, "agrega pan")
	if !f.cart.Snapshot().IsEmpty() {
		t.Error("expected no mutation when search fails")
	}
	if res.Signals[len(res.Signals)-1].Code != domain.CodeNotFound {
		t.Errorf("expected not_found last, got %+v", res.Signals)
	}
}

func TestHandle_Remove(t *testing.T) {
	f := newFixture(t, catalogSearch)
	f.handle(t, "agrega 2 leche")
	f.handle(t, "agrega pan")

	res := f.handle(t, "quita 1 LECHE del carrito")
	if res.Signals[0].Code != domain.CodeRemoved {
		t.Fatalf("expected removed, got %+v", res.Signals)
	}
	items := f.cart.Snapshot().Items
	if len(items) != 1 || items[0].ProductID != "p-pan" {
		t.Errorf("expected whole leche line removed, got %+v", items)
	}

	res = f.handle(t, "quita queso")
	if res.Signals[0].Code != domain.CodeNotInCart {
		t.Errorf("expected not_in_cart, got %+v", res.Signals)
	}
}

func TestHandle_Unknown(t *testing.T) {
	f := newFixture(t, catalogSearch)

	res := f.handle(t, "qué hora es")

	if res.Intent.Kind != domain.IntentUnknown {
		t.Fatalf("expected unknown, got %s", res.Intent.Kind)
	}
	if res.Signals[0].Code != domain.CodeNotUnderstood || !strings.Contains(res.Signals[0].Message, "Prueba") {
		t.Errorf("expected not_understood with hint, got %+v", res.Signals)
	}
	if len(f.search.Calls()) != 0 {
		t.Error("unknown must not search")
	}
}

func TestSubmit_SerializesInSubmissionOrder(t *testing.T) {
	release := make(chan struct{})
	f := newFixture(t, func(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
		if query == "leche" {
			<-release // the first utterance is slow
		}
		return catalog[query], nil
	})

	ctx := context.Background()
	first := f.assistant.Submit(ctx, "agrega leche")
	second := f.assistant.Submit(ctx, "agrega pan")

	time.Sleep(50 * time.Millisecond)
	if calls := f.search.Calls(); len(calls) != 1 {
		t.Fatalf("second utterance started before the first finished: %v", calls)
	}

	close(release)
	r1 := <-first
	r2 := <-second
	if r1.Err != nil || r2.Err != nil {
		t.Fatalf("unexpected errors: %v, %v", r1.Err, r2.Err)
	}

	items := f.cart.Snapshot().Items
	if len(items) != 2 || items[0].ProductID != "p-leche" || items[1].ProductID != "p-pan" {
		t.Errorf("expected [leche, pan], got %+v", items)
	}
	if r1.Cart.Count != 1 || r2.Cart.Count != 2 {
		t.Errorf("expected results to reflect sequential application, got %d then %d", r1.Cart.Count, r2.Cart.Count)
	}
}

func TestClose_DiscardsInFlightSearch(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	f := newFixture(t, func(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
		close(started)
		<-release
		return catalog[query], nil
	})

	pending := f.assistant.Submit(context.Background(), "agrega pan")
	<-started
	queued := f.assistant.Submit(context.Background(), "agrega leche")

	f.assistant.Close()
	f.events.Reset()
	close(release)

	if res := <-pending; !errors.Is(res.Err, ErrAssistantClosed) {
		t.Errorf("expected in-flight result to be discarded, got %v", res.Err)
	}
	if res := <-queued; !errors.Is(res.Err, ErrAssistantClosed) {
		t.Errorf("expected queued utterance rejected, got %v", res.Err)
	}
	<-f.assistant.Done()

	if !f.cart.Snapshot().IsEmpty() {
		t.Error("expected no mutation after teardown")
	}
	if n := len(f.events.Events()); n != 0 {
		t.Errorf("expected no events after teardown, got %d", n)
	}

	if _, err := f.assistant.Handle(context.Background(), "ver carrito"); !errors.Is(err, ErrAssistantClosed) {
		t.Errorf("expected ErrAssistantClosed, got %v", err)
	}
}

func TestSubmit_RacingCloseAlwaysAnswers(t *testing.T) {
	searcher := &mocks.MockProductSearcher{SearchFunc: catalogSearch}

	for i := 0; i < 200; i++ {
		events := &mocks.EventRecorder{}
		engine := cart.NewEngine("cart-race", mocks.NewMockCartStore(), events, zap.NewNop())
		a := NewAssistant(searcher, engine, events, Config{QueueSize: 1}, zap.NewNop())

		results := make(chan (<-chan Result), 4)
		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- a.Submit(context.Background(), "ver carrito")
			}()
		}
		a.Close()
		wg.Wait()
		close(results)

		for out := range results {
			select {
			case <-out:
			case <-time.After(2 * time.Second):
				t.Fatalf("iteration %d: submitted utterance never answered", i)
			}
		}
		<-a.Done()
	}
}

func TestClose_ReleasesSenderBlockedOnFullQueue(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	searcher := &mocks.MockProductSearcher{SearchFunc: func(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
		close(started)
		<-release
		return catalog[query], nil
	}}
	events := &mocks.EventRecorder{}
	engine := cart.NewEngine("cart-full", mocks.NewMockCartStore(), events, zap.NewNop())
	a := NewAssistant(searcher, engine, events, Config{QueueSize: 1}, zap.NewNop())

	inFlight := a.Submit(context.Background(), "agrega pan")
	<-started
	queued := a.Submit(context.Background(), "ver carrito")

	blocked := make(chan (<-chan Result), 1)
	go func() { blocked <- a.Submit(context.Background(), "ver carrito") }()
	time.Sleep(20 * time.Millisecond)

	a.Close()
	close(release)

	for name, out := range map[string]<-chan Result{"in-flight": inFlight, "queued": queued, "blocked": <-blocked} {
		select {
		case res := <-out:
			if !errors.Is(res.Err, ErrAssistantClosed) {
				t.Errorf("%s: expected ErrAssistantClosed, got %v", name, res.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s utterance never answered", name)
		}
	}
	<-a.Done()
}
