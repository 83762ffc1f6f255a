package websocket

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/adapter/catalog"
	"github.com/seu-repo/vitrina-voz/internal/adapter/events"
	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/mocks"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
	"github.com/seu-repo/vitrina-voz/internal/service/voice"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	frames []Frame
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data, ok := <-f.in:
		if !ok {
			return 0, nil, io.EOF
		}
		return websocket.TextMessage, data, nil
	case <-f.closed:
		return 0, nil, io.EOF
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	if messageType != websocket.TextMessage {
		return nil
	}
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return err
	}
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) push(t *testing.T, msg inbound) {
	t.Helper()
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	f.in <- data
}

func (f *fakeConn) Frames() []Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Frame(nil), f.frames...)
}

func (f *fakeConn) waitFor(t *testing.T, what string, pred func(Frame) bool) Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, fr := range f.Frames() {
			if pred(fr) {
				return fr
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s; got %+v", what, f.Frames())
	return Frame{}
}

func isEvent(typ domain.EventType) func(Frame) bool {
	return func(f Frame) bool { return f.Kind == "event" && f.Event != nil && f.Event.Type == typ }
}

func isCommand(cmd string) func(Frame) bool {
	return func(f Frame) bool { return f.Kind == "command" && f.Command == cmd }
}

func isSignal(code string) func(Frame) bool {
	return func(f Frame) bool {
		return f.Kind == "event" && f.Event != nil && f.Event.Signal != nil && f.Event.Signal.Code == code
	}
}

type streamFixture struct {
	conn    *fakeConn
	hub     *Hub
	manager *storefront.Manager
	done    chan struct{}
}

func startStream(t *testing.T) *streamFixture {
	t.Helper()
	bus := events.NewBus(zap.NewNop())
	hub := NewHub(zap.NewNop())
	bus.Subscribe(hub.Deliver)
	manager := storefront.NewManager(
		mocks.NewMockCartStore(),
		catalog.NewMemorySearcher(catalog.DemoProducts(), 5),
		bus, voice.Config{}, zap.NewNop(),
	)

	f := &streamFixture{conn: newFakeConn(), hub: hub, manager: manager, done: make(chan struct{})}
	handler := NewVoiceStreamHandler(manager, hub, "es-ES", zap.NewNop())
	go func() {
		defer close(f.done)
		handler.Serve(context.Background(), "shopper-1", f.conn)
	}()
	t.Cleanup(func() {
		close(f.conn.in)
		<-f.done
		manager.Close()
	})

	f.conn.waitFor(t, "initial capture snapshot", isEvent(domain.EventCapture))
	return f
}

func TestServe_TypedText(t *testing.T) {
	f := startStream(t)

	f.conn.push(t, inbound{Type: MsgText, Text: "agrega 2 leche"})

	f.conn.waitFor(t, "cart update", func(fr Frame) bool {
		return isEvent(domain.EventCart)(fr) && fr.Event.Cart.Count == 2
	})
	added := f.conn.waitFor(t, "added signal", isSignal(domain.CodeAdded))
	if added.Event.ClientID != "shopper-1" {
		t.Errorf("expected event for shopper-1, got %q", added.Event.ClientID)
	}
}

func TestServe_CaptureResultRunsCommand(t *testing.T) {
	f := startStream(t)

	f.conn.push(t, inbound{Type: MsgCaptureStart})
	start := f.conn.waitFor(t, "start command", isCommand(CommandRecognizerStart))
	if start.Language != "es-ES" {
		t.Errorf("expected es-ES, got %q", start.Language)
	}
	f.conn.waitFor(t, "listening state", func(fr Frame) bool {
		return isEvent(domain.EventCapture)(fr) && fr.Event.Capture.State == domain.CaptureListening
	})

	f.conn.push(t, inbound{Type: MsgRecognizerResult, Transcript: "ver carrito"})

	nav := f.conn.waitFor(t, "navigation", isEvent(domain.EventNavigate))
	if nav.Event.Destination != domain.DestinationCart {
		t.Errorf("expected cart navigation, got %q", nav.Event.Destination)
	}
	f.conn.waitFor(t, "idle with transcript", func(fr Frame) bool {
		return isEvent(domain.EventCapture)(fr) && fr.Event.Capture.Transcript == "ver carrito"
	})
}

func TestServe_CaptureErrorSignal(t *testing.T) {
	f := startStream(t)

	f.conn.push(t, inbound{Type: MsgCaptureStart})
	f.conn.waitFor(t, "start command", isCommand(CommandRecognizerStart))
	f.conn.push(t, inbound{Type: MsgRecognizerError, Error: "not-allowed"})

	sig := f.conn.waitFor(t, "capture error", isSignal(domain.CodeCaptureError))
	if sig.Event.Signal.Message != "Permiso de micrófono denegado" {
		t.Errorf("unexpected message %q", sig.Event.Signal.Message)
	}
}

func TestServe_LateResultAfterStopIsDropped(t *testing.T) {
	f := startStream(t)

	f.conn.push(t, inbound{Type: MsgCaptureStart})
	f.conn.waitFor(t, "start command", isCommand(CommandRecognizerStart))
	f.conn.push(t, inbound{Type: MsgCaptureStop})
	f.conn.waitFor(t, "stop command", isCommand(CommandRecognizerStop))

	f.conn.push(t, inbound{Type: MsgRecognizerResult, Transcript: "vacía el carrito"})
	f.conn.push(t, inbound{Type: MsgText, Text: "ver carrito"})
	f.conn.waitFor(t, "navigation", isEvent(domain.EventNavigate))

	for _, fr := range f.conn.Frames() {
		if isSignal(domain.CodeAlreadyEmpty)(fr) {
			t.Fatal("late recognizer result must not reach the assistant")
		}
	}
}

func TestServe_UnsupportedRecognizer(t *testing.T) {
	f := startStream(t)

	f.conn.push(t, inbound{Type: MsgRecognizerUnsupported})
	f.conn.push(t, inbound{Type: MsgCaptureStart})
	f.conn.push(t, inbound{Type: "bogus"})

	f.conn.waitFor(t, "unknown type error", func(fr Frame) bool { return fr.Kind == "error" })
	f.conn.waitFor(t, "unsupported snapshot", func(fr Frame) bool {
		return isEvent(domain.EventCapture)(fr) && !fr.Event.Capture.Supported
	})
	for _, fr := range f.conn.Frames() {
		if isCommand(CommandRecognizerStart)(fr) {
			t.Fatal("unsupported recognizer must not be started")
		}
	}
}

func TestServe_ClosingSocketUnregisters(t *testing.T) {
	bus := events.NewBus(zap.NewNop())
	hub := NewHub(zap.NewNop())
	manager := storefront.NewManager(mocks.NewMockCartStore(), catalog.NewMemorySearcher(nil, 5), bus, voice.Config{}, zap.NewNop())
	defer manager.Close()

	conn := newFakeConn()
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewVoiceStreamHandler(manager, hub, "es-ES", zap.NewNop()).Serve(context.Background(), "c-1", conn)
	}()
	conn.waitFor(t, "initial cart", isEvent(domain.EventCart))
	if hub.Connections("c-1") != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.Connections("c-1"))
	}

	conn.Close()
	<-done
	if hub.Connections("c-1") != 0 {
		t.Errorf("expected connection removed, got %d", hub.Connections("c-1"))
	}
}

func TestServe_OpenSocketHoldsClient(t *testing.T) {
	f := startStream(t)

	if n := f.manager.Sweep(0); n != 0 {
		t.Fatalf("expected the connected client to survive a sweep, released %d", n)
	}
	f.conn.push(t, inbound{Type: MsgText, Text: "agrega 2 leche"})
	f.conn.waitFor(t, "added signal", isSignal(domain.CodeAdded))

	f.conn.Close()
	<-f.done
	if n := f.manager.Sweep(0); n != 1 {
		t.Errorf("expected the disconnected client to be swept, released %d", n)
	}
}

func TestHub_DeliverRoutesByClient(t *testing.T) {
	hub := NewHub(zap.NewNop())
	a, b := newFakeConn(), newFakeConn()
	ca := hub.Register("a", a)
	cb := hub.Register("b", b)

	hub.Deliver(context.Background(), domain.Event{ClientID: "a", Type: domain.EventNavigate, Destination: domain.DestinationCheckout})

	a.waitFor(t, "event for a", isEvent(domain.EventNavigate))
	hub.Unregister(ca)
	hub.Unregister(cb)

	if len(b.Frames()) != 0 {
		t.Errorf("expected nothing for b, got %+v", b.Frames())
	}
	if err := ca.Send(Frame{Kind: "event"}); err != ErrClientGone {
		t.Errorf("expected ErrClientGone after unregister, got %v", err)
	}
}
