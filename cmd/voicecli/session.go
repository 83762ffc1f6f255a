package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/seu-repo/vitrina-voz/internal/adapter/events"
	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/service/storefront"
)

var errQuit = errors.New("quit")

// session prints every event for one client while feeding it utterances.
type session struct {
	*printer
	client      *storefront.Client
	unsubscribe func()
}

func newSessionFor(ctx context.Context, manager *storefront.Manager, bus *events.Bus, id string, out io.Writer) (*session, error) {
	client, err := manager.Client(ctx, id)
	if err != nil {
		return nil, err
	}
	s := &session{printer: &printer{out: out}, client: client}
	s.unsubscribe = bus.Subscribe(func(ctx context.Context, ev domain.Event) {
		if ev.ClientID == id {
			s.event(ev)
		}
	})
	return s, nil
}

func (s *session) Close() {
	s.unsubscribe()
}

// Say runs one utterance through the assistant and waits for its effects.
func (s *session) Say(ctx context.Context, text string) error {
	_, err := s.client.Assistant.Handle(ctx, text)
	return err
}

// Run reads one utterance per line until EOF, :salir or ctx is done.
func (s *session) Run(ctx context.Context, in io.Reader) error {
	return readLines(ctx, in, s.printer, s.exec)
}

// readLines feeds each trimmed input line to exec until EOF, errQuit or ctx
// is done.
func readLines(ctx context.Context, in io.Reader, p *printer, exec func(context.Context, string) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		p.prompt()
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if err := exec(ctx, strings.TrimSpace(line)); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				return err
			}
		}
	}
}

func (s *session) exec(ctx context.Context, line string) error {
	switch line {
	case "":
		return nil
	case ":salir", ":q", "exit":
		return errQuit
	case ":ayuda", ":help":
		s.help()
		s.printf("Comandos: :carrito muestra el carrito, :resultados los últimos productos encontrados, :salir termina\n")
		return nil
	case ":carrito":
		view := s.client.Cart.Snapshot().View()
		s.printCart(&view)
		return nil
	case ":resultados":
		s.printCandidates(s.client.Assistant.Candidates())
		return nil
	}
	return s.Say(ctx, line)
}

// printer renders storefront events as terminal lines. Events arrive from
// the assistant goroutine, so writes are serialized.
type printer struct {
	mu  sync.Mutex
	out io.Writer
}

func (p *printer) event(ev domain.Event) {
	switch ev.Type {
	case domain.EventSignal:
		if ev.Signal != nil {
			p.printf("[%s] %s\n", ev.Signal.Level, ev.Signal.Message)
		}
	case domain.EventNavigate:
		p.printf("-> %s\n", ev.Destination)
	case domain.EventCandidates:
		p.printCandidates(ev.Candidates)
	case domain.EventCart:
		p.printCart(ev.Cart)
	}
}

func (p *printer) printCandidates(found []domain.ProductCandidate) {
	if len(found) == 0 {
		return
	}
	for i, product := range found {
		stock := "sin límite"
		if product.Stock != nil {
			stock = fmt.Sprintf("stock %d", *product.Stock)
		}
		p.printf("  %d. %s  $%.2f  (%s)\n", i+1, product.Name, product.Price, stock)
	}
}

func (p *printer) printCart(view *domain.CartView) {
	if view == nil {
		return
	}
	p.printf("carrito: %d artículos, subtotal $%.2f\n", view.Count, view.Subtotal)
	for _, item := range view.Items {
		p.printf("  %dx %s  $%.2f\n", item.Quantity, item.Name, item.Total())
	}
}

func (p *printer) prompt() {
	p.printf("> ")
}

func (p *printer) help() {
	p.printf("Ejemplos: \"agrega 2 coca cola\", \"busca leche\", \"quita el pan\", \"ver carrito\", \"vaciar carrito\", \"pagar\"\n")
}

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}
