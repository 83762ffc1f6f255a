package ports

import (
	"context"
	"errors"

	"github.com/seu-repo/vitrina-voz/internal/domain"
)

// ErrSearchUnavailable is returned by searchers when the catalog cannot be reached.
var ErrSearchUnavailable = errors.New("product search unavailable")

// ProductSearcher is the remote product search collaborator.
type ProductSearcher interface {
	Search(ctx context.Context, query string) ([]domain.ProductCandidate, error)
}

// CartService is the only way to mutate a cart.
type CartService interface {
	AddItem(ctx context.Context, product domain.ProductCandidate, qty int) (domain.LineChange, error)
	RemoveItem(ctx context.Context, productID string) error
	UpdateQuantity(ctx context.Context, productID string, qty int) error
	Clear(ctx context.Context) error
	Snapshot() domain.Cart
}

// EventSink receives signals, navigation directives and state updates.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// RecognitionHandlers are the callbacks a speech capability reports to.
type RecognitionHandlers struct {
	OnResult func(transcript string)
	OnError  func(code domain.CaptureErrorCode)
}

// SpeechCapability abstracts the platform speech-to-text engine.
type SpeechCapability interface {
	Supported() bool
	Start(handlers RecognitionHandlers) error
	Stop()
}
