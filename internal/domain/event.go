package domain

import "time"

type SignalLevel string

const (
	SignalSuccess SignalLevel = "success"
	SignalInfo    SignalLevel = "info"
	SignalError   SignalLevel = "error"
)

// Signal codes let clients localise or style feedback without parsing text.
const (
	CodeNavigating    = "navigating"
	CodeCartEmpty     = "cart_empty"
	CodeAlreadyEmpty  = "already_empty"
	CodeCartCleared   = "cart_cleared"
	CodeResults       = "results"
	CodeNoResults     = "no_results"
	CodeEmptyQuery    = "empty_query"
	CodeNotFound      = "not_found"
	CodeAdded         = "added"
	CodeRemoved       = "removed"
	CodeNotInCart     = "not_in_cart"
	CodeNotUnderstood = "not_understood"
	CodeStockLimit    = "stock_limit"
	CodeOutOfStock    = "out_of_stock"
	CodeSearchError   = "search_error"
	CodeCaptureError  = "capture_error"
	CodeCartError     = "cart_error"
)

// Signal is user-facing feedback. UIs may render or ignore it.
type Signal struct {
	Level   SignalLevel `json:"level"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Haptic  bool        `json:"haptic,omitempty"`
}

// Destination is one of the fixed navigation targets.
type Destination string

const (
	DestinationNone     Destination = ""
	DestinationCart     Destination = "cart"
	DestinationCheckout Destination = "checkout"
)

type EventType string

const (
	EventSignal     EventType = "signal"
	EventNavigate   EventType = "navigate"
	EventCandidates EventType = "candidates"
	EventCart       EventType = "cart"
	EventCapture    EventType = "capture"
)

// Event is what flows through the publish/subscribe channel.
type Event struct {
	ID          string             `json:"id"`
	ClientID    string             `json:"client_id"`
	Type        EventType          `json:"type"`
	Signal      *Signal            `json:"signal,omitempty"`
	Destination Destination        `json:"destination,omitempty"`
	Candidates  []ProductCandidate `json:"candidates,omitempty"`
	Cart        *CartView          `json:"cart,omitempty"`
	Capture     *CaptureSession    `json:"capture,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}
