package domain

// IntentKind identifies one of the fixed command kinds an utterance can map to.
type IntentKind string

const (
	IntentGoCart         IntentKind = "go_cart"
	IntentGoCheckout     IntentKind = "go_checkout"
	IntentClearCart      IntentKind = "clear_cart"
	IntentSearch         IntentKind = "search"
	IntentBuy            IntentKind = "buy"
	IntentAddToCart      IntentKind = "add_to_cart"
	IntentRemoveFromCart IntentKind = "remove_from_cart"
	IntentUnknown        IntentKind = "unknown"
)

// Intent is the classified form of a single utterance.
type Intent struct {
	Kind     IntentKind `json:"kind"`
	Query    string     `json:"query,omitempty"`
	Quantity int        `json:"quantity,omitempty"`
}
