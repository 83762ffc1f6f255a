package voice

import (
	"regexp"

	"github.com/seu-repo/vitrina-voz/internal/domain"
)

var (
	goCartPattern = regexpMust(`(?:^|\s)(?:ver|mostrar|muestra|muéstrame|muestrame|abrir|abre|ir\s+al|ve\s+al|llévame\s+al|llevame\s+al)\s+(?:el\s+|mi\s+)?carrito(?:\s|$)|^(?:mi\s+)?carrito$`)
	checkoutPattern = regexpMust(`(?:^|\s)(?:pagar|checkout|(?:finalizar|terminar)(?:\s+la|\s+mi)?\s+compra|proceder\s+al\s+pago|ir\s+al\s+pago)(?:\s|$)`)
	clearPattern    = regexpMust(`(?:^|\s)(?:(?:vaciar|vacía|vacia|limpiar|limpia)(?:\s+el|\s+mi)?\s+carrito|(?:borrar|borra|eliminar|elimina|quitar|quita|sacar|saca)\s+todo)(?:\s|$)|^(?:vaciar|vacía|vacia)$`)
	searchPattern   = regexpMust(`^(?:quiero\s+)?(?:` + alternation(searchVerbs) + `)(?:\s|$)`)
	buyPattern      = wordPattern(buyVerbs...)
	addPattern      = wordPattern(addVerbs...)
	cartWordPattern = wordPattern("carrito")
	removePattern   = wordPattern(removeVerbs...)
)

// rule pairs a predicate with the intent it produces. Rules are evaluated in
// order and the first match wins.
type rule struct {
	name  string
	match func(t string) bool
	build func(raw string) domain.Intent
}

// Classifier maps free text onto the fixed intent grammar.
type Classifier struct {
	rules []rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: defaultRules()}
}

func matches(re *regexp.Regexp) func(string) bool {
	return re.MatchString
}

func kindOnly(kind domain.IntentKind) func(string) domain.Intent {
	return func(string) domain.Intent {
		return domain.Intent{Kind: kind, Quantity: 1}
	}
}

func withProduct(kind domain.IntentKind) func(string) domain.Intent {
	return func(raw string) domain.Intent {
		return domain.Intent{Kind: kind, Query: CleanQuery(raw), Quantity: ExtractQuantity(raw)}
	}
}

func defaultRules() []rule {
	return []rule{
		{name: "go_cart", match: matches(goCartPattern), build: kindOnly(domain.IntentGoCart)},
		{name: "go_checkout", match: matches(checkoutPattern), build: kindOnly(domain.IntentGoCheckout)},
		{name: "clear_cart", match: matches(clearPattern), build: kindOnly(domain.IntentClearCart)},
		{name: "search", match: matches(searchPattern), build: func(raw string) domain.Intent {
			return domain.Intent{Kind: domain.IntentSearch, Query: CleanQuery(raw), Quantity: 1}
		}},
		{name: "buy", match: matches(buyPattern), build: withProduct(domain.IntentBuy)},
		{name: "add_explicit", match: func(t string) bool {
			return addPattern.MatchString(t) && cartWordPattern.MatchString(t)
		}, build: withProduct(domain.IntentAddToCart)},
		// Users often drop "al carrito"; this must stay after add_explicit.
		{name: "add_shortcut", match: matches(addPattern), build: withProduct(domain.IntentAddToCart)},
		{name: "remove", match: matches(removePattern), build: withProduct(domain.IntentRemoveFromCart)},
	}
}

// Classify returns the intent for text.
func (c *Classifier) Classify(text string) domain.Intent {
	intent, _ := c.Explain(text)
	return intent
}

// Explain is Classify plus the name of the rule that fired ("" for unknown).
func (c *Classifier) Explain(text string) (domain.Intent, string) {
	t := prepare(text)
	if t == "" {
		return domain.Intent{Kind: domain.IntentUnknown, Quantity: 1}, ""
	}
	for _, r := range c.rules {
		if r.match(t) {
			return r.build(text), r.name
		}
	}
	return domain.Intent{Kind: domain.IntentUnknown, Quantity: 1}, ""
}
