package domain

// CartItem is one line of the cart, keyed by product id.
type CartItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
	Stock     *int    `json:"stock,omitempty"` // nil = unconstrained
	Quantity  int     `json:"quantity"`
}

// Total is quantity times unit price.
func (i CartItem) Total() float64 {
	return float64(i.Quantity) * i.Price
}

// Ceiling returns the stock ceiling and whether one is known.
func (i CartItem) Ceiling() (int, bool) {
	if i.Stock == nil {
		return 0, false
	}
	return *i.Stock, true
}

// Cart is an ordered snapshot of cart lines. Aggregates are always derived
// from Items and never stored.
type Cart struct {
	Items []CartItem `json:"items"`
}

func (c Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

func (c Cart) Subtotal() float64 {
	var total float64
	for _, it := range c.Items {
		total += it.Total()
	}
	return total
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Find returns the line for productID, if any.
func (c Cart) Find(productID string) (CartItem, bool) {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it, true
		}
	}
	return CartItem{}, false
}

// View flattens the cart with its aggregates for transport.
func (c Cart) View() CartView {
	items := c.Items
	if items == nil {
		items = []CartItem{}
	}
	return CartView{
		Items:    items,
		Count:    c.Count(),
		Subtotal: c.Subtotal(),
	}
}

// CartView is the wire shape of a cart.
type CartView struct {
	Items    []CartItem `json:"items"`
	Count    int        `json:"count"`
	Subtotal float64    `json:"subtotal"`
}

// LineChange describes the outcome of adding to a cart line. Signals holds
// the stock feedback the cart emitted while applying it.
type LineChange struct {
	Item      CartItem `json:"item"`
	Requested int      `json:"requested"`
	Clamped   bool     `json:"clamped"`
	Signals   []Signal `json:"signals,omitempty"`
}
