package domain

// ProductCandidate is a search hit that has not been committed to the cart.
type ProductCandidate struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Image string  `json:"image,omitempty"`
	Stock *int    `json:"stock,omitempty"`
}

// StockOf is a helper for building candidates with a known ceiling.
func StockOf(n int) *int {
	return &n
}
