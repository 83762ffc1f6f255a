package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
	"github.com/seu-repo/vitrina-voz/pkg/textnorm"
)

// MemorySearcher matches queries against a fixed product list. Every word of
// the query must appear in the product name, ignoring case and accents.
type MemorySearcher struct {
	products []domain.ProductCandidate
	folded   []string
	limit    int
}

func NewMemorySearcher(products []domain.ProductCandidate, limit int) *MemorySearcher {
	folded := make([]string, len(products))
	for i, p := range products {
		folded[i] = textnorm.Fold(p.Name)
	}
	return &MemorySearcher{products: products, folded: folded, limit: limit}
}

func (s *MemorySearcher) Search(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	start := time.Now()
	defer func() {
		telemetry.CatalogSearchLatency.WithLabelValues("memory", "ok").Observe(time.Since(start).Seconds())
	}()

	words := strings.Fields(textnorm.Fold(query))
	out := []domain.ProductCandidate{}
	if len(words) == 0 {
		return out, nil
	}

	for i, name := range s.folded {
		if !containsAll(name, words) {
			continue
		}
		out = append(out, s.products[i])
		if s.limit > 0 && len(out) == s.limit {
			break
		}
	}
	return out, nil
}

func containsAll(name string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(name, w) {
			return false
		}
	}
	return true
}

// DemoProducts is the catalog used when no backend is configured.
func DemoProducts() []domain.ProductCandidate {
	return []domain.ProductCandidate{
		{ID: "sku-001", Name: "Coca Cola 600ml", Price: 1.50, Stock: domain.StockOf(24)},
		{ID: "sku-002", Name: "Coca Cola Zero 600ml", Price: 1.50, Stock: domain.StockOf(12)},
		{ID: "sku-003", Name: "Leche Entera 1L", Price: 1.20, Stock: domain.StockOf(40)},
		{ID: "sku-004", Name: "Pan Integral", Price: 2.30, Stock: domain.StockOf(8)},
		{ID: "sku-005", Name: "Café Molido 250g", Price: 4.75, Stock: domain.StockOf(3)},
		{ID: "sku-006", Name: "Manzana Roja", Price: 0.40},
		{ID: "sku-007", Name: "Arroz Blanco 1kg", Price: 1.10, Stock: domain.StockOf(0)},
		{ID: "sku-008", Name: "Zapatos Deportivos", Price: 59.90, Stock: domain.StockOf(5)},
		{ID: "sku-009", Name: "Jabón de Manos", Price: 2.10},
		{ID: "sku-010", Name: "Agua Mineral 1.5L", Price: 0.90, Stock: domain.StockOf(60)},
	}
}

var _ ports.ProductSearcher = (*MemorySearcher)(nil)
