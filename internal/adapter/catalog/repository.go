package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

// RepositorySearcher serves searches from a catalog database.
type RepositorySearcher struct {
	repo  ports.ProductRepository
	limit int
}

func NewRepositorySearcher(repo ports.ProductRepository, limit int) *RepositorySearcher {
	return &RepositorySearcher{repo: repo, limit: limit}
}

func (s *RepositorySearcher) Search(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	start := time.Now()
	products, err := s.repo.SearchByName(ctx, query, s.limit)
	status := "ok"
	if err != nil {
		status = "error"
		err = fmt.Errorf("%w: %v", ports.ErrSearchUnavailable, err)
	}
	telemetry.CatalogSearchLatency.WithLabelValues("postgres", status).Observe(time.Since(start).Seconds())
	return products, err
}

var _ ports.ProductSearcher = (*RepositorySearcher)(nil)
