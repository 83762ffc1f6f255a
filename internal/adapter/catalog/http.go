package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/seu-repo/vitrina-voz/internal/domain"
	"github.com/seu-repo/vitrina-voz/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/vitrina-voz/internal/observability/telemetry"
	"github.com/seu-repo/vitrina-voz/internal/ports"
)

const maxBodyBytes = 1 << 20

type searchResponse struct {
	Products []domain.ProductCandidate `json:"products"`
}

// HTTPSearcher queries the storefront REST API:
// GET {base}/products/search?q=<query>&limit=<n>
type HTTPSearcher struct {
	base   *url.URL
	client *circuitbreaker.HTTPClient
	limit  int
	log    *zap.Logger
}

func NewHTTPSearcher(baseURL string, client *circuitbreaker.HTTPClient, limit int, log *zap.Logger) (*HTTPSearcher, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid catalog base url %q", baseURL)
	}
	return &HTTPSearcher{base: base, client: client, limit: limit, log: log}, nil
}

func (s *HTTPSearcher) endpoint(query string) string {
	u := s.base.JoinPath("products", "search")
	q := u.Query()
	q.Set("q", query)
	if s.limit > 0 {
		q.Set("limit", strconv.Itoa(s.limit))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *HTTPSearcher) Search(ctx context.Context, query string) (products []domain.ProductCandidate, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "catalog.http.search")
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(attribute.Int("catalog.results", len(products)))
		span.End()
		telemetry.CatalogSearchLatency.WithLabelValues("http", status).Observe(time.Since(start).Seconds())
	}()

	resp, err := s.client.Get(ctx, s.endpoint(query))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrSearchUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return []domain.ProductCandidate{}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ports.ErrSearchUnavailable, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ports.ErrSearchUnavailable, err)
	}

	products = make([]domain.ProductCandidate, 0, len(body.Products))
	for _, p := range body.Products {
		if p.ID == "" || p.Name == "" {
			s.log.Debug("Skipping catalog entry without id or name", zap.String("query", query))
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

var _ ports.ProductSearcher = (*HTTPSearcher)(nil)
