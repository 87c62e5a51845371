package services

import (
	"context"
	"strings"

	"golang.org/x/sync/singleflight"

	"pedido-service/models"
)

type ProductLister interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type ProductStore interface {
	ProductLister
	GetProduct(ctx context.Context, id int64) (models.Product, error)
}

// CatalogService fetches the product list. Concurrent callers share a single
// in-flight fetch; nothing is cached once it returns.
type CatalogService struct {
	products ProductStore
	sfg      singleflight.Group
}

func NewCatalogService(products ProductStore) *CatalogService {
	return &CatalogService{products: products}
}

// ListProducts joins any fetch already in flight. The shared fetch is not
// tied to the caller that started it, and each caller stops waiting when its
// own ctx is done.
func (s *CatalogService) ListProducts(ctx context.Context) ([]models.Product, error) {
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.sfg.DoChan("products", func() (interface{}, error) {
		return s.products.ListProducts(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]models.Product)
		return append([]models.Product(nil), shared...), nil
	}
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	return s.products.GetProduct(ctx, id)
}

// FilterProducts keeps products whose name, brand or description contains
// query, ignoring case. An empty query keeps everything.
func FilterProducts(products []models.Product, query string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) ||
			strings.Contains(strings.ToLower(p.Description), q) {
			out = append(out, p)
		}
	}
	return out
}
