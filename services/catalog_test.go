package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedido-service/models"
)

type slowLister struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	err     error
}

func (l *slowLister) ListProducts(ctx context.Context) ([]models.Product, error) {
	l.calls.Add(1)
	if l.started != nil {
		select {
		case l.started <- struct{}{}:
		default:
		}
	}
	if l.release != nil {
		<-l.release
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.err != nil {
		return nil, l.err
	}
	return []models.Product{glutation, colageno, vitaminaC}, nil
}

func (l *slowLister) GetProduct(_ context.Context, id int64) (models.Product, error) {
	for _, p := range []models.Product{glutation, colageno, vitaminaC} {
		if p.ID == id {
			return p, nil
		}
	}
	return models.Product{}, models.ErrProductNotFound
}

func TestCatalog_ConcurrentCallsShareOneFetch(t *testing.T) {
	lister := &slowLister{release: make(chan struct{})}
	svc := NewCatalogService(lister)

	var wg sync.WaitGroup
	results := make([][]models.Product, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			products, err := svc.ListProducts(context.Background())
			assert.NoError(t, err)
			results[i] = products
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(lister.release)
	wg.Wait()

	assert.Equal(t, int32(1), lister.calls.Load())
	for _, r := range results {
		assert.Len(t, r, 3)
	}
}

// The caller that started the shared fetch going away must not fail the
// callers that joined it.
func TestCatalog_CancelledCallerDoesNotFailJoinedCallers(t *testing.T) {
	lister := &slowLister{started: make(chan struct{}, 1), release: make(chan struct{})}
	svc := NewCatalogService(lister)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.ListProducts(firstCtx)
		firstErr <- err
	}()
	<-lister.started

	second := make(chan Result[[]models.Product], 1)
	go func() {
		products, err := svc.ListProducts(context.Background())
		second <- Result[[]models.Product]{Value: products, Err: err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(lister.release)
	res := <-second
	require.NoError(t, res.Err)
	assert.Len(t, res.Value, 3)
	assert.Equal(t, int32(1), lister.calls.Load())
}

func TestCatalog_GetProduct(t *testing.T) {
	svc := NewCatalogService(&slowLister{})

	p, err := svc.GetProduct(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, colageno, p)

	_, err = svc.GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestCatalog_DoesNotCache(t *testing.T) {
	lister := &slowLister{}
	svc := NewCatalogService(lister)

	_, err := svc.ListProducts(context.Background())
	require.NoError(t, err)
	_, err = svc.ListProducts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), lister.calls.Load())
}

func TestCatalog_Error(t *testing.T) {
	svc := NewCatalogService(&slowLister{err: errors.New("unreachable")})
	_, err := svc.ListProducts(context.Background())
	assert.Error(t, err)
}

func TestFilterProducts(t *testing.T) {
	all := []models.Product{glutation, colageno, vitaminaC}

	assert.Len(t, FilterProducts(all, ""), 3)
	assert.Equal(t, []models.Product{colageno}, FilterProducts(all, "bigo"))
	assert.Equal(t, []models.Product{glutation, vitaminaC}, FilterProducts(all, "GLUTATION"))
	assert.Empty(t, FilterProducts(all, "proteína"))
}
