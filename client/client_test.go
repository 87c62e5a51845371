package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pedido-service/controllers"
	"pedido-service/database"
	"pedido-service/models"
	"pedido-service/repositories"
	"pedido-service/services"
	"pedido-service/utils"
)

const testSecret = "client-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// newStoreServer serves the real pedidos routes on a fresh SQLite database.
func newStoreServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pedidos.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, database.DriverSQLite))
	t.Cleanup(func() { db.Close() })

	r := gin.New()
	controllers.RegisterRoutes(r,
		controllers.NewOrderController(repositories.NewOrderRepository(db), nil, nil),
		controllers.NewProductController(repositories.NewProductRepository(db)),
		testSecret,
	)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func loggedIn(t *testing.T, userID int64) *services.Session {
	t.Helper()
	token, err := utils.GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	s := services.NewSession()
	s.Login(services.UserData{ID: userID, Name: "Ana", Address: "Calle Ejemplo 123"}, token)
	return s
}

func TestClient_OrderLifecycle(t *testing.T) {
	srv := newStoreServer(t)
	session := loggedIn(t, 7)
	c, err := New(srv.URL, WithToken(session.Token))
	require.NoError(t, err)
	ctx := context.Background()

	products, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 3)

	order, err := c.CreateOrder(ctx, models.OrderDraft{
		UserID:          7,
		Total:           39990,
		ShippingAddress: "Calle Ejemplo 123",
		Lines: []models.OrderLine{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Positive(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
	assert.Equal(t, int64(39990), order.Total)

	orders, err := c.ListOrdersByUser(ctx, 7)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)

	require.NoError(t, c.DeleteOrder(ctx, order.ID))
	assert.ErrorIs(t, c.DeleteOrder(ctx, order.ID), models.ErrOrderNotFound)

	orders, err = c.ListOrdersByUser(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestClient_GetProduct(t *testing.T) {
	srv := newStoreServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	p, err := c.GetProduct(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Vitamina C", p.Name)

	_, err = c.GetProduct(context.Background(), 404)
	assert.ErrorIs(t, err, models.ErrProductNotFound)
	assert.NotErrorIs(t, err, models.ErrOrderNotFound)
}

func TestClient_CreateOrderConstraintFailure(t *testing.T) {
	srv := newStoreServer(t)
	c, err := New(srv.URL, WithToken(loggedIn(t, 7).Token))
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), models.OrderDraft{
		UserID: 7,
		Lines:  []models.OrderLine{{ProductID: 999, Quantity: 1}},
	})
	assert.ErrorIs(t, err, models.ErrOrderWriteFailed)
	assert.ErrorIs(t, err, models.ErrStoreConstraint)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.Status)
}

func TestClient_WithoutToken(t *testing.T) {
	srv := newStoreServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	// The catalog is public.
	_, err = c.ListProducts(context.Background())
	require.NoError(t, err)

	_, err = c.ListOrdersByUser(context.Background(), 7)
	assert.ErrorIs(t, err, models.ErrUnauthenticated)
}

func TestClient_OtherUsersOrders(t *testing.T) {
	srv := newStoreServer(t)
	c, err := New(srv.URL, WithToken(loggedIn(t, 7).Token))
	require.NoError(t, err)

	_, err = c.ListOrdersByUser(context.Background(), 8)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.Status)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(srv.URL)
	require.NoError(t, err)

	_, err = c.CreateOrder(context.Background(), models.OrderDraft{UserID: 7})
	assert.ErrorIs(t, err, models.ErrOrderWriteFailed)
	assert.ErrorIs(t, err, models.ErrTransport)

	assert.ErrorIs(t, c.DeleteOrder(context.Background(), 1), models.ErrTransport)
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"status":500,"error":"internal error"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithBreaker(2, time.Minute))
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := c.ListProducts(ctx)
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusInternalServerError, se.Status)
		assert.NotErrorIs(t, err, models.ErrTransport)
	}

	_, err = c.ListProducts(ctx)
	assert.ErrorIs(t, err, models.ErrTransport)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	_, err := New("pedidos.local/api")
	assert.Error(t, err)
}

func TestStatusError_Mapping(t *testing.T) {
	tests := []struct {
		status int
		kind   error
	}{
		{http.StatusBadRequest, models.ErrValidation},
		{http.StatusUnauthorized, models.ErrUnauthenticated},
		{http.StatusNotFound, models.ErrOrderNotFound},
		{http.StatusConflict, models.ErrConflict},
		{http.StatusUnprocessableEntity, models.ErrStoreConstraint},
		{http.StatusServiceUnavailable, models.ErrTransport},
	}
	for _, tt := range tests {
		err := statusError(response{status: tt.status, body: []byte(`{"status":0,"error":"nope"}`)})
		assert.ErrorIs(t, err, tt.kind)
		assert.Contains(t, err.Error(), "nope")
	}
}

// The checkout services run unchanged against the remote store.
func TestCheckoutThroughRemoteStore(t *testing.T) {
	srv := newStoreServer(t)
	session := loggedIn(t, 7)
	c, err := New(srv.URL, WithToken(session.Token))
	require.NoError(t, err)
	ctx := context.Background()

	catalog := services.NewCatalogService(c)
	products, err := catalog.ListProducts(ctx)
	require.NoError(t, err)

	cart := services.NewCart()
	cart.Add(products[0])
	cart.Add(products[0])
	cart.Add(products[1])

	pipeline := services.NewSubmissionPipeline(cart, session, c, nil)
	orderID, err := pipeline.Submit(ctx, "")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, services.StateSucceeded, pipeline.State())

	history := services.NewHistoryService(c, session, time.UTC)
	entries, err := history.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, orderID, entries[0].OrderID)
	assert.Equal(t, "39.990", entries[0].Total)

	history.RequestDeletion(orderID)
	entries, err = history.ConfirmDeletion(ctx, orderID)
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, pending := history.PendingDeletion()
	assert.False(t, pending)
}
