// Package client talks to a remote pedidos service over HTTP. It implements
// the same catalog and order store operations as the SQL repositories so the
// checkout services can run against either.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"pedido-service/config"
	"pedido-service/models"
)

const maxResponseBody = 1 << 20

// errServerStatus marks a 5xx response so the breaker counts it as a failure
// while the caller still sees the response.
var errServerStatus = errors.New("server error status")

// StatusError is a non-success response from the order store.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order store returned status %d", e.Status)
	}
	return fmt.Sprintf("order store returned status %d: %s", e.Status, e.Message)
}

type response struct {
	status int
	body   []byte
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[response]
	token   func() string
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	token      func() string
	threshold  uint32
	cooldown   time.Duration
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithToken sets the source of the bearer token sent with every request.
func WithToken(token func() string) Option {
	return func(o *options) { o.token = token }
}

// WithBreaker opens the circuit after threshold consecutive failures and
// probes again after cooldown.
func WithBreaker(threshold uint32, cooldown time.Duration) Option {
	return func(o *options) {
		o.threshold = threshold
		o.cooldown = cooldown
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	o := options{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		token:      func() string { return "" },
		threshold:  5,
		cooldown:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	threshold := max(o.threshold, 1)

	breaker := gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:    "order-store",
		Timeout: o.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("client: breaker %s changed from %s to %s", name, from, to)
		},
	})

	return &Client{baseURL: u, http: o.httpClient, breaker: breaker, token: o.token}, nil
}

func NewFromConfig(cfg *config.Config, token func() string) (*Client, error) {
	return New(cfg.StoreBaseURL,
		WithHTTPClient(&http.Client{Timeout: cfg.StoreTimeout}),
		WithToken(token),
		WithBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown),
	)
}

func (c *Client) ListProducts(ctx context.Context) ([]models.Product, error) {
	res, err := c.do(ctx, http.MethodGet, "api/productos", nil, nil)
	if err != nil {
		return nil, err
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("list products: %w", statusError(res))
	}

	var products []models.Product
	if err := json.Unmarshal(res.body, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (models.Product, error) {
	res, err := c.do(ctx, http.MethodGet, "api/productos/"+strconv.FormatInt(id, 10), nil, nil)
	if err != nil {
		return models.Product{}, err
	}
	if res.status == http.StatusNotFound {
		return models.Product{}, fmt.Errorf("product %d: %w", id, models.ErrProductNotFound)
	}
	if res.status != http.StatusOK {
		return models.Product{}, fmt.Errorf("get product %d: %w", id, statusError(res))
	}

	var product models.Product
	if err := json.Unmarshal(res.body, &product); err != nil {
		return models.Product{}, fmt.Errorf("decode product: %w", err)
	}
	return product, nil
}

// CreateOrder submits the draft in one request. Every failure wraps
// models.ErrOrderWriteFailed together with the failure kind.
func (c *Client) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error) {
	res, err := c.do(ctx, http.MethodPost, "api/pedidos", nil, models.NewDraftPayload(draft))
	if err != nil {
		return models.Order{}, models.WriteFailed(nil, err)
	}
	if res.status != http.StatusCreated {
		return models.Order{}, models.WriteFailed(nil, statusError(res))
	}

	var payload models.OrderPayload
	if err := json.Unmarshal(res.body, &payload); err != nil {
		return models.Order{}, models.WriteFailed(nil, fmt.Errorf("decode created order: %w", err))
	}
	if payload.OrderID == nil {
		return models.Order{}, models.WriteFailed(nil, errors.New("created order has no id"))
	}
	return payload.Order()
}

func (c *Client) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	query := url.Values{"usuario": {strconv.FormatInt(userID, 10)}}
	res, err := c.do(ctx, http.MethodGet, "api/pedidos", query, nil)
	if err != nil {
		return nil, err
	}
	if res.status != http.StatusOK {
		return nil, fmt.Errorf("list orders of user %d: %w", userID, statusError(res))
	}

	var payloads []models.OrderPayload
	if err := json.Unmarshal(res.body, &payloads); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	orders := make([]models.Order, 0, len(payloads))
	for _, p := range payloads {
		o, err := p.Order()
		if err != nil {
			return nil, fmt.Errorf("decode order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func (c *Client) DeleteOrder(ctx context.Context, orderID int64) error {
	res, err := c.do(ctx, http.MethodDelete, "api/pedidos/"+strconv.FormatInt(orderID, 10), nil, nil)
	if err != nil {
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}
	if res.status != http.StatusOK {
		return fmt.Errorf("delete order %d: %w", orderID, statusError(res))
	}

	var deleted models.DeleteResponse
	if err := json.Unmarshal(res.body, &deleted); err != nil {
		return fmt.Errorf("delete order %d: decode response: %w", orderID, err)
	}
	if !deleted.Deleted {
		return fmt.Errorf("delete order %d: store reported nothing deleted", orderID)
	}
	return nil
}

// do sends one request through the breaker. Connection failures and an open
// breaker come back wrapped in models.ErrTransport; any response, including
// a 5xx, is returned for the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in any) (response, error) {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return response{}, fmt.Errorf("encode request: %w", err)
		}
		body = b
	}

	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	res, err := c.breaker.Execute(func() (response, error) {
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), bytes.NewReader(body))
		if err != nil {
			return response{}, err
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")
		if token := c.token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return response{}, err
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		if err != nil {
			return response{}, err
		}
		r := response{status: resp.StatusCode, body: b}
		if r.status >= http.StatusInternalServerError {
			return r, errServerStatus
		}
		return r, nil
	})
	if errors.Is(err, errServerStatus) {
		return res, nil
	}
	if err != nil {
		return response{}, fmt.Errorf("%s %s: %w: %w", method, path, models.ErrTransport, err)
	}
	return res, nil
}

// statusError maps an error response back onto the order error taxonomy.
func statusError(res response) error {
	se := &StatusError{Status: res.status}
	var body models.ErrorResponse
	if err := json.Unmarshal(res.body, &body); err == nil {
		se.Message = body.Error
	}

	var kind error
	switch res.status {
	case http.StatusBadRequest:
		kind = models.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = models.ErrUnauthenticated
	case http.StatusNotFound:
		kind = models.ErrOrderNotFound
	case http.StatusConflict:
		kind = models.ErrConflict
	case http.StatusUnprocessableEntity:
		kind = models.ErrStoreConstraint
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		kind = models.ErrTransport
	}
	if kind == nil {
		return se
	}
	return fmt.Errorf("%w: %w", kind, se)
}
