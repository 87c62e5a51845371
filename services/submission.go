package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"pedido-service/inflight"
	"pedido-service/models"
)

type SubmissionState int

const (
	StateIdle SubmissionState = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s SubmissionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("SubmissionState(%d)", int(s))
	}
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error)
}

// UserSource is the read-only view of the session the services need.
type UserSource interface {
	UserID() (int64, bool)
	Address() string
}

// SubmissionPipeline turns the cart into a stored order. The caller either
// gets an order id and an empty cart, or an error and the cart exactly as it
// was. Failed submissions are never retried automatically.
type SubmissionPipeline struct {
	cart    *Cart
	session UserSource
	store   OrderCreator
	guard   inflight.Guard
	calc    Calculator

	mu      sync.Mutex
	state   SubmissionState
	lastErr error
}

// NewSubmissionPipeline wires the pipeline. A nil guard falls back to an
// in-process one.
func NewSubmissionPipeline(cart *Cart, session UserSource, store OrderCreator, guard inflight.Guard) *SubmissionPipeline {
	if guard == nil {
		guard = inflight.NewLocal()
	}
	return &SubmissionPipeline{
		cart:    cart,
		session: session,
		store:   store,
		guard:   guard,
	}
}

// Preview prices the current cart for the checkout dialog.
func (p *SubmissionPipeline) Preview(shippingAddress string) CheckoutSummary {
	return p.calc.Summary(p.cart.Lines(), p.shippingAddress(shippingAddress))
}

// Submit places an order for the current cart. An empty shippingAddress
// falls back to the session address. A second Submit for the same user while
// one is running fails with models.ErrConflict. On success the submitted
// lines leave the cart; units added while the order was being stored remain.
func (p *SubmissionPipeline) Submit(ctx context.Context, shippingAddress string) (int64, error) {
	userID, ok := p.session.UserID()
	if !ok {
		return 0, models.ErrUnauthenticated
	}
	lines := p.cart.Lines()
	if len(lines) == 0 {
		return 0, models.ErrEmptyCart
	}

	release, err := p.guard.Acquire(ctx, fmt.Sprintf("submission:%d", userID))
	if errors.Is(err, inflight.ErrBusy) {
		return 0, models.ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("acquire submission guard: %w", err)
	}
	defer release()

	p.setState(StateSubmitting, nil)

	draft := models.OrderDraft{
		UserID:          userID,
		Total:           p.calc.Total(lines),
		ShippingAddress: p.shippingAddress(shippingAddress),
		Lines:           p.calc.OrderLines(lines),
	}
	order, err := p.store.CreateOrder(ctx, draft)
	if err != nil {
		if !errors.Is(err, models.ErrOrderWriteFailed) {
			err = models.WriteFailed(nil, err)
		}
		p.setState(StateFailed, err)
		log.Printf("checkout: order for user %d failed: %v", userID, err)
		return 0, err
	}

	p.cart.Settle(lines)
	p.setState(StateSucceeded, nil)
	log.Printf("checkout: user %d placed order %d (total %d)", userID, order.ID, draft.Total)
	return order.ID, nil
}

// SubmitAsync runs Submit in the background and delivers its single outcome.
func (p *SubmissionPipeline) SubmitAsync(ctx context.Context, shippingAddress string) <-chan Result[int64] {
	return Async(ctx, func(ctx context.Context) (int64, error) {
		return p.Submit(ctx, shippingAddress)
	})
}

func (p *SubmissionPipeline) State() SubmissionState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastError is the error of the last failed attempt, nil otherwise.
func (p *SubmissionPipeline) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func (p *SubmissionPipeline) setState(s SubmissionState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
	p.lastErr = err
}

func (p *SubmissionPipeline) shippingAddress(addr string) string {
	if addr != "" {
		return addr
	}
	return p.session.Address()
}
