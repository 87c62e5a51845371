package controllers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pedido-service/inflight"
	"pedido-service/middlewares"
	"pedido-service/models"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
	ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (models.Order, error)
}

// EventPublisher announces committed order changes.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type OrderController struct {
	orders    OrderStore
	publisher EventPublisher
	guard     inflight.Guard
}

// NewOrderController builds the pedidos handlers. publisher may be nil, in
// which case no events are sent. guard serialises order creation per user and
// defaults to an in-process guard.
func NewOrderController(orders OrderStore, publisher EventPublisher, guard inflight.Guard) *OrderController {
	if guard == nil {
		guard = inflight.NewLocal()
	}
	return &OrderController{orders: orders, publisher: publisher, guard: guard}
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer recordOperation(c, "create")
	userID, ok := middlewares.UserID(c)
	if !ok {
		writeError(c, models.ErrUnauthenticated)
		return
	}

	var payload models.OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, fmt.Errorf("%w: %v", models.ErrValidation, err))
		return
	}
	draft, err := payload.Draft()
	if err != nil {
		writeError(c, err)
		return
	}

	// 订单归属于当前登录用户
	if draft.UserID == 0 {
		draft.UserID = userID
	}
	if draft.UserID != userID {
		abortForbidden(c)
		return
	}
	for _, line := range draft.Lines {
		if line.Quantity <= 0 {
			writeError(c, models.ErrInvalidQuantity)
			return
		}
	}

	release, err := oc.guard.Acquire(c.Request.Context(), fmt.Sprintf("pedido:%d", userID))
	if errors.Is(err, inflight.ErrBusy) {
		writeError(c, models.ErrConflict)
		return
	}
	if err != nil {
		writeError(c, fmt.Errorf("%w: %w", models.ErrTransport, err))
		return
	}
	defer release()

	order, err := oc.orders.CreateOrder(c.Request.Context(), draft)
	if err != nil {
		log.Printf("Failed to create order for user %d: %v", userID, err)
		writeError(c, err)
		return
	}

	middlewares.ObserveOrderTotal(order.Total)
	c.JSON(http.StatusCreated, models.NewOrderPayload(order))

	// 事务提交成功后发送事件
	oc.publish(c.Request.Context(), newOrderEvent(models.OrderEventCreated, order))
}

// GetUserOrders lists the caller's orders, newest first. The optional
// usuario query parameter must name the caller.
func (oc *OrderController) GetUserOrders(c *gin.Context) {
	defer recordOperation(c, "list")
	userID, ok := middlewares.UserID(c)
	if !ok {
		writeError(c, models.ErrUnauthenticated)
		return
	}

	if raw := c.Query("usuario"); raw != "" {
		requested, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(c, fmt.Errorf("%w: invalid usuario %q", models.ErrValidation, raw))
			return
		}
		if requested != userID {
			abortForbidden(c)
			return
		}
	}

	orders, err := oc.orders.ListOrdersByUser(c.Request.Context(), userID)
	if err != nil {
		log.Printf("Failed to list orders for user %d: %v", userID, err)
		writeError(c, err)
		return
	}

	payloads := make([]models.OrderPayload, 0, len(orders))
	for _, o := range orders {
		payloads = append(payloads, models.NewOrderPayload(o))
	}
	c.JSON(http.StatusOK, payloads)
}

func (oc *OrderController) GetOrderDetails(c *gin.Context) {
	defer recordOperation(c, "details")
	order, ok := oc.ownedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, models.NewOrderPayload(order))
}

// DeleteOrder removes one of the caller's orders with all of its lines.
func (oc *OrderController) DeleteOrder(c *gin.Context) {
	defer recordOperation(c, "delete")
	order, ok := oc.ownedOrder(c)
	if !ok {
		return
	}

	if err := oc.orders.DeleteOrder(c.Request.Context(), order.ID); err != nil {
		log.Printf("Failed to delete order %d: %v", order.ID, err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.DeleteResponse{Deleted: true, OrderID: order.ID})
	oc.publish(c.Request.Context(), newOrderEvent(models.OrderEventDeleted, order))
}

// ownedOrder loads the order named by the :id parameter and writes the error
// response itself when the order is missing or belongs to someone else.
func (oc *OrderController) ownedOrder(c *gin.Context) (models.Order, bool) {
	userID, ok := middlewares.UserID(c)
	if !ok {
		writeError(c, models.ErrUnauthenticated)
		return models.Order{}, false
	}

	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || orderID <= 0 {
		writeError(c, fmt.Errorf("%w: invalid order id %q", models.ErrValidation, c.Param("id")))
		return models.Order{}, false
	}

	order, err := oc.orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, err)
		return models.Order{}, false
	}
	// Someone else's order is reported as missing.
	if order.UserID != userID {
		writeError(c, fmt.Errorf("order %d: %w", orderID, models.ErrOrderNotFound))
		return models.Order{}, false
	}
	return order, true
}

func (oc *OrderController) publish(ctx context.Context, event models.OrderEvent) {
	if oc.publisher == nil {
		return
	}
	if err := oc.publisher.PublishOrderEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Printf("Failed to publish order %s event for order %d: %v", event.Type, event.OrderID, err)
	}
}

func newOrderEvent(eventType string, order models.Order) models.OrderEvent {
	return models.OrderEvent{
		EventID:  uuid.NewString(),
		OrderID:  order.ID,
		UserID:   order.UserID,
		Type:     eventType,
		Total:    order.Total,
		Occurred: time.Now().UTC(),
	}
}

func recordOperation(c *gin.Context, operation string) {
	status := c.Writer.Status()
	middlewares.RecordOrderOperation(operation, status >= 200 && status < 300)
}

// statusFor maps the order error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrStoreConstraint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrTransport):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{Status: status, Error: msg})
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
		Status: http.StatusForbidden,
		Error:  "orders may only be managed by their owner",
	})
}
