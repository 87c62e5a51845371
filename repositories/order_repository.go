package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pedido-service/models"
)

const (
	insertOrder = `INSERT INTO pedidos (pedido_fecha, pedido_usuario, valor_total, direccion_envio)
	               VALUES (?, ?, ?, ?)`
	insertOrderLine = `INSERT INTO pedido_producto (id_pedido, id_producto, cantidad) VALUES (?, ?, ?)`

	deleteOrderLines = `DELETE FROM pedido_producto WHERE id_pedido = ?`
	deleteOrder      = `DELETE FROM pedidos WHERE pedido_id = ?`

	selectOrdersByUser = `SELECT pedido_id, pedido_fecha, pedido_usuario, valor_total, direccion_envio
	                      FROM pedidos WHERE pedido_usuario = ?
	                      ORDER BY pedido_fecha DESC, pedido_id DESC`
	selectOrder = `SELECT pedido_id, pedido_fecha, pedido_usuario, valor_total, direccion_envio
	               FROM pedidos WHERE pedido_id = ?`
	selectOrderLines = `SELECT id_producto, cantidad FROM pedido_producto WHERE id_pedido = ? ORDER BY id`
)

// OrderRepository persists orders (pedidos) and their lines (pedido_producto).
// Multi-statement writes run in a single transaction and never leave a
// header without its lines or lines without their header.
type OrderRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db, now: time.Now}
}

// WithClock replaces the clock used to stamp new orders.
func (r *OrderRepository) WithClock(now func() time.Time) *OrderRepository {
	r.now = now
	return r
}

// CreateOrder writes the header and every line atomically and returns the
// stored order with its assigned id and creation time. Once the transaction
// has begun it runs to commit or rollback even if ctx is cancelled.
func (r *OrderRepository) CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error) {
	if err := ctx.Err(); err != nil {
		return models.Order{}, models.WriteFailed(nil, err)
	}
	ctx = context.WithoutCancel(ctx)

	order := models.Order{
		UserID:          draft.UserID,
		CreatedAt:       r.now().UTC().Truncate(time.Microsecond),
		Total:           draft.Total,
		ShippingAddress: draft.ShippingAddress,
		Lines:           append([]models.OrderLine(nil), draft.Lines...),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Order{}, models.WriteFailed(classify(err), fmt.Errorf("begin transaction: %w", err))
	}
	defer rollback(tx, "create order")

	res, err := tx.ExecContext(ctx, insertOrder, order.CreatedAt, order.UserID, order.Total, order.ShippingAddress)
	if err != nil {
		return models.Order{}, models.WriteFailed(classify(err), fmt.Errorf("insert order: %w", err))
	}
	order.ID, err = res.LastInsertId()
	if err != nil {
		return models.Order{}, models.WriteFailed(classify(err), fmt.Errorf("read order id: %w", err))
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, insertOrderLine, order.ID, line.ProductID, line.Quantity); err != nil {
			return models.Order{}, models.WriteFailed(classify(err),
				fmt.Errorf("insert line for product %d: %w", line.ProductID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Order{}, models.WriteFailed(classify(err), fmt.Errorf("commit: %w", err))
	}

	log.Printf("orders: created order %d for user %d (%d lines, total %d)",
		order.ID, order.UserID, len(order.Lines), order.Total)
	return order, nil
}

// DeleteOrder removes the order's lines and then the order itself inside one
// transaction on a dedicated connection:
//
//  1. delete every pedido_producto row of the order (zero rows is fine)
//  2. delete the pedidos row
//  3. commit only if exactly one header row went away, otherwise roll back
//     so the line deletion is undone and report models.ErrOrderNotFound
//
// Any statement error rolls back. The connection is returned to the pool in
// autocommit mode on every path.
func (r *OrderRepository) DeleteOrder(ctx context.Context, orderID int64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delete order %d: %w", orderID, err)
	}
	ctx = context.WithoutCancel(ctx)

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return deleteFailed(orderID, "acquire connection", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Printf("orders: release connection after deleting order %d: %v", orderID, err)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return deleteFailed(orderID, "begin transaction", err)
	}
	defer rollback(tx, "delete order")

	res, err := tx.ExecContext(ctx, deleteOrderLines, orderID)
	if err != nil {
		return deleteFailed(orderID, "delete lines", err)
	}
	lines, err := res.RowsAffected()
	if err != nil {
		return deleteFailed(orderID, "count deleted lines", err)
	}

	res, err = tx.ExecContext(ctx, deleteOrder, orderID)
	if err != nil {
		return deleteFailed(orderID, "delete order", err)
	}
	headers, err := res.RowsAffected()
	if err != nil {
		return deleteFailed(orderID, "count deleted orders", err)
	}

	if headers != 1 {
		if err := tx.Rollback(); err != nil {
			log.Printf("orders: rollback delete of order %d: %v", orderID, err)
		}
		if headers == 0 {
			log.Printf("orders: order %d not found, rolled back %d line deletions", orderID, lines)
			return fmt.Errorf("delete order %d: %w", orderID, models.ErrOrderNotFound)
		}
		return fmt.Errorf("delete order %d: %d header rows matched", orderID, headers)
	}

	if err := tx.Commit(); err != nil {
		return deleteFailed(orderID, "commit", err)
	}
	log.Printf("orders: deleted order %d and %d lines", orderID, lines)
	return nil
}

// ListOrdersByUser returns the user's orders newest first, without lines.
func (r *OrderRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrdersByUser, userID)
	if err != nil {
		return nil, queryFailed("query orders by user", err)
	}
	defer rows.Close()

	orders := make([]models.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, queryFailed("scan order row", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, queryFailed("row iteration error", err)
	}
	return orders, nil
}

// GetOrder returns one order with its lines.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID int64) (models.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, selectOrder, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Order{}, fmt.Errorf("get order %d: %w", orderID, models.ErrOrderNotFound)
	}
	if err != nil {
		return models.Order{}, queryFailed("query order by id", err)
	}

	rows, err := r.db.QueryContext(ctx, selectOrderLines, orderID)
	if err != nil {
		return models.Order{}, queryFailed("query order lines", err)
	}
	defer rows.Close()

	order.Lines = make([]models.OrderLine, 0)
	for rows.Next() {
		var line models.OrderLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return models.Order{}, queryFailed("scan order line", err)
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return models.Order{}, queryFailed("row iteration error", err)
	}
	return order, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (models.Order, error) {
	var o models.Order
	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UserID, &o.Total, &o.ShippingAddress); err != nil {
		return models.Order{}, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	return o, nil
}

func rollback(tx *sql.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("orders: rollback %s: %v", op, err)
	}
}

func deleteFailed(orderID int64, step string, err error) error {
	if kind := classify(err); kind != nil {
		return fmt.Errorf("delete order %d: %s: %w: %w", orderID, step, kind, err)
	}
	return fmt.Errorf("delete order %d: %s: %w", orderID, step, err)
}

func queryFailed(step string, err error) error {
	if kind := classify(err); kind != nil {
		return fmt.Errorf("%s: %w: %w", step, kind, err)
	}
	return fmt.Errorf("%s: %w", step, err)
}
