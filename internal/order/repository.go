package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"warehouse-api/internal/db"
)

type Repository interface {
	Create(ctx context.Context, items []ItemInput, createdAt time.Time) (*Order, error)
	GetAll(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Order, error)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

const selectOrdersWithItems = `
	SELECT o.id, o.created_at, o.status, oi.id, oi.product_id, oi.quantity
	FROM orders o
	LEFT JOIN order_items oi ON oi.order_id = o.id
`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

// Create decrements stock for every item and inserts the order with its items
// in one transaction. Each decrement is a conditional UPDATE, so a missing
// product or a short quantity aborts the whole order and nothing is written.
// Decrements run in ascending product id order so concurrent orders take row
// locks in the same sequence.
func (r *repository) Create(ctx context.Context, items []ItemInput, createdAt time.Time) (*Order, error) {
	o := &Order{
		CreatedAt: createdAt,
		Status:    DefaultStatus,
		Items:     make([]OrderItem, 0, len(items)),
	}

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, idx := range lockOrder(items) {
			it := items[idx]
			res, err := tx.ExecContext(ctx, `
				UPDATE products
				SET quantity = quantity - $1
				WHERE id = $2 AND quantity >= $1
			`, it.Quantity, it.ProductID)
			if err != nil {
				return fmt.Errorf("decrement stock for product %d: %w", it.ProductID, err)
			}

			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("%w: product %d", ErrInsufficientStock, it.ProductID)
			}
		}

		err := tx.QueryRowContext(ctx, `
			INSERT INTO orders (created_at, status)
			VALUES ($1, $2)
			RETURNING id
		`, o.CreatedAt, o.Status).Scan(&o.ID)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, it := range items {
			item := OrderItem{OrderID: o.ID, ProductID: it.ProductID, Quantity: it.Quantity}
			err := tx.QueryRowContext(ctx, `
				INSERT INTO order_items (order_id, product_id, quantity)
				VALUES ($1, $2, $3)
				RETURNING id
			`, item.OrderID, item.ProductID, item.Quantity).Scan(&item.ID)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
			o.Items = append(o.Items, item)
		}

		return nil
	})
	if errors.Is(err, ErrInsufficientStock) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	return o, nil
}

// lockOrder returns item indexes sorted by product id, stable for repeats.
func lockOrder(items []ItemInput) []int {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return items[idx[a]].ProductID < items[idx[b]].ProductID
	})
	return idx
}

func (r *repository) GetAll(ctx context.Context) ([]Order, error) {
	orders, err := queryOrders(ctx, r.db, selectOrdersWithItems+` ORDER BY o.id, oi.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	return getOrder(ctx, r.db, id)
}

func (r *repository) UpdateStatus(ctx context.Context, id int64, status string) (*Order, error) {
	var o *Order

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, status, id)
		if err != nil {
			return err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrOrderNotFound
		}

		o, err = getOrder(ctx, tx, id)
		return err
	})
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update order %d status: %w", id, err)
	}

	return o, nil
}

func getOrder(ctx context.Context, q queryer, id int64) (*Order, error) {
	orders, err := queryOrders(ctx, q, selectOrdersWithItems+` WHERE o.id = $1 ORDER BY oi.id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// queryOrders folds joined order/item rows into orders. Rows must be grouped
// by order id.
func queryOrders(ctx context.Context, q queryer, query string, args ...any) ([]Order, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]Order, 0)
	for rows.Next() {
		var (
			o         Order
			itemID    sql.NullInt64
			productID sql.NullInt64
			quantity  sql.NullInt64
		)
		if err := rows.Scan(&o.ID, &o.CreatedAt, &o.Status, &itemID, &productID, &quantity); err != nil {
			return nil, err
		}

		if n := len(orders); n == 0 || orders[n-1].ID != o.ID {
			o.Items = make([]OrderItem, 0)
			orders = append(orders, o)
		}

		if itemID.Valid {
			last := &orders[len(orders)-1]
			last.Items = append(last.Items, OrderItem{
				ID:        itemID.Int64,
				OrderID:   last.ID,
				ProductID: productID.Int64,
				Quantity:  int(quantity.Int64),
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return orders, nil
}
