package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/jmoiron/sqlx"
)

const selectOrderColumns = `order_id, order_date, customer_email, total_amount, status, line_items, created_at`

func (s *inventoryStore) GetOrders(ctx context.Context, since *time.Time) ([]*domain.Order, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders`
	args := []interface{}{}
	if since != nil {
		query += ` WHERE order_date >= $1`
		args = append(args, *since)
	}
	query += ` ORDER BY order_date, order_id`

	var orders []*domain.Order
	if err := sqlx.SelectContext(ctx, s.db, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, nil
}

func (s *inventoryStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders WHERE order_id = $1`

	var order domain.Order
	err := sqlx.GetContext(ctx, s.db, &order, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}

	return &order, nil
}

func (s *inventoryStore) GetPendingOrders(ctx context.Context) ([]*domain.Order, error) {
	query := `SELECT ` + selectOrderColumns + ` FROM orders WHERE status != $1 ORDER BY order_date, order_id`

	var orders []*domain.Order
	if err := sqlx.SelectContext(ctx, s.db, &orders, query, domain.OrderStatusCompleted); err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}

	return orders, nil
}

func (s *inventoryStore) InsertOrder(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (order_id, order_date, customer_email, total_amount, status, line_items)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.OrderDate, order.CustomerEmail, order.TotalAmount, order.Status, order.LineItems)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrOrderExists
		}
		return fmt.Errorf("failed to insert order %d: %w", order.ID, err)
	}
	return nil
}

func (s *inventoryStore) DeleteOrder(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE order_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete order %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// DeleteOrdersForProduct removes every order whose line items reference the
// product. Used when a product is removed from the catalog.
func (s *inventoryStore) DeleteOrdersForProduct(ctx context.Context, productID int64) ([]int64, error) {
	query := `
		DELETE FROM orders
		WHERE EXISTS (
			SELECT 1 FROM jsonb_array_elements(line_items) item
			WHERE (item->>'product_id')::bigint = $1
		)
		RETURNING order_id
	`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete orders for product %d: %w", productID, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan deleted order id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *inventoryStore) ClearOrders(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("failed to clear orders: %w", err)
	}
	return nil
}

// ProcessOrder deducts stock for each line item and marks the order
// completed, all in one transaction. Product rows are locked FOR UPDATE so
// concurrent orders against the same product serialize and every deduction
// lands. Deductions clamp at zero; the shortfall is reported, not dropped.
func (s *inventoryStore) ProcessOrder(ctx context.Context, orderID int64) (*repository.OrderProcessResult, error) {
	result := &repository.OrderProcessResult{OrderID: orderID}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var (
			status string
			items  domain.LineItems
		)
		err := tx.QueryRowContext(ctx,
			`SELECT status, line_items FROM orders WHERE order_id = $1 FOR UPDATE`, orderID).
			Scan(&status, &items)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock order %d: %w", orderID, err)
		}

		if domain.OrderStatus(status) == domain.OrderStatusCompleted {
			return &domain.AlreadyProcessedError{OrderID: orderID}
		}

		for _, item := range items {
			var current int
			err := tx.QueryRowContext(ctx,
				`SELECT stock_level FROM products WHERE product_id = $1 FOR UPDATE`, item.ProductID).
				Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				result.MissingProducts = append(result.MissingProducts, item.ProductID)
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to lock product %d: %w", item.ProductID, err)
			}

			deducted := item.Quantity
			if deducted > current {
				deducted = current
			}

			_, err = tx.ExecContext(ctx,
				`UPDATE products SET stock_level = $2, updated_at = NOW() WHERE product_id = $1`,
				item.ProductID, current-deducted)
			if err != nil {
				return fmt.Errorf("failed to deduct stock for product %d: %w", item.ProductID, err)
			}

			if deducted < item.Quantity {
				result.Shortfalls = append(result.Shortfalls, domain.StockShortfall{
					OrderID:   orderID,
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Deducted:  deducted,
					Shortfall: item.Quantity - deducted,
				})
			}
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE orders SET status = $2 WHERE order_id = $1`, orderID, domain.OrderStatusCompleted)
		if err != nil {
			return fmt.Errorf("failed to complete order %d: %w", orderID, err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
