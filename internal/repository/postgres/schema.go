package postgres

import (
	"context"
	"fmt"
)

// Schema DDL for the inventory store. Applied on demand by `stockctl init-db`
// rather than on server start.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS products (
	product_id  BIGINT PRIMARY KEY,
	name        TEXT NOT NULL,
	price       NUMERIC(12,2) NOT NULL DEFAULT 0,
	stock_level INTEGER NOT NULL DEFAULT 0 CHECK (stock_level >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	order_id       BIGINT PRIMARY KEY,
	order_date     TIMESTAMPTZ NOT NULL,
	customer_email TEXT NOT NULL,
	total_amount   NUMERIC(12,2) NOT NULL DEFAULT 0,
	status         TEXT NOT NULL DEFAULT 'pending',
	line_items     JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);
CREATE INDEX IF NOT EXISTS idx_orders_order_date ON orders (order_date);
`

// InitSchema creates the products and orders tables if they do not exist.
func InitSchema(ctx context.Context, db *DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
