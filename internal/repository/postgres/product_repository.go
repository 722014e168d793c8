package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/jmoiron/sqlx"
)

func (s *inventoryStore) GetProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT product_id, name, price, stock_level, created_at, updated_at
		FROM products
		ORDER BY product_id
	`

	var products []*domain.Product
	if err := sqlx.SelectContext(ctx, s.db, &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

func (s *inventoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `
		SELECT product_id, name, price, stock_level, created_at, updated_at
		FROM products
		WHERE product_id = $1
	`

	var product domain.Product
	err := sqlx.GetContext(ctx, s.db, &product, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}

	return &product, nil
}

const upsertProductQuery = `
	INSERT INTO products (product_id, name, price, stock_level, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5)
	ON CONFLICT (product_id)
	DO UPDATE SET
		name = EXCLUDED.name,
		price = EXCLUDED.price,
		stock_level = EXCLUDED.stock_level,
		updated_at = NOW()
`

func (s *inventoryStore) UpsertProduct(ctx context.Context, product *domain.Product) error {
	_, err := s.db.ExecContext(ctx, upsertProductQuery,
		product.ID, product.Name, product.Price, product.StockLevel, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", product.ID, err)
	}
	return nil
}

// UpsertProducts applies a bulk import in one transaction so a partial
// failure never leaves a half-written catalog.
func (s *inventoryStore) UpsertProducts(ctx context.Context, products []domain.Product) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertProductQuery)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		now := time.Now()
		for _, p := range products {
			if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Price, p.StockLevel, now); err != nil {
				return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// CreateProduct assigns the next free id inside a transaction. Import ids and
// form-created ids share the same keyspace, matching the upload contract.
func (s *inventoryStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO products (product_id, name, price, stock_level)
			VALUES ((SELECT COALESCE(MAX(product_id), 0) + 1 FROM products), $1, $2, $3)
			RETURNING product_id
		`
		err := tx.QueryRowContext(ctx, query, product.Name, product.Price, product.StockLevel).Scan(&product.ID)
		if err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return nil
	})
}

func (s *inventoryStore) UpdateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, price = $3, stock_level = $4, updated_at = NOW()
		WHERE product_id = $1
	`

	res, err := s.db.ExecContext(ctx, query, product.ID, product.Name, product.Price, product.StockLevel)
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", product.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *inventoryStore) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}
