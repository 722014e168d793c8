package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

type ProductRepository interface {
	GetProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// UpsertProduct inserts or overwrites by product id (last write wins).
	UpsertProduct(ctx context.Context, product *domain.Product) error
	// UpsertProducts applies a bulk import in a single transaction.
	UpsertProducts(ctx context.Context, products []domain.Product) error
	// CreateProduct inserts a product with a store-assigned id.
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error
}

type OrderRepository interface {
	GetOrders(ctx context.Context, since *time.Time) ([]*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	GetPendingOrders(ctx context.Context) ([]*domain.Order, error)
	// InsertOrder fails with ErrOrderExists for duplicate ids.
	InsertOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id int64) error
	// DeleteOrdersForProduct removes orders whose line items reference the
	// product, returning the removed order ids.
	DeleteOrdersForProduct(ctx context.Context, productID int64) ([]int64, error)
	ClearOrders(ctx context.Context) error
}

// OrderProcessResult reports the stock effects of processing one order.
type OrderProcessResult struct {
	OrderID         int64
	Shortfalls      []domain.StockShortfall
	MissingProducts []int64
}

// Store is the full persistence contract. ProcessOrder runs as one atomic
// unit: read the order, deduct stock per line item (clamped at zero, with
// shortfalls reported), and flip the status to completed. Concurrent calls
// touching the same product must serialize so every deduction lands.
// Reprocessing a completed order fails with AlreadyProcessedError.
type Store interface {
	ProductRepository
	OrderRepository
	ProcessOrder(ctx context.Context, orderID int64) (*OrderProcessResult, error)
}
