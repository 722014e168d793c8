package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/repository/memory"
	"github.com/andresuchdata/stockcast/internal/service"
)

const productCSV = "ProductID,ProductName,Price,Stock\n" +
	"1,Widget,9.99,100\n" +
	"2,Gadget,19.50,0\n" +
	"3,Gizmo,4.25,5\n"

const orderCSV = "order_id,order_date,customer_email,total_amount,status,line_items\n" +
	"100,2025-03-01,a@example.com,19.98,pending,\"[{\"\"product_id\"\":1,\"\"name\"\":\"\"Widget\"\",\"\"quantity\"\":2,\"\"price\"\":9.99}]\"\n" +
	"101,2025-03-02,b@example.com,19.50,pending,\"[{\"\"product_id\"\":2,\"\"name\"\":\"\"Gadget\"\",\"\"quantity\"\":1,\"\"price\"\":19.50}]\"\n"

func newInventory(t *testing.T) (*service.InventoryService, repository.Store) {
	t.Helper()
	store := memory.NewInventoryStore()
	return service.NewInventoryService(store, cache.NewNoopForecastCache()), store
}

func TestImportProducts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	report, err := inventory.ImportProducts(ctx, strings.NewReader(productCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)

	product, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Widget", product.Name)
	assert.Equal(t, 100, product.StockLevel)

	// Re-importing overwrites by id rather than duplicating.
	updated := "ProductID,ProductName,Price,Stock\n1,Widget v2,10.99,50\n"
	_, err = inventory.ImportProducts(ctx, strings.NewReader(updated))
	require.NoError(t, err)

	product, err = store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", product.Name)
	assert.Equal(t, 50, product.StockLevel)

	listings, err := inventory.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, listings, 3)
	assert.Equal(t, domain.SeverityOutOfStock, listings[1].StockStatus)
	assert.Equal(t, domain.SeverityLow, listings[2].StockStatus)
}

func TestImportOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	report, err := inventory.ImportOrders(ctx, strings.NewReader(orderCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Imported)
	assert.Zero(t, report.Skipped)

	order, err := store.GetOrder(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)

	// Re-uploading the same file skips every row and reports why.
	report, err = inventory.ImportOrders(ctx, strings.NewReader(orderCSV))
	require.NoError(t, err)
	assert.Zero(t, report.Imported)
	assert.Equal(t, 2, report.Skipped)
	require.Len(t, report.Errors, 2)
	assert.Contains(t, report.Errors[0].Message, "duplicate order id")
}

func TestProcessPendingOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	_, err := inventory.ImportProducts(ctx, strings.NewReader(productCSV))
	require.NoError(t, err)
	_, err = inventory.ImportOrders(ctx, strings.NewReader(orderCSV))
	require.NoError(t, err)

	report, err := inventory.ProcessPendingOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Zero(t, report.Skipped)

	// Order 100 took 2 Widgets; order 101 wanted 1 Gadget from an empty shelf.
	widget, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 98, widget.StockLevel)

	require.Len(t, report.Shortfalls, 1)
	assert.Equal(t, int64(101), report.Shortfalls[0].OrderID)
	assert.Equal(t, 1, report.Shortfalls[0].Shortfall)

	// A second run finds nothing pending.
	report, err = inventory.ProcessPendingOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
}

func TestProcessOrderTwice(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, _ := newInventory(t)

	_, err := inventory.ImportProducts(ctx, strings.NewReader(productCSV))
	require.NoError(t, err)
	_, err = inventory.ImportOrders(ctx, strings.NewReader(orderCSV))
	require.NoError(t, err)

	_, err = inventory.ProcessOrder(ctx, 100)
	require.NoError(t, err)

	_, err = inventory.ProcessOrder(ctx, 100)
	var alreadyProcessed *domain.AlreadyProcessedError
	require.ErrorAs(t, err, &alreadyProcessed)
}

func TestDeleteProductCascadesToOrders(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	_, err := inventory.ImportProducts(ctx, strings.NewReader(productCSV))
	require.NoError(t, err)
	_, err = inventory.ImportOrders(ctx, strings.NewReader(orderCSV))
	require.NoError(t, err)

	removed, err := inventory.DeleteProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, removed)

	_, err = store.GetOrder(ctx, 100)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = store.GetOrder(ctx, 101)
	require.NoError(t, err)
}

func TestCreateOrderDefaultsToPending(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	_, err := inventory.ImportProducts(ctx, strings.NewReader(productCSV))
	require.NoError(t, err)

	order := &domain.Order{
		ID:        200,
		OrderDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		LineItems: domain.LineItems{{ProductID: 1, Name: "Widget", Quantity: 1, Price: 9.99}},
	}
	require.NoError(t, inventory.CreateOrder(ctx, order))

	got, err := store.GetOrder(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
}

func TestCreateOrderRejectsInvalidLineItems(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	_, err := inventory.ImportProducts(ctx, strings.NewReader(productCSV))
	require.NoError(t, err)

	newOrder := func(items domain.LineItems) *domain.Order {
		return &domain.Order{
			ID:        300,
			OrderDate: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
			LineItems: items,
		}
	}

	var invalid *domain.InvalidLineItemError

	t.Run("negative quantity", func(t *testing.T) {
		err := inventory.CreateOrder(ctx, newOrder(domain.LineItems{
			{ProductID: 1, Name: "Widget", Quantity: -5, Price: 9.99},
		}))
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Reason, "quantity")
	})

	t.Run("zero quantity", func(t *testing.T) {
		err := inventory.CreateOrder(ctx, newOrder(domain.LineItems{
			{ProductID: 1, Name: "Widget", Quantity: 0, Price: 9.99},
		}))
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("non-positive product id", func(t *testing.T) {
		err := inventory.CreateOrder(ctx, newOrder(domain.LineItems{
			{ProductID: 0, Name: "Widget", Quantity: 1, Price: 9.99},
		}))
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Reason, "product_id")
	})

	t.Run("negative price", func(t *testing.T) {
		err := inventory.CreateOrder(ctx, newOrder(domain.LineItems{
			{ProductID: 1, Name: "Widget", Quantity: 1, Price: -0.01},
		}))
		require.ErrorAs(t, err, &invalid)
		assert.Contains(t, invalid.Reason, "price")
	})

	t.Run("unknown product", func(t *testing.T) {
		err := inventory.CreateOrder(ctx, newOrder(domain.LineItems{
			{ProductID: 999, Name: "Ghost", Quantity: 1, Price: 1.00},
		}))
		require.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	// Nothing was stored, and stock never moved.
	_, err = store.GetOrder(ctx, 300)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	widget, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 100, widget.StockLevel)
}

// A bad quantity must be stopped before insert: once stored, processing a
// negative quantity would add stock instead of deducting it.
func TestNegativeQuantityNeverInflatesStock(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	inventory, store := newInventory(t)

	_, err := inventory.ImportProducts(ctx, strings.NewReader("ProductID,ProductName,Price,Stock\n1,Widget,9.99,10\n"))
	require.NoError(t, err)

	err = inventory.CreateOrder(ctx, &domain.Order{
		ID:        400,
		OrderDate: time.Date(2025, 3, 6, 0, 0, 0, 0, time.UTC),
		LineItems: domain.LineItems{{ProductID: 1, Name: "Widget", Quantity: -5, Price: 9.99}},
	})
	var invalid *domain.InvalidLineItemError
	require.ErrorAs(t, err, &invalid)

	report, err := inventory.ProcessPendingOrders(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Processed)

	widget, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, widget.StockLevel, "stock must never grow from order processing")
}
