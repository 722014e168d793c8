package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/repository/memory"
	"github.com/andresuchdata/stockcast/internal/service"
)

func forecastConfig() config.ForecastConfig {
	return config.ForecastConfig{
		WindowSize: 5,
		MinHistory: 2,
		Trees:      30,
		MaxDepth:   5,
		Seed:       42,
	}
}

func seedHistory(t *testing.T, store repository.Store, productID int64, stock int, quantities []int) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.UpsertProduct(ctx, &domain.Product{
		ID:         productID,
		Name:       "Widget",
		Price:      9.99,
		StockLevel: stock,
	}))

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, qty := range quantities {
		require.NoError(t, store.InsertOrder(ctx, &domain.Order{
			ID:        productID*1000 + int64(i),
			OrderDate: base.AddDate(0, 0, i),
			Status:    domain.OrderStatusCompleted,
			LineItems: domain.LineItems{
				{ProductID: productID, Name: "Widget", Quantity: qty, Price: 9.99},
			},
		}))
	}
}

func TestForecast(t *testing.T) {
	t.Parallel()

	t.Run("trained products carry model estimates", func(t *testing.T) {
		t.Parallel()
		store := memory.NewInventoryStore()
		seedHistory(t, store, 1, 100, []int{2, 4, 6, 4, 2, 4, 6, 4})

		svc := service.NewForecastService(store, cache.NewNoopForecastCache(), forecastConfig())
		predictions, err := svc.Forecast(context.Background())
		require.NoError(t, err)

		require.Len(t, predictions, 1)
		p := predictions[0]
		assert.Equal(t, int64(1), p.ProductID)
		assert.False(t, p.Naive)
		assert.Equal(t, 32, p.TotalQuantity)
		assert.InDelta(t, 4.0, p.AvgQuantity, 1e-9)
		assert.GreaterOrEqual(t, p.PredictedDemand, 0.0)
		assert.Equal(t, 100, p.CurrentStock)
		assert.Equal(t, domain.SeveritySufficient, p.Severity)
		assert.Zero(t, p.RecommendedRestock)
	})

	t.Run("thin history is flagged naive", func(t *testing.T) {
		t.Parallel()
		store := memory.NewInventoryStore()
		seedHistory(t, store, 1, 100, []int{2, 4, 6, 4, 2, 4, 6, 4})
		seedHistory(t, store, 2, 0, []int{5})

		svc := service.NewForecastService(store, cache.NewNoopForecastCache(), forecastConfig())
		predictions, err := svc.Forecast(context.Background())
		require.NoError(t, err)

		require.Len(t, predictions, 2)
		thin := predictions[1]
		assert.Equal(t, int64(2), thin.ProductID)
		assert.True(t, thin.Naive)
		assert.InDelta(t, 5.0, thin.PredictedDemand, 1e-9)
		assert.Equal(t, domain.SeverityOutOfStock, thin.Severity)
		assert.Equal(t, 5, thin.RecommendedRestock)
	})

	t.Run("too little history overall degrades to naive, not an error", func(t *testing.T) {
		t.Parallel()
		store := memory.NewInventoryStore()
		seedHistory(t, store, 1, 3, []int{7})

		svc := service.NewForecastService(store, cache.NewNoopForecastCache(), forecastConfig())
		predictions, err := svc.Forecast(context.Background())
		require.NoError(t, err)

		require.Len(t, predictions, 1)
		assert.True(t, predictions[0].Naive)
		assert.InDelta(t, 7.0, predictions[0].PredictedDemand, 1e-9)
		assert.Equal(t, domain.SeverityLow, predictions[0].Severity)
		assert.Equal(t, 4, predictions[0].RecommendedRestock)
	})

	t.Run("orders for uncataloged products count as zero stock", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		store := memory.NewInventoryStore()
		require.NoError(t, store.InsertOrder(ctx, &domain.Order{
			ID:        1,
			OrderDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Status:    domain.OrderStatusCompleted,
			LineItems: domain.LineItems{{ProductID: 99, Name: "Ghost", Quantity: 3, Price: 1}},
		}))

		svc := service.NewForecastService(store, cache.NewNoopForecastCache(), forecastConfig())
		predictions, err := svc.Forecast(ctx)
		require.NoError(t, err)

		require.Len(t, predictions, 1)
		assert.Equal(t, 0, predictions[0].CurrentStock)
		assert.Equal(t, domain.SeverityOutOfStock, predictions[0].Severity)
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		t.Parallel()
		store := memory.NewInventoryStore()
		seedHistory(t, store, 1, 10, []int{2, 4, 6, 4, 2, 4, 6, 4})
		seedHistory(t, store, 2, 5, []int{1, 3, 1, 3, 1, 3})

		svc := service.NewForecastService(store, cache.NewNoopForecastCache(), forecastConfig())

		first, err := svc.Forecast(context.Background())
		require.NoError(t, err)
		second, err := svc.Forecast(context.Background())
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestForecastFromUpload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.NewInventoryStore()
	require.NoError(t, store.UpsertProduct(ctx, &domain.Product{
		ID: 1, Name: "Widget", Price: 9.99, StockLevel: 2,
	}))

	csv := "order_id,order_date,customer_email,total_amount,status,line_items\n" +
		"100,2025-03-01,a@example.com,19.98,completed,\"[{\"\"product_id\"\":1,\"\"name\"\":\"\"Widget\"\",\"\"quantity\"\":4,\"\"price\"\":9.99}]\"\n" +
		"101,2025-03-02,b@example.com,39.96,completed,\"[{\"\"product_id\"\":1,\"\"name\"\":\"\"Widget\"\",\"\"quantity\"\":4,\"\"price\"\":9.99}]\"\n"

	svc := service.NewForecastService(store, cache.NewNoopForecastCache(), forecastConfig())
	predictions, report, err := svc.ForecastFromUpload(ctx, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Imported)
	require.Len(t, predictions, 1)
	assert.Equal(t, 2, predictions[0].CurrentStock)

	// Nothing was persisted.
	orders, err := store.GetOrders(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}
