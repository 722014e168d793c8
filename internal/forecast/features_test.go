package forecast_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
)

func day(d int) time.Time {
	return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC)
}

func orderOn(id int64, date time.Time, productID int64, qty int, price float64) domain.Order {
	return domain.Order{
		ID:        id,
		OrderDate: date,
		Status:    domain.OrderStatusPending,
		LineItems: domain.LineItems{
			{ProductID: productID, Name: "Widget", Quantity: qty, Price: price},
		},
	}
}

func TestBuilderBuild(t *testing.T) {
	t.Parallel()

	t.Run("training pairs use lagged labels", func(t *testing.T) {
		t.Parallel()

		builder := forecast.NewBuilder(forecast.Config{WindowSize: 5, MinHistory: 2})
		orders := []domain.Order{
			orderOn(1, day(1), 7, 2, 10),
			orderOn(2, day(2), 7, 4, 10),
			orderOn(3, day(3), 7, 6, 10),
		}

		built := builder.Build(orders)

		// Three observations yield two supervised pairs.
		require.Len(t, built.Features, 2)
		require.Len(t, built.Labels, 2)
		assert.Equal(t, []float64{4, 6}, built.Labels)

		// First pair: window is just the day-1 observation, target day 2.
		vec := built.Features[0]
		assert.Equal(t, 2.0, vec[0])  // total quantity in window
		assert.Equal(t, 1.0, vec[1])  // order count
		assert.Equal(t, 20.0, vec[2]) // mean order value
		assert.Equal(t, 2.0, vec[3])  // mean quantity per order

		current, ok := built.Current[7]
		require.True(t, ok)
		assert.Equal(t, 12.0, current[0])
		assert.Equal(t, 3.0, current[1])

		stats := built.Stats[7]
		assert.Equal(t, "Widget", stats.Name)
		assert.Equal(t, 12, stats.TotalQuantity)
		assert.InDelta(t, 4.0, stats.AvgQuantity, 1e-9)
	})

	t.Run("thin history falls back to naive estimate", func(t *testing.T) {
		t.Parallel()

		builder := forecast.NewBuilder(forecast.Config{WindowSize: 5, MinHistory: 2})
		orders := []domain.Order{
			orderOn(1, day(1), 9, 5, 3),
		}

		built := builder.Build(orders)

		assert.Empty(t, built.Features)
		_, trained := built.Current[9]
		assert.False(t, trained)

		naive, ok := built.Naive[9]
		require.True(t, ok)
		assert.InDelta(t, 5.0, naive, 1e-9)
	})

	t.Run("orders are sorted before windowing", func(t *testing.T) {
		t.Parallel()

		builder := forecast.NewBuilder(forecast.Config{WindowSize: 2, MinHistory: 2})
		// Deliberately out of chronological order.
		orders := []domain.Order{
			orderOn(3, day(3), 7, 6, 10),
			orderOn(1, day(1), 7, 2, 10),
			orderOn(2, day(2), 7, 4, 10),
		}

		built := builder.Build(orders)

		require.Len(t, built.Labels, 2)
		assert.Equal(t, []float64{4, 6}, built.Labels)
	})

	t.Run("calendar features follow the target date", func(t *testing.T) {
		t.Parallel()

		builder := forecast.NewBuilder(forecast.Config{WindowSize: 5, MinHistory: 2})
		orders := []domain.Order{
			orderOn(1, day(1), 7, 1, 10),
			orderOn(2, day(2), 7, 1, 10),
		}

		built := builder.Build(orders)

		require.Len(t, built.Features, 1)
		// Target is 2025-03-02, a Sunday.
		assert.Equal(t, float64(time.Sunday), built.Features[0][4])
		assert.Equal(t, 2.0, built.Features[0][5])
	})
}
