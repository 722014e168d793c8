package forecast

import (
	"math"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Recommend converts a demand estimate and the current stock level into a
// severity tier and a restock quantity. Pure function: same inputs always
// yield the same outputs.
//
//   - stock == 0            -> out_of_stock
//   - stock < demand        -> low (projected to run out within the window)
//   - otherwise             -> sufficient
//
// Restock quantity is max(0, demand - stock) rounded up to a whole unit.
func Recommend(demand float64, stock int) (domain.Severity, int) {
	restock := int(math.Ceil(math.Max(0, demand-float64(stock))))

	switch {
	case stock == 0:
		return domain.SeverityOutOfStock, restock
	case float64(stock) < demand:
		return domain.SeverityLow, restock
	default:
		return domain.SeveritySufficient, restock
	}
}

// StockTier classifies a product row for listing purposes using the same
// thresholds the dashboard color coding uses.
func StockTier(stock, lowWatermark int) domain.Severity {
	switch {
	case stock <= 0:
		return domain.SeverityOutOfStock
	case stock < lowWatermark:
		return domain.SeverityLow
	default:
		return domain.SeveritySufficient
	}
}
