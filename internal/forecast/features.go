package forecast

import (
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Config holds the feature construction knobs.
type Config struct {
	// WindowSize is the number of trailing observations aggregated into one
	// feature vector.
	WindowSize int
	// MinHistory is the minimum number of observations a product needs to
	// enter training. Products below the floor get a naive fallback.
	MinHistory int
}

const (
	defaultWindowSize = 5
	defaultMinHistory = 2

	// Fixed feature vector width: total qty, order count, mean order value,
	// mean qty per order, day-of-week, day-of-month.
	numFeatures = 6
)

// Observation is one line-item occurrence for a product.
type Observation struct {
	Date     time.Time
	Quantity int
	Value    float64 // quantity * unit price at order time
}

// ProductStats carries the aggregate history figures reported alongside each
// prediction.
type ProductStats struct {
	Name          string
	TotalQuantity int
	AvgQuantity   float64
	Orders        int
}

// BuildResult is everything the model and the recommendation step need:
// training pairs, the current (most recent window) vector per trained
// product, naive fallbacks for thin-history products, and per-product stats.
type BuildResult struct {
	Features [][]float64
	Labels   []float64
	Current  map[int64][]float64
	Naive    map[int64]float64
	Stats    map[int64]ProductStats
}

// Builder turns chronological order history into fixed-width feature vectors
// with lagged labels.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultWindowSize
	}
	if cfg.MinHistory < 2 {
		cfg.MinHistory = defaultMinHistory
	}
	return &Builder{cfg: cfg}
}

// Build groups line items by product, derives trailing-window aggregates and
// calendar features, and labels each vector with the quantity observed in the
// subsequent period.
func (b *Builder) Build(orders []domain.Order) *BuildResult {
	histories := groupByProduct(orders)

	result := &BuildResult{
		Current: make(map[int64][]float64),
		Naive:   make(map[int64]float64),
		Stats:   make(map[int64]ProductStats),
	}

	// Stable iteration order keeps training sets byte-identical across runs.
	ids := make([]int64, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		h := histories[id]
		result.Stats[id] = stats(h)

		if len(h.obs) < b.cfg.MinHistory {
			result.Naive[id] = naiveDemand(h.obs)
			continue
		}

		// Supervised pairs: window ending before obs[i] predicts obs[i].
		for i := 1; i < len(h.obs); i++ {
			start := i - b.cfg.WindowSize
			if start < 0 {
				start = 0
			}
			vec := featurize(h.obs[start:i], h.obs[i].Date)
			result.Features = append(result.Features, vec)
			result.Labels = append(result.Labels, float64(h.obs[i].Quantity))
		}

		// Current vector: the latest window, targeting the next period.
		start := len(h.obs) - b.cfg.WindowSize
		if start < 0 {
			start = 0
		}
		next := h.obs[len(h.obs)-1].Date.Add(24 * time.Hour)
		result.Current[id] = featurize(h.obs[start:], next)
	}

	return result
}

type productHistory struct {
	name string
	obs  []Observation
}

func groupByProduct(orders []domain.Order) map[int64]*productHistory {
	sorted := make([]domain.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderDate.Before(sorted[j].OrderDate)
	})

	histories := make(map[int64]*productHistory)
	for _, order := range sorted {
		for _, item := range order.LineItems {
			h, ok := histories[item.ProductID]
			if !ok {
				h = &productHistory{name: item.Name}
				histories[item.ProductID] = h
			}
			h.obs = append(h.obs, Observation{
				Date:     order.OrderDate,
				Quantity: item.Quantity,
				Value:    float64(item.Quantity) * item.Price,
			})
		}
	}
	return histories
}

// featurize aggregates a trailing window and attaches calendar features for
// the target date.
func featurize(window []Observation, target time.Time) []float64 {
	var totalQty, totalValue float64
	for _, o := range window {
		totalQty += float64(o.Quantity)
		totalValue += o.Value
	}
	n := float64(len(window))

	vec := make([]float64, numFeatures)
	vec[0] = totalQty
	vec[1] = n
	vec[2] = totalValue / n
	vec[3] = totalQty / n
	vec[4] = float64(target.Weekday())
	vec[5] = float64(target.Day())
	return vec
}

// naiveDemand is the explicit fallback floor for products with too little
// history to train on: the mean quantity per observed order.
func naiveDemand(obs []Observation) float64 {
	if len(obs) == 0 {
		return 0
	}
	var total float64
	for _, o := range obs {
		total += float64(o.Quantity)
	}
	return total / float64(len(obs))
}

func stats(h *productHistory) ProductStats {
	s := ProductStats{Name: h.name, Orders: len(h.obs)}
	for _, o := range h.obs {
		s.TotalQuantity += o.Quantity
	}
	if s.Orders > 0 {
		s.AvgQuantity = float64(s.TotalQuantity) / float64(s.Orders)
	}
	return s
}
