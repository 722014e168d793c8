package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/ingest"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/rs/zerolog/log"
)

// ForecastService retrains the demand model per request over the order
// history and derives restock recommendations against current stock. Results
// are cached keyed by the history fingerprint and the model settings, so a
// repeat request with unchanged orders is a cache hit.
type ForecastService struct {
	store repository.Store
	cache cache.ForecastCache
	cfg   config.ForecastConfig
}

func NewForecastService(store repository.Store, cacheImpl cache.ForecastCache, cfg config.ForecastConfig) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	return &ForecastService{store: store, cache: cacheImpl, cfg: cfg}
}

// Forecast predicts next-period demand per product from the stored order
// history.
func (s *ForecastService) Forecast(ctx context.Context) ([]domain.Prediction, error) {
	orderPtrs, err := s.store.GetOrders(ctx, nil)
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderPtrs))
	for _, o := range orderPtrs {
		orders = append(orders, *o)
	}

	key := s.cacheKey(orders)
	if predictions, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		return predictions, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast cache get failed")
	}

	predictions, err := s.predict(ctx, orders)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, predictions); err != nil {
		log.Warn().Err(err).Msg("forecast cache set failed")
	}

	return predictions, nil
}

// ForecastFromUpload predicts from an uploaded order CSV without persisting
// the orders. Stock levels still come from the catalog.
func (s *ForecastService) ForecastFromUpload(ctx context.Context, r io.Reader) ([]domain.Prediction, *domain.ImportReport, error) {
	orders, report, err := ingest.ParseOrders(r)
	if err != nil {
		return nil, nil, err
	}

	predictions, err := s.predict(ctx, orders)
	if err != nil {
		return nil, nil, err
	}
	return predictions, report, nil
}

func (s *ForecastService) predict(ctx context.Context, orders []domain.Order) ([]domain.Prediction, error) {
	stock, err := s.stockLevels(ctx)
	if err != nil {
		return nil, err
	}

	builder := forecast.NewBuilder(forecast.Config{
		WindowSize: s.cfg.WindowSize,
		MinHistory: s.cfg.MinHistory,
	})
	built := builder.Build(orders)

	model := forecast.NewForest(s.cfg.Trees, s.cfg.MaxDepth, s.cfg.Seed)
	trained := false
	if err := model.Fit(built.Features, built.Labels); err != nil {
		if !errors.Is(err, domain.ErrInsufficientData) {
			return nil, err
		}
		// Too little history overall: every product falls back to its naive
		// estimate instead of failing the request.
		log.Warn().Err(err).Int("orders", len(orders)).Msg("model training skipped, using naive estimates")
	} else {
		trained = true
	}

	predictions := make([]domain.Prediction, 0, len(built.Stats))
	for _, id := range sortedProductIDs(built) {
		stats := built.Stats[id]
		p := domain.Prediction{
			ProductID:     id,
			ProductName:   stats.Name,
			TotalQuantity: stats.TotalQuantity,
			AvgQuantity:   stats.AvgQuantity,
			CurrentStock:  stock[id],
		}

		if vec, ok := built.Current[id]; ok && trained {
			demand, err := model.Predict(vec)
			if err != nil {
				log.Warn().Err(err).Int64("product_id", id).Msg("prediction failed, product omitted")
				continue
			}
			p.PredictedDemand = demand
		} else {
			naive, ok := built.Naive[id]
			if !ok {
				naive = stats.AvgQuantity
			}
			p.PredictedDemand = naive
			p.Naive = true
		}

		p.Severity, p.RecommendedRestock = forecast.Recommend(p.PredictedDemand, p.CurrentStock)
		predictions = append(predictions, p)
	}

	return predictions, nil
}

func (s *ForecastService) stockLevels(ctx context.Context) (map[int64]int, error) {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	stock := make(map[int64]int, len(products))
	for _, p := range products {
		stock[p.ID] = p.StockLevel
	}
	return stock, nil
}

func (s *ForecastService) cacheKey(orders []domain.Order) cache.ForecastKey {
	var last time.Time
	for _, o := range orders {
		if o.OrderDate.After(last) {
			last = o.OrderDate
		}
	}
	return cache.ForecastKey{
		OrderCount:    len(orders),
		LastOrderDate: last,
		HistoryDigest: cache.HistoryDigest(orders),
		WindowSize:    s.cfg.WindowSize,
		Trees:         s.cfg.Trees,
		MaxDepth:      s.cfg.MaxDepth,
		Seed:          s.cfg.Seed,
	}
}

func sortedProductIDs(built *forecast.BuildResult) []int64 {
	ids := make([]int64, 0, len(built.Stats))
	for id := range built.Stats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
