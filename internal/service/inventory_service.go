package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/forecast"
	"github.com/andresuchdata/stockcast/internal/ingest"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/rs/zerolog/log"
)

// lowStockWatermark is the listing threshold below which a product shows as
// low. Forecast severity uses predicted demand instead; this only colors the
// catalog view.
const lowStockWatermark = 10

// ProductListing is a catalog row annotated with its stock tier.
type ProductListing struct {
	domain.Product
	StockStatus domain.Severity `json:"stock_status"`
}

type InventoryService struct {
	store repository.Store
	cache cache.ForecastCache
}

func NewInventoryService(store repository.Store, cacheImpl cache.ForecastCache) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopForecastCache()
	}
	return &InventoryService{store: store, cache: cacheImpl}
}

func (s *InventoryService) ListProducts(ctx context.Context) ([]ProductListing, error) {
	products, err := s.store.GetProducts(ctx)
	if err != nil {
		return nil, err
	}

	listings := make([]ProductListing, 0, len(products))
	for _, p := range products {
		listings = append(listings, ProductListing{
			Product:     *p,
			StockStatus: forecast.StockTier(p.StockLevel, lowStockWatermark),
		})
	}
	return listings, nil
}

func (s *InventoryService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *InventoryService) CreateProduct(ctx context.Context, product *domain.Product) error {
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return err
	}
	s.invalidateForecasts(ctx)
	return nil
}

func (s *InventoryService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if err := s.store.UpdateProduct(ctx, product); err != nil {
		return err
	}
	s.invalidateForecasts(ctx)
	return nil
}

// DeleteProduct removes the product and every order referencing it, so order
// history never points at a product that no longer exists. Returns the ids of
// the removed orders.
func (s *InventoryService) DeleteProduct(ctx context.Context, id int64) ([]int64, error) {
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return nil, err
	}

	orderIDs, err := s.store.DeleteOrdersForProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %d deleted but order cleanup failed: %w", id, err)
	}

	s.invalidateForecasts(ctx)
	return orderIDs, nil
}

// ImportProducts parses a product CSV and replaces matching catalog entries.
// Rows sharing a product id with an existing entry overwrite it; malformed
// rows are reported, never fatal.
func (s *InventoryService) ImportProducts(ctx context.Context, r io.Reader) (*domain.ImportReport, error) {
	products, report, err := ingest.ParseProducts(r)
	if err != nil {
		return nil, err
	}

	if len(products) > 0 {
		if err := s.store.UpsertProducts(ctx, products); err != nil {
			return nil, err
		}
	}

	s.invalidateForecasts(ctx)
	return report, nil
}

func (s *InventoryService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.store.GetOrders(ctx, nil)
}

func (s *InventoryService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return s.store.GetOrder(ctx, id)
}

// CreateOrder stores a new order. Line items must carry a positive quantity
// and reference a cataloged product; stock deduction assumes both, so a bad
// item is rejected here rather than discovered at processing time.
func (s *InventoryService) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := validateLineItems(order); err != nil {
		return err
	}
	for _, item := range order.LineItems {
		if _, err := s.store.GetProduct(ctx, item.ProductID); err != nil {
			if errors.Is(err, domain.ErrProductNotFound) {
				return fmt.Errorf("line item references product %d: %w", item.ProductID, domain.ErrProductNotFound)
			}
			return err
		}
	}

	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		return err
	}
	s.invalidateForecasts(ctx)
	return nil
}

func validateLineItems(order *domain.Order) error {
	for i, item := range order.LineItems {
		switch {
		case item.ProductID <= 0:
			return &domain.InvalidLineItemError{OrderID: order.ID, Index: i, Reason: "product_id must be positive"}
		case item.Quantity <= 0:
			return &domain.InvalidLineItemError{OrderID: order.ID, Index: i, Reason: "quantity must be positive"}
		case item.Price < 0:
			return &domain.InvalidLineItemError{OrderID: order.ID, Index: i, Reason: "price must not be negative"}
		}
	}
	return nil
}

func (s *InventoryService) DeleteOrder(ctx context.Context, id int64) error {
	if err := s.store.DeleteOrder(ctx, id); err != nil {
		return err
	}
	s.invalidateForecasts(ctx)
	return nil
}

func (s *InventoryService) ClearOrders(ctx context.Context) error {
	if err := s.store.ClearOrders(ctx); err != nil {
		return err
	}
	s.invalidateForecasts(ctx)
	return nil
}

// ImportOrders parses an order CSV and inserts each order. Duplicate order ids
// are skipped and reported, so re-uploading the same file is harmless.
func (s *InventoryService) ImportOrders(ctx context.Context, r io.Reader) (*domain.ImportReport, error) {
	orders, report, err := ingest.ParseOrders(r)
	if err != nil {
		return nil, err
	}

	imported := 0
	for i := range orders {
		err := s.store.InsertOrder(ctx, &orders[i])
		if errors.Is(err, domain.ErrOrderExists) {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Ref:     fmt.Sprintf("%d", orders[i].ID),
				Message: "duplicate order id, skipped",
			})
			continue
		}
		if err != nil {
			return nil, err
		}
		imported++
	}
	report.Imported = imported

	s.invalidateForecasts(ctx)
	return report, nil
}

// ProcessPendingOrders deducts stock for every pending order and marks each
// completed. One bad order never blocks the rest of the batch.
func (s *InventoryService) ProcessPendingOrders(ctx context.Context) (*domain.ProcessReport, error) {
	pending, err := s.store.GetPendingOrders(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.ProcessReport{}
	for _, order := range pending {
		s.processInto(ctx, order.ID, report)
	}

	s.invalidateForecasts(ctx)
	return report, nil
}

// ProcessOrder processes a single order by id. Reprocessing a completed order
// fails with AlreadyProcessedError and leaves stock untouched.
func (s *InventoryService) ProcessOrder(ctx context.Context, orderID int64) (*domain.ProcessReport, error) {
	result, err := s.store.ProcessOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	report := &domain.ProcessReport{Processed: 1}
	appendResult(report, result)

	s.invalidateForecasts(ctx)
	return report, nil
}

func (s *InventoryService) processInto(ctx context.Context, orderID int64, report *domain.ProcessReport) {
	result, err := s.store.ProcessOrder(ctx, orderID)

	var alreadyProcessed *domain.AlreadyProcessedError
	if errors.As(err, &alreadyProcessed) {
		report.Skipped++
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("order_id", orderID).Msg("order processing failed")
		report.Errors = append(report.Errors, domain.RowError{
			Ref:     fmt.Sprintf("%d", orderID),
			Message: err.Error(),
		})
		return
	}

	report.Processed++
	appendResult(report, result)
}

func appendResult(report *domain.ProcessReport, result *repository.OrderProcessResult) {
	report.Shortfalls = append(report.Shortfalls, result.Shortfalls...)
	for _, productID := range result.MissingProducts {
		report.Errors = append(report.Errors, domain.RowError{
			Ref:     fmt.Sprintf("%d", result.OrderID),
			Message: fmt.Sprintf("line item references unknown product %d", productID),
		})
	}
}

func (s *InventoryService) invalidateForecasts(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("forecast cache invalidation failed")
	}
}
