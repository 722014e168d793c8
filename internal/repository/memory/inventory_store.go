package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/repository"
)

// inventoryStore is an in-memory repository.Store used by tests and the
// standalone dev mode. A single mutex guards both maps so order processing
// is atomic and concurrent deductions against the same product serialize,
// matching the postgres store's row-locking behavior.
type inventoryStore struct {
	mu       sync.RWMutex
	products map[int64]domain.Product
	orders   map[int64]domain.Order
	nextID   int64
}

func NewInventoryStore() repository.Store {
	return &inventoryStore{
		products: make(map[int64]domain.Product),
		orders:   make(map[int64]domain.Order),
	}
}

func (s *inventoryStore) GetProducts(ctx context.Context) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]*domain.Product, 0, len(s.products))
	for id := range s.products {
		p := s.products[id]
		products = append(products, &p)
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ID < products[j].ID })
	return products, nil
}

func (s *inventoryStore) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (s *inventoryStore) UpsertProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.upsertLocked(*product)
	return nil
}

func (s *inventoryStore) UpsertProducts(ctx context.Context, products []domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		s.upsertLocked(p)
	}
	return nil
}

func (s *inventoryStore) upsertLocked(p domain.Product) {
	now := time.Now()
	if existing, ok := s.products[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = p
	if p.ID > s.nextID {
		s.nextID = p.ID
	}
}

func (s *inventoryStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	product.ID = s.nextID
	s.upsertLocked(*product)
	return nil
}

func (s *inventoryStore) UpdateProduct(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[product.ID]; !ok {
		return domain.ErrProductNotFound
	}
	s.upsertLocked(*product)
	return nil
}

func (s *inventoryStore) DeleteProduct(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *inventoryStore) GetOrders(ctx context.Context, since *time.Time) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(s.orders))
	for id := range s.orders {
		o := s.orders[id]
		if since != nil && o.OrderDate.Before(*since) {
			continue
		}
		orders = append(orders, &o)
	}
	sortOrders(orders)
	return orders, nil
}

func (s *inventoryStore) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

func (s *inventoryStore) GetPendingOrders(ctx context.Context) ([]*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var orders []*domain.Order
	for id := range s.orders {
		o := s.orders[id]
		if o.Status != domain.OrderStatusCompleted {
			orders = append(orders, &o)
		}
	}
	sortOrders(orders)
	return orders, nil
}

func (s *inventoryStore) InsertOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return domain.ErrOrderExists
	}
	o := *order
	o.CreatedAt = time.Now()
	s.orders[order.ID] = o
	return nil
}

func (s *inventoryStore) DeleteOrder(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *inventoryStore) DeleteOrdersForProduct(ctx context.Context, productID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, o := range s.orders {
		for _, item := range o.LineItems {
			if item.ProductID == productID {
				ids = append(ids, id)
				break
			}
		}
	}
	for _, id := range ids {
		delete(s.orders, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *inventoryStore) ClearOrders(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders = make(map[int64]domain.Order)
	return nil
}

func (s *inventoryStore) ProcessOrder(ctx context.Context, orderID int64) (*repository.OrderProcessResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	if order.Status == domain.OrderStatusCompleted {
		return nil, &domain.AlreadyProcessedError{OrderID: orderID}
	}

	result := &repository.OrderProcessResult{OrderID: orderID}
	for _, item := range order.LineItems {
		product, ok := s.products[item.ProductID]
		if !ok {
			result.MissingProducts = append(result.MissingProducts, item.ProductID)
			continue
		}

		deducted := item.Quantity
		if deducted > product.StockLevel {
			deducted = product.StockLevel
		}
		product.StockLevel -= deducted
		product.UpdatedAt = time.Now()
		s.products[item.ProductID] = product

		if deducted < item.Quantity {
			result.Shortfalls = append(result.Shortfalls, domain.StockShortfall{
				OrderID:   orderID,
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Deducted:  deducted,
				Shortfall: item.Quantity - deducted,
			})
		}
	}

	order.Status = domain.OrderStatusCompleted
	s.orders[orderID] = order
	return result, nil
}

func sortOrders(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].OrderDate.Equal(orders[j].OrderDate) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].OrderDate.Before(orders[j].OrderDate)
	})
}
