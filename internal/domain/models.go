package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Product represents a catalog item with its current stock level.
type Product struct {
	ID         int64     `json:"product_id" db:"product_id"`
	Name       string    `json:"name" db:"name"`
	Price      float64   `json:"price" db:"price"`
	StockLevel int       `json:"stock_level" db:"stock_level"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// LineItem is one product/quantity/price entry within an order. The name and
// price are denormalized copies taken at order time.
type LineItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// LineItems is stored as a JSON column on the orders table.
type LineItems []LineItem

func (l LineItems) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LineItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	case nil:
		*l = nil
		return nil
	default:
		return fmt.Errorf("cannot scan %T into LineItems", src)
	}
}

// Order is immutable once created except for the pending -> completed
// status transition performed by order processing.
type Order struct {
	ID            int64       `json:"order_id" db:"order_id"`
	OrderDate     time.Time   `json:"order_date" db:"order_date"`
	CustomerEmail string      `json:"customer_email" db:"customer_email"`
	TotalAmount   float64     `json:"total_amount" db:"total_amount"`
	Status        OrderStatus `json:"status" db:"status"`
	LineItems     LineItems   `json:"line_items" db:"line_items"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
}

// RowError reports one rejected row from a CSV import.
type RowError struct {
	Row     int    `json:"row"`
	Ref     string `json:"ref,omitempty"`
	Message string `json:"message"`
}

// ImportReport aggregates the outcome of one CSV import. Rejected rows never
// abort the import; they are itemized here.
type ImportReport struct {
	Imported    int        `json:"imported"`
	Skipped     int        `json:"skipped"`
	Overwritten int        `json:"overwritten"`
	Errors      []RowError `json:"errors,omitempty"`
}

// StockShortfall records a deduction that was clamped at zero.
type StockShortfall struct {
	OrderID   int64 `json:"order_id"`
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Deducted  int   `json:"deducted"`
	Shortfall int   `json:"shortfall"`
}

// ProcessReport aggregates the outcome of an order-processing run.
type ProcessReport struct {
	Processed  int              `json:"processed"`
	Skipped    int              `json:"skipped"`
	Shortfalls []StockShortfall `json:"shortfalls,omitempty"`
	Errors     []RowError       `json:"errors,omitempty"`
}

// Prediction is the per-product forecast result. Ephemeral; regenerated on
// each request.
type Prediction struct {
	ProductID          int64    `json:"product_id"`
	ProductName        string   `json:"product_name,omitempty"`
	TotalQuantity      int      `json:"total_quantity"`
	AvgQuantity        float64  `json:"avg_quantity"`
	PredictedDemand    float64  `json:"predicted_demand"`
	CurrentStock       int      `json:"current_stock"`
	RecommendedRestock int      `json:"recommended_restock"`
	Severity           Severity `json:"severity"`
	Naive              bool     `json:"naive"`
}
