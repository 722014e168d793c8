package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is returned when the model is fit with fewer
	// samples than the configured minimum.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrUntrainedModel is returned when predict is called before fit.
	ErrUntrainedModel = errors.New("model has not been trained")

	// ErrProductNotFound is returned for lookups of unknown product ids.
	ErrProductNotFound = errors.New("product not found")

	// ErrOrderNotFound is returned for lookups of unknown order ids.
	ErrOrderNotFound = errors.New("order not found")

	// ErrOrderExists is returned when inserting an order whose id is taken.
	ErrOrderExists = errors.New("order already exists")
)

// SchemaError reports a missing or unusable column in an uploaded file.
// It aborts the whole upload.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column: %s", e.Column)
}

// LineItemFormatError reports a line_items field that failed strict JSON
// decoding. Only the offending row is skipped.
type LineItemFormatError struct {
	Row     int
	OrderID int64
	Err     error
}

func (e *LineItemFormatError) Error() string {
	return fmt.Sprintf("invalid line_items JSON in row %d (order %d): %v", e.Row, e.OrderID, e.Err)
}

func (e *LineItemFormatError) Unwrap() error { return e.Err }

// InvalidLineItemError rejects an order whose line items violate the data
// model (non-positive quantity or product id, negative price) before it is
// stored.
type InvalidLineItemError struct {
	OrderID int64
	Index   int
	Reason  string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("invalid line item %d in order %d: %s", e.Index, e.OrderID, e.Reason)
}

// AlreadyProcessedError rejects a second processing attempt for a completed
// order, leaving stock untouched.
type AlreadyProcessedError struct {
	OrderID int64
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("order %d has already been processed", e.OrderID)
}
