package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/internal/domain"
)

// Expected columns for product uploads. Header matching is case-insensitive
// and ignores spaces, dots, dashes and underscores.
var productColumns = []string{"productid", "productname", "price", "stock"}

// Expected columns for order uploads.
var orderColumns = []string{"order_id", "order_date", "customer_email", "total_amount", "status", "line_items"}

var orderDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

var columnNameSanitizer = strings.NewReplacer(" ", "", "_", "", ".", "", "-", "", "/", "")

func normalizeColumnName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return columnNameSanitizer.Replace(name)
}

// readHeader maps each required column to its index, failing with a
// SchemaError naming the first missing column.
func readHeader(r *csv.Reader, required []string) (map[string]int, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[normalizeColumnName(col)] = i
	}

	for _, col := range required {
		if _, ok := colMap[normalizeColumnName(col)]; !ok {
			return nil, &domain.SchemaError{Column: col}
		}
	}

	return colMap, nil
}

func getValue(record []string, colMap map[string]int, colName string) string {
	if idx, ok := colMap[normalizeColumnName(colName)]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}

// ParseProducts reads a product CSV into validated records. Malformed rows
// are itemized in the report, never aborting the file. Duplicate ProductIDs
// within one file resolve last-row-wins, with each overwrite counted.
//
// Row numbers in the report are 1-based over data rows (the header is row 0).
func ParseProducts(r io.Reader) ([]domain.Product, *domain.ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	colMap, err := readHeader(reader, productColumns)
	if err != nil {
		return nil, nil, err
	}

	report := &domain.ImportReport{}
	byID := make(map[int64]int) // product id -> index into products
	var products []domain.Product

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row:     row,
				Message: fmt.Sprintf("unreadable CSV row: %v", err),
			})
			continue
		}

		idStr := getValue(record, colMap, "productid")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil || id <= 0 {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row:     row,
				Ref:     idStr,
				Message: "invalid product id",
			})
			continue
		}

		name := getValue(record, colMap, "productname")
		if name == "" {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row:     row,
				Ref:     idStr,
				Message: "missing product name",
			})
			continue
		}

		price, err := strconv.ParseFloat(getValue(record, colMap, "price"), 64)
		if err != nil || price < 0 {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row:     row,
				Ref:     idStr,
				Message: "invalid price",
			})
			continue
		}

		stock, err := strconv.Atoi(getValue(record, colMap, "stock"))
		if err != nil || stock < 0 {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row:     row,
				Ref:     idStr,
				Message: "invalid stock level",
			})
			continue
		}

		product := domain.Product{
			ID:         id,
			Name:       name,
			Price:      price,
			StockLevel: stock,
		}

		if prev, ok := byID[id]; ok {
			// Last row wins for duplicate ids, but never silently.
			products[prev] = product
			report.Overwritten++
			continue
		}

		byID[id] = len(products)
		products = append(products, product)
		report.Imported++
	}

	return products, report, nil
}

// ParseOrders reads an order CSV into validated records. The line_items
// column must hold a JSON array of {product_id, name, quantity, price}
// objects; a decode failure skips that row only.
func ParseOrders(r io.Reader) ([]domain.Order, *domain.ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	colMap, err := readHeader(reader, orderColumns)
	if err != nil {
		return nil, nil, err
	}

	report := &domain.ImportReport{}
	var orders []domain.Order

	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, domain.RowError{
				Row:     row,
				Message: fmt.Sprintf("unreadable CSV row: %v", err),
			})
			continue
		}

		order, rowErr := parseOrderRow(record, colMap, row)
		if rowErr != nil {
			report.Skipped++
			report.Errors = append(report.Errors, *rowErr)
			continue
		}

		orders = append(orders, *order)
		report.Imported++
	}

	return orders, report, nil
}

func parseOrderRow(record []string, colMap map[string]int, row int) (*domain.Order, *domain.RowError) {
	idStr := getValue(record, colMap, "order_id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return nil, &domain.RowError{Row: row, Ref: idStr, Message: "invalid order id"}
	}

	orderDate, ok := parseOrderDate(getValue(record, colMap, "order_date"))
	if !ok {
		return nil, &domain.RowError{Row: row, Ref: idStr, Message: "invalid order date"}
	}

	email := getValue(record, colMap, "customer_email")
	if email == "" {
		return nil, &domain.RowError{Row: row, Ref: idStr, Message: "missing customer email"}
	}

	total, err := strconv.ParseFloat(getValue(record, colMap, "total_amount"), 64)
	if err != nil || total < 0 {
		return nil, &domain.RowError{Row: row, Ref: idStr, Message: "invalid total amount"}
	}

	status, ok := domain.ParseOrderStatus(getValue(record, colMap, "status"))
	if !ok {
		return nil, &domain.RowError{Row: row, Ref: idStr, Message: "invalid order status"}
	}

	items, err := decodeLineItems(getValue(record, colMap, "line_items"))
	if err != nil {
		ferr := &domain.LineItemFormatError{Row: row, OrderID: id, Err: err}
		return nil, &domain.RowError{Row: row, Ref: idStr, Message: ferr.Error()}
	}

	return &domain.Order{
		ID:            id,
		OrderDate:     orderDate,
		CustomerEmail: email,
		TotalAmount:   total,
		Status:        status,
		LineItems:     items,
	}, nil
}

// decodeLineItems decodes the serialized line item array with a strict JSON
// decoder. It never evaluates the payload.
func decodeLineItems(raw string) (domain.LineItems, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty line_items")
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()

	var items domain.LineItems
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after line_items array")
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("line_items array is empty")
	}

	for i, item := range items {
		if item.ProductID <= 0 {
			return nil, fmt.Errorf("line item %d: invalid product_id", i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("line item %d: quantity must be positive", i)
		}
		if item.Price < 0 {
			return nil, fmt.Errorf("line item %d: negative price", i)
		}
	}

	return items, nil
}

func parseOrderDate(raw string) (time.Time, bool) {
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
