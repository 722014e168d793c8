package handlers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
)

type OrderHandler struct {
	inventory *service.InventoryService
	archive   storage.ObjectStorage
}

func NewOrderHandler(inventory *service.InventoryService, archive storage.ObjectStorage) *OrderHandler {
	return &OrderHandler{inventory: inventory, archive: archive}
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.inventory.ListOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	order, err := h.inventory.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

type orderRequest struct {
	OrderID       int64             `json:"order_id" binding:"required,min=1"`
	OrderDate     time.Time         `json:"order_date" binding:"required"`
	CustomerEmail string            `json:"customer_email"`
	TotalAmount   float64           `json:"total_amount" binding:"min=0"`
	LineItems     []domain.LineItem `json:"line_items" binding:"required,min=1"`
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order := &domain.Order{
		ID:            req.OrderID,
		OrderDate:     req.OrderDate,
		CustomerEmail: req.CustomerEmail,
		TotalAmount:   req.TotalAmount,
		Status:        domain.OrderStatusPending,
		LineItems:     req.LineItems,
	}
	if err := h.inventory.CreateOrder(c.Request.Context(), order); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.inventory.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// ClearOrders wipes the whole order history.
func (h *OrderHandler) ClearOrders(c *gin.Context) {
	if err := h.inventory.ClearOrders(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "all orders cleared"})
}

// UploadOrders bulk-imports an order CSV. Duplicate ids and malformed rows
// are skipped and itemized, never fatal.
func (h *OrderHandler) UploadOrders(c *gin.Context) {
	filename, data, err := readUploadedCSV(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.inventory.ImportOrders(c.Request.Context(), bytes.NewReader(data))
	if err != nil {
		respondError(c, err)
		return
	}

	archiveUpload(h.archive, "orders", filename, data)
	c.JSON(http.StatusOK, report)
}

// ProcessOrders deducts stock for every pending order.
func (h *OrderHandler) ProcessOrders(c *gin.Context) {
	report, err := h.inventory.ProcessPendingOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ProcessOrder deducts stock for one order by id. A second attempt on the
// same order responds 409.
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	report, err := h.inventory.ProcessOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
