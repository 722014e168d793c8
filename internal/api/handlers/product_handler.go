package handlers

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/domain"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
)

type ProductHandler struct {
	inventory *service.InventoryService
	archive   storage.ObjectStorage
}

func NewProductHandler(inventory *service.InventoryService, archive storage.ObjectStorage) *ProductHandler {
	return &ProductHandler{inventory: inventory, archive: archive}
}

// ListProducts returns the catalog with each row's stock tier.
func (h *ProductHandler) ListProducts(c *gin.Context) {
	products, err := h.inventory.ListProducts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.inventory.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type productRequest struct {
	Name       string  `json:"name" binding:"required"`
	Price      float64 `json:"price" binding:"min=0"`
	StockLevel int     `json:"stock_level" binding:"min=0"`
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := &domain.Product{
		Name:       req.Name,
		Price:      req.Price,
		StockLevel: req.StockLevel,
	}
	if err := h.inventory.CreateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := &domain.Product{
		ID:         id,
		Name:       req.Name,
		Price:      req.Price,
		StockLevel: req.StockLevel,
	}
	if err := h.inventory.UpdateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProduct removes a product and any orders referencing it.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	orderIDs, err := h.inventory.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deleted":        id,
		"removed_orders": orderIDs,
	})
}

// UploadProducts bulk-imports a product CSV. Existing products sharing an id
// are overwritten; the response itemizes rejected rows.
func (h *ProductHandler) UploadProducts(c *gin.Context) {
	filename, data, err := readUploadedCSV(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.inventory.ImportProducts(c.Request.Context(), bytes.NewReader(data))
	if err != nil {
		respondError(c, err)
		return
	}

	archiveUpload(h.archive, "products", filename, data)
	c.JSON(http.StatusOK, report)
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
