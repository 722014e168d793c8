package handlers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
)

type ForecastHandler struct {
	forecast *service.ForecastService
	archive  storage.ObjectStorage
}

func NewForecastHandler(forecast *service.ForecastService, archive storage.ObjectStorage) *ForecastHandler {
	return &ForecastHandler{forecast: forecast, archive: archive}
}

// GetForecast predicts next-period demand per product from the stored order
// history.
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	predictions, err := h.forecast.Forecast(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": predictions})
}

// ForecastFromUpload predicts from an uploaded order CSV without persisting
// the orders.
func (h *ForecastHandler) ForecastFromUpload(c *gin.Context) {
	filename, data, err := readUploadedCSV(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	predictions, report, err := h.forecast.ForecastFromUpload(c.Request.Context(), bytes.NewReader(data))
	if err != nil {
		respondError(c, err)
		return
	}

	archiveUpload(h.archive, "forecast", filename, data)
	c.JSON(http.StatusOK, gin.H{
		"predictions": predictions,
		"import":      report,
	})
}
