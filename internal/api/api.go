package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/internal/api/handlers"
	"github.com/andresuchdata/stockcast/internal/api/middleware"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
)

type Services struct {
	InventoryService *service.InventoryService
	ForecastService  *service.ForecastService
	UploadArchive    storage.ObjectStorage
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.InventoryService != nil {
			productHandler := handlers.NewProductHandler(services.InventoryService, services.UploadArchive)
			productGroup := apiGroup.Group("/products")
			{
				productGroup.GET("", productHandler.ListProducts)
				productGroup.POST("", productHandler.CreateProduct)
				productGroup.GET("/:id", productHandler.GetProduct)
				productGroup.PUT("/:id", productHandler.UpdateProduct)
				productGroup.DELETE("/:id", productHandler.DeleteProduct)
				productGroup.POST("/upload", productHandler.UploadProducts)
			}

			orderHandler := handlers.NewOrderHandler(services.InventoryService, services.UploadArchive)
			orderGroup := apiGroup.Group("/orders")
			{
				orderGroup.GET("", orderHandler.ListOrders)
				orderGroup.POST("", orderHandler.CreateOrder)
				orderGroup.GET("/:id", orderHandler.GetOrder)
				orderGroup.DELETE("/:id", orderHandler.DeleteOrder)
				orderGroup.POST("/clear", orderHandler.ClearOrders)
				orderGroup.POST("/upload", orderHandler.UploadOrders)
				orderGroup.POST("/process", orderHandler.ProcessOrders)
				orderGroup.POST("/:id/process", orderHandler.ProcessOrder)
			}
		}

		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService, services.UploadArchive)
			forecastGroup := apiGroup.Group("/forecast")
			{
				forecastGroup.GET("", forecastHandler.GetForecast)
				forecastGroup.POST("/upload", forecastHandler.ForecastFromUpload)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
