package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/drive"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/service"
)

// The ops sidecar: pulls order CSV exports out of the shared Drive folder and
// imports them into the store, without going through the public API.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	driveService, err := drive.NewService(cfg.Drive.CredentialsJSON)
	if err != nil {
		log.Fatalf("Failed to initialize Google Drive service: %v", err)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}

	store := postgres.NewInventoryStore(db)
	inventory := service.NewInventoryService(store, forecastCache)
	ingestService := drive.NewIngestService(driveService, inventory)

	r := mux.NewRouter()

	driveHandler := drive.NewHandler(driveService, ingestService, cfg.Drive.FolderID)
	driveHandler.RegisterRoutes(r)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Drive ingest server starting on %s\n", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
