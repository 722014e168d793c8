package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/service"
)

type ctxKey string

const dbKey ctxKey = "db"

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Usage:    "CSV file to import",
		Required: true,
	}
}

func initDB(c *cli.Context) error {
	db, err := postgres.NewDBFromURL(c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	return nil
}

func closeDB(c *cli.Context) error {
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

func dbFrom(c *cli.Context) *postgres.DB {
	return c.Context.Value(dbKey).(*postgres.DB)
}

func inventoryFrom(c *cli.Context) *service.InventoryService {
	store := postgres.NewInventoryStore(dbFrom(c))
	return service.NewInventoryService(store, cache.NewNoopForecastCache())
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runInitDB(c *cli.Context) error {
	if err := postgres.InitSchema(c.Context, dbFrom(c)); err != nil {
		return err
	}
	fmt.Println("schema applied")
	return nil
}

func runImportProducts(c *cli.Context) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.String("file"), err)
	}
	defer f.Close()

	report, err := inventoryFrom(c).ImportProducts(c.Context, f)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runImportOrders(c *cli.Context) error {
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", c.String("file"), err)
	}
	defer f.Close()

	report, err := inventoryFrom(c).ImportOrders(c.Context, f)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runProcessOrders(c *cli.Context) error {
	report, err := inventoryFrom(c).ProcessPendingOrders(c.Context)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runForecast(c *cli.Context) error {
	cfg := config.Load()

	store := postgres.NewInventoryStore(dbFrom(c))
	forecastService := service.NewForecastService(store, cache.NewNoopForecastCache(), cfg.Forecast)

	predictions, err := forecastService.Forecast(c.Context)
	if err != nil {
		return err
	}
	return printJSON(predictions)
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "stockctl",
		Usage: "Inventory store management commands",
		Commands: []*cli.Command{
			{
				Name:   "init-db",
				Usage:  "Create the products and orders tables",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runInitDB,
			},
			{
				Name:   "import-products",
				Usage:  "Bulk-import a product CSV",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runImportProducts,
			},
			{
				Name:   "import-orders",
				Usage:  "Bulk-import an order CSV",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runImportOrders,
			},
			{
				Name:   "process-orders",
				Usage:  "Deduct stock for all pending orders",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runProcessOrders,
			},
			{
				Name:   "forecast",
				Usage:  "Print per-product demand predictions",
				Flags:  []cli.Flag{newDBURLFlag()},
				Before: initDB,
				After:  closeDB,
				Action: runForecast,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
